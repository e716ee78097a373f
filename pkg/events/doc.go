/*
Package events provides an in-memory broker for storage and migration events.

Publishers hand events to a buffered queue; a single distribution goroutine
fans them out to subscriber channels. Delivery is best effort: a subscriber
whose buffer is full misses the event rather than stalling the publisher.

	broker := events.NewBroker()
	broker.Start()
	defer broker.Stop()

	sub := broker.Subscribe(events.EventMigrationCompleted, events.EventMigrationFailed)
	for ev := range sub {
		fmt.Println(ev.Type, ev.Metadata["destination"])
	}

Stop closes every subscriber channel, so range loops over a subscription end
when the broker shuts down.
*/
package events
