/*
Package watcher keeps a listener informed about the volumes on the host.

A Watcher subscribes to platform storage notifications. Every notification
triggers a registry rebuild and the new snapshot is handed to the listener.
Notifications are not debounced.

	w := watcher.New(notifier, func() (types.Snapshot, error) {
		return registry.Rebuild(configured)
	}, broker)
	if err := w.Watch(func(s types.Snapshot) { render(s) }); err != nil {
		return err
	}
	defer w.Unwatch()

Deliveries happen one at a time on the watcher goroutine. Unwatch waits for
a delivery in progress, so the listener is never called after Unwatch
returns. Suspend drops notifications, for example while a migration is
rewriting the data directory; Refresh forces a delivery.
*/
package watcher
