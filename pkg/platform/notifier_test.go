package platform

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"
)

func waitEvent(t *testing.T, ch <-chan Event, kind EventKind, path string) {
	t.Helper()
	deadline := time.After(5 * time.Second)
	for {
		select {
		case ev, ok := <-ch:
			require.True(t, ok, "events channel closed early")
			if ev.Kind == kind && ev.Path == path {
				return
			}
		case <-deadline:
			t.Fatalf("timed out waiting for %s %s", kind, path)
		}
	}
}

func TestMountNotifier_ReportsAttachAndDetach(t *testing.T) {
	defer goleak.VerifyNone(t)

	root := t.TempDir()
	n := NewMountNotifier([]string{root, filepath.Join(root, "absent")}, 0)
	require.NoError(t, n.Start())

	usb := filepath.Join(root, "usb")
	require.NoError(t, os.Mkdir(usb, 0755))
	waitEvent(t, n.Events(), EventMounted, usb)

	require.NoError(t, os.Remove(usb))
	waitEvent(t, n.Events(), EventRemoved, usb)

	events := n.Events()
	n.Stop()

	_, ok := <-events
	for ok {
		_, ok = <-events
	}
	assert.False(t, ok, "Stop closes the channel")
}

func TestMountNotifier_Restart(t *testing.T) {
	defer goleak.VerifyNone(t)

	n := NewMountNotifier([]string{t.TempDir()}, 10*time.Millisecond)
	require.NoError(t, n.Start())
	assert.Error(t, n.Start(), "double start is rejected")
	n.Stop()
	n.Stop()

	require.NoError(t, n.Start())
	n.Stop()
}
