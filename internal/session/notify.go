//go:build linux

package session

import (
	"sync/atomic"

	"github.com/godbus/dbus/v5"
	"github.com/rs/zerolog"
)

const (
	dbusNotifyDest      = "org.freedesktop.Notifications"
	dbusNotifyPath      = "/org/freedesktop/Notifications"
	dbusNotifyInterface = "org.freedesktop.Notifications"

	actionInvokedSignal = dbusNotifyInterface + ".ActionInvoked"
)

// Custom session action identifiers. Each is a zero-argument command
// rendered as a notification button.
const (
	ActionFavoriteToggle = "favorite-toggle"
	ActionRepeatCycle    = "repeat-cycle"
	ActionShuffleToggle  = "shuffle-toggle"
)

// layout is the rendered notification: now-playing text plus the custom
// action buttons with state-dependent labels.
type layout struct {
	Title   string
	Body    string
	Icon    string
	Actions []string // alternating key, label
}

// notifier renders the persistent now-playing notification and routes
// button presses to the bridge.
type notifier struct {
	conn     *dbus.Conn
	obj      dbus.BusObject
	id       atomic.Uint32 // current notification, shared with listen
	onAction func(key string)
	signals  chan *dbus.Signal
	done     chan struct{}
	log      zerolog.Logger
}

// newNotifier connects to the session bus and starts listening for action
// presses. D-Bus being unavailable is an error; the bridge degrades to
// MPRIS-only in that case.
func newNotifier(onAction func(key string), log zerolog.Logger) (*notifier, error) {
	conn, err := dbus.SessionBus()
	if err != nil {
		return nil, err
	}

	if err := conn.AddMatchSignal(
		dbus.WithMatchInterface(dbusNotifyInterface),
		dbus.WithMatchMember("ActionInvoked"),
	); err != nil {
		return nil, err
	}

	n := &notifier{
		conn:     conn,
		obj:      conn.Object(dbusNotifyDest, dbusNotifyPath),
		onAction: onAction,
		signals:  make(chan *dbus.Signal, 8),
		done:     make(chan struct{}),
		log:      log,
	}
	conn.Signal(n.signals)
	go n.listen()
	return n, nil
}

func (n *notifier) listen() {
	for {
		select {
		case <-n.done:
			return
		case sig, ok := <-n.signals:
			if !ok {
				return
			}
			if sig.Name != actionInvokedSignal || len(sig.Body) != 2 {
				continue
			}
			id, _ := sig.Body[0].(uint32)
			key, _ := sig.Body[1].(string)
			if id == n.id.Load() && n.onAction != nil {
				n.onAction(key)
			}
		}
	}
}

// Render shows or replaces the now-playing notification.
func (n *notifier) Render(l layout) {
	hints := map[string]dbus.Variant{
		"urgency":       dbus.MakeVariant(byte(1)),
		"desktop-entry": dbus.MakeVariant("ripple"),
		"resident":      dbus.MakeVariant(true),
	}

	call := n.obj.Call(
		dbusNotifyInterface+".Notify",
		0,
		"Ripple",
		n.id.Load(), // replace the previous rendering
		l.Icon,
		l.Title,
		l.Body,
		l.Actions,
		hints,
		int32(0), // never expire
	)
	if call.Err != nil {
		n.log.Warn().Err(call.Err).Msg("notification render failed")
		return
	}
	var id uint32
	if err := call.Store(&id); err != nil {
		n.log.Warn().Err(err).Msg("notification id read failed")
		return
	}
	n.id.Store(id)
}

// Close removes the notification and stops the signal listener.
func (n *notifier) Close() {
	close(n.done)
	n.conn.RemoveSignal(n.signals)
	if id := n.id.Load(); id != 0 {
		_ = n.obj.Call(dbusNotifyInterface+".CloseNotification", 0, id).Err
	}
}
