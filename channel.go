package liveaudio

// Channel is the opaque duplex transport a session speaks through. The
// session does not implement or assume any particular protocol or network
// stack behind it.
//
// Send is fire-and-forget from the session's point of view: the session never
// blocks waiting for delivery. OnMessage must deliver inbound messages one at
// a time, in arrival order, and must stop delivering once Close returns.
type Channel interface {
	Send(msg Message) error
	OnMessage(handler func(msg Message)) error
	Close() error
}
