package reactor

import "time"

type sessionState int8

const (
	statePreAuth sessionState = iota
	stateAuthenticated
)

// Session is per-connection server-side state: the raw socket, input/output
// byte buffers, last-activity timestamp, auth flag, and client id. Created
// on accept and registered in the reactor's by-fd table, which holds every
// connected session; a successful AUTH additionally registers it in the
// authenticated table keyed by client id, and it stays in the by-fd table,
// so the two tables are not disjoint. Destroyed on close, I/O error, idle
// timeout, or supersede-login.
type Session struct {
	fd    int
	state sessionState

	clientID string
	admin    bool

	inbuf  []byte
	outbuf []byte

	lastActive time.Time
	wantWrite  bool
	closed     bool
}

func newSession(fd int) *Session {
	return &Session{
		fd:         fd,
		state:      statePreAuth,
		lastActive: time.Now(),
	}
}

func (s *Session) authenticated() bool {
	return s.state == stateAuthenticated
}

func (s *Session) touch() {
	s.lastActive = time.Now()
}

func (s *Session) idleSince(now time.Time) time.Duration {
	return now.Sub(s.lastActive)
}

// enqueue appends line to the session's pending output; the reactor arms
// writability for this session's fd the next time it revisits epoll state.
func (s *Session) enqueue(line string) {
	s.outbuf = append(s.outbuf, line...)
}

func (s *Session) hasPendingWrite() bool {
	return len(s.outbuf) > 0
}
