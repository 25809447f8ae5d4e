package reactor

import (
	"bytes"
	"fmt"
	"time"

	"github.com/cockroachdb/errors"
	"go.uber.org/zap"
	"golang.org/x/sys/unix"

	"github.com/lattice-trade/orderbook/book"
)

const (
	maxEpollEvents = 128
	pollTimeoutMS  = 1000
	readChunkSize  = 4096
)

// Config holds reactor startup parameters. Everything here is read-only
// once Run starts; the only mutable state during a run is what the
// reactor itself owns (sessions, registry, notifier).
type Config struct {
	Port        uint16
	Passkey     string
	AdminSecret string
	IdleTimeout time.Duration
}

// Reactor is the single-threaded, non-blocking socket event loop built on
// Linux epoll. It exclusively owns every Session, and is the only thing
// permitted to mutate the instrument registry or the notifier's
// subscription table.
type Reactor struct {
	cfg Config

	listenFd int
	epfd     int

	allByFd       map[int]*Session
	authenticated map[string]*Session

	registry   *book.Registry
	notifier   *Notifier
	idgen      *IDGenerator
	ring       *LogRing
	depthBooks map[string]*book.AggregatedBook
}

// New binds the listening socket, creates the epoll instance, and
// registers the listener for read readiness. registry must already be
// populated with whatever instruments the deployment wants available;
// the wire protocol has no command to create one; that's a startup-time
// concern, not a session command.
func New(cfg Config, registry *book.Registry, ring *LogRing) (*Reactor, error) {
	listenFd, err := bindListener(cfg.Port)
	if err != nil {
		return nil, err
	}

	epfd, err := unix.EpollCreate1(0)
	if err != nil {
		unix.Close(listenFd)
		return nil, errors.Wrap(err, "epoll_create1")
	}

	r := &Reactor{
		cfg:           cfg,
		listenFd:      listenFd,
		epfd:          epfd,
		allByFd:       make(map[int]*Session),
		authenticated: make(map[string]*Session),
		registry:      registry,
		idgen:         NewIDGenerator(),
		ring:          ring,
		depthBooks:    make(map[string]*book.AggregatedBook),
	}
	r.notifier = NewNotifier(r.lookupAuthenticated)

	if err := unix.EpollCtl(epfd, unix.EPOLL_CTL_ADD, listenFd, &unix.EpollEvent{
		Events: unix.EPOLLIN,
		Fd:     int32(listenFd),
	}); err != nil {
		unix.Close(listenFd)
		unix.Close(epfd)
		return nil, errors.Wrap(err, "epoll_ctl add listener")
	}

	return r, nil
}

func bindListener(port uint16) (int, error) {
	fd, err := unix.Socket(unix.AF_INET, unix.SOCK_STREAM, 0)
	if err != nil {
		return -1, errors.Wrap(err, "socket")
	}
	if err := unix.SetsockoptInt(fd, unix.SOL_SOCKET, unix.SO_REUSEADDR, 1); err != nil {
		unix.Close(fd)
		return -1, errors.Wrap(err, "setsockopt reuseaddr")
	}
	if err := unix.Bind(fd, &unix.SockaddrInet4{Port: int(port)}); err != nil {
		unix.Close(fd)
		return -1, errors.Mark(errors.Wrap(err, "bind"), ErrBindFailed)
	}
	if err := unix.Listen(fd, 128); err != nil {
		unix.Close(fd)
		return -1, errors.Wrap(err, "listen")
	}
	if err := unix.SetNonblock(fd, true); err != nil {
		unix.Close(fd)
		return -1, errors.Wrap(err, "set nonblock")
	}
	return fd, nil
}

func (r *Reactor) lookupAuthenticated(clientID string) (*Session, bool) {
	s, ok := r.authenticated[clientID]
	return s, ok
}

// adminSessionView is one row of the DEBUG LIST admin output.
type adminSessionView struct {
	clientID      string
	authenticated bool
	subscriptions []string
}

// adminSessions returns one view per connected session, in no particular
// order. DEBUG LIST renders these rows as the admin's session roster.
func (r *Reactor) adminSessions() []adminSessionView {
	out := make([]adminSessionView, 0, len(r.allByFd))
	for _, sess := range r.allByFd {
		if sess.closed {
			continue
		}
		out = append(out, adminSessionView{
			clientID:      sess.clientID,
			authenticated: sess.authenticated(),
			subscriptions: r.notifier.SubscriptionsFor(sess.clientID),
		})
	}
	return out
}

// Run executes the single-threaded event loop until stop is closed or a
// fatal error occurs. It must be called from exactly one goroutine.
func (r *Reactor) Run(stop <-chan struct{}) error {
	events := make([]unix.EpollEvent, maxEpollEvents)

	for {
		select {
		case <-stop:
			return nil
		default:
		}

		n, err := unix.EpollWait(r.epfd, events, pollTimeoutMS)
		if err != nil {
			if errors.Is(err, unix.EINTR) {
				continue
			}
			return errors.Wrap(err, "epoll_wait")
		}

		for i := 0; i < n; i++ {
			r.handleEvent(events[i])
		}

		r.syncAllWriteInterest()
		r.sweepIdle()
	}
}

func (r *Reactor) handleEvent(ev unix.EpollEvent) {
	fd := int(ev.Fd)
	if fd == r.listenFd {
		if ev.Events&(unix.EPOLLERR|unix.EPOLLHUP) != 0 {
			logger.Error("listener socket reported an error", zap.Error(ErrListenerClosed))
			return
		}
		r.acceptUntilBlocked()
		return
	}

	sess, ok := r.allByFd[fd]
	if !ok {
		return
	}

	if ev.Events&(unix.EPOLLERR|unix.EPOLLHUP) != 0 {
		r.closeSession(sess)
		return
	}
	if ev.Events&unix.EPOLLIN != 0 {
		r.handleReadable(sess)
		if sess.closed {
			return
		}
	}
	if ev.Events&unix.EPOLLOUT != 0 {
		r.handleWritable(sess)
	}
}

func (r *Reactor) acceptUntilBlocked() {
	for {
		fd, _, err := unix.Accept4(r.listenFd, unix.SOCK_NONBLOCK)
		if err != nil {
			if errors.Is(err, unix.EAGAIN) {
				return
			}
			if errors.Is(err, unix.EINTR) {
				continue
			}
			logger.Warn("accept failed", zap.Error(errors.Mark(errors.Wrap(err, "accept4"), ErrAcceptFailed)))
			return
		}

		sess := newSession(fd)
		r.allByFd[fd] = sess
		if err := unix.EpollCtl(r.epfd, unix.EPOLL_CTL_ADD, fd, &unix.EpollEvent{
			Events: unix.EPOLLIN,
			Fd:     int32(fd),
		}); err != nil {
			logger.Warn("epoll_ctl add connection failed", zap.Error(err))
			unix.Close(fd)
			delete(r.allByFd, fd)
		}
	}
}

func (r *Reactor) handleReadable(sess *Session) {
	buf := make([]byte, readChunkSize)
	for {
		n, err := unix.Read(sess.fd, buf)
		if n > 0 {
			sess.inbuf = append(sess.inbuf, buf[:n]...)
			sess.touch()
		}
		if err != nil {
			if errors.Is(err, unix.EINTR) {
				continue
			}
			if errors.Is(err, unix.EAGAIN) {
				break
			}
			r.closeSession(sess)
			return
		}
		if n == 0 {
			r.closeSession(sess)
			return
		}
		if n < len(buf) {
			break
		}
	}
	r.frameLines(sess)
}

// frameLines extracts every complete newline-terminated line currently
// buffered, trims surrounding whitespace, and dispatches non-empty ones.
func (r *Reactor) frameLines(sess *Session) {
	for {
		idx := bytes.IndexByte(sess.inbuf, '\n')
		if idx < 0 {
			return
		}
		line := string(bytes.TrimSpace(sess.inbuf[:idx]))
		sess.inbuf = sess.inbuf[idx+1:]
		if line != "" {
			r.dispatch(sess, line)
		}
		if sess.closed {
			return
		}
	}
}

func (r *Reactor) handleWritable(sess *Session) {
	for len(sess.outbuf) > 0 {
		n, err := unix.Write(sess.fd, sess.outbuf)
		if n > 0 {
			sess.outbuf = sess.outbuf[n:]
		}
		if err != nil {
			if errors.Is(err, unix.EINTR) {
				continue
			}
			if errors.Is(err, unix.EAGAIN) {
				break
			}
			r.closeSession(sess)
			return
		}
		if n == 0 {
			break
		}
	}
}

// syncAllWriteInterest re-arms or disarms EPOLLOUT for every session whose
// pending-write state changed since the last cycle. A single sweep after
// the event batch, rather than per-write-call bookkeeping, because a
// command dispatched on one session (SEND, a trade fill) can enqueue
// output on an entirely different session.
func (r *Reactor) syncAllWriteInterest() {
	for fd, sess := range r.allByFd {
		if sess.closed {
			continue
		}
		wantWrite := sess.hasPendingWrite()
		if wantWrite == sess.wantWrite {
			continue
		}
		events := uint32(unix.EPOLLIN)
		if wantWrite {
			events |= unix.EPOLLOUT
		}
		sess.wantWrite = wantWrite
		if err := unix.EpollCtl(r.epfd, unix.EPOLL_CTL_MOD, fd, &unix.EpollEvent{
			Events: events,
			Fd:     int32(fd),
		}); err != nil {
			logger.Warn("epoll_ctl mod failed", zap.Int("fd", fd), zap.Error(err))
		}
	}
}

func (r *Reactor) sweepIdle() {
	now := time.Now()
	for _, sess := range r.allByFd {
		if sess.closed {
			continue
		}
		if sess.idleSince(now) > r.cfg.IdleTimeout {
			r.closeSession(sess)
		}
	}
}

func (r *Reactor) closeSession(sess *Session) {
	if sess.closed {
		return
	}
	sess.closed = true
	unix.EpollCtl(r.epfd, unix.EPOLL_CTL_DEL, sess.fd, nil)
	unix.Close(sess.fd)
	delete(r.allByFd, sess.fd)
	if sess.authenticated() {
		if cur, ok := r.authenticated[sess.clientID]; ok && cur == sess {
			delete(r.authenticated, sess.clientID)
		}
	}
}

// promote implements the supersede-login policy.
func (r *Reactor) promote(sess *Session, clientID string) {
	if sess.authenticated() && sess.clientID == clientID {
		return
	}
	if sess.authenticated() && sess.clientID != clientID {
		if cur, ok := r.authenticated[sess.clientID]; ok && cur == sess {
			delete(r.authenticated, sess.clientID)
		}
	}
	if cur, ok := r.authenticated[clientID]; ok && cur != sess {
		r.closeSession(cur)
	}
	sess.state = stateAuthenticated
	sess.clientID = clientID
	r.authenticated[clientID] = sess
}

// publish fans every BookLog produced by one placement out to the audit
// ring, the depth projection, and client notifications, in arrival order.
func (r *Reactor) publish(logs []*book.BookLog) {
	for _, log := range logs {
		r.depthBookFor(log.Symbol).Replay(log)
		if r.ring != nil {
			r.ring.Publish(log)
		}
		r.emitNotifications(log)
	}
}

func (r *Reactor) depthBookFor(symbol string) *book.AggregatedBook {
	d, ok := r.depthBooks[symbol]
	if !ok {
		d = book.NewAggregatedBook()
		r.depthBooks[symbol] = d
	}
	return d
}

func (r *Reactor) emitNotifications(log *book.BookLog) {
	if log.Type != book.LogTypeMatch {
		return
	}
	msg := fmt.Sprintf("EXEC %s %d@%d\n", log.Symbol, log.Qty, log.Price)
	r.notifier.NotifyUser(log.ClientID, msg)
	r.notifier.NotifyUser(log.MakerClient, msg)
	r.emitL1(log.Symbol)
}

func (r *Reactor) emitL1(symbol string) {
	ins, ok := r.registry.Get(symbol)
	if !ok {
		return
	}
	s := ins.Stats
	msg := fmt.Sprintf("F1_UPDATE\nLTP:%d\nHIGH:%d\nLOW:%d\nOPEN:%d\nCLOSE:%d\n",
		s.LastTradePrice, s.High, s.Low, s.Open, s.Close)
	r.notifier.NotifyGroup("L1", msg)
}

// Close tears down every live session and the listener itself.
func (r *Reactor) Close() error {
	for _, sess := range r.allByFd {
		r.closeSession(sess)
	}
	unix.Close(r.epfd)
	return unix.Close(r.listenFd)
}
