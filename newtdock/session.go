package newtdock

import (
	"context"
	"errors"
	"fmt"
	"io"
	"time"

	"golang.org/x/exp/slices"
)

// Consumer supplies the session's collaborators. Nil callbacks are
// replaced with no-ops.
type Consumer struct {
	// NextPackage returns the next queued package, or nil once the queue
	// is exhausted.
	NextPackage func() *Package
	// OnProgress receives the fraction of the current package sent, after
	// each acknowledged chunk.
	OnProgress func(fraction float64)
	// OnLog receives human-readable session log lines.
	OnLog func(msg string)
}

// Option configures a Session.
type Option func(*Session)

// WithReadTimeout bounds every wait for a peer frame after the initial
// connection request. Zero disables the bound.
func WithReadTimeout(d time.Duration) Option {
	return func(s *Session) { s.timeout = d }
}

// WithAckRetries resends an unacknowledged frame up to n times before the
// session fails. The default of zero fails on the first timeout.
func WithAckRetries(n int) Option {
	return func(s *Session) { s.retries = n }
}

// WithChunkSize overrides the package chunk size. Mostly useful in tests;
// real docks expect MaxInfoLen. Values below one are ignored.
func WithChunkSize(n int) Option {
	return func(s *Session) {
		if n > 0 {
			s.chunkSize = n
		}
	}
}

// Session drives one docking conversation: handshake, package uploads,
// disconnect. It owns the sequence counter and the package queue; create a
// fresh Session per connection.
type Session struct {
	consumer  Consumer
	timeout   time.Duration
	retries   int
	chunkSize int

	state State
	seq   byte
	link  *link
	owner string
	sent  int
}

// Result summarizes a completed session.
type Result struct {
	// Owner is the device owner's name, empty when it could not be
	// decoded.
	Owner string
	// PackagesSent counts fully acknowledged package uploads.
	PackagesSent int
}

func New(consumer Consumer, opts ...Option) *Session {
	if consumer.NextPackage == nil {
		consumer.NextPackage = func() *Package { return nil }
	}
	if consumer.OnProgress == nil {
		consumer.OnProgress = func(float64) {}
	}
	if consumer.OnLog == nil {
		consumer.OnLog = func(string) {}
	}
	s := &Session{
		consumer:  consumer,
		timeout:   DefaultReadTimeout,
		chunkSize: MaxInfoLen,
		state:     StateAwaitingPeerRequest,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// State reports where the session currently is in the conversation.
func (s *Session) State() State {
	return s.state
}

func (s *Session) logf(format string, a ...any) {
	s.consumer.OnLog(fmt.Sprintf(format, a...))
}

// Run performs a complete session over stream: wait for the device,
// handshake, upload every queued package, disconnect. The stream is closed
// before Run returns, success or failure. A failed session is never
// retried; the device falls back to waiting for a fresh connection.
func (s *Session) Run(ctx context.Context, stream io.ReadWriteCloser) (Result, error) {
	s.link = newLink(stream, s.consumer.OnLog)
	defer func() {
		s.link.close()
		_ = stream.Close()
	}()

	for s.state != StateClosed {
		if err := s.step(ctx); err != nil {
			s.state = StateFailed
			s.logf("session failed: %v", err)
			return Result{Owner: s.owner, PackagesSent: s.sent}, fmt.Errorf("dock session: %w", err)
		}
	}
	return Result{Owner: s.owner, PackagesSent: s.sent}, nil
}

// step runs the transition out of the current state.
func (s *Session) step(ctx context.Context) error {
	switch s.state {
	case StateAwaitingPeerRequest:
		return s.awaitPeerRequest(ctx)
	case StateNegotiatingCapabilities:
		return s.negotiate(ctx)
	case StateAwaitingSessionStart:
		return s.startSession(ctx)
	case StateExchangingIdentity:
		return s.exchangeIdentity(ctx)
	case StateAwaitingTransferReady:
		return s.awaitTransferReady(ctx)
	case StateTransferringPackages:
		return s.transferPackages(ctx)
	case StateDisconnecting:
		return s.disconnect()
	default:
		return fmt.Errorf("no transition out of state %s", s.state)
	}
}

func (s *Session) awaitPeerRequest(ctx context.Context) error {
	s.logf("waiting for device connection request")
	if err := s.link.waitRequest(ctx); err != nil {
		return err
	}
	s.state = StateNegotiatingCapabilities
	return nil
}

func (s *Session) negotiate(ctx context.Context) error {
	s.logf("connected, negotiating link parameters")
	if err := s.ackedExchange(ctx, lrFrame, nil); err != nil {
		return err
	}
	s.state = StateAwaitingSessionStart
	return nil
}

func (s *Session) startSession(ctx context.Context) error {
	if _, err := s.link.waitTransfer(ctx, s.timeout); err != nil {
		return err
	}
	s.logf("starting docking session")
	if err := s.sendCommand(ctx, cmdDock); err != nil {
		return err
	}
	s.state = StateExchangingIdentity
	return nil
}

func (s *Session) exchangeIdentity(ctx context.Context) error {
	data, err := s.link.waitTransfer(ctx, s.timeout)
	if err != nil {
		return err
	}
	name, err := decodeOwnerName(data)
	if err != nil {
		// Best effort: a device without a readable owner name docks all
		// the same.
		s.logf("could not decode owner name: %v", err)
	} else if name != "" {
		s.owner = name
		s.logf("device owner: %s", name)
	}
	s.state = StateAwaitingTransferReady
	return nil
}

func (s *Session) awaitTransferReady(ctx context.Context) error {
	if err := s.sendCommand(ctx, cmdSetTimeout); err != nil {
		return err
	}
	if _, err := s.link.waitTransfer(ctx, s.timeout); err != nil {
		return err
	}
	s.state = StateTransferringPackages
	return nil
}

func (s *Session) transferPackages(ctx context.Context) error {
	for {
		pkg := s.consumer.NextPackage()
		if pkg == nil {
			break
		}
		s.logf("uploading %s (%d bytes)", pkg.Name, len(pkg.Data))
		if err := s.transfer(ctx, pkg); err != nil {
			return fmt.Errorf("uploading %s: %w", pkg.Name, err)
		}
		s.sent++
		s.logf("finished %s", pkg.Name)
	}
	s.state = StateDisconnecting
	return nil
}

func (s *Session) disconnect() error {
	// No acknowledgement is awaited for the disconnect command.
	if err := s.link.send(ltHead(s.seq), cmdDisconnect); err != nil {
		return err
	}
	s.logf("session finished")
	s.state = StateClosed
	return nil
}

// sendCommand transmits info as a transfer frame tagged with the current
// sequence number, waits for the matching acknowledgement and advances the
// counter.
func (s *Session) sendCommand(ctx context.Context, info []byte) error {
	return s.ackedExchange(ctx, ltHead(s.seq), info)
}

// ackedExchange is the single wait-for-acknowledgement primitive every
// handshake step and every chunk send goes through. On ack timeout the
// frame is resent up to the configured retry count.
func (s *Session) ackedExchange(ctx context.Context, head, info []byte) error {
	for attempt := 0; ; attempt++ {
		if err := s.link.send(head, info); err != nil {
			return err
		}
		err := s.link.waitAck(ctx, s.seq, s.timeout)
		if err == nil {
			s.seq++ // wraps with the 8-bit sequence field
			return nil
		}
		if !errors.Is(err, ErrTimeout) || attempt >= s.retries {
			return err
		}
		s.logf("no acknowledgement for sequence %d, resending", s.seq)
	}
}

// decodeOwnerName extracts the owner name the identity frame carries at a
// fixed offset: double-byte characters, high byte first, terminated by a
// zero character.
func decodeOwnerName(data []byte) (string, error) {
	if len(data) <= nameOffset {
		return "", errors.New("frame too short to carry a name")
	}
	raw := data[nameOffset:]
	chars := make([]byte, 0, len(raw)/2)
	for i := 0; i < len(raw); i += 2 {
		chars = append(chars, raw[i])
	}
	end := slices.Index(chars, 0)
	if end == -1 {
		return "", errors.New("name is not zero-terminated")
	}
	return string(chars[:end]), nil
}
