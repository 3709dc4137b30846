package newtdock

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"time"
)

// link owns the two halves of the wire: a reader goroutine that decodes
// frames into a channel, and the send side used directly by the session.
// The protocol is half duplex, so only one exchange is ever outstanding;
// the goroutine exists to make waits cancellable and timeout-bound.
type link struct {
	w      io.Writer
	frames chan []byte
	done   chan struct{}
	quit   chan struct{}
	err    error // read-loop exit cause, valid once done is closed
	log    func(string)
}

func newLink(rw io.ReadWriter, log func(string)) *link {
	l := &link{
		w:      rw,
		frames: make(chan []byte, 4),
		done:   make(chan struct{}),
		quit:   make(chan struct{}),
		log:    log,
	}
	go l.readLoop(bufio.NewReader(rw))
	return l
}

func (l *link) readLoop(r *bufio.Reader) {
	defer close(l.done)
	for {
		data, err := readFrame(r)
		switch {
		case err == nil:
			select {
			case l.frames <- data:
			case <-l.quit:
				l.err = ErrStreamClosed
				return
			}
		case errors.Is(err, ErrChecksumMismatch), errors.Is(err, ErrFrameTooLong):
			// Corrupt frame: drop it, the scan resynchronizes on the
			// next start marker.
			l.log("dropping corrupt frame: " + err.Error())
		default:
			l.err = err
			return
		}
	}
}

// close releases the reader goroutine. The session closes the stream right
// after, which unblocks any read in progress.
func (l *link) close() {
	close(l.quit)
}

// next returns the next verified frame. A zero timeout waits until the
// frame arrives, the stream fails, or ctx is cancelled.
func (l *link) next(ctx context.Context, timeout time.Duration) ([]byte, error) {
	var expire <-chan time.Time
	if timeout > 0 {
		t := time.NewTimer(timeout)
		defer t.Stop()
		expire = t.C
	}
	select {
	case data := <-l.frames:
		return data, nil
	case <-l.done:
		// Frames decoded before the stream failed still count.
		select {
		case data := <-l.frames:
			return data, nil
		default:
		}
		if l.err != nil {
			return nil, l.err
		}
		return nil, ErrStreamClosed
	case <-expire:
		return nil, ErrTimeout
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

func (l *link) send(head, info []byte) error {
	_, err := l.w.Write(marshalFrame(head, info))
	return err
}

func (l *link) sendLA(seq byte) error {
	return l.send(laHead(seq), nil)
}

// waitRequest blocks until the device announces itself with a connection
// request frame. Frames of any other type are logged and discarded. This
// wait has no timeout; cancel ctx to give up.
func (l *link) waitRequest(ctx context.Context) error {
	for {
		data, err := l.next(ctx, 0)
		if err != nil {
			return err
		}
		if frameTag(data) == TagRequest {
			return nil
		}
		l.log(fmt.Sprintf("ignoring %s frame while waiting for connection request", frameTag(data)))
	}
}

// waitAck blocks until the peer acknowledges sequence number seq. Transfer
// frames arriving in the meantime are the dock's keep-alives and are
// acknowledged immediately before the wait continues. Anything else is
// logged and ignored.
func (l *link) waitAck(ctx context.Context, seq byte, timeout time.Duration) error {
	for {
		data, err := l.next(ctx, timeout)
		if err != nil {
			return err
		}
		switch frameTag(data) {
		case TagTransfer:
			if err := l.sendLA(frameSeq(data)); err != nil {
				return err
			}
		case TagAck:
			if frameSeq(data) == seq {
				return nil
			}
			l.log(fmt.Sprintf("ignoring acknowledgement for sequence %d, want %d", frameSeq(data), seq))
		default:
			l.log(fmt.Sprintf("ignoring %s frame while waiting for acknowledgement", frameTag(data)))
		}
	}
}

// waitTransfer blocks until a transfer frame arrives, acknowledges it and
// returns its logical bytes.
func (l *link) waitTransfer(ctx context.Context, timeout time.Duration) ([]byte, error) {
	for {
		data, err := l.next(ctx, timeout)
		if err != nil {
			return nil, err
		}
		if frameTag(data) == TagTransfer {
			if err := l.sendLA(frameSeq(data)); err != nil {
				return nil, err
			}
			return data, nil
		}
		l.log(fmt.Sprintf("ignoring %s frame while waiting for dock data", frameTag(data)))
	}
}
