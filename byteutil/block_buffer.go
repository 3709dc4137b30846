package byteutil

import (
	"bytes"
	"io"
	"sync"
)

// BlockBuffer is an in-memory byte buffer whose Read blocks until data has
// been written or the buffer is closed. Unlike io.Pipe, writes complete
// without waiting for a reader, which is what a stop-and-wait peer needs:
// it can queue its reply before the other side gets around to reading.
type BlockBuffer struct {
	mu     sync.Mutex
	buf    bytes.Buffer
	wake   chan struct{}
	closed bool
}

func NewBlockBuffer() *BlockBuffer {
	return &BlockBuffer{wake: make(chan struct{}, 1)}
}

func (t *BlockBuffer) Write(p []byte) (int, error) {
	t.mu.Lock()
	if t.closed {
		t.mu.Unlock()
		return 0, io.ErrClosedPipe
	}
	n, _ := t.buf.Write(p)
	t.mu.Unlock()
	t.signal()
	return n, nil
}

func (t *BlockBuffer) Read(p []byte) (int, error) {
	for {
		t.mu.Lock()
		n, _ := t.buf.Read(p)
		closed := t.closed
		t.mu.Unlock()
		if n > 0 {
			return n, nil
		}
		if closed {
			return 0, io.EOF
		}
		<-t.wake
	}
}

// Close ends the stream. Pending data stays readable; Read returns io.EOF
// once the buffer drains.
func (t *BlockBuffer) Close() error {
	t.mu.Lock()
	t.closed = true
	t.mu.Unlock()
	t.signal()
	return nil
}

func (t *BlockBuffer) signal() {
	select {
	case t.wake <- struct{}{}:
	default:
	}
}
