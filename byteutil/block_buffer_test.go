package byteutil

import (
	"bytes"
	"io"
	"testing"
	"time"
)

func TestBlockBufferReadBlocksUntilWrite(t *testing.T) {
	buf := NewBlockBuffer()
	go func() {
		time.Sleep(10 * time.Millisecond)
		_, _ = buf.Write([]byte("hello"))
	}()

	p := make([]byte, 8)
	n, err := buf.Read(p)
	if err != nil {
		t.Fatalf("Read: %v", err)
	}
	if string(p[:n]) != "hello" {
		t.Fatalf("read %q", p[:n])
	}
}

func TestBlockBufferDrainsThenEOF(t *testing.T) {
	buf := NewBlockBuffer()
	_, _ = buf.Write([]byte("abc"))
	_, _ = buf.Write([]byte("def"))
	_ = buf.Close()

	got, err := io.ReadAll(buf)
	if err != nil {
		t.Fatalf("ReadAll: %v", err)
	}
	if !bytes.Equal(got, []byte("abcdef")) {
		t.Fatalf("read %q", got)
	}
	if _, err := buf.Write([]byte("x")); err != io.ErrClosedPipe {
		t.Fatalf("write after close: err = %v", err)
	}
}

func TestBlockBufferCloseUnblocksReader(t *testing.T) {
	buf := NewBlockBuffer()
	done := make(chan error, 1)
	go func() {
		_, err := buf.Read(make([]byte, 1))
		done <- err
	}()

	time.Sleep(10 * time.Millisecond)
	_ = buf.Close()
	select {
	case err := <-done:
		if err != io.EOF {
			t.Fatalf("err = %v, want io.EOF", err)
		}
	case <-time.After(time.Second):
		t.Fatal("reader still blocked after Close")
	}
}

func TestDuplexRoundTrip(t *testing.T) {
	a, b := NewDuplex()
	if _, err := a.Write([]byte("ping")); err != nil {
		t.Fatal(err)
	}
	if _, err := b.Write([]byte("pong")); err != nil {
		t.Fatal(err)
	}

	p := make([]byte, 4)
	if _, err := io.ReadFull(b, p); err != nil || string(p) != "ping" {
		t.Fatalf("b read %q, err %v", p, err)
	}
	if _, err := io.ReadFull(a, p); err != nil || string(p) != "pong" {
		t.Fatalf("a read %q, err %v", p, err)
	}

	_ = a.Close()
	if _, err := b.Read(p); err != io.EOF {
		t.Fatalf("read from closed peer: err = %v", err)
	}
	if _, err := b.Write([]byte("x")); err != io.ErrClosedPipe {
		t.Fatalf("write to closed peer: err = %v", err)
	}
}
