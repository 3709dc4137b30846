package newtdock

import (
	"bufio"
	"fmt"
	"io"
)

// A frame travels as: start marker, stuffed header bytes, stuffed payload
// bytes, end marker, then the FCS low byte first. Any logical 0x10 inside
// header or payload is sent doubled; the end marker's own 0x10 is the
// literal delimiter. Decoded frames keep header and payload as one logical
// byte sequence, exactly as the peer framed them.

func ltHead(seq byte) []byte {
	return []byte{0x02, byte(TagTransfer), seq}
}

func laHead(seq byte) []byte {
	return []byte{0x03, byte(TagAck), seq, 0x01}
}

func frameTag(data []byte) FrameTag {
	if len(data) < 2 {
		return 0
	}
	return FrameTag(data[1])
}

func frameSeq(data []byte) byte {
	if len(data) < 3 {
		return 0
	}
	return data[2]
}

// marshalFrame serializes head and an optional info payload into one wire
// frame.
func marshalFrame(head, info []byte) []byte {
	buf := make([]byte, 0, len(frameStart)+2*(len(head)+len(info))+len(frameEnd)+2)
	buf = append(buf, frameStart...)
	sum := newFCS()
	stuff := func(data []byte) {
		for _, b := range data {
			sum.writeByte(b)
			buf = append(buf, b)
			if b == escByte {
				buf = append(buf, escByte)
			}
		}
	}
	stuff(head)
	stuff(info)
	buf = append(buf, frameEnd...)
	sum.writeByte(endByte)
	crc := sum.sum16()
	buf = append(buf, byte(crc&0xff), byte(crc>>8))
	return buf
}

// readFrame blocks until one complete, verified frame arrives on r and
// returns its logical bytes. Noise before the start marker is discarded,
// which is what lets the decoder resynchronize after corruption.
func readFrame(r *bufio.Reader) ([]byte, error) {
	if err := scanStart(r); err != nil {
		return nil, err
	}

	data := make([]byte, 0, 64)
	sum := newFCS()
	escaped := false
	for {
		b, err := r.ReadByte()
		if err != nil {
			return nil, incomplete(err)
		}
		if escaped {
			switch b {
			case escByte:
				// Stuffed literal 0x10, accumulated once.
				escaped = false
				sum.writeByte(escByte)
				data = append(data, escByte)
			case endByte:
				sum.writeByte(endByte)
				return verifyFCS(r, data, sum)
			default:
				// Unresolved escape: drop the byte and keep scanning
				// for the terminator.
			}
			continue
		}
		if b == escByte {
			escaped = true
			continue
		}
		sum.writeByte(b)
		data = append(data, b)
		if len(data) > maxFrameData {
			return nil, ErrFrameTooLong
		}
	}
}

// scanStart consumes bytes until the 3-byte start marker has been seen.
func scanStart(r *bufio.Reader) error {
	state := 0
	for state < 3 {
		b, err := r.ReadByte()
		if err != nil {
			if state == 0 {
				return streamErr(err)
			}
			return incomplete(err)
		}
		switch {
		case state == 0 && b == synByte:
			state = 1
		case state == 1 && b == escByte:
			state = 2
		case state == 2 && b == stxByte:
			state = 3
		case b == synByte:
			// The marker may begin inside a run of noise.
			state = 1
		default:
			state = 0
		}
	}
	return nil
}

func verifyFCS(r *bufio.Reader, data []byte, sum fcs) ([]byte, error) {
	var trailer [2]byte
	if _, err := io.ReadFull(r, trailer[:]); err != nil {
		return nil, incomplete(err)
	}
	got := uint16(trailer[0]) | uint16(trailer[1])<<8
	if want := sum.sum16(); got != want {
		return nil, fmt.Errorf("%w: got %#04x, computed %#04x", ErrChecksumMismatch, got, want)
	}
	return data, nil
}

func incomplete(err error) error {
	if err == io.EOF || err == io.ErrUnexpectedEOF {
		return ErrFrameIncomplete
	}
	return err
}

func streamErr(err error) error {
	if err == io.EOF {
		return ErrStreamClosed
	}
	return err
}
