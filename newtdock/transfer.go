package newtdock

import (
	"bytes"
	"context"
	"encoding/binary"
	"fmt"
	"io"

	"github.com/xiwh/newtdock/myioutil"
)

// transfer uploads one package: announce its total length, then stream the
// bytes as acknowledged chunks of at most chunkSize, each zero-padded to a
// word boundary.
func (s *Session) transfer(ctx context.Context, pkg *Package) error {
	total := len(pkg.Data)
	begin := make([]byte, 0, len(cmdLoadPackage)+4)
	begin = append(begin, cmdLoadPackage...)
	begin = binary.BigEndian.AppendUint32(begin, uint32(total))
	if err := s.sendCommand(ctx, begin); err != nil {
		return err
	}

	sent := 0
	_, err := myioutil.CopyChunks(myioutil.WriteFunc(func(chunk []byte) (int, error) {
		if err := s.sendCommand(ctx, padChunk(chunk)); err != nil {
			return 0, err
		}
		sent += len(chunk)
		s.consumer.OnProgress(float64(sent) / float64(total))
		return len(chunk), nil
	}), bytes.NewReader(pkg.Data), s.chunkSize)
	if err != nil && err != io.EOF {
		return err
	}
	if sent != total {
		return fmt.Errorf("sent %d of %d bytes", sent, total)
	}
	return nil
}

// padChunk right-pads a chunk with zero bytes to a multiple of 4. The
// receiver stores package data word by word; the pad bytes are framing
// only, never package content, and are only ever appended.
func padChunk(chunk []byte) []byte {
	rem := len(chunk) % 4
	if rem == 0 {
		return chunk
	}
	padded := make([]byte, len(chunk)+4-rem)
	copy(padded, chunk)
	return padded
}
