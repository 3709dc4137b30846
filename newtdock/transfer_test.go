package newtdock

import (
	"bytes"
	"io"
	"testing"

	"github.com/xiwh/newtdock/myioutil"
)

// chunkUp mirrors the transfer driver's chunk walk without a link: every
// chunk padChunk'ed, original lengths recorded.
func chunkUp(t *testing.T, data []byte, size int) (padded [][]byte, raw []int) {
	t.Helper()
	_, err := myioutil.CopyChunks(myioutil.WriteFunc(func(chunk []byte) (int, error) {
		padded = append(padded, padChunk(chunk))
		raw = append(raw, len(chunk))
		return len(chunk), nil
	}), bytes.NewReader(data), size)
	if err != io.EOF {
		t.Fatalf("CopyChunks: %v", err)
	}
	return padded, raw
}

func TestChunkingLaws(t *testing.T) {
	lengths := []int{1, 3, 4, 255, 256, 257, 300, 511, 512, 1000, 4096}
	for _, n := range lengths {
		data := make([]byte, n)
		for i := range data {
			data[i] = byte(i * 7)
		}
		padded, raw := chunkUp(t, data, MaxInfoLen)

		wantChunks := (n + MaxInfoLen - 1) / MaxInfoLen
		if len(padded) != wantChunks {
			t.Fatalf("length %d: %d chunks, want %d", n, len(padded), wantChunks)
		}

		var rebuilt []byte
		totalPadded := 0
		for i, chunk := range padded {
			if len(chunk)%4 != 0 {
				t.Fatalf("length %d: chunk %d has length %d, not a multiple of 4", n, i, len(chunk))
			}
			totalPadded += len(chunk)
			rebuilt = append(rebuilt, chunk[:raw[i]]...)
		}
		if totalPadded < n {
			t.Fatalf("length %d: padded total %d below original", n, totalPadded)
		}
		if !bytes.Equal(rebuilt, data) {
			t.Fatalf("length %d: unpadded prefixes do not reconstruct the original", n)
		}
	}
}

func TestChunkingPaddingBoundary(t *testing.T) {
	// 300 bytes: 256 + 44, both already word aligned, no padding added.
	data := bytes.Repeat([]byte{0x41}, 300)
	padded, _ := chunkUp(t, data, MaxInfoLen)
	if len(padded) != 2 || len(padded[0]) != 256 || len(padded[1]) != 44 {
		t.Fatalf("300 bytes: chunk lengths %v, want [256 44]", chunkLens(padded))
	}

	// 257 bytes: the 1-byte tail pads to [data 0 0 0].
	data = bytes.Repeat([]byte{0x41}, 257)
	padded, _ = chunkUp(t, data, MaxInfoLen)
	if len(padded) != 2 || len(padded[1]) != 4 {
		t.Fatalf("257 bytes: chunk lengths %v, want [256 4]", chunkLens(padded))
	}
	if !bytes.Equal(padded[1], []byte{0x41, 0, 0, 0}) {
		t.Fatalf("257 bytes: tail chunk = %x, want 41000000", padded[1])
	}
}

func chunkLens(chunks [][]byte) []int {
	lens := make([]int, len(chunks))
	for i, c := range chunks {
		lens[i] = len(c)
	}
	return lens
}

func TestPadChunkDoesNotAliasInput(t *testing.T) {
	chunk := []byte{1, 2, 3}
	padded := padChunk(chunk)
	padded[0] = 9
	if chunk[0] != 1 {
		t.Fatal("padChunk mutated its input")
	}
	if got := padChunk([]byte{1, 2, 3, 4}); len(got) != 4 {
		t.Fatalf("aligned chunk grew to %d bytes", len(got))
	}
}
