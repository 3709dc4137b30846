package myioutil

import "io"

// WriteFunc adapts a function to io.Writer.
type WriteFunc func(p []byte) (n int, err error)

func (f WriteFunc) Write(p []byte) (n int, err error) {
	return f(p)
}

// CopyChunks copies src to w in chunks of at most size bytes, issuing one
// Write call per chunk so the writer sees each chunk whole. Only the final
// chunk may be short. Returns io.EOF once src is cleanly exhausted.
func CopyChunks(w io.Writer, src io.Reader, size int) (int64, error) {
	var total int64 = 0
	buf := make([]byte, size)
	for {
		n, rerr := io.ReadFull(src, buf)
		if n > 0 {
			wn, werr := w.Write(buf[:n])
			total += int64(wn)
			if werr != nil {
				return total, werr
			}
			if wn < n {
				return total, io.ErrShortWrite
			}
		}
		if rerr == io.EOF || rerr == io.ErrUnexpectedEOF {
			return total, io.EOF
		}
		if rerr != nil {
			return total, rerr
		}
	}
}
