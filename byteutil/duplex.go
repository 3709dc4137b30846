package byteutil

// Duplex glues two BlockBuffers into one end of an in-memory byte stream.
// NewDuplex returns both ends; what one end writes, the other reads.
type Duplex struct {
	r *BlockBuffer
	w *BlockBuffer
}

func NewDuplex() (*Duplex, *Duplex) {
	ab := NewBlockBuffer()
	ba := NewBlockBuffer()
	return &Duplex{r: ba, w: ab}, &Duplex{r: ab, w: ba}
}

func (d *Duplex) Read(p []byte) (int, error) {
	return d.r.Read(p)
}

func (d *Duplex) Write(p []byte) (int, error) {
	return d.w.Write(p)
}

// Close shuts both directions of this end.
func (d *Duplex) Close() error {
	_ = d.r.Close()
	return d.w.Close()
}
