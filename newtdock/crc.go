package newtdock

import "github.com/sigurn/crc16"

// The frame check sequence is CRC-16/ARC: polynomial 0xA001 applied bit
// by bit, least-significant first, starting from zero. It covers the
// logical header and payload bytes plus the single frame terminator, in
// emission order; stuffing bytes are never accumulated.
var fcsTable = crc16.MakeTable(crc16.CRC16_ARC)

type fcs struct {
	crc uint16
}

func newFCS() fcs {
	return fcs{crc: crc16.Init(fcsTable)}
}

func (f *fcs) writeByte(b byte) {
	f.crc = crc16.Update(f.crc, []byte{b}, fcsTable)
}

func (f *fcs) write(data []byte) {
	f.crc = crc16.Update(f.crc, data, fcsTable)
}

func (f fcs) sum16() uint16 {
	return crc16.Complete(f.crc, fcsTable)
}
