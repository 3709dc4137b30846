package newtdock

import (
	"fmt"
	"time"
)

// FrameTag is the frame-type byte at offset 1 of a logical frame.
type FrameTag byte

const (
	// TagRequest marks the connection request the device sends when the
	// user taps "Connect over serial".
	TagRequest FrameTag = 0x01
	// TagTransfer marks a sequenced payload (LT) frame. Inbound transfer
	// frames double as the dock's keep-alives and must be acknowledged
	// promptly even while another wait is in progress.
	TagTransfer FrameTag = 0x04
	// TagAck marks an acknowledgement (LA) frame carrying the sequence
	// number it confirms.
	TagAck FrameTag = 0x05
)

func (t FrameTag) String() string {
	switch t {
	case TagRequest:
		return "request"
	case TagTransfer:
		return "transfer"
	case TagAck:
		return "acknowledgement"
	}
	return fmt.Sprintf("0x%02x", byte(t))
}

const (
	synByte byte = 0x16
	stxByte byte = 0x02
	escByte byte = 0x10
	endByte byte = 0x03
)

var (
	frameStart = []byte{synByte, escByte, stxByte}
	frameEnd   = []byte{escByte, endByte}
)

// lrFrame is the fixed capability-negotiation (LR) frame announcing the
// single protocol parameter set this implementation speaks. Sent verbatim.
var lrFrame = []byte{
	0x17, 0x01, 0x02, 0x01, 0x06, 0x01, 0x00, 0x00,
	0x00, 0x00, 0xff, 0x02, 0x01, 0x02, 0x03, 0x01,
	0x01, 0x04, 0x02, 0x40, 0x00, 0x08, 0x01, 0x03,
}

// Dock command payloads. Each is an ASCII command name followed by 4-byte
// big-endian length fields.
var (
	cmdDock        = []byte("newtdockdock\x00\x00\x00\x04\x00\x00\x00\x04")
	cmdSetTimeout  = []byte("newtdockstim\x00\x00\x00\x04\x00\x00\x00\x1e")
	cmdLoadPackage = []byte("newtdocklpkg")
	cmdDisconnect  = []byte("newtdockdisc\x00\x00\x00\x00")
)

const (
	// MaxInfoLen is the largest payload the dock accepts in one frame.
	// Package data is chunked to this size.
	MaxInfoLen = 256

	// DefaultReadTimeout bounds every wait for a peer frame after the
	// initial connection request.
	DefaultReadTimeout = 30 * time.Second

	// maxFrameData caps the logical size of an inbound frame. Anything
	// larger is garbage; the frame is dropped and the scan restarts.
	maxFrameData = 512

	// nameOffset is where the owner name starts inside the identity frame.
	nameOffset = 24
)

// State identifies where a session is in the docking conversation.
type State uint8

const (
	StateAwaitingPeerRequest State = iota
	StateNegotiatingCapabilities
	StateAwaitingSessionStart
	StateExchangingIdentity
	StateAwaitingTransferReady
	StateTransferringPackages
	StateDisconnecting
	StateClosed
	StateFailed
)

var stateNames = map[State]string{
	StateAwaitingPeerRequest:     "AwaitingPeerRequest",
	StateNegotiatingCapabilities: "NegotiatingCapabilities",
	StateAwaitingSessionStart:    "AwaitingSessionStart",
	StateExchangingIdentity:      "ExchangingIdentity",
	StateAwaitingTransferReady:   "AwaitingTransferReady",
	StateTransferringPackages:    "TransferringPackages",
	StateDisconnecting:           "Disconnecting",
	StateClosed:                  "Closed",
	StateFailed:                  "Failed",
}

func (s State) String() string {
	if name, ok := stateNames[s]; ok {
		return name
	}
	return "Unknown"
}
