package newtdock

import "errors"

var (
	// ErrChecksumMismatch reports a frame whose trailing FCS does not
	// match the received bytes. The frame is discarded and the decoder
	// resynchronizes on the next start marker.
	ErrChecksumMismatch = errors.New("newtdock: frame checksum mismatch")

	// ErrFrameIncomplete reports a stream that ended in the middle of a
	// frame.
	ErrFrameIncomplete = errors.New("newtdock: stream ended mid-frame")

	// ErrFrameTooLong reports an inbound frame exceeding the sanity cap.
	// Treated like corruption: discard and resynchronize.
	ErrFrameTooLong = errors.New("newtdock: frame exceeds maximum length")

	// ErrStreamClosed reports that the underlying stream closed. Fatal to
	// the session.
	ErrStreamClosed = errors.New("newtdock: stream closed")

	// ErrTimeout reports that the peer did not answer within the
	// configured read timeout.
	ErrTimeout = errors.New("newtdock: timed out waiting for peer")
)
