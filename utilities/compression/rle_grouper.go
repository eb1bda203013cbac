package compression

import (
	"bufio"
	"errors"
	"io"
	"math"
)

// Run represents a single run of a particular byte value.
type Run struct {
	// Byte is the byte value for this run.
	Byte byte
	// RunLength gives the number of times the byte occurs in the run.
	//
	// A valid run will always have this be 1 or greater. A value less than 1
	// indicates either EOF was encountered, or an error occurred.
	RunLength int
}

// NoRun is a sentinel value returned by [RunGrouper.NextRun] if an
// error occurred, or EOF was encountered.
var NoRun = Run{0, 0}

// An RunGrouper wraps an [io.Reader] and returns a [Run] upon reads.
//
// This functions much like the `uniq` command line utility.
type RunGrouper struct {
	rd io.ByteScanner
}

// NewRunGrouper constructs a [RunGrouper] from an [io.Reader].
func NewRunGrouper(rd io.Reader) RunGrouper {
	return NewRunGrouperFromScanner(bufio.NewReader(rd))
}

// NewRunGrouperFromScanner constructs a [RunGrouper] from an [io.ByteScanner].
func NewRunGrouperFromScanner(rd io.ByteScanner) RunGrouper {
	return RunGrouper{rd: rd}
}

// NextRun returns a [Run] for the next byte or run of byte values in the
// stream. The length of a valid run is guaranteed to be in the range [1, math.MaxInt].
// A valid run will never have length 0.
//
// The returned error behaves identically to [io.Reader.Read], namely that if
// the returned run length is non-zero, the error will either be nil or [io.EOF].
// If it's zero, the error is either [io.EOF] or another (non-nil) error.
func (grouper RunGrouper) NextRun() (Run, error) {
	firstByte, err := grouper.rd.ReadByte()
	// Bail if any error occurred, including EOF.
	if err != nil {
		return NoRun, err
	}

	runLength := 1
	for ; runLength < math.MaxInt; runLength++ {
		currentByte, err := grouper.rd.ReadByte()

		// If we get EOF as the error from ReadByte() then that means that we
		// reached the end of the file on the previous read. On this read,
		// currentByte is invalid.
		if err != nil {
			if errors.Is(err, io.EOF) {
				// Hit EOF. If we get here then the previous byte we read was part
				// of the current run, so we don't unread the last byte we saw.
				return Run{Byte: firstByte, RunLength: runLength}, io.EOF
			}
			// Some other error we weren't expecting occurred.
			return NoRun, err
		}

		if currentByte != firstByte {
			// Hit a different byte, back up and return.
			grouper.rd.UnreadByte()
			return Run{Byte: firstByte, RunLength: runLength}, nil
		}
	}

	// In the extremely unlikely event we hit the maximum size for a signed int
	// before the end of the run, we return early to avoid overflow.
	return Run{Byte: firstByte, RunLength: runLength}, nil
}
