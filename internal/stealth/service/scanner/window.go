package scanner

import (
	"errors"
	"fmt"
)

var (
	// ErrInvalidRange reports a scan range whose start is after its end.
	ErrInvalidRange = errors.New("invalid block range")
	// ErrInvalidChunkSize reports a zero window size.
	ErrInvalidChunkSize = errors.New("chunk size must be positive")
)

// Window is an inclusive block range fetched in a single log query.
type Window struct {
	From uint64
	To   uint64
}

// Blocks returns the number of blocks in the window.
func (w Window) Blocks() uint64 {
	return w.To - w.From + 1
}

// maxPreallocWindows bounds the capacity reserved up front by Windows.
const maxPreallocWindows = 1024

// Windows partitions [from, to] into contiguous windows of at most size blocks.
func Windows(from, to, size uint64) ([]Window, error) {
	capacity := uint64(maxPreallocWindows)
	if size > 0 && from <= to && (to-from)/size < capacity {
		capacity = (to-from)/size + 1
	}
	windows := make([]Window, 0, capacity)
	err := EachWindow(from, to, size, func(w Window) error {
		windows = append(windows, w)
		return nil
	})
	if err != nil {
		return nil, err
	}
	return windows, nil
}

// EachWindow calls fn for each window of Windows(from, to, size) in order
// without materializing them. It stops at the first error fn returns.
func EachWindow(from, to, size uint64, fn func(Window) error) error {
	if err := validateRange(from, to, size); err != nil {
		return err
	}
	start := from
	for {
		end := to
		if to-start >= size {
			end = start + size - 1
		}
		if err := fn(Window{From: start, To: end}); err != nil {
			return err
		}
		if end == to {
			return nil
		}
		start = end + 1
	}
}

func validateRange(from, to, size uint64) error {
	if size == 0 {
		return ErrInvalidChunkSize
	}
	if from > to {
		return fmt.Errorf("%w: %d > %d", ErrInvalidRange, from, to)
	}
	return nil
}
