// Package failure defines the error taxonomy shared by the prober, planner,
// encoder and batch sequencer. Callers wrap one of the sentinel errors with
// fmt.Errorf("...: %w", ...) and classify with KindOf.
package failure

import (
	"context"
	"errors"
)

// Kind classifies why a file could not be compressed
type Kind int

const (
	KindNone Kind = iota
	KindNotFound
	KindUnsupportedFormat
	KindProbeError
	KindTargetTooLarge
	KindTargetTooSmall
	KindInvalidInput
	KindEncoderNotFound
	KindEncodeFailed
	KindDiskError
	KindCancelled
)

var (
	ErrNotFound          = errors.New("file not found")
	ErrUnsupportedFormat = errors.New("unsupported input format")
	ErrProbeFailed       = errors.New("could not read media duration")
	ErrTargetTooLarge    = errors.New("target size is not smaller than the current size")
	ErrTargetTooSmall    = errors.New("target size leaves no room for video")
	ErrInvalidInput      = errors.New("invalid input")
	ErrEncoderNotFound   = errors.New("encoder binary not found")
	ErrEncodeFailed      = errors.New("encode failed")
	ErrDiskFull          = errors.New("disk error")
	ErrCancelled         = errors.New("cancelled")
)

// kindTable is checked in order; the first sentinel matched wins.
var kindTable = []struct {
	err  error
	kind Kind
}{
	{ErrEncoderNotFound, KindEncoderNotFound},
	{ErrCancelled, KindCancelled},
	{ErrNotFound, KindNotFound},
	{ErrUnsupportedFormat, KindUnsupportedFormat},
	{ErrProbeFailed, KindProbeError},
	{ErrTargetTooLarge, KindTargetTooLarge},
	{ErrTargetTooSmall, KindTargetTooSmall},
	{ErrInvalidInput, KindInvalidInput},
	{ErrDiskFull, KindDiskError},
	{ErrEncodeFailed, KindEncodeFailed},
}

// KindOf returns the Kind of err. Context cancellation counts as
// KindCancelled; any other unclassified error is reported as
// KindEncodeFailed so no failure ends up without a reason.
func KindOf(err error) Kind {
	if err == nil {
		return KindNone
	}
	for _, k := range kindTable {
		if errors.Is(err, k.err) {
			return k.kind
		}
	}
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return KindCancelled
	}
	return KindEncodeFailed
}

// Fatal reports whether a failure of this kind must abort the whole batch
func Fatal(k Kind) bool {
	return k == KindEncoderNotFound
}

// Planning reports whether k happened before any encoding started. These
// are recoverable locally: the caller may re-prompt or skip the file.
func Planning(k Kind) bool {
	switch k {
	case KindNotFound, KindUnsupportedFormat, KindProbeError,
		KindTargetTooLarge, KindTargetTooSmall, KindInvalidInput:
		return true
	}
	return false
}

func (k Kind) String() string {
	switch k {
	case KindNone:
		return "none"
	case KindNotFound:
		return "NotFound"
	case KindUnsupportedFormat:
		return "UnsupportedFormat"
	case KindProbeError:
		return "ProbeError"
	case KindTargetTooLarge:
		return "TargetTooLarge"
	case KindTargetTooSmall:
		return "TargetTooSmall"
	case KindInvalidInput:
		return "InvalidInput"
	case KindEncoderNotFound:
		return "EncoderNotFound"
	case KindEncodeFailed:
		return "EncodeFailed"
	case KindDiskError:
		return "DiskError"
	case KindCancelled:
		return "Cancelled"
	}
	return "unknown"
}
