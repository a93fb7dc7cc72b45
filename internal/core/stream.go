package core

import (
	"errors"
	"io"
	"iter"
	"strings"
	"sync"
	"sync/atomic"
)

// ErrStreamConsumed is yielded when a TextStream is ranged over more than once.
var ErrStreamConsumed = errors.New("stream already consumed")

// TextStream is a lazy, finite, non-restartable sequence of reply fragments.
//
// Callers must either range over Chunks (breaking early is fine) or call Close;
// the upstream connection is held until one of those happens.
type TextStream struct {
	seq    iter.Seq2[string, error]
	closer io.Closer

	started   atomic.Bool
	closeOnce sync.Once
	closeErr  error
}

// NewTextStream wraps an iterator and the resource backing it.
// closer may be nil when nothing needs releasing.
func NewTextStream(seq iter.Seq2[string, error], closer io.Closer) *TextStream {
	return &TextStream{seq: seq, closer: closer}
}

// NewStaticStream returns a stream that yields the given fragments in order.
func NewStaticStream(fragments ...string) *TextStream {
	return NewTextStream(func(yield func(string, error) bool) {
		for _, f := range fragments {
			if !yield(f, nil) {
				return
			}
		}
	}, nil)
}

// Chunks returns the fragment iterator. The stream is closed when the loop
// finishes, breaks, or the underlying iterator reports an error.
func (s *TextStream) Chunks() iter.Seq2[string, error] {
	return func(yield func(string, error) bool) {
		if !s.started.CompareAndSwap(false, true) {
			yield("", ErrStreamConsumed)
			return
		}
		defer s.Close()
		for chunk, err := range s.seq {
			if !yield(chunk, err) || err != nil {
				return
			}
		}
	}
}

// Collect drains the stream and returns the concatenated text.
func (s *TextStream) Collect() (string, error) {
	var b strings.Builder
	for chunk, err := range s.Chunks() {
		if err != nil {
			return b.String(), err
		}
		b.WriteString(chunk)
	}
	return b.String(), nil
}

// Close releases the upstream resource. Safe to call multiple times.
func (s *TextStream) Close() error {
	s.closeOnce.Do(func() {
		if s.closer != nil {
			s.closeErr = s.closer.Close()
		}
	})
	return s.closeErr
}
