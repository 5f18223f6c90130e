package capture

import (
	"context"
	"errors"
	"sync"
)

// ErrSourceExhausted is returned by a FrameSource when no more frames will
// ever arrive; the capture loop treats it as the end of the session.
var ErrSourceExhausted = errors.New("frame source exhausted")

// FrameSource delivers sensor frames to the capture loop, one per poll.
type FrameSource interface {
	// Next blocks until a frame is available, the context is cancelled,
	// or the source is exhausted.
	Next(ctx context.Context) (*SensorFrame, error)

	// Close releases any resources held by the source.
	Close() error
}

// ReplaySource serves a fixed sequence of frames, used by dev mode and
// tests in place of a live AR session.
type ReplaySource struct {
	mu     sync.Mutex
	frames []*SensorFrame
	next   int
	closed bool
}

// NewReplaySource returns a source that yields the given frames in order
// and then reports ErrSourceExhausted.
func NewReplaySource(frames []*SensorFrame) *ReplaySource {
	return &ReplaySource{frames: frames}
}

// Next returns the next recorded frame.
func (s *ReplaySource) Next(ctx context.Context) (*SensorFrame, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed || s.next >= len(s.frames) {
		return nil, ErrSourceExhausted
	}
	f := s.frames[s.next]
	s.next++
	return f, nil
}

// Close marks the source exhausted.
func (s *ReplaySource) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.closed = true
	return nil
}
