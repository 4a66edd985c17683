package capture

import (
	"io"
	"sync"

	"gocv.io/x/gocv"
)

// MockSource plays back prepared frames for testing. Frames are cloned on
// read so the originals stay with the caller.
type MockSource struct {
	frames []*gocv.Mat
	start  int
	pos    int
	loop   bool
	mu     sync.Mutex
	closed bool
}

// NewMockSource creates a source that numbers frames from start.
func NewMockSource(frames []*gocv.Mat, start int, loop bool) *MockSource {
	return &MockSource{frames: frames, start: start, loop: loop}
}

func (s *MockSource) Next() (int, gocv.Mat, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return 0, gocv.Mat{}, ErrSourceClosed
	}
	if len(s.frames) == 0 {
		return 0, gocv.Mat{}, io.EOF
	}
	if s.pos >= len(s.frames) && !s.loop {
		return 0, gocv.Mat{}, io.EOF
	}

	frame := s.frames[s.pos%len(s.frames)].Clone()
	index := s.start + s.pos
	s.pos++
	return index, frame, nil
}

// Reset restarts playback from the first frame.
func (s *MockSource) Reset() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.pos = 0
	s.closed = false
}

func (s *MockSource) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.closed = true
	return nil
}
