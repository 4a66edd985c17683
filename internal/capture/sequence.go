package capture

import (
	"fmt"
	"io"
	"path/filepath"
	"sync"

	"gocv.io/x/gocv"

	"github.com/ayusman/camtrack/internal/vision"
)

// Sequence describes a numbered image sequence on disk. Frame i lives at
// Dir/Prefix + i zero-padded to FillWidth digits + Extension.
type Sequence struct {
	Dir       string
	Prefix    string
	Extension string
	Start     int
	End       int // inclusive
	FillWidth int
}

// Path returns the file name of frame index.
func (s Sequence) Path(index int) string {
	return filepath.Join(s.Dir, fmt.Sprintf("%s%0*d%s", s.Prefix, s.FillWidth, index, s.Extension))
}

// Len returns the number of frames in the sequence.
func (s Sequence) Len() int {
	if s.End < s.Start {
		return 0
	}
	return s.End - s.Start + 1
}

// SequenceSource reads a Sequence frame by frame in grayscale.
type SequenceSource struct {
	seq    Sequence
	mu     sync.Mutex
	next   int
	closed bool
}

// NewSequenceSource creates a source positioned at seq.Start.
func NewSequenceSource(seq Sequence) *SequenceSource {
	return &SequenceSource{seq: seq, next: seq.Start}
}

// Next loads the next image. A missing or unreadable file is returned as a
// *feature.ResourceError naming the path.
func (s *SequenceSource) Next() (int, gocv.Mat, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return 0, gocv.Mat{}, ErrSourceClosed
	}
	if s.next > s.seq.End {
		return 0, gocv.Mat{}, io.EOF
	}

	index := s.next
	img, err := vision.ReadGray(s.seq.Path(index))
	if err != nil {
		img.Close()
		return index, gocv.Mat{}, err
	}
	s.next++
	return index, img, nil
}

// Close stops the source. Further reads fail with ErrSourceClosed.
func (s *SequenceSource) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.closed = true
	return nil
}
