package capture

import (
	"errors"
	"io"
	"path/filepath"
	"testing"

	"github.com/ayusman/camtrack/internal/feature"
	"github.com/ayusman/camtrack/testdata"
)

func TestSequence_Path(t *testing.T) {
	tests := []struct {
		name  string
		seq   Sequence
		index int
		want  string
	}{
		{
			name:  "kitti layout",
			seq:   Sequence{Dir: "images/KITTI/2011_09_26/image_00/data", Prefix: "000000", Extension: ".png", FillWidth: 4},
			index: 7,
			want:  "images/KITTI/2011_09_26/image_00/data/0000000007.png",
		},
		{
			name:  "no padding",
			seq:   Sequence{Dir: "frames", Prefix: "img_", Extension: ".jpg"},
			index: 12,
			want:  "frames/img_12.jpg",
		},
		{
			name:  "index wider than fill",
			seq:   Sequence{Dir: "f", Extension: ".png", FillWidth: 2},
			index: 123,
			want:  "f/123.png",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.seq.Path(tt.index); got != filepath.FromSlash(tt.want) {
				t.Errorf("Path(%d) = %q, want %q", tt.index, got, tt.want)
			}
		})
	}
}

func TestSequence_Len(t *testing.T) {
	if got := (Sequence{Start: 0, End: 9}).Len(); got != 10 {
		t.Errorf("Len() = %d, want 10", got)
	}
	if got := (Sequence{Start: 5, End: 4}).Len(); got != 0 {
		t.Errorf("Len() = %d, want 0", got)
	}
}

func TestSequenceSource_ReadsAllFrames(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping test that requires GoCV image I/O")
	}

	frames, err := testdata.ShiftedFrames(40, 30, 2, 3, 5)
	if err != nil {
		t.Fatalf("ShiftedFrames() error = %v", err)
	}
	defer testdata.Close(frames)

	dir := t.TempDir()
	if _, err := testdata.WriteSequence(dir, "000000", ".png", 4, 3, frames); err != nil {
		t.Fatalf("WriteSequence() error = %v", err)
	}

	src := NewSequenceSource(Sequence{Dir: dir, Prefix: "000000", Extension: ".png", Start: 3, End: 5, FillWidth: 4})
	defer src.Close()

	for want := 3; want <= 5; want++ {
		index, img, err := src.Next()
		if err != nil {
			t.Fatalf("Next() error = %v", err)
		}
		if index != want {
			t.Errorf("index = %d, want %d", index, want)
		}
		if img.Channels() != 1 || img.Rows() != 30 || img.Cols() != 40 {
			t.Errorf("frame %d = %dx%dx%d, want 30x40x1", index, img.Rows(), img.Cols(), img.Channels())
		}
		img.Close()
	}

	if _, _, err := src.Next(); !errors.Is(err, io.EOF) {
		t.Errorf("Next() after end error = %v, want io.EOF", err)
	}
}

func TestSequenceSource_MissingFile(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping test that requires GoCV image I/O")
	}

	seq := Sequence{Dir: t.TempDir(), Prefix: "x", Extension: ".png", Start: 0, End: 1, FillWidth: 2}
	src := NewSequenceSource(seq)
	defer src.Close()

	_, _, err := src.Next()
	var resErr *feature.ResourceError
	if !errors.As(err, &resErr) {
		t.Fatalf("Next() error = %v, want ResourceError", err)
	}
	if resErr.Path != seq.Path(0) {
		t.Errorf("Path = %q, want %q", resErr.Path, seq.Path(0))
	}
}

func TestSequenceSource_Closed(t *testing.T) {
	src := NewSequenceSource(Sequence{Start: 0, End: 0})
	src.Close()

	if _, _, err := src.Next(); !errors.Is(err, ErrSourceClosed) {
		t.Errorf("Next() error = %v, want ErrSourceClosed", err)
	}
}
