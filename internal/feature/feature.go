// Package feature defines the keypoint, descriptor and match types shared by the
// detection, description and matching stages, together with the pure-Go filters
// that operate on them.
package feature

import "fmt"

// Keypoint is a salient 2-D image location.
type Keypoint struct {
	X        float64 `json:"x"`
	Y        float64 `json:"y"`
	Size     float64 `json:"size"`
	Angle    float64 `json:"angle"`
	Response float64 `json:"response"`
	Octave   int     `json:"octave"`
	ClassID  int     `json:"class_id"`
}

// Match pairs a keypoint of the older frame (Source) with a keypoint of the
// newer frame (Reference).
type Match struct {
	Source    int     `json:"source"`
	Reference int     `json:"reference"`
	Distance  float64 `json:"distance"`
}

// DescriptorKind tells how descriptor rows are laid out and compared.
type DescriptorKind int

const (
	// KindBinary descriptors are bit-packed and compared with Hamming distance.
	KindBinary DescriptorKind = iota
	// KindFloating descriptors are float32 vectors compared with L2 distance.
	KindFloating
)

func (k DescriptorKind) String() string {
	switch k {
	case KindBinary:
		return "BINARY"
	case KindFloating:
		return "FLOATING"
	default:
		return fmt.Sprintf("DescriptorKind(%d)", int(k))
	}
}

// Descriptors is a row-major descriptor table with one row per keypoint.
// Binary tables use Bits (Cols bytes per row), floating tables use Values
// (Cols floats per row).
type Descriptors struct {
	Kind   DescriptorKind
	Rows   int
	Cols   int
	Bits   []byte
	Values []float32
}

// NewBinaryDescriptors wraps a bit-packed table.
func NewBinaryDescriptors(rows, cols int, bits []byte) Descriptors {
	return Descriptors{Kind: KindBinary, Rows: rows, Cols: cols, Bits: bits}
}

// NewFloatingDescriptors wraps a float32 table.
func NewFloatingDescriptors(rows, cols int, values []float32) Descriptors {
	return Descriptors{Kind: KindFloating, Rows: rows, Cols: cols, Values: values}
}

// Len returns the number of rows.
func (d Descriptors) Len() int {
	return d.Rows
}

// Empty reports whether the table has no rows.
func (d Descriptors) Empty() bool {
	return d.Rows == 0 || d.Cols == 0
}

// BinaryRow returns row i of a binary table.
func (d Descriptors) BinaryRow(i int) []byte {
	return d.Bits[i*d.Cols : (i+1)*d.Cols]
}

// FloatRow returns row i of a floating table.
func (d Descriptors) FloatRow(i int) []float32 {
	return d.Values[i*d.Cols : (i+1)*d.Cols]
}
