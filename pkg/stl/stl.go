// Package stl imports binary STL models into generic meshes.
package stl

import (
	"bytes"
	"encoding/binary"
	"errors"
	"fmt"
)

// Binary STL layout.
const (
	headerSize     = 80
	dataOffset     = headerSize + 4 // header + triangle count
	triangleStride = 12*4 + 2       // normal, 3 positions, attribute byte count
	minSniffSize   = 5
	asciiSignature = "solid"
)

// STL format errors.
var (
	ErrTooShort          = errors.New("file too short")
	ErrASCIINotSupported = errors.New("ASCII STL files are not supported")
	ErrSizeMismatch      = errors.New("file size doesn't match triangle count")
)

// FormatError reports a rejected STL buffer together with the sizes that
// caused the rejection.
type FormatError struct {
	Kind      error  // one of the ErrXxx sentinels
	Size      int    // observed buffer length
	Expected  int64  // required length, 0 if not applicable
	Triangles uint32 // declared triangle count, ErrSizeMismatch only
}

func (e *FormatError) Error() string {
	switch {
	case e.Kind == ErrSizeMismatch:
		return fmt.Sprintf("%v, expected %d bytes but got %d for %d triangles",
			e.Kind, e.Expected, e.Size, e.Triangles)
	case e.Kind == ErrTooShort && e.Expected > 0:
		return fmt.Sprintf("%v, expected at least %d bytes but got %d", e.Kind, e.Expected, e.Size)
	case e.Kind == ErrTooShort:
		return fmt.Sprintf("%v, got only %d bytes", e.Kind, e.Size)
	default:
		return e.Kind.Error()
	}
}

func (e *FormatError) Unwrap() error {
	return e.Kind
}

// Validate checks that data is a well-formed binary STL file and returns
// the declared triangle count. The 80-byte header text is not interpreted.
func Validate(data []byte) (uint32, error) {
	// Can't tell ASCII from binary yet
	if len(data) < minSniffSize {
		return 0, &FormatError{Kind: ErrTooShort, Size: len(data)}
	}

	if bytes.Equal(data[:minSniffSize], []byte(asciiSignature)) {
		return 0, &FormatError{Kind: ErrASCIINotSupported, Size: len(data)}
	}

	if len(data) < dataOffset {
		return 0, &FormatError{Kind: ErrTooShort, Size: len(data), Expected: dataOffset}
	}

	triangles := binary.LittleEndian.Uint32(data[headerSize:dataOffset])

	// 64-bit math so a bogus count can't wrap around
	expected := int64(dataOffset) + int64(triangleStride)*int64(triangles)
	if int64(len(data)) != expected {
		return 0, &FormatError{
			Kind:      ErrSizeMismatch,
			Size:      len(data),
			Expected:  expected,
			Triangles: triangles,
		}
	}

	return triangles, nil
}
