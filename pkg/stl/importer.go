package stl

import (
	"errors"
	"fmt"
	"io/fs"
	"os"

	"go.uber.org/zap"

	"github.com/Faultbox/midgard-stl/pkg/mesh"
)

// Importer errors.
var (
	ErrNotFound       = errors.New("cannot open file")
	ErrUnreadable     = errors.New("cannot read file")
	ErrNotOpen        = errors.New("no file opened")
	ErrMeshOutOfRange = errors.New("mesh index out of range")
)

// FileReader supplies the raw bytes of a named file.
// Missing files should be reported with an error wrapping fs.ErrNotExist.
type FileReader interface {
	ReadFile(name string) ([]byte, error)
}

// osReader reads straight from the filesystem.
type osReader struct{}

func (osReader) ReadFile(name string) ([]byte, error) {
	return os.ReadFile(name)
}

// Option configures an Importer.
type Option func(*Importer)

// WithLogger sets the logger used for diagnostics.
func WithLogger(log *zap.Logger) Option {
	return func(im *Importer) {
		if log != nil {
			im.log = log
		}
	}
}

// WithFileReader sets where OpenFile gets its bytes from.
func WithFileReader(r FileReader) Option {
	return func(im *Importer) {
		if r != nil {
			im.files = r
		}
	}
}

// Importer opens one binary STL file at a time and decodes it into a mesh.
//
// It holds the validated file between OpenFile/OpenData and Close. The held
// buffer is never modified, so Mesh may be called any number of times.
// An Importer is not safe for concurrent use.
type Importer struct {
	data      []byte // nil when closed
	triangles int
	log       *zap.Logger
	files     FileReader
}

// NewImporter creates a closed importer.
func NewImporter(opts ...Option) *Importer {
	im := &Importer{
		log:   zap.NewNop(),
		files: osReader{},
	}
	for _, opt := range opts {
		opt(im)
	}
	return im
}

// OpenFile reads path through the importer's FileReader and opens it.
func (im *Importer) OpenFile(path string) error {
	im.Close()

	data, err := im.files.ReadFile(path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return fmt.Errorf("%w %s: %w", ErrNotFound, path, err)
		}
		return fmt.Errorf("%w %s: %w", ErrUnreadable, path, err)
	}

	if err := im.open(data); err != nil {
		return fmt.Errorf("opening %s: %w", path, err)
	}
	im.log.Debug("opened STL file", zap.String("path", path), zap.Int("triangles", im.triangles))
	return nil
}

// OpenData opens an in-memory STL file. data may be reused by the caller
// once OpenData returns.
func (im *Importer) OpenData(data []byte) error {
	im.Close()

	if err := im.open(data); err != nil {
		return err
	}
	im.log.Debug("opened STL data", zap.Int("bytes", len(data)), zap.Int("triangles", im.triangles))
	return nil
}

// open validates data and keeps a private copy of it. FileReaders may return
// shared cached slices, so the file path copies too.
// On failure the importer stays closed.
func (im *Importer) open(data []byte) error {
	triangles, err := Validate(data)
	if err != nil {
		im.log.Warn("rejected STL data", zap.Int("bytes", len(data)), zap.Error(err))
		return err
	}

	owned := make([]byte, len(data))
	copy(owned, data)

	im.data = owned
	im.triangles = int(triangles)
	return nil
}

// IsOpen reports whether a file is currently opened.
func (im *Importer) IsOpen() bool {
	return im.data != nil
}

// Close releases the held file. Closing a closed importer is a no-op.
func (im *Importer) Close() {
	if im.data != nil {
		im.log.Debug("closed STL importer")
	}
	im.data = nil
	im.triangles = 0
}

// MeshCount returns 1 while a file is open and 0 otherwise.
func (im *Importer) MeshCount() int {
	if !im.IsOpen() {
		return 0
	}
	return 1
}

// TriangleCount returns the triangle count of the open file, 0 when closed.
func (im *Importer) TriangleCount() int {
	return im.triangles
}

// Mesh decodes the mesh at index. STL files contain exactly one mesh.
func (im *Importer) Mesh(index int) (*mesh.Mesh, error) {
	if !im.IsOpen() {
		return nil, ErrNotOpen
	}
	if index < 0 || index >= im.MeshCount() {
		return nil, fmt.Errorf("%w: %d, expected less than %d", ErrMeshOutOfRange, index, im.MeshCount())
	}

	m := decodeValidated(im.data, im.triangles)
	im.log.Debug("decoded STL mesh", zap.Int("vertices", m.VertexCount()))
	return m, nil
}
