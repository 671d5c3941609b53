package stl

import (
	"bytes"
	"encoding/binary"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"

	"github.com/Faultbox/midgard-stl/pkg/mesh"
)

// stubReader serves canned results for OpenFile.
type stubReader struct {
	data []byte
	err  error
}

func (r stubReader) ReadFile(string) ([]byte, error) {
	return r.data, r.err
}

func TestImporter_Lifecycle(t *testing.T) {
	im := NewImporter()

	if im.IsOpen() {
		t.Error("new importer should be closed")
	}
	if im.MeshCount() != 0 {
		t.Errorf("expected 0 meshes while closed, got %d", im.MeshCount())
	}
	if _, err := im.Mesh(0); !errors.Is(err, ErrNotOpen) {
		t.Errorf("expected ErrNotOpen, got %v", err)
	}

	if err := im.OpenData(createTestSTL(binary.LittleEndian, []testTriangle{unitTriangle})); err != nil {
		t.Fatalf("OpenData failed: %v", err)
	}
	if !im.IsOpen() {
		t.Error("expected importer to be open")
	}
	if im.MeshCount() != 1 {
		t.Errorf("expected 1 mesh, got %d", im.MeshCount())
	}

	m, err := im.Mesh(0)
	if err != nil {
		t.Fatalf("Mesh failed: %v", err)
	}
	if m.VertexCount() != 3 {
		t.Errorf("expected 3 vertices, got %d", m.VertexCount())
	}

	im.Close()
	if im.IsOpen() {
		t.Error("expected importer to be closed")
	}
	if _, err := im.Mesh(0); !errors.Is(err, ErrNotOpen) {
		t.Errorf("expected ErrNotOpen after close, got %v", err)
	}

	// Double close is harmless
	im.Close()
}

func TestImporter_MeshIndexOutOfRange(t *testing.T) {
	im := NewImporter()
	if err := im.OpenData(make([]byte, 84)); err != nil {
		t.Fatalf("OpenData failed: %v", err)
	}

	for _, index := range []int{1, -1, 42} {
		if _, err := im.Mesh(index); !errors.Is(err, ErrMeshOutOfRange) {
			t.Errorf("index %d: expected ErrMeshOutOfRange, got %v", index, err)
		}
	}
}

func TestImporter_FailedOpenLeavesClosed(t *testing.T) {
	im := NewImporter()
	if err := im.OpenData(createTestSTL(binary.LittleEndian, []testTriangle{unitTriangle})); err != nil {
		t.Fatalf("OpenData failed: %v", err)
	}

	tests := []struct {
		name    string
		data    []byte
		wantErr error
	}{
		{"too short", []byte{1, 2}, ErrTooShort},
		{"ascii", []byte("solid whatever"), ErrASCIINotSupported},
		{"header too short", make([]byte, 83), ErrTooShort},
		{"size mismatch", make([]byte, 85), ErrSizeMismatch},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := im.OpenData(tt.data)
			if !errors.Is(err, tt.wantErr) {
				t.Errorf("expected %v, got %v", tt.wantErr, err)
			}
			if im.IsOpen() {
				t.Error("importer should be closed after a failed open")
			}
			if im.MeshCount() != 0 {
				t.Errorf("expected 0 meshes, got %d", im.MeshCount())
			}
		})
	}
}

func TestImporter_MeshIdempotent(t *testing.T) {
	im := NewImporter()
	if err := im.OpenData(createTestSTL(binary.LittleEndian, makeTriangles(10))); err != nil {
		t.Fatalf("OpenData failed: %v", err)
	}

	first, err := im.Mesh(0)
	if err != nil {
		t.Fatalf("Mesh failed: %v", err)
	}
	second, err := im.Mesh(0)
	if err != nil {
		t.Fatalf("Mesh failed: %v", err)
	}

	if !bytes.Equal(first.VertexData, second.VertexData) {
		t.Error("repeated decode produced different vertex data")
	}
	if &first.VertexData[0] == &second.VertexData[0] {
		t.Error("meshes should not share a vertex buffer")
	}
}

func TestImporter_OpenDataCopies(t *testing.T) {
	data := createTestSTL(binary.LittleEndian, []testTriangle{unitTriangle})

	im := NewImporter()
	if err := im.OpenData(data); err != nil {
		t.Fatalf("OpenData failed: %v", err)
	}

	// Scribble over the caller's buffer after opening
	for i := dataOffset; i < len(data); i++ {
		data[i] = 0xAB
	}

	m, err := im.Mesh(0)
	if err != nil {
		t.Fatalf("Mesh failed: %v", err)
	}
	if got := m.Vec3s(mesh.Position)[1]; got != unitTriangle.Positions[1] {
		t.Errorf("expected position %v, got %v", unitTriangle.Positions[1], got)
	}
}

func TestImporter_OpenFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "triangle.stl")
	if err := os.WriteFile(path, createTestSTL(binary.LittleEndian, []testTriangle{unitTriangle}), 0644); err != nil {
		t.Fatalf("failed to write fixture: %v", err)
	}

	im := NewImporter()
	if err := im.OpenFile(path); err != nil {
		t.Fatalf("OpenFile failed: %v", err)
	}
	if !im.IsOpen() {
		t.Error("expected importer to be open")
	}

	err := im.OpenFile(filepath.Join(dir, "missing.stl"))
	if !errors.Is(err, ErrNotFound) {
		t.Errorf("expected ErrNotFound, got %v", err)
	}
	if im.IsOpen() {
		t.Error("importer should be closed after a failed open")
	}
}

func TestImporter_OpenFileErrors(t *testing.T) {
	tests := []struct {
		name    string
		reader  stubReader
		wantErr error
	}{
		{"not found", stubReader{err: os.ErrNotExist}, ErrNotFound},
		{"unreadable", stubReader{err: os.ErrPermission}, ErrUnreadable},
		{"invalid content", stubReader{data: []byte("solid cube")}, ErrASCIINotSupported},
		{"valid", stubReader{data: make([]byte, 84)}, nil},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			im := NewImporter(WithFileReader(tt.reader))
			err := im.OpenFile("model.stl")
			if tt.wantErr == nil {
				if err != nil {
					t.Errorf("unexpected error: %v", err)
				}
				return
			}
			if !errors.Is(err, tt.wantErr) {
				t.Errorf("expected %v, got %v", tt.wantErr, err)
			}
		})
	}
}

func TestImporter_Logging(t *testing.T) {
	core, logs := observer.New(zapcore.DebugLevel)
	im := NewImporter(WithLogger(zap.New(core)))

	if err := im.OpenData([]byte("solid")); err == nil {
		t.Fatal("expected error for ASCII data")
	}

	warnings := logs.FilterLevelExact(zapcore.WarnLevel).All()
	if len(warnings) != 1 {
		t.Fatalf("expected 1 warning, got %d", len(warnings))
	}
	if warnings[0].Message != "rejected STL data" {
		t.Errorf("unexpected warning message %q", warnings[0].Message)
	}

	if err := im.OpenData(make([]byte, 84)); err != nil {
		t.Fatalf("OpenData failed: %v", err)
	}
	if logs.FilterMessage("opened STL data").Len() != 1 {
		t.Error("expected an 'opened STL data' debug entry")
	}
}

func TestImporter_TriangleCount(t *testing.T) {
	im := NewImporter()
	if im.TriangleCount() != 0 {
		t.Errorf("expected 0 triangles while closed, got %d", im.TriangleCount())
	}

	if err := im.OpenData(createTestSTL(binary.LittleEndian, makeTriangles(7))); err != nil {
		t.Fatalf("OpenData failed: %v", err)
	}
	if im.TriangleCount() != 7 {
		t.Errorf("expected 7 triangles, got %d", im.TriangleCount())
	}

	im.Close()
	if im.TriangleCount() != 0 {
		t.Errorf("expected 0 triangles after close, got %d", im.TriangleCount())
	}
}
