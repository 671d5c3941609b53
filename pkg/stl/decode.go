package stl

import (
	"encoding/binary"

	"github.com/Faultbox/midgard-stl/pkg/mesh"
)

// Output vertex layout: position followed by normal.
const (
	outputPositionOffset = 0
	outputNormalOffset   = vec3Size
	outputVertexStride   = 2 * vec3Size
)

// Decode validates data and converts it to a mesh in one step.
// data is only read; the returned mesh owns a fresh buffer.
func Decode(data []byte) (*mesh.Mesh, error) {
	triangles, err := Validate(data)
	if err != nil {
		return nil, err
	}
	return decodeValidated(data, int(triangles)), nil
}

// decodeValidated runs the conversion pipeline on a buffer that already
// passed Validate. It cannot fail.
func decodeValidated(data []byte, triangles int) *mesh.Mesh {
	vertexData := deinterleave(data[dataOffset:], triangles)
	normalizeEndianness(vertexData)
	return assemble(vertexData, triangles)
}

// deinterleave copies triangle records into a vertex-major buffer where each
// of the 3 vertices of a triangle gets its own position and a copy of the
// triangle normal. Vertex order within a triangle is preserved.
func deinterleave(records []byte, triangles int) []byte {
	normals := normalsView(records, triangles)
	positions := positionsView(records, triangles)

	out := make([]byte, triangles*3*outputVertexStride)
	for t := 0; t < positions.rows; t++ {
		for v := 0; v < positions.cols; v++ {
			base := (t*3 + v) * outputVertexStride
			copy(out[base+outputPositionOffset:], positions.at(t, v))
			copy(out[base+outputNormalOffset:], normals.at(t, v))
		}
	}
	return out
}

// normalizeEndianness converts every float of the vertex buffer from the
// little-endian file representation to host order. It runs on every host so
// the big-endian path is the same code the little-endian tests exercise.
func normalizeEndianness(buf []byte) {
	convertFloats(buf, binary.LittleEndian, binary.NativeEndian)
}

// convertFloats reinterprets each 4-byte word of buf from one byte order to
// another, in place. A trailing partial word is left untouched.
func convertFloats(buf []byte, from, to binary.ByteOrder) {
	for i := 0; i+4 <= len(buf); i += 4 {
		to.PutUint32(buf[i:], from.Uint32(buf[i:]))
	}
}

// assemble wraps the converted buffer in a triangle mesh.
func assemble(vertexData []byte, triangles int) *mesh.Mesh {
	count := 3 * triangles
	return mesh.New(mesh.Triangles, vertexData,
		mesh.Attribute{
			Kind:   mesh.Position,
			Format: mesh.Vector3,
			Offset: outputPositionOffset,
			Stride: outputVertexStride,
			Count:  count,
		},
		mesh.Attribute{
			Kind:   mesh.Normal,
			Format: mesh.Vector3,
			Offset: outputNormalOffset,
			Stride: outputVertexStride,
			Count:  count,
		},
	)
}
