// Package mesh defines the generic vertex-buffer mesh produced by importers.
package mesh

import (
	"encoding/binary"
	"fmt"
	"math"
)

// Primitive is the topology of a mesh.
type Primitive uint8

// Primitive types.
const (
	Triangles Primitive = iota + 1 // Independent triangles, 3 vertices each
)

// String returns the primitive name.
func (p Primitive) String() string {
	switch p {
	case Triangles:
		return "Triangles"
	default:
		return fmt.Sprintf("Unknown(%d)", p)
	}
}

// AttributeKind names a per-vertex quantity.
type AttributeKind uint8

// Attribute kinds.
const (
	Position AttributeKind = iota + 1
	Normal
)

// String returns the attribute name.
func (k AttributeKind) String() string {
	switch k {
	case Position:
		return "Position"
	case Normal:
		return "Normal"
	default:
		return fmt.Sprintf("Unknown(%d)", k)
	}
}

// VertexFormat describes the element type of an attribute.
type VertexFormat uint8

// Vertex formats.
const (
	Vector3 VertexFormat = iota + 1 // 3x float32, host byte order
)

// Size returns the element size in bytes.
func (f VertexFormat) Size() int {
	switch f {
	case Vector3:
		return 12
	default:
		return 0
	}
}

// Attribute describes where one per-vertex quantity lives in the vertex buffer.
type Attribute struct {
	Kind   AttributeKind
	Format VertexFormat
	Offset int // byte offset of the first element
	Stride int // bytes between consecutive elements
	Count  int // number of elements
}

// Mesh is an imported mesh. VertexData is owned by the mesh.
type Mesh struct {
	Primitive  Primitive
	VertexData []byte
	Attributes []Attribute
}

// New creates a mesh over the given vertex data.
func New(primitive Primitive, vertexData []byte, attributes ...Attribute) *Mesh {
	return &Mesh{
		Primitive:  primitive,
		VertexData: vertexData,
		Attributes: attributes,
	}
}

// VertexCount returns the element count of the first attribute.
func (m *Mesh) VertexCount() int {
	if len(m.Attributes) == 0 {
		return 0
	}
	return m.Attributes[0].Count
}

// Attribute returns the first attribute of the given kind.
func (m *Mesh) Attribute(kind AttributeKind) (Attribute, bool) {
	for _, a := range m.Attributes {
		if a.Kind == kind {
			return a, true
		}
	}
	return Attribute{}, false
}

// Vec3s returns a copy of all elements of a Vector3 attribute.
// Returns nil if the mesh has no such attribute.
func (m *Mesh) Vec3s(kind AttributeKind) [][3]float32 {
	attr, ok := m.Attribute(kind)
	if !ok || attr.Format != Vector3 {
		return nil
	}

	out := make([][3]float32, attr.Count)
	for i := range out {
		base := attr.Offset + i*attr.Stride
		for c := 0; c < 3; c++ {
			bits := binary.NativeEndian.Uint32(m.VertexData[base+c*4:])
			out[i][c] = math.Float32frombits(bits)
		}
	}
	return out
}

// Bounds is an axis-aligned bounding box.
type Bounds struct {
	Min [3]float32
	Max [3]float32
}

// Center returns the middle of the box.
func (b Bounds) Center() [3]float32 {
	return [3]float32{
		(b.Min[0] + b.Max[0]) / 2,
		(b.Min[1] + b.Max[1]) / 2,
		(b.Min[2] + b.Max[2]) / 2,
	}
}

// Size returns the extent of the box along each axis.
func (b Bounds) Size() [3]float32 {
	return [3]float32{
		b.Max[0] - b.Min[0],
		b.Max[1] - b.Min[1],
		b.Max[2] - b.Min[2],
	}
}

// Bounds returns the bounding box of all positions.
// The zero box is returned for meshes without positions.
func (m *Mesh) Bounds() Bounds {
	positions := m.Vec3s(Position)
	if len(positions) == 0 {
		return Bounds{}
	}

	b := Bounds{Min: positions[0], Max: positions[0]}
	for _, p := range positions[1:] {
		for c := 0; c < 3; c++ {
			if p[c] < b.Min[c] {
				b.Min[c] = p[c]
			}
			if p[c] > b.Max[c] {
				b.Max[c] = p[c]
			}
		}
	}
	return b
}
