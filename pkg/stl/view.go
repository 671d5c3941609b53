package stl

// vec3Size is the size of one 3-component float32 element.
const vec3Size = 12

// recordView is a non-copying 2D view of 3-float elements inside a byte
// buffer. Element (row, col) starts at offset + row*rowStride + col*colStride.
// A colStride of 0 repeats the same element across every column.
//
// Views are only built over buffers that passed Validate, so accessors
// don't bounds-check beyond what the slice itself enforces.
type recordView struct {
	data      []byte
	offset    int
	rowStride int
	colStride int
	rows      int
	cols      int
}

// at returns the 12 bytes of element (row, col).
func (v recordView) at(row, col int) []byte {
	start := v.offset + row*v.rowStride + col*v.colStride
	return v.data[start : start+vec3Size]
}

// normalsView exposes the single normal of every triangle once per vertex.
func normalsView(records []byte, triangles int) recordView {
	return recordView{
		data:      records,
		offset:    0,
		rowStride: triangleStride,
		colStride: 0,
		rows:      triangles,
		cols:      3,
	}
}

// positionsView exposes the three vertex positions of every triangle.
func positionsView(records []byte, triangles int) recordView {
	return recordView{
		data:      records,
		offset:    vec3Size,
		rowStride: triangleStride,
		colStride: vec3Size,
		rows:      triangles,
		cols:      3,
	}
}
