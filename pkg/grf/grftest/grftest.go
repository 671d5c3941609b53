// Package grftest writes small GRF 0x200 archives for tests.
package grftest

import (
	"bytes"
	"compress/zlib"
	"encoding/binary"
	"os"
	"strings"

	"github.com/Faultbox/midgard-stl/pkg/encoding"
)

// File is one archive member. Name is UTF-8 and stored as EUC-KR.
type File struct {
	Name    string
	Content []byte
}

// Write creates a GRF archive at path holding files, zlib-compressed and
// padded to 8 bytes like the original tools do.
func Write(path string, files []File) error {
	var body, table bytes.Buffer

	for _, f := range files {
		var compressed bytes.Buffer
		zw := zlib.NewWriter(&compressed)
		if _, err := zw.Write(f.Content); err != nil {
			return err
		}
		if err := zw.Close(); err != nil {
			return err
		}

		size := uint32(compressed.Len())
		aligned := (size + 7) &^ 7
		offset := uint32(body.Len())

		body.Write(compressed.Bytes())
		body.Write(make([]byte, aligned-size))

		table.Write(encoding.UTF8ToEUCKR(strings.ReplaceAll(f.Name, "/", "\\")))
		table.WriteByte(0)
		meta := make([]byte, 17)
		binary.LittleEndian.PutUint32(meta[0:], size)
		binary.LittleEndian.PutUint32(meta[4:], aligned)
		binary.LittleEndian.PutUint32(meta[8:], uint32(len(f.Content)))
		meta[12] = 0x01 // file
		binary.LittleEndian.PutUint32(meta[13:], offset)
		table.Write(meta)
	}

	var compressedTable bytes.Buffer
	tw := zlib.NewWriter(&compressedTable)
	if _, err := tw.Write(table.Bytes()); err != nil {
		return err
	}
	if err := tw.Close(); err != nil {
		return err
	}

	header := make([]byte, 46)
	copy(header[0:15], "Master of Magic")
	binary.LittleEndian.PutUint32(header[30:], uint32(body.Len())) // table offset
	binary.LittleEndian.PutUint32(header[34:], 0)                  // seed
	binary.LittleEndian.PutUint32(header[38:], uint32(len(files))+7)
	binary.LittleEndian.PutUint32(header[42:], 0x200)

	var out bytes.Buffer
	out.Write(header)
	out.Write(body.Bytes())
	sizes := make([]byte, 8)
	binary.LittleEndian.PutUint32(sizes[0:], uint32(compressedTable.Len()))
	binary.LittleEndian.PutUint32(sizes[4:], uint32(table.Len()))
	out.Write(sizes)
	out.Write(compressedTable.Bytes())

	return os.WriteFile(path, out.Bytes(), 0644)
}
