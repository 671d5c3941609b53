// Package grf reads files out of GRF archives, the packed data format that
// ships game models alongside loose STL files.
package grf

import (
	"bytes"
	"compress/zlib"
	"encoding/binary"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"

	"github.com/Faultbox/midgard-stl/pkg/encoding"
)

const (
	grfMagic      = "Master of Magic"
	headerSize    = 46
	entryMetaSize = 17
	tableSizesLen = 8
	version200    = 0x200

	maxInflateRatio = 1032
)

// Entry flags.
const (
	flagFile      = 0x01
	flagEncrypted = 0x02
)

// GRF errors.
var (
	ErrInvalidMagic       = errors.New("invalid GRF magic")
	ErrUnsupportedVersion = errors.New("unsupported GRF version")
	ErrEncrypted          = errors.New("encrypted GRF entries are not supported")
	ErrCorruptTable       = errors.New("corrupt GRF file table")
)

// Header is the fixed 46-byte GRF header.
type Header struct {
	Magic         [15]byte
	EncryptionKey [15]byte
	TableOffset   uint32
	Seed          uint32
	FileCount     uint32
	Version       uint32
}

// Entry describes one stored file.
type Entry struct {
	Name             string
	CompressedSize   uint32
	AlignedSize      uint32
	UncompressedSize uint32
	Flags            uint8
	Offset           uint32
}

// Archive is an opened GRF archive. Reads seek the shared file handle, so an
// Archive must not be read from multiple goroutines at once.
type Archive struct {
	file    *os.File
	size    int64
	header  Header
	entries map[string]*Entry
}

// Open opens a GRF archive and loads its file table.
func Open(path string) (*Archive, error) {
	file, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("opening archive: %w", err)
	}

	info, err := file.Stat()
	if err != nil {
		file.Close()
		return nil, fmt.Errorf("opening archive: %w", err)
	}

	a := &Archive{
		file:    file,
		size:    info.Size(),
		entries: make(map[string]*Entry),
	}

	if err := a.readHeader(); err != nil {
		file.Close()
		return nil, fmt.Errorf("reading header: %w", err)
	}
	if err := a.readFileTable(); err != nil {
		file.Close()
		return nil, fmt.Errorf("reading file table: %w", err)
	}

	return a, nil
}

// Close closes the underlying file.
func (a *Archive) Close() error {
	if a.file == nil {
		return nil
	}
	err := a.file.Close()
	a.file = nil
	return err
}

func (a *Archive) readHeader() error {
	if err := binary.Read(io.NewSectionReader(a.file, 0, headerSize), binary.LittleEndian, &a.header); err != nil {
		return err
	}
	if string(a.header.Magic[:]) != grfMagic {
		return ErrInvalidMagic
	}
	if a.header.Version != version200 {
		return fmt.Errorf("%w: 0x%x", ErrUnsupportedVersion, a.header.Version)
	}
	return nil
}

func (a *Archive) readFileTable() error {
	start := int64(a.header.TableOffset) + headerSize
	if start+tableSizesLen > a.size {
		return fmt.Errorf("%w: table offset %d beyond end of file", ErrCorruptTable, a.header.TableOffset)
	}
	r := io.NewSectionReader(a.file, start, a.size-start)

	var sizes struct {
		Compressed   uint32
		Uncompressed uint32
	}
	if err := binary.Read(r, binary.LittleEndian, &sizes); err != nil {
		return fmt.Errorf("%w: %w", ErrCorruptTable, err)
	}
	if int64(sizes.Compressed) > a.size-start-tableSizesLen {
		return fmt.Errorf("%w: table size %d exceeds archive", ErrCorruptTable, sizes.Compressed)
	}
	if !inflatable(sizes.Compressed, sizes.Uncompressed) {
		return fmt.Errorf("%w: table inflates %d to %d bytes", ErrCorruptTable, sizes.Compressed, sizes.Uncompressed)
	}

	compressed := make([]byte, sizes.Compressed)
	if _, err := io.ReadFull(r, compressed); err != nil {
		return fmt.Errorf("%w: %w", ErrCorruptTable, err)
	}

	table, err := inflate(compressed, sizes.Uncompressed)
	if err != nil {
		return fmt.Errorf("%w: %w", ErrCorruptTable, err)
	}

	count := a.header.FileCount - a.header.Seed - 7
	offset := 0
	for i := uint32(0); i < count; i++ {
		nameEnd := bytes.IndexByte(table[offset:], 0)
		if nameEnd < 0 {
			return fmt.Errorf("%w: unterminated name in entry %d", ErrCorruptTable, i)
		}
		name := encoding.EUCKRToUTF8(table[offset : offset+nameEnd])
		offset += nameEnd + 1

		if offset+entryMetaSize > len(table) {
			return fmt.Errorf("%w: truncated entry %d", ErrCorruptTable, i)
		}
		meta := table[offset : offset+entryMetaSize]
		offset += entryMetaSize

		e := &Entry{
			Name:             encoding.NormalizeGRFPath(name),
			CompressedSize:   binary.LittleEndian.Uint32(meta[0:]),
			AlignedSize:      binary.LittleEndian.Uint32(meta[4:]),
			UncompressedSize: binary.LittleEndian.Uint32(meta[8:]),
			Flags:            meta[12],
			Offset:           binary.LittleEndian.Uint32(meta[13:]),
		}

		// Directory entries don't carry data
		if e.Flags&flagFile != 0 {
			a.entries[e.Name] = e
		}
	}

	return nil
}

// List returns all file paths in the archive as UTF-8, normalized to lower
// case with forward slashes.
func (a *Archive) List() []string {
	names := make([]string, 0, len(a.entries))
	for name := range a.entries {
		names = append(names, name)
	}
	return names
}

// Contains reports whether the archive holds path.
func (a *Archive) Contains(path string) bool {
	_, ok := a.entries[encoding.NormalizeGRFPath(path)]
	return ok
}

// ReadFile reads and decompresses a file. Missing files return an error
// wrapping fs.ErrNotExist.
func (a *Archive) ReadFile(path string) ([]byte, error) {
	e, ok := a.entries[encoding.NormalizeGRFPath(path)]
	if !ok {
		return nil, &fs.PathError{Op: "read", Path: path, Err: fs.ErrNotExist}
	}
	if e.Flags&flagEncrypted != 0 {
		return nil, fmt.Errorf("%s: %w", path, ErrEncrypted)
	}

	start := int64(e.Offset) + headerSize
	if start+int64(e.AlignedSize) > a.size {
		return nil, fmt.Errorf("%w: %s: stored data runs past end of archive", ErrCorruptTable, path)
	}
	if e.CompressedSize > e.AlignedSize {
		return nil, fmt.Errorf("%w: %s: compressed size %d exceeds stored size %d", ErrCorruptTable, path, e.CompressedSize, e.AlignedSize)
	}

	raw := make([]byte, e.AlignedSize)
	if _, err := a.file.ReadAt(raw, start); err != nil {
		return nil, fmt.Errorf("reading %s: %w", path, err)
	}

	if e.CompressedSize == e.UncompressedSize {
		return raw[:e.UncompressedSize], nil
	}
	if !inflatable(e.CompressedSize, e.UncompressedSize) {
		return nil, fmt.Errorf("%w: %s: inflates %d to %d bytes", ErrCorruptTable, path, e.CompressedSize, e.UncompressedSize)
	}

	data, err := inflate(raw[:e.CompressedSize], e.UncompressedSize)
	if err != nil {
		return nil, fmt.Errorf("decompressing %s: %w", path, err)
	}
	return data, nil
}

// inflatable reports whether zlib could expand compressed bytes to size.
// Deflate tops out near 1032:1.
func inflatable(compressed, size uint32) bool {
	return uint64(size) <= uint64(compressed)*maxInflateRatio
}

func inflate(compressed []byte, size uint32) ([]byte, error) {
	zr, err := zlib.NewReader(bytes.NewReader(compressed))
	if err != nil {
		return nil, err
	}
	defer zr.Close()

	out := make([]byte, size)
	if _, err := io.ReadFull(zr, out); err != nil {
		return nil, err
	}
	return out, nil
}
