// Package tilepack provides reading and writing of packed tile archives:
// a single file bundling many elevation tiles with a compressed index,
// so tile sets ship as one artifact instead of thousands of small files.
package tilepack

import (
	"bytes"
	"compress/zlib"
	"encoding/binary"
	"fmt"
	"io"
	"os"
	"sort"
)

const packMagic = "TPK1"

// headerSize is the fixed byte length of the on-disk header.
const headerSize = 4 + 4 + 4 + 8

// Header contains pack file header information.
type Header struct {
	Magic       [4]byte
	Version     uint32
	TileCount   uint32
	TableOffset uint64
}

// Entry represents a tile entry in the archive.
type Entry struct {
	Name             string
	CompressedSize   uint32
	UncompressedSize uint32
	Offset           uint64
}

// Archive represents an opened tile pack.
type Archive struct {
	file    *os.File
	header  Header
	entries map[string]*Entry
}

// Open opens a tile pack for reading.
func Open(path string) (*Archive, error) {
	file, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("opening file: %w", err)
	}

	archive := &Archive{
		file:    file,
		entries: make(map[string]*Entry),
	}

	if err := archive.readHeader(); err != nil {
		file.Close()
		return nil, fmt.Errorf("reading header: %w", err)
	}

	if err := archive.readTable(); err != nil {
		file.Close()
		return nil, fmt.Errorf("reading tile table: %w", err)
	}

	return archive, nil
}

// Close closes the archive.
func (a *Archive) Close() error {
	if a.file != nil {
		return a.file.Close()
	}
	return nil
}

func (a *Archive) readHeader() error {
	if _, err := a.file.Seek(0, io.SeekStart); err != nil {
		return err
	}

	if err := binary.Read(a.file, binary.LittleEndian, &a.header); err != nil {
		return fmt.Errorf("reading header: %w", err)
	}

	if string(a.header.Magic[:]) != packMagic {
		return fmt.Errorf("invalid pack magic")
	}

	if a.header.Version != 1 {
		return fmt.Errorf("unsupported pack version: %d", a.header.Version)
	}

	return nil
}

func (a *Archive) readTable() error {
	if _, err := a.file.Seek(int64(a.header.TableOffset), io.SeekStart); err != nil {
		return err
	}

	reader, err := zlib.NewReader(a.file)
	if err != nil {
		return fmt.Errorf("opening table: %w", err)
	}
	defer reader.Close()

	for i := uint32(0); i < a.header.TileCount; i++ {
		var nameLen uint16
		if err := binary.Read(reader, binary.LittleEndian, &nameLen); err != nil {
			return fmt.Errorf("entry %d: %w", i, err)
		}
		name := make([]byte, nameLen)
		if _, err := io.ReadFull(reader, name); err != nil {
			return fmt.Errorf("entry %d name: %w", i, err)
		}
		entry := &Entry{Name: string(name)}
		if err := binary.Read(reader, binary.LittleEndian, &entry.Offset); err != nil {
			return err
		}
		if err := binary.Read(reader, binary.LittleEndian, &entry.CompressedSize); err != nil {
			return err
		}
		if err := binary.Read(reader, binary.LittleEndian, &entry.UncompressedSize); err != nil {
			return err
		}
		a.entries[entry.Name] = entry
	}

	return nil
}

// Contains reports whether a tile exists in the archive.
func (a *Archive) Contains(name string) bool {
	_, ok := a.entries[name]
	return ok
}

// List returns all tile names in the archive, sorted.
func (a *Archive) List() []string {
	names := make([]string, 0, len(a.entries))
	for name := range a.entries {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Count returns the number of tiles in the archive.
func (a *Archive) Count() int { return len(a.entries) }

// Read returns the decompressed payload of a tile.
func (a *Archive) Read(name string) ([]byte, error) {
	entry, ok := a.entries[name]
	if !ok {
		return nil, fmt.Errorf("tile not found: %s", name)
	}

	compressed := make([]byte, entry.CompressedSize)
	if _, err := a.file.ReadAt(compressed, int64(entry.Offset)); err != nil {
		return nil, fmt.Errorf("reading %s: %w", name, err)
	}

	reader, err := zlib.NewReader(bytes.NewReader(compressed))
	if err != nil {
		return nil, fmt.Errorf("decompressing %s: %w", name, err)
	}
	defer reader.Close()

	data := make([]byte, entry.UncompressedSize)
	if _, err := io.ReadFull(reader, data); err != nil {
		return nil, fmt.Errorf("decompressing %s: %w", name, err)
	}
	return data, nil
}

// Writer builds a tile pack. Tiles are compressed as they are added; the
// index table is written on Close.
type Writer struct {
	file    *os.File
	offset  uint64
	entries []*Entry
}

// Create starts a new tile pack at path, truncating any existing file.
func Create(path string) (*Writer, error) {
	file, err := os.Create(path)
	if err != nil {
		return nil, fmt.Errorf("creating file: %w", err)
	}
	// Header is rewritten with the real table offset on Close.
	if _, err := file.Write(make([]byte, headerSize)); err != nil {
		file.Close()
		return nil, err
	}
	return &Writer{file: file, offset: headerSize}, nil
}

// Add appends a tile payload under a name. Duplicate names overwrite on
// read (last entry wins).
func (w *Writer) Add(name string, data []byte) error {
	if len(name) > 1<<16-1 {
		return fmt.Errorf("tile name too long: %d bytes", len(name))
	}

	var buf bytes.Buffer
	zw := zlib.NewWriter(&buf)
	if _, err := zw.Write(data); err != nil {
		return err
	}
	if err := zw.Close(); err != nil {
		return err
	}

	if _, err := w.file.Write(buf.Bytes()); err != nil {
		return fmt.Errorf("writing %s: %w", name, err)
	}
	w.entries = append(w.entries, &Entry{
		Name:             name,
		CompressedSize:   uint32(buf.Len()),
		UncompressedSize: uint32(len(data)),
		Offset:           w.offset,
	})
	w.offset += uint64(buf.Len())
	return nil
}

// Close writes the index table and header and closes the file.
func (w *Writer) Close() error {
	tableOffset := w.offset

	var table bytes.Buffer
	zw := zlib.NewWriter(&table)
	for _, e := range w.entries {
		binary.Write(zw, binary.LittleEndian, uint16(len(e.Name)))
		zw.Write([]byte(e.Name))
		binary.Write(zw, binary.LittleEndian, e.Offset)
		binary.Write(zw, binary.LittleEndian, e.CompressedSize)
		binary.Write(zw, binary.LittleEndian, e.UncompressedSize)
	}
	if err := zw.Close(); err != nil {
		w.file.Close()
		return err
	}
	if _, err := w.file.Write(table.Bytes()); err != nil {
		w.file.Close()
		return err
	}

	header := Header{
		Version:     1,
		TileCount:   uint32(len(w.entries)),
		TableOffset: tableOffset,
	}
	copy(header.Magic[:], packMagic)
	if _, err := w.file.Seek(0, io.SeekStart); err != nil {
		w.file.Close()
		return err
	}
	if err := binary.Write(w.file, binary.LittleEndian, &header); err != nil {
		w.file.Close()
		return err
	}
	return w.file.Close()
}
