package memory

import (
	"encoding/binary"

	"github.com/wippyai/bindgen"
	"github.com/wippyai/bindgen/errors"
)

// Slice is a fixed-size little-endian memory backed by a Go byte slice.
type Slice struct {
	data []byte
}

var (
	_ bindgen.Memory      = (*Slice)(nil)
	_ bindgen.MemorySizer = (*Slice)(nil)
)

// NewSlice creates a zeroed memory of size bytes.
func NewSlice(size uint32) *Slice {
	return &Slice{data: make([]byte, size)}
}

func (s *Slice) Size() uint32 {
	return uint32(len(s.data))
}

// Bytes exposes the backing slice.
func (s *Slice) Bytes() []byte {
	return s.data
}

func (s *Slice) span(offset, length uint32) ([]byte, error) {
	end := uint64(offset) + uint64(length)
	if end > uint64(len(s.data)) {
		return nil, errors.OutOfBounds(errors.PhaseEval, nil, offset, length)
	}
	return s.data[offset:end], nil
}

// Read returns a view of length bytes at offset; it aliases the memory.
func (s *Slice) Read(offset uint32, length uint32) ([]byte, error) {
	return s.span(offset, length)
}

func (s *Slice) Write(offset uint32, data []byte) error {
	b, err := s.span(offset, uint32(len(data)))
	if err != nil {
		return err
	}
	copy(b, data)
	return nil
}

func (s *Slice) ReadU8(offset uint32) (uint8, error) {
	b, err := s.span(offset, 1)
	if err != nil {
		return 0, err
	}
	return b[0], nil
}

func (s *Slice) ReadU16(offset uint32) (uint16, error) {
	b, err := s.span(offset, 2)
	if err != nil {
		return 0, err
	}
	return binary.LittleEndian.Uint16(b), nil
}

func (s *Slice) ReadU32(offset uint32) (uint32, error) {
	b, err := s.span(offset, 4)
	if err != nil {
		return 0, err
	}
	return binary.LittleEndian.Uint32(b), nil
}

func (s *Slice) ReadU64(offset uint32) (uint64, error) {
	b, err := s.span(offset, 8)
	if err != nil {
		return 0, err
	}
	return binary.LittleEndian.Uint64(b), nil
}

func (s *Slice) WriteU8(offset uint32, value uint8) error {
	b, err := s.span(offset, 1)
	if err != nil {
		return err
	}
	b[0] = value
	return nil
}

func (s *Slice) WriteU16(offset uint32, value uint16) error {
	b, err := s.span(offset, 2)
	if err != nil {
		return err
	}
	binary.LittleEndian.PutUint16(b, value)
	return nil
}

func (s *Slice) WriteU32(offset uint32, value uint32) error {
	b, err := s.span(offset, 4)
	if err != nil {
		return err
	}
	binary.LittleEndian.PutUint32(b, value)
	return nil
}

func (s *Slice) WriteU64(offset uint32, value uint64) error {
	b, err := s.span(offset, 8)
	if err != nil {
		return err
	}
	binary.LittleEndian.PutUint64(b, value)
	return nil
}
