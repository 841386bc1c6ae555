package vm

import (
	"github.com/holiman/uint256"

	"github.com/eth2030/evmcore/params"
)

// maxMemorySize bounds memory expansion; the quadratic cost of anything
// larger exceeds any uint64 gas limit.
const maxMemorySize = 0x1FFFFFFFE0

// Memory is the byte-addressable scratch space of one interpreter. It only
// grows, in 32-byte words, and each growth is paid for before it happens.
type Memory struct {
	store    []byte
	paidCost uint64 // total expansion cost charged so far
}

// NewMemory returns an empty memory.
func NewMemory() *Memory {
	return &Memory{}
}

func toWordSize(size uint64) uint64 {
	if size > maxMemorySize {
		return maxMemorySize / 32
	}
	return (size + 31) / 32
}

func memoryCost(words uint64) uint64 {
	return words*params.MemoryGas + words*words/params.QuadCoeffDiv
}

// expansionCost returns the extra gas required to grow memory to newSize
// bytes, or zero when the memory is already large enough.
func (m *Memory) expansionCost(newSize uint64) uint64 {
	if newSize <= uint64(len(m.store)) {
		return 0
	}
	total := memoryCost(toWordSize(newSize))
	return total - m.paidCost
}

// Resize grows memory to size bytes rounded up to a whole word.
func (m *Memory) Resize(size uint64) {
	size = toWordSize(size) * 32
	if uint64(len(m.store)) < size {
		m.store = append(m.store, make([]byte, size-uint64(len(m.store)))...)
		m.paidCost = memoryCost(size / 32)
	}
}

// Set copies value into memory at offset. The region must already exist.
func (m *Memory) Set(offset uint64, value []byte) {
	if len(value) == 0 {
		return
	}
	if offset+uint64(len(value)) > uint64(len(m.store)) {
		panic("memory: out of bounds write")
	}
	copy(m.store[offset:], value)
}

// Set32 writes val as a 32-byte big-endian word at offset.
func (m *Memory) Set32(offset uint64, val *uint256.Int) {
	if offset+32 > uint64(len(m.store)) {
		panic("memory: out of bounds write")
	}
	val.WriteToSlice(m.store[offset : offset+32])
}

// SetData copies size bytes of data starting at dataOffset into memory at
// memOffset, zero-filling whatever lies past the end of data.
func (m *Memory) SetData(memOffset, dataOffset, size uint64, data []byte) {
	if size == 0 {
		return
	}
	dst := m.store[memOffset : memOffset+size]
	if dataOffset >= uint64(len(data)) {
		clear(dst)
		return
	}
	n := copy(dst, data[dataOffset:])
	clear(dst[n:])
}

// Copy moves size bytes from src to dst within memory; the ranges may
// overlap.
func (m *Memory) Copy(dst, src, size uint64) {
	if size == 0 {
		return
	}
	copy(m.store[dst:dst+size], m.store[src:src+size])
}

// Get returns a copy of [offset, offset+size).
func (m *Memory) Get(offset, size uint64) []byte {
	if size == 0 {
		return nil
	}
	out := make([]byte, size)
	copy(out, m.store[offset:offset+size])
	return out
}

// Slice returns a view of [offset, offset+size) backed by memory.
func (m *Memory) Slice(offset, size uint64) []byte {
	if size == 0 {
		return nil
	}
	return m.store[offset : offset+size]
}

// Len returns the current size in bytes.
func (m *Memory) Len() int {
	return len(m.store)
}

// Data returns the full backing slice.
func (m *Memory) Data() []byte {
	return m.store
}
