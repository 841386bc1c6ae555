package vm

import (
	"github.com/holiman/uint256"

	"github.com/eth2030/evmcore/params"
)

// Stack is the operand stack of one interpreter: at most params.StackLimit
// 256-bit words. Underflow and overflow are checked by the instruction
// table before an instruction body runs, so the accessors below assume
// enough items are present.
type Stack struct {
	data []uint256.Int
}

// NewStack returns an empty stack.
func NewStack() *Stack {
	return &Stack{data: make([]uint256.Int, 0, 16)}
}

// Push pushes a copy of val.
func (st *Stack) Push(val *uint256.Int) {
	st.data = append(st.data, *val)
}

// PushUint64 pushes a small constant.
func (st *Stack) PushUint64(v uint64) {
	var x uint256.Int
	x.SetUint64(v)
	st.data = append(st.data, x)
}

// PushBytes pushes b interpreted as a big-endian word.
func (st *Stack) PushBytes(b []byte) {
	var x uint256.Int
	x.SetBytes(b)
	st.data = append(st.data, x)
}

// Pop removes and returns the top element.
func (st *Stack) Pop() uint256.Int {
	ret := st.data[len(st.data)-1]
	st.data = st.data[:len(st.data)-1]
	return ret
}

// Peek returns a pointer to the top element, valid until the next Push.
func (st *Stack) Peek() *uint256.Int {
	return &st.data[len(st.data)-1]
}

// Back returns the nth element from the top (0 = top).
func (st *Stack) Back(n int) *uint256.Int {
	return &st.data[len(st.data)-1-n]
}

// Swap swaps the top element with the nth element below it.
func (st *Stack) Swap(n int) {
	top := len(st.data) - 1
	st.data[top], st.data[top-n] = st.data[top-n], st.data[top]
}

// Dup pushes a copy of the nth element from the top (1 = top).
func (st *Stack) Dup(n int) {
	st.data = append(st.data, st.data[len(st.data)-n])
}

// Len returns the number of items on the stack.
func (st *Stack) Len() int {
	return len(st.data)
}

// Data returns the stack contents, bottom first.
func (st *Stack) Data() []uint256.Int {
	return st.data
}

// hasRoom reports whether pops items can be replaced by pushes items
// without crossing the stack limit.
func (st *Stack) hasRoom(pops, pushes int) bool {
	return len(st.data)-pops+pushes <= int(params.StackLimit)
}
