package evm

import (
	"github.com/ethereum/go-ethereum/common"

	"github.com/eth2030/evmcore/core/state"
	"github.com/eth2030/evmcore/core/vm"
)

// FrameKind distinguishes message-call frames from create frames.
type FrameKind uint8

const (
	FrameCall FrameKind = iota
	FrameCreate
)

func (k FrameKind) String() string {
	if k == FrameCreate {
		return "create"
	}
	return "call"
}

// FrameStatus is the lifecycle state of a frame. A frame runs at most once
// to completion.
type FrameStatus uint8

const (
	FramePending FrameStatus = iota
	FrameRunning
	FrameCompleted
)

// Frame is one activation of interpreted code. It keeps the checkpoint
// taken when it was opened so its exit handler can commit or revert.
type Frame struct {
	Kind        FrameKind
	Checkpoint  state.Checkpoint
	Interpreter *vm.Interpreter

	// ReturnMemoryRange is where a call frame's output lands in the
	// parent's memory.
	ReturnMemoryRange vm.MemoryRange
	// CreatedAddress is the address a create frame deploys to.
	CreatedAddress common.Address

	status FrameStatus
}

func newCallFrame(cp state.Checkpoint, interp *vm.Interpreter, ret vm.MemoryRange) *Frame {
	return &Frame{Kind: FrameCall, Checkpoint: cp, Interpreter: interp, ReturnMemoryRange: ret}
}

func newCreateFrame(cp state.Checkpoint, interp *vm.Interpreter, addr common.Address) *Frame {
	return &Frame{Kind: FrameCreate, Checkpoint: cp, Interpreter: interp, CreatedAddress: addr}
}

// Status returns the lifecycle state.
func (f *Frame) Status() FrameStatus { return f.status }

// run resumes the frame's interpreter until it yields.
func (f *Frame) run(table *vm.InstructionTable, host vm.Host) vm.InterpreterAction {
	if f.status == FrameCompleted {
		panic("evm: frame re-entered after completion")
	}
	f.status = FrameRunning
	action := f.Interpreter.Run(table, host)
	if action.Kind == vm.ActionReturn {
		f.status = FrameCompleted
	}
	return action
}

// FrameResult is the outcome of a finished frame: a call outcome or a
// create outcome depending on Kind.
type FrameResult struct {
	Kind   FrameKind
	Call   *vm.CallOutcome
	Create *vm.CreateOutcome

	// SubstitutedBy is set by a register whose call or create handler
	// produced this result without delegating. Registers installed before
	// it never saw the request. Registers may rewrite it while the result
	// travels back through the outcome handlers.
	SubstitutedBy any
}

// NewCallResult wraps a call outcome.
func NewCallResult(o vm.CallOutcome) *FrameResult {
	return &FrameResult{Kind: FrameCall, Call: &o}
}

// NewCreateResult wraps a create outcome.
func NewCreateResult(o vm.CreateOutcome) *FrameResult {
	return &FrameResult{Kind: FrameCreate, Create: &o}
}

// InterpreterResult returns the result of whichever outcome is set.
func (r *FrameResult) InterpreterResult() *vm.InterpreterResult {
	if r.Kind == FrameCreate {
		return &r.Create.Result
	}
	return &r.Call.Result
}

// Gas returns the frame's gas ledger for in-place settlement.
func (r *FrameResult) Gas() *vm.Gas {
	return &r.InterpreterResult().Gas
}

// Output returns the frame's return data.
func (r *FrameResult) Output() []byte {
	return r.InterpreterResult().Output
}

// FrameOrResult is what a call or create handler produces: a frame that
// still has to run, or a result that needed no interpretation.
type FrameOrResult struct {
	Frame  *Frame
	Result *FrameResult
}

func frameOf(f *Frame) FrameOrResult { return FrameOrResult{Frame: f} }

func resultOf(r *FrameResult) FrameOrResult { return FrameOrResult{Result: r} }

// IsFrame reports whether a frame was opened.
func (f FrameOrResult) IsFrame() bool { return f.Frame != nil }
