package evm

import (
	"github.com/eth2030/evmcore/core/vm"
	"github.com/eth2030/evmcore/params"
)

// ExecutionHandler is the table of frame-lifecycle handlers. Each slot can
// be replaced by a register; a register that wraps a slot captures the
// previous value and delegates to it.
type ExecutionHandler struct {
	// Call opens a frame for a message call, or resolves it immediately.
	Call func(ctx *Context, inputs *vm.CallInputs) (FrameOrResult, error)
	// CallReturn closes a finished call frame.
	CallReturn func(ctx *Context, frame *Frame, result vm.InterpreterResult) vm.CallOutcome
	// InsertCallOutcome resumes the parent with the outcome of a child
	// call, carried in result.Call.
	InsertCallOutcome func(ctx *Context, frame *Frame, result *FrameResult)

	// Create opens a frame for a contract creation, or resolves it
	// immediately.
	Create func(ctx *Context, inputs *vm.CreateInputs) (FrameOrResult, error)
	// CreateReturn closes a finished create frame.
	CreateReturn func(ctx *Context, frame *Frame, result vm.InterpreterResult) vm.CreateOutcome
	// InsertCreateOutcome resumes the parent with the outcome of a child
	// create, carried in result.Create.
	InsertCreateOutcome func(ctx *Context, frame *Frame, result *FrameResult)

	// LastFrameReturn settles the gas of the outermost frame for the whole
	// transaction.
	LastFrameReturn func(ctx *Context, result *FrameResult)
}

// MainnetExecution returns the execution handlers for spec.
func MainnetExecution(spec params.SpecID) ExecutionHandler {
	return ExecutionHandler{
		Call: func(ctx *Context, inputs *vm.CallInputs) (FrameOrResult, error) {
			return MakeCallFrame(ctx, inputs)
		},
		CallReturn: CallReturn,
		InsertCallOutcome: func(_ *Context, frame *Frame, result *FrameResult) {
			frame.Interpreter.InsertCallOutcome(*result.Call)
		},
		Create: func(ctx *Context, inputs *vm.CreateInputs) (FrameOrResult, error) {
			return MakeCreateFrame(ctx, inputs)
		},
		CreateReturn: func(ctx *Context, frame *Frame, result vm.InterpreterResult) vm.CreateOutcome {
			return CreateReturn(ctx, spec, frame, result)
		},
		InsertCreateOutcome: func(_ *Context, frame *Frame, result *FrameResult) {
			frame.Interpreter.InsertCreateOutcome(*result.Create)
		},
		LastFrameReturn: func(ctx *Context, result *FrameResult) {
			FrameReturnWithRefundFlag(spec, ctx.Env(), result, !ctx.Env().Cfg.DisableGasRefund)
		},
	}
}

// HandleRegister modifies a handler in place, typically by wrapping its
// instruction table or execution slots.
type HandleRegister func(h *Handler)

// Handler bundles everything that decides how a transaction executes under
// one spec: the instruction table and the execution handlers.
type Handler struct {
	Spec             params.SpecID
	InstructionTable *vm.InstructionTable
	Execution        ExecutionHandler

	registers []HandleRegister
}

// NewHandler returns the mainnet handler for spec.
func NewHandler(spec params.SpecID) *Handler {
	return &Handler{
		Spec:             spec,
		InstructionTable: vm.NewInstructionTable(spec),
		Execution:        MainnetExecution(spec),
	}
}

// Append applies r on top of the registers already installed, so r's
// wrappers run outermost.
func (h *Handler) Append(r HandleRegister) {
	h.registers = append(h.registers, r)
	r(h)
}

// Registers returns the registers applied so far, oldest first.
func (h *Handler) Registers() []HandleRegister {
	return h.registers
}
