package inspector

import (
	"fmt"

	"github.com/eth2030/evmcore/core/evm"
	"github.com/eth2030/evmcore/core/state"
	"github.com/eth2030/evmcore/core/vm"
)

// inputStack pairs the inputs of a call or create with its outcome. Frames
// nest, so the inputs of the frame that just finished are always on top.
type inputStack[T any] struct {
	kind  string
	items []T
}

func (s *inputStack[T]) push(v T) {
	s.items = append(s.items, v)
}

func (s *inputStack[T]) pop() T {
	n := len(s.items)
	if n == 0 {
		panic(fmt.Sprintf("inspector: %s input stack is empty", s.kind))
	}
	v := s.items[n-1]
	s.items = s.items[:n-1]
	return v
}

// Registration installs one inspector into a handler and owns the input
// stacks shared by its wrapped handlers.
type Registration struct {
	insp    Inspector
	calls   inputStack[*vm.CallInputs]
	creates inputStack[*vm.CreateInputs]
}

// NewRegistration prepares insp for installation.
func NewRegistration(insp Inspector) *Registration {
	return &Registration{
		insp:    insp,
		calls:   inputStack[*vm.CallInputs]{kind: "call"},
		creates: inputStack[*vm.CreateInputs]{kind: "create"},
	}
}

// HandleRegister returns a register that installs insp.
func HandleRegister(insp Inspector) evm.HandleRegister {
	return NewRegistration(insp).Register
}

// OpenCalls returns the number of calls entered but not yet ended.
func (r *Registration) OpenCalls() int { return len(r.calls.items) }

// OpenCreates returns the number of creates entered but not yet ended.
func (r *Registration) OpenCreates() int { return len(r.creates.items) }

// Register wraps every instruction and the call, create, outcome and
// last-frame handlers of h. Previously installed handlers are kept and
// delegated to, so registrations stack.
func (r *Registration) Register(h *evm.Handler) {
	if h.InstructionTable == nil {
		panic("inspector: handler has no instruction table")
	}
	r.wrapTable(h)
	r.wrapExecution(&h.Execution)
}

func (r *Registration) wrapTable(h *evm.Handler) {
	table := new(vm.InstructionTable)
	for op, ins := range h.InstructionTable {
		table[op] = r.stepInstruction(ins)
	}
	for op := vm.LOG0; op <= vm.LOG4; op++ {
		table[op] = r.logInstruction(table[op])
	}
	table[vm.SELFDESTRUCT] = r.selfDestructInstruction(table[vm.SELFDESTRUCT])
	h.InstructionTable = table
}

func contextOf(host vm.Host) *evm.Context {
	ctx, ok := host.(*evm.Context)
	if !ok {
		panic(fmt.Sprintf("inspector: host %T is not an evm context", host))
	}
	return ctx
}

// stepInstruction surrounds ins with Step and StepEnd. The interpreter has
// already moved past the opcode, so Step is given the opcode's own offset.
func (r *Registration) stepInstruction(ins vm.Instruction) vm.Instruction {
	return func(in *vm.Interpreter, host vm.Host) {
		ctx := contextOf(host)
		pc := in.PC()
		if pc == 0 {
			panic("inspector: instruction pointer before start of code")
		}
		r.insp.Step(in, pc-1, ctx)
		if in.Result != vm.Continue {
			return
		}
		ins(in, host)
		r.insp.StepEnd(in, ctx)
	}
}

// logInstruction reports the log ins emitted. Nothing is reported when
// ins halted before appending one.
func (r *Registration) logInstruction(ins vm.Instruction) vm.Instruction {
	return func(in *vm.Interpreter, host vm.Host) {
		ctx := contextOf(host)
		n := len(ctx.Journal.Logs())
		ins(in, host)
		if logs := ctx.Journal.Logs(); len(logs) == n+1 {
			r.insp.Log(ctx, logs[n])
		}
	}
}

// selfDestructInstruction reports a destruction only when ins journaled
// one. From Cancun a pre-existing contract only has its balance moved.
func (r *Registration) selfDestructInstruction(ins vm.Instruction) vm.Instruction {
	return func(in *vm.Interpreter, host vm.Host) {
		ctx := contextOf(host)
		n := ctx.Journal.JournalLen()
		ins(in, host)
		if ctx.Journal.JournalLen() == n {
			return
		}
		last, _ := ctx.Journal.LastJournalEntry()
		if e, ok := last.(state.AccountDestroyedEntry); ok {
			r.insp.SelfDestruct(e.Address, e.Target, e.HadBalance)
		}
	}
}

// bypassed marks a substituted result while it passes the registrations
// installed before the one that substituted it. They never pushed inputs for
// it, so they neither pop nor report an end.
var bypassed = new(Registration)

// finish runs end when r pushed inputs for result, then hands result to
// next.
func (r *Registration) finish(result *evm.FrameResult, end, next func()) {
	switch result.SubstitutedBy {
	case bypassed:
		next()
	case r:
		end()
		result.SubstitutedBy = bypassed
		next()
		result.SubstitutedBy = r
	default:
		end()
		next()
	}
}

func (r *Registration) wrapExecution(exec *evm.ExecutionHandler) {
	insp := r.insp

	prevCall := exec.Call
	exec.Call = func(ctx *evm.Context, inputs *vm.CallInputs) (evm.FrameOrResult, error) {
		outcome := insp.Call(ctx, inputs)
		r.calls.push(inputs.Clone())
		if outcome != nil {
			res := evm.NewCallResult(*outcome)
			res.SubstitutedBy = r
			return evm.FrameOrResult{Result: res}, nil
		}
		res, err := prevCall(ctx, inputs)
		if err != nil {
			r.calls.pop()
			return res, err
		}
		if res.IsFrame() {
			insp.InitializeInterp(res.Frame.Interpreter, ctx)
		}
		return res, nil
	}

	prevCreate := exec.Create
	exec.Create = func(ctx *evm.Context, inputs *vm.CreateInputs) (evm.FrameOrResult, error) {
		outcome := insp.Create(ctx, inputs)
		r.creates.push(inputs.Clone())
		if outcome != nil {
			res := evm.NewCreateResult(*outcome)
			res.SubstitutedBy = r
			return evm.FrameOrResult{Result: res}, nil
		}
		res, err := prevCreate(ctx, inputs)
		if err != nil {
			r.creates.pop()
			return res, err
		}
		if res.IsFrame() {
			insp.InitializeInterp(res.Frame.Interpreter, ctx)
		}
		return res, nil
	}

	endCall := func(ctx *evm.Context, result *evm.FrameResult) func() {
		return func() { *result.Call = insp.CallEnd(ctx, r.calls.pop(), *result.Call) }
	}
	endCreate := func(ctx *evm.Context, result *evm.FrameResult) func() {
		return func() { *result.Create = insp.CreateEnd(ctx, r.creates.pop(), *result.Create) }
	}

	prevInsertCall := exec.InsertCallOutcome
	exec.InsertCallOutcome = func(ctx *evm.Context, frame *evm.Frame, result *evm.FrameResult) {
		r.finish(result, endCall(ctx, result), func() { prevInsertCall(ctx, frame, result) })
	}

	prevInsertCreate := exec.InsertCreateOutcome
	exec.InsertCreateOutcome = func(ctx *evm.Context, frame *evm.Frame, result *evm.FrameResult) {
		r.finish(result, endCreate(ctx, result), func() { prevInsertCreate(ctx, frame, result) })
	}

	prevLast := exec.LastFrameReturn
	exec.LastFrameReturn = func(ctx *evm.Context, result *evm.FrameResult) {
		end := endCall(ctx, result)
		if result.Kind == evm.FrameCreate {
			end = endCreate(ctx, result)
		}
		r.finish(result, end, func() { prevLast(ctx, result) })
	}
}
