package vm

import "github.com/holiman/uint256"

// Instruction is one entry of an InstructionTable. It runs with the
// program counter already advanced past the opcode byte.
type Instruction func(in *Interpreter, host Host)

// InstructionTable maps every opcode byte to its instruction. A table is
// built once per spec by NewInstructionTable and may then be wrapped entry
// by entry, e.g. by an inspector.
type InstructionTable [256]Instruction

// Interpreter runs the bytecode of a single frame. It never recurses: when
// the code asks for a child call or create, Run returns that request and
// the frame driver resumes the interpreter once the child's outcome has
// been inserted.
type Interpreter struct {
	Contract   *Contract
	Gas        Gas
	Stack      *Stack
	Memory     *Memory
	ReturnData []byte // output of the most recent child frame
	IsStatic   bool

	Result     InstructionResult
	NextAction InterpreterAction

	pc     uint64
	output []byte
}

// NewInterpreter prepares contract for execution with gasLimit gas.
func NewInterpreter(contract *Contract, gasLimit uint64, isStatic bool) *Interpreter {
	return &Interpreter{
		Contract: contract,
		Gas:      NewGas(gasLimit),
		Stack:    NewStack(),
		Memory:   NewMemory(),
		IsStatic: isStatic,
	}
}

// PC returns the program counter. While an instruction body runs it points
// one byte past the opcode being executed.
func (in *Interpreter) PC() uint64 {
	return in.pc
}

// Output returns the data set by RETURN or REVERT.
func (in *Interpreter) Output() []byte {
	return in.output
}

// Halt stops the interpreter with result.
func (in *Interpreter) Halt(result InstructionResult) {
	in.Result = result
}

// Step decodes and executes the instruction at the program counter.
func (in *Interpreter) Step(table *InstructionTable, host Host) {
	op := in.Contract.GetOp(in.pc)
	in.pc++
	table[op](in, host)
}

// Run executes until the interpreter halts or yields a child call or
// create.
func (in *Interpreter) Run(table *InstructionTable, host Host) InterpreterAction {
	in.NextAction = InterpreterAction{}
	for in.Result == Continue {
		in.Step(table, host)
	}
	if in.Result == CallOrCreate && in.NextAction.Kind != ActionNone {
		return in.NextAction
	}
	return InterpreterAction{
		Kind: ActionReturn,
		Result: &InterpreterResult{
			Result: in.Result,
			Output: in.output,
			Gas:    in.Gas,
		},
	}
}

// InsertCallOutcome resumes the interpreter after a child call: unused gas
// comes back, the output is copied to the reserved memory region and the
// success flag is pushed.
func (in *Interpreter) InsertCallOutcome(outcome CallOutcome) {
	in.Result = Continue
	in.ReturnData = outcome.Output()

	region := outcome.MemoryOffset
	n := min(region.Length, uint64(len(in.ReturnData)))

	res := outcome.Result
	switch {
	case res.IsOk():
		in.Gas.EraseCost(res.Gas.Remaining())
		in.Gas.RecordRefund(res.Gas.Refunded())
		in.Memory.Set(region.Offset, in.ReturnData[:n])
		in.Stack.PushUint64(1)
	case res.IsRevert():
		in.Gas.EraseCost(res.Gas.Remaining())
		in.Memory.Set(region.Offset, in.ReturnData[:n])
		in.Stack.PushUint64(0)
	case res.Result == FatalExternalError:
		in.Halt(FatalExternalError)
	default:
		in.Stack.PushUint64(0)
	}
}

// InsertCreateOutcome resumes the interpreter after a child create and
// pushes the new address, or zero on failure.
func (in *Interpreter) InsertCreateOutcome(outcome CreateOutcome) {
	in.Result = Continue

	res := outcome.Result
	if res.IsRevert() {
		in.ReturnData = res.Output
	} else {
		in.ReturnData = nil
	}

	switch {
	case res.IsOk():
		var addr uint256.Int
		if outcome.Address != nil {
			addr.SetBytes(outcome.Address.Bytes())
		}
		in.Stack.Push(&addr)
		in.Gas.EraseCost(res.Gas.Remaining())
		in.Gas.RecordRefund(res.Gas.Refunded())
	case res.IsRevert():
		in.Stack.PushUint64(0)
		in.Gas.EraseCost(res.Gas.Remaining())
	case res.Result == FatalExternalError:
		in.Halt(FatalExternalError)
	default:
		in.Stack.PushUint64(0)
	}
}

func (in *Interpreter) useGas(cost uint64) bool {
	if !in.Gas.RecordCost(cost) {
		in.Halt(OutOfGas)
		return false
	}
	return true
}

// resizeMemory charges for and performs the expansion needed to cover
// [offset, offset+size). A zero size touches nothing.
func (in *Interpreter) resizeMemory(offset, size *uint256.Int) (uint64, uint64, bool) {
	if size.IsZero() {
		return 0, 0, true
	}
	if !offset.IsUint64() || !size.IsUint64() {
		in.Halt(InvalidOperandOOG)
		return 0, 0, false
	}
	off, sz := offset.Uint64(), size.Uint64()
	if off > maxMemorySize || sz > maxMemorySize || off+sz > maxMemorySize {
		in.Halt(MemoryLimitOOG)
		return 0, 0, false
	}
	if !in.Gas.RecordCost(in.Memory.expansionCost(off + sz)) {
		in.Halt(MemoryOOG)
		return 0, 0, false
	}
	in.Memory.Resize(off + sz)
	return off, sz, true
}
