// Package inspector splices an observer into the instruction table and the
// execution handlers of an evm.Handler. The observer sees every step, log,
// self-destruct and frame boundary, and may halt a step or replace the
// outcome of a call or create.
package inspector

import (
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"
	"github.com/holiman/uint256"

	"github.com/eth2030/evmcore/core/evm"
	"github.com/eth2030/evmcore/core/vm"
)

// Inspector observes execution. Implementations usually embed NoOpInspector
// and override what they need.
type Inspector interface {
	// InitializeInterp is called once for every frame that is about to
	// start interpreting.
	InitializeInterp(interp *vm.Interpreter, ctx *evm.Context)

	// Step is called before each instruction with the offset of its
	// opcode. Halting the interpreter here skips the instruction and
	// StepEnd.
	Step(interp *vm.Interpreter, pc uint64, ctx *evm.Context)
	// StepEnd is called after each instruction.
	StepEnd(interp *vm.Interpreter, ctx *evm.Context)

	// Log is called for every log actually emitted.
	Log(ctx *evm.Context, log *types.Log)

	// Call may modify inputs, or return a non-nil outcome to resolve the
	// call without running it.
	Call(ctx *evm.Context, inputs *vm.CallInputs) *vm.CallOutcome
	// CallEnd sees the outcome of a call and returns the outcome the
	// caller will observe.
	CallEnd(ctx *evm.Context, inputs *vm.CallInputs, outcome vm.CallOutcome) vm.CallOutcome

	Create(ctx *evm.Context, inputs *vm.CreateInputs) *vm.CreateOutcome
	CreateEnd(ctx *evm.Context, inputs *vm.CreateInputs, outcome vm.CreateOutcome) vm.CreateOutcome

	// SelfDestruct is called when contract is marked for destruction.
	SelfDestruct(contract, target common.Address, value uint256.Int)
}

// NoOpInspector observes nothing and changes nothing.
type NoOpInspector struct{}

func (NoOpInspector) InitializeInterp(*vm.Interpreter, *evm.Context)   {}
func (NoOpInspector) Step(*vm.Interpreter, uint64, *evm.Context)       {}
func (NoOpInspector) StepEnd(*vm.Interpreter, *evm.Context)            {}
func (NoOpInspector) Log(*evm.Context, *types.Log)                     {}
func (NoOpInspector) Call(*evm.Context, *vm.CallInputs) *vm.CallOutcome { return nil }
func (NoOpInspector) CallEnd(_ *evm.Context, _ *vm.CallInputs, o vm.CallOutcome) vm.CallOutcome {
	return o
}
func (NoOpInspector) Create(*evm.Context, *vm.CreateInputs) *vm.CreateOutcome { return nil }
func (NoOpInspector) CreateEnd(_ *evm.Context, _ *vm.CreateInputs, o vm.CreateOutcome) vm.CreateOutcome {
	return o
}
func (NoOpInspector) SelfDestruct(common.Address, common.Address, uint256.Int) {}

var _ Inspector = NoOpInspector{}
