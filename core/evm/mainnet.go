package evm

import (
	"errors"

	"github.com/eth2030/evmcore/core/state"
	"github.com/eth2030/evmcore/core/vm"
	"github.com/eth2030/evmcore/params"
)

// MakeCallFrame opens a checkpoint and moves the call value. Calls that
// need no interpretation (too deep, unaffordable, precompiled or code-less
// targets) resolve immediately. Only database failures are returned as
// errors.
func MakeCallFrame(ctx *Context, inputs *vm.CallInputs) (FrameOrResult, error) {
	immediate := func(res vm.InterpreterResult) (FrameOrResult, error) {
		return resultOf(NewCallResult(vm.NewCallOutcome(res, inputs.ReturnMemoryOffset))), nil
	}
	if uint64(ctx.Depth()) > params.CallCreateDepth {
		return immediate(vm.InterpreterResult{Result: vm.CallTooDeep, Gas: vm.NewGas(inputs.GasLimit)})
	}

	j := ctx.Journal
	cp := j.Checkpoint()
	if value, ok := inputs.Value.TransferValue(); ok {
		if err := j.Transfer(inputs.Caller, inputs.TargetAddress, value); err != nil {
			j.CheckpointRevert(cp)
			r, known := stateErrorResult(err)
			if !known {
				return FrameOrResult{}, err
			}
			return immediate(vm.InterpreterResult{Result: r, Gas: vm.NewGas(inputs.GasLimit)})
		}
	} else if _, _, err := j.LoadAccount(inputs.TargetAddress); err != nil {
		j.CheckpointRevert(cp)
		return FrameOrResult{}, err
	}

	if pc, ok := ctx.Precompiles.Get(inputs.BytecodeAddress); ok {
		res := vm.RunPrecompile(pc, inputs.Input, inputs.GasLimit)
		if res.IsOk() {
			j.CheckpointCommit()
		} else {
			j.CheckpointRevert(cp)
		}
		return immediate(res)
	}

	acc, _, err := j.LoadCode(inputs.BytecodeAddress)
	if err != nil {
		j.CheckpointRevert(cp)
		return FrameOrResult{}, err
	}
	if len(acc.Info.Code) == 0 {
		j.CheckpointCommit()
		return immediate(vm.InterpreterResult{Result: vm.Stop, Gas: vm.NewGas(inputs.GasLimit)})
	}

	contract := vm.NewContractFromCall(inputs, acc.Info.Code, acc.Info.CodeHash)
	interp := vm.NewInterpreter(contract, inputs.GasLimit, inputs.IsStatic)
	return frameOf(newCallFrame(cp, interp, inputs.ReturnMemoryOffset)), nil
}

// MakeCreateFrame bumps the caller nonce, derives the new address and opens
// the create checkpoint. Failed preconditions resolve immediately with the
// whole gas limit unused.
func MakeCreateFrame(ctx *Context, inputs *vm.CreateInputs) (FrameOrResult, error) {
	immediate := func(r vm.InstructionResult) (FrameOrResult, error) {
		res := vm.InterpreterResult{Result: r, Gas: vm.NewGas(inputs.GasLimit)}
		return resultOf(NewCreateResult(vm.NewCreateOutcome(res, nil))), nil
	}
	if uint64(ctx.Depth()) > params.CallCreateDepth {
		return immediate(vm.CallTooDeep)
	}

	j := ctx.Journal
	caller, _, err := j.LoadAccount(inputs.Caller)
	if err != nil {
		return FrameOrResult{}, err
	}
	if caller.Info.Balance.Lt(&inputs.Value) {
		return immediate(vm.OutOfFunds)
	}
	nonce, err := j.IncNonce(inputs.Caller)
	if err != nil {
		return immediate(vm.NonceOverflow)
	}

	addr := inputs.CreatedAddress(nonce)
	if _, _, err := j.LoadAccount(addr); err != nil {
		return FrameOrResult{}, err
	}
	cp, err := j.CreateAccountCheckpoint(inputs.Caller, addr, inputs.Value)
	if err != nil {
		r, known := stateErrorResult(err)
		if !known {
			return FrameOrResult{}, err
		}
		return immediate(r)
	}

	contract := vm.NewContractFromCreate(inputs, addr)
	interp := vm.NewInterpreter(contract, inputs.GasLimit, false)
	return frameOf(newCreateFrame(cp, interp, addr)), nil
}

func stateErrorResult(err error) (vm.InstructionResult, bool) {
	switch {
	case errors.Is(err, state.ErrOutOfFunds):
		return vm.OutOfFunds, true
	case errors.Is(err, state.ErrOverflowPayment):
		return vm.OverflowPayment, true
	case errors.Is(err, state.ErrCreateCollision):
		return vm.CreateCollision, true
	case errors.Is(err, state.ErrNonceOverflow):
		return vm.NonceOverflow, true
	}
	return vm.Continue, false
}

// CallReturn commits the frame's checkpoint on success and reverts it
// otherwise.
func CallReturn(ctx *Context, frame *Frame, result vm.InterpreterResult) vm.CallOutcome {
	if result.IsOk() {
		ctx.Journal.CheckpointCommit()
	} else {
		ctx.Journal.CheckpointRevert(frame.Checkpoint)
	}
	return vm.NewCallOutcome(result, frame.ReturnMemoryRange)
}

// CreateReturn validates and deposits the code returned by init code. The
// outcome carries the new address only when the create succeeded.
func CreateReturn(ctx *Context, spec params.SpecID, frame *Frame, result vm.InterpreterResult) vm.CreateOutcome {
	j := ctx.Journal
	fail := func(r vm.InstructionResult) vm.CreateOutcome {
		j.CheckpointRevert(frame.Checkpoint)
		result.Result = r
		return vm.NewCreateOutcome(result, nil)
	}
	if !result.IsOk() {
		j.CheckpointRevert(frame.Checkpoint)
		return vm.NewCreateOutcome(result, nil)
	}

	code := result.Output
	// EIP-3541
	if spec.IsEnabledIn(params.London) && len(code) > 0 && code[0] == 0xEF {
		return fail(vm.CreateContractStartingWithEF)
	}
	// EIP-170
	if spec.IsEnabledIn(params.SpuriousDragon) && len(code) > params.MaxCodeSize {
		return fail(vm.CreateContractSizeLimit)
	}
	if !result.Gas.RecordCost(uint64(len(code)) * params.CreateDataGas) {
		if spec.IsEnabledIn(params.Homestead) {
			return fail(vm.OutOfGas)
		}
		// Frontier keeps the account but deploys no code.
		code = nil
		result.Output = nil
	}

	j.CheckpointCommit()
	j.SetCode(frame.CreatedAddress, code)
	result.Result = vm.Return
	addr := frame.CreatedAddress
	return vm.NewCreateOutcome(result, &addr)
}

// FrameReturnWithRefundFlag settles the outermost frame's gas against the
// transaction gas limit. The whole limit is charged first; success gives
// back the unused gas and the frame's refund, revert gives back only the
// unused gas, and any other result forfeits everything. The refund is then
// capped per spec, or cleared when refunds are disabled.
func FrameReturnWithRefundFlag(spec params.SpecID, env *vm.Env, result *FrameResult, refundEnabled bool) {
	res := result.InterpreterResult()
	remaining := res.Gas.Remaining()
	refunded := res.Gas.Refunded()

	gas := result.Gas()
	*gas = vm.NewGas(env.Tx.GasLimit)
	gas.RecordCost(env.Tx.GasLimit)

	switch {
	case res.IsOk():
		gas.EraseCost(remaining)
		gas.RecordRefund(refunded)
	case res.IsRevert():
		gas.EraseCost(remaining)
	}
	gas.SetFinalRefund(spec, refundEnabled)
}
