package vm

import (
	"github.com/holiman/uint256"

	"github.com/eth2030/evmcore/params"
)

// allButOne64th is the EIP-150 cap on gas forwarded to a child frame.
func allButOne64th(gas uint64) uint64 {
	return gas - gas/64
}

func makeCreate(spec params.SpecID, kind CreateKind) func(*Interpreter, Host) {
	return func(in *Interpreter, _ Host) {
		if in.IsStatic {
			in.Halt(StateChangeDuringStaticCall)
			return
		}
		value, offset, size := in.Stack.Pop(), in.Stack.Pop(), in.Stack.Pop()
		var salt uint256.Int
		if kind == CreateKindCreate2 {
			salt = in.Stack.Pop()
		}
		in.ReturnData = nil

		off, sz, ok := in.resizeMemory(&offset, &size)
		if !ok {
			return
		}
		if spec.IsEnabledIn(params.Shanghai) {
			if sz > params.MaxInitCodeSize {
				in.Halt(CreateInitCodeSizeLimit)
				return
			}
			if !in.useGas(toWords(sz) * params.InitCodeWordGas) {
				return
			}
		}
		if kind == CreateKindCreate2 && !in.useGas(toWords(sz)*params.Keccak256WordGas) {
			return
		}

		gasLimit := in.Gas.Remaining()
		if spec.IsEnabledIn(params.Tangerine) {
			gasLimit = allButOne64th(gasLimit)
		}
		if !in.useGas(gasLimit) {
			return
		}

		in.NextAction = InterpreterAction{
			Kind: ActionCreate,
			Create: &CreateInputs{
				Caller:   in.Contract.Address,
				Scheme:   CreateScheme{Kind: kind, Salt: salt},
				Value:    value,
				InitCode: in.Memory.Get(off, sz),
				GasLimit: gasLimit,
			},
		}
		in.Halt(CallOrCreate)
	}
}

func makeCall(spec params.SpecID, scheme CallScheme) func(*Interpreter, Host) {
	legacy := params.CallGasFrontier
	if spec.IsEnabledIn(params.Tangerine) {
		legacy = params.CallGasEIP150
	}
	return func(in *Interpreter, host Host) {
		requested, addrWord := in.Stack.Pop(), in.Stack.Pop()
		var value uint256.Int
		if scheme == SchemeCall || scheme == SchemeCallCode {
			value = in.Stack.Pop()
		}
		inOffset, inSize := in.Stack.Pop(), in.Stack.Pop()
		outOffset, outSize := in.Stack.Pop(), in.Stack.Pop()

		if scheme == SchemeCall && in.IsStatic && !value.IsZero() {
			in.Halt(CallNotAllowedInsideStatic)
			return
		}
		in.ReturnData = nil

		inOff, inSz, ok := in.resizeMemory(&inOffset, &inSize)
		if !ok {
			return
		}
		outOff, outSz, ok := in.resizeMemory(&outOffset, &outSize)
		if !ok {
			return
		}

		addr := toAddress(&addrWord)
		isCold, exists, ok := host.LoadAccount(addr)
		if !ok {
			in.Halt(FatalExternalError)
			return
		}

		transfers := !value.IsZero()
		cost := accessCost(spec, isCold, legacy)
		if transfers {
			cost += params.CallValueTransferGas
		}
		if scheme == SchemeCall {
			newAccount := !exists
			if spec.IsEnabledIn(params.SpuriousDragon) {
				newAccount = newAccount && transfers
			}
			if newAccount {
				cost += params.CallNewAccountGas
			}
		}
		if !in.useGas(cost) {
			return
		}

		gasLimit := clampUint64(&requested)
		if spec.IsEnabledIn(params.Tangerine) {
			gasLimit = min(gasLimit, allButOne64th(in.Gas.Remaining()))
		}
		if !in.useGas(gasLimit) {
			return
		}
		if transfers {
			gasLimit += params.CallStipend
		}

		inputs := &CallInputs{
			Input:              in.Memory.Get(inOff, inSz),
			ReturnMemoryOffset: MemoryRange{Offset: outOff, Length: outSz},
			GasLimit:           gasLimit,
			BytecodeAddress:    addr,
			Scheme:             scheme,
			IsStatic:           in.IsStatic,
		}
		switch scheme {
		case SchemeCall:
			inputs.TargetAddress = addr
			inputs.Caller = in.Contract.Address
			inputs.Value = CallValue{Amount: value}
		case SchemeCallCode:
			inputs.TargetAddress = in.Contract.Address
			inputs.Caller = in.Contract.Address
			inputs.Value = CallValue{Amount: value}
		case SchemeDelegateCall:
			inputs.TargetAddress = in.Contract.Address
			inputs.Caller = in.Contract.Caller
			inputs.Value = CallValue{Amount: in.Contract.Value, Apparent: true}
		case SchemeStaticCall:
			inputs.TargetAddress = addr
			inputs.Caller = in.Contract.Address
			inputs.IsStatic = true
		}

		in.NextAction = InterpreterAction{Kind: ActionCall, Call: inputs}
		in.Halt(CallOrCreate)
	}
}
