package vm

import (
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"
	"github.com/holiman/uint256"

	"github.com/eth2030/evmcore/params"
)

func toAddress(x *uint256.Int) common.Address {
	return common.Address(x.Bytes20())
}

// accessCost prices an account access: legacy before Berlin, warm or cold
// from Berlin on.
func accessCost(spec params.SpecID, isCold bool, legacy uint64) uint64 {
	if !spec.IsEnabledIn(params.Berlin) {
		return legacy
	}
	if isCold {
		return params.ColdAccountAccessCostEIP2929
	}
	return params.WarmStorageReadCostEIP2929
}

func opAddress(in *Interpreter, _ Host) {
	in.Stack.PushBytes(in.Contract.Address.Bytes())
}

func opOrigin(in *Interpreter, host Host) {
	in.Stack.PushBytes(host.Env().Tx.Caller.Bytes())
}

func opCaller(in *Interpreter, _ Host) {
	in.Stack.PushBytes(in.Contract.Caller.Bytes())
}

func opCallValue(in *Interpreter, _ Host) {
	in.Stack.Push(&in.Contract.Value)
}

func opCallDataLoad(in *Interpreter, _ Host) {
	x := in.Stack.Peek()
	var buf [32]byte
	if off := clampUint64(x); off < uint64(len(in.Contract.Input)) {
		copy(buf[:], in.Contract.Input[off:])
	}
	x.SetBytes32(buf[:])
}

func opCallDataSize(in *Interpreter, _ Host) {
	in.Stack.PushUint64(uint64(len(in.Contract.Input)))
}

// copyToMemory implements the shared tail of the *COPY instructions.
func copyToMemory(in *Interpreter, data []byte) {
	memOffset, dataOffset, length := in.Stack.Pop(), in.Stack.Pop(), in.Stack.Pop()
	off, sz, ok := in.resizeMemory(&memOffset, &length)
	if !ok || !in.useGas(toWords(sz)*params.CopyGas) {
		return
	}
	in.Memory.SetData(off, clampUint64(&dataOffset), sz, data)
}

func opCallDataCopy(in *Interpreter, _ Host) {
	copyToMemory(in, in.Contract.Input)
}

func opCodeSize(in *Interpreter, _ Host) {
	in.Stack.PushUint64(uint64(len(in.Contract.Code)))
}

func opCodeCopy(in *Interpreter, _ Host) {
	copyToMemory(in, in.Contract.Code)
}

func opGasPrice(in *Interpreter, host Host) {
	price := host.Env().EffectiveGasPrice()
	in.Stack.Push(&price)
}

func opReturnDataSize(in *Interpreter, _ Host) {
	in.Stack.PushUint64(uint64(len(in.ReturnData)))
}

func opReturnDataCopy(in *Interpreter, _ Host) {
	memOffset, dataOffset, length := in.Stack.Pop(), in.Stack.Pop(), in.Stack.Pop()
	end, overflow := new(uint256.Int).AddOverflow(&dataOffset, &length)
	if overflow || !end.IsUint64() || end.Uint64() > uint64(len(in.ReturnData)) {
		in.Halt(OutOfOffset)
		return
	}
	off, sz, ok := in.resizeMemory(&memOffset, &length)
	if !ok || !in.useGas(toWords(sz)*params.CopyGas) {
		return
	}
	in.Memory.SetData(off, dataOffset.Uint64(), sz, in.ReturnData)
}

func makeBalance(spec params.SpecID) func(*Interpreter, Host) {
	legacy := params.BalanceGasFrontier
	switch {
	case spec.IsEnabledIn(params.Istanbul):
		legacy = params.BalanceGasEIP1884
	case spec.IsEnabledIn(params.Tangerine):
		legacy = params.BalanceGasEIP150
	}
	return func(in *Interpreter, host Host) {
		x := in.Stack.Peek()
		balance, isCold, ok := host.Balance(toAddress(x))
		if !ok {
			in.Halt(FatalExternalError)
			return
		}
		if !in.useGas(accessCost(spec, isCold, legacy)) {
			return
		}
		x.Set(&balance)
	}
}

func opSelfBalance(in *Interpreter, host Host) {
	balance, _, ok := host.Balance(in.Contract.Address)
	if !ok {
		in.Halt(FatalExternalError)
		return
	}
	in.Stack.Push(&balance)
}

func makeExtCodeSize(spec params.SpecID) func(*Interpreter, Host) {
	legacy := params.ExtcodeSizeGasFrontier
	if spec.IsEnabledIn(params.Tangerine) {
		legacy = params.ExtcodeSizeGasEIP150
	}
	return func(in *Interpreter, host Host) {
		x := in.Stack.Peek()
		code, isCold, ok := host.Code(toAddress(x))
		if !ok {
			in.Halt(FatalExternalError)
			return
		}
		if !in.useGas(accessCost(spec, isCold, legacy)) {
			return
		}
		x.SetUint64(uint64(len(code)))
	}
}

func makeExtCodeCopy(spec params.SpecID) func(*Interpreter, Host) {
	legacy := params.ExtcodeCopyBaseFrontier
	if spec.IsEnabledIn(params.Tangerine) {
		legacy = params.ExtcodeCopyBaseEIP150
	}
	return func(in *Interpreter, host Host) {
		a := in.Stack.Pop()
		code, isCold, ok := host.Code(toAddress(&a))
		if !ok {
			in.Halt(FatalExternalError)
			return
		}
		if !in.useGas(accessCost(spec, isCold, legacy)) {
			return
		}
		copyToMemory(in, code)
	}
}

func makeExtCodeHash(spec params.SpecID) func(*Interpreter, Host) {
	legacy := params.ExtcodeHashGasConstantinople
	if spec.IsEnabledIn(params.Istanbul) {
		legacy = params.ExtcodeHashGasEIP1884
	}
	return func(in *Interpreter, host Host) {
		x := in.Stack.Peek()
		hash, isCold, ok := host.CodeHash(toAddress(x))
		if !ok {
			in.Halt(FatalExternalError)
			return
		}
		if !in.useGas(accessCost(spec, isCold, legacy)) {
			return
		}
		x.SetBytes(hash.Bytes())
	}
}

func opCoinbase(in *Interpreter, host Host) {
	in.Stack.PushBytes(host.Env().Block.Coinbase.Bytes())
}

func opTimestamp(in *Interpreter, host Host) {
	in.Stack.PushUint64(host.Env().Block.Timestamp)
}

func opNumber(in *Interpreter, host Host) {
	in.Stack.PushUint64(host.Env().Block.Number)
}

func opPrevRandao(in *Interpreter, host Host) {
	in.Stack.PushBytes(host.Env().Block.PrevRandao.Bytes())
}

func opGasLimit(in *Interpreter, host Host) {
	in.Stack.PushUint64(host.Env().Block.GasLimit)
}

func opChainID(in *Interpreter, host Host) {
	in.Stack.PushUint64(host.Env().Cfg.ChainID)
}

func opBaseFee(in *Interpreter, host Host) {
	fee := host.Env().Block.BaseFee
	in.Stack.Push(&fee)
}

func makeSload(spec params.SpecID) func(*Interpreter, Host) {
	legacy := params.SloadGasFrontier
	switch {
	case spec.IsEnabledIn(params.Istanbul):
		legacy = params.SloadGasEIP1884
	case spec.IsEnabledIn(params.Tangerine):
		legacy = params.SloadGasEIP150
	}
	return func(in *Interpreter, host Host) {
		key := in.Stack.Peek()
		value, isCold, ok := host.SLoad(in.Contract.Address, *key)
		if !ok {
			in.Halt(FatalExternalError)
			return
		}
		cost := legacy
		if spec.IsEnabledIn(params.Berlin) {
			cost = params.WarmStorageReadCostEIP2929
			if isCold {
				cost = params.ColdSloadCostEIP2929
			}
		}
		if !in.useGas(cost) {
			return
		}
		key.Set(&value)
	}
}

func makeSstore(spec params.SpecID) func(*Interpreter, Host) {
	return func(in *Interpreter, host Host) {
		if in.IsStatic {
			in.Halt(StateChangeDuringStaticCall)
			return
		}
		key, val := in.Stack.Pop(), in.Stack.Pop()
		// EIP-2200 sentry: a stipend-only frame may not write storage.
		if spec.IsEnabledIn(params.Istanbul) && in.Gas.Remaining() <= params.SstoreSentryGasEIP2200 {
			in.Halt(OutOfGas)
			return
		}
		res, ok := host.SStore(in.Contract.Address, key, val)
		if !ok {
			in.Halt(FatalExternalError)
			return
		}
		if !in.useGas(sstoreCost(spec, &res)) {
			return
		}
		in.Gas.RecordRefund(sstoreRefund(spec, &res))
	}
}

// sstoreGasSchedule returns the warm read, set and reset prices for spec.
func sstoreGasSchedule(spec params.SpecID) (sload, set, reset uint64) {
	if spec.IsEnabledIn(params.Berlin) {
		return params.WarmStorageReadCostEIP2929, params.SstoreSetGasEIP2200,
			params.SstoreResetGasEIP2200 - params.ColdSloadCostEIP2929
	}
	return params.SloadGasEIP2200, params.SstoreSetGasEIP2200, params.SstoreResetGasEIP2200
}

func sstoreCost(spec params.SpecID, r *SStoreResult) uint64 {
	if !spec.IsEnabledIn(params.Istanbul) {
		if r.Present.IsZero() && !r.New.IsZero() {
			return params.SstoreSetGas
		}
		return params.SstoreResetGas
	}
	sload, set, reset := sstoreGasSchedule(spec)
	var cost uint64
	switch {
	case r.New.Eq(&r.Present):
		cost = sload
	case r.Original.Eq(&r.Present) && r.Original.IsZero():
		cost = set
	case r.Original.Eq(&r.Present):
		cost = reset
	default:
		cost = sload
	}
	if spec.IsEnabledIn(params.Berlin) && r.IsCold {
		cost += params.ColdSloadCostEIP2929
	}
	return cost
}

func sstoreRefund(spec params.SpecID, r *SStoreResult) int64 {
	if !spec.IsEnabledIn(params.Istanbul) {
		if !r.Present.IsZero() && r.New.IsZero() {
			return int64(params.SstoreRefundGas)
		}
		return 0
	}
	clearRefund := int64(params.SstoreClearsScheduleRefundEIP2200)
	if spec.IsEnabledIn(params.London) {
		clearRefund = int64(params.SstoreClearsScheduleRefundEIP3529)
	}
	if r.New.Eq(&r.Present) {
		return 0
	}
	if r.Original.Eq(&r.Present) {
		if !r.Original.IsZero() && r.New.IsZero() {
			return clearRefund
		}
		return 0
	}

	var refund int64
	if !r.Original.IsZero() {
		if r.Present.IsZero() {
			refund -= clearRefund
		} else if r.New.IsZero() {
			refund += clearRefund
		}
	}
	if r.Original.Eq(&r.New) {
		sload, set, reset := sstoreGasSchedule(spec)
		if r.Original.IsZero() {
			refund += int64(set - sload)
		} else {
			refund += int64(reset - sload)
		}
	}
	return refund
}

func makeLog(n int) func(*Interpreter, Host) {
	return func(in *Interpreter, host Host) {
		if in.IsStatic {
			in.Halt(StateChangeDuringStaticCall)
			return
		}
		offset, size := in.Stack.Pop(), in.Stack.Pop()
		off, sz, ok := in.resizeMemory(&offset, &size)
		if !ok || !in.useGas(sz*params.LogDataGas) {
			return
		}
		topics := make([]common.Hash, n)
		for i := range topics {
			t := in.Stack.Pop()
			topics[i] = t.Bytes32()
		}
		host.Log(&types.Log{
			Address: in.Contract.Address,
			Topics:  topics,
			Data:    in.Memory.Get(off, sz),
		})
	}
}

func makeSelfDestruct(spec params.SpecID) func(*Interpreter, Host) {
	return func(in *Interpreter, host Host) {
		if in.IsStatic {
			in.Halt(StateChangeDuringStaticCall)
			return
		}
		t := in.Stack.Pop()
		res, ok := host.SelfDestruct(in.Contract.Address, toAddress(&t))
		if !ok {
			in.Halt(FatalExternalError)
			return
		}
		var cost uint64
		if spec.IsEnabledIn(params.Tangerine) {
			cost = params.SelfdestructGasEIP150
			newAccount := !res.TargetExists
			if spec.IsEnabledIn(params.SpuriousDragon) {
				newAccount = newAccount && res.HadValue
			}
			if newAccount {
				cost += params.CreateBySelfdestructGas
			}
		}
		if spec.IsEnabledIn(params.Berlin) && res.IsCold {
			cost += params.ColdAccountAccessCostEIP2929
		}
		if !in.useGas(cost) {
			return
		}
		if !spec.IsEnabledIn(params.London) && !res.PreviouslyDestroyed {
			in.Gas.RecordRefund(int64(params.SelfdestructRefundGas))
		}
		in.Halt(SelfDestruct)
	}
}
