package vm

import (
	"math"

	"github.com/ethereum/go-ethereum/crypto"
	"github.com/holiman/uint256"

	"github.com/eth2030/evmcore/params"
)

func toWords(size uint64) uint64 {
	return (size + 31) / 32
}

func clampUint64(x *uint256.Int) uint64 {
	if !x.IsUint64() {
		return math.MaxUint64
	}
	return x.Uint64()
}

func opStop(in *Interpreter, _ Host) {
	in.Halt(Stop)
}

func opAdd(in *Interpreter, _ Host) {
	x, y := in.Stack.Pop(), in.Stack.Peek()
	y.Add(&x, y)
}

func opMul(in *Interpreter, _ Host) {
	x, y := in.Stack.Pop(), in.Stack.Peek()
	y.Mul(&x, y)
}

func opSub(in *Interpreter, _ Host) {
	x, y := in.Stack.Pop(), in.Stack.Peek()
	y.Sub(&x, y)
}

func opDiv(in *Interpreter, _ Host) {
	x, y := in.Stack.Pop(), in.Stack.Peek()
	y.Div(&x, y)
}

func opSdiv(in *Interpreter, _ Host) {
	x, y := in.Stack.Pop(), in.Stack.Peek()
	y.SDiv(&x, y)
}

func opMod(in *Interpreter, _ Host) {
	x, y := in.Stack.Pop(), in.Stack.Peek()
	y.Mod(&x, y)
}

func opSmod(in *Interpreter, _ Host) {
	x, y := in.Stack.Pop(), in.Stack.Peek()
	y.SMod(&x, y)
}

func opAddmod(in *Interpreter, _ Host) {
	x, y, z := in.Stack.Pop(), in.Stack.Pop(), in.Stack.Peek()
	z.AddMod(&x, &y, z)
}

func opMulmod(in *Interpreter, _ Host) {
	x, y, z := in.Stack.Pop(), in.Stack.Pop(), in.Stack.Peek()
	z.MulMod(&x, &y, z)
}

func makeExp(spec params.SpecID) func(*Interpreter, Host) {
	byteGas := params.ExpByteFrontier
	if spec.IsEnabledIn(params.SpuriousDragon) {
		byteGas = params.ExpByteEIP158
	}
	return func(in *Interpreter, _ Host) {
		base, exp := in.Stack.Pop(), in.Stack.Peek()
		if !in.useGas(uint64(exp.ByteLen()) * byteGas) {
			return
		}
		exp.Exp(&base, exp)
	}
}

func opSignExtend(in *Interpreter, _ Host) {
	back, num := in.Stack.Pop(), in.Stack.Peek()
	num.ExtendSign(num, &back)
}

func setBool(z *uint256.Int, b bool) {
	if b {
		z.SetOne()
	} else {
		z.Clear()
	}
}

func opLt(in *Interpreter, _ Host) {
	x, y := in.Stack.Pop(), in.Stack.Peek()
	setBool(y, x.Lt(y))
}

func opGt(in *Interpreter, _ Host) {
	x, y := in.Stack.Pop(), in.Stack.Peek()
	setBool(y, x.Gt(y))
}

func opSlt(in *Interpreter, _ Host) {
	x, y := in.Stack.Pop(), in.Stack.Peek()
	setBool(y, x.Slt(y))
}

func opSgt(in *Interpreter, _ Host) {
	x, y := in.Stack.Pop(), in.Stack.Peek()
	setBool(y, x.Sgt(y))
}

func opEq(in *Interpreter, _ Host) {
	x, y := in.Stack.Pop(), in.Stack.Peek()
	setBool(y, x.Eq(y))
}

func opIszero(in *Interpreter, _ Host) {
	x := in.Stack.Peek()
	setBool(x, x.IsZero())
}

func opAnd(in *Interpreter, _ Host) {
	x, y := in.Stack.Pop(), in.Stack.Peek()
	y.And(&x, y)
}

func opOr(in *Interpreter, _ Host) {
	x, y := in.Stack.Pop(), in.Stack.Peek()
	y.Or(&x, y)
}

func opXor(in *Interpreter, _ Host) {
	x, y := in.Stack.Pop(), in.Stack.Peek()
	y.Xor(&x, y)
}

func opNot(in *Interpreter, _ Host) {
	x := in.Stack.Peek()
	x.Not(x)
}

func opByte(in *Interpreter, _ Host) {
	th, val := in.Stack.Pop(), in.Stack.Peek()
	val.Byte(&th)
}

func opShl(in *Interpreter, _ Host) {
	shift, value := in.Stack.Pop(), in.Stack.Peek()
	if shift.LtUint64(256) {
		value.Lsh(value, uint(shift.Uint64()))
	} else {
		value.Clear()
	}
}

func opShr(in *Interpreter, _ Host) {
	shift, value := in.Stack.Pop(), in.Stack.Peek()
	if shift.LtUint64(256) {
		value.Rsh(value, uint(shift.Uint64()))
	} else {
		value.Clear()
	}
}

func opSar(in *Interpreter, _ Host) {
	shift, value := in.Stack.Pop(), in.Stack.Peek()
	if shift.GtUint64(255) {
		if value.Sign() >= 0 {
			value.Clear()
		} else {
			value.SetAllOne()
		}
		return
	}
	value.SRsh(value, uint(shift.Uint64()))
}

func opKeccak256(in *Interpreter, _ Host) {
	offset, size := in.Stack.Pop(), in.Stack.Peek()
	off, sz, ok := in.resizeMemory(&offset, size)
	if !ok || !in.useGas(toWords(sz)*params.Keccak256WordGas) {
		return
	}
	size.SetBytes(crypto.Keccak256(in.Memory.Slice(off, sz)))
}

func opPop(in *Interpreter, _ Host) {
	in.Stack.Pop()
}

func opMload(in *Interpreter, _ Host) {
	v := in.Stack.Peek()
	off, _, ok := in.resizeMemory(v, uint256.NewInt(32))
	if !ok {
		return
	}
	v.SetBytes(in.Memory.Slice(off, 32))
}

func opMstore(in *Interpreter, _ Host) {
	offset, val := in.Stack.Pop(), in.Stack.Pop()
	off, _, ok := in.resizeMemory(&offset, uint256.NewInt(32))
	if !ok {
		return
	}
	in.Memory.Set32(off, &val)
}

func opMstore8(in *Interpreter, _ Host) {
	offset, val := in.Stack.Pop(), in.Stack.Pop()
	off, _, ok := in.resizeMemory(&offset, uint256.NewInt(1))
	if !ok {
		return
	}
	in.Memory.Set(off, []byte{byte(val.Uint64())})
}

func opMcopy(in *Interpreter, _ Host) {
	dst, src, length := in.Stack.Pop(), in.Stack.Pop(), in.Stack.Pop()
	if length.IsZero() {
		return
	}
	if !src.IsUint64() || !dst.IsUint64() {
		in.Halt(InvalidOperandOOG)
		return
	}
	// Expand once to cover whichever of the two ranges ends later.
	far := dst
	if src.Gt(&dst) {
		far = src
	}
	if _, _, ok := in.resizeMemory(&far, &length); !ok {
		return
	}
	sz := length.Uint64()
	if !in.useGas(toWords(sz) * params.CopyGas) {
		return
	}
	in.Memory.Copy(dst.Uint64(), src.Uint64(), sz)
}

func opJump(in *Interpreter, _ Host) {
	dest := in.Stack.Pop()
	if !in.Contract.ValidJumpdest(&dest) {
		in.Halt(InvalidJump)
		return
	}
	in.pc = dest.Uint64()
}

func opJumpi(in *Interpreter, _ Host) {
	dest, cond := in.Stack.Pop(), in.Stack.Pop()
	if cond.IsZero() {
		return
	}
	if !in.Contract.ValidJumpdest(&dest) {
		in.Halt(InvalidJump)
		return
	}
	in.pc = dest.Uint64()
}

func opJumpdest(*Interpreter, Host) {}

func opPc(in *Interpreter, _ Host) {
	in.Stack.PushUint64(in.pc - 1)
}

func opMsize(in *Interpreter, _ Host) {
	in.Stack.PushUint64(uint64(in.Memory.Len()))
}

func opGas(in *Interpreter, _ Host) {
	in.Stack.PushUint64(in.Gas.Remaining())
}

func opPush0(in *Interpreter, _ Host) {
	in.Stack.PushUint64(0)
}

// makePush reads size immediate bytes after the opcode. Bytes missing past
// the end of code read as zero.
func makePush(size int) func(*Interpreter, Host) {
	return func(in *Interpreter, _ Host) {
		var buf [32]byte
		code := in.Contract.Code
		if start := in.pc; start < uint64(len(code)) {
			end := min(start+uint64(size), uint64(len(code)))
			copy(buf[32-size:], code[start:end])
		}
		in.Stack.PushBytes(buf[:])
		in.pc += uint64(size)
	}
}

func makeDup(n int) func(*Interpreter, Host) {
	return func(in *Interpreter, _ Host) {
		in.Stack.Dup(n)
	}
}

func makeSwap(n int) func(*Interpreter, Host) {
	return func(in *Interpreter, _ Host) {
		in.Stack.Swap(n)
	}
}

func opReturn(in *Interpreter, _ Host) {
	haltWithOutput(in, Return)
}

func opRevert(in *Interpreter, _ Host) {
	haltWithOutput(in, Revert)
}

func haltWithOutput(in *Interpreter, result InstructionResult) {
	offset, size := in.Stack.Pop(), in.Stack.Pop()
	off, sz, ok := in.resizeMemory(&offset, &size)
	if !ok {
		return
	}
	in.output = in.Memory.Get(off, sz)
	in.Halt(result)
}

func opInvalid(in *Interpreter, _ Host) {
	in.Halt(InvalidFEOpcode)
}

func opUndefined(in *Interpreter, _ Host) {
	in.Halt(OpcodeNotFound)
}

func opNotActivated(in *Interpreter, _ Host) {
	in.Halt(NotActivated)
}
