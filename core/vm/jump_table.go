package vm

import "github.com/eth2030/evmcore/params"

// Fixed gas tiers.
const (
	gasZero    uint64 = 0
	gasBase    uint64 = 2
	gasVeryLow uint64 = 3
	gasLow     uint64 = 5
	gasMid     uint64 = 8
	gasHigh    uint64 = 10
)

// operation is the static description of an opcode from which its
// Instruction is compiled.
type operation struct {
	execute     func(in *Interpreter, host Host)
	constantGas uint64
	pops        int // stack items consumed
	pushes      int // stack items produced
}

type jumpTable [256]*operation

// instruction compiles op: charge the constant gas, check the stack, then
// run the body.
func (op *operation) instruction() Instruction {
	execute, constantGas, pops, pushes := op.execute, op.constantGas, op.pops, op.pushes
	return func(in *Interpreter, host Host) {
		if !in.useGas(constantGas) {
			return
		}
		if in.Stack.Len() < pops {
			in.Halt(StackUnderflow)
			return
		}
		if !in.Stack.hasRoom(pops, pushes) {
			in.Halt(StackOverflow)
			return
		}
		execute(in, host)
	}
}

// NewInstructionTable builds the instruction table for spec. Opcodes that
// exist in a later fork halt with NotActivated; unassigned bytes halt with
// OpcodeNotFound.
func NewInstructionTable(spec params.SpecID) *InstructionTable {
	ops := newFrontierOperations(spec)
	if spec.IsEnabledIn(params.Homestead) {
		enableHomestead(&ops, spec)
	}
	if spec.IsEnabledIn(params.Byzantium) {
		enableByzantium(&ops, spec)
	}
	if spec.IsEnabledIn(params.Petersburg) {
		enablePetersburg(&ops, spec)
	}
	if spec.IsEnabledIn(params.Istanbul) {
		enableIstanbul(&ops)
	}
	if spec.IsEnabledIn(params.London) {
		ops[BASEFEE] = &operation{execute: opBaseFee, constantGas: gasBase, pushes: 1}
	}
	if spec.IsEnabledIn(params.Shanghai) {
		ops[PUSH0] = &operation{execute: opPush0, constantGas: gasBase, pushes: 1}
	}
	if spec.IsEnabledIn(params.Cancun) {
		ops[MCOPY] = &operation{execute: opMcopy, constantGas: gasVeryLow, pops: 3}
	}

	var table InstructionTable
	for i := range table {
		switch {
		case ops[i] != nil:
			table[i] = ops[i].instruction()
		case laterForkOpcodes[OpCode(i)]:
			table[i] = opNotActivated
		default:
			table[i] = opUndefined
		}
	}
	return &table
}

// laterForkOpcodes are defined by some fork but may be missing from an
// older table.
var laterForkOpcodes = map[OpCode]bool{
	DELEGATECALL: true, REVERT: true, RETURNDATASIZE: true, RETURNDATACOPY: true,
	STATICCALL: true, SHL: true, SHR: true, SAR: true, EXTCODEHASH: true,
	CREATE2: true, CHAINID: true, SELFBALANCE: true, BASEFEE: true,
	PUSH0: true, MCOPY: true,
}

func newFrontierOperations(spec params.SpecID) jumpTable {
	var ops jumpTable

	ops[STOP] = &operation{execute: opStop, constantGas: gasZero}
	ops[ADD] = &operation{execute: opAdd, constantGas: gasVeryLow, pops: 2, pushes: 1}
	ops[MUL] = &operation{execute: opMul, constantGas: gasLow, pops: 2, pushes: 1}
	ops[SUB] = &operation{execute: opSub, constantGas: gasVeryLow, pops: 2, pushes: 1}
	ops[DIV] = &operation{execute: opDiv, constantGas: gasLow, pops: 2, pushes: 1}
	ops[SDIV] = &operation{execute: opSdiv, constantGas: gasLow, pops: 2, pushes: 1}
	ops[MOD] = &operation{execute: opMod, constantGas: gasLow, pops: 2, pushes: 1}
	ops[SMOD] = &operation{execute: opSmod, constantGas: gasLow, pops: 2, pushes: 1}
	ops[ADDMOD] = &operation{execute: opAddmod, constantGas: gasMid, pops: 3, pushes: 1}
	ops[MULMOD] = &operation{execute: opMulmod, constantGas: gasMid, pops: 3, pushes: 1}
	ops[EXP] = &operation{execute: makeExp(spec), constantGas: params.ExpGas, pops: 2, pushes: 1}
	ops[SIGNEXTEND] = &operation{execute: opSignExtend, constantGas: gasLow, pops: 2, pushes: 1}

	ops[LT] = &operation{execute: opLt, constantGas: gasVeryLow, pops: 2, pushes: 1}
	ops[GT] = &operation{execute: opGt, constantGas: gasVeryLow, pops: 2, pushes: 1}
	ops[SLT] = &operation{execute: opSlt, constantGas: gasVeryLow, pops: 2, pushes: 1}
	ops[SGT] = &operation{execute: opSgt, constantGas: gasVeryLow, pops: 2, pushes: 1}
	ops[EQ] = &operation{execute: opEq, constantGas: gasVeryLow, pops: 2, pushes: 1}
	ops[ISZERO] = &operation{execute: opIszero, constantGas: gasVeryLow, pops: 1, pushes: 1}
	ops[AND] = &operation{execute: opAnd, constantGas: gasVeryLow, pops: 2, pushes: 1}
	ops[OR] = &operation{execute: opOr, constantGas: gasVeryLow, pops: 2, pushes: 1}
	ops[XOR] = &operation{execute: opXor, constantGas: gasVeryLow, pops: 2, pushes: 1}
	ops[NOT] = &operation{execute: opNot, constantGas: gasVeryLow, pops: 1, pushes: 1}
	ops[BYTE] = &operation{execute: opByte, constantGas: gasVeryLow, pops: 2, pushes: 1}

	ops[KECCAK256] = &operation{execute: opKeccak256, constantGas: params.Keccak256Gas, pops: 2, pushes: 1}

	ops[ADDRESS] = &operation{execute: opAddress, constantGas: gasBase, pushes: 1}
	ops[BALANCE] = &operation{execute: makeBalance(spec), pops: 1, pushes: 1}
	ops[ORIGIN] = &operation{execute: opOrigin, constantGas: gasBase, pushes: 1}
	ops[CALLER] = &operation{execute: opCaller, constantGas: gasBase, pushes: 1}
	ops[CALLVALUE] = &operation{execute: opCallValue, constantGas: gasBase, pushes: 1}
	ops[CALLDATALOAD] = &operation{execute: opCallDataLoad, constantGas: gasVeryLow, pops: 1, pushes: 1}
	ops[CALLDATASIZE] = &operation{execute: opCallDataSize, constantGas: gasBase, pushes: 1}
	ops[CALLDATACOPY] = &operation{execute: opCallDataCopy, constantGas: gasVeryLow, pops: 3}
	ops[CODESIZE] = &operation{execute: opCodeSize, constantGas: gasBase, pushes: 1}
	ops[CODECOPY] = &operation{execute: opCodeCopy, constantGas: gasVeryLow, pops: 3}
	ops[GASPRICE] = &operation{execute: opGasPrice, constantGas: gasBase, pushes: 1}
	ops[EXTCODESIZE] = &operation{execute: makeExtCodeSize(spec), pops: 1, pushes: 1}
	ops[EXTCODECOPY] = &operation{execute: makeExtCodeCopy(spec), pops: 4}

	ops[COINBASE] = &operation{execute: opCoinbase, constantGas: gasBase, pushes: 1}
	ops[TIMESTAMP] = &operation{execute: opTimestamp, constantGas: gasBase, pushes: 1}
	ops[NUMBER] = &operation{execute: opNumber, constantGas: gasBase, pushes: 1}
	ops[PREVRANDAO] = &operation{execute: opPrevRandao, constantGas: gasBase, pushes: 1}
	ops[GASLIMIT] = &operation{execute: opGasLimit, constantGas: gasBase, pushes: 1}

	ops[POP] = &operation{execute: opPop, constantGas: gasBase, pops: 1}
	ops[MLOAD] = &operation{execute: opMload, constantGas: gasVeryLow, pops: 1, pushes: 1}
	ops[MSTORE] = &operation{execute: opMstore, constantGas: gasVeryLow, pops: 2}
	ops[MSTORE8] = &operation{execute: opMstore8, constantGas: gasVeryLow, pops: 2}
	ops[SLOAD] = &operation{execute: makeSload(spec), pops: 1, pushes: 1}
	ops[SSTORE] = &operation{execute: makeSstore(spec), pops: 2}
	ops[JUMP] = &operation{execute: opJump, constantGas: gasMid, pops: 1}
	ops[JUMPI] = &operation{execute: opJumpi, constantGas: gasHigh, pops: 2}
	ops[PC] = &operation{execute: opPc, constantGas: gasBase, pushes: 1}
	ops[MSIZE] = &operation{execute: opMsize, constantGas: gasBase, pushes: 1}
	ops[GAS] = &operation{execute: opGas, constantGas: gasBase, pushes: 1}
	ops[JUMPDEST] = &operation{execute: opJumpdest, constantGas: params.JumpdestGas}

	for i := 1; i <= 32; i++ {
		ops[PUSH1+OpCode(i-1)] = &operation{execute: makePush(i), constantGas: gasVeryLow, pushes: 1}
	}
	for i := 1; i <= 16; i++ {
		ops[DUP1+OpCode(i-1)] = &operation{execute: makeDup(i), constantGas: gasVeryLow, pops: i, pushes: i + 1}
		ops[SWAP1+OpCode(i-1)] = &operation{execute: makeSwap(i), constantGas: gasVeryLow, pops: i + 1, pushes: i + 1}
	}
	for i := 0; i <= 4; i++ {
		ops[LOG0+OpCode(i)] = &operation{
			execute:     makeLog(i),
			constantGas: params.LogGas + uint64(i)*params.LogTopicGas,
			pops:        2 + i,
		}
	}

	ops[CREATE] = &operation{execute: makeCreate(spec, CreateKindCreate), constantGas: params.CreateGas, pops: 3, pushes: 1}
	ops[CALL] = &operation{execute: makeCall(spec, SchemeCall), pops: 7, pushes: 1}
	ops[CALLCODE] = &operation{execute: makeCall(spec, SchemeCallCode), pops: 7, pushes: 1}
	ops[RETURN] = &operation{execute: opReturn, pops: 2}
	ops[INVALID] = &operation{execute: opInvalid}
	ops[SELFDESTRUCT] = &operation{execute: makeSelfDestruct(spec), pops: 1}

	return ops
}

func enableHomestead(ops *jumpTable, spec params.SpecID) {
	ops[DELEGATECALL] = &operation{execute: makeCall(spec, SchemeDelegateCall), pops: 6, pushes: 1}
}

func enableByzantium(ops *jumpTable, spec params.SpecID) {
	ops[STATICCALL] = &operation{execute: makeCall(spec, SchemeStaticCall), pops: 6, pushes: 1}
	ops[RETURNDATASIZE] = &operation{execute: opReturnDataSize, constantGas: gasBase, pushes: 1}
	ops[RETURNDATACOPY] = &operation{execute: opReturnDataCopy, constantGas: gasVeryLow, pops: 3}
	ops[REVERT] = &operation{execute: opRevert, pops: 2}
}

func enablePetersburg(ops *jumpTable, spec params.SpecID) {
	ops[SHL] = &operation{execute: opShl, constantGas: gasVeryLow, pops: 2, pushes: 1}
	ops[SHR] = &operation{execute: opShr, constantGas: gasVeryLow, pops: 2, pushes: 1}
	ops[SAR] = &operation{execute: opSar, constantGas: gasVeryLow, pops: 2, pushes: 1}
	ops[EXTCODEHASH] = &operation{execute: makeExtCodeHash(spec), pops: 1, pushes: 1}
	ops[CREATE2] = &operation{execute: makeCreate(spec, CreateKindCreate2), constantGas: params.CreateGas, pops: 4, pushes: 1}
}

func enableIstanbul(ops *jumpTable) {
	ops[CHAINID] = &operation{execute: opChainID, constantGas: gasBase, pushes: 1}
	ops[SELFBALANCE] = &operation{execute: opSelfBalance, constantGas: gasLow, pushes: 1}
}
