package vm

import (
	"bytes"
	"testing"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"
	"github.com/holiman/uint256"
	"github.com/stretchr/testify/require"

	"github.com/eth2030/evmcore/params"
)

// testHost is an in-memory Host. Every account is warm after first touch.
type testHost struct {
	env      Env
	balances map[common.Address]uint256.Int
	code     map[common.Address][]byte
	storage  map[uint256.Int]uint256.Int
	original map[uint256.Int]uint256.Int
	warm     map[common.Address]bool
	logs     []*types.Log
	fail     bool
}

func newTestHost() *testHost {
	return &testHost{
		env:      Env{Cfg: CfgEnv{ChainID: 1}},
		balances: make(map[common.Address]uint256.Int),
		code:     make(map[common.Address][]byte),
		storage:  make(map[uint256.Int]uint256.Int),
		original: make(map[uint256.Int]uint256.Int),
		warm:     make(map[common.Address]bool),
	}
}

func (h *testHost) touch(addr common.Address) bool {
	cold := !h.warm[addr]
	h.warm[addr] = true
	return cold
}

func (h *testHost) Env() *Env { return &h.env }

func (h *testHost) LoadAccount(addr common.Address) (bool, bool, bool) {
	_, hasBalance := h.balances[addr]
	return h.touch(addr), hasBalance || len(h.code[addr]) > 0, !h.fail
}

func (h *testHost) Balance(addr common.Address) (uint256.Int, bool, bool) {
	return h.balances[addr], h.touch(addr), !h.fail
}

func (h *testHost) Code(addr common.Address) ([]byte, bool, bool) {
	return h.code[addr], h.touch(addr), !h.fail
}

func (h *testHost) CodeHash(addr common.Address) (common.Hash, bool, bool) {
	return common.Hash{}, h.touch(addr), !h.fail
}

func (h *testHost) SLoad(_ common.Address, key uint256.Int) (uint256.Int, bool, bool) {
	return h.storage[key], false, !h.fail
}

func (h *testHost) SStore(_ common.Address, key, value uint256.Int) (SStoreResult, bool) {
	res := SStoreResult{Original: h.original[key], Present: h.storage[key], New: value}
	h.storage[key] = value
	return res, !h.fail
}

func (h *testHost) Log(log *types.Log) { h.logs = append(h.logs, log) }

func (h *testHost) SelfDestruct(addr, target common.Address) (SelfDestructResult, bool) {
	bal := h.balances[addr]
	_, exists := h.balances[target]
	return SelfDestructResult{HadValue: !bal.IsZero(), TargetExists: exists}, !h.fail
}

func runCode(t *testing.T, spec params.SpecID, code []byte, gas uint64) (*Interpreter, InterpreterAction) {
	t.Helper()
	contract := NewContract(common.Address{0x01}, common.Address{0x02}, uint256.Int{}, code, nil)
	in := NewInterpreter(contract, gas, false)
	action := in.Run(NewInstructionTable(spec), newTestHost())
	return in, action
}

func TestInterpreter_AddAndReturn(t *testing.T) {
	code := []byte{
		byte(PUSH1), 10,
		byte(PUSH1), 20,
		byte(ADD),
		byte(PUSH1), 0,
		byte(MSTORE),
		byte(PUSH1), 32,
		byte(PUSH1), 0,
		byte(RETURN),
	}
	_, action := runCode(t, params.Cancun, code, 100000)
	require.Equal(t, ActionReturn, action.Kind)
	require.Equal(t, Return, action.Result.Result)
	require.Len(t, action.Result.Output, 32)
	require.Equal(t, byte(30), action.Result.Output[31])

	// 5 pushes, ADD, MSTORE and one word of memory at 3 each.
	require.Equal(t, uint64(24), action.Result.Gas.Spend())
}

func TestInterpreter_Halts(t *testing.T) {
	tests := []struct {
		name string
		spec params.SpecID
		code []byte
		gas  uint64
		want InstructionResult
	}{
		{"empty code stops", params.Cancun, nil, 10, Stop},
		{"stack underflow", params.Cancun, []byte{byte(ADD)}, 10, StackUnderflow},
		{"out of gas", params.Cancun, []byte{byte(PUSH1), 1, byte(PUSH1), 1}, 5, OutOfGas},
		{"invalid jump", params.Cancun, []byte{byte(PUSH1), 3, byte(JUMP), byte(STOP)}, 100, InvalidJump},
		{"jump into push data", params.Cancun, []byte{byte(PUSH1), 4, byte(JUMP), byte(PUSH1), byte(JUMPDEST)}, 100, InvalidJump},
		{"designated invalid", params.Cancun, []byte{byte(INVALID)}, 100, InvalidFEOpcode},
		{"unassigned opcode", params.Cancun, []byte{0x0c}, 100, OpcodeNotFound},
		{"push0 before shanghai", params.London, []byte{byte(PUSH0)}, 100, NotActivated},
		{"revert before byzantium", params.Homestead, []byte{byte(PUSH1), 0, byte(DUP1), byte(REVERT)}, 100, NotActivated},
		{"revert", params.Cancun, []byte{byte(PUSH1), 0, byte(DUP1), byte(REVERT)}, 100, Revert},
		{"full stack", params.Cancun, bytes.Repeat([]byte{byte(PUSH0)}, 1024), 10000, Stop},
		{"stack overflow", params.Cancun, bytes.Repeat([]byte{byte(PUSH0)}, 1025), 10000, StackOverflow},
		{"huge memory offset", params.Cancun, append(append([]byte{byte(PUSH32)}, bytes.Repeat([]byte{0xff}, 32)...), byte(MLOAD)), 1000, InvalidOperandOOG},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			in, action := runCode(t, tc.spec, tc.code, tc.gas)
			require.Equal(t, ActionReturn, action.Kind)
			require.Equal(t, tc.want, action.Result.Result)
			require.Equal(t, tc.want, in.Result)
		})
	}
}

func TestInterpreter_JumpAndPC(t *testing.T) {
	code := []byte{
		byte(PUSH1), 4, // 0
		byte(JUMP),     // 2
		byte(INVALID),  // 3
		byte(JUMPDEST), // 4
		byte(PC),       // 5
		byte(STOP),     // 6
	}
	in, action := runCode(t, params.Cancun, code, 100)
	require.Equal(t, Stop, action.Result.Result)
	require.Equal(t, 1, in.Stack.Len())
	require.Equal(t, uint64(5), in.Stack.Peek().Uint64())
}

func TestInterpreter_PushPastEndOfCode(t *testing.T) {
	in, action := runCode(t, params.Cancun, []byte{byte(PUSH2), 0xab}, 100)
	require.Equal(t, Stop, action.Result.Result)
	require.Equal(t, uint64(0xab00), in.Stack.Peek().Uint64())
}

func TestInterpreter_SstoreRefund(t *testing.T) {
	// Write then clear a fresh slot: original == new == 0 on the reset.
	code := []byte{
		byte(PUSH1), 1, byte(PUSH1), 0, byte(SSTORE),
		byte(PUSH1), 0, byte(PUSH1), 0, byte(SSTORE),
	}
	_, action := runCode(t, params.Cancun, code, 100000)
	require.Equal(t, Stop, action.Result.Result)
	gas := action.Result.Gas
	require.Equal(t, int64(params.SstoreSetGasEIP2200-params.WarmStorageReadCostEIP2929), gas.Refunded())
}

func TestInterpreter_SstoreInStaticFrame(t *testing.T) {
	contract := NewContract(common.Address{}, common.Address{}, uint256.Int{},
		[]byte{byte(PUSH1), 1, byte(PUSH1), 0, byte(SSTORE)}, nil)
	in := NewInterpreter(contract, 100000, true)
	action := in.Run(NewInstructionTable(params.Cancun), newTestHost())
	require.Equal(t, StateChangeDuringStaticCall, action.Result.Result)
}

func TestInterpreter_HostFailure(t *testing.T) {
	host := newTestHost()
	host.fail = true
	contract := NewContract(common.Address{}, common.Address{}, uint256.Int{},
		[]byte{byte(PUSH1), 0, byte(SLOAD)}, nil)
	in := NewInterpreter(contract, 100000, false)
	action := in.Run(NewInstructionTable(params.Cancun), host)
	require.Equal(t, FatalExternalError, action.Result.Result)
}

func TestInterpreter_LogRecorded(t *testing.T) {
	host := newTestHost()
	code := []byte{byte(PUSH1), 0xaa, byte(PUSH1), 0, byte(PUSH1), 0, byte(LOG1)}
	contract := NewContract(common.Address{}, common.Address{0x09}, uint256.Int{}, code, nil)
	in := NewInterpreter(contract, 100000, false)
	action := in.Run(NewInstructionTable(params.Cancun), host)
	require.Equal(t, Stop, action.Result.Result)
	require.Len(t, host.logs, 1)
	require.Equal(t, common.Address{0x09}, host.logs[0].Address)
	require.Equal(t, byte(0xaa), host.logs[0].Topics[0][31])
}

func callCode() []byte {
	// CALL(gas=0xffff, addr=0x42, value=0, in=0:0, out=0:32)
	return []byte{
		byte(PUSH1), 32, // out size
		byte(PUSH1), 0, // out offset
		byte(PUSH1), 0, // in size
		byte(PUSH1), 0, // in offset
		byte(PUSH1), 0, // value
		byte(PUSH1), 0x42, // address
		byte(PUSH2), 0xff, 0xff, // gas
		byte(CALL),
		byte(STOP),
	}
}

func TestInterpreter_CallYieldsAction(t *testing.T) {
	in, action := runCode(t, params.Cancun, callCode(), 1_000_000)
	require.Equal(t, ActionCall, action.Kind)
	require.Equal(t, CallOrCreate, in.Result)

	call := action.Call
	require.Equal(t, SchemeCall, call.Scheme)
	require.Equal(t, common.BytesToAddress([]byte{0x42}), call.TargetAddress)
	require.Equal(t, common.Address{0x02}, call.Caller)
	require.Equal(t, uint64(0xffff), call.GasLimit)
	require.Equal(t, MemoryRange{Offset: 0, Length: 32}, call.ReturnMemoryOffset)
	require.Equal(t, 32, in.Memory.Len())
}

func TestInterpreter_InsertCallOutcome(t *testing.T) {
	tests := []struct {
		name       string
		result     InstructionResult
		wantFlag   uint64
		wantRefund bool // child gas handed back
	}{
		{"ok", Return, 1, true},
		{"revert", Revert, 0, true},
		{"error", OutOfGas, 0, false},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			in, action := runCode(t, params.Cancun, callCode(), 1_000_000)
			before := in.Gas.Remaining()

			childGas := NewGas(action.Call.GasLimit)
			require.True(t, childGas.RecordCost(100))
			out := []byte{0xde, 0xad}
			in.InsertCallOutcome(NewCallOutcome(InterpreterResult{
				Result: tc.result,
				Output: out,
				Gas:    childGas,
			}, action.Call.ReturnMemoryOffset))

			require.Equal(t, Continue, in.Result)
			require.Equal(t, tc.wantFlag, in.Stack.Peek().Uint64())
			require.Equal(t, out, in.ReturnData)
			if tc.wantRefund {
				require.Equal(t, before+childGas.Remaining(), in.Gas.Remaining())
				require.Equal(t, out, in.Memory.Slice(0, 2))
			} else {
				require.Equal(t, before, in.Gas.Remaining())
			}

			// Resume to completion.
			next := in.Run(NewInstructionTable(params.Cancun), newTestHost())
			require.Equal(t, Stop, next.Result.Result)
		})
	}
}

func TestInterpreter_CreateYieldsAction(t *testing.T) {
	code := []byte{
		byte(PUSH1), 0, // size
		byte(PUSH1), 0, // offset
		byte(PUSH1), 5, // value
		byte(CREATE),
		byte(STOP),
	}
	in, action := runCode(t, params.Cancun, code, 100_000)
	require.Equal(t, ActionCreate, action.Kind)
	require.Equal(t, uint64(5), action.Create.Value.Uint64())
	require.Equal(t, CreateKindCreate, action.Create.Scheme.Kind)

	remaining := 100_000 - 9 - params.CreateGas
	require.Equal(t, remaining-remaining/64, action.Create.GasLimit)

	addr := common.Address{0xcc}
	in.InsertCreateOutcome(NewCreateOutcome(InterpreterResult{
		Result: Return,
		Gas:    NewGas(action.Create.GasLimit),
	}, &addr))
	require.Equal(t, Continue, in.Result)
	require.Equal(t, addr, toAddress(in.Stack.Peek()))
	require.Equal(t, uint64(remaining), in.Gas.Remaining())
}

func TestInterpreter_InsertFatalOutcomeHalts(t *testing.T) {
	in, action := runCode(t, params.Cancun, callCode(), 1_000_000)
	in.InsertCallOutcome(NewCallOutcome(InterpreterResult{
		Result: FatalExternalError,
		Gas:    NewGas(action.Call.GasLimit),
	}, action.Call.ReturnMemoryOffset))
	require.Equal(t, FatalExternalError, in.Result)
}

func TestNewInstructionTable_Complete(t *testing.T) {
	for spec := params.Frontier; spec <= params.Latest; spec++ {
		table := NewInstructionTable(spec)
		for i, instr := range table {
			require.NotNilf(t, instr, "%s opcode 0x%x", spec, i)
		}
	}
}
