package evm

import (
	"testing"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/crypto"
	"github.com/holiman/uint256"
	"github.com/stretchr/testify/require"

	"github.com/eth2030/evmcore/core/state"
	"github.com/eth2030/evmcore/core/vm"
	"github.com/eth2030/evmcore/params"
)

func TestFrameReturnWithRefundFlag(t *testing.T) {
	tests := []struct {
		name       string
		spec       params.SpecID
		result     vm.InstructionResult
		frameLimit uint64
		spent      uint64
		refund     int64
		disabled   bool

		remaining uint64
		spend     uint64
		refunded  int64
	}{
		{name: "stop", spec: params.London, result: vm.Stop, frameLimit: 100, spent: 10, remaining: 90, spend: 10},
		{name: "refund capped by eip-3529", spec: params.London, result: vm.Stop, frameLimit: 100, spent: 10, refund: 30, remaining: 90, spend: 10, refunded: 2},
		{name: "refund capped by half before london", spec: params.Berlin, result: vm.Return, frameLimit: 100, spent: 10, refund: 30, remaining: 90, spend: 10, refunded: 5},
		{name: "refund below cap", spec: params.Cancun, result: vm.Stop, frameLimit: 100, spent: 50, refund: 4, remaining: 50, spend: 50, refunded: 4},
		{name: "revert keeps gas drops refund", spec: params.London, result: vm.Revert, frameLimit: 100, spent: 10, refund: 30, remaining: 90, spend: 10},
		{name: "error forfeits everything", spec: params.London, result: vm.OutOfGas, frameLimit: 100, spent: 10, refund: 30, remaining: 0, spend: 100},
		{name: "refund disabled", spec: params.London, result: vm.Stop, frameLimit: 100, spent: 10, refund: 30, disabled: true, remaining: 90, spend: 10},
		{name: "intrinsic gas stays charged", spec: params.London, result: vm.Stop, frameLimit: 79, spent: 10, remaining: 69, spend: 31},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			env := &vm.Env{Tx: vm.TxEnv{GasLimit: 100}}
			gas := vm.NewGas(tc.frameLimit)
			require.True(t, gas.RecordCost(tc.spent))
			gas.RecordRefund(tc.refund)
			res := NewCallResult(vm.NewCallOutcome(vm.InterpreterResult{Result: tc.result, Gas: gas}, vm.MemoryRange{}))

			FrameReturnWithRefundFlag(tc.spec, env, res, !tc.disabled)

			g := res.Gas()
			require.Equal(t, uint64(100), g.Limit())
			require.Equal(t, tc.remaining, g.Remaining())
			require.Equal(t, tc.spend, g.Spend())
			require.Equal(t, tc.refunded, g.Refunded())
		})
	}
}

var (
	alice = common.HexToAddress("0xa11ce")
	bob   = common.HexToAddress("0xb0b")
)

func newTestContext(t *testing.T, spec params.SpecID, db *state.MemoryDB) *Context {
	t.Helper()
	env := &vm.Env{Cfg: vm.CfgEnv{ChainID: 1}}
	return NewContext(env, state.NewJournaledState(db, spec), vm.NewPrecompiles(spec))
}

func TestMakeFrame_CallTooDeep(t *testing.T) {
	ctx := newTestContext(t, params.Cancun, state.NewMemoryDB())
	for range params.CallCreateDepth + 1 {
		ctx.Journal.Checkpoint()
	}
	depth := ctx.Depth()

	call, err := MakeCallFrame(ctx, &vm.CallInputs{GasLimit: 500, TargetAddress: bob, BytecodeAddress: bob})
	require.NoError(t, err)
	require.False(t, call.IsFrame())
	require.Equal(t, vm.CallTooDeep, call.Result.Call.InstructionResult())
	require.Equal(t, uint64(500), call.Result.Gas().Remaining())

	create, err := MakeCreateFrame(ctx, &vm.CreateInputs{Caller: alice, GasLimit: 500})
	require.NoError(t, err)
	require.Equal(t, vm.CallTooDeep, create.Result.Create.InstructionResult())
	require.Nil(t, create.Result.Create.Address)

	require.Equal(t, depth, ctx.Depth())
}

func TestMakeCallFrame_OutOfFunds(t *testing.T) {
	db := state.NewMemoryDB()
	db.InsertAccount(alice, state.NewAccountInfo(*uint256.NewInt(5), 0, nil))
	ctx := newTestContext(t, params.Cancun, db)

	res, err := MakeCallFrame(ctx, &vm.CallInputs{
		GasLimit:        500,
		Caller:          alice,
		TargetAddress:   bob,
		BytecodeAddress: bob,
		Value:           vm.CallValue{Amount: *uint256.NewInt(6)},
	})
	require.NoError(t, err)
	require.Equal(t, vm.OutOfFunds, res.Result.Call.InstructionResult())
	require.Equal(t, uint64(500), res.Result.Gas().Remaining())
	require.Zero(t, ctx.Depth())
	require.Equal(t, uint64(5), ctx.Journal.Account(alice).Info.Balance.Uint64())
}

func TestMakeCallFrame_Precompile(t *testing.T) {
	ctx := newTestContext(t, params.Cancun, state.NewMemoryDB())
	identity := common.BytesToAddress([]byte{4})

	res, err := MakeCallFrame(ctx, &vm.CallInputs{
		Input:              []byte("hello"),
		GasLimit:           1000,
		TargetAddress:      identity,
		BytecodeAddress:    identity,
		ReturnMemoryOffset: vm.MemoryRange{Offset: 3, Length: 5},
	})
	require.NoError(t, err)
	require.False(t, res.IsFrame())
	require.Equal(t, vm.Return, res.Result.Call.InstructionResult())
	require.Equal(t, []byte("hello"), res.Result.Output())
	require.Equal(t, uint64(1000-18), res.Result.Gas().Remaining())
	require.Equal(t, vm.MemoryRange{Offset: 3, Length: 5}, res.Result.Call.MemoryOffset)
	require.Zero(t, ctx.Depth())
}

func TestMakeCallFrame_OpensFrame(t *testing.T) {
	db := state.NewMemoryDB()
	db.InsertAccount(bob, state.NewAccountInfo(uint256.Int{}, 1, []byte{0x00}))
	ctx := newTestContext(t, params.Cancun, db)

	res, err := MakeCallFrame(ctx, &vm.CallInputs{GasLimit: 500, Caller: alice, TargetAddress: bob, BytecodeAddress: bob})
	require.NoError(t, err)
	require.True(t, res.IsFrame())
	require.Equal(t, FrameCall, res.Frame.Kind)
	require.Equal(t, FramePending, res.Frame.Status())
	require.Equal(t, 1, ctx.Depth())
}

func TestMakeCreateFrame(t *testing.T) {
	t.Run("out of funds", func(t *testing.T) {
		ctx := newTestContext(t, params.Cancun, state.NewMemoryDB())
		res, err := MakeCreateFrame(ctx, &vm.CreateInputs{Caller: alice, Value: *uint256.NewInt(1), GasLimit: 100})
		require.NoError(t, err)
		require.Equal(t, vm.OutOfFunds, res.Result.Create.InstructionResult())
		require.Zero(t, ctx.Journal.Account(alice).Info.Nonce)
	})

	t.Run("collision", func(t *testing.T) {
		db := state.NewMemoryDB()
		db.InsertAccount(alice, state.NewAccountInfo(*uint256.NewInt(10), 0, nil))
		db.InsertAccount(crypto.CreateAddress(alice, 0), state.NewAccountInfo(uint256.Int{}, 1, nil))
		ctx := newTestContext(t, params.Cancun, db)

		res, err := MakeCreateFrame(ctx, &vm.CreateInputs{Caller: alice, GasLimit: 100})
		require.NoError(t, err)
		require.Equal(t, vm.CreateCollision, res.Result.Create.InstructionResult())
		require.Nil(t, res.Result.Create.Address)
		require.Equal(t, uint64(1), ctx.Journal.Account(alice).Info.Nonce)
		require.Zero(t, ctx.Depth())
	})

	t.Run("opens frame", func(t *testing.T) {
		db := state.NewMemoryDB()
		db.InsertAccount(alice, state.NewAccountInfo(*uint256.NewInt(10), 3, nil))
		ctx := newTestContext(t, params.Cancun, db)

		res, err := MakeCreateFrame(ctx, &vm.CreateInputs{Caller: alice, Value: *uint256.NewInt(4), GasLimit: 100})
		require.NoError(t, err)
		require.True(t, res.IsFrame())
		addr := crypto.CreateAddress(alice, 3)
		require.Equal(t, addr, res.Frame.CreatedAddress)
		require.Equal(t, addr, res.Frame.Interpreter.Contract.Address)
		require.Equal(t, uint64(4), ctx.Journal.Account(addr).Info.Balance.Uint64())
		require.Equal(t, uint64(1), ctx.Journal.Account(addr).Info.Nonce)
	})
}

func TestCreateReturn(t *testing.T) {
	tests := []struct {
		name   string
		spec   params.SpecID
		output []byte
		gas    uint64
		want   vm.InstructionResult
		code   []byte
	}{
		{"deposits code", params.Cancun, []byte{0x60, 0x00}, 1000, vm.Return, []byte{0x60, 0x00}},
		{"0xef prefix from london", params.London, []byte{0xef}, 1000, vm.CreateContractStartingWithEF, nil},
		{"0xef prefix before london", params.Berlin, []byte{0xef}, 1000, vm.Return, []byte{0xef}},
		{"size limit", params.Cancun, make([]byte, params.MaxCodeSize+1), 1 << 30, vm.CreateContractSizeLimit, nil},
		{"deposit out of gas", params.Cancun, []byte{1, 2}, 399, vm.OutOfGas, nil},
		{"frontier keeps empty account", params.Frontier, []byte{1, 2}, 399, vm.Return, nil},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			db := state.NewMemoryDB()
			db.InsertAccount(alice, state.NewAccountInfo(*uint256.NewInt(10), 0, nil))
			ctx := newTestContext(t, tc.spec, db)
			open, err := MakeCreateFrame(ctx, &vm.CreateInputs{Caller: alice, GasLimit: tc.gas})
			require.NoError(t, err)
			frame := open.Frame

			out := CreateReturn(ctx, tc.spec, frame, vm.InterpreterResult{Result: vm.Return, Output: tc.output, Gas: vm.NewGas(tc.gas)})
			require.Equal(t, tc.want, out.InstructionResult())
			require.Zero(t, ctx.Depth())
			if !tc.want.IsOk() {
				require.Nil(t, out.Address)
				require.False(t, ctx.Journal.Account(frame.CreatedAddress).IsCreated())
				return
			}
			require.Equal(t, frame.CreatedAddress, *out.Address)
			require.Equal(t, tc.code, ctx.Journal.Account(frame.CreatedAddress).Info.Code)
			require.Equal(t, uint64(len(tc.code))*params.CreateDataGas, out.Result.Gas.Spend())
		})
	}
}

func TestFrame_RunOnce(t *testing.T) {
	ctx := newTestContext(t, params.Cancun, state.NewMemoryDB())
	contract := vm.NewContract(alice, bob, uint256.Int{}, []byte{0x00}, nil)
	f := newCallFrame(ctx.Journal.Checkpoint(), vm.NewInterpreter(contract, 100, false), vm.MemoryRange{})
	table := vm.NewInstructionTable(params.Cancun)

	require.Equal(t, FramePending, f.Status())
	action := f.run(table, ctx)
	require.Equal(t, vm.ActionReturn, action.Kind)
	require.Equal(t, vm.Stop, action.Result.Result)
	require.Equal(t, FrameCompleted, f.Status())

	require.PanicsWithValue(t, "evm: frame re-entered after completion", func() { f.run(table, ctx) })
}

func TestHandler_AppendWrapsOutermost(t *testing.T) {
	h := NewHandler(params.Cancun)
	var order []string
	wrap := func(name string) HandleRegister {
		return func(h *Handler) {
			prev := h.Execution.Call
			h.Execution.Call = func(ctx *Context, inputs *vm.CallInputs) (FrameOrResult, error) {
				order = append(order, name)
				return prev(ctx, inputs)
			}
		}
	}
	h.Append(wrap("first"))
	h.Append(wrap("second"))
	require.Len(t, h.Registers(), 2)

	ctx := newTestContext(t, params.Cancun, state.NewMemoryDB())
	_, err := h.Execution.Call(ctx, &vm.CallInputs{GasLimit: 10, TargetAddress: bob, BytecodeAddress: bob})
	require.NoError(t, err)
	require.Equal(t, []string{"second", "first"}, order)
}
