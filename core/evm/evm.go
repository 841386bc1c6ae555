// Package evm drives transactions through the interpreter: it opens and
// closes frames, moves outcomes between them and settles gas for the whole
// transaction. Every step goes through a replaceable ExecutionHandler slot
// so that registers such as inspectors can wrap it.
package evm

import (
	"errors"
	"fmt"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"
	"github.com/holiman/uint256"

	"github.com/eth2030/evmcore/core/state"
	"github.com/eth2030/evmcore/core/vm"
	"github.com/eth2030/evmcore/log"
	"github.com/eth2030/evmcore/metrics"
	"github.com/eth2030/evmcore/params"
)

// Config selects the rule set and the ambient services of an EVM.
type Config struct {
	Spec      params.SpecID
	Logger    *log.Logger       // defaults to the "evm" module logger
	Metrics   *metrics.Registry // defaults to metrics.DefaultRegistry
	Registers []HandleRegister  // applied in order, last one outermost
}

// ExecutionResult summarises a finished transaction.
type ExecutionResult struct {
	Result      vm.InstructionResult
	Output      []byte
	GasUsed     uint64
	GasRefunded uint64
	Logs        []*types.Log
	// CreatedAddress is set for successful contract-creation transactions.
	CreatedAddress *common.Address
}

// IsSuccess reports a Stop, Return or SelfDestruct result.
func (r *ExecutionResult) IsSuccess() bool { return r.Result.IsOk() }

// ResultAndState is the outcome of Transact: the settled outermost frame,
// its summary and the state changes, not yet committed.
type ResultAndState struct {
	Frame  *FrameResult
	Result ExecutionResult
	State  state.State
}

// EVM executes transactions against a database.
type EVM struct {
	ctx     *Context
	handler *Handler
	log     *log.Logger
	metrics *metrics.EVM
}

// New builds an EVM for env over db.
func New(db state.Database, env *vm.Env, cfg Config) *EVM {
	logger := cfg.Logger
	if logger == nil {
		logger = log.Default().Module("evm")
	}
	journal := state.NewJournaledState(db, cfg.Spec)
	e := &EVM{
		ctx:     NewContext(env, journal, vm.NewPrecompiles(cfg.Spec)),
		handler: NewHandler(cfg.Spec),
		log:     logger,
		metrics: metrics.NewEVM(cfg.Metrics),
	}
	for _, r := range cfg.Registers {
		e.handler.Append(r)
	}
	return e
}

// Context returns the execution context.
func (e *EVM) Context() *Context { return e.ctx }

// Handler returns the handler in use.
func (e *EVM) Handler() *Handler { return e.handler }

// AppendHandlerRegister wraps the current handler with r.
func (e *EVM) AppendHandlerRegister(r HandleRegister) {
	e.handler.Append(r)
}

// Transact validates and executes the transaction in the environment. The
// returned state is not written back; see TransactCommit.
func (e *EVM) Transact() (*ResultAndState, error) {
	timer := metrics.NewTimer(e.metrics.TxDuration)
	defer timer.Stop()

	spec := e.handler.Spec
	env := e.ctx.Env()
	intrinsic, err := validateEnv(spec, env)
	if err != nil {
		return nil, err
	}
	if err := e.prepare(spec); err != nil {
		e.ctx.Journal.Finalize()
		return nil, err
	}

	result, err := e.execute(env.Tx.GasLimit - intrinsic)
	if err == nil {
		err = e.ctx.Err()
	}
	if err != nil {
		e.ctx.Journal.Finalize()
		return nil, err
	}
	e.handler.Execution.LastFrameReturn(e.ctx, result)

	if err := e.settle(spec, result.Gas()); err != nil {
		e.ctx.Journal.Finalize()
		return nil, err
	}
	changes, logs := e.ctx.Journal.Finalize()

	gas := result.Gas()
	out := ExecutionResult{
		Result:      result.InterpreterResult().Result,
		Output:      result.Output(),
		GasUsed:     gas.Spend() - uint64(gas.Refunded()),
		GasRefunded: uint64(gas.Refunded()),
		Logs:        logs,
	}
	if result.Kind == FrameCreate {
		out.CreatedAddress = result.Create.Address
	}
	e.metrics.TxExecuted.Inc()
	e.metrics.TxGasUsed.Observe(float64(out.GasUsed))
	e.log.Debug("Transaction executed", "result", out.Result, "gasUsed", out.GasUsed, "refunded", out.GasRefunded, "logs", len(logs))
	return &ResultAndState{Frame: result, Result: out, State: changes}, nil
}

// TransactCommit runs Transact and writes the resulting state into db.
func (e *EVM) TransactCommit(db state.DatabaseCommit) (*ExecutionResult, error) {
	res, err := e.Transact()
	if err != nil {
		return nil, err
	}
	db.Commit(res.State)
	return &res.Result, nil
}

// prepare warms the accounts every transaction starts with, checks the
// caller and charges it for the whole gas limit up front.
func (e *EVM) prepare(spec params.SpecID) error {
	env := e.ctx.Env()
	tx := &env.Tx
	j := e.ctx.Journal

	warm := []common.Address{tx.Caller}
	if tx.To != nil {
		warm = append(warm, *tx.To)
	}
	if spec.IsEnabledIn(params.Shanghai) {
		warm = append(warm, env.Block.Coinbase) // EIP-3651
	}
	if spec.IsEnabledIn(params.Berlin) {
		warm = append(warm, e.ctx.Precompiles.Addresses()...)
		for _, t := range tx.AccessList {
			warm = append(warm, t.Address)
		}
	}
	for _, addr := range warm {
		if err := j.WarmAccount(addr); err != nil {
			return err
		}
	}
	if spec.IsEnabledIn(params.Berlin) {
		for _, t := range tx.AccessList {
			for _, key := range t.StorageKeys {
				if err := j.WarmStorage(t.Address, *new(uint256.Int).SetBytes32(key[:])); err != nil {
					return err
				}
			}
		}
	}

	caller := j.Account(tx.Caller)
	cost, err := validateCaller(env, caller)
	if err != nil {
		return err
	}

	balance := caller.Info.Balance
	if env.Cfg.DisableBalanceCheck {
		var need uint256.Int
		need.Add(&cost, &tx.Value)
		if balance.Lt(&need) {
			balance = need
		}
	}
	balance.Sub(&balance, &cost)
	j.SetBalance(tx.Caller, balance)

	// Creates bump the nonce when their frame is made.
	if !tx.IsCreate() {
		if _, err := j.IncNonce(tx.Caller); err != nil {
			return fmt.Errorf("%w: %w", ErrCallerNonceAtMaxValue, err)
		}
	}
	return nil
}

// execute opens the first frame and runs until it finishes.
func (e *EVM) execute(gasLimit uint64) (*FrameResult, error) {
	tx := &e.ctx.Env().Tx
	exec := &e.handler.Execution

	var (
		first FrameOrResult
		err   error
	)
	if tx.IsCreate() {
		first, err = exec.Create(e.ctx, &vm.CreateInputs{
			Caller:   tx.Caller,
			Scheme:   vm.CreateScheme{Kind: vm.CreateKindCreate},
			Value:    tx.Value,
			InitCode: tx.Data,
			GasLimit: gasLimit,
		})
	} else {
		first, err = exec.Call(e.ctx, &vm.CallInputs{
			Input:           tx.Data,
			GasLimit:        gasLimit,
			BytecodeAddress: *tx.To,
			TargetAddress:   *tx.To,
			Caller:          tx.Caller,
			Value:           vm.CallValue{Amount: tx.Value},
			Scheme:          vm.SchemeCall,
		})
	}
	if err != nil {
		return nil, err
	}
	if !first.IsFrame() {
		e.metrics.ImmediateFrames.Inc()
		return first.Result, nil
	}
	return e.runFrames(first.Frame)
}

// runFrames is the frame loop. Frames live on an explicit stack: a child
// request from the top frame either pushes a new frame or is resolved at
// once, and a finished frame is popped and its outcome inserted into the
// frame below it.
func (e *EVM) runFrames(first *Frame) (*FrameResult, error) {
	exec := &e.handler.Execution
	table := e.handler.InstructionTable
	if table == nil {
		panic("evm: handler has no instruction table")
	}

	stack := []*Frame{first}
	e.opened(first, len(stack))
	defer e.metrics.FrameDepth.Set(0)

	for {
		top := stack[len(stack)-1]
		action := top.run(table, e.ctx)

		var (
			next FrameOrResult
			err  error
		)
		switch action.Kind {
		case vm.ActionCall:
			next, err = exec.Call(e.ctx, action.Call)
		case vm.ActionCreate:
			next, err = exec.Create(e.ctx, action.Create)
		case vm.ActionReturn:
			stack = stack[:len(stack)-1]
			e.metrics.FrameDepth.Set(int64(len(stack)))
			next = resultOf(e.closeFrame(top, *action.Result))
			e.log.Trace("Frame closed", "kind", top.Kind, "depth", len(stack), "result", action.Result.Result)
		default:
			panic("evm: interpreter stopped without an action")
		}
		if err != nil {
			return nil, err
		}

		if next.IsFrame() {
			stack = append(stack, next.Frame)
			e.opened(next.Frame, len(stack))
			continue
		}
		if action.Kind != vm.ActionReturn {
			e.metrics.ImmediateFrames.Inc()
		}
		if len(stack) == 0 {
			return next.Result, nil
		}
		e.insert(stack[len(stack)-1], next.Result)
	}
}

func (e *EVM) opened(f *Frame, depth int) {
	if f.Kind == FrameCreate {
		e.metrics.CreateFrames.Inc()
	} else {
		e.metrics.CallFrames.Inc()
	}
	e.metrics.FrameDepth.Set(int64(depth))
	e.log.Trace("Frame opened", "kind", f.Kind, "depth", depth, "address", f.Interpreter.Contract.Address, "gas", f.Interpreter.Gas.Limit())
}

func (e *EVM) closeFrame(f *Frame, res vm.InterpreterResult) *FrameResult {
	exec := &e.handler.Execution
	if f.Kind == FrameCreate {
		return NewCreateResult(exec.CreateReturn(e.ctx, f, res))
	}
	return NewCallResult(exec.CallReturn(e.ctx, f, res))
}

func (e *EVM) insert(parent *Frame, r *FrameResult) {
	exec := &e.handler.Execution
	if r.Kind == FrameCreate {
		exec.InsertCreateOutcome(e.ctx, parent, r)
		return
	}
	exec.InsertCallOutcome(e.ctx, parent, r)
}

// settle pays back the caller for unused and refunded gas and pays the
// priority fee to the coinbase.
func (e *EVM) settle(spec params.SpecID, gas *vm.Gas) error {
	env := e.ctx.Env()
	j := e.ctx.Journal
	price := env.EffectiveGasPrice()
	refunded := uint64(gas.Refunded())

	caller, _, err := j.LoadAccount(env.Tx.Caller)
	if err != nil {
		return err
	}
	var reimburse uint256.Int
	reimburse.Mul(&price, uint256.NewInt(gas.Remaining()+refunded))
	j.SetBalance(env.Tx.Caller, *new(uint256.Int).Add(&caller.Info.Balance, &reimburse))

	tip := price
	if spec.IsEnabledIn(params.London) {
		if tip.Lt(&env.Block.BaseFee) {
			tip.Clear()
		} else {
			tip.Sub(&tip, &env.Block.BaseFee)
		}
	}
	coinbase, _, err := j.LoadAccount(env.Block.Coinbase)
	if err != nil {
		return err
	}
	var reward uint256.Int
	reward.Mul(&tip, uint256.NewInt(gas.Spend()-refunded))
	j.SetBalance(env.Block.Coinbase, *new(uint256.Int).Add(&coinbase.Info.Balance, &reward))
	return nil
}

// IsValidationError reports whether err rejected the transaction before
// execution.
func IsValidationError(err error) bool {
	for _, target := range []error{
		ErrIntrinsicGasTooLow, ErrGasLimitAboveBlock, ErrGasPriceBelowBaseFee,
		ErrInitCodeSizeLimit, ErrNonceMismatch, ErrInsufficientFunds,
		ErrGasCostOverflow, ErrCallerNonceAtMaxValue, ErrCallerHasDeployedCode,
	} {
		if errors.Is(err, target) {
			return true
		}
	}
	return false
}
