package inspector

import (
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"
	"github.com/holiman/uint256"

	"github.com/eth2030/evmcore/core/evm"
	"github.com/eth2030/evmcore/core/vm"
	"github.com/eth2030/evmcore/log"
)

// FrameLogger writes frame boundaries, logs and self-destructs to a
// structured logger at debug level.
type FrameLogger struct {
	NoOpInspector
	log *log.Logger
}

// NewFrameLogger returns a FrameLogger writing to logger, or to the
// "inspector" module logger when logger is nil.
func NewFrameLogger(logger *log.Logger) *FrameLogger {
	if logger == nil {
		logger = log.Default().Module("inspector")
	}
	return &FrameLogger{log: logger}
}

func (l *FrameLogger) Call(ctx *evm.Context, inputs *vm.CallInputs) *vm.CallOutcome {
	l.log.Debug("Call", "depth", ctx.Depth(), "scheme", inputs.Scheme, "from", inputs.Caller,
		"to", inputs.TargetAddress, "gas", inputs.GasLimit, "input", len(inputs.Input))
	return nil
}

func (l *FrameLogger) CallEnd(ctx *evm.Context, inputs *vm.CallInputs, outcome vm.CallOutcome) vm.CallOutcome {
	l.log.Debug("Call finished", "depth", ctx.Depth(), "to", inputs.TargetAddress,
		"result", outcome.Result.Result, "gasLeft", outcome.Result.Gas.Remaining(), "output", len(outcome.Output()))
	return outcome
}

func (l *FrameLogger) Create(ctx *evm.Context, inputs *vm.CreateInputs) *vm.CreateOutcome {
	l.log.Debug("Create", "depth", ctx.Depth(), "from", inputs.Caller, "gas", inputs.GasLimit,
		"initcode", len(inputs.InitCode))
	return nil
}

func (l *FrameLogger) CreateEnd(ctx *evm.Context, _ *vm.CreateInputs, outcome vm.CreateOutcome) vm.CreateOutcome {
	args := []any{"depth", ctx.Depth(), "result", outcome.Result.Result, "gasLeft", outcome.Result.Gas.Remaining()}
	if outcome.Address != nil {
		args = append(args, "address", *outcome.Address)
	}
	l.log.Debug("Create finished", args...)
	return outcome
}

func (l *FrameLogger) Log(ctx *evm.Context, lg *types.Log) {
	l.log.Debug("Log", "depth", ctx.Depth(), "address", lg.Address, "topics", len(lg.Topics), "data", len(lg.Data))
}

func (l *FrameLogger) SelfDestruct(contract, target common.Address, value uint256.Int) {
	l.log.Debug("Self-destruct", "contract", contract, "beneficiary", target, "value", value.Dec())
}
