package inspector

import (
	"io"

	jsoniter "github.com/json-iterator/go"

	"github.com/eth2030/evmcore/core/evm"
	"github.com/eth2030/evmcore/core/vm"
)

var json = jsoniter.ConfigCompatibleWithStandardLibrary

// StructLog is one executed instruction.
type StructLog struct {
	Pc      uint64   `json:"pc"`
	Op      string   `json:"op"`
	Gas     uint64   `json:"gas"`
	GasCost uint64   `json:"gasCost"`
	Depth   int      `json:"depth"`
	Stack   []string `json:"stack,omitempty"`
	MemSize int      `json:"memSize"`
	Refund  int64    `json:"refund"`
	Error   string   `json:"error,omitempty"`
}

// StructLoggerConfig tunes what StructLogger records.
type StructLoggerConfig struct {
	DisableStack bool
	Limit        int       // maximum number of steps kept; 0 is unlimited
	Writer       io.Writer // if set, every step is also written as a JSON line
}

// StructLogger records a StructLog per instruction. The gas cost of a step
// is what the instruction charged, including gas forwarded to a child
// frame.
type StructLogger struct {
	NoOpInspector

	cfg     StructLoggerConfig
	logs    []StructLog
	pending StructLog
	enc     *jsoniter.Encoder
	err     error
}

// NewStructLogger returns a logger configured by cfg.
func NewStructLogger(cfg StructLoggerConfig) *StructLogger {
	l := &StructLogger{cfg: cfg}
	if cfg.Writer != nil {
		l.enc = json.NewEncoder(cfg.Writer)
	}
	return l
}

func (l *StructLogger) Step(interp *vm.Interpreter, pc uint64, ctx *evm.Context) {
	l.pending = StructLog{
		Pc:      pc,
		Op:      interp.Contract.GetOp(pc).String(),
		Gas:     interp.Gas.Remaining(),
		Depth:   ctx.Depth(),
		MemSize: interp.Memory.Len(),
		Refund:  interp.Gas.Refunded(),
	}
	if !l.cfg.DisableStack {
		for _, v := range interp.Stack.Data() {
			l.pending.Stack = append(l.pending.Stack, v.Hex())
		}
	}
}

func (l *StructLogger) StepEnd(interp *vm.Interpreter, _ *evm.Context) {
	entry := l.pending
	entry.GasCost = entry.Gas - interp.Gas.Remaining()
	if interp.Result.IsError() {
		entry.Error = interp.Result.String()
	}
	if l.enc != nil && l.err == nil {
		l.err = l.enc.Encode(&entry)
	}
	if l.cfg.Limit == 0 || len(l.logs) < l.cfg.Limit {
		l.logs = append(l.logs, entry)
	}
}

// Logs returns the recorded steps.
func (l *StructLogger) Logs() []StructLog { return l.logs }

// Err returns the first error writing to the configured writer.
func (l *StructLogger) Err() error { return l.err }

// Reset drops the recorded steps.
func (l *StructLogger) Reset() {
	l.logs = nil
	l.err = nil
}
