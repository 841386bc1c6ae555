package metrics

// Metric names reported by the execution core.
const (
	EVMCallFrames      = "evm/frames/call"
	EVMCreateFrames    = "evm/frames/create"
	EVMImmediateFrames = "evm/frames/immediate"
	EVMFrameDepth      = "evm/frames/depth"
	EVMTxExecuted      = "evm/tx/executed"
	EVMTxGasUsed       = "evm/tx/gas_used"
	EVMTxDuration      = "evm/tx/duration_ms"
)

// EVM groups the execution-core metrics of one registry.
type EVM struct {
	CallFrames      *Counter
	CreateFrames    *Counter
	ImmediateFrames *Counter // calls and creates resolved without a frame
	FrameDepth      *Gauge
	TxExecuted      *Counter
	TxGasUsed       *Histogram
	TxDuration      *Histogram
}

// NewEVM registers the execution-core metrics in r, or in DefaultRegistry
// when r is nil.
func NewEVM(r *Registry) *EVM {
	if r == nil {
		r = DefaultRegistry
	}
	return &EVM{
		CallFrames:      r.Counter(EVMCallFrames),
		CreateFrames:    r.Counter(EVMCreateFrames),
		ImmediateFrames: r.Counter(EVMImmediateFrames),
		FrameDepth:      r.Gauge(EVMFrameDepth),
		TxExecuted:      r.Counter(EVMTxExecuted),
		TxGasUsed:       r.Histogram(EVMTxGasUsed),
		TxDuration:      r.Histogram(EVMTxDuration),
	}
}
