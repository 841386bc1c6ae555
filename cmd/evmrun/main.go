// Command evmrun executes a single transaction against an in-memory state
// and prints the result.
//
// Usage:
//
//	evmrun [flags]
//
// A TOML file given with --config supplies defaults; any flag set on the
// command line overrides it. With --trace every executed instruction is
// written to stdout as a JSON line before the result.
package main

import (
	"fmt"
	"io"
	"os"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/common/hexutil"
	"github.com/holiman/uint256"
	jsoniter "github.com/json-iterator/go"
	"github.com/urfave/cli/v2"

	"github.com/eth2030/evmcore/core/evm"
	"github.com/eth2030/evmcore/core/inspector"
	"github.com/eth2030/evmcore/core/state"
	"github.com/eth2030/evmcore/core/vm"
	"github.com/eth2030/evmcore/log"
	"github.com/eth2030/evmcore/metrics"
)

// Build-time version info, overridable with ldflags:
//
//	go build -ldflags "-X main.version=v0.2.0 -X main.commit=abc1234"
var (
	version = "v0.1.0-dev"
	commit  = "unknown"
)

var json = jsoniter.ConfigCompatibleWithStandardLibrary

func main() {
	os.Exit(run(os.Args, os.Stdout, os.Stderr))
}

// run is the actual entry point, returning an exit code. args includes the
// program name.
func run(args []string, stdout, stderr io.Writer) int {
	app := newApp(stdout, stderr)
	if err := app.Run(args); err != nil {
		fmt.Fprintf(stderr, "Error: %v\n", err)
		return 1
	}
	return 0
}

func newApp(stdout, stderr io.Writer) *cli.App {
	return &cli.App{
		Name:            "evmrun",
		Usage:           "run one transaction through the EVM",
		Version:         fmt.Sprintf("%s (commit %s)", version, commit),
		Writer:          stdout,
		ErrWriter:       stderr,
		HideHelpCommand: true,
		Flags: []cli.Flag{
			&cli.StringFlag{Name: "config", Usage: "TOML configuration file"},
			&cli.StringFlag{Name: "spec", Usage: "rule set, e.g. London, Cancun or latest"},
			&cli.StringFlag{Name: "code", Usage: "hex code of the receiver, or init code with --create"},
			&cli.StringFlag{Name: "input", Usage: "hex calldata"},
			&cli.BoolFlag{Name: "create", Usage: "deploy --code instead of calling it"},
			&cli.StringFlag{Name: "sender", Usage: "caller address"},
			&cli.StringFlag{Name: "receiver", Usage: "address the code is installed at"},
			&cli.Uint64Flag{Name: "gas", Usage: "transaction gas limit"},
			&cli.Uint64Flag{Name: "price", Usage: "gas price in wei"},
			&cli.Uint64Flag{Name: "value", Usage: "value sent in wei"},
			&cli.Uint64Flag{Name: "basefee", Usage: "block base fee in wei"},
			&cli.BoolFlag{Name: "nogasrefund", Usage: "disable gas refunds"},
			&cli.IntFlag{Name: "verbosity", Usage: "log level 0-5 (0=silent, 5=trace)"},
			&cli.BoolFlag{Name: "trace", Usage: "write a JSON line per executed instruction"},
			&cli.BoolFlag{Name: "metrics", Usage: "print collected metrics after the result"},
		},
		Action: func(c *cli.Context) error {
			cfg, err := LoadConfig(c.String("config"))
			if err != nil {
				return err
			}
			applyFlags(c, cfg)
			return execute(cfg, stdout, stderr)
		},
	}
}

// applyFlags copies every flag set on the command line into cfg.
func applyFlags(c *cli.Context, cfg *Config) {
	strs := map[string]*string{
		"spec": &cfg.Spec, "code": &cfg.Code, "input": &cfg.Input,
		"sender": &cfg.Sender, "receiver": &cfg.Receiver,
	}
	for name, dst := range strs {
		if c.IsSet(name) {
			*dst = c.String(name)
		}
	}
	nums := map[string]*uint64{
		"gas": &cfg.Gas, "price": &cfg.GasPrice, "value": &cfg.Value, "basefee": &cfg.BaseFee,
	}
	for name, dst := range nums {
		if c.IsSet(name) {
			*dst = c.Uint64(name)
		}
	}
	bools := map[string]*bool{
		"create": &cfg.Create, "nogasrefund": &cfg.DisableGasRefund,
		"trace": &cfg.Trace, "metrics": &cfg.Metrics,
	}
	for name, dst := range bools {
		if c.IsSet(name) {
			*dst = c.Bool(name)
		}
	}
	if c.IsSet("verbosity") {
		cfg.Verbosity = c.Int("verbosity")
	}
}

// summary is the printed result of a run.
type summary struct {
	Result         string          `json:"result"`
	Output         hexutil.Bytes   `json:"output"`
	GasUsed        uint64          `json:"gasUsed"`
	GasRefunded    uint64          `json:"gasRefunded"`
	Logs           int             `json:"logs"`
	CreatedAddress *common.Address `json:"createdAddress,omitempty"`
}

func execute(cfg *Config, stdout, stderr io.Writer) error {
	r, err := cfg.resolve()
	if err != nil {
		return err
	}
	logger := log.NewTerminal(stderr, log.LevelFromVerbosity(cfg.Verbosity))

	// The sender can always pay; evmrun is about execution, not funding.
	funds := new(uint256.Int).Lsh(uint256.NewInt(1), 128)
	db := state.NewMemoryDB()
	db.InsertAccount(r.sender, state.NewAccountInfo(*funds, 0, nil))

	env := &vm.Env{
		Cfg: vm.CfgEnv{ChainID: cfg.ChainID, DisableGasRefund: cfg.DisableGasRefund},
		Block: vm.BlockEnv{
			Number:   cfg.BlockNumber,
			GasLimit: cfg.BlockGasLimit,
			BaseFee:  *uint256.NewInt(cfg.BaseFee),
		},
		Tx: vm.TxEnv{
			Caller:   r.sender,
			GasLimit: cfg.Gas,
			GasPrice: *uint256.NewInt(cfg.GasPrice),
			Value:    *uint256.NewInt(cfg.Value),
		},
	}
	if cfg.Create {
		env.Tx.Data = r.code
	} else {
		db.InsertAccount(r.receiver, state.NewAccountInfo(uint256.Int{}, 1, r.code))
		env.Tx.To = &r.receiver
		env.Tx.Data = r.input
	}

	var registers []evm.HandleRegister
	var tracer *inspector.StructLogger
	if cfg.Trace {
		tracer = inspector.NewStructLogger(inspector.StructLoggerConfig{Writer: stdout})
		registers = append(registers, inspector.HandleRegister(tracer))
	}
	if logger.Enabled(log.LevelFromVerbosity(4)) {
		registers = append(registers, inspector.HandleRegister(inspector.NewFrameLogger(logger.Module("inspector"))))
	}

	registry := metrics.NewRegistry()
	machine := evm.New(db, env, evm.Config{
		Spec:      r.spec,
		Logger:    logger.Module("evm"),
		Metrics:   registry,
		Registers: registers,
	})
	logger.Debug("Executing transaction", "spec", r.spec, "create", cfg.Create, "gas", cfg.Gas, "code", len(r.code))

	res, err := machine.Transact()
	if err != nil {
		return err
	}
	if tracer != nil && tracer.Err() != nil {
		return fmt.Errorf("writing trace: %w", tracer.Err())
	}

	enc := json.NewEncoder(stdout)
	out := summary{
		Result:         res.Result.Result.String(),
		Output:         res.Result.Output,
		GasUsed:        res.Result.GasUsed,
		GasRefunded:    res.Result.GasRefunded,
		Logs:           len(res.Result.Logs),
		CreatedAddress: res.Result.CreatedAddress,
	}
	if err := enc.Encode(&out); err != nil {
		return err
	}
	if cfg.Metrics {
		return enc.Encode(registry.Snapshot())
	}
	return nil
}
