package main

import (
	"bytes"
	"errors"
	"fmt"
	"os"
	"strings"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/common/hexutil"
	"github.com/pelletier/go-toml/v2"

	"github.com/eth2030/evmcore/params"
)

// Configuration errors.
var (
	ErrConfigFileNotFound = errors.New("config file not found")
	ErrInvalidConfig      = errors.New("invalid configuration")
)

// Config is everything one evmrun invocation needs. It is read from an
// optional TOML file and then overridden by flags.
type Config struct {
	Spec     string `toml:"spec"`
	ChainID  uint64 `toml:"chain_id"`
	Sender   string `toml:"sender"`
	Receiver string `toml:"receiver"`
	Code     string `toml:"code"`  // hex, runtime code or init code with Create
	Input    string `toml:"input"` // hex calldata
	Create   bool   `toml:"create"`

	Gas           uint64 `toml:"gas"`
	GasPrice      uint64 `toml:"gas_price"`
	Value         uint64 `toml:"value"`
	BaseFee       uint64 `toml:"base_fee"`
	BlockGasLimit uint64 `toml:"block_gas_limit"`
	BlockNumber   uint64 `toml:"block_number"`

	DisableGasRefund bool `toml:"disable_gas_refund"`

	Verbosity int  `toml:"verbosity"`
	Trace     bool `toml:"trace"`
	Metrics   bool `toml:"metrics"`
}

// DefaultConfig returns the configuration used when neither a file nor a
// flag sets a value.
func DefaultConfig() Config {
	return Config{
		Spec:          params.Latest.String(),
		ChainID:       1,
		Sender:        "0x00000000000000000000000000000000000005e4",
		Receiver:      "0x000000000000000000000000000000000000c0de",
		Gas:           10_000_000,
		GasPrice:      1,
		BlockGasLimit: 30_000_000,
		BlockNumber:   1,
		Verbosity:     2,
	}
}

// LoadConfig reads a TOML file over the defaults. Unknown keys are
// rejected. An empty path returns the defaults.
func LoadConfig(path string) (*Config, error) {
	cfg := DefaultConfig()
	if path == "" {
		return &cfg, nil
	}
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, fmt.Errorf("%w: %s", ErrConfigFileNotFound, path)
		}
		return nil, err
	}
	dec := toml.NewDecoder(bytes.NewReader(data))
	dec.DisallowUnknownFields()
	if err := dec.Decode(&cfg); err != nil {
		return nil, fmt.Errorf("%w: %s: %v", ErrInvalidConfig, path, err)
	}
	return &cfg, nil
}

// resolved is a Config with every field parsed.
type resolved struct {
	spec     params.SpecID
	sender   common.Address
	receiver common.Address
	code     []byte
	input    []byte
}

// resolve parses the fork name, addresses and hex payloads.
func (c *Config) resolve() (*resolved, error) {
	spec, err := params.ParseSpecID(c.Spec)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidConfig, err)
	}
	r := &resolved{spec: spec}
	for _, a := range []struct {
		name string
		in   string
		out  *common.Address
	}{{"sender", c.Sender, &r.sender}, {"receiver", c.Receiver, &r.receiver}} {
		if !common.IsHexAddress(a.in) {
			return nil, fmt.Errorf("%w: %s %q is not an address", ErrInvalidConfig, a.name, a.in)
		}
		*a.out = common.HexToAddress(a.in)
	}
	if r.code, err = decodeHex(c.Code); err != nil {
		return nil, fmt.Errorf("%w: code: %v", ErrInvalidConfig, err)
	}
	if r.input, err = decodeHex(c.Input); err != nil {
		return nil, fmt.Errorf("%w: input: %v", ErrInvalidConfig, err)
	}
	if c.Gas > c.BlockGasLimit {
		c.BlockGasLimit = c.Gas
	}
	return r, nil
}

// decodeHex accepts hex with or without the 0x prefix. Empty input is
// empty data.
func decodeHex(s string) ([]byte, error) {
	s = strings.TrimSpace(s)
	if s == "" || s == "0x" {
		return nil, nil
	}
	if !strings.HasPrefix(s, "0x") && !strings.HasPrefix(s, "0X") {
		s = "0x" + s
	}
	return hexutil.Decode(s)
}
