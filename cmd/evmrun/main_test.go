package main

import (
	"bufio"
	"bytes"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/crypto"
	"github.com/stretchr/testify/require"

	"github.com/eth2030/evmcore/core/inspector"
	"github.com/eth2030/evmcore/params"
)

// PUSH1 1 PUSH1 0 SSTORE STOP
const storeCode = "600160005500"

func runArgs(t *testing.T, args ...string) (int, []string, string) {
	t.Helper()
	var stdout, stderr bytes.Buffer
	code := run(append([]string{"evmrun"}, args...), &stdout, &stderr)

	var lines []string
	scanner := bufio.NewScanner(&stdout)
	for scanner.Scan() {
		lines = append(lines, scanner.Text())
	}
	return code, lines, stderr.String()
}

func decodeSummary(t *testing.T, line string) summary {
	t.Helper()
	var s summary
	require.NoError(t, json.Unmarshal([]byte(line), &s), line)
	return s
}

func TestRun_Call(t *testing.T) {
	code, lines, stderr := runArgs(t, "--code", storeCode)
	require.Equal(t, 0, code, stderr)
	require.Len(t, lines, 1)

	s := decodeSummary(t, lines[0])
	require.Equal(t, "Stop", s.Result)
	require.Equal(t, params.TxGas+3+3+params.SstoreSetGasEIP2200+params.ColdSloadCostEIP2929, s.GasUsed)
	require.Nil(t, s.CreatedAddress)
}

func TestRun_Trace(t *testing.T) {
	code, lines, stderr := runArgs(t, "--code", "0x"+storeCode, "--trace")
	require.Equal(t, 0, code, stderr)
	require.Len(t, lines, 5)

	var ops []string
	for _, line := range lines[:4] {
		var entry inspector.StructLog
		require.NoError(t, json.Unmarshal([]byte(line), &entry))
		ops = append(ops, entry.Op)
	}
	require.Equal(t, []string{"PUSH1", "PUSH1", "SSTORE", "STOP"}, ops)
	require.Equal(t, "Stop", decodeSummary(t, lines[4]).Result)
}

func TestRun_Create(t *testing.T) {
	// PUSH1 0x0a PUSH1 0 MSTORE8 PUSH1 1 PUSH1 0 RETURN
	code, lines, stderr := runArgs(t, "--create", "--code", "600a60005360016000f3")
	require.Equal(t, 0, code, stderr)

	s := decodeSummary(t, lines[0])
	require.Equal(t, "Return", s.Result)
	require.NotNil(t, s.CreatedAddress)
	require.Equal(t, crypto.CreateAddress(common.HexToAddress(DefaultConfig().Sender), 0), *s.CreatedAddress)
}

func TestRun_Metrics(t *testing.T) {
	code, lines, stderr := runArgs(t, "--code", storeCode, "--metrics")
	require.Equal(t, 0, code, stderr)
	require.Len(t, lines, 2)

	var snap map[string]any
	require.NoError(t, json.Unmarshal([]byte(lines[1]), &snap))
	require.Equal(t, float64(1), snap["evm/tx/executed"])
	require.Equal(t, float64(1), snap["evm/frames/call"])
}

func TestRun_Verbosity(t *testing.T) {
	code, _, stderr := runArgs(t, "--code", storeCode, "--verbosity", "4")
	require.Equal(t, 0, code)
	require.Contains(t, stderr, "Executing transaction")
	require.Contains(t, stderr, "Call finished")

	code, _, stderr = runArgs(t, "--code", storeCode, "--verbosity", "0")
	require.Equal(t, 0, code)
	require.Empty(t, stderr)
}

func TestRun_Errors(t *testing.T) {
	tests := []struct {
		name string
		args []string
		want string
	}{
		{"unknown spec", []string{"--spec", "Atlantis"}, "unknown spec"},
		{"bad hex", []string{"--code", "0xzz"}, "code"},
		{"bad address", []string{"--sender", "nope"}, "sender"},
		{"intrinsic gas", []string{"--gas", "100"}, "intrinsic"},
		{"missing config", []string{"--config", filepath.Join(t.TempDir(), "none.toml")}, "config file not found"},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			code, _, stderr := runArgs(t, tc.args...)
			require.Equal(t, 1, code)
			require.Contains(t, stderr, tc.want)
		})
	}
}

func writeConfig(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "evmrun.toml")
	require.NoError(t, os.WriteFile(path, []byte(body), 0o600))
	return path
}

func TestLoadConfig(t *testing.T) {
	cfg, err := LoadConfig("")
	require.NoError(t, err)
	require.Equal(t, DefaultConfig(), *cfg)

	path := writeConfig(t, strings.Join([]string{
		`spec = "London"`,
		`code = "00"`,
		`gas = 50000`,
		`trace = true`,
	}, "\n"))
	cfg, err = LoadConfig(path)
	require.NoError(t, err)
	require.Equal(t, "London", cfg.Spec)
	require.Equal(t, "00", cfg.Code)
	require.Equal(t, uint64(50000), cfg.Gas)
	require.True(t, cfg.Trace)
	require.Equal(t, DefaultConfig().Sender, cfg.Sender)

	_, err = LoadConfig(writeConfig(t, `colour = "blue"`))
	require.ErrorIs(t, err, ErrInvalidConfig)
}

func TestRun_FlagsOverrideConfig(t *testing.T) {
	// 30000 gas is not enough for a cold store.
	path := writeConfig(t, strings.Join([]string{
		`code = "` + storeCode + `"`,
		`gas = 30000`,
	}, "\n"))

	code, lines, stderr := runArgs(t, "--config", path)
	require.Equal(t, 0, code, stderr)
	require.Equal(t, "OutOfGas", decodeSummary(t, lines[0]).Result)

	code, lines, stderr = runArgs(t, "--config", path, "--gas", "100000")
	require.Equal(t, 0, code, stderr)
	require.Equal(t, "Stop", decodeSummary(t, lines[0]).Result)
}
