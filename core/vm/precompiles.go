package vm

import (
	"errors"
	"maps"
	"math/big"
	"slices"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/crypto"
	gethvm "github.com/ethereum/go-ethereum/core/vm"
	"github.com/minio/sha256-simd"
	"golang.org/x/crypto/ripemd160"

	"github.com/eth2030/evmcore/params"
)

// PrecompiledContract is a native contract living at a fixed address.
type PrecompiledContract interface {
	RequiredGas(input []byte) uint64
	Run(input []byte) ([]byte, error)
}

// Precompiles is the set of precompiled contracts active in one spec.
type Precompiles struct {
	contracts map[common.Address]PrecompiledContract
	addresses []common.Address
}

// NewPrecompiles returns the precompiles active in spec. The hash and copy
// contracts, the point evaluation contract and BLS12-381 G1 addition are
// native; the remaining arithmetic contracts come from go-ethereum's
// fork sets.
func NewPrecompiles(spec params.SpecID) *Precompiles {
	contracts := make(map[common.Address]PrecompiledContract)
	for addr, c := range gethPrecompiles(spec) {
		contracts[addr] = c
	}
	contracts[common.BytesToAddress([]byte{0x01})] = &ecrecover{}
	contracts[common.BytesToAddress([]byte{0x02})] = &sha256hash{}
	contracts[common.BytesToAddress([]byte{0x03})] = &ripemd160hash{}
	contracts[common.BytesToAddress([]byte{0x04})] = &dataCopy{}
	if spec.IsEnabledIn(params.Cancun) {
		contracts[common.BytesToAddress([]byte{0x0a})] = &pointEvaluation{}
	}
	if spec.IsEnabledIn(params.Prague) {
		contracts[common.BytesToAddress([]byte{0x0b})] = &bls12381G1Add{}
	}

	addrs := slices.SortedFunc(maps.Keys(contracts), func(a, b common.Address) int {
		return a.Cmp(b)
	})
	return &Precompiles{contracts: contracts, addresses: addrs}
}

func gethPrecompiles(spec params.SpecID) gethvm.PrecompiledContracts {
	switch {
	case spec.IsEnabledIn(params.Prague):
		return gethvm.PrecompiledContractsPrague
	case spec.IsEnabledIn(params.Cancun):
		return gethvm.PrecompiledContractsCancun
	case spec.IsEnabledIn(params.Berlin):
		return gethvm.PrecompiledContractsBerlin
	case spec.IsEnabledIn(params.Istanbul):
		return gethvm.PrecompiledContractsIstanbul
	case spec.IsEnabledIn(params.Byzantium):
		return gethvm.PrecompiledContractsByzantium
	default:
		return gethvm.PrecompiledContractsHomestead
	}
}

// Get returns the contract at addr.
func (p *Precompiles) Get(addr common.Address) (PrecompiledContract, bool) {
	c, ok := p.contracts[addr]
	return c, ok
}

// Contains reports whether addr is a precompile.
func (p *Precompiles) Contains(addr common.Address) bool {
	_, ok := p.contracts[addr]
	return ok
}

// Addresses returns the precompile addresses in ascending order. They are
// warm from the start of every transaction (EIP-2929).
func (p *Precompiles) Addresses() []common.Address {
	return p.addresses
}

// RunPrecompile executes c with gasLimit gas and reports the outcome in
// frame terms.
func RunPrecompile(c PrecompiledContract, input []byte, gasLimit uint64) InterpreterResult {
	res := InterpreterResult{Result: Return, Gas: NewGas(gasLimit)}
	if !res.Gas.RecordCost(c.RequiredGas(input)) {
		res.Result = PrecompileOOG
		res.Gas.SpendAll()
		return res
	}
	out, err := c.Run(input)
	if err != nil {
		res.Result = PrecompileError
		res.Gas.SpendAll()
		return res
	}
	res.Output = out
	return res
}

var errBadInput = errors.New("precompile: malformed input")

func wordGas(input []byte, base, perWord uint64) uint64 {
	return base + toWords(uint64(len(input)))*perWord
}

func rightPad(data []byte, n int) []byte {
	if len(data) >= n {
		return data
	}
	out := make([]byte, n)
	copy(out, data)
	return out
}

type ecrecover struct{}

func (c *ecrecover) RequiredGas([]byte) uint64 { return 3000 }

func (c *ecrecover) Run(input []byte) ([]byte, error) {
	input = rightPad(input, 128)

	// v is a 32-byte word holding 27 or 28.
	if !allZero(input[32:63]) {
		return nil, nil
	}
	v := input[63] - 27
	r := new(big.Int).SetBytes(input[64:96])
	s := new(big.Int).SetBytes(input[96:128])
	if !crypto.ValidateSignatureValues(v, r, s, false) {
		return nil, nil
	}

	sig := make([]byte, 65)
	copy(sig, input[64:128])
	sig[64] = v
	pub, err := crypto.Ecrecover(input[:32], sig)
	if err != nil {
		return nil, nil
	}
	return common.LeftPadBytes(crypto.Keccak256(pub[1:])[12:], 32), nil
}

func allZero(b []byte) bool {
	for _, x := range b {
		if x != 0 {
			return false
		}
	}
	return true
}

type sha256hash struct{}

func (c *sha256hash) RequiredGas(input []byte) uint64 { return wordGas(input, 60, 12) }

func (c *sha256hash) Run(input []byte) ([]byte, error) {
	h := sha256.Sum256(input)
	return h[:], nil
}

type ripemd160hash struct{}

func (c *ripemd160hash) RequiredGas(input []byte) uint64 { return wordGas(input, 600, 120) }

func (c *ripemd160hash) Run(input []byte) ([]byte, error) {
	h := ripemd160.New()
	h.Write(input)
	return common.LeftPadBytes(h.Sum(nil), 32), nil
}

type dataCopy struct{}

func (c *dataCopy) RequiredGas(input []byte) uint64 { return wordGas(input, 15, 3) }

func (c *dataCopy) Run(input []byte) ([]byte, error) {
	return common.CopyBytes(input), nil
}
