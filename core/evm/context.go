package evm

import (
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"
	"github.com/holiman/uint256"

	"github.com/eth2030/evmcore/core/state"
	"github.com/eth2030/evmcore/core/vm"
)

// Context is the per-transaction execution context shared by every frame:
// the environment, the journaled state and the active precompiles. It is
// the vm.Host instructions run against.
type Context struct {
	env         *vm.Env
	Journal     *state.JournaledState
	Precompiles *vm.Precompiles

	err error
}

// NewContext returns a context over journal.
func NewContext(env *vm.Env, journal *state.JournaledState, precompiles *vm.Precompiles) *Context {
	return &Context{env: env, Journal: journal, Precompiles: precompiles}
}

// Err returns the first database error hit while executing, if any. An
// instruction or frame that hit it has already reported FatalExternalError.
func (c *Context) Err() error { return c.err }

// Depth returns the current frame depth.
func (c *Context) Depth() int { return c.Journal.Depth() }

func (c *Context) fail(err error) bool {
	if c.err == nil {
		c.err = err
	}
	return false
}

func (c *Context) Env() *vm.Env { return c.env }

func (c *Context) LoadAccount(addr common.Address) (bool, bool, bool) {
	isCold, exists, err := c.Journal.LoadAccountExists(addr)
	if err != nil {
		return false, false, c.fail(err)
	}
	return isCold, exists, true
}

func (c *Context) Balance(addr common.Address) (uint256.Int, bool, bool) {
	acc, isCold, err := c.Journal.LoadAccount(addr)
	if err != nil {
		return uint256.Int{}, false, c.fail(err)
	}
	return acc.Info.Balance, isCold, true
}

func (c *Context) Code(addr common.Address) ([]byte, bool, bool) {
	acc, isCold, err := c.Journal.LoadCode(addr)
	if err != nil {
		return nil, false, c.fail(err)
	}
	return acc.Info.Code, isCold, true
}

// CodeHash returns zero for accounts that are empty under EIP-161
// (EIP-1052).
func (c *Context) CodeHash(addr common.Address) (common.Hash, bool, bool) {
	acc, isCold, err := c.Journal.LoadAccount(addr)
	if err != nil {
		return common.Hash{}, false, c.fail(err)
	}
	if acc.Info.IsEmpty() {
		return common.Hash{}, isCold, true
	}
	return acc.Info.CodeHash, isCold, true
}

func (c *Context) SLoad(addr common.Address, key uint256.Int) (uint256.Int, bool, bool) {
	v, isCold, err := c.Journal.SLoad(addr, key)
	if err != nil {
		return uint256.Int{}, false, c.fail(err)
	}
	return v, isCold, true
}

func (c *Context) SStore(addr common.Address, key, value uint256.Int) (vm.SStoreResult, bool) {
	res, err := c.Journal.SStore(addr, key, value)
	if err != nil {
		return vm.SStoreResult{}, c.fail(err)
	}
	return res, true
}

func (c *Context) Log(log *types.Log) {
	c.Journal.Log(log)
}

func (c *Context) SelfDestruct(addr, target common.Address) (vm.SelfDestructResult, bool) {
	res, err := c.Journal.SelfDestruct(addr, target)
	if err != nil {
		return vm.SelfDestructResult{}, c.fail(err)
	}
	return res, true
}

var _ vm.Host = (*Context)(nil)
