package vm

import (
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"
	"github.com/holiman/uint256"
)

// SStoreResult reports the slot values around an SSTORE so the instruction
// can price it.
type SStoreResult struct {
	Original uint256.Int // value at the start of the transaction
	Present  uint256.Int // value before this store
	New      uint256.Int
	IsCold   bool
}

// SelfDestructResult reports what a SELFDESTRUCT touched.
type SelfDestructResult struct {
	HadValue            bool
	TargetExists        bool
	IsCold              bool
	PreviouslyDestroyed bool
}

// Host is the world view instructions run against. Each accessor that can
// hit the backing database reports ok=false on a database failure; the
// instruction then halts with FatalExternalError and the host keeps the
// underlying error.
type Host interface {
	Env() *Env

	// LoadAccount warms addr and reports whether it was cold and whether
	// it exists (non-empty, per EIP-161 after Spurious Dragon).
	LoadAccount(addr common.Address) (isCold, exists, ok bool)

	Balance(addr common.Address) (balance uint256.Int, isCold, ok bool)
	Code(addr common.Address) (code []byte, isCold, ok bool)
	CodeHash(addr common.Address) (hash common.Hash, isCold, ok bool)

	SLoad(addr common.Address, key uint256.Int) (value uint256.Int, isCold, ok bool)
	SStore(addr common.Address, key, value uint256.Int) (SStoreResult, bool)

	Log(log *types.Log)
	SelfDestruct(addr, target common.Address) (SelfDestructResult, bool)
}
