package vm

import (
	"github.com/ethereum/go-ethereum/common"
	"github.com/holiman/uint256"
)

// Env is the read-only execution environment of one transaction.
type Env struct {
	Cfg   CfgEnv
	Block BlockEnv
	Tx    TxEnv
}

// CfgEnv holds chain-level switches.
type CfgEnv struct {
	ChainID uint64

	// DisableGasRefund skips refund accounting entirely; final refunds are
	// always zero.
	DisableGasRefund bool

	// DisableBalanceCheck lets a caller start a transaction it cannot pay
	// for; the up-front charge is skipped.
	DisableBalanceCheck bool

	// DisableBaseFee accepts gas prices below the block base fee.
	DisableBaseFee bool

	// DisableNonceCheck ignores TxEnv.Nonce.
	DisableNonceCheck bool
}

// BlockEnv describes the block the transaction is included in.
type BlockEnv struct {
	Number     uint64
	Coinbase   common.Address
	Timestamp  uint64
	GasLimit   uint64
	BaseFee    uint256.Int
	PrevRandao common.Hash
}

// TxEnv describes the transaction itself. A nil To means contract
// creation.
type TxEnv struct {
	Caller     common.Address
	GasLimit   uint64
	GasPrice   uint256.Int
	To         *common.Address
	Value      uint256.Int
	Data       []byte
	Nonce      *uint64
	AccessList []AccessTuple
}

// AccessTuple is an EIP-2930 access list entry.
type AccessTuple struct {
	Address     common.Address
	StorageKeys []common.Hash
}

// IsCreate reports a contract-creation transaction.
func (tx *TxEnv) IsCreate() bool {
	return tx.To == nil
}

// EffectiveGasPrice returns the price paid per unit of gas.
func (e *Env) EffectiveGasPrice() uint256.Int {
	return e.Tx.GasPrice
}
