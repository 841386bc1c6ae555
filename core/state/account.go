package state

import (
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"
	"github.com/holiman/uint256"
)

// AccountInfo is the persistent part of an account.
type AccountInfo struct {
	Balance  uint256.Int
	Nonce    uint64
	CodeHash common.Hash
	Code     []byte // nil until loaded
}

// NewAccountInfo builds an info with code, deriving the code hash.
func NewAccountInfo(balance uint256.Int, nonce uint64, code []byte) AccountInfo {
	info := AccountInfo{Balance: balance, Nonce: nonce, CodeHash: types.EmptyCodeHash}
	if len(code) > 0 {
		info.Code = code
		info.CodeHash = common.BytesToHash(keccak256(code))
	}
	return info
}

// HasCode reports a code hash other than the empty one.
func (a AccountInfo) HasCode() bool {
	return a.CodeHash != types.EmptyCodeHash && a.CodeHash != (common.Hash{})
}

// IsEmpty reports the EIP-161 notion of an empty account.
func (a AccountInfo) IsEmpty() bool {
	return a.Nonce == 0 && a.Balance.IsZero() && !a.HasCode()
}

// AccountStatus tracks what happened to an account during a transaction.
type AccountStatus uint8

const (
	StatusLoaded AccountStatus = 1 << iota
	StatusCreated
	StatusSelfDestructed
	StatusTouched
	StatusLoadedAsNotExisting
	StatusCold
	StatusDeleted // empty and touched after Spurious Dragon
)

// StorageSlot is one storage value as seen by the transaction.
type StorageSlot struct {
	Original uint256.Int // value at the start of the transaction
	Present  uint256.Int
	IsCold   bool
}

// IsChanged reports whether the slot differs from its original value.
func (s *StorageSlot) IsChanged() bool {
	return !s.Original.Eq(&s.Present)
}

// Account is the in-transaction view of an account.
type Account struct {
	Info    AccountInfo
	Storage map[uint256.Int]*StorageSlot
	Status  AccountStatus
}

func newAccount(info AccountInfo, status AccountStatus) *Account {
	return &Account{Info: info, Storage: make(map[uint256.Int]*StorageSlot), Status: status}
}

func (a *Account) has(s AccountStatus) bool { return a.Status&s != 0 }
func (a *Account) set(s AccountStatus)      { a.Status |= s }
func (a *Account) unset(s AccountStatus)    { a.Status &^= s }

// IsCreated reports an account created during this transaction.
func (a *Account) IsCreated() bool { return a.has(StatusCreated) }

// IsSelfDestructed reports an account marked for destruction.
func (a *Account) IsSelfDestructed() bool { return a.has(StatusSelfDestructed) }

// IsTouched reports an account that must be written back.
func (a *Account) IsTouched() bool { return a.has(StatusTouched) }

// IsDeleted reports an account pruned as empty under EIP-161.
func (a *Account) IsDeleted() bool { return a.has(StatusDeleted) }

// IsLoadedAsNotExisting reports an account absent from the database.
func (a *Account) IsLoadedAsNotExisting() bool { return a.has(StatusLoadedAsNotExisting) }

// State is the set of accounts a transaction touched.
type State map[common.Address]*Account
