package state

import (
	"github.com/ethereum/go-ethereum/common"
	"github.com/holiman/uint256"
)

// JournalEntry is a revertible change to the journaled state.
type JournalEntry interface {
	revert(s *JournaledState)
}

// AccountWarmedEntry records an account moving from cold to warm.
type AccountWarmedEntry struct {
	Address common.Address
}

func (e AccountWarmedEntry) revert(s *JournaledState) {
	s.state[e.Address].set(StatusCold)
}

// AccountTouchedEntry records the first touch of an account.
type AccountTouchedEntry struct {
	Address common.Address
}

func (e AccountTouchedEntry) revert(s *JournaledState) {
	s.state[e.Address].unset(StatusTouched)
}

// AccountDestroyedEntry records a SELFDESTRUCT that marked Address for
// destruction and moved its balance to Target.
type AccountDestroyedEntry struct {
	Address             common.Address
	Target              common.Address
	PreviouslyDestroyed bool
	HadBalance          uint256.Int
}

func (e AccountDestroyedEntry) revert(s *JournaledState) {
	acc := s.state[e.Address]
	if !e.PreviouslyDestroyed {
		acc.unset(StatusSelfDestructed)
	}
	acc.Info.Balance.Add(&acc.Info.Balance, &e.HadBalance)
	if e.Address != e.Target {
		target := s.state[e.Target]
		target.Info.Balance.Sub(&target.Info.Balance, &e.HadBalance)
	}
}

// BalanceTransferEntry records value moved between two accounts.
type BalanceTransferEntry struct {
	From, To common.Address
	Amount   uint256.Int
}

func (e BalanceTransferEntry) revert(s *JournaledState) {
	from, to := s.state[e.From], s.state[e.To]
	from.Info.Balance.Add(&from.Info.Balance, &e.Amount)
	to.Info.Balance.Sub(&to.Info.Balance, &e.Amount)
}

// BalanceChangeEntry records a direct balance overwrite.
type BalanceChangeEntry struct {
	Address common.Address
	Prev    uint256.Int
}

func (e BalanceChangeEntry) revert(s *JournaledState) {
	s.state[e.Address].Info.Balance = e.Prev
}

// NonceChangeEntry records a nonce increment.
type NonceChangeEntry struct {
	Address common.Address
}

func (e NonceChangeEntry) revert(s *JournaledState) {
	s.state[e.Address].Info.Nonce--
}

// AccountCreatedEntry records an account created by CREATE or CREATE2.
type AccountCreatedEntry struct {
	Address common.Address
}

func (e AccountCreatedEntry) revert(s *JournaledState) {
	acc := s.state[e.Address]
	acc.unset(StatusCreated)
	acc.Info.Nonce = 0
}

// StorageChangedEntry records a storage write.
type StorageChangedEntry struct {
	Address common.Address
	Key     uint256.Int
	Prev    uint256.Int
}

func (e StorageChangedEntry) revert(s *JournaledState) {
	s.state[e.Address].Storage[e.Key].Present = e.Prev
}

// StorageWarmedEntry records a storage slot moving from cold to warm.
type StorageWarmedEntry struct {
	Address common.Address
	Key     uint256.Int
}

func (e StorageWarmedEntry) revert(s *JournaledState) {
	s.state[e.Address].Storage[e.Key].IsCold = true
}

// CodeChangeEntry records code installed on a freshly created account.
type CodeChangeEntry struct {
	Address common.Address
}

func (e CodeChangeEntry) revert(s *JournaledState) {
	acc := s.state[e.Address]
	acc.Info.Code = nil
	acc.Info.CodeHash = emptyCodeHash
}
