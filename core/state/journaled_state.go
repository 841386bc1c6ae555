package state

import (
	"errors"
	"fmt"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"
	"github.com/holiman/uint256"

	"github.com/eth2030/evmcore/core/vm"
	"github.com/eth2030/evmcore/params"
)

var emptyCodeHash = types.EmptyCodeHash

var (
	ErrOutOfFunds      = errors.New("state: insufficient balance for transfer")
	ErrOverflowPayment = errors.New("state: balance overflow")
	ErrCreateCollision = errors.New("state: contract address collision")
	ErrNonceOverflow   = errors.New("state: nonce overflow")
)

// Checkpoint marks a point the journaled state can be reverted to.
type Checkpoint struct {
	LogIndex     int
	JournalIndex int
}

// JournaledState is the transaction-scoped world state. Every change is
// recorded in a flat journal so that a frame's changes can be undone by
// reverting to the checkpoint taken when the frame started.
type JournaledState struct {
	db      Database
	spec    params.SpecID
	state   State
	logs    []*types.Log
	journal []JournalEntry
	depth   int
}

// NewJournaledState returns an empty journaled state reading through to db.
func NewJournaledState(db Database, spec params.SpecID) *JournaledState {
	return &JournaledState{db: db, spec: spec, state: make(State)}
}

// Spec returns the active spec.
func (s *JournaledState) Spec() params.SpecID { return s.spec }

// Depth returns the number of open checkpoints.
func (s *JournaledState) Depth() int { return s.depth }

// Checkpoint opens a new checkpoint.
func (s *JournaledState) Checkpoint() Checkpoint {
	cp := Checkpoint{LogIndex: len(s.logs), JournalIndex: len(s.journal)}
	s.depth++
	return cp
}

// CheckpointCommit closes the innermost checkpoint keeping its changes.
func (s *JournaledState) CheckpointCommit() {
	s.depth--
}

// CheckpointRevert closes the innermost checkpoint and undoes every change
// made since cp was taken.
func (s *JournaledState) CheckpointRevert(cp Checkpoint) {
	s.depth--
	for i := len(s.journal) - 1; i >= cp.JournalIndex; i-- {
		s.journal[i].revert(s)
	}
	s.journal = s.journal[:cp.JournalIndex]
	s.logs = s.logs[:cp.LogIndex]
}

// JournalLen returns the number of journal entries.
func (s *JournaledState) JournalLen() int { return len(s.journal) }

// LastJournalEntry returns the most recent journal entry, if any.
func (s *JournaledState) LastJournalEntry() (JournalEntry, bool) {
	if len(s.journal) == 0 {
		return nil, false
	}
	return s.journal[len(s.journal)-1], true
}

// Logs returns the logs emitted so far.
func (s *JournaledState) Logs() []*types.Log { return s.logs }

// Log appends a log.
func (s *JournaledState) Log(log *types.Log) {
	s.logs = append(s.logs, log)
}

// Account returns the cached account at addr, or nil if it was never
// loaded.
func (s *JournaledState) Account(addr common.Address) *Account {
	return s.state[addr]
}

// WarmAccount loads addr as warm without journaling, for accounts that are
// warm from the start of a transaction.
func (s *JournaledState) WarmAccount(addr common.Address) error {
	acc, err := s.loadAccount(addr)
	if err != nil {
		return err
	}
	acc.unset(StatusCold)
	return nil
}

// WarmStorage marks key of addr warm without journaling (EIP-2930 access
// lists).
func (s *JournaledState) WarmStorage(addr common.Address, key uint256.Int) error {
	if _, err := s.loadAccount(addr); err != nil {
		return err
	}
	slot, err := s.loadSlot(addr, key)
	if err != nil {
		return err
	}
	slot.IsCold = false
	return nil
}

func (s *JournaledState) loadAccount(addr common.Address) (*Account, error) {
	if acc, ok := s.state[addr]; ok {
		return acc, nil
	}
	info, err := s.db.Account(addr)
	if err != nil {
		return nil, fmt.Errorf("load account %s: %w", addr, err)
	}
	var acc *Account
	if info == nil {
		acc = newAccount(AccountInfo{CodeHash: emptyCodeHash}, StatusLoaded|StatusLoadedAsNotExisting|StatusCold)
	} else {
		acc = newAccount(*info, StatusLoaded|StatusCold)
	}
	s.state[addr] = acc
	return acc, nil
}

func (s *JournaledState) loadSlot(addr common.Address, key uint256.Int) (*StorageSlot, error) {
	acc, err := s.loadAccount(addr)
	if err != nil {
		return nil, err
	}
	if slot, ok := acc.Storage[key]; ok {
		return slot, nil
	}
	var value uint256.Int
	if !acc.IsCreated() {
		v, err := s.db.Storage(addr, key)
		if err != nil {
			return nil, fmt.Errorf("load storage %s/%s: %w", addr, key.Hex(), err)
		}
		value = v
	}
	slot := &StorageSlot{Original: value, Present: value, IsCold: true}
	acc.Storage[key] = slot
	return slot, nil
}

// LoadAccount returns the account at addr, reading it from the database on
// first use. The first access in a transaction is cold.
func (s *JournaledState) LoadAccount(addr common.Address) (*Account, bool, error) {
	acc, err := s.loadAccount(addr)
	if err != nil {
		return nil, false, err
	}
	isCold := acc.has(StatusCold)
	if isCold {
		acc.unset(StatusCold)
		s.journal = append(s.journal, AccountWarmedEntry{Address: addr})
	}
	return acc, isCold, nil
}

// LoadAccountExists loads addr and reports whether it exists. From Spurious
// Dragon on, empty accounts count as non-existent.
func (s *JournaledState) LoadAccountExists(addr common.Address) (bool, bool, error) {
	acc, isCold, err := s.LoadAccount(addr)
	if err != nil {
		return false, false, err
	}
	exists := !acc.IsLoadedAsNotExisting() || acc.IsTouched()
	if s.spec.IsEnabledIn(params.SpuriousDragon) {
		exists = !acc.Info.IsEmpty()
	}
	return isCold, exists, nil
}

// LoadCode loads addr together with its code.
func (s *JournaledState) LoadCode(addr common.Address) (*Account, bool, error) {
	acc, isCold, err := s.LoadAccount(addr)
	if err != nil {
		return nil, false, err
	}
	if acc.Info.Code == nil && acc.Info.HasCode() {
		code, err := s.db.Code(acc.Info.CodeHash)
		if err != nil {
			return nil, false, fmt.Errorf("load code %s: %w", acc.Info.CodeHash, err)
		}
		acc.Info.Code = code
	}
	return acc, isCold, nil
}

// Touch marks addr as modified so it is written back.
func (s *JournaledState) Touch(addr common.Address) {
	acc := s.state[addr]
	if acc != nil && !acc.IsTouched() {
		acc.set(StatusTouched)
		s.journal = append(s.journal, AccountTouchedEntry{Address: addr})
	}
}

// Transfer moves value from one loaded account to another.
func (s *JournaledState) Transfer(from, to common.Address, value uint256.Int) error {
	if _, _, err := s.LoadAccount(from); err != nil {
		return err
	}
	if _, _, err := s.LoadAccount(to); err != nil {
		return err
	}
	s.Touch(from)
	s.Touch(to)
	if value.IsZero() {
		return nil
	}

	fromAcc, toAcc := s.state[from], s.state[to]
	if fromAcc.Info.Balance.Lt(&value) {
		return ErrOutOfFunds
	}
	if _, overflow := new(uint256.Int).AddOverflow(&toAcc.Info.Balance, &value); overflow {
		return ErrOverflowPayment
	}
	fromAcc.Info.Balance.Sub(&fromAcc.Info.Balance, &value)
	toAcc.Info.Balance.Add(&toAcc.Info.Balance, &value)
	s.journal = append(s.journal, BalanceTransferEntry{From: from, To: to, Amount: value})
	return nil
}

// SetBalance overwrites the balance of a loaded account.
func (s *JournaledState) SetBalance(addr common.Address, balance uint256.Int) {
	acc := s.state[addr]
	s.journal = append(s.journal, BalanceChangeEntry{Address: addr, Prev: acc.Info.Balance})
	acc.Info.Balance = balance
	s.Touch(addr)
}

// IncNonce bumps the nonce of a loaded account, returning the old nonce.
func (s *JournaledState) IncNonce(addr common.Address) (uint64, error) {
	acc := s.state[addr]
	if acc.Info.Nonce == ^uint64(0) {
		return 0, ErrNonceOverflow
	}
	s.Touch(addr)
	s.journal = append(s.journal, NonceChangeEntry{Address: addr})
	acc.Info.Nonce++
	return acc.Info.Nonce - 1, nil
}

// SetCode installs code on a loaded account.
func (s *JournaledState) SetCode(addr common.Address, code []byte) {
	acc := s.state[addr]
	s.Touch(addr)
	s.journal = append(s.journal, CodeChangeEntry{Address: addr})
	acc.Info.Code = code
	acc.Info.CodeHash = common.BytesToHash(keccak256(code))
}

// CreateAccountCheckpoint opens a checkpoint for a new contract at address,
// marks the account created and moves value into it. On failure the
// checkpoint is already reverted.
func (s *JournaledState) CreateAccountCheckpoint(caller, address common.Address, value uint256.Int) (Checkpoint, error) {
	cp := s.Checkpoint()

	acc, _, err := s.LoadAccount(address)
	if err != nil {
		s.CheckpointRevert(cp)
		return cp, err
	}
	if acc.Info.HasCode() || acc.Info.Nonce != 0 {
		s.CheckpointRevert(cp)
		return cp, ErrCreateCollision
	}

	acc.set(StatusCreated)
	s.journal = append(s.journal, AccountCreatedEntry{Address: address})
	acc.Info.Code = nil
	acc.Info.CodeHash = emptyCodeHash
	s.Touch(address)

	if s.spec.IsEnabledIn(params.SpuriousDragon) {
		acc.Info.Nonce = 1
	}
	if err := s.Transfer(caller, address, value); err != nil {
		s.CheckpointRevert(cp)
		return cp, err
	}
	return cp, nil
}

// SLoad reads a storage slot, loading the account first if needed.
func (s *JournaledState) SLoad(addr common.Address, key uint256.Int) (uint256.Int, bool, error) {
	slot, err := s.loadSlot(addr, key)
	if err != nil {
		return uint256.Int{}, false, err
	}
	isCold := slot.IsCold
	if isCold {
		slot.IsCold = false
		s.journal = append(s.journal, StorageWarmedEntry{Address: addr, Key: key})
	}
	return slot.Present, isCold, nil
}

// SStore writes a storage slot and reports the values needed to price the
// write.
func (s *JournaledState) SStore(addr common.Address, key, value uint256.Int) (vm.SStoreResult, error) {
	present, isCold, err := s.SLoad(addr, key)
	if err != nil {
		return vm.SStoreResult{}, err
	}
	slot := s.state[addr].Storage[key]
	res := vm.SStoreResult{Original: slot.Original, Present: present, New: value, IsCold: isCold}
	if present.Eq(&value) {
		return res, nil
	}
	s.journal = append(s.journal, StorageChangedEntry{Address: addr, Key: key, Prev: present})
	slot.Present = value
	return res, nil
}

// SelfDestruct moves the balance of address to target and, where the fork
// allows, marks address for destruction. From Cancun (EIP-6780) only
// accounts created in the same transaction are destroyed.
func (s *JournaledState) SelfDestruct(address, target common.Address) (vm.SelfDestructResult, error) {
	isCold, targetExists, err := s.LoadAccountExists(target)
	if err != nil {
		return vm.SelfDestructResult{}, err
	}
	acc := s.state[address]
	balance := acc.Info.Balance
	previouslyDestroyed := acc.IsSelfDestructed()

	if address != target {
		t := s.state[target]
		t.Info.Balance.Add(&t.Info.Balance, &balance)
		s.Touch(target)
	}

	switch {
	case acc.IsCreated() || !s.spec.IsEnabledIn(params.Cancun):
		acc.set(StatusSelfDestructed)
		acc.Info.Balance.Clear()
		s.journal = append(s.journal, AccountDestroyedEntry{
			Address:             address,
			Target:              target,
			PreviouslyDestroyed: previouslyDestroyed,
			HadBalance:          balance,
		})
	case address != target:
		acc.Info.Balance.Clear()
		s.journal = append(s.journal, BalanceTransferEntry{From: address, To: target, Amount: balance})
	}

	return vm.SelfDestructResult{
		HadValue:            !balance.IsZero(),
		TargetExists:        targetExists,
		IsCold:              isCold,
		PreviouslyDestroyed: previouslyDestroyed,
	}, nil
}

// Finalize ends the transaction: it returns the touched state and logs and
// resets the journal. From Spurious Dragon on, touched empty accounts are
// marked deleted.
func (s *JournaledState) Finalize() (State, []*types.Log) {
	if s.spec.IsEnabledIn(params.SpuriousDragon) {
		for _, acc := range s.state {
			if acc.IsTouched() && acc.Info.IsEmpty() {
				acc.set(StatusDeleted)
			}
		}
	}
	st, logs := s.state, s.logs
	s.state = make(State)
	s.logs = nil
	s.journal = nil
	s.depth = 0
	return st, logs
}
