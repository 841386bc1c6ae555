package state

import (
	"sync"

	"github.com/ethereum/go-ethereum/common"
	"github.com/holiman/uint256"
	"golang.org/x/crypto/sha3"
)

// Database is the storage the journaled state reads through to.
type Database interface {
	// Account returns nil, nil for an account that does not exist.
	Account(addr common.Address) (*AccountInfo, error)
	Code(hash common.Hash) ([]byte, error)
	Storage(addr common.Address, key uint256.Int) (uint256.Int, error)
}

// DatabaseCommit is a Database that can absorb the changes of a finished
// transaction.
type DatabaseCommit interface {
	Database
	Commit(changes State)
}

func keccak256(data []byte) []byte {
	h := sha3.NewLegacyKeccak256()
	h.Write(data)
	return h.Sum(nil)
}

// MemoryDB is an in-memory Database. It is safe for concurrent use.
type MemoryDB struct {
	mu       sync.RWMutex
	accounts map[common.Address]AccountInfo
	code     map[common.Hash][]byte
	storage  map[common.Address]map[uint256.Int]uint256.Int
}

// NewMemoryDB returns an empty database.
func NewMemoryDB() *MemoryDB {
	return &MemoryDB{
		accounts: make(map[common.Address]AccountInfo),
		code:     make(map[common.Hash][]byte),
		storage:  make(map[common.Address]map[uint256.Int]uint256.Int),
	}
}

// InsertAccount stores info at addr, indexing its code by hash.
func (db *MemoryDB) InsertAccount(addr common.Address, info AccountInfo) {
	db.mu.Lock()
	defer db.mu.Unlock()
	db.insertLocked(addr, info)
}

func (db *MemoryDB) insertLocked(addr common.Address, info AccountInfo) {
	if len(info.Code) > 0 {
		db.code[info.CodeHash] = info.Code
	}
	info.Code = nil
	db.accounts[addr] = info
}

// SetStorage writes a single slot.
func (db *MemoryDB) SetStorage(addr common.Address, key, value uint256.Int) {
	db.mu.Lock()
	defer db.mu.Unlock()
	db.setStorageLocked(addr, key, value)
}

func (db *MemoryDB) setStorageLocked(addr common.Address, key, value uint256.Int) {
	slots := db.storage[addr]
	if slots == nil {
		slots = make(map[uint256.Int]uint256.Int)
		db.storage[addr] = slots
	}
	if value.IsZero() {
		delete(slots, key)
		return
	}
	slots[key] = value
}

func (db *MemoryDB) Account(addr common.Address) (*AccountInfo, error) {
	db.mu.RLock()
	defer db.mu.RUnlock()
	info, ok := db.accounts[addr]
	if !ok {
		return nil, nil
	}
	return &info, nil
}

func (db *MemoryDB) Code(hash common.Hash) ([]byte, error) {
	db.mu.RLock()
	defer db.mu.RUnlock()
	return db.code[hash], nil
}

func (db *MemoryDB) Storage(addr common.Address, key uint256.Int) (uint256.Int, error) {
	db.mu.RLock()
	defer db.mu.RUnlock()
	return db.storage[addr][key], nil
}

// Commit writes the touched accounts of a finished transaction. Destroyed
// and EIP-161-deleted accounts are removed together with their storage.
func (db *MemoryDB) Commit(changes State) {
	db.mu.Lock()
	defer db.mu.Unlock()
	for addr, acc := range changes {
		if !acc.IsTouched() {
			continue
		}
		if acc.IsSelfDestructed() || acc.IsDeleted() {
			delete(db.accounts, addr)
			delete(db.storage, addr)
			continue
		}
		if acc.IsCreated() {
			delete(db.storage, addr)
		}
		db.insertLocked(addr, acc.Info)
		for key, slot := range acc.Storage {
			if slot.IsChanged() {
				db.setStorageLocked(addr, key, slot.Present)
			}
		}
	}
}

var _ DatabaseCommit = (*MemoryDB)(nil)
