package state

import (
	"errors"
	"testing"

	"github.com/ethereum/go-ethereum/common"
	"github.com/holiman/uint256"
	"github.com/stretchr/testify/require"

	"github.com/eth2030/evmcore/params"
)

var (
	alice = common.HexToAddress("0xa11ce")
	bob   = common.HexToAddress("0xb0b")
	carol = common.HexToAddress("0xca401")
)

func newTestState(t *testing.T, spec params.SpecID) (*MemoryDB, *JournaledState) {
	t.Helper()
	db := NewMemoryDB()
	db.InsertAccount(alice, NewAccountInfo(*uint256.NewInt(1000), 1, nil))
	db.InsertAccount(bob, NewAccountInfo(*uint256.NewInt(10), 0, []byte{0x00}))
	db.SetStorage(bob, *uint256.NewInt(1), *uint256.NewInt(7))
	return db, NewJournaledState(db, spec)
}

func TestJournaledState_LoadAccountColdThenWarm(t *testing.T) {
	_, s := newTestState(t, params.Cancun)

	acc, cold, err := s.LoadAccount(alice)
	require.NoError(t, err)
	require.True(t, cold)
	require.Equal(t, uint64(1000), acc.Info.Balance.Uint64())

	_, cold, err = s.LoadAccount(alice)
	require.NoError(t, err)
	require.False(t, cold)
	require.Equal(t, 1, s.JournalLen())

	require.NoError(t, s.WarmAccount(carol))
	_, cold, err = s.LoadAccount(carol)
	require.NoError(t, err)
	require.False(t, cold)
	require.Equal(t, 1, s.JournalLen())
}

func TestJournaledState_CheckpointRevert(t *testing.T) {
	_, s := newTestState(t, params.Cancun)

	cp := s.Checkpoint()
	require.Equal(t, 1, s.Depth())
	require.NoError(t, s.Transfer(alice, bob, *uint256.NewInt(100)))
	_, err := s.SStore(bob, *uint256.NewInt(1), *uint256.NewInt(9))
	require.NoError(t, err)
	s.Log(nil)

	require.Equal(t, uint64(900), s.Account(alice).Info.Balance.Uint64())
	require.Len(t, s.Logs(), 1)

	s.CheckpointRevert(cp)
	require.Equal(t, 0, s.Depth())
	require.Equal(t, 0, s.JournalLen())
	require.Empty(t, s.Logs())
	require.Equal(t, uint64(1000), s.Account(alice).Info.Balance.Uint64())
	require.Equal(t, uint64(10), s.Account(bob).Info.Balance.Uint64())
	require.False(t, s.Account(alice).IsTouched())

	v, cold, err := s.SLoad(bob, *uint256.NewInt(1))
	require.NoError(t, err)
	require.True(t, cold)
	require.Equal(t, uint64(7), v.Uint64())
}

func TestJournaledState_CheckpointCommitKeepsChanges(t *testing.T) {
	_, s := newTestState(t, params.Cancun)

	outer := s.Checkpoint()
	s.Checkpoint()
	require.NoError(t, s.Transfer(alice, bob, *uint256.NewInt(5)))
	s.CheckpointCommit()
	require.Equal(t, uint64(995), s.Account(alice).Info.Balance.Uint64())

	s.CheckpointRevert(outer)
	require.Equal(t, uint64(1000), s.Account(alice).Info.Balance.Uint64())
}

func TestJournaledState_TransferOutOfFunds(t *testing.T) {
	_, s := newTestState(t, params.Cancun)

	err := s.Transfer(bob, alice, *uint256.NewInt(11))
	require.ErrorIs(t, err, ErrOutOfFunds)
	require.Equal(t, uint64(10), s.Account(bob).Info.Balance.Uint64())
}

func TestJournaledState_CreateAccount(t *testing.T) {
	_, s := newTestState(t, params.Cancun)

	_, err := s.CreateAccountCheckpoint(alice, bob, uint256.Int{})
	require.ErrorIs(t, err, ErrCreateCollision)
	require.Equal(t, 0, s.Depth())

	cp, err := s.CreateAccountCheckpoint(alice, carol, *uint256.NewInt(50))
	require.NoError(t, err)
	acc := s.Account(carol)
	require.True(t, acc.IsCreated())
	require.Equal(t, uint64(1), acc.Info.Nonce)
	require.Equal(t, uint64(50), acc.Info.Balance.Uint64())

	s.CheckpointRevert(cp)
	require.False(t, acc.IsCreated())
	require.Equal(t, uint64(0), acc.Info.Nonce)
	require.True(t, acc.Info.Balance.IsZero())

	_, err = s.CreateAccountCheckpoint(alice, carol, *uint256.NewInt(5000))
	require.ErrorIs(t, err, ErrOutOfFunds)
	require.False(t, acc.IsCreated())
	require.Equal(t, 0, s.Depth())
}

func TestJournaledState_SStoreResult(t *testing.T) {
	_, s := newTestState(t, params.Cancun)
	key := *uint256.NewInt(1)

	res, err := s.SStore(bob, key, *uint256.NewInt(8))
	require.NoError(t, err)
	require.True(t, res.IsCold)
	require.Equal(t, uint64(7), res.Original.Uint64())
	require.Equal(t, uint64(7), res.Present.Uint64())
	require.Equal(t, uint64(8), res.New.Uint64())

	res, err = s.SStore(bob, key, *uint256.NewInt(9))
	require.NoError(t, err)
	require.False(t, res.IsCold)
	require.Equal(t, uint64(7), res.Original.Uint64())
	require.Equal(t, uint64(8), res.Present.Uint64())
}

// brokenDB fails every read.
type brokenDB struct{}

var errBroken = errors.New("disk on fire")

func (brokenDB) Account(common.Address) (*AccountInfo, error) { return nil, errBroken }
func (brokenDB) Code(common.Hash) ([]byte, error)             { return nil, errBroken }
func (brokenDB) Storage(common.Address, uint256.Int) (uint256.Int, error) {
	return uint256.Int{}, errBroken
}

func TestJournaledState_SLoadUnloadedAccount(t *testing.T) {
	_, s := newTestState(t, params.Cancun)
	require.Nil(t, s.Account(bob))

	v, cold, err := s.SLoad(bob, *uint256.NewInt(1))
	require.NoError(t, err)
	require.True(t, cold)
	require.Equal(t, uint64(7), v.Uint64())
	require.NotNil(t, s.Account(bob))

	broken := NewJournaledState(brokenDB{}, params.Cancun)
	_, _, err = broken.SLoad(bob, *uint256.NewInt(1))
	require.ErrorIs(t, err, errBroken)
	_, err = broken.SStore(bob, *uint256.NewInt(1), *uint256.NewInt(2))
	require.ErrorIs(t, err, errBroken)
}

func TestJournaledState_SelfDestruct(t *testing.T) {
	tests := []struct {
		name      string
		spec      params.SpecID
		created   bool
		destroyed bool
	}{
		{"pre-cancun existing", params.Shanghai, false, true},
		{"cancun existing", params.Cancun, false, false},
		{"cancun created", params.Cancun, true, true},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			_, s := newTestState(t, tc.spec)
			_, _, err := s.LoadAccount(bob)
			require.NoError(t, err)
			if tc.created {
				s.Account(bob).set(StatusCreated)
			}

			res, err := s.SelfDestruct(bob, carol)
			require.NoError(t, err)
			require.True(t, res.HadValue)
			require.False(t, res.TargetExists)
			require.True(t, res.IsCold)
			require.Equal(t, uint64(10), s.Account(carol).Info.Balance.Uint64())
			require.True(t, s.Account(bob).Info.Balance.IsZero())
			require.Equal(t, tc.destroyed, s.Account(bob).IsSelfDestructed())

			last, ok := s.LastJournalEntry()
			require.True(t, ok)
			_, isDestroy := last.(AccountDestroyedEntry)
			require.Equal(t, tc.destroyed, isDestroy)
		})
	}
}

func TestJournaledState_SelfDestructRevert(t *testing.T) {
	_, s := newTestState(t, params.Shanghai)
	_, _, err := s.LoadAccount(bob)
	require.NoError(t, err)

	cp := s.Checkpoint()
	_, err = s.SelfDestruct(bob, carol)
	require.NoError(t, err)
	s.CheckpointRevert(cp)

	require.False(t, s.Account(bob).IsSelfDestructed())
	require.Equal(t, uint64(10), s.Account(bob).Info.Balance.Uint64())
	require.True(t, s.Account(carol).Info.Balance.IsZero())
}

func TestJournaledState_FinalizeAndCommit(t *testing.T) {
	db, s := newTestState(t, params.Cancun)

	// Touching an absent account with a zero transfer leaves it empty.
	require.NoError(t, s.Transfer(alice, carol, uint256.Int{}))
	require.NoError(t, s.Transfer(alice, bob, *uint256.NewInt(1)))
	_, err := s.SStore(bob, *uint256.NewInt(1), uint256.Int{})
	require.NoError(t, err)
	_, err = s.SStore(bob, *uint256.NewInt(2), *uint256.NewInt(3))
	require.NoError(t, err)

	changes, logs := s.Finalize()
	require.Empty(t, logs)
	require.True(t, changes[carol].IsDeleted())
	require.Equal(t, 0, s.JournalLen())

	db.Commit(changes)

	info, err := db.Account(carol)
	require.NoError(t, err)
	require.Nil(t, info)

	info, err = db.Account(bob)
	require.NoError(t, err)
	require.Equal(t, uint64(11), info.Balance.Uint64())
	v, err := db.Storage(bob, *uint256.NewInt(1))
	require.NoError(t, err)
	require.True(t, v.IsZero())
	v, err = db.Storage(bob, *uint256.NewInt(2))
	require.NoError(t, err)
	require.Equal(t, uint64(3), v.Uint64())
}

func TestAccountInfo_IsEmpty(t *testing.T) {
	require.True(t, NewAccountInfo(uint256.Int{}, 0, nil).IsEmpty())
	require.False(t, NewAccountInfo(uint256.Int{}, 1, nil).IsEmpty())
	require.False(t, NewAccountInfo(uint256.Int{}, 0, []byte{0x00}).IsEmpty())
}
