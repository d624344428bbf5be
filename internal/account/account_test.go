package account

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestPoolPickNextRoundRobinsAndPersistsCursor(t *testing.T) {
	pool := NewPool([]*Account{
		{Address: "0xAAA"},
		{Address: "0xBBB"},
		{Address: "0xCCC"},
	})

	var picked []string
	for i := 0; i < 5; i++ {
		a, err := pool.PickNext()
		require.NoError(t, err)
		picked = append(picked, a.Address)
	}

	require.Equal(t, []string{"0xAAA", "0xBBB", "0xCCC", "0xAAA", "0xBBB"}, picked)
}

func TestPoolPickNextNoAccounts(t *testing.T) {
	pool := NewPool(nil)
	_, err := pool.PickNext()
	require.ErrorIs(t, err, ErrNoAccounts)
}

func TestPoolFind(t *testing.T) {
	pool := NewPool([]*Account{{Address: "0xAAA"}, {Address: "0xBBB"}})

	a, ok := pool.Find("0xBBB")
	require.True(t, ok)
	require.Equal(t, "0xBBB", a.Address)

	_, ok = pool.Find("0xZZZ")
	require.False(t, ok)
}

func TestAssignNonceIncrementsStrictlyConsecutive(t *testing.T) {
	a := &Account{Address: "0xAAA", Nonce: 7}

	n1 := AssignNonce(a)
	n2 := AssignNonce(a)
	n3 := AssignNonce(a)

	require.Equal(t, uint64(7), n1)
	require.Equal(t, uint64(8), n2)
	require.Equal(t, uint64(9), n3)
	require.Equal(t, uint64(10), a.Nonce)
}

func TestRollbackReversesOneAssignment(t *testing.T) {
	a := &Account{Address: "0xAAA", Nonce: 7}

	n := AssignNonce(a)
	Rollback(a)

	require.Equal(t, uint64(7), n)
	require.Equal(t, uint64(7), a.Nonce)
}

func TestSyncNonceNeverDecreasesLocalValue(t *testing.T) {
	a := &Account{Address: "0xAAA", Nonce: 10}

	SyncNonce(a, 3)
	require.Equal(t, uint64(10), a.Nonce, "on-chain observation behind local optimistic nonce must not roll it back")

	SyncNonce(a, 20)
	require.Equal(t, uint64(20), a.Nonce, "on-chain observation ahead of local must advance it")
}
