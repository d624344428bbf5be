package store

import (
	"sync"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/somnia-chain/substrate-tx-engine/internal/account"
	"github.com/somnia-chain/substrate-tx-engine/internal/queue"
)

func TestReadReturnsIndependentSnapshot(t *testing.T) {
	s := New([]*account.Account{{Address: "0xAAA"}})

	s.Mutate(func(gs *GlobalState) {
		gs.Queue.Enqueue(&queue.Transaction{ID: "tx-1", SubmitterAddress: "0xAAA"})
	})

	snap := s.Read()
	require.Len(t, snap.Pending, 1)

	s.Mutate(func(gs *GlobalState) {
		gs.Queue.Enqueue(&queue.Transaction{ID: "tx-2", SubmitterAddress: "0xAAA"})
	})

	require.Len(t, snap.Pending, 1, "a prior snapshot must not observe a later mutation")
}

func TestMutateSerializesConcurrentWriters(t *testing.T) {
	s := New([]*account.Account{{Address: "0xAAA"}})

	var wg sync.WaitGroup
	for i := 0; i < 100; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			s.Mutate(func(gs *GlobalState) {
				gs.Queue.Enqueue(&queue.Transaction{ID: queue.NewID(), SubmitterAddress: "0xAAA"})
			})
		}(i)
	}
	wg.Wait()

	snap := s.Read()
	require.Len(t, snap.Pending, 100)
}

func TestGatewayReadyDefaultsFalse(t *testing.T) {
	s := New([]*account.Account{{Address: "0xAAA"}})
	require.False(t, s.Read().GatewayReady)

	s.Mutate(func(gs *GlobalState) {
		gs.GatewayReady = true
	})
	require.True(t, s.Read().GatewayReady)
}
