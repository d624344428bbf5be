package queue

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func newTx(id, address string, nonce uint64) *Transaction {
	return &Transaction{
		ID:               id,
		SubmitterAddress: address,
		Call:             Call{Module: "Balances", Method: "transfer"},
		AssignedNonce:    nonce,
		Status:           Pending,
	}
}

func TestEnqueueAndPromoteFollowsFIFOOrder(t *testing.T) {
	s := NewState()
	s.Enqueue(newTx("tx-1", "0xAAA", 0))
	s.Enqueue(newTx("tx-2", "0xAAA", 1))

	head := s.PeekPending()
	require.Equal(t, "tx-1", head.ID)

	promoted := s.PromoteHeadToProcessing("tx-1")
	require.Equal(t, Submitted, promoted.Status)
	require.Equal(t, "tx-2", s.PeekPending().ID, "tx-2 is now head")

	_, stillPending := s.Get("tx-2")
	require.True(t, stillPending)
	_, inProcessing := s.Processing["tx-1"]
	require.True(t, inProcessing)
}

func TestPromoteHeadToProcessingPanicsOnOrderViolation(t *testing.T) {
	s := NewState()
	s.Enqueue(newTx("tx-1", "0xAAA", 0))
	s.Enqueue(newTx("tx-2", "0xAAA", 1))

	require.Panics(t, func() {
		s.PromoteHeadToProcessing("tx-2")
	})
}

func TestInvariantTransactionNeverInBothPendingAndProcessing(t *testing.T) {
	s := NewState()
	s.Enqueue(newTx("tx-1", "0xAAA", 0))
	s.PromoteHeadToProcessing("tx-1")

	for _, p := range s.Pending {
		require.NotEqual(t, "tx-1", p.ID)
	}
	_, ok := s.Processing["tx-1"]
	require.True(t, ok)
}

func TestFailFromPendingMovesToFailedNotProcessing(t *testing.T) {
	s := NewState()
	s.Enqueue(newTx("tx-1", "0xAAA", 0))

	failed := s.FailFromPending("tx-1")
	require.Equal(t, Failed, failed.Status)

	require.Empty(t, s.Pending)
	require.Empty(t, s.Processing)
	_, ok := s.Failed["tx-1"]
	require.True(t, ok, "a transaction failed before submission must leave both live queues")
}

func TestConfirmProcessingRemovesFromProcessing(t *testing.T) {
	s := NewState()
	s.Enqueue(newTx("tx-1", "0xAAA", 0))
	s.PromoteHeadToProcessing("tx-1")

	confirmed := s.ConfirmProcessing("tx-1")
	require.Equal(t, Confirmed, confirmed.Status)
	require.Empty(t, s.Processing)

	_, ok := s.Get("tx-1")
	require.False(t, ok, "a confirmed transaction is terminal and no longer tracked")
}

func TestFailProcessingMovesToFailedSet(t *testing.T) {
	s := NewState()
	s.Enqueue(newTx("tx-1", "0xAAA", 0))
	s.PromoteHeadToProcessing("tx-1")

	failed := s.FailProcessing("tx-1")
	require.Equal(t, Failed, failed.Status)
	require.Empty(t, s.Processing)
	_, ok := s.Failed["tx-1"]
	require.True(t, ok)
}

func TestRequeueForRetryReturnsToPendingTailWithFreshNonce(t *testing.T) {
	s := NewState()
	s.Enqueue(newTx("tx-1", "0xAAA", 0))
	s.Enqueue(newTx("tx-2", "0xAAA", 1))
	s.PromoteHeadToProcessing("tx-1")
	s.FailProcessing("tx-1")

	retried := s.RequeueForRetry("tx-1", 5)
	require.Equal(t, Pending, retried.Status)
	require.Equal(t, uint64(5), retried.AssignedNonce)
	require.Equal(t, 1, retried.RetryCount)

	require.Len(t, s.Pending, 2)
	require.Equal(t, "tx-2", s.Pending[0].ID, "tx-1 rejoins at the tail, not the head")
	require.Equal(t, "tx-1", s.Pending[1].ID)
	require.Empty(t, s.Failed)
}

func TestDropPermanentlyRemovesFailedTransaction(t *testing.T) {
	s := NewState()
	s.Enqueue(newTx("tx-1", "0xAAA", 0))
	s.FailFromPending("tx-1")

	s.Drop("tx-1")

	_, ok := s.Get("tx-1")
	require.False(t, ok)
	require.Empty(t, s.FailedTransactions())
}

func TestDepthsExcludeFailedSet(t *testing.T) {
	s := NewState()
	s.Enqueue(newTx("tx-1", "0xAAA", 0))
	s.Enqueue(newTx("tx-2", "0xAAA", 1))
	s.PromoteHeadToProcessing("tx-1")
	s.FailProcessing("tx-1")

	pending, processing := s.Depths()
	require.Equal(t, 1, pending)
	require.Equal(t, 0, processing)
}

func TestNewIDReturnsUniqueValues(t *testing.T) {
	seen := map[string]bool{}
	for i := 0; i < 100; i++ {
		id := NewID()
		require.False(t, seen[id])
		seen[id] = true
	}
}
