package submitter

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/somnia-chain/substrate-tx-engine/internal/account"
	"github.com/somnia-chain/substrate-tx-engine/internal/gateway"
	"github.com/somnia-chain/substrate-tx-engine/internal/queue"
	"github.com/somnia-chain/substrate-tx-engine/internal/store"
)

// fakeGateway is a hand-written test double rather than a mocking
// framework dependency.
type fakeGateway struct {
	submitErr   error
	onSubmit    func(call gateway.Call, nonce uint64, onEvent gateway.OnEvent)
	unsubscribe []string
}

func (f *fakeGateway) Initialize(ctx context.Context, nodeURL string) error { return nil }

func (f *fakeGateway) Submit(ctx context.Context, call gateway.Call, signer gateway.Signer, nonce uint64, onEvent gateway.OnEvent) (string, error) {
	if f.submitErr != nil {
		return "", f.submitErr
	}
	if f.onSubmit != nil {
		f.onSubmit(call, nonce, onEvent)
	}
	return "sub-1", nil
}

func (f *fakeGateway) Unsubscribe(subscriptionID string) {
	f.unsubscribe = append(f.unsubscribe, subscriptionID)
}

func (f *fakeGateway) FetchNonce(ctx context.Context, address string) (uint64, error) {
	return 0, nil
}

type fakeSigner struct{ address string }

func (s fakeSigner) Address() string                               { return s.address }
func (s fakeSigner) Sign(payload []byte, nonce uint64) ([]byte, error) { return []byte("sig"), nil }

func setupDriver(t *testing.T, gw gateway.Gateway) (*Driver, *store.Store) {
	t.Helper()
	st := store.New([]*account.Account{{Address: "0xAAA"}})
	resolve := func(address string) (gateway.Signer, error) {
		return fakeSigner{address: address}, nil
	}
	return New(st, gw, resolve), st
}

func enqueue(st *store.Store, id, address string) {
	st.Mutate(func(s *store.GlobalState) {
		acct, _ := s.Pool.Find(address)
		nonce := account.AssignNonce(acct)
		s.Queue.Enqueue(&queue.Transaction{ID: id, SubmitterAddress: address, AssignedNonce: nonce})
	})
}

func TestTickSubmitsPendingHeadAndPromotesToProcessing(t *testing.T) {
	gw := &fakeGateway{}
	driver, st := setupDriver(t, gw)
	enqueue(st, "tx-1", "0xAAA")

	require.NoError(t, driver.Tick(context.Background()))

	snap := st.Read()
	require.Empty(t, snap.Pending)
	_, ok := snap.Processing["tx-1"]
	require.True(t, ok)
}

func TestTickOnSubmitRejectedRollsBackNonceAndMovesToFailed(t *testing.T) {
	gw := &fakeGateway{submitErr: errors.New("connection refused")}
	driver, st := setupDriver(t, gw)
	enqueue(st, "tx-1", "0xAAA")

	require.NoError(t, driver.Tick(context.Background()))

	snap := st.Read()
	require.Empty(t, snap.Pending)
	require.Empty(t, snap.Processing)
	_, ok := snap.Failed["tx-1"]
	require.True(t, ok)

	acct := snap.Accounts[0]
	require.Equal(t, uint64(0), acct.Nonce, "the optimistic nonce increment must be rolled back")
}

func TestOnEventConfirmedUnsubscribesAndClearsProcessing(t *testing.T) {
	var captured gateway.OnEvent
	gw := &fakeGateway{onSubmit: func(call gateway.Call, nonce uint64, onEvent gateway.OnEvent) {
		captured = onEvent
	}}
	driver, st := setupDriver(t, gw)
	enqueue(st, "tx-1", "0xAAA")
	require.NoError(t, driver.Tick(context.Background()))

	captured(gateway.Event{Kind: gateway.Finalized, ExtrinsicFailed: false})

	snap := st.Read()
	_, ok := snap.Processing["tx-1"]
	require.False(t, ok)
	require.Equal(t, []string{"sub-1"}, gw.unsubscribe)
}

func TestOnEventExtrinsicFailedMovesToFailedWithoutNonceRollback(t *testing.T) {
	var captured gateway.OnEvent
	gw := &fakeGateway{onSubmit: func(call gateway.Call, nonce uint64, onEvent gateway.OnEvent) {
		captured = onEvent
	}}
	driver, st := setupDriver(t, gw)
	enqueue(st, "tx-1", "0xAAA")
	require.NoError(t, driver.Tick(context.Background()))

	captured(gateway.Event{Kind: gateway.Finalized, ExtrinsicFailed: true})

	snap := st.Read()
	_, inFailed := snap.Failed["tx-1"]
	require.True(t, inFailed)

	acct := snap.Accounts[0]
	require.Equal(t, uint64(1), acct.Nonce, "an on-chain failure already consumed the nonce: no rollback")
}

func TestOnEventInBlockDoesNotMoveState(t *testing.T) {
	var captured gateway.OnEvent
	gw := &fakeGateway{onSubmit: func(call gateway.Call, nonce uint64, onEvent gateway.OnEvent) {
		captured = onEvent
	}}
	driver, st := setupDriver(t, gw)
	enqueue(st, "tx-1", "0xAAA")
	require.NoError(t, driver.Tick(context.Background()))

	captured(gateway.Event{Kind: gateway.InBlock})

	snap := st.Read()
	_, ok := snap.Processing["tx-1"]
	require.True(t, ok, "only finalization is a terminal outcome")
	require.Empty(t, gw.unsubscribe)
}

func TestTickWithEmptyPendingQueueIsNoOp(t *testing.T) {
	gw := &fakeGateway{}
	driver, st := setupDriver(t, gw)

	require.NoError(t, driver.Tick(context.Background()))
	require.Empty(t, st.Read().Pending)
}
