// Package submitter drives transactions from the pending queue to the
// chain gateway one account-head at a time. Its Tick is meant to be
// called from a single driving goroutine, generalized from one fixed
// signing account to the full account pool's round-robin head.
package submitter

import (
	"context"
	"errors"
	"log/slog"

	"github.com/somnia-chain/substrate-tx-engine/internal/account"
	"github.com/somnia-chain/substrate-tx-engine/internal/gateway"
	"github.com/somnia-chain/substrate-tx-engine/internal/metrics"
	"github.com/somnia-chain/substrate-tx-engine/internal/queue"
	"github.com/somnia-chain/substrate-tx-engine/internal/store"
)

// SignerResolver maps an account address to its Signer. The engine owns
// the mapping from configured accounts to signing material; the driver
// only needs to resolve one at submit time.
type SignerResolver func(address string) (gateway.Signer, error)

// ErrSignerNotFound is returned when no Signer is registered for an
// account address the pool produced.
var ErrSignerNotFound = errors.New("submitter: no signer registered for account")

// Driver pulls the head of the pending queue and submits it to the
// gateway, routing lifecycle callbacks back into the queue's state
// machine.
type Driver struct {
	store   *store.Store
	gw      gateway.Gateway
	resolve SignerResolver
}

// New creates a submission driver over store, using gw to submit and
// resolve to find each account's Signer.
func New(st *store.Store, gw gateway.Gateway, resolve SignerResolver) *Driver {
	return &Driver{store: st, gw: gw, resolve: resolve}
}

// Tick attempts to submit the pending queue's current head, if any. It is
// meant to be called repeatedly (by a ticker in cmd/txengine) rather than
// run as its own loop, so the engine can interleave it with reconciler
// passes under a shared cooperative schedule.
func (d *Driver) Tick(ctx context.Context) error {
	var head *queue.Transaction
	d.store.Mutate(func(s *store.GlobalState) {
		head = s.Queue.PeekPending()
	})
	if head == nil {
		return nil
	}

	txID := head.ID
	submitterAddress := head.SubmitterAddress
	assignedNonce := head.AssignedNonce

	var accountExists bool
	d.store.Mutate(func(s *store.GlobalState) {
		_, accountExists = s.Pool.Find(submitterAddress)
	})

	signer, err := d.resolve(submitterAddress)
	if !accountExists || err != nil {
		slog.Warn("Submission driver found no account for pending transaction",
			"tx_id", txID, "account", submitterAddress)
		d.store.Mutate(func(s *store.GlobalState) {
			s.Queue.FailFromPending(txID)
		})
		metrics.TransactionsFailedTotal.WithLabelValues(submitterAddress, "account_missing").Inc()
		return nil
	}

	call := gateway.Call{Module: head.Call.Module, Method: head.Call.Method, Params: head.Call.Params}

	subID, err := d.gw.Submit(ctx, call, signer, assignedNonce, func(ev gateway.Event) {
		d.onEvent(txID, ev)
	})
	if err != nil {
		slog.Warn("Submission driver rejected before reaching the chain",
			"tx_id", txID, "account", submitterAddress, "error", err)
		d.store.Mutate(func(s *store.GlobalState) {
			s.Queue.FailFromPending(txID)
			if acct, ok := s.Pool.Find(submitterAddress); ok {
				account.Rollback(acct)
			}
		})
		metrics.TransactionsFailedTotal.WithLabelValues(submitterAddress, "submit_rejected").Inc()
		metrics.NonceRollbacksTotal.WithLabelValues(submitterAddress).Inc()
		return nil
	}

	d.store.Mutate(func(s *store.GlobalState) {
		tx := s.Queue.PromoteHeadToProcessing(txID)
		tx.SubscriptionID = subID
	})
	metrics.TransactionsSubmittedTotal.WithLabelValues(submitterAddress).Inc()
	slog.Info("Submission driver submitted transaction", "tx_id", txID, "account", submitterAddress, "nonce", assignedNonce)
	return nil
}

// onEvent handles a gateway lifecycle callback for a transaction already
// in the processing set. Only Finalized is authoritative; InBlock is
// logged but does not move the state machine — only finalization is a
// terminal outcome for this engine.
func (d *Driver) onEvent(txID string, ev gateway.Event) {
	if ev.Kind != gateway.Finalized {
		slog.Debug("Submission driver observed in-block status", "tx_id", txID)
		return
	}

	var subID string
	var submitterAddress string
	if ev.ExtrinsicFailed {
		d.store.Mutate(func(s *store.GlobalState) {
			tx := s.Queue.FailProcessing(txID)
			if tx == nil {
				return
			}
			subID = tx.SubscriptionID
			submitterAddress = tx.SubmitterAddress
		})
		slog.Warn("Submission driver observed on-chain failure", "tx_id", txID)
		metrics.TransactionsFailedTotal.WithLabelValues(submitterAddress, "extrinsic_failed").Inc()
	} else {
		d.store.Mutate(func(s *store.GlobalState) {
			tx := s.Queue.ConfirmProcessing(txID)
			if tx == nil {
				return
			}
			subID = tx.SubscriptionID
			submitterAddress = tx.SubmitterAddress
		})
		slog.Info("Submission driver confirmed transaction", "tx_id", txID)
		metrics.TransactionsConfirmedTotal.WithLabelValues(submitterAddress).Inc()
	}

	if subID != "" {
		d.gw.Unsubscribe(subID)
	}
}
