// Package reconciler periodically retries Failed transactions and
// resyncs account nonces against the chain's view. Its
// ticker/context/wait-group shape drives periodic on-chain work over
// the whole Failed set on a fixed interval.
package reconciler

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/somnia-chain/substrate-tx-engine/internal/account"
	"github.com/somnia-chain/substrate-tx-engine/internal/gateway"
	"github.com/somnia-chain/substrate-tx-engine/internal/metrics"
	"github.com/somnia-chain/substrate-tx-engine/internal/store"
)

// Reconciler retries Failed transactions up to MaxRetries before
// dropping them, and resyncs account nonces from the chain.
type Reconciler struct {
	store      *store.Store
	gw         gateway.Gateway
	maxRetries int
	interval   time.Duration

	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup
}

// New creates a Reconciler that ticks every interval, retrying Failed
// transactions up to maxRetries times before dropping them for good.
func New(st *store.Store, gw gateway.Gateway, maxRetries int, interval time.Duration) *Reconciler {
	ctx, cancel := context.WithCancel(context.Background())
	return &Reconciler{
		store:      st,
		gw:         gw,
		maxRetries: maxRetries,
		interval:   interval,
		ctx:        ctx,
		cancel:     cancel,
	}
}

// Start begins the reconciliation loop in a background goroutine.
func (r *Reconciler) Start() {
	slog.Info("Starting reconciliation loop", "interval", r.interval, "max_retries", r.maxRetries)

	r.wg.Add(1)
	go func() {
		defer r.wg.Done()

		ticker := time.NewTicker(r.interval)
		defer ticker.Stop()

		for {
			select {
			case <-r.ctx.Done():
				slog.Info("Reconciliation loop stopped")
				return
			case <-ticker.C:
				r.RetryFailed(r.ctx)
			}
		}
	}()
}

// Stop cancels the reconciliation loop and waits for it to exit.
func (r *Reconciler) Stop() {
	r.cancel()
	r.wg.Wait()
}

// RetryFailed re-fetches a nonce for every Failed transaction's account
// and either requeues it to Pending with a fresh nonce, or drops it
// permanently once it has been retried maxRetries times.
func (r *Reconciler) RetryFailed(ctx context.Context) {
	var snapshot = r.store.Read()
	if len(snapshot.Failed) == 0 {
		return
	}

	for id, tx := range snapshot.Failed {
		acct, ok := findAccount(snapshot.Accounts, tx.SubmitterAddress)
		if !ok {
			slog.Error("Reconciler found a Failed transaction for an unknown account",
				"tx_id", id, "account", tx.SubmitterAddress)
			continue
		}

		if tx.RetryCount >= r.maxRetries {
			r.store.Mutate(func(s *store.GlobalState) {
				s.Queue.Drop(id)
			})
			slog.Warn("Reconciler dropped transaction after exhausting retries",
				"tx_id", id, "account", tx.SubmitterAddress, "retry_count", tx.RetryCount)
			metrics.TransactionsFailedTotal.WithLabelValues(tx.SubmitterAddress, "retries_exhausted").Inc()
			continue
		}

		onChainNonce, err := r.gw.FetchNonce(ctx, tx.SubmitterAddress)
		if err != nil {
			slog.Error("Reconciler failed to fetch nonce for retry", "account", tx.SubmitterAddress, "error", err)
			continue
		}

		var newNonce uint64
		r.store.Mutate(func(s *store.GlobalState) {
			account.SyncNonce(acct, onChainNonce)
			newNonce = account.AssignNonce(acct)
			s.Queue.RequeueForRetry(id, newNonce)
		})
		metrics.RetriesTotal.WithLabelValues(tx.SubmitterAddress).Inc()
		metrics.AccountNonce.WithLabelValues(tx.SubmitterAddress).Set(float64(acct.Nonce))
		slog.Info("Reconciler requeued transaction for retry",
			"tx_id", id, "account", tx.SubmitterAddress, "new_nonce", newNonce)
	}
}

func findAccount(accounts []*account.Account, address string) (*account.Account, bool) {
	for _, a := range accounts {
		if a.Address == address {
			return a, true
		}
	}
	return nil, false
}

// SyncAccountNonce resyncs a single account's local nonce against the
// chain's view without touching any queue, for out-of-band reconciliation
// (e.g. after a restart).
func (r *Reconciler) SyncAccountNonce(ctx context.Context, address string) error {
	onChainNonce, err := r.gw.FetchNonce(ctx, address)
	if err != nil {
		return err
	}

	r.store.Mutate(func(s *store.GlobalState) {
		if acct, ok := s.Pool.Find(address); ok {
			account.SyncNonce(acct, onChainNonce)
			metrics.AccountNonce.WithLabelValues(address).Set(float64(acct.Nonce))
		}
	})
	return nil
}
