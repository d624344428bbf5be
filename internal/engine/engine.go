// Package engine wires the account pool, state store, queue, chain
// gateway, submission driver, and reconciler into a single reusable
// API: AddTransaction to enqueue, Tick/RetryFailed to drive the
// lifecycle forward, SyncAccountNonce for out-of-band reconciliation.
// Its shape mirrors a service's main-wiring lifted out of main into a
// package cmd/txengine can construct and a test can exercise directly.
package engine

import (
	"context"
	"fmt"
	"sync"

	"github.com/somnia-chain/substrate-tx-engine/internal/account"
	"github.com/somnia-chain/substrate-tx-engine/internal/config"
	"github.com/somnia-chain/substrate-tx-engine/internal/gateway"
	"github.com/somnia-chain/substrate-tx-engine/internal/metrics"
	"github.com/somnia-chain/substrate-tx-engine/internal/queue"
	"github.com/somnia-chain/substrate-tx-engine/internal/reconciler"
	"github.com/somnia-chain/substrate-tx-engine/internal/store"
	"github.com/somnia-chain/substrate-tx-engine/internal/submitter"
)

// Engine is the transaction submission and confirmation engine's public
// entry point.
type Engine struct {
	store  *store.Store
	gw     gateway.Gateway
	driver *submitter.Driver
	recon  *reconciler.Reconciler

	mu      sync.Mutex
	signers map[string]gateway.Signer
	ready   bool
}

// New constructs an Engine over the given accounts and gateway. Accounts
// are keyed by the signer's derived address; cfg.Accounts' AccountSpec
// entries are the source of signing material, matching the shape
// config.Parse loads from the accounts file.
func New(cfg *config.Config, gw gateway.Gateway) (*Engine, error) {
	signers := make(map[string]gateway.Signer, len(cfg.Accounts))
	accounts := make([]*account.Account, 0, len(cfg.Accounts))

	for _, spec := range cfg.Accounts {
		signer, err := gateway.NewECDSASigner(spec.SigningMaterial)
		if err != nil {
			return nil, fmt.Errorf("engine: account %s: %w", spec.Address, err)
		}
		if spec.Address != "" && spec.Address != signer.Address() {
			return nil, fmt.Errorf("engine: account %s: configured address does not match key (derived %s)", spec.Address, signer.Address())
		}
		signers[signer.Address()] = signer
		accounts = append(accounts, &account.Account{Address: signer.Address()})
	}
	if len(accounts) == 0 {
		return nil, account.ErrNoAccounts
	}

	st := store.New(accounts)

	resolve := func(address string) (gateway.Signer, error) {
		signer, ok := signers[address]
		if !ok {
			return nil, submitter.ErrSignerNotFound
		}
		return signer, nil
	}

	return &Engine{
		store:   st,
		gw:      gw,
		driver:  submitter.New(st, gw, resolve),
		recon:   reconciler.New(st, gw, cfg.MaxRetries, cfg.ReconcileInterval),
		signers: signers,
	}, nil
}

// Initialize connects the gateway and fetches each account's starting
// nonce from the chain, so the pool begins in sync with on-chain state.
func (e *Engine) Initialize(ctx context.Context, nodeURL string) error {
	if err := e.gw.Initialize(ctx, nodeURL); err != nil {
		return err
	}

	e.store.Mutate(func(s *store.GlobalState) {
		s.GatewayReady = true
	})

	for address := range e.signers {
		onChainNonce, err := e.gw.FetchNonce(ctx, address)
		if err != nil {
			return fmt.Errorf("engine: initial nonce fetch for %s: %w", address, err)
		}
		e.store.Mutate(func(s *store.GlobalState) {
			if acct, ok := s.Pool.Find(address); ok {
				account.SyncNonce(acct, onChainNonce)
			}
		})
		metrics.AccountNonce.WithLabelValues(address).Set(float64(onChainNonce))
	}

	e.mu.Lock()
	e.ready = true
	e.mu.Unlock()

	return nil
}

// Ready implements api.StatusProvider.
func (e *Engine) Ready() bool {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.ready
}

// AddTransaction assigns the call to the next account in round-robin
// order, reserves that account's next nonce, and enqueues the resulting
// transaction as Pending. Returns the transaction id.
func (e *Engine) AddTransaction(module, method string, params []any) (string, error) {
	tx := &queue.Transaction{
		ID:   queue.NewID(),
		Call: queue.Call{Module: module, Method: method, Params: params},
	}

	var assignErr error
	e.store.Mutate(func(s *store.GlobalState) {
		acct, err := s.Pool.PickNext()
		if err != nil {
			assignErr = err
			return
		}
		tx.SubmitterAddress = acct.Address
		tx.AssignedNonce = account.AssignNonce(acct)
		s.Queue.Enqueue(tx)
		metrics.AccountNonce.WithLabelValues(acct.Address).Set(float64(acct.Nonce))
	})
	if assignErr != nil {
		return "", assignErr
	}

	metrics.TransactionsEnqueuedTotal.WithLabelValues(tx.SubmitterAddress).Inc()
	depthPending, depthProcessing := 0, 0
	e.store.Mutate(func(s *store.GlobalState) {
		depthPending, depthProcessing = s.Queue.Depths()
	})
	metrics.QueueDepth.WithLabelValues("pending").Set(float64(depthPending))
	metrics.QueueDepth.WithLabelValues("processing").Set(float64(depthProcessing))

	return tx.ID, nil
}

// Status looks up a transaction's current lifecycle state by id.
func (e *Engine) Status(id string) (queue.Status, bool) {
	var status queue.Status
	var found bool
	e.store.Mutate(func(s *store.GlobalState) {
		tx, ok := s.Queue.Get(id)
		if ok {
			status, found = tx.Status, true
		}
	})
	return status, found
}

// Tick advances the submission driver by one attempt: if the pending
// queue has a head, it is submitted.
func (e *Engine) Tick(ctx context.Context) error {
	return e.driver.Tick(ctx)
}

// RetryFailed runs one reconciliation pass over the Failed set.
func (e *Engine) RetryFailed(ctx context.Context) {
	e.recon.RetryFailed(ctx)
}

// SyncAccountNonce resyncs one account's local nonce from the chain.
func (e *Engine) SyncAccountNonce(ctx context.Context, address string) error {
	return e.recon.SyncAccountNonce(ctx, address)
}

// StartReconciliation starts the background reconciliation ticker. The
// submission driver has no ticker of its own: cmd/txengine drives Tick
// directly so the engine can be embedded in tests without a goroutine.
func (e *Engine) StartReconciliation() {
	e.recon.Start()
}

// StopReconciliation stops the background reconciliation ticker.
func (e *Engine) StopReconciliation() {
	e.recon.Stop()
}
