// Package account implements the signing account pool: round-robin
// selection over a fixed set of accounts and the per-account nonce
// accounting discipline described by the engine's nonce-assignment rule.
package account

import "errors"

// ErrNoAccounts is returned when the pool has no accounts to assign.
var ErrNoAccounts = errors.New("account: no accounts configured")

// Account is a signing account identified by its chain address. Nonce is
// the next nonce to assign — it only moves forward, except for the
// compensating rollback applied when a submission fails before leaving
// the local process (see Rollback). The pool only ever needs the
// address to route transactions and track nonces; the signing material
// itself never enters this package — it is loaded once into a
// gateway.Signer and kept in the engine's address-to-Signer map instead.
type Account struct {
	Address string
	Nonce   uint64
}

// Pool holds the set of accounts and a round-robin cursor into it. The
// cursor is part of the pool's state and persists across calls.
type Pool struct {
	Accounts []*Account
	cursor   int
}

// NewPool creates a pool over the given accounts, all starting from
// whatever nonce value they were constructed with.
func NewPool(accounts []*Account) *Pool {
	return &Pool{Accounts: accounts}
}

// PickNext returns the account at the cursor and advances the cursor
// with wrap-around. Returns ErrNoAccounts if the pool is empty.
func (p *Pool) PickNext() (*Account, error) {
	if len(p.Accounts) == 0 {
		return nil, ErrNoAccounts
	}
	a := p.Accounts[p.cursor%len(p.Accounts)]
	p.cursor = (p.cursor + 1) % len(p.Accounts)
	return a, nil
}

// Find returns the account with the given address, if still present in
// the pool. Accounts never leave the pool in this engine, but callers
// (the submission driver) must still tolerate absence.
func (p *Pool) Find(address string) (*Account, bool) {
	for _, a := range p.Accounts {
		if a.Address == address {
			return a, true
		}
	}
	return nil, false
}

// AssignNonce assigns the account's current nonce to a new transaction
// and optimistically increments it. Must be called inside the same
// mutation that appends the transaction to the pending queue, so that
// back-to-back enqueues on the same account produce strictly
// consecutive nonces before the chain has acknowledged any of them.
func AssignNonce(a *Account) uint64 {
	n := a.Nonce
	a.Nonce++
	return n
}

// Rollback reverses one optimistic increment. Only safe to call for a
// submission that failed before reaching the chain (SubmitRejected) —
// never for an on-chain failure (ExtrinsicFailed), where the nonce was
// already consumed.
func Rollback(a *Account) {
	a.Nonce--
}

// SyncNonce reconciles the local nonce against an on-chain observation.
// It never decreases the local counter: the local value may reflect
// in-flight optimistic assignments the chain has not yet seen.
func SyncNonce(a *Account, onChainNonce uint64) {
	if onChainNonce > a.Nonce {
		a.Nonce = onChainNonce
	}
}
