// Package store is the single source of truth for accounts, nonces, and
// queues. It serializes every mutation behind one mutex — mutations
// never block on I/O, so a plain mutex gives the same race-freedom as a
// structural-sharing draft library at a fraction of the complexity.
package store

import (
	"sync"

	"github.com/somnia-chain/substrate-tx-engine/internal/account"
	"github.com/somnia-chain/substrate-tx-engine/internal/queue"
)

// GlobalState is the one mutable state root: whether the gateway is
// initialized, the account pool, and the transaction queues.
type GlobalState struct {
	GatewayReady bool
	Pool         *account.Pool
	Queue        *queue.State
}

// Snapshot is an immutable read of GlobalState. Slices and maps are
// shallow-copied at read time: callers must treat the contents as
// read-only.
type Snapshot struct {
	GatewayReady bool
	Accounts     []*account.Account
	Pending      []*queue.Transaction
	Processing   map[string]*queue.Transaction
	Failed       map[string]*queue.Transaction
}

// Store is the single serializer for all state mutations.
type Store struct {
	mu    sync.Mutex
	state *GlobalState
}

// New creates a Store seeded with the given accounts and an empty queue.
func New(accounts []*account.Account) *Store {
	return &Store{
		state: &GlobalState{
			Pool:  account.NewPool(accounts),
			Queue: queue.NewState(),
		},
	}
}

// Read returns a consistent snapshot of accounts and queues.
func (s *Store) Read() Snapshot {
	s.mu.Lock()
	defer s.mu.Unlock()

	accounts := make([]*account.Account, len(s.state.Pool.Accounts))
	copy(accounts, s.state.Pool.Accounts)

	pending := make([]*queue.Transaction, len(s.state.Queue.Pending))
	copy(pending, s.state.Queue.Pending)

	processing := make(map[string]*queue.Transaction, len(s.state.Queue.Processing))
	for k, v := range s.state.Queue.Processing {
		processing[k] = v
	}

	failed := make(map[string]*queue.Transaction, len(s.state.Queue.Failed))
	for k, v := range s.state.Queue.Failed {
		failed[k] = v
	}

	return Snapshot{
		GatewayReady: s.state.GatewayReady,
		Accounts:     accounts,
		Pending:      pending,
		Processing:   processing,
		Failed:       failed,
	}
}

// Mutate applies f to the live state atomically. All fields f writes
// become visible together to any subsequent Read or Mutate.
func (s *Store) Mutate(f func(*GlobalState)) {
	s.mu.Lock()
	defer s.mu.Unlock()
	f(s.state)
}
