// Package queue implements the transaction lifecycle state machine: the
// pending FIFO, the processing set, and the transitions between them.
package queue

import "github.com/google/uuid"

// Status is a transaction's position in its lifecycle.
type Status int

const (
	// Pending transactions have not yet been accepted by the gateway.
	Pending Status = iota
	// Submitted transactions have been accepted by the gateway and are
	// awaiting finalization. Submitted transactions live in the
	// processing set.
	Submitted
	// Confirmed is terminal: finalized with no ExtrinsicFailed event.
	Confirmed
	// Failed transactions have left both the pending and processing
	// queues (a transaction appears in pending XOR processing XOR
	// neither) and await the retry reconciler, which either reissues
	// them to Pending or drops them for good.
	Failed
)

func (s Status) String() string {
	switch s {
	case Pending:
		return "Pending"
	case Submitted:
		return "Submitted"
	case Confirmed:
		return "Confirmed"
	case Failed:
		return "Failed"
	default:
		return "Unknown"
	}
}

// Call is the logical operation a transaction carries: a substrate-style
// (module, method, params) triple. The wire-level encoding of this
// triple is an external concern (see internal/gateway).
type Call struct {
	Module string
	Method string
	Params []any
}

// Transaction is a pending or in-flight request.
type Transaction struct {
	ID               string
	SubmitterAddress string
	Call             Call
	AssignedNonce    uint64
	Status           Status
	RetryCount       int

	// SubscriptionID identifies the gateway's live callback stream for
	// this transaction, if any is currently open (set while Submitted,
	// cleared on unsubscribe at a terminal or failed status).
	SubscriptionID string
}

// NewID generates a unique, opaque transaction id.
func NewID() string {
	return uuid.NewString()
}

// State holds the queues of a lifecycle: a FIFO of not-yet-submitted
// items, an unordered set of items awaiting finalization, and a
// side-set of Failed items awaiting the reconciler.
// A transaction id appears in at most one of pending/processing at any
// instant; once Failed it appears in neither, until retried back into
// pending or dropped for good.
type State struct {
	Pending    []*Transaction
	Processing map[string]*Transaction
	Failed     map[string]*Transaction
}

// NewState returns an empty queue state.
func NewState() *State {
	return &State{
		Processing: make(map[string]*Transaction),
		Failed:     make(map[string]*Transaction),
	}
}

// Enqueue appends a new Pending transaction to the back of the FIFO.
func (s *State) Enqueue(tx *Transaction) {
	s.Pending = append(s.Pending, tx)
}

// PeekPending returns the head of the pending FIFO without removing it,
// or nil if empty.
func (s *State) PeekPending() *Transaction {
	if len(s.Pending) == 0 {
		return nil
	}
	return s.Pending[0]
}

// PromoteHeadToProcessing moves the head of pending into processing and
// marks it Submitted. Panics if pending is empty or the id doesn't match
// the head — callers must PeekPending first and only promote the
// transaction they inspected, preserving FIFO order per account.
func (s *State) PromoteHeadToProcessing(id string) *Transaction {
	tx := s.popPendingHead(id)
	tx.Status = Submitted
	s.Processing[tx.ID] = tx
	return tx
}

// FailFromPending removes the head of pending and marks it Failed
// (a pre-submission failure: the gateway never saw the extrinsic).
func (s *State) FailFromPending(id string) *Transaction {
	tx := s.popPendingHead(id)
	tx.Status = Failed
	s.Failed[tx.ID] = tx
	return tx
}

func (s *State) popPendingHead(id string) *Transaction {
	if len(s.Pending) == 0 || s.Pending[0].ID != id {
		panic("queue: pending FIFO order violated")
	}
	tx := s.Pending[0]
	s.Pending = s.Pending[1:]
	return tx
}

// Get locates a transaction by id across all three collections.
func (s *State) Get(id string) (*Transaction, bool) {
	if tx, ok := s.Processing[id]; ok {
		return tx, true
	}
	if tx, ok := s.Failed[id]; ok {
		return tx, true
	}
	for _, tx := range s.Pending {
		if tx.ID == id {
			return tx, true
		}
	}
	return nil, false
}

// ConfirmProcessing removes a processing transaction on successful
// finalization (no ExtrinsicFailed event).
func (s *State) ConfirmProcessing(id string) *Transaction {
	tx, ok := s.Processing[id]
	if !ok {
		return nil
	}
	delete(s.Processing, id)
	tx.Status = Confirmed
	tx.SubscriptionID = ""
	return tx
}

// FailProcessing moves a processing transaction to the Failed set: the
// finalization callback carried an ExtrinsicFailed event, or the
// awaiting future was aborted.
func (s *State) FailProcessing(id string) *Transaction {
	tx, ok := s.Processing[id]
	if !ok {
		return nil
	}
	delete(s.Processing, id)
	tx.Status = Failed
	tx.SubscriptionID = ""
	s.Failed[id] = tx
	return tx
}

// Drop permanently removes a Failed transaction (retries exhausted).
func (s *State) Drop(id string) {
	delete(s.Failed, id)
}

// RequeueForRetry moves a Failed transaction back onto the tail of the
// pending FIFO with a fresh nonce, Pending status, and an incremented
// retry count.
func (s *State) RequeueForRetry(id string, newNonce uint64) *Transaction {
	tx, ok := s.Failed[id]
	if !ok {
		return nil
	}
	delete(s.Failed, id)
	tx.RetryCount++
	tx.Status = Pending
	tx.AssignedNonce = newNonce
	s.Pending = append(s.Pending, tx)
	return tx
}

// FailedTransactions returns every transaction currently in the Failed
// set, the reconciler's working set.
func (s *State) FailedTransactions() []*Transaction {
	out := make([]*Transaction, 0, len(s.Failed))
	for _, tx := range s.Failed {
		out = append(out, tx)
	}
	return out
}

// Depths returns the current size of each live queue, for metrics. The
// Failed set is deliberately excluded — it is a transient holding area
// between driver and reconciler passes, not one of the two live queues.
func (s *State) Depths() (pending, processing int) {
	return len(s.Pending), len(s.Processing)
}
