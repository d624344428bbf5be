// Package gateway owns the connection to a remote substrate-style node
// and exposes submit-with-callbacks and query-nonce operations. The
// concrete signing primitive and wire-level extrinsic encoding remain
// external collaborators — Signer and CallEncoder below are the
// swappable interfaces; this package ships one concrete default of each
// so the engine runs end-to-end out of the box.
package gateway

import (
	"context"
	"errors"
)

// ErrConnectFailed is returned by Initialize when the node can't be reached.
var ErrConnectFailed = errors.New("gateway: connect failed")

// ErrSubmitRejected is returned synchronously by Submit for local or
// transport errors — the extrinsic never left the process.
var ErrSubmitRejected = errors.New("gateway: submit rejected")

// EventKind distinguishes the lifecycle stages a node reports.
type EventKind int

const (
	// InBlock: the extrinsic was included in some (not yet finalized) block.
	InBlock EventKind = iota
	// Finalized: the extrinsic was included in a finalized block.
	Finalized
)

// Event is one lifecycle update delivered to a Submit callback.
type Event struct {
	Kind EventKind
	// ExtrinsicFailed reports whether a system.ExtrinsicFailed event
	// targeting this extrinsic accompanied the block. Only meaningful
	// on Finalized; InBlock never carries it for this engine's purposes
	// because only execution at the finalized block is authoritative.
	ExtrinsicFailed bool
}

// OnEvent is invoked for each lifecycle update of a submitted extrinsic.
// It may be called from a goroutine other than the one that called
// Submit, and callbacks for distinct transactions may interleave in any
// order — the state machine in internal/queue tolerates this by
// addressing every callback with a specific transaction id.
type OnEvent func(Event)

// Call is the logical operation to submit: a substrate-style
// (module, method, params) triple.
type Call struct {
	Module string
	Method string
	Params []any
}

// Signer is the opaque signing primitive (external collaborator): it
// produces a signature for an extrinsic payload at a given nonce. The
// core never manipulates key material directly.
type Signer interface {
	Address() string
	Sign(payload []byte, nonce uint64) ([]byte, error)
}

// CallEncoder turns a Call plus nonce and signature into an opaque wire
// payload. The real wire-level SCALE encoding of a substrate extrinsic
// is out of scope for this engine; this is the seam where a concrete
// chain integration plugs one in.
type CallEncoder interface {
	Encode(call Call, nonce uint64, signature []byte) ([]byte, error)
}

// Gateway is the interface the submission driver and reconciler consume.
// A Gateway must be safe for concurrent use: Submit may be called for
// many in-flight transactions whose callbacks interleave freely.
type Gateway interface {
	// Initialize establishes a persistent session with the node.
	Initialize(ctx context.Context, nodeURL string) error

	// Submit builds an extrinsic for call, signs it with signer at
	// nonce, dispatches it, and invokes onEvent for each lifecycle
	// update. It returns once the node accepts the extrinsic for
	// gossip; the callback stream continues asynchronously afterwards.
	// Returns a subscription id (for Unsubscribe) and ErrSubmitRejected
	// wrapped with the underlying cause on synchronous failure.
	Submit(ctx context.Context, call Call, signer Signer, nonce uint64, onEvent OnEvent) (subscriptionID string, err error)

	// Unsubscribe releases a live callback stream. Safe to call more
	// than once or with an unknown id (no-op).
	Unsubscribe(subscriptionID string)

	// FetchNonce queries the chain for an account's current on-chain nonce.
	FetchNonce(ctx context.Context, address string) (uint64, error)
}
