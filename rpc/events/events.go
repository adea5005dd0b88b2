// Package events defines the typed event bus a front-end (CLI, GUI, or
// test harness) uses to drive the node and observe its progress,
// grounded on the inbound/outbound event catalogue in the original
// node's wallet_event module and §6 of the node's external interfaces.
package events

import "github.com/btcsuite/btcd/chaincfg/chainhash"

// Inbound is an event a front-end sends to the node.
type Inbound interface{ inbound() }

// Start is the inbound event for beginning peer discovery, handshake,
// and IBD. cmd/spvnode runs those at startup, before it serves the
// bus, and its serve loop takes no action on a Start event.
type Start struct{}

// AddAccountRequest loads an account from a WIF private key and its
// claimed address.
type AddAccountRequest struct {
	WIF     string
	Address string
}

// MakeTransactionRequest spends the current account's UTXOs, paying
// Amount satoshis to Address with an explicit Fee.
type MakeTransactionRequest struct {
	Address string
	Amount  int64
	Fee     int64
}

// ChangeAccount selects a different loaded account as current, by its
// load-order index.
type ChangeAccount struct {
	Index int
}

// PoiRequest asks for a Merkle proof that TxHash is included in the
// block BlockHash, the Go home for the supplemented proof-of-inclusion
// feature carried from the original GTK front-end.
type PoiRequest struct {
	BlockHash chainhash.Hash
	TxHash    chainhash.Hash
}

// Finish requests a graceful shutdown.
type Finish struct{}

func (Start) inbound()                  {}
func (AddAccountRequest) inbound()      {}
func (MakeTransactionRequest) inbound() {}
func (ChangeAccount) inbound()          {}
func (PoiRequest) inbound()             {}
func (Finish) inbound()                 {}

// Outbound is an event the node emits for a front-end to observe.
type Outbound interface{ outbound() }

// StartHandshake reports that peer discovery succeeded and the
// handshake phase has begun.
type StartHandshake struct{}

// HeadersProgress reports cumulative headers downloaded during IBD.
type HeadersProgress struct {
	Downloaded int32
}

// BlocksProgress reports cumulative block bodies downloaded against
// the known total during IBD.
type BlocksProgress struct {
	Downloaded int
	Total      int
}

// ReadyForInteraction reports that IBD has completed and the node is
// accepting wallet requests.
type ReadyForInteraction struct{}

// AccountAdded reports a successfully loaded account.
type AccountAdded struct {
	Address string
}

// AccountError reports a failed AddAccountRequest.
type AccountError struct {
	Reason string
}

// BalanceUpdated reports an address's current confirmed balance.
type BalanceUpdated struct {
	Address  string
	Satoshis int64
}

// TransactionStatus reports the outcome of a MakeTransactionRequest.
type TransactionStatus struct {
	Ok     bool
	Reason string
}

// NewBlock reports a newly connected block, by height and hash.
type NewBlock struct {
	Height int32
	Hash   chainhash.Hash
}

// PendingTransaction reports a transaction this node broadcast but
// hasn't yet seen confirmed.
type PendingTransaction struct {
	Address string
	TxHash  chainhash.Hash
}

// ConfirmedTransaction reports a previously pending transaction's
// inclusion in a block.
type ConfirmedTransaction struct {
	BlockHash chainhash.Hash
	Address   string
	TxHash    chainhash.Hash
}

// PoiResponse answers a PoiRequest with the Merkle path from TxHash up
// to the block's Merkle root, or Found=false if the block or
// transaction is unknown to this node.
type PoiResponse struct {
	Found bool
	Path  []chainhash.Hash
}

func (StartHandshake) outbound()       {}
func (HeadersProgress) outbound()      {}
func (BlocksProgress) outbound()       {}
func (ReadyForInteraction) outbound()  {}
func (AccountAdded) outbound()         {}
func (AccountError) outbound()         {}
func (BalanceUpdated) outbound()       {}
func (TransactionStatus) outbound()    {}
func (NewBlock) outbound()             {}
func (PendingTransaction) outbound()   {}
func (ConfirmedTransaction) outbound() {}
func (PoiResponse) outbound()          {}

// Bus is a minimal unbuffered-safe fan-out: one inbound channel the
// node consumes, one outbound channel every subscriber reads from.
// Bounded channels keep a slow or absent front-end from blocking node
// progress indefinitely; Emit drops an event rather than stalling.
type Bus struct {
	Inbound  chan Inbound
	outbound chan Outbound
}

// NewBus returns a Bus with the given inbound/outbound buffer sizes.
func NewBus(inboundBuf, outboundBuf int) *Bus {
	return &Bus{
		Inbound:  make(chan Inbound, inboundBuf),
		outbound: make(chan Outbound, outboundBuf),
	}
}

// Outbound returns the channel front-ends should range over to observe
// node progress.
func (b *Bus) Outbound() <-chan Outbound { return b.outbound }

// Emit publishes an outbound event, dropping it if no one is draining
// the channel fast enough rather than blocking the caller.
func (b *Bus) Emit(ev Outbound) {
	select {
	case b.outbound <- ev:
	default:
	}
}
