// Package wallet is the facade a front-end drives to manage accounts,
// watch balances, and send transactions, grounded on the Wallet/Account
// split in the original node's wallet and account modules.
package wallet

import (
	"fmt"
	"sync"

	"github.com/btcsuite/btcd/chaincfg/chainhash"
	"github.com/taller-go/btcspv/addresses"
	"github.com/taller-go/btcspv/errs"
	"github.com/taller-go/btcspv/peer"
	"github.com/taller-go/btcspv/txbuilder"
	"github.com/taller-go/btcspv/utxoindex"
	"github.com/taller-go/btcspv/wire"
)

// Account pairs a spendable keypair with the address it derives,
// mirroring the original Account struct (minus its in-process
// pending_transactions list, which Wallet now owns across accounts so
// a broadcast transaction can be served back out on a getdata
// regardless of which account spent it).
type Account struct {
	Address    string
	PubKeyHash [20]byte

	secret     [32]byte
	compressed bool
}

// Wallet holds every loaded account and the shared infrastructure
// (the UTXO index and the peer pool) transactions are built and
// broadcast against.
type Wallet struct {
	index *utxoindex.Index
	pool  *peer.Pool

	mu           sync.RWMutex
	accounts     []*Account
	currentIndex int
	pending      map[chainhash.Hash]*wire.MsgTx
}

// New returns an empty Wallet over index and pool.
func New(index *utxoindex.Index, pool *peer.Pool) *Wallet {
	return &Wallet{
		index:   index,
		pool:    pool,
		pending: make(map[chainhash.Hash]*wire.MsgTx),
	}
}

// AddAccount decodes a WIF private key, validates it against address,
// and adds the account to the wallet, registering its pubkey hash
// with the UTXO index so future blocks credit it. It returns
// errs.KindBadWif or errs.KindBadAddress on a malformed or mismatched
// key/address pair.
func (w *Wallet) AddAccount(wif, address string) (*Account, error) {
	secret, compressed, err := addresses.DecodeWIF(wif)
	if err != nil {
		return nil, errs.New(errs.KindBadWif, err)
	}
	if err := addresses.ValidateAddressAgainstSecret(secret, compressed, address); err != nil {
		return nil, errs.New(errs.KindBadAddress, err)
	}
	pubKeyHash, err := addresses.AddressToPubKeyHash(address)
	if err != nil {
		return nil, errs.New(errs.KindBadAddress, err)
	}

	account := &Account{
		Address:    address,
		PubKeyHash: pubKeyHash,
		secret:     secret,
		compressed: compressed,
	}

	w.mu.Lock()
	w.accounts = append(w.accounts, account)
	w.mu.Unlock()

	w.index.Watch(pubKeyHash)
	return account, nil
}

// Accounts returns a snapshot of the loaded accounts, in load order.
func (w *Wallet) Accounts() []*Account {
	w.mu.RLock()
	defer w.mu.RUnlock()
	out := make([]*Account, len(w.accounts))
	copy(out, w.accounts)
	return out
}

// CurrentAccount returns the account selected by SetCurrentAccount (or
// the first loaded account, if SetCurrentAccount has never been
// called), and false if no account has been loaded yet.
func (w *Wallet) CurrentAccount() (*Account, bool) {
	w.mu.RLock()
	defer w.mu.RUnlock()
	if len(w.accounts) == 0 {
		return nil, false
	}
	return w.accounts[w.currentIndex], true
}

// SetCurrentAccount selects the account at index as current, the
// Go home for the original's ChangeAccount event.
func (w *Wallet) SetCurrentAccount(index int) error {
	w.mu.Lock()
	defer w.mu.Unlock()
	if index < 0 || index >= len(w.accounts) {
		return fmt.Errorf("wallet: account index %d out of range", index)
	}
	w.currentIndex = index
	return nil
}

// Balance returns account's confirmed balance in satoshis, summed
// over the UTXO index's watched outputs for its pubkey hash.
func (w *Wallet) Balance(account *Account) int64 {
	return w.index.Balance(account.PubKeyHash)
}

// MakeTransaction builds and signs a transaction spending account's
// UTXOs to toAddress, registers it for later getdata replay, and
// broadcasts an inv to every pooled peer, mirroring
// Wallet::make_transaction's build-then-broadcast sequence in the
// original source.
func (w *Wallet) MakeTransaction(account *Account, toAddress string, amount, fee int64) (chainhash.Hash, error) {
	var zero chainhash.Hash

	toHash, err := addresses.AddressToPubKeyHash(toAddress)
	if err != nil {
		return zero, errs.New(errs.KindBadAddress, err)
	}

	utxos := w.index.UnspentFor(account.PubKeyHash)
	tx, err := txbuilder.Build(utxos, account.secret, account.compressed, account.PubKeyHash, toHash, amount, fee)
	if err != nil {
		return zero, err
	}

	hash := tx.TxHash()

	w.mu.Lock()
	w.pending[hash] = tx
	w.mu.Unlock()

	inv := &wire.MsgInv{}
	inv.InvList = []*wire.InvVect{{Type: wire.InvTypeTx, Hash: hash}}
	w.pool.Broadcast(inv)

	return hash, nil
}

// PendingTx returns a transaction from the pending set by hash,
// satisfying peer.TxSource for peer.SteadyState's getdata handling.
func (w *Wallet) PendingTx(hash chainhash.Hash) (*wire.MsgTx, bool) {
	w.mu.RLock()
	defer w.mu.RUnlock()
	tx, ok := w.pending[hash]
	return tx, ok
}

// HandleTx checks whether a transaction delivered by a peer pays or
// spends one of this wallet's watched accounts and, if so, holds onto
// it in the pending set so a later getdata for it (including one from
// the same peer that sent it, or another peer relaying it onward) can
// still be served, grounded on check_if_tx_involves_user_account in
// the original node's listener.
func (w *Wallet) HandleTx(s *peer.Session, tx *wire.MsgTx) {
	if !w.index.IsRelevant(tx) {
		return
	}
	hash := tx.TxHash()
	w.mu.Lock()
	w.pending[hash] = tx
	w.mu.Unlock()
}

// ForgetTransaction drops a transaction from the pending set once it's
// confirmed in a block and no longer needs to be served on request.
func (w *Wallet) ForgetTransaction(hash chainhash.Hash) {
	w.mu.Lock()
	defer w.mu.Unlock()
	delete(w.pending, hash)
}
