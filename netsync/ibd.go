package netsync

import (
	"context"
	"fmt"
	"math/big"
	"sync"
	"sync/atomic"
	"time"

	"github.com/btcsuite/btcd/chaincfg/chainhash"
	"github.com/decred/dcrd/lru"
	"github.com/taller-go/btcspv/blockchain"
	"github.com/taller-go/btcspv/errs"
	"github.com/taller-go/btcspv/peer"
	"github.com/taller-go/btcspv/wire"
)

// Result summarizes a completed IBD run.
type Result struct {
	HeaderHeight  int32
	BlocksFetched int
}

// headerSyncTimeout bounds how long a single getheaders round may take
// before the peer is considered stalled and rotated out.
const headerSyncTimeout = 30 * time.Second

// Run drives header sync to the network tip and then fetches every
// block body from StartHeight onward, single-peer or across the
// whole pool depending on Params.SingleNode and the size of the live
// peer set, mirroring download_full_blockchain_from_single_node vs
// download_full_blockchain_from_multiple_nodes in the original node's
// blockchain_download module.
func (c *Coordinator) Run(ctx context.Context, p Params) (Result, error) {
	if err := c.syncHeaders(ctx, p); err != nil {
		return Result{}, err
	}

	tipHeight := c.store.Height() - 1
	fetched, err := c.fetchBlocks(ctx, p, tipHeight)
	if err != nil {
		return Result{HeaderHeight: tipHeight}, err
	}
	return Result{HeaderHeight: tipHeight, BlocksFetched: fetched}, nil
}

// syncHeaders repeatedly sends getheaders to one peer at a time,
// rotating to the next live peer whenever the current one fails or
// stalls, until a peer responds with a headers message shorter than a
// full batch, signaling the tip has been reached.
func (c *Coordinator) syncHeaders(ctx context.Context, p Params) error {
	next := 0
	for {
		peers := c.livePeers()
		if len(peers) == 0 {
			return errs.New(errs.KindNoPeers, fmt.Errorf("netsync: no peers left to sync headers from"))
		}

		sess := peers[next%len(peers)]
		caughtUp, err := c.syncHeadersFromOnePeer(ctx, sess, p)
		if err != nil {
			evicted := c.markFailure(sess)
			log.Warnf("netsync: header sync with %s failed: %v (evicted=%v)", sess.Addr, err, evicted)
			if !evicted {
				next++ // an evicted peer's slot is already taken by the next one
			}
			continue
		}
		c.markSuccess(sess)
		if caughtUp {
			return nil
		}
	}
}

func (c *Coordinator) syncHeadersFromOnePeer(ctx context.Context, sess *peer.Session, p Params) (caughtUp bool, err error) {
	for {
		locator := c.store.Locator()
		getHeaders := &wire.MsgGetHeaders{BlockLocatorHashes: locator}
		sess.Send(getHeaders)

		headers, err := c.awaitHeaders(ctx, sess)
		if err != nil {
			return false, err
		}
		if len(headers.Headers) == 0 {
			return true, nil
		}

		for _, h := range headers.Headers {
			if c.store.HasHeader(h.BlockHash()) {
				continue
			}
			tip, _, ok := c.store.LastHeader()
			if ok {
				if err := blockchain.CheckHeaderLinkage(&tip, h); err != nil {
					return false, fmt.Errorf("syncing headers: %w", err)
				}
			}
			if err := blockchain.CheckHeaderPoW(h, p.PowLimit); err != nil {
				return false, fmt.Errorf("syncing headers: %w", err)
			}
			if _, err := c.store.AppendHeader(*h); err != nil {
				return false, fmt.Errorf("syncing headers: %w", err)
			}
		}

		if len(headers.Headers) < wire.MaxHeadersPerMsg {
			return true, nil
		}
	}
}

func (c *Coordinator) awaitHeaders(ctx context.Context, sess *peer.Session) (*wire.MsgHeaders, error) {
	timeout := time.NewTimer(headerSyncTimeout)
	defer timeout.Stop()

	for {
		select {
		case ev := <-c.headersCh:
			if ev.sess != sess {
				continue // unsolicited headers from another live peer; ignore during sync
			}
			return ev.headers, nil
		case <-timeout.C:
			return nil, fmt.Errorf("timed out waiting for headers")
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}
}

// fetchBlocks downloads every block body between p.StartHeight and
// tipHeight (inclusive) that isn't already on disk. With a single
// live peer, or when Params.SingleNode is set, it fetches
// sequentially; otherwise it spreads batches across the whole live
// peer set with work-stealing requeue on peer failure.
func (c *Coordinator) fetchBlocks(ctx context.Context, p Params, tipHeight int32) (int, error) {
	var pending []chainhash.Hash
	heightOf := make(map[chainhash.Hash]int32)
	for h := p.StartHeight; h <= tipHeight; h++ {
		header, ok := c.store.HeaderAt(h)
		if !ok {
			break
		}
		hash := header.BlockHash()
		if c.store.HasBlock(hash) {
			continue
		}
		pending = append(pending, hash)
		heightOf[hash] = h
	}
	if len(pending) == 0 {
		return 0, nil
	}

	peers := c.livePeers()
	if p.SingleNode || len(peers) < 2 {
		return c.fetchBlocksSingleNode(ctx, peers, pending, heightOf, p.PowLimit)
	}
	return c.fetchBlocksParallel(ctx, peers, pending, heightOf, p.PowLimit)
}

func (c *Coordinator) fetchBlocksSingleNode(ctx context.Context, peers []*peer.Session, pending []chainhash.Hash, heightOf map[chainhash.Hash]int32, powLimit *big.Int) (int, error) {
	if len(peers) == 0 {
		return 0, errs.New(errs.KindNoPeers, fmt.Errorf("netsync: no peers left to fetch blocks from"))
	}
	sess := peers[0]
	fetched := 0

	for i := 0; i < len(pending); i += blockFetchBatch {
		end := i + blockFetchBatch
		if end > len(pending) {
			end = len(pending)
		}
		n, _, err := c.fetchBatch(ctx, sess, pending[i:end], heightOf, powLimit)
		fetched += n
		if err != nil {
			return fetched, err
		}
	}
	return fetched, nil
}

// fetchBlocksParallel assigns batches of pending hashes to a pool of
// worker goroutines, one per live peer. A batch a peer fails to fully
// deliver is split into its still-missing hashes and pushed back onto
// the shared queue for another worker to pick up, so one slow or
// disconnecting peer doesn't stall the whole download.
func (c *Coordinator) fetchBlocksParallel(ctx context.Context, peers []*peer.Session, pending []chainhash.Hash, heightOf map[chainhash.Hash]int32, powLimit *big.Int) (int, error) {
	var batches [][]chainhash.Hash
	for i := 0; i < len(pending); i += blockFetchBatch {
		end := i + blockFetchBatch
		if end > len(pending) {
			end = len(pending)
		}
		batches = append(batches, pending[i:end])
	}

	queue := make(chan []chainhash.Hash, len(batches)+len(peers))
	for _, b := range batches {
		queue <- b
	}
	outstanding := int32(len(batches))

	var (
		mu       sync.Mutex
		fetched  int
		firstErr error
		wg       sync.WaitGroup
	)

	for _, sess := range peers {
		wg.Add(1)
		go func(sess *peer.Session) {
			defer wg.Done()
			for batch := range queue {
				n, missing, err := c.fetchBatch(ctx, sess, batch, heightOf, powLimit)

				mu.Lock()
				fetched += n
				if err != nil && firstErr == nil {
					firstErr = err
				}
				mu.Unlock()

				if err != nil {
					c.markFailure(sess)
				}
				if len(missing) > 0 && ctx.Err() == nil {
					atomic.AddInt32(&outstanding, 1)
					queue <- missing
				}
				if atomic.AddInt32(&outstanding, -1) == 0 {
					close(queue)
				}
			}
		}(sess)
	}
	wg.Wait()

	mu.Lock()
	defer mu.Unlock()
	if fetched == 0 && firstErr != nil {
		return 0, firstErr
	}
	return fetched, nil
}

// fetchBatch requests a batch of block hashes from sess and waits for
// each one to arrive, validating proof of work and merkle root before
// persisting it to the store (and invoking onBlock) as it does. It
// returns the hashes it never received, plus any it received but
// failed validation, so the caller can requeue them on another peer.
func (c *Coordinator) fetchBatch(ctx context.Context, sess *peer.Session, batch []chainhash.Hash, heightOf map[chainhash.Hash]int32, powLimit *big.Int) (fetched int, missing []chainhash.Hash, err error) {
	want := &wire.MsgGetData{}
	for _, h := range batch {
		want.InvList = append(want.InvList, &wire.InvVect{Type: wire.InvTypeBlock, Hash: h})
	}
	sess.Send(want)

	remaining := lru.NewCache(uint(len(batch)))
	for _, h := range batch {
		remaining.Add(h)
	}
	var invalid []chainhash.Hash

	timeout := time.NewTimer(30 * time.Second)
	defer timeout.Stop()

	for remaining.Len() > 0 {
		select {
		case ev := <-c.blocksCh:
			hash := ev.block.Header.BlockHash()
			if !remaining.Contains(hash) {
				continue // belongs to another in-flight batch
			}
			if err := blockchain.ValidateBlock(ev.block, powLimit); err != nil {
				log.Warnf("netsync: block %s from %s failed validation: %v", hash, sess.Addr, err)
				remaining.Delete(hash)
				invalid = append(invalid, hash)
				continue
			}
			if err := c.store.PutBlock(ev.block); err != nil {
				return fetched, append(remainingHashes(batch, remaining), invalid...), fmt.Errorf("fetchBatch: %w", err)
			}
			if c.onBlock != nil {
				if height, ok := heightOf[hash]; ok {
					c.onBlock(height, ev.block)
				}
			}
			remaining.Delete(hash)
			fetched++
		case <-timeout.C:
			return fetched, append(remainingHashes(batch, remaining), invalid...), fmt.Errorf("timed out waiting for %d blocks from %s", remaining.Len(), sess.Addr)
		case <-ctx.Done():
			return fetched, append(remainingHashes(batch, remaining), invalid...), ctx.Err()
		}
	}
	return fetched, invalid, nil
}

// RunSteadyState keeps headers and blocks flowing into the store after
// Run's initial block download has completed: an unsolicited headers
// message appends any header not already in the log (validating PoW
// and linkage exactly as syncHeadersFromOnePeer does) and requests the
// block body for each one, while an unsolicited block is validated and
// persisted the same way fetchBatch does during IBD. It runs until ctx
// is canceled, grounded on handle_headers_message/handle_block_message
// continuing to run for the life of the original node's listener
// rather than stopping once the chain first catches up.
func (c *Coordinator) RunSteadyState(ctx context.Context, powLimit *big.Int) {
	for {
		select {
		case <-ctx.Done():
			return
		case ev := <-c.headersCh:
			c.applySteadyStateHeaders(ev, powLimit)
		case ev := <-c.blocksCh:
			c.applySteadyStateBlock(ev, powLimit)
		}
	}
}

func (c *Coordinator) applySteadyStateHeaders(ev headersEvent, powLimit *big.Int) {
	for _, h := range ev.headers.Headers {
		if c.store.HasHeader(h.BlockHash()) {
			continue
		}
		tip, _, ok := c.store.LastHeader()
		if ok {
			if err := blockchain.CheckHeaderLinkage(&tip, h); err != nil {
				log.Warnf("netsync: steady-state header from %s rejected: %v", ev.sess.Addr, err)
				continue
			}
		}
		if err := blockchain.CheckHeaderPoW(h, powLimit); err != nil {
			log.Warnf("netsync: steady-state header from %s rejected: %v", ev.sess.Addr, err)
			continue
		}
		height, err := c.store.AppendHeader(*h)
		if err != nil {
			log.Warnf("netsync: steady-state header append failed: %v", err)
			continue
		}

		hash := h.BlockHash()
		gd := &wire.MsgGetData{}
		gd.InvList = []*wire.InvVect{{Type: wire.InvTypeBlock, Hash: hash}}
		ev.sess.Send(gd)
		log.Infof("netsync: new header %s at height %d, requesting block", hash, height)
	}
}

func (c *Coordinator) applySteadyStateBlock(ev blocksEvent, powLimit *big.Int) {
	hash := ev.block.Header.BlockHash()
	if c.store.HasBlock(hash) {
		return
	}
	if err := blockchain.ValidateBlock(ev.block, powLimit); err != nil {
		log.Warnf("netsync: steady-state block %s from %s failed validation: %v", hash, ev.sess.Addr, err)
		return
	}
	if err := c.store.PutBlock(ev.block); err != nil {
		log.Warnf("netsync: steady-state block %s persist failed: %v", hash, err)
		return
	}
	if c.onBlock != nil {
		if height, ok := c.store.HeightOf(hash); ok {
			c.onBlock(height, ev.block)
		}
	}
}

func remainingHashes(batch []chainhash.Hash, cache *lru.Cache) []chainhash.Hash {
	var out []chainhash.Hash
	for _, h := range batch {
		if cache.Contains(h) {
			out = append(out, h)
		}
	}
	return out
}
