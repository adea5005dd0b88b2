// Package chainstore implements the persistent, append-only header
// log and block store described in the specification's §4.7: a flat
// file of 80-byte headers, a flat file of concatenated block bytes,
// and a hash→offset index kept in a small embedded database so reads
// don't require scanning blocks.dat.
package chainstore

import (
	"encoding/binary"
	"fmt"
	"os"
	"path/filepath"
	"sync"

	"github.com/btcsuite/btcd/chaincfg/chainhash"
	"github.com/syndtr/goleveldb/leveldb"
	"github.com/taller-go/btcspv/blockchain"
	"github.com/taller-go/btcspv/wire"
)

// Store is the persistent chain state: an ordered header log, a
// hash→height index, and a map of downloaded block bodies. All
// mutation goes through a single writer lock; reads use the same
// sync.RWMutex so IBD can consult heights while handlers enqueue new
// ones, per the specification's concurrency model.
type Store struct {
	mu sync.RWMutex

	headers    []wire.BlockHeader
	heightOf   map[chainhash.Hash]int32
	blockIndex *leveldb.DB // hash -> offset into blocks.dat

	headerFile *os.File
	blockFile  *os.File
}

// Open rehydrates a Store from dataDir, creating the backing files if
// they don't already exist.
func Open(dataDir string) (*Store, error) {
	if err := os.MkdirAll(dataDir, 0o755); err != nil {
		return nil, fmt.Errorf("chainstore: %w", err)
	}

	headerFile, err := os.OpenFile(filepath.Join(dataDir, "headers.bin"), os.O_RDWR|os.O_CREATE, 0o644)
	if err != nil {
		return nil, fmt.Errorf("chainstore: %w", err)
	}
	blockFile, err := os.OpenFile(filepath.Join(dataDir, "blocks.dat"), os.O_RDWR|os.O_CREATE, 0o644)
	if err != nil {
		return nil, fmt.Errorf("chainstore: %w", err)
	}
	idx, err := leveldb.OpenFile(filepath.Join(dataDir, "blocks.idx"), nil)
	if err != nil {
		return nil, fmt.Errorf("chainstore: %w", err)
	}

	s := &Store{
		heightOf:   make(map[chainhash.Hash]int32),
		blockIndex: idx,
		headerFile: headerFile,
		blockFile:  blockFile,
	}

	if err := s.rehydrate(); err != nil {
		return nil, err
	}
	return s, nil
}

// rehydrate streams headers.bin to rebuild the in-memory header log
// and height index on startup.
func (s *Store) rehydrate() error {
	if _, err := s.headerFile.Seek(0, 0); err != nil {
		return fmt.Errorf("chainstore: %w", err)
	}
	for {
		var h wire.BlockHeader
		if err := h.Deserialize(s.headerFile); err != nil {
			break // EOF (or a truncated tail, treated the same on rehydrate)
		}
		s.heightOf[h.BlockHash()] = int32(len(s.headers))
		s.headers = append(s.headers, h)
	}
	_, err := s.headerFile.Seek(0, 2)
	return err
}

// Close releases the backing files and index.
func (s *Store) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	var firstErr error
	for _, c := range []interface{ Close() error }{s.headerFile, s.blockFile, s.blockIndex} {
		if err := c.Close(); err != nil && firstErr == nil {
			firstErr = err
		}
	}
	return firstErr
}

// AppendHeader appends a single header. The caller (netsync's header
// coordinator) is responsible for proof-of-work and linkage checks
// before calling this, since those checks need the chain params that
// this package deliberately doesn't depend on.
func (s *Store) AppendHeader(h wire.BlockHeader) (height int32, err error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := h.Serialize(s.headerFile); err != nil {
		return 0, fmt.Errorf("chainstore: %w", err)
	}
	height = int32(len(s.headers))
	s.headers = append(s.headers, h)
	s.heightOf[h.BlockHash()] = height
	return height, nil
}

// HasHeader reports whether hash is present in the header log.
func (s *Store) HasHeader(hash chainhash.Hash) bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	_, ok := s.heightOf[hash]
	return ok
}

// HeightOf returns the height of hash in the header log, and whether
// it was found.
func (s *Store) HeightOf(hash chainhash.Hash) (int32, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	h, ok := s.heightOf[hash]
	return h, ok
}

// HeaderAt returns the header at the given height.
func (s *Store) HeaderAt(height int32) (wire.BlockHeader, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if height < 0 || int(height) >= len(s.headers) {
		return wire.BlockHeader{}, false
	}
	return s.headers[height], true
}

// LastHeader returns the most recently appended header and its height,
// or ok=false if the store is empty.
func (s *Store) LastHeader() (h wire.BlockHeader, height int32, ok bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if len(s.headers) == 0 {
		return wire.BlockHeader{}, 0, false
	}
	height = int32(len(s.headers) - 1)
	return s.headers[height], height, true
}

// Height returns the number of headers currently stored.
func (s *Store) Height() int32 {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return int32(len(s.headers))
}

// Locator builds a getheaders-style block locator from the current
// tip: a small set of hashes spaced with exponentially increasing
// gaps, terminating at genesis.
func (s *Store) Locator() []chainhash.Hash {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var hashes []chainhash.Hash
	step := 1
	i := len(s.headers) - 1
	for i >= 0 {
		hashes = append(hashes, s.headers[i].BlockHash())
		if i == 0 {
			break
		}
		i -= step
		if len(hashes) > 10 {
			step *= 2
		}
		if i < 0 {
			i = 0
		}
	}
	return hashes
}

// PutBlock appends a block body to blocks.dat and records its offset
// in the hash index.
func (s *Store) PutBlock(block *wire.MsgBlock) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	hash := block.Header.BlockHash()
	if _, err := s.blockIndex.Get(hash[:], nil); err == nil {
		return nil // already stored; idempotent per the UTXO-apply invariant
	}

	offset, err := s.blockFile.Seek(0, 2)
	if err != nil {
		return fmt.Errorf("chainstore: %w", err)
	}
	if err := block.BtcEncode(s.blockFile, wire.ProtocolVersion); err != nil {
		return fmt.Errorf("chainstore: %w", err)
	}

	var offBuf [8]byte
	binary.LittleEndian.PutUint64(offBuf[:], uint64(offset))
	if err := s.blockIndex.Put(hash[:], offBuf[:], nil); err != nil {
		return fmt.Errorf("chainstore: %w", err)
	}
	return nil
}

// HasBlock reports whether hash's block body has been downloaded.
func (s *Store) HasBlock(hash chainhash.Hash) bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	_, err := s.blockIndex.Get(hash[:], nil)
	return err == nil
}

// GetBlock reads a previously stored block body by header hash.
func (s *Store) GetBlock(hash chainhash.Hash) (*wire.MsgBlock, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	offBuf, err := s.blockIndex.Get(hash[:], nil)
	if err != nil {
		return nil, fmt.Errorf("chainstore: block %s not found: %w", hash, err)
	}
	offset := int64(binary.LittleEndian.Uint64(offBuf))

	if _, err := s.blockFile.Seek(offset, 0); err != nil {
		return nil, fmt.Errorf("chainstore: %w", err)
	}
	block := new(wire.MsgBlock)
	if err := block.BtcDecode(s.blockFile, wire.ProtocolVersion); err != nil {
		return nil, fmt.Errorf("chainstore: %w", err)
	}
	return block, nil
}

// FoldBlocksForUpdate invokes f, in height order, with every block
// body present in the store between heights from and to (inclusive),
// skipping any height whose body hasn't been downloaded yet. This is
// the single choke point through which blocks are applied to the UTXO
// index, preserving the "applied exactly once, in height order"
// invariant.
func (s *Store) FoldBlocksForUpdate(from, to int32, f func(height int32, block *wire.MsgBlock) error) error {
	for h := from; h <= to; h++ {
		header, ok := s.HeaderAt(h)
		if !ok {
			break
		}
		hash := header.BlockHash()
		if !s.HasBlock(hash) {
			continue
		}
		block, err := s.GetBlock(hash)
		if err != nil {
			return err
		}
		if err := f(h, block); err != nil {
			return err
		}
	}
	return nil
}

// MerkleProof returns the sibling hashes needed to prove txid's
// inclusion in the block identified by blockHash, supporting the
// proof-of-inclusion request carried over the event bus.
func (s *Store) MerkleProof(blockHash chainhash.Hash, txid chainhash.Hash) ([]chainhash.Hash, error) {
	block, err := s.GetBlock(blockHash)
	if err != nil {
		return nil, err
	}

	hashes := blockchain.TxHashes(block.Transactions)
	idx := -1
	for i, h := range hashes {
		if h == txid {
			idx = i
			break
		}
	}
	if idx == -1 {
		return nil, fmt.Errorf("chainstore: tx %s not found in block %s", txid, blockHash)
	}

	var proof []chainhash.Hash
	level := hashes
	for len(level) > 1 {
		if len(level)%2 == 1 {
			level = append(level, level[len(level)-1])
		}
		sibling := idx ^ 1
		proof = append(proof, level[sibling])

		next := make([]chainhash.Hash, 0, len(level)/2)
		for i := 0; i < len(level); i += 2 {
			next = append(next, blockchain.MerkleRoot(level[i:i+2]))
		}
		level = next
		idx /= 2
	}
	return proof, nil
}
