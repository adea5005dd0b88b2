// spvnode wires together discovery, handshake, chain storage, initial
// block download, the UTXO index, and the wallet facade into a
// running Bitcoin testnet SPV node, following the
// discover->handshake->sync->interact sequence of the original node's
// own startup path.
package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/taller-go/btcspv/chaincfg"
	"github.com/taller-go/btcspv/chainstore"
	"github.com/taller-go/btcspv/config"
	"github.com/taller-go/btcspv/discovery"
	"github.com/taller-go/btcspv/errs"
	"github.com/taller-go/btcspv/handshake"
	"github.com/taller-go/btcspv/logs"
	"github.com/taller-go/btcspv/netsync"
	"github.com/taller-go/btcspv/peer"
	"github.com/taller-go/btcspv/rpc/events"
	"github.com/taller-go/btcspv/utxoindex"
	"github.com/taller-go/btcspv/wallet"
	"github.com/taller-go/btcspv/wire"
)

var configPath = flag.String("config", "spvnode.conf", "path to the node's flat key/value config file")

func main() {
	flag.Parse()

	if err := run(); err != nil {
		fmt.Fprintln(os.Stderr, "spvnode:", err)
		os.Exit(exitCodeFor(err))
	}
}

// exitCodeFor maps an error's Kind to the exit code a shell script
// driving this node cares about: 2 for a bad config, 3 for DNS
// failure, 4 for handshake failure, 1 for anything else.
func exitCodeFor(err error) int {
	switch {
	case errs.Is(err, errs.KindConfig):
		return 2
	case errs.Is(err, errs.KindDNSResolution):
		return 3
	case errs.Is(err, errs.KindHandshake), errs.Is(err, errs.KindNoPeers):
		return 4
	default:
		return 1
	}
}

func run() error {
	cfg, err := config.Load(*configPath)
	if err != nil {
		return errs.New(errs.KindConfig, err)
	}

	if err := logs.Init(cfg.ErrorLogPath, cfg.InfoLogPath, cfg.MessageLogPath); err != nil {
		return err
	}
	defer logs.Close()

	peer.UseLogger(logs.Info)
	handshake.UseLogger(logs.Info)
	netsync.UseLogger(logs.Info)

	params := chaincfg.TestNetParams

	store, err := chainstore.Open(cfg.DataDir)
	if err != nil {
		return errs.New(errs.KindStore, err)
	}
	defer store.Close()
	if store.Height() == 0 {
		if _, err := store.AppendHeader(params.GenesisHeader); err != nil {
			return errs.New(errs.KindStore, err)
		}
	}

	bus := events.NewBus(16, 256)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	interrupt := make(chan os.Signal, 1)
	signal.Notify(interrupt, os.Interrupt, syscall.SIGTERM)
	go func() {
		<-interrupt
		cancel()
	}()

	index := utxoindex.New()
	pool := peer.NewPool(nil)
	w := wallet.New(index, pool)

	if err := connectToNetwork(ctx, cfg, params, store, index, pool, w, bus); err != nil {
		return err
	}

	bus.Emit(events.ReadyForInteraction{})
	return serve(ctx, bus, w, store)
}

// connectToNetwork resolves DNS seed candidates, completes the
// handshake against each reachable peer, and drives IBD to the
// network tip, crediting every downloaded block into index as it
// arrives rather than re-scanning the store afterward. Surviving
// sessions are left registered in pool for the wallet's later
// broadcasts.
func connectToNetwork(ctx context.Context, cfg *config.Config, params chaincfg.Params, store *chainstore.Store, index *utxoindex.Index, pool *peer.Pool, w *wallet.Wallet, bus *events.Bus) error {
	candidates, err := discovery.ResolveSeeds(ctx, cfg.DNSSeedHost, cfg.Port)
	if err != nil {
		return err
	}

	bus.Emit(events.StartHandshake{})

	_, tipHeight, ok := store.LastHeader()
	startHeight := int32(0)
	if ok {
		startHeight = tipHeight
	}

	coord := netsync.NewCoordinator(store, nil, func(height int32, block *wire.MsgBlock) {
		index.ApplyBlock(block)
		bus.Emit(events.NewBlock{Height: height, Hash: block.Header.BlockHash()})
		bus.Emit(events.BlocksProgress{Downloaded: int(height - startHeight)})
	})

	coordHandlers := coord.Handlers()
	steady := peer.NewSteadyState(store, w, w.HandleTx)
	handlers := peer.Handlers{
		OnHeaders: coordHandlers.OnHeaders,
		OnBlock:   coordHandlers.OnBlock,
		OnInv: func(s *peer.Session, m *wire.MsgInv) {
			coordHandlers.OnInv(s, m)
			steady.OnInv(s, m)
		},
		OnTx:      steady.OnTx,
		OnGetData: steady.OnGetData,
		OnDisconnect: func(s *peer.Session, err error) {
			coordHandlers.OnDisconnect(s, err)
			pool.Remove(s)
		},
	}

	sessions, err := handshake.Connect(ctx, candidates, handshake.Params{
		Net:             params.Net,
		ProtocolVersion: int32(cfg.ProtoVersion),
		MinProtoVersion: int32(cfg.ProtoVersionMin),
		UserAgent:       cfg.UserAgent,
		StartHeight:     store.Height() - 1,
		ConnectTimeout:  cfg.ConnectTimeout(),
		ReadTimeout:     cfg.ReadTimeout(),
		PoolSize:        int(cfg.HandshakePoolSize),
		Handlers:        handlers,
	})
	if err != nil {
		return err
	}

	coord.SetPeers(sessions)
	for _, s := range sessions {
		pool.Add(s)
	}

	result, err := coord.Run(ctx, netsync.Params{
		PowLimit:    params.PowLimit,
		SingleNode:  cfg.IBDSingleNode,
		StartHeight: ibdStartHeight(store, cfg.IBDStartDate),
	})
	if err != nil {
		return err
	}
	bus.Emit(events.HeadersProgress{Downloaded: result.HeaderHeight})

	// Keep headers and blocks flowing in after IBD: the handlers wired
	// above keep pushing onto the coordinator's channels for the life
	// of every session, and something must keep draining them.
	go coord.RunSteadyState(ctx, params.PowLimit)

	return nil
}

// ibdStartHeight resolves the configured ibd_start_date to the lowest
// height whose header timestamp is at or after it, so block download
// can skip history older than the wallet's accounts could possibly
// care about. An empty or unparseable date downloads from genesis.
func ibdStartHeight(store *chainstore.Store, isoDate string) int32 {
	if isoDate == "" {
		return 0
	}
	target, err := time.Parse("2006-01-02", isoDate)
	if err != nil {
		return 0
	}
	cutoff := uint32(target.Unix())

	tip := store.Height()
	for h := int32(0); h < tip; h++ {
		header, ok := store.HeaderAt(h)
		if !ok {
			break
		}
		if header.Timestamp >= cutoff {
			return h
		}
	}
	return tip
}

// serve drains the inbound event bus until Finish, dispatching each
// request synchronously against w and emitting the corresponding
// outbound event.
func serve(ctx context.Context, bus *events.Bus, w *wallet.Wallet, store *chainstore.Store) error {
	for {
		select {
		case <-ctx.Done():
			return nil
		case ev := <-bus.Inbound:
			switch req := ev.(type) {
			case events.Finish:
				return nil
			case events.AddAccountRequest:
				account, err := w.AddAccount(req.WIF, req.Address)
				if err != nil {
					bus.Emit(events.AccountError{Reason: err.Error()})
					continue
				}
				bus.Emit(events.AccountAdded{Address: account.Address})
				bus.Emit(events.BalanceUpdated{Address: account.Address, Satoshis: w.Balance(account)})
			case events.ChangeAccount:
				if err := w.SetCurrentAccount(req.Index); err != nil {
					bus.Emit(events.AccountError{Reason: err.Error()})
				}
			case events.MakeTransactionRequest:
				account, ok := w.CurrentAccount()
				if !ok {
					bus.Emit(events.TransactionStatus{Ok: false, Reason: "no account loaded"})
					continue
				}
				hash, err := w.MakeTransaction(account, req.Address, req.Amount, req.Fee)
				if err != nil {
					bus.Emit(events.TransactionStatus{Ok: false, Reason: err.Error()})
					continue
				}
				bus.Emit(events.TransactionStatus{Ok: true})
				bus.Emit(events.PendingTransaction{Address: account.Address, TxHash: hash})
			case events.PoiRequest:
				path, err := store.MerkleProof(req.BlockHash, req.TxHash)
				if err != nil {
					bus.Emit(events.PoiResponse{Found: false})
					continue
				}
				bus.Emit(events.PoiResponse{Found: true, Path: path})
			}
		}
	}
}
