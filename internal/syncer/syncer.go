package syncer

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/lightningnetwork/lnd/ticker"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/AlexZinkM/xelis-wallet/internal/client"
	"github.com/AlexZinkM/xelis-wallet/internal/ledger"
	"github.com/AlexZinkM/xelis-wallet/internal/model"
)

const (
	defaultPollInterval   = 5 * time.Second
	defaultRequestTimeout = 10 * time.Second
)

var ErrAlreadyRunning = errors.New("sync loop already running")

// Config holds the loop timings.
type Config struct {
	PollInterval          time.Duration
	RequestTimeout        time.Duration
	FailureAlertThreshold int
}

// Node is the remote daemon as seen by the loop.
type Node interface {
	GetInfo(ctx context.Context) (*model.DaemonInfo, error)
	GetBalance(ctx context.Context, address string, asset model.Asset) (uint64, error)
	GetNonce(ctx context.Context, address string) (uint64, error)
}

// Syncer polls a daemon and merges its view into a ledger.
type Syncer struct {
	cfg       Config
	node      Node
	ledger    *ledger.Ledger
	address   string
	log       *zap.Logger
	newTicker func() ticker.Ticker

	mu      sync.Mutex
	state   model.SyncState
	running bool
	quit    chan struct{}
	wg      sync.WaitGroup

	// pollMu serializes polls so a manual Poll never overlaps a tick.
	pollMu sync.Mutex
}

// Option configures a Syncer.
type Option func(*Syncer)

// WithTicker replaces the interval ticker. fn is called on every Start.
func WithTicker(fn func() ticker.Ticker) Option {
	return func(s *Syncer) {
		s.newTicker = fn
	}
}

// New creates a stopped Syncer for the wallet at address.
func New(cfg Config, node Node, l *ledger.Ledger, address string, log *zap.Logger, opts ...Option) *Syncer {
	if log == nil {
		log = zap.NewNop()
	}
	if cfg.PollInterval <= 0 {
		cfg.PollInterval = defaultPollInterval
	}
	if cfg.RequestTimeout <= 0 {
		cfg.RequestTimeout = defaultRequestTimeout
	}
	s := &Syncer{
		cfg:     cfg,
		node:    node,
		ledger:  l,
		address: address,
		log:     log.Named("sync"),
		state:   model.SyncState{Status: model.SyncStatusDisabled},
	}
	if e, ok := node.(interface{ Endpoint() string }); ok {
		s.state.DaemonEndpoint = e.Endpoint()
	}
	s.newTicker = func() ticker.Ticker {
		return ticker.New(s.cfg.PollInterval)
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Start performs the handshake and, on success, starts polling in the
// background. A failed handshake leaves the loop disabled and returns the
// cause.
func (s *Syncer) Start(ctx context.Context) error {
	s.mu.Lock()
	if s.running {
		s.mu.Unlock()
		return ErrAlreadyRunning
	}
	s.state.Status = model.SyncStatusConnecting
	s.mu.Unlock()

	callCtx, cancel := context.WithTimeout(ctx, s.cfg.RequestTimeout)
	info, err := s.node.GetInfo(callCtx)
	cancel()

	s.mu.Lock()
	defer s.mu.Unlock()

	if err != nil {
		s.state.Status = model.SyncStatusDisabled
		s.state.LastSyncError = err.Error()
		return fmt.Errorf("failed to connect to daemon: %w", err)
	}

	s.state.Status = model.SyncStatusSynced
	s.state.LastKnownHeight = info.Height
	s.state.TopoHeight = info.TopoHeight
	s.state.LastSyncError = ""
	s.state.ConsecutiveFailures = 0
	s.log.Info("connected to daemon",
		zap.String("endpoint", s.state.DaemonEndpoint),
		zap.String("network", info.Network),
		zap.String("version", info.Version),
		zap.Uint64("height", info.Height),
	)

	s.running = true
	s.quit = make(chan struct{})
	t := s.newTicker()
	s.wg.Add(1)
	go s.run(t, s.quit)
	return nil
}

func (s *Syncer) run(t ticker.Ticker, quit chan struct{}) {
	defer s.wg.Done()

	t.Resume()
	defer t.Stop()

	_ = s.Poll(context.Background())
	for {
		select {
		case <-t.Ticks():
			_ = s.Poll(context.Background())
		case <-quit:
			return
		}
	}
}

// Stop ends the loop and waits for an in-flight poll to finish. The wallet
// is offline afterwards.
func (s *Syncer) Stop() {
	s.mu.Lock()
	if !s.running {
		s.state.Status = model.SyncStatusDisabled
		s.mu.Unlock()
		return
	}
	s.running = false
	close(s.quit)
	s.mu.Unlock()

	s.wg.Wait()

	s.mu.Lock()
	s.state.Status = model.SyncStatusDisabled
	s.mu.Unlock()
	s.log.Info("sync loop stopped")
}

// State returns a copy of the sync state.
func (s *Syncer) State() model.SyncState {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state
}

// Running reports whether the background loop is active.
func (s *Syncer) Running() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.running
}

// Poll fetches the daemon view once and merges it. Network calls run without
// any ledger lock held; only the merge takes it.
func (s *Syncer) Poll(ctx context.Context) error {
	s.pollMu.Lock()
	defer s.pollMu.Unlock()

	view, err := s.fetch(ctx)
	if err == nil {
		err = s.ledger.MergeRemote(view.balances, view.nonce, view.info.Height)
	}
	if err != nil {
		s.recordFailure(err)
		return err
	}

	s.mu.Lock()
	s.state.LastKnownHeight = view.info.Height
	s.state.TopoHeight = view.info.TopoHeight
	s.state.LastSyncError = ""
	s.state.ConsecutiveFailures = 0
	s.mu.Unlock()

	s.log.Debug("synced",
		zap.Uint64("height", view.info.Height),
		zap.Uint64("nonce", view.nonce),
		zap.Int("assets", len(view.balances)),
	)
	return nil
}

type remoteView struct {
	info     *model.DaemonInfo
	nonce    uint64
	balances map[model.Asset]uint64
}

func (s *Syncer) fetch(ctx context.Context) (*remoteView, error) {
	assets := s.ledger.Assets()
	if !containsAsset(assets, model.NativeAsset) {
		assets = append(assets, model.NativeAsset)
	}

	view := &remoteView{balances: make(map[model.Asset]uint64, len(assets))}
	var mu sync.Mutex

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		callCtx, cancel := context.WithTimeout(gctx, s.cfg.RequestTimeout)
		defer cancel()
		info, err := s.node.GetInfo(callCtx)
		if err != nil {
			return err
		}
		view.info = info
		return nil
	})
	g.Go(func() error {
		callCtx, cancel := context.WithTimeout(gctx, s.cfg.RequestTimeout)
		defer cancel()
		nonce, err := s.node.GetNonce(callCtx, s.address)
		if errors.Is(err, client.ErrRejected) {
			// an address that never sent anything has no nonce on the node
			s.log.Debug("no remote nonce", zap.Error(err))
			return nil
		}
		if err != nil {
			return err
		}
		view.nonce = nonce
		return nil
	})
	for _, asset := range assets {
		g.Go(func() error {
			callCtx, cancel := context.WithTimeout(gctx, s.cfg.RequestTimeout)
			defer cancel()
			balance, err := s.node.GetBalance(callCtx, s.address, asset)
			if errors.Is(err, client.ErrRejected) {
				// the daemon has no balance record for this asset yet
				s.log.Debug("no remote balance", zap.Stringer("asset", asset), zap.Error(err))
				return nil
			}
			if err != nil {
				return err
			}
			mu.Lock()
			view.balances[asset] = balance
			mu.Unlock()
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return nil, err
	}
	return view, nil
}

func (s *Syncer) recordFailure(err error) {
	s.mu.Lock()
	s.state.LastSyncError = err.Error()
	s.state.ConsecutiveFailures++
	failures := s.state.ConsecutiveFailures
	s.mu.Unlock()

	fields := []zap.Field{zap.Error(err), zap.Int("consecutive_failures", failures)}
	threshold := s.cfg.FailureAlertThreshold
	if errors.Is(err, client.ErrRejected) || (threshold > 0 && failures >= threshold) {
		s.log.Error("sync failed", fields...)
		return
	}
	s.log.Warn("sync failed", fields...)
}

func containsAsset(assets []model.Asset, a model.Asset) bool {
	for _, x := range assets {
		if x == a {
			return true
		}
	}
	return false
}
