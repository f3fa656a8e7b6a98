// Package scanner discovers donations addressed to a set of stealth keys by
// walking announcement logs over block ranges.
package scanner

import (
	"context"
	"errors"
	"fmt"
	"math/big"
	"sync"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/goodnatureofminers/stealthwatch-backend/internal/stealth/announcement"
	"github.com/goodnatureofminers/stealthwatch-backend/internal/stealth/derivation"
	"github.com/goodnatureofminers/stealthwatch-backend/internal/stealth/model"
	"go.uber.org/zap"
)

// State is the lifecycle state of an Engine.
type State int32

const (
	StateIdle State = iota
	StateScanning
	StateFailed
)

func (s State) String() string {
	switch s {
	case StateIdle:
		return "idle"
	case StateScanning:
		return "scanning"
	case StateFailed:
		return "failed"
	default:
		return fmt.Sprintf("state(%d)", int32(s))
	}
}

// Config describes what an Engine scans and how.
type Config struct {
	Network   model.Network
	Owner     string
	Announcer common.Address
	// ChunkSize is the maximum number of blocks per log query.
	ChunkSize uint64
	// Lookback is how far behind the head the first scan starts when no
	// checkpoint exists.
	Lookback uint64
}

// Result summarizes a single scan attempt.
type Result struct {
	// Skipped is set when the trigger arrived while a scan was in flight.
	Skipped bool
	// UpToDate is set when the checkpoint already covers the chain head.
	UpToDate      bool
	From          uint64
	To            uint64
	Announcements int
	Records       []model.DonationRecord
	Total         *big.Int
}

// Engine scans announcements for the keys of a single owner. At most one
// scan runs at a time; triggers arriving meanwhile are dropped.
type Engine struct {
	logger   *zap.Logger
	cfg      Config
	keys     []model.StealthKeys
	logs     LogSource
	balances BalanceSource
	head     HeadSource
	store    Store
	notifier Notifier
	metrics  Metrics
	now      func() time.Time

	mu      sync.Mutex
	state   State
	lastErr error
}

// NewEngine builds an Engine with its collaborators.
func NewEngine(
	cfg Config,
	keys []model.StealthKeys,
	logs LogSource,
	balances BalanceSource,
	head HeadSource,
	store Store,
	notifier Notifier,
	metrics Metrics,
	logger *zap.Logger,
) (*Engine, error) {
	if len(keys) == 0 {
		return nil, errors.New("scanner requires at least one key set")
	}
	if logs == nil || balances == nil || head == nil {
		return nil, errors.New("scanner chain sources are required")
	}
	if store == nil {
		return nil, errors.New("scanner store is required")
	}
	if notifier == nil {
		return nil, errors.New("scanner notifier is required")
	}
	if metrics == nil {
		return nil, errors.New("scanner metrics is required")
	}
	if cfg.ChunkSize == 0 {
		cfg.ChunkSize = defaultChunkSize
	}
	if cfg.Lookback == 0 {
		cfg.Lookback = defaultLookback
	}
	if cfg.Announcer == (common.Address{}) {
		cfg.Announcer = announcement.DefaultAnnouncer
	}

	return &Engine{
		logger: logger.With(
			zap.String("network", string(cfg.Network)),
			zap.String("owner", cfg.Owner),
		),
		cfg:      cfg,
		keys:     keys,
		logs:     logs,
		balances: balances,
		head:     head,
		store:    store,
		notifier: notifier,
		metrics:  metrics,
		now:      time.Now,
		state:    StateIdle,
	}, nil
}

// Owner returns the owner the engine scans for.
func (e *Engine) Owner() string {
	return e.cfg.Owner
}

// State reports the current lifecycle state and the error of the last failed scan.
func (e *Engine) State() (State, error) {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.state, e.lastErr
}

// Trigger scans from the checkpoint to the current chain head.
func (e *Engine) Trigger(ctx context.Context) (res Result, err error) {
	if !e.acquire() {
		e.logger.Debug("scan already in progress, trigger ignored")
		return Result{Skipped: true}, nil
	}
	defer func() { e.release(err) }()

	head, err := e.head.LatestBlock(ctx)
	if err != nil {
		return Result{}, fmt.Errorf("latest block: %w", err)
	}
	from, err := e.startBlock(ctx, head)
	if err != nil {
		return Result{}, err
	}
	if from > head {
		e.logger.Debug("checkpoint covers chain head", zap.Uint64("head", head))
		return Result{UpToDate: true, From: from, To: head}, nil
	}

	return e.scan(ctx, from, head, e.cfg.ChunkSize)
}

// Scan processes [from, to] in windows of at most chunkSize blocks. The
// checkpoint advances to `to` only when the whole range succeeds.
func (e *Engine) Scan(ctx context.Context, from, to, chunkSize uint64) (res Result, err error) {
	if !e.acquire() {
		e.logger.Debug("scan already in progress, request ignored")
		return Result{Skipped: true}, nil
	}
	defer func() { e.release(err) }()

	return e.scan(ctx, from, to, chunkSize)
}

func (e *Engine) acquire() bool {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.state == StateScanning {
		return false
	}
	e.state = StateScanning
	return true
}

func (e *Engine) release(err error) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.lastErr = err
	if err != nil {
		e.state = StateFailed
		return
	}
	e.state = StateIdle
}

func (e *Engine) startBlock(ctx context.Context, head uint64) (uint64, error) {
	checkpoint, ok, err := e.store.LoadCheckpoint(ctx, e.cfg.Network, e.cfg.Owner)
	if err != nil {
		return 0, fmt.Errorf("load checkpoint: %w", err)
	}
	if ok {
		if checkpoint >= head {
			return head + 1, nil
		}
		return checkpoint + 1, nil
	}
	if head <= e.cfg.Lookback {
		return 0, nil
	}
	return head - e.cfg.Lookback, nil
}

func (e *Engine) scan(ctx context.Context, from, to, chunkSize uint64) (res Result, err error) {
	started := time.Now()
	if err = validateRange(from, to, chunkSize); err != nil {
		return Result{}, err
	}
	defer func() {
		e.metrics.ObserveScan(err, to-from+1, started)
	}()

	logger := e.logger.With(zap.Uint64("from", from), zap.Uint64("to", to))
	logger.Info("scan started", zap.Uint64("chunk_size", chunkSize))

	announcements, err := e.collect(ctx, from, to, chunkSize)
	if err != nil {
		logger.Warn("scan aborted, checkpoint unchanged", zap.Error(err))
		return Result{}, err
	}

	existing, err := e.store.LoadRecords(ctx, e.cfg.Network, e.cfg.Owner)
	if err != nil {
		return Result{}, fmt.Errorf("load records: %w", err)
	}
	seen := make(map[string]struct{}, len(existing))
	for _, r := range existing {
		seen[r.ID] = struct{}{}
	}

	records := make([]model.DonationRecord, 0)
	total := new(big.Int)
	for _, ann := range announcements {
		for _, keys := range e.keys {
			record, ok, err := e.match(ctx, ann, keys, seen)
			if err != nil {
				return Result{}, err
			}
			if !ok {
				continue
			}
			seen[record.ID] = struct{}{}
			records = append(records, record)
			total.Add(total, record.Amount)
		}
	}

	if len(records) > 0 {
		if err = e.store.SaveRecords(ctx, e.cfg.Network, e.cfg.Owner, records); err != nil {
			return Result{}, fmt.Errorf("save records: %w", err)
		}
	}
	if err = e.store.SaveCheckpoint(ctx, e.cfg.Network, e.cfg.Owner, to); err != nil {
		return Result{}, fmt.Errorf("save checkpoint %d: %w", to, err)
	}
	e.metrics.ObserveDonations(len(records), total)

	if len(records) > 0 {
		if notifyErr := e.notifier.Notify(ctx, len(records), total); notifyErr != nil {
			logger.Warn("notify donations failed", zap.Error(notifyErr))
		}
	}

	logger.Info("scan finished",
		zap.Int("announcements", len(announcements)),
		zap.Int("donations", len(records)),
		zap.Stringer("total", total),
		zap.Duration("elapsed", time.Since(started)),
	)

	return Result{
		From:          from,
		To:            to,
		Announcements: len(announcements),
		Records:       records,
		Total:         total,
	}, nil
}

// collect fetches and decodes every window in order. Any fetch failure aborts.
func (e *Engine) collect(ctx context.Context, from, to, chunkSize uint64) ([]model.Announcement, error) {
	announcements := make([]model.Announcement, 0)
	err := EachWindow(from, to, chunkSize, func(w Window) error {
		if err := ctx.Err(); err != nil {
			return err
		}
		started := time.Now()
		logs, err := e.logs.FetchLogs(ctx, e.cfg.Announcer, announcement.Topic, w.From, w.To)
		e.metrics.ObserveFetchWindow(err, len(logs), started)
		if err != nil {
			return fmt.Errorf("fetch logs window %d-%d: %w", w.From, w.To, err)
		}

		for _, l := range logs {
			ann, err := announcement.Decode(l)
			if err != nil {
				if errors.Is(err, announcement.ErrUnsupportedScheme) {
					e.metrics.ObserveAnnouncement(OutcomeUnsupportedScheme)
					continue
				}
				e.metrics.ObserveAnnouncement(OutcomeDecodeError)
				e.logger.Warn("skip malformed announcement",
					zap.Uint64("block", l.BlockNumber),
					zap.Stringer("tx", l.TxHash),
					zap.Error(err),
				)
				continue
			}
			announcements = append(announcements, ann)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return announcements, nil
}

// match runs the view tag filter, full derivation and balance check for one
// announcement against one key set.
func (e *Engine) match(
	ctx context.Context,
	ann model.Announcement,
	keys model.StealthKeys,
	seen map[string]struct{},
) (model.DonationRecord, bool, error) {
	viewing := keys.Viewing.PrivateKey
	if !derivation.MatchesViewTag(ann, viewing) {
		e.metrics.ObserveAnnouncement(OutcomeViewTagMiss)
		return model.DonationRecord{}, false, nil
	}

	derived, err := derivation.DeriveStealthPrivateKey(ann, keys.Spending.PrivateKey, viewing)
	switch {
	case errors.Is(err, derivation.ErrCollision):
		e.metrics.ObserveAnnouncement(OutcomeCollision)
		return model.DonationRecord{}, false, nil
	case err != nil:
		e.metrics.ObserveAnnouncement(OutcomeInvalid)
		e.logger.Debug("skip underivable announcement", zap.Stringer("tx", ann.TxHash), zap.Error(err))
		return model.DonationRecord{}, false, nil
	}

	id := model.DonationID(ann.TxHash, derived.Address)
	if _, ok := seen[id]; ok {
		e.metrics.ObserveAnnouncement(OutcomeDuplicate)
		return model.DonationRecord{}, false, nil
	}

	balance, err := e.balances.BalanceAt(ctx, derived.Address)
	if err != nil {
		return model.DonationRecord{}, false, fmt.Errorf("balance of %s: %w", derived.Address, err)
	}
	if balance == nil || balance.Sign() <= 0 {
		e.metrics.ObserveAnnouncement(OutcomeEmptyBalance)
		return model.DonationRecord{}, false, nil
	}

	e.metrics.ObserveAnnouncement(OutcomeDonation)
	return model.DonationRecord{
		ID:             id,
		StealthAddress: derived.Address,
		Amount:         new(big.Int).Set(balance),
		Timestamp:      e.now().UTC(),
		Memo:           fmt.Sprintf("Donation received at block %d", ann.BlockNumber),
		BlockNumber:    ann.BlockNumber,
		TxHash:         ann.TxHash,
	}, true, nil
}
