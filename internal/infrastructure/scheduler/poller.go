package scheduler

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/solarfin/backend/internal/domain/audit"
	"github.com/solarfin/backend/internal/infrastructure/backend"
	"github.com/solarfin/backend/internal/infrastructure/telemetry"
	"go.uber.org/zap"
)

// RefreshFunc re-fetches one entity from the upstream and stores it in the cache
type RefreshFunc func(ctx context.Context, id string) error

// RefreshExecutor dispatches refresh jobs by entity kind. Background
// refreshes have no viewer, so they authenticate with the service token.
type RefreshExecutor struct {
	serviceToken string
	refreshers   map[audit.EntityKind]RefreshFunc
}

// NewRefreshExecutor creates an executor
func NewRefreshExecutor(serviceToken string, refreshers map[audit.EntityKind]RefreshFunc) *RefreshExecutor {
	return &RefreshExecutor{serviceToken: serviceToken, refreshers: refreshers}
}

// Execute implements JobExecutor
func (e *RefreshExecutor) Execute(ctx context.Context, job *Job) error {
	refresh, ok := e.refreshers[job.Key.Kind]
	if !ok {
		return fmt.Errorf("%w: %s", ErrUnknownEntityKind, job.Key.Kind)
	}
	if e.serviceToken != "" {
		ctx = backend.WithBearerToken(ctx, e.serviceToken)
	}
	return refresh(ctx, job.Key.ID)
}

// PollerConfig holds polling configuration
type PollerConfig struct {
	Interval   time.Duration
	MaxWatched int
	WatchTTL   time.Duration
}

// Poller periodically submits a refresh job for every watched entity
type Poller struct {
	config    PollerConfig
	watch     *WatchSet
	scheduler *Scheduler
	metrics   *telemetry.NegotiationMetrics
	logger    *zap.Logger

	cancel    context.CancelFunc
	wg        sync.WaitGroup
	mu        sync.Mutex
	isRunning bool
}

// NewPoller creates a poller. metrics may be nil.
func NewPoller(config PollerConfig, scheduler *Scheduler, metrics *telemetry.NegotiationMetrics, logger *zap.Logger) (*Poller, error) {
	if config.Interval <= 0 {
		return nil, fmt.Errorf("%w: poll interval must be positive", ErrInvalidConfig)
	}
	return &Poller{
		config:    config,
		watch:     NewWatchSet(config.MaxWatched, config.WatchTTL),
		scheduler: scheduler,
		metrics:   metrics,
		logger:    logger,
	}, nil
}

// Watch marks an entity as recently viewed
func (p *Poller) Watch(kind audit.EntityKind, id string) {
	p.watch.Touch(WatchKey{Kind: kind, ID: id})
}

// Start starts the scheduler and the poll loop
func (p *Poller) Start(ctx context.Context) error {
	p.mu.Lock()
	if p.isRunning {
		p.mu.Unlock()
		return nil
	}
	p.isRunning = true
	p.mu.Unlock()

	if err := p.scheduler.Start(ctx); err != nil {
		return err
	}

	ctx, cancel := context.WithCancel(ctx)
	p.cancel = cancel

	p.wg.Add(1)
	go p.runLoop(ctx)

	p.logger.Info("Entity poller started",
		zap.Duration("interval", p.config.Interval),
		zap.Int("max_watched", p.config.MaxWatched),
		zap.Duration("watch_ttl", p.config.WatchTTL),
	)
	return nil
}

// Stop stops the poll loop and drains the scheduler
func (p *Poller) Stop(ctx context.Context) error {
	p.mu.Lock()
	if !p.isRunning {
		p.mu.Unlock()
		return nil
	}
	p.isRunning = false
	p.mu.Unlock()

	if p.cancel != nil {
		p.cancel()
	}
	p.wg.Wait()
	return p.scheduler.Stop(ctx)
}

func (p *Poller) runLoop(ctx context.Context) {
	defer p.wg.Done()

	ticker := time.NewTicker(p.config.Interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			p.tick(ctx)
		}
	}
}

// tick submits one job per watched key; it returns the number submitted
func (p *Poller) tick(ctx context.Context) int {
	keys := p.watch.Snapshot()
	p.metrics.RecordWatched(ctx, len(keys))

	submitted := 0
	for _, k := range keys {
		err := p.scheduler.SubmitJob(NewJob(k))
		if errors.Is(err, ErrJobQueueFull) {
			p.logger.Debug("Refresh queue full, deferring remaining keys",
				zap.Int("submitted", submitted),
				zap.Int("watched", len(keys)),
			)
			break
		}
		if err != nil {
			p.logger.Warn("Failed to submit refresh job", zap.Error(err))
			break
		}
		submitted++
	}
	return submitted
}
