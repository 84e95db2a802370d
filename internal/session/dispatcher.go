package session

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strconv"
	"sync"
	"time"

	"github.com/alanyoungcy/polytgbot/internal/domain"
)

// Job is one inbound user action. Run performs it; Reject is called instead
// when the action cannot be processed (busy, shutting down).
type Job struct {
	Run    func(ctx context.Context)
	Reject func(ctx context.Context, err error)
}

// DispatcherConfig tunes the per-user workers.
type DispatcherConfig struct {
	QueueDepth  int           // pending jobs per user before ErrBusy
	IdleTimeout time.Duration // worker exits after this long without jobs
	LockTTL     time.Duration // per-user distributed lock TTL, when Locks is set
}

// Dispatcher runs each user's jobs on a dedicated worker in arrival order.
// Different users run in parallel. When a LockManager is configured the
// worker also holds a per-user lock for the duration of each job so that
// several bot replicas never process the same user at once.
type Dispatcher struct {
	cfg    DispatcherConfig
	locks  domain.LockManager
	logger *slog.Logger

	mu      sync.Mutex
	workers map[int64]chan Job
	closed  bool
	wg      sync.WaitGroup
	ctx     context.Context
}

// NewDispatcher creates a Dispatcher. locks may be nil.
func NewDispatcher(cfg DispatcherConfig, locks domain.LockManager, logger *slog.Logger) *Dispatcher {
	if cfg.QueueDepth <= 0 {
		cfg.QueueDepth = 4
	}
	if cfg.IdleTimeout <= 0 {
		cfg.IdleTimeout = 5 * time.Minute
	}
	if cfg.LockTTL <= 0 {
		cfg.LockTTL = 2 * time.Minute
	}
	return &Dispatcher{
		cfg:     cfg,
		locks:   locks,
		logger:  logger.With(slog.String("component", "dispatcher")),
		workers: make(map[int64]chan Job),
		ctx:     context.Background(),
	}
}

// Submit enqueues a job for userID. It returns domain.ErrBusy when the user's
// queue is full and an error once the dispatcher has stopped.
func (d *Dispatcher) Submit(userID int64, job Job) error {
	d.mu.Lock()
	defer d.mu.Unlock()

	if d.closed {
		return errors.New("session: dispatcher stopped")
	}

	mailbox, ok := d.workers[userID]
	if !ok {
		mailbox = make(chan Job, d.cfg.QueueDepth)
		d.workers[userID] = mailbox
		d.wg.Add(1)
		go d.work(userID, mailbox)
	}

	select {
	case mailbox <- job:
		return nil
	default:
		return fmt.Errorf("session: user %d: %w", userID, domain.ErrBusy)
	}
}

// Run binds the dispatcher to ctx and blocks until ctx is cancelled. It then
// stops accepting jobs and waits for in-flight jobs to finish; a job that has
// reached the trading backend is never abandoned.
func (d *Dispatcher) Run(ctx context.Context) error {
	d.mu.Lock()
	d.ctx = ctx
	d.mu.Unlock()

	<-ctx.Done()

	d.mu.Lock()
	d.closed = true
	for _, mailbox := range d.workers {
		close(mailbox)
	}
	d.mu.Unlock()

	d.wg.Wait()
	d.logger.Info("dispatcher stopped")
	return nil
}

// Active returns the number of live workers.
func (d *Dispatcher) Active() int {
	d.mu.Lock()
	defer d.mu.Unlock()
	return len(d.workers)
}

func (d *Dispatcher) work(userID int64, mailbox chan Job) {
	defer d.wg.Done()

	idle := time.NewTimer(d.cfg.IdleTimeout)
	defer idle.Stop()

	for {
		select {
		case job, ok := <-mailbox:
			if !ok {
				return
			}
			d.runJob(userID, job)
			idle.Reset(d.cfg.IdleTimeout)

		case <-idle.C:
			d.mu.Lock()
			if len(mailbox) == 0 && !d.closed {
				delete(d.workers, userID)
				d.mu.Unlock()
				return
			}
			d.mu.Unlock()
			idle.Reset(d.cfg.IdleTimeout)
		}
	}
}

func (d *Dispatcher) runJob(userID int64, job Job) {
	d.mu.Lock()
	parent := d.ctx
	d.mu.Unlock()

	// Jobs outlive shutdown: an order call already issued must be awaited.
	ctx := context.WithoutCancel(parent)

	if d.locks != nil {
		unlock, err := d.locks.Acquire(ctx, "user:"+strconv.FormatInt(userID, 10), d.cfg.LockTTL)
		if err != nil {
			d.logger.WarnContext(ctx, "user lock not acquired",
				slog.Int64("user_id", userID),
				slog.String("error", err.Error()),
			)
			if job.Reject != nil {
				if errors.Is(err, domain.ErrLockHeld) {
					err = fmt.Errorf("session: user %d: %w", userID, domain.ErrBusy)
				}
				job.Reject(ctx, err)
			}
			return
		}
		defer unlock()
	}

	defer func() {
		if r := recover(); r != nil {
			d.logger.ErrorContext(ctx, "job panicked",
				slog.Int64("user_id", userID),
				slog.Any("panic", r),
			)
		}
	}()
	job.Run(ctx)
}
