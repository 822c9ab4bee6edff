package worker

import (
	"context"
	"errors"
	"log"
	"time"

	"xparking/internal/models"

	"github.com/redis/go-redis/v9"
)

// Reconciler settles pending payments against the bank feed.
type Reconciler interface {
	Reconcile(ctx context.Context, ref string) (*models.Payment, bool, error)
	ExpireOverdue(ctx context.Context) (int64, error)
}

// BookingExpirer sweeps bookings whose window passed without a check-in.
type BookingExpirer interface {
	ExpireOverdue(ctx context.Context) (int64, error)
}

// ReconcileWorker drives payment reconciliation. Refs arrive three ways:
// an in-memory queue for same-process wakeups, a redis list shared between
// instances, and a periodic poll over all pending payments as the safety net.
type ReconcileWorker struct {
	db           pendingLister
	reconciler   Reconciler
	bookings     BookingExpirer
	redis        *redis.Client
	retryPolicy  RetryPolicy
	queue        chan string
	redisKey     string
	pollInterval time.Duration
	batchSize    int
	logger       *log.Logger
}

type pendingLister interface {
	ListPendingPayments(ctx context.Context, limit int) ([]*models.Payment, error)
}

func NewReconcileWorker(db pendingLister, reconciler Reconciler, bookings BookingExpirer, redisClient *redis.Client, retry RetryPolicy, pollInterval time.Duration, logger *log.Logger) *ReconcileWorker {
	if retry.MaxRetries == 0 {
		retry.MaxRetries = 5
	}
	if retry.InitialDelay == 0 {
		retry.InitialDelay = 2 * time.Second
	}
	if retry.MaxDelay == 0 {
		retry.MaxDelay = 1 * time.Minute
	}
	if retry.BackoffFactor == 0 {
		retry.BackoffFactor = 2
	}
	if pollInterval <= 0 {
		pollInterval = 5 * time.Second
	}
	if logger == nil {
		logger = log.Default()
	}

	return &ReconcileWorker{
		db:           db,
		reconciler:   reconciler,
		bookings:     bookings,
		redis:        redisClient,
		retryPolicy:  retry,
		queue:        make(chan string, models.WorkerQueueSize),
		redisKey:     "payments:reconcile_queue",
		pollInterval: pollInterval,
		batchSize:    20,
		logger:       logger,
	}
}

// EnqueueRef schedules one reference for prompt reconciliation, via redis or
// the in-memory queue.
func (w *ReconcileWorker) EnqueueRef(ctx context.Context, ref string) error {
	if ref == "" {
		return errors.New("payment ref is required")
	}

	if w.redis != nil {
		if err := w.redis.LPush(ctx, w.redisKey, ref).Err(); err != nil {
			w.logger.Printf("reconcile_worker: redis push failed, fallback to memory queue: %v", err)
		} else {
			return nil
		}
	}

	select {
	case w.queue <- ref:
	default:
		w.logger.Printf("reconcile_worker: in-memory queue full, ref %s left to polling", ref)
	}

	return nil
}

// Start launches main loop; stops when ctx is done.
func (w *ReconcileWorker) Start(ctx context.Context) {
	w.logger.Printf("reconcile_worker: started")
	defer w.logger.Printf("reconcile_worker: stopped")

	feedFailures := 0
	for {
		select {
		case <-ctx.Done():
			return
		default:
		}

		if ref, ok := w.tryLocalQueue(); ok {
			w.processRef(ctx, ref, &feedFailures)
			continue
		}

		if ref, ok := w.tryRedis(ctx); ok {
			w.processRef(ctx, ref, &feedFailures)
			continue
		}

		w.sweep(ctx)

		payments, err := w.db.ListPendingPayments(ctx, w.batchSize)
		if err != nil {
			w.logger.Printf("reconcile_worker: fetch pending: %v", err)
			w.sleep(ctx, w.pollInterval)
			continue
		}
		for _, p := range payments {
			w.processRef(ctx, p.PaymentRef, &feedFailures)
			if feedFailures > 0 {
				// The feed is down, no point hammering it for every ref.
				break
			}
		}

		w.sleep(ctx, w.pollInterval)
	}
}

func (w *ReconcileWorker) processRef(ctx context.Context, ref string, feedFailures *int) {
	_, settled, err := w.reconciler.Reconcile(ctx, ref)
	if err != nil {
		*feedFailures++
		delay := w.retryPolicy.NextDelay(*feedFailures)
		w.logger.Printf("reconcile_worker: reconcile %s failed (attempt %d, backing off %s): %v", ref, *feedFailures, delay, err)
		w.sleep(ctx, delay)
		return
	}
	*feedFailures = 0
	if settled {
		w.logger.Printf("reconcile_worker: settled %s", ref)
	}
}

// sweep expires what the TTLs say is overdue.
func (w *ReconcileWorker) sweep(ctx context.Context) {
	if _, err := w.reconciler.ExpireOverdue(ctx); err != nil {
		w.logger.Printf("reconcile_worker: expire payments: %v", err)
	}
	if w.bookings != nil {
		if _, err := w.bookings.ExpireOverdue(ctx); err != nil {
			w.logger.Printf("reconcile_worker: expire bookings: %v", err)
		}
	}
}

func (w *ReconcileWorker) tryLocalQueue() (string, bool) {
	select {
	case ref := <-w.queue:
		return ref, true
	default:
		return "", false
	}
}

func (w *ReconcileWorker) tryRedis(ctx context.Context) (string, bool) {
	if w.redis == nil {
		return "", false
	}
	res, err := w.redis.BRPop(ctx, time.Second, w.redisKey).Result()
	if err != nil {
		if errors.Is(err, context.DeadlineExceeded) || errors.Is(err, redis.Nil) {
			return "", false
		}
		w.logger.Printf("reconcile_worker: redis BRPOP error: %v", err)
		return "", false
	}
	if len(res) != 2 {
		return "", false
	}
	return res[1], true
}

func (w *ReconcileWorker) sleep(ctx context.Context, d time.Duration) {
	select {
	case <-ctx.Done():
	case <-time.After(d):
	}
}
