package worker

import (
	"context"
	"errors"
	"testing"
	"time"

	"xparking/internal/models"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
)

type fakeReconciler struct {
	settled map[string]bool
	err     error

	reconcileCalls int
	expireCalls    int
}

func (f *fakeReconciler) Reconcile(ctx context.Context, ref string) (*models.Payment, bool, error) {
	f.reconcileCalls++
	if f.err != nil {
		return nil, false, f.err
	}
	return &models.Payment{PaymentRef: ref, Status: models.PaymentCompleted}, f.settled[ref], nil
}

func (f *fakeReconciler) ExpireOverdue(ctx context.Context) (int64, error) {
	f.expireCalls++
	return 0, nil
}

type fakeExpirer struct {
	calls int
}

func (f *fakeExpirer) ExpireOverdue(ctx context.Context) (int64, error) {
	f.calls++
	return 0, nil
}

type fakePendingLister struct {
	payments []*models.Payment
}

func (f *fakePendingLister) ListPendingPayments(ctx context.Context, limit int) ([]*models.Payment, error) {
	return f.payments, nil
}

func TestEnqueueRefLocalQueue(t *testing.T) {
	w := NewReconcileWorker(&fakePendingLister{}, &fakeReconciler{}, nil, nil, RetryPolicy{}, 0, nil)

	if err := w.EnqueueRef(context.Background(), "BOOKS17300000001"); err != nil {
		t.Fatalf("enqueue: %v", err)
	}

	ref, ok := w.tryLocalQueue()
	if !ok {
		t.Fatalf("expected ref in local queue")
	}
	if ref != "BOOKS17300000001" {
		t.Fatalf("expected BOOKS17300000001, got %s", ref)
	}
}

func TestEnqueueRefEmpty(t *testing.T) {
	w := NewReconcileWorker(&fakePendingLister{}, &fakeReconciler{}, nil, nil, RetryPolicy{}, 0, nil)
	if err := w.EnqueueRef(context.Background(), ""); err == nil {
		t.Fatalf("expected error for empty ref")
	}
}

func TestEnqueueRefRedis(t *testing.T) {
	s, err := miniredis.Run()
	if err != nil {
		t.Fatalf("miniredis: %v", err)
	}
	defer s.Close()

	client := redis.NewClient(&redis.Options{Addr: s.Addr()})
	defer client.Close()

	w := NewReconcileWorker(&fakePendingLister{}, &fakeReconciler{}, nil, client, RetryPolicy{}, 0, nil)
	ctx := context.Background()

	if err := w.EnqueueRef(ctx, "EXITS17300000007"); err != nil {
		t.Fatalf("enqueue: %v", err)
	}

	if _, ok := w.tryLocalQueue(); ok {
		t.Fatalf("ref should have gone to redis, not the local queue")
	}

	ref, ok := w.tryRedis(ctx)
	if !ok {
		t.Fatalf("expected ref from redis")
	}
	if ref != "EXITS17300000007" {
		t.Fatalf("expected EXITS17300000007, got %s", ref)
	}
}

func TestProcessRefResetsFailures(t *testing.T) {
	rec := &fakeReconciler{settled: map[string]bool{"BOOKS17300000001": true}}
	w := NewReconcileWorker(&fakePendingLister{}, rec, nil, nil, RetryPolicy{InitialDelay: time.Millisecond}, 0, nil)

	failures := 3
	w.processRef(context.Background(), "BOOKS17300000001", &failures)

	if failures != 0 {
		t.Fatalf("expected failures reset to 0, got %d", failures)
	}
	if rec.reconcileCalls != 1 {
		t.Fatalf("expected 1 reconcile call, got %d", rec.reconcileCalls)
	}
}

func TestProcessRefBacksOffOnError(t *testing.T) {
	rec := &fakeReconciler{err: errors.New("feed down")}
	w := NewReconcileWorker(&fakePendingLister{}, rec, nil, nil, RetryPolicy{InitialDelay: time.Millisecond, MaxDelay: time.Millisecond}, 0, nil)

	failures := 0
	w.processRef(context.Background(), "BOOKS17300000001", &failures)
	w.processRef(context.Background(), "BOOKS17300000001", &failures)

	if failures != 2 {
		t.Fatalf("expected 2 failures, got %d", failures)
	}
}

func TestSweep(t *testing.T) {
	rec := &fakeReconciler{}
	exp := &fakeExpirer{}
	w := NewReconcileWorker(&fakePendingLister{}, rec, exp, nil, RetryPolicy{}, 0, nil)

	w.sweep(context.Background())

	if rec.expireCalls != 1 {
		t.Fatalf("expected payment expiry sweep, got %d calls", rec.expireCalls)
	}
	if exp.calls != 1 {
		t.Fatalf("expected booking expiry sweep, got %d calls", exp.calls)
	}
}

func TestRetryPolicyNextDelay(t *testing.T) {
	policy := RetryPolicy{InitialDelay: time.Second, BackoffFactor: 2, MaxDelay: 10 * time.Second}

	if got := policy.NextDelay(1); got != time.Second {
		t.Fatalf("attempt 1: expected 1s, got %s", got)
	}
	if got := policy.NextDelay(3); got != 4*time.Second {
		t.Fatalf("attempt 3: expected 4s, got %s", got)
	}
	if got := policy.NextDelay(10); got != 10*time.Second {
		t.Fatalf("attempt 10: expected clamp to 10s, got %s", got)
	}
	if got := policy.NextDelay(0); got != time.Second {
		t.Fatalf("attempt 0: expected 1s, got %s", got)
	}
}
