package service

import (
	"context"
	"os"
	"strconv"
	"testing"
	"time"

	"xparking/internal/clock"
	"xparking/internal/config"
	"xparking/internal/database"
	"xparking/internal/events"
	"xparking/internal/repository"
	"xparking/internal/sepay"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/require"
)

// fakeFeed serves a canned transaction list instead of the bank API.
type fakeFeed struct {
	txns []sepay.Transaction
	err  error
}

func (f *fakeFeed) RecentTransactions(ctx context.Context, limit int) ([]sepay.Transaction, error) {
	return f.txns, f.err
}

type testEnv struct {
	db       *database.DB
	clock    *clock.Fake
	feed     *fakeFeed
	bus      *events.EventBus
	cache    *repository.MemoryExitCache
	location *time.Location

	bookings *BookingService
	gate     *GateService
	payments *PaymentService
	exits    *ExitService
	slots    *SlotService
}

func testSePayConfig() config.SePayConfig {
	return config.SePayConfig{
		BankAccount: "0123456789",
		BankCode:    "MBBank",
		QRTemplate:  "compact",
		FeedLimit:   20,
	}
}

func setupEnv(t *testing.T, slotCodes ...string) *testEnv {
	t.Helper()
	logger := zerolog.New(os.Stdout)
	db, err := database.NewDB(":memory:", &logger)
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })
	require.NoError(t, db.SyncSlots(context.Background(), slotCodes))

	loc, err := time.LoadLocation("Asia/Ho_Chi_Minh")
	require.NoError(t, err)

	clk := clock.NewFake(time.Date(2026, 9, 1, 8, 0, 0, 0, loc))
	feed := &fakeFeed{}
	bus := events.NewEventBus()
	cache := repository.NewMemoryExitCache(5 * time.Minute)
	pricing := NewPricing(5000, 60)
	sepayCfg := testSePayConfig()
	ttl := 10 * time.Minute

	env := &testEnv{
		db:       db,
		clock:    clk,
		feed:     feed,
		bus:      bus,
		cache:    cache,
		location: loc,
	}
	env.bookings = NewBookingService(db, pricing, bus, nil, sepayCfg, clk, &logger)
	env.gate = NewGateService(db, cache, bus, clk, &logger)
	env.payments = NewPaymentService(db, feed, sepay.NewNarrativeMatcher(15), cache, bus, sepayCfg, loc, ttl, clk, &logger)
	env.exits = NewExitService(db, pricing, cache, sepayCfg, loc, ttl, clk, &logger)
	env.slots = NewSlotService(db, clk, &logger)
	return env
}

// feedTransfer builds a feed row paying ref at the fake clock's current time.
func (e *testEnv) feedTransfer(ref string, amount int64) sepay.Transaction {
	return sepay.Transaction{
		ID:              "txn-" + ref,
		AmountIn:        strconv.FormatInt(amount, 10) + ".00",
		Content:         ref,
		TransactionDate: e.clock.Now().In(e.location).Format("2006-01-02 15:04:05"),
	}
}
