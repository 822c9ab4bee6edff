package sepay

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"xparking/internal/config"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestClientRecentTransactions(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "Bearer test-token", r.Header.Get("Authorization"))
		assert.Equal(t, "5", r.URL.Query().Get("limit"))

		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{
			"status": 200,
			"transactions": [
				{"id": "1", "amount_in": "40000.00", "transaction_content": "BOOKS17300000001", "transaction_date": "2026-09-01 12:00:00"}
			]
		}`))
	}))
	defer srv.Close()

	client := NewClient(config.SePayConfig{APIURL: srv.URL, APIToken: "test-token"})

	txns, err := client.RecentTransactions(context.Background(), 5)
	require.NoError(t, err)
	require.Len(t, txns, 1)
	assert.Equal(t, int64(40000), txns[0].Amount())
	assert.Equal(t, "BOOKS17300000001", txns[0].Content)
}

func TestClientErrorStatus(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusUnauthorized)
	}))
	defer srv.Close()

	client := NewClient(config.SePayConfig{APIURL: srv.URL, APIToken: "bad"})

	_, err := client.RecentTransactions(context.Background(), 5)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "401")
}

func TestClientRequiresURL(t *testing.T) {
	client := NewClient(config.SePayConfig{})
	_, err := client.RecentTransactions(context.Background(), 5)
	assert.Error(t, err)
}

func TestQRImageURL(t *testing.T) {
	cfg := config.SePayConfig{
		BankAccount: "0123456789",
		BankCode:    "MBBank",
		QRTemplate:  "compact",
	}

	u := QRImageURL(cfg, "BOOKS17300000001", 40000)
	assert.Contains(t, u, "https://qr.sepay.vn/img?")
	assert.Contains(t, u, "acc=0123456789")
	assert.Contains(t, u, "bank=MBBank")
	assert.Contains(t, u, "amount=40000")
	assert.Contains(t, u, "des=BOOKS17300000001")
	assert.Contains(t, u, "template=compact")
}
