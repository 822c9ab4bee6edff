package sepay

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"xparking/internal/config"
)

// Transaction is one row of the bank feed.
type Transaction struct {
	ID              string `json:"id"`
	AmountIn        string `json:"amount_in"`
	Content         string `json:"transaction_content"`
	TransactionDate string `json:"transaction_date"`
}

// Amount parses the credited amount as integer VND.
func (t Transaction) Amount() int64 {
	f, err := strconv.ParseFloat(t.AmountIn, 64)
	if err != nil {
		return 0
	}
	return int64(f)
}

// Time parses the feed timestamp in the facility location.
func (t Transaction) Time(loc *time.Location) (time.Time, error) {
	return time.ParseInLocation("2006-01-02 15:04:05", t.TransactionDate, loc)
}

// FeedClient fetches recent incoming transactions.
type FeedClient interface {
	RecentTransactions(ctx context.Context, limit int) ([]Transaction, error)
}

// Client talks to the SePay transaction API over HTTP with a bounded timeout.
type Client struct {
	cfg        config.SePayConfig
	httpClient *http.Client
}

func NewClient(cfg config.SePayConfig) *Client {
	return &Client{
		cfg: cfg,
		httpClient: &http.Client{
			Timeout: 10 * time.Second,
		},
	}
}

func (c *Client) RecentTransactions(ctx context.Context, limit int) ([]Transaction, error) {
	if c.cfg.APIURL == "" {
		return nil, fmt.Errorf("sepay api url is not configured")
	}
	if limit <= 0 {
		limit = c.cfg.FeedLimit
	}

	u, err := url.Parse(c.cfg.APIURL)
	if err != nil {
		return nil, fmt.Errorf("invalid sepay api url: %w", err)
	}
	q := u.Query()
	q.Set("limit", strconv.Itoa(limit))
	u.RawQuery = q.Encode()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u.String(), nil)
	if err != nil {
		return nil, fmt.Errorf("failed to build sepay request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+c.cfg.APIToken)
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("sepay request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("sepay responded with status %d", resp.StatusCode)
	}

	var body struct {
		Status       int           `json:"status"`
		Transactions []Transaction `json:"transactions"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		return nil, fmt.Errorf("failed to decode sepay response: %w", err)
	}

	return body.Transactions, nil
}
