package sepay

import (
	"fmt"
	"net/url"

	"xparking/internal/config"
)

// QRImageURL builds the SePay VietQR image link for a payment. The bank app
// pre-fills amount and narrative from the query string; nothing is rendered
// server side.
func QRImageURL(cfg config.SePayConfig, ref string, amount int64) string {
	q := url.Values{}
	q.Set("acc", cfg.BankAccount)
	q.Set("bank", cfg.BankCode)
	q.Set("amount", fmt.Sprintf("%d", amount))
	q.Set("des", ref)
	q.Set("template", cfg.QRTemplate)
	return "https://qr.sepay.vn/img?" + q.Encode()
}
