package s3blob

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"path"
	"time"

	"github.com/alanyoungcy/polytgbot/internal/domain"
)

// Receipt is the JSON document archived for each executed order.
type Receipt struct {
	IntentID  string    `json:"intent_id"`
	UserID    int64     `json:"user_id"`
	Kind      string    `json:"kind"`
	Mode      string    `json:"mode"`
	ListingID string    `json:"listing_id"`
	Question  string    `json:"question"`
	Outcome   string    `json:"outcome"`
	TokenID   string    `json:"token_id"`
	AmountUSD float64   `json:"amount_usd,omitempty"`
	Percent   int       `json:"percent,omitempty"`
	Shares    float64   `json:"shares"`
	Price     float64   `json:"price"`
	OrderID   string    `json:"order_id"`
	Status    string    `json:"status"`
	Filled    float64   `json:"filled_size"`
	AvgPrice  float64   `json:"avg_price"`
	CreatedAt time.Time `json:"created_at"`
}

// ReceiptWriter stores one receipt per order under
// {prefix}/YYYY/MM/DD/{intent id}.json.
type ReceiptWriter struct {
	blobs  domain.BlobWriter
	prefix string
}

// NewReceiptWriter creates a ReceiptWriter. An empty prefix means "receipts".
func NewReceiptWriter(blobs domain.BlobWriter, prefix string) *ReceiptWriter {
	if prefix == "" {
		prefix = "receipts"
	}
	return &ReceiptWriter{blobs: blobs, prefix: prefix}
}

// ReceiptPath returns the object key for rec.
func (w *ReceiptWriter) ReceiptPath(rec domain.OrderRecord) string {
	return path.Join(w.prefix, rec.CreatedAt.UTC().Format("2006/01/02"), rec.IntentID+".json")
}

// WriteReceipt uploads the receipt for rec.
func (w *ReceiptWriter) WriteReceipt(ctx context.Context, rec domain.OrderRecord) error {
	data, err := json.MarshalIndent(Receipt{
		IntentID:  rec.IntentID,
		UserID:    rec.UserID,
		Kind:      string(rec.Kind),
		Mode:      rec.Mode,
		ListingID: rec.ListingID,
		Question:  rec.Question,
		Outcome:   rec.Outcome,
		TokenID:   rec.TokenID,
		AmountUSD: rec.AmountUSD,
		Percent:   rec.Percent,
		Shares:    rec.Shares,
		Price:     rec.Price,
		OrderID:   rec.Result.OrderID,
		Status:    string(rec.Result.Status),
		Filled:    rec.Result.FilledSize,
		AvgPrice:  rec.Result.AvgPrice,
		CreatedAt: rec.CreatedAt.UTC(),
	}, "", "  ")
	if err != nil {
		return fmt.Errorf("s3blob: marshal receipt %s: %w", rec.IntentID, err)
	}
	return w.blobs.Put(ctx, w.ReceiptPath(rec), bytes.NewReader(data), "application/json")
}
