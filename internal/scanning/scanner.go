package scanning

import "context"

// ReceiptData contains extracted information from a receipt
type ReceiptData struct {
	Title  string  `json:"title"`
	Date   string  `json:"date"` // YYYY-MM-DD, empty when the receipt shows no readable date
	Amount float64 `json:"amount"`
}

// Scanner reads receipt images and proposes expense fields
type Scanner interface {
	// ScanReceipt analyzes a JPEG or PNG receipt and extracts metadata
	ScanReceipt(ctx context.Context, imageData []byte, contentType string) (*ReceiptData, error)
	// Close releases the scanner's resources
	Close() error
}
