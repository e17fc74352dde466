// Package store is the client side of the bills API. Controllers depend on
// the Store interface only, so they work the same against the remote API
// and the in-process service.
package store

import (
	"context"
	"errors"

	"github.com/zombor/billed/internal/bill"
)

// ErrNoStore is returned by callers that were built without a store
var ErrNoStore = errors.New("no bills store configured")

// Store gives access to the bills collection
type Store interface {
	Bills() BillsStore
}

// BillsStore is the contract controllers rely on. Errors carry a message
// fit to be shown to the user as is.
type BillsStore interface {
	// List returns the bills of email, in whatever order the backend keeps them
	List(ctx context.Context, email string) ([]*bill.Bill, error)

	// Create submits a new bill with an optional receipt
	Create(ctx context.Context, payload bill.Payload, file *bill.File) (*bill.Bill, error)

	// Update records a review of a bill
	Update(ctx context.Context, id string, update bill.Update) (*bill.Bill, error)

	// Scan proposes bill fields from a receipt
	Scan(ctx context.Context, file *bill.File) (*bill.Suggestion, error)
}
