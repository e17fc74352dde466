package store

import (
	"context"

	"github.com/zombor/billed/internal/bill"
)

// Local serves the Store contract from a bill.Service in the same process
type Local struct {
	service *bill.Service
}

func NewLocal(service *bill.Service) *Local {
	return &Local{service: service}
}

func (l *Local) Bills() BillsStore {
	return localBills{service: l.service}
}

type localBills struct {
	service *bill.Service
}

func (b localBills) List(ctx context.Context, email string) ([]*bill.Bill, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	return b.service.ListBills(email)
}

func (b localBills) Create(ctx context.Context, payload bill.Payload, file *bill.File) (*bill.Bill, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	return b.service.CreateBill(ctx, payload, file)
}

func (b localBills) Update(ctx context.Context, id string, update bill.Update) (*bill.Bill, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	return b.service.UpdateBill(id, update)
}

func (b localBills) Scan(ctx context.Context, file *bill.File) (*bill.Suggestion, error) {
	return b.service.ScanReceipt(ctx, file)
}
