package ui

import (
	"context"
	"io"
	"log/slog"

	"github.com/zombor/billed/internal/bill"
	"github.com/zombor/billed/internal/session"
	"github.com/zombor/billed/internal/store"
)

// Deps are the collaborators every page controller is built with. Store
// may be nil, in which case controllers degrade instead of failing.
type Deps struct {
	Navigator Navigator
	Store     store.Store
	Session   session.Store
	Views     *Views
	Metrics   *Metrics
}

func (d Deps) user() *session.User {
	u, _ := session.CurrentUser(d.Session)
	return u
}

// Bills controls the list of the employee's bills
type Bills struct {
	Deps
}

// NewBills creates the bill list controller
func NewBills(deps Deps) *Bills {
	return &Bills{Deps: deps}
}

// HandleClickNewBill opens the new bill page
func (b *Bills) HandleClickNewBill() {
	b.Navigator.Navigate(PathNewBill)
}

// EyeIcon is the receipt icon of a table row
type EyeIcon struct {
	BillURL string
}

// HandleClickIconEye shows the receipt of the clicked row
func (b *Bills) HandleClickIconEye(icon EyeIcon, modal Modal) error {
	return modal.Open(ModalContent{Title: "Justificatif", ImageURL: icon.BillURL})
}

// GetBills fetches the bills of the signed-in employee, or of everyone for an admin
func (b *Bills) GetBills(ctx context.Context) ([]*bill.Bill, error) {
	if b.Store == nil {
		return nil, nil
	}
	var email string
	if u := b.user(); u != nil && u.Type != session.Admin {
		email = u.Email
	}
	bills, err := b.Store.Bills().List(ctx, email)
	if err != nil {
		b.Metrics.storeError("list")
		return nil, err
	}
	return bills, nil
}

type billsView struct {
	Rows []Row
}

type errorView struct {
	Message string
}

// FetchAndRender renders the bills table, or the store error in its place
func (b *Bills) FetchAndRender(ctx context.Context, w io.Writer) error {
	bills, err := b.GetBills(ctx)
	if err != nil {
		slog.Error("Error fetching bills", "error", err)
		return b.Views.Render(w, "error", pageFor(PathBills, b.user(), errorView{Message: err.Error()}))
	}
	b.Metrics.listed(len(bills))
	return b.Views.Render(w, "bills", pageFor(PathBills, b.user(), billsView{Rows: rows(bills)}))
}
