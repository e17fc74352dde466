package ui

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"net/url"
	"strconv"
	"strings"

	"github.com/zombor/billed/internal/bill"
	"github.com/zombor/billed/internal/store"
)

const rejectedFileMessage = "Seuls les fichiers jpg, jpeg et png sont acceptés."

// NewBillForm is the new bill form as typed by the employee
type NewBillForm struct {
	Type       string
	Name       string
	Date       string
	Amount     string
	VAT        string
	Pct        string
	Commentary string
}

// FormFromValues reads the form fields by their input names
func FormFromValues(values url.Values) NewBillForm {
	return NewBillForm{
		Type:       values.Get("expense-type"),
		Name:       values.Get("expense-name"),
		Date:       values.Get("datepicker"),
		Amount:     values.Get("amount"),
		VAT:        values.Get("vat"),
		Pct:        values.Get("pct"),
		Commentary: values.Get("commentary"),
	}
}

// FileState is what the page shows about the chosen receipt
type FileState struct {
	Name       string
	Rejected   bool
	Suggestion *bill.Suggestion
}

// NewBill controls the new bill form
type NewBill struct {
	Deps
	file     *bill.File
	rejected bool
}

// NewNewBill creates the new bill controller
func NewNewBill(deps Deps) *NewBill {
	return &NewBill{Deps: deps}
}

// HandleChangeFile checks the chosen receipt. An accepted file is kept for
// submission; a rejected one is dropped and the employee may choose again.
func (n *NewBill) HandleChangeFile(ctx context.Context, file *bill.File) FileState {
	state := n.attach(file)
	if n.file != nil && n.Store != nil {
		suggestion, err := n.Store.Bills().Scan(ctx, file)
		if err != nil {
			slog.Debug("No receipt suggestion", "filename", file.Name, "error", err)
		} else {
			state.Suggestion = suggestion
		}
	}
	return state
}

// attach validates file and keeps it when accepted
func (n *NewBill) attach(file *bill.File) FileState {
	if file == nil {
		n.file, n.rejected = nil, false
		return FileState{}
	}
	if !bill.AcceptedReceipt(file.Name) {
		n.file, n.rejected = nil, true
		n.Metrics.rejected()
		return FileState{Name: file.Name, Rejected: true}
	}
	n.file, n.rejected = file, false
	return FileState{Name: file.Name}
}

// payload turns the typed form into a bill payload, reporting every bad field
func (n *NewBill) payload(form NewBillForm) (bill.Payload, error) {
	var errs bill.ValidationErrors
	payload := bill.Payload{
		Type:       strings.TrimSpace(form.Type),
		Name:       strings.TrimSpace(form.Name),
		Commentary: strings.TrimSpace(form.Commentary),
		Pct:        bill.DefaultPct,
	}
	if u := n.user(); u != nil {
		payload.Email = u.Email
	}

	if date, err := bill.ParseDate(form.Date); err != nil {
		errs.Add("datepicker", "Date invalide")
	} else {
		payload.Date = date
	}

	if strings.TrimSpace(form.Amount) == "" {
		errs.Add("amount", "Le montant est requis")
	} else if amount, err := bill.ParseMoney(form.Amount); err != nil {
		errs.Add("amount", "Le montant doit être un nombre")
	} else {
		payload.Amount = amount
	}

	if strings.TrimSpace(form.VAT) != "" {
		vat, err := bill.ParseMoney(form.VAT)
		if err != nil {
			errs.Add("vat", "La TVA doit être un nombre")
		} else {
			payload.VAT = vat
		}
	}

	if strings.TrimSpace(form.Pct) != "" {
		pct, err := strconv.Atoi(strings.TrimSpace(form.Pct))
		if err != nil {
			errs.Add("pct", "Le pourcentage doit être un nombre entier")
		} else {
			payload.Pct = pct
		}
	}

	if n.rejected {
		errs.Add("file", rejectedFileMessage)
	}

	var verrs bill.ValidationErrors
	if err := payload.Validate(); errors.As(err, &verrs) {
		reported := errs.Fields()
		for _, fe := range verrs {
			if _, ok := reported[fe.Field]; !ok {
				errs = append(errs, fe)
			}
		}
	}
	return payload, errs.Err()
}

// HandleSubmit creates the bill and goes back to the list once it is stored
func (n *NewBill) HandleSubmit(ctx context.Context, form NewBillForm) (*bill.Bill, error) {
	payload, err := n.payload(form)
	if err != nil {
		return nil, err
	}
	if n.Store == nil {
		return nil, store.ErrNoStore
	}

	created, err := n.Store.Bills().Create(ctx, payload, n.file)
	if err != nil {
		n.Metrics.storeError("create")
		return nil, err
	}
	n.Metrics.created()
	slog.Info("Bill submitted", "id", created.ID, "email", payload.Email)
	n.Navigator.Navigate(PathBills)
	return created, nil
}

type newBillView struct {
	Form      NewBillForm
	File      FileState
	Errors    map[string]string
	FormError string
}

// Render writes the form, with the errors of a failed submission if any
func (n *NewBill) Render(w io.Writer, form NewBillForm, file FileState, err error) error {
	view := newBillView{Form: form, File: file, Errors: map[string]string{}}
	if form.Pct == "" {
		view.Form.Pct = strconv.Itoa(bill.DefaultPct)
	}

	var verrs bill.ValidationErrors
	switch {
	case err == nil:
	case errors.As(err, &verrs):
		view.Errors = verrs.Fields()
	default:
		view.FormError = err.Error()
	}
	return n.Views.Render(w, "newbill", pageFor(PathNewBill, n.user(), view))
}

// RenderFile writes the receipt message fragment for a file change
func (n *NewBill) RenderFile(w io.Writer, file FileState) error {
	return n.Views.RenderPartial(w, "file-message", file)
}
