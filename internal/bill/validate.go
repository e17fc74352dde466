package bill

import (
	"errors"
	"path/filepath"
	"slices"
	"strings"
)

var (
	// ErrNotFound is returned when a bill or its receipt does not exist
	ErrNotFound = errors.New("bill not found")

	// ErrUnsupportedReceipt is returned for receipts outside AcceptedExtensions
	ErrUnsupportedReceipt = errors.New("unsupported receipt file: only jpg, jpeg and png are accepted")

	// ErrScannerDisabled is returned when no receipt scanner is configured
	ErrScannerDisabled = errors.New("receipt scanner disabled")
)

// AcceptedExtensions are the receipt file extensions, without the dot
var AcceptedExtensions = []string{"jpg", "jpeg", "png"}

// AcceptedReceipt reports whether filename has an accepted extension, ignoring case
func AcceptedReceipt(filename string) bool {
	ext := strings.TrimPrefix(strings.ToLower(filepath.Ext(filename)), ".")
	return slices.Contains(AcceptedExtensions, ext)
}

// FieldError is a validation failure attached to a single form field
type FieldError struct {
	Field   string `json:"field"`
	Message string `json:"message"`
}

// ValidationErrors collects every field that failed validation
type ValidationErrors []FieldError

func (v ValidationErrors) Error() string {
	if len(v) == 0 {
		return "validation failed"
	}
	messages := make([]string, len(v))
	for i, fe := range v {
		messages[i] = fe.Field + ": " + fe.Message
	}
	return strings.Join(messages, "; ")
}

// Add records a failure for field
func (v *ValidationErrors) Add(field, message string) {
	*v = append(*v, FieldError{Field: field, Message: message})
}

// Fields maps each failing field to its first message
func (v ValidationErrors) Fields() map[string]string {
	fields := make(map[string]string, len(v))
	for _, fe := range v {
		if _, ok := fields[fe.Field]; !ok {
			fields[fe.Field] = fe.Message
		}
	}
	return fields
}

// Err returns nil when nothing failed
func (v ValidationErrors) Err() error {
	if len(v) == 0 {
		return nil
	}
	return v
}

// Validate checks the invariants of a bill before it is stored
func (p Payload) Validate() error {
	var errs ValidationErrors
	if !ValidCategory(p.Type) {
		errs.Add("expense-type", "Type de dépense inconnu")
	}
	if !p.Date.Valid() {
		errs.Add("datepicker", "Date invalide")
	}
	if p.Amount <= 0 {
		errs.Add("amount", "Le montant doit être positif")
	}
	if p.VAT < 0 {
		errs.Add("vat", "La TVA ne peut pas être négative")
	}
	if p.Pct < 0 || p.Pct > 100 {
		errs.Add("pct", "Le pourcentage doit être compris entre 0 et 100")
	}
	return errs.Err()
}
