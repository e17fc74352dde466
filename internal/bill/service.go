package bill

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"math"
	"path/filepath"
	"regexp"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/zombor/billed/internal/scanning"
)

// IDGenerator generates unique IDs for bills
type IDGenerator interface {
	Generate() string
}

// TimeSource provides the current time
type TimeSource interface {
	Now() time.Time
}

type uuidGenerator struct{}

func (uuidGenerator) Generate() string {
	return uuid.NewString()
}

type systemClock struct{}

func (systemClock) Now() time.Time {
	return time.Now()
}

// Service handles bill operations
type Service struct {
	db          DB
	storage     Storage
	scanner     scanning.Scanner
	idGenerator IDGenerator
	timeSource  TimeSource
}

// NewService creates a Service. scanner may be nil when receipt scanning is disabled.
func NewService(db DB, storage Storage, scanner scanning.Scanner) *Service {
	return NewServiceWithDeps(db, storage, scanner, uuidGenerator{}, systemClock{})
}

// NewServiceWithDeps creates a Service with custom dependencies for testing
func NewServiceWithDeps(db DB, storage Storage, scanner scanning.Scanner, idGen IDGenerator, timeSrc TimeSource) *Service {
	return &Service{
		db:          db,
		storage:     storage,
		scanner:     scanner,
		idGenerator: idGen,
		timeSource:  timeSrc,
	}
}

var (
	unsafeFilenameChars = regexp.MustCompile(`[^a-zA-Z0-9\s\-_]`)
	repeatedSpaces      = regexp.MustCompile(`\s+`)
)

// sanitizeFilename strips special characters from a receipt name and shortens it
func sanitizeFilename(filename string) string {
	ext := strings.ToLower(filepath.Ext(filename))
	base := strings.TrimSuffix(filepath.Base(filename), filepath.Ext(filename))

	base = unsafeFilenameChars.ReplaceAllString(base, "")
	base = repeatedSpaces.ReplaceAllString(base, " ")
	base = strings.TrimSpace(base)

	if len(base) > 50 {
		base = base[:50]
	}
	if base == "" {
		base = "justificatif"
	}
	return base + ext
}

// contentTypeFor guesses the MIME type of a receipt from its extension
func contentTypeFor(filename string) string {
	switch strings.ToLower(filepath.Ext(filename)) {
	case ".jpg", ".jpeg":
		return "image/jpeg"
	case ".png":
		return "image/png"
	}
	return "application/octet-stream"
}

// FileURL is where the API serves the receipt of bill id
func FileURL(id string) string {
	return "/api/bills/" + id + "/file"
}

// ListBills returns the bills of one employee, or all bills when email is empty
func (s *Service) ListBills(email string) ([]*Bill, error) {
	bills, err := s.db.ListBills(email)
	if err != nil {
		return nil, fmt.Errorf("listing bills: %w", err)
	}
	return bills, nil
}

// GetBill retrieves a bill by ID
func (s *Service) GetBill(id string) (*Bill, error) {
	bill, err := s.db.GetBill(id)
	if err != nil {
		return nil, fmt.Errorf("getting bill: %w", err)
	}
	return bill, nil
}

// CreateBill validates the payload, stores the receipt and saves a pending bill
func (s *Service) CreateBill(ctx context.Context, payload Payload, file *File) (*Bill, error) {
	if err := payload.Validate(); err != nil {
		return nil, err
	}
	if file != nil && !AcceptedReceipt(file.Name) {
		return nil, ErrUnsupportedReceipt
	}

	id := s.idGenerator.Generate()
	now := s.timeSource.Now()

	bill := &Bill{
		ID:         id,
		Email:      payload.Email,
		Type:       payload.Type,
		Name:       strings.TrimSpace(payload.Name),
		Amount:     payload.Amount,
		Date:       payload.Date,
		VAT:        payload.VAT,
		Pct:        payload.Pct,
		Status:     StatusPending,
		Commentary: payload.Commentary,
		CreatedAt:  now,
		UpdatedAt:  now,
	}

	if file != nil {
		savedName, err := s.storage.Save(fmt.Sprintf("%s_%s", id, sanitizeFilename(file.Name)), file.Data)
		if err != nil {
			return nil, fmt.Errorf("saving receipt: %w", err)
		}
		bill.FileName = savedName
		bill.FileURL = FileURL(id)
		bill.ContentType = contentTypeFor(file.Name)

		if bill.Name == "" && s.scanner != nil {
			s.fillFromScan(ctx, bill, file)
		}
	}

	if err := s.db.SaveBill(bill); err != nil {
		if bill.FileName != "" {
			s.storage.Delete(bill.FileName)
		}
		return nil, fmt.Errorf("saving bill to database: %w", err)
	}

	slog.Info("Bill created", "id", bill.ID, "email", bill.Email, "amount", int64(bill.Amount))
	return bill, nil
}

// fillFromScan names an unnamed bill after its receipt. Scan failures never block creation.
func (s *Service) fillFromScan(ctx context.Context, bill *Bill, file *File) {
	data, err := s.scanner.ScanReceipt(ctx, file.Data, bill.ContentType)
	if err != nil {
		slog.Warn("Failed to scan receipt", "id", bill.ID, "filename", file.Name, "error", err)
		return
	}
	if data.Title != "" {
		bill.Name = data.Title
	}
	if scanned := Money(math.Round(data.Amount * 100)); scanned != 0 && scanned != bill.Amount {
		slog.Warn("Declared amount differs from receipt", "id", bill.ID, "declared", int64(bill.Amount), "scanned", int64(scanned))
	}
}

// UpdateBill applies a review to a bill
func (s *Service) UpdateBill(id string, update Update) (*Bill, error) {
	if !update.Status.Valid() {
		return nil, ValidationErrors{{Field: "status", Message: fmt.Sprintf("unknown status %q", update.Status)}}
	}
	bill, err := s.db.GetBill(id)
	if err != nil {
		return nil, fmt.Errorf("getting bill for update: %w", err)
	}
	bill.Status = update.Status
	bill.CommentAdmin = update.CommentAdmin
	bill.UpdatedAt = s.timeSource.Now()
	if err := s.db.SaveBill(bill); err != nil {
		return nil, fmt.Errorf("updating bill: %w", err)
	}
	return bill, nil
}

// DeleteBill removes a bill and its receipt
func (s *Service) DeleteBill(id string) error {
	bill, err := s.db.GetBill(id)
	if err != nil {
		return fmt.Errorf("getting bill for deletion: %w", err)
	}
	if bill.FileName != "" {
		if err := s.storage.Delete(bill.FileName); err != nil {
			slog.Warn("Failed to delete receipt", "filename", bill.FileName, "error", err)
		}
	}
	if err := s.db.DeleteBill(id); err != nil {
		return fmt.Errorf("deleting bill from database: %w", err)
	}
	return nil
}

// GetBillFile returns the receipt of a bill and its content type. The type
// follows the stored file's extension, never what the uploader declared.
func (s *Service) GetBillFile(id string) ([]byte, string, error) {
	bill, err := s.db.GetBill(id)
	if err != nil {
		return nil, "", fmt.Errorf("getting bill: %w", err)
	}
	if bill.FileName == "" {
		return nil, "", fmt.Errorf("%w: bill %s has no receipt", ErrNotFound, id)
	}
	data, err := s.storage.Get(bill.FileName)
	if err != nil {
		return nil, "", fmt.Errorf("getting receipt: %w", err)
	}
	return data, contentTypeFor(bill.FileName), nil
}

// ScanReceipt proposes bill fields from a receipt image without saving anything
func (s *Service) ScanReceipt(ctx context.Context, file *File) (*Suggestion, error) {
	if s.scanner == nil {
		return nil, ErrScannerDisabled
	}
	if file == nil || !AcceptedReceipt(file.Name) {
		return nil, ErrUnsupportedReceipt
	}
	data, err := s.scanner.ScanReceipt(ctx, file.Data, contentTypeFor(file.Name))
	if err != nil {
		return nil, fmt.Errorf("scanning receipt: %w", err)
	}
	suggestion := &Suggestion{
		Name:   data.Title,
		Amount: Money(math.Round(data.Amount * 100)),
	}
	if date, err := ParseDate(data.Date); err == nil {
		suggestion.Date = date
	}
	return suggestion, nil
}

// IsNotFound reports whether err means the bill or receipt does not exist
func IsNotFound(err error) bool {
	return errors.Is(err, ErrNotFound)
}
