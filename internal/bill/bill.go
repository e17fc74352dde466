package bill

import (
	"slices"
	"time"
)

// Status is the review state of a bill. It only changes server-side.
type Status string

const (
	StatusPending  Status = "pending"
	StatusAccepted Status = "accepted"
	StatusRefused  Status = "refused"
)

// Valid reports whether s is one of the known statuses
func (s Status) Valid() bool {
	switch s {
	case StatusPending, StatusAccepted, StatusRefused:
		return true
	}
	return false
}

// Categories lists the expense types an employee can pick from
var Categories = []string{
	"Transports",
	"Restaurants et bars",
	"Hôtel et logement",
	"Services en ligne",
	"IT et électronique",
	"Equipement et matériel",
	"Fournitures de bureau",
}

// ValidCategory reports whether t is a known expense type
func ValidCategory(t string) bool {
	return slices.Contains(Categories, t)
}

// DefaultPct is the VAT percentage used when the employee leaves it empty
const DefaultPct = 20

// Bill is an expense claim submitted by an employee
type Bill struct {
	ID           string    `json:"id"`
	Email        string    `json:"email"`
	Type         string    `json:"type"`
	Name         string    `json:"name"`
	Amount       Money     `json:"amount"` // Amount in cents
	Date         Date      `json:"date"`
	VAT          Money     `json:"vat"` // VAT amount in cents
	Pct          int       `json:"pct"`
	Status       Status    `json:"status"`
	FileURL      string    `json:"fileUrl,omitempty"`
	FileName     string    `json:"fileName,omitempty"`
	ContentType  string    `json:"contentType,omitempty"`
	Commentary   string    `json:"commentary,omitempty"`
	CommentAdmin string    `json:"commentAdmin,omitempty"`
	CreatedAt    time.Time `json:"createdAt"`
	UpdatedAt    time.Time `json:"updatedAt"`
}

// Payload is what an employee submits for a new bill
type Payload struct {
	Email      string `json:"email"`
	Type       string `json:"type"`
	Name       string `json:"name"`
	Amount     Money  `json:"amount"`
	Date       Date   `json:"date"`
	VAT        Money  `json:"vat"`
	Pct        int    `json:"pct"`
	Commentary string `json:"commentary,omitempty"`
}

// Update carries the server-side review of a bill
type Update struct {
	Status       Status `json:"status"`
	CommentAdmin string `json:"commentAdmin,omitempty"`
}

// File is an uploaded receipt
type File struct {
	Name        string
	ContentType string
	Data        []byte
}

// Suggestion holds the fields a receipt scan proposes for a new bill
type Suggestion struct {
	Name   string `json:"name"`
	Date   Date   `json:"date"`
	Amount Money  `json:"amount"`
}
