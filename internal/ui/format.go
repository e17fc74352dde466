package ui

import (
	"cmp"
	"fmt"
	"slices"

	"github.com/zombor/billed/internal/bill"
)

var monthAbbrevs = [...]string{"Jan", "Fév", "Mar", "Avr", "Mai", "Jui", "Jui", "Aoû", "Sep", "Oct", "Nov", "Déc"}

// formatDate renders a bill date as "4 Avr. 04"
func formatDate(d bill.Date) (string, error) {
	if !d.Valid() {
		return "", fmt.Errorf("%w: %q", bill.ErrInvalidDate, d.Raw)
	}
	return fmt.Sprintf("%d %s. %02d", d.Day(), monthAbbrevs[d.Month()-1], d.Year()%100), nil
}

func formatStatus(s bill.Status) string {
	switch s {
	case bill.StatusPending:
		return "En attente"
	case bill.StatusAccepted:
		return "Accepté"
	case bill.StatusRefused:
		return "Refusé"
	}
	return string(s)
}

// decimal renders cents the way number inputs expect them
func decimal(m bill.Money) string {
	return fmt.Sprintf("%d.%02d", int64(m)/100, int64(m)%100)
}

// Row is one formatted line of the bills table
type Row struct {
	ID      string
	Type    string
	Name    string
	Date    string
	DateISO string
	Amount  string
	Status  string
	FileURL string
}

// sortByDateDesc orders a copy of bills most recent first. Bills without a
// usable date go last, in their original order.
func sortByDateDesc(bills []*bill.Bill) []*bill.Bill {
	sorted := slices.Clone(bills)
	slices.SortStableFunc(sorted, func(a, b *bill.Bill) int {
		switch {
		case !a.Date.Valid() && !b.Date.Valid():
			return 0
		case !a.Date.Valid():
			return 1
		case !b.Date.Valid():
			return -1
		}
		return cmp.Compare(b.Date.Unix(), a.Date.Unix())
	})
	return sorted
}

// rows sorts and formats bills for display
func rows(bills []*bill.Bill) []Row {
	sorted := sortByDateDesc(bills)
	out := make([]Row, 0, len(sorted))
	for _, b := range sorted {
		date, err := formatDate(b.Date)
		if err != nil {
			date = b.Date.String()
		}
		out = append(out, Row{
			ID:      b.ID,
			Type:    b.Type,
			Name:    b.Name,
			Date:    date,
			DateISO: b.Date.String(),
			Amount:  b.Amount.String(),
			Status:  formatStatus(b.Status),
			FileURL: b.FileURL,
		})
	}
	return out
}
