package scanning

import (
	"encoding/json"
	"fmt"
	"strings"
	"time"
)

// receiptDateLayouts are tried in order; day-first comes before month-first
// because the receipts are mostly French
var receiptDateLayouts = []string{
	"2006-01-02",
	"02/01/2006",
	"2006/01/02",
	"02-01-2006",
	"02.01.2006",
}

// stripCodeFence removes the markdown fences models like to wrap JSON in
func stripCodeFence(text string) string {
	text = strings.TrimSpace(text)
	text = strings.TrimPrefix(text, "```json")
	text = strings.TrimPrefix(text, "```")
	text = strings.TrimSuffix(text, "```")
	return strings.TrimSpace(text)
}

// parseReceiptJSON extracts ReceiptData from a model response
func parseReceiptJSON(text string) (*ReceiptData, error) {
	text = stripCodeFence(text)

	startIdx := strings.Index(text, "{")
	if startIdx == -1 {
		return nil, fmt.Errorf("no JSON object found in response")
	}
	endIdx := strings.LastIndex(text, "}")
	if endIdx < startIdx {
		return nil, fmt.Errorf("invalid JSON object in response")
	}

	var data ReceiptData
	if err := json.Unmarshal([]byte(text[startIdx:endIdx+1]), &data); err != nil {
		return nil, fmt.Errorf("unmarshaling json: %w", err)
	}

	data.Date = normalizeDate(data.Date)
	data.Title = strings.TrimSpace(data.Title)
	if data.Amount < 0 {
		data.Amount = 0
	}
	return &data, nil
}

// normalizeDate rewrites a receipt date as YYYY-MM-DD, or returns "" when it cannot be read
func normalizeDate(s string) string {
	s = strings.TrimSpace(s)
	for _, layout := range receiptDateLayouts {
		if d, err := time.Parse(layout, s); err == nil {
			return d.Format("2006-01-02")
		}
	}
	return ""
}
