package scanning

import (
	"bytes"
	"fmt"
	"image"
	_ "image/jpeg" // Register JPEG decoder
	"image/png"
	"strings"
)

// receiptScanPrompt is the shared prompt used by all LLM providers for scanning receipts
const receiptScanPrompt = `You are analyzing a receipt for an employee expense report. Carefully read all text in the image and extract:

1. **Merchant**: the business name at the top of the receipt (e.g. "SNCF", "Air France", "Hôtel Ibis").
2. **Date**: the transaction date, converted to YYYY-MM-DD. French receipts write dates day first (28/04/2023).
3. **Total**: the final amount paid including VAT ("TOTAL TTC", "Total", "Montant"), as a number in euros.

Return ONLY valid JSON in this exact format:
{
  "title": "Merchant - short description",
  "date": "YYYY-MM-DD",
  "amount": 0.00
}

If a field cannot be read, use an empty string for text fields and 0 for the amount.
Do not include any text before or after the JSON and do not use markdown code blocks.`

// prepareImageData normalizes a receipt to PNG, the one format every provider accepts.
// It reports whether a conversion happened.
func prepareImageData(imageData []byte, contentType string) ([]byte, bool, error) {
	mimeType := strings.ToLower(strings.TrimSpace(contentType))
	if mimeType == "image/png" {
		return imageData, false, nil
	}

	img, _, err := image.Decode(bytes.NewReader(imageData))
	if err != nil {
		return nil, false, fmt.Errorf("decoding receipt image (%s): %w", mimeType, err)
	}

	var buf bytes.Buffer
	if err := png.Encode(&buf, img); err != nil {
		return nil, false, fmt.Errorf("encoding PNG: %w", err)
	}
	return buf.Bytes(), true, nil
}
