// Package invoice extracts the building totals from a water utility's
// annual statement (Jahresabrechnung) so they can prefill the water
// invoice record instead of being typed in by hand.
package invoice

import (
	"bytes"
	"fmt"
	"io"
	"regexp"
	"strings"
	"time"

	pdf "github.com/ledongthuc/pdf"
)

// Totals is the parsed result. Missing fields stay zero; the report layer
// treats zero totals as a data-completeness warning, never a failure.
type Totals struct {
	TotalCost        float64    `json:"total_cost"`         // EUR
	TotalConsumption float64    `json:"total_consumption"`  // cubic meters
	PeriodStart      *time.Time `json:"period_start,omitempty"`
	PeriodEnd        *time.Time `json:"period_end,omitempty"`
}

// ParseFromPDF opens a statement PDF at the given path, extracts its text,
// and delegates to ParseFromText.
func ParseFromPDF(path string) (*Totals, error) {
	f, r, err := pdf.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open pdf: %w", err)
	}
	defer f.Close()

	return parseReader(r)
}

// ParseFromReader parses an in-memory statement PDF, e.g. an upload.
func ParseFromReader(ra io.ReaderAt, size int64) (*Totals, error) {
	r, err := pdf.NewReader(ra, size)
	if err != nil {
		return nil, fmt.Errorf("read pdf: %w", err)
	}
	return parseReader(r)
}

func parseReader(r *pdf.Reader) (*Totals, error) {
	rc, err := r.GetPlainText()
	if err != nil {
		return nil, fmt.Errorf("extract pdf text: %w", err)
	}

	var buf bytes.Buffer
	if _, err := io.Copy(&buf, rc); err != nil {
		return nil, fmt.Errorf("read pdf text: %w", err)
	}

	return ParseFromText(buf.String()), nil
}

var (
	costRe = regexp.MustCompile(`(?i)(?:Gesamtbetrag|Rechnungsbetrag|Gesamtkosten)\s*:?\s*([0-9.,]+)\s*(?:EUR|€)`)
	consRe = regexp.MustCompile(`(?i)(?:Gesamtverbrauch|Jahresverbrauch|Verbrauch)\s*:?\s*([0-9.,]+)\s*(?:m³|m3|cbm)`)
	// Abrechnungszeitraum: 01.01.2023 - 31.12.2023
	periodRe = regexp.MustCompile(`(?i)(?:Abrechnungszeitraum|Zeitraum)\s*:?\s*(\d{2}\.\d{2}\.\d{4})\s*(?:-|bis)\s*(\d{2}\.\d{2}\.\d{4})`)
)

// ParseFromText scans the plain-text form of a statement. Amounts use
// German number formatting (1.234,56); anything unparseable stays zero.
func ParseFromText(text string) *Totals {
	t := &Totals{
		TotalCost:        parseFirstAmount(costRe, text),
		TotalConsumption: parseFirstAmount(consRe, text),
	}
	if m := periodRe.FindStringSubmatch(text); len(m) == 3 {
		if start, err := time.Parse("02.01.2006", m[1]); err == nil {
			t.PeriodStart = &start
		}
		if end, err := time.Parse("02.01.2006", m[2]); err == nil {
			t.PeriodEnd = &end
		}
	}
	return t
}

func parseFirstAmount(re *regexp.Regexp, s string) float64 {
	m := re.FindStringSubmatch(s)
	if len(m) < 2 {
		return 0
	}
	return parseGermanFloat(m[1])
}

// parseGermanFloat reads "1.234,56" style numbers. Plain "1234.56" is
// accepted too, as some suppliers export unlocalized statements.
func parseGermanFloat(s string) float64 {
	s = strings.TrimSpace(s)
	if strings.Contains(s, ",") {
		s = strings.ReplaceAll(s, ".", "")
		s = strings.ReplaceAll(s, ",", ".")
	}
	var v float64
	if _, err := fmt.Sscanf(s, "%f", &v); err != nil {
		return 0
	}
	return v
}
