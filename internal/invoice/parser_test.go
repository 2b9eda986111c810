package invoice

import (
	"math"
	"testing"
)

const sampleStatement = `
Stadtwerke Leipzig GmbH
Jahresabrechnung Trinkwasser

Abrechnungszeitraum: 01.01.2023 - 31.12.2023
Zählernummer: 4711-XY

Gesamtverbrauch: 1.234,5 m³
Arbeitspreis: 2,10 EUR/m³

Gesamtbetrag: 2.658,45 EUR
zahlbar bis 15.03.2024
`

func TestParseFromTextFullStatement(t *testing.T) {
	got := ParseFromText(sampleStatement)

	if math.Abs(got.TotalCost-2658.45) > 0.001 {
		t.Errorf("total cost = %v, want 2658.45", got.TotalCost)
	}
	if math.Abs(got.TotalConsumption-1234.5) > 0.001 {
		t.Errorf("total consumption = %v, want 1234.5", got.TotalConsumption)
	}
	if got.PeriodStart == nil || got.PeriodStart.Format("2006-01-02") != "2023-01-01" {
		t.Errorf("period start = %v, want 2023-01-01", got.PeriodStart)
	}
	if got.PeriodEnd == nil || got.PeriodEnd.Format("2006-01-02") != "2023-12-31" {
		t.Errorf("period end = %v, want 2023-12-31", got.PeriodEnd)
	}
}

func TestParseFromTextMissingFieldsStayZero(t *testing.T) {
	got := ParseFromText("Irrelevantes Anschreiben ohne Zahlen")
	if got.TotalCost != 0 || got.TotalConsumption != 0 {
		t.Errorf("missing fields must stay zero: %+v", got)
	}
	if got.PeriodStart != nil || got.PeriodEnd != nil {
		t.Errorf("missing period must stay nil: %+v", got)
	}
}

func TestParseFromTextUnlocalizedNumbers(t *testing.T) {
	got := ParseFromText("Gesamtverbrauch: 180 m3\nGesamtbetrag: 540.00 EUR")
	if math.Abs(got.TotalCost-540) > 0.001 {
		t.Errorf("total cost = %v, want 540", got.TotalCost)
	}
	if math.Abs(got.TotalConsumption-180) > 0.001 {
		t.Errorf("total consumption = %v, want 180", got.TotalConsumption)
	}
}

func TestParseGermanFloat(t *testing.T) {
	cases := []struct {
		in   string
		want float64
	}{
		{"1.234,56", 1234.56},
		{"234,5", 234.5},
		{"540.00", 540},
		{"180", 180},
		{"garbage", 0},
	}
	for _, c := range cases {
		if got := parseGermanFloat(c.in); math.Abs(got-c.want) > 0.001 {
			t.Errorf("parseGermanFloat(%q) = %v, want %v", c.in, got, c.want)
		}
	}
}
