package coerce

import (
	"testing"
	"time"

	"github.com/shopspring/decimal"
)

func TestInvoiceKey(t *testing.T) {
	tests := []struct {
		name  string
		input string
		want  string
		ok    bool
	}{
		{
			name:  "Bare 44 digits",
			input: "35200714200166000107550010000000011234567890",
			want:  "35200714200166000107550010000000011234567890",
			ok:    true,
		},
		{
			name:  "Punctuated rendering of the same key",
			input: "352007-1420016-6000-1075-5001-0000-0001-1234-567-890",
			want:  "35200714200166000107550010000000011234567890",
			ok:    true,
		},
		{
			name:  "Too short",
			input: "1234567890",
			ok:    false,
		},
		{
			name:  "Too long",
			input: "352007142001660001075500100000000112345678901",
			ok:    false,
		},
		{
			name:  "Empty",
			input: "",
			ok:    false,
		},
		{
			name:  "Letters only",
			input: "not a key",
			ok:    false,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, ok := InvoiceKey(tt.input)
			if ok != tt.ok {
				t.Fatalf("InvoiceKey(%q) ok = %v, want %v", tt.input, ok, tt.ok)
			}
			if ok && got != tt.want {
				t.Errorf("InvoiceKey(%q) = %q, want %q", tt.input, got, tt.want)
			}
		})
	}
}

func TestTimestamp(t *testing.T) {
	tests := []struct {
		name  string
		input string
		want  string // RFC3339, empty means nil expected
	}{
		{"Day-first with time", "15/03/2024 10:30:00", "2024-03-15T10:30:00Z"},
		{"Day-first without seconds", "15/03/2024 10:30", "2024-03-15T10:30:00Z"},
		{"Day-first date only", "15/03/2024", "2024-03-15T00:00:00Z"},
		{"Dash-separated day-first", "15-03-2024", "2024-03-15T00:00:00Z"},
		{"ISO with zone", "2024-03-15T10:00:00Z", "2024-03-15T10:00:00Z"},
		{"ISO space-separated", "2024-03-15 10:00:00", "2024-03-15T10:00:00Z"},
		{"ISO date only", "2024-03-15", "2024-03-15T00:00:00Z"},
		{"Compact eight digits", "20240315", "2024-03-15T00:00:00Z"},
		{"Sentinel zero date", "00/00/0000", ""},
		{"Sentinel zero timestamp", "00/00/0000 00:00:00", ""},
		{"Sentinel dashed", "0000-00-00", ""},
		{"Empty", "", ""},
		{"Whitespace only", "   ", ""},
		{"Garbage", "not a date", ""},
		{"Month thirteen", "45/13/2024", ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := Timestamp(tt.input)
			if tt.want == "" {
				if got != nil {
					t.Errorf("Timestamp(%q) = %v, want nil", tt.input, got)
				}
				return
			}
			if got == nil {
				t.Fatalf("Timestamp(%q) = nil, want %s", tt.input, tt.want)
			}
			want, err := time.Parse(time.RFC3339, tt.want)
			if err != nil {
				t.Fatalf("bad expectation %q: %v", tt.want, err)
			}
			if !got.Equal(want) {
				t.Errorf("Timestamp(%q) = %v, want %v", tt.input, got, want)
			}
		})
	}
}

func TestDate_TruncatesTime(t *testing.T) {
	got := Date("15/03/2024 18:45:12")
	if got == nil {
		t.Fatal("Date() = nil, want value")
	}
	want := time.Date(2024, time.March, 15, 0, 0, 0, 0, time.UTC)
	if !got.Equal(want) {
		t.Errorf("Date() = %v, want %v", got, want)
	}
}

func TestDate_Sentinel(t *testing.T) {
	if got := Date("00/00/0000"); got != nil {
		t.Errorf("Date(sentinel) = %v, want nil", got)
	}
}

func TestDecimal(t *testing.T) {
	tests := []struct {
		name  string
		input string
		want  string // decimal string, empty means nil expected
	}{
		{"Dot thousands comma decimal", "1.234,56", "1234.56"},
		{"Comma thousands dot decimal", "1,234.56", "1234.56"},
		{"Plain comma decimal", "1234,5", "1234.5"},
		{"Plain dot decimal", "1234.5", "1234.5"},
		{"Dot-grouped integer", "1.234", "1234"},
		{"Comma-grouped integer", "1,234", "1234"},
		{"Bare integer", "1234", "1234"},
		{"Negative comma decimal", "-12,30", "-12.3"},
		{"Large grouped value", "12.345.678,90", "12345678.9"},
		{"Currency prefix falls back", "R$ 1.234,56", "1234.56"},
		{"Empty", "", ""},
		{"Whitespace", "  ", ""},
		{"No digits at all", "abc", ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := Decimal(tt.input)
			if tt.want == "" {
				if got != nil {
					t.Errorf("Decimal(%q) = %s, want nil", tt.input, got)
				}
				return
			}
			if got == nil {
				t.Fatalf("Decimal(%q) = nil, want %s", tt.input, tt.want)
			}
			want, err := decimal.NewFromString(tt.want)
			if err != nil {
				t.Fatalf("bad expectation %q: %v", tt.want, err)
			}
			if !got.Equal(want) {
				t.Errorf("Decimal(%q) = %s, want %s", tt.input, got, want)
			}
		})
	}
}

func TestDecimal_TrailingZeroEquality(t *testing.T) {
	// "1234,5" and 1234.50 are the same quantity.
	got := Decimal("1234,5")
	if got == nil {
		t.Fatal("Decimal() = nil")
	}
	if !got.Equal(decimal.NewFromFloat(1234.50)) {
		t.Errorf("Decimal(\"1234,5\") = %s, want 1234.50", got)
	}
}

func TestInteger(t *testing.T) {
	tests := []struct {
		input string
		want  int
		nil_  bool
	}{
		{"12", 12, false},
		{" 12 un", 12, false},
		{"", 0, true},
		{"abc", 0, true},
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			got := Integer(tt.input)
			if tt.nil_ {
				if got != nil {
					t.Errorf("Integer(%q) = %d, want nil", tt.input, *got)
				}
				return
			}
			if got == nil || *got != tt.want {
				t.Errorf("Integer(%q) = %v, want %d", tt.input, got, tt.want)
			}
		})
	}
}

func TestText(t *testing.T) {
	if got := Text("  "); got != nil {
		t.Errorf("Text(blank) = %q, want nil", *got)
	}
	if got := Text(" abc "); got == nil || *got != "abc" {
		t.Errorf("Text(\" abc \") = %v, want \"abc\"", got)
	}
}

func TestDigitsOnly(t *testing.T) {
	if got := DigitsOnly("12.345.678/0001-90"); got == nil || *got != "12345678000190" {
		t.Errorf("DigitsOnly(tax id) = %v, want digits", got)
	}
	if got := DigitsOnly("no digits"); got != nil {
		t.Errorf("DigitsOnly(no digits) = %q, want nil", *got)
	}
}

func TestStateCode(t *testing.T) {
	tests := []struct {
		input string
		want  string // empty means nil
	}{
		{"sp", "SP"},
		{" RJ ", "RJ"},
		{"R", ""},
		{"INVALID", ""},
		{"12", ""},
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			got := StateCode(tt.input)
			if tt.want == "" {
				if got != nil {
					t.Errorf("StateCode(%q) = %q, want nil", tt.input, *got)
				}
				return
			}
			if got == nil || *got != tt.want {
				t.Errorf("StateCode(%q) = %v, want %q", tt.input, got, tt.want)
			}
		})
	}
}
