package parsers

import (
	"errors"
	"reflect"
	"testing"
)

func TestParse_BasicTable(t *testing.T) {
	table, err := Parse("a;b;c\n1;2;3\n4;5;6\n", ';')
	if err != nil {
		t.Fatalf("Parse() error = %v", err)
	}

	wantHeader := []string{"a", "b", "c"}
	if !reflect.DeepEqual(table.Header, wantHeader) {
		t.Errorf("Header = %v, want %v", table.Header, wantHeader)
	}
	wantRows := [][]string{{"1", "2", "3"}, {"4", "5", "6"}}
	if !reflect.DeepEqual(table.Rows, wantRows) {
		t.Errorf("Rows = %v, want %v", table.Rows, wantRows)
	}
}

func TestParse_RowRepair(t *testing.T) {
	tests := []struct {
		name string
		text string
		want [][]string
	}{
		{
			name: "Excess fields rejoin into last column",
			text: "a,b,c\n1,2,3,4,5\n",
			want: [][]string{{"1", "2", "3,4,5"}},
		},
		{
			name: "Short row padded with empty strings",
			text: "a,b,c\n1\n",
			want: [][]string{{"1", "", ""}},
		},
		{
			name: "Exact row untouched",
			text: "a,b,c\n1,2,3\n",
			want: [][]string{{"1", "2", "3"}},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			table, err := Parse(tt.text, ',')
			if err != nil {
				t.Fatalf("Parse() error = %v", err)
			}
			if !reflect.DeepEqual(table.Rows, tt.want) {
				t.Errorf("Rows = %v, want %v", table.Rows, tt.want)
			}
		})
	}
}

func TestParse_BlankRowsDropped(t *testing.T) {
	table, err := Parse("a,b\n\n  ,  \n1,2\n\n", ',')
	if err != nil {
		t.Fatalf("Parse() error = %v", err)
	}
	if len(table.Rows) != 1 {
		t.Errorf("Rows = %v, want exactly one data row", table.Rows)
	}
}

func TestParse_QuotedDelimiter(t *testing.T) {
	table, err := Parse("a,b\n\"x,y\",2\n", ',')
	if err != nil {
		t.Fatalf("Parse() error = %v", err)
	}
	if table.Rows[0][0] != "x,y" {
		t.Errorf("quoted cell = %q, want %q", table.Rows[0][0], "x,y")
	}
}

func TestParse_DoubledQuote(t *testing.T) {
	table, err := Parse("a\n\"he said \"\"hi\"\"\"\n", ',')
	if err != nil {
		t.Fatalf("Parse() error = %v", err)
	}
	if table.Rows[0][0] != `he said "hi"` {
		t.Errorf("cell = %q, want %q", table.Rows[0][0], `he said "hi"`)
	}
}

func TestParse_BackslashEscape(t *testing.T) {
	table, err := Parse(`a,b`+"\n"+`x\,y,2`+"\n", ',')
	if err != nil {
		t.Fatalf("Parse() error = %v", err)
	}
	want := [][]string{{"x,y", "2"}}
	if !reflect.DeepEqual(table.Rows, want) {
		t.Errorf("Rows = %v, want %v", table.Rows, want)
	}
}

func TestParse_NewlineInsideQuotes(t *testing.T) {
	table, err := Parse("a,b\n\"line1\nline2\",2\n", ',')
	if err != nil {
		t.Fatalf("Parse() error = %v", err)
	}
	if table.Rows[0][0] != "line1\nline2" {
		t.Errorf("cell = %q, want embedded newline preserved", table.Rows[0][0])
	}
}

func TestParse_CRLF(t *testing.T) {
	table, err := Parse("a,b\r\n1,2\r\n", ',')
	if err != nil {
		t.Fatalf("Parse() error = %v", err)
	}
	want := [][]string{{"1", "2"}}
	if !reflect.DeepEqual(table.Rows, want) {
		t.Errorf("Rows = %v, want %v", table.Rows, want)
	}
}

func TestParse_HeaderCleanup(t *testing.T) {
	table, err := Parse("\ufeff ID , Pedido \n1,2\n", ',')
	if err != nil {
		t.Fatalf("Parse() error = %v", err)
	}
	want := []string{"ID", "Pedido"}
	if !reflect.DeepEqual(table.Header, want) {
		t.Errorf("Header = %v, want %v", table.Header, want)
	}
}

func TestParse_EmptyInput(t *testing.T) {
	for _, text := range []string{"", "\n\n", "   \n  \n"} {
		table, err := Parse(text, ',')
		if err != nil {
			t.Fatalf("Parse(%q) error = %v", text, err)
		}
		if !table.IsEmpty() {
			t.Errorf("Parse(%q) = %+v, want empty table", text, table)
		}
	}
}

func TestParse_ImplausibleSingleColumn(t *testing.T) {
	// Header sniffed as one column but the data clearly has three: the
	// delimiter guess was wrong for this decoding.
	_, err := Parse("header\n1\t2\t3\n", '\t')
	if !errors.Is(err, ErrImplausibleTable) {
		t.Errorf("Parse() error = %v, want ErrImplausibleTable", err)
	}
}

func TestParse_SingleColumnConsistent(t *testing.T) {
	// A genuinely single-column file is fine.
	table, err := Parse("header\nvalue1\nvalue2\n", ',')
	if err != nil {
		t.Fatalf("Parse() error = %v", err)
	}
	if len(table.Rows) != 2 {
		t.Errorf("Rows = %v, want 2 single-column rows", table.Rows)
	}
}

func TestParse_HeaderOnly(t *testing.T) {
	table, err := Parse("a,b,c\n", ',')
	if err != nil {
		t.Fatalf("Parse() error = %v", err)
	}
	if !table.IsEmpty() {
		t.Error("header-only table should be empty")
	}
	if len(table.Header) != 3 {
		t.Errorf("Header = %v, want 3 columns", table.Header)
	}
}

func TestParseAuto_FallsBackAcrossEncodings(t *testing.T) {
	// Plain ASCII parses under the first candidate already.
	table, det := ParseAuto([]byte("a;b\n1;2\n"))
	if det == nil {
		t.Fatal("ParseAuto() exhausted candidates on clean input")
	}
	if det.Encoding != "cp1252" {
		t.Errorf("Encoding = %s, want cp1252 (first candidate)", det.Encoding)
	}
	if len(table.Rows) != 1 {
		t.Errorf("Rows = %v, want one row", table.Rows)
	}
}

func TestParseAuto_EmptyFile(t *testing.T) {
	table, _ := ParseAuto(nil)
	if !table.IsEmpty() {
		t.Error("ParseAuto(nil) should yield an empty table")
	}
}
