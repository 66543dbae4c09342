package sniff

import (
	"strings"
	"testing"
)

func TestGuessDelimiter(t *testing.T) {
	tests := []struct {
		name string
		text string
		want rune
	}{
		{
			name: "Semicolons dominate",
			text: "a;b;c;d\n1;2;3;4\n",
			want: ';',
		},
		{
			name: "Commas dominate",
			text: "a,b,c\n1,2,3\n",
			want: ',',
		},
		{
			name: "Pipes dominate",
			text: "a|b|c\n1|2|3\n",
			want: '|',
		},
		{
			name: "Tabs dominate",
			text: "a\tb\tc\n1\t2\t3\n",
			want: '\t',
		},
		{
			name: "Tie falls back to comma",
			text: "a,b;c\n",
			want: ',',
		},
		{
			name: "No delimiters falls back to comma",
			text: "plain text\nmore text\n",
			want: ',',
		},
		{
			name: "Empty input",
			text: "",
			want: ',',
		},
		{
			name: "Delimiter inside quoted field still counts",
			text: "a;b;\"c;d\"\n1;2;3\n",
			want: ';',
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := GuessDelimiter(tt.text); got != tt.want {
				t.Errorf("GuessDelimiter() = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestGuessDelimiter_BoundedPrefix(t *testing.T) {
	// Semicolons only appear after the 200-line window; they must not win.
	var b strings.Builder
	for i := 0; i < 210; i++ {
		b.WriteString("a,b\n")
	}
	for i := 0; i < 500; i++ {
		b.WriteString("x;y;z;w;v\n")
	}

	if got := GuessDelimiter(b.String()); got != ',' {
		t.Errorf("GuessDelimiter() = %q, want ',' (frequency window exceeded)", got)
	}
}

func TestDecode_EncodingNames(t *testing.T) {
	for _, name := range CandidateEncodings {
		t.Run(name, func(t *testing.T) {
			if _, ok := Decode([]byte("abc"), name); !ok {
				t.Errorf("Decode() rejected candidate encoding %s", name)
			}
		})
	}

	if _, ok := Decode([]byte("abc"), "utf-16"); ok {
		t.Error("Decode() accepted an unknown encoding")
	}
}

func TestDecode_CP1252(t *testing.T) {
	// 0xE7 is ç in cp1252/latin-1.
	raw := []byte{'a', 0xE7, 'b'}

	got, ok := Decode(raw, "cp1252")
	if !ok {
		t.Fatal("Decode() failed")
	}
	if got != "açb" {
		t.Errorf("Decode(cp1252) = %q, want %q", got, "açb")
	}
}

func TestDecode_UTF8SigStripsBOM(t *testing.T) {
	raw := append([]byte{0xEF, 0xBB, 0xBF}, []byte("ID,Pedido")...)

	got, ok := Decode(raw, "utf-8-sig")
	if !ok {
		t.Fatal("Decode() failed")
	}
	if got != "ID,Pedido" {
		t.Errorf("Decode(utf-8-sig) = %q, want BOM stripped", got)
	}
}

func TestDecode_InvalidUTF8IsLossyNotFatal(t *testing.T) {
	raw := []byte{'a', 0xFF, 'b'}

	got, ok := Decode(raw, "utf-8")
	if !ok {
		t.Fatal("Decode() failed")
	}
	if !strings.Contains(got, "�") {
		t.Errorf("Decode(utf-8) = %q, want replacement rune for bad byte", got)
	}
}

func TestSniff_CandidateOrder(t *testing.T) {
	raw := []byte("a;b;c\n1;2;3\n")

	det, ok := Sniff(raw, 0)
	if !ok {
		t.Fatal("Sniff(0) exhausted unexpectedly")
	}
	if det.Encoding != "cp1252" {
		t.Errorf("first candidate = %s, want cp1252", det.Encoding)
	}
	if det.Delimiter != ';' {
		t.Errorf("Delimiter = %q, want ';'", det.Delimiter)
	}

	if _, ok := Sniff(raw, len(CandidateEncodings)); ok {
		t.Error("Sniff() past the candidate list should report exhaustion")
	}
}
