// Package sniff detects the text encoding and field delimiter of an input
// file by frequency analysis over a bounded prefix.
//
// Tracking extracts arrive in one of four encodings and one of four
// delimiters, with no declaration of either. The sniffer decodes a prefix
// lossily under each candidate encoding in a fixed preference order and
// counts delimiter occurrences; structural plausibility of the resulting
// table is judged by the parser, which advances to the next candidate on
// failure. Nothing here returns an error to the caller: an unreadable file
// simply yields an empty table downstream.
package sniff

import (
	"strings"

	"golang.org/x/text/encoding/charmap"
	"golang.org/x/text/encoding/unicode"
)

// maxSniffLines bounds the prefix inspected for delimiter frequency.
const maxSniffLines = 200

// CandidateDelimiters in the order ties are resolved. Comma wins a tie.
var CandidateDelimiters = []rune{',', ';', '|', '\t'}

// CandidateEncodings in preference order, matching what the source system
// has been observed to emit.
var CandidateEncodings = []string{"cp1252", "latin-1", "utf-8-sig", "utf-8"}

// Detection is the sniffer's verdict for one candidate encoding.
type Detection struct {
	Encoding  string
	Delimiter rune
	Text      string // the full file decoded under Encoding
}

// Decode decodes raw bytes under the named candidate encoding, replacing
// undecodable sequences rather than failing.
func Decode(raw []byte, name string) (string, bool) {
	switch name {
	case "cp1252":
		return decodeCharmap(raw, charmap.Windows1252), true
	case "latin-1":
		return decodeCharmap(raw, charmap.ISO8859_1), true
	case "utf-8-sig":
		text, _ := unicode.UTF8BOM.NewDecoder().String(string(raw))
		return strings.ToValidUTF8(text, "�"), true
	case "utf-8":
		return strings.ToValidUTF8(string(raw), "�"), true
	default:
		return "", false
	}
}

func decodeCharmap(raw []byte, cm *charmap.Charmap) string {
	// Single-byte charmaps map every byte, so decoding cannot fail.
	text, err := cm.NewDecoder().String(string(raw))
	if err != nil {
		return strings.ToValidUTF8(string(raw), "�")
	}
	return text
}

// GuessDelimiter counts candidate delimiter occurrences over the first
// maxSniffLines lines and returns the most frequent one. Comma wins ties
// and the all-zero case.
func GuessDelimiter(text string) rune {
	counts := make(map[rune]int, len(CandidateDelimiters))

	lines := 0
	for _, line := range strings.SplitAfter(text, "\n") {
		if lines > maxSniffLines {
			break
		}
		lines++
		for _, d := range CandidateDelimiters {
			counts[d] += strings.Count(line, string(d))
		}
	}

	best := CandidateDelimiters[0]
	for _, d := range CandidateDelimiters[1:] {
		if counts[d] > counts[best] {
			best = d
		}
	}
	return best
}

// Sniff produces the detection for the candidate encoding at position i.
// The second return is false once the candidate list is exhausted.
func Sniff(raw []byte, i int) (*Detection, bool) {
	if i < 0 || i >= len(CandidateEncodings) {
		return nil, false
	}
	name := CandidateEncodings[i]
	text, ok := Decode(raw, name)
	if !ok {
		return nil, false
	}
	return &Detection{
		Encoding:  name,
		Delimiter: GuessDelimiter(text),
		Text:      text,
	}, true
}
