// Package schema maps the Portuguese report headers of the delivery
// extracts onto the canonical snake_case column set used by the staging
// table, and projects parsed rows into that fixed column order.
package schema

import "strings"

// MinRecognized is the minimum number of dictionary hits a header must
// score before a file is considered a delivery extract at all. Files
// below the threshold are rejected rather than loaded with mostly empty
// columns.
const MinRecognized = 10

// pair binds one source report header to its canonical column name.
type pair struct {
	Source    string
	Canonical string
}

// dictionary is the full translation table for the delivery report.
// Order matters only for documentation; lookup goes through the maps
// built in init.
var dictionary = []pair{
	{"ID", "tracking_id"},
	{"Data Inserção", "inserted_at"},
	{"Tipo Entrega", "delivery_type"},
	{"Pedido", "order_ref"},
	{"Data Nfe", "invoice_date"},
	{"Serie Nfe", "invoice_series"},
	{"Número Nfe", "invoice_number"},
	{"Valor Nfe", "invoice_value"},
	{"Qtd. Volumes", "volume_count"},
	{"Peso", "weight"},
	{"Remessa", "shipment_ref"},
	{"Nome Destinatário", "recipient_name"},
	{"Endereço Completo", "full_address"},
	{"CEP", "postal_code"},
	{"Cód. CD", "warehouse_code"},
	{"CD", "warehouse_name"},
	{"CNPJ/CPF Transportadora", "carrier_tax_id"},
	{"Transportador", "carrier_name"},
	{"Lead Time", "lead_time_days"},
	{"Data Prev. Entrega", "delivery_forecast"},
	{"Status Prazo", "deadline_status"},
	{"ID Últ. Ocr.", "last_event_id"},
	{"Última Ocorrência", "last_event_desc"},
	{"Chave Últ. Ocr.", "last_event_key"},
	{"Data Última Ocr.", "last_event_at"},
	{"Agrupador", "grouping_tag"},
	{"Endereço", "street"},
	{"Numero", "street_number"},
	{"Bairro", "district"},
	{"Cidades", "city"},
	{"UF", "state"},
	{"Etiquetas", "labels"},
	{"Chegada na Transportadora", "carrier_arrival"},
	{"Cod. Vendedor", "seller_code"},
	{"Chave NFe", "invoice_key"},
	{"Qtd. Itens", "item_count"},
	{"Data Prev. Entrega (Original)", "delivery_forecast_original"},
	{"CPF Destinatário", "recipient_tax_id"},
	{"Grau de Risco", "risk_level"},
	{"Tipo de Operação", "operation_type"},
}

// Columns is the canonical staging column order. source_file comes last
// and is filled by the loader, never by the dictionary.
var Columns = []string{
	"tracking_id", "inserted_at", "delivery_type", "order_ref",
	"invoice_date", "invoice_series", "invoice_number", "invoice_value",
	"volume_count", "weight", "shipment_ref", "recipient_name",
	"full_address", "postal_code", "warehouse_code", "warehouse_name",
	"carrier_tax_id", "carrier_name", "lead_time_days",
	"delivery_forecast", "deadline_status", "last_event_id",
	"last_event_desc", "last_event_key", "last_event_at", "grouping_tag",
	"street", "street_number", "district", "city", "state", "labels",
	"carrier_arrival", "seller_code", "invoice_key", "item_count",
	"delivery_forecast_original", "recipient_tax_id", "risk_level",
	"operation_type", "source_file",
}

// DataColumns is Columns without the trailing source_file.
var DataColumns = Columns[:len(Columns)-1]

var (
	bySource    map[string]string
	byCanonical map[string]string
	columnIndex map[string]int
)

func init() {
	bySource = make(map[string]string, len(dictionary))
	byCanonical = make(map[string]string, len(dictionary))
	for _, p := range dictionary {
		if _, dup := bySource[p.Source]; dup {
			panic("schema: duplicate source header " + p.Source)
		}
		if _, dup := byCanonical[p.Canonical]; dup {
			panic("schema: duplicate canonical column " + p.Canonical)
		}
		bySource[p.Source] = p.Canonical
		byCanonical[p.Canonical] = p.Source
	}

	columnIndex = make(map[string]int, len(DataColumns))
	for i, c := range DataColumns {
		columnIndex[c] = i
	}
	for c := range byCanonical {
		if _, ok := columnIndex[c]; !ok {
			panic("schema: dictionary target " + c + " missing from Columns")
		}
	}
}

// CanonicalFor returns the canonical column for a source report header.
func CanonicalFor(source string) (string, bool) {
	c, ok := bySource[strings.TrimSpace(source)]
	return c, ok
}

// SourceFor returns the source report header for a canonical column.
func SourceFor(canonical string) (string, bool) {
	s, ok := byCanonical[canonical]
	return s, ok
}

// ColumnMatch records the resolution of one header cell.
type ColumnMatch struct {
	Source     string
	Canonical  string
	Recognized bool
}

// Mapping is the resolved header of one file.
type Mapping struct {
	Matches    []ColumnMatch
	Recognized int
}

// Valid reports whether enough dictionary columns matched for the file
// to be treated as a delivery extract.
func (m *Mapping) Valid() bool {
	return m.Recognized >= MinRecognized
}

// Unrecognized returns the header cells the dictionary does not know.
func (m *Mapping) Unrecognized() []string {
	var out []string
	for _, match := range m.Matches {
		if !match.Recognized {
			out = append(out, match.Source)
		}
	}
	return out
}

// MapHeader resolves each header cell against the dictionary. Every cell
// gets a ColumnMatch, recognized or not; nothing is silently dropped at
// this level.
func MapHeader(header []string) *Mapping {
	m := &Mapping{Matches: make([]ColumnMatch, len(header))}
	for i, cell := range header {
		src := strings.TrimSpace(cell)
		canonical, ok := bySource[src]
		m.Matches[i] = ColumnMatch{Source: src, Canonical: canonical, Recognized: ok}
		if ok {
			m.Recognized++
		}
	}
	return m
}

// Project reorders a parsed row into DataColumns order. Recognized
// header cells land at their canonical position, unrecognized ones are
// discarded, and canonical columns absent from the file stay "".
func (m *Mapping) Project(row []string) []string {
	out := make([]string, len(DataColumns))
	for i, match := range m.Matches {
		if !match.Recognized || i >= len(row) {
			continue
		}
		out[columnIndex[match.Canonical]] = row[i]
	}
	return out
}

// ProjectAll applies Project to every row.
func (m *Mapping) ProjectAll(rows [][]string) [][]string {
	out := make([][]string, len(rows))
	for i, row := range rows {
		out[i] = m.Project(row)
	}
	return out
}
