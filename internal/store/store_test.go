package store

import (
	"strings"
	"testing"
	"time"

	"github.com/shopspring/decimal"

	"sftp-data-ingestion/internal/merge"
	"sftp-data-ingestion/internal/models"
	"sftp-data-ingestion/internal/schema"
)

func TestConfigDSN_Defaults(t *testing.T) {
	cfg := &Config{Host: "db.local", Database: "tracking", User: "etl", Password: "s3cret"}
	dsn := cfg.DSN()
	for _, fragment := range []string{"host=db.local", "port=5432", "dbname=tracking", "sslmode=prefer"} {
		if !strings.Contains(dsn, fragment) {
			t.Errorf("DSN %q missing %q", dsn, fragment)
		}
	}
}

func TestArchiveBatchSQL(t *testing.T) {
	sql := archiveBatchSQL()

	for _, fragment := range []string{
		"WITH to_move AS",
		"SELECT ctid FROM staging.stg_deliveries LIMIT $2",
		"INSERT INTO hist.deliveries_archive (archived_at, batch_id, ",
		"SELECT now(), $1,",
		"DELETE FROM staging.stg_deliveries",
		"RETURNING 1",
	} {
		if !strings.Contains(sql, fragment) {
			t.Errorf("archive SQL missing %q:\n%s", fragment, sql)
		}
	}

	// Every canonical column travels to the archive.
	for _, col := range schema.Columns {
		if !strings.Contains(sql, col) {
			t.Errorf("archive SQL does not carry column %s", col)
		}
	}
}

func TestBuildUpsertSQL_PolicyClauses(t *testing.T) {
	sql := buildUpsertSQL(merge.DefaultPolicies())

	if !strings.Contains(sql, "INSERT INTO dw.fact_deliveries AS f (invoice_key, ") {
		t.Errorf("upsert SQL has wrong insert head:\n%s", sql)
	}
	if !strings.Contains(sql, "ON CONFLICT (invoice_key) DO UPDATE SET") {
		t.Error("upsert SQL missing conflict clause")
	}

	gated := "deadline_status = CASE WHEN EXCLUDED.last_event_at > f.last_event_at THEN EXCLUDED.deadline_status ELSE f.deadline_status END"
	if !strings.Contains(sql, gated) {
		t.Errorf("occurrence-gated clause missing:\n%s", sql)
	}
	if !strings.Contains(sql, "order_ref = COALESCE(EXCLUDED.order_ref, f.order_ref)") {
		t.Error("fill-if-null clause missing for order_ref")
	}
	if !strings.Contains(sql, "inserted_at = GREATEST(f.inserted_at, EXCLUDED.inserted_at)") {
		t.Error("greatest clause missing for inserted_at")
	}
	if strings.Contains(sql, "invoice_key = ") {
		t.Error("conflict key must not appear in the SET list")
	}
}

// The gate is a bare SQL comparison: when either occurrence timestamp
// is NULL the CASE condition is unknown and every gated column keeps
// its stored value. A row first landed without a parseable occurrence
// timestamp is therefore never rewritten by later events.
func TestBuildUpsertSQL_GateKeepsStoredRowOnNullTimestamp(t *testing.T) {
	sql := buildUpsertSQL(merge.DefaultPolicies())

	if strings.Contains(sql, "IS NULL") || strings.Contains(sql, "IS NOT NULL") {
		t.Errorf("gate must not special-case NULL timestamps:\n%s", sql)
	}
	for _, col := range []string{
		"delivery_forecast", "deadline_status", "last_event_id",
		"last_event_desc", "last_event_key", "last_event_at",
		"carrier_arrival", "source_file",
	} {
		clause := col + " = CASE WHEN EXCLUDED.last_event_at > f.last_event_at THEN EXCLUDED." + col
		if !strings.Contains(sql, clause) {
			t.Errorf("gated clause missing for %s:\n%s", col, sql)
		}
	}
}

func TestBuildUpsertSQL_PlaceholderCount(t *testing.T) {
	policies := merge.DefaultPolicies()
	sql := buildUpsertSQL(policies)

	// invoice_key plus one placeholder per policy column.
	want := len(policies) + 1
	if got := strings.Count(sql, "$"); got != want {
		t.Errorf("placeholder count = %d, want %d", got, want)
	}
}

func TestUpsertArgs_OrderMatchesPolicies(t *testing.T) {
	policies := merge.DefaultPolicies()
	at := time.Date(2024, 3, 15, 10, 0, 0, 0, time.UTC)
	value := decimal.RequireFromString("1234.56")
	orderRef := "PED-1"

	rec := &models.FactRecord{
		InvoiceKey:   strings.Repeat("7", 44),
		InsertedAt:   at,
		OrderRef:     &orderRef,
		InvoiceValue: &value,
		LastEventAt:  &at,
	}
	args := upsertArgs(policies, rec)

	if len(args) != len(policies)+1 {
		t.Fatalf("args = %d, want %d", len(args), len(policies)+1)
	}
	if args[0] != rec.InvoiceKey {
		t.Errorf("args[0] = %v, want invoice key", args[0])
	}
	for i, p := range policies {
		arg := args[i+1]
		switch p.Column {
		case "order_ref":
			if arg != "PED-1" {
				t.Errorf("order_ref arg = %v", arg)
			}
		case "invoice_value":
			if arg != "1234.56" {
				t.Errorf("invoice_value arg = %v", arg)
			}
		case "inserted_at":
			if arg != at {
				t.Errorf("inserted_at arg = %v", arg)
			}
		case "last_event_at":
			if arg != at {
				t.Errorf("last_event_at arg = %v", arg)
			}
		case "tracking_id", "city", "weight", "volume_count":
			if arg != nil {
				t.Errorf("%s arg = %v, want nil for unset field", p.Column, arg)
			}
		}
	}
}

func TestStagingValues_EmptyCellsStayEmptyStrings(t *testing.T) {
	row := make([]string, len(schema.Columns))
	row[0] = "43210"
	values := stagingValues(row, "extract.csv")

	if len(values) != len(schema.Columns) {
		t.Fatalf("values = %d, want %d", len(values), len(schema.Columns))
	}
	if values[0] != "43210" {
		t.Errorf("values[0] = %v", values[0])
	}
	for i := 1; i < len(values)-1; i++ {
		if values[i] != "" {
			t.Errorf("column %s = %v, want empty string", schema.Columns[i], values[i])
		}
	}
	if got := values[len(values)-1]; got != "extract.csv" {
		t.Errorf("source_file = %v", got)
	}
}

func TestStagingValues_PadsShortRows(t *testing.T) {
	values := stagingValues([]string{"1", "2"}, "short.csv")
	if len(values) != len(schema.Columns) {
		t.Fatalf("values = %d, want %d", len(values), len(schema.Columns))
	}
	if values[2] != "" {
		t.Errorf("values[2] = %v, want empty string", values[2])
	}
}

func TestRecordValue_CoversEveryPolicyColumn(t *testing.T) {
	at := time.Date(2024, 3, 15, 10, 0, 0, 0, time.UTC)
	text := "x"
	n := 1
	value := decimal.RequireFromString("1")

	rec := &models.FactRecord{
		InvoiceKey: strings.Repeat("7", 44), InsertedAt: at,
		DeliveryForecast: &at, DeadlineStatus: &text, LastEventID: &text,
		LastEventDesc: &text, LastEventKey: &text, LastEventAt: &at,
		CarrierArrival: &at, SourceFile: &text,
		TrackingID: &text, DeliveryType: &text, OrderRef: &text,
		InvoiceDate: &at, InvoiceSeries: &text, InvoiceNumber: &text,
		InvoiceValue: &value, VolumeCount: &n, Weight: &value,
		ShipmentRef: &text, RecipientName: &text, FullAddress: &text,
		PostalCode: &text, WarehouseCode: &n, WarehouseName: &text,
		CarrierTaxID: &text, CarrierName: &text, LeadTimeDays: &text,
		GroupingTag: &text, Street: &text, StreetNumber: &text,
		District: &text, City: &text, State: &text, Labels: &text,
		SellerCode: &text, ItemCount: &n, DeliveryForecastOriginal: &at,
		RecipientTaxID: &text, RiskLevel: &text, OperationType: &text,
	}

	for _, p := range merge.DefaultPolicies() {
		if recordValue(rec, p.Column) == nil {
			t.Errorf("recordValue has no mapping for policy column %s", p.Column)
		}
	}
}
