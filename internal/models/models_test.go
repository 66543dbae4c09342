package models

import (
	"strings"
	"testing"
	"time"

	"github.com/google/uuid"
)

func TestStagedRowGet(t *testing.T) {
	row := StagedRow{Values: map[string]string{"order_ref": "PED-1"}}
	if got := row.Get("order_ref"); got != "PED-1" {
		t.Errorf("Get(order_ref) = %q", got)
	}
	if got := row.Get("city"); got != "" {
		t.Errorf("Get(city) = %q, want empty for absent column", got)
	}
}

func TestFactRecordValidate(t *testing.T) {
	at := time.Date(2024, 3, 15, 10, 0, 0, 0, time.UTC)
	tests := []struct {
		name    string
		record  FactRecord
		wantErr bool
	}{
		{
			name:   "Valid record",
			record: FactRecord{InvoiceKey: strings.Repeat("7", 44), InsertedAt: at},
		},
		{
			name:    "Short key",
			record:  FactRecord{InvoiceKey: "123", InsertedAt: at},
			wantErr: true,
		},
		{
			name:    "Zero inserted-at",
			record:  FactRecord{InvoiceKey: strings.Repeat("7", 44)},
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.record.Validate()
			if (err != nil) != tt.wantErr {
				t.Errorf("Validate() error = %v, wantErr %v", err, tt.wantErr)
			}
		})
	}
}

func TestLoadResultCounters(t *testing.T) {
	result := LoadResult{Files: []FileLoadResult{
		{File: "a.csv", Rows: 10, Disposition: DispositionProcessed},
		{File: "b.csv", Rows: 5, Disposition: DispositionProcessed},
		{File: "c.csv", Disposition: DispositionFailed, Reason: "bad header"},
	}}

	if got := result.Processed(); got != 2 {
		t.Errorf("Processed() = %d, want 2", got)
	}
	if got := result.Failed(); got != 1 {
		t.Errorf("Failed() = %d, want 1", got)
	}
	if got := result.TotalRows(); got != 15 {
		t.Errorf("TotalRows() = %d, want 15", got)
	}
}

func TestArchiveResultValidate(t *testing.T) {
	ok := ArchiveResult{BatchID: uuid.New(), Batches: 2, Inserted: 100, Deleted: 100}
	if err := ok.Validate(); err != nil {
		t.Errorf("Validate() error = %v for balanced counts", err)
	}

	bad := ArchiveResult{BatchID: uuid.New(), Batches: 1, Inserted: 100, Deleted: 99}
	if err := bad.Validate(); err == nil {
		t.Error("Validate() passed with diverged counts")
	}
}
