// Package models defines the records that flow through the pipeline:
// staged rows read back from the staging relation, typed fact records
// produced by the merge engine, and the result summaries each stage
// reports to its caller.
package models

import (
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// StagedRow is one normalized record as stored in staging: canonical column
// name to string value. Absent values are empty strings, never missing keys,
// so downstream code can index without existence checks.
type StagedRow struct {
	Values     map[string]string
	SourceFile string
}

// Get returns the value of a canonical column, empty string if absent.
func (r *StagedRow) Get(column string) string {
	return r.Values[column]
}

// FactRecord is one reconciled entity in the fact store, keyed by the
// normalized 44-digit invoice key. Pointer fields are nullable: a nil
// pointer maps to SQL NULL.
type FactRecord struct {
	InvoiceKey string

	// Occurrence-dependent tracking state. LastEventAt is the recency
	// signal for conflict resolution.
	DeliveryForecast *time.Time
	DeadlineStatus   *string
	LastEventID      *string
	LastEventDesc    *string
	LastEventKey     *string
	LastEventAt      *time.Time
	CarrierArrival   *time.Time
	SourceFile       *string

	// Static order data, filled once and kept.
	TrackingID               *string
	DeliveryType             *string
	OrderRef                 *string
	InvoiceDate              *time.Time
	InvoiceSeries            *string
	InvoiceNumber            *string
	InvoiceValue             *decimal.Decimal
	VolumeCount              *int
	Weight                   *decimal.Decimal
	ShipmentRef              *string
	RecipientName            *string
	FullAddress              *string
	PostalCode               *string
	WarehouseCode            *int
	WarehouseName            *string
	CarrierTaxID             *string
	CarrierName              *string
	LeadTimeDays             *string
	GroupingTag              *string
	Street                   *string
	StreetNumber             *string
	District                 *string
	City                     *string
	State                    *string
	Labels                   *string
	SellerCode               *string
	ItemCount                *int
	DeliveryForecastOriginal *time.Time
	RecipientTaxID           *string
	RiskLevel                *string
	OperationType            *string

	// InsertedAt is the load-control timestamp from the extract; the fact
	// store keeps the maximum seen for a key.
	InsertedAt time.Time
}

// Validate performs basic validation on the FactRecord
func (f *FactRecord) Validate() error {
	if len(f.InvoiceKey) != 44 {
		return fmt.Errorf("invoice key must be 44 digits, got %d", len(f.InvoiceKey))
	}
	if f.InsertedAt.IsZero() {
		return fmt.Errorf("inserted-at timestamp cannot be zero")
	}
	return nil
}

// FetchResult summarizes one run of the remote-fetch stage
type FetchResult struct {
	Listed     int
	Downloaded int
	Skipped    int
	Failed     int
	Elapsed    time.Duration
}

// LoadDisposition is where a file ended up after a load attempt
type LoadDisposition string

const (
	DispositionProcessed LoadDisposition = "processed"
	DispositionFailed    LoadDisposition = "failed"
)

// FileLoadResult summarizes the staging load of one input file
type FileLoadResult struct {
	File        string
	Rows        int64
	Disposition LoadDisposition
	Reason      string
}

// LoadResult summarizes one run of the staging-load stage
type LoadResult struct {
	Files []FileLoadResult
}

// Processed returns how many files were routed to the processed area
func (r *LoadResult) Processed() int {
	n := 0
	for _, f := range r.Files {
		if f.Disposition == DispositionProcessed {
			n++
		}
	}
	return n
}

// Failed returns how many files were routed to the failed area
func (r *LoadResult) Failed() int {
	return len(r.Files) - r.Processed()
}

// TotalRows returns the total number of staged rows across all files
func (r *LoadResult) TotalRows() int64 {
	var n int64
	for _, f := range r.Files {
		n += f.Rows
	}
	return n
}

// ArchiveResult summarizes one archiver run. Inserted and Deleted are totals
// across all batches and must always be equal.
type ArchiveResult struct {
	BatchID  uuid.UUID
	Batches  int
	Inserted int64
	Deleted  int64
}

// Validate checks the archive invariant: nothing lost, nothing duplicated
func (r *ArchiveResult) Validate() error {
	if r.Inserted != r.Deleted {
		return fmt.Errorf("archive counts diverged: inserted=%d deleted=%d", r.Inserted, r.Deleted)
	}
	return nil
}

// MergeResult summarizes one merge run
type MergeResult struct {
	StagingRows int
	DroppedKeys int // rows excluded for lacking a valid invoice key
	Winners     int // one per distinct key
	Upserted    int64
}
