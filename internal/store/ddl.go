package store

import (
	"context"

	"github.com/jackc/pgx/v5/pgxpool"

	pipelineerrors "sftp-data-ingestion/pkg/errors"
	"sftp-data-ingestion/pkg/logger"
)

// stagingColumnsDDL declares every staging column as text: staging holds
// the file content as-is, typing happens in the merge.
const stagingColumnsDDL = `
	tracking_id text,
	inserted_at text,
	delivery_type text,
	order_ref text,
	invoice_date text,
	invoice_series text,
	invoice_number text,
	invoice_value text,
	volume_count text,
	weight text,
	shipment_ref text,
	recipient_name text,
	full_address text,
	postal_code text,
	warehouse_code text,
	warehouse_name text,
	carrier_tax_id text,
	carrier_name text,
	lead_time_days text,
	delivery_forecast text,
	deadline_status text,
	last_event_id text,
	last_event_desc text,
	last_event_key text,
	last_event_at text,
	grouping_tag text,
	street text,
	street_number text,
	district text,
	city text,
	state text,
	labels text,
	carrier_arrival text,
	seller_code text,
	invoice_key text,
	item_count text,
	delivery_forecast_original text,
	recipient_tax_id text,
	risk_level text,
	operation_type text,
	source_file text`

var ddlStatements = []string{
	`CREATE SCHEMA IF NOT EXISTS staging`,
	`CREATE SCHEMA IF NOT EXISTS hist`,
	`CREATE SCHEMA IF NOT EXISTS dw`,

	`CREATE TABLE IF NOT EXISTS staging.stg_deliveries (` + stagingColumnsDDL + `
	)`,

	`CREATE TABLE IF NOT EXISTS hist.deliveries_archive (
	archived_at timestamptz NOT NULL DEFAULT now(),
	batch_id uuid NOT NULL,` + stagingColumnsDDL + `
	)`,

	`CREATE INDEX IF NOT EXISTS ix_deliveries_archive_batch_id
	ON hist.deliveries_archive (batch_id)`,

	`CREATE TABLE IF NOT EXISTS dw.fact_deliveries (
	invoice_key char(44) NOT NULL,
	tracking_id text,
	inserted_at timestamptz NOT NULL,
	delivery_type text,
	order_ref text,
	invoice_date date,
	invoice_series text,
	invoice_number text,
	invoice_value numeric(14,2),
	volume_count integer,
	weight numeric(12,3),
	shipment_ref text,
	recipient_name text,
	full_address text,
	postal_code text,
	warehouse_code integer,
	warehouse_name text,
	carrier_tax_id text,
	carrier_name text,
	lead_time_days text,
	delivery_forecast date,
	deadline_status text,
	last_event_id text,
	last_event_desc text,
	last_event_key text,
	last_event_at timestamptz,
	grouping_tag text,
	street text,
	street_number text,
	district text,
	city text,
	state text,
	labels text,
	carrier_arrival timestamptz,
	seller_code text,
	item_count integer,
	delivery_forecast_original date,
	recipient_tax_id text,
	risk_level text,
	operation_type text,
	source_file text
	)`,

	`CREATE UNIQUE INDEX IF NOT EXISTS ux_fact_deliveries_invoice_key
	ON dw.fact_deliveries (invoice_key)`,
}

// EnsureSchema creates the staging, archive and fact relations if they
// are missing. Safe to run on every start.
func EnsureSchema(ctx context.Context, pool *pgxpool.Pool, log logger.Logger) error {
	for _, stmt := range ddlStatements {
		if _, err := pool.Exec(ctx, stmt); err != nil {
			return pipelineerrors.InternalError("schema bootstrap", err)
		}
	}
	log.WithComponent("store").Debug("schema objects ensured")
	return nil
}
