package merge

import (
	"sort"
	"time"

	"sftp-data-ingestion/internal/coerce"
	"sftp-data-ingestion/internal/models"
	"sftp-data-ingestion/pkg/logger"
)

// Engine coerces staged rows into fact records and picks one winner per
// invoice key before the rows ever reach the upsert.
type Engine struct {
	now func() time.Time
	log logger.Logger
}

// NewEngine returns an Engine logging through log.
func NewEngine(log logger.Logger) *Engine {
	return &Engine{now: time.Now, log: log.WithComponent("merge")}
}

// BuildRecords coerces every staged row into a typed record. Rows whose
// invoice key does not normalize to 44 digits are dropped and counted,
// never guessed at.
func (e *Engine) BuildRecords(rows []models.StagedRow) ([]models.FactRecord, int) {
	records := make([]models.FactRecord, 0, len(rows))
	dropped := 0
	for i := range rows {
		rec, ok := e.buildRecord(&rows[i])
		if !ok {
			dropped++
			continue
		}
		records = append(records, rec)
	}
	if dropped > 0 {
		e.log.WithFields(logger.Fields{
			"dropped": dropped,
			"kept":    len(records),
		}).Warn("rows without a valid invoice key dropped from merge")
	}
	return records, dropped
}

// RankWinners reduces records to one per invoice key. The winner is the
// record with the newest occurrence timestamp; records without one lose
// to any record that has one. Ties fall back to the newest insertion
// timestamp. Output is ordered by key so runs are reproducible.
func (e *Engine) RankWinners(records []models.FactRecord) []models.FactRecord {
	best := make(map[string]models.FactRecord, len(records))
	for _, rec := range records {
		current, ok := best[rec.InvoiceKey]
		if !ok || beats(&rec, &current) {
			best[rec.InvoiceKey] = rec
		}
	}

	winners := make([]models.FactRecord, 0, len(best))
	for _, rec := range best {
		winners = append(winners, rec)
	}
	sort.Slice(winners, func(i, j int) bool {
		return winners[i].InvoiceKey < winners[j].InvoiceKey
	})
	return winners
}

// beats reports whether a should replace b as the winner for their key.
func beats(a, b *models.FactRecord) bool {
	switch {
	case a.LastEventAt != nil && b.LastEventAt == nil:
		return true
	case a.LastEventAt == nil && b.LastEventAt != nil:
		return false
	case a.LastEventAt != nil && !a.LastEventAt.Equal(*b.LastEventAt):
		return a.LastEventAt.After(*b.LastEventAt)
	}
	return a.InsertedAt.After(b.InsertedAt)
}

func (e *Engine) buildRecord(row *models.StagedRow) (models.FactRecord, bool) {
	key, ok := coerce.InvoiceKey(row.Get("invoice_key"))
	if !ok {
		return models.FactRecord{}, false
	}

	rec := models.FactRecord{
		InvoiceKey: key,

		DeliveryForecast: coerce.Date(row.Get("delivery_forecast")),
		DeadlineStatus:   coerce.Text(row.Get("deadline_status")),
		LastEventID:      coerce.Text(row.Get("last_event_id")),
		LastEventDesc:    coerce.Text(row.Get("last_event_desc")),
		LastEventKey:     coerce.Text(row.Get("last_event_key")),
		LastEventAt:      coerce.Timestamp(row.Get("last_event_at")),
		CarrierArrival:   coerce.Timestamp(row.Get("carrier_arrival")),

		TrackingID:               coerce.Text(row.Get("tracking_id")),
		DeliveryType:             coerce.Text(row.Get("delivery_type")),
		OrderRef:                 coerce.Text(row.Get("order_ref")),
		InvoiceDate:              coerce.Date(row.Get("invoice_date")),
		InvoiceSeries:            coerce.Text(row.Get("invoice_series")),
		InvoiceNumber:            coerce.Text(row.Get("invoice_number")),
		InvoiceValue:             coerce.Decimal(row.Get("invoice_value")),
		VolumeCount:              coerce.Integer(row.Get("volume_count")),
		Weight:                   coerce.Decimal(row.Get("weight")),
		ShipmentRef:              coerce.Text(row.Get("shipment_ref")),
		RecipientName:            coerce.Text(row.Get("recipient_name")),
		FullAddress:              coerce.Text(row.Get("full_address")),
		PostalCode:               coerce.DigitsOnly(row.Get("postal_code")),
		WarehouseCode:            coerce.Integer(row.Get("warehouse_code")),
		WarehouseName:            coerce.Text(row.Get("warehouse_name")),
		CarrierTaxID:             coerce.DigitsOnly(row.Get("carrier_tax_id")),
		CarrierName:              coerce.Text(row.Get("carrier_name")),
		LeadTimeDays:             coerce.Text(row.Get("lead_time_days")),
		GroupingTag:              coerce.Text(row.Get("grouping_tag")),
		Street:                   coerce.Text(row.Get("street")),
		StreetNumber:             coerce.Text(row.Get("street_number")),
		District:                 coerce.Text(row.Get("district")),
		City:                     coerce.Text(row.Get("city")),
		State:                    coerce.StateCode(row.Get("state")),
		Labels:                   coerce.Text(row.Get("labels")),
		SellerCode:               coerce.Text(row.Get("seller_code")),
		ItemCount:                coerce.Integer(row.Get("item_count")),
		DeliveryForecastOriginal: coerce.Date(row.Get("delivery_forecast_original")),
		RecipientTaxID:           coerce.DigitsOnly(row.Get("recipient_tax_id")),
		RiskLevel:                coerce.Text(row.Get("risk_level")),
		OperationType:            coerce.Text(row.Get("operation_type")),
	}

	if src := row.SourceFile; src != "" {
		rec.SourceFile = &src
	} else {
		rec.SourceFile = coerce.Text(row.Get("source_file"))
	}

	if at := coerce.Timestamp(row.Get("inserted_at")); at != nil {
		rec.InsertedAt = *at
	} else {
		rec.InsertedAt = e.now()
	}

	if err := rec.Validate(); err != nil {
		return models.FactRecord{}, false
	}
	return rec, true
}
