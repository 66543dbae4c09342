package store

import (
	"fmt"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"sftp-data-ingestion/internal/merge"
	"sftp-data-ingestion/internal/models"
)

// buildUpsertSQL renders the fact-store upsert from the policy table.
// The conflict action is generated per column: occurrence-gated columns
// overwrite only when the incoming occurrence timestamp strictly beats
// the stored one (a NULL on either side keeps the stored value),
// fill-if-null columns take the incoming value unless it is NULL, and
// the load-control timestamp keeps its maximum.
func buildUpsertSQL(policies []merge.FieldPolicy) string {
	cols := make([]string, 0, len(policies)+1)
	cols = append(cols, "invoice_key")
	for _, p := range policies {
		cols = append(cols, p.Column)
	}

	placeholders := make([]string, len(cols))
	for i := range cols {
		placeholders[i] = fmt.Sprintf("$%d", i+1)
	}

	sets := make([]string, 0, len(policies))
	for _, p := range policies {
		var clause string
		switch p.Rule {
		case merge.OccurrenceGated:
			clause = fmt.Sprintf(
				"%[1]s = CASE WHEN EXCLUDED.last_event_at > f.last_event_at THEN EXCLUDED.%[1]s ELSE f.%[1]s END",
				p.Column)
		case merge.GreatestTimestamp:
			clause = fmt.Sprintf("%[1]s = GREATEST(f.%[1]s, EXCLUDED.%[1]s)", p.Column)
		default:
			clause = fmt.Sprintf("%[1]s = COALESCE(EXCLUDED.%[1]s, f.%[1]s)", p.Column)
		}
		sets = append(sets, clause)
	}

	return fmt.Sprintf(`INSERT INTO dw.fact_deliveries AS f (%s)
VALUES (%s)
ON CONFLICT (invoice_key) DO UPDATE SET
	%s`,
		strings.Join(cols, ", "),
		strings.Join(placeholders, ", "),
		strings.Join(sets, ",\n\t"))
}

// upsertArgs lays out a record's values in the same column order
// buildUpsertSQL emits.
func upsertArgs(policies []merge.FieldPolicy, rec *models.FactRecord) []any {
	args := make([]any, 0, len(policies)+1)
	args = append(args, rec.InvoiceKey)
	for _, p := range policies {
		args = append(args, recordValue(rec, p.Column))
	}
	return args
}

func recordValue(rec *models.FactRecord, column string) any {
	switch column {
	case "tracking_id":
		return textArg(rec.TrackingID)
	case "inserted_at":
		return rec.InsertedAt
	case "delivery_type":
		return textArg(rec.DeliveryType)
	case "order_ref":
		return textArg(rec.OrderRef)
	case "invoice_date":
		return timeArg(rec.InvoiceDate)
	case "invoice_series":
		return textArg(rec.InvoiceSeries)
	case "invoice_number":
		return textArg(rec.InvoiceNumber)
	case "invoice_value":
		return decimalArg(rec.InvoiceValue)
	case "volume_count":
		return intArg(rec.VolumeCount)
	case "weight":
		return decimalArg(rec.Weight)
	case "shipment_ref":
		return textArg(rec.ShipmentRef)
	case "recipient_name":
		return textArg(rec.RecipientName)
	case "full_address":
		return textArg(rec.FullAddress)
	case "postal_code":
		return textArg(rec.PostalCode)
	case "warehouse_code":
		return intArg(rec.WarehouseCode)
	case "warehouse_name":
		return textArg(rec.WarehouseName)
	case "carrier_tax_id":
		return textArg(rec.CarrierTaxID)
	case "carrier_name":
		return textArg(rec.CarrierName)
	case "lead_time_days":
		return textArg(rec.LeadTimeDays)
	case "delivery_forecast":
		return timeArg(rec.DeliveryForecast)
	case "deadline_status":
		return textArg(rec.DeadlineStatus)
	case "last_event_id":
		return textArg(rec.LastEventID)
	case "last_event_desc":
		return textArg(rec.LastEventDesc)
	case "last_event_key":
		return textArg(rec.LastEventKey)
	case "last_event_at":
		return timeArg(rec.LastEventAt)
	case "grouping_tag":
		return textArg(rec.GroupingTag)
	case "street":
		return textArg(rec.Street)
	case "street_number":
		return textArg(rec.StreetNumber)
	case "district":
		return textArg(rec.District)
	case "city":
		return textArg(rec.City)
	case "state":
		return textArg(rec.State)
	case "labels":
		return textArg(rec.Labels)
	case "carrier_arrival":
		return timeArg(rec.CarrierArrival)
	case "seller_code":
		return textArg(rec.SellerCode)
	case "item_count":
		return intArg(rec.ItemCount)
	case "delivery_forecast_original":
		return timeArg(rec.DeliveryForecastOriginal)
	case "recipient_tax_id":
		return textArg(rec.RecipientTaxID)
	case "risk_level":
		return textArg(rec.RiskLevel)
	case "operation_type":
		return textArg(rec.OperationType)
	case "source_file":
		return textArg(rec.SourceFile)
	}
	return nil
}

func textArg(s *string) any {
	if s == nil {
		return nil
	}
	return *s
}

func timeArg(t *time.Time) any {
	if t == nil {
		return nil
	}
	return *t
}

func intArg(i *int) any {
	if i == nil {
		return nil
	}
	return *i
}

func decimalArg(d *decimal.Decimal) any {
	if d == nil {
		return nil
	}
	return d.String()
}
