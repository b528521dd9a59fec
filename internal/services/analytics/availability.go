package analytics

import (
	"fmt"
	"sort"
	"strings"

	"github.com/romkarus000/analytics-product/internal/domain/models"
)

// Optional fields tracked besides the dimension tags.
const (
	FieldOrderID  = "order_id"
	FieldClientID = "client_id"
	// FieldFees is present when any fee component is.
	FieldFees = "fees"
)

// FeeField names the i-th fee component (zero based) as fee_1..fee_3.
func FeeField(i int) string { return fmt.Sprintf("fee_%d", i+1) }

// Presence records which optional fields carry a value on at least one row.
type Presence map[string]bool

// ScanFields inspects every row; no sampling.
func ScanFields(rows []models.Transaction) Presence {
	p := make(Presence)
	for _, tx := range rows {
		for _, d := range Dimensions {
			if !p[d.Field()] && strings.TrimSpace(d.Tag(tx)) != "" {
				p[d.Field()] = true
			}
		}
		if tx.OrderID != "" {
			p[FieldOrderID] = true
		}
		if tx.ClientID != "" {
			p[FieldClientID] = true
		}
		for i, f := range tx.Fees {
			if f.Valid {
				p[FeeField(i)] = true
				p[FieldFees] = true
			}
		}
	}
	return p
}

// Evaluate reports whether the given fields are populated. With one field the
// result is available or unavailable; partial needs a mix of several.
func Evaluate(p Presence, fields ...string) models.Availability {
	missing := make([]string, 0, len(fields))
	for _, f := range fields {
		if !p[f] {
			missing = append(missing, f)
		}
	}
	sort.Strings(missing)

	status := models.StatusPartial
	switch len(missing) {
	case 0:
		status = models.StatusAvailable
	case len(fields):
		status = models.StatusUnavailable
	}
	return models.Availability{Status: status, MissingFields: missing}
}

// MetricAvailability reports the status of a whole metric. Its required
// fields (paid_at, amount, operation_type) are present on every stored row, so
// a metric is never unavailable for lack of tags; missing optional fields only
// demote it to partial.
func MetricAvailability(p Presence, optional ...string) models.Availability {
	missing := make([]string, 0, len(optional))
	for _, f := range optional {
		if !p[f] {
			missing = append(missing, f)
		}
	}
	sort.Strings(missing)

	if len(missing) > 0 {
		return models.Availability{Status: models.StatusPartial, MissingFields: missing}
	}
	return models.Availability{Status: models.StatusAvailable, MissingFields: missing}
}
