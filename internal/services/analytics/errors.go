package analytics

import (
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/romkarus000/analytics-product/internal/domain/models"
)

// InvalidRangeError is returned when the requested window ends before it starts.
type InvalidRangeError struct {
	From time.Time
	To   time.Time
}

func (e *InvalidRangeError) Error() string {
	return fmt.Sprintf("invalid range: from %s is after to %s",
		e.From.Format(models.DateLayout), e.To.Format(models.DateLayout))
}

// UnknownDimensionError is returned for a driver dimension the engine does not support.
type UnknownDimensionError struct {
	Dimension string
}

func (e *UnknownDimensionError) Error() string {
	return fmt.Sprintf("unknown dimension %q", e.Dimension)
}

type UnknownMetricError struct {
	Metric string
}

func (e *UnknownMetricError) Error() string {
	return fmt.Sprintf("unknown metric %q", e.Metric)
}

type UnknownSortError struct {
	Sort string
}

func (e *UnknownSortError) Error() string {
	return fmt.Sprintf("unknown sort mode %q", e.Sort)
}

// InvalidFilterError reports a malformed filters document or an unsupported key.
type InvalidFilterError struct {
	Key    string
	Reason string
}

func (e *InvalidFilterError) Error() string {
	if e.Key == "" {
		return "invalid filters: " + e.Reason
	}
	return fmt.Sprintf("invalid filter %q: %s", e.Key, e.Reason)
}

// ParseMetric validates a metric key.
func ParseMetric(s string) (models.MetricKey, error) {
	switch m := models.MetricKey(s); m {
	case models.MetricGrossSales, models.MetricRefunds, models.MetricNetRevenue,
		models.MetricFeesTotal, models.MetricOrders:
		return m, nil
	}
	return "", &UnknownMetricError{Metric: s}
}

// ParseFilters decodes the JSON filter map sent by clients. Each key maps to a
// single exact-match value or a list of them; null and blank values are dropped.
func ParseFilters(raw string) (models.Filters, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" || raw == "null" {
		return models.Filters{}, nil
	}
	var doc map[string]json.RawMessage
	if err := json.Unmarshal([]byte(raw), &doc); err != nil {
		return nil, &InvalidFilterError{Reason: "expected a JSON object"}
	}

	out := make(models.Filters, len(doc))
	for k, v := range doc {
		key := models.FilterKey(k)
		if !key.IsValid() {
			return nil, &InvalidFilterError{Key: k, Reason: "unsupported key"}
		}
		values, err := filterValues(v)
		if err != nil {
			return nil, &InvalidFilterError{Key: k, Reason: err.Error()}
		}
		if len(values) > 0 {
			out[key] = values
		}
	}
	return out, nil
}

func filterValues(v json.RawMessage) ([]string, error) {
	var single *string
	if err := json.Unmarshal(v, &single); err == nil {
		if single == nil || strings.TrimSpace(*single) == "" {
			return nil, nil
		}
		return []string{*single}, nil
	}
	var list []string
	if err := json.Unmarshal(v, &list); err != nil {
		return nil, fmt.Errorf("value must be a string or a list of strings")
	}
	out := make([]string, 0, len(list))
	for _, s := range list {
		if strings.TrimSpace(s) != "" {
			out = append(out, s)
		}
	}
	return out, nil
}
