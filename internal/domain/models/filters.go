package models

import (
	"sort"
	"strings"
)

// FilterKey names a transaction tag that can be filtered by exact match.
type FilterKey string

const (
	FilterProduct       FilterKey = "product"
	FilterCategory      FilterKey = "category"
	FilterProductType   FilterKey = "product_type"
	FilterManager       FilterKey = "manager"
	FilterPaymentMethod FilterKey = "payment_method"
	FilterGroup         FilterKey = "group"
)

// FilterKeys lists every supported key in a stable order.
var FilterKeys = []FilterKey{
	FilterProduct,
	FilterCategory,
	FilterProductType,
	FilterManager,
	FilterPaymentMethod,
	FilterGroup,
}

// IsValid reports whether k is a supported filter key.
func (k FilterKey) IsValid() bool {
	for _, known := range FilterKeys {
		if k == known {
			return true
		}
	}
	return false
}

// Filters restricts a transaction set: a row passes when, for every key,
// its tag equals one of the listed values.
type Filters map[FilterKey][]string

// Tag returns the value of the filtered tag on t.
func (k FilterKey) Tag(t Transaction) string {
	switch k {
	case FilterProduct:
		return t.ProductName
	case FilterCategory:
		return t.ProductCategory
	case FilterProductType:
		return t.ProductType
	case FilterManager:
		return t.Manager
	case FilterPaymentMethod:
		return t.PaymentMethod
	case FilterGroup:
		return t.DeepestGroup()
	default:
		return ""
	}
}

// Match reports whether t passes every filter.
func (f Filters) Match(t Transaction) bool {
	for key, values := range f {
		if len(values) == 0 {
			continue
		}
		tag := key.Tag(t)
		found := false
		for _, v := range values {
			if v == tag {
				found = true
				break
			}
		}
		if !found {
			return false
		}
	}
	return true
}

// Apply returns the rows that pass the filters. The input is not modified.
func (f Filters) Apply(rows []Transaction) []Transaction {
	if len(f) == 0 {
		return rows
	}
	out := make([]Transaction, 0, len(rows))
	for _, t := range rows {
		if f.Match(t) {
			out = append(out, t)
		}
	}
	return out
}

// CacheKey is a canonical string form of the filters, independent of map order.
func (f Filters) CacheKey() string {
	if len(f) == 0 {
		return "-"
	}
	keys := make([]string, 0, len(f))
	for k := range f {
		keys = append(keys, string(k))
	}
	sort.Strings(keys)

	var b strings.Builder
	for i, k := range keys {
		if i > 0 {
			b.WriteByte(';')
		}
		values := append([]string(nil), f[FilterKey(k)]...)
		sort.Strings(values)
		b.WriteString(k)
		b.WriteByte('=')
		b.WriteString(strings.Join(values, ","))
	}
	return b.String()
}
