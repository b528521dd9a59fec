package analytics

import (
	"strings"

	"github.com/romkarus000/analytics-product/internal/domain/models"
)

// NoValue is the entity name for rows without a tag in the ranked dimension.
const NoValue = "No value"

// Dimension is an entity attribute drivers can be ranked by.
type Dimension string

const (
	DimensionProduct       Dimension = "product"
	DimensionGroup         Dimension = "group"
	DimensionManager       Dimension = "manager"
	DimensionPaymentMethod Dimension = "payment_method"
	DimensionCategory      Dimension = "category"
	DimensionProductType   Dimension = "product_type"
)

// Dimensions lists every supported dimension.
var Dimensions = []Dimension{
	DimensionProduct,
	DimensionGroup,
	DimensionManager,
	DimensionPaymentMethod,
	DimensionCategory,
	DimensionProductType,
}

// detailDimensions are the driver tabs rendered on metric detail pages.
var detailDimensions = []Dimension{DimensionProduct, DimensionGroup, DimensionManager}

// ParseDimension accepts the singular name or the plural tab key.
func ParseDimension(s string) (Dimension, error) {
	s = strings.ToLower(strings.TrimSpace(s))
	for _, d := range Dimensions {
		if s == string(d) || s == d.Plural() {
			return d, nil
		}
	}
	return "", &UnknownDimensionError{Dimension: s}
}

// Tag returns the raw dimension value of a row.
func (d Dimension) Tag(tx models.Transaction) string {
	return models.FilterKey(d).Tag(tx)
}

// Name returns the entity a row belongs to, NoValue for blank tags.
func (d Dimension) Name(tx models.Transaction) string {
	tag := strings.TrimSpace(d.Tag(tx))
	if tag == "" {
		return NoValue
	}
	return tag
}

// Field is the availability field backing the dimension.
func (d Dimension) Field() string { return string(d) }

func (d Dimension) Plural() string {
	switch d {
	case DimensionCategory:
		return "categories"
	case DimensionPaymentMethod:
		return "payment_methods"
	case DimensionProductType:
		return "product_types"
	default:
		return string(d) + "s"
	}
}

func (d Dimension) Label() string {
	return strings.ReplaceAll(string(d), "_", " ")
}
