package models

import (
	"time"

	"github.com/shopspring/decimal"
)

// OperationType distinguishes payments from refunds.
type OperationType string

const (
	OperationSale   OperationType = "sale"
	OperationRefund OperationType = "refund"
)

// FeeComponents is the number of named fee columns a transaction may carry.
const FeeComponents = 3

// GroupLevels is the depth of the product group path.
const GroupLevels = 5

// Transaction is one cleaned, already-mapped financial event of a project.
// Empty strings mean the tag is absent on the source row.
type Transaction struct {
	ProjectID       int64                              `json:"project_id"`
	TransactionID   string                             `json:"transaction_id,omitempty"`
	OrderID         string                             `json:"order_id,omitempty"`
	PaidAt          time.Time                          `json:"paid_at"`
	Operation       OperationType                      `json:"operation_type"`
	Amount          decimal.Decimal                    `json:"amount"`
	ClientID        string                             `json:"client_id,omitempty"`
	ProductName     string                             `json:"product_name,omitempty"`
	ProductCategory string                             `json:"product_category,omitempty"`
	ProductType     string                             `json:"product_type,omitempty"`
	Manager         string                             `json:"manager,omitempty"`
	PaymentMethod   string                             `json:"payment_method,omitempty"`
	Groups          [GroupLevels]string                `json:"groups"`
	Fees            [FeeComponents]decimal.NullDecimal `json:"fees"`
}

// IsSale reports whether the row is a payment.
func (t Transaction) IsSale() bool { return t.Operation == OperationSale }

// IsRefund reports whether the row is a refund.
func (t Transaction) IsRefund() bool { return t.Operation == OperationRefund }

// OrderKey returns the identifier used for distinct order counting.
func (t Transaction) OrderKey() string {
	if t.OrderID != "" {
		return t.OrderID
	}
	return t.TransactionID
}

// FeeTotal sums the populated fee components.
func (t Transaction) FeeTotal() decimal.Decimal {
	total := decimal.Zero
	for _, f := range t.Fees {
		if f.Valid {
			total = total.Add(f.Decimal)
		}
	}
	return total
}

// DeepestGroup returns the most specific non-empty group level.
func (t Transaction) DeepestGroup() string {
	for i := GroupLevels - 1; i >= 0; i-- {
		if t.Groups[i] != "" {
			return t.Groups[i]
		}
	}
	return ""
}
