package analytics

import (
	"fmt"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"

	"github.com/romkarus000/analytics-product/internal/domain/models"
)

var txSeq int

type txOption func(*models.Transaction)

func day(s string) time.Time {
	t, err := time.ParseInLocation(models.DateLayout, s, time.UTC)
	if err != nil {
		panic(err)
	}
	return t
}

func dec(s string) decimal.Decimal { return decimal.RequireFromString(s) }

func newTx(op models.OperationType, date, amount string, opts ...txOption) models.Transaction {
	txSeq++
	tx := models.Transaction{
		ProjectID:     1,
		TransactionID: fmt.Sprintf("tx-%04d", txSeq),
		PaidAt:        day(date).Add(12 * time.Hour),
		Operation:     op,
		Amount:        dec(amount),
	}
	for _, o := range opts {
		o(&tx)
	}
	return tx
}

func sale(date, amount string, opts ...txOption) models.Transaction {
	return newTx(models.OperationSale, date, amount, opts...)
}

func refund(date, amount string, opts ...txOption) models.Transaction {
	return newTx(models.OperationRefund, date, amount, opts...)
}

func product(name string) txOption {
	return func(tx *models.Transaction) { tx.ProductName = name }
}

func manager(name string) txOption {
	return func(tx *models.Transaction) { tx.Manager = name }
}

func payment(name string) txOption {
	return func(tx *models.Transaction) { tx.PaymentMethod = name }
}

func order(id string) txOption {
	return func(tx *models.Transaction) { tx.OrderID = id }
}

func group(levels ...string) txOption {
	return func(tx *models.Transaction) { copy(tx.Groups[:], levels) }
}

func fee(i int, amount string) txOption {
	return func(tx *models.Transaction) {
		tx.Fees[i] = decimal.NullDecimal{Decimal: dec(amount), Valid: true}
	}
}

func pairOf(t *testing.T, from, to string) models.PeriodPair {
	t.Helper()
	pair, err := ResolvePeriods(day(from), day(to), time.UTC)
	require.NoError(t, err)
	return pair
}

// snapshotOf builds a snapshot whose history starts at the earliest row.
func snapshotOf(t *testing.T, from, to string, rows ...models.Transaction) *Snapshot {
	t.Helper()
	var first time.Time
	for i, tx := range rows {
		if i == 0 || tx.PaidAt.Before(first) {
			first = tx.PaidAt
		}
	}
	return NewSnapshot(pairOf(t, from, to), rows, first, len(rows) > 0, time.UTC)
}

func signalTypes(signals []models.Signal) []models.SignalType {
	out := make([]models.SignalType, 0, len(signals))
	for _, s := range signals {
		out = append(out, s.Type)
	}
	return out
}

func findSignal(signals []models.Signal, typ models.SignalType) (models.Signal, bool) {
	for _, s := range signals {
		if s.Type == typ {
			return s, true
		}
	}
	return models.Signal{}, false
}
