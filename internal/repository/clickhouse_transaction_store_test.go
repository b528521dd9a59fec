package repository

import (
	"database/sql"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/romkarus000/analytics-product/internal/domain/models"
)

func TestBuildTransactionsQuery_NoFilters(t *testing.T) {
	from := time.Date(2024, 1, 27, 0, 0, 0, 0, time.UTC)
	to := time.Date(2024, 2, 6, 0, 0, 0, 0, time.UTC)

	q, args := buildTransactionsQuery("analytics.fact_transactions", 7, from, to, nil)

	assert.Contains(t, q, "FROM analytics.fact_transactions FINAL")
	assert.Contains(t, q, "WHERE project_id = ? AND paid_at >= ? AND paid_at < ?")
	assert.NotContains(t, q, " IN (")
	assert.Equal(t, []interface{}{int64(7), from, to}, args)
}

func TestBuildTransactionsQuery_FiltersInStableOrder(t *testing.T) {
	from := time.Date(2024, 2, 1, 0, 0, 0, 0, time.FixedZone("MSK", 3*3600))
	to := from.AddDate(0, 0, 5)
	filters := models.Filters{
		models.FilterProduct:  {"Course A"},
		models.FilterManager:  {"Anna", "Boris"},
		models.FilterGroup:    {"Design"},
		models.FilterCategory: nil,
	}

	q, args := buildTransactionsQuery("t", 7, from, to, filters)

	groupAt := strings.Index(q, deepestGroupExpr+" IN (?)")
	managerAt := strings.Index(q, "manager IN (?, ?)")
	productAt := strings.Index(q, "product_name IN (?)")
	require.True(t, groupAt > 0 && managerAt > 0 && productAt > 0, q)
	assert.Less(t, groupAt, managerAt)
	assert.Less(t, managerAt, productAt)
	assert.NotContains(t, q, "product_category")

	require.Len(t, args, 7)
	assert.Equal(t, from.UTC(), args[1], "bounds are sent in UTC")
	assert.Equal(t, []interface{}{"Design", "Anna", "Boris", "Course A"}, args[3:])
}

type fakeRow struct {
	values []interface{}
	err    error
}

func (r fakeRow) Scan(dest ...interface{}) error {
	if r.err != nil {
		return r.err
	}
	for i, d := range dest {
		switch p := d.(type) {
		case *string:
			*p = r.values[i].(string)
		case *time.Time:
			*p = r.values[i].(time.Time)
		case *sql.NullString:
			if r.values[i] == nil {
				*p = sql.NullString{}
			} else {
				*p = sql.NullString{String: r.values[i].(string), Valid: true}
			}
		}
	}
	return nil
}

func row(op, amount string, fee1 interface{}) fakeRow {
	paid := time.Date(2024, 2, 1, 10, 0, 0, 0, time.UTC)
	return fakeRow{values: []interface{}{
		"tx-1", "o-1", paid, op, amount,
		"c-1", "Course A", "Courses", "online", "Anna", "card",
		"Courses", "Design", "", "", "",
		fee1, nil, "1.50",
	}}
}

func TestScanTransaction(t *testing.T) {
	tx, err := scanTransaction(row("sale", "1000.00", "30.00"))
	require.NoError(t, err)

	assert.Equal(t, models.OperationSale, tx.Operation)
	assert.Equal(t, "1000", tx.Amount.String())
	assert.Equal(t, "Design", tx.DeepestGroup())
	assert.True(t, tx.Fees[0].Valid)
	assert.False(t, tx.Fees[1].Valid)
	assert.Equal(t, "31.5", tx.FeeTotal().String())
}

func TestScanTransaction_Errors(t *testing.T) {
	_, err := scanTransaction(row("chargeback", "10", nil))
	assert.ErrorContains(t, err, "unknown operation type")

	_, err = scanTransaction(row("refund", "ten", nil))
	assert.ErrorContains(t, err, "amount")

	_, err = scanTransaction(fakeRow{err: errors.New("conn reset")})
	assert.ErrorContains(t, err, "conn reset")
}

func TestTransactionSchema(t *testing.T) {
	stmts := TransactionSchema("analytics", "fact_transactions")
	require.Len(t, stmts, 2)
	assert.Equal(t, "CREATE DATABASE IF NOT EXISTS analytics", stmts[0])
	assert.Contains(t, stmts[1], "CREATE TABLE IF NOT EXISTS analytics.fact_transactions")
	assert.Contains(t, stmts[1], "ORDER BY (project_id, paid_at, transaction_id)")
}
