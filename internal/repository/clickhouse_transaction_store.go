package repository

import (
	"context"
	"database/sql"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"github.com/romkarus000/analytics-product/internal/domain/models"
	domrepo "github.com/romkarus000/analytics-product/internal/domain/repository"
	pkgch "github.com/romkarus000/analytics-product/pkg/clickhouse"
	applogger "github.com/romkarus000/analytics-product/pkg/logger"
)

// deepestGroupExpr picks the most specific non-empty group level.
const deepestGroupExpr = "multiIf(group_5 != '', group_5, group_4 != '', group_4, group_3 != '', group_3, group_2 != '', group_2, group_1)"

var filterColumns = map[models.FilterKey]string{
	models.FilterProduct:       "product_name",
	models.FilterCategory:      "product_category",
	models.FilterProductType:   "product_type",
	models.FilterManager:       "manager",
	models.FilterPaymentMethod: "payment_method",
	models.FilterGroup:         deepestGroupExpr,
}

// TransactionSchema returns the DDL of the transactions fact table.
func TransactionSchema(database, table string) []string {
	return []string{
		fmt.Sprintf("CREATE DATABASE IF NOT EXISTS %s", database),
		fmt.Sprintf(`CREATE TABLE IF NOT EXISTS %s.%s (
    project_id       UInt64,
    transaction_id   String,
    order_id         String,
    paid_at          DateTime64(3, 'UTC'),
    operation_type   LowCardinality(String),
    amount           Decimal(18, 2),
    client_id        String,
    product_name     String,
    product_category String,
    product_type     String,
    manager          String,
    payment_method   String,
    group_1          String,
    group_2          String,
    group_3          String,
    group_4          String,
    group_5          String,
    fee_1            Nullable(Decimal(18, 2)),
    fee_2            Nullable(Decimal(18, 2)),
    fee_3            Nullable(Decimal(18, 2))
) ENGINE = ReplacingMergeTree
PARTITION BY toYYYYMM(paid_at)
ORDER BY (project_id, paid_at, transaction_id)`, database, table),
	}
}

// CHTransactionStore implements TransactionStore backed by ClickHouse.
type CHTransactionStore struct {
	db    *sql.DB
	table string
	l     *applogger.Logger
}

func NewCHTransactionStore(ch *pkgch.Client, table string, l *applogger.Logger) *CHTransactionStore {
	return &CHTransactionStore{db: ch.DB(), table: ch.Database() + "." + table, l: l}
}

var _ domrepo.TransactionStore = (*CHTransactionStore)(nil)

// Amounts travel as strings so no precision is lost on the way to decimal.
const transactionColumns = `transaction_id, order_id, paid_at, operation_type, toString(amount),
        client_id, product_name, product_category, product_type, manager, payment_method,
        group_1, group_2, group_3, group_4, group_5,
        toString(fee_1), toString(fee_2), toString(fee_3)`

// buildTransactionsQuery renders the snapshot query: one project, paid_at in
// [from, to), every filter key as an IN list.
func buildTransactionsQuery(table string, projectID int64, from, to time.Time, filters models.Filters) (string, []interface{}) {
	where := []string{"project_id = ?", "paid_at >= ?", "paid_at < ?"}
	args := []interface{}{projectID, from.UTC(), to.UTC()}

	keys := make([]string, 0, len(filters))
	for k, values := range filters {
		if len(values) > 0 {
			keys = append(keys, string(k))
		}
	}
	sort.Strings(keys)
	for _, k := range keys {
		column, ok := filterColumns[models.FilterKey(k)]
		if !ok {
			continue
		}
		values := filters[models.FilterKey(k)]
		marks := strings.TrimSuffix(strings.Repeat("?, ", len(values)), ", ")
		where = append(where, fmt.Sprintf("%s IN (%s)", column, marks))
		for _, v := range values {
			args = append(args, v)
		}
	}

	q := fmt.Sprintf("SELECT %s\nFROM %s FINAL\nWHERE %s\nORDER BY paid_at ASC, transaction_id ASC",
		transactionColumns, table, strings.Join(where, " AND "))
	return q, args
}

func (s *CHTransactionStore) FetchTransactions(ctx context.Context, projectID int64, from, to time.Time, filters models.Filters) ([]models.Transaction, error) {
	start := time.Now()
	q, args := buildTransactionsQuery(s.table, projectID, from, to, filters)
	rows, err := s.db.QueryContext(ctx, q, args...)
	if err != nil {
		s.l.Error("clickhouse fetch_transactions query error",
			applogger.Int64("project_id", projectID),
			applogger.Error(err),
		)
		return nil, fmt.Errorf("fetch transactions: %w", err)
	}
	defer rows.Close()

	out := make([]models.Transaction, 0, 1024)
	for rows.Next() {
		tx, err := scanTransaction(rows)
		if err != nil {
			s.l.Error("clickhouse fetch_transactions scan error",
				applogger.Int64("project_id", projectID),
				applogger.Error(err),
			)
			return nil, err
		}
		tx.ProjectID = projectID
		out = append(out, tx)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("rows: %w", err)
	}
	s.l.Debug("clickhouse fetch_transactions ok",
		applogger.Int64("project_id", projectID),
		applogger.Int("rows", len(out)),
		applogger.Duration("duration_ms", time.Since(start)),
	)
	return out, nil
}

type rowScanner interface {
	Scan(dest ...interface{}) error
}

func scanTransaction(r rowScanner) (models.Transaction, error) {
	var (
		tx     models.Transaction
		op     string
		amount string
		fees   [models.FeeComponents]sql.NullString
	)
	err := r.Scan(&tx.TransactionID, &tx.OrderID, &tx.PaidAt, &op, &amount,
		&tx.ClientID, &tx.ProductName, &tx.ProductCategory, &tx.ProductType, &tx.Manager, &tx.PaymentMethod,
		&tx.Groups[0], &tx.Groups[1], &tx.Groups[2], &tx.Groups[3], &tx.Groups[4],
		&fees[0], &fees[1], &fees[2])
	if err != nil {
		return tx, fmt.Errorf("scan transaction: %w", err)
	}
	return fillTransaction(tx, op, amount, fees)
}

func fillTransaction(tx models.Transaction, op, amount string, fees [models.FeeComponents]sql.NullString) (models.Transaction, error) {
	tx.Operation = models.OperationType(op)
	if !tx.IsSale() && !tx.IsRefund() {
		return tx, fmt.Errorf("transaction %s: unknown operation type %q", tx.TransactionID, op)
	}
	a, err := decimal.NewFromString(amount)
	if err != nil {
		return tx, fmt.Errorf("transaction %s: amount: %w", tx.TransactionID, err)
	}
	tx.Amount = a
	for i, f := range fees {
		if !f.Valid || f.String == "" {
			continue
		}
		d, err := decimal.NewFromString(f.String)
		if err != nil {
			return tx, fmt.Errorf("transaction %s: fee_%d: %w", tx.TransactionID, i+1, err)
		}
		tx.Fees[i] = decimal.NewNullDecimal(d)
	}
	return tx, nil
}

func (s *CHTransactionStore) FirstTransactionDate(ctx context.Context, projectID int64) (time.Time, bool, error) {
	q := fmt.Sprintf("SELECT min(paid_at), count() FROM %s WHERE project_id = ?", s.table)
	var (
		first time.Time
		n     uint64
	)
	if err := s.db.QueryRowContext(ctx, q, projectID).Scan(&first, &n); err != nil {
		s.l.Error("clickhouse first_transaction query error",
			applogger.Int64("project_id", projectID),
			applogger.Error(err),
		)
		return time.Time{}, false, fmt.Errorf("first transaction date: %w", err)
	}
	if n == 0 {
		return time.Time{}, false, nil
	}
	return first, true, nil
}

func (s *CHTransactionStore) Health(ctx context.Context) error {
	return s.db.PingContext(ctx)
}
