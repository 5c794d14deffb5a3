package db

import (
	"context"
	"time"

	"github.com/shandysiswandi/penagih/internal/recovery/entity"
)

const listBillsDueBetweenQuery = `
SELECT id, business_id, user_id, customer_id, customer_name, amount, due_date
FROM bills
WHERE deleted_at IS NULL
  AND status = 'unpaid'
  AND due_date >= $1 AND due_date <= $2
ORDER BY due_date
LIMIT $3`

// ListBillsDueBetween returns unpaid bills due inside the window.
func (s *DB) ListBillsDueBetween(ctx context.Context, from, to time.Time, limit int32) (_ []entity.Bill, err error) {
	ctx, span := s.startSpan(ctx, "ListBillsDueBetween")
	defer func() { s.endSpan(span, err) }()

	rows, err := s.conn.Query(ctx, listBillsDueBetweenQuery, from, to, limit)
	if err != nil {
		return nil, s.mapError(err)
	}
	defer rows.Close()

	var bills []entity.Bill
	for rows.Next() {
		var b entity.Bill
		if err = rows.Scan(&b.ID, &b.BusinessID, &b.UserID, &b.CustomerID, &b.CustomerName, &b.Amount, &b.DueDate); err != nil {
			return nil, s.mapError(err)
		}
		bills = append(bills, b)
	}

	return bills, s.mapError(rows.Err())
}

const listOverdueBillsQuery = `
SELECT id, business_id, user_id, customer_id, customer_name, amount, due_date
FROM bills
WHERE deleted_at IS NULL
  AND status = 'unpaid'
  AND due_date < $1
ORDER BY due_date
LIMIT $2`

// ListOverdueBills returns unpaid bills past their due date, oldest first.
func (s *DB) ListOverdueBills(ctx context.Context, before time.Time, limit int32) (_ []entity.Bill, err error) {
	ctx, span := s.startSpan(ctx, "ListOverdueBills")
	defer func() { s.endSpan(span, err) }()

	rows, err := s.conn.Query(ctx, listOverdueBillsQuery, before, limit)
	if err != nil {
		return nil, s.mapError(err)
	}
	defer rows.Close()

	var bills []entity.Bill
	for rows.Next() {
		var b entity.Bill
		if err = rows.Scan(&b.ID, &b.BusinessID, &b.UserID, &b.CustomerID, &b.CustomerName, &b.Amount, &b.DueDate); err != nil {
			return nil, s.mapError(err)
		}
		bills = append(bills, b)
	}

	return bills, s.mapError(rows.Err())
}

const listDailyDigestsQuery = `
SELECT business_id, user_id,
       SUM(bill_due) AS bills_due_today,
       SUM(bill_overdue) AS bills_overdue,
       SUM(promise_due) AS promises_due,
       SUM(promise_overdue) AS promises_overdue
FROM (
    SELECT business_id, user_id,
           CASE WHEN due_date >= $1 THEN 1 ELSE 0 END AS bill_due,
           CASE WHEN due_date < $1 THEN 1 ELSE 0 END AS bill_overdue,
           0 AS promise_due, 0 AS promise_overdue
    FROM bills
    WHERE deleted_at IS NULL AND status = 'unpaid' AND due_date <= $2
    UNION ALL
    SELECT business_id, user_id,
           0, 0,
           CASE WHEN promise_at >= $1 THEN 1 ELSE 0 END,
           CASE WHEN promise_at < $1 THEN 1 ELSE 0 END
    FROM recovery_cases
    WHERE deleted_at IS NULL AND status = 'open' AND promise_at IS NOT NULL AND promise_at <= $2
) slice
GROUP BY business_id, user_id
ORDER BY business_id, user_id
LIMIT $3`

// ListDailyDigests aggregates, per user, how many bills and promises are due
// inside [dayStart, dayEnd] and how many are already overdue.
func (s *DB) ListDailyDigests(ctx context.Context, dayStart, dayEnd time.Time, limit int32) (_ []entity.DailyDigest, err error) {
	ctx, span := s.startSpan(ctx, "ListDailyDigests")
	defer func() { s.endSpan(span, err) }()

	rows, err := s.conn.Query(ctx, listDailyDigestsQuery, dayStart, dayEnd, limit)
	if err != nil {
		return nil, s.mapError(err)
	}
	defer rows.Close()

	var digests []entity.DailyDigest
	for rows.Next() {
		var d entity.DailyDigest
		if err = rows.Scan(&d.BusinessID, &d.UserID, &d.BillsDueToday, &d.BillsOverdue, &d.PromisesDue, &d.PromisesOverdue); err != nil {
			return nil, s.mapError(err)
		}
		digests = append(digests, d)
	}

	return digests, s.mapError(rows.Err())
}
