package service

import (
	"context"
	"errors"
	"fmt"
	"log"
	"strconv"
	"strings"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
)

const orderNumberPrefix = "FTP-"

// orderNumberConstraint is the unique constraint on orders.order_number.
const orderNumberConstraint = "orders_order_number_key"

// SequenceStore reads the highest assigned order number.
type SequenceStore interface {
	GetLatestOrderNumber(ctx context.Context) (string, error)
}

// nextOrderNumber returns the number for the next order. It must run inside
// the transaction that inserts the order. Two concurrent creates can still
// read the same predecessor; the unique constraint rejects the loser.
func nextOrderNumber(ctx context.Context, store SequenceStore) (string, error) {
	last, err := store.GetLatestOrderNumber(ctx)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return formatOrderNumber(1), nil
		}
		return "", fmt.Errorf("get latest order number: %w", err)
	}

	n, ok := parseOrderNumber(last)
	if !ok {
		log.Printf("WARN: cannot parse order number %q, restarting sequence at 1", last)
		return formatOrderNumber(1), nil
	}
	return formatOrderNumber(n + 1), nil
}

func parseOrderNumber(s string) (int, bool) {
	rest, found := strings.CutPrefix(s, orderNumberPrefix)
	if !found {
		return 0, false
	}
	n, err := strconv.Atoi(rest)
	if err != nil || n < 0 {
		return 0, false
	}
	return n, true
}

func formatOrderNumber(n int) string {
	return fmt.Sprintf("%s%04d", orderNumberPrefix, n)
}

// isOrderNumberConflict checks if the error is a unique constraint violation
// on the order number (pgconn error code 23505).
func isOrderNumberConflict(err error) bool {
	return isUniqueViolation(err, orderNumberConstraint)
}

func isUniqueViolation(err error, constraint string) bool {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		return pgErr.Code == "23505" && pgErr.ConstraintName == constraint
	}
	return false
}
