// Package repository implements all database queries for the ticket checkout system.
// It uses pgx directly (no ORM) for transparency and performance.
package repository

import (
	"errors"
	"fmt"
	"strings"

	"github.com/jackc/pgx/v5/pgconn"
)

// ErrNotFound is returned when a requested resource does not exist.
var ErrNotFound = errors.New("not found")

// ErrStockExhausted is returned when issuance finds fewer tickets left than
// the session paid for.
var ErrStockExhausted = errors.New("ticket stock exhausted")

// ErrDuplicateCode is returned when a redemption code already exists.
var ErrDuplicateCode = errors.New("redemption code already issued")

// StockError names the ticket type that ran out during issuance.
type StockError struct {
	TicketTypeID int64
	Requested    int
	Available    int
}

func (e *StockError) Error() string {
	return fmt.Sprintf("ticket type %d: requested %d, available %d", e.TicketTypeID, e.Requested, e.Available)
}

func (e *StockError) Unwrap() error { return ErrStockExhausted }

func isUniqueViolation(err error) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == "23505"
}

var likeEscaper = strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`)

// prefixPattern builds a LIKE pattern matching strings that start with prefix.
func prefixPattern(prefix string) string {
	return likeEscaper.Replace(prefix) + "%"
}
