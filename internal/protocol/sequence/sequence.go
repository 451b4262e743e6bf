// Package sequence owns the human-readable protocol number format: a 5-digit
// zero-padded sequence, a slash, and the 4-digit year (for example
// "00042/2025"). The sequence restarts each year and is derived from the
// authoritative store, never from an in-process counter, so numbering
// survives restarts and concurrent writers.
package sequence

import (
	"context"
	"fmt"
	"regexp"
	"strconv"

	dErrors "sipro/pkg/domain-errors"
)

// Pattern is the wire format every protocol number must match.
var Pattern = regexp.MustCompile(`^\d{5}/\d{4}$`)

// MaxStore is the slice of the protocol store the generator needs: the
// highest sequence already persisted for a year (0 when the year is empty).
type MaxStore interface {
	MaxSequenceForYear(ctx context.Context, year int) (int, error)
}

// Generator computes the next protocol number for a year.
//
// Next is a read-then-write hazard under concurrency: two callers can read
// the same maximum and format the same number. The lifecycle engine
// therefore runs Next inside the creation transaction and retries on the
// store's unique-constraint conflict.
type Generator struct {
	store MaxStore
}

func NewGenerator(store MaxStore) *Generator {
	return &Generator{store: store}
}

// Next returns the next number for the year: highest existing sequence + 1,
// starting at 1 when the year has none.
func (g *Generator) Next(ctx context.Context, year int) (string, error) {
	max, err := g.store.MaxSequenceForYear(ctx, year)
	if err != nil {
		return "", dErrors.Wrap(err, dErrors.CodeInternal, "failed to read last protocol number")
	}
	return Format(max+1, year), nil
}

// Format renders a sequence/year pair in the canonical format.
func Format(seq, year int) string {
	return fmt.Sprintf("%05d/%04d", seq, year)
}

// Parse splits a protocol number into its sequence and year.
func Parse(number string) (seq, year int, err error) {
	if !Pattern.MatchString(number) {
		return 0, 0, dErrors.Newf(dErrors.CodeInvalidInput, "malformed protocol number %q", number)
	}
	seq, _ = strconv.Atoi(number[:5])
	year, _ = strconv.Atoi(number[6:])
	return seq, year, nil
}
