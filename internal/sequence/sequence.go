// Package sequence issues year-scoped, prefix-tagged tracking numbers such as
// BO-2025-00001.
//
// Uniqueness never depends on counting existing rows. A Counter hands out
// strictly increasing values per (prefix, year) scope, and callers that still
// observe a duplicate (a stale or misbehaving counter, or a number inserted
// out of band) retry the whole unit of work through Retry.
package sequence

import (
	"context"
	"errors"
	"fmt"
	"regexp"
	"strconv"

	dErrors "civitas/pkg/domain-errors"
	"civitas/pkg/platform/sentinel"
	"civitas/pkg/requestcontext"
)

// Width is the zero-padded width of the numeric suffix.
const Width = 5

// DefaultAttempts bounds Retry when the caller passes a non-positive value.
const DefaultAttempts = 3

var (
	prefixPattern = regexp.MustCompile(`^[A-Z]+$`)
	numberPattern = regexp.MustCompile(`^([A-Z]+)-(\d{4})-(\d{5,})$`)
)

// Counter atomically increments and returns the counter for a scope.
// Returned values are strictly greater than any value previously returned for
// the same scope. Gaps are allowed.
type Counter interface {
	Next(ctx context.Context, prefix string, year int) (int64, error)
}

// Seeder is implemented by counters that can be raised to a floor, so a
// counter that fell behind the stored numbers catches up instead of
// colliding on every allocation.
type Seeder interface {
	Seed(ctx context.Context, prefix string, year int, last int64) error
}

// Number is a parsed tracking number.
type Number struct {
	Prefix string
	Year   int
	Seq    int64
}

func (n Number) String() string {
	return Format(n.Prefix, n.Year, n.Seq)
}

// Format renders {PREFIX}-{year}-{seq} with the suffix padded to Width.
func Format(prefix string, year int, seq int64) string {
	return fmt.Sprintf("%s-%04d-%0*d", prefix, year, Width, seq)
}

// Parse splits a tracking number into its parts.
func Parse(s string) (Number, error) {
	m := numberPattern.FindStringSubmatch(s)
	if m == nil {
		return Number{}, dErrors.New(dErrors.CodeInvalidInput, "malformed tracking number")
	}
	year, _ := strconv.Atoi(m[2])
	seq, err := strconv.ParseInt(m[3], 10, 64)
	if err != nil {
		return Number{}, dErrors.New(dErrors.CodeInvalidInput, "malformed tracking number")
	}
	return Number{Prefix: m[1], Year: year, Seq: seq}, nil
}

// ValidPrefix reports whether p is a non-empty run of upper-case ASCII letters.
func ValidPrefix(p string) bool {
	return prefixPattern.MatchString(p)
}

// Generator formats counter values into tracking numbers. The year comes
// from the request-scoped clock.
type Generator struct {
	counter Counter
}

func NewGenerator(counter Counter) *Generator {
	return &Generator{counter: counter}
}

// Next allocates the next tracking number for prefix in the current year.
func (g *Generator) Next(ctx context.Context, prefix string) (string, error) {
	if !ValidPrefix(prefix) {
		return "", dErrors.New(dErrors.CodeInvariantViolation, "sequence prefix must be upper-case letters")
	}
	year := requestcontext.Now(ctx).Year()
	n, err := g.counter.Next(ctx, prefix, year)
	if err != nil {
		if errors.Is(err, sentinel.ErrUnavailable) {
			return "", dErrors.Wrap(err, dErrors.CodeUnavailable, "numbering service unavailable")
		}
		return "", fmt.Errorf("next %s number: %w", prefix, err)
	}
	if n <= 0 {
		return "", dErrors.New(dErrors.CodeInternal, "sequence counter returned a non-positive value")
	}
	return Format(prefix, year, n), nil
}

// Raise lifts the counter for (prefix, year) to at least last. Counters
// that cannot be seeded are left alone.
func (g *Generator) Raise(ctx context.Context, prefix string, year int, last int64) error {
	seeder, ok := g.counter.(Seeder)
	if !ok || last <= 0 {
		return nil
	}
	if err := seeder.Seed(ctx, prefix, year, last); err != nil {
		return fmt.Errorf("raise %s/%d to %d: %w", prefix, year, last, err)
	}
	return nil
}

// IsDuplicate reports whether err signals a collision of a generated
// identifier: a tracking number or a feedback code. Both are cured by
// running the submission again.
func IsDuplicate(err error) bool {
	return errors.Is(err, sentinel.ErrDuplicateNumber) ||
		errors.Is(err, sentinel.ErrDuplicateCode) ||
		dErrors.HasCode(err, dErrors.CodeDuplicateNumber)
}

// Retry runs fn until it succeeds, fails with anything other than a
// duplicate number, or attempts run out. Each call to fn must be a complete
// unit of work: a collision rolls the whole attempt back. Exhaustion surfaces
// as a transient CodeUnavailable error.
func Retry(ctx context.Context, attempts int, fn func(attempt int) error) error {
	if attempts <= 0 {
		attempts = DefaultAttempts
	}
	var last error
	for attempt := 1; attempt <= attempts; attempt++ {
		if err := ctx.Err(); err != nil {
			return dErrors.Wrap(err, dErrors.CodeTimeout, "number allocation aborted")
		}
		last = fn(attempt)
		if last == nil || !IsDuplicate(last) {
			return last
		}
	}
	return dErrors.Wrap(last, dErrors.CodeUnavailable, "could not allocate a unique tracking number, please try again")
}
