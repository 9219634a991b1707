// Package intake collects a new listing from sequential user answers:
// a strictly linear per-user state machine with no backward
// transitions (cancel restarts the whole draft).
package intake

import (
	"errors"
	"fmt"
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/wardshare/wardshare/pkg/models"
)

var (
	// ErrInvalidQuantity means the answer contained no positive
	// integer token.
	ErrInvalidQuantity = errors.New("no positive quantity found")

	// ErrInvalidDate means the answer matched none of the accepted
	// date patterns and was not the "not applicable" sentinel.
	ErrInvalidDate = errors.New("invalid date")
)

// NotApplicable is the canonical sentinel for fields the user marked
// as not applicable.
const NotApplicable = "N/A"

var firstInt = regexp.MustCompile(`\d+`)

// ExtractQuantity pulls the first integer token out of free text, so
// "10 boxes" yields 10. The original text is kept separately by the
// caller as a display label; only the number feeds stock accounting.
func ExtractQuantity(text string) (int, error) {
	m := firstInt.FindString(text)
	if m == "" {
		return 0, ErrInvalidQuantity
	}
	qty, err := strconv.Atoi(m)
	if err != nil || qty <= 0 {
		return 0, ErrInvalidQuantity
	}
	return qty, nil
}

// expiryFormats are the accepted date patterns, tried in order.
var expiryFormats = []string{"02/01/2006", models.ExpiryLayout, "2006-01-02"}

// ParseExpiry normalizes an expiry answer. "na", "n/a" and "none"
// (any case) mean not applicable; otherwise the answer must match one
// of the accepted date patterns and is normalized to DD/MM/YY.
func ParseExpiry(text string) (string, error) {
	t := strings.TrimSpace(text)
	if t == "" {
		return "", fmt.Errorf("%w: empty date", ErrInvalidDate)
	}
	switch strings.ToLower(t) {
	case "na", "n/a", "none":
		return NotApplicable, nil
	}
	for _, layout := range expiryFormats {
		if d, err := time.Parse(layout, t); err == nil {
			return d.Format(models.ExpiryLayout), nil
		}
	}
	return "", fmt.Errorf("%w: use DD/MM/YYYY or 'na'", ErrInvalidDate)
}

// ParseSize normalizes a size/volume answer; "na" variants become a
// readable placeholder rather than the raw sentinel.
func ParseSize(text string) string {
	t := strings.TrimSpace(text)
	switch strings.ToLower(t) {
	case "na", "n/a":
		return "Not applicable"
	}
	return t
}

// IsSkip reports whether the answer is the literal photo skip token.
func IsSkip(text string) bool {
	return strings.EqualFold(strings.TrimSpace(text), "skip")
}
