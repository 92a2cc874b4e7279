package services

import (
	"errors"
	"strings"

	"github.com/shopspring/decimal"

	"dns-price-bot/models"
)

var errEmptyPrice = errors.New("no digits")

// ParsePrice converts display text like "1 234,50 р." into a decimal.
// Everything but digits, commas and periods is dropped, a comma counts as a decimal point,
// and when several points remain only the first one separates the fraction.
func ParsePrice(raw string) (decimal.Decimal, error) {
	var b strings.Builder
	for _, r := range raw {
		switch {
		case r >= '0' && r <= '9':
			b.WriteRune(r)
		case r == ',' || r == '.':
			b.WriteRune('.')
		}
	}
	cleaned := b.String()

	if strings.Count(cleaned, ".") > 1 {
		parts := strings.Split(cleaned, ".")
		cleaned = parts[0] + "." + strings.Join(parts[1:], "")
	}
	cleaned = strings.TrimSuffix(cleaned, ".")
	if strings.HasPrefix(cleaned, ".") {
		cleaned = "0" + cleaned
	}
	if cleaned == "" {
		return decimal.Zero, &models.ParseError{Input: raw, Err: errEmptyPrice}
	}

	d, err := decimal.NewFromString(cleaned)
	if err != nil {
		return decimal.Zero, &models.ParseError{Input: raw, Err: err}
	}
	return d, nil
}
