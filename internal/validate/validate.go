// Package validate turns free-text replies into typed values.
package validate

import (
	"strconv"
	"strings"
	"unicode"

	"github.com/badoux/checkmail"
	"github.com/shopspring/decimal"

	apperrors "github.com/ivanoskov/fintracker/internal/errors"
)

// Parser holds the limits the parsing functions check against.
type Parser struct {
	maxAmount decimal.Decimal
}

// NewParser returns a Parser rejecting amounts above maxAmount.
// A zero maxAmount disables the ceiling.
func NewParser(maxAmount decimal.Decimal) *Parser {
	return &Parser{maxAmount: maxAmount}
}

// MaxAmount returns the configured ceiling.
func (p *Parser) MaxAmount() decimal.Decimal {
	return p.maxAmount
}

// ParseAmount parses a strictly positive decimal not above the ceiling.
// The value is kept exact, no rounding is applied.
func (p *Parser) ParseAmount(token string) (decimal.Decimal, error) {
	token = strings.TrimSpace(token)
	amount, err := decimal.NewFromString(token)
	if err != nil {
		return decimal.Decimal{}, apperrors.Wrap(apperrors.KindInvalidAmount, "amount is not a number", err)
	}
	if !amount.IsPositive() {
		return decimal.Decimal{}, apperrors.New(apperrors.KindInvalidAmount, "amount must be positive")
	}
	if p.maxAmount.IsPositive() && amount.GreaterThan(p.maxAmount) {
		return decimal.Decimal{}, apperrors.New(apperrors.KindAmountExceedsLimit, "amount exceeds "+p.maxAmount.String())
	}
	return amount, nil
}

// ParseAmountAndDescription parses "Amount Description". The description is
// everything after the first run of whitespace, kept verbatim.
func (p *Parser) ParseAmountAndDescription(text string) (decimal.Decimal, string, error) {
	parts, err := ParseIdentifierAndRest(text, 2)
	if err != nil {
		return decimal.Decimal{}, "", err
	}
	amount, err := p.ParseAmount(parts[0])
	if err != nil {
		return decimal.Decimal{}, "", err
	}
	return amount, parts[1], nil
}

// ParseIdentifierAndRest splits text into exactly n parts: n-1 single tokens
// followed by the verbatim remainder. Fewer tokens fail with MalformedInput.
func ParseIdentifierAndRest(text string, n int) ([]string, error) {
	if n < 1 {
		return nil, apperrors.New(apperrors.KindMalformedInput, "nothing to parse")
	}
	rest := strings.TrimSpace(text)
	parts := make([]string, 0, n)
	for len(parts) < n-1 {
		if rest == "" {
			break
		}
		end := strings.IndexFunc(rest, unicode.IsSpace)
		if end < 0 {
			parts = append(parts, rest)
			rest = ""
			break
		}
		parts = append(parts, rest[:end])
		rest = strings.TrimLeftFunc(rest[end:], unicode.IsSpace)
	}
	if rest != "" {
		parts = append(parts, rest)
	}
	if len(parts) != n {
		return nil, apperrors.New(apperrors.KindMalformedInput, "expected "+expectedTokens(n))
	}
	return parts, nil
}

func expectedTokens(n int) string {
	if n == 1 {
		return "one value"
	}
	return "at least " + strconv.Itoa(n) + " values"
}

// Email checks the address syntax. No MX lookup is done.
func Email(addr string) error {
	addr = strings.TrimSpace(addr)
	if err := checkmail.ValidateFormat(addr); err != nil {
		return apperrors.Wrap(apperrors.KindMalformedInput, "invalid email", err)
	}
	return nil
}

// NonEmpty fails with MalformedInput on blank text.
func NonEmpty(text string) (string, error) {
	text = strings.TrimSpace(text)
	if text == "" {
		return "", apperrors.New(apperrors.KindMalformedInput, "input cannot be empty")
	}
	return text, nil
}
