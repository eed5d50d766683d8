package recon

import (
	"encoding/csv"
	"fmt"
	"io"
	"strconv"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"github.com/ledgerline/ledgerline/internal/ledger"
)

// Layout enumerates the supported bank statement CSV shapes. Classification
// is deterministic: column count first, header keywords to break ties.
type Layout string

const (
	// LayoutThreeColumn is date, description, signed amount.
	LayoutThreeColumn Layout = "THREE_COLUMN"
	// LayoutFourColumn is date, description, debit, credit. Exactly one of
	// debit and credit is set per row; debits are money leaving the account.
	LayoutFourColumn Layout = "FOUR_COLUMN"
	// LayoutFiveColumn is date, reference, description, signed amount,
	// balance after the transaction.
	LayoutFiveColumn Layout = "FIVE_COLUMN"
)

// ParsedTransaction is one successfully parsed statement row.
type ParsedTransaction struct {
	Date        time.Time
	Reference   string
	Description string
	Amount      ledger.Money
	Balance     *ledger.Money
}

// RowError reports one rejected row by its 1-based position in the file.
type RowError struct {
	Row int
	Err error
}

func (e RowError) Error() string { return fmt.Sprintf("row %d: %v", e.Row, e.Err) }

func (e RowError) Unwrap() error { return e.Err }

// ParseResult carries parsed rows and per-row rejections. A bad row never
// aborts the import; it is reported and skipped.
type ParseResult struct {
	Layout       Layout
	Transactions []ParsedTransaction
	Errors       []RowError
}

// ParseStatement reads a statement CSV, classifies its layout from the first
// row, and parses every data row with the layout's dedicated parser.
func ParseStatement(r io.Reader) (ParseResult, error) {
	reader := csv.NewReader(r)
	reader.FieldsPerRecord = -1
	reader.TrimLeadingSpace = true

	records, err := reader.ReadAll()
	if err != nil {
		return ParseResult{}, fmt.Errorf("recon: reading csv: %w", err)
	}
	if len(records) == 0 {
		return ParseResult{}, ErrEmptyStatement
	}

	layout, err := DetectLayout(records[0])
	if err != nil {
		return ParseResult{}, err
	}
	start := 0
	if isHeader(records[0]) {
		start = 1
	}
	if start >= len(records) {
		return ParseResult{}, ErrEmptyStatement
	}

	parse := parserFor(layout)
	result := ParseResult{Layout: layout}
	for i := start; i < len(records); i++ {
		record := records[i]
		if len(record) == 1 && strings.TrimSpace(record[0]) == "" {
			continue
		}
		tx, err := parse(record)
		if err != nil {
			result.Errors = append(result.Errors, RowError{Row: i + 1, Err: err})
			continue
		}
		result.Transactions = append(result.Transactions, tx)
	}
	return result, nil
}

// DetectLayout classifies a record by column count. Four columns could also
// be date/ref/description/amount, so the header keywords debit or credit
// decide; without a header the four-column debit/credit shape is assumed.
func DetectLayout(record []string) (Layout, error) {
	switch len(record) {
	case 3:
		return LayoutThreeColumn, nil
	case 4:
		return LayoutFourColumn, nil
	case 5:
		return LayoutFiveColumn, nil
	}
	return "", fmt.Errorf("%w: %d columns", ErrUnknownLayout, len(record))
}

func parserFor(layout Layout) func([]string) (ParsedTransaction, error) {
	switch layout {
	case LayoutFourColumn:
		return parseFourColumn
	case LayoutFiveColumn:
		return parseFiveColumn
	default:
		return parseThreeColumn
	}
}

var headerKeywords = []string{"date", "description", "amount", "debit", "credit", "balance", "reference", "memo", "narrative"}

func isHeader(record []string) bool {
	for _, field := range record {
		lower := strings.ToLower(strings.TrimSpace(field))
		for _, keyword := range headerKeywords {
			if lower == keyword || strings.HasPrefix(lower, keyword+" ") {
				return true
			}
		}
	}
	return false
}

func parseThreeColumn(record []string) (ParsedTransaction, error) {
	if len(record) != 3 {
		return ParsedTransaction{}, fmt.Errorf("expected 3 columns, got %d", len(record))
	}
	date, err := parseDate(record[0])
	if err != nil {
		return ParsedTransaction{}, err
	}
	amount, err := parseMoney(record[2])
	if err != nil {
		return ParsedTransaction{}, err
	}
	return ParsedTransaction{Date: date, Description: strings.TrimSpace(record[1]), Amount: amount}, nil
}

func parseFourColumn(record []string) (ParsedTransaction, error) {
	if len(record) != 4 {
		return ParsedTransaction{}, fmt.Errorf("expected 4 columns, got %d", len(record))
	}
	date, err := parseDate(record[0])
	if err != nil {
		return ParsedTransaction{}, err
	}
	debitRaw := strings.TrimSpace(record[2])
	creditRaw := strings.TrimSpace(record[3])
	if (debitRaw == "") == (creditRaw == "") {
		return ParsedTransaction{}, fmt.Errorf("exactly one of debit and credit must be set")
	}
	var amount ledger.Money
	if debitRaw != "" {
		v, err := parseMoney(debitRaw)
		if err != nil {
			return ParsedTransaction{}, err
		}
		if v < 0 {
			v = -v
		}
		amount = -v
	} else {
		v, err := parseMoney(creditRaw)
		if err != nil {
			return ParsedTransaction{}, err
		}
		if v < 0 {
			v = -v
		}
		amount = v
	}
	return ParsedTransaction{Date: date, Description: strings.TrimSpace(record[1]), Amount: amount}, nil
}

func parseFiveColumn(record []string) (ParsedTransaction, error) {
	if len(record) != 5 {
		return ParsedTransaction{}, fmt.Errorf("expected 5 columns, got %d", len(record))
	}
	date, err := parseDate(record[0])
	if err != nil {
		return ParsedTransaction{}, err
	}
	amount, err := parseMoney(record[3])
	if err != nil {
		return ParsedTransaction{}, err
	}
	balance, err := parseMoney(record[4])
	if err != nil {
		return ParsedTransaction{}, err
	}
	return ParsedTransaction{
		Date:        date,
		Reference:   strings.TrimSpace(record[1]),
		Description: strings.TrimSpace(record[2]),
		Amount:      amount,
		Balance:     &balance,
	}, nil
}

// parseMoney converts a bank-formatted amount into minor units exactly.
// Accepts currency symbols, thousands separators, and parenthesized
// negatives. More than two decimal places is an error, never a rounding.
func parseMoney(s string) (ledger.Money, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return 0, fmt.Errorf("empty amount")
	}
	negative := false
	if strings.HasPrefix(s, "(") && strings.HasSuffix(s, ")") {
		negative = true
		s = s[1 : len(s)-1]
	}
	var b strings.Builder
	for _, r := range s {
		switch {
		case r >= '0' && r <= '9', r == '.', r == '-':
			b.WriteRune(r)
		case r == ',', r == ' ', r == '$', r == '€', r == '£':
		default:
			return 0, fmt.Errorf("invalid amount %q", s)
		}
	}
	d, err := decimal.NewFromString(b.String())
	if err != nil {
		return 0, fmt.Errorf("invalid amount %q", s)
	}
	shifted := d.Shift(2)
	if !shifted.IsInteger() {
		return 0, fmt.Errorf("amount %q has more than two decimal places", s)
	}
	v := shifted.IntPart()
	if negative {
		v = -v
	}
	return ledger.Money(v), nil
}

// parseDate accepts ISO dates and separated day/month/year forms. When both
// day and month are 12 or less the form is ambiguous; day-first wins, the
// convention of the bank exports this importer was built against.
func parseDate(s string) (time.Time, error) {
	s = strings.TrimSpace(s)
	if t, err := time.Parse("2006-01-02", s); err == nil {
		return t, nil
	}
	normalized := strings.NewReplacer("-", "/", ".", "/").Replace(s)
	parts := strings.Split(normalized, "/")
	if len(parts) != 3 {
		return time.Time{}, fmt.Errorf("invalid date %q", s)
	}
	if len(parts[0]) == 4 {
		return buildDate(parts[0], parts[1], parts[2], s)
	}
	a, err := strconv.Atoi(parts[0])
	if err != nil {
		return time.Time{}, fmt.Errorf("invalid date %q", s)
	}
	b, err := strconv.Atoi(parts[1])
	if err != nil {
		return time.Time{}, fmt.Errorf("invalid date %q", s)
	}
	day, month := parts[0], parts[1]
	if a <= 12 && b > 12 {
		day, month = parts[1], parts[0]
	}
	return buildDate(parts[2], month, day, s)
}

func buildDate(yearRaw, monthRaw, dayRaw, original string) (time.Time, error) {
	year, err := strconv.Atoi(yearRaw)
	if err != nil {
		return time.Time{}, fmt.Errorf("invalid date %q", original)
	}
	if len(yearRaw) == 2 {
		if year < 70 {
			year += 2000
		} else {
			year += 1900
		}
	}
	month, err := strconv.Atoi(monthRaw)
	if err != nil {
		return time.Time{}, fmt.Errorf("invalid date %q", original)
	}
	day, err := strconv.Atoi(dayRaw)
	if err != nil {
		return time.Time{}, fmt.Errorf("invalid date %q", original)
	}
	t := time.Date(year, time.Month(month), day, 0, 0, 0, 0, time.UTC)
	if t.Year() != year || t.Month() != time.Month(month) || t.Day() != day {
		return time.Time{}, fmt.Errorf("invalid date %q", original)
	}
	return t, nil
}
