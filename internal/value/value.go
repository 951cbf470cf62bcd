package value

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"
)

// Rules that fired for a document, recorded in run diagnostics.
const (
	RuleNoText        = "NO_TEXT"
	RuleExplicitBlock = "EXPLICIT_NET_VAT_BLOCK"
	RuleSingleTotal   = "SINGLE_TOTAL_LINE"
	RuleLabeledTotal  = "LABELED_TOTAL"
	RuleNotFound      = "NOT_FOUND"
)

// Loose money: decimals optional. Used for explicitly labelled net/vat/
// gross amounts where the label disambiguates.
const moneyRe = `([0-9][0-9,]*)(?:\.(\d{1,2}))?`

// Strict money: decimals required, so bare integers (PO numbers) are
// never mistaken for totals.
const totalMoneyRe = `(?:£\s*)?([0-9][0-9,]*)\.(\d{1,2})`

var (
	netAmountRe   = regexp.MustCompile(`(?i)\bNET\s+AMOUNT\s*[:\-]?\s*£?\s*` + moneyRe)
	vatAmountRe   = regexp.MustCompile(`(?i)\bVAT\s+AMOUNT\s*[:\-]?\s*£?\s*` + moneyRe)
	totalAmountRe = regexp.MustCompile(`(?i)\bTOTAL\s+AMOUNT\s*[:\-]?\s*£?\s*` + moneyRe)
	dueAmountRe   = regexp.MustCompile(`(?i)\bDUE\s+AMOUNT\s*[:\-]?\s*£?\s*` + moneyRe)

	singleTotalRe = regexp.MustCompile(`(?i)\bTOTAL\b\s*[:\-]?\s*` + totalMoneyRe + `\b`)

	labeledTotalRe = regexp.MustCompile(
		`(?i)\b(?:INVOICE\s+TOTAL|TOTAL\s+DUE|AMOUNT\s+DUE|BALANCE\s+DUE|GRAND\s+TOTAL|TOTAL\s+PAYABLE|TOTAL\s+TO\s+PAY)\b` +
			`\s*[:\-]?\s*` + totalMoneyRe + `\b`)
)

// Result carries extracted amounts in minor units and the rule that
// produced them.
type Result struct {
	Net   *int64
	Vat   *int64
	Gross *int64
	Rule  string
}

// MoneyToMinorUnits converts "1,796.25" -> 179625. An amount with no
// decimal point is whole units; a decimal part is taken as the first two
// digits only, never rounded.
func MoneyToMinorUnits(amount string) (int64, error) {
	s := strings.TrimSpace(amount)
	s = strings.ReplaceAll(s, "£", "")
	s = strings.ReplaceAll(s, ",", "")
	if s == "" {
		return 0, fmt.Errorf("blank amount")
	}

	whole := s
	minor := "00"
	if i := strings.IndexByte(s, '.'); i >= 0 {
		whole = s[:i]
		minor = s[i+1:] + "00"
		minor = minor[:2]
	}

	units, err := strconv.ParseInt(whole, 10, 64)
	if err != nil {
		return 0, fmt.Errorf("invalid amount %q: %w", amount, err)
	}
	cents, err := strconv.ParseInt(minor, 10, 64)
	if err != nil {
		return 0, fmt.Errorf("invalid amount %q: %w", amount, err)
	}

	return units*100 + cents, nil
}

// firstMatchMinor returns the first matched amount in minor units, or nil.
func firstMatchMinor(re *regexp.Regexp, text string) *int64 {
	m := re.FindStringSubmatch(text)
	if m == nil {
		return nil
	}

	num := m[1]
	if m[2] != "" {
		num = m[1] + "." + m[2]
	}

	v, err := MoneyToMinorUnits(num)
	if err != nil {
		return nil
	}
	return &v
}

// Extract applies the ordered value cascade:
//  1. explicit net/vat labels, gross from "total amount" falling back to
//     "due amount"
//  2. a strict single "Total" line (decimals required), gross only
//  3. a labelled terminal-total phrase (decimals required), gross only
//  4. nothing
func Extract(text string) Result {
	if strings.TrimSpace(text) == "" {
		return Result{Rule: RuleNoText}
	}

	net := firstMatchMinor(netAmountRe, text)
	vat := firstMatchMinor(vatAmountRe, text)

	if net != nil || vat != nil {
		gross := firstMatchMinor(totalAmountRe, text)
		if gross == nil {
			gross = firstMatchMinor(dueAmountRe, text)
		}
		return Result{Net: net, Vat: vat, Gross: gross, Rule: RuleExplicitBlock}
	}

	if gross := firstMatchMinor(singleTotalRe, text); gross != nil {
		return Result{Gross: gross, Rule: RuleSingleTotal}
	}

	if gross := firstMatchMinor(labeledTotalRe, text); gross != nil {
		return Result{Gross: gross, Rule: RuleLabeledTotal}
	}

	return Result{Rule: RuleNotFound}
}
