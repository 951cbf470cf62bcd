package detect

import (
	"fmt"
	"regexp"
	"strings"

	"github.com/finopslabs/apinbox/internal/models"
)

// Hyphen-like Unicode dashes are treated as plain hyphens.
const dashChars = `\-\x{2010}-\x{2015}`

// Canonical POs carry six digits.
const poDigits = `([0-9]{6})`

// Pattern is one PO detection variant: a regex that finds a candidate
// token, a normalizer producing the canonical PO-XXXXXX form, and an
// optional guard that can suppress overlapping or false-positive matches.
type Pattern struct {
	Regex     *regexp.Regexp
	Normalize func(digits string) (string, error)
	Allow     func(text string, start int) bool
}

// NormalizePODigits strips non-digits and renders the canonical form.
func NormalizePODigits(digits string) (string, error) {
	cleaned := strings.Map(func(r rune) rune {
		if r >= '0' && r <= '9' {
			return r
		}
		return -1
	}, digits)

	if len(cleaned) != 6 {
		return "", fmt.Errorf("invalid PO digits %q", digits)
	}

	return "PO-" + cleaned, nil
}

var markerSeparators = regexp.MustCompile(`[\s` + dashChars + `]+`)

// allowBareMatch suppresses a bare six-digit match immediately preceded
// (ignoring whitespace and dashes) by a PO marker, so the same reference
// is not counted twice via two rules.
func allowBareMatch(text string, start int) bool {
	if start == 0 {
		return true
	}

	from := start - 16
	if from < 0 {
		from = 0
	}
	window := text[from:start]
	collapsed := strings.ToUpper(markerSeparators.ReplaceAllString(window, ""))

	return !strings.HasSuffix(collapsed, "PO")
}

// Patterns is the ordered detection cascade. Order matters: identifiers
// are collected in first-match order across all patterns.
var Patterns = []Pattern{
	// Explicit "PO-123456" or "PO – 123456"
	{
		Regex:     regexp.MustCompile(`(?i)\bPO\s*[` + dashChars + `]\s*` + poDigits + `\b`),
		Normalize: NormalizePODigits,
	},
	// "PO: 123456" or "PO # : 123456"
	{
		Regex:     regexp.MustCompile(`(?i)\bPO\s*#?\s*:\s*` + poDigits + `\b`),
		Normalize: NormalizePODigits,
	},
	// "Purchase Order: 123456" (optionally includes "PO-")
	{
		Regex:     regexp.MustCompile(`(?i)\bPurchase\s*Order\s*[:#]?\s*(?:PO\s*[` + dashChars + `]\s*)?` + poDigits + `\b`),
		Normalize: NormalizePODigits,
	},
	// Bare 6-digit token, suppressed when a PO marker directly precedes it
	{
		Regex:     regexp.MustCompile(`\b` + poDigits + `\b`),
		Normalize: NormalizePODigits,
		Allow:     allowBareMatch,
	},
}

// DetectPONumbers applies the cascade in order and returns unique
// canonical identifiers in first-seen order. Deterministic for fixed
// input.
func DetectPONumbers(text string) []string {
	if text == "" {
		return nil
	}

	seen := make(map[string]struct{})
	var ordered []string

	for _, pattern := range Patterns {
		for _, idx := range pattern.Regex.FindAllStringSubmatchIndex(text, -1) {
			start := idx[0]
			if pattern.Allow != nil && !pattern.Allow(text, start) {
				continue
			}

			po, err := pattern.Normalize(text[idx[2]:idx[3]])
			if err != nil {
				continue
			}

			if _, ok := seen[po]; !ok {
				seen[po] = struct{}{}
				ordered = append(ordered, po)
			}
		}
	}

	return ordered
}

// Result is one document's detection outcome.
type Result struct {
	PONumbers   []string
	POCount     int
	MatchStatus string
}

// Classify turns extracted text and its detected identifiers into a
// detection status.
func Classify(text string, poNumbers []string) Result {
	if strings.TrimSpace(text) == "" {
		return Result{MatchStatus: models.POMatchNoTextLayer}
	}

	switch len(poNumbers) {
	case 0:
		return Result{MatchStatus: models.POMatchMissingPO}
	case 1:
		return Result{PONumbers: poNumbers, POCount: 1, MatchStatus: models.POMatchSinglePO}
	default:
		return Result{PONumbers: poNumbers, POCount: len(poNumbers), MatchStatus: models.POMatchMultiplePOs}
	}
}

// FileMissing is the outcome for a document whose staged source file
// cannot be located; extraction is never attempted.
func FileMissing() Result {
	return Result{MatchStatus: models.POMatchFileMissing}
}
