package worklist

import (
	"strings"

	"github.com/finopslabs/apinbox/internal/models"
	"github.com/finopslabs/apinbox/internal/repository"
)

// Actions surfaced to AP staff.
const (
	ActionReadyToPost  = "READY TO POST"
	ActionManualReview = "MANUAL REVIEW"
	ActionNotPresent   = "NOT CURRENTLY PRESENT"
)

// Outcome is the classification for one invoice: what to do, why, and
// where it sits in the queue (lower priority = earlier attention).
type Outcome struct {
	NextAction   string
	ActionReason string
	Priority     int
}

// Rule is one precedence entry: the first rule whose predicate matches
// decides the outcome. Modelling the chain as data keeps the precedence
// order testable rule by rule.
type Rule struct {
	Name    string
	Applies func(row repository.ClassifierRow) bool
	Outcome Outcome
}

var knownValidationStatuses = map[string]struct{}{
	models.ValidationUnvalidated:    {},
	models.ValidationPONotInMaster:  {},
	models.ValidationPONotOpen:      {},
	models.ValidationPONotConfirmed: {},
	models.ValidationValidPO:        {},
}

func singleWithValidation(status string) func(repository.ClassifierRow) bool {
	return func(row repository.ClassifierRow) bool {
		return row.POMatchStatus == models.POMatchSinglePO &&
			row.POValidationStatus == status
	}
}

// Rules is the full precedence table, evaluated top to bottom.
var Rules = []Rule{
	{
		Name:    "not-present",
		Applies: func(row repository.ClassifierRow) bool { return !row.IsCurrentlyPresent },
		Outcome: Outcome{ActionNotPresent, "NOT IN INBOX THIS SCAN", 90},
	},
	{
		Name:    "no-text-layer",
		Applies: func(row repository.ClassifierRow) bool { return row.POMatchStatus == models.POMatchNoTextLayer },
		Outcome: Outcome{ActionManualReview, "NO TEXT LAYER", 10},
	},
	{
		Name:    "missing-po",
		Applies: func(row repository.ClassifierRow) bool { return row.POMatchStatus == models.POMatchMissingPO },
		Outcome: Outcome{ActionManualReview, "MISSING PO", 20},
	},
	{
		Name:    "multiple-pos",
		Applies: func(row repository.ClassifierRow) bool { return row.POMatchStatus == models.POMatchMultiplePOs },
		Outcome: Outcome{ActionManualReview, "MULTIPLE POS DETECTED", 30},
	},
	{
		Name:    "po-not-open",
		Applies: singleWithValidation(models.ValidationPONotOpen),
		Outcome: Outcome{ActionManualReview, "PO NOT OPEN", 35},
	},
	{
		Name:    "po-not-confirmed",
		Applies: singleWithValidation(models.ValidationPONotConfirmed),
		Outcome: Outcome{ActionManualReview, "PO NOT CONFIRMED", 36},
	},
	{
		Name:    "po-not-in-master",
		Applies: singleWithValidation(models.ValidationPONotInMaster),
		Outcome: Outcome{ActionManualReview, "PO NOT IN MASTER", 40},
	},
	{
		Name:    "po-unvalidated",
		Applies: singleWithValidation(models.ValidationUnvalidated),
		Outcome: Outcome{ActionManualReview, "PO NOT VALIDATED YET", 50},
	},
	{
		Name: "po-validation-unknown",
		Applies: func(row repository.ClassifierRow) bool {
			if row.POMatchStatus != models.POMatchSinglePO {
				return false
			}
			_, known := knownValidationStatuses[row.POValidationStatus]
			return !known
		},
		Outcome: Outcome{ActionManualReview, "UNKNOWN PO VALIDATION STATUS", 55},
	},
	{
		Name:    "ready-to-post",
		Applies: func(row repository.ClassifierRow) bool { return row.ReadyToPost },
		Outcome: Outcome{ActionReadyToPost, "VALID PO", 5},
	},
	{
		Name:    "gross-missing",
		Applies: func(row repository.ClassifierRow) bool { return row.GrossTotal == nil },
		Outcome: Outcome{ActionManualReview, "GROSS TOTAL NOT EXTRACTED", 60},
	},
	{
		// Catch-all; a hit here signals a gap in the rule set
		Name:    "unclassified",
		Applies: func(row repository.ClassifierRow) bool { return true },
		Outcome: Outcome{ActionManualReview, "UNCLASSIFIED STATE", 80},
	},
}

// ClassifyRow evaluates the precedence table: first match wins.
func ClassifyRow(row repository.ClassifierRow) Outcome {
	row.POMatchStatus = strings.TrimSpace(row.POMatchStatus)
	row.POValidationStatus = strings.TrimSpace(row.POValidationStatus)

	for _, rule := range Rules {
		if rule.Applies(row) {
			return rule.Outcome
		}
	}

	// Unreachable: the last rule always applies
	return Outcome{ActionManualReview, "UNCLASSIFIED STATE", 80}
}

// SenderDomain extracts a display domain from a sender identifier:
// SMTP addresses yield their domain, Exchange legacy DNs ("/O=...") map
// to "internal", anything else yields nil.
func SenderDomain(senderAddress *string) *string {
	if senderAddress == nil {
		return nil
	}

	s := strings.TrimSpace(*senderAddress)
	if s == "" {
		return nil
	}

	if strings.HasPrefix(s, "/O=") || strings.HasPrefix(s, `\O=`) {
		internal := "internal"
		return &internal
	}

	if i := strings.IndexByte(s, '@'); i >= 0 {
		dom := strings.ToLower(strings.TrimSpace(s[i+1:]))
		if dom == "" {
			return nil
		}
		return &dom
	}

	return nil
}
