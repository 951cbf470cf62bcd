package worklist

import (
	"context"
	"fmt"
	"sort"

	"github.com/google/uuid"

	"github.com/finopslabs/apinbox/internal/models"
	"github.com/finopslabs/apinbox/internal/repository"
	"github.com/finopslabs/apinbox/internal/utils"
)

// Options control which rows a classifier run considers.
type Options struct {
	OnlyCurrentlyPresent bool
	IncludeReadyToPost   bool
}

// DefaultOptions matches the operational run: present invoices only,
// ready-to-post items included.
func DefaultOptions() Options {
	return Options{OnlyCurrentlyPresent: true, IncludeReadyToPost: true}
}

// Classifier turns invoice truth into the ranked worklist.
type Classifier struct {
	store   *repository.Store
	logger  *utils.Logger
	opts    Options
	verbose bool
}

func NewClassifier(store *repository.Store, logger *utils.Logger, opts Options, verbose bool) *Classifier {
	return &Classifier{store: store, logger: logger, opts: opts, verbose: verbose}
}

// Build computes worklist items from classifier rows. Pure: no side
// effects, deterministic ordering by (priority, document fingerprint).
func Build(rows []repository.ClassifierRow, opts Options, generatedAtUTC string) []models.WorkItem {
	items := make([]models.WorkItem, 0, len(rows))

	for _, row := range rows {
		outcome := ClassifyRow(row)

		if !opts.IncludeReadyToPost && outcome.NextAction == ActionReadyToPost {
			continue
		}

		items = append(items, models.WorkItem{
			DocumentHash:       row.DocumentHash,
			SenderDomain:       SenderDomain(row.SenderAddress),
			EmailSubject:       row.EmailSubject,
			AttachmentName:     row.AttachmentName,
			ReceivedDatetime:   row.ReceivedDatetime,
			NextAction:         outcome.NextAction,
			ActionReason:       outcome.ActionReason,
			Priority:           outcome.Priority,
			GeneratedAtUTC:     generatedAtUTC,
			IsCurrentlyPresent: row.IsCurrentlyPresent,
		})
	}

	sort.Slice(items, func(i, j int) bool {
		if items[i].Priority != items[j].Priority {
			return items[i].Priority < items[j].Priority
		}
		return items[i].DocumentHash < items[j].DocumentHash
	})

	return items
}

// Summary reports one classifier run.
type Summary struct {
	RunID string `json:"run_id"`
	Items int    `json:"items"`
}

// Run refreshes the worklist inside one transaction: compute the full
// set from current truth, fully replace the current table, and append a
// history snapshot under a fresh run identifier.
func (c *Classifier) Run(ctx context.Context) (*Summary, error) {
	runID := uuid.New().String()
	generatedAt := utils.NowUTCISO()
	summary := &Summary{RunID: runID}

	err := c.store.WithTx(ctx, func(tx *repository.Tx) error {
		rows, err := tx.ClassifierRows(ctx, c.opts.OnlyCurrentlyPresent)
		if err != nil {
			return err
		}

		items := Build(rows, c.opts, generatedAt)
		summary.Items = len(items)

		if err := tx.ReplaceWorklist(ctx, runID, items); err != nil {
			return err
		}

		if c.verbose {
			c.logActionChanges(ctx, tx, runID)
		}

		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("worklist stage failed: %w", err)
	}

	return summary, nil
}

func (c *Classifier) logActionChanges(ctx context.Context, tx *repository.Tx, runID string) {
	prev, err := tx.PreviousRunID(ctx, runID)
	if err != nil || prev == "" {
		c.logger.Debug("first worklist run, no prior run to compare", "run_id", runID)
		return
	}

	changes, err := tx.ActionChanges(ctx, prev, runID)
	if err != nil {
		c.logger.Debug("failed to compute action changes", "error", err)
		return
	}

	total := 0
	for _, ch := range changes {
		total += ch.Count
		c.logger.Debug("action change",
			"from", ch.PrevAction,
			"to", ch.CurrAction,
			"count", ch.Count)
	}
	c.logger.Debug("worklist delta", "run_id", runID, "prev_run_id", prev, "changed", total)
}
