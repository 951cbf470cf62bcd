package repository

import (
	"context"
	"fmt"

	"github.com/finopslabs/apinbox/internal/models"
)

// ClassifierRow is the truth snapshot the worklist classifier reads for
// one invoice, with display identity joined from the owning message.
type ClassifierRow struct {
	DocumentHash       string  `db:"document_hash"`
	IsCurrentlyPresent bool    `db:"is_currently_present"`
	POMatchStatus      string  `db:"po_match_status"`
	POValidationStatus string  `db:"po_validation_status"`
	ReadyToPost        bool    `db:"ready_to_post"`
	GrossTotal         *int64  `db:"gross_total"`
	AttachmentName     *string `db:"attachment_name"`
	SenderAddress      *string `db:"sender_address"`
	EmailSubject       *string `db:"email_subject"`
	ReceivedDatetime   *string `db:"received_datetime"`
}

// ClassifierRows returns the classifier's input set. Pure read, no side
// effects.
func (t *Tx) ClassifierRows(ctx context.Context, onlyPresent bool) ([]ClassifierRow, error) {
	query := `
		SELECT
			ii.document_hash,
			ii.is_currently_present,
			ii.po_match_status,
			ii.po_validation_status,
			ii.ready_to_post,
			ii.gross_total,
			ii.attachment_file_name AS attachment_name,
			im.sender_address       AS sender_address,
			im.subject              AS email_subject,
			im.received_datetime    AS received_datetime
		FROM inbox_invoice ii
		LEFT JOIN inbox_message im
			ON im.message_id = ii.message_id
	`
	if onlyPresent {
		query += ` WHERE ii.is_currently_present = 1`
	}

	var rows []ClassifierRow
	if err := t.tx.SelectContext(ctx, &rows, query); err != nil {
		return nil, fmt.Errorf("failed to select classifier rows: %w", err)
	}

	return rows, nil
}

// ReplaceWorklist fully replaces the current worklist table and appends
// one history row per item under runID. History is never pruned or
// rewritten.
func (t *Tx) ReplaceWorklist(ctx context.Context, runID string, items []models.WorkItem) error {
	if _, err := t.tx.ExecContext(ctx, `DELETE FROM invoice_worklist`); err != nil {
		return fmt.Errorf("failed to clear worklist: %w", err)
	}

	for _, i := range items {
		if _, err := t.tx.ExecContext(ctx, `
			INSERT INTO invoice_worklist (
				document_hash,
				sender_domain,
				email_subject,
				attachment_name,
				received_datetime,
				next_action,
				action_reason,
				priority,
				generated_at_utc,
				is_currently_present
			)
			VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		`,
			i.DocumentHash,
			i.SenderDomain,
			i.EmailSubject,
			i.AttachmentName,
			i.ReceivedDatetime,
			i.NextAction,
			i.ActionReason,
			i.Priority,
			i.GeneratedAtUTC,
			boolToInt(i.IsCurrentlyPresent),
		); err != nil {
			return fmt.Errorf("failed to insert worklist item %s: %w", i.DocumentHash, err)
		}

		if _, err := t.tx.ExecContext(ctx, `
			INSERT INTO invoice_worklist_history (
				run_id,
				document_hash,
				sender_domain,
				email_subject,
				attachment_name,
				received_datetime,
				next_action,
				action_reason,
				priority,
				generated_at_utc,
				is_currently_present
			)
			VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		`,
			runID,
			i.DocumentHash,
			i.SenderDomain,
			i.EmailSubject,
			i.AttachmentName,
			i.ReceivedDatetime,
			i.NextAction,
			i.ActionReason,
			i.Priority,
			i.GeneratedAtUTC,
			boolToInt(i.IsCurrentlyPresent),
		); err != nil {
			return fmt.Errorf("failed to insert worklist history for %s: %w", i.DocumentHash, err)
		}
	}

	return nil
}

// CurrentWorklist returns the current worklist in its deterministic
// order: ascending priority, then document fingerprint.
func (s *Store) CurrentWorklist(ctx context.Context) ([]models.WorkItem, error) {
	var items []models.WorkItem
	err := s.db.SelectContext(ctx, &items, `
		SELECT
			document_hash,
			sender_domain,
			email_subject,
			attachment_name,
			received_datetime,
			next_action,
			action_reason,
			priority,
			generated_at_utc,
			is_currently_present
		FROM invoice_worklist
		ORDER BY priority ASC, document_hash ASC
	`)
	if err != nil {
		return nil, fmt.Errorf("failed to select current worklist: %w", err)
	}

	return items, nil
}

// ActionChange is one (previous action -> current action) transition
// between two worklist runs.
type ActionChange struct {
	PrevAction string `db:"prev_action"`
	CurrAction string `db:"curr_action"`
	Count      int    `db:"count"`
}

// PreviousRunID returns the most recent history run before runID, or ""
// on the first run.
func (t *Tx) PreviousRunID(ctx context.Context, runID string) (string, error) {
	var prev string
	err := t.tx.GetContext(ctx, &prev, `
		SELECT run_id
		FROM invoice_worklist_history
		WHERE run_id <> ?
		ORDER BY id DESC
		LIMIT 1
	`, runID)
	if err != nil {
		// No prior run is not an error
		return "", nil
	}

	return prev, nil
}

// ActionChanges summarizes action transitions between two runs, for
// verbose diagnostics.
func (t *Tx) ActionChanges(ctx context.Context, prevRunID, runID string) ([]ActionChange, error) {
	var changes []ActionChange
	err := t.tx.SelectContext(ctx, &changes, `
		SELECT
			prev.next_action AS prev_action,
			curr.next_action AS curr_action,
			COUNT(*) AS count
		FROM invoice_worklist_history prev
		JOIN invoice_worklist_history curr
		  ON prev.document_hash = curr.document_hash
		WHERE prev.run_id = ?
		  AND curr.run_id = ?
		  AND prev.next_action <> curr.next_action
		GROUP BY prev.next_action, curr.next_action
		ORDER BY count DESC
	`, prevRunID, runID)
	if err != nil {
		return nil, fmt.Errorf("failed to select action changes: %w", err)
	}

	return changes, nil
}
