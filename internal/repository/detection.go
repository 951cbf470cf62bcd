package repository

import (
	"context"
	"fmt"

	"github.com/finopslabs/apinbox/internal/models"
)

// InvoicesNeedingDetection returns fingerprints of present, non-terminal
// invoices that have never been scanned. Detection never re-runs once a
// status is assigned; re-detection requires an explicit ResetDetection.
func (t *Tx) InvoicesNeedingDetection(ctx context.Context) ([]string, error) {
	var hashes []string
	err := t.tx.SelectContext(ctx, &hashes, `
		SELECT document_hash
		FROM inbox_invoice
		WHERE is_currently_present = 1
		  AND posted_datetime IS NULL
		  AND po_match_status = ?
		ORDER BY document_hash ASC
	`, models.POMatchUnscanned)
	if err != nil {
		return nil, fmt.Errorf("failed to select detection candidates: %w", err)
	}

	return hashes, nil
}

// WriteDetection records a detection outcome: updates the invoice truth
// columns, resets validation to UNVALIDATED, and fully replaces the
// detected PO set (delete-then-insert).
func (t *Tx) WriteDetection(ctx context.Context, documentHash string, poCount int, matchStatus string, poNumbers []string, detectedTS string) error {
	if _, err := t.tx.ExecContext(ctx, `
		UPDATE inbox_invoice
		SET po_count = ?,
		    po_match_status = ?,
		    po_validation_status = ?
		WHERE document_hash = ?
	`, poCount, matchStatus, models.ValidationUnvalidated, documentHash); err != nil {
		return fmt.Errorf("failed to update detection status for %s: %w", documentHash, err)
	}

	if _, err := t.tx.ExecContext(ctx,
		`DELETE FROM invoice_po WHERE document_hash = ?`, documentHash); err != nil {
		return fmt.Errorf("failed to clear detected POs for %s: %w", documentHash, err)
	}

	for _, po := range poNumbers {
		if _, err := t.tx.ExecContext(ctx, `
			INSERT INTO invoice_po (document_hash, po_number, detected_datetime)
			VALUES (?, ?, ?)
		`, documentHash, po, detectedTS); err != nil {
			return fmt.Errorf("failed to insert detected PO %s for %s: %w", po, documentHash, err)
		}
	}

	return nil
}

// ResetDetection puts an invoice back to UNSCANNED so the next cycle
// re-detects it. Operator-driven only; the pipeline never calls this.
func (t *Tx) ResetDetection(ctx context.Context, documentHash string) error {
	res, err := t.tx.ExecContext(ctx, `
		UPDATE inbox_invoice
		SET po_count = 0,
		    po_match_status = ?,
		    po_validation_status = ?,
		    ready_to_post = 0
		WHERE document_hash = ?
		  AND posted_datetime IS NULL
	`, models.POMatchUnscanned, models.ValidationUnvalidated, documentHash)
	if err != nil {
		return fmt.Errorf("failed to reset detection for %s: %w", documentHash, err)
	}

	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to read reset result for %s: %w", documentHash, err)
	}
	if n == 0 {
		return fmt.Errorf("no resettable invoice %s (missing or posted)", documentHash)
	}

	if _, err := t.tx.ExecContext(ctx,
		`DELETE FROM invoice_po WHERE document_hash = ?`, documentHash); err != nil {
		return fmt.Errorf("failed to clear detected POs for %s: %w", documentHash, err)
	}

	return nil
}
