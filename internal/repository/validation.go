package repository

import (
	"context"
	"fmt"

	"github.com/finopslabs/apinbox/internal/models"
)

// ForceNotReady clears readiness on every present, non-terminal invoice
// whose detection status is not SINGLE_PO_DETECTED. Validation fields are
// meaningless without exactly one detected reference.
func (t *Tx) ForceNotReady(ctx context.Context) (int64, error) {
	res, err := t.tx.ExecContext(ctx, `
		UPDATE inbox_invoice
		SET ready_to_post = 0
		WHERE is_currently_present = 1
		  AND posted_datetime IS NULL
		  AND po_match_status <> ?
	`, models.POMatchSinglePO)
	if err != nil {
		return 0, fmt.Errorf("failed to force not-ready: %w", err)
	}

	return res.RowsAffected()
}

// ResetValidation puts every eligible invoice back to UNVALIDATED before
// re-validation, so master-data drift is reflected each cycle.
func (t *Tx) ResetValidation(ctx context.Context) error {
	_, err := t.tx.ExecContext(ctx, `
		UPDATE inbox_invoice
		SET po_validation_status = ?,
		    ready_to_post = 0
		WHERE is_currently_present = 1
		  AND posted_datetime IS NULL
		  AND po_match_status = ?
	`, models.ValidationUnvalidated, models.POMatchSinglePO)
	if err != nil {
		return fmt.Errorf("failed to reset validation: %w", err)
	}

	return nil
}

// ValidationCandidate joins an eligible invoice's detected PO with the
// master snapshot. Nil POStatus means the PO is not in the master.
type ValidationCandidate struct {
	DocumentHash   string  `db:"document_hash"`
	PONumber       string  `db:"po_number"`
	POStatus       *string `db:"po_status"`
	ApprovalStatus *string `db:"approval_status"`
}

// ValidationCandidates returns every present, non-terminal invoice with a
// single detected PO, joined against po_master.
func (t *Tx) ValidationCandidates(ctx context.Context) ([]ValidationCandidate, error) {
	var rows []ValidationCandidate
	err := t.tx.SelectContext(ctx, &rows, `
		SELECT
			ii.document_hash,
			ip.po_number,
			pm.po_status,
			pm.approval_status
		FROM inbox_invoice ii
		JOIN invoice_po ip
			ON ii.document_hash = ip.document_hash
		LEFT JOIN po_master pm
			ON ip.po_number = pm.po_number
		WHERE ii.is_currently_present = 1
		  AND ii.posted_datetime IS NULL
		  AND ii.po_match_status = ?
		ORDER BY ii.document_hash ASC
	`, models.POMatchSinglePO)
	if err != nil {
		return nil, fmt.Errorf("failed to select validation candidates: %w", err)
	}

	return rows, nil
}

// WriteValidation records a validation outcome. ready derives from the
// status at the call site; the two always move together.
func (t *Tx) WriteValidation(ctx context.Context, documentHash, validationStatus string, ready bool) error {
	_, err := t.tx.ExecContext(ctx, `
		UPDATE inbox_invoice
		SET po_validation_status = ?,
		    ready_to_post = ?
		WHERE document_hash = ?
	`, validationStatus, boolToInt(ready), documentHash)
	if err != nil {
		return fmt.Errorf("failed to write validation for %s: %w", documentHash, err)
	}

	return nil
}
