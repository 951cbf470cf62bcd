package repository

import (
	"context"
	"fmt"
)

// InvoicesNeedingValues returns fingerprints of present, non-terminal
// invoices with no non-zero gross total yet. Value extraction never
// overwrites an already-valued document.
func (t *Tx) InvoicesNeedingValues(ctx context.Context) ([]string, error) {
	var hashes []string
	err := t.tx.SelectContext(ctx, &hashes, `
		SELECT document_hash
		FROM inbox_invoice
		WHERE is_currently_present = 1
		  AND posted_datetime IS NULL
		  AND (gross_total IS NULL OR gross_total = 0)
		ORDER BY document_hash ASC
	`)
	if err != nil {
		return nil, fmt.Errorf("failed to select value candidates: %w", err)
	}

	return hashes, nil
}

// WriteValues records extracted amounts in minor units. Only the value
// columns change; PO detection and validation state stay untouched.
func (t *Tx) WriteValues(ctx context.Context, documentHash string, net, vat, gross *int64) error {
	_, err := t.tx.ExecContext(ctx, `
		UPDATE inbox_invoice
		SET net_total = ?,
		    vat_total = ?,
		    gross_total = ?
		WHERE document_hash = ?
	`, net, vat, gross, documentHash)
	if err != nil {
		return fmt.Errorf("failed to write values for %s: %w", documentHash, err)
	}

	return nil
}
