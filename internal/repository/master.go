package repository

import (
	"context"
	"fmt"

	"github.com/finopslabs/apinbox/internal/models"
)

// ReplaceMaster overwrites the PO master snapshot wholesale. No
// incremental merge, no history: the snapshot is exactly the latest
// import.
func (t *Tx) ReplaceMaster(ctx context.Context, records []models.POMasterRecord) error {
	if _, err := t.tx.ExecContext(ctx, `DELETE FROM po_master`); err != nil {
		return fmt.Errorf("failed to clear po_master: %w", err)
	}

	for _, rec := range records {
		if _, err := t.tx.ExecContext(ctx, `
			INSERT INTO po_master (
				po_number,
				po_status,
				approval_status,
				last_import_datetime
			)
			VALUES (?, ?, ?, ?)
		`, rec.PONumber, rec.POStatus, rec.ApprovalStatus, rec.LastImportDatetime); err != nil {
			return fmt.Errorf("failed to insert master record %s: %w", rec.PONumber, err)
		}
	}

	return nil
}

// MasterCount returns the size of the current snapshot.
func (s *Store) MasterCount(ctx context.Context) (int, error) {
	var n int
	if err := s.db.GetContext(ctx, &n, `SELECT COUNT(*) FROM po_master`); err != nil {
		return 0, fmt.Errorf("failed to count po_master: %w", err)
	}
	return n, nil
}
