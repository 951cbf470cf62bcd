package repository

import (
	"context"
	"fmt"
)

// BeginCycle starts a presence cycle: every currently-present message and
// every non-terminal present invoice is marked absent and stamped with the
// scan time. Upserts during the same cycle re-assert presence, so anything
// not re-observed ends the cycle absent. Posted invoices are excluded so
// closed records cannot reopen.
func (t *Tx) BeginCycle(ctx context.Context, scanTS string) error {
	if _, err := t.tx.ExecContext(ctx, `
		UPDATE inbox_message
		SET is_currently_present = 0,
		    last_scan_datetime = ?
		WHERE is_currently_present = 1
	`, scanTS); err != nil {
		return fmt.Errorf("failed to reset message presence: %w", err)
	}

	if _, err := t.tx.ExecContext(ctx, `
		UPDATE inbox_invoice
		SET is_currently_present = 0,
		    last_scan_datetime = ?
		WHERE is_currently_present = 1
		  AND posted_datetime IS NULL
	`, scanTS); err != nil {
		return fmt.Errorf("failed to reset invoice presence: %w", err)
	}

	return nil
}

// UpsertMessageParams carries one observed message for presence upsert.
type UpsertMessageParams struct {
	MessageID        string
	CurrentLocation  string
	ScanTS           string
	ReceivedDatetime *string
	SenderAddress    *string
	Subject          *string
	HasAttachments   bool
	AttachmentCount  int
}

// UpsertMessage re-asserts presence for an observed message.
// first_seen_datetime is set only on first insert.
func (t *Tx) UpsertMessage(ctx context.Context, p UpsertMessageParams) error {
	_, err := t.tx.ExecContext(ctx, `
		INSERT INTO inbox_message (
			message_id,
			current_location,
			first_seen_datetime,
			last_seen_datetime,
			last_scan_datetime,
			is_currently_present,
			received_datetime,
			sender_address,
			subject,
			has_attachments,
			attachment_count
		)
		VALUES (?, ?, ?, ?, ?, 1, ?, ?, ?, ?, ?)
		ON CONFLICT(message_id) DO UPDATE SET
			current_location     = excluded.current_location,
			last_seen_datetime   = excluded.last_seen_datetime,
			last_scan_datetime   = excluded.last_scan_datetime,
			is_currently_present = 1,
			received_datetime    = excluded.received_datetime,
			sender_address       = excluded.sender_address,
			subject              = excluded.subject,
			has_attachments      = excluded.has_attachments,
			attachment_count     = excluded.attachment_count
	`,
		p.MessageID,
		p.CurrentLocation,
		p.ScanTS, // first_seen on insert
		p.ScanTS, // last_seen
		p.ScanTS, // last_scan
		p.ReceivedDatetime,
		p.SenderAddress,
		p.Subject,
		boolToInt(p.HasAttachments),
		p.AttachmentCount,
	)
	if err != nil {
		return fmt.Errorf("failed to upsert message %s: %w", p.MessageID, err)
	}

	return nil
}

// UpsertInvoiceParams carries one observed document for presence upsert.
type UpsertInvoiceParams struct {
	DocumentHash       string
	MessageID          string
	AttachmentFileName string
	ScanTS             string
	SourceFolderPath   string
}

// UpsertInvoice re-asserts presence and linkage for an observed document.
// Classification truth columns belong to the later stages; an existing
// row keeps its detection, validation, value, and posting state.
func (t *Tx) UpsertInvoice(ctx context.Context, p UpsertInvoiceParams) error {
	_, err := t.tx.ExecContext(ctx, `
		INSERT INTO inbox_invoice (
			document_hash,
			message_id,
			attachment_file_name,
			first_seen_datetime,
			last_seen_datetime,
			last_scan_datetime,
			is_currently_present,
			source_folder_path,
			po_count,
			po_match_status,
			po_validation_status,
			ready_to_post,
			posted_datetime,
			net_total,
			vat_total,
			gross_total
		)
		VALUES (?, ?, ?, ?, ?, ?, 1, ?, 0, 'UNSCANNED', 'UNVALIDATED', 0, NULL, NULL, NULL, NULL)
		ON CONFLICT(document_hash) DO UPDATE SET
			message_id           = excluded.message_id,
			attachment_file_name = excluded.attachment_file_name,
			last_seen_datetime   = excluded.last_seen_datetime,
			last_scan_datetime   = excluded.last_scan_datetime,
			is_currently_present = 1,
			source_folder_path   = excluded.source_folder_path
	`,
		p.DocumentHash,
		p.MessageID,
		p.AttachmentFileName,
		p.ScanTS,
		p.ScanTS,
		p.ScanTS,
		p.SourceFolderPath,
	)
	if err != nil {
		return fmt.Errorf("failed to upsert invoice %s: %w", p.DocumentHash, err)
	}

	return nil
}

func boolToInt(b bool) int {
	if b {
		return 1
	}
	return 0
}
