package models

// PO detection outcomes written to inbox_invoice.po_match_status.
const (
	POMatchUnscanned   = "UNSCANNED"
	POMatchNoTextLayer = "NO_TEXT_LAYER"
	POMatchMissingPO   = "MISSING_PO"
	POMatchSinglePO    = "SINGLE_PO_DETECTED"
	POMatchMultiplePOs = "MULTIPLE_POS"
	POMatchFileMissing = "FILE_MISSING"
)

// PO validation outcomes written to inbox_invoice.po_validation_status.
// Only meaningful when po_match_status is SINGLE_PO_DETECTED.
const (
	ValidationUnvalidated    = "UNVALIDATED"
	ValidationPONotInMaster  = "PO_NOT_IN_MASTER"
	ValidationPONotOpen      = "PO_NOT_OPEN"
	ValidationPONotConfirmed = "PO_NOT_CONFIRMED"
	ValidationValidPO        = "VALID_PO"
)

// Message is one inbox message tracked across scan cycles. It exists for
// worklist display identity; classification runs on invoices.
type Message struct {
	MessageID          string  `json:"message_id" db:"message_id"`
	CurrentLocation    string  `json:"current_location" db:"current_location"`
	FirstSeenDatetime  string  `json:"first_seen_datetime" db:"first_seen_datetime"`
	LastSeenDatetime   string  `json:"last_seen_datetime" db:"last_seen_datetime"`
	LastScanDatetime   string  `json:"last_scan_datetime" db:"last_scan_datetime"`
	IsCurrentlyPresent bool    `json:"is_currently_present" db:"is_currently_present"`
	ReceivedDatetime   *string `json:"received_datetime,omitempty" db:"received_datetime"`
	SenderAddress      *string `json:"sender_address,omitempty" db:"sender_address"`
	Subject            *string `json:"subject,omitempty" db:"subject"`
	HasAttachments     bool    `json:"has_attachments" db:"has_attachments"`
	AttachmentCount    int     `json:"attachment_count" db:"attachment_count"`
}

// Invoice is one inbound invoice document, keyed by its content
// fingerprint (SHA-256 hex). Re-ingesting identical content upserts the
// same row.
type Invoice struct {
	DocumentHash       string  `json:"document_hash" db:"document_hash"`
	MessageID          string  `json:"message_id" db:"message_id"`
	AttachmentFileName string  `json:"attachment_file_name" db:"attachment_file_name"`
	FirstSeenDatetime  string  `json:"first_seen_datetime" db:"first_seen_datetime"`
	LastSeenDatetime   string  `json:"last_seen_datetime" db:"last_seen_datetime"`
	LastScanDatetime   string  `json:"last_scan_datetime" db:"last_scan_datetime"`
	IsCurrentlyPresent bool    `json:"is_currently_present" db:"is_currently_present"`
	SourceFolderPath   *string `json:"source_folder_path,omitempty" db:"source_folder_path"`

	POCount            int    `json:"po_count" db:"po_count"`
	POMatchStatus      string `json:"po_match_status" db:"po_match_status"`
	POValidationStatus string `json:"po_validation_status" db:"po_validation_status"`

	// ReadyToPost is always derived from POValidationStatus == VALID_PO.
	// No code path sets it independently.
	ReadyToPost bool `json:"ready_to_post" db:"ready_to_post"`

	PostedDatetime *string `json:"posted_datetime,omitempty" db:"posted_datetime"`

	// Minor currency units (pence). Nil until value extraction finds them.
	NetTotal   *int64 `json:"net_total,omitempty" db:"net_total"`
	VatTotal   *int64 `json:"vat_total,omitempty" db:"vat_total"`
	GrossTotal *int64 `json:"gross_total,omitempty" db:"gross_total"`
}

// DetectedPO is one (document, PO identifier) pair. The set for a document
// is fully replaced on each detection run.
type DetectedPO struct {
	DocumentHash     string  `json:"document_hash" db:"document_hash"`
	PONumber         string  `json:"po_number" db:"po_number"`
	DetectedDatetime *string `json:"detected_datetime,omitempty" db:"detected_datetime"`
}

// POMasterRecord is one row of the full-refresh PO master snapshot.
type POMasterRecord struct {
	PONumber           string `json:"po_number" db:"po_number"`
	POStatus           string `json:"po_status" db:"po_status"`
	ApprovalStatus     string `json:"approval_status" db:"approval_status"`
	LastImportDatetime string `json:"last_import_datetime" db:"last_import_datetime"`
}

// WorkItem is one classified worklist row. The current table is fully
// replaced per run; history keeps one snapshot per (run, document).
type WorkItem struct {
	DocumentHash string `json:"document_hash" db:"document_hash"`

	SenderDomain     *string `json:"sender_domain,omitempty" db:"sender_domain"`
	EmailSubject     *string `json:"email_subject,omitempty" db:"email_subject"`
	AttachmentName   *string `json:"attachment_name,omitempty" db:"attachment_name"`
	ReceivedDatetime *string `json:"received_datetime,omitempty" db:"received_datetime"`

	NextAction         string `json:"next_action" db:"next_action"`
	ActionReason       string `json:"action_reason" db:"action_reason"`
	Priority           int    `json:"priority" db:"priority"`
	GeneratedAtUTC     string `json:"generated_at_utc" db:"generated_at_utc"`
	IsCurrentlyPresent bool   `json:"is_currently_present" db:"is_currently_present"`
}
