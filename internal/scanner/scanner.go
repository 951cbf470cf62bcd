package scanner

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/finopslabs/apinbox/internal/fingerprint"
	"github.com/finopslabs/apinbox/internal/repository"
	"github.com/finopslabs/apinbox/internal/storage"
	"github.com/finopslabs/apinbox/internal/utils"
)

// Scanner is the presence tracker: it observes the inbox feed, stages
// attachment bytes under content-derived names, and re-asserts presence
// for everything seen this cycle. All database writes for one scan happen
// in a single transaction so a partial scan never leaves mixed presence
// state. The attachment archive upload happens after commit.
type Scanner struct {
	store      *repository.Store
	logger     *utils.Logger
	stagingDir string
	archive    storage.Archive
}

// NewScanner builds a scanner. archive may be nil when archival is
// disabled.
func NewScanner(store *repository.Store, logger *utils.Logger, stagingDir string, archive storage.Archive) *Scanner {
	return &Scanner{
		store:      store,
		logger:     logger,
		stagingDir: stagingDir,
		archive:    archive,
	}
}

// Summary reports one presence cycle.
type Summary struct {
	ScanTS          string `json:"scan_ts"`
	MessagesSeen    int    `json:"messages_seen"`
	DocumentsSeen   int    `json:"documents_seen"`
	StagingFailures int    `json:"staging_failures"`
	ArchiveFailures int    `json:"archive_failures"`
	ArchivedUploads int    `json:"archived_uploads"`
}

type stagedDoc struct {
	hash string
	path string
}

// Run executes one presence cycle over the given feed messages.
func (s *Scanner) Run(ctx context.Context, messages []FeedMessage) (*Summary, error) {
	scanTS := utils.NowUTCISO()
	summary := &Summary{ScanTS: scanTS}

	if err := os.MkdirAll(s.stagingDir, 0o755); err != nil {
		return nil, fmt.Errorf("failed to create staging dir %s: %w", s.stagingDir, err)
	}

	var staged []stagedDoc

	err := s.store.WithTx(ctx, func(tx *repository.Tx) error {
		if err := tx.BeginCycle(ctx, scanTS); err != nil {
			return err
		}

		for _, msg := range messages {
			var docs []stagedDoc

			for idx, att := range msg.Attachments {
				doc, err := s.stageAttachment(msg.MessageID, idx, att)
				if err != nil {
					summary.StagingFailures++
					s.logger.Warn("failed to stage attachment",
						"message_id", msg.MessageID,
						"attachment", att.FileName,
						"error", err)
					continue
				}
				docs = append(docs, doc)

				if err := tx.UpsertInvoice(ctx, repository.UpsertInvoiceParams{
					DocumentHash:       doc.hash,
					MessageID:          msg.MessageID,
					AttachmentFileName: att.FileName,
					ScanTS:             scanTS,
					SourceFolderPath:   msg.FolderPath,
				}); err != nil {
					return err
				}
			}

			if err := tx.UpsertMessage(ctx, repository.UpsertMessageParams{
				MessageID:        msg.MessageID,
				CurrentLocation:  msg.FolderPath,
				ScanTS:           scanTS,
				ReceivedDatetime: msg.ReceivedDatetime,
				SenderAddress:    msg.SenderAddress,
				Subject:          msg.Subject,
				HasAttachments:   len(msg.Attachments) > 0,
				AttachmentCount:  len(msg.Attachments),
			}); err != nil {
				return err
			}

			summary.MessagesSeen++
			summary.DocumentsSeen += len(docs)
			staged = append(staged, docs...)
		}

		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("presence cycle failed: %w", err)
	}

	if s.archive != nil {
		s.archiveStaged(ctx, staged, summary)
	}

	s.logger.Info("presence cycle complete",
		"scan_ts", scanTS,
		"messages", summary.MessagesSeen,
		"documents", summary.DocumentsSeen,
		"staging_failures", summary.StagingFailures)

	return summary, nil
}

// stageAttachment copies attachment bytes into the staging area under a
// deterministic name and returns its content fingerprint. Re-staging the
// same attachment overwrites the same file, so repeated scans converge.
func (s *Scanner) stageAttachment(messageID string, idx int, att FeedAttachment) (stagedDoc, error) {
	data, err := os.ReadFile(att.SourcePath)
	if err != nil {
		return stagedDoc{}, fmt.Errorf("failed to read attachment source: %w", err)
	}

	hash := fingerprint.Bytes(data)
	name := fmt.Sprintf("%s_%02d_%s", shortMessageID(messageID), idx, safeFilename(att.FileName))
	dest := filepath.Join(s.stagingDir, name)

	if err := os.WriteFile(dest, data, 0o644); err != nil {
		return stagedDoc{}, fmt.Errorf("failed to write staged copy: %w", err)
	}

	return stagedDoc{hash: hash, path: dest}, nil
}

func (s *Scanner) archiveStaged(ctx context.Context, staged []stagedDoc, summary *Summary) {
	seen := make(map[string]struct{}, len(staged))

	for _, doc := range staged {
		if _, ok := seen[doc.hash]; ok {
			continue
		}
		seen[doc.hash] = struct{}{}

		data, err := os.ReadFile(doc.path)
		if err != nil {
			summary.ArchiveFailures++
			s.logger.Warn("failed to read staged file for archive", "path", doc.path, "error", err)
			continue
		}

		if err := s.archive.Upload(ctx, storage.ObjectKey(doc.hash), data, "application/pdf"); err != nil {
			summary.ArchiveFailures++
			s.logger.Warn("failed to archive staged file", "document_hash", doc.hash, "error", err)
			continue
		}
		summary.ArchivedUploads++
	}
}

// safeFilename keeps staged names portable: anything outside
// [A-Za-z0-9._-] becomes an underscore.
func safeFilename(name string) string {
	var b strings.Builder
	b.Grow(len(name))

	for _, r := range name {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9':
			b.WriteRune(r)
		case r == '.' || r == '_' || r == '-':
			b.WriteRune(r)
		default:
			b.WriteByte('_')
		}
	}

	return b.String()
}

// shortMessageID reduces a message identifier to its trailing 12
// filename-safe characters, enough to keep staged names unique per
// message without dragging full Exchange IDs into paths.
func shortMessageID(messageID string) string {
	cleaned := safeFilename(messageID)
	cleaned = strings.Trim(cleaned, "_")
	if cleaned == "" {
		cleaned = "MSG"
	}
	if len(cleaned) > 12 {
		cleaned = cleaned[len(cleaned)-12:]
	}
	return cleaned
}
