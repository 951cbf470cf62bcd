package detect

import (
	"context"
	"fmt"
	"regexp"
	"strings"

	"github.com/finopslabs/apinbox/internal/extractor"
	"github.com/finopslabs/apinbox/internal/models"
	"github.com/finopslabs/apinbox/internal/repository"
	"github.com/finopslabs/apinbox/internal/utils"
)

const (
	previewMaxLines        = 12
	previewMaxCharsPerLine = 140
)

// Detector runs PO detection over unscanned, present invoices.
type Detector struct {
	store     *repository.Store
	extractor extractor.TextExtractor
	logger    *utils.Logger
	verbose   bool
}

func NewDetector(store *repository.Store, ext extractor.TextExtractor, logger *utils.Logger, verbose bool) *Detector {
	return &Detector{
		store:     store,
		extractor: ext,
		logger:    logger,
		verbose:   verbose,
	}
}

// Summary reports one detection run.
type Summary struct {
	Candidates  int `json:"candidates"`
	Processed   int `json:"processed"`
	MissingFile int `json:"missing_file"`
	NoTextLayer int `json:"no_text_layer"`
}

// Run processes every detection candidate inside one transaction:
// extract text, apply the cascade, classify, and write the result with a
// full replacement of the detected PO set. Documents whose staged file is
// absent from the index are classified FILE_MISSING without extraction.
func (d *Detector) Run(ctx context.Context, stagingIndex map[string]string) (*Summary, error) {
	summary := &Summary{}
	detectedTS := utils.NowUTCISO()

	err := d.store.WithTx(ctx, func(tx *repository.Tx) error {
		hashes, err := tx.InvoicesNeedingDetection(ctx)
		if err != nil {
			return err
		}
		summary.Candidates = len(hashes)

		if d.verbose {
			d.logger.Debug("detection candidates",
				"count", len(hashes),
				"staging_index_size", len(stagingIndex))
		}

		for _, hash := range hashes {
			path, ok := stagingIndex[hash]
			if !ok {
				result := FileMissing()
				if err := tx.WriteDetection(ctx, hash, result.POCount, result.MatchStatus, result.PONumbers, detectedTS); err != nil {
					return err
				}
				summary.MissingFile++
				summary.Processed++
				continue
			}

			text := d.extractor.ExtractText(path)
			if d.verbose {
				d.logger.Debug("detecting", "document_hash", hash, "text_length", len(text))
				d.previewText(text)
			}

			poNumbers := DetectPONumbers(text)
			result := Classify(text, poNumbers)

			if result.MatchStatus == models.POMatchNoTextLayer {
				summary.NoTextLayer++
			}

			if d.verbose {
				d.logger.Debug("detection result",
					"document_hash", hash,
					"status", result.MatchStatus,
					"po_count", result.POCount,
					"pos", result.PONumbers)
			}

			if err := tx.WriteDetection(ctx, hash, result.POCount, result.MatchStatus, result.PONumbers, detectedTS); err != nil {
				return err
			}
			summary.Processed++
		}

		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("po detection stage failed: %w", err)
	}

	return summary, nil
}

var digitRe = regexp.MustCompile(`\d`)

// previewText logs the first lines of extracted text with digits masked,
// so diagnostics never leak invoice identifiers.
func (d *Detector) previewText(text string) {
	if strings.TrimSpace(text) == "" {
		d.logger.Debug("no text extracted, likely scanned PDF without text layer")
		return
	}

	lines := strings.Split(text, "\n")
	if len(lines) > previewMaxLines {
		lines = lines[:previewMaxLines]
	}
	for _, line := range lines {
		masked := digitRe.ReplaceAllString(line, "X")
		d.logger.Debug("text preview", "line", clipLine(masked, previewMaxCharsPerLine))
	}
}

func clipLine(s string, maxChars int) string {
	s = strings.TrimRight(s, "\n")
	if len(s) <= maxChars {
		return s
	}
	return s[:maxChars] + "…"
}
