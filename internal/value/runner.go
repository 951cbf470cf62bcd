package value

import (
	"context"
	"fmt"

	"github.com/finopslabs/apinbox/internal/extractor"
	"github.com/finopslabs/apinbox/internal/repository"
	"github.com/finopslabs/apinbox/internal/utils"
)

// Extractor runs value extraction over present invoices that have no
// non-zero gross total yet. It shares the detector's text source and
// never mutates PO-related fields.
type Extractor struct {
	store     *repository.Store
	extractor extractor.TextExtractor
	logger    *utils.Logger
	verbose   bool
}

func NewExtractor(store *repository.Store, ext extractor.TextExtractor, logger *utils.Logger, verbose bool) *Extractor {
	return &Extractor{
		store:     store,
		extractor: ext,
		logger:    logger,
		verbose:   verbose,
	}
}

// Summary reports one value extraction run.
type Summary struct {
	Candidates  int `json:"candidates"`
	Processed   int `json:"processed"`
	ValuesFound int `json:"values_found"`
	MissingFile int `json:"missing_file"`
	NoTextLayer int `json:"no_text_layer"`
}

// Run processes every value candidate inside one transaction. Missing
// staged files and blank text are skipped without writing anything:
// detection owns those statuses.
func (e *Extractor) Run(ctx context.Context, stagingIndex map[string]string) (*Summary, error) {
	summary := &Summary{}

	err := e.store.WithTx(ctx, func(tx *repository.Tx) error {
		hashes, err := tx.InvoicesNeedingValues(ctx)
		if err != nil {
			return err
		}
		summary.Candidates = len(hashes)

		if e.verbose {
			e.logger.Debug("value candidates",
				"count", len(hashes),
				"staging_index_size", len(stagingIndex))
		}

		for _, hash := range hashes {
			path, ok := stagingIndex[hash]
			if !ok {
				summary.MissingFile++
				continue
			}

			text := e.extractor.ExtractText(path)
			result := Extract(text)

			if e.verbose {
				e.logger.Debug("value result",
					"document_hash", hash,
					"rule", result.Rule,
					"net", derefOr(result.Net),
					"vat", derefOr(result.Vat),
					"gross", derefOr(result.Gross))
			}

			if result.Rule == RuleNoText {
				summary.NoTextLayer++
				continue
			}

			if err := tx.WriteValues(ctx, hash, result.Net, result.Vat, result.Gross); err != nil {
				return err
			}

			summary.Processed++
			if result.Gross != nil {
				summary.ValuesFound++
			}
		}

		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("value extraction stage failed: %w", err)
	}

	return summary, nil
}

func derefOr(v *int64) any {
	if v == nil {
		return nil
	}
	return *v
}
