package pipeline

import (
	"context"
	"fmt"
	"os"

	"github.com/finopslabs/apinbox/internal/config"
	"github.com/finopslabs/apinbox/internal/detect"
	"github.com/finopslabs/apinbox/internal/extractor"
	"github.com/finopslabs/apinbox/internal/master"
	"github.com/finopslabs/apinbox/internal/repository"
	"github.com/finopslabs/apinbox/internal/scanner"
	"github.com/finopslabs/apinbox/internal/staging"
	"github.com/finopslabs/apinbox/internal/storage"
	"github.com/finopslabs/apinbox/internal/utils"
	"github.com/finopslabs/apinbox/internal/validate"
	"github.com/finopslabs/apinbox/internal/value"
	"github.com/finopslabs/apinbox/internal/worklist"
)

// Pipeline wires the five stages into one cycle. Each stage commits its
// own transaction; stage order is fixed because each stage reads the
// truth the previous one wrote.
type Pipeline struct {
	cfg    *config.Config
	store  *repository.Store
	logger *utils.Logger

	scanner    *scanner.Scanner
	detector   *detect.Detector
	validator  *validate.Validator
	values     *value.Extractor
	classifier *worklist.Classifier
	master     *master.Loader
}

// New assembles a pipeline from configuration. The S3 archive is
// attached only when enabled; a connection failure there is fatal at
// startup rather than mid-cycle.
func New(cfg *config.Config, store *repository.Store, logger *utils.Logger) (*Pipeline, error) {
	var archive storage.Archive
	if cfg.S3ArchiveEnabled {
		var err error
		archive, err = storage.NewS3Archive(cfg)
		if err != nil {
			return nil, fmt.Errorf("failed to initialize attachment archive: %w", err)
		}
	}

	ext := extractor.NewPDFExtractor()

	return &Pipeline{
		cfg:        cfg,
		store:      store,
		logger:     logger,
		scanner:    scanner.NewScanner(store, logger, cfg.StagingDir, archive),
		detector:   detect.NewDetector(store, ext, logger, cfg.Verbose),
		validator:  validate.NewValidator(store, logger, cfg.Verbose),
		values:     value.NewExtractor(store, ext, logger, cfg.Verbose),
		classifier: worklist.NewClassifier(store, logger, worklist.DefaultOptions(), cfg.Verbose),
		master:     master.NewLoader(store, logger),
	}, nil
}

// CycleSummary aggregates the per-stage summaries of one full run.
type CycleSummary struct {
	Master    *master.Summary   `json:"master,omitempty"`
	Scan      *scanner.Summary  `json:"scan"`
	Detect    *detect.Summary   `json:"detect"`
	Validate  *validate.Summary `json:"validate"`
	Values    *value.Summary    `json:"values"`
	Worklist  *worklist.Summary `json:"worklist"`
	StartedAt string            `json:"started_at"`
	EndedAt   string            `json:"ended_at"`
}

// RunCycle executes one full pipeline cycle:
// optional master import, presence scan, PO detection, PO validation,
// value extraction, worklist refresh.
func (p *Pipeline) RunCycle(ctx context.Context) (*CycleSummary, error) {
	summary := &CycleSummary{StartedAt: utils.NowUTCISO()}

	if p.cfg.POMasterCSV != "" {
		if _, err := os.Stat(p.cfg.POMasterCSV); err == nil {
			ms, err := p.master.Load(ctx, p.cfg.POMasterCSV)
			if err != nil {
				return nil, err
			}
			summary.Master = ms
			p.logger.Info("po master imported",
				"rows", ms.RowsLoaded,
				"skipped", ms.RowsSkipped,
				"source", ms.Source)
		} else {
			p.logger.Warn("po master CSV not found, keeping previous snapshot", "path", p.cfg.POMasterCSV)
		}
	}

	messages, err := scanner.LoadFeed(p.cfg.InboxJSON, p.cfg.AttachmentsDir, p.cfg.TrackedFolders, p.cfg.MaxItemsPerFolder)
	if err != nil {
		return nil, err
	}

	scan, err := p.scanner.Run(ctx, messages)
	if err != nil {
		return nil, err
	}
	summary.Scan = scan

	index, err := staging.Index(p.cfg.StagingDir)
	if err != nil {
		return nil, err
	}

	det, err := p.detector.Run(ctx, index)
	if err != nil {
		return nil, err
	}
	summary.Detect = det
	p.logger.Info("po detection complete",
		"candidates", det.Candidates,
		"processed", det.Processed,
		"missing_file", det.MissingFile,
		"no_text_layer", det.NoTextLayer)

	val, err := p.validator.Run(ctx)
	if err != nil {
		return nil, err
	}
	summary.Validate = val
	p.logger.Info("po validation complete",
		"validated", val.Validated,
		"valid", val.Valid,
		"not_in_master", val.PONotInMaster,
		"not_open", val.PONotOpen,
		"not_confirmed", val.PONotConfirmed)

	vals, err := p.values.Run(ctx, index)
	if err != nil {
		return nil, err
	}
	summary.Values = vals
	p.logger.Info("value extraction complete",
		"candidates", vals.Candidates,
		"processed", vals.Processed,
		"values_found", vals.ValuesFound)

	wl, err := p.classifier.Run(ctx)
	if err != nil {
		return nil, err
	}
	summary.Worklist = wl
	p.logger.Info("worklist refreshed", "run_id", wl.RunID, "items", wl.Items)

	summary.EndedAt = utils.NowUTCISO()
	return summary, nil
}
