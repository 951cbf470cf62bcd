package validate

import (
	"context"
	"fmt"

	"github.com/finopslabs/apinbox/internal/models"
	"github.com/finopslabs/apinbox/internal/repository"
	"github.com/finopslabs/apinbox/internal/utils"
)

// Master truth values required for a PO to be postable.
const (
	ValidOpenStatus     = "Open order"
	ValidApprovalStatus = "Confirmed"
)

// Validator joins detected POs against the master snapshot. Unlike
// detection it re-runs every cycle, so master-data drift (a PO closing
// after detection) is reflected on the next run.
type Validator struct {
	store   *repository.Store
	logger  *utils.Logger
	verbose bool
}

func NewValidator(store *repository.Store, logger *utils.Logger, verbose bool) *Validator {
	return &Validator{store: store, logger: logger, verbose: verbose}
}

// Summary reports one validation run.
type Summary struct {
	Validated      int   `json:"validated"`
	Valid          int   `json:"valid"`
	PONotInMaster  int   `json:"po_not_in_master"`
	PONotOpen      int   `json:"po_not_open"`
	PONotConfirmed int   `json:"po_not_confirmed"`
	ForcedNotReady int64 `json:"forced_not_ready"`
}

// Outcome maps one master lookup to a validation status and the derived
// readiness flag. ready_to_post is true iff the status is VALID_PO.
func Outcome(poStatus, approvalStatus *string) (string, bool) {
	switch {
	case poStatus == nil:
		return models.ValidationPONotInMaster, false
	case *poStatus != ValidOpenStatus:
		return models.ValidationPONotOpen, false
	case approvalStatus == nil || *approvalStatus != ValidApprovalStatus:
		return models.ValidationPONotConfirmed, false
	default:
		return models.ValidationValidPO, true
	}
}

// Run validates all eligible invoices inside one transaction. Before
// re-validating, any invoice whose detection status is not
// SINGLE_PO_DETECTED has its readiness flag cleared.
func (v *Validator) Run(ctx context.Context) (*Summary, error) {
	summary := &Summary{}

	err := v.store.WithTx(ctx, func(tx *repository.Tx) error {
		forced, err := tx.ForceNotReady(ctx)
		if err != nil {
			return err
		}
		summary.ForcedNotReady = forced

		if err := tx.ResetValidation(ctx); err != nil {
			return err
		}

		candidates, err := tx.ValidationCandidates(ctx)
		if err != nil {
			return err
		}

		if v.verbose {
			v.logger.Debug("validation candidates", "count", len(candidates))
		}

		for _, c := range candidates {
			status, ready := Outcome(c.POStatus, c.ApprovalStatus)

			switch status {
			case models.ValidationValidPO:
				summary.Valid++
			case models.ValidationPONotInMaster:
				summary.PONotInMaster++
			case models.ValidationPONotOpen:
				summary.PONotOpen++
			case models.ValidationPONotConfirmed:
				summary.PONotConfirmed++
			}

			if v.verbose {
				v.logger.Debug("validation outcome",
					"document_hash", c.DocumentHash,
					"po_number", c.PONumber,
					"status", status,
					"ready", ready)
			}

			if err := tx.WriteValidation(ctx, c.DocumentHash, status, ready); err != nil {
				return err
			}
			summary.Validated++
		}

		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("po validation stage failed: %w", err)
	}

	return summary, nil
}
