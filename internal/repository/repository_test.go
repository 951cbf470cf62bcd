package repository

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/finopslabs/apinbox/internal/db"
	"github.com/finopslabs/apinbox/internal/models"
)

func newTestStore(t *testing.T) *Store {
	t.Helper()

	dbFile := filepath.Join(t.TempDir(), "test.db")
	if err := db.RunMigrations(dbFile, "../db/migrations"); err != nil {
		t.Fatalf("failed to run migrations: %v", err)
	}

	database, err := db.NewSQLiteDB(dbFile)
	if err != nil {
		t.Fatalf("failed to open database: %v", err)
	}
	t.Cleanup(func() { database.Close() })

	return NewStore(database)
}

func strp(s string) *string { return &s }

func seedInvoice(t *testing.T, store *Store, hash, scanTS string) {
	t.Helper()
	ctx := context.Background()

	err := store.WithTx(ctx, func(tx *Tx) error {
		if err := tx.UpsertMessage(ctx, UpsertMessageParams{
			MessageID:       "MSG-" + hash,
			CurrentLocation: "Inbox",
			ScanTS:          scanTS,
			SenderAddress:   strp("billing@vendor.com"),
			Subject:         strp("Invoice"),
			HasAttachments:  true,
			AttachmentCount: 1,
		}); err != nil {
			return err
		}
		return tx.UpsertInvoice(ctx, UpsertInvoiceParams{
			DocumentHash:       hash,
			MessageID:          "MSG-" + hash,
			AttachmentFileName: "invoice.pdf",
			ScanTS:             scanTS,
			SourceFolderPath:   "Inbox",
		})
	})
	if err != nil {
		t.Fatalf("failed to seed invoice %s: %v", hash, err)
	}
}

func getInvoice(t *testing.T, store *Store, hash string) models.Invoice {
	t.Helper()
	var inv models.Invoice
	err := store.db.Get(&inv, `SELECT * FROM inbox_invoice WHERE document_hash = ?`, hash)
	if err != nil {
		t.Fatalf("failed to read invoice %s: %v", hash, err)
	}
	return inv
}

func TestUpsertInvoiceIdempotent(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	seedInvoice(t, store, "hash1", "2026-01-01T10:00:00Z")

	first := getInvoice(t, store, "hash1")
	if !first.IsCurrentlyPresent {
		t.Fatalf("invoice not present after first scan")
	}
	if first.POMatchStatus != models.POMatchUnscanned {
		t.Errorf("new invoice status = %s, want UNSCANNED", first.POMatchStatus)
	}

	// Record a detection outcome, then re-observe the same content.
	err := store.WithTx(ctx, func(tx *Tx) error {
		return tx.WriteDetection(ctx, "hash1", 1, models.POMatchSinglePO, []string{"PO-123456"}, "2026-01-01T10:05:00Z")
	})
	if err != nil {
		t.Fatalf("WriteDetection failed: %v", err)
	}

	seedInvoice(t, store, "hash1", "2026-01-02T10:00:00Z")

	second := getInvoice(t, store, "hash1")
	if second.FirstSeenDatetime != first.FirstSeenDatetime {
		t.Errorf("first_seen changed on re-observation: %s -> %s", first.FirstSeenDatetime, second.FirstSeenDatetime)
	}
	if second.LastSeenDatetime != "2026-01-02T10:00:00Z" {
		t.Errorf("last_seen = %s, want 2026-01-02T10:00:00Z", second.LastSeenDatetime)
	}
	if second.POMatchStatus != models.POMatchSinglePO {
		t.Errorf("re-observation clobbered detection status: %s", second.POMatchStatus)
	}

	var count int
	if err := store.db.Get(&count, `SELECT COUNT(*) FROM inbox_invoice`); err != nil {
		t.Fatalf("count failed: %v", err)
	}
	if count != 1 {
		t.Errorf("got %d invoice rows, want 1", count)
	}
}

func TestBeginCycleResetsPresenceExceptPosted(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	seedInvoice(t, store, "open1", "2026-01-01T10:00:00Z")
	seedInvoice(t, store, "posted1", "2026-01-01T10:00:00Z")

	if _, err := store.db.Exec(
		`UPDATE inbox_invoice SET posted_datetime = '2026-01-01T12:00:00Z' WHERE document_hash = 'posted1'`); err != nil {
		t.Fatalf("failed to mark posted: %v", err)
	}

	err := store.WithTx(ctx, func(tx *Tx) error {
		return tx.BeginCycle(ctx, "2026-01-02T10:00:00Z")
	})
	if err != nil {
		t.Fatalf("BeginCycle failed: %v", err)
	}

	if inv := getInvoice(t, store, "open1"); inv.IsCurrentlyPresent {
		t.Errorf("non-posted invoice still present after cycle reset")
	}
	if inv := getInvoice(t, store, "posted1"); !inv.IsCurrentlyPresent {
		t.Errorf("posted invoice presence changed by cycle reset")
	}
}

func TestWriteDetectionReplacesPOSetAndResetsValidation(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	seedInvoice(t, store, "hash1", "2026-01-01T10:00:00Z")

	err := store.WithTx(ctx, func(tx *Tx) error {
		if err := tx.WriteDetection(ctx, "hash1", 2, models.POMatchMultiplePOs, []string{"PO-111111", "PO-222222"}, "2026-01-01T10:05:00Z"); err != nil {
			return err
		}
		if err := tx.WriteValidation(ctx, "hash1", models.ValidationValidPO, true); err != nil {
			return err
		}
		// Re-detection must fully replace the PO set and drop stale validation.
		return tx.WriteDetection(ctx, "hash1", 1, models.POMatchSinglePO, []string{"PO-333333"}, "2026-01-01T10:06:00Z")
	})
	if err != nil {
		t.Fatalf("detection sequence failed: %v", err)
	}

	var pos []string
	if err := store.db.Select(&pos, `SELECT po_number FROM invoice_po WHERE document_hash = 'hash1' ORDER BY po_number`); err != nil {
		t.Fatalf("po select failed: %v", err)
	}
	if len(pos) != 1 || pos[0] != "PO-333333" {
		t.Errorf("po set = %v, want [PO-333333]", pos)
	}

	inv := getInvoice(t, store, "hash1")
	if inv.POValidationStatus != models.ValidationUnvalidated {
		t.Errorf("validation status = %s, want UNVALIDATED after re-detection", inv.POValidationStatus)
	}
}

func TestValidationCandidatesJoinMaster(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	seedInvoice(t, store, "known", "2026-01-01T10:00:00Z")
	seedInvoice(t, store, "unknown", "2026-01-01T10:00:00Z")

	err := store.WithTx(ctx, func(tx *Tx) error {
		if err := tx.ReplaceMaster(ctx, []models.POMasterRecord{
			{PONumber: "PO-111111", POStatus: "Open order", ApprovalStatus: "Confirmed", LastImportDatetime: "2026-01-01T09:00:00Z"},
		}); err != nil {
			return err
		}
		if err := tx.WriteDetection(ctx, "known", 1, models.POMatchSinglePO, []string{"PO-111111"}, "2026-01-01T10:05:00Z"); err != nil {
			return err
		}
		return tx.WriteDetection(ctx, "unknown", 1, models.POMatchSinglePO, []string{"PO-999999"}, "2026-01-01T10:05:00Z")
	})
	if err != nil {
		t.Fatalf("setup failed: %v", err)
	}

	var candidates []ValidationCandidate
	err = store.WithTx(ctx, func(tx *Tx) error {
		var err error
		candidates, err = tx.ValidationCandidates(ctx)
		return err
	})
	if err != nil {
		t.Fatalf("ValidationCandidates failed: %v", err)
	}

	if len(candidates) != 2 {
		t.Fatalf("got %d candidates, want 2", len(candidates))
	}

	// Ordered by document hash: "known" < "unknown"
	if candidates[0].POStatus == nil || *candidates[0].POStatus != "Open order" {
		t.Errorf("known PO status = %v, want Open order", candidates[0].POStatus)
	}
	if candidates[1].POStatus != nil {
		t.Errorf("unknown PO should have nil status, got %v", *candidates[1].POStatus)
	}
}

func TestForceNotReadyTargetsNonSingleOnly(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	seedInvoice(t, store, "single", "2026-01-01T10:00:00Z")
	seedInvoice(t, store, "multi", "2026-01-01T10:00:00Z")

	err := store.WithTx(ctx, func(tx *Tx) error {
		if err := tx.WriteDetection(ctx, "single", 1, models.POMatchSinglePO, []string{"PO-111111"}, "2026-01-01T10:05:00Z"); err != nil {
			return err
		}
		if err := tx.WriteDetection(ctx, "multi", 2, models.POMatchMultiplePOs, []string{"PO-111111", "PO-222222"}, "2026-01-01T10:05:00Z"); err != nil {
			return err
		}
		if err := tx.WriteValidation(ctx, "single", models.ValidationValidPO, true); err != nil {
			return err
		}
		// Simulate a stale ready flag on a multi-PO document
		return tx.WriteValidation(ctx, "multi", models.ValidationValidPO, true)
	})
	if err != nil {
		t.Fatalf("setup failed: %v", err)
	}

	var forced int64
	err = store.WithTx(ctx, func(tx *Tx) error {
		var err error
		forced, err = tx.ForceNotReady(ctx)
		return err
	})
	if err != nil {
		t.Fatalf("ForceNotReady failed: %v", err)
	}
	if forced != 1 {
		t.Errorf("forced = %d, want 1", forced)
	}

	if inv := getInvoice(t, store, "single"); !inv.ReadyToPost {
		t.Errorf("single-PO invoice lost its ready flag")
	}
	if inv := getInvoice(t, store, "multi"); inv.ReadyToPost {
		t.Errorf("multi-PO invoice kept a stale ready flag")
	}
}

func TestResetDetectionRejectsPosted(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	seedInvoice(t, store, "posted1", "2026-01-01T10:00:00Z")
	if _, err := store.db.Exec(
		`UPDATE inbox_invoice SET posted_datetime = '2026-01-01T12:00:00Z' WHERE document_hash = 'posted1'`); err != nil {
		t.Fatalf("failed to mark posted: %v", err)
	}

	err := store.WithTx(ctx, func(tx *Tx) error {
		return tx.ResetDetection(ctx, "posted1")
	})
	if err == nil {
		t.Fatalf("expected error resetting a posted invoice")
	}
}

func TestPostedInvoiceExcludedFromAllStages(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	seedInvoice(t, store, "posted1", "2026-01-01T10:00:00Z")
	if _, err := store.db.Exec(
		`UPDATE inbox_invoice SET posted_datetime = '2026-01-01T12:00:00Z' WHERE document_hash = 'posted1'`); err != nil {
		t.Fatalf("failed to mark posted: %v", err)
	}

	err := store.WithTx(ctx, func(tx *Tx) error {
		detect, err := tx.InvoicesNeedingDetection(ctx)
		if err != nil {
			return err
		}
		if len(detect) != 0 {
			t.Errorf("posted invoice offered for detection: %v", detect)
		}

		values, err := tx.InvoicesNeedingValues(ctx)
		if err != nil {
			return err
		}
		if len(values) != 0 {
			t.Errorf("posted invoice offered for value extraction: %v", values)
		}

		candidates, err := tx.ValidationCandidates(ctx)
		if err != nil {
			return err
		}
		if len(candidates) != 0 {
			t.Errorf("posted invoice offered for validation: %v", candidates)
		}
		return nil
	})
	if err != nil {
		t.Fatalf("candidate queries failed: %v", err)
	}
}

func TestInvoicesNeedingValues(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	seedInvoice(t, store, "unvalued", "2026-01-01T10:00:00Z")
	seedInvoice(t, store, "zeroed", "2026-01-01T10:00:00Z")
	seedInvoice(t, store, "valued", "2026-01-01T10:00:00Z")

	gross := int64(12000)
	zero := int64(0)
	err := store.WithTx(ctx, func(tx *Tx) error {
		if err := tx.WriteValues(ctx, "valued", nil, nil, &gross); err != nil {
			return err
		}
		return tx.WriteValues(ctx, "zeroed", nil, nil, &zero)
	})
	if err != nil {
		t.Fatalf("setup failed: %v", err)
	}

	var hashes []string
	err = store.WithTx(ctx, func(tx *Tx) error {
		var err error
		hashes, err = tx.InvoicesNeedingValues(ctx)
		return err
	})
	if err != nil {
		t.Fatalf("InvoicesNeedingValues failed: %v", err)
	}

	if len(hashes) != 2 {
		t.Fatalf("got %v, want [unvalued zeroed]", hashes)
	}
	for _, h := range hashes {
		if h == "valued" {
			t.Errorf("already-valued invoice offered for extraction")
		}
	}
}

func TestWorklistReplaceAndHistoryAppend(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	seedInvoice(t, store, "aaa", "2026-01-01T10:00:00Z")
	seedInvoice(t, store, "bbb", "2026-01-01T10:00:00Z")

	item := func(hash, action string, priority int) models.WorkItem {
		return models.WorkItem{
			DocumentHash:       hash,
			NextAction:         action,
			ActionReason:       "TEST",
			Priority:           priority,
			GeneratedAtUTC:     "2026-01-01T10:00:00Z",
			IsCurrentlyPresent: true,
		}
	}

	err := store.WithTx(ctx, func(tx *Tx) error {
		return tx.ReplaceWorklist(ctx, "run-1", []models.WorkItem{
			item("aaa", "MANUAL REVIEW", 20),
			item("bbb", "MANUAL REVIEW", 50),
		})
	})
	if err != nil {
		t.Fatalf("first run failed: %v", err)
	}

	err = store.WithTx(ctx, func(tx *Tx) error {
		return tx.ReplaceWorklist(ctx, "run-2", []models.WorkItem{
			item("aaa", "READY TO POST", 5),
		})
	})
	if err != nil {
		t.Fatalf("second run failed: %v", err)
	}

	current, err := store.CurrentWorklist(ctx)
	if err != nil {
		t.Fatalf("CurrentWorklist failed: %v", err)
	}
	if len(current) != 1 || current[0].DocumentHash != "aaa" {
		t.Errorf("current worklist = %+v, want only aaa", current)
	}

	var historyCount int
	if err := store.db.Get(&historyCount, `SELECT COUNT(*) FROM invoice_worklist_history`); err != nil {
		t.Fatalf("history count failed: %v", err)
	}
	if historyCount != 3 {
		t.Errorf("history rows = %d, want 3 (append-only)", historyCount)
	}

	err = store.WithTx(ctx, func(tx *Tx) error {
		prev, err := tx.PreviousRunID(ctx, "run-2")
		if err != nil {
			return err
		}
		if prev != "run-1" {
			t.Errorf("previous run = %s, want run-1", prev)
		}

		changes, err := tx.ActionChanges(ctx, "run-1", "run-2")
		if err != nil {
			return err
		}
		if len(changes) != 1 || changes[0].PrevAction != "MANUAL REVIEW" || changes[0].CurrAction != "READY TO POST" {
			t.Errorf("action changes = %+v", changes)
		}
		return nil
	})
	if err != nil {
		t.Fatalf("history inspection failed: %v", err)
	}
}

func TestReplaceMasterIsFullRefresh(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	err := store.WithTx(ctx, func(tx *Tx) error {
		return tx.ReplaceMaster(ctx, []models.POMasterRecord{
			{PONumber: "PO-111111", POStatus: "Open order", ApprovalStatus: "Confirmed", LastImportDatetime: "2026-01-01T09:00:00Z"},
			{PONumber: "PO-222222", POStatus: "Closed", ApprovalStatus: "Confirmed", LastImportDatetime: "2026-01-01T09:00:00Z"},
		})
	})
	if err != nil {
		t.Fatalf("first import failed: %v", err)
	}

	err = store.WithTx(ctx, func(tx *Tx) error {
		return tx.ReplaceMaster(ctx, []models.POMasterRecord{
			{PONumber: "PO-333333", POStatus: "Open order", ApprovalStatus: "Confirmed", LastImportDatetime: "2026-01-02T09:00:00Z"},
		})
	})
	if err != nil {
		t.Fatalf("second import failed: %v", err)
	}

	count, err := store.MasterCount(ctx)
	if err != nil {
		t.Fatalf("MasterCount failed: %v", err)
	}
	if count != 1 {
		t.Errorf("master count = %d, want 1 after full refresh", count)
	}
}
