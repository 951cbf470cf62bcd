package master

import (
	"context"
	"encoding/csv"
	"fmt"
	"os"
	"strings"

	"github.com/finopslabs/apinbox/internal/models"
	"github.com/finopslabs/apinbox/internal/repository"
	"github.com/finopslabs/apinbox/internal/utils"
)

// Header aliases: canonical names plus the common ERP export spellings.
var headerAliases = map[string][]string{
	"po_number":       {"po_number", "Purchase order", "Purchase Order", "PO Number", "PO"},
	"po_status":       {"po_status", "Purchase order status", "PO status", "PO Status"},
	"approval_status": {"approval_status", "Approval status", "Approval Status"},
}

// Loader imports the PO master snapshot from CSV. Full refresh per run:
// the snapshot is overwritten wholesale, never merged.
type Loader struct {
	store  *repository.Store
	logger *utils.Logger
}

func NewLoader(store *repository.Store, logger *utils.Logger) *Loader {
	return &Loader{store: store, logger: logger}
}

// Summary reports one import.
type Summary struct {
	RowsLoaded  int    `json:"rows_loaded"`
	RowsSkipped int    `json:"rows_skipped"`
	Source      string `json:"source"`
	ImportedAt  string `json:"imported_at"`
}

// Load parses csvPath and replaces the snapshot inside one transaction.
// Rows with a blank PO identifier are skipped and counted, not fatal.
func (l *Loader) Load(ctx context.Context, csvPath string) (*Summary, error) {
	data, err := os.ReadFile(csvPath)
	if err != nil {
		return nil, fmt.Errorf("failed to read PO master CSV %s: %w", csvPath, err)
	}

	text, err := decodeText(data)
	if err != nil {
		return nil, fmt.Errorf("failed to decode PO master CSV %s: %w", csvPath, err)
	}

	now := utils.NowUTCISO()

	records, skipped, err := parseCSV(text, now)
	if err != nil {
		return nil, err
	}

	err = l.store.WithTx(ctx, func(tx *repository.Tx) error {
		return tx.ReplaceMaster(ctx, records)
	})
	if err != nil {
		return nil, fmt.Errorf("master import failed: %w", err)
	}

	return &Summary{
		RowsLoaded:  len(records),
		RowsSkipped: skipped,
		Source:      csvPath,
		ImportedAt:  now,
	}, nil
}

func parseCSV(text, importedAt string) ([]models.POMasterRecord, int, error) {
	reader := csv.NewReader(strings.NewReader(text))
	reader.FieldsPerRecord = -1

	header, err := reader.Read()
	if err != nil {
		return nil, 0, fmt.Errorf("failed to read PO master header: %w", err)
	}

	cols, err := resolveColumns(header)
	if err != nil {
		return nil, 0, err
	}

	var records []models.POMasterRecord
	skipped := 0

	for {
		row, err := reader.Read()
		if err != nil {
			break
		}

		poNumber := fieldAt(row, cols["po_number"])
		if poNumber == "" {
			skipped++
			continue
		}

		records = append(records, models.POMasterRecord{
			PONumber:           poNumber,
			POStatus:           fieldAt(row, cols["po_status"]),
			ApprovalStatus:     fieldAt(row, cols["approval_status"]),
			LastImportDatetime: importedAt,
		})
	}

	return records, skipped, nil
}

// resolveColumns maps canonical field names to header indexes, accepting
// either canonical or export-style headers.
func resolveColumns(header []string) (map[string]int, error) {
	index := make(map[string]int, len(header))
	for i, h := range header {
		index[strings.TrimSpace(h)] = i
	}

	cols := make(map[string]int, len(headerAliases))
	var missing []string

	for canonical, aliases := range headerAliases {
		found := -1
		for _, alias := range aliases {
			if i, ok := index[alias]; ok {
				found = i
				break
			}
		}
		if found < 0 {
			missing = append(missing, canonical)
			continue
		}
		cols[canonical] = found
	}

	if len(missing) > 0 {
		return nil, fmt.Errorf("PO master CSV missing required columns %v, found headers %v", missing, header)
	}

	return cols, nil
}

func fieldAt(row []string, i int) string {
	if i < 0 || i >= len(row) {
		return ""
	}
	return strings.TrimSpace(row[i])
}
