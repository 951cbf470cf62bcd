package repository

import (
	"context"
	"database/sql"
	"fmt"
	"time"
)

// Overview is the aggregate snapshot the presentation layer renders.
// Amounts are minor units. Estimated exposure for value-missing invoices
// uses the median known gross as the per-invoice estimate.
type Overview struct {
	TotalPresent int `json:"total_present"`
	ReadyCount   int `json:"ready_count"`
	ManualCount  int `json:"manual_count"`

	POConfidencePct *float64 `json:"po_confidence_pct"`
	ValueCoverage   *float64 `json:"value_coverage_pct"`

	LastScan   *string `json:"last_scan"`
	OldestDays *int    `json:"oldest_days"`

	KnownExposure            *int64 `json:"known_exposure"`
	MedianGross              *int64 `json:"median_gross"`
	BiggestInvoice           *int64 `json:"biggest_invoice"`
	ValueCovered             int    `json:"value_covered"`
	MissingValueCount        int    `json:"missing_value_count"`
	EstimatedMissingExposure *int64 `json:"estimated_missing_exposure"`
	TotalEstimatedExposure   int64  `json:"total_estimated_exposure"`
	ReadyKnownExposure       *int64 `json:"ready_known_exposure"`

	OCRNeededCount int `json:"ocr_needed_count"`
}

// Overview computes the dashboard headline numbers over present invoices.
func (s *Store) Overview(ctx context.Context) (*Overview, error) {
	o := &Overview{}

	if err := s.db.GetContext(ctx, &o.TotalPresent,
		`SELECT COUNT(*) FROM inbox_invoice WHERE is_currently_present = 1`); err != nil {
		return nil, fmt.Errorf("failed to count present invoices: %w", err)
	}

	if err := s.db.GetContext(ctx, &o.ReadyCount, `
		SELECT COUNT(*) FROM inbox_invoice
		WHERE is_currently_present = 1 AND ready_to_post = 1
	`); err != nil {
		return nil, fmt.Errorf("failed to count ready invoices: %w", err)
	}
	o.ManualCount = o.TotalPresent - o.ReadyCount

	if o.TotalPresent > 0 {
		pct := round1(float64(o.ReadyCount) / float64(o.TotalPresent) * 100)
		o.POConfidencePct = &pct
	}

	var lastScan sql.NullString
	if err := s.db.GetContext(ctx, &lastScan,
		`SELECT COALESCE(MAX(last_scan_datetime), '') FROM inbox_invoice`); err != nil {
		return nil, fmt.Errorf("failed to read last scan time: %w", err)
	}
	if lastScan.Valid && lastScan.String != "" {
		o.LastScan = &lastScan.String
	}

	var oldestFirstSeen sql.NullString
	if err := s.db.GetContext(ctx, &oldestFirstSeen, `
		SELECT COALESCE(MIN(first_seen_datetime), '') FROM inbox_invoice
		WHERE is_currently_present = 1
	`); err != nil {
		return nil, fmt.Errorf("failed to read oldest first-seen: %w", err)
	}
	if ts, ok := parseISO(oldestFirstSeen.String); ok {
		days := int(time.Since(ts).Hours() / 24)
		o.OldestDays = &days
	}

	o.KnownExposure = s.nullableSum(ctx, `
		SELECT SUM(gross_total) FROM inbox_invoice
		WHERE is_currently_present = 1 AND gross_total IS NOT NULL AND gross_total > 0
	`)
	o.BiggestInvoice = s.nullableSum(ctx, `
		SELECT MAX(gross_total) FROM inbox_invoice
		WHERE is_currently_present = 1 AND gross_total IS NOT NULL AND gross_total > 0
	`)
	o.ReadyKnownExposure = s.nullableSum(ctx, `
		SELECT SUM(gross_total) FROM inbox_invoice
		WHERE is_currently_present = 1 AND ready_to_post = 1
		  AND gross_total IS NOT NULL AND gross_total > 0
	`)

	if err := s.db.GetContext(ctx, &o.ValueCovered, `
		SELECT COUNT(*) FROM inbox_invoice
		WHERE is_currently_present = 1 AND gross_total IS NOT NULL AND gross_total > 0
	`); err != nil {
		return nil, fmt.Errorf("failed to count valued invoices: %w", err)
	}
	o.MissingValueCount = o.TotalPresent - o.ValueCovered
	if o.MissingValueCount < 0 {
		o.MissingValueCount = 0
	}
	if o.TotalPresent > 0 {
		pct := round1(float64(o.ValueCovered) / float64(o.TotalPresent) * 100)
		o.ValueCoverage = &pct
	}

	// Median of known gross values, via the SQLite LIMIT/OFFSET trick
	o.MedianGross = s.nullableSum(ctx, `
		SELECT CAST(AVG(gross_total) AS INTEGER) FROM (
			SELECT gross_total
			FROM inbox_invoice
			WHERE is_currently_present = 1
			  AND gross_total IS NOT NULL AND gross_total > 0
			ORDER BY gross_total
			LIMIT 2 - (SELECT COUNT(*) FROM inbox_invoice
			           WHERE is_currently_present = 1
			             AND gross_total IS NOT NULL AND gross_total > 0) % 2
			OFFSET (SELECT (COUNT(*) - 1) / 2 FROM inbox_invoice
			        WHERE is_currently_present = 1
			          AND gross_total IS NOT NULL AND gross_total > 0)
		)
	`)

	if o.MissingValueCount > 0 && o.MedianGross != nil {
		est := *o.MedianGross * int64(o.MissingValueCount)
		o.EstimatedMissingExposure = &est
	}
	o.TotalEstimatedExposure = derefOrZero(o.KnownExposure) + derefOrZero(o.EstimatedMissingExposure)

	if err := s.db.GetContext(ctx, &o.OCRNeededCount, `
		SELECT COUNT(*) FROM inbox_invoice
		WHERE is_currently_present = 1 AND po_match_status = 'NO_TEXT_LAYER'
	`); err != nil {
		return nil, fmt.Errorf("failed to count no-text invoices: %w", err)
	}

	return o, nil
}

// StatusCount is one row of the detection-status breakdown.
type StatusCount struct {
	Status     string `json:"status" db:"status"`
	Count      int    `json:"count" db:"cnt"`
	GrossTotal int64  `json:"gross_total" db:"gross_total"`
}

// StatusBreakdown groups present invoices by detection status.
func (s *Store) StatusBreakdown(ctx context.Context) ([]StatusCount, error) {
	var rows []StatusCount
	err := s.db.SelectContext(ctx, &rows, `
		SELECT
			po_match_status AS status,
			COUNT(*) AS cnt,
			SUM(CASE WHEN gross_total IS NOT NULL AND gross_total > 0 THEN gross_total ELSE 0 END) AS gross_total
		FROM inbox_invoice
		WHERE is_currently_present = 1
		GROUP BY po_match_status
		ORDER BY cnt DESC, status ASC
	`)
	if err != nil {
		return nil, fmt.Errorf("failed to select status breakdown: %w", err)
	}

	return rows, nil
}

// AgeingBucket is one (age bucket, lane) cell: days since first seen,
// split into the ready and manual lanes.
type AgeingBucket struct {
	AgeBucket  string `json:"age_bucket" db:"age_bucket"`
	Lane       string `json:"lane" db:"lane"`
	Count      int    `json:"count" db:"cnt"`
	GrossTotal int64  `json:"gross_total" db:"gross_total"`
}

// AgeingBuckets buckets present invoices by days since first seen
// (0-1 / 2-3 / 4-7 / 8-14 / 15+).
func (s *Store) AgeingBuckets(ctx context.Context) ([]AgeingBucket, error) {
	var rows []AgeingBucket
	err := s.db.SelectContext(ctx, &rows, `
		WITH base AS (
			SELECT
				gross_total,
				ready_to_post AS is_ready,
				CAST((julianday('now') - julianday(first_seen_datetime)) AS INTEGER) AS age_days
			FROM inbox_invoice
			WHERE is_currently_present = 1
		),
		bucketed AS (
			SELECT
				CASE
					WHEN age_days <= 1 THEN '0-1 days'
					WHEN age_days BETWEEN 2 AND 3 THEN '2-3 days'
					WHEN age_days BETWEEN 4 AND 7 THEN '4-7 days'
					WHEN age_days BETWEEN 8 AND 14 THEN '8-14 days'
					ELSE '15+ days'
				END AS age_bucket,
				CASE WHEN is_ready = 1 THEN 'Ready' ELSE 'Manual' END AS lane,
				COUNT(*) AS cnt,
				SUM(CASE WHEN gross_total IS NOT NULL AND gross_total > 0 THEN gross_total ELSE 0 END) AS gross_total
			FROM base
			GROUP BY age_bucket, lane
		)
		SELECT age_bucket, lane, cnt, gross_total
		FROM bucketed
		ORDER BY
			CASE age_bucket
				WHEN '0-1 days' THEN 1
				WHEN '2-3 days' THEN 2
				WHEN '4-7 days' THEN 3
				WHEN '8-14 days' THEN 4
				ELSE 5
			END,
			lane DESC
	`)
	if err != nil {
		return nil, fmt.Errorf("failed to select ageing buckets: %w", err)
	}

	return rows, nil
}

func (s *Store) nullableSum(ctx context.Context, query string) *int64 {
	var v sql.NullInt64
	if err := s.db.GetContext(ctx, &v, query); err != nil || !v.Valid {
		return nil
	}
	return &v.Int64
}

func parseISO(value string) (time.Time, bool) {
	if value == "" {
		return time.Time{}, false
	}
	for _, layout := range []string{time.RFC3339, "2006-01-02T15:04:05"} {
		if ts, err := time.Parse(layout, value); err == nil {
			return ts, true
		}
	}
	return time.Time{}, false
}

func round1(v float64) float64 {
	return float64(int(v*10+0.5)) / 10
}

func derefOrZero(v *int64) int64 {
	if v == nil {
		return 0
	}
	return *v
}
