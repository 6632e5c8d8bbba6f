package staging

import (
	"context"
	"database/sql"
	"fmt"
)

// RecordSkip appends one skip-reason row (spec.md §7's "local recovery":
// failures are recorded, not fatal, unless the stage itself is fatal).
func (s *Store) RecordSkip(ctx context.Context, stage, subject, reason string) error {
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO diagnostics (stage, reason, detail, trail_uuid) VALUES (?, ?, ?, ?)`,
		stage, reason, "", subject,
	)
	if err != nil {
		return fmt.Errorf("staging: record skip for stage %s: %w", stage, err)
	}
	return nil
}

// SkipReasonRow is one persisted diagnostics row.
type SkipReasonRow struct {
	Stage   string
	Subject string
	Reason  string
}

// ListSkips returns every recorded skip reason for stage, or all stages if
// stage is empty.
func (s *Store) ListSkips(ctx context.Context, stage string) ([]SkipReasonRow, error) {
	var rows *sql.Rows
	var err error
	if stage == "" {
		rows, err = s.db.QueryContext(ctx, `SELECT stage, trail_uuid, reason FROM diagnostics ORDER BY id`)
	} else {
		rows, err = s.db.QueryContext(ctx, `SELECT stage, trail_uuid, reason FROM diagnostics WHERE stage = ? ORDER BY id`, stage)
	}
	if err != nil {
		return nil, fmt.Errorf("staging: list skips: %w", err)
	}
	defer rows.Close()

	var out []SkipReasonRow
	for rows.Next() {
		var r SkipReasonRow
		if err := rows.Scan(&r.Stage, &r.Subject, &r.Reason); err != nil {
			return nil, fmt.Errorf("staging: scan skip row: %w", err)
		}
		out = append(out, r)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("staging: iterate skip rows: %w", err)
	}
	return out, nil
}
