// Package canary verifies the timestamp invariants the rest of the system
// leans on: canonical shape in every stored column, lexicographic ordering
// between related columns, and state/column consistency. It alerts and
// quarantines; it never mutates domain rows and never fails startup.
package canary

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"

	"github.com/google/uuid"

	"github.com/JaimeStill/pulse/pkg/lifecycle"
	"github.com/JaimeStill/pulse/pkg/repository"
	"github.com/JaimeStill/pulse/pkg/timestamp"
)

// timestampColumns enumerates every stored canonical timestamp in the
// schema. A column added without an entry here escapes shape checking.
var timestampColumns = map[string][]string{
	"signals":           {"observed_at", "ingested_at"},
	"issues":            {"last_signal_at", "snooze_until", "regression_watch_until", "created_at", "updated_at"},
	"issue_transitions": {"created_at"},
	"issue_signals":     {"linked_at"},
	"inbox_items":       {"proposed_at", "last_refreshed_at", "resurfaced_at", "read_at", "snoozed_at", "snooze_until", "dismissed_at", "resolved_at", "updated_at"},
	"suppression_rules": {"expires_at", "created_at", "deleted_at"},
}

// Canary scans the schema for timestamp and consistency violations.
type Canary struct {
	db     *sql.DB
	config Config
	logger *slog.Logger
}

// New creates a Canary.
func New(db *sql.DB, config Config, logger *slog.Logger) *Canary {
	return &Canary{
		db:     db,
		config: config,
		logger: logger.With("system", "canary"),
	}
}

// Start registers the scan as a startup hook. Violations are logged and
// quarantined; the scan itself never blocks readiness on bad data.
func (c *Canary) Start(coordinator *lifecycle.Coordinator) {
	ctx := coordinator.Context()
	coordinator.OnStartup(func() {
		if err := c.Scan(ctx); err != nil {
			c.logger.Error("canary scan aborted", "error", err)
		}
	})
}

// Scan runs every check once and reports the violation count.
func (c *Canary) Scan(ctx context.Context) error {
	violations := 0

	for table, columns := range timestampColumns {
		for _, column := range columns {
			n, err := c.scanColumn(ctx, table, column)
			if err != nil {
				return fmt.Errorf("scan %s.%s: %w", table, column, err)
			}
			violations += n
		}
	}

	n, err := c.scanConsistency(ctx)
	if err != nil {
		return err
	}
	violations += n

	if violations > 0 {
		c.logger.Error("canary scan found violations", "count", violations)
	} else {
		c.logger.Info("canary scan clean")
	}
	return nil
}

type flaggedRow struct {
	id    uuid.UUID
	value string
}

// scanColumn validates every non-null value in one timestamp column.
func (c *Canary) scanColumn(ctx context.Context, table, column string) (int, error) {
	q := fmt.Sprintf(
		"SELECT id, %s FROM %s WHERE %s IS NOT NULL LIMIT %d",
		column, table, column, c.config.MaxRowsPerCheck,
	)

	rows, err := repository.QueryMany(ctx, c.db, q, nil, func(row repository.Scanner) (flaggedRow, error) {
		var fr flaggedRow
		err := row.Scan(&fr.id, &fr.value)
		return fr, err
	})
	if err != nil {
		return 0, err
	}

	violations := 0
	for _, fr := range rows {
		if err := CheckShape(fr.value); err != nil {
			violations++
			c.alert(ctx, table, fr.id, fmt.Sprintf("%s: %v", column, err))
		}
	}
	return violations, nil
}

// scanConsistency runs the cross-column invariants as SQL predicates.
// Canonical shape makes the string comparisons in these queries sound.
func (c *Canary) scanConsistency(ctx context.Context) (int, error) {
	checks := []struct {
		table  string
		reason string
		query  string
	}{
		{
			"issues", "updated_at precedes created_at",
			"SELECT id FROM issues WHERE updated_at < created_at",
		},
		{
			"inbox_items", "updated_at precedes proposed_at",
			"SELECT id FROM inbox_items WHERE updated_at < proposed_at",
		},
		{
			"inbox_items", "resurfaced_at precedes proposed_at",
			"SELECT id FROM inbox_items WHERE resurfaced_at IS NOT NULL AND resurfaced_at < proposed_at",
		},
		{
			"issues", "persisted transient state",
			"SELECT id FROM issues WHERE state = 'resolved'",
		},
		{
			"issues", "watch window inconsistent with state",
			`SELECT id FROM issues
			WHERE (state = 'regression_watch') <> (regression_watch_until IS NOT NULL)`,
		},
		{
			"issues", "snoozed issue missing snooze fields",
			"SELECT id FROM issues WHERE state = 'snoozed' AND (snooze_until IS NULL OR snoozed_from IS NULL)",
		},
		{
			"issues", "stale snooze fields outside snoozed state",
			"SELECT id FROM issues WHERE state <> 'snoozed' AND (snooze_until IS NOT NULL OR snoozed_from IS NOT NULL)",
		},
		{
			"issues", "suppressed issue has no active rule",
			fmt.Sprintf(`SELECT i.id FROM issues i
			WHERE i.suppressed AND NOT EXISTS (
				SELECT 1 FROM suppression_rules r
				WHERE r.issue_id = i.id
					AND r.deleted_at IS NULL
					AND (r.expires_at IS NULL OR r.expires_at > '%s')
			)`, timestamp.Now()),
		},
	}

	violations := 0
	for _, check := range checks {
		ids, err := repository.QueryMany(ctx, c.db, check.query, nil, func(row repository.Scanner) (uuid.UUID, error) {
			var id uuid.UUID
			err := row.Scan(&id)
			return id, err
		})
		if err != nil {
			return violations, fmt.Errorf("consistency check %q: %w", check.reason, err)
		}

		for _, id := range ids {
			violations++
			c.alert(ctx, check.table, id, check.reason)
		}
	}

	return violations, nil
}

// alert logs the violation and records it in quarantined_rows. Quarantine is
// an audit trail for operators; domain rows are never touched.
func (c *Canary) alert(ctx context.Context, table string, rowID uuid.UUID, reason string) {
	c.logger.Error("invariant violation",
		"table", table,
		"row_id", rowID,
		"reason", reason,
	)

	q := `
		INSERT INTO quarantined_rows(id, table_name, row_id, reason, detected_at)
		VALUES ($1, $2, $3, $4, $5)
		ON CONFLICT (table_name, row_id, reason) DO NOTHING`

	if _, err := c.db.ExecContext(ctx, q, uuid.New(), table, rowID, reason, timestamp.Now()); err != nil {
		c.logger.Error("quarantine insert failed", "table", table, "row_id", rowID, "error", err)
	}
}
