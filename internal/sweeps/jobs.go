package sweeps

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/google/uuid"

	"github.com/JaimeStill/pulse/internal/inbox"
	"github.com/JaimeStill/pulse/internal/issues"
	"github.com/JaimeStill/pulse/pkg/repository"
	"github.com/JaimeStill/pulse/pkg/timestamp"
)

// expireIssueSnoozes restores snoozed issues whose expiry has passed to
// their pre-snooze state.
func (s *Scheduler) expireIssueSnoozes(ctx context.Context) error {
	return repository.WithTxNoResult(ctx, s.db, func(tx *sql.Tx) error {
		now := timestamp.Now()

		type snoozed struct {
			id   uuid.UUID
			from issues.State
		}

		rows, err := repository.QueryMany(ctx, tx, `
			SELECT id, snoozed_from FROM issues
			WHERE state = 'snoozed' AND snooze_until <= $1
			FOR UPDATE SKIP LOCKED`,
			[]any{now},
			func(row repository.Scanner) (snoozed, error) {
				var sn snoozed
				err := row.Scan(&sn.id, &sn.from)
				return sn, err
			},
		)
		if err != nil {
			return fmt.Errorf("claim expired issue snoozes: %w", err)
		}

		for _, sn := range rows {
			err := issues.RestoreFromSnoozeTx(ctx, tx, sn.id, sn.from, issues.ReasonSystemTimer, "system", now)
			if err != nil {
				return err
			}
			s.logger.Info("issue snooze expired", "issue_id", sn.id, "restored_to", sn.from)
		}

		return nil
	})
}

// resurfaceInboxItems returns snoozed inbox items whose expiry has passed to
// proposed. The read flag survives the round trip.
func (s *Scheduler) resurfaceInboxItems(ctx context.Context) error {
	return repository.WithTxNoResult(ctx, s.db, func(tx *sql.Tx) error {
		now := timestamp.Now()

		ids, err := repository.QueryMany(ctx, tx, `
			SELECT id FROM inbox_items
			WHERE state = 'snoozed' AND snooze_until <= $1
			FOR UPDATE SKIP LOCKED`,
			[]any{now},
			scanID,
		)
		if err != nil {
			return fmt.Errorf("claim expired inbox snoozes: %w", err)
		}

		for _, id := range ids {
			if err := inbox.ResurfaceTx(ctx, tx, id, now); err != nil {
				return err
			}
			s.logger.Info("inbox item resurfaced", "item_id", id)
		}

		return nil
	})
}

// expireSuppressionRules retires rules past their TTL and unsuppresses their
// issues, then reconciles: any issue still flagged suppressed without an
// active rule is unsuppressed, regardless of how the rule went away.
func (s *Scheduler) expireSuppressionRules(ctx context.Context) error {
	return repository.WithTxNoResult(ctx, s.db, func(tx *sql.Tx) error {
		now := timestamp.Now()

		expired, err := repository.QueryMany(ctx, tx, `
			UPDATE suppression_rules SET deleted_at = $1
			WHERE deleted_at IS NULL AND expires_at IS NOT NULL AND expires_at <= $1
			RETURNING id`,
			[]any{now},
			scanID,
		)
		if err != nil {
			return fmt.Errorf("expire suppression rules: %w", err)
		}
		for _, id := range expired {
			s.logger.Info("suppression rule expired", "rule_id", id)
		}

		orphaned, err := repository.QueryMany(ctx, tx, `
			SELECT i.id FROM issues i
			WHERE i.suppressed AND NOT EXISTS (
				SELECT 1 FROM suppression_rules r
				WHERE r.issue_id = i.id
					AND r.deleted_at IS NULL
					AND (r.expires_at IS NULL OR r.expires_at > $1)
			)
			FOR UPDATE SKIP LOCKED`,
			[]any{now},
			scanID,
		)
		if err != nil {
			return fmt.Errorf("find suppressed issues without active rules: %w", err)
		}

		for _, id := range orphaned {
			if err := issues.UnsuppressIssueTx(ctx, tx, id, now); err != nil {
				if errors.Is(err, issues.ErrNotFound) {
					continue
				}
				return err
			}
			s.logger.Info("issue unsuppressed", "issue_id", id)
		}

		return nil
	})
}

// closeRegressionWatches closes issues whose watch window lapsed without a
// recurrence. Closed is terminal; a later recurrence becomes a new issue.
func (s *Scheduler) closeRegressionWatches(ctx context.Context) error {
	return repository.WithTxNoResult(ctx, s.db, func(tx *sql.Tx) error {
		now := timestamp.Now()

		ids, err := repository.QueryMany(ctx, tx, `
			SELECT id FROM issues
			WHERE state = 'regression_watch' AND regression_watch_until <= $1
			FOR UPDATE SKIP LOCKED`,
			[]any{now},
			scanID,
		)
		if err != nil {
			return fmt.Errorf("claim lapsed regression watches: %w", err)
		}

		for _, id := range ids {
			err := issues.TransitionTx(ctx, tx, s.archiver, issues.TransitionSpec{
				IssueID: id,
				Prev:    issues.StateRegressionWatch,
				Next:    issues.StateClosed,
				Reason:  issues.ReasonSystemTimer,
				Actor:   "system",
			}, now)
			if err != nil {
				return err
			}
			s.logger.Info("issue closed after clean regression watch", "issue_id", id)
		}

		return nil
	})
}

func scanID(row repository.Scanner) (uuid.UUID, error) {
	var id uuid.UUID
	err := row.Scan(&id)
	return id, err
}
