package suppression

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/JaimeStill/pulse/internal/issues"
	"github.com/JaimeStill/pulse/pkg/pagination"
	"github.com/JaimeStill/pulse/pkg/query"
	"github.com/JaimeStill/pulse/pkg/repository"
	"github.com/JaimeStill/pulse/pkg/timestamp"
)

type repo struct {
	db         *sql.DB
	org        *timestamp.Org
	config     Config
	logger     *slog.Logger
	pagination pagination.Config
}

// New creates a suppression engine implementing the System interface.
func New(
	db *sql.DB,
	org *timestamp.Org,
	config Config,
	logger *slog.Logger,
	pagination pagination.Config,
) System {
	return &repo{
		db:         db,
		org:        org,
		config:     config,
		logger:     logger.With("system", "suppression"),
		pagination: pagination,
	}
}

func (r *repo) Handler() *Handler {
	return NewHandler(r, r.logger, r.pagination)
}

func (r *repo) List(
	ctx context.Context,
	page pagination.PageRequest,
	filters Filters,
) (*pagination.PageResult[Rule], error) {
	page.Normalize(r.pagination)

	qb := query.NewBuilder(projection, defaultSort)
	filters.Apply(qb)

	if filters.ActiveOnly {
		qb.WhereIsNull("DeletedAt")
		qb.WhereExpr("(r.expires_at IS NULL OR r.expires_at > $%d)", timestamp.Now())
	}

	if len(page.Sort) > 0 {
		qb.OrderByFields(page.Sort)
	}

	countSQL, countArgs := qb.BuildCount()
	var total int
	if err := r.db.QueryRowContext(ctx, countSQL, countArgs...).Scan(&total); err != nil {
		return nil, fmt.Errorf("count suppression rules: %w", err)
	}

	pageSQL, pageArgs := qb.BuildPage(page.Page, page.PageSize)
	rules, err := repository.QueryMany(ctx, r.db, pageSQL, pageArgs, scanRule)
	if err != nil {
		return nil, fmt.Errorf("query suppression rules: %w", err)
	}

	result := pagination.NewPageResult(rules, total, page.Page, page.PageSize)
	return &result, nil
}

// Delete retires a rule and immediately unsuppresses its linked issue,
// bypassing the hourly reconciliation lag.
func (r *repo) Delete(ctx context.Context, id uuid.UUID, actor string) error {
	err := repository.WithTxNoResult(ctx, r.db, func(tx *sql.Tx) error {
		now := timestamp.Now()

		q := `
			UPDATE suppression_rules SET deleted_at = $2
			WHERE id = $1 AND deleted_at IS NULL
			RETURNING issue_id`

		var issueID *uuid.UUID
		if err := tx.QueryRowContext(ctx, q, id, now).Scan(&issueID); err != nil {
			return repository.MapError(err, ErrNotFound, ErrDuplicate)
		}

		if issueID == nil {
			return nil
		}

		if err := issues.UnsuppressIssueTx(ctx, tx, *issueID, now); err != nil {
			// Reconciliation may already have cleared the flag.
			if errors.Is(err, issues.ErrNotFound) {
				return nil
			}
			return err
		}
		return nil
	})

	if err != nil {
		return err
	}

	r.logger.Info("suppression rule deleted", "id", id, "actor", actor)
	return nil
}

func (r *repo) ActiveTx(ctx context.Context, tx *sql.Tx, key, now string) (*Rule, error) {
	q := `
		SELECT id, suppression_key, item_type, issue_id, expires_at, created_at, created_by, deleted_at
		FROM suppression_rules
		WHERE suppression_key = $1
			AND deleted_at IS NULL
			AND (expires_at IS NULL OR expires_at > $2)`

	rule, err := repository.QueryOne(ctx, tx, q, []any{key, now}, scanRule)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, nil
		}
		return nil, fmt.Errorf("lookup suppression rule: %w", err)
	}

	return &rule, nil
}

func (r *repo) UpsertRuleTx(ctx context.Context, tx *sql.Tx, rule *Rule) error {
	if rule.ID == uuid.Nil {
		rule.ID = uuid.New()
	}

	q := `
		INSERT INTO suppression_rules(id, suppression_key, item_type, issue_id, expires_at, created_at, created_by)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		ON CONFLICT (suppression_key) DO UPDATE
		SET item_type = EXCLUDED.item_type,
			issue_id = EXCLUDED.issue_id,
			expires_at = EXCLUDED.expires_at,
			created_at = EXCLUDED.created_at,
			created_by = EXCLUDED.created_by,
			deleted_at = NULL`

	if _, err := tx.ExecContext(ctx, q,
		rule.ID,
		rule.SuppressionKey,
		rule.ItemType,
		rule.IssueID,
		rule.ExpiresAt,
		rule.CreatedAt,
		rule.CreatedBy,
	); err != nil {
		return fmt.Errorf("upsert suppression rule: %w", err)
	}

	return nil
}

func (r *repo) RetireForIssueTx(ctx context.Context, tx *sql.Tx, issueID uuid.UUID, now string) error {
	_, err := tx.ExecContext(
		ctx,
		"UPDATE suppression_rules SET deleted_at = $2 WHERE issue_id = $1 AND deleted_at IS NULL",
		issueID, now,
	)
	if err != nil {
		return fmt.Errorf("retire suppression rules for issue: %w", err)
	}
	return nil
}

func (r *repo) ExpiryFor(itemType string) string {
	return r.org.MidnightAfterDays(time.Now(), r.config.TTLDays(itemType))
}
