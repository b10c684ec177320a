package signals

import (
	"bytes"
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"log/slog"

	"github.com/google/uuid"

	"github.com/JaimeStill/pulse/internal/engagements"
	"github.com/JaimeStill/pulse/pkg/fault"
	"github.com/JaimeStill/pulse/pkg/pagination"
	"github.com/JaimeStill/pulse/pkg/query"
	"github.com/JaimeStill/pulse/pkg/repository"
	"github.com/JaimeStill/pulse/pkg/storage"
	"github.com/JaimeStill/pulse/pkg/timestamp"
)

type repo struct {
	db         *sql.DB
	storage    storage.System
	scopes     engagements.System
	aggregator Aggregator
	logger     *slog.Logger
	pagination pagination.Config
}

// New creates a signal repository implementing the System interface.
func New(
	db *sql.DB,
	store storage.System,
	scopes engagements.System,
	aggregator Aggregator,
	logger *slog.Logger,
	pagination pagination.Config,
) System {
	return &repo{
		db:         db,
		storage:    store,
		scopes:     scopes,
		aggregator: aggregator,
		logger:     logger.With("system", "signals"),
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
) (*pagination.PageResult[Signal], error) {
	page.Normalize(r.pagination)

	qb := query.
		NewBuilder(projection, defaultSort).
		WhereSearch(page.Search, "Source", "SourceID")

	filters.Apply(qb)

	if len(page.Sort) > 0 {
		qb.OrderByFields(page.Sort)
	}

	countSQL, countArgs := qb.BuildCount()
	var total int
	if err := r.db.QueryRowContext(ctx, countSQL, countArgs...).Scan(&total); err != nil {
		return nil, fmt.Errorf("count signals: %w", err)
	}

	pageSQL, pageArgs := qb.BuildPage(page.Page, page.PageSize)
	sigs, err := repository.QueryMany(ctx, r.db, pageSQL, pageArgs, scanSignal)
	if err != nil {
		return nil, fmt.Errorf("query signals: %w", err)
	}

	result := pagination.NewPageResult(sigs, total, page.Page, page.PageSize)
	return &result, nil
}

func (r *repo) Find(ctx context.Context, id uuid.UUID) (*Signal, error) {
	q, args := query.NewBuilder(projection).BuildSingle("ID", id)

	sig, err := repository.QueryOne(ctx, r.db, q, args, scanSignal)
	if err != nil {
		return nil, repository.MapError(err, ErrNotFound, ErrDuplicate)
	}
	return &sig, nil
}

// Ingest persists one observation and runs its lifecycle consequences in a
// single transaction. A replayed (source, source_id) pair returns the
// existing row untouched and is never re-aggregated.
func (r *repo) Ingest(ctx context.Context, cmd IngestCommand) (*IngestResult, error) {
	if err := r.validate(ctx, &cmd); err != nil {
		return nil, err
	}

	if existing, err := r.findBySource(ctx, cmd.Source, cmd.SourceID); err != nil {
		return nil, err
	} else if existing != nil {
		return &IngestResult{Signal: existing, Created: false}, nil
	}

	now := timestamp.Now()
	sig := &Signal{
		ID:            uuid.New(),
		Source:        cmd.Source,
		SourceID:      cmd.SourceID,
		Sentiment:     cmd.Sentiment,
		RuleTriggered: cmd.RuleTriggered,
		ClientID:      cmd.ClientID,
		BrandID:       cmd.BrandID,
		EngagementID:  cmd.EngagementID,
		Evidence:      cmd.Evidence,
		ObservedAt:    cmd.ObservedAt,
		IngestedAt:    now,
	}

	evidence, err := json.Marshal(sig.Evidence)
	if err != nil {
		return nil, fmt.Errorf("marshal evidence: %w", err)
	}

	key := evidenceKey(sig.ID)
	if err := r.storage.Upload(ctx, key, bytes.NewReader(evidence), "application/json"); err != nil {
		return nil, fmt.Errorf("archive signal evidence: %w", err)
	}

	err = repository.WithTxNoResult(ctx, r.db, func(tx *sql.Tx) error {
		q := `
			INSERT INTO signals(id, source, source_id, sentiment, rule_triggered, client_id, brand_id, engagement_id, evidence, dismissed, observed_at, ingested_at)
			VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, false, $10, $11)`

		if _, err := tx.ExecContext(ctx, q,
			sig.ID,
			sig.Source,
			sig.SourceID,
			sig.Sentiment,
			sig.RuleTriggered,
			sig.ClientID,
			sig.BrandID,
			sig.EngagementID,
			evidence,
			sig.ObservedAt,
			sig.IngestedAt,
		); err != nil {
			return err
		}

		return r.aggregator.SignalIngested(ctx, tx, sig, now)
	})

	if err != nil {
		if delErr := r.storage.Delete(ctx, key); delErr != nil {
			r.logger.Warn("compensating evidence delete failed", "key", key, "error", delErr)
		}

		// A racing collector can insert the same observation between the
		// dedup read and the insert; the unique index settles it.
		if repository.IsUniqueViolation(err) {
			existing, findErr := r.findBySource(ctx, cmd.Source, cmd.SourceID)
			if findErr == nil && existing != nil {
				return &IngestResult{Signal: existing, Created: false}, nil
			}
		}

		return nil, fmt.Errorf("ingest signal: %w", err)
	}

	r.logger.Info("signal ingested",
		"id", sig.ID,
		"source", sig.Source,
		"sentiment", sig.Sentiment,
		"kind", sig.Evidence.Kind,
	)

	return &IngestResult{Signal: sig, Created: true}, nil
}

func (r *repo) validate(ctx context.Context, cmd *IngestCommand) error {
	if cmd.Source == "" {
		return fault.New(fault.MissingParam, "source required")
	}
	if cmd.SourceID == "" {
		return fault.New(fault.MissingParam, "source_id required")
	}
	if !cmd.Sentiment.Valid() {
		return fault.New(fault.InvalidParam, "unknown sentiment %q", cmd.Sentiment)
	}
	if err := timestamp.Validate(cmd.ObservedAt); err != nil {
		return fault.Wrap(fault.InvalidParam, err, "observed_at")
	}
	if err := cmd.Evidence.Validate(); err != nil {
		return err
	}
	if cmd.ClientID == uuid.Nil {
		return fault.New(fault.MissingParam, "client_id required")
	}

	ok, err := r.scopes.ClientExists(ctx, cmd.ClientID)
	if err != nil {
		return fmt.Errorf("check client scope: %w", err)
	}
	if !ok {
		return fault.New(fault.InvalidParam, "unknown client %s", cmd.ClientID)
	}

	if cmd.BrandID != nil {
		ok, err := r.scopes.BrandBelongs(ctx, *cmd.BrandID, cmd.ClientID)
		if err != nil {
			return fmt.Errorf("check brand scope: %w", err)
		}
		if !ok {
			return fault.New(fault.InvalidParam, "brand %s does not belong to client", *cmd.BrandID)
		}
	}

	if cmd.EngagementID != nil {
		ok, err := r.scopes.EngagementBelongs(ctx, *cmd.EngagementID, cmd.ClientID)
		if err != nil {
			return fmt.Errorf("check engagement scope: %w", err)
		}
		if !ok {
			return fault.New(fault.InvalidParam, "engagement %s does not belong to client", *cmd.EngagementID)
		}
	}

	return nil
}

func (r *repo) findBySource(ctx context.Context, source, sourceID string) (*Signal, error) {
	qb := query.NewBuilder(projection).
		WhereEquals("Source", &source).
		WhereEquals("SourceID", &sourceID)

	q, args := qb.BuildSingleOrNull()

	sig, err := repository.QueryOne(ctx, r.db, q, args, scanSignal)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, nil
		}
		return nil, fmt.Errorf("lookup signal by source: %w", err)
	}

	return &sig, nil
}

// MarkDismissedTx sets a signal's dismissed flag within the caller's
// transaction. The inbox layer uses it when a flagged-signal item reaches a
// terminal state.
func MarkDismissedTx(ctx context.Context, tx *sql.Tx, signalID uuid.UUID, dismissed bool) error {
	err := repository.ExecExpectOne(
		ctx, tx,
		"UPDATE signals SET dismissed = $2 WHERE id = $1",
		signalID, dismissed,
	)
	return repository.MapError(err, ErrNotFound, ErrDuplicate)
}

// LinkEngagementTx assigns an engagement scope to a signal that was ingested
// without one, as part of orphan or ambiguous resolution.
func LinkEngagementTx(ctx context.Context, tx *sql.Tx, signalID, engagementID uuid.UUID) error {
	err := repository.ExecExpectOne(
		ctx, tx,
		"UPDATE signals SET engagement_id = $2 WHERE id = $1",
		signalID, engagementID,
	)
	return repository.MapError(err, ErrNotFound, ErrDuplicate)
}

// FindTx loads one signal within the caller's transaction.
func FindTx(ctx context.Context, tx *sql.Tx, signalID uuid.UUID) (*Signal, error) {
	q, args := query.NewBuilder(projection).BuildSingle("ID", signalID)

	sig, err := repository.QueryOne(ctx, tx, q, args, scanSignal)
	if err != nil {
		return nil, repository.MapError(err, ErrNotFound, ErrDuplicate)
	}
	return &sig, nil
}

func evidenceKey(id uuid.UUID) string {
	return fmt.Sprintf("signals/%s/evidence.json", id)
}
