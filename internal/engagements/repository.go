package engagements

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"

	"github.com/google/uuid"

	"github.com/JaimeStill/pulse/pkg/repository"
)

type repo struct {
	db     *sql.DB
	logger *slog.Logger
}

// New creates an engagement lookup system backed by the shared database.
func New(db *sql.DB, logger *slog.Logger) System {
	return &repo{
		db:     db,
		logger: logger.With("system", "engagements"),
	}
}

func (r *repo) ClientExists(ctx context.Context, clientID uuid.UUID) (bool, error) {
	return r.exists(ctx, "SELECT EXISTS (SELECT 1 FROM clients WHERE id = $1)", clientID)
}

func (r *repo) EngagementBelongs(ctx context.Context, engagementID, clientID uuid.UUID) (bool, error) {
	return r.exists(
		ctx,
		"SELECT EXISTS (SELECT 1 FROM engagements WHERE id = $1 AND client_id = $2)",
		engagementID, clientID,
	)
}

func (r *repo) BrandBelongs(ctx context.Context, brandID, clientID uuid.UUID) (bool, error) {
	return r.exists(
		ctx,
		"SELECT EXISTS (SELECT 1 FROM brands WHERE id = $1 AND client_id = $2)",
		brandID, clientID,
	)
}

func (r *repo) Candidates(ctx context.Context, clientID uuid.UUID, hint string, limit int) ([]Candidate, error) {
	if limit < 1 {
		limit = 5
	}

	q := `
		SELECT id, name, similarity(name, $2)
		FROM engagements
		WHERE client_id = $1 AND status = 'active' AND similarity(name, $2) > 0
		ORDER BY similarity(name, $2) DESC, name
		LIMIT $3`

	candidates, err := repository.QueryMany(ctx, r.db, q, []any{clientID, hint, limit}, scanCandidate)
	if err != nil {
		return nil, fmt.Errorf("query engagement candidates: %w", err)
	}

	return candidates, nil
}

func (r *repo) CreateTx(ctx context.Context, tx *sql.Tx, clientID uuid.UUID, name, actor, now string) (uuid.UUID, error) {
	id := uuid.New()

	q := `
		INSERT INTO engagements (id, client_id, name, status, created_at, created_by)
		VALUES ($1, $2, $3, 'active', $4, $5)`

	if _, err := tx.ExecContext(ctx, q, id, clientID, name, now, actor); err != nil {
		return uuid.Nil, fmt.Errorf("insert engagement: %w", err)
	}

	r.logger.Info("engagement created from orphan resolution", "id", id, "client", clientID)
	return id, nil
}

func (r *repo) exists(ctx context.Context, q string, args ...any) (bool, error) {
	var found bool
	if err := r.db.QueryRowContext(ctx, q, args...).Scan(&found); err != nil {
		return false, err
	}
	return found, nil
}

func scanCandidate(s repository.Scanner) (Candidate, error) {
	var c Candidate
	err := s.Scan(&c.EngagementID, &c.Name, &c.Confidence)
	return c, err
}
