// Package engagements exposes the narrow slice of the engagement CRUD domain
// that the lifecycle engine consumes: scope existence checks, ranked
// candidate lookup for orphan/ambiguous resolution, and minimal creation
// from an orphan proposal. Engagement management itself lives elsewhere.
package engagements

import (
	"context"
	"database/sql"

	"github.com/google/uuid"
)

// Candidate is a confidence-scored engagement match for a name hint.
// Confidence is the trigram similarity in [0,1]; the inbox layer gates
// auto-link / propose / suggest on it.
type Candidate struct {
	EngagementID uuid.UUID `json:"engagement_id"`
	Name         string    `json:"name"`
	Confidence   float64   `json:"confidence"`
}

// System defines the scoping and resolution contract consumed by signal
// ingestion and the inbox proposal layer.
type System interface {
	ClientExists(ctx context.Context, clientID uuid.UUID) (bool, error)
	EngagementBelongs(ctx context.Context, engagementID, clientID uuid.UUID) (bool, error)
	BrandBelongs(ctx context.Context, brandID, clientID uuid.UUID) (bool, error)

	// Candidates returns engagements for the client ranked by name similarity
	// to the hint, best first. Fuzzy matching is permitted here and nowhere
	// else in the system.
	Candidates(ctx context.Context, clientID uuid.UUID, hint string, limit int) ([]Candidate, error)

	// CreateTx inserts a minimal engagement row as part of resolving an
	// orphan proposal, within the caller's transaction.
	CreateTx(ctx context.Context, tx *sql.Tx, clientID uuid.UUID, name, actor, now string) (uuid.UUID, error)
}
