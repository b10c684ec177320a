package api

import (
	"github.com/JaimeStill/pulse/internal/aggregation"
	"github.com/JaimeStill/pulse/internal/config"
	"github.com/JaimeStill/pulse/internal/engagements"
	"github.com/JaimeStill/pulse/internal/inbox"
	"github.com/JaimeStill/pulse/internal/issues"
	"github.com/JaimeStill/pulse/internal/signals"
	"github.com/JaimeStill/pulse/internal/suppression"
)

// Domain holds all domain systems that comprise the API. Construction order
// follows the dependency direction: scopes and suppression first, then the
// inbox, then issues wired to archive through the inbox and retire rules
// through suppression, then the aggregation engine feeding signal ingestion.
type Domain struct {
	Engagements engagements.System
	Suppression suppression.System
	Inbox       inbox.System
	Issues      issues.System
	Signals     signals.System
}

// NewDomain creates all domain systems from the API runtime.
func NewDomain(cfg *config.Config, runtime *Runtime) *Domain {
	db := runtime.Database.Connection()

	scopes := engagements.New(db, runtime.Logger)

	rules := suppression.New(
		db,
		runtime.Org,
		cfg.Suppression,
		runtime.Logger,
		runtime.Pagination,
	)

	inboxSystem := inbox.New(
		db,
		runtime.Org,
		cfg.Inbox,
		rules,
		scopes,
		runtime.Logger,
		runtime.Pagination,
	)

	issuesSystem := issues.New(
		db,
		runtime.Org,
		cfg.Issues,
		inboxSystem,
		rules,
		runtime.Logger,
		runtime.Pagination,
	)

	engine := aggregation.NewEngine(
		runtime.Org,
		cfg.Aggregation,
		scopes,
		inboxSystem,
		runtime.Logger,
	)

	signalsSystem := signals.New(
		db,
		runtime.Storage,
		scopes,
		engine,
		runtime.Logger,
		runtime.Pagination,
	)

	return &Domain{
		Engagements: scopes,
		Suppression: rules,
		Inbox:       inboxSystem,
		Issues:      issuesSystem,
		Signals:     signalsSystem,
	}
}
