package aggregation

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/JaimeStill/pulse/internal/engagements"
	"github.com/JaimeStill/pulse/internal/inbox"
	"github.com/JaimeStill/pulse/internal/issues"
	"github.com/JaimeStill/pulse/internal/signals"
	"github.com/JaimeStill/pulse/pkg/repository"
	"github.com/JaimeStill/pulse/pkg/timestamp"
)

// Engine implements signals.Aggregator. Every ingested signal flows through
// SignalIngested inside the ingest transaction; any failure here rolls the
// signal back with it.
type Engine struct {
	org    *timestamp.Org
	config Config
	scopes engagements.System
	inbox  inbox.System
	logger *slog.Logger
}

// NewEngine creates the aggregation engine.
func NewEngine(
	org *timestamp.Org,
	config Config,
	scopes engagements.System,
	inboxSys inbox.System,
	logger *slog.Logger,
) *Engine {
	return &Engine{
		org:    org,
		config: config,
		scopes: scopes,
		inbox:  inboxSys,
		logger: logger.With("system", "aggregation"),
	}
}

// SignalIngested routes one new signal: unscoped signals go through the
// resolver first, then the signal either upserts its issue or becomes a
// flagged-signal proposal.
func (e *Engine) SignalIngested(ctx context.Context, tx *sql.Tx, sig *signals.Signal, now string) error {
	if sig.EngagementID == nil && sig.BrandID == nil {
		handled, err := e.resolveUnscoped(ctx, tx, sig, now)
		if err != nil || handled {
			return err
		}
	}

	category, ok := CategoryFor(sig.Evidence.Kind, sig.Sentiment)
	if !ok {
		if sig.Sentiment == signals.SentimentBad {
			return e.proposeFlagged(ctx, tx, sig, now)
		}
		return nil
	}

	key, fingerprint, err := Key(category, sig)
	if err != nil {
		return err
	}

	issue, err := issues.FindActiveByKeyTx(ctx, tx, category, key)
	if err != nil {
		return err
	}

	if issue == nil {
		created, err := e.createIssue(ctx, tx, category, key, fingerprint, sig, now)
		if err != nil {
			return err
		}
		if created {
			return nil
		}
		// A racing ingest inserted the issue first; fold into it.
		issue, err = issues.FindActiveByKeyTx(ctx, tx, category, key)
		if err != nil {
			return err
		}
		if issue == nil {
			return fmt.Errorf("issue for key %s vanished after duplicate insert", key)
		}
	}

	if issue.State == issues.StateRegressionWatch {
		return e.regress(ctx, tx, issue, sig, now)
	}

	return e.refresh(ctx, tx, issue, sig, now)
}

// resolveUnscoped attempts to attach an engagement to a signal that arrived
// with client scope only. Returns handled=true when the signal became an
// orphan or ambiguous proposal and aggregation stops here; auto-linked
// signals continue into the categorized flow with their new scope.
func (e *Engine) resolveUnscoped(ctx context.Context, tx *sql.Tx, sig *signals.Signal, now string) (bool, error) {
	hint := sig.Evidence.EngagementHint()
	if hint == "" {
		return false, nil
	}

	candidates, err := e.scopes.Candidates(ctx, sig.ClientID, hint, e.config.CandidateLimit)
	if err != nil {
		return false, fmt.Errorf("rank engagement candidates: %w", err)
	}

	if len(candidates) > 0 && candidates[0].Confidence >= e.config.AutoLinkConfidence {
		if err := signals.LinkEngagementTx(ctx, tx, sig.ID, candidates[0].EngagementID); err != nil {
			return false, err
		}
		sig.EngagementID = &candidates[0].EngagementID
		e.logger.Info("auto-linked signal to engagement",
			"signal_id", sig.ID,
			"engagement_id", candidates[0].EngagementID,
			"confidence", candidates[0].Confidence,
		)
		return false, nil
	}

	itemType := inbox.TypeOrphan
	title := fmt.Sprintf("Unmatched signal from %s: %s", sig.Source, sig.Evidence.DisplayText)
	if len(candidates) > 0 && candidates[0].Confidence >= e.config.ProposeConfidence {
		itemType = inbox.TypeAmbiguous
		title = fmt.Sprintf("Ambiguous signal from %s: %s", sig.Source, sig.Evidence.DisplayText)
	}

	evidence, err := json.Marshal(map[string]any{
		"engagement_hint": hint,
		"candidates":      candidates,
	})
	if err != nil {
		return false, fmt.Errorf("marshal resolution evidence: %w", err)
	}

	created, err := e.inbox.ProposeSignalTx(ctx, tx, sig, itemType, title, evidence, now)
	if err != nil {
		return false, err
	}
	if !created {
		e.logger.Debug("resolution proposal skipped", "signal_id", sig.ID, "item_type", itemType)
	}
	return true, nil
}

func (e *Engine) proposeFlagged(ctx context.Context, tx *sql.Tx, sig *signals.Signal, now string) error {
	title := fmt.Sprintf("Flagged signal from %s: %s", sig.Source, sig.Evidence.DisplayText)

	_, err := e.inbox.ProposeSignalTx(ctx, tx, sig, inbox.TypeFlaggedSignal, title, nil, now)
	return err
}

// createIssue inserts a fresh detected issue for the signal and proposes it.
// Reports created=false when a concurrent ingest won the insert race.
func (e *Engine) createIssue(ctx context.Context, tx *sql.Tx, category issues.Type, key string, fingerprint *string, sig *signals.Signal, now string) (bool, error) {
	inputs, err := e.severityInputs(ctx, tx, category, nil, sig)
	if err != nil {
		return false, err
	}

	issue := &issues.Issue{
		ID:                   uuid.New(),
		IssueType:            category,
		State:                issues.StateDetected,
		Severity:             issues.DeriveSeverity(category, inputs),
		SeveritySource:       issues.SeveritySystem,
		AggregationKey:       key,
		ClientID:             sig.ClientID,
		BrandID:              sig.BrandID,
		EngagementID:         sig.EngagementID,
		RootCauseFingerprint: fingerprint,
		Summary:              sig.Evidence.DisplayText,
		SignalCount:          1,
		LastSignalAt:         sig.ObservedAt,
		CreatedAt:            now,
		UpdatedAt:            now,
	}

	if err := issues.InsertDetectedTx(ctx, tx, issue); err != nil {
		if repository.IsUniqueViolation(err) {
			return false, nil
		}
		return false, fmt.Errorf("insert detected issue: %w", err)
	}

	if err := issues.LinkSignalTx(ctx, tx, issue.ID, sig.ID, now); err != nil {
		return false, err
	}

	e.logger.Info("issue detected",
		"issue_id", issue.ID,
		"issue_type", category,
		"severity", issue.Severity,
		"signal_id", sig.ID,
	)

	return true, e.surface(ctx, tx, issue, sig.ID, now)
}

// regress reopens a watched issue on recurrence and spawns a fresh proposal.
func (e *Engine) regress(ctx context.Context, tx *sql.Tx, issue *issues.Issue, sig *signals.Signal, now string) error {
	if err := issues.RegressTx(ctx, tx, issue.ID, &sig.ID, now); err != nil {
		return err
	}
	if err := issues.LinkSignalTx(ctx, tx, issue.ID, sig.ID, now); err != nil {
		return err
	}

	inputs, err := e.severityInputs(ctx, tx, issue.IssueType, &issue.ID, sig)
	if err != nil {
		return err
	}
	severity := issues.MergeSeverity(issue.Severity, issue.SeveritySource, issues.DeriveSeverity(issue.IssueType, inputs))

	if err := issues.RefreshOnSignalTx(ctx, tx, issue.ID, severity, sig.Evidence.DisplayText, sig.ObservedAt, now); err != nil {
		return err
	}

	e.logger.Info("issue regressed", "issue_id", issue.ID, "signal_id", sig.ID)

	issue.State = issues.StateRegressed
	issue.Severity = severity
	_, err = e.inbox.ProposeIssueTx(ctx, tx, issue, now)
	return err
}

// refresh folds a repeat observation into an existing issue. A detected issue
// gets another proposal attempt and surfaces if one lands.
func (e *Engine) refresh(ctx context.Context, tx *sql.Tx, issue *issues.Issue, sig *signals.Signal, now string) error {
	if err := issues.LinkSignalTx(ctx, tx, issue.ID, sig.ID, now); err != nil {
		return err
	}

	inputs, err := e.severityInputs(ctx, tx, issue.IssueType, &issue.ID, sig)
	if err != nil {
		return err
	}
	severity := issues.MergeSeverity(issue.Severity, issue.SeveritySource, issues.DeriveSeverity(issue.IssueType, inputs))

	if err := issues.RefreshOnSignalTx(ctx, tx, issue.ID, severity, sig.Evidence.DisplayText, sig.ObservedAt, now); err != nil {
		return err
	}

	if issue.State == issues.StateDetected {
		issue.Severity = severity
		return e.surface(ctx, tx, issue, sig.ID, now)
	}

	return nil
}

// surface proposes a detected issue to the inbox and, if the proposal lands,
// transitions it to surfaced. Suppressed or already-proposed issues stay
// detected.
func (e *Engine) surface(ctx context.Context, tx *sql.Tx, issue *issues.Issue, signalID uuid.UUID, now string) error {
	created, err := e.inbox.ProposeIssueTx(ctx, tx, issue, now)
	if err != nil {
		return err
	}
	if !created {
		return nil
	}

	return issues.TransitionTx(ctx, tx, e.inbox, issues.TransitionSpec{
		IssueID:         issue.ID,
		Prev:            issues.StateDetected,
		Next:            issues.StateSurfaced,
		Reason:          issues.ReasonSystemAggregation,
		Actor:           "system",
		TriggerSignalID: &signalID,
	}, now)
}

// severityInputs gathers the measurements the severity tables threshold over.
// issueID is nil for a not-yet-inserted issue, where the current signal is
// the whole history.
func (e *Engine) severityInputs(ctx context.Context, tx *sql.Tx, category issues.Type, issueID *uuid.UUID, sig *signals.Signal) (issues.SeverityInputs, error) {
	inputs := issues.SeverityInputs{SignalCount: 1}
	if sig.Sentiment == signals.SentimentBad {
		inputs.BadStreak = 1
	}

	if issueID != nil {
		windowStart := e.org.DaysAgoBoundary(time.Now(), e.config.SeverityWindowDays)

		count, err := repository.QueryOne(ctx, tx, `
			SELECT COUNT(*) FROM issue_signals ils
			JOIN signals s ON s.id = ils.signal_id
			WHERE ils.issue_id = $1 AND s.observed_at >= $2`,
			[]any{*issueID, windowStart},
			func(row repository.Scanner) (int, error) {
				var n int
				err := row.Scan(&n)
				return n, err
			},
		)
		if err != nil {
			return inputs, fmt.Errorf("count window signals: %w", err)
		}
		// The current signal is already linked.
		inputs.SignalCount = count

		streak, err := e.badStreak(ctx, tx, *issueID)
		if err != nil {
			return inputs, err
		}
		inputs.BadStreak = streak
	}

	if category == issues.TypeFinancial {
		invoice, err := sig.Evidence.Invoice()
		if err != nil {
			return inputs, err
		}
		inputs.AmountCents = invoice.AmountCents
		inputs.DaysOverdue = e.daysOverdue(invoice.DueOn, time.Now())
	}

	return inputs, nil
}

// badStreak counts the consecutive bad-sentiment signals at the head of the
// issue's signal history, newest first.
func (e *Engine) badStreak(ctx context.Context, tx *sql.Tx, issueID uuid.UUID) (int, error) {
	sentiments, err := repository.QueryMany(ctx, tx, `
		SELECT s.sentiment FROM issue_signals ils
		JOIN signals s ON s.id = ils.signal_id
		WHERE ils.issue_id = $1
		ORDER BY s.observed_at DESC`,
		[]any{issueID},
		func(row repository.Scanner) (signals.Sentiment, error) {
			var s signals.Sentiment
			err := row.Scan(&s)
			return s, err
		},
	)
	if err != nil {
		return 0, fmt.Errorf("load sentiment history: %w", err)
	}

	streak := 0
	for _, s := range sentiments {
		if s != signals.SentimentBad {
			break
		}
		streak++
	}
	return streak, nil
}

// daysOverdue measures org-local days elapsed since the invoice due date.
// Never negative.
func (e *Engine) daysOverdue(dueOn string, now time.Time) int {
	due, err := time.ParseInLocation("2006-01-02", dueOn, e.org.Location())
	if err != nil {
		return 0
	}

	elapsed := e.org.LocalMidnight(now).Sub(e.org.LocalMidnight(due))
	days := int(elapsed.Hours() / 24)
	if days < 0 {
		return 0
	}
	return days
}
