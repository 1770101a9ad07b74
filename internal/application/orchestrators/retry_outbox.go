package orchestrators

import (
	"context"
	"errors"
	"fmt"
	"html/template"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"taskroom/internal/adapters/backend"
	"taskroom/internal/adapters/email"
	outboxStore "taskroom/internal/adapters/storage/outbox"
	domain "taskroom/internal/domain/outbox"
	"taskroom/internal/observability"
)

// Outcomes recorded per processed entry.
const (
	outcomeDone     = "succeeded"
	outcomeRetry    = "retry"
	outcomeFailed   = "failed"
	outcomeNoAction = "no_executor"
)

// OutboxProcessor runs deferred side effects with exponential backoff.
type OutboxProcessor struct {
	store     outboxStore.Store
	executors map[string]ActionExecutor
	metrics   *observability.Metrics
	baseDelay time.Duration
	maxDelay  time.Duration
	batchSize int
	now       func() time.Time
}

// ActionExecutor executes a specific type of deferred action.
type ActionExecutor interface {
	// Execute runs the action for e. It returns an external reference
	// (deleted user id, provider message id) and any error.
	Execute(ctx context.Context, e domain.Entry) (string, error)
}

// NewOutboxProcessor creates a new outbox processor. metrics may be nil.
func NewOutboxProcessor(store outboxStore.Store, executors map[string]ActionExecutor, metrics *observability.Metrics) *OutboxProcessor {
	return &OutboxProcessor{
		store:     store,
		executors: executors,
		metrics:   metrics,
		baseDelay: 30 * time.Second,
		maxDelay:  1 * time.Hour,
		batchSize: 20,
		now:       time.Now,
	}
}

// ProcessPending runs up to one batch of entries whose backoff has elapsed,
// then refreshes the per-status backlog gauge.
// PRE: Context is valid
// POST: Due entries are attempted once and saved; entries not yet due are untouched
// INVARIANT: Returns the number of entries attempted
func (p *OutboxProcessor) ProcessPending(ctx context.Context) (int, error) {
	entries, err := p.store.ListDue(ctx, p.now(), p.batchSize)
	if err != nil {
		return 0, fmt.Errorf("list due outbox entries: %w", err)
	}

	attempted := 0
	for _, entry := range entries {
		if ctx.Err() != nil {
			return attempted, ctx.Err()
		}
		attempted++
		if err := p.processEntry(ctx, entry); err != nil {
			slog.Error("outbox_process_failed", "entry_id", entry.ID, "action_type", entry.ActionType, "error", err.Error())
		}
	}
	p.refreshBacklog(ctx)
	return attempted, nil
}

// refreshBacklog publishes the number of entries in each status.
func (p *OutboxProcessor) refreshBacklog(ctx context.Context) {
	if p.metrics == nil {
		return
	}
	counts, err := p.store.CountByStatus(ctx)
	if err != nil {
		slog.Warn("outbox_count_failed", "error", err.Error())
		return
	}
	p.metrics.SetOutboxBacklog(counts)
}

// processEntry attempts a single entry and saves the result.
func (p *OutboxProcessor) processEntry(ctx context.Context, entry domain.Entry) error {
	executor, ok := p.executors[entry.ActionType]
	if !ok {
		entry.MarkAttempt(p.now())
		entry.MarkFailed(fmt.Errorf("%w: %s", domain.ErrUnknownAction, entry.ActionType))
		entry.ScheduleRetry(p.baseDelay, p.maxDelay)
		p.metrics.ObserveOutbox(entry.ActionType, outcomeNoAction)
		return p.store.Save(ctx, entry)
	}

	entry.MarkAttempt(p.now())
	externalID, err := executor.Execute(ctx, entry)
	switch {
	case err == nil:
		entry.MarkSuccess(externalID)
		p.metrics.ObserveOutbox(entry.ActionType, outcomeDone)
		slog.Info("outbox_action_succeeded", "entry_id", entry.ID, "action_type", entry.ActionType, "external_id", externalID)
	default:
		entry.MarkFailed(err)
		entry.ScheduleRetry(p.baseDelay, p.maxDelay)
		outcome := outcomeRetry
		if entry.Status == domain.StatusFailed {
			outcome = outcomeFailed
		}
		p.metrics.ObserveOutbox(entry.ActionType, outcome)
		slog.Warn("outbox_action_failed", "entry_id", entry.ID, "action_type", entry.ActionType, "attempt", entry.Attempts, "status", entry.Status, "error", err.Error())
	}

	return p.store.Save(ctx, entry)
}

// --- Orphan account executor ---

// AccountDeleter removes auth accounts with admin rights.
type AccountDeleter interface {
	AdminDeleteUser(ctx context.Context, userID string) error
}

// OrphanAccountExecutor deletes auth accounts that never got a profile.
type OrphanAccountExecutor struct {
	Admin AccountDeleter
}

// Execute deletes the account named by the payload.
// PRE: e.Payload decodes as domain.OrphanAccount
// POST: The account is gone; an account that is already gone counts as success
func (x *OrphanAccountExecutor) Execute(ctx context.Context, e domain.Entry) (string, error) {
	var p domain.OrphanAccount
	if err := e.Decode(&p); err != nil {
		return "", err
	}
	if p.UserID == "" {
		return "", errors.New("orphan account payload has no user id")
	}
	err := x.Admin.AdminDeleteUser(ctx, p.UserID)
	var apiErr *backend.APIError
	if errors.As(err, &apiErr) && apiErr.Status == http.StatusNotFound {
		err = nil
	}
	if err != nil {
		return "", err
	}
	slog.Info("auth_event", "event", "orphan_account_deleted", "user_id", p.UserID, "email", p.Email)
	return p.UserID, nil
}

// --- Approval email executor ---

var approvalTemplate = template.Must(template.New("approval").Parse(
	`<p>Hi {{.Username}},</p>
<p>An admin approved your account. You can now sign in{{if .LoginURL}} at <a href="{{.LoginURL}}">{{.LoginURL}}</a>{{end}} and see the tasks assigned to you.</p>`))

// ApprovalEmailExecutor tells a user their account was approved.
type ApprovalEmailExecutor struct {
	Sender   email.Sender
	LoginURL string
}

// Execute sends the approval email named by the payload.
// PRE: e.Payload decodes as domain.ApprovalEmail
// POST: Returns the provider message id
func (x *ApprovalEmailExecutor) Execute(ctx context.Context, e domain.Entry) (string, error) {
	var p domain.ApprovalEmail
	if err := e.Decode(&p); err != nil {
		return "", err
	}
	if p.To == "" {
		return "", errors.New("approval email payload has no recipient")
	}

	var html strings.Builder
	if err := approvalTemplate.Execute(&html, struct{ Username, LoginURL string }{p.Username, x.LoginURL}); err != nil {
		return "", fmt.Errorf("render approval email: %w", err)
	}
	text := fmt.Sprintf("Hi %s,\n\nAn admin approved your account. You can now sign in and see the tasks assigned to you.\n", p.Username)
	if x.LoginURL != "" {
		text += "\n" + x.LoginURL + "\n"
	}

	res, err := x.Sender.Send(ctx, email.SendRequest{
		To:      []string{p.To},
		Subject: "Your account has been approved",
		HTML:    html.String(),
		Text:    text,
	})
	if err != nil {
		return "", fmt.Errorf("send approval email: %w", err)
	}
	return res.MessageID, nil
}

// --- Background Worker ---

// StartBackgroundWorker starts a goroutine that periodically processes pending outbox entries.
// PRE: stopCh is provided to signal shutdown
// POST: Worker runs until stopCh is closed
func StartBackgroundWorker(processor *OutboxProcessor, interval time.Duration, stopCh <-chan struct{}) {
	go func() {
		ticker := time.NewTicker(interval)
		defer ticker.Stop()

		for {
			select {
			case <-ticker.C:
				ctx, cancel := context.WithTimeout(context.Background(), tickTimeout(interval))
				if n, err := processor.ProcessPending(ctx); err != nil {
					slog.Error("outbox_background_process_failed", "error", err.Error())
				} else if n > 0 {
					slog.Debug("outbox_background_processed", "attempted", n)
				}
				cancel()
			case <-stopCh:
				slog.Info("outbox_background_worker_stopped")
				return
			}
		}
	}()
}

// tickTimeout bounds one pass to one interval, capped at five minutes.
func tickTimeout(interval time.Duration) time.Duration {
	if interval > 5*time.Minute {
		return 5 * time.Minute
	}
	return interval
}
