package jobs

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"strconv"

	"github.com/google/uuid"
	"github.com/hibiken/asynq"

	"github.com/mtechcare/backoffice/internal/auth"
	jobmetrics "github.com/mtechcare/backoffice/internal/jobs"
	"github.com/mtechcare/backoffice/internal/shared"
)

const (
	// QueueDefault is the default queue name for background jobs.
	QueueDefault = "default"
	// TaskLoginAudit records a successful admin login.
	TaskLoginAudit = "auth:login_audit"
)

// NewLoginAuditTask constructs an Asynq task for a login event.
func NewLoginAuditTask(event auth.LoginEvent) (*asynq.Task, error) {
	if event.AccountID <= 0 {
		return nil, errors.New("login audit: account id required")
	}
	data, err := json.Marshal(event)
	if err != nil {
		return nil, err
	}
	return asynq.NewTask(TaskLoginAudit, data, asynq.MaxRetry(5), asynq.TaskID(uuid.NewString())), nil
}

// AuditRecorder persists audit rows.
type AuditRecorder interface {
	Record(ctx context.Context, log shared.AuditLog) error
}

// LoginAuditJob writes login events to audit_logs.
type LoginAuditJob struct {
	Audit   AuditRecorder
	Logger  *slog.Logger
	Metrics *jobmetrics.Metrics
}

// NewLoginAuditJob initialises the login audit handler.
func NewLoginAuditJob(audit AuditRecorder, logger *slog.Logger, metrics *jobmetrics.Metrics) *LoginAuditJob {
	if logger == nil {
		logger = slog.Default()
	}
	return &LoginAuditJob{Audit: audit, Logger: logger, Metrics: metrics}
}

// Handle processes TaskLoginAudit tasks.
func (j *LoginAuditJob) Handle(ctx context.Context, t *asynq.Task) (err error) {
	if j == nil || j.Audit == nil {
		return errors.New("login audit: handler not configured")
	}
	tracker := j.Metrics.Track(TaskLoginAudit)
	defer func() {
		err = tracker.End(err)
	}()

	var event auth.LoginEvent
	if err := json.Unmarshal(t.Payload(), &event); err != nil {
		return fmt.Errorf("login audit: decode payload: %v: %w", err, asynq.SkipRetry)
	}
	if event.AccountID <= 0 {
		return fmt.Errorf("login audit: missing account id: %w", asynq.SkipRetry)
	}
	meta := map[string]any{"email": event.Email}
	if event.IP != "" {
		meta["ip"] = event.IP
	}
	if event.UserAgent != "" {
		meta["userAgent"] = event.UserAgent
	}
	if err := j.Audit.Record(ctx, shared.AuditLog{
		ActorID:  event.AccountID,
		Action:   "auth.login",
		Entity:   "admin_user",
		EntityID: strconv.FormatInt(event.AccountID, 10),
		Meta:     meta,
		At:       event.At,
	}); err != nil {
		j.Logger.Error("login audit", slog.Int64("account_id", event.AccountID), slog.Any("error", err))
		return err
	}
	return nil
}
