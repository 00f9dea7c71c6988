package jobs

import (
	"context"
	"encoding/json"
	"log/slog"

	"github.com/hibiken/asynq"

	jobmetrics "github.com/odyssey-erp/odyssey-iam/internal/jobs"
)

// NotificationJobs consumes notification tasks. Delivery channels are not
// wired yet, so handlers record the event in the structured log.
type NotificationJobs struct {
	Logger  *slog.Logger
	Metrics *jobmetrics.Metrics
}

// NewNotificationJobs wires dependencies for the notification handlers.
func NewNotificationJobs(logger *slog.Logger, metrics *jobmetrics.Metrics) *NotificationJobs {
	return &NotificationJobs{Logger: logger, Metrics: metrics}
}

// Handlers lists the task handlers to register with the worker.
func (j *NotificationJobs) Handlers() []TaskHandler {
	return []TaskHandler{
		{Type: TaskUserWelcome, Handler: j.HandleWelcome},
		{Type: TaskRoleChanged, Handler: j.HandleRoleChanged},
	}
}

// HandleWelcome processes user:welcome tasks.
func (j *NotificationJobs) HandleWelcome(ctx context.Context, t *asynq.Task) (err error) {
	tracker := j.Metrics.Track(TaskUserWelcome)
	defer func() { err = tracker.End(err) }()

	var payload WelcomePayload
	if err := json.Unmarshal(t.Payload(), &payload); err != nil {
		return asynq.SkipRetry
	}
	if payload.UserID == "" || payload.Email == "" {
		return asynq.SkipRetry
	}
	j.logger().Info("welcome notification",
		slog.String("user_id", payload.UserID),
		slog.String("email", payload.Email))
	return nil
}

// HandleRoleChanged processes role:changed tasks.
func (j *NotificationJobs) HandleRoleChanged(ctx context.Context, t *asynq.Task) (err error) {
	tracker := j.Metrics.Track(TaskRoleChanged)
	defer func() { err = tracker.End(err) }()

	var payload RoleChangedPayload
	if err := json.Unmarshal(t.Payload(), &payload); err != nil {
		return asynq.SkipRetry
	}
	if payload.HolderID == "" || payload.RoleID == "" {
		return asynq.SkipRetry
	}
	j.logger().Info("role change notification",
		slog.String("target", payload.Target),
		slog.String("holder_id", payload.HolderID),
		slog.String("role_id", payload.RoleID),
		slog.String("action", payload.Action),
		slog.Time("occurred_at", payload.OccurredAt))
	return nil
}

func (j *NotificationJobs) logger() *slog.Logger {
	if j.Logger != nil {
		return j.Logger
	}
	return slog.Default()
}
