package cli

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/hibiken/asynq"

	"github.com/odyssey-erp/odyssey-iam/jobs"
)

// JobsCLI wraps manual management helpers for Asynq jobs.
type JobsCLI struct {
	client    *asynq.Client
	inspector *asynq.Inspector
}

// NewJobsCLI initialises the CLI helpers using the provided Redis options.
func NewJobsCLI(redisOpts asynq.RedisClientOpt) (*JobsCLI, error) {
	if redisOpts.Addr == "" {
		return nil, errors.New("jobs cli: REDIS_ADDR is not configured")
	}
	client := asynq.NewClient(redisOpts)
	inspector := asynq.NewInspector(redisOpts)
	return &JobsCLI{client: client, inspector: inspector}, nil
}

// Close releases underlying resources.
func (c *JobsCLI) Close() error {
	var err error
	if c.inspector != nil {
		if closeErr := c.inspector.Close(); closeErr != nil {
			err = closeErr
		}
	}
	if c.client != nil {
		if closeErr := c.client.Close(); closeErr != nil {
			err = closeErr
		}
	}
	return err
}

// Trigger enqueues a supported job by name. params carries the payload
// fields, keyed by their JSON names.
func (c *JobsCLI) Trigger(ctx context.Context, name string, params map[string]string) (*asynq.TaskInfo, error) {
	if c == nil || c.client == nil {
		return nil, errors.New("jobs cli: client not configured")
	}
	task, err := BuildTask(name, params)
	if err != nil {
		return nil, err
	}
	return c.client.EnqueueContext(ctx, task)
}

// BuildTask turns a job name and its parameters into a task.
func BuildTask(name string, params map[string]string) (*asynq.Task, error) {
	switch name {
	case jobs.TaskUserWelcome:
		if err := requireParams(params, "userId", "email"); err != nil {
			return nil, err
		}
		return jobs.NewWelcomeTask(jobs.WelcomePayload{UserID: params["userId"], Email: params["email"]})
	case jobs.TaskRoleChanged:
		if err := requireParams(params, "holderId", "roleId", "action"); err != nil {
			return nil, err
		}
		target := params["target"]
		if target == "" {
			target = "employee"
		}
		return jobs.NewRoleChangedTask(jobs.RoleChangedPayload{
			Target:     target,
			HolderID:   params["holderId"],
			RoleID:     params["roleId"],
			Action:     params["action"],
			OccurredAt: time.Now().UTC(),
		})
	default:
		return nil, fmt.Errorf("jobs cli: unsupported job %s", name)
	}
}

func requireParams(params map[string]string, keys ...string) error {
	for _, key := range keys {
		if params[key] == "" {
			return fmt.Errorf("jobs cli: missing parameter %s", key)
		}
	}
	return nil
}

// QueueStats summarises the current queue state.
type QueueStats struct {
	Queue     string
	Pending   int
	Active    int
	Scheduled int
	Retry     int
}

// InspectQueue reports the queue metrics for the default queue.
func (c *JobsCLI) InspectQueue(ctx context.Context) (QueueStats, error) {
	if c == nil || c.inspector == nil {
		return QueueStats{}, errors.New("jobs cli: inspector not configured")
	}
	info, err := c.inspector.GetQueueInfo(jobs.QueueDefault)
	if err != nil {
		return QueueStats{}, err
	}
	stats := QueueStats{Queue: jobs.QueueDefault}
	if info != nil {
		stats.Pending = int(info.Pending)
		stats.Active = int(info.Active)
		stats.Scheduled = int(info.Scheduled)
		stats.Retry = int(info.Retry)
	}
	return stats, nil
}

// ListScheduled returns scheduled task infos for observability.
func (c *JobsCLI) ListScheduled(ctx context.Context, size int) ([]*asynq.TaskInfo, error) {
	if c == nil || c.inspector == nil {
		return nil, errors.New("jobs cli: inspector not configured")
	}
	if size <= 0 {
		size = 10
	}
	return c.inspector.ListScheduledTasks(jobs.QueueDefault, asynq.PageSize(size), asynq.Page(1))
}
