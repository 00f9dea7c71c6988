package jobs

import (
	"encoding/json"
	"time"

	"github.com/hibiken/asynq"
)

const (
	// QueueDefault is the default queue name for background jobs.
	QueueDefault = "default"
	// TaskUserWelcome announces a freshly registered account.
	TaskUserWelcome = "user:welcome"
	// TaskRoleChanged announces an assignment or retraction on a role set.
	TaskRoleChanged = "role:changed"
)

// WelcomePayload identifies the account to greet.
type WelcomePayload struct {
	UserID string `json:"userId"`
	Email  string `json:"email"`
}

// RoleChangedPayload describes one role-set mutation.
type RoleChangedPayload struct {
	Target     string    `json:"target"`
	HolderID   string    `json:"holderId"`
	RoleID     string    `json:"roleId"`
	Action     string    `json:"action"`
	OccurredAt time.Time `json:"occurredAt"`
}

// NewWelcomeTask constructs a user:welcome task.
func NewWelcomeTask(payload WelcomePayload) (*asynq.Task, error) {
	data, err := json.Marshal(payload)
	if err != nil {
		return nil, err
	}
	return asynq.NewTask(TaskUserWelcome, data, asynq.Queue(QueueDefault), asynq.MaxRetry(5)), nil
}

// NewRoleChangedTask constructs a role:changed task.
func NewRoleChangedTask(payload RoleChangedPayload) (*asynq.Task, error) {
	data, err := json.Marshal(payload)
	if err != nil {
		return nil, err
	}
	return asynq.NewTask(TaskRoleChanged, data, asynq.Queue(QueueDefault), asynq.MaxRetry(3)), nil
}
