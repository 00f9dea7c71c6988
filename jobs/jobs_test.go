package jobs

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/hibiken/asynq"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/require"

	jobmetrics "github.com/odyssey-erp/odyssey-iam/internal/jobs"
)

type recordingEnqueuer struct {
	tasks []*asynq.Task
	err   error
}

func (r *recordingEnqueuer) EnqueueContext(_ context.Context, task *asynq.Task, _ ...asynq.Option) (*asynq.TaskInfo, error) {
	if r.err != nil {
		return nil, r.err
	}
	r.tasks = append(r.tasks, task)
	return &asynq.TaskInfo{ID: "t1", Type: task.Type(), Queue: QueueDefault}, nil
}

func (r *recordingEnqueuer) Close() error { return nil }

type outcomeCounter map[string]int

func (c outcomeCounter) ObserveNotification(task, outcome string) {
	c[task+"/"+outcome]++
}

func TestClientNotifyWelcome(t *testing.T) {
	enq := &recordingEnqueuer{}
	counts := outcomeCounter{}
	client := NewClientWith(enq, counts)

	require.NoError(t, client.NotifyWelcome(context.Background(), "u1", "ann@example.com"))
	require.Len(t, enq.tasks, 1)
	require.Equal(t, TaskUserWelcome, enq.tasks[0].Type())

	var payload WelcomePayload
	require.NoError(t, json.Unmarshal(enq.tasks[0].Payload(), &payload))
	require.Equal(t, WelcomePayload{UserID: "u1", Email: "ann@example.com"}, payload)
	require.Equal(t, 1, counts["user:welcome/enqueued"])
}

func TestClientNotifyRoleChanged(t *testing.T) {
	enq := &recordingEnqueuer{}
	client := NewClientWith(enq, nil)
	fixed := time.Date(2024, 5, 1, 10, 0, 0, 0, time.UTC)
	client.clock = func() time.Time { return fixed }

	require.NoError(t, client.NotifyRoleChanged(context.Background(), "employee", "e1", "r1", "assigned"))
	require.Len(t, enq.tasks, 1)

	var payload RoleChangedPayload
	require.NoError(t, json.Unmarshal(enq.tasks[0].Payload(), &payload))
	require.Equal(t, RoleChangedPayload{
		Target:     "employee",
		HolderID:   "e1",
		RoleID:     "r1",
		Action:     "assigned",
		OccurredAt: fixed,
	}, payload)
}

func TestClientReportsEnqueueFailure(t *testing.T) {
	enq := &recordingEnqueuer{err: errors.New("redis unavailable")}
	counts := outcomeCounter{}
	client := NewClientWith(enq, counts)

	err := client.NotifyRoleChanged(context.Background(), "user", "u1", "r1", "retracted")
	require.ErrorIs(t, err, enq.err)
	require.Equal(t, 1, counts["role:changed/failed"])
}

func TestNotificationHandlers(t *testing.T) {
	reg := prometheus.NewRegistry()
	handlers := NewNotificationJobs(nil, jobmetrics.NewMetrics(reg))

	welcome, err := NewWelcomeTask(WelcomePayload{UserID: "u1", Email: "ann@example.com"})
	require.NoError(t, err)
	require.NoError(t, handlers.HandleWelcome(context.Background(), welcome))

	changed, err := NewRoleChangedTask(RoleChangedPayload{Target: "employee", HolderID: "e1", RoleID: "r1", Action: "assigned"})
	require.NoError(t, err)
	require.NoError(t, handlers.HandleRoleChanged(context.Background(), changed))

	broken := asynq.NewTask(TaskRoleChanged, []byte("{"))
	require.ErrorIs(t, handlers.HandleRoleChanged(context.Background(), broken), asynq.SkipRetry)

	empty := asynq.NewTask(TaskUserWelcome, []byte(`{}`))
	require.ErrorIs(t, handlers.HandleWelcome(context.Background(), empty), asynq.SkipRetry)

	types := map[string]bool{}
	for _, h := range handlers.Handlers() {
		types[h.Type] = true
	}
	require.True(t, types[TaskUserWelcome])
	require.True(t, types[TaskRoleChanged])
}

func TestHealthWithoutInspector(t *testing.T) {
	r := chi.NewRouter()
	r.Route("/jobs", NewHandler(nil, nil).MountRoutes)

	rr := httptest.NewRecorder()
	r.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/jobs/health", nil))
	require.Equal(t, http.StatusOK, rr.Code)
	require.JSONEq(t, `{"queue":"default","pending":0,"active":0,"retry":0}`, rr.Body.String())
}
