package cli

import (
	"encoding/json"
	"testing"

	"github.com/hibiken/asynq"
	"github.com/stretchr/testify/require"

	"github.com/odyssey-erp/odyssey-iam/jobs"
)

func TestBuildTask(t *testing.T) {
	task, err := BuildTask(jobs.TaskUserWelcome, map[string]string{"userId": "u1", "email": "ann@example.com"})
	require.NoError(t, err)
	require.Equal(t, jobs.TaskUserWelcome, task.Type())

	task, err = BuildTask(jobs.TaskRoleChanged, map[string]string{"holderId": "e1", "roleId": "r1", "action": "assigned"})
	require.NoError(t, err)
	var payload jobs.RoleChangedPayload
	require.NoError(t, json.Unmarshal(task.Payload(), &payload))
	require.Equal(t, "employee", payload.Target)
	require.Equal(t, "e1", payload.HolderID)

	_, err = BuildTask(jobs.TaskUserWelcome, map[string]string{"userId": "u1"})
	require.ErrorContains(t, err, "missing parameter email")

	_, err = BuildTask("mail:send", nil)
	require.ErrorContains(t, err, "unsupported job")
}

func TestNewJobsCLIRequiresRedis(t *testing.T) {
	_, err := NewJobsCLI(asynq.RedisClientOpt{})
	require.Error(t, err)

	var cli *JobsCLI
	_, err = cli.Trigger(t.Context(), jobs.TaskUserWelcome, nil)
	require.Error(t, err)
}
