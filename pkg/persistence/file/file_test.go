package file_test

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/fieldline/automation/pkg/models"
	"github.com/fieldline/automation/pkg/persistence"
	"github.com/fieldline/automation/pkg/persistence/file"
)

func testWorkflow(id, tenantID string, status models.WorkflowStatus) *models.Workflow {
	now := time.Now().UTC()

	return &models.Workflow{
		ID:          id,
		TenantID:    tenantID,
		Name:        "Job completed follow up",
		Status:      status,
		TriggerType: models.TriggerStatusChange,
		TriggerConditions: models.TriggerConditions{
			ToStatus:   "completed",
			EntityType: models.EntityJob,
		},
		Steps: []models.Step{
			{
				ID:      "step-1",
				Kind:    models.StepMessage,
				Message: &models.MessageConfig{Channel: models.ChannelSMS, Template: "Thanks {{client_name}}!"},
			},
		},
		CreatedAt: now,
		UpdatedAt: now,
	}
}

func TestWorkflowRepository(t *testing.T) {
	store := file.NewPersistence(t.TempDir())
	repo := store.Workflows()
	ctx := t.Context()

	t.Run("round trip preserves the definition", func(t *testing.T) {
		original := testWorkflow("wf-1", "tenant-1", models.WorkflowStatusActive)
		require.NoError(t, repo.Save(ctx, original))

		loaded, err := repo.ByID(ctx, "wf-1")
		require.NoError(t, err)
		assert.Equal(t, original.Name, loaded.Name)
		assert.Equal(t, original.TriggerType, loaded.TriggerType)
		assert.Equal(t, "completed", loaded.TriggerConditions.ToStatus)
		require.Len(t, loaded.Steps, 1)
		assert.Equal(t, models.StepMessage, loaded.Steps[0].Kind)
		require.NotNil(t, loaded.Steps[0].Message)
		assert.Equal(t, "Thanks {{client_name}}!", loaded.Steps[0].Message.Template)
	})

	t.Run("unknown workflow", func(t *testing.T) {
		_, err := repo.ByID(ctx, "missing")
		assert.ErrorIs(t, err, persistence.ErrWorkflowNotFound)
	})

	t.Run("tenant filtering", func(t *testing.T) {
		require.NoError(t, repo.Save(ctx, testWorkflow("wf-other", "tenant-2", models.WorkflowStatusActive)))

		workflows, err := repo.All(ctx, "tenant-1")
		require.NoError(t, err)

		for _, workflow := range workflows {
			assert.Equal(t, "tenant-1", workflow.TenantID)
		}
	})

	t.Run("active excludes paused", func(t *testing.T) {
		require.NoError(t, repo.Save(ctx, testWorkflow("wf-paused", "tenant-1", models.WorkflowStatusPaused)))

		active, err := repo.Active(ctx, "tenant-1")
		require.NoError(t, err)

		for _, workflow := range active {
			assert.True(t, workflow.IsActive())
		}
	})

	t.Run("record run bumps counters", func(t *testing.T) {
		executedAt := time.Now().UTC()
		require.NoError(t, repo.RecordRun(ctx, "wf-1", true, executedAt))
		require.NoError(t, repo.RecordRun(ctx, "wf-1", false, executedAt))

		workflow, err := repo.ByID(ctx, "wf-1")
		require.NoError(t, err)
		assert.Equal(t, int64(2), workflow.ExecutionCount)
		assert.Equal(t, int64(1), workflow.SuccessCount)
		require.NotNil(t, workflow.LastExecutedAt)
	})

	t.Run("delete", func(t *testing.T) {
		require.NoError(t, repo.Save(ctx, testWorkflow("wf-gone", "tenant-1", models.WorkflowStatusActive)))
		require.NoError(t, repo.Delete(ctx, "wf-gone"))

		_, err := repo.ByID(ctx, "wf-gone")
		assert.ErrorIs(t, err, persistence.ErrWorkflowNotFound)

		err = repo.Delete(ctx, "wf-gone")
		assert.ErrorIs(t, err, persistence.ErrWorkflowNotFound)
	})

	t.Run("rejects path escaping identifiers", func(t *testing.T) {
		bad := testWorkflow("wf-1", "tenant-1", models.WorkflowStatusActive)
		bad.ID = "../escape"

		err := repo.Save(ctx, bad)
		require.Error(t, err)
	})
}

func TestExecutionLogRepository(t *testing.T) {
	store := file.NewPersistence(t.TempDir())
	repo := store.Executions()
	ctx := t.Context()

	record := func(id string, startedAt time.Time) *models.ExecutionRecord {
		return &models.ExecutionRecord{
			ID:          id,
			WorkflowID:  "wf-1",
			Status:      models.ExecutionStarted,
			TriggerKind: models.TriggerStatusChange,
			TriggerPayload: map[string]any{
				"table": models.EntityJob,
			},
			StartedAt: startedAt,
		}
	}

	t.Run("finalize sets status once", func(t *testing.T) {
		require.NoError(t, repo.Append(ctx, record("exec-1", time.Now().UTC())))

		completedAt := time.Now().UTC()
		require.NoError(t, repo.Finalize(ctx, "exec-1", models.ExecutionCompleted, "", completedAt))

		loaded, err := repo.ByID(ctx, "exec-1")
		require.NoError(t, err)
		assert.Equal(t, models.ExecutionCompleted, loaded.Status)
		require.NotNil(t, loaded.CompletedAt)

		err = repo.Finalize(ctx, "exec-1", models.ExecutionFailed, "late", time.Now().UTC())
		assert.ErrorIs(t, err, persistence.ErrExecutionFinalized)
	})

	t.Run("finalize unknown execution", func(t *testing.T) {
		err := repo.Finalize(ctx, "missing", models.ExecutionFailed, "x", time.Now().UTC())
		assert.ErrorIs(t, err, persistence.ErrExecutionNotFound)
	})

	t.Run("by workflow is newest first and honors the limit", func(t *testing.T) {
		base := time.Now().UTC()
		require.NoError(t, repo.Append(ctx, record("exec-old", base.Add(-2*time.Hour))))
		require.NoError(t, repo.Append(ctx, record("exec-new", base.Add(time.Minute))))

		records, err := repo.ByWorkflow(ctx, "wf-1", 2)
		require.NoError(t, err)
		require.Len(t, records, 2)
		assert.Equal(t, "exec-new", records[0].ID)

		records, err = repo.ByWorkflow(ctx, "wf-1", 1)
		require.NoError(t, err)
		require.Len(t, records, 1)
	})

	t.Run("unknown workflow has no records", func(t *testing.T) {
		records, err := repo.ByWorkflow(ctx, "wf-none", 10)
		require.NoError(t, err)
		assert.Empty(t, records)
	})
}

func TestNotificationRepository(t *testing.T) {
	store := file.NewPersistence(t.TempDir())
	repo := store.Notifications()
	ctx := t.Context()

	notifications := []*models.Notification{
		{ID: "n-1", TenantID: "tenant-1", WorkflowID: "wf-1", EntityType: models.EntityJob, EntityID: "job-1", Message: "Job completed", CreatedAt: time.Now().UTC()},
		{ID: "n-2", TenantID: "tenant-1", WorkflowID: "wf-1", EntityType: models.EntityJob, EntityID: "job-1", Message: "Seen already", Read: true, CreatedAt: time.Now().UTC()},
		{ID: "n-3", TenantID: "tenant-2", WorkflowID: "wf-2", EntityType: models.EntityInvoice, EntityID: "inv-1", Message: "Invoice paid", CreatedAt: time.Now().UTC()},
	}
	for _, notification := range notifications {
		require.NoError(t, repo.Insert(ctx, notification))
	}

	unread, err := repo.Unread(ctx, "tenant-1")
	require.NoError(t, err)
	require.Len(t, unread, 1)
	assert.Equal(t, "n-1", unread[0].ID)
}

func TestEntityRepositorySeeds(t *testing.T) {
	store := file.NewPersistence(t.TempDir())
	ctx := t.Context()

	client := &models.Client{ID: "client-1", TenantID: "tenant-1", Name: "Maria Santos", Phone: "+15550001"}
	require.NoError(t, store.EntitySeeds().SeedClient(client))

	scheduledAt := time.Now().UTC().Add(3 * time.Hour)
	job := &models.Job{ID: "job-1", TenantID: "tenant-1", ClientID: "client-1", Status: "scheduled", ScheduledAt: &scheduledAt}
	require.NoError(t, store.EntitySeeds().SeedJob(job))

	loaded, err := store.Entities().JobByID(ctx, "tenant-1", "job-1")
	require.NoError(t, err)
	assert.Equal(t, "client-1", loaded.ClientID)

	_, err = store.Entities().JobByID(ctx, "tenant-2", "job-1")
	assert.ErrorIs(t, err, persistence.ErrEntityNotFound)

	jobs, err := store.Entities().JobsScheduledBetween(ctx, "tenant-1", time.Now().UTC(), time.Now().UTC().Add(24*time.Hour))
	require.NoError(t, err)
	require.Len(t, jobs, 1)
	assert.Equal(t, "job-1", jobs[0].ID)
}
