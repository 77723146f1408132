package scheduler

import (
	"context"
	"errors"
	"log/slog"
	"testing"
	"time"

	"github.com/stretchr/testify/mock"

	"github.com/fieldline/automation/pkg/events"
	"github.com/fieldline/automation/pkg/mocks"
	"github.com/fieldline/automation/pkg/models"
)

func TestScan_PublishesAppointmentDueEventPerJob(t *testing.T) {
	t.Parallel()

	scheduledAt := time.Now().UTC().Add(3 * time.Hour)

	entities := new(mocks.MockEntityRepository)
	bus := new(mocks.MockEventBus)
	source := NewSource(slog.Default(), entities, bus, DefaultConfig("tenant-1"))

	entities.On("JobsScheduledBetween", mock.Anything, "tenant-1", mock.Anything, mock.Anything).
		Return([]*models.Job{
			{ID: "job-1", TenantID: "tenant-1", Status: "scheduled", ScheduledAt: &scheduledAt},
			{ID: "job-2", TenantID: "tenant-1", Status: "scheduled", ScheduledAt: &scheduledAt},
		}, nil)
	bus.On("Publish", mock.Anything, mock.Anything, mock.MatchedBy(func(event events.Event) bool {
		change, ok := event.(events.EntityChanged)

		return ok &&
			change.Table == models.EntityJob &&
			change.New["appointment_due"] == true
	})).Return(nil)

	source.scan(context.Background())

	bus.AssertNumberOfCalls(t, "Publish", 2)
}

func TestScan_QueryFailurePublishesNothing(t *testing.T) {
	t.Parallel()

	entities := new(mocks.MockEntityRepository)
	bus := new(mocks.MockEventBus)
	source := NewSource(slog.Default(), entities, bus, DefaultConfig("tenant-1"))

	entities.On("JobsScheduledBetween", mock.Anything, "tenant-1", mock.Anything, mock.Anything).
		Return(nil, errors.New("connection refused"))

	source.scan(context.Background())

	bus.AssertNotCalled(t, "Publish", mock.Anything, mock.Anything, mock.Anything)
}

func TestStartStop_Idempotent(t *testing.T) {
	t.Parallel()

	entities := new(mocks.MockEntityRepository)
	bus := new(mocks.MockEventBus)
	source := NewSource(slog.Default(), entities, bus, DefaultConfig("tenant-1"))

	ctx := context.Background()

	if err := source.Start(ctx); err != nil {
		t.Fatalf("start failed: %v", err)
	}

	if err := source.Start(ctx); err != nil {
		t.Fatalf("second start failed: %v", err)
	}

	if err := source.Stop(ctx); err != nil {
		t.Fatalf("stop failed: %v", err)
	}

	if err := source.Stop(ctx); err != nil {
		t.Fatalf("second stop failed: %v", err)
	}
}
