package mocks

import (
	"context"
	"time"

	"github.com/stretchr/testify/mock"

	"github.com/fieldline/automation/pkg/models"
)

// MockWorkflowRepository is a mock implementation of persistence.WorkflowRepository.
type MockWorkflowRepository struct {
	mock.Mock
}

func (m *MockWorkflowRepository) All(ctx context.Context, tenantID string) ([]*models.Workflow, error) {
	args := m.Called(ctx, tenantID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}

	return args.Get(0).([]*models.Workflow), args.Error(1)
}

func (m *MockWorkflowRepository) Active(ctx context.Context, tenantID string) ([]*models.Workflow, error) {
	args := m.Called(ctx, tenantID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}

	return args.Get(0).([]*models.Workflow), args.Error(1)
}

func (m *MockWorkflowRepository) ByID(ctx context.Context, id string) (*models.Workflow, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}

	return args.Get(0).(*models.Workflow), args.Error(1)
}

func (m *MockWorkflowRepository) Save(ctx context.Context, workflow *models.Workflow) error {
	args := m.Called(ctx, workflow)

	return args.Error(0)
}

func (m *MockWorkflowRepository) Delete(ctx context.Context, id string) error {
	args := m.Called(ctx, id)

	return args.Error(0)
}

func (m *MockWorkflowRepository) RecordRun(ctx context.Context, id string, succeeded bool, executedAt time.Time) error {
	args := m.Called(ctx, id, succeeded, executedAt)

	return args.Error(0)
}

// MockExecutionLogRepository is a mock implementation of persistence.ExecutionLogRepository.
type MockExecutionLogRepository struct {
	mock.Mock
}

func (m *MockExecutionLogRepository) Append(ctx context.Context, record *models.ExecutionRecord) error {
	args := m.Called(ctx, record)

	return args.Error(0)
}

func (m *MockExecutionLogRepository) Finalize(ctx context.Context, id string, status models.ExecutionStatus, errorMessage string, completedAt time.Time) error {
	args := m.Called(ctx, id, status, errorMessage, completedAt)

	return args.Error(0)
}

func (m *MockExecutionLogRepository) ByID(ctx context.Context, id string) (*models.ExecutionRecord, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}

	return args.Get(0).(*models.ExecutionRecord), args.Error(1)
}

func (m *MockExecutionLogRepository) ByWorkflow(ctx context.Context, workflowID string, limit int) ([]*models.ExecutionRecord, error) {
	args := m.Called(ctx, workflowID, limit)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}

	return args.Get(0).([]*models.ExecutionRecord), args.Error(1)
}

// MockEntityRepository is a mock implementation of persistence.EntityRepository.
type MockEntityRepository struct {
	mock.Mock
}

func (m *MockEntityRepository) JobByID(ctx context.Context, tenantID, id string) (*models.Job, error) {
	args := m.Called(ctx, tenantID, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}

	return args.Get(0).(*models.Job), args.Error(1)
}

func (m *MockEntityRepository) ClientByID(ctx context.Context, tenantID, id string) (*models.Client, error) {
	args := m.Called(ctx, tenantID, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}

	return args.Get(0).(*models.Client), args.Error(1)
}

func (m *MockEntityRepository) InvoiceByID(ctx context.Context, tenantID, id string) (*models.Invoice, error) {
	args := m.Called(ctx, tenantID, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}

	return args.Get(0).(*models.Invoice), args.Error(1)
}

func (m *MockEntityRepository) JobsScheduledBetween(ctx context.Context, tenantID string, from, to time.Time) ([]*models.Job, error) {
	args := m.Called(ctx, tenantID, from, to)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}

	return args.Get(0).([]*models.Job), args.Error(1)
}

// MockNotificationRepository is a mock implementation of persistence.NotificationRepository.
type MockNotificationRepository struct {
	mock.Mock
}

func (m *MockNotificationRepository) Insert(ctx context.Context, notification *models.Notification) error {
	args := m.Called(ctx, notification)

	return args.Error(0)
}

func (m *MockNotificationRepository) Unread(ctx context.Context, tenantID string) ([]*models.Notification, error) {
	args := m.Called(ctx, tenantID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}

	return args.Get(0).([]*models.Notification), args.Error(1)
}
