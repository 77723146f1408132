package file

import (
	"context"
	"os"
	"path/filepath"
	"sort"
	"sync"
	"time"

	"github.com/fieldline/automation/pkg/models"
	"github.com/fieldline/automation/pkg/persistence"
)

// ExecutionLogRepository stores execution records as JSON files.
type ExecutionLogRepository struct {
	dir string
	mu  sync.Mutex
}

func NewExecutionLogRepository(root string) *ExecutionLogRepository {
	return &ExecutionLogRepository{dir: filepath.Join(root, "executions")}
}

func (r *ExecutionLogRepository) Append(_ context.Context, record *models.ExecutionRecord) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	return writeDocument(r.dir, record.ID, record)
}

func (r *ExecutionLogRepository) Finalize(ctx context.Context, id string, status models.ExecutionStatus, errorMessage string, completedAt time.Time) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	record, err := r.byID(id)
	if err != nil {
		return err
	}

	if record.CompletedAt != nil {
		return persistence.ErrExecutionFinalized
	}

	record.Status = status
	record.ErrorMessage = errorMessage
	record.CompletedAt = &completedAt

	return writeDocument(r.dir, record.ID, record)
}

func (r *ExecutionLogRepository) ByID(_ context.Context, id string) (*models.ExecutionRecord, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	return r.byID(id)
}

func (r *ExecutionLogRepository) byID(id string) (*models.ExecutionRecord, error) {
	var record models.ExecutionRecord

	err := readDocument(r.dir, id, &record)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, persistence.ErrExecutionNotFound
		}

		return nil, err
	}

	return &record, nil
}

// ByWorkflow returns the most recent records for one workflow, newest
// first.
func (r *ExecutionLogRepository) ByWorkflow(_ context.Context, workflowID string, limit int) ([]*models.ExecutionRecord, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	ids, err := listIDs(r.dir)
	if err != nil {
		if os.IsNotExist(err) {
			return []*models.ExecutionRecord{}, nil
		}

		return nil, err
	}

	records := make([]*models.ExecutionRecord, 0, len(ids))

	for _, id := range ids {
		record, err := r.byID(id)
		if err != nil {
			return nil, err
		}

		if record.WorkflowID == workflowID {
			records = append(records, record)
		}
	}

	sort.Slice(records, func(i, j int) bool {
		return records[i].StartedAt.After(records[j].StartedAt)
	})

	if limit > 0 && len(records) > limit {
		records = records[:limit]
	}

	return records, nil
}
