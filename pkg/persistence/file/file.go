// Package file provides the file-backed store used for local development
// and tests. Each aggregate is one JSON document under the root directory.
package file

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"github.com/fieldline/automation/pkg/persistence"
)

// Persistence implements persistence.Persistence on the file system.
type Persistence struct {
	root          string
	workflows     *WorkflowRepository
	executions    *ExecutionLogRepository
	entities      *EntityRepository
	notifications *NotificationRepository
}

// NewPersistence creates a file store rooted at the given directory. A
// "file://" prefix is accepted and stripped.
func NewPersistence(root string) *Persistence {
	cleanRoot := strings.TrimPrefix(root, "file://")

	return &Persistence{
		root:          cleanRoot,
		workflows:     NewWorkflowRepository(cleanRoot),
		executions:    NewExecutionLogRepository(cleanRoot),
		entities:      NewEntityRepository(cleanRoot),
		notifications: NewNotificationRepository(cleanRoot),
	}
}

func (p *Persistence) Workflows() persistence.WorkflowRepository {
	return p.workflows
}

func (p *Persistence) Executions() persistence.ExecutionLogRepository {
	return p.executions
}

func (p *Persistence) Entities() persistence.EntityRepository {
	return p.entities
}

func (p *Persistence) Notifications() persistence.NotificationRepository {
	return p.notifications
}

// EntitySeeds exposes the fixture writers of the entity repository for
// tests and local development setups.
func (p *Persistence) EntitySeeds() *EntityRepository {
	return p.entities
}

// HealthCheck verifies the root directory exists.
func (p *Persistence) HealthCheck(_ context.Context) error {
	if _, err := os.Stat(p.root); os.IsNotExist(err) {
		return os.ErrNotExist
	}

	return nil
}

// Close is a no-op for the file store.
func (p *Persistence) Close(_ context.Context) error {
	return nil
}

// validateID rejects identifiers that could escape the storage directory.
func validateID(id string) error {
	if id == "" {
		return errors.New("identifier cannot be empty")
	}

	if strings.Contains(id, "..") || strings.ContainsAny(id, `/\`) {
		return errors.New("identifier contains invalid characters")
	}

	return nil
}

func writeDocument(dir, id string, document any) error {
	if err := validateID(id); err != nil {
		return err
	}

	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("failed to create directory %s: %w", dir, err)
	}

	data, err := json.MarshalIndent(document, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal document %s: %w", id, err)
	}

	path := filepath.Join(dir, id+".json")
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("failed to write %s: %w", path, err)
	}

	return nil
}

func readDocument(dir, id string, document any) error {
	if err := validateID(id); err != nil {
		return err
	}

	data, err := os.ReadFile(filepath.Join(dir, id+".json"))
	if err != nil {
		return err
	}

	return json.Unmarshal(data, document)
}

func listIDs(dir string) ([]string, error) {
	root := os.DirFS(dir)

	jsonFiles, err := fs.Glob(root, "*.json")
	if err != nil {
		return nil, err
	}

	ids := make([]string, 0, len(jsonFiles))
	for _, file := range jsonFiles {
		ids = append(ids, strings.TrimSuffix(file, ".json"))
	}

	return ids, nil
}
