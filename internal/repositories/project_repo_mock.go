package repositories

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"seyon/internal/models"

	"github.com/google/uuid"
)

// MockProjectRepository is an in-memory implementation of ProjectRepository.
type MockProjectRepository struct {
	projects map[string]models.Project
	mu       sync.RWMutex
}

// NewMockProjectRepository creates a new instance of MockProjectRepository.
func NewMockProjectRepository() *MockProjectRepository {
	return &MockProjectRepository{
		projects: make(map[string]models.Project),
	}
}

// GetAll returns all projects, newest first.
func (r *MockProjectRepository) GetAll(_ context.Context) ([]models.Project, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	projectList := make([]models.Project, 0, len(r.projects))
	for _, p := range r.projects {
		projectList = append(projectList, p)
	}
	sort.SliceStable(projectList, func(i, j int) bool {
		return projectList[i].CreatedAt.After(projectList[j].CreatedAt)
	})
	return projectList, nil
}

// GetByID returns a project by its ID.
func (r *MockProjectRepository) GetByID(_ context.Context, id string) (*models.Project, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	project, ok := r.projects[id]
	if !ok {
		return nil, fmt.Errorf("project with ID %s: %w", id, ErrNotFound)
	}
	return &project, nil
}

// Create adds a new project.
func (r *MockProjectRepository) Create(_ context.Context, project *models.Project) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if project.ID == "" {
		project.ID = uuid.New().String()
	}
	if project.CreatedAt.IsZero() {
		project.CreatedAt = time.Now().UTC()
	}
	r.projects[project.ID] = *project
	return nil
}

// Update modifies an existing project, keeping its creation time.
func (r *MockProjectRepository) Update(_ context.Context, project *models.Project) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	existing, ok := r.projects[project.ID]
	if !ok {
		return fmt.Errorf("project with ID %s: %w", project.ID, ErrNotFound)
	}
	updated := *project
	updated.CreatedAt = existing.CreatedAt
	r.projects[project.ID] = updated
	return nil
}

// Delete removes a project by its ID.
func (r *MockProjectRepository) Delete(_ context.Context, id string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.projects[id]; !ok {
		return fmt.Errorf("project with ID %s: %w", id, ErrNotFound)
	}
	delete(r.projects, id)
	return nil
}

// ImageNames returns the image filename of every project.
func (r *MockProjectRepository) ImageNames(_ context.Context) ([]string, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	names := make([]string, 0, len(r.projects))
	for _, p := range r.projects {
		names = append(names, p.Image)
	}
	return names, nil
}
