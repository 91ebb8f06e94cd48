package repositories

import (
	"context"
	"errors"
	"fmt"
	"time"

	"seyon/internal/models"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// GORMProjectRepository is a GORM implementation of ProjectRepository.
type GORMProjectRepository struct {
	db *gorm.DB
}

// NewGORMProjectRepository creates a new instance of GORMProjectRepository.
func NewGORMProjectRepository(db *gorm.DB) *GORMProjectRepository {
	return &GORMProjectRepository{
		db: db,
	}
}

// GetAll retrieves all projects ordered by creation time, newest first.
func (r *GORMProjectRepository) GetAll(ctx context.Context) ([]models.Project, error) {
	projects := make([]models.Project, 0)
	if err := r.db.WithContext(ctx).Order("created_at DESC").Find(&projects).Error; err != nil {
		return nil, fmt.Errorf("failed to get all projects: %w", err)
	}
	return projects, nil
}

// GetByID retrieves a single project by its ID.
func (r *GORMProjectRepository) GetByID(ctx context.Context, id string) (*models.Project, error) {
	var project models.Project
	if err := r.db.WithContext(ctx).First(&project, "id = ?", id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, fmt.Errorf("project with ID %s: %w", id, ErrNotFound)
		}
		return nil, fmt.Errorf("failed to get project by ID %s: %w", id, err)
	}
	return &project, nil
}

// Create inserts a new project, assigning its ID and creation time.
func (r *GORMProjectRepository) Create(ctx context.Context, project *models.Project) error {
	if project.ID == "" {
		project.ID = uuid.New().String()
	}
	if project.CreatedAt.IsZero() {
		project.CreatedAt = time.Now().UTC()
	}
	if err := r.db.WithContext(ctx).Create(project).Error; err != nil {
		return fmt.Errorf("failed to create project: %w", err)
	}
	return nil
}

// Update writes the mutable fields of an existing project. ID and CreatedAt
// are never changed.
func (r *GORMProjectRepository) Update(ctx context.Context, project *models.Project) error {
	// Save would silently insert a missing row, so update by key and check
	// RowsAffected instead.
	res := r.db.WithContext(ctx).
		Model(&models.Project{}).
		Where("id = ?", project.ID).
		Updates(map[string]any{
			"title":    project.Title,
			"category": project.Category,
			"location": project.Location,
			"capacity": project.Capacity,
			"image":    project.Image,
		})
	if res.Error != nil {
		return fmt.Errorf("failed to update project: %w", res.Error)
	}
	if res.RowsAffected == 0 {
		return fmt.Errorf("project with ID %s: %w", project.ID, ErrNotFound)
	}
	return nil
}

// Delete deletes a project by its ID.
func (r *GORMProjectRepository) Delete(ctx context.Context, id string) error {
	res := r.db.WithContext(ctx).Delete(&models.Project{}, "id = ?", id)
	if res.Error != nil {
		return fmt.Errorf("failed to delete project: %w", res.Error)
	}
	if res.RowsAffected == 0 {
		return fmt.Errorf("project with ID %s: %w", id, ErrNotFound)
	}
	return nil
}

// ImageNames returns the image column of every project.
func (r *GORMProjectRepository) ImageNames(ctx context.Context) ([]string, error) {
	var names []string
	if err := r.db.WithContext(ctx).Model(&models.Project{}).Pluck("image", &names).Error; err != nil {
		return nil, fmt.Errorf("failed to list project images: %w", err)
	}
	return names, nil
}
