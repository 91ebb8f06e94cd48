package repositories

import (
	"context"

	"seyon/internal/models"
)

// ProjectRepository defines the interface for project data access.
type ProjectRepository interface {
	// GetAll returns every project, most recently created first.
	GetAll(ctx context.Context) ([]models.Project, error)
	GetByID(ctx context.Context, id string) (*models.Project, error)
	Create(ctx context.Context, project *models.Project) error
	Update(ctx context.Context, project *models.Project) error
	Delete(ctx context.Context, id string) error
	// ImageNames returns the image filename of every stored project.
	ImageNames(ctx context.Context) ([]string, error)
}
