package services

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"seyon/internal/metrics"
	"seyon/internal/models"
	"seyon/internal/repositories"
	"seyon/internal/storage"

	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"
)

// ImageStore persists and removes project images.
type ImageStore interface {
	Save(ctx context.Context, upload *storage.Upload) (string, error)
	Remove(name string) error
}

// ProjectCache caches the public project list. Get reports the cache
// generation it observed; Set stores the list only while that generation is
// still current, so a list read before an Invalidate is never written back.
type ProjectCache interface {
	Get(ctx context.Context) (projects []models.Project, generation int64, ok bool)
	Set(ctx context.Context, generation int64, projects []models.Project)
	Invalidate(ctx context.Context)
}

// EventPublisher delivers project lifecycle events to a message broker.
type EventPublisher interface {
	Publish(routingKey string, body []byte) error
}

// ProjectInput carries client supplied project fields. On update an empty
// field means "leave unchanged".
type ProjectInput struct {
	Title    string `validate:"required"`
	Category string `validate:"required,category"`
	Location string `validate:"required"`
	Capacity string `validate:"required"`
}

// ProjectEvent is the message body published after every project mutation.
type ProjectEvent struct {
	Type       string    `json:"type"`
	ProjectID  string    `json:"projectId"`
	Title      string    `json:"title,omitempty"`
	Category   string    `json:"category,omitempty"`
	Image      string    `json:"image,omitempty"`
	OccurredAt time.Time `json:"occurredAt"`
}

const (
	EventProjectCreated = "project.created"
	EventProjectUpdated = "project.updated"
	EventProjectDeleted = "project.deleted"
)

// ProjectService handles business logic related to projects and keeps each
// record paired with its image file.
type ProjectService struct {
	repo     repositories.ProjectRepository
	images   ImageStore
	cache    ProjectCache
	events   EventPublisher
	validate *validator.Validate
	log      *zap.Logger
}

// NewProjectService creates a new ProjectService. cache and events may be nil.
func NewProjectService(repo repositories.ProjectRepository, images ImageStore, cache ProjectCache, events EventPublisher, log *zap.Logger) *ProjectService {
	return &ProjectService{
		repo:     repo,
		images:   images,
		cache:    cache,
		events:   events,
		validate: NewValidator(),
		log:      log,
	}
}

// NewValidator returns a validator that knows the "category" tag.
func NewValidator() *validator.Validate {
	v := validator.New()
	if err := v.RegisterValidation("category", func(fl validator.FieldLevel) bool {
		return models.Category(fl.Field().String()).Valid()
	}); err != nil {
		panic(fmt.Sprintf("register category validation: %v", err))
	}
	return v
}

// GetAllProjects returns every project, most recently created first.
func (s *ProjectService) GetAllProjects(ctx context.Context) ([]models.Project, error) {
	var generation int64
	if s.cache != nil {
		projects, gen, ok := s.cache.Get(ctx)
		if ok {
			return projects, nil
		}
		generation = gen
	}

	projects, err := s.repo.GetAll(ctx)
	if err != nil {
		return nil, err
	}
	if projects == nil {
		projects = []models.Project{}
	}
	if s.cache != nil {
		s.cache.Set(ctx, generation, projects)
	}
	return projects, nil
}

// CreateProject validates the input, stores the image and then the record.
// Nothing is written when the input is invalid or the image is missing.
func (s *ProjectService) CreateProject(ctx context.Context, input ProjectInput, upload *storage.Upload) (project *models.Project, err error) {
	defer func() { metrics.RecordProjectOperation("create", err) }()

	if err := s.validateInput(input); err != nil {
		return nil, err
	}
	if upload == nil {
		return nil, ErrMissingFile
	}

	image, err := s.images.Save(ctx, upload)
	if err != nil {
		return nil, err
	}

	project = &models.Project{
		Title:    input.Title,
		Category: models.Category(input.Category),
		Location: input.Location,
		Capacity: input.Capacity,
		Image:    image,
	}
	if err := s.repo.Create(ctx, project); err != nil {
		s.removeImage(image, "discard image of failed create")
		return nil, err
	}

	s.afterMutation(ctx, EventProjectCreated, project)
	return project, nil
}

// UpdateProject replaces each non-empty field of input. When upload is not
// nil the new image is stored, the record is written, and only then is the
// previous image removed.
func (s *ProjectService) UpdateProject(ctx context.Context, id string, input ProjectInput, upload *storage.Upload) (project *models.Project, err error) {
	defer func() { metrics.RecordProjectOperation("update", err) }()

	project, err = s.getProject(ctx, id)
	if err != nil {
		return nil, err
	}
	if input.Category != "" && !models.Category(input.Category).Valid() {
		return nil, &ValidationError{Fields: map[string]string{
			"category": fmt.Sprintf("must be one of %v", models.Categories),
		}}
	}

	if input.Title != "" {
		project.Title = input.Title
	}
	if input.Category != "" {
		project.Category = models.Category(input.Category)
	}
	if input.Location != "" {
		project.Location = input.Location
	}
	if input.Capacity != "" {
		project.Capacity = input.Capacity
	}

	var previousImage string
	if upload != nil {
		image, err := s.images.Save(ctx, upload)
		if err != nil {
			return nil, err
		}
		previousImage = project.Image
		project.Image = image
	}

	if err := s.repo.Update(ctx, project); err != nil {
		if previousImage != "" {
			s.removeImage(project.Image, "discard image of failed update")
		}
		if errors.Is(err, repositories.ErrNotFound) {
			return nil, ErrNotFound
		}
		return nil, err
	}

	if previousImage != "" && previousImage != project.Image {
		s.removeImage(previousImage, "remove replaced image")
	}

	s.afterMutation(ctx, EventProjectUpdated, project)
	return project, nil
}

// DeleteProject removes the project's image and then its record. Both are
// attempted; a failed image removal is only logged.
func (s *ProjectService) DeleteProject(ctx context.Context, id string) (err error) {
	defer func() { metrics.RecordProjectOperation("delete", err) }()

	project, err := s.getProject(ctx, id)
	if err != nil {
		return err
	}

	s.removeImage(project.Image, "remove image of deleted project")

	if err := s.repo.Delete(ctx, id); err != nil {
		if errors.Is(err, repositories.ErrNotFound) {
			return ErrNotFound
		}
		return err
	}

	s.afterMutation(ctx, EventProjectDeleted, project)
	return nil
}

func (s *ProjectService) getProject(ctx context.Context, id string) (*models.Project, error) {
	project, err := s.repo.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, repositories.ErrNotFound) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return project, nil
}

func (s *ProjectService) validateInput(input ProjectInput) error {
	err := s.validate.Struct(input)
	if err == nil {
		return nil
	}
	var validationErrors validator.ValidationErrors
	if !errors.As(err, &validationErrors) {
		return err
	}
	fields := make(map[string]string, len(validationErrors))
	for _, e := range validationErrors {
		field := lowerFirst(e.Field())
		switch e.Tag() {
		case "required":
			fields[field] = "is required"
		case "category":
			fields[field] = fmt.Sprintf("must be one of %v", models.Categories)
		default:
			fields[field] = fmt.Sprintf("failed on the '%s' tag", e.Tag())
		}
	}
	return &ValidationError{Fields: fields}
}

func (s *ProjectService) removeImage(name, reason string) {
	if err := s.images.Remove(name); err != nil {
		s.log.Warn("image cleanup failed", zap.String("image", name), zap.String("reason", reason), zap.Error(err))
	}
}

// afterMutation invalidates the list cache and publishes the event. Neither
// can fail the operation.
func (s *ProjectService) afterMutation(ctx context.Context, eventType string, p *models.Project) {
	if s.cache != nil {
		s.cache.Invalidate(ctx)
	}
	if s.events == nil {
		return
	}

	body, err := json.Marshal(ProjectEvent{
		Type:       eventType,
		ProjectID:  p.ID,
		Title:      p.Title,
		Category:   p.Category.String(),
		Image:      p.Image,
		OccurredAt: time.Now().UTC(),
	})
	if err != nil {
		s.log.Warn("failed to marshal project event", zap.String("type", eventType), zap.Error(err))
		return
	}
	if err := s.events.Publish(eventType, body); err != nil {
		s.log.Warn("failed to publish project event",
			zap.String("type", eventType), zap.String("project_id", p.ID), zap.Error(err))
	}
}

func lowerFirst(s string) string {
	if s == "" {
		return s
	}
	b := []byte(s)
	if b[0] >= 'A' && b[0] <= 'Z' {
		b[0] += 'a' - 'A'
	}
	return string(b)
}
