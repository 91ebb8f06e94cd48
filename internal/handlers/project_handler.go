package handlers

import (
	"errors"
	"mime/multipart"

	"seyon/internal/models"
	"seyon/internal/services"
	"seyon/internal/storage"

	"github.com/gofiber/fiber/v2"
	"github.com/valyala/fasthttp"
	"go.uber.org/zap"
)

// ProjectHandler handles HTTP requests for projects.
type ProjectHandler struct {
	service *services.ProjectService
	log     *zap.Logger
}

// NewProjectHandler creates a new ProjectHandler.
func NewProjectHandler(service *services.ProjectService, log *zap.Logger) *ProjectHandler {
	return &ProjectHandler{
		service: service,
		log:     log,
	}
}

// RegisterRoutes registers the project routes. Reads are public; mutations
// go through authRequired.
func (h *ProjectHandler) RegisterRoutes(router fiber.Router, authRequired fiber.Handler) {
	projectRoutes := router.Group("/projects")
	projectRoutes.Get("/", h.HandleGetProjects)
	projectRoutes.Get("/categories", h.HandleGetCategories)
	projectRoutes.Post("/", authRequired, h.HandleCreateProject)
	projectRoutes.Put("/:id", authRequired, h.HandleUpdateProject)
	projectRoutes.Delete("/:id", authRequired, h.HandleDeleteProject)
}

// HandleGetProjects lists every project, newest first.
func (h *ProjectHandler) HandleGetProjects(c *fiber.Ctx) error {
	projects, err := h.service.GetAllProjects(c.UserContext())
	if err != nil {
		return respondError(c, h.log, err)
	}
	return c.JSON(projects)
}

// HandleGetCategories returns the allowed project categories.
func (h *ProjectHandler) HandleGetCategories(c *fiber.Ctx) error {
	return c.JSON(models.Categories)
}

// HandleCreateProject creates a project from a multipart form carrying the
// text fields and exactly one image.
func (h *ProjectHandler) HandleCreateProject(c *fiber.Ctx) error {
	upload, closeUpload, err := formUpload(c)
	if err != nil {
		return respondError(c, h.log, err)
	}
	defer closeUpload()

	project, err := h.service.CreateProject(c.UserContext(), formInput(c), upload)
	if err != nil {
		return respondError(c, h.log, err)
	}
	return c.Status(fiber.StatusCreated).JSON(project)
}

// HandleUpdateProject applies any subset of fields and optionally a new image.
func (h *ProjectHandler) HandleUpdateProject(c *fiber.Ctx) error {
	upload, closeUpload, err := formUpload(c)
	if err != nil {
		return respondError(c, h.log, err)
	}
	defer closeUpload()

	project, err := h.service.UpdateProject(c.UserContext(), c.Params("id"), formInput(c), upload)
	if err != nil {
		return respondError(c, h.log, err)
	}
	return c.JSON(project)
}

// HandleDeleteProject removes a project and its image.
func (h *ProjectHandler) HandleDeleteProject(c *fiber.Ctx) error {
	if err := h.service.DeleteProject(c.UserContext(), c.Params("id")); err != nil {
		return respondError(c, h.log, err)
	}
	return c.JSON(fiber.Map{"msg": "Project removed"})
}

func formInput(c *fiber.Ctx) services.ProjectInput {
	return services.ProjectInput{
		Title:    c.FormValue("title"),
		Category: c.FormValue("category"),
		Location: c.FormValue("location"),
		Capacity: c.FormValue("capacity"),
	}
}

// formUpload opens the image part of the request. A request without one
// yields a nil upload and more than one is rejected; the returned close func
// is always safe to call.
func formUpload(c *fiber.Ctx) (*storage.Upload, func(), error) {
	noop := func() {}

	form, err := c.MultipartForm()
	if err != nil {
		if errors.Is(err, fasthttp.ErrNoMultipartForm) {
			return nil, noop, nil
		}
		return nil, noop, err
	}

	files := form.File[storage.FieldName]
	switch {
	case len(files) == 0 || files[0] == nil:
		return nil, noop, nil
	case len(files) > 1:
		return nil, noop, services.ErrTooManyFiles
	}
	fh := files[0]

	f, err := fh.Open()
	if err != nil {
		return nil, noop, err
	}
	return uploadFromHeader(fh, f), func() { f.Close() }, nil
}

func uploadFromHeader(fh *multipart.FileHeader, f multipart.File) *storage.Upload {
	return &storage.Upload{
		Filename:    fh.Filename,
		ContentType: fh.Header.Get(fiber.HeaderContentType),
		Size:        fh.Size,
		Body:        f,
	}
}
