package repositories_test

import (
	"context"
	"fmt"
	"strings"
	"testing"
	"time"

	"seyon/internal/database"
	"seyon/internal/models"
	"seyon/internal/repositories"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
)

// openTestDB returns a private in-memory SQLite database with the schema applied.
func openTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	name := strings.NewReplacer("/", "_", " ", "_").Replace(t.Name())
	db, err := database.Open(database.DriverSQLite, fmt.Sprintf("file:%s?mode=memory&cache=shared", name))
	require.NoError(t, err)
	require.NoError(t, database.Migrate(db))
	t.Cleanup(func() { database.Close(db) })
	return db
}

func newProject(title string, createdAt time.Time) *models.Project {
	return &models.Project{
		Title:     title,
		Category:  models.CategoryResidential,
		Location:  "Erode",
		Capacity:  "5kW",
		Image:     "image-" + title + ".jpg",
		CreatedAt: createdAt,
	}
}

func TestGORMProjectRepository_CreateAndGetAll(t *testing.T) {
	ctx := context.Background()
	repo := repositories.NewGORMProjectRepository(openTestDB(t))

	base := time.Now().UTC().Add(-time.Hour)
	older := newProject("older", base)
	newer := newProject("newer", base.Add(time.Minute))
	require.NoError(t, repo.Create(ctx, older))
	require.NoError(t, repo.Create(ctx, newer))

	assert.NotEmpty(t, older.ID)
	assert.NotEqual(t, older.ID, newer.ID)

	projects, err := repo.GetAll(ctx)
	require.NoError(t, err)
	require.Len(t, projects, 2)
	assert.Equal(t, "newer", projects[0].Title)
	assert.Equal(t, "older", projects[1].Title)
}

func TestGORMProjectRepository_GetAllEmpty(t *testing.T) {
	repo := repositories.NewGORMProjectRepository(openTestDB(t))

	projects, err := repo.GetAll(context.Background())
	require.NoError(t, err)
	assert.NotNil(t, projects)
	assert.Empty(t, projects)
}

func TestGORMProjectRepository_GetByID(t *testing.T) {
	ctx := context.Background()
	repo := repositories.NewGORMProjectRepository(openTestDB(t))

	p := newProject("rooftop", time.Time{})
	require.NoError(t, repo.Create(ctx, p))
	assert.False(t, p.CreatedAt.IsZero())

	got, err := repo.GetByID(ctx, p.ID)
	require.NoError(t, err)
	assert.Equal(t, p.Title, got.Title)
	assert.Equal(t, p.Image, got.Image)

	_, err = repo.GetByID(ctx, "missing")
	assert.ErrorIs(t, err, repositories.ErrNotFound)
}

func TestGORMProjectRepository_Update(t *testing.T) {
	ctx := context.Background()
	repo := repositories.NewGORMProjectRepository(openTestDB(t))

	p := newProject("plant", time.Now().UTC())
	require.NoError(t, repo.Create(ctx, p))

	p.Location = "Salem"
	p.Image = "image-new.png"
	require.NoError(t, repo.Update(ctx, p))

	got, err := repo.GetByID(ctx, p.ID)
	require.NoError(t, err)
	assert.Equal(t, "Salem", got.Location)
	assert.Equal(t, "image-new.png", got.Image)
	assert.Equal(t, "plant", got.Title)

	missing := newProject("ghost", time.Now())
	missing.ID = "does-not-exist"
	err = repo.Update(ctx, missing)
	assert.ErrorIs(t, err, repositories.ErrNotFound)

	// Update must not insert the missing row.
	_, err = repo.GetByID(ctx, "does-not-exist")
	assert.ErrorIs(t, err, repositories.ErrNotFound)
}

func TestGORMProjectRepository_DeleteAndImageNames(t *testing.T) {
	ctx := context.Background()
	repo := repositories.NewGORMProjectRepository(openTestDB(t))

	a := newProject("a", time.Now().UTC())
	b := newProject("b", time.Now().UTC())
	require.NoError(t, repo.Create(ctx, a))
	require.NoError(t, repo.Create(ctx, b))

	names, err := repo.ImageNames(ctx)
	require.NoError(t, err)
	assert.ElementsMatch(t, []string{a.Image, b.Image}, names)

	require.NoError(t, repo.Delete(ctx, a.ID))
	assert.ErrorIs(t, repo.Delete(ctx, a.ID), repositories.ErrNotFound)

	names, err = repo.ImageNames(ctx)
	require.NoError(t, err)
	assert.Equal(t, []string{b.Image}, names)
}

func TestGORMUserRepository(t *testing.T) {
	ctx := context.Background()
	repo := repositories.NewGORMUserRepository(openTestDB(t))

	user := &models.User{Username: "admin@example.com", PasswordHash: "hash"}
	require.NoError(t, repo.Create(ctx, user))
	assert.NotEmpty(t, user.ID)

	got, err := repo.GetByUsername(ctx, "admin@example.com")
	require.NoError(t, err)
	assert.Equal(t, user.ID, got.ID)
	assert.Equal(t, "hash", got.PasswordHash)

	_, err = repo.GetByUsername(ctx, "nobody@example.com")
	assert.ErrorIs(t, err, repositories.ErrNotFound)

	// Username is unique.
	assert.Error(t, repo.Create(ctx, &models.User{Username: "admin@example.com", PasswordHash: "other"}))
}
