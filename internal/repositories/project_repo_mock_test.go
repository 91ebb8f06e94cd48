package repositories_test

import (
	"context"
	"testing"
	"time"

	"seyon/internal/repositories"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMockProjectRepository(t *testing.T) {
	ctx := context.Background()
	repo := repositories.NewMockProjectRepository()

	base := time.Now().UTC()
	first := newProject("first", base)
	second := newProject("second", base.Add(time.Second))
	require.NoError(t, repo.Create(ctx, first))
	require.NoError(t, repo.Create(ctx, second))

	projects, err := repo.GetAll(ctx)
	require.NoError(t, err)
	require.Len(t, projects, 2)
	assert.Equal(t, "second", projects[0].Title)

	second.Title = "renamed"
	second.CreatedAt = time.Time{}
	require.NoError(t, repo.Update(ctx, second))
	got, err := repo.GetByID(ctx, second.ID)
	require.NoError(t, err)
	assert.Equal(t, "renamed", got.Title)
	assert.True(t, got.CreatedAt.Equal(base.Add(time.Second)), "update keeps creation time")

	require.NoError(t, repo.Delete(ctx, first.ID))
	_, err = repo.GetByID(ctx, first.ID)
	assert.ErrorIs(t, err, repositories.ErrNotFound)
	assert.ErrorIs(t, repo.Delete(ctx, first.ID), repositories.ErrNotFound)
}
