package biz

import (
	"context"
	"sort"
	"testing"
	"time"

	"github.com/localboxhq/localbox-server/internal/pkg/logger"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// fakeTagRepo is an in-memory TagRepo with the same uniqueness behavior as
// the postgres implementation.
type fakeTagRepo struct {
	tags map[string]*Tag // by id
}

func newFakeTagRepo() *fakeTagRepo {
	return &fakeTagRepo{tags: make(map[string]*Tag)}
}

func (r *fakeTagRepo) Create(ctx context.Context, tag *Tag) error {
	for _, t := range r.tags {
		if t.Name == tag.Name {
			return ErrTagNameTaken
		}
	}
	cp := *tag
	r.tags[tag.ID] = &cp
	return nil
}

func (r *fakeTagRepo) GetByID(ctx context.Context, id string) (*Tag, error) {
	t, ok := r.tags[id]
	if !ok {
		return nil, ErrTagNotFound
	}
	cp := *t
	return &cp, nil
}

func (r *fakeTagRepo) GetByIDs(ctx context.Context, ids []string) ([]*Tag, error) {
	out := make([]*Tag, 0, len(ids))
	for _, id := range ids {
		if t, ok := r.tags[id]; ok {
			cp := *t
			out = append(out, &cp)
		}
	}
	return out, nil
}

func (r *fakeTagRepo) GetByName(ctx context.Context, name string) (*Tag, error) {
	for _, t := range r.tags {
		if t.Name == name {
			cp := *t
			return &cp, nil
		}
	}
	return nil, ErrTagNotFound
}

func (r *fakeTagRepo) List(ctx context.Context) ([]*Tag, error) {
	out := make([]*Tag, 0, len(r.tags))
	for _, t := range r.tags {
		cp := *t
		out = append(out, &cp)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out, nil
}

func (r *fakeTagRepo) Update(ctx context.Context, tag *Tag) error {
	for id, t := range r.tags {
		if id != tag.ID && t.Name == tag.Name {
			return ErrTagNameTaken
		}
	}
	cp := *tag
	r.tags[tag.ID] = &cp
	return nil
}

func (r *fakeTagRepo) Delete(ctx context.Context, id string) error {
	if _, ok := r.tags[id]; !ok {
		return ErrTagNotFound
	}
	delete(r.tags, id)
	return nil
}

// passLocker runs the critical section without any real locking.
type passLocker struct{}

func (passLocker) WithLock(ctx context.Context, key string, expiration time.Duration, fn func() error) error {
	return fn()
}

func newTestTagUseCase(t *testing.T) (*TagUseCase, *fakeTagRepo) {
	t.Helper()
	log, err := logger.New(&logger.Config{Level: "error", Format: "console", Output: "console"})
	require.NoError(t, err)
	repo := newFakeTagRepo()
	return NewTagUseCase(repo, passLocker{}, log), repo
}

func TestTagUseCaseCreate(t *testing.T) {
	uc, _ := newTestTagUseCase(t)
	ctx := context.Background()

	tag, err := uc.Create(ctx, "vacation", "")
	require.NoError(t, err)
	assert.Equal(t, "vacation", tag.Name)
	assert.False(t, tag.IsSystem)
	assert.Equal(t, CategoryCustom, tag.Category)
	assert.NotEmpty(t, tag.Color)

	// duplicate names are rejected
	_, err = uc.Create(ctx, "vacation", "")
	assert.ErrorIs(t, err, ErrTagExists)

	// blank names are invalid
	_, err = uc.Create(ctx, "   ", "")
	assert.ErrorIs(t, err, ErrInvalidTagName)
}

func TestTagUseCaseRename(t *testing.T) {
	uc, _ := newTestTagUseCase(t)
	ctx := context.Background()

	a, err := uc.Create(ctx, "alpha", "")
	require.NoError(t, err)
	_, err = uc.Create(ctx, "beta", "")
	require.NoError(t, err)

	// plain rename round-trip
	require.NoError(t, uc.Rename(ctx, a.ID, "gamma", "#123456"))
	got, err := uc.Get(ctx, a.ID)
	require.NoError(t, err)
	assert.Equal(t, "gamma", got.Name)
	assert.Equal(t, "#123456", got.Color)

	// renaming onto another tag's name conflicts
	err = uc.Rename(ctx, a.ID, "beta", "")
	assert.ErrorIs(t, err, ErrTagNameTaken)

	// renaming a tag to its own name is fine
	require.NoError(t, uc.Rename(ctx, a.ID, "gamma", ""))

	// missing tags are a silent no-op
	require.NoError(t, uc.Rename(ctx, "no-such-id", "whatever", ""))
}

func TestTagUseCaseRemove(t *testing.T) {
	uc, _ := newTestTagUseCase(t)
	ctx := context.Background()

	tag, err := uc.Create(ctx, "doomed", "")
	require.NoError(t, err)

	require.NoError(t, uc.Remove(ctx, tag.ID))
	_, err = uc.Get(ctx, tag.ID)
	assert.ErrorIs(t, err, ErrTagNotFound)

	// removing again is a silent no-op
	require.NoError(t, uc.Remove(ctx, tag.ID))
}

func TestGetOrCreateSystemTag(t *testing.T) {
	uc, _ := newTestTagUseCase(t)
	ctx := context.Background()

	tag, err := uc.GetOrCreateSystemTag(ctx, "pdf")
	require.NoError(t, err)
	assert.True(t, tag.IsSystem)
	assert.Equal(t, CategoryFileType, tag.Category)

	// idempotent: same name yields the same record
	again, err := uc.GetOrCreateSystemTag(ctx, "pdf")
	require.NoError(t, err)
	assert.Equal(t, tag.ID, again.ID)
}

func TestGetOrCreateSystemTagPromotesUserTag(t *testing.T) {
	uc, _ := newTestTagUseCase(t)
	ctx := context.Background()

	// a user created "pdf" first as an ordinary tag
	userTag, err := uc.Create(ctx, "pdf", "")
	require.NoError(t, err)
	assert.False(t, userTag.IsSystem)

	promoted, err := uc.GetOrCreateSystemTag(ctx, "pdf")
	require.NoError(t, err)
	assert.Equal(t, userTag.ID, promoted.ID)
	assert.True(t, promoted.IsSystem)
	assert.Equal(t, CategoryFileType, promoted.Category)
}
