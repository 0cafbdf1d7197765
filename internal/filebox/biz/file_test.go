package biz

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"sort"
	"testing"
	"time"

	"github.com/localboxhq/localbox-server/internal/pkg/logger"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// fakeFileRepo is an in-memory FileRepo. Seq and association row ids grow
// monotonically like their bigserial counterparts.
type fakeFileRepo struct {
	files       map[string]*File
	assoc       []*FileTag // ordered by ID
	nextSeq     int64
	nextAssocID int64
}

func newFakeFileRepo() *fakeFileRepo {
	return &fakeFileRepo{files: make(map[string]*File)}
}

func (r *fakeFileRepo) Create(ctx context.Context, file *File, tagIDs []string) error {
	r.nextSeq++
	file.Seq = r.nextSeq
	file.CreatedAt = time.Now()
	cp := *file
	r.files[file.ID] = &cp
	for _, tagID := range tagIDs {
		r.nextAssocID++
		r.assoc = append(r.assoc, &FileTag{ID: r.nextAssocID, FileID: file.ID, TagID: tagID})
	}
	return nil
}

func (r *fakeFileRepo) GetByID(ctx context.Context, id string) (*File, error) {
	f, ok := r.files[id]
	if !ok {
		return nil, ErrFileNotFound
	}
	cp := *f
	return &cp, nil
}

func (r *fakeFileRepo) GetByIDs(ctx context.Context, ids []string) ([]*File, error) {
	out := make([]*File, 0, len(ids))
	for _, id := range ids {
		if f, ok := r.files[id]; ok {
			cp := *f
			out = append(out, &cp)
		}
	}
	return out, nil
}

func (r *fakeFileRepo) ListAll(ctx context.Context) ([]*File, error) {
	out := make([]*File, 0, len(r.files))
	for _, f := range r.files {
		cp := *f
		out = append(out, &cp)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Seq > out[j].Seq })
	return out, nil
}

func (r *fakeFileRepo) Delete(ctx context.Context, id string) error {
	delete(r.files, id)
	return nil
}

func (r *fakeFileRepo) ListTagIDs(ctx context.Context, fileID string) ([]string, error) {
	var out []string
	for _, a := range r.assoc {
		if a.FileID == fileID {
			out = append(out, a.TagID)
		}
	}
	return out, nil
}

func (r *fakeFileRepo) ListFileIDsByTag(ctx context.Context, tagID string) ([]string, error) {
	var out []string
	for _, a := range r.assoc {
		if a.TagID == tagID {
			out = append(out, a.FileID)
		}
	}
	return out, nil
}

func (r *fakeFileRepo) AssociationsByFileIDs(ctx context.Context, fileIDs []string) (map[string][]string, error) {
	want := make(map[string]struct{}, len(fileIDs))
	for _, id := range fileIDs {
		want[id] = struct{}{}
	}
	out := make(map[string][]string)
	for _, a := range r.assoc {
		if _, ok := want[a.FileID]; ok {
			out[a.FileID] = append(out[a.FileID], a.TagID)
		}
	}
	return out, nil
}

func (r *fakeFileRepo) AddAssociations(ctx context.Context, fileID string, tagIDs []string) error {
	for _, tagID := range tagIDs {
		r.nextAssocID++
		r.assoc = append(r.assoc, &FileTag{ID: r.nextAssocID, FileID: fileID, TagID: tagID})
	}
	return nil
}

func (r *fakeFileRepo) RemoveAssociations(ctx context.Context, fileID string, tagIDs []string) error {
	doomed := make(map[string]struct{}, len(tagIDs))
	for _, id := range tagIDs {
		doomed[id] = struct{}{}
	}
	kept := r.assoc[:0]
	for _, a := range r.assoc {
		if _, ok := doomed[a.TagID]; ok && a.FileID == fileID {
			continue
		}
		kept = append(kept, a)
	}
	r.assoc = kept
	return nil
}

func (r *fakeFileRepo) DeleteAssociationsByFile(ctx context.Context, fileID string) error {
	kept := r.assoc[:0]
	for _, a := range r.assoc {
		if a.FileID != fileID {
			kept = append(kept, a)
		}
	}
	r.assoc = kept
	return nil
}

func (r *fakeFileRepo) PageFiles(ctx context.Context, afterSeq int64, limit int) ([]*File, bool, error) {
	all, _ := r.ListAll(ctx)
	var filtered []*File
	for _, f := range all {
		if afterSeq == 0 || f.Seq < afterSeq {
			filtered = append(filtered, f)
		}
	}
	isDone := len(filtered) <= limit
	if !isDone {
		filtered = filtered[:limit]
	}
	return filtered, isDone, nil
}

func (r *fakeFileRepo) PageAssociationsByTag(ctx context.Context, tagID string, afterID int64, limit int) ([]*FileTag, bool, error) {
	var rows []*FileTag
	for _, a := range r.assoc {
		if a.TagID == tagID && a.ID > afterID {
			cp := *a
			rows = append(rows, &cp)
		}
	}
	isDone := len(rows) <= limit
	if !isDone {
		rows = rows[:limit]
	}
	return rows, isDone, nil
}

// fakeStorage is an in-memory StorageService.
type fakeStorage struct {
	objects map[string]int64 // key -> size
	tags    map[string]map[string]string
	removed []string
}

func newFakeStorage() *fakeStorage {
	return &fakeStorage{
		objects: make(map[string]int64),
		tags:    make(map[string]map[string]string),
	}
}

func (s *fakeStorage) PresignedUpload(ctx context.Context, key string, expiry time.Duration) (string, error) {
	return "http://storage.test/upload/" + key, nil
}

func (s *fakeStorage) PresignedDownload(ctx context.Context, key, filename string, expiry time.Duration) (string, error) {
	return "http://storage.test/download/" + key, nil
}

func (s *fakeStorage) Put(ctx context.Context, key string, reader io.Reader, size int64, contentType string) error {
	data, err := io.ReadAll(reader)
	if err != nil {
		return err
	}
	s.objects[key] = int64(len(data))
	return nil
}

func (s *fakeStorage) Stat(ctx context.Context, key string) (int64, error) {
	size, ok := s.objects[key]
	if !ok {
		return 0, errors.New("object not found")
	}
	return size, nil
}

func (s *fakeStorage) Remove(ctx context.Context, key string) error {
	delete(s.objects, key)
	s.removed = append(s.removed, key)
	return nil
}

func (s *fakeStorage) SetObjectTags(ctx context.Context, key string, tags map[string]string) error {
	s.tags[key] = tags
	return nil
}

// fakeCache is an in-memory URLCache that ignores TTLs.
type fakeCache struct {
	entries map[string]string
}

func newFakeCache() *fakeCache {
	return &fakeCache{entries: make(map[string]string)}
}

func (c *fakeCache) Get(ctx context.Context, key string) (string, bool) {
	v, ok := c.entries[key]
	return v, ok
}

func (c *fakeCache) Set(ctx context.Context, key, value string, ttl time.Duration) {
	c.entries[key] = value
}

func (c *fakeCache) Del(ctx context.Context, key string) {
	delete(c.entries, key)
}

type fileTestEnv struct {
	uc      *FileUseCase
	tags    *TagUseCase
	repo    *fakeFileRepo
	tagRepo *fakeTagRepo
	storage *fakeStorage
	cache   *fakeCache
}

func newFileTestEnv(t *testing.T) *fileTestEnv {
	t.Helper()
	log, err := logger.New(&logger.Config{Level: "error", Format: "console", Output: "console"})
	require.NoError(t, err)

	tagRepo := newFakeTagRepo()
	tagUC := NewTagUseCase(tagRepo, passLocker{}, log)

	repo := newFakeFileRepo()
	storage := newFakeStorage()
	cache := newFakeCache()

	uc := NewFileUseCase(repo, tagRepo, tagUC, storage, cache, nil, log)
	return &fileTestEnv{uc: uc, tags: tagUC, repo: repo, tagRepo: tagRepo, storage: storage, cache: cache}
}

// upload stores and registers a file in one step, returning its id.
func (e *fileTestEnv) upload(t *testing.T, filename string, size int64, email string, tagIDs ...string) string {
	t.Helper()
	id, err := e.uc.Upload(context.Background(), filename, "application/octet-stream", size,
		bytes.NewReader(make([]byte, int(size))), tagIDs, "", email)
	require.NoError(t, err)
	return id
}

func TestSaveUploadedFile(t *testing.T) {
	env := newFileTestEnv(t)
	ctx := context.Background()

	env.storage.objects["files/abc"] = 5000

	id, err := env.uc.SaveUploadedFile(ctx, &SaveUploadedFileParams{
		StorageKey:    "files/abc",
		Filename:      "report.pdf",
		Size:          5000,
		UploaderEmail: "alice@example.com",
	})
	require.NoError(t, err)

	got, err := env.uc.Get(ctx, id)
	require.NoError(t, err)
	assert.Equal(t, "report.pdf", got.File.Filename)

	names := make([]string, len(got.Tags))
	for i, tag := range got.Tags {
		names[i] = tag.Name
		assert.True(t, tag.IsSystem)
	}
	assert.ElementsMatch(t, []string{"pdf", "alice@exam", "Tiny"}, names)
}

func TestSaveUploadedFileValidation(t *testing.T) {
	env := newFileTestEnv(t)
	ctx := context.Background()

	_, err := env.uc.SaveUploadedFile(ctx, &SaveUploadedFileParams{StorageKey: "k", Filename: " ", Size: 1})
	assert.ErrorIs(t, err, ErrInvalidFilename)

	_, err = env.uc.SaveUploadedFile(ctx, &SaveUploadedFileParams{StorageKey: "k", Filename: "a.txt", Size: -1})
	assert.ErrorIs(t, err, ErrInvalidFileSize)

	_, err = env.uc.SaveUploadedFile(ctx, &SaveUploadedFileParams{Filename: "a.txt", Size: 1})
	assert.ErrorIs(t, err, ErrInvalidStorageKey)

	// the storage key must point at an uploaded blob
	_, err = env.uc.SaveUploadedFile(ctx, &SaveUploadedFileParams{StorageKey: "files/missing", Filename: "a.txt", Size: 1})
	assert.ErrorIs(t, err, ErrBlobNotFound)
}

func TestUploadDeduplicatesTagIDs(t *testing.T) {
	env := newFileTestEnv(t)
	ctx := context.Background()

	custom, err := env.tags.Create(ctx, "projects", "")
	require.NoError(t, err)

	id := env.upload(t, "notes.txt", 100, "", custom.ID, custom.ID, custom.ID)

	tagIDs, err := env.repo.ListTagIDs(ctx, id)
	require.NoError(t, err)

	seen := map[string]int{}
	for _, tagID := range tagIDs {
		seen[tagID]++
	}
	assert.Equal(t, 1, seen[custom.ID], "duplicate requested ids collapse to one association")
}

func TestRemoveFile(t *testing.T) {
	env := newFileTestEnv(t)
	ctx := context.Background()

	id := env.upload(t, "photo.jpg", 200*1024, "bob@example.com")

	file, err := env.uc.Get(ctx, id)
	require.NoError(t, err)
	storageKey := file.File.StorageKey

	require.NoError(t, env.uc.Remove(ctx, id))

	// record, associations and blob are all gone
	_, err = env.uc.Get(ctx, id)
	assert.ErrorIs(t, err, ErrFileNotFound)
	tagIDs, _ := env.repo.ListTagIDs(ctx, id)
	assert.Empty(t, tagIDs)
	assert.Contains(t, env.storage.removed, storageKey)

	// removing again is a silent no-op
	require.NoError(t, env.uc.Remove(ctx, id))
}

func TestSetTagsPreservesSystemTags(t *testing.T) {
	env := newFileTestEnv(t)
	ctx := context.Background()

	custom, err := env.tags.Create(ctx, "work", "")
	require.NoError(t, err)
	other, err := env.tags.Create(ctx, "archive", "")
	require.NoError(t, err)

	id := env.upload(t, "contract.pdf", 3000, "carol@example.com", custom.ID)

	// replace the user tags with {other}; the derived system tags survive
	require.NoError(t, env.uc.SetTags(ctx, id, []string{other.ID}))

	got, err := env.uc.Get(ctx, id)
	require.NoError(t, err)

	var userNames, systemNames []string
	for _, tag := range got.Tags {
		if tag.IsSystem {
			systemNames = append(systemNames, tag.Name)
		} else {
			userNames = append(userNames, tag.Name)
		}
	}
	assert.Equal(t, []string{"archive"}, userNames)
	assert.ElementsMatch(t, []string{"pdf", "carol@exam", "Tiny"}, systemNames)

	// an empty desired set strips user tags but never system tags
	require.NoError(t, env.uc.SetTags(ctx, id, nil))
	got, err = env.uc.Get(ctx, id)
	require.NoError(t, err)
	for _, tag := range got.Tags {
		assert.True(t, tag.IsSystem)
	}
	assert.Len(t, got.Tags, 3)

	// a missing file is a silent no-op
	require.NoError(t, env.uc.SetTags(ctx, "no-such-file", []string{custom.ID}))
}

func TestListWithTagIntersection(t *testing.T) {
	env := newFileTestEnv(t)
	ctx := context.Background()

	tagA, err := env.tags.Create(ctx, "A", "")
	require.NoError(t, err)
	tagB, err := env.tags.Create(ctx, "B", "")
	require.NoError(t, err)

	f1 := env.upload(t, "f1.txt", 10, "", tagA.ID, tagB.ID)
	f2 := env.upload(t, "f2.txt", 10, "", tagA.ID)
	env.upload(t, "f3.txt", 10, "")

	// single tag
	got, err := env.uc.List(ctx, tagA.ID)
	require.NoError(t, err)
	ids := fileIDs(got)
	assert.Equal(t, []string{f1, f2}, ids)

	// AND of both tags keeps only f1
	got, err = env.uc.List(ctx, tagA.ID, tagB.ID)
	require.NoError(t, err)
	assert.Equal(t, []string{f1}, fileIDs(got))

	// unfiltered listing returns everything newest first
	got, err = env.uc.List(ctx)
	require.NoError(t, err)
	assert.Len(t, got, 3)
	assert.Equal(t, "f3.txt", got[0].File.Filename)
}

func TestListPageUnfiltered(t *testing.T) {
	env := newFileTestEnv(t)
	ctx := context.Background()

	var uploaded []string
	for i := 0; i < 5; i++ {
		uploaded = append(uploaded, env.upload(t, fmt.Sprintf("file%d.txt", i), 10, ""))
	}

	page, err := env.uc.ListPage(ctx, "", 2)
	require.NoError(t, err)
	assert.Len(t, page.Page, 2)
	assert.False(t, page.IsDone)
	// newest first
	assert.Equal(t, uploaded[4], page.Page[0].File.ID)
	assert.Equal(t, uploaded[3], page.Page[1].File.ID)

	page, err = env.uc.ListPage(ctx, page.ContinueCursor, 2)
	require.NoError(t, err)
	assert.Equal(t, []string{uploaded[2], uploaded[1]}, fileIDs(page.Page))
	assert.False(t, page.IsDone)

	page, err = env.uc.ListPage(ctx, page.ContinueCursor, 2)
	require.NoError(t, err)
	assert.Equal(t, []string{uploaded[0]}, fileIDs(page.Page))
	assert.True(t, page.IsDone)
}

func TestListPageByTagUnderfill(t *testing.T) {
	env := newFileTestEnv(t)
	ctx := context.Background()

	tagA, err := env.tags.Create(ctx, "A", "")
	require.NoError(t, err)
	tagB, err := env.tags.Create(ctx, "B", "")
	require.NoError(t, err)

	// four files carry A, only the last also carries B
	env.upload(t, "a1.txt", 10, "", tagA.ID)
	env.upload(t, "a2.txt", 10, "", tagA.ID)
	env.upload(t, "a3.txt", 10, "", tagA.ID)
	both := env.upload(t, "ab.txt", 10, "", tagA.ID, tagB.ID)

	// the first window of A's associations contains no file with B: the page
	// is empty but the scan is not done and the cursor advanced
	page, err := env.uc.ListPage(ctx, "", 2, tagA.ID, tagB.ID)
	require.NoError(t, err)
	assert.Empty(t, page.Page)
	assert.False(t, page.IsDone)
	assert.NotEmpty(t, page.ContinueCursor)

	page, err = env.uc.ListPage(ctx, page.ContinueCursor, 2, tagA.ID, tagB.ID)
	require.NoError(t, err)
	assert.Equal(t, []string{both}, fileIDs(page.Page))
	assert.True(t, page.IsDone)
}

func TestListPageInvalidCursor(t *testing.T) {
	env := newFileTestEnv(t)

	_, err := env.uc.ListPage(context.Background(), "not-a-number", 10)
	assert.ErrorIs(t, err, ErrInvalidCursor)

	_, err = env.uc.ListPage(context.Background(), "-3", 10)
	assert.ErrorIs(t, err, ErrInvalidCursor)
}

func TestGetDownloadURL(t *testing.T) {
	env := newFileTestEnv(t)
	ctx := context.Background()

	id := env.upload(t, "song.mp3", 4*1024*1024, "")

	url, err := env.uc.GetDownloadURL(ctx, id)
	require.NoError(t, err)
	assert.NotEmpty(t, url)

	// second call is served from the cache
	cached, err := env.uc.GetDownloadURL(ctx, id)
	require.NoError(t, err)
	assert.Equal(t, url, cached)

	// a missing file yields an empty URL, not an error
	url, err = env.uc.GetDownloadURL(ctx, "no-such-file")
	require.NoError(t, err)
	assert.Empty(t, url)
}

func fileIDs(fws []*FileWithTags) []string {
	out := make([]string, len(fws))
	for i, fw := range fws {
		out[i] = fw.File.ID
	}
	return out
}
