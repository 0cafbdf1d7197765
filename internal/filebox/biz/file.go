package biz

import (
	"context"
	"errors"
	"io"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/localboxhq/localbox-server/internal/pkg/logger"
	"github.com/samber/lo"
	"go.uber.org/zap"
)

// File is the metadata record for one uploaded blob. StorageKey is the
// opaque handle into blob storage; it is set once at creation and never
// mutated afterwards.
type File struct {
	ID          string
	Seq         int64 // monotonically increasing creation identifier
	StorageKey  string
	Filename    string
	ContentType string
	Size        int64
	UploaderID  string
	CreatedAt   time.Time
	UpdatedAt   time.Time
}

// FileTag is one file/tag association row. Rows have no identity of their
// own beyond the (FileID, TagID) pair; ID only orders them for pagination.
type FileTag struct {
	ID     int64
	FileID string
	TagID  string
}

// FileWithTags bundles a file with its fully resolved tag set, the shape
// every listing operation returns.
type FileWithTags struct {
	File *File
	Tags []*Tag
}

// FileRepo is the persistence contract for files and their associations.
type FileRepo interface {
	// Create inserts the file record and one association row per tag id in
	// a single transaction.
	Create(ctx context.Context, file *File, tagIDs []string) error
	GetByID(ctx context.Context, id string) (*File, error)
	GetByIDs(ctx context.Context, ids []string) ([]*File, error)
	// ListAll returns every file, newest first (descending Seq).
	ListAll(ctx context.Context) ([]*File, error)
	Delete(ctx context.Context, id string) error

	ListTagIDs(ctx context.Context, fileID string) ([]string, error)
	ListFileIDsByTag(ctx context.Context, tagID string) ([]string, error)
	AssociationsByFileIDs(ctx context.Context, fileIDs []string) (map[string][]string, error)
	AddAssociations(ctx context.Context, fileID string, tagIDs []string) error
	RemoveAssociations(ctx context.Context, fileID string, tagIDs []string) error
	DeleteAssociationsByFile(ctx context.Context, fileID string) error

	// PageFiles returns up to limit files with Seq strictly below afterSeq
	// (0 means start from the newest), newest first, plus whether the scan
	// reached the end.
	PageFiles(ctx context.Context, afterSeq int64, limit int) ([]*File, bool, error)
	// PageAssociationsByTag walks a tag's association rows in insertion
	// order, returning rows with ID strictly above afterID.
	PageAssociationsByTag(ctx context.Context, tagID string, afterID int64, limit int) ([]*FileTag, bool, error)
}

// StorageService is the blob storage collaborator (MinIO in production).
type StorageService interface {
	PresignedUpload(ctx context.Context, key string, expiry time.Duration) (string, error)
	PresignedDownload(ctx context.Context, key, filename string, expiry time.Duration) (string, error)
	Put(ctx context.Context, key string, reader io.Reader, size int64, contentType string) error
	Stat(ctx context.Context, key string) (int64, error)
	Remove(ctx context.Context, key string) error
	// SetObjectTags mirrors tag names onto the stored object, best effort.
	SetObjectTags(ctx context.Context, key string, tags map[string]string) error
}

// URLCache memoizes presigned download URLs for a fraction of their expiry.
type URLCache interface {
	Get(ctx context.Context, key string) (string, bool)
	Set(ctx context.Context, key, value string, ttl time.Duration)
	Del(ctx context.Context, key string)
}

// FileConfig carries the tunables of the file use case.
type FileConfig struct {
	UploadURLExpiry   time.Duration
	DownloadURLExpiry time.Duration
}

// DefaultFileConfig returns the default expiry settings.
func DefaultFileConfig() *FileConfig {
	return &FileConfig{
		UploadURLExpiry:   15 * time.Minute,
		DownloadURLExpiry: 1 * time.Hour,
	}
}

// FileUseCase implements the file store operations, the tag mutation guard
// and the query engine.
type FileUseCase struct {
	repo    FileRepo
	tagRepo TagRepo
	tags    *TagUseCase
	storage StorageService
	cache   URLCache
	config  *FileConfig
	logger  *logger.Logger
}

// NewFileUseCase creates a FileUseCase.
func NewFileUseCase(
	repo FileRepo,
	tagRepo TagRepo,
	tags *TagUseCase,
	storage StorageService,
	cache URLCache,
	config *FileConfig,
	log *logger.Logger,
) *FileUseCase {
	if config == nil {
		config = DefaultFileConfig()
	}
	return &FileUseCase{
		repo:    repo,
		tagRepo: tagRepo,
		tags:    tags,
		storage: storage,
		cache:   cache,
		config:  config,
		logger:  log,
	}
}

// UploadTarget is a reserved upload destination: a fresh storage key plus a
// presigned PUT URL for it.
type UploadTarget struct {
	StorageKey string
	URL        string
	ExpiresAt  time.Time
}

// GenerateUploadURL reserves a new storage key and issues a presigned upload
// URL for it. The client PUTs the blob, then registers it through
// SaveUploadedFile.
func (uc *FileUseCase) GenerateUploadURL(ctx context.Context) (*UploadTarget, error) {
	key := "files/" + uuid.NewString()

	url, err := uc.storage.PresignedUpload(ctx, key, uc.config.UploadURLExpiry)
	if err != nil {
		return nil, err
	}

	return &UploadTarget{
		StorageKey: key,
		URL:        url,
		ExpiresAt:  time.Now().Add(uc.config.UploadURLExpiry),
	}, nil
}

// SaveUploadedFileParams is the input of SaveUploadedFile. UploaderEmail
// feeds the owner system tag; it may be empty for anonymous uploads.
type SaveUploadedFileParams struct {
	StorageKey    string
	Filename      string
	ContentType   string
	Size          int64
	TagIDs        []string
	UploaderID    string
	UploaderEmail string
}

// SaveUploadedFile registers a completed upload: it derives the system tags,
// unions them with the caller-chosen tag ids (set semantics over tag
// identity) and inserts the file record plus one association row per unique
// tag id, all in one transaction.
func (uc *FileUseCase) SaveUploadedFile(ctx context.Context, params *SaveUploadedFileParams) (string, error) {
	if strings.TrimSpace(params.Filename) == "" {
		return "", ErrInvalidFilename
	}
	if params.Size < 0 {
		return "", ErrInvalidFileSize
	}
	if params.StorageKey == "" {
		return "", ErrInvalidStorageKey
	}

	// the key must point at a populated blob; reject dangling registrations
	if _, err := uc.storage.Stat(ctx, params.StorageKey); err != nil {
		return "", ErrBlobNotFound
	}

	systemNames := DeriveSystemTags(params.Filename, params.Size, params.UploaderEmail)
	tagIDs := make([]string, 0, len(params.TagIDs)+len(systemNames))
	tagIDs = append(tagIDs, params.TagIDs...)

	objectTags := make(map[string]string, len(systemNames))
	for _, name := range systemNames {
		tag, err := uc.tags.GetOrCreateSystemTag(ctx, name)
		if err != nil {
			return "", err
		}
		tagIDs = append(tagIDs, tag.ID)
		objectTags[tag.Category] = tag.Name
	}

	uniqueTagIDs := lo.Uniq(tagIDs)

	file := &File{
		ID:          uuid.NewString(),
		StorageKey:  params.StorageKey,
		Filename:    params.Filename,
		ContentType: params.ContentType,
		Size:        params.Size,
		UploaderID:  params.UploaderID,
	}

	if err := uc.repo.Create(ctx, file, uniqueTagIDs); err != nil {
		return "", err
	}

	// mirror the derived tags onto the object itself; purely cosmetic for
	// anyone browsing the bucket, failures only get logged
	if err := uc.storage.SetObjectTags(ctx, params.StorageKey, objectTags); err != nil {
		uc.logger.Warn("failed to mirror system tags onto object",
			zap.String("file_id", file.ID),
			zap.String("storage_key", params.StorageKey),
			zap.Error(err),
		)
	}

	uc.logger.Info("file registered",
		zap.String("file_id", file.ID),
		zap.String("filename", params.Filename),
		zap.Int64("size", params.Size),
		zap.Int("tags", len(lo.Uniq(tagIDs))),
	)

	return file.ID, nil
}

// Upload stores a blob server-side and registers it in one call. This is the
// non-presigned path used by the direct and batch upload endpoints.
func (uc *FileUseCase) Upload(ctx context.Context, filename, contentType string, size int64, r io.Reader, tagIDs []string, uploaderID, uploaderEmail string) (string, error) {
	if strings.TrimSpace(filename) == "" {
		return "", ErrInvalidFilename
	}

	key := "files/" + uuid.NewString()
	if err := uc.storage.Put(ctx, key, r, size, contentType); err != nil {
		return "", err
	}

	return uc.SaveUploadedFile(ctx, &SaveUploadedFileParams{
		StorageKey:    key,
		Filename:      filename,
		ContentType:   contentType,
		Size:          size,
		TagIDs:        tagIDs,
		UploaderID:    uploaderID,
		UploaderEmail: uploaderEmail,
	})
}

// Get returns one file with its resolved tags.
func (uc *FileUseCase) Get(ctx context.Context, fileID string) (*FileWithTags, error) {
	file, err := uc.repo.GetByID(ctx, fileID)
	if err != nil {
		return nil, err
	}

	resolved, err := uc.resolveTags(ctx, []*File{file})
	if err != nil {
		return nil, err
	}
	return resolved[0], nil
}

// Remove deletes a file, its associations and its blob. A missing file is a
// silent no-op, which makes the operation idempotent. Order matters:
// associations go first so no association ever points at a freed blob; the
// blob goes before the record so a failed blob delete can be retried. A
// blob-storage failure is logged and does not keep the record alive.
func (uc *FileUseCase) Remove(ctx context.Context, fileID string) error {
	file, err := uc.repo.GetByID(ctx, fileID)
	if err != nil {
		if errors.Is(err, ErrFileNotFound) {
			return nil
		}
		return err
	}

	if err := uc.repo.DeleteAssociationsByFile(ctx, fileID); err != nil {
		return err
	}

	if err := uc.storage.Remove(ctx, file.StorageKey); err != nil {
		uc.logger.Warn("failed to delete storage blob, record removed anyway",
			zap.String("file_id", fileID),
			zap.String("storage_key", file.StorageKey),
			zap.Error(err),
		)
	}

	uc.cache.Del(ctx, downloadURLCacheKey(fileID))

	if err := uc.repo.Delete(ctx, fileID); err != nil {
		return err
	}

	uc.logger.Info("file removed", zap.String("file_id", fileID))
	return nil
}

// SetTags replaces a file's user-chosen tags. Attached system tags are force
// kept: the effective set is desired ∪ currentSystemTags, and the removal
// diff filters system tags a second time so they can never be dropped
// through this path. A missing file is a silent no-op.
func (uc *FileUseCase) SetTags(ctx context.Context, fileID string, desiredTagIDs []string) error {
	if _, err := uc.repo.GetByID(ctx, fileID); err != nil {
		if errors.Is(err, ErrFileNotFound) {
			return nil
		}
		return err
	}

	current, err := uc.repo.ListTagIDs(ctx, fileID)
	if err != nil {
		return err
	}

	currentTags, err := uc.tagRepo.GetByIDs(ctx, current)
	if err != nil {
		return err
	}

	systemIDs := lo.FilterMap(currentTags, func(t *Tag, _ int) (string, bool) {
		return t.ID, t.IsSystem
	})
	systemSet := lo.SliceToMap(systemIDs, func(id string) (string, struct{}) {
		return id, struct{}{}
	})

	next := lo.Uniq(append(append([]string{}, desiredTagIDs...), systemIDs...))

	toRemove := lo.Filter(lo.Without(current, next...), func(id string, _ int) bool {
		_, isSystem := systemSet[id]
		return !isSystem
	})
	toAdd := lo.Without(next, current...)

	if len(toRemove) > 0 {
		if err := uc.repo.RemoveAssociations(ctx, fileID, toRemove); err != nil {
			return err
		}
	}
	if len(toAdd) > 0 {
		if err := uc.repo.AddAssociations(ctx, fileID, toAdd); err != nil {
			return err
		}
	}

	return nil
}

// GetDownloadURL issues a presigned download URL for a file, or "" when the
// file does not exist (callers cannot distinguish missing from removed).
// URLs are cached for a quarter of their lifetime.
func (uc *FileUseCase) GetDownloadURL(ctx context.Context, fileID string) (string, error) {
	cacheKey := downloadURLCacheKey(fileID)
	if url, ok := uc.cache.Get(ctx, cacheKey); ok {
		return url, nil
	}

	file, err := uc.repo.GetByID(ctx, fileID)
	if err != nil {
		if errors.Is(err, ErrFileNotFound) {
			return "", nil
		}
		return "", err
	}

	url, err := uc.storage.PresignedDownload(ctx, file.StorageKey, file.Filename, uc.config.DownloadURLExpiry)
	if err != nil {
		return "", err
	}

	uc.cache.Set(ctx, cacheKey, url, uc.config.DownloadURLExpiry/4)
	return url, nil
}

func downloadURLCacheKey(fileID string) string {
	return "filebox:download-url:" + fileID
}

// resolveTags loads the full tag list for each file in one association scan
// and one tag batch fetch.
func (uc *FileUseCase) resolveTags(ctx context.Context, files []*File) ([]*FileWithTags, error) {
	fileIDs := lo.Map(files, func(f *File, _ int) string { return f.ID })

	assoc, err := uc.repo.AssociationsByFileIDs(ctx, fileIDs)
	if err != nil {
		return nil, err
	}

	allTagIDs := lo.Uniq(lo.Flatten(lo.Values(assoc)))
	tags, err := uc.tagRepo.GetByIDs(ctx, allTagIDs)
	if err != nil {
		return nil, err
	}
	tagByID := lo.SliceToMap(tags, func(t *Tag) (string, *Tag) { return t.ID, t })

	out := make([]*FileWithTags, len(files))
	for i, f := range files {
		fileTags := make([]*Tag, 0, len(assoc[f.ID]))
		for _, tagID := range assoc[f.ID] {
			if t, ok := tagByID[tagID]; ok {
				fileTags = append(fileTags, t)
			}
		}
		out[i] = &FileWithTags{File: f, Tags: fileTags}
	}

	return out, nil
}
