package data

import (
	"context"
	"fmt"
	"time"

	"github.com/localboxhq/localbox-server/internal/filebox/biz"
	"github.com/localboxhq/localbox-server/internal/pkg/database"
	"gorm.io/gorm"
)

// FilePO is the database model behind biz.File. Seq is a bigserial that
// stands in as the creation identifier: listings order by it descending and
// the unfiltered pagination cursor is keyset on it.
type FilePO struct {
	ID          string    `gorm:"type:uuid;primarykey"`
	Seq         int64     `gorm:"column:seq;autoIncrement;uniqueIndex:idx_files_seq"`
	StorageKey  string    `gorm:"column:storage_key;size:500;not null"`
	Filename    string    `gorm:"column:filename;size:255;not null"`
	ContentType string    `gorm:"column:content_type;size:100"`
	Size        int64     `gorm:"column:size;not null"`
	UploaderID  string    `gorm:"column:uploader_id;size:64;index:idx_files_uploader"`
	CreatedAt   time.Time `gorm:"column:created_at;not null;default:CURRENT_TIMESTAMP"`
	UpdatedAt   time.Time `gorm:"column:updated_at;not null;default:CURRENT_TIMESTAMP"`
}

func (FilePO) TableName() string {
	return "files"
}

// FileTagPO is one file/tag association row. The storage layer does not
// enforce pair uniqueness; the mutation logic in biz keeps the pair a set.
// ID orders rows for tag-scoped pagination.
type FileTagPO struct {
	ID     int64  `gorm:"primarykey;autoIncrement"`
	FileID string `gorm:"column:file_id;type:uuid;not null;index:idx_file_tags_file"`
	TagID  string `gorm:"column:tag_id;type:uuid;not null;index:idx_file_tags_tag"`
}

func (FileTagPO) TableName() string {
	return "file_tags"
}

// FileRepo implements biz.FileRepo on postgres.
type FileRepo struct {
	db *database.DB
}

// NewFileRepo creates a FileRepo.
func NewFileRepo(db *database.DB) *FileRepo {
	return &FileRepo{db: db}
}

// Create inserts the file record plus its association rows in a single
// transaction, so a failed association insert never leaves a half-tagged
// file behind.
func (r *FileRepo) Create(ctx context.Context, file *biz.File, tagIDs []string) error {
	po := toFilePO(file)

	err := r.db.Transaction(ctx, func(ctx context.Context, tx *gorm.DB) error {
		if err := tx.Create(po).Error; err != nil {
			return fmt.Errorf("failed to create file: %w", err)
		}

		if len(tagIDs) == 0 {
			return nil
		}

		rows := make([]FileTagPO, len(tagIDs))
		for i, tagID := range tagIDs {
			rows[i] = FileTagPO{FileID: po.ID, TagID: tagID}
		}
		if err := tx.Create(&rows).Error; err != nil {
			return fmt.Errorf("failed to create file associations: %w", err)
		}
		return nil
	})
	if err != nil {
		return err
	}

	file.Seq = po.Seq
	file.CreatedAt = po.CreatedAt
	return nil
}

func (r *FileRepo) GetByID(ctx context.Context, id string) (*biz.File, error) {
	var po FilePO
	err := r.db.WithContext(ctx).GetDB().Where("id = ?", id).First(&po).Error
	if err != nil {
		if database.IsRecordNotFoundError(err) {
			return nil, biz.ErrFileNotFound
		}
		return nil, fmt.Errorf("failed to get file: %w", err)
	}
	return toFileDomain(&po), nil
}

func (r *FileRepo) GetByIDs(ctx context.Context, ids []string) ([]*biz.File, error) {
	if len(ids) == 0 {
		return []*biz.File{}, nil
	}

	var pos []FilePO
	err := r.db.WithContext(ctx).GetDB().Where("id IN ?", ids).Find(&pos).Error
	if err != nil {
		return nil, fmt.Errorf("failed to get files: %w", err)
	}

	files := make([]*biz.File, len(pos))
	for i := range pos {
		files[i] = toFileDomain(&pos[i])
	}
	return files, nil
}

func (r *FileRepo) ListAll(ctx context.Context) ([]*biz.File, error) {
	var pos []FilePO
	err := r.db.WithContext(ctx).GetDB().Order("seq DESC").Find(&pos).Error
	if err != nil {
		return nil, fmt.Errorf("failed to list files: %w", err)
	}

	files := make([]*biz.File, len(pos))
	for i := range pos {
		files[i] = toFileDomain(&pos[i])
	}
	return files, nil
}

func (r *FileRepo) Delete(ctx context.Context, id string) error {
	err := r.db.WithContext(ctx).GetDB().Where("id = ?", id).Delete(&FilePO{}).Error
	if err != nil {
		return fmt.Errorf("failed to delete file: %w", err)
	}
	return nil
}

func (r *FileRepo) ListTagIDs(ctx context.Context, fileID string) ([]string, error) {
	var tagIDs []string
	err := r.db.WithContext(ctx).GetDB().Model(&FileTagPO{}).
		Where("file_id = ?", fileID).
		Order("id ASC").
		Pluck("tag_id", &tagIDs).Error
	if err != nil {
		return nil, fmt.Errorf("failed to list file tag ids: %w", err)
	}
	return tagIDs, nil
}

func (r *FileRepo) ListFileIDsByTag(ctx context.Context, tagID string) ([]string, error) {
	var fileIDs []string
	err := r.db.WithContext(ctx).GetDB().Model(&FileTagPO{}).
		Where("tag_id = ?", tagID).
		Order("id ASC").
		Pluck("file_id", &fileIDs).Error
	if err != nil {
		return nil, fmt.Errorf("failed to list files by tag: %w", err)
	}
	return fileIDs, nil
}

func (r *FileRepo) AssociationsByFileIDs(ctx context.Context, fileIDs []string) (map[string][]string, error) {
	out := make(map[string][]string, len(fileIDs))
	if len(fileIDs) == 0 {
		return out, nil
	}

	var rows []FileTagPO
	err := r.db.WithContext(ctx).GetDB().
		Where("file_id IN ?", fileIDs).
		Order("id ASC").
		Find(&rows).Error
	if err != nil {
		return nil, fmt.Errorf("failed to load associations: %w", err)
	}

	for _, row := range rows {
		out[row.FileID] = append(out[row.FileID], row.TagID)
	}
	return out, nil
}

func (r *FileRepo) AddAssociations(ctx context.Context, fileID string, tagIDs []string) error {
	if len(tagIDs) == 0 {
		return nil
	}

	rows := make([]FileTagPO, len(tagIDs))
	for i, tagID := range tagIDs {
		rows[i] = FileTagPO{FileID: fileID, TagID: tagID}
	}

	if err := r.db.WithContext(ctx).GetDB().Create(&rows).Error; err != nil {
		return fmt.Errorf("failed to add associations: %w", err)
	}
	return nil
}

func (r *FileRepo) RemoveAssociations(ctx context.Context, fileID string, tagIDs []string) error {
	if len(tagIDs) == 0 {
		return nil
	}

	err := r.db.WithContext(ctx).GetDB().
		Where("file_id = ? AND tag_id IN ?", fileID, tagIDs).
		Delete(&FileTagPO{}).Error
	if err != nil {
		return fmt.Errorf("failed to remove associations: %w", err)
	}
	return nil
}

func (r *FileRepo) DeleteAssociationsByFile(ctx context.Context, fileID string) error {
	err := r.db.WithContext(ctx).GetDB().
		Where("file_id = ?", fileID).
		Delete(&FileTagPO{}).Error
	if err != nil {
		return fmt.Errorf("failed to delete file associations: %w", err)
	}
	return nil
}

// PageFiles pages over files newest first. afterSeq 0 starts from the top;
// otherwise only rows strictly below it are returned. Fetches one extra row
// to decide whether the scan is done.
func (r *FileRepo) PageFiles(ctx context.Context, afterSeq int64, limit int) ([]*biz.File, bool, error) {
	query := r.db.WithContext(ctx).GetDB().Model(&FilePO{})
	if afterSeq > 0 {
		query = query.Where("seq < ?", afterSeq)
	}

	var pos []FilePO
	err := query.Order("seq DESC").Limit(limit + 1).Find(&pos).Error
	if err != nil {
		return nil, false, fmt.Errorf("failed to page files: %w", err)
	}

	isDone := len(pos) <= limit
	if !isDone {
		pos = pos[:limit]
	}

	files := make([]*biz.File, len(pos))
	for i := range pos {
		files[i] = toFileDomain(&pos[i])
	}
	return files, isDone, nil
}

// PageAssociationsByTag pages over one tag's association rows in insertion
// order, the ordering contract of tag-filtered listings.
func (r *FileRepo) PageAssociationsByTag(ctx context.Context, tagID string, afterID int64, limit int) ([]*biz.FileTag, bool, error) {
	var rows []FileTagPO
	err := r.db.WithContext(ctx).GetDB().
		Where("tag_id = ? AND id > ?", tagID, afterID).
		Order("id ASC").
		Limit(limit + 1).
		Find(&rows).Error
	if err != nil {
		return nil, false, fmt.Errorf("failed to page associations: %w", err)
	}

	isDone := len(rows) <= limit
	if !isDone {
		rows = rows[:limit]
	}

	out := make([]*biz.FileTag, len(rows))
	for i, row := range rows {
		out[i] = &biz.FileTag{ID: row.ID, FileID: row.FileID, TagID: row.TagID}
	}
	return out, isDone, nil
}

func toFilePO(f *biz.File) *FilePO {
	return &FilePO{
		ID:          f.ID,
		Seq:         f.Seq,
		StorageKey:  f.StorageKey,
		Filename:    f.Filename,
		ContentType: f.ContentType,
		Size:        f.Size,
		UploaderID:  f.UploaderID,
		CreatedAt:   f.CreatedAt,
		UpdatedAt:   f.UpdatedAt,
	}
}

func toFileDomain(po *FilePO) *biz.File {
	return &biz.File{
		ID:          po.ID,
		Seq:         po.Seq,
		StorageKey:  po.StorageKey,
		Filename:    po.Filename,
		ContentType: po.ContentType,
		Size:        po.Size,
		UploaderID:  po.UploaderID,
		CreatedAt:   po.CreatedAt,
		UpdatedAt:   po.UpdatedAt,
	}
}
