package data

import (
	"context"
	"fmt"
	"time"

	"github.com/localboxhq/localbox-server/internal/filebox/biz"
	"github.com/localboxhq/localbox-server/internal/pkg/database"
	"gorm.io/gorm"
)

// TagPO is the database model behind biz.Tag. Name carries the unique index
// that enforces global tag name uniqueness under concurrent creators.
type TagPO struct {
	ID        string    `gorm:"type:uuid;primarykey"`
	Name      string    `gorm:"column:name;size:255;not null;uniqueIndex:idx_tags_name"`
	Color     string    `gorm:"column:color;size:32"`
	IsSystem  bool      `gorm:"column:is_system;not null;default:false;index:idx_tags_system"`
	Category  string    `gorm:"column:category;size:32;not null;default:'custom'"`
	CreatedAt time.Time `gorm:"column:created_at;not null;default:CURRENT_TIMESTAMP"`
	UpdatedAt time.Time `gorm:"column:updated_at;not null;default:CURRENT_TIMESTAMP"`
}

func (TagPO) TableName() string {
	return "tags"
}

// TagRepo implements biz.TagRepo on postgres.
type TagRepo struct {
	db *database.DB
}

// NewTagRepo creates a TagRepo.
func NewTagRepo(db *database.DB) *TagRepo {
	return &TagRepo{db: db}
}

func (r *TagRepo) Create(ctx context.Context, tag *biz.Tag) error {
	po := toTagPO(tag)
	if err := r.db.WithContext(ctx).GetDB().Create(po).Error; err != nil {
		if database.IsDuplicateKeyError(err) {
			return biz.ErrTagNameTaken
		}
		return fmt.Errorf("failed to create tag: %w", err)
	}
	return nil
}

func (r *TagRepo) GetByID(ctx context.Context, id string) (*biz.Tag, error) {
	var po TagPO
	err := r.db.WithContext(ctx).GetDB().Where("id = ?", id).First(&po).Error
	if err != nil {
		if database.IsRecordNotFoundError(err) {
			return nil, biz.ErrTagNotFound
		}
		return nil, fmt.Errorf("failed to get tag: %w", err)
	}
	return toTagDomain(&po), nil
}

func (r *TagRepo) GetByIDs(ctx context.Context, ids []string) ([]*biz.Tag, error) {
	if len(ids) == 0 {
		return []*biz.Tag{}, nil
	}

	var pos []TagPO
	err := r.db.WithContext(ctx).GetDB().Where("id IN ?", ids).Find(&pos).Error
	if err != nil {
		return nil, fmt.Errorf("failed to get tags: %w", err)
	}

	tags := make([]*biz.Tag, len(pos))
	for i := range pos {
		tags[i] = toTagDomain(&pos[i])
	}
	return tags, nil
}

func (r *TagRepo) GetByName(ctx context.Context, name string) (*biz.Tag, error) {
	var po TagPO
	err := r.db.WithContext(ctx).GetDB().Where("name = ?", name).First(&po).Error
	if err != nil {
		if database.IsRecordNotFoundError(err) {
			return nil, biz.ErrTagNotFound
		}
		return nil, fmt.Errorf("failed to get tag by name: %w", err)
	}
	return toTagDomain(&po), nil
}

func (r *TagRepo) List(ctx context.Context) ([]*biz.Tag, error) {
	var pos []TagPO
	err := r.db.WithContext(ctx).GetDB().Order("name ASC").Find(&pos).Error
	if err != nil {
		return nil, fmt.Errorf("failed to list tags: %w", err)
	}

	tags := make([]*biz.Tag, len(pos))
	for i := range pos {
		tags[i] = toTagDomain(&pos[i])
	}
	return tags, nil
}

func (r *TagRepo) Update(ctx context.Context, tag *biz.Tag) error {
	updates := map[string]interface{}{
		"name":       tag.Name,
		"color":      tag.Color,
		"is_system":  tag.IsSystem,
		"category":   tag.Category,
		"updated_at": time.Now(),
	}

	err := r.db.WithContext(ctx).GetDB().Model(&TagPO{}).
		Where("id = ?", tag.ID).
		Updates(updates).Error
	if err != nil {
		if database.IsDuplicateKeyError(err) {
			return biz.ErrTagNameTaken
		}
		return fmt.Errorf("failed to update tag: %w", err)
	}
	return nil
}

// Delete removes the tag and its associations in one transaction so no
// association row can outlive its tag.
func (r *TagRepo) Delete(ctx context.Context, id string) error {
	return r.db.Transaction(ctx, func(ctx context.Context, tx *gorm.DB) error {
		result := tx.Where("id = ?", id).Delete(&TagPO{})
		if result.Error != nil {
			return fmt.Errorf("failed to delete tag: %w", result.Error)
		}
		if result.RowsAffected == 0 {
			return biz.ErrTagNotFound
		}

		if err := tx.Where("tag_id = ?", id).Delete(&FileTagPO{}).Error; err != nil {
			return fmt.Errorf("failed to delete tag associations: %w", err)
		}
		return nil
	})
}

func toTagPO(t *biz.Tag) *TagPO {
	return &TagPO{
		ID:        t.ID,
		Name:      t.Name,
		Color:     t.Color,
		IsSystem:  t.IsSystem,
		Category:  t.Category,
		CreatedAt: t.CreatedAt,
		UpdatedAt: t.UpdatedAt,
	}
}

func toTagDomain(po *TagPO) *biz.Tag {
	return &biz.Tag{
		ID:        po.ID,
		Name:      po.Name,
		Color:     po.Color,
		IsSystem:  po.IsSystem,
		Category:  po.Category,
		CreatedAt: po.CreatedAt,
		UpdatedAt: po.UpdatedAt,
	}
}
