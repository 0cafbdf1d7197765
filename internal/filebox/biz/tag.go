package biz

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/localboxhq/localbox-server/internal/pkg/logger"
	"go.uber.org/zap"
)

// Tag is a label attached to files, either user-created or derived by the
// system tagger. Names are globally unique across the whole registry.
type Tag struct {
	ID        string
	Name      string
	Color     string
	IsSystem  bool
	Category  string
	CreatedAt time.Time
	UpdatedAt time.Time
}

// TagRepo is the persistence contract for the tag registry.
type TagRepo interface {
	Create(ctx context.Context, tag *Tag) error
	GetByID(ctx context.Context, id string) (*Tag, error)
	GetByIDs(ctx context.Context, ids []string) ([]*Tag, error)
	GetByName(ctx context.Context, name string) (*Tag, error)
	List(ctx context.Context) ([]*Tag, error)
	Update(ctx context.Context, tag *Tag) error
	// Delete removes the tag and every association referencing it in one
	// transaction. Missing tags are reported as ErrTagNotFound.
	Delete(ctx context.Context, id string) error
}

// Locker serializes critical sections across processes. Implemented by the
// redis client; tests plug in a pass-through fake.
type Locker interface {
	WithLock(ctx context.Context, key string, expiration time.Duration, fn func() error) error
}

// TagUseCase implements the tag registry operations and the system tag
// lifecycle.
type TagUseCase struct {
	repo   TagRepo
	locker Locker
	logger *logger.Logger
}

// NewTagUseCase creates a TagUseCase.
func NewTagUseCase(repo TagRepo, locker Locker, log *logger.Logger) *TagUseCase {
	return &TagUseCase{
		repo:   repo,
		locker: locker,
		logger: log,
	}
}

// List returns every tag record in the registry.
func (uc *TagUseCase) List(ctx context.Context) ([]*Tag, error) {
	return uc.repo.List(ctx)
}

// Get returns a single tag by id.
func (uc *TagUseCase) Get(ctx context.Context, id string) (*Tag, error) {
	return uc.repo.GetByID(ctx, id)
}

// Create inserts a user tag. Duplicate names are rejected with ErrTagExists;
// name uniqueness is backed by a database unique index, so a racing create
// loses cleanly instead of producing a second row.
func (uc *TagUseCase) Create(ctx context.Context, name, color string) (*Tag, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return nil, ErrInvalidTagName
	}

	if color == "" {
		color = ColorForName(name)
	}

	tag := &Tag{
		ID:       uuid.NewString(),
		Name:     name,
		Color:    color,
		IsSystem: false,
		Category: DetermineTagCategory(name, false),
	}

	if err := uc.repo.Create(ctx, tag); err != nil {
		if errors.Is(err, ErrTagNameTaken) {
			return nil, ErrTagExists
		}
		return nil, err
	}

	return tag, nil
}

// Rename updates a tag's name and color. A missing tag is a silent no-op; a
// name held by a different tag is rejected with ErrTagNameTaken.
func (uc *TagUseCase) Rename(ctx context.Context, id, name, color string) error {
	name = strings.TrimSpace(name)
	if name == "" {
		return ErrInvalidTagName
	}

	tag, err := uc.repo.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, ErrTagNotFound) {
			return nil
		}
		return err
	}

	if existing, err := uc.repo.GetByName(ctx, name); err == nil && existing.ID != tag.ID {
		return ErrTagNameTaken
	} else if err != nil && !errors.Is(err, ErrTagNotFound) {
		return err
	}

	tag.Name = name
	if color != "" {
		tag.Color = color
	}
	if tag.IsSystem {
		// system category is deterministic in the name, recompute on rename
		tag.Category = DetermineTagCategory(tag.Name, true)
	}

	if err := uc.repo.Update(ctx, tag); err != nil {
		if errors.Is(err, ErrTagNameTaken) {
			return ErrTagNameTaken
		}
		return err
	}

	return nil
}

// Remove deletes a tag and all of its file associations. Missing tags are a
// silent no-op. Removal is unconditional: system tags are deletable here,
// unlike the per-file guard in SetTags.
func (uc *TagUseCase) Remove(ctx context.Context, id string) error {
	err := uc.repo.Delete(ctx, id)
	if errors.Is(err, ErrTagNotFound) {
		return nil
	}
	return err
}

// systemTagLockTTL bounds how long a get-or-create critical section may hold
// its lock if the holder dies.
const systemTagLockTTL = 5 * time.Second

// GetOrCreateSystemTag idempotently materializes a system tag for a derived
// name. An existing tag of the same name is promoted to a system tag and its
// category recomputed, even if a user created it first. Concurrent callers
// are serialized by a distributed lock, and the name unique index acts as
// the final arbiter: losing an insert race means re-fetching the winner.
func (uc *TagUseCase) GetOrCreateSystemTag(ctx context.Context, name string) (*Tag, error) {
	var out *Tag

	err := uc.locker.WithLock(ctx, "filebox:tag-create:"+name, systemTagLockTTL, func() error {
		tag, err := uc.getOrCreateSystemTag(ctx, name)
		if err != nil {
			return err
		}
		out = tag
		return nil
	})
	if err != nil {
		return nil, err
	}

	return out, nil
}

func (uc *TagUseCase) getOrCreateSystemTag(ctx context.Context, name string) (*Tag, error) {
	existing, err := uc.repo.GetByName(ctx, name)
	switch {
	case err == nil:
		return uc.promoteToSystem(ctx, existing)
	case !errors.Is(err, ErrTagNotFound):
		return nil, err
	}

	tag := &Tag{
		ID:       uuid.NewString(),
		Name:     name,
		Color:    ColorForName(name),
		IsSystem: true,
		Category: DetermineTagCategory(name, true),
	}

	if err := uc.repo.Create(ctx, tag); err != nil {
		if errors.Is(err, ErrTagNameTaken) {
			// lost the race despite the lock (e.g. lock expiry); the
			// unique index holds the truth, fetch the winner
			winner, gerr := uc.repo.GetByName(ctx, name)
			if gerr != nil {
				return nil, gerr
			}
			return uc.promoteToSystem(ctx, winner)
		}
		return nil, err
	}

	uc.logger.Debug("created system tag",
		zap.String("name", name),
		zap.String("category", tag.Category),
	)

	return tag, nil
}

func (uc *TagUseCase) promoteToSystem(ctx context.Context, tag *Tag) (*Tag, error) {
	category := DetermineTagCategory(tag.Name, true)
	if tag.IsSystem && tag.Category == category {
		return tag, nil
	}

	tag.IsSystem = true
	tag.Category = category
	if err := uc.repo.Update(ctx, tag); err != nil {
		return nil, err
	}

	return tag, nil
}
