package biz

import (
	"context"
	"strconv"

	"github.com/samber/lo"
)

// FilePage is one page of a cursor-paginated listing.
type FilePage struct {
	Page           []*FileWithTags
	IsDone         bool
	ContinueCursor string
}

// List answers a non-paginated listing. With no filter it returns every file
// newest first. A single tag id narrows to that tag's files in association
// order. Multiple tag ids intersect with AND semantics; the result keeps the
// iteration order of the first tag's association set.
func (uc *FileUseCase) List(ctx context.Context, tagIDs ...string) ([]*FileWithTags, error) {
	tagIDs = lo.Compact(tagIDs)

	var files []*File
	var err error

	switch len(tagIDs) {
	case 0:
		files, err = uc.repo.ListAll(ctx)
		if err != nil {
			return nil, err
		}
	case 1:
		fileIDs, err := uc.repo.ListFileIDsByTag(ctx, tagIDs[0])
		if err != nil {
			return nil, err
		}
		files, err = uc.filesInOrder(ctx, fileIDs)
		if err != nil {
			return nil, err
		}
	default:
		fileIDs, err := uc.intersectTagFiles(ctx, tagIDs)
		if err != nil {
			return nil, err
		}
		files, err = uc.filesInOrder(ctx, fileIDs)
		if err != nil {
			return nil, err
		}
	}

	return uc.resolveTags(ctx, files)
}

// intersectTagFiles computes the AND intersection of the per-tag file sets,
// preserving the order of the first tag's set.
func (uc *FileUseCase) intersectTagFiles(ctx context.Context, tagIDs []string) ([]string, error) {
	result, err := uc.repo.ListFileIDsByTag(ctx, tagIDs[0])
	if err != nil {
		return nil, err
	}

	for _, tagID := range tagIDs[1:] {
		ids, err := uc.repo.ListFileIDsByTag(ctx, tagID)
		if err != nil {
			return nil, err
		}
		result = lo.Intersect(result, ids)
		if len(result) == 0 {
			return nil, nil
		}
	}

	return result, nil
}

// filesInOrder batch-loads files and reorders them to match ids, dropping
// ids with no surviving record.
func (uc *FileUseCase) filesInOrder(ctx context.Context, ids []string) ([]*File, error) {
	if len(ids) == 0 {
		return nil, nil
	}

	files, err := uc.repo.GetByIDs(ctx, ids)
	if err != nil {
		return nil, err
	}
	byID := lo.SliceToMap(files, func(f *File) (string, *File) { return f.ID, f })

	ordered := make([]*File, 0, len(files))
	for _, id := range ids {
		if f, ok := byID[id]; ok {
			ordered = append(ordered, f)
		}
	}
	return ordered, nil
}

// ListPage is the cursor-paginated listing. Unfiltered requests page over
// the file collection in descending creation order. Tag-filtered requests
// page over the association rows of the first (primary) tag instead, so
// page boundaries follow association order, not file creation order.
//
// With multiple tags the candidates of the primary tag's page are
// post-filtered by "carries every requested tag": a page can come back
// short, or even empty, while IsDone is still false. That is deliberate;
// the cursor tracks the primary tag scan and always advances, and callers
// are expected to keep paging until IsDone.
func (uc *FileUseCase) ListPage(ctx context.Context, cursor string, limit int, tagIDs ...string) (*FilePage, error) {
	tagIDs = lo.Compact(tagIDs)
	if limit <= 0 {
		limit = 50
	}

	if len(tagIDs) == 0 {
		return uc.pageAllFiles(ctx, cursor, limit)
	}
	return uc.pageByTag(ctx, cursor, limit, tagIDs)
}

func (uc *FileUseCase) pageAllFiles(ctx context.Context, cursor string, limit int) (*FilePage, error) {
	afterSeq, err := decodeCursor(cursor)
	if err != nil {
		return nil, err
	}

	files, done, err := uc.repo.PageFiles(ctx, afterSeq, limit)
	if err != nil {
		return nil, err
	}

	next := cursor
	if len(files) > 0 {
		next = encodeCursor(files[len(files)-1].Seq)
	}

	page, err := uc.resolveTags(ctx, files)
	if err != nil {
		return nil, err
	}

	return &FilePage{Page: page, IsDone: done, ContinueCursor: next}, nil
}

func (uc *FileUseCase) pageByTag(ctx context.Context, cursor string, limit int, tagIDs []string) (*FilePage, error) {
	afterID, err := decodeCursor(cursor)
	if err != nil {
		return nil, err
	}

	rows, done, err := uc.repo.PageAssociationsByTag(ctx, tagIDs[0], afterID, limit)
	if err != nil {
		return nil, err
	}

	next := cursor
	if len(rows) > 0 {
		next = encodeCursor(rows[len(rows)-1].ID)
	}

	candidates := lo.Map(rows, func(r *FileTag, _ int) string { return r.FileID })

	if len(tagIDs) > 1 {
		candidates, err = uc.filterByAllTags(ctx, candidates, tagIDs)
		if err != nil {
			return nil, err
		}
	}

	files, err := uc.filesInOrder(ctx, candidates)
	if err != nil {
		return nil, err
	}

	page, err := uc.resolveTags(ctx, files)
	if err != nil {
		return nil, err
	}

	return &FilePage{Page: page, IsDone: done, ContinueCursor: next}, nil
}

// filterByAllTags keeps the candidates that carry every requested tag.
func (uc *FileUseCase) filterByAllTags(ctx context.Context, candidates, tagIDs []string) ([]string, error) {
	if len(candidates) == 0 {
		return nil, nil
	}

	assoc, err := uc.repo.AssociationsByFileIDs(ctx, candidates)
	if err != nil {
		return nil, err
	}

	return lo.Filter(candidates, func(fileID string, _ int) bool {
		attached := lo.SliceToMap(assoc[fileID], func(id string) (string, struct{}) {
			return id, struct{}{}
		})
		for _, want := range tagIDs {
			if _, ok := attached[want]; !ok {
				return false
			}
		}
		return true
	}), nil
}

// Cursors are the decimal creation identifier of the last row a page
// consumed: file Seq for unfiltered listings, association row id for tag
// listings. Empty means start from the beginning.
func encodeCursor(v int64) string {
	return strconv.FormatInt(v, 10)
}

func decodeCursor(cursor string) (int64, error) {
	if cursor == "" {
		return 0, nil
	}
	v, err := strconv.ParseInt(cursor, 10, 64)
	if err != nil || v < 0 {
		return 0, ErrInvalidCursor
	}
	return v, nil
}
