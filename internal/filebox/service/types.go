package service

import (
	"time"

	"github.com/localboxhq/localbox-server/internal/filebox/biz"
)

// Tag DTO

// CreateTagRequest creates a user tag
type CreateTagRequest struct {
	Name  string `json:"name" binding:"required"`
	Color string `json:"color"` // optional, derived from the name when empty
}

// UpdateTagRequest renames a tag
type UpdateTagRequest struct {
	Name  string `json:"name" binding:"required"`
	Color string `json:"color"`
}

// TagResponse is one tag record
type TagResponse struct {
	ID        string `json:"id"`
	Name      string `json:"name"`
	Color     string `json:"color"`
	IsSystem  bool   `json:"is_system"`
	Category  string `json:"category"`
	CreatedAt string `json:"created_at"`
	UpdatedAt string `json:"updated_at"`
}

// File DTO

// RegisterFileRequest registers a blob uploaded through a presigned URL
type RegisterFileRequest struct {
	StorageKey  string   `json:"storage_key" binding:"required"`
	Filename    string   `json:"filename" binding:"required"`
	ContentType string   `json:"content_type"`
	Size        int64    `json:"size" binding:"min=0"`
	TagIDs      []string `json:"tag_ids"`
}

// SetFileTagsRequest replaces a file's user-chosen tags
type SetFileTagsRequest struct {
	TagIDs []string `json:"tag_ids"`
}

// ListFilesRequest filters a listing by tag ids (AND semantics)
type ListFilesRequest struct {
	Tags []string `form:"tags"`
}

// PageFilesRequest is a cursor-paginated listing request
type PageFilesRequest struct {
	Cursor string   `form:"cursor"`
	Limit  int      `form:"limit" binding:"min=0,max=200"`
	Tags   []string `form:"tags"`
}

// UploadURLResponse is a reserved upload destination
type UploadURLResponse struct {
	StorageKey string `json:"storage_key"`
	UploadURL  string `json:"upload_url"`
	ExpiresAt  string `json:"expires_at"`
}

// FileResponse is one file record with its resolved tags
type FileResponse struct {
	ID          string         `json:"id"`
	Filename    string         `json:"filename"`
	ContentType string         `json:"content_type"`
	Size        int64          `json:"size"`
	UploaderID  string         `json:"uploader_id,omitempty"`
	CreatedAt   string         `json:"created_at"`
	Tags        []*TagResponse `json:"tags"`
}

// FilePageResponse is one page of a cursor-paginated listing. IsDone false
// with an empty Items slice is a valid page: keep following ContinueCursor.
type FilePageResponse struct {
	Items          []*FileResponse `json:"items"`
	IsDone         bool            `json:"is_done"`
	ContinueCursor string          `json:"continue_cursor"`
}

// DownloadURLResponse carries a presigned download URL; URL is empty when the
// file does not exist.
type DownloadURLResponse struct {
	URL string `json:"url"`
}

// BatchUploadItemResult is the outcome of one file in a batch upload
type BatchUploadItemResult struct {
	Filename string `json:"filename"`
	FileID   string `json:"file_id,omitempty"`
	Error    string `json:"error,omitempty"`
}

// BatchUploadResponse summarizes a batch upload
type BatchUploadResponse struct {
	Succeeded int                      `json:"succeeded"`
	Failed    int                      `json:"failed"`
	Results   []*BatchUploadItemResult `json:"results"`
}

func toTagResponse(t *biz.Tag) *TagResponse {
	return &TagResponse{
		ID:        t.ID,
		Name:      t.Name,
		Color:     t.Color,
		IsSystem:  t.IsSystem,
		Category:  t.Category,
		CreatedAt: t.CreatedAt.Format(time.RFC3339),
		UpdatedAt: t.UpdatedAt.Format(time.RFC3339),
	}
}

func toFileResponse(fw *biz.FileWithTags) *FileResponse {
	tags := make([]*TagResponse, len(fw.Tags))
	for i, t := range fw.Tags {
		tags[i] = toTagResponse(t)
	}
	return &FileResponse{
		ID:          fw.File.ID,
		Filename:    fw.File.Filename,
		ContentType: fw.File.ContentType,
		Size:        fw.File.Size,
		UploaderID:  fw.File.UploaderID,
		CreatedAt:   fw.File.CreatedAt.Format(time.RFC3339),
		Tags:        tags,
	}
}

func toFileResponses(fws []*biz.FileWithTags) []*FileResponse {
	out := make([]*FileResponse, len(fws))
	for i, fw := range fws {
		out[i] = toFileResponse(fw)
	}
	return out
}
