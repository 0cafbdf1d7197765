package service

import (
	"context"
	"errors"
	"mime/multipart"
	"sync"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/localboxhq/localbox-server/internal/auth/middleware"
	"github.com/localboxhq/localbox-server/internal/filebox/biz"
	"github.com/localboxhq/localbox-server/internal/pkg/logger"
	"github.com/localboxhq/localbox-server/internal/pkg/response"
	"github.com/localboxhq/localbox-server/internal/pkg/workerpool"
	"go.uber.org/zap"
)

// FileService is the HTTP surface of the file store and query engine
type FileService struct {
	fileUseCase *biz.FileUseCase
	pool        *workerpool.Pool
	logger      *logger.Logger
}

// NewFileService creates a FileService. The pool bounds batch upload
// concurrency and may be shared with other services.
func NewFileService(fileUseCase *biz.FileUseCase, pool *workerpool.Pool, logger *logger.Logger) *FileService {
	return &FileService{
		fileUseCase: fileUseCase,
		pool:        pool,
		logger:      logger,
	}
}

// RegisterRoutes registers file routes. uploadLimit middleware, when given,
// guards only the routes that move blob data.
func (s *FileService) RegisterRoutes(r *gin.RouterGroup, uploadLimit ...gin.HandlerFunc) {
	files := r.Group("/files")
	{
		files.GET("", s.ListFiles)
		files.GET("/page", s.PageFiles)
		files.POST("", s.RegisterFile)
		files.GET("/:id", s.GetFile)
		files.GET("/:id/download-url", s.GetDownloadURL)
		files.PUT("/:id/tags", s.SetFileTags)
		files.DELETE("/:id", s.DeleteFile)
	}

	uploads := files.Group("", uploadLimit...)
	{
		uploads.POST("/upload-url", s.GenerateUploadURL)
		uploads.POST("/upload", s.UploadFile)
		uploads.POST("/batch-upload", s.BatchUploadFiles)
	}
}

// GenerateUploadURL reserves a storage key and returns a presigned PUT URL
func (s *FileService) GenerateUploadURL(c *gin.Context) {
	target, err := s.fileUseCase.GenerateUploadURL(c.Request.Context())
	if err != nil {
		s.handleError(c, err)
		return
	}

	response.Success(c, &UploadURLResponse{
		StorageKey: target.StorageKey,
		UploadURL:  target.URL,
		ExpiresAt:  target.ExpiresAt.Format(time.RFC3339),
	})
}

// RegisterFile registers a blob the client uploaded through a presigned URL
func (s *FileService) RegisterFile(c *gin.Context) {
	var req RegisterFileRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, err.Error())
		return
	}

	userID, _ := middleware.GetUserID(c)
	email, _ := middleware.GetEmail(c)

	fileID, err := s.fileUseCase.SaveUploadedFile(c.Request.Context(), &biz.SaveUploadedFileParams{
		StorageKey:    req.StorageKey,
		Filename:      req.Filename,
		ContentType:   req.ContentType,
		Size:          req.Size,
		TagIDs:        req.TagIDs,
		UploaderID:    userID,
		UploaderEmail: email,
	})
	if err != nil {
		s.handleError(c, err)
		return
	}

	response.Created(c, gin.H{"id": fileID})
}

// UploadFile stores a multipart file server-side and registers it
func (s *FileService) UploadFile(c *gin.Context) {
	header, err := c.FormFile("file")
	if err != nil {
		response.BadRequest(c, "file is required")
		return
	}

	userID, _ := middleware.GetUserID(c)
	email, _ := middleware.GetEmail(c)

	fileID, err := s.uploadOne(c.Request.Context(), header, c.PostFormArray("tag_ids"), userID, email)
	if err != nil {
		s.handleError(c, err)
		return
	}

	response.Created(c, gin.H{"id": fileID})
}

// BatchUploadFiles uploads several multipart files concurrently. Each file
// succeeds or fails on its own; the response reports both sides.
func (s *FileService) BatchUploadFiles(c *gin.Context) {
	form, err := c.MultipartForm()
	if err != nil {
		response.BadRequest(c, err.Error())
		return
	}

	headers := form.File["files"]
	if len(headers) == 0 {
		response.BadRequest(c, "files is required")
		return
	}

	tagIDs := c.PostFormArray("tag_ids")
	results := make([]*BatchUploadItemResult, len(headers))

	// workers must not touch the gin context, so pull everything they need
	// out of it up front
	ctx := c.Request.Context()
	userID, _ := middleware.GetUserID(c)
	email, _ := middleware.GetEmail(c)

	var wg sync.WaitGroup
	for i, header := range headers {
		i, header := i, header
		wg.Add(1)

		task := func() {
			defer wg.Done()

			result := &BatchUploadItemResult{Filename: header.Filename}
			fileID, err := s.uploadOne(ctx, header, tagIDs, userID, email)
			if err != nil {
				result.Error = err.Error()
			} else {
				result.FileID = fileID
			}
			results[i] = result
		}

		if err := s.pool.Submit(task); err != nil {
			// pool rejected the task (e.g. shutting down), run it inline
			task()
		}
	}
	wg.Wait()

	resp := &BatchUploadResponse{Results: results}
	for _, r := range results {
		if r.Error == "" {
			resp.Succeeded++
		} else {
			resp.Failed++
		}
	}

	s.logger.Info("batch upload finished",
		zap.Int("succeeded", resp.Succeeded),
		zap.Int("failed", resp.Failed),
	)

	response.Success(c, resp)
}

func (s *FileService) uploadOne(ctx context.Context, header *multipart.FileHeader, tagIDs []string, userID, email string) (string, error) {
	f, err := header.Open()
	if err != nil {
		return "", err
	}
	defer f.Close()

	return s.fileUseCase.Upload(
		ctx,
		header.Filename,
		header.Header.Get("Content-Type"),
		header.Size,
		f,
		tagIDs,
		userID,
		email,
	)
}

// ListFiles returns files without pagination. Repeated tags query params
// narrow the listing with AND semantics.
func (s *FileService) ListFiles(c *gin.Context) {
	var req ListFilesRequest
	if err := c.ShouldBindQuery(&req); err != nil {
		response.BadRequest(c, err.Error())
		return
	}

	files, err := s.fileUseCase.List(c.Request.Context(), req.Tags...)
	if err != nil {
		s.handleError(c, err)
		return
	}

	response.Success(c, toFileResponses(files))
}

// PageFiles returns one page of a cursor-paginated listing. Tag-filtered
// pages may come back short or empty before is_done turns true; clients keep
// following continue_cursor.
func (s *FileService) PageFiles(c *gin.Context) {
	var req PageFilesRequest
	if err := c.ShouldBindQuery(&req); err != nil {
		response.BadRequest(c, err.Error())
		return
	}

	page, err := s.fileUseCase.ListPage(c.Request.Context(), req.Cursor, req.Limit, req.Tags...)
	if err != nil {
		s.handleError(c, err)
		return
	}

	response.Success(c, &FilePageResponse{
		Items:          toFileResponses(page.Page),
		IsDone:         page.IsDone,
		ContinueCursor: page.ContinueCursor,
	})
}

// GetFile returns one file with its resolved tags
func (s *FileService) GetFile(c *gin.Context) {
	file, err := s.fileUseCase.Get(c.Request.Context(), c.Param("id"))
	if err != nil {
		s.handleError(c, err)
		return
	}
	response.Success(c, toFileResponse(file))
}

// GetDownloadURL returns a presigned download URL, empty when the file does
// not exist
func (s *FileService) GetDownloadURL(c *gin.Context) {
	url, err := s.fileUseCase.GetDownloadURL(c.Request.Context(), c.Param("id"))
	if err != nil {
		s.handleError(c, err)
		return
	}
	response.Success(c, &DownloadURLResponse{URL: url})
}

// SetFileTags replaces a file's user-chosen tags; attached system tags are
// kept regardless of the requested set. A missing file succeeds without
// effect.
func (s *FileService) SetFileTags(c *gin.Context) {
	var req SetFileTagsRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, err.Error())
		return
	}

	if err := s.fileUseCase.SetTags(c.Request.Context(), c.Param("id"), req.TagIDs); err != nil {
		s.handleError(c, err)
		return
	}

	response.Success(c, nil)
}

// DeleteFile deletes a file, its associations and its blob. A missing file
// succeeds without effect.
func (s *FileService) DeleteFile(c *gin.Context) {
	if err := s.fileUseCase.Remove(c.Request.Context(), c.Param("id")); err != nil {
		s.handleError(c, err)
		return
	}
	response.Success(c, nil)
}

func (s *FileService) handleError(c *gin.Context, err error) {
	s.logger.Error("file operation failed", zap.Error(err))

	switch {
	case errors.Is(err, biz.ErrFileNotFound):
		response.NotFound(c, err.Error())
	case errors.Is(err, biz.ErrInvalidFilename),
		errors.Is(err, biz.ErrInvalidFileSize),
		errors.Is(err, biz.ErrInvalidStorageKey),
		errors.Is(err, biz.ErrBlobNotFound),
		errors.Is(err, biz.ErrInvalidCursor):
		response.BadRequest(c, err.Error())
	case errors.Is(err, biz.ErrTagNotFound):
		response.BadRequest(c, err.Error())
	default:
		response.InternalError(c, "internal server error")
	}
}
