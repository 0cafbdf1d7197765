package service

import (
	"errors"

	"github.com/gin-gonic/gin"
	"github.com/localboxhq/localbox-server/internal/filebox/biz"
	"github.com/localboxhq/localbox-server/internal/pkg/logger"
	"github.com/localboxhq/localbox-server/internal/pkg/response"
	"go.uber.org/zap"
)

// TagService is the HTTP surface of the tag registry
type TagService struct {
	tagUseCase *biz.TagUseCase
	logger     *logger.Logger
}

// NewTagService creates a TagService
func NewTagService(tagUseCase *biz.TagUseCase, logger *logger.Logger) *TagService {
	return &TagService{
		tagUseCase: tagUseCase,
		logger:     logger,
	}
}

// RegisterRoutes registers tag routes
func (s *TagService) RegisterRoutes(r *gin.RouterGroup) {
	tags := r.Group("/tags")
	{
		tags.GET("", s.ListTags)
		tags.POST("", s.CreateTag)
		tags.GET("/:id", s.GetTag)
		tags.PUT("/:id", s.UpdateTag)
		tags.DELETE("/:id", s.DeleteTag)
	}
}

// ListTags returns every tag record
func (s *TagService) ListTags(c *gin.Context) {
	tags, err := s.tagUseCase.List(c.Request.Context())
	if err != nil {
		s.handleError(c, err)
		return
	}

	items := make([]*TagResponse, len(tags))
	for i, t := range tags {
		items[i] = toTagResponse(t)
	}
	response.Success(c, items)
}

// GetTag returns one tag by id
func (s *TagService) GetTag(c *gin.Context) {
	tag, err := s.tagUseCase.Get(c.Request.Context(), c.Param("id"))
	if err != nil {
		s.handleError(c, err)
		return
	}
	response.Success(c, toTagResponse(tag))
}

// CreateTag creates a user tag
func (s *TagService) CreateTag(c *gin.Context) {
	var req CreateTagRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, err.Error())
		return
	}

	tag, err := s.tagUseCase.Create(c.Request.Context(), req.Name, req.Color)
	if err != nil {
		s.handleError(c, err)
		return
	}

	response.Created(c, toTagResponse(tag))
}

// UpdateTag renames a tag. A missing tag succeeds without effect.
func (s *TagService) UpdateTag(c *gin.Context) {
	var req UpdateTagRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, err.Error())
		return
	}

	if err := s.tagUseCase.Rename(c.Request.Context(), c.Param("id"), req.Name, req.Color); err != nil {
		s.handleError(c, err)
		return
	}

	response.Success(c, nil)
}

// DeleteTag deletes a tag and all of its file associations. A missing tag
// succeeds without effect.
func (s *TagService) DeleteTag(c *gin.Context) {
	if err := s.tagUseCase.Remove(c.Request.Context(), c.Param("id")); err != nil {
		s.handleError(c, err)
		return
	}
	response.Success(c, nil)
}

func (s *TagService) handleError(c *gin.Context, err error) {
	s.logger.Error("tag operation failed", zap.Error(err))

	switch {
	case errors.Is(err, biz.ErrTagNotFound):
		response.NotFound(c, err.Error())
	case errors.Is(err, biz.ErrTagExists),
		errors.Is(err, biz.ErrTagNameTaken):
		response.Conflict(c, err.Error())
	case errors.Is(err, biz.ErrInvalidTagName):
		response.BadRequest(c, err.Error())
	default:
		response.InternalError(c, "internal server error")
	}
}
