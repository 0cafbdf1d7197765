package biz

import "errors"

// Tag errors
var (
	ErrTagNotFound     = errors.New("tag not found")
	ErrTagExists       = errors.New("Tag already exists")
	ErrTagNameTaken    = errors.New("Another tag with this name already exists")
	ErrInvalidTagName  = errors.New("invalid tag name")
)

// File errors
var (
	ErrFileNotFound       = errors.New("file not found")
	ErrInvalidFilename    = errors.New("invalid filename")
	ErrInvalidFileSize    = errors.New("invalid file size")
	ErrInvalidStorageKey  = errors.New("invalid storage key")
	ErrBlobNotFound       = errors.New("storage blob not found")
	ErrInvalidCursor      = errors.New("invalid pagination cursor")
)
