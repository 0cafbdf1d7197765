package errors

import (
	"fmt"
	"net/http"
)

// Code represents an error code with HTTP status and message
type Code struct {
	Code    int    // Business error code
	Status  int    // HTTP status code
	Message string // Error message
}

// Error codes for different modules
const (
	// Success
	Success = 0

	// Common errors (1000-1999)
	ErrInternalServer  = 1000
	ErrInvalidParams   = 1001
	ErrNotFound        = 1002
	ErrUnauthorized    = 1003
	ErrForbidden       = 1004
	ErrConflict        = 1005
	ErrTooManyRequests = 1006
	ErrBadRequest      = 1007
	ErrServiceUnavail  = 1008

	// Auth errors (2000-2999)
	ErrAuthInvalidToken = 2000
	ErrAuthTokenExpired = 2001

	// File errors (3000-3999)
	ErrFileNotFound      = 3000
	ErrFileInvalidInput  = 3001
	ErrFileStorageFailed = 3002
	ErrFileBlobMissing   = 3003
	ErrFileTooLarge      = 3004
	ErrFileInvalidCursor = 3005

	// Tag errors (4000-4999)
	ErrTagNotFound     = 4000
	ErrTagInvalidInput = 4001
	ErrTagExists       = 4002
	ErrTagNameTaken    = 4003
)

// codeMap maps error codes to their details
var codeMap = map[int]Code{
	Success: {Success, http.StatusOK, "Success"},

	// Common errors
	ErrInternalServer:  {ErrInternalServer, http.StatusInternalServerError, "Internal server error"},
	ErrInvalidParams:   {ErrInvalidParams, http.StatusBadRequest, "Invalid parameters"},
	ErrNotFound:        {ErrNotFound, http.StatusNotFound, "Resource not found"},
	ErrUnauthorized:    {ErrUnauthorized, http.StatusUnauthorized, "Unauthorized"},
	ErrForbidden:       {ErrForbidden, http.StatusForbidden, "Forbidden"},
	ErrConflict:        {ErrConflict, http.StatusConflict, "Resource conflict"},
	ErrTooManyRequests: {ErrTooManyRequests, http.StatusTooManyRequests, "Too many requests"},
	ErrBadRequest:      {ErrBadRequest, http.StatusBadRequest, "Bad request"},
	ErrServiceUnavail:  {ErrServiceUnavail, http.StatusServiceUnavailable, "Service unavailable"},

	// Auth errors
	ErrAuthInvalidToken: {ErrAuthInvalidToken, http.StatusUnauthorized, "Invalid or expired token"},
	ErrAuthTokenExpired: {ErrAuthTokenExpired, http.StatusUnauthorized, "Token expired"},

	// File errors
	ErrFileNotFound:      {ErrFileNotFound, http.StatusNotFound, "File not found"},
	ErrFileInvalidInput:  {ErrFileInvalidInput, http.StatusBadRequest, "Invalid file input"},
	ErrFileStorageFailed: {ErrFileStorageFailed, http.StatusInternalServerError, "Storage operation failed"},
	ErrFileBlobMissing:   {ErrFileBlobMissing, http.StatusBadRequest, "No uploaded object found for storage key"},
	ErrFileTooLarge:      {ErrFileTooLarge, http.StatusBadRequest, "File size exceeds limit"},
	ErrFileInvalidCursor: {ErrFileInvalidCursor, http.StatusBadRequest, "Invalid pagination cursor"},

	// Tag errors
	ErrTagNotFound:     {ErrTagNotFound, http.StatusNotFound, "Tag not found"},
	ErrTagInvalidInput: {ErrTagInvalidInput, http.StatusBadRequest, "Invalid tag input"},
	ErrTagExists:       {ErrTagExists, http.StatusConflict, "Tag already exists"},
	ErrTagNameTaken:    {ErrTagNameTaken, http.StatusConflict, "Another tag with this name already exists"},
}

// GetCode returns the Code for a given error code
func GetCode(code int) Code {
	if c, ok := codeMap[code]; ok {
		return c
	}
	return codeMap[ErrInternalServer]
}

// GetHTTPStatus returns HTTP status for a given error code
func GetHTTPStatus(code int) int {
	return GetCode(code).Status
}

// GetMessage returns the message for a given error code
func GetMessage(code int) string {
	return GetCode(code).Message
}

// FormatError formats an error message with code
func FormatError(code int, details ...string) string {
	msg := GetMessage(code)
	if len(details) > 0 && details[0] != "" {
		return fmt.Sprintf("%s: %s", msg, details[0])
	}
	return msg
}
