// Package mcp exposes documentation sync and search as Model Context
// Protocol tools over stdio.
package mcp

import (
	"errors"
	"fmt"

	ragerr "github.com/ragdocs/ragdocs/internal/errors"
)

// MCP protocol error codes.
const (
	ErrCodeInvalidParams = -32602
	ErrCodeInternalError = -32603

	// ErrCodeStoreUnavailable indicates the index store cannot be
	// reached or is corrupt.
	ErrCodeStoreUnavailable = -32001

	// ErrCodeEmbeddingFailed indicates embedding generation failed.
	ErrCodeEmbeddingFailed = -32002
)

// MCPError is a protocol error with a JSON-RPC code.
type MCPError struct {
	Code    int    `json:"code"`
	Message string `json:"message"`
}

func (e *MCPError) Error() string {
	return fmt.Sprintf("MCP error %d: %s", e.Code, e.Message)
}

// NewInvalidParamsError creates a parameter validation error.
func NewInvalidParamsError(message string) *MCPError {
	return &MCPError{Code: ErrCodeInvalidParams, Message: message}
}

// MapError converts internal errors to protocol errors by category so
// AI clients can distinguish bad input from a broken backend.
func MapError(err error) *MCPError {
	if err == nil {
		return nil
	}

	var re *ragerr.RagError
	if errors.As(err, &re) {
		switch re.Category {
		case ragerr.CategoryValidation:
			return &MCPError{Code: ErrCodeInvalidParams, Message: re.Message}
		case ragerr.CategoryConnection:
			if re.Code == ragerr.ErrCodeEmbedderUnreachable {
				return &MCPError{Code: ErrCodeEmbeddingFailed, Message: re.Message}
			}
			return &MCPError{Code: ErrCodeStoreUnavailable, Message: re.Message}
		case ragerr.CategoryStorage:
			return &MCPError{Code: ErrCodeStoreUnavailable, Message: re.Message}
		}
		if re.Code == ragerr.ErrCodeEmbeddingFailed {
			return &MCPError{Code: ErrCodeEmbeddingFailed, Message: re.Message}
		}
		return &MCPError{Code: ErrCodeInternalError, Message: re.Message}
	}

	return &MCPError{Code: ErrCodeInternalError, Message: err.Error()}
}
