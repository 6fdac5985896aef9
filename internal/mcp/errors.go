// Package mcp implements the Model Context Protocol (MCP) server for segdex.
package mcp

import (
	"context"
	"errors"
	"fmt"

	sderrors "github.com/Aman-CERP/segdex/internal/errors"
)

// Custom MCP error codes for segdex.
const (
	// ErrCodeIndexUnavailable indicates the index cannot be opened or is closed.
	ErrCodeIndexUnavailable = -32001

	// ErrCodeWriterBusy indicates another writer holds the index.
	ErrCodeWriterBusy = -32002

	// ErrCodeTimeout indicates the request timed out or was canceled.
	ErrCodeTimeout = -32003

	// Standard JSON-RPC error codes.
	ErrCodeMethodNotFound = -32601
	ErrCodeInvalidParams  = -32602
	ErrCodeInternalError  = -32603
)

// MCPError represents an MCP protocol error with code and message.
type MCPError struct {
	Code    int    `json:"code"`
	Message string `json:"message"`
}

// Error implements the error interface.
func (e *MCPError) Error() string {
	return fmt.Sprintf("MCP error %d: %s", e.Code, e.Message)
}

// MapError converts internal errors to MCP errors.
func MapError(err error) *MCPError {
	if err == nil {
		return nil
	}

	var mcpErr *MCPError
	if errors.As(err, &mcpErr) {
		return mcpErr
	}

	var sdErr *sderrors.Error
	if errors.As(err, &sdErr) {
		return mapIndexError(sdErr)
	}

	switch {
	case errors.Is(err, context.DeadlineExceeded):
		return &MCPError{Code: ErrCodeTimeout, Message: "Request timed out."}
	case errors.Is(err, context.Canceled):
		return &MCPError{Code: ErrCodeTimeout, Message: "Request was canceled."}
	default:
		return &MCPError{Code: ErrCodeInternalError, Message: "Internal server error."}
	}
}

// NewInvalidParamsError creates an error for invalid parameters with a custom message.
func NewInvalidParamsError(msg string) *MCPError {
	return &MCPError{
		Code:    ErrCodeInvalidParams,
		Message: msg,
	}
}

// NewMethodNotFoundError creates an error for unknown tools.
func NewMethodNotFoundError(name string) *MCPError {
	return &MCPError{
		Code:    ErrCodeMethodNotFound,
		Message: fmt.Sprintf("Tool '%s' not found.", name),
	}
}

func mapIndexError(e *sderrors.Error) *MCPError {
	message := e.Message
	if e.Suggestion != "" {
		message = fmt.Sprintf("%s. %s", e.Message, e.Suggestion)
	}

	switch {
	case e.Code == sderrors.ErrCodeWriterBusy:
		return &MCPError{Code: ErrCodeWriterBusy, Message: message}
	case e.Code == sderrors.ErrCodeIndexClosed, e.Code == sderrors.ErrCodeIndexUnavailable:
		return &MCPError{Code: ErrCodeIndexUnavailable, Message: message}
	case e.Category == sderrors.CategoryValidation:
		return &MCPError{Code: ErrCodeInvalidParams, Message: message}
	default:
		return &MCPError{Code: ErrCodeInternalError, Message: message}
	}
}
