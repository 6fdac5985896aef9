package mcp

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"

	sderrors "github.com/Aman-CERP/segdex/internal/errors"
)

func TestMapError(t *testing.T) {
	tests := []struct {
		name string
		err  error
		code int
	}{
		{"writer busy", sderrors.New(sderrors.ErrCodeWriterBusy, "busy", nil), ErrCodeWriterBusy},
		{"index closed", sderrors.New(sderrors.ErrCodeIndexClosed, "closed", nil), ErrCodeIndexUnavailable},
		{"invalid query", sderrors.QueryError("a:(", nil), ErrCodeInvalidParams},
		{"invalid input", sderrors.ValidationError("document id is empty", nil), ErrCodeInvalidParams},
		{"commit failed", sderrors.New(sderrors.ErrCodeIndexFailed, "commit failed", nil), ErrCodeInternalError},
		{"wrapped", fmt.Errorf("outer: %w", sderrors.QueryError("x", nil)), ErrCodeInvalidParams},
		{"deadline", context.DeadlineExceeded, ErrCodeTimeout},
		{"canceled", context.Canceled, ErrCodeTimeout},
		{"plain", errors.New("boom"), ErrCodeInternalError},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := MapError(tt.err)
			assert.Equal(t, tt.code, got.Code)
			assert.NotEmpty(t, got.Message)
		})
	}
}

func TestMapError_Nil(t *testing.T) {
	assert.Nil(t, MapError(nil))
}

func TestMapError_PassesThroughMCPError(t *testing.T) {
	in := NewInvalidParamsError("limit is bad")
	assert.Same(t, in, MapError(in))
}

func TestMapError_IncludesSuggestion(t *testing.T) {
	err := sderrors.New(sderrors.ErrCodeWriterBusy, "index is locked by another writer", nil).
		WithSuggestion("Stop the other segdex process")

	got := MapError(err)

	assert.Contains(t, got.Message, "locked")
	assert.Contains(t, got.Message, "Stop the other segdex process")
}

func TestMCPError_Error(t *testing.T) {
	err := NewMethodNotFoundError("nope")
	assert.Equal(t, "MCP error -32601: Tool 'nope' not found.", err.Error())
}
