package mcp

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/Aman-CERP/segdex/internal/index"
)

func TestFormatSearchResults_Empty(t *testing.T) {
	assert.Equal(t, `No results found for "nothing"`, FormatSearchResults("nothing", nil))
}

func TestFormatSearchResults_ListsTitlesAndIDs(t *testing.T) {
	// Given: two results, one untitled
	results := []index.Result{{ID: "1", Title: "Hello"}, {ID: "2"}}

	// When: formatting
	out := FormatSearchResults("hello", results)

	// Then: both appear in order with a plural header
	assert.Contains(t, out, `## Search Results for "hello"`)
	assert.Contains(t, out, "Found 2 results")
	assert.Contains(t, out, "1. **Hello** `1`")
	assert.Contains(t, out, "2. **(untitled)** `2`")
}

func TestFormatSearchResults_Singular(t *testing.T) {
	out := FormatSearchResults("x", []index.Result{{ID: "1", Title: "X"}})
	assert.Contains(t, out, "Found 1 result\n")
}

func TestFormatStatus(t *testing.T) {
	out := FormatStatus(&IndexStatusOutput{
		Stats:    index.Stats{InMemory: true, Documents: 3, Commits: 4, Schema: "abc"},
		Writable: true,
	})

	assert.Contains(t, out, "(in memory)")
	assert.Contains(t, out, "**Documents:** 3")
	assert.Contains(t, out, "**Commits:** 4")
	assert.Contains(t, out, "**Writable:** true")
}
