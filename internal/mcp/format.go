package mcp

import (
	"fmt"
	"strings"

	"github.com/Aman-CERP/segdex/internal/index"
)

// FormatSearchResults formats search results as markdown.
func FormatSearchResults(query string, results []index.Result) string {
	if len(results) == 0 {
		return fmt.Sprintf("No results found for \"%s\"", query)
	}

	var sb strings.Builder
	sb.WriteString(fmt.Sprintf("## Search Results for \"%s\"\n\n", query))
	sb.WriteString(fmt.Sprintf("Found %d result", len(results)))
	if len(results) != 1 {
		sb.WriteString("s")
	}
	sb.WriteString("\n\n")

	for i, r := range results {
		title := r.Title
		if title == "" {
			title = "(untitled)"
		}
		sb.WriteString(fmt.Sprintf("%d. **%s** `%s`\n", i+1, title, r.ID))
	}

	return sb.String()
}

// FormatStatus formats index statistics as markdown.
func FormatStatus(out *IndexStatusOutput) string {
	var sb strings.Builder
	sb.WriteString("## Index Status\n\n")

	location := out.Stats.Path
	if out.Stats.InMemory {
		location = "(in memory)"
	}
	sb.WriteString(fmt.Sprintf("- **Path:** %s\n", location))
	sb.WriteString(fmt.Sprintf("- **Documents:** %d\n", out.Stats.Documents))
	sb.WriteString(fmt.Sprintf("- **Commits:** %d\n", out.Stats.Commits))
	sb.WriteString(fmt.Sprintf("- **Writable:** %t\n", out.Writable))
	sb.WriteString(fmt.Sprintf("- **Schema:** `%s`\n", out.Stats.Schema))
	return sb.String()
}
