// Package observability provides formatted output utilities for the CLI.
package observability

import (
	"fmt"
	"io"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/jonathan/script-agent/internal/db"
	"github.com/jonathan/script-agent/internal/types"
)

const (
	// boxWidth is the default width for formatted output boxes
	boxWidth = 60
	// maxItemsToShow is the default number of items to display in lists
	maxItemsToShow = 10
)

// Printer handles formatted output for run reports
type Printer struct {
	out io.Writer
}

// NewPrinter creates a new Printer that writes to the given writer
func NewPrinter(out io.Writer) *Printer {
	return &Printer{out: out}
}

// printBox prints a formatted box with a title and content
//
//nolint:errcheck // writing to stdout; errors are not recoverable
func (p *Printer) printBox(title string, content string) {
	border := strings.Repeat("─", boxWidth-2)
	fmt.Fprintf(p.out, "┌%s┐\n", border)
	fmt.Fprintf(p.out, "│ %-*s │\n", boxWidth-4, title)
	fmt.Fprintf(p.out, "├%s┤\n", border)

	for _, line := range strings.Split(content, "\n") {
		fmt.Fprintf(p.out, "│ %-*s │\n", boxWidth-4, truncate(line, boxWidth-4))
	}

	fmt.Fprintf(p.out, "└%s┘\n", border)
}

// truncate shortens s to at most n runes, marking the cut with "...".
func truncate(s string, n int) string {
	if utf8.RuneCountInString(s) <= n {
		return s
	}
	runes := []rune(s)
	return string(runes[:n-3]) + "..."
}

// PrintRunSummary outputs the result of a completed extraction run.
func (p *Printer) PrintRunSummary(summary *types.RunSummary) {
	if summary == nil {
		return
	}

	var sb strings.Builder
	sb.WriteString(fmt.Sprintf("Run:        %s\n", summary.RunID))
	sb.WriteString(fmt.Sprintf("Provider:   %s\n", summary.Provider))
	sb.WriteString(fmt.Sprintf("Chunks:     %d\n", summary.ChunkCount))
	sb.WriteString(fmt.Sprintf("Candidates: %d\n", summary.CandidateCount))
	sb.WriteString(fmt.Sprintf("Duration:   %s", summary.Duration.Round(time.Millisecond)))

	p.printBox("EXTRACTION RUN COMPLETED", sb.String())
}

// PrintRun outputs a stored run record.
func (p *Printer) PrintRun(run *db.Run) {
	if run == nil {
		return
	}

	var sb strings.Builder
	sb.WriteString(fmt.Sprintf("Run:      %s\n", run.ID))
	sb.WriteString(fmt.Sprintf("Status:   %s\n", run.Status))
	sb.WriteString(fmt.Sprintf("Step:     %d\n", run.Step))
	sb.WriteString(fmt.Sprintf("Provider: %s\n", run.ModelConfig.Provider))
	if run.ModelConfig.PromptSHA256 != "" {
		sb.WriteString(fmt.Sprintf("Prompt:   %s...\n", run.ModelConfig.PromptSHA256[:min(12, len(run.ModelConfig.PromptSHA256))]))
	}
	sb.WriteString(fmt.Sprintf("Started:  %s", run.CreatedAt.Format("2006-01-02 15:04:05")))
	if run.FinishedAt != nil {
		sb.WriteString(fmt.Sprintf("\nFinished: %s", run.FinishedAt.Format("2006-01-02 15:04:05")))
	}
	if run.ErrorMessage != nil {
		sb.WriteString(fmt.Sprintf("\nError:    %s", *run.ErrorMessage))
	}

	p.printBox("EXTRACTION RUN", sb.String())
}

// PrintCandidates outputs candidates grouped by entity type.
func (p *Printer) PrintCandidates(candidates []types.Candidate) {
	if len(candidates) == 0 {
		return
	}

	byType := make(map[types.EntityType][]types.Candidate)
	for _, c := range candidates {
		byType[c.EntityType] = append(byType[c.EntityType], c)
	}

	var sb strings.Builder
	sb.WriteString(fmt.Sprintf("Total candidates: %d\n", len(candidates)))
	for _, et := range types.EntityTypes {
		group := byType[et]
		if len(group) == 0 {
			continue
		}
		sb.WriteString(fmt.Sprintf("\n%s (%d):\n", et, len(group)))
		count := min(len(group), maxItemsToShow)
		for i := 0; i < count; i++ {
			c := group[i]
			sb.WriteString(fmt.Sprintf("  • %s", c.RawName))
			if c.Confidence != nil {
				sb.WriteString(fmt.Sprintf(" (%.2f)", *c.Confidence))
			}
			sb.WriteString("\n")
		}
		if len(group) > maxItemsToShow {
			sb.WriteString(fmt.Sprintf("  ... and %d more\n", len(group)-maxItemsToShow))
		}
	}

	p.printBox("CANDIDATES", strings.TrimSuffix(sb.String(), "\n"))
}
