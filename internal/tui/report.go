package tui

import (
	"fmt"
	"strings"
	"time"

	"github.com/leonardotrapani/diarscribe/internal/batch"
	"github.com/leonardotrapani/diarscribe/internal/catalog"
	"github.com/leonardotrapani/diarscribe/internal/deps"
)

// RenderReport formats the end-of-run summary of a batch.
func RenderReport(r *batch.Report) string {
	if r.NoInput() {
		return StyleWarning.Render("No audio files to process.")
	}

	var b strings.Builder
	status := StyleSuccess.Render(fmt.Sprintf("%d/%d file(s) transcribed", r.Processed, r.Found))
	if len(r.Failed) > 0 {
		status = StyleWarning.Render(fmt.Sprintf("%d/%d file(s) transcribed, %d failed", r.Processed, r.Found, len(r.Failed)))
	}
	fmt.Fprintf(&b, "%s %s\n", status, StyleMuted.Render("in "+r.Duration.Round(10*time.Millisecond).String()))

	for _, name := range r.Artifacts {
		fmt.Fprintf(&b, "  %s %s\n", StyleSuccess.Render("✓"), name)
	}
	for _, f := range r.Failed {
		fmt.Fprintf(&b, "  %s %s %s\n", StyleError.Render("✗"), f.File, StyleMuted.Render(f.Stage+": "+f.Err.Error()))
	}
	return StyleBox.Render(strings.TrimRight(b.String(), "\n"))
}

// RenderCatalog lists models grouped by language and architecture. Empty
// filters match everything.
func RenderCatalog(lang catalog.Language, arch catalog.Architecture) string {
	var b strings.Builder
	for _, l := range catalog.Languages {
		if lang != "" && l != lang {
			continue
		}
		b.WriteString(StyleHeader.Render(fmt.Sprintf("%s (%s)", l.Name(), l)))
		b.WriteString("\n")
		for _, a := range catalog.Architectures {
			if arch != "" && a != arch {
				continue
			}
			names := catalog.Models(l, a)
			if len(names) == 0 {
				continue
			}
			fmt.Fprintf(&b, "  %s\n", StyleArchitecture.Render(string(a)))
			for _, n := range names {
				fmt.Fprintf(&b, "    %s\n", n)
			}
		}
		b.WriteString("\n")
	}
	return strings.TrimRight(b.String(), "\n")
}

// RenderDoctor formats dependency check results.
func RenderDoctor(statuses []deps.Status) string {
	var b strings.Builder
	for _, s := range statuses {
		if !s.Installed {
			fmt.Fprintf(&b, "%s %-8s %s\n", StyleError.Render("✗"), s.Name, StyleMuted.Render("not found"))
			continue
		}
		version := s.Version
		if version == "" {
			version = "unknown version"
		}
		fmt.Fprintf(&b, "%s %-8s %s %s\n", StyleSuccess.Render("✓"), s.Name, version, StyleSubtle.Render(s.Path))
	}
	return strings.TrimRight(b.String(), "\n")
}
