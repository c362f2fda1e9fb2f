// Package transcript holds diarization boundaries and the speaker-labelled
// transcripts assembled from them.
package transcript

import (
	"fmt"
	"strings"
)

// Segment is one speaker-attributed interval in seconds.
type Segment struct {
	Start   float64
	End     float64
	Speaker string
}

// Entry is one line of a transcript. Whole-file transcripts carry only Text.
type Entry struct {
	Speaker string
	Start   *float64
	End     *float64
	Text    string
}

// Timed reports whether the entry carries a speaker interval.
func (e Entry) Timed() bool {
	return e.Start != nil && e.End != nil
}

// String renders "[spk] 1.50-3.50s: text" for timed entries and the bare
// text otherwise.
func (e Entry) String() string {
	if !e.Timed() {
		return e.Text
	}
	return fmt.Sprintf("[%s] %.2f-%.2fs: %s", e.Speaker, *e.Start, *e.End, e.Text)
}

// Transcript is an ordered, append-only list of entries.
type Transcript struct {
	entries []Entry
}

// Plain wraps a whole-file transcription.
func Plain(text string) Transcript {
	return Transcript{entries: []Entry{{Text: text}}}
}

// FromSegment builds a timed entry keeping the segment's original bounds.
func FromSegment(seg Segment, text string) Entry {
	start, end := seg.Start, seg.End
	return Entry{Speaker: seg.Speaker, Start: &start, End: &end, Text: text}
}

// Builder accumulates entries in order.
type Builder struct {
	entries []Entry
}

func (b *Builder) Add(e Entry) {
	b.entries = append(b.entries, e)
}

// Transcript freezes the entries collected so far.
func (b *Builder) Transcript() Transcript {
	out := make([]Entry, len(b.entries))
	copy(out, b.entries)
	return Transcript{entries: out}
}

// Entries returns a copy of the entries.
func (t Transcript) Entries() []Entry {
	out := make([]Entry, len(t.entries))
	copy(out, t.entries)
	return out
}

func (t Transcript) Len() int { return len(t.entries) }

func (t Transcript) Empty() bool { return len(t.entries) == 0 }

// Format renders one entry per line.
func (t Transcript) Format() string {
	lines := make([]string, len(t.entries))
	for i, e := range t.entries {
		lines[i] = e.String()
	}
	return strings.Join(lines, "\n")
}
