package assembler

import (
	"context"
	"errors"
	"fmt"
	"math/rand"
	"testing"

	"github.com/leonardotrapani/diarscribe/internal/audio"
	"github.com/leonardotrapani/diarscribe/internal/logger"
	"github.com/leonardotrapani/diarscribe/internal/transcript"
)

// scriptedTranscriber answers by call index and records slice lengths.
type scriptedTranscriber struct {
	texts   map[int]string
	errs    map[int]error
	lengths []int
	fn      func(buf *audio.Buffer) (string, error)
}

func (s *scriptedTranscriber) Transcribe(ctx context.Context, buf *audio.Buffer) (string, error) {
	i := len(s.lengths)
	s.lengths = append(s.lengths, buf.Len())
	if s.fn != nil {
		return s.fn(buf)
	}
	if err, ok := s.errs[i]; ok {
		return "", err
	}
	if text, ok := s.texts[i]; ok {
		return text, nil
	}
	return fmt.Sprintf("text %d", i), nil
}

func fiveSeconds() *audio.Buffer {
	return &audio.Buffer{Samples: make([]float32, 5*16000), SampleRate: 16000, Channels: 1}
}

func TestAssemble_ZeroLengthSecondSegment(t *testing.T) {
	tr := &scriptedTranscriber{texts: map[int]string{0: "hello"}}
	segs := []transcript.Segment{
		{Start: 0.0, End: 2.0, Speaker: "spk0"},
		{Start: 2.0, End: 2.0, Speaker: "spk1"},
	}

	got := New(logger.Nop()).Assemble(context.Background(), fiveSeconds(), segs, tr)

	if len(tr.lengths) != 1 || tr.lengths[0] != 32000 {
		t.Fatalf("transcribed slices = %v, want [32000]", tr.lengths)
	}
	entries := got.Entries()
	if len(entries) != 1 {
		t.Fatalf("entries = %d, want 1", len(entries))
	}
	if entries[0].Speaker != "spk0" || entries[0].Text != "hello" {
		t.Errorf("entry = %+v", entries[0])
	}
	if got.Format() != "[spk0] 0.00-2.00s: hello" {
		t.Errorf("Format() = %q", got.Format())
	}
}

func TestAssemble_DropRules(t *testing.T) {
	tests := []struct {
		name        string
		segs        []transcript.Segment
		tr          *scriptedTranscriber
		wantEntries int
		wantSlices  []int
		check       func(t *testing.T, s Stats)
	}{
		{
			name:        "beyond end",
			segs:        []transcript.Segment{{Start: 5.0, End: 6.0, Speaker: "a"}, {Start: 7, End: 8, Speaker: "b"}},
			tr:          &scriptedTranscriber{},
			wantEntries: 0,
			wantSlices:  nil,
			check: func(t *testing.T, s Stats) {
				if s.OutOfRange != 2 {
					t.Errorf("OutOfRange = %d", s.OutOfRange)
				}
			},
		},
		{
			name:        "end clipped to recording",
			segs:        []transcript.Segment{{Start: 4.0, End: 9.0, Speaker: "a"}},
			tr:          &scriptedTranscriber{},
			wantEntries: 1,
			wantSlices:  []int{16000},
		},
		{
			name:        "inverted interval",
			segs:        []transcript.Segment{{Start: 3.0, End: 1.0, Speaker: "a"}},
			tr:          &scriptedTranscriber{},
			wantEntries: 0,
			check: func(t *testing.T, s Stats) {
				if s.EmptySlice != 1 {
					t.Errorf("EmptySlice = %d", s.EmptySlice)
				}
			},
		},
		{
			name:        "empty text dropped",
			segs:        []transcript.Segment{{Start: 0, End: 1, Speaker: "a"}, {Start: 1, End: 2, Speaker: "b"}},
			tr:          &scriptedTranscriber{texts: map[int]string{0: ""}},
			wantEntries: 1,
			wantSlices:  []int{16000, 16000},
			check: func(t *testing.T, s Stats) {
				if s.NoSpeech != 1 {
					t.Errorf("NoSpeech = %d", s.NoSpeech)
				}
			},
		},
		{
			name:        "failure isolated",
			segs:        []transcript.Segment{{Start: 0, End: 1, Speaker: "a"}, {Start: 1, End: 2, Speaker: "b"}, {Start: 2, End: 3, Speaker: "c"}},
			tr:          &scriptedTranscriber{errs: map[int]error{1: errors.New("worker crashed")}},
			wantEntries: 2,
			wantSlices:  []int{16000, 16000, 16000},
			check: func(t *testing.T, s Stats) {
				if s.Failed != 1 || s.Dropped() != 1 {
					t.Errorf("Failed = %d, Dropped = %d", s.Failed, s.Dropped())
				}
			},
		},
		{
			name:        "rounding to nearest sample",
			segs:        []transcript.Segment{{Start: 0.00003, End: 0.00009, Speaker: "a"}},
			tr:          &scriptedTranscriber{},
			wantEntries: 1,
			wantSlices:  []int{1},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, stats := New(logger.Nop()).AssembleStats(context.Background(), fiveSeconds(), tt.segs, tt.tr)
			if got.Len() != tt.wantEntries {
				t.Errorf("entries = %d, want %d", got.Len(), tt.wantEntries)
			}
			if fmt.Sprint(tt.tr.lengths) != fmt.Sprint(tt.wantSlices) && !(len(tt.tr.lengths) == 0 && len(tt.wantSlices) == 0) {
				t.Errorf("slices = %v, want %v", tt.tr.lengths, tt.wantSlices)
			}
			if tt.check != nil {
				tt.check(t, stats)
			}
		})
	}
}

func TestAssemble_AllDroppedIsEmptyNotError(t *testing.T) {
	tr := &scriptedTranscriber{fn: func(*audio.Buffer) (string, error) { return "", nil }}
	segs := []transcript.Segment{{Start: 0, End: 1, Speaker: "a"}, {Start: 1, End: 2, Speaker: "b"}}

	got := New(logger.Nop()).Assemble(context.Background(), fiveSeconds(), segs, tr)
	if !got.Empty() {
		t.Errorf("expected empty transcript, got %q", got.Format())
	}
}

func TestAssemble_KeepsUnclampedBounds(t *testing.T) {
	segs := []transcript.Segment{{Start: 4.5, End: 12.25, Speaker: "spk3"}}
	got := New(logger.Nop()).Assemble(context.Background(), fiveSeconds(), segs, &scriptedTranscriber{})

	e := got.Entries()[0]
	if *e.Start != 4.5 || *e.End != 12.25 {
		t.Errorf("bounds = %v-%v, want 4.5-12.25", *e.Start, *e.End)
	}
}

func TestAssemble_OverlapsNotReordered(t *testing.T) {
	segs := []transcript.Segment{
		{Start: 1.0, End: 3.0, Speaker: "b"},
		{Start: 0.5, End: 2.0, Speaker: "a"},
		{Start: 2.5, End: 4.0, Speaker: "c"},
	}
	got := New(logger.Nop()).Assemble(context.Background(), fiveSeconds(), segs, &scriptedTranscriber{})

	var speakers string
	for _, e := range got.Entries() {
		speakers += e.Speaker
	}
	if speakers != "bac" {
		t.Errorf("order = %q, want input order bac", speakers)
	}
}

func TestAssemble_CancelledContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	tr := &scriptedTranscriber{fn: func(*audio.Buffer) (string, error) {
		cancel()
		return "first", nil
	}}
	segs := []transcript.Segment{{Start: 0, End: 1, Speaker: "a"}, {Start: 1, End: 2, Speaker: "b"}}

	got, stats := New(logger.Nop()).AssembleStats(ctx, fiveSeconds(), segs, tr)
	if got.Len() != 1 || !stats.Interrupted {
		t.Errorf("entries = %d, interrupted = %v", got.Len(), stats.Interrupted)
	}
}

func TestAssemble_ContextEndsDuringLastSegment(t *testing.T) {
	segs := []transcript.Segment{{Start: 0, End: 1, Speaker: "a"}, {Start: 1, End: 2, Speaker: "b"}}

	tests := []struct {
		name        string
		lastErr     error
		wantEntries int
		wantFailed  int
	}{
		{"last segment returns text", nil, 2, 0},
		{"last segment fails", context.DeadlineExceeded, 1, 1},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ctx, cancel := context.WithCancel(context.Background())
			defer cancel()
			calls := 0
			tr := &scriptedTranscriber{fn: func(*audio.Buffer) (string, error) {
				calls++
				if calls < len(segs) {
					return "early", nil
				}
				cancel()
				if tt.lastErr != nil {
					return "", tt.lastErr
				}
				return "late", nil
			}}

			got, stats := New(logger.Nop()).AssembleStats(ctx, fiveSeconds(), segs, tr)
			if !stats.Interrupted {
				t.Error("Interrupted = false after ctx ended during the last segment")
			}
			if got.Len() != tt.wantEntries || stats.Failed != tt.wantFailed {
				t.Errorf("entries = %d failed = %d, want %d and %d", got.Len(), stats.Failed, tt.wantEntries, tt.wantFailed)
			}
		})
	}
}

func TestAssemble_CompletedNotInterrupted(t *testing.T) {
	tr := &scriptedTranscriber{fn: func(*audio.Buffer) (string, error) { return "ok", nil }}
	segs := []transcript.Segment{{Start: 0, End: 1, Speaker: "a"}}

	_, stats := New(logger.Nop()).AssembleStats(context.Background(), fiveSeconds(), segs, tr)
	if stats.Interrupted {
		t.Error("Interrupted = true for a completed run")
	}
}

// Random segment lists: entries never outnumber segments, each entry maps
// to one input segment, and order is a subsequence of the input.
func TestAssemble_Properties(t *testing.T) {
	rng := rand.New(rand.NewSource(7))
	buf := fiveSeconds()

	for iter := 0; iter < 200; iter++ {
		n := rng.Intn(12)
		segs := make([]transcript.Segment, n)
		for i := range segs {
			start := rng.Float64() * 7
			segs[i] = transcript.Segment{
				Start:   start,
				End:     start + rng.Float64()*3 - 0.5,
				Speaker: fmt.Sprintf("spk%d", i),
			}
		}

		tr := &scriptedTranscriber{fn: func(b *audio.Buffer) (string, error) {
			switch rng.Intn(4) {
			case 0:
				return "", nil
			case 1:
				return "", errors.New("boom")
			}
			return "words", nil
		}}

		got := New(logger.Nop()).Assemble(context.Background(), buf, segs, tr)
		entries := got.Entries()
		if len(entries) > len(segs) {
			t.Fatalf("iter %d: %d entries from %d segments", iter, len(entries), len(segs))
		}

		next := 0
		for _, e := range entries {
			found := false
			for next < len(segs) {
				s := segs[next]
				next++
				if s.Speaker == e.Speaker && s.Start == *e.Start && s.End == *e.End {
					found = true
					break
				}
			}
			if !found {
				t.Fatalf("iter %d: entry %+v is not an in-order input segment", iter, e)
			}

			startIdx := sampleIndex(*e.Start, buf.SampleRate)
			if startIdx >= buf.Len() {
				t.Fatalf("iter %d: out-of-range segment produced an entry", iter)
			}
		}
	}
}
