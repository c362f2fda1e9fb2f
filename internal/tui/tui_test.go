package tui

import (
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/leonardotrapani/diarscribe/internal/batch"
	"github.com/leonardotrapani/diarscribe/internal/catalog"
	"github.com/leonardotrapani/diarscribe/internal/config"
	"github.com/leonardotrapani/diarscribe/internal/deps"
)

func TestValidators(t *testing.T) {
	tests := []struct {
		name    string
		fn      func(string) error
		input   string
		wantErr bool
	}{
		{"port ok", validatePort, "5000", false},
		{"port zero", validatePort, "0", true},
		{"port text", validatePort, "http", true},
		{"port too big", validatePort, "65536", true},
		{"duration ok", validateDuration, "30m", false},
		{"duration zero", validateDuration, "0s", false},
		{"duration negative", validateDuration, "-1s", true},
		{"duration bare number", validateDuration, "30", true},
		{"positive zero", validatePositiveDuration, "0s", true},
		{"positive ok", validatePositiveDuration, "2h", false},
		{"not empty", notEmpty, "  ", true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.fn(tt.input)
			if (err != nil) != tt.wantErr {
				t.Errorf("%q: err = %v, wantErr %v", tt.input, err, tt.wantErr)
			}
		})
	}
}

func TestModelOptions(t *testing.T) {
	opts := modelOptions(catalog.English, catalog.CTC)
	if len(opts) != len(catalog.Models(catalog.English, catalog.CTC)) {
		t.Fatalf("got %d options", len(opts))
	}
	if !hasOption(opts, "stt_en_conformer_ctc_large") {
		t.Error("missing stt_en_conformer_ctc_large")
	}
	if hasOption(opts, "stt_en_conformer_transducer_large") {
		t.Error("transducer model listed under ctc")
	}

	ru := modelOptions(catalog.Russian, catalog.Transducer)
	if len(ru) != 1 || ru[0].Value != "stt_ru_conformer_transducer_large" {
		t.Errorf("ru transducer options = %v", ru)
	}
}

func TestRenderReport(t *testing.T) {
	r := &batch.Report{
		Found:     3,
		Processed: 2,
		Artifacts: []string{"a.txt", "c.txt"},
		Failed:    []batch.FileFailure{{File: "b.wav", Stage: "normalize", Err: errors.New("cannot decode")}},
		Duration:  1500 * time.Millisecond,
	}

	out := RenderReport(r)
	for _, want := range []string{"2/3", "1 failed", "a.txt", "c.txt", "b.wav", "normalize: cannot decode"} {
		if !strings.Contains(out, want) {
			t.Errorf("report missing %q:\n%s", want, out)
		}
	}

	if out := RenderReport(&batch.Report{}); !strings.Contains(out, "No audio files") {
		t.Errorf("empty report = %q", out)
	}
}

func TestRenderCatalog_Filters(t *testing.T) {
	out := RenderCatalog(catalog.Russian, "")
	if !strings.Contains(out, "stt_ru_conformer_ctc_large") || strings.Contains(out, "stt_en_") {
		t.Errorf("ru catalog:\n%s", out)
	}

	out = RenderCatalog("", catalog.Transducer)
	if strings.Contains(out, "stt_ru_conformer_ctc_large") || !strings.Contains(out, "stt_en_contextnet_256") {
		t.Errorf("transducer catalog:\n%s", out)
	}
}

func TestRenderDoctor(t *testing.T) {
	out := RenderDoctor([]deps.Status{
		{Name: "ffmpeg", Installed: true, Path: "/usr/bin/ffmpeg", Version: "ffmpeg version 6.1"},
		{Name: "nemo"},
	})
	if !strings.Contains(out, "ffmpeg version 6.1") || !strings.Contains(out, "not found") {
		t.Errorf("doctor output:\n%s", out)
	}
}

func TestSummary(t *testing.T) {
	cfg := config.DefaultConfig()
	cfg.Engine.FileTimeout = 20 * time.Minute
	out := Summary(cfg)
	for _, want := range []string{"stt_ru_conformer_transducer_large", "20m0s", "0.0.0.0:5000"} {
		if !strings.Contains(out, want) {
			t.Errorf("summary missing %q", want)
		}
	}
}
