package apperr

import (
	"errors"
	"fmt"
	"net/http"
	"testing"
)

func TestNew_DerivesKind(t *testing.T) {
	tests := []struct {
		code Code
		kind Kind
	}{
		{CodeConfigInvalid, KindConfiguration},
		{CodeModelLoad, KindConfiguration},
		{CodeConfigNotFound, KindConfiguration},
		{CodeUnsupportedFormat, KindFormat},
		{CodeFormatMismatch, KindFormat},
		{CodeEngineFailed, KindExternalEngine},
		{CodeDiarizationOutputMissing, KindExternalEngine},
		{CodeSegmentDropped, KindSegment},
	}

	for _, tt := range tests {
		t.Run(string(tt.code), func(t *testing.T) {
			err := New(tt.code, "boom")
			if err.Kind != tt.kind {
				t.Errorf("Kind = %q, want %q", err.Kind, tt.kind)
			}
		})
	}
}

func TestHasCode_ThroughWrapping(t *testing.T) {
	base := ModelLoad("en", "transducer", "nonexistent_model")
	wrapped := fmt.Errorf("start engine: %w", base)

	if !HasCode(wrapped, CodeModelLoad) {
		t.Error("HasCode should find MODEL_LOAD through fmt.Errorf wrapping")
	}
	if HasCode(wrapped, CodeFormatMismatch) {
		t.Error("HasCode matched the wrong code")
	}
	if !IsKind(wrapped, KindConfiguration) {
		t.Error("ModelLoad should be a configuration error")
	}
	if HasCode(errors.New("plain"), CodeModelLoad) {
		t.Error("plain errors carry no code")
	}
}

func TestWithCause_Unwraps(t *testing.T) {
	cause := errors.New("ffmpeg exited 1")
	err := UnsupportedFormat("a.mp3", cause)

	if !errors.Is(err, cause) {
		t.Error("errors.Is should reach the cause")
	}
	if err.Details["path"] != "a.mp3" {
		t.Errorf("path detail = %v", err.Details["path"])
	}
}

func TestHTTPStatus(t *testing.T) {
	tests := []struct {
		err  *AppError
		want int
	}{
		{ConfigInvalid("model_name", "required"), http.StatusBadRequest},
		{FormatMismatch("a.wav", 44100, 2), http.StatusUnprocessableEntity},
		{DiarizationOutputMissing("x.rttm"), http.StatusBadGateway},
		{SegmentDropped("spk0", 0, 1, "empty"), http.StatusInternalServerError},
	}

	for _, tt := range tests {
		if got := tt.err.HTTPStatus(); got != tt.want {
			t.Errorf("%s: HTTPStatus() = %d, want %d", tt.err.Code, got, tt.want)
		}
	}
}

func TestKindOf_Plain(t *testing.T) {
	if got := KindOf(errors.New("x")); got != "" {
		t.Errorf("KindOf(plain) = %q, want empty", got)
	}
}
