// Package apperr defines the error taxonomy shared by the transcription
// pipeline: configuration, format, external engine and segment errors.
package apperr

import (
	"errors"
	"fmt"
	"net/http"
)

// Kind groups error codes by how far a failure propagates.
type Kind string

const (
	// KindConfiguration is fatal to the invocation and raised before any
	// expensive resource is acquired.
	KindConfiguration Kind = "configuration"
	// KindFormat is fatal to one input file.
	KindFormat Kind = "format"
	// KindExternalEngine is fatal to one engine call path for one file.
	KindExternalEngine Kind = "external_engine"
	// KindSegment never escapes the assembler.
	KindSegment Kind = "segment"
)

// Code is a machine-readable error code.
type Code string

const (
	CodeConfigInvalid            Code = "CONFIG_INVALID"
	CodeModelLoad                Code = "MODEL_LOAD"
	CodeConfigNotFound           Code = "CONFIG_NOT_FOUND"
	CodeUnsupportedFormat        Code = "UNSUPPORTED_FORMAT"
	CodeFormatMismatch           Code = "FORMAT_MISMATCH"
	CodeEngineFailed             Code = "ENGINE_FAILED"
	CodeDiarizationOutputMissing Code = "DIARIZATION_OUTPUT_MISSING"
	CodeSegmentDropped           Code = "SEGMENT_DROPPED"
)

var codeKinds = map[Code]Kind{
	CodeConfigInvalid:            KindConfiguration,
	CodeModelLoad:                KindConfiguration,
	CodeConfigNotFound:           KindConfiguration,
	CodeUnsupportedFormat:        KindFormat,
	CodeFormatMismatch:           KindFormat,
	CodeEngineFailed:             KindExternalEngine,
	CodeDiarizationOutputMissing: KindExternalEngine,
	CodeSegmentDropped:           KindSegment,
}

// AppError is the error type returned across package boundaries.
type AppError struct {
	Code    Code
	Kind    Kind
	Message string
	Details map[string]any
	Cause   error
}

func (e *AppError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("%s: %s: %v", e.Code, e.Message, e.Cause)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

func (e *AppError) Unwrap() error { return e.Cause }

// WithCause sets the underlying cause and returns the receiver.
func (e *AppError) WithCause(cause error) *AppError {
	e.Cause = cause
	return e
}

// WithDetail sets a single detail key-value pair and returns the receiver.
func (e *AppError) WithDetail(key string, value any) *AppError {
	if e.Details == nil {
		e.Details = make(map[string]any)
	}
	e.Details[key] = value
	return e
}

// HTTPStatus returns the status the web layer reports for this error.
func (e *AppError) HTTPStatus() int {
	switch e.Kind {
	case KindConfiguration:
		return http.StatusBadRequest
	case KindFormat:
		return http.StatusUnprocessableEntity
	case KindExternalEngine:
		return http.StatusBadGateway
	default:
		return http.StatusInternalServerError
	}
}

// New creates an AppError whose kind is derived from code.
func New(code Code, format string, args ...any) *AppError {
	return &AppError{
		Code:    code,
		Kind:    codeKinds[code],
		Message: fmt.Sprintf(format, args...),
	}
}

// ConfigInvalid reports a bad flag or setting.
func ConfigInvalid(field, reason string) *AppError {
	return New(CodeConfigInvalid, "invalid %s: %s", field, reason).WithDetail("field", field)
}

// ModelLoad reports a model triple outside the supported catalog.
func ModelLoad(language, architecture, model string) *AppError {
	return New(CodeModelLoad, "model %q is not available for language %q with %s decoding", model, language, architecture).
		WithDetail("language", language).
		WithDetail("architecture", architecture).
		WithDetail("model", model)
}

// ConfigNotFound reports a missing external configuration resource.
func ConfigNotFound(path string) *AppError {
	return New(CodeConfigNotFound, "configuration file not found: %s", path).WithDetail("path", path)
}

// UnsupportedFormat reports audio that could not be decoded.
func UnsupportedFormat(path string, cause error) *AppError {
	return New(CodeUnsupportedFormat, "cannot decode audio %s", path).WithDetail("path", path).WithCause(cause)
}

// FormatMismatch reports audio that is not 16 kHz mono after normalization.
func FormatMismatch(path string, sampleRate, channels int) *AppError {
	return New(CodeFormatMismatch, "%s is %d Hz with %d channel(s), want 16000 Hz mono", path, sampleRate, channels).
		WithDetail("path", path).
		WithDetail("sample_rate", sampleRate).
		WithDetail("channels", channels)
}

// EngineFailed reports a failure inside an external engine.
func EngineFailed(engine string, cause error) *AppError {
	return New(CodeEngineFailed, "%s failed", engine).WithDetail("engine", engine).WithCause(cause)
}

// DiarizationOutputMissing reports that the diarization engine produced no
// boundary file.
func DiarizationOutputMissing(path string) *AppError {
	return New(CodeDiarizationOutputMissing, "diarization output not found: %s", path).WithDetail("path", path)
}

// SegmentDropped records a segment that produced no transcript entry.
func SegmentDropped(speaker string, start, end float64, reason string) *AppError {
	return New(CodeSegmentDropped, "segment [%s] %.2f-%.2fs dropped: %s", speaker, start, end, reason)
}

// As returns the first AppError in err's chain.
func As(err error) (*AppError, bool) {
	var appErr *AppError
	if errors.As(err, &appErr) {
		return appErr, true
	}
	return nil, false
}

// HasCode reports whether err's chain contains an AppError with code.
func HasCode(err error, code Code) bool {
	appErr, ok := As(err)
	return ok && appErr.Code == code
}

// IsKind reports whether err's chain contains an AppError of kind.
func IsKind(err error, kind Kind) bool {
	appErr, ok := As(err)
	return ok && appErr.Kind == kind
}

// KindOf returns the kind of err, or "" when err is not an AppError.
func KindOf(err error) Kind {
	if appErr, ok := As(err); ok {
		return appErr.Kind
	}
	return ""
}
