package web

import (
	"errors"
	"strings"
	"sync"

	"github.com/go-playground/validator/v10"
	"github.com/leonardotrapani/diarscribe/internal/apperr"
	"github.com/leonardotrapani/diarscribe/internal/catalog"
)

var (
	validate     *validator.Validate
	validateOnce sync.Once
)

func getValidator() *validator.Validate {
	validateOnce.Do(func() {
		validate = validator.New(validator.WithRequiredStructEnabled())
	})
	return validate
}

// processForm is the body of POST /process.
type processForm struct {
	Language  string `form:"language" validate:"required,oneof=ru en"`
	ModelName string `form:"model_name" validate:"required,max=128"`
	ModelType string `form:"model_type" validate:"omitempty,oneof=transducer ctc"`
	// set when the diarization checkbox is present
	Diarization bool `form:"-"`
}

// spec validates the form and resolves it against the catalog. A missing
// model_type is inferred from the model name.
func (f *processForm) spec() (catalog.ModelSpec, error) {
	if f.Language == "" {
		f.Language = string(catalog.Russian)
	}
	f.ModelName = strings.TrimSpace(f.ModelName)

	if err := getValidator().Struct(f); err != nil {
		return catalog.ModelSpec{}, formError(err)
	}

	arch := catalog.InferArchitecture(f.ModelName)
	if f.ModelType != "" {
		arch = catalog.Architecture(f.ModelType)
	}
	spec := catalog.ModelSpec{Language: catalog.Language(f.Language), Architecture: arch, Name: f.ModelName}
	if err := catalog.Validate(spec); err != nil {
		return catalog.ModelSpec{}, err
	}
	return spec, nil
}

var formFields = map[string]string{
	"Language":  "language",
	"ModelName": "model_name",
	"ModelType": "model_type",
}

func formError(err error) error {
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) || len(verrs) == 0 {
		return apperr.ConfigInvalid("form", err.Error())
	}
	e := verrs[0]
	field := formFields[e.Field()]

	switch e.Tag() {
	case "required":
		return apperr.ConfigInvalid(field, "is required")
	case "oneof":
		return apperr.ConfigInvalid(field, "must be one of: "+e.Param())
	case "max":
		return apperr.ConfigInvalid(field, "must be at most "+e.Param()+" characters")
	}
	return apperr.ConfigInvalid(field, "is invalid")
}

// batchArgs builds the command line for one batch run.
func batchArgs(configPath string, spec catalog.ModelSpec, diarization bool) []string {
	args := []string{}
	if configPath != "" {
		args = append(args, "--config", configPath)
	}
	args = append(args,
		"--language", string(spec.Language),
		"--model_name", spec.Name,
		"--"+string(spec.Architecture),
	)
	if diarization {
		args = append(args, "--diarization")
	}
	return args
}
