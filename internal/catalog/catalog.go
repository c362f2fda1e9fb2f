// Package catalog lists the pretrained acoustic models the engine accepts,
// keyed by language and decoding architecture.
package catalog

import (
	"sort"
	"strings"

	"github.com/leonardotrapani/diarscribe/internal/apperr"
)

// Language is a transcription language code.
type Language string

const (
	Russian Language = "ru"
	English Language = "en"
)

// Architecture is the decoder family of a model.
type Architecture string

const (
	Transducer Architecture = "transducer"
	CTC        Architecture = "ctc"
)

// Languages in display order.
var Languages = []Language{Russian, English}

// Architectures in display order.
var Architectures = []Architecture{Transducer, CTC}

var languageNames = map[Language]string{
	Russian: "Russian",
	English: "English",
}

// Name returns the display name of l.
func (l Language) Name() string {
	if name, ok := languageNames[l]; ok {
		return name
	}
	return string(l)
}

// ModelSpec selects one pretrained model.
type ModelSpec struct {
	Language     Language
	Architecture Architecture
	Name         string
}

type key struct {
	lang Language
	arch Architecture
}

// pretrained NeMo ASR checkpoints
var models = map[key][]string{
	{Russian, Transducer}: {
		"stt_ru_conformer_transducer_large",
	},
	{Russian, CTC}: {
		"stt_ru_conformer_ctc_large",
	},
	{English, Transducer}: {
		"stt_en_conformer_transducer_large",
		"stt_en_conformer_transducer_large_ls",
		"stt_en_conformer_transducer_medium",
		"stt_en_conformer_transducer_small",
		"stt_en_conformer_transducer_xlarge",
		"stt_en_conformer_transducer_xxlarge",
		"stt_en_contextnet_1024",
		"stt_en_contextnet_1024_mls",
		"stt_en_contextnet_256",
		"stt_en_contextnet_256_mls",
		"stt_en_contextnet_512",
		"stt_en_contextnet_512_mls",
		"stt_en_fastconformer_transducer_large",
		"stt_en_fastconformer_transducer_large_ls",
		"stt_en_fastconformer_transducer_xlarge",
		"stt_en_fastconformer_transducer_xxlarge",
		"stt_enes_conformer_transducer_large",
		"stt_enes_conformer_transducer_large_codesw",
		"stt_enes_contextnet_large",
	},
	{English, CTC}: {
		"stt_en_citrinet_1024",
		"stt_en_citrinet_1024_gamma_0_25",
		"stt_en_citrinet_256",
		"stt_en_citrinet_256_gamma_0_25",
		"stt_en_citrinet_512",
		"stt_en_citrinet_512_gamma_0_25",
		"stt_en_conformer_ctc_large",
		"stt_en_conformer_ctc_large_ls",
		"stt_en_conformer_ctc_medium",
		"stt_en_conformer_ctc_medium_ls",
		"stt_en_conformer_ctc_small",
		"stt_en_conformer_ctc_small_ls",
		"stt_en_conformer_ctc_xlarge",
		"stt_en_fastconformer_ctc_large",
		"stt_en_fastconformer_ctc_large_ls",
		"stt_en_fastconformer_ctc_xlarge",
		"stt_en_fastconformer_ctc_xxlarge",
		"stt_en_squeezeformer_ctc_large_ls",
		"stt_en_squeezeformer_ctc_medium_large_ls",
		"stt_en_squeezeformer_ctc_medium_ls",
		"stt_en_squeezeformer_ctc_small_ls",
		"stt_en_squeezeformer_ctc_small_medium_ls",
		"stt_en_squeezeformer_ctc_xsmall_ls",
		"stt_enes_conformer_ctc_large",
		"stt_enes_conformer_ctc_large_codesw",
		"stt_fr_no_hyphen_citrinet_1024_gamma_0_25",
		"stt_fr_no_hyphen_conformer_ctc_large",
	},
}

// modelIndex answers membership without scanning the lists
var modelIndex = func() map[key]map[string]bool {
	idx := make(map[key]map[string]bool, len(models))
	for k, names := range models {
		set := make(map[string]bool, len(names))
		for _, n := range names {
			set[n] = true
		}
		idx[k] = set
	}
	return idx
}()

// ParseLanguage validates a language code.
func ParseLanguage(s string) (Language, error) {
	l := Language(strings.ToLower(strings.TrimSpace(s)))
	if _, ok := languageNames[l]; !ok {
		return "", apperr.ConfigInvalid("language", "must be one of ru, en (got: "+s+")")
	}
	return l, nil
}

// ParseArchitecture validates an architecture name.
func ParseArchitecture(s string) (Architecture, error) {
	switch a := Architecture(strings.ToLower(strings.TrimSpace(s))); a {
	case Transducer, CTC:
		return a, nil
	}
	return "", apperr.ConfigInvalid("architecture", "must be transducer or ctc (got: "+s+")")
}

// Validate checks spec against the catalog. It never touches disk or network.
func Validate(spec ModelSpec) error {
	if spec.Name == "" {
		return apperr.ConfigInvalid("model_name", "required")
	}
	if !modelIndex[key{spec.Language, spec.Architecture}][spec.Name] {
		return apperr.ModelLoad(string(spec.Language), string(spec.Architecture), spec.Name)
	}
	return nil
}

// Models returns the model names for a language and architecture, sorted.
func Models(lang Language, arch Architecture) []string {
	names := models[key{lang, arch}]
	out := make([]string, len(names))
	copy(out, names)
	sort.Strings(out)
	return out
}

// Lookup finds the language and architecture a model name belongs to.
func Lookup(name string) (ModelSpec, bool) {
	for _, lang := range Languages {
		for _, arch := range Architectures {
			if modelIndex[key{lang, arch}][name] {
				return ModelSpec{Language: lang, Architecture: arch, Name: name}, true
			}
		}
	}
	return ModelSpec{}, false
}

// transducerMarkers identify transducer checkpoints by name
var transducerMarkers = []string{"conformer_transducer", "contextnet", "fastconformer_transducer"}

// InferArchitecture guesses the architecture from a model name. The web form
// uses it when the client omits the architecture.
func InferArchitecture(name string) Architecture {
	for _, m := range transducerMarkers {
		if strings.Contains(name, m) {
			return Transducer
		}
	}
	return CTC
}
