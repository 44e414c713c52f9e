package catalog

import (
	_ "embed"
	"fmt"
	"os"

	"gopkg.in/yaml.v3"

	"catalogscan/internal/textutil"
)

//go:embed default_vocabulary.yaml
var defaultVocabularyYAML []byte

// Field names one closed-vocabulary classification field.
type Field string

const (
	FieldCategory Field = "category"
	FieldStyle    Field = "style"
	FieldMaterial Field = "material"
	FieldColor    Field = "color"
	FieldGender   Field = "gender"
)

// Fields lists the classification fields in export order.
var Fields = []Field{FieldCategory, FieldStyle, FieldMaterial, FieldColor, FieldGender}

// Vocabulary is the set of allowed values per classification field. It is
// immutable after construction.
type Vocabulary struct {
	values map[Field][]string
	exact  map[Field]map[string]struct{}
	folded map[Field]map[string]string
}

type vocabularyFile struct {
	Category []string `yaml:"category"`
	Style    []string `yaml:"style"`
	Material []string `yaml:"material"`
	Color    []string `yaml:"color"`
	Gender   []string `yaml:"gender"`
}

// DefaultVocabulary returns the built-in vocabulary.
func DefaultVocabulary() *Vocabulary {
	vocab, err := ParseVocabulary(defaultVocabularyYAML)
	if err != nil {
		panic(fmt.Sprintf("built-in vocabulary is invalid: %v", err))
	}
	return vocab
}

// LoadVocabulary reads a YAML vocabulary file. An empty path yields the
// built-in vocabulary.
func LoadVocabulary(path string) (*Vocabulary, error) {
	if path == "" {
		return DefaultVocabulary(), nil
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read vocabulary: %w", err)
	}
	vocab, err := ParseVocabulary(data)
	if err != nil {
		return nil, fmt.Errorf("vocabulary %s: %w", path, err)
	}
	return vocab, nil
}

// ParseVocabulary decodes and validates a YAML vocabulary document. Every
// field must list at least one value and values must stay distinct after
// case and accent folding.
func ParseVocabulary(data []byte) (*Vocabulary, error) {
	var file vocabularyFile
	if err := yaml.Unmarshal(data, &file); err != nil {
		return nil, fmt.Errorf("parse vocabulary: %w", err)
	}
	return NewVocabulary(map[Field][]string{
		FieldCategory: file.Category,
		FieldStyle:    file.Style,
		FieldMaterial: file.Material,
		FieldColor:    file.Color,
		FieldGender:   file.Gender,
	})
}

// NewVocabulary builds a vocabulary from explicit value lists.
func NewVocabulary(values map[Field][]string) (*Vocabulary, error) {
	v := &Vocabulary{
		values: make(map[Field][]string, len(Fields)),
		exact:  make(map[Field]map[string]struct{}, len(Fields)),
		folded: make(map[Field]map[string]string, len(Fields)),
	}
	for _, field := range Fields {
		list := values[field]
		if len(list) == 0 {
			return nil, fmt.Errorf("%s: at least one value required", field)
		}
		v.values[field] = append([]string(nil), list...)
		v.exact[field] = make(map[string]struct{}, len(list))
		v.folded[field] = make(map[string]string, len(list))
		for _, value := range list {
			if value == "" {
				return nil, fmt.Errorf("%s: empty value", field)
			}
			key := textutil.Fold(value)
			if prev, ok := v.folded[field][key]; ok {
				return nil, fmt.Errorf("%s: %q and %q are indistinguishable", field, prev, value)
			}
			v.exact[field][value] = struct{}{}
			v.folded[field][key] = value
		}
	}
	return v, nil
}

// Contains reports exact membership.
func (v *Vocabulary) Contains(field Field, value string) bool {
	_, ok := v.exact[field][value]
	return ok
}

// Canonical returns the vocabulary spelling of value when it matches an
// entry up to case, accents, and surrounding whitespace.
func (v *Vocabulary) Canonical(field Field, value string) (string, bool) {
	canonical, ok := v.folded[field][textutil.Fold(value)]
	return canonical, ok
}

// Suggest returns the closest vocabulary entry to value, or "" when nothing
// shares a token with it.
func (v *Vocabulary) Suggest(field Field, value string) string {
	return textutil.Nearest(value, v.values[field])
}

// Values returns a copy of the allowed values for field.
func (v *Vocabulary) Values(field Field) []string {
	return append([]string(nil), v.values[field]...)
}

// DefaultVocabularyYAML returns a copy of the built-in vocabulary document,
// suitable as a starting point for an override file.
func DefaultVocabularyYAML() []byte {
	return append([]byte(nil), defaultVocabularyYAML...)
}
