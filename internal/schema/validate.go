package schema

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"sort"
	"strconv"
	"strings"

	"catalogscan/internal/catalog"
	"catalogscan/internal/textutil"
)

// Class is the validator's verdict on a parsed record.
type Class int

const (
	// ClassValid means every classification value is in the vocabulary.
	ClassValid Class = iota
	// ClassRepairable means values were canonicalized to vocabulary spelling.
	ClassRepairable
	// ClassRejected means at least one value is outside the vocabulary.
	ClassRejected
)

func (c Class) String() string {
	switch c {
	case ClassValid:
		return "VALID"
	case ClassRepairable:
		return "REPAIRABLE"
	case ClassRejected:
		return "REJECTED"
	default:
		return "Class(" + strconv.Itoa(int(c)) + ")"
	}
}

// Result carries the parsed record and the verdict. Origin, duration, and
// model are left for the caller to fill in.
type Result struct {
	Record     catalog.Record
	Class      Class
	Repairs    []string
	Violations []catalog.Violation
}

// Validator checks normalized model output against a closed vocabulary.
type Validator struct {
	vocab *catalog.Vocabulary
}

// New returns a Validator for vocab; a nil vocab selects the built-in one.
func New(vocab *catalog.Vocabulary) *Validator {
	if vocab == nil {
		vocab = catalog.DefaultVocabulary()
	}
	return &Validator{vocab: vocab}
}

// Vocabulary returns the vocabulary the validator enforces.
func (v *Validator) Vocabulary() *catalog.Vocabulary {
	return v.vocab
}

type target int

const (
	targetTitle target = iota
	targetCategory
	targetStyle
	targetMaterial
	targetColor
	targetGender
	targetShort
	targetLong
	targetTags
)

type fieldSpec struct {
	name    string
	target  target
	aliases []string
}

// fieldSpecs lists accepted keys per record field, preferred spelling first.
// Keys are compared after folding, so "Título_Producto" matches.
var fieldSpecs = []fieldSpec{
	{"title", targetTitle, []string{"title", "titulo_producto", "titulo", "nombre_producto", "product_title"}},
	{"category", targetCategory, []string{"category", "categoria"}},
	{"style", targetStyle, []string{"style", "estilo"}},
	{"material", targetMaterial, []string{"material", "materiales"}},
	{"color", targetColor, []string{"color", "colour"}},
	{"gender", targetGender, []string{"gender", "genero"}},
	{"short_description", targetShort, []string{"short_description", "descripcion_corta"}},
	{"long_description", targetLong, []string{"long_description", "descripcion_larga"}},
	{"tags", targetTags, []string{"tags", "etiquetas"}},
}

// reservedKeys are record fields the pipeline owns; model-supplied values
// for them are dropped.
var reservedKeys = map[string]struct{}{
	"origin":           {},
	"origen":           {},
	"status":           {},
	"model":            {},
	"duration_seconds": {},
	"diagnostic":       {},
	"extra":            {},
}

// Validate parses text and classifies the record. It returns a
// *SchemaError of kind MALFORMED (zero Result) when the text is not a
// complete catalog object, and of kind ENUM_VIOLATION together with a
// ClassRejected Result holding the raw values otherwise.
func (v *Validator) Validate(text string) (Result, error) {
	obj, err := decodeObject(text)
	if err != nil {
		return Result{}, err
	}

	folded := make(map[string]string, len(obj))
	keys := make([]string, 0, len(obj))
	for key := range obj {
		keys = append(keys, key)
	}
	sort.Strings(keys)
	for _, key := range keys {
		fk := foldKey(key)
		if _, ok := folded[fk]; !ok {
			folded[fk] = key
		}
	}

	var rec catalog.Record
	consumed := make(map[string]struct{}, len(obj))
	var res Result
	for _, spec := range fieldSpecs {
		key, ok := lookup(folded, spec.aliases)
		if !ok {
			return Result{}, malformed(nil, "missing required field %q", spec.name)
		}
		consumed[key] = struct{}{}
		value, err := stringValue(obj[key], spec.target == targetTags)
		if err != nil {
			return Result{}, malformed(err, "field %q", spec.name)
		}
		assign(&rec, spec.target, value)
	}

	for _, key := range keys {
		if _, ok := consumed[key]; ok {
			continue
		}
		if _, ok := reservedKeys[foldKey(key)]; ok {
			res.Repairs = append(res.Repairs, fmt.Sprintf("dropped reserved key %q", key))
			continue
		}
		if rec.Extra == nil {
			rec.Extra = make(map[string]string)
		}
		rec.Extra[key] = extraValue(obj[key])
	}

	for _, field := range catalog.Fields {
		raw := rec.Get(field)
		if v.vocab.Contains(field, raw) {
			continue
		}
		if canonical, ok := v.vocab.Canonical(field, raw); ok {
			rec.Set(field, canonical)
			res.Repairs = append(res.Repairs, fmt.Sprintf("%s: %q -> %q", field, raw, canonical))
			continue
		}
		res.Violations = append(res.Violations, catalog.Violation{
			Field:      field,
			Value:      raw,
			Suggestion: v.vocab.Suggest(field, raw),
		})
	}

	rec.Status = catalog.StatusOK
	res.Record = rec
	switch {
	case len(res.Violations) > 0:
		res.Class = ClassRejected
		return res, &SchemaError{Kind: KindEnumViolation, Violations: res.Violations}
	case len(res.Repairs) > 0:
		res.Class = ClassRepairable
	default:
		res.Class = ClassValid
	}
	return res, nil
}

func decodeObject(text string) (map[string]any, error) {
	trimmed := strings.TrimSpace(text)
	if trimmed == "" {
		return nil, malformed(nil, "empty response")
	}
	if !strings.HasPrefix(trimmed, "{") {
		return nil, malformed(nil, "response is not a JSON object")
	}
	dec := json.NewDecoder(strings.NewReader(trimmed))
	dec.UseNumber()
	var obj map[string]any
	if err := dec.Decode(&obj); err != nil {
		return nil, malformed(err, "invalid JSON")
	}
	if _, err := dec.Token(); !errors.Is(err, io.EOF) {
		return nil, malformed(nil, "trailing data after JSON object")
	}
	return obj, nil
}

func foldKey(key string) string {
	return strings.ReplaceAll(textutil.Fold(key), " ", "_")
}

func lookup(folded map[string]string, aliases []string) (string, bool) {
	for _, alias := range aliases {
		if key, ok := folded[alias]; ok {
			return key, true
		}
	}
	return "", false
}

func stringValue(value any, allowList bool) (string, error) {
	switch typed := value.(type) {
	case string:
		return strings.TrimSpace(typed), nil
	case []any:
		if !allowList {
			return "", fmt.Errorf("expected string, got array")
		}
		parts := make([]string, 0, len(typed))
		for i, elem := range typed {
			s, err := scalarString(elem)
			if err != nil {
				return "", fmt.Errorf("element %d: %w", i, err)
			}
			if s = strings.TrimSpace(s); s != "" {
				parts = append(parts, s)
			}
		}
		return strings.Join(parts, ", "), nil
	case nil:
		return "", fmt.Errorf("expected string, got null")
	default:
		return "", fmt.Errorf("expected string, got %T", value)
	}
}

func scalarString(value any) (string, error) {
	switch typed := value.(type) {
	case string:
		return typed, nil
	case json.Number:
		return typed.String(), nil
	default:
		return "", fmt.Errorf("expected string, got %T", value)
	}
}

func extraValue(value any) string {
	switch typed := value.(type) {
	case nil:
		return ""
	case string:
		return typed
	case json.Number:
		return typed.String()
	case bool:
		return strconv.FormatBool(typed)
	default:
		var buf bytes.Buffer
		enc := json.NewEncoder(&buf)
		enc.SetEscapeHTML(false)
		if err := enc.Encode(typed); err != nil {
			return fmt.Sprint(typed)
		}
		return strings.TrimSpace(buf.String())
	}
}

func assign(rec *catalog.Record, t target, value string) {
	switch t {
	case targetTitle:
		rec.Title = value
	case targetCategory:
		rec.Category = value
	case targetStyle:
		rec.Style = value
	case targetMaterial:
		rec.Material = value
	case targetColor:
		rec.Color = value
	case targetGender:
		rec.Gender = value
	case targetShort:
		rec.ShortDescription = value
	case targetLong:
		rec.LongDescription = value
	case targetTags:
		rec.Tags = value
	}
}
