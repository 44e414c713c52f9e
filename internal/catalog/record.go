package catalog

// Status tags which variant of Record is stored.
type Status string

const (
	// StatusOK marks a record whose classification is inside the vocabulary.
	StatusOK Status = "ok"
	// StatusMalformed marks the placeholder committed when the model output
	// could not be parsed as a catalog object.
	StatusMalformed Status = "malformed"
	// StatusReview marks a parsed record whose classification values fall
	// outside the vocabulary and need an operator decision.
	StatusReview Status = "review"
)

// PlaceholderTitle is the title given to records whose model output was not
// parseable.
const PlaceholderTitle = "ERROR FORMATO JSON"

// Classification holds the five closed-vocabulary fields.
type Classification struct {
	Category string `json:"category"`
	Style    string `json:"style"`
	Material string `json:"material"`
	Color    string `json:"color"`
	Gender   string `json:"gender"`
}

// Get returns the value of the named classification field.
func (c Classification) Get(field Field) string {
	switch field {
	case FieldCategory:
		return c.Category
	case FieldStyle:
		return c.Style
	case FieldMaterial:
		return c.Material
	case FieldColor:
		return c.Color
	case FieldGender:
		return c.Gender
	default:
		return ""
	}
}

// Set assigns the named classification field.
func (c *Classification) Set(field Field, value string) {
	switch field {
	case FieldCategory:
		c.Category = value
	case FieldStyle:
		c.Style = value
	case FieldMaterial:
		c.Material = value
	case FieldColor:
		c.Color = value
	case FieldGender:
		c.Gender = value
	}
}

// Violation describes one classification value outside its vocabulary.
type Violation struct {
	Field      Field  `json:"field"`
	Value      string `json:"value"`
	Suggestion string `json:"suggestion,omitempty"`
}

// Diagnostic preserves what an operator needs to fix a placeholder record.
type Diagnostic struct {
	Kind        string      `json:"kind"`
	Message     string      `json:"message,omitempty"`
	RawResponse string      `json:"raw_response,omitempty"`
	Violations  []Violation `json:"violations,omitempty"`
}

// Record is the committed metadata for one source image. Origin is the
// natural key across the whole record set.
type Record struct {
	Origin string `json:"origin"`
	Status Status `json:"status"`
	Title  string `json:"title"`
	Classification
	ShortDescription string            `json:"short_description"`
	LongDescription  string            `json:"long_description"`
	Tags             string            `json:"tags"`
	DurationSeconds  float64           `json:"duration_seconds"`
	Model            string            `json:"model,omitempty"`
	Extra            map[string]string `json:"extra,omitempty"`
	Diagnostic       *Diagnostic       `json:"diagnostic,omitempty"`
}

// IsPlaceholder reports whether the record is a diagnostic variant rather
// than clean catalog data.
func (r Record) IsPlaceholder() bool {
	return r.Status != StatusOK
}

// EffectiveStatus treats records written before the status field existed as ok.
func (r Record) EffectiveStatus() Status {
	if r.Status == "" {
		return StatusOK
	}
	return r.Status
}
