package report

import (
	"html/template"

	"github.com/microcosm-cc/bluemonday"
)

// descriptionPolicy admits the list and emphasis markup the prompt asks the
// model for. Attributes are never allowed, so event handlers and inline
// styles are dropped along with script and style elements.
var descriptionPolicy = bluemonday.NewPolicy().
	AllowElements("p", "br", "h3", "ul", "ol", "li", "strong", "em", "b", "i")

// sanitizeDescription reduces model-written markup to the allowed subset.
func sanitizeDescription(markup string) template.HTML {
	return template.HTML(descriptionPolicy.Sanitize(markup))
}
