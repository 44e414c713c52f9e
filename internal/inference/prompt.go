package inference

import (
	"bytes"
	_ "embed"
	"fmt"
	"os"
	"strings"
	"text/template"

	"catalogscan/internal/catalog"
)

//go:embed default_prompt.tmpl
var defaultPromptTemplate string

type promptField struct {
	Name   string
	Values []string
}

type promptData struct {
	Fields []promptField
}

// RenderPrompt renders a prompt template with the allowed vocabulary values.
// The template sees .Fields, each with .Name and .Values, and a join helper.
func RenderPrompt(text string, vocab *catalog.Vocabulary) (string, error) {
	tmpl, err := template.New("prompt").
		Funcs(template.FuncMap{"join": strings.Join}).
		Option("missingkey=error").
		Parse(text)
	if err != nil {
		return "", fmt.Errorf("parse prompt template: %w", err)
	}
	data := promptData{}
	for _, field := range catalog.Fields {
		data.Fields = append(data.Fields, promptField{Name: string(field), Values: vocab.Values(field)})
	}
	var buf bytes.Buffer
	if err := tmpl.Execute(&buf, data); err != nil {
		return "", fmt.Errorf("render prompt template: %w", err)
	}
	prompt := strings.TrimSpace(buf.String())
	if prompt == "" {
		return "", fmt.Errorf("prompt template rendered empty")
	}
	return prompt, nil
}

// LoadPrompt renders the template at path, or the built-in template when
// path is empty.
func LoadPrompt(path string, vocab *catalog.Vocabulary) (string, error) {
	text := defaultPromptTemplate
	if strings.TrimSpace(path) != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return "", fmt.Errorf("read prompt file: %w", err)
		}
		text = string(data)
	}
	return RenderPrompt(text, vocab)
}
