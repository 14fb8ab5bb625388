// Package prompts holds the prompt templates used by the engines and a
// library that can be overridden from a YAML file.
package prompts

import (
	"regexp"
	"strings"
)

// templateVarRegex matches {variable} placeholders in templates.
var templateVarRegex = regexp.MustCompile(`\{(\w+)\}`)

// Template is a prompt with {variable} placeholders.
type Template struct {
	raw  string
	vars []string
}

// New creates a template from a raw string.
func New(raw string) Template {
	return Template{raw: raw, vars: extractVars(raw)}
}

func extractVars(template string) []string {
	matches := templateVarRegex.FindAllStringSubmatch(template, -1)
	seen := make(map[string]bool)
	var vars []string
	for _, m := range matches {
		if !seen[m[1]] {
			seen[m[1]] = true
			vars = append(vars, m[1])
		}
	}
	return vars
}

// Raw returns the template string.
func (t Template) Raw() string { return t.raw }

// Vars returns the placeholder names in first-appearance order.
func (t Template) Vars() []string { return t.vars }

// Format substitutes the given variables. Unknown placeholders are left
// in place so missing inputs show up in the rendered prompt.
func (t Template) Format(vars map[string]string) string {
	out := t.raw
	for k, v := range vars {
		out = strings.ReplaceAll(out, "{"+k+"}", v)
	}
	return out
}
