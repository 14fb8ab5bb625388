package prompts

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTemplateVars(t *testing.T) {
	tmpl := New("Answer {query_str} using {context_str} and {query_str} again.")
	assert.Equal(t, []string{"query_str", "context_str"}, tmpl.Vars())
}

func TestTemplateFormat(t *testing.T) {
	tmpl := New("Query: {query_str}\nLimit: {limit}")
	out := tmpl.Format(map[string]string{"query_str": "find auth"})
	assert.Equal(t, "Query: find auth\nLimit: {limit}", out)
}

func TestLibraryDefaults(t *testing.T) {
	lib := NewLibrary()

	qa, ok := lib.Get(TextQA)
	require.True(t, ok)
	assert.Contains(t, qa.Raw(), "Context information is below.")
	assert.Contains(t, qa.Vars(), "query_str")

	out := lib.Render(TextQA, map[string]string{
		"context_str": "chunk text",
		"query_str":   "what does this do",
	})
	assert.Contains(t, out, "chunk text")
	assert.Contains(t, out, "Query: what does this do")
}

func TestLibraryUnknownName(t *testing.T) {
	lib := NewLibrary()
	_, ok := lib.Get("nope/nothing")
	assert.False(t, ok)
	assert.Empty(t, lib.Render("nope/nothing", nil))
}

func TestLoadLibraryOverrides(t *testing.T) {
	path := filepath.Join(t.TempDir(), "prompts.yaml")
	content := `synthesis:
  text_qa: "Custom QA: {query_str}"
extra:
  greeting: "Hello {name}"
`
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))

	lib, err := LoadLibrary(path)
	require.NoError(t, err)

	// Overridden template replaces the default.
	assert.Equal(t, "Custom QA: ping", lib.Render(TextQA, map[string]string{"query_str": "ping"}))
	// New categories extend the library.
	assert.Equal(t, "Hello dev", lib.Render("extra/greeting", map[string]string{"name": "dev"}))
	// Untouched defaults remain.
	_, ok := lib.Get(DiagramMermaid)
	assert.True(t, ok)
}

func TestLoadLibraryErrors(t *testing.T) {
	_, err := LoadLibrary("/no/such/prompts.yaml")
	assert.Error(t, err)

	path := filepath.Join(t.TempDir(), "bad.yaml")
	require.NoError(t, os.WriteFile(path, []byte(":\n -"), 0o644))
	_, err = LoadLibrary(path)
	assert.Error(t, err)
}
