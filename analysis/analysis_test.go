package analysis

import (
	"context"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/aqua777/codelens/cache"
	"github.com/aqua777/codelens/config"
	"github.com/aqua777/codelens/embedding"
	"github.com/aqua777/codelens/engine"
	"github.com/aqua777/codelens/index"
	"github.com/aqua777/codelens/llm"
	"github.com/aqua777/codelens/prompts"
	"github.com/aqua777/codelens/resource"
	"github.com/aqua777/codelens/schema"
	"github.com/aqua777/codelens/vectorstore"
)

func testEngine(t *testing.T, fast *llm.MockModel) (*engine.Engine, *config.Config) {
	t.Helper()
	cfg := config.Defaults()
	cfg.LLMProvider = config.ProviderOllama
	cfg.EmbedProvider = config.ProviderOllama
	cfg.RedisEnabled = false
	cfg.StoragePath = t.TempDir()

	vc, err := vectorstore.NewChromemClient("")
	require.NoError(t, err)
	reg, err := resource.NewRegistry(context.Background(), cfg,
		resource.WithVectorClient(vc),
		resource.WithEmbedder(embedding.NewMockEmbedding(8)),
		resource.WithModel(llm.KindFast, fast),
		resource.WithModel(llm.KindComplex, llm.NewMockModel("[]")),
		resource.WithModel(llm.KindComplexAlt, llm.NewMockModel("ok")),
		resource.WithCache(cache.Disabled()),
	)
	require.NoError(t, err)
	t.Cleanup(func() { reg.Close() })

	store, err := index.NewStore(reg)
	require.NoError(t, err)
	eng, err := engine.New(reg, store)
	require.NoError(t, err)
	return eng, cfg
}

func seedCollection(t *testing.T, eng *engine.Engine, name, text string) {
	t.Helper()
	ctx := context.Background()
	_, err := eng.Store().Create(ctx, name, schema.ModeVector)
	require.NoError(t, err)
	n := schema.Node{ID: "doc-chunk-0", DocID: "doc", Text: text,
		Metadata: map[string]interface{}{"file_name": "doc"}}
	n.GenerateHash()
	require.NoError(t, eng.Store().Write(ctx, name, []schema.Node{n}))
}

func TestExtractBusinessLogic(t *testing.T) {
	eng, _ := testEngine(t, llm.NewMockModel("Orders require an approved payment before shipping."))
	seedCollection(t, eng, "shop", "def ship(order): ...")
	b := NewBusinessExtractor(eng, prompts.NewLibrary())

	report, err := b.ExtractBusinessLogic(context.Background(), "shop")
	require.NoError(t, err)
	assert.Equal(t, "shop", report.Project)
	assert.Equal(t, "business_logic", report.Kind)
	assert.Contains(t, report.Content, "approved payment")
	assert.Empty(t, report.Error)
}

func TestExtractBusinessLogicNotIndexed(t *testing.T) {
	eng, _ := testEngine(t, llm.NewMockModel())
	b := NewBusinessExtractor(eng, prompts.NewLibrary())

	report, err := b.ExtractBusinessLogic(context.Background(), "ghost")
	require.NoError(t, err)
	assert.Equal(t, "Error: Project 'ghost' not indexed", report.Error)
	assert.Empty(t, report.Content)
}

func TestExtractBusinessRulesSplitsLines(t *testing.T) {
	eng, _ := testEngine(t, llm.NewMockModel("1. Orders need payment\n\n2. Refunds within 30 days\n"))
	seedCollection(t, eng, "shop", "def refund(order): ...")
	b := NewBusinessExtractor(eng, prompts.NewLibrary())

	rules, err := b.ExtractBusinessRules(context.Background(), "shop")
	require.NoError(t, err)
	assert.Equal(t, []string{"1. Orders need payment", "2. Refunds within 30 days"}, rules)
}

func TestExtractBusinessRulesNotIndexed(t *testing.T) {
	eng, _ := testEngine(t, llm.NewMockModel())
	b := NewBusinessExtractor(eng, prompts.NewLibrary())

	rules, err := b.ExtractBusinessRules(context.Background(), "ghost")
	require.NoError(t, err)
	require.Len(t, rules, 1)
	assert.Contains(t, rules[0], "not indexed")
}

func TestSuggestLibrariesDefaultPrompt(t *testing.T) {
	model := llm.NewMockModel("1. chi - lightweight HTTP router")
	s := NewSuggester(model, prompts.NewLibrary())

	got, err := s.SuggestLibraries(context.Background(), "http routing", "")
	require.NoError(t, err)
	assert.Contains(t, got, "chi")
	require.Len(t, model.Prompts, 1)
	assert.Contains(t, model.Prompts[0], "http routing")
	assert.NotContains(t, model.Prompts[0], "Project type")
}

func TestSuggestLibrariesWithProjectType(t *testing.T) {
	model := llm.NewMockModel("1. cobra")
	s := NewSuggester(model, prompts.NewLibrary())

	_, err := s.SuggestLibraries(context.Background(), "command parsing", "cli tool")
	require.NoError(t, err)
	assert.Contains(t, model.Prompts[0], "Project type: cli tool")
}

func TestGenerateDiagramTruncates(t *testing.T) {
	long := "sequenceDiagram\n" + strings.Repeat("    A->>B: call()\n", 200)
	eng, _ := testEngine(t, llm.NewMockModel(long))
	seedCollection(t, eng, "proj", "class A: ...")
	d := NewDiagramGenerator(eng, prompts.NewLibrary())

	got, err := d.Generate(context.Background(), "proj", DiagramMermaid)
	require.NoError(t, err)
	assert.Len(t, got, 2003)
	assert.True(t, strings.HasSuffix(got, "..."))
}

func TestGenerateDiagramUnknownKind(t *testing.T) {
	eng, _ := testEngine(t, llm.NewMockModel())
	d := NewDiagramGenerator(eng, prompts.NewLibrary())

	_, err := d.Generate(context.Background(), "proj", DiagramKind("pie"))
	var cfgErr *schema.ConfigError
	assert.ErrorAs(t, err, &cfgErr)
}

func TestGenerateDiagramNotIndexed(t *testing.T) {
	eng, _ := testEngine(t, llm.NewMockModel())
	d := NewDiagramGenerator(eng, prompts.NewLibrary())

	got, err := d.Generate(context.Background(), "ghost", DiagramSequence)
	require.NoError(t, err)
	assert.Equal(t, "Error: Project 'ghost' not indexed", got)
}

func TestSearchDocsIndexedRoute(t *testing.T) {
	fast := &llm.MockModel{Fn: func(prompt string) string { return prompt }}
	eng, cfg := testEngine(t, fast)
	seedCollection(t, eng, schema.DocsCollection("react"), "useEffect runs after render")
	d := NewDocSearcher(eng, cfg)

	got, err := d.SearchDocs(context.Background(), "useEffect runs after render", "react", false)
	require.NoError(t, err)
	assert.Contains(t, got, "useEffect")
}

func TestSearchDocsContext7Route(t *testing.T) {
	eng, cfg := testEngine(t, llm.NewMockModel())
	cfg.Documentation.Routing = map[string]string{"react": config.RoutingContext7}
	d := NewDocSearcher(eng, cfg)

	got, err := d.SearchDocs(context.Background(), "hooks", "react", false)
	require.NoError(t, err)
	assert.Contains(t, got, "Context7")
}

func TestHowToFormatsRecipe(t *testing.T) {
	eng, cfg := testEngine(t, llm.NewMockModel("Call useState inside the component body."))
	seedCollection(t, eng, schema.DocsCollection("react"), "useState manages local state")
	d := NewDocSearcher(eng, cfg)

	got, err := d.HowTo(context.Background(), "manage state", "react")
	require.NoError(t, err)
	assert.Contains(t, got, "# How to manage state in react")
	assert.Contains(t, got, "## Next Steps")
}

func TestSearchPatternNotIndexed(t *testing.T) {
	eng, cfg := testEngine(t, llm.NewMockModel())
	d := NewDocSearcher(eng, cfg)

	got, err := d.SearchPattern(context.Background(), "routing", "svelte")
	require.NoError(t, err)
	assert.Contains(t, got, "Framework 'svelte' not indexed")
}

func TestSearchPatternTruncates(t *testing.T) {
	eng, cfg := testEngine(t, llm.NewMockModel(strings.Repeat("pattern ", 400)))
	seedCollection(t, eng, schema.DocsCollection("vue"), "v-model binds form inputs")
	d := NewDocSearcher(eng, cfg)

	got, err := d.SearchPattern(context.Background(), "two-way binding", "vue")
	require.NoError(t, err)
	assert.Len(t, got, 2003)
	assert.True(t, strings.HasSuffix(got, "..."))
}
