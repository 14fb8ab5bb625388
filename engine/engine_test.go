package engine

import (
	"context"
	"fmt"
	"strings"
	"testing"

	"github.com/alicebob/miniredis/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/aqua777/codelens/cache"
	"github.com/aqua777/codelens/config"
	"github.com/aqua777/codelens/embedding"
	"github.com/aqua777/codelens/index"
	"github.com/aqua777/codelens/llm"
	"github.com/aqua777/codelens/resource"
	"github.com/aqua777/codelens/schema"
	"github.com/aqua777/codelens/vectorstore"
)

type engineFixture struct {
	engine  *Engine
	store   *index.Store
	fast    *llm.MockModel
	complex *llm.MockModel
}

func newFixture(t *testing.T, fast, complexModel *llm.MockModel, opts ...resource.Option) *engineFixture {
	t.Helper()
	cfg := config.Defaults()
	cfg.LLMProvider = config.ProviderOllama
	cfg.EmbedProvider = config.ProviderOllama
	cfg.RedisEnabled = false
	cfg.StoragePath = t.TempDir()

	vc, err := vectorstore.NewChromemClient("")
	require.NoError(t, err)

	base := []resource.Option{
		resource.WithVectorClient(vc),
		resource.WithEmbedder(embedding.NewMockEmbedding(8)),
		resource.WithModel(llm.KindFast, fast),
		resource.WithModel(llm.KindComplex, complexModel),
		resource.WithModel(llm.KindComplexAlt, llm.NewMockModel("ok")),
		resource.WithCache(cache.Disabled()),
	}
	reg, err := resource.NewRegistry(context.Background(), cfg, append(base, opts...)...)
	require.NoError(t, err)
	t.Cleanup(func() { reg.Close() })

	store, err := index.NewStore(reg)
	require.NoError(t, err)
	eng, err := New(reg, store)
	require.NoError(t, err)
	return &engineFixture{engine: eng, store: store, fast: fast, complex: complexModel}
}

func (f *engineFixture) seed(t *testing.T, collection string, texts map[string]string) {
	t.Helper()
	ctx := context.Background()
	_, err := f.store.Create(ctx, collection, schema.ModeVector)
	require.NoError(t, err)

	var nodes []schema.Node
	for id, text := range texts {
		n := schema.Node{ID: id, DocID: id, Text: text,
			Metadata: map[string]interface{}{"file_name": id}}
		n.GenerateHash()
		nodes = append(nodes, n)
	}
	require.NoError(t, f.store.Write(ctx, collection, nodes))
}

func TestSearchNotIndexed(t *testing.T) {
	f := newFixture(t, llm.NewMockModel("answer"), llm.NewMockModel())

	got, err := f.engine.Search(context.Background(), "anything", "ghost", 3)
	require.NoError(t, err)
	assert.Equal(t, "Error: Project 'ghost' not indexed", got)
	assert.Zero(t, f.fast.CallCount())
}

func TestSearchSynthesizesOverRetrieved(t *testing.T) {
	fast := &llm.MockModel{Fn: func(prompt string) string { return prompt }}
	f := newFixture(t, fast, llm.NewMockModel())
	f.seed(t, "proj", map[string]string{
		"auth.py": "def authenticate(user): pass",
	})

	got, err := f.engine.Search(context.Background(), "def authenticate(user): pass", "proj", 1)
	require.NoError(t, err)
	assert.Contains(t, got, "def authenticate(user): pass")
}

func TestSearchZeroLimitSkipsIndex(t *testing.T) {
	f := newFixture(t, llm.NewMockModel("nothing to report"), llm.NewMockModel())

	// Even an unindexed collection synthesizes: the index is never read.
	got, err := f.engine.Search(context.Background(), "q", "ghost", 0)
	require.NoError(t, err)
	assert.Equal(t, "nothing to report", got)
	assert.Equal(t, 1, f.fast.CallCount())
}

func TestSearchCacheHitIsByteIdentical(t *testing.T) {
	mr := miniredis.RunT(t)
	f := newFixture(t, llm.NewMockModel("first", "second"), llm.NewMockModel(),
		resource.WithCache(cache.New(context.Background(), mr.Addr())))
	f.seed(t, "proj", map[string]string{"a.py": "def a(): pass"})

	ctx := context.Background()
	one, err := f.engine.Search(ctx, "a", "proj", 2)
	require.NoError(t, err)
	two, err := f.engine.Search(ctx, "a", "proj", 2)
	require.NoError(t, err)
	assert.Equal(t, one, two)
	assert.Equal(t, 1, f.fast.CallCount())
}

func TestSearchWithCitations(t *testing.T) {
	long := strings.Repeat("x", 300)
	f := newFixture(t, llm.NewMockModel("cited answer"), llm.NewMockModel())
	f.seed(t, "proj", map[string]string{
		"a.py": "def a(): pass",
		"b.py": long,
	})

	resp, err := f.engine.SearchWithCitations(context.Background(), "def a", "proj", 2)
	require.NoError(t, err)
	assert.Equal(t, "cited answer", resp.Response)
	require.Len(t, resp.Citations, 2)
	for i, c := range resp.Citations {
		assert.Equal(t, i+1, c.Rank)
		assert.LessOrEqual(t, len(c.Preview), schema.CitationPreviewLen+3)
	}
}

func TestSearchWithCitationsNotIndexed(t *testing.T) {
	f := newFixture(t, llm.NewMockModel(), llm.NewMockModel())
	resp, err := f.engine.SearchWithCitations(context.Background(), "q", "ghost", 2)
	require.NoError(t, err)
	assert.Equal(t, "Error: Project 'ghost' not indexed", resp.Response)
	assert.Empty(t, resp.Citations)
}

func TestExistsExactMatch(t *testing.T) {
	f := newFixture(t, llm.NewMockModel(), llm.NewMockModel())
	f.seed(t, "proj", map[string]string{
		"auth.py": "class AuthService",
	})

	res, err := f.engine.Exists(context.Background(), "class AuthService", "proj")
	require.NoError(t, err)
	assert.True(t, res.Exists)
	assert.GreaterOrEqual(t, res.Confidence, ExistenceThreshold)
	assert.LessOrEqual(t, res.Confidence, 1.0)
	assert.Contains(t, res.Context, "AuthService")
}

func TestExistsConfidenceMatchesThreshold(t *testing.T) {
	f := newFixture(t, llm.NewMockModel(), llm.NewMockModel())
	f.seed(t, "proj", map[string]string{"a.py": "def a(): pass"})

	res, err := f.engine.Exists(context.Background(), "completely unrelated text", "proj")
	require.NoError(t, err)
	assert.GreaterOrEqual(t, res.Confidence, 0.0)
	assert.LessOrEqual(t, res.Confidence, 1.0)
	assert.Equal(t, res.Confidence >= ExistenceThreshold, res.Exists)
}

func TestExistsNotIndexed(t *testing.T) {
	f := newFixture(t, llm.NewMockModel(), llm.NewMockModel())
	res, err := f.engine.Exists(context.Background(), "Thing", "ghost")
	require.NoError(t, err)
	assert.False(t, res.Exists)
	assert.Contains(t, res.Error, "not indexed")
}

func TestFindViolationsNotIndexed(t *testing.T) {
	f := newFixture(t, llm.NewMockModel(), llm.NewMockModel())
	findings := f.engine.FindViolations(context.Background(), "ghost")
	require.Len(t, findings, 1)
	assert.Equal(t, "Error: Project 'ghost' not indexed", findings[0])
}

func TestFindViolationsAllCompliant(t *testing.T) {
	f := newFixture(t, llm.NewMockModel(
		"The provided context does not contain any violations",
		"The context does not contain such classes",
		"There is no information about type switches",
		"The provided context does not show duplication",
		"", // summary
	), llm.NewMockModel())
	f.seed(t, "proj", map[string]string{"a.py": "def a(): pass"})

	findings := f.engine.FindViolations(context.Background(), "proj")
	require.Len(t, findings, 1)
	assert.True(t, Compliant(findings))
}

func TestFindViolationsCollectsFindings(t *testing.T) {
	f := newFixture(t, llm.NewMockModel(
		"The class OrderManager mixes billing and shipping concerns",
		"The constructor of PaymentService instantiates its own HTTP client",
		"dispatch() switches on the concrete type of the event",
		"validateInput is copied across three handler methods",
	), llm.NewMockModel())
	f.seed(t, "proj", map[string]string{"a.py": "def a(): pass"})

	findings := f.engine.FindViolations(context.Background(), "proj")
	require.Len(t, findings, 4)
	assert.True(t, strings.HasPrefix(findings[0], "SRP: "))
	assert.True(t, strings.HasPrefix(findings[1], "DIP: "))
	assert.True(t, strings.HasPrefix(findings[2], "OCP: "))
	assert.True(t, strings.HasPrefix(findings[3], "DRY: "))
	assert.False(t, Compliant(findings))
}

func TestFindViolationsCapped(t *testing.T) {
	long := strings.Repeat("the class Widget does too much ", 20)
	f := newFixture(t, llm.NewMockModel(long), llm.NewMockModel())
	f.seed(t, "proj", map[string]string{"a.py": "def a(): pass"})

	findings := f.engine.FindViolations(context.Background(), "proj")
	assert.LessOrEqual(t, len(findings), 6)
	for _, finding := range findings {
		assert.LessOrEqual(t, len(finding), findingLen+len("Framework pattern violations: ")+3)
	}
}

func TestArchitectureComplianceLanguageHint(t *testing.T) {
	fast := llm.NewMockModel("The UserService class builds its own database client in its constructor")
	f := newFixture(t, fast, llm.NewMockModel())
	f.seed(t, "proj", map[string]string{"a.go": "func a() {}"})

	findings := f.engine.CheckArchitectureCompliance(context.Background(), "proj", "go")
	assert.NotEmpty(t, findings)

	var hinted bool
	for _, p := range fast.Prompts {
		if strings.Contains(p, "Focus on go code.") {
			hinted = true
		}
	}
	assert.True(t, hinted)
}

func TestArchitectureComplianceDropsNonCodeFindings(t *testing.T) {
	f := newFixture(t, llm.NewMockModel(
		"Things are generally fine here",
		"Things are generally fine here",
		"Things are generally fine here",
		"Things are generally fine here",
		"", // summary
	), llm.NewMockModel())
	f.seed(t, "proj", map[string]string{"a.py": "def a(): pass"})

	findings := f.engine.CheckArchitectureCompliance(context.Background(), "proj", "")
	require.Len(t, findings, 1)
	assert.True(t, Compliant(findings))
}

func TestCheckViolationCachedOnSecondCall(t *testing.T) {
	mr := miniredis.RunT(t)
	f := newFixture(t,
		llm.NewMockModel("Yes: this duplicates the existing retry helper in util.py"),
		llm.NewMockModel(),
		resource.WithCache(cache.New(context.Background(), mr.Addr())))
	f.seed(t, "proj", map[string]string{"util.py": "def retry(): pass"})

	ctx := context.Background()
	first, err := f.engine.CheckViolation(ctx, "add a retry helper", "proj")
	require.NoError(t, err)
	assert.False(t, first.Cached)
	assert.NotEmpty(t, first.Violation)

	second, err := f.engine.CheckViolation(ctx, "add a retry helper", "proj")
	require.NoError(t, err)
	assert.True(t, second.Cached)
	assert.Equal(t, first.Violation, second.Violation)
}

func TestCheckViolationNoViolation(t *testing.T) {
	f := newFixture(t, llm.NewMockModel("No violation"), llm.NewMockModel())
	f.seed(t, "proj", map[string]string{"a.py": "def a(): pass"})

	check, err := f.engine.CheckViolation(context.Background(), "rename a variable", "proj")
	require.NoError(t, err)
	assert.Empty(t, check.Violation)
}

func TestCheckViolationNotIndexed(t *testing.T) {
	f := newFixture(t, llm.NewMockModel(), llm.NewMockModel())
	check, err := f.engine.CheckViolation(context.Background(), "anything", "ghost")
	require.NoError(t, err)
	assert.Contains(t, check.Error, "not indexed")
}

func TestSmartQueryNoProjects(t *testing.T) {
	f := newFixture(t, llm.NewMockModel(), llm.NewMockModel())
	got, err := f.engine.SmartQuery(context.Background(), "q", nil)
	require.NoError(t, err)
	assert.Equal(t, NoProjectsMessage, got)
}

func TestSmartQuerySingleCollectionAlwaysChosen(t *testing.T) {
	f := newFixture(t, llm.NewMockModel("the answer"), llm.NewMockModel())
	f.seed(t, "only", map[string]string{"a.py": "def a(): pass"})

	got, err := f.engine.SmartQuery(context.Background(), "q", nil)
	require.NoError(t, err)
	assert.Equal(t, "the answer", got)
	// One candidate never consults the selector model.
	assert.Zero(t, f.complex.CallCount())
}

func TestSmartQueryRoutesWithSelector(t *testing.T) {
	fast := &llm.MockModel{Fn: func(prompt string) string { return prompt }}
	f := newFixture(t, fast,
		llm.NewMockModel(`[{"choice": 2, "reason": "docs question"}]`))
	f.seed(t, "backend", map[string]string{"a.py": "def a(): pass"})
	f.seed(t, "docs_react", map[string]string{"useEffect.md": "useEffect runs after render"})

	got, err := f.engine.SmartQuery(context.Background(), "useEffect runs after render", nil)
	require.NoError(t, err)
	assert.Contains(t, got, "useEffect")
	assert.Equal(t, 1, f.complex.CallCount())
}

func TestScalableRouteShortlists(t *testing.T) {
	fast := &llm.MockModel{Fn: func(prompt string) string { return "routed" }}
	f := newFixture(t, fast,
		llm.NewMockModel(`[{"choice": 1, "reason": "closest"}]`))
	for i := 0; i < 7; i++ {
		f.seed(t, fmt.Sprintf("proj%d", i), map[string]string{"a.py": "def a(): pass"})
	}

	got, err := f.engine.ScalableRoute(context.Background(), "where is the auth code?")
	require.NoError(t, err)
	assert.Equal(t, "routed", got)
}

func TestAnswerComplexSynthesizesSubAnswers(t *testing.T) {
	fast := &llm.MockModel{Fn: func(prompt string) string { return "sub answer" }}
	complexModel := llm.NewMockModel(
		`["How is auth implemented?", "How is billing implemented?"]`,
		"final synthesis",
	)
	f := newFixture(t, fast, complexModel)
	f.seed(t, "proj", map[string]string{"a.py": "def a(): pass"})

	got, err := f.engine.AnswerComplex(context.Background(), "How do auth and billing interact?", []string{"proj"})
	require.NoError(t, err)
	assert.Equal(t, "final synthesis", got)
	assert.Equal(t, 2, f.fast.CallCount())

	// The synthesis prompt carries both sub-answers.
	final := complexModel.Prompts[len(complexModel.Prompts)-1]
	assert.Contains(t, final, "How is auth implemented?")
	assert.Contains(t, final, "sub answer")
}

func TestAnswerComplexFallsBackToWholeQuery(t *testing.T) {
	fast := &llm.MockModel{Fn: func(prompt string) string { return "direct" }}
	complexModel := llm.NewMockModel("not json at all", "final")
	f := newFixture(t, fast, complexModel)
	f.seed(t, "proj", map[string]string{"a.py": "def a(): pass"})

	got, err := f.engine.AnswerComplex(context.Background(), "opaque question", []string{"proj"})
	require.NoError(t, err)
	assert.Equal(t, "final", got)
	assert.Equal(t, 1, f.fast.CallCount())
}

func TestAnswerComplexNoProjects(t *testing.T) {
	f := newFixture(t, llm.NewMockModel(), llm.NewMockModel())
	got, err := f.engine.AnswerComplex(context.Background(), "q", nil)
	require.NoError(t, err)
	assert.Equal(t, NoProjectsMessage, got)
}
