package engine

import (
	"context"
	"fmt"
	"strings"

	"github.com/aqua777/codelens/schema"
)

// findingLen caps the context carried by one finding.
const findingLen = 200

// maxFindings caps the list returned by an analysis pass.
const maxFindings = 6

type analysisQuery struct {
	label string
	query string
}

var violationQueries = []analysisQuery{
	{"SRP", "Find classes with more than 10 methods or classes that contain methods dealing with multiple unrelated topics"},
	{"DIP", "Which constructors create dependencies using direct instantiation instead of using interfaces or dependency injection"},
	{"OCP", "Find classes with switch statements on type fields or if-else chains based on object type"},
	{"DRY", "Find duplicate logic across methods or repeated code blocks that violate DRY principle"},
}

var architectureQueries = []analysisQuery{
	{"Dependency Injection violations", "Find constructors or initialization code that creates dependencies directly instead of using dependency injection"},
	{"Resource duplication", "Find duplicate resource creation (clients, connections, instances) instead of shared resource patterns"},
	{"Oversized components", "Find large classes or modules that could be split into smaller focused components"},
	{"Framework pattern violations", "Find custom implementations instead of using framework native methods and patterns"},
}

// compliantPhrases mark a synthesized answer as "nothing found": the
// model telling us the context holds no violations.
var compliantPhrases = []string{
	"does not contain",
	"no information",
	"not contain any",
	"provided context does not",
}

// noFinding reports whether a synthesized answer carries no usable
// finding. The "empty response" sentinel is what the synthesizer emits
// when retrieval produced nothing.
func noFinding(answer string) bool {
	trimmed := strings.TrimSpace(answer)
	if trimmed == "" {
		return true
	}
	lower := strings.ToLower(trimmed)
	if strings.Contains(lower, "empty response") {
		return true
	}
	for _, phrase := range compliantPhrases {
		if strings.Contains(lower, phrase) {
			return true
		}
	}
	return false
}

// codeIndicators decide whether an architecture finding actually talks
// about code rather than generalities.
var codeIndicators = []string{
	"class", "function", "method", "module", "component", "service",
	".py", ".js", ".ts", ".java", ".go", ".rs", ".cpp", ".c", ".rb", ".php",
	"constructor", "init", "main", "import", "require", "include",
}

func mentionsCode(answer string) bool {
	lower := strings.ToLower(answer)
	for _, indicator := range codeIndicators {
		if strings.Contains(lower, indicator) {
			return true
		}
	}
	return false
}

// FindViolations runs the SOLID violation queries against a collection
// and returns the findings. An absent collection yields the single
// not-indexed message. At most 6 entries come back.
func (e *Engine) FindViolations(ctx context.Context, collection string) []string {
	if !e.store.Exists(ctx, collection) {
		return []string{schema.NotIndexedMessage(collection)}
	}

	var findings []string
	for _, q := range violationQueries {
		answer, err := e.Search(ctx, q.query, collection, 3)
		if err != nil {
			findings = append(findings, fmt.Sprintf("Error in %s analysis: %v", q.label, err))
			continue
		}
		if noFinding(answer) {
			continue
		}
		findings = append(findings, fmt.Sprintf("%s: %s", q.label, truncateFinding(answer)))
	}

	if len(findings) < 2 {
		summary, err := e.Search(ctx,
			"Analyze overall code structure, architecture patterns, and potential improvement areas",
			collection, 1)
		switch {
		case err != nil:
			findings = append(findings, "✅ Analysis completed, no major violations detected")
		case strings.TrimSpace(summary) != "":
			findings = append(findings, "Code Quality Analysis: "+truncateFinding(summary))
		default:
			findings = append(findings, "✅ Comprehensive semantic analysis completed, no major violations detected")
		}
	}
	return capFindings(findings)
}

// CheckArchitectureCompliance runs the architecture pattern queries.
// The language is a prompt hint only; findings that never mention code
// are dropped as noise.
func (e *Engine) CheckArchitectureCompliance(ctx context.Context, collection, language string) []string {
	if !e.store.Exists(ctx, collection) {
		return []string{schema.NotIndexedMessage(collection)}
	}

	var findings []string
	for _, q := range architectureQueries {
		query := q.query
		if language != "" {
			query = fmt.Sprintf("%s. Focus on %s code.", query, language)
		}
		answer, err := e.Search(ctx, query, collection, 3)
		if err != nil {
			findings = append(findings, fmt.Sprintf("Error in %s analysis: %v", q.label, err))
			continue
		}
		if noFinding(answer) || !mentionsCode(answer) {
			continue
		}
		findings = append(findings, fmt.Sprintf("%s: %s", q.label, truncateFinding(answer)))
	}

	if len(findings) < 2 {
		summary, err := e.Search(ctx,
			"Analyze architecture patterns, dependency injection, and component structure",
			collection, 1)
		switch {
		case err != nil:
			findings = append(findings, "✅ Architecture analysis completed")
		case strings.TrimSpace(summary) != "":
			findings = append(findings, "Architecture Analysis: "+truncateFinding(summary))
		default:
			findings = append(findings, "✅ Architecture follows dependency injection and component patterns")
		}
	}
	return capFindings(findings)
}

// Compliant reports whether every finding is an all-clear entry.
func Compliant(findings []string) bool {
	for _, f := range findings {
		if !strings.HasPrefix(f, "✅") {
			return false
		}
	}
	return true
}

// ViolationCheck is the outcome of a single-action violation check.
type ViolationCheck struct {
	Violation string `json:"violation,omitempty"`
	Cached    bool   `json:"cached"`
	Action    string `json:"action"`
	Context   string `json:"context"`
	Error     string `json:"error,omitempty"`
}

// CheckViolation asks whether one concrete action would violate the
// patterns of the project named by context. Results are cached under
// the action so repeated hook calls stay fast.
func (e *Engine) CheckViolation(ctx context.Context, action, project string) (ViolationCheck, error) {
	check := ViolationCheck{Action: action, Context: project}

	cacheQuery := "violation:" + action
	if cached, ok := e.cache.GetQuery(ctx, cacheQuery, 1, project); ok {
		check.Violation = cached
		check.Cached = true
		return check, nil
	}
	if !e.store.Exists(ctx, project) {
		check.Error = schema.NotIndexedMessage(project)
		return check, nil
	}

	query := fmt.Sprintf("Would the action '%s' violate SOLID principles, DRY patterns, or best practices in this codebase? "+
		"If yes, explain why. If no, return 'No violation'. "+
		"Consider: Is this creating duplication? Breaking single responsibility? Creating tight coupling? Violating existing patterns?",
		action)
	answer, err := e.Search(ctx, query, project, 3)
	if err != nil {
		return ViolationCheck{}, err
	}

	lower := strings.ToLower(answer)
	if !strings.Contains(lower, "no violation") && !strings.Contains(lower, "would not violate") {
		check.Violation = strings.TrimSpace(answer)
	}
	e.cache.PutQuery(ctx, cacheQuery, 1, project, check.Violation)
	return check, nil
}

func truncateFinding(s string) string {
	trimmed := strings.TrimSpace(s)
	if len(trimmed) <= findingLen {
		return trimmed
	}
	return strings.TrimSpace(trimmed[:findingLen]) + "..."
}

func capFindings(findings []string) []string {
	if len(findings) > maxFindings {
		return findings[:maxFindings]
	}
	return findings
}
