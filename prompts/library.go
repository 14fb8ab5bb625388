package prompts

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// Default template names, addressed as "category/name".
const (
	TextQA          = "synthesis/text_qa"
	CitationQA      = "synthesis/citation_qa"
	SingleSelect    = "routing/single_select"
	SubQuestions    = "routing/sub_questions"
	ViolationCheck  = "violations/single_check"
	SuggestDefault  = "library_suggestions/default"
	SuggestContext  = "library_suggestions/with_context"
	BusinessLogic   = "analysis/business_logic"
	BusinessRules   = "analysis/business_rules"
	DomainModel     = "analysis/domain_model"
	Workflows       = "analysis/workflows"
	APIContracts    = "analysis/api_contracts"
	ExistenceCheck  = "analysis/existence_check"
	DiagramMermaid  = "visualization/mermaid"
	DiagramPlantUML = "visualization/plantuml"
	DiagramSequence = "visualization/sequence"
	DiagramClass    = "visualization/class"
	DiagramArch     = "visualization/architecture"
)

var defaults = map[string]string{
	TextQA: `Context information is below.
---------------------
{context_str}
---------------------
Given the context information and not prior knowledge, answer the query.
Query: {query_str}
Answer: `,

	CitationQA: `Context information with source markers is below.
---------------------
{context_str}
---------------------
Given the context information and not prior knowledge, answer the query.
Reference the sources you used.
Query: {query_str}
Answer: `,

	SingleSelect: `Some choices are given below. It is provided in a numbered list (1 to {num_choices}), where each item in the list corresponds to a summary.
---------------------
{context_list}
---------------------
Using only the choices above and not prior knowledge, return the choice that is most relevant to the question: '{query_str}'
Respond with a JSON array of objects: [{"choice": <number>, "reason": "<why>"}]
`,

	SubQuestions: `Break the following question into smaller sub-questions that can each be answered by searching one codebase.
Question: {query_str}
Respond with a JSON array of strings, one sub-question per element. Use at most {max_questions} sub-questions.
`,

	ViolationCheck: `Check the provided code context for {check_type} violations.
Describe each violation found with the file it occurs in. If there are no violations, state that the code is compliant.`,

	SuggestDefault: `Suggest well-maintained libraries for the following task: {task}
For each suggestion give the library name, one sentence on what it does, and why it fits the task.
Prefer widely adopted libraries. Output as a numbered list.`,

	SuggestContext: `Suggest well-maintained libraries for the following task: {task}
Project type: {project_type}
For each suggestion give the library name, one sentence on what it does, and why it fits the task.
Prefer widely adopted libraries. Output as a numbered list.`,

	BusinessLogic: `Analyze the codebase and extract the core business logic.
Provide:
1. Main business rules (numbered list)
2. Key business entities and their purposes
3. Critical business processes and workflows
4. Validation rules and constraints
5. Business decisions and conditions
Format as clear, non-technical language that a business analyst would understand.`,

	BusinessRules: `List all business rules found in the code.
Focus on:
- Validation rules
- Authorization rules
- Business constraints
- Calculation formulas
- Decision criteria
Output as numbered list, one rule per line.`,

	DomainModel: `Extract the domain model from the codebase.
Identify:
1. Domain entities (e.g., User, Order, Product)
2. Value objects (e.g., Money, Address)
3. Aggregates and their boundaries
4. Relationships between entities
Output as structured JSON if possible.`,

	Workflows: `Find business processes, workflows, and process flows in the codebase.
For each workflow list its trigger, the main steps in order, and the outcome.`,

	APIContracts: `Extract the API contracts exposed by the codebase.
For each endpoint list the method, path, inputs, outputs, and error responses.`,

	ExistenceCheck: `Does this codebase contain {component}? Answer with what you found and where.`,

	DiagramMermaid: `Generate a Mermaid.js sequence diagram for the main execution flow.
Start with 'sequenceDiagram' and use proper Mermaid syntax.
Focus on the most important interactions.
Example format:
sequenceDiagram
    participant A as ClassA
    participant B as ClassB
    A->>B: method_call()
    B-->>A: return result`,

	DiagramPlantUML: `Generate a PlantUML sequence diagram for the codebase.
Start with @startuml and end with @enduml.
Use proper PlantUML syntax for sequence diagrams.`,

	DiagramSequence: `Analyze the codebase and extract the sequence of function calls and interactions.
Output as JSON array with format:
[{"source": "function_or_class", "destination": "called_function", "action": "method_name", "order": 1}]
Focus on main execution flow and important interactions.`,

	DiagramClass: `Extract all classes and their relationships.
Output as JSON:
{
    "classes": [{"name": "ClassName", "methods": [], "attributes": []}],
    "relationships": [{"from": "ClassA", "to": "ClassB", "type": "inherits|uses|contains"}]
}`,

	DiagramArch: `Identify the main architectural components and their interactions.
Output as JSON:
{
    "components": [{"name": "component", "type": "service|module|database", "description": ""}],
    "connections": [{"from": "component1", "to": "component2", "protocol": "HTTP|gRPC|direct"}]
}`,
}

// Library resolves named templates, with YAML overrides layered over the
// built-in defaults. Extension happens through the YAML file, not code.
type Library struct {
	templates map[string]Template
}

// NewLibrary returns a library holding only the defaults.
func NewLibrary() *Library {
	lib := &Library{templates: make(map[string]Template, len(defaults))}
	for name, raw := range defaults {
		lib.templates[name] = New(raw)
	}
	return lib
}

// LoadLibrary layers templates from a YAML file (category → name → text)
// over the defaults.
func LoadLibrary(path string) (*Library, error) {
	lib := NewLibrary()

	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read prompts file: %w", err)
	}
	var doc map[string]map[string]string
	if err := yaml.Unmarshal(raw, &doc); err != nil {
		return nil, fmt.Errorf("parse prompts file %s: %w", path, err)
	}
	for category, entries := range doc {
		for name, text := range entries {
			lib.templates[category+"/"+name] = New(text)
		}
	}
	return lib, nil
}

// Get returns the template for the name; the bool reports presence.
func (l *Library) Get(name string) (Template, bool) {
	t, ok := l.templates[name]
	return t, ok
}

// Render formats the named template with vars. Unknown names render as
// empty strings, matching a lookup miss in the YAML file.
func (l *Library) Render(name string, vars map[string]string) string {
	t, ok := l.templates[name]
	if !ok {
		return ""
	}
	return t.Format(vars)
}
