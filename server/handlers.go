package server

import (
	"net/http"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/go-chi/chi/v5"

	"github.com/aqua777/codelens/analysis"
	"github.com/aqua777/codelens/engine"
	"github.com/aqua777/codelens/graphstore"
	"github.com/aqua777/codelens/schema"
)

func (s *Server) handleRoot(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{
		"service":     "codelens",
		"description": "semantic code intelligence service",
	})
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	status := "healthy"
	vectorStatus := "ok"

	client, err := s.reg.VectorClient()
	if err != nil {
		status, vectorStatus = "unhealthy", err.Error()
	} else if err := client.Ping(r.Context()); err != nil {
		status, vectorStatus = "unhealthy", err.Error()
	}

	collections := 0
	if names, err := s.store.List(r.Context()); err == nil {
		collections = len(names)
	}

	code := http.StatusOK
	if status != "healthy" {
		code = http.StatusServiceUnavailable
	}
	writeJSON(w, code, map[string]interface{}{
		"status": status,
		"components": map[string]interface{}{
			"vector_store":      vectorStatus,
			"collections_count": collections,
		},
	})
}

func (s *Server) handleSearch(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Query   string `json:"query"`
		Project string `json:"project"`
		Limit   int    `json:"limit"`
	}
	if !decodeJSON(w, r, &req) {
		return
	}
	if req.Limit == 0 {
		req.Limit = engine.DefaultTopK
	}
	result, err := s.engine.Search(r.Context(), req.Query, req.Project, req.Limit)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"result": result})
}

func (s *Server) handleIndex(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Path string           `json:"path"`
		Name string           `json:"name"`
		Mode schema.IndexMode `json:"mode"`
	}
	if !decodeJSON(w, r, &req) {
		return
	}
	if req.Mode == "" {
		req.Mode = s.cfg.IndexMode
	}
	result, err := s.store.IndexProject(r.Context(), req.Path, req.Name, req.Mode, s.cfg)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, result)
}

func (s *Server) handleRefresh(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Path string `json:"path"`
		Name string `json:"name"`
	}
	if !decodeJSON(w, r, &req) {
		return
	}
	result, err := s.store.RefreshProject(r.Context(), req.Path, req.Name, s.cfg)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{
		"collection": req.Name,
		"total":      result.Total,
		"refreshed":  result.Refreshed,
		"unchanged":  result.Unchanged,
	})
}

func (s *Server) handleViolations(w http.ResponseWriter, r *http.Request) {
	project := chi.URLParam(r, "project")
	writeJSON(w, http.StatusOK, map[string]interface{}{
		"violations": s.engine.FindViolations(r.Context(), project),
	})
}

func (s *Server) handleArchitecture(w http.ResponseWriter, r *http.Request) {
	project := chi.URLParam(r, "project")
	language := r.URL.Query().Get("language")
	issues := s.engine.CheckArchitectureCompliance(r.Context(), project, language)
	writeJSON(w, http.StatusOK, map[string]interface{}{
		"project":             project,
		"language":            language,
		"architecture_issues": issues,
		"compliant":           engine.Compliant(issues),
	})
}

func (s *Server) handleOverview(w http.ResponseWriter, r *http.Request) {
	var req struct {
		ProjectPath string   `json:"project_path"`
		Include     []string `json:"include"`
	}
	if !decodeJSON(w, r, &req) {
		return
	}
	if len(req.Include) == 0 {
		req.Include = []string{"structure", "patterns", "violations"}
	}
	project := filepath.Base(req.ProjectPath)
	include := make(map[string]bool, len(req.Include))
	for _, inc := range req.Include {
		include[inc] = true
	}

	result := make(map[string]interface{})
	if include["structure"] {
		result["structure"] = projectStructure(req.ProjectPath)
	}
	if include["patterns"] {
		pattern, err := s.engine.Search(r.Context(),
			"Identify architectural patterns, frameworks, and design patterns used in this codebase",
			project, engine.DefaultTopK)
		if err != nil {
			writeError(w, err)
			return
		}
		result["patterns"] = []string{pattern}
	}
	if include["violations"] {
		result["violations"] = s.engine.FindViolations(r.Context(), project)
	}
	result["important_files"] = importantFiles(req.ProjectPath)
	writeJSON(w, http.StatusOK, result)
}

func (s *Server) handleBusiness(w http.ResponseWriter, r *http.Request) {
	project := chi.URLParam(r, "project")
	var (
		report analysis.BusinessReport
		err    error
	)
	switch kind := r.URL.Query().Get("kind"); kind {
	case "", "logic":
		report, err = s.business.ExtractBusinessLogic(r.Context(), project)
	case "domain_model":
		report, err = s.business.ExtractDomainModel(r.Context(), project)
	case "workflows":
		report, err = s.business.ExtractWorkflows(r.Context(), project)
	case "api_contracts":
		report, err = s.business.ExtractAPIContracts(r.Context(), project)
	case "rules":
		var rules []string
		rules, err = s.business.ExtractBusinessRules(r.Context(), project)
		if err == nil {
			writeJSON(w, http.StatusOK, map[string]interface{}{"project": project, "rules": rules})
			return
		}
	default:
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "unknown business kind: " + kind})
		return
	}
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, report)
}

func (s *Server) handleDiagram(w http.ResponseWriter, r *http.Request) {
	project := chi.URLParam(r, "project")
	kind := analysis.DiagramKind(r.URL.Query().Get("kind"))
	if kind == "" {
		kind = analysis.DiagramMermaid
	}
	diagram, err := s.diagrams.Generate(r.Context(), project, kind)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{
		"project": project,
		"kind":    string(kind),
		"diagram": diagram,
	})
}

func (s *Server) handleCheckViolation(w http.ResponseWriter, r *http.Request) {
	action := r.URL.Query().Get("action")
	project := r.URL.Query().Get("context")
	check, err := s.engine.CheckViolation(r.Context(), action, project)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, check)
}

func (s *Server) handleSmartQuery(w http.ResponseWriter, r *http.Request) {
	query := r.URL.Query().Get("query")
	result, err := s.engine.SmartQuery(r.Context(), query, nil)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"query": query, "result": result})
}

func (s *Server) handleExists(w http.ResponseWriter, r *http.Request) {
	component := r.URL.Query().Get("component")
	project := r.URL.Query().Get("project")
	result, err := s.engine.Exists(r.Context(), component, project)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, result)
}

func (s *Server) handleComplex(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Query   string `json:"query"`
		Project string `json:"project"`
	}
	if !decodeJSON(w, r, &req) {
		return
	}
	collections := []string(nil)
	if req.Project != "" {
		collections = []string{req.Project}
	}
	response, err := s.engine.AnswerComplex(r.Context(), req.Query, collections)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{
		"query":    req.Query,
		"project":  req.Project,
		"response": response,
	})
}

func (s *Server) handleSuggest(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Task        string `json:"task"`
		ProjectType string `json:"project_type"`
	}
	if !decodeJSON(w, r, &req) {
		return
	}
	suggestions, err := s.suggest.SuggestLibraries(r.Context(), req.Task, req.ProjectType)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"task": req.Task, "suggestions": suggestions})
}

func (s *Server) handleDocsIndex(w http.ResponseWriter, r *http.Request) {
	var req struct {
		LibraryName string `json:"library_name"`
		DocsPath    string `json:"docs_path"`
	}
	if !decodeJSON(w, r, &req) {
		return
	}
	result, err := s.store.IndexDocs(r.Context(), req.DocsPath, req.LibraryName, s.cfg)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, result)
}

func (s *Server) handleDocsSearch(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Query        string `json:"query"`
		Library      string `json:"library"`
		ExamplesOnly bool   `json:"examples_only"`
	}
	if !decodeJSON(w, r, &req) {
		return
	}
	result, err := s.docs.SearchDocs(r.Context(), req.Query, req.Library, req.ExamplesOnly)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"result": result})
}

func (s *Server) handleDocsLibraries(w http.ResponseWriter, r *http.Request) {
	frameworks, err := s.store.ListFrameworks(r.Context())
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{"libraries": frameworks})
}

func (s *Server) handleDocsLibrary(w http.ResponseWriter, r *http.Request) {
	library := chi.URLParam(r, "library")
	stats, err := s.store.Stats(r.Context(), schema.DocsCollection(library))
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{
		"library":     library,
		"indexed":     true,
		"point_count": stats.PointCount,
		"mode":        stats.Mode,
	})
}

func (s *Server) handleDocsPattern(w http.ResponseWriter, r *http.Request) {
	query := r.URL.Query().Get("query")
	framework := r.URL.Query().Get("framework")
	result, err := s.docs.SearchPattern(r.Context(), query, framework)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"framework": framework, "pattern": result})
}

func (s *Server) handleDocsIndexFramework(w http.ResponseWriter, r *http.Request) {
	framework := r.URL.Query().Get("framework")
	url := r.URL.Query().Get("url")
	if url == "" {
		if auto, ok := s.cfg.Documentation.AutoIndex[framework]; ok {
			url = auto.URL
		}
	}
	if url == "" {
		writeJSON(w, http.StatusBadRequest, map[string]string{
			"error": "no url given and framework has no auto-index entry"})
		return
	}
	result, err := s.store.IndexDocs(r.Context(), url, framework, s.cfg)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, result)
}

func (s *Server) handleDocsFrameworks(w http.ResponseWriter, r *http.Request) {
	indexed, err := s.store.ListFrameworks(r.Context())
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{"frameworks": indexed})
}

func (s *Server) graphFor(r *http.Request) (*graphstore.SimpleStore, string, error) {
	project := chi.URLParam(r, "project")
	g, err := s.store.Graph(project)
	return g, project, err
}

func (s *Server) handleGraph(w http.ResponseWriter, r *http.Request) {
	g, project, err := s.graphFor(r)
	if err != nil {
		writeError(w, err)
		return
	}
	count, err := g.Count(r.Context())
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{
		"project":  project,
		"triplets": count,
	})
}

func (s *Server) handleGraphExport(w http.ResponseWriter, r *http.Request) {
	g, project, err := s.graphFor(r)
	if err != nil {
		writeError(w, err)
		return
	}
	export, err := graphstore.Export(r.Context(), g)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{"project": project, "graph": export})
}

func (s *Server) handleGraphVisualize(w http.ResponseWriter, r *http.Request) {
	g, project, err := s.graphFor(r)
	if err != nil {
		writeError(w, err)
		return
	}
	mermaid, err := graphstore.Mermaid(r.Context(), g)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"project": project, "mermaid": mermaid})
}

func (s *Server) handleAutoDocsSetup(w http.ResponseWriter, r *http.Request) {
	var req struct {
		ProjectPath string `json:"project_path"`
	}
	if !decodeJSON(w, r, &req) {
		return
	}
	result, err := InstallHooks(req.ProjectPath, s.serviceURL())
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, result)
}

func (s *Server) serviceURL() string {
	host := s.cfg.ServerHost
	if host == "0.0.0.0" || host == "" {
		host = "localhost"
	}
	return "http://" + host + ":" + strconv.Itoa(s.cfg.ServerPort)
}

// projectStructure lists the top two directory levels, skipping the
// usual build and VCS noise.
func projectStructure(root string) string {
	skip := map[string]bool{
		".git": true, "node_modules": true, "__pycache__": true,
		".venv": true, "venv": true, "vendor": true,
	}
	var b strings.Builder
	entries, err := os.ReadDir(root)
	if err != nil {
		return "Unable to read project structure"
	}
	for _, entry := range entries {
		if skip[entry.Name()] {
			continue
		}
		b.WriteString(entry.Name() + "\n")
		if entry.IsDir() {
			children, err := os.ReadDir(filepath.Join(root, entry.Name()))
			if err != nil {
				continue
			}
			for _, child := range children {
				if !skip[child.Name()] {
					b.WriteString("  " + child.Name() + "\n")
				}
			}
		}
	}
	return b.String()
}

// importantFiles picks out docs, API and entrypoint files, a few each.
func importantFiles(root string) map[string][]string {
	const perCategory = 3
	result := map[string][]string{"Documentation": {}, "API": {}, "Core": {}}

	if entries, err := os.ReadDir(filepath.Join(root, "docs")); err == nil {
		for _, entry := range entries {
			if strings.HasSuffix(entry.Name(), ".md") && len(result["Documentation"]) < perCategory {
				result["Documentation"] = append(result["Documentation"], entry.Name())
			}
		}
	}

	_ = filepath.WalkDir(root, func(path string, d os.DirEntry, err error) error {
		if err != nil || d.IsDir() {
			return nil
		}
		rel, relErr := filepath.Rel(root, path)
		if relErr != nil || strings.Contains(rel, ".git") || strings.Contains(rel, "vendor") {
			return nil
		}
		name := strings.ToLower(d.Name())
		switch {
		case strings.Contains(name, "api") && len(result["API"]) < perCategory:
			result["API"] = append(result["API"], filepath.ToSlash(rel))
		case (strings.Contains(name, "main") || strings.Contains(name, "search")) && len(result["Core"]) < perCategory:
			result["Core"] = append(result["Core"], filepath.ToSlash(rel))
		}
		return nil
	})
	return result
}
