// Package mcpserver exposes the core operations as MCP tools over
// stdio. Every handler is a thin delegate; the engine and store do the
// work.
package mcpserver

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/mark3labs/mcp-go/mcp"
	mcpsrv "github.com/mark3labs/mcp-go/server"
	"go.uber.org/zap"

	"github.com/aqua777/codelens/analysis"
	"github.com/aqua777/codelens/config"
	"github.com/aqua777/codelens/engine"
	"github.com/aqua777/codelens/index"
	"github.com/aqua777/codelens/llm"
	"github.com/aqua777/codelens/resource"
	"github.com/aqua777/codelens/schema"
)

// Server is the MCP transport over the wired core.
type Server struct {
	mcp     *mcpsrv.MCPServer
	cfg     *config.Config
	store   *index.Store
	engine  *engine.Engine
	docs    *analysis.DocSearcher
	suggest *analysis.Suggester
	log     *zap.Logger
}

// New wires the MCP server and registers every tool.
func New(reg *resource.Registry) (*Server, error) {
	store, err := index.NewStore(reg)
	if err != nil {
		return nil, err
	}
	eng, err := engine.New(reg, store)
	if err != nil {
		return nil, err
	}
	library, err := reg.Prompts()
	if err != nil {
		return nil, err
	}
	suggestModel, err := reg.LLM(llm.KindComplexAlt)
	if err != nil {
		return nil, err
	}

	s := &Server{
		mcp:     mcpsrv.NewMCPServer("codelens", "1.0.0", mcpsrv.WithToolCapabilities(false)),
		cfg:     reg.Config(),
		store:   store,
		engine:  eng,
		docs:    analysis.NewDocSearcher(eng, reg.Config()),
		suggest: analysis.NewSuggester(suggestModel, library),
		log:     reg.Logger(),
	}
	s.registerTools()
	return s, nil
}

// Serve runs the stdio loop until stdin closes.
func (s *Server) Serve() error {
	return mcpsrv.ServeStdio(s.mcp)
}

func (s *Server) registerTools() {
	s.mcp.AddTool(mcp.NewTool("search_code",
		mcp.WithDescription("Semantic search over an indexed project; returns a synthesized answer."),
		mcp.WithString("query", mcp.Required(), mcp.Description("Natural language query")),
		mcp.WithString("project", mcp.Required(), mcp.Description("Indexed project name")),
		mcp.WithNumber("limit", mcp.Description("How many chunks to retrieve (default 5)")),
	), s.handleSearchCode)

	s.mcp.AddTool(mcp.NewTool("index_project",
		mcp.WithDescription("Index a source tree for semantic search."),
		mcp.WithString("path", mcp.Required(), mcp.Description("Directory to index")),
		mcp.WithString("name", mcp.Required(), mcp.Description("Collection name")),
		mcp.WithString("mode", mcp.Description("vector, graph, hybrid or auto")),
	), s.handleIndexProject)

	s.mcp.AddTool(mcp.NewTool("check_component_exists",
		mcp.WithDescription("Check whether a component already exists in an indexed project before writing a new one."),
		mcp.WithString("component", mcp.Required(), mcp.Description("Component, class or function name")),
		mcp.WithString("project", mcp.Required(), mcp.Description("Indexed project name")),
	), s.handleComponentExists)

	s.mcp.AddTool(mcp.NewTool("find_violations",
		mcp.WithDescription("Run SOLID and DRY violation analysis against an indexed project."),
		mcp.WithString("project", mcp.Required(), mcp.Description("Indexed project name")),
	), s.handleFindViolations)

	s.mcp.AddTool(mcp.NewTool("suggest_libraries",
		mcp.WithDescription("Suggest libraries for a development task."),
		mcp.WithString("task", mcp.Required(), mcp.Description("What the libraries should do")),
		mcp.WithString("project_type", mcp.Description("Optional project-type hint")),
	), s.handleSuggestLibraries)

	s.mcp.AddTool(mcp.NewTool("get_pattern",
		mcp.WithDescription("Get a precise implementation pattern from indexed framework docs."),
		mcp.WithString("query", mcp.Required(), mcp.Description("Pattern to look for")),
		mcp.WithString("framework", mcp.Description("Framework whose docs to search (default llamaindex)")),
	), s.handleGetPattern)

	s.mcp.AddTool(mcp.NewTool("query_docs",
		mcp.WithDescription("Search indexed library documentation."),
		mcp.WithString("query", mcp.Required(), mcp.Description("Question about the library")),
		mcp.WithString("library", mcp.Required(), mcp.Description("Library name")),
		mcp.WithBoolean("examples_only", mcp.Description("Bias retrieval toward code examples")),
	), s.handleQueryDocs)

	s.mcp.AddTool(mcp.NewTool("index_framework_docs",
		mcp.WithDescription("Index a framework's documentation from a local path."),
		mcp.WithString("framework", mcp.Required(), mcp.Description("Framework name")),
		mcp.WithString("docs_path", mcp.Required(), mcp.Description("Directory holding the docs")),
	), s.handleIndexFrameworkDocs)

	s.mcp.AddTool(mcp.NewTool("index_docs_url",
		mcp.WithDescription("Crawl a documentation site and index it for a framework."),
		mcp.WithString("url", mcp.Required(), mcp.Description("Start URL")),
		mcp.WithString("framework", mcp.Required(), mcp.Description("Framework name")),
	), s.handleIndexDocsURL)

	s.mcp.AddTool(mcp.NewTool("index_github_docs",
		mcp.WithDescription("Index the documentation subtrees of a GitHub repository."),
		mcp.WithString("owner", mcp.Required(), mcp.Description("Repository owner")),
		mcp.WithString("repo", mcp.Required(), mcp.Description("Repository name")),
		mcp.WithString("framework", mcp.Description("Framework name (defaults to the repo name)")),
	), s.handleIndexGitHubDocs)

	s.mcp.AddTool(mcp.NewTool("list_indexed_frameworks",
		mcp.WithDescription("List frameworks with indexed documentation."),
	), s.handleListFrameworks)
}

func (s *Server) handleSearchCode(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	query, err := req.RequireString("query")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	project, err := req.RequireString("project")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	return textResult(s.engine.Search(ctx, query, project, req.GetInt("limit", engine.DefaultTopK)))
}

func (s *Server) handleIndexProject(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	path, err := req.RequireString("path")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	name, err := req.RequireString("name")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	mode := schema.IndexMode(req.GetString("mode", string(s.cfg.IndexMode)))
	result, err := s.store.IndexProject(ctx, path, name, mode, s.cfg)
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	return jsonResult(result)
}

func (s *Server) handleComponentExists(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	component, err := req.RequireString("component")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	project, err := req.RequireString("project")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	result, err := s.engine.Exists(ctx, component, project)
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	return jsonResult(result)
}

func (s *Server) handleFindViolations(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	project, err := req.RequireString("project")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	return jsonResult(s.engine.FindViolations(ctx, project))
}

func (s *Server) handleSuggestLibraries(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	task, err := req.RequireString("task")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	return textResult(s.suggest.SuggestLibraries(ctx, task, req.GetString("project_type", "")))
}

func (s *Server) handleGetPattern(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	query, err := req.RequireString("query")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	return textResult(s.docs.SearchPattern(ctx, query, req.GetString("framework", "llamaindex")))
}

func (s *Server) handleQueryDocs(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	query, err := req.RequireString("query")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	library, err := req.RequireString("library")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	return textResult(s.docs.SearchDocs(ctx, query, library, req.GetBool("examples_only", false)))
}

func (s *Server) handleIndexFrameworkDocs(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	framework, err := req.RequireString("framework")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	path, err := req.RequireString("docs_path")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	result, err := s.store.IndexDocs(ctx, path, framework, s.cfg)
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	return jsonResult(result)
}

func (s *Server) handleIndexDocsURL(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	url, err := req.RequireString("url")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	framework, err := req.RequireString("framework")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	result, err := s.store.IndexDocs(ctx, url, framework, s.cfg)
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	return jsonResult(result)
}

func (s *Server) handleIndexGitHubDocs(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	owner, err := req.RequireString("owner")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	repo, err := req.RequireString("repo")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	result, err := s.store.IndexGitHubDocs(ctx, owner, repo, req.GetString("framework", repo))
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	return jsonResult(result)
}

func (s *Server) handleListFrameworks(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	frameworks, err := s.store.ListFrameworks(ctx)
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	return jsonResult(frameworks)
}

func textResult(result string, err error) (*mcp.CallToolResult, error) {
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	return mcp.NewToolResultText(result), nil
}

func jsonResult(v interface{}) (*mcp.CallToolResult, error) {
	raw, err := json.Marshal(v)
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("encode result: %v", err)), nil
	}
	return mcp.NewToolResultText(string(raw)), nil
}
