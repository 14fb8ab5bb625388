package main

import (
	"context"
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/aqua777/codelens/analysis"
	"github.com/aqua777/codelens/component"
	"github.com/aqua777/codelens/engine"
	"github.com/aqua777/codelens/index"
	"github.com/aqua777/codelens/llm"
	"github.com/aqua777/codelens/resource"
	"github.com/aqua777/codelens/schema"
)

func buildEngine(reg *resource.Registry) (*engine.Engine, error) {
	store, err := index.NewStore(reg)
	if err != nil {
		return nil, err
	}
	return engine.New(reg, store)
}

func newIndexCmd() *cobra.Command {
	var mode string
	cmd := &cobra.Command{
		Use:   "index <path> <name>",
		Short: "Index a source tree into a collection",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withRegistry(func(ctx context.Context, reg *resource.Registry) error {
				store, err := index.NewStore(reg)
				if err != nil {
					return err
				}
				indexMode := reg.Config().IndexMode
				if mode != "" {
					indexMode = schema.IndexMode(mode)
				}
				result, err := store.IndexProject(ctx, args[0], args[1], indexMode, reg.Config())
				if err != nil {
					return err
				}
				fmt.Printf("Indexed %d documents into %q (%s mode)\n", result.Indexed, result.Collection, result.Mode)
				return nil
			})
		},
	}
	cmd.Flags().StringVar(&mode, "mode", "", "index mode: vector, graph, hybrid or auto")
	return cmd
}

func newRefreshCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "refresh <path> <name>",
		Short: "Re-read a source tree and update only changed documents",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withRegistry(func(ctx context.Context, reg *resource.Registry) error {
				store, err := index.NewStore(reg)
				if err != nil {
					return err
				}
				result, err := store.RefreshProject(ctx, args[0], args[1], reg.Config())
				if err != nil {
					return err
				}
				fmt.Printf("Refreshed %d of %d documents (%d unchanged)\n",
					result.Refreshed, result.Total, result.Unchanged)
				return nil
			})
		},
	}
}

func newIndexConversationsCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "index-conversations <path> <name>",
		Short: "Index a JSONL conversation log into a collection",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withRegistry(func(ctx context.Context, reg *resource.Registry) error {
				store, err := index.NewStore(reg)
				if err != nil {
					return err
				}
				result, err := store.IndexConversations(ctx, args[0], args[1])
				if err != nil {
					return err
				}
				fmt.Printf("Indexed %d conversation turns into %q\n", result.Indexed, result.Collection)
				return nil
			})
		},
	}
}

func newSearchCmd() *cobra.Command {
	var project string
	var limit int
	var citations bool
	cmd := &cobra.Command{
		Use:   "search <query>",
		Short: "Semantic search over an indexed project",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withRegistry(func(ctx context.Context, reg *resource.Registry) error {
				eng, err := buildEngine(reg)
				if err != nil {
					return err
				}
				if citations {
					resp, err := eng.SearchWithCitations(ctx, args[0], project, limit)
					if err != nil {
						return err
					}
					fmt.Println(resp.Response)
					for _, c := range resp.Citations {
						fmt.Printf("  [%d] %s\n", c.Rank, c.File)
					}
					return nil
				}
				result, err := eng.Search(ctx, args[0], project, limit)
				if err != nil {
					return err
				}
				fmt.Println(result)
				return nil
			})
		},
	}
	cmd.Flags().StringVarP(&project, "project", "p", "", "indexed project name")
	cmd.Flags().IntVarP(&limit, "limit", "k", engine.DefaultTopK, "number of chunks to retrieve")
	cmd.Flags().BoolVar(&citations, "citations", false, "include source citations")
	_ = cmd.MarkFlagRequired("project")
	return cmd
}

func newSmartCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "smart <query>",
		Short: "Route a query to the most relevant indexed collection",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withRegistry(func(ctx context.Context, reg *resource.Registry) error {
				eng, err := buildEngine(reg)
				if err != nil {
					return err
				}
				result, err := eng.SmartQuery(ctx, args[0], nil)
				if err != nil {
					return err
				}
				fmt.Println(result)
				return nil
			})
		},
	}
}

func newComplexCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "complex <query> [collection...]",
		Short: "Decompose a complex question into sub-questions and synthesize an answer",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withRegistry(func(ctx context.Context, reg *resource.Registry) error {
				eng, err := buildEngine(reg)
				if err != nil {
					return err
				}
				result, err := eng.AnswerComplex(ctx, args[0], args[1:])
				if err != nil {
					return err
				}
				fmt.Println(result)
				return nil
			})
		},
	}
}

func newExistsCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "exists <component> <project>",
		Short: "Check whether a component already exists in a project",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withRegistry(func(ctx context.Context, reg *resource.Registry) error {
				eng, err := buildEngine(reg)
				if err != nil {
					return err
				}
				result, err := eng.Exists(ctx, args[0], args[1])
				if err != nil {
					return err
				}
				if result.Error != "" {
					fmt.Println(result.Error)
					return nil
				}
				fmt.Printf("exists: %t (confidence %.2f)\n", result.Exists, result.Confidence)
				if result.Context != "" {
					fmt.Println(result.Context)
				}
				return nil
			})
		},
	}
}

func newViolationsCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "violations <project>",
		Short: "Find SOLID and DRY violations in an indexed project",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withRegistry(func(ctx context.Context, reg *resource.Registry) error {
				eng, err := buildEngine(reg)
				if err != nil {
					return err
				}
				for _, finding := range eng.FindViolations(ctx, args[0]) {
					fmt.Println(finding)
				}
				return nil
			})
		},
	}
}

func newArchitectureCmd() *cobra.Command {
	var language string
	cmd := &cobra.Command{
		Use:   "architecture <project>",
		Short: "Check architecture compliance of an indexed project",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withRegistry(func(ctx context.Context, reg *resource.Registry) error {
				eng, err := buildEngine(reg)
				if err != nil {
					return err
				}
				findings := eng.CheckArchitectureCompliance(ctx, args[0], language)
				for _, finding := range findings {
					fmt.Println(finding)
				}
				if engine.Compliant(findings) {
					fmt.Println("compliant")
				}
				return nil
			})
		},
	}
	cmd.Flags().StringVar(&language, "language", "", "language hint, e.g. go or python")
	return cmd
}

func newCheckViolationCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "check-violation <action> <project>",
		Short: "Check whether a planned action would violate design principles",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withRegistry(func(ctx context.Context, reg *resource.Registry) error {
				eng, err := buildEngine(reg)
				if err != nil {
					return err
				}
				check, err := eng.CheckViolation(ctx, args[0], args[1])
				if err != nil {
					return err
				}
				if check.Error != "" {
					fmt.Println(check.Error)
					return nil
				}
				if check.Violation == "" {
					fmt.Println("no violation")
					return nil
				}
				fmt.Println(check.Violation)
				return nil
			})
		},
	}
}

func newBusinessCmd() *cobra.Command {
	var kind string
	cmd := &cobra.Command{
		Use:   "business <project>",
		Short: "Extract business knowledge from an indexed project",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withRegistry(func(ctx context.Context, reg *resource.Registry) error {
				eng, err := buildEngine(reg)
				if err != nil {
					return err
				}
				library, err := reg.Prompts()
				if err != nil {
					return err
				}
				extractor := analysis.NewBusinessExtractor(eng, library)

				if kind == "rules" {
					rules, err := extractor.ExtractBusinessRules(ctx, args[0])
					if err != nil {
						return err
					}
					for _, rule := range rules {
						fmt.Println(rule)
					}
					return nil
				}

				var report analysis.BusinessReport
				switch kind {
				case "logic", "":
					report, err = extractor.ExtractBusinessLogic(ctx, args[0])
				case "domain_model":
					report, err = extractor.ExtractDomainModel(ctx, args[0])
				case "workflows":
					report, err = extractor.ExtractWorkflows(ctx, args[0])
				case "api_contracts":
					report, err = extractor.ExtractAPIContracts(ctx, args[0])
				default:
					return &schema.ConfigError{Key: "kind", Reason: fmt.Sprintf("unknown kind %q", kind)}
				}
				if err != nil {
					return err
				}
				if report.Error != "" {
					fmt.Println(report.Error)
					return nil
				}
				fmt.Println(report.Content)
				return nil
			})
		},
	}
	cmd.Flags().StringVar(&kind, "kind", "logic", "logic, rules, domain_model, workflows or api_contracts")
	return cmd
}

func newDiagramCmd() *cobra.Command {
	var kind string
	cmd := &cobra.Command{
		Use:   "diagram <project>",
		Short: "Generate an architecture diagram from an indexed project",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withRegistry(func(ctx context.Context, reg *resource.Registry) error {
				eng, err := buildEngine(reg)
				if err != nil {
					return err
				}
				library, err := reg.Prompts()
				if err != nil {
					return err
				}
				diagram, err := analysis.NewDiagramGenerator(eng, library).
					Generate(ctx, args[0], analysis.DiagramKind(kind))
				if err != nil {
					return err
				}
				fmt.Println(diagram)
				return nil
			})
		},
	}
	cmd.Flags().StringVar(&kind, "type", "mermaid", "sequence, mermaid, plantuml, class or architecture")
	return cmd
}

func newSuggestCmd() *cobra.Command {
	var projectType string
	cmd := &cobra.Command{
		Use:   "suggest <task>",
		Short: "Suggest libraries for a development task",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withRegistry(func(ctx context.Context, reg *resource.Registry) error {
				model, err := reg.LLM(llm.KindComplexAlt)
				if err != nil {
					return err
				}
				library, err := reg.Prompts()
				if err != nil {
					return err
				}
				suggestions, err := analysis.NewSuggester(model, library).
					SuggestLibraries(ctx, strings.Join(args, " "), projectType)
				if err != nil {
					return err
				}
				fmt.Println(suggestions)
				return nil
			})
		},
	}
	cmd.Flags().StringVar(&projectType, "project-type", "", "project-type hint, e.g. web api")
	return cmd
}

func newIndexDocsCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "index-docs <framework> <path-or-url>",
		Short: "Index framework documentation from a directory or a URL",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withRegistry(func(ctx context.Context, reg *resource.Registry) error {
				store, err := index.NewStore(reg)
				if err != nil {
					return err
				}
				result, err := store.IndexDocs(ctx, args[1], args[0], reg.Config())
				if err != nil {
					return err
				}
				fmt.Printf("Indexed %d documents for %s\n", result.Indexed, args[0])
				return nil
			})
		},
	}
}

func newSearchDocsCmd() *cobra.Command {
	var examplesOnly bool
	cmd := &cobra.Command{
		Use:   "search-docs <query> <framework>",
		Short: "Search indexed framework documentation",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withRegistry(func(ctx context.Context, reg *resource.Registry) error {
				eng, err := buildEngine(reg)
				if err != nil {
					return err
				}
				result, err := analysis.NewDocSearcher(eng, reg.Config()).
					SearchDocs(ctx, args[0], args[1], examplesOnly)
				if err != nil {
					return err
				}
				fmt.Println(result)
				return nil
			})
		},
	}
	cmd.Flags().BoolVar(&examplesOnly, "examples", false, "bias retrieval toward code examples")
	return cmd
}

func newHowToCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "howto <task> <framework>",
		Short: "Get a step-by-step how-to from indexed framework docs",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withRegistry(func(ctx context.Context, reg *resource.Registry) error {
				eng, err := buildEngine(reg)
				if err != nil {
					return err
				}
				result, err := analysis.NewDocSearcher(eng, reg.Config()).HowTo(ctx, args[0], args[1])
				if err != nil {
					return err
				}
				fmt.Println(result)
				return nil
			})
		},
	}
}

func newListDocsCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "list-docs",
		Short: "List frameworks with indexed documentation",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return withRegistry(func(ctx context.Context, reg *resource.Registry) error {
				store, err := index.NewStore(reg)
				if err != nil {
					return err
				}
				frameworks, err := store.ListFrameworks(ctx)
				if err != nil {
					return err
				}
				if len(frameworks) == 0 {
					fmt.Println("No documentation indexed")
					return nil
				}
				for _, fw := range frameworks {
					fmt.Println(fw)
				}
				return nil
			})
		},
	}
}

func newComponentsCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "components",
		Short: "List the registered analysis components by domain",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return withRegistry(func(ctx context.Context, reg *resource.Registry) error {
				eng, err := buildEngine(reg)
				if err != nil {
					return err
				}
				library, err := reg.Prompts()
				if err != nil {
					return err
				}
				model, err := reg.LLM(llm.KindComplexAlt)
				if err != nil {
					return err
				}
				components := component.NewRegistry(component.Deps{
					Engine:  eng,
					Config:  reg.Config(),
					Library: library,
					Suggest: model,
				})
				for _, domain := range components.Domains() {
					fmt.Println(domain)
					for _, name := range components.List(domain) {
						fmt.Printf("  %s\n", name)
					}
				}
				return nil
			})
		},
	}
}
