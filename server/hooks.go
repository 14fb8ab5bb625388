package server

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/aqua777/codelens/schema"
)

// HookSetupResult reports an auto-docs hook installation.
type HookSetupResult struct {
	Success        bool     `json:"success"`
	Project        string   `json:"project"`
	HooksInstalled []string `json:"hooks_installed"`
	ServiceURL     string   `json:"service_url"`
	Path           string   `json:"path"`
}

// InstallHooks writes minimal pre-commit and post-commit hooks into the
// project's .git/hooks that shell out to this service via curl. Hooks
// are short on purpose: the service does the work.
func InstallHooks(projectPath, serviceURL string) (HookSetupResult, error) {
	abs, err := filepath.Abs(projectPath)
	if err != nil {
		return HookSetupResult{}, &schema.ReadError{Source: projectPath, Err: err}
	}
	if _, err := os.Stat(abs); err != nil {
		return HookSetupResult{}, fmt.Errorf("project path %s: %w", abs, schema.ErrNotFound)
	}
	gitDir := filepath.Join(abs, ".git")
	if info, err := os.Stat(gitDir); err != nil || !info.IsDir() {
		return HookSetupResult{}, fmt.Errorf("not a git repository: %s: %w", abs, schema.ErrNotFound)
	}

	hooksDir := filepath.Join(gitDir, "hooks")
	if err := os.MkdirAll(hooksDir, 0o755); err != nil {
		return HookSetupResult{}, err
	}

	project := filepath.Base(abs)
	hooks := map[string]string{
		"pre-commit": fmt.Sprintf(`#!/bin/sh
# Auto-docs generation, delegated to the codelens service.
curl -s -X POST %s/refresh/project -d '{"path":".","name":"%s"}' -H "Content-Type: application/json" || echo "Auto-docs refresh failed"
`, serviceURL, project),
		"post-commit": fmt.Sprintf(`#!/bin/sh
# Violation detection, delegated to the codelens service.
curl -s "%s/check/violation?action=commit&context=%s" || echo "Violation check failed"
`, serviceURL, project),
	}

	installed := make([]string, 0, len(hooks))
	for _, name := range []string{"pre-commit", "post-commit"} {
		path := filepath.Join(hooksDir, name)
		if err := os.WriteFile(path, []byte(hooks[name]), 0o755); err != nil {
			return HookSetupResult{}, err
		}
		installed = append(installed, name)
	}

	return HookSetupResult{
		Success:        true,
		Project:        project,
		HooksInstalled: installed,
		ServiceURL:     serviceURL,
		Path:           abs,
	}, nil
}
