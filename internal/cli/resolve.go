package cli

import (
	"bufio"
	"context"
	"encoding/json"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/toto-dev/mcp-server-github-codeowners/internal/model"
	"github.com/toto-dev/mcp-server-github-codeowners/internal/ownership"
	"github.com/toto-dev/mcp-server-github-codeowners/internal/pipeline"
)

var (
	resolveRepo      string
	resolveBranch    string
	resolveFiles     []string
	resolvePathsFile string
	resolveTimeout   time.Duration
)

// resolveCmd represents the resolve command
var resolveCmd = &cobra.Command{
	Use:   "resolve [paths...]",
	Short: "Resolve CODEOWNERS ownership for file paths",
	Long: `Resolve answers "who owns these files" in one shot, without starting
the MCP server.

Rules come either from a GitHub repository (--repo, fetched through the
API) or from local CODEOWNERS files (--file, repeatable; later files
take precedence over earlier ones). Paths are given as arguments or one
per line in --paths-file. Results are printed as JSON.

Example:
  mcp-github-owners resolve --repo acme/widgets src/main.go docs/guide.md
  mcp-github-owners resolve --file CODEOWNERS --file .github/CODEOWNERS --paths-file changed.txt`,
	RunE: runResolve,
}

func init() {
	rootCmd.AddCommand(resolveCmd)

	resolveCmd.Flags().StringVar(&resolveRepo, "repo", "", "GitHub repository as owner/name")
	resolveCmd.Flags().StringVar(&resolveBranch, "branch", "main", "branch to read CODEOWNERS from")
	resolveCmd.Flags().StringArrayVar(&resolveFiles, "file", nil, "local CODEOWNERS file (repeatable, later files win)")
	resolveCmd.Flags().StringVar(&resolvePathsFile, "paths-file", "", "file with one path per line")
	resolveCmd.Flags().DurationVar(&resolveTimeout, "timeout", 2*time.Minute, "overall resolution timeout")
}

// resolveOutput is the JSON document printed by the resolve command
type resolveOutput struct {
	Results     map[string]model.ResolvedOwnership `json:"results"`
	Diagnostics []model.Diagnostic                 `json:"diagnostics,omitempty"`
}

func runResolve(cmd *cobra.Command, args []string) error {
	cfg := buildConfig()
	setupLogging(cfg)

	if resolveRepo == "" && len(resolveFiles) == 0 {
		return fmt.Errorf("either --repo or --file is required")
	}
	if resolveRepo != "" && len(resolveFiles) > 0 {
		return fmt.Errorf("--repo and --file are mutually exclusive")
	}

	paths, err := collectPaths(args)
	if err != nil {
		return err
	}
	if len(paths) == 0 {
		return fmt.Errorf("no paths given (pass them as arguments or via --paths-file)")
	}

	ctx, cancel := context.WithTimeout(context.Background(), resolveTimeout)
	defer cancel()

	p := pipeline.New(cfg)

	var (
		results map[string]model.ResolvedOwnership
		diags   []model.Diagnostic
	)
	if resolveRepo != "" {
		owner, repo, ok := strings.Cut(resolveRepo, "/")
		if !ok || owner == "" || repo == "" {
			return fmt.Errorf("invalid --repo %q (expected owner/name)", resolveRepo)
		}
		results, diags, err = p.ResolveFiles(ctx, owner, repo, resolveBranch, paths)
	} else {
		var sources []ownership.Source
		sources, err = readSources(resolveFiles)
		if err != nil {
			return err
		}
		results, diags, err = p.ResolveLocal(ctx, sources, paths)
	}
	if err != nil {
		return err
	}

	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	return enc.Encode(resolveOutput{Results: results, Diagnostics: diags})
}

// collectPaths merges positional arguments with --paths-file lines
func collectPaths(args []string) ([]string, error) {
	paths := append([]string(nil), args...)
	if resolvePathsFile == "" {
		return paths, nil
	}

	f, err := os.Open(resolvePathsFile)
	if err != nil {
		return nil, fmt.Errorf("open paths file: %w", err)
	}
	defer f.Close()

	scanner := bufio.NewScanner(f)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		paths = append(paths, line)
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("read paths file: %w", err)
	}
	return paths, nil
}

func readSources(files []string) ([]ownership.Source, error) {
	sources := make([]ownership.Source, 0, len(files))
	for _, name := range files {
		content, err := os.ReadFile(name)
		if err != nil {
			return nil, fmt.Errorf("read CODEOWNERS file: %w", err)
		}
		sources = append(sources, ownership.Source{Path: name, Content: string(content)})
	}
	return sources, nil
}
