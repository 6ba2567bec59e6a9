package mcpserver

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/toto-dev/mcp-server-github-codeowners/internal/model"
)

type getFileOwnerInput struct {
	Owner  string `json:"owner" jsonschema:"Repository owner"`
	Repo   string `json:"repo" jsonschema:"Repository name"`
	Path   string `json:"path" jsonschema:"File path"`
	Branch string `json:"branch,omitempty" jsonschema:"Branch name (default: main)"`
}

type getFileOwnerOutput struct {
	Owners      []string           `json:"owners"`
	Pattern     string             `json:"pattern,omitempty"`
	Diagnostics []model.Diagnostic `json:"diagnostics,omitempty"`
}

func (s *Server) handleGetFileOwner(ctx context.Context, req *mcp.CallToolRequest, in getFileOwnerInput) (*mcp.CallToolResult, getFileOwnerOutput, error) {
	if err := validateRepoInput(in.Owner, in.Repo, in.Path); err != nil {
		return nil, getFileOwnerOutput{}, err
	}

	res, err := s.pipeline.FileOwners(ctx, in.Owner, in.Repo, branchOrDefault(in.Branch), in.Path)
	if err != nil {
		slog.Error("get_file_owner failed", "repo", in.Owner+"/"+in.Repo, "path", in.Path, "error", err)
		return nil, getFileOwnerOutput{}, err
	}

	slog.Debug("resolved file owner", "path", in.Path, "owners", res.Owners)
	return nil, getFileOwnerOutput{
		Owners:      res.Owners,
		Pattern:     res.Pattern,
		Diagnostics: res.Diagnostics,
	}, nil
}

type getFileExistsInput struct {
	Owner  string `json:"owner" jsonschema:"Repository owner"`
	Repo   string `json:"repo" jsonschema:"Repository name"`
	Path   string `json:"path" jsonschema:"File path"`
	Branch string `json:"branch,omitempty" jsonschema:"Branch name (default: main)"`
}

type getFileExistsOutput struct {
	Exists bool `json:"exists"`
}

func (s *Server) handleGetFileExists(ctx context.Context, req *mcp.CallToolRequest, in getFileExistsInput) (*mcp.CallToolResult, getFileExistsOutput, error) {
	if err := validateRepoInput(in.Owner, in.Repo, in.Path); err != nil {
		return nil, getFileExistsOutput{}, err
	}

	exists, err := s.pipeline.FileExists(ctx, in.Owner, in.Repo, in.Path, branchOrDefault(in.Branch))
	if err != nil {
		slog.Error("get_file_exists failed", "repo", in.Owner+"/"+in.Repo, "path", in.Path, "error", err)
		return nil, getFileExistsOutput{}, err
	}

	return nil, getFileExistsOutput{Exists: exists}, nil
}

type resolveOwnersInput struct {
	Owner  string   `json:"owner" jsonschema:"Repository owner"`
	Repo   string   `json:"repo" jsonschema:"Repository name"`
	Paths  []string `json:"paths" jsonschema:"File paths to resolve"`
	Branch string   `json:"branch,omitempty" jsonschema:"Branch name (default: main)"`
}

type resolveOwnersOutput struct {
	Results     map[string]model.ResolvedOwnership `json:"results"`
	Diagnostics []model.Diagnostic                 `json:"diagnostics,omitempty"` // Parse-time diagnostics
}

func (s *Server) handleResolveOwners(ctx context.Context, req *mcp.CallToolRequest, in resolveOwnersInput) (*mcp.CallToolResult, resolveOwnersOutput, error) {
	if err := validateRepoInput(in.Owner, in.Repo, "-"); err != nil {
		return nil, resolveOwnersOutput{}, err
	}
	if len(in.Paths) == 0 {
		return nil, resolveOwnersOutput{}, fmt.Errorf("paths must not be empty")
	}

	results, diags, err := s.pipeline.ResolveFiles(ctx, in.Owner, in.Repo, branchOrDefault(in.Branch), in.Paths)
	if err != nil {
		slog.Error("resolve_owners failed", "repo", in.Owner+"/"+in.Repo, "paths", len(in.Paths), "error", err)
		return nil, resolveOwnersOutput{}, err
	}

	return nil, resolveOwnersOutput{Results: results, Diagnostics: diags}, nil
}

func validateRepoInput(owner, repo, path string) error {
	if owner == "" {
		return fmt.Errorf("owner must not be empty")
	}
	if repo == "" {
		return fmt.Errorf("repo must not be empty")
	}
	if path == "" {
		return fmt.Errorf("path must not be empty")
	}
	return nil
}

func branchOrDefault(branch string) string {
	if branch == "" {
		return "main"
	}
	return branch
}
