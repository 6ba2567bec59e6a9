package mcpserver

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"reflect"
	"testing"
	"time"

	"github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/toto-dev/mcp-server-github-codeowners/internal/model"
	"github.com/toto-dev/mcp-server-github-codeowners/internal/pipeline"
)

// The handlers must keep the SDK's typed tool handler shape or AddTool
// stops accepting them.
var (
	_ mcp.ToolHandlerFor[getFileOwnerInput, getFileOwnerOutput]   = (&Server{}).handleGetFileOwner
	_ mcp.ToolHandlerFor[getFileExistsInput, getFileExistsOutput] = (&Server{}).handleGetFileExists
	_ mcp.ToolHandlerFor[resolveOwnersInput, resolveOwnersOutput] = (&Server{}).handleResolveOwners
)

func testServer(t *testing.T, codeowners string, files map[string]bool) (*Server, func()) {
	t.Helper()

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/repos/acme/widgets/contents/.github/CODEOWNERS":
			fmt.Fprint(w, codeowners)
		case "/orgs/acme/teams/backend/members":
			fmt.Fprint(w, `[{"login":"alice"},{"login":"bob"}]`)
		default:
			for path, ok := range files {
				if ok && r.URL.Path == "/repos/acme/widgets/contents/"+path {
					fmt.Fprint(w, `{"name":"ok"}`)
					return
				}
			}
			w.WriteHeader(http.StatusNotFound)
		}
	}))

	cfg := model.DefaultConfig()
	cfg.GitHub.BaseURL = srv.URL
	cfg.GitHub.Timeout = 5 * time.Second
	cfg.GitHub.RequestsPerSecond = 1000
	cfg.GitHub.Burst = 100

	return New(pipeline.New(cfg), cfg, "test"), srv.Close
}

func TestBuildRegistersTools(t *testing.T) {
	s, done := testServer(t, "* @alice\n", nil)
	defer done()

	// AddTool derives the input/output schemas at registration time, so a
	// schema problem surfaces here rather than on the first call.
	if srv := s.build(); srv == nil {
		t.Fatal("expected a built server")
	}
}

func TestHandleGetFileOwner(t *testing.T) {
	s, done := testServer(t, "*.go @acme/backend\n", nil)
	defer done()

	_, out, err := s.handleGetFileOwner(context.Background(), nil, getFileOwnerInput{
		Owner: "acme", Repo: "widgets", Path: "cmd/main.go",
	})
	if err != nil {
		t.Fatalf("handler failed: %v", err)
	}

	if !reflect.DeepEqual(out.Owners, []string{"@alice", "@bob"}) {
		t.Errorf("expected expanded team members, got %v", out.Owners)
	}
	if out.Pattern != "*.go" {
		t.Errorf("expected winning pattern *.go, got %q", out.Pattern)
	}
}

func TestHandleGetFileOwner_MissingFile(t *testing.T) {
	s, done := testServer(t, "*.go @alice\n", nil)
	defer done()

	_, _, err := s.handleGetFileOwner(context.Background(), nil, getFileOwnerInput{
		Owner: "acme", Repo: "widgets", Path: "ghost.md",
	})
	if err == nil {
		t.Fatal("expected an error for an unowned, missing file")
	}
}

func TestHandleGetFileOwner_InputValidation(t *testing.T) {
	s, done := testServer(t, "* @alice\n", nil)
	defer done()

	cases := []getFileOwnerInput{
		{Repo: "widgets", Path: "a.go"},
		{Owner: "acme", Path: "a.go"},
		{Owner: "acme", Repo: "widgets"},
	}
	for _, in := range cases {
		if _, _, err := s.handleGetFileOwner(context.Background(), nil, in); err == nil {
			t.Errorf("expected validation error for %+v", in)
		}
	}
}

func TestHandleGetFileExists(t *testing.T) {
	s, done := testServer(t, "* @alice\n", map[string]bool{"README.md": true})
	defer done()

	_, out, err := s.handleGetFileExists(context.Background(), nil, getFileExistsInput{
		Owner: "acme", Repo: "widgets", Path: "README.md",
	})
	if err != nil {
		t.Fatalf("handler failed: %v", err)
	}
	if !out.Exists {
		t.Error("expected README.md to exist")
	}

	_, out, err = s.handleGetFileExists(context.Background(), nil, getFileExistsInput{
		Owner: "acme", Repo: "widgets", Path: "nope.md",
	})
	if err != nil {
		t.Fatalf("handler failed: %v", err)
	}
	if out.Exists {
		t.Error("expected nope.md to not exist")
	}
}

func TestHandleResolveOwners(t *testing.T) {
	s, done := testServer(t, "* @global\nsecrets/*\n", nil)
	defer done()

	_, out, err := s.handleResolveOwners(context.Background(), nil, resolveOwnersInput{
		Owner: "acme", Repo: "widgets", Paths: []string{"main.go", "secrets/key.pem"},
	})
	if err != nil {
		t.Fatalf("handler failed: %v", err)
	}

	if !reflect.DeepEqual(out.Results["main.go"].Owners, []string{"@global"}) {
		t.Errorf("expected @global for main.go, got %v", out.Results["main.go"].Owners)
	}

	unowned := out.Results["secrets/key.pem"]
	if len(unowned.Owners) != 0 {
		t.Errorf("expected explicit unassignment, got %v", unowned.Owners)
	}
	if unowned.RuleIndex != 1 {
		t.Errorf("expected the unassignment rule index, got %d", unowned.RuleIndex)
	}
}

func TestHandleResolveOwners_EmptyPaths(t *testing.T) {
	s, done := testServer(t, "* @alice\n", nil)
	defer done()

	_, _, err := s.handleResolveOwners(context.Background(), nil, resolveOwnersInput{
		Owner: "acme", Repo: "widgets",
	})
	if err == nil {
		t.Fatal("expected an error for an empty path list")
	}
}

func TestRun_UnknownTransport(t *testing.T) {
	s, done := testServer(t, "* @alice\n", nil)
	defer done()

	s.cfg.Server.Transport = "carrier-pigeon"
	if err := s.Run(context.Background()); err == nil {
		t.Fatal("expected an error for an unknown transport")
	}
}
