package gh

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
)

const perPage = 100

// Members lists the direct members of a team reference of the form
// @org/slug: user logins as @login plus child teams as @org/slug, which the
// resolution engine expands recursively. It satisfies resolve.MembershipLookup.
func (c *Client) Members(ctx context.Context, team string) ([]string, error) {
	org, slug, err := splitTeamRef(team)
	if err != nil {
		return nil, err
	}

	var members []string

	logins, err := c.listPaged(ctx, fmt.Sprintf("%s/orgs/%s/teams/%s/members", c.baseURL, org, slug), "login")
	if err != nil {
		return nil, fmt.Errorf("list members of %s: %w", team, err)
	}
	for _, login := range logins {
		members = append(members, "@"+login)
	}

	// Child teams surface as nested team references. Not every deployment
	// exposes the endpoint; absence just means no children.
	slugs, err := c.listPaged(ctx, fmt.Sprintf("%s/orgs/%s/teams/%s/teams", c.baseURL, org, slug), "slug")
	if err == nil {
		for _, child := range slugs {
			members = append(members, "@"+org+"/"+child)
		}
	}

	return members, nil
}

// listPaged walks a paginated collection endpoint and extracts one string
// field from each object.
func (c *Client) listPaged(ctx context.Context, baseEndpoint, field string) ([]string, error) {
	var values []string

	for page := 1; ; page++ {
		rawURL := fmt.Sprintf("%s?per_page=%d&page=%d", baseEndpoint, perPage, page)

		req, err := c.newRequest(ctx, rawURL, "application/vnd.github.v3+json")
		if err != nil {
			return nil, err
		}

		resp, err := c.do(ctx, req)
		if err != nil {
			return nil, err
		}

		if resp.StatusCode == http.StatusNotFound {
			resp.Body.Close()
			return nil, ErrNotFound
		}
		if resp.StatusCode != http.StatusOK {
			resp.Body.Close()
			return nil, fmt.Errorf("list %s: unexpected status %d", baseEndpoint, resp.StatusCode)
		}

		var items []map[string]any
		err = json.NewDecoder(io.LimitReader(resp.Body, maxBodyBytes)).Decode(&items)
		resp.Body.Close()
		if err != nil {
			return nil, fmt.Errorf("decode %s: %w", baseEndpoint, err)
		}

		for _, item := range items {
			if v, ok := item[field].(string); ok && v != "" {
				values = append(values, v)
			}
		}

		if len(items) < perPage {
			return values, nil
		}
	}
}

// splitTeamRef parses an @org/slug team reference
func splitTeamRef(team string) (org, slug string, err error) {
	trimmed := strings.TrimPrefix(team, "@")
	org, slug, ok := strings.Cut(trimmed, "/")
	if !ok || org == "" || slug == "" {
		return "", "", fmt.Errorf("team reference %q is not of the form @org/team", team)
	}
	return org, slug, nil
}
