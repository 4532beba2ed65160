package tools

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"sort"
	"strings"

	"github.com/apex-agent/apex/internal/registry"
)

const defaultGitHubAPI = "https://api.github.com"

// ghClient is a thin GitHub REST v3 client.
type ghClient struct {
	http    *http.Client
	apiBase string
	token   string
	user    string
}

// ghError carries the API status code so callers can branch on it.
type ghError struct {
	StatusCode int
	Message    string
}

func (e *ghError) Error() string {
	return fmt.Sprintf("GitHub API error %d: %s", e.StatusCode, e.Message)
}

func (c *ghClient) do(ctx context.Context, method, path string, body, out any) error {
	var reqBody io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("encode request: %w", err)
		}
		reqBody = bytes.NewReader(data)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.apiBase+path, reqBody)
	if err != nil {
		return err
	}
	req.Header.Set("Accept", "application/vnd.github+json")
	req.Header.Set("Authorization", "Bearer "+c.token)
	req.Header.Set("X-GitHub-Api-Version", "2022-11-28")
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("GitHub request failed: %w", err)
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(io.LimitReader(resp.Body, 4<<20))
	if err != nil {
		return fmt.Errorf("read GitHub response: %w", err)
	}

	if resp.StatusCode >= 400 {
		var apiErr struct {
			Message string `json:"message"`
		}
		msg := strings.TrimSpace(string(data))
		if json.Unmarshal(data, &apiErr) == nil && apiErr.Message != "" {
			msg = apiErr.Message
		}
		return &ghError{StatusCode: resp.StatusCode, Message: msg}
	}

	if out != nil && len(data) > 0 {
		if err := json.Unmarshal(data, out); err != nil {
			return fmt.Errorf("decode GitHub response: %w", err)
		}
	}
	return nil
}

// login returns the authenticated user, fetching it once if not configured.
func (c *ghClient) login(ctx context.Context) (string, error) {
	if c.user != "" {
		return c.user, nil
	}
	var u struct {
		Login string `json:"login"`
	}
	if err := c.do(ctx, http.MethodGet, "/user", nil, &u); err != nil {
		return "", err
	}
	c.user = u.Login
	return c.user, nil
}

// fullName expands a bare repo name with the authenticated user's login.
func (c *ghClient) fullName(ctx context.Context, name string) (string, error) {
	if strings.Contains(name, "/") {
		return name, nil
	}
	owner, err := c.login(ctx)
	if err != nil {
		return "", err
	}
	return owner + "/" + name, nil
}

// escapeRepoPath escapes each path segment, keeping the separators.
func escapeRepoPath(path string) string {
	segments := strings.Split(strings.TrimPrefix(path, "/"), "/")
	for i, s := range segments {
		segments[i] = url.PathEscape(s)
	}
	return strings.Join(segments, "/")
}

func ghStatus(err error, code int) bool {
	var ge *ghError
	return errors.As(err, &ge) && ge.StatusCode == code
}

// githubTool exposes repository automation: creating repos, pushing files,
// GitHub Pages, Actions workflows, and releases.
type githubTool struct {
	gh *ghClient
}

func (t *githubTool) Name() string { return "github_operation" }
func (t *githubTool) Description() string {
	return "GitHub repository operations. Actions: create_repo, push_files, enable_pages, " +
		"create_workflow, get_repo, list_repos, read_file, create_release, get_user. " +
		"Requires a GITHUB_TOKEN with repo and workflow scopes."
}

func (t *githubTool) InputSchema() map[string]any {
	return map[string]any{
		"type": "object",
		"properties": map[string]any{
			"action":         map[string]any{"type": "string", "description": "Action: create_repo, push_files, enable_pages, create_workflow, get_repo, list_repos, read_file, create_release, get_user"},
			"repo_name":      map[string]any{"type": "string", "description": "Repository name, bare (my-app) or full (user/my-app)"},
			"description":    map[string]any{"type": "string", "description": "Repository description (create_repo)"},
			"private":        map[string]any{"type": "boolean", "description": "Create as private (default true)"},
			"homepage":       map[string]any{"type": "string", "description": "Repository homepage URL (create_repo)"},
			"files":          map[string]any{"type": "object", "description": "Files to push: {path: content} (push_files)"},
			"commit_message": map[string]any{"type": "string", "description": "Commit message (push_files)"},
			"branch":         map[string]any{"type": "string", "description": "Target branch (default main)"},
			"create_branch":  map[string]any{"type": "boolean", "description": "Create the branch from the default branch if missing (push_files)"},
			"path":           map[string]any{"type": "string", "description": "File path in the repo (read_file) or Pages folder: / or /docs (enable_pages)"},
			"workflow_name":  map[string]any{"type": "string", "description": "Workflow filename, e.g. deploy.yml (create_workflow)"},
			"workflow_yaml":  map[string]any{"type": "string", "description": "Workflow YAML content (create_workflow)"},
			"tag":            map[string]any{"type": "string", "description": "Release tag, e.g. v1.0.0 (create_release)"},
			"release_name":   map[string]any{"type": "string", "description": "Release title (create_release)"},
			"release_notes":  map[string]any{"type": "string", "description": "Release body (create_release)"},
			"prerelease":     map[string]any{"type": "boolean", "description": "Mark release as pre-release"},
			"limit":          map[string]any{"type": "integer", "description": "Max repositories to list (default 20)"},
		},
		"required": []string{"action"},
	}
}

func (t *githubTool) Execute(ctx context.Context, args map[string]any) (string, error) {
	if t.gh.token == "" {
		return "", fmt.Errorf("GITHUB_TOKEN is not configured; create a personal access token with repo and workflow scopes")
	}

	switch action := registry.GetString(args, "action"); action {
	case "create_repo":
		return t.createRepo(ctx, args)
	case "push_files":
		return t.pushFiles(ctx, args)
	case "enable_pages":
		return t.enablePages(ctx, args)
	case "create_workflow":
		return t.createWorkflow(ctx, args)
	case "get_repo":
		return t.getRepo(ctx, args)
	case "list_repos":
		return t.listRepos(ctx, args)
	case "read_file":
		return t.readFile(ctx, args)
	case "create_release":
		return t.createRelease(ctx, args)
	case "get_user":
		return t.getUser(ctx)
	default:
		return "", fmt.Errorf("unknown action %q", action)
	}
}

type ghRepo struct {
	Name          string `json:"name"`
	FullName      string `json:"full_name"`
	HTMLURL       string `json:"html_url"`
	CloneURL      string `json:"clone_url"`
	Private       bool   `json:"private"`
	DefaultBranch string `json:"default_branch"`
	Description   string `json:"description"`
	Stars         int    `json:"stargazers_count"`
	UpdatedAt     string `json:"updated_at"`
}

func (t *githubTool) createRepo(ctx context.Context, args map[string]any) (string, error) {
	name := registry.GetString(args, "repo_name")
	if name == "" {
		return "", fmt.Errorf("repo_name is required")
	}

	private := true
	if v := registry.GetBoolPtr(args, "private"); v != nil {
		private = *v
	}

	payload := map[string]any{
		"name":        name,
		"description": registry.GetString(args, "description"),
		"private":     private,
		"auto_init":   true,
	}
	if homepage := registry.GetString(args, "homepage"); homepage != "" {
		payload["homepage"] = homepage
	}

	var repo ghRepo
	err := t.gh.do(ctx, http.MethodPost, "/user/repos", payload, &repo)
	if ghStatus(err, 422) {
		return "", fmt.Errorf("repository %q already exists or the name is invalid", name)
	}
	if err != nil {
		return "", err
	}

	visibility := "public"
	if repo.Private {
		visibility = "private"
	}
	return fmt.Sprintf("✅ Created %s repository %s\nURL: %s\nClone: %s",
		visibility, repo.FullName, repo.HTMLURL, repo.CloneURL), nil
}

func (t *githubTool) pushFiles(ctx context.Context, args map[string]any) (string, error) {
	full, err := t.gh.fullName(ctx, registry.GetString(args, "repo_name"))
	if err != nil {
		return "", err
	}
	files := registry.GetStringMap(args, "files")
	if len(files) == 0 {
		return "", fmt.Errorf("files is empty")
	}
	branch := registry.GetString(args, "branch")
	if branch == "" {
		branch = "main"
	}
	message := registry.GetString(args, "commit_message")
	if message == "" {
		message = "add files"
	}

	if v := registry.GetBoolPtr(args, "create_branch"); v != nil && *v {
		if err := t.ensureBranch(ctx, full, branch); err != nil {
			return "", err
		}
	}

	// Push in sorted path order so the commit sequence and the result
	// listing are stable for identical input.
	pushed := make([]string, 0, len(files))
	for path := range files {
		pushed = append(pushed, path)
	}
	sort.Strings(pushed)

	for _, path := range pushed {
		text, ok := files[path].(string)
		if !ok {
			return "", fmt.Errorf("file %q content must be a string", path)
		}
		if err := t.putFile(ctx, full, branch, path, message, text); err != nil {
			return "", fmt.Errorf("push %s: %w", path, err)
		}
	}

	sha := t.branchSHA(ctx, full, branch)
	return fmt.Sprintf("✅ Pushed %d files to %s@%s (commit %s):\n%s",
		len(pushed), full, branch, sha, strings.Join(pushed, "\n")), nil
}

// putFile creates or updates one file through the contents API. An update
// must carry the existing blob's sha.
func (t *githubTool) putFile(ctx context.Context, full, branch, path, message, content string) error {
	contentsPath := fmt.Sprintf("/repos/%s/contents/%s", full, escapeRepoPath(path))

	payload := map[string]any{
		"message": message,
		"content": base64.StdEncoding.EncodeToString([]byte(content)),
		"branch":  branch,
	}

	var existing struct {
		SHA string `json:"sha"`
	}
	err := t.gh.do(ctx, http.MethodGet, contentsPath+"?ref="+url.QueryEscape(branch), nil, &existing)
	switch {
	case err == nil && existing.SHA != "":
		payload["sha"] = existing.SHA
	case ghStatus(err, 404):
		// New file.
	case err != nil:
		return err
	}

	return t.gh.do(ctx, http.MethodPut, contentsPath, payload, nil)
}

func (t *githubTool) ensureBranch(ctx context.Context, full, branch string) error {
	err := t.gh.do(ctx, http.MethodGet, fmt.Sprintf("/repos/%s/branches/%s", full, branch), nil, nil)
	if err == nil {
		return nil
	}
	if !ghStatus(err, 404) {
		return err
	}

	var repo ghRepo
	if err := t.gh.do(ctx, http.MethodGet, "/repos/"+full, nil, &repo); err != nil {
		return err
	}
	var src struct {
		Commit struct {
			SHA string `json:"sha"`
		} `json:"commit"`
	}
	if err := t.gh.do(ctx, http.MethodGet,
		fmt.Sprintf("/repos/%s/branches/%s", full, repo.DefaultBranch), nil, &src); err != nil {
		return err
	}
	return t.gh.do(ctx, http.MethodPost, fmt.Sprintf("/repos/%s/git/refs", full), map[string]any{
		"ref": "refs/heads/" + branch,
		"sha": src.Commit.SHA,
	}, nil)
}

func (t *githubTool) branchSHA(ctx context.Context, full, branch string) string {
	var b struct {
		Commit struct {
			SHA string `json:"sha"`
		} `json:"commit"`
	}
	if err := t.gh.do(ctx, http.MethodGet,
		fmt.Sprintf("/repos/%s/branches/%s", full, branch), nil, &b); err != nil {
		return "unknown"
	}
	if len(b.Commit.SHA) > 7 {
		return b.Commit.SHA[:7]
	}
	return b.Commit.SHA
}

func (t *githubTool) enablePages(ctx context.Context, args map[string]any) (string, error) {
	full, err := t.gh.fullName(ctx, registry.GetString(args, "repo_name"))
	if err != nil {
		return "", err
	}
	branch := registry.GetString(args, "branch")
	if branch == "" {
		branch = "main"
	}
	path := registry.GetString(args, "path")
	if path != "/docs" {
		path = "/"
	}

	pagesPath := fmt.Sprintf("/repos/%s/pages", full)
	payload := map[string]any{"source": map[string]string{"branch": branch, "path": path}}

	var site struct {
		HTMLURL string `json:"html_url"`
	}
	err = t.gh.do(ctx, http.MethodPost, pagesPath, payload, &site)
	switch {
	case err == nil:
		return fmt.Sprintf("✅ GitHub Pages enabled for %s (branch %s, path %s)\nURL: %s",
			full, branch, path, site.HTMLURL), nil
	case ghStatus(err, 409):
		// Already enabled; report the existing site.
		if getErr := t.gh.do(ctx, http.MethodGet, pagesPath, nil, &site); getErr == nil {
			return fmt.Sprintf("GitHub Pages already enabled for %s\nURL: %s", full, site.HTMLURL), nil
		}
		return fmt.Sprintf("GitHub Pages already enabled for %s", full), nil
	case ghStatus(err, 422):
		// Private repos need Pro for Pages; make the repo public and retry.
		if patchErr := t.gh.do(ctx, http.MethodPatch, "/repos/"+full,
			map[string]any{"private": false}, nil); patchErr != nil {
			return "", fmt.Errorf("enable pages: %w (and could not make repo public: %v)", err, patchErr)
		}
		if retryErr := t.gh.do(ctx, http.MethodPost, pagesPath, payload, &site); retryErr != nil {
			return "", fmt.Errorf("enable pages after making repo public: %w", retryErr)
		}
		return fmt.Sprintf("✅ Made %s public and enabled GitHub Pages\nURL: %s", full, site.HTMLURL), nil
	default:
		return "", err
	}
}

func (t *githubTool) createWorkflow(ctx context.Context, args map[string]any) (string, error) {
	name := registry.GetString(args, "workflow_name")
	yaml := registry.GetString(args, "workflow_yaml")
	if name == "" || yaml == "" {
		return "", fmt.Errorf("workflow_name and workflow_yaml are required")
	}

	out, err := t.pushFiles(ctx, map[string]any{
		"repo_name":      registry.GetString(args, "repo_name"),
		"files":          map[string]any{".github/workflows/" + name: yaml},
		"commit_message": "ci: add " + name + " workflow",
		"branch":         registry.GetString(args, "branch"),
	})
	if err != nil {
		return "", err
	}
	return out + "\n\nWorkflow will appear under the repository's Actions tab.", nil
}

func (t *githubTool) getRepo(ctx context.Context, args map[string]any) (string, error) {
	full, err := t.gh.fullName(ctx, registry.GetString(args, "repo_name"))
	if err != nil {
		return "", err
	}
	var repo ghRepo
	if err := t.gh.do(ctx, http.MethodGet, "/repos/"+full, nil, &repo); err != nil {
		return "", err
	}

	visibility := "public"
	if repo.Private {
		visibility = "private"
	}
	var sb strings.Builder
	fmt.Fprintf(&sb, "## %s (%s)\n", repo.FullName, visibility)
	if repo.Description != "" {
		fmt.Fprintf(&sb, "%s\n", repo.Description)
	}
	fmt.Fprintf(&sb, "URL: %s\nDefault branch: %s\nStars: %d\nUpdated: %s",
		repo.HTMLURL, repo.DefaultBranch, repo.Stars, repo.UpdatedAt)
	return sb.String(), nil
}

func (t *githubTool) listRepos(ctx context.Context, args map[string]any) (string, error) {
	limit := registry.GetInt(args, "limit", 20)
	var repos []ghRepo
	path := fmt.Sprintf("/user/repos?per_page=%d&sort=updated", limit)
	if err := t.gh.do(ctx, http.MethodGet, path, nil, &repos); err != nil {
		return "", err
	}
	if len(repos) == 0 {
		return "No repositories found.", nil
	}

	var sb strings.Builder
	fmt.Fprintf(&sb, "## Repositories (%d)\n", len(repos))
	for _, r := range repos {
		visibility := "public"
		if r.Private {
			visibility = "private"
		}
		fmt.Fprintf(&sb, "- %s (%s) — %s\n", r.FullName, visibility, r.HTMLURL)
	}
	return sb.String(), nil
}

func (t *githubTool) readFile(ctx context.Context, args map[string]any) (string, error) {
	full, err := t.gh.fullName(ctx, registry.GetString(args, "repo_name"))
	if err != nil {
		return "", err
	}
	path := registry.GetString(args, "path")
	if path == "" {
		return "", fmt.Errorf("path is required")
	}
	branch := registry.GetString(args, "branch")
	if branch == "" {
		branch = "main"
	}

	var file struct {
		Content  string `json:"content"`
		Encoding string `json:"encoding"`
	}
	apiPath := fmt.Sprintf("/repos/%s/contents/%s?ref=%s",
		full, escapeRepoPath(path), url.QueryEscape(branch))
	if err := t.gh.do(ctx, http.MethodGet, apiPath, nil, &file); err != nil {
		return "", err
	}
	if file.Encoding != "base64" {
		return "", fmt.Errorf("unexpected content encoding %q", file.Encoding)
	}
	data, err := base64.StdEncoding.DecodeString(strings.ReplaceAll(file.Content, "\n", ""))
	if err != nil {
		return "", fmt.Errorf("decode file content: %w", err)
	}
	return middleTruncate(string(data), maxOutputChars), nil
}

func (t *githubTool) createRelease(ctx context.Context, args map[string]any) (string, error) {
	full, err := t.gh.fullName(ctx, registry.GetString(args, "repo_name"))
	if err != nil {
		return "", err
	}
	tag := registry.GetString(args, "tag")
	if tag == "" {
		return "", fmt.Errorf("tag is required")
	}
	name := registry.GetString(args, "release_name")
	if name == "" {
		name = tag
	}

	prerelease := false
	if v := registry.GetBoolPtr(args, "prerelease"); v != nil {
		prerelease = *v
	}

	var release struct {
		HTMLURL string `json:"html_url"`
	}
	err = t.gh.do(ctx, http.MethodPost, fmt.Sprintf("/repos/%s/releases", full), map[string]any{
		"tag_name":   tag,
		"name":       name,
		"body":       registry.GetString(args, "release_notes"),
		"prerelease": prerelease,
	}, &release)
	if err != nil {
		return "", err
	}
	return fmt.Sprintf("✅ Created release %s for %s\nURL: %s", tag, full, release.HTMLURL), nil
}

func (t *githubTool) getUser(ctx context.Context) (string, error) {
	var u struct {
		Login       string `json:"login"`
		Name        string `json:"name"`
		HTMLURL     string `json:"html_url"`
		PublicRepos int    `json:"public_repos"`
	}
	if err := t.gh.do(ctx, http.MethodGet, "/user", nil, &u); err != nil {
		return "", err
	}
	return fmt.Sprintf("Authenticated as %s (%s)\nProfile: %s\nPublic repos: %d",
		u.Login, u.Name, u.HTMLURL, u.PublicRepos), nil
}
