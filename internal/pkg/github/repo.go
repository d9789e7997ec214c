package github

import (
	"context"
	"fmt"
	"strings"
	"time"
)

// Repository is the descriptor returned by repository operations.
type Repository struct {
	ID            int64  `json:"id"`
	Name          string `json:"name"`
	FullName      string `json:"full_name"`
	Private       bool   `json:"private"`
	HTMLURL       string `json:"html_url"`
	DefaultBranch string `json:"default_branch"`
	Owner         struct {
		Login string `json:"login"`
	} `json:"owner"`
}

// Import is the status of an asynchronous source import.
type Import struct {
	Status  string `json:"status"`
	Message string `json:"message"`
	VCSURL  string `json:"vcs_url"`
}

const permissionGuidance = "; common causes: " +
	"1) installation is set to 'Only select repositories' instead of 'All repositories' - " +
	"reinstall the app with 'All repositories' access; " +
	"2) permissions were updated but the installation wasn't re-authorized - " +
	"reinstall the app after changing permissions; " +
	"3) missing 'Administration: Write' permission - ensure this is set to 'Read & write'"

func repoOwner(repoFull string) string {
	owner, _, _ := strings.Cut(repoFull, "/")
	return owner
}

// RepoExists reports whether the repository exists: true on 200, false
// on 404, error otherwise.
func (c *Client) RepoExists(ctx context.Context, repoFull string) (bool, error) {
	auth, err := c.resourceAuth(ctx, repoOwner(repoFull))
	if err != nil {
		return false, err
	}
	resp, err := c.read.R().
		SetContext(ctx).
		SetHeader("Authorization", auth).
		Get("/repos/" + repoFull)
	if err != nil {
		return false, wrapTransport(err)
	}
	if resp.IsSuccess() {
		return true, nil
	}
	if resp.StatusCode() == 404 {
		return false, nil
	}
	return false, statusError(resp)
}

// CreateRepo creates a repository under the configured account, using
// the organization endpoint for orgs and /user/repos with the personal
// token for user accounts. Conflict and permission responses are
// rewritten into actionable error kinds.
func (c *Client) CreateRepo(ctx context.Context, name string, private bool, description string, autoInit bool) (*Repository, error) {
	kind, err := c.AccountKind(ctx, c.cfg.Owner)
	if err != nil {
		return nil, err
	}

	endpoint := "/user/repos"
	var auth string
	if kind == AccountUser && c.cfg.PAT != "" {
		auth = "token " + c.cfg.PAT
	} else {
		token, err := c.InstallationToken(ctx)
		if err != nil {
			return nil, err
		}
		auth = "token " + token.Token
		if kind == AccountOrganization {
			endpoint = "/orgs/" + c.cfg.Owner + "/repos"
		}
	}

	payload := map[string]any{
		"name":      name,
		"private":   private,
		"auto_init": autoInit,
	}
	if description != "" {
		payload["description"] = description
	}

	var repo Repository
	resp, err := c.write.R().
		SetContext(ctx).
		SetHeader("Authorization", auth).
		SetBody(payload).
		SetResult(&repo).
		Post(endpoint)
	if err != nil {
		return nil, wrapTransport(err)
	}

	switch resp.StatusCode() {
	case 422:
		msg := respMessage(resp, "Unprocessable entity")
		if strings.Contains(strings.ToLower(msg), "already exists") {
			return nil, fmt.Errorf("%w: repository %s/%s already exists", ErrConflict, c.cfg.Owner, name)
		}
		return nil, fmt.Errorf("cannot create repository: %s", msg)
	case 403:
		msg := respMessage(resp, "Forbidden")
		detailed := fmt.Sprintf("GitHub App does not have permission to create repositories: %s", msg)
		// The diagnostic lookup names the exact installation
		// misconfiguration when it can.
		if derr := c.ValidateInstallationAccess(ctx); derr != nil {
			detailed = derr.Error()
		} else {
			detailed += permissionGuidance
		}
		return nil, fmt.Errorf("%w: %s", ErrPermissionDenied, detailed)
	case 404:
		msg := respMessage(resp, "Not found")
		return nil, fmt.Errorf("%w: cannot find organization or user %q: %s; "+
			"check the GitHub App has access to this account", ErrNotFound, c.cfg.Owner, msg)
	}
	if !resp.IsSuccess() {
		return nil, statusError(resp)
	}
	return &repo, nil
}

// CreateFromTemplate generates a new repository from a template
// repository under the configured account.
func (c *Client) CreateFromTemplate(ctx context.Context, templateRepo, newName string, private bool) (*Repository, error) {
	token, err := c.InstallationToken(ctx)
	if err != nil {
		return nil, err
	}

	payload := map[string]any{
		"owner":                c.cfg.Owner,
		"name":                 newName,
		"private":              private,
		"include_all_branches": false,
	}

	var repo Repository
	resp, err := c.write.R().
		SetContext(ctx).
		SetHeader("Authorization", "token "+token.Token).
		SetBody(payload).
		SetResult(&repo).
		Post("/repos/" + templateRepo + "/generate")
	if err != nil {
		return nil, wrapTransport(err)
	}
	if !resp.IsSuccess() {
		return nil, statusError(resp)
	}
	return &repo, nil
}

// StartImport starts an asynchronous import of an external repository.
func (c *Client) StartImport(ctx context.Context, repoFull, vcsURL string) (*Import, error) {
	auth, err := c.resourceAuth(ctx, repoOwner(repoFull))
	if err != nil {
		return nil, err
	}

	var status Import
	resp, err := c.write.R().
		SetContext(ctx).
		SetHeader("Authorization", auth).
		SetBody(map[string]any{"vcs": "git", "vcs_url": vcsURL}).
		SetResult(&status).
		Put("/repos/" + repoFull + "/import")
	if err != nil {
		return nil, wrapTransport(err)
	}
	if !resp.IsSuccess() {
		return nil, statusError(resp)
	}
	return &status, nil
}

// ImportStatus fetches the current status of a repository import.
func (c *Client) ImportStatus(ctx context.Context, repoFull string) (*Import, error) {
	auth, err := c.resourceAuth(ctx, repoOwner(repoFull))
	if err != nil {
		return nil, err
	}

	var status Import
	resp, err := c.read.R().
		SetContext(ctx).
		SetHeader("Authorization", auth).
		SetResult(&status).
		Get("/repos/" + repoFull + "/import")
	if err != nil {
		return nil, wrapTransport(err)
	}
	if !resp.IsSuccess() {
		return nil, statusError(resp)
	}
	return &status, nil
}

// WaitForImport polls the import status at a fixed interval until it
// completes, fails, or maxWait elapses. The loop yields between polls
// and never busy-waits; an unrecognized status keeps polling.
func (c *Client) WaitForImport(ctx context.Context, repoFull string, maxWait, pollInterval time.Duration) (*Import, error) {
	if pollInterval <= 0 {
		pollInterval = 5 * time.Second
	}

	elapsed := time.Duration(0)
	for elapsed < maxWait {
		status, err := c.ImportStatus(ctx, repoFull)
		if err != nil {
			return nil, err
		}

		switch strings.ToLower(status.Status) {
		case "complete":
			return status, nil
		case "failed", "error", "auth_failed":
			msg := status.Message
			if msg == "" {
				msg = "unknown error"
			}
			return nil, fmt.Errorf("%w: %s", ErrImportFailed, msg)
		}

		// importing, detecting, mapping or anything unrecognized:
		// still in progress.
		if err := c.sleep(ctx, pollInterval); err != nil {
			return nil, err
		}
		elapsed += pollInterval
	}

	return nil, fmt.Errorf("%w: import did not complete within %s", ErrImportTimeout, maxWait)
}

// patchRepo performs an idempotent metadata patch. Callers treat a
// failure here as a non-fatal warning.
func (c *Client) patchRepo(ctx context.Context, repoFull string, body map[string]any) error {
	auth, err := c.resourceAuth(ctx, repoOwner(repoFull))
	if err != nil {
		return err
	}
	resp, err := c.write.R().
		SetContext(ctx).
		SetHeader("Authorization", auth).
		SetBody(body).
		Patch("/repos/" + repoFull)
	if err != nil {
		return wrapTransport(err)
	}
	if !resp.IsSuccess() {
		return statusError(resp)
	}
	return nil
}

// MarkAsTemplate marks the repository as a template repository.
func (c *Client) MarkAsTemplate(ctx context.Context, repoFull string) error {
	return c.patchRepo(ctx, repoFull, map[string]any{"is_template": true})
}

// SetDefaultBranch sets the repository default branch.
func (c *Client) SetDefaultBranch(ctx context.Context, repoFull, branch string) error {
	return c.patchRepo(ctx, repoFull, map[string]any{"default_branch": branch})
}

// ArchiveRepo archives the repository.
func (c *Client) ArchiveRepo(ctx context.Context, repoFull string) error {
	return c.patchRepo(ctx, repoFull, map[string]any{"archived": true})
}

// BranchHeadSHA returns the head commit hash of a branch.
func (c *Client) BranchHeadSHA(ctx context.Context, repoFull, branch string) (string, error) {
	auth, err := c.resourceAuth(ctx, repoOwner(repoFull))
	if err != nil {
		return "", err
	}

	var branchResp struct {
		Commit struct {
			SHA string `json:"sha"`
		} `json:"commit"`
	}
	resp, err := c.read.R().
		SetContext(ctx).
		SetHeader("Authorization", auth).
		SetResult(&branchResp).
		Get("/repos/" + repoFull + "/branches/" + branch)
	if err != nil {
		return "", wrapTransport(err)
	}
	if !resp.IsSuccess() {
		return "", statusError(resp)
	}
	return branchResp.Commit.SHA, nil
}

// TreePaths lists the blob paths of the recursive tree at a commit.
func (c *Client) TreePaths(ctx context.Context, repoFull, sha string) ([]string, error) {
	auth, err := c.resourceAuth(ctx, repoOwner(repoFull))
	if err != nil {
		return nil, err
	}

	var treeResp struct {
		Tree []struct {
			Path string `json:"path"`
			Type string `json:"type"`
		} `json:"tree"`
	}
	resp, err := c.read.R().
		SetContext(ctx).
		SetHeader("Authorization", auth).
		SetResult(&treeResp).
		Get("/repos/" + repoFull + "/git/trees/" + sha + "?recursive=1")
	if err != nil {
		return nil, wrapTransport(err)
	}
	if !resp.IsSuccess() {
		return nil, statusError(resp)
	}

	paths := make([]string, 0, len(treeResp.Tree))
	for _, entry := range treeResp.Tree {
		if entry.Type == "blob" {
			paths = append(paths, entry.Path)
		}
	}
	return paths, nil
}

// TokenizedCloneURL embeds a live installation token in the clone URL.
// The credential lifetime is the token expiry, not the link lifetime.
func (c *Client) TokenizedCloneURL(repoFull, token string) string {
	return fmt.Sprintf("https://x-access-token:%s@%s/%s.git", token, c.cfg.CloneHost, repoFull)
}
