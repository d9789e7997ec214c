package github

import (
	"context"
	"encoding/base64"
	"fmt"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// Installation is an installation of the App on an account.
type Installation struct {
	ID                  int64             `json:"id"`
	RepositorySelection string            `json:"repository_selection"`
	Permissions         map[string]string `json:"permissions"`
	Account             struct {
		Login string `json:"login"`
	} `json:"account"`
}

// InstallationToken is a freshly exchanged installation access token.
type InstallationToken struct {
	Token     string    `json:"token"`
	ExpiresAt time.Time `json:"expires_at"`
}

// loadPrivateKey accepts the key either as a PEM block or as a
// base64-wrapped PEM block; the raw value is kept when decoding fails.
func loadPrivateKey(key string) string {
	if strings.Contains(key, "BEGIN RSA PRIVATE KEY") || strings.Contains(key, "BEGIN PRIVATE KEY") {
		return key
	}
	decoded, err := base64.StdEncoding.DecodeString(key)
	if err != nil {
		return key
	}
	return string(decoded)
}

// appJWT mints the short-lived App-level assertion. Issued-at is
// backdated 60s for clock skew; expiry stays below the host ceiling.
func (c *Client) appJWT() (string, error) {
	pk, err := jwt.ParseRSAPrivateKeyFromPEM([]byte(loadPrivateKey(c.cfg.PrivateKey)))
	if err != nil {
		return "", fmt.Errorf("%w: parse app private key: %v", ErrAuthentication, err)
	}

	now := c.now()
	claims := jwt.RegisteredClaims{
		Issuer:    c.cfg.AppID,
		IssuedAt:  jwt.NewNumericDate(now.Add(-jwtBackdate)),
		ExpiresAt: jwt.NewNumericDate(now.Add(jwtLifetime)),
	}

	token, err := jwt.NewWithClaims(jwt.SigningMethodRS256, claims).SignedString(pk)
	if err != nil {
		return "", fmt.Errorf("%w: sign app assertion: %v", ErrAuthentication, err)
	}
	return token, nil
}

// ListInstallations lists all installations visible to this App.
func (c *Client) ListInstallations(ctx context.Context) ([]Installation, error) {
	appJWT, err := c.appJWT()
	if err != nil {
		return nil, err
	}

	var installations []Installation
	resp, err := c.read.R().
		SetContext(ctx).
		SetHeader("Authorization", "Bearer "+appJWT).
		SetResult(&installations).
		Get("/app/installations")
	if err != nil {
		return nil, wrapTransport(err)
	}
	if !resp.IsSuccess() {
		return nil, statusError(resp)
	}
	return installations, nil
}

// ValidateInstallationID reports whether the configured installation
// id is visible to this App.
func (c *Client) ValidateInstallationID(ctx context.Context) bool {
	installations, err := c.ListInstallations(ctx)
	if err != nil {
		return false
	}
	for _, inst := range installations {
		if fmt.Sprintf("%d", inst.ID) == c.cfg.InstallationID {
			return true
		}
	}
	return false
}

// InstallationDetails returns the configured installation, or nil when
// it is not visible.
func (c *Client) InstallationDetails(ctx context.Context) (*Installation, error) {
	installations, err := c.ListInstallations(ctx)
	if err != nil {
		return nil, err
	}
	for i := range installations {
		if fmt.Sprintf("%d", installations[i].ID) == c.cfg.InstallationID {
			return &installations[i], nil
		}
	}
	return nil, nil
}

// ValidateInstallationAccess checks that the installation covers all
// repositories and carries Administration:write, both required to
// create repositories through organization endpoints. The returned
// error carries a remediation message.
func (c *Client) ValidateInstallationAccess(ctx context.Context) error {
	installation, err := c.InstallationDetails(ctx)
	if err != nil {
		return err
	}
	if installation == nil {
		return fmt.Errorf("%w: installation id %q not found", ErrNotFound, c.cfg.InstallationID)
	}

	if installation.RepositorySelection != "all" {
		selection := installation.RepositorySelection
		if selection == "" {
			selection = "selected"
		}
		return fmt.Errorf("%w: installation is set to %q repository access, but 'all' access is required "+
			"to create repositories via organization endpoints; reinstall the GitHub App with "+
			"'All repositories' access in your organization/user settings", ErrPermissionDenied, selection)
	}

	if admin := installation.Permissions["administration"]; admin != "write" {
		return fmt.Errorf("%w: GitHub App installation has Administration permission set to %q, "+
			"but 'write' access is required to create repositories; update the GitHub App "+
			"permissions and reinstall the app", ErrPermissionDenied, admin)
	}

	return nil
}

// InstallationToken exchanges the App assertion for a fresh
// installation access token, optionally scoped to repositories. A 404
// is enriched with the installations currently visible so a
// misconfigured installation id is actionable.
func (c *Client) InstallationToken(ctx context.Context, repositories ...string) (*InstallationToken, error) {
	appJWT, err := c.appJWT()
	if err != nil {
		return nil, err
	}

	body := map[string]any{}
	if len(repositories) > 0 {
		body["repositories"] = repositories
	}

	var token InstallationToken
	resp, err := c.write.R().
		SetContext(ctx).
		SetHeader("Authorization", "Bearer "+appJWT).
		SetBody(body).
		SetResult(&token).
		Post(fmt.Sprintf("/app/installations/%s/access_tokens", c.cfg.InstallationID))
	if err != nil {
		return nil, wrapTransport(err)
	}

	if resp.StatusCode() == 404 {
		return nil, c.installationNotFound(ctx)
	}
	if !resp.IsSuccess() {
		return nil, statusError(resp)
	}
	return &token, nil
}

// installationNotFound builds the enriched not-found error listing the
// installation ids the App can currently see.
func (c *Client) installationNotFound(ctx context.Context) error {
	installations, err := c.ListInstallations(ctx)
	if err != nil {
		return fmt.Errorf("%w: installation id %q not found; could not list available installations: %v; "+
			"verify the installation id is correct and the GitHub App is properly installed",
			ErrNotFound, c.cfg.InstallationID, err)
	}
	if len(installations) == 0 {
		return fmt.Errorf("%w: installation id %q not found; no installations found for this GitHub App; "+
			"install the GitHub App on your organization/user account",
			ErrNotFound, c.cfg.InstallationID)
	}
	ids := make([]string, 0, len(installations))
	for _, inst := range installations {
		ids = append(ids, fmt.Sprintf("%d", inst.ID))
	}
	return fmt.Errorf("%w: installation id %q not found; available installation ids: %s; "+
		"update the github.installationId configuration",
		ErrNotFound, c.cfg.InstallationID, strings.Join(ids, ", "))
}

// AccountKind resolves whether the given account is an organization or
// a user. The org-scoped lookup is probed first, the user-scoped one
// on not-found. Recomputed on every call.
func (c *Client) AccountKind(ctx context.Context, name string) (string, error) {
	token, err := c.InstallationToken(ctx)
	if err != nil {
		return "", err
	}
	auth := "token " + token.Token

	resp, err := c.read.R().
		SetContext(ctx).
		SetHeader("Authorization", auth).
		Get("/orgs/" + name)
	if err != nil {
		return "", wrapTransport(err)
	}
	if resp.IsSuccess() {
		return AccountOrganization, nil
	}
	if resp.StatusCode() != 404 {
		return "", statusError(resp)
	}

	resp, err = c.read.R().
		SetContext(ctx).
		SetHeader("Authorization", auth).
		Get("/users/" + name)
	if err != nil {
		return "", wrapTransport(err)
	}
	if resp.IsSuccess() {
		return AccountUser, nil
	}
	return "", fmt.Errorf("%w: %q is neither a valid organization nor a user", ErrNotFound, name)
}

// resourceAuth selects the credential for a resource call: a
// configured personal token for user-owned repositories, a fresh
// installation token otherwise. The selection is recomputed on every
// call; nothing is cached.
func (c *Client) resourceAuth(ctx context.Context, repoOwner string) (string, error) {
	kind, err := c.AccountKind(ctx, c.cfg.Owner)
	if err != nil {
		return "", err
	}
	if kind == AccountUser && repoOwner == c.cfg.Owner && c.cfg.PAT != "" {
		return "token " + c.cfg.PAT, nil
	}
	token, err := c.InstallationToken(ctx)
	if err != nil {
		return "", err
	}
	return "token " + token.Token, nil
}
