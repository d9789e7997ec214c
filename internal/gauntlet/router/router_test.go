package router

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gofiber/fiber/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/go-gauntlet/gauntlet/internal/gauntlet/logic"
	"github.com/go-gauntlet/gauntlet/internal/gauntlet/model"
	"github.com/go-gauntlet/gauntlet/internal/gauntlet/repo"
	"github.com/go-gauntlet/gauntlet/internal/pkg/github"
	"github.com/go-gauntlet/gauntlet/pkg/ctx"
	"github.com/go-gauntlet/gauntlet/pkg/database"
	httpx "github.com/go-gauntlet/gauntlet/pkg/http"
	"github.com/go-gauntlet/gauntlet/pkg/log"
)

type nopMailer struct{}

func (nopMailer) Send(ctx context.Context, to, subject, html string) error { return nil }

type downMailer struct{}

func (downMailer) Send(ctx context.Context, to, subject, html string) error {
	return errors.New("smtp down")
}

func newTestApp(t *testing.T) *fiber.App {
	return newTestAppWithMailer(t, nopMailer{})
}

func newTestAppWithMailer(t *testing.T, mailer logic.Mailer) *fiber.App {
	t.Helper()
	gdb, err := database.NewDatabase(database.Database{Type: "sqlite", DB: ":memory:"})
	require.NoError(t, err)
	require.NoError(t, gdb.AutoMigrate(&model.Challenge{}, &model.Candidate{}, &model.ChallengeInvite{}))
	db := database.NewGormDB(gdb)

	// unconfigured hosting client: seed preparation degrades to a
	// warning instead of reaching the network
	gh := github.New(github.Config{})
	assessment := logic.NewAssessmentLogic(gh)

	challengeRepo := repo.NewChallengeRepo(db)
	challenges := logic.NewChallengeLogic(challengeRepo, assessment)
	invites := logic.NewInviteLogic(challengeRepo, repo.NewCandidateRepo(db), repo.NewInviteRepo(db),
		assessment, mailer, "http://localhost:8088")

	appCtx := ctx.NewContext(context.Background(), gdb, log.GetLogger())
	rt := NewRouter(&httpx.Http{}, appCtx, challenges, invites)
	return rt.Router()
}

func doJSON(t *testing.T, app *fiber.App, method, target, body string) (int, map[string]any) {
	t.Helper()
	var reader io.Reader
	if body != "" {
		reader = strings.NewReader(body)
	}
	req := httptest.NewRequest(method, target, reader)
	if body != "" {
		req.Header.Set("Content-Type", "application/json")
	}
	resp, err := app.Test(req, -1)
	require.NoError(t, err)
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	var decoded map[string]any
	require.NoError(t, json.Unmarshal(raw, &decoded), "body: %s", raw)
	return resp.StatusCode, decoded
}

func TestHealth(t *testing.T) {
	app := newTestApp(t)
	resp, err := app.Test(httptest.NewRequest(http.MethodGet, "/health", nil))
	require.NoError(t, err)
	assert.Equal(t, http.StatusOK, resp.StatusCode)
}

func TestCreateChallenge_Validation(t *testing.T) {
	app := newTestApp(t)

	_, body := doJSON(t, app, http.MethodPost, "/api/admin/challenges", `{"title":"No slug"}`)
	assert.Equal(t, float64(httpx.BadRequest.Code), body["code"])

	_, body = doJSON(t, app, http.MethodPost, "/api/admin/challenges", `not json`)
	assert.Equal(t, float64(httpx.RequestParameterParsingFailed.Code), body["code"])
}

func TestCreateChallenge_DegradedSeedSetup(t *testing.T) {
	app := newTestApp(t)

	_, body := doJSON(t, app, http.MethodPost, "/api/admin/challenges",
		`{"slug":"algo","title":"Algorithms"}`)
	assert.Equal(t, float64(httpx.Success.Code), body["code"])

	detail := body["detail"].(map[string]any)
	assert.Equal(t, model.RepoSetupNotAttempted, detail["repoSetupStatus"])
	assert.NotEmpty(t, detail["warnings"])
}

func TestInviteFlowOverHTTP(t *testing.T) {
	app := newTestApp(t)

	_, body := doJSON(t, app, http.MethodPost, "/api/admin/challenges",
		`{"slug":"http-flow","title":"Flow"}`)
	challengeId := body["detail"].(map[string]any)["challengeId"].(string)

	// invalid email rejected
	_, body = doJSON(t, app, http.MethodPost, "/api/admin/challenges/"+challengeId+"/invites",
		`{"email":"not-an-email"}`)
	assert.Equal(t, float64(httpx.BadRequest.Code), body["code"])

	_, body = doJSON(t, app, http.MethodPost, "/api/admin/challenges/"+challengeId+"/invites",
		`{"email":"alice@example.com","name":"Alice"}`)
	require.Equal(t, float64(httpx.Success.Code), body["code"])
	detail := body["detail"].(map[string]any)
	inviteId := detail["inviteId"].(string)
	startURL := detail["startUrl"].(string)
	token := startURL[strings.LastIndex(startURL, "/")+1:]

	_, body = doJSON(t, app, http.MethodGet, "/api/admin/invites/"+inviteId, "")
	require.Equal(t, float64(httpx.Success.Code), body["code"])
	assert.Equal(t, "alice@example.com", body["detail"].(map[string]any)["candidateEmail"])

	// the start view is reachable with the token
	_, body = doJSON(t, app, http.MethodGet, "/api/candidate/start/"+token, "")
	require.Equal(t, float64(httpx.Success.Code), body["code"])
	assert.Equal(t, model.InviteStatusPending, body["detail"].(map[string]any)["status"])

	// unknown tokens map to the invalid-token code
	_, body = doJSON(t, app, http.MethodGet, "/api/candidate/start/bogus", "")
	assert.Equal(t, float64(httpx.InviteTokenInvalid.Code), body["code"])
}

func TestInviteFollowUp_DeliveryFailureCode(t *testing.T) {
	app := newTestAppWithMailer(t, downMailer{})

	_, body := doJSON(t, app, http.MethodPost, "/api/admin/challenges",
		`{"slug":"fup-http","title":"Follow-up"}`)
	challengeId := body["detail"].(map[string]any)["challengeId"].(string)

	// creation succeeds with a warning despite the broken channel
	_, body = doJSON(t, app, http.MethodPost, "/api/admin/challenges/"+challengeId+"/invites",
		`{"email":"carol@example.com"}`)
	require.Equal(t, float64(httpx.Success.Code), body["code"])
	detail := body["detail"].(map[string]any)
	inviteId := detail["inviteId"].(string)
	assert.Contains(t, detail["emailWarning"], "smtp down")

	// an explicit follow-up surfaces the delivery failure as its own code
	_, body = doJSON(t, app, http.MethodPost, "/api/admin/invites/"+inviteId+"/follow-up", "")
	assert.Equal(t, float64(httpx.EmailDeliveryFailed.Code), body["code"])
}

func TestWebhookAck(t *testing.T) {
	app := newTestApp(t)

	_, body := doJSON(t, app, http.MethodPost, "/api/webhooks/github", `{"action":"push"}`)
	assert.Equal(t, float64(httpx.Success.Code), body["code"])

	_, body = doJSON(t, app, http.MethodPost, "/api/webhooks/github", `garbage`)
	assert.Equal(t, float64(httpx.BadRequest.Code), body["code"])
}

func TestDbHealth(t *testing.T) {
	app := newTestApp(t)
	_, body := doJSON(t, app, http.MethodGet, "/api/admin/db-health", "")
	assert.Equal(t, float64(httpx.Success.Code), body["code"])
}
