package logic

import (
	"context"
	"crypto/rand"
	"crypto/rsa"
	"crypto/x509"
	"encoding/json"
	"encoding/pem"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/go-gauntlet/gauntlet/internal/gauntlet/model"
	"github.com/go-gauntlet/gauntlet/internal/gauntlet/repo"
	"github.com/go-gauntlet/gauntlet/internal/pkg/github"
	"github.com/go-gauntlet/gauntlet/pkg/database"
	"github.com/go-gauntlet/gauntlet/pkg/id"
)

var (
	keyOnce sync.Once
	keyPEM  string
)

func rsaKeyPEM() string {
	keyOnce.Do(func() {
		key, err := rsa.GenerateKey(rand.Reader, 2048)
		if err != nil {
			panic(err)
		}
		keyPEM = string(pem.EncodeToMemory(&pem.Block{
			Type:  "RSA PRIVATE KEY",
			Bytes: x509.MarshalPKCS1PrivateKey(key),
		}))
	})
	return keyPEM
}

// fakeHost is a minimal hosting API for the org "acme": one healthy
// installation, token exchange, template generation and branch heads.
type fakeHost struct {
	mux          *http.ServeMux
	generated    []string // names generated from templates
	archived     []string
	treeShas     []string // shas requested from the trees endpoint
	failGenerate int      // remaining generate calls to answer with 502
	mu           sync.Mutex
}

func newFakeHost(t *testing.T) (*fakeHost, *github.Client) {
	t.Helper()
	fh := &fakeHost{mux: http.NewServeMux()}

	fh.mux.HandleFunc("/app/installations", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`[{"id":99,"repository_selection":"all",` +
			`"permissions":{"administration":"write"},"account":{"login":"acme"}}]`))
	})
	fh.mux.HandleFunc("/app/installations/99/access_tokens", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusCreated)
		_, _ = w.Write([]byte(`{"token":"live-token"}`))
	})
	fh.mux.HandleFunc("/orgs/acme", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"login":"acme"}`))
	})

	srv := httptest.NewServer(fh.mux)
	t.Cleanup(srv.Close)

	gh := github.New(github.Config{
		API:            srv.URL,
		AppID:          "1234",
		PrivateKey:     rsaKeyPEM(),
		InstallationID: "99",
		Owner:          "acme",
	})
	return fh, gh
}

// seedRepo wires the endpoints of an existing seed repository that can
// serve as a candidate template.
func (fh *fakeHost) seedRepo(t *testing.T, slug string) string {
	t.Helper()
	seedFull := "acme/challenges-" + slug + "-seed"

	fh.mux.HandleFunc("/repos/"+seedFull+"/generate", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		var payload map[string]any
		require.NoError(t, json.NewDecoder(r.Body).Decode(&payload))
		name := payload["name"].(string)

		fh.mu.Lock()
		if fh.failGenerate > 0 {
			fh.failGenerate--
			fh.mu.Unlock()
			w.WriteHeader(http.StatusBadGateway)
			_, _ = w.Write([]byte(`{"message":"upstream unavailable"}`))
			return
		}
		fh.generated = append(fh.generated, name)
		fh.mu.Unlock()

		w.WriteHeader(http.StatusCreated)
		_, _ = w.Write([]byte(`{"id":10,"name":"` + name + `","full_name":"acme/` + name +
			`","private":true,"html_url":"https://github.com/acme/` + name + `","default_branch":"main"}`))
	})
	fh.mux.HandleFunc("/repos/"+seedFull+"/branches/main", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"commit":{"sha":"seed-head-sha"}}`))
	})
	// candidate repos share one branch-head and patch handler
	fh.mux.HandleFunc("/repos/acme/", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		if r.Method == http.MethodPatch {
			fh.mu.Lock()
			fh.archived = append(fh.archived, r.URL.Path)
			fh.mu.Unlock()
			_, _ = w.Write([]byte(`{}`))
			return
		}
		if strings.HasSuffix(r.URL.Path, "/branches/main") {
			_, _ = w.Write([]byte(`{"commit":{"sha":"candidate-head-sha"}}`))
			return
		}
		if strings.Contains(r.URL.Path, "/git/trees/") {
			fh.mu.Lock()
			fh.treeShas = append(fh.treeShas, r.URL.Path[strings.LastIndex(r.URL.Path, "/")+1:])
			fh.mu.Unlock()
			if strings.Contains(r.URL.Path, "-seed/") {
				_, _ = w.Write([]byte(`{"tree":[{"path":"README.md","type":"blob"},` +
					`{"path":"src","type":"tree"},{"path":"src/main.go","type":"blob"}]}`))
			} else {
				_, _ = w.Write([]byte(`{"tree":[{"path":"README.md","type":"blob"},` +
					`{"path":"src","type":"tree"},{"path":"src/app.go","type":"blob"}]}`))
			}
			return
		}
		http.NotFound(w, r)
	})
	return seedFull
}

type fakeMailer struct {
	mu    sync.Mutex
	sent  []string
	fail  bool
	error string
}

func (m *fakeMailer) Send(ctx context.Context, to, subject, html string) error {
	if m.fail {
		msg := m.error
		if msg == "" {
			msg = "smtp down"
		}
		return errors.New(msg)
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.sent = append(m.sent, to)
	return nil
}

type fixture struct {
	challengeRepo repo.IChallengeRepository
	candidateRepo repo.ICandidateRepository
	inviteRepo    repo.IInviteRepository
	assessment    *AssessmentLogic
	invites       *InviteLogic
	challenges    *ChallengeLogic
	mailer        *fakeMailer
	host          *fakeHost
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	gdb, err := database.NewDatabase(database.Database{Type: "sqlite", DB: ":memory:"})
	require.NoError(t, err)
	require.NoError(t, gdb.AutoMigrate(&model.Challenge{}, &model.Candidate{}, &model.ChallengeInvite{}))
	db := database.NewGormDB(gdb)

	host, gh := newFakeHost(t)
	assessment := NewAssessmentLogic(gh)
	mailer := &fakeMailer{}

	challengeRepo := repo.NewChallengeRepo(db)
	candidateRepo := repo.NewCandidateRepo(db)
	inviteRepo := repo.NewInviteRepo(db)

	return &fixture{
		challengeRepo: challengeRepo,
		candidateRepo: candidateRepo,
		inviteRepo:    inviteRepo,
		assessment:    assessment,
		invites:       NewInviteLogic(challengeRepo, candidateRepo, inviteRepo, assessment, mailer, "https://assess.example.com"),
		challenges:    NewChallengeLogic(challengeRepo, assessment),
		mailer:        mailer,
		host:          host,
	}
}

// storedChallenge seeds a ready challenge row without going through
// seed preparation.
func (f *fixture) storedChallenge(t *testing.T, slug string) *model.Challenge {
	t.Helper()
	seedFull := f.host.seedRepo(t, slug)
	challenge := &model.Challenge{
		ChallengeId:         id.GetUUID(),
		Slug:                slug,
		Title:               "Challenge " + slug,
		SeedRepoFull:        seedFull,
		SeedMainHeadSHA:     "seed-head-sha",
		DefaultBranch:       "main",
		RepoSetupStatus:     model.RepoSetupComplete,
		StartWindowDays:     7,
		CompleteWindowHours: 48,
	}
	require.NoError(t, f.challengeRepo.CreateChallenge(challenge))
	return challenge
}

func TestDiff(t *testing.T) {
	summary := Diff([]string{"a", "b"}, []string{"a", "c"})
	assert.Equal(t, []string{"c"}, summary.Added)
	assert.Equal(t, []string{"b"}, summary.Removed)
	assert.Equal(t, 1, summary.Unchanged)

	summary = Diff(nil, nil)
	assert.Empty(t, summary.Added)
	assert.Empty(t, summary.Removed)
	assert.Zero(t, summary.Unchanged)

	summary = Diff([]string{"x"}, []string{"x"})
	assert.Equal(t, 1, summary.Unchanged)
	assert.Empty(t, summary.Added)
}

func TestCreateInvite_EmailFailureIsWarning(t *testing.T) {
	f := newFixture(t)
	challenge := f.storedChallenge(t, "warn")
	f.mailer.fail = true
	f.mailer.error = "resend unavailable"

	resp, err := f.invites.CreateInvite(context.Background(), challenge.ChallengeId, &model.CreateInviteReq{
		Email: "alice@example.com",
		Name:  "Alice",
	})
	require.NoError(t, err)
	assert.Equal(t, model.InviteStatusPending, resp.Status)
	assert.Contains(t, resp.EmailWarning, "resend unavailable")
	assert.Contains(t, resp.StartURL, "https://assess.example.com/api/candidate/start/")

	// the invite is queryable despite the email failure
	stored, err := f.inviteRepo.GetInviteByInviteId(resp.InviteId)
	require.NoError(t, err)
	assert.Equal(t, model.InviteStatusPending, stored.Status)
}

func TestCreateInvite_UnknownChallenge(t *testing.T) {
	f := newFixture(t)
	_, err := f.invites.CreateInvite(context.Background(), "nope", &model.CreateInviteReq{Email: "a@b.c"})
	assert.ErrorIs(t, err, ErrChallengeNotFound)
}

func TestStart_FullFlowAndIdempotentReentry(t *testing.T) {
	f := newFixture(t)
	challenge := f.storedChallenge(t, "flow")

	resp, err := f.invites.CreateInvite(context.Background(), challenge.ChallengeId, &model.CreateInviteReq{
		Email: "bob@example.com", Name: "Bob",
	})
	require.NoError(t, err)
	assert.Equal(t, []string{"bob@example.com"}, f.mailer.sent)

	start, err := f.invites.Start(context.Background(), resp.StartToken)
	require.NoError(t, err)
	assert.Contains(t, start.CloneURL, "x-access-token:live-token@")
	assert.Contains(t, start.CloneURL, "assessments-flow-candidate-")
	assert.Equal(t, "main", start.DefaultBranch)
	assert.False(t, start.CompleteDeadline.IsZero())

	stored, err := f.inviteRepo.GetInviteByInviteId(resp.InviteId)
	require.NoError(t, err)
	assert.Equal(t, model.InviteStatusStarted, stored.Status)
	assert.Equal(t, "seed-head-sha", stored.PinnedSeedSHA)
	assert.NotEmpty(t, stored.RepoFull)

	// starting again re-issues a credential without a second repo
	again, err := f.invites.Start(context.Background(), resp.StartToken)
	require.NoError(t, err)
	assert.Contains(t, again.CloneURL, stored.RepoFull[len("acme/"):])
	assert.Len(t, f.host.generated, 1)
}

func TestStart_ExpiredWindow(t *testing.T) {
	f := newFixture(t)
	challenge := f.storedChallenge(t, "late")

	resp, err := f.invites.CreateInvite(context.Background(), challenge.ChallengeId, &model.CreateInviteReq{
		Email: "c@example.com",
	})
	require.NoError(t, err)

	f.invites.now = func() time.Time { return time.Now().Add(8 * 24 * time.Hour) }
	_, err = f.invites.Start(context.Background(), resp.StartToken)
	assert.ErrorIs(t, err, ErrStartWindowExpired)

	stored, err := f.inviteRepo.GetInviteByInviteId(resp.InviteId)
	require.NoError(t, err)
	assert.Equal(t, model.InviteStatusPending, stored.Status)
}

func TestStart_RetriesProvisioningAfterFailure(t *testing.T) {
	f := newFixture(t)
	challenge := f.storedChallenge(t, "retry")

	resp, err := f.invites.CreateInvite(context.Background(), challenge.ChallengeId, &model.CreateInviteReq{
		Email: "d@example.com",
	})
	require.NoError(t, err)

	// the template generation fails once; the invite still flips to
	// started but ends up with no repository on record
	f.host.failGenerate = 1
	_, err = f.invites.Start(context.Background(), resp.StartToken)
	assert.ErrorIs(t, err, ErrRepoProvisioning)

	stored, err := f.inviteRepo.GetInviteByInviteId(resp.InviteId)
	require.NoError(t, err)
	assert.Equal(t, model.InviteStatusStarted, stored.Status)
	assert.Empty(t, stored.RepoFull)

	// until the repository exists there is no credential to refresh
	_, err = f.invites.Refresh(context.Background(), resp.StartToken)
	assert.ErrorIs(t, err, ErrInvalidState)

	// a later start retries the provisioning instead of locking out
	start, err := f.invites.Start(context.Background(), resp.StartToken)
	require.NoError(t, err)
	assert.Contains(t, start.CloneURL, "assessments-retry-candidate-")
	assert.False(t, start.CompleteDeadline.IsZero())

	stored, err = f.inviteRepo.GetInviteByInviteId(resp.InviteId)
	require.NoError(t, err)
	assert.NotEmpty(t, stored.RepoFull)
	assert.Equal(t, "seed-head-sha", stored.PinnedSeedSHA)
	assert.Len(t, f.host.generated, 1)
}

func TestStart_UnknownToken(t *testing.T) {
	f := newFixture(t)
	_, err := f.invites.Start(context.Background(), "no-such-token")
	assert.ErrorIs(t, err, ErrInviteTokenInvalid)
}

func TestRefreshGates(t *testing.T) {
	f := newFixture(t)
	challenge := f.storedChallenge(t, "refresh")

	resp, err := f.invites.CreateInvite(context.Background(), challenge.ChallengeId, &model.CreateInviteReq{
		Email: "d@example.com",
	})
	require.NoError(t, err)

	// pending invite cannot refresh
	_, err = f.invites.Refresh(context.Background(), resp.StartToken)
	assert.ErrorIs(t, err, ErrInvalidState)

	_, err = f.invites.Start(context.Background(), resp.StartToken)
	require.NoError(t, err)

	refresh, err := f.invites.Refresh(context.Background(), resp.StartToken)
	require.NoError(t, err)
	assert.Contains(t, refresh.CloneURL, "x-access-token:live-token@")

	// past the complete deadline the credential is gone
	f.invites.now = func() time.Time { return time.Now().Add(49 * time.Hour) }
	_, err = f.invites.Refresh(context.Background(), resp.StartToken)
	assert.ErrorIs(t, err, ErrAssessmentWindowExpired)
}

func TestSubmit_RecordsFinalCommitAndArchives(t *testing.T) {
	f := newFixture(t)
	challenge := f.storedChallenge(t, "submit")

	resp, err := f.invites.CreateInvite(context.Background(), challenge.ChallengeId, &model.CreateInviteReq{
		Email: "e@example.com",
	})
	require.NoError(t, err)

	// submit before start is rejected
	_, err = f.invites.Submit(context.Background(), resp.StartToken)
	assert.ErrorIs(t, err, ErrInviteNotActive)

	_, err = f.invites.Start(context.Background(), resp.StartToken)
	require.NoError(t, err)

	submit, err := f.invites.Submit(context.Background(), resp.StartToken)
	require.NoError(t, err)
	assert.Equal(t, "candidate-head-sha", submit.FinalCommitSHA)
	assert.Empty(t, submit.Warnings)
	assert.NotEmpty(t, f.host.archived)

	stored, err := f.inviteRepo.GetInviteByInviteId(resp.InviteId)
	require.NoError(t, err)
	assert.Equal(t, model.InviteStatusSubmitted, stored.Status)
	assert.Equal(t, "candidate-head-sha", stored.FinalCommitSHA)

	// terminal: a second submit is invalid
	_, err = f.invites.Submit(context.Background(), resp.StartToken)
	assert.ErrorIs(t, err, ErrInvalidState)
}

func TestCompare_PinnedSeedAgainstLiveHead(t *testing.T) {
	f := newFixture(t)
	challenge := f.storedChallenge(t, "cmp")

	resp, err := f.invites.CreateInvite(context.Background(), challenge.ChallengeId, &model.CreateInviteReq{
		Email: "g@example.com",
	})
	require.NoError(t, err)
	_, err = f.invites.Start(context.Background(), resp.StartToken)
	require.NoError(t, err)

	summary, err := f.invites.Compare(context.Background(), resp.InviteId)
	require.NoError(t, err)
	assert.Equal(t, []string{"src/app.go"}, summary.Added)
	assert.Equal(t, []string{"src/main.go"}, summary.Removed)
	assert.Equal(t, 1, summary.Unchanged)
	assert.Contains(t, f.host.treeShas, "seed-head-sha")
	assert.Contains(t, f.host.treeShas, "candidate-head-sha")
}

func TestCompare_SubmittedReadsFinalCommit(t *testing.T) {
	f := newFixture(t)
	challenge := f.storedChallenge(t, "cmps")

	resp, err := f.invites.CreateInvite(context.Background(), challenge.ChallengeId, &model.CreateInviteReq{
		Email: "g2@example.com",
	})
	require.NoError(t, err)
	_, err = f.invites.Start(context.Background(), resp.StartToken)
	require.NoError(t, err)
	_, err = f.invites.Submit(context.Background(), resp.StartToken)
	require.NoError(t, err)

	stored, err := f.inviteRepo.GetInviteByInviteId(resp.InviteId)
	require.NoError(t, err)
	require.NotEmpty(t, stored.FinalCommitSHA)

	_, err = f.invites.Compare(context.Background(), resp.InviteId)
	require.NoError(t, err)

	// the candidate tree is fixed at the recorded final commit, not
	// read from the live branch head
	summary, err := f.assessment.Compare(context.Background(),
		challenge.SeedRepoFull, "seed-head-sha", stored.RepoFull, "final-pin-sha", "main")
	require.NoError(t, err)
	assert.Equal(t, 1, summary.Unchanged)
	assert.Contains(t, f.host.treeShas, "final-pin-sha")
}

func TestCompare_FallsBackToSeedHead(t *testing.T) {
	f := newFixture(t)
	challenge := f.storedChallenge(t, "cmpf")

	resp, err := f.invites.CreateInvite(context.Background(), challenge.ChallengeId, &model.CreateInviteReq{
		Email: "g3@example.com",
	})
	require.NoError(t, err)
	_, err = f.invites.Start(context.Background(), resp.StartToken)
	require.NoError(t, err)

	// wipe the pin as older invites have; the comparison base becomes
	// the seed head recorded at challenge setup
	stored, err := f.inviteRepo.GetInviteByInviteId(resp.InviteId)
	require.NoError(t, err)
	require.NoError(t, f.inviteRepo.UpdateCandidateRepo(resp.InviteId, stored.RepoFull, stored.RepoHTMLURL, ""))
	require.NoError(t, f.challengeRepo.UpdateChallengeByChallengeId(challenge.ChallengeId,
		map[string]any{"seed_main_head_sha": "setup-head-sha"}))

	summary, err := f.invites.Compare(context.Background(), resp.InviteId)
	require.NoError(t, err)
	assert.Equal(t, []string{"src/app.go"}, summary.Added)
	assert.Contains(t, f.host.treeShas, "setup-head-sha")
}

func TestCompare_NoRepoIsInvalid(t *testing.T) {
	f := newFixture(t)
	challenge := f.storedChallenge(t, "cmpn")

	resp, err := f.invites.CreateInvite(context.Background(), challenge.ChallengeId, &model.CreateInviteReq{
		Email: "g4@example.com",
	})
	require.NoError(t, err)

	_, err = f.invites.Compare(context.Background(), resp.InviteId)
	assert.ErrorIs(t, err, ErrInvalidState)
}

func TestStartView(t *testing.T) {
	f := newFixture(t)
	challenge := f.storedChallenge(t, "view")

	resp, err := f.invites.CreateInvite(context.Background(), challenge.ChallengeId, &model.CreateInviteReq{
		Email: "f@example.com",
	})
	require.NoError(t, err)

	view, err := f.invites.StartView(resp.StartToken)
	require.NoError(t, err)
	assert.Equal(t, "Challenge view", view.Title)
	assert.Equal(t, model.InviteStatusPending, view.Status)
	assert.Nil(t, view.CompleteDeadline)
}

func TestPrepareSeedRepo_ExistingSeedComplete(t *testing.T) {
	f := newFixture(t)
	seedFull := f.host.seedRepo(t, "prep")

	f.host.mux.HandleFunc("/repos/"+seedFull, func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		// exists probe and the metadata patches land here
		_, _ = w.Write([]byte(`{"id":1,"full_name":"` + seedFull + `","default_branch":"main"}`))
	})

	result := f.assessment.PrepareSeedRepo(context.Background(), "prep", "", "main")
	assert.Equal(t, model.RepoSetupComplete, result.Status)
	assert.Equal(t, seedFull, result.SeedRepoFull)
	assert.Equal(t, "seed-head-sha", result.HeadSHA)
	assert.Empty(t, result.Warnings)
}

func TestPrepareSeedRepo_ImportFailureIsWarning(t *testing.T) {
	f := newFixture(t)
	seedFull := f.host.seedRepo(t, "imp")

	f.host.mux.HandleFunc("/repos/"+seedFull, func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"id":1,"full_name":"` + seedFull + `","default_branch":"main"}`))
	})
	f.host.mux.HandleFunc("/repos/"+seedFull+"/import", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		if r.Method == http.MethodPut {
			_, _ = w.Write([]byte(`{"status":"importing"}`))
			return
		}
		_, _ = w.Write([]byte(`{"status":"error","message":"unsupported vcs"}`))
	})

	result := f.assessment.PrepareSeedRepo(context.Background(), "imp", "https://example.com/upstream.git", "main")
	assert.Equal(t, model.RepoSetupPartial, result.Status)
	require.NotEmpty(t, result.Warnings)
	assert.Contains(t, result.Warnings[0], "unsupported vcs")
	// head is still read; the seed exists even though the import failed
	assert.Equal(t, "seed-head-sha", result.HeadSHA)
}

func TestPrepareSeedRepo_NotConfigured(t *testing.T) {
	gh := github.New(github.Config{})
	al := NewAssessmentLogic(gh)

	result := al.PrepareSeedRepo(context.Background(), "any", "", "main")
	assert.Equal(t, model.RepoSetupNotAttempted, result.Status)
	assert.NotEmpty(t, result.Warnings)
}

func TestCreateChallenge_SlugTaken(t *testing.T) {
	f := newFixture(t)
	f.storedChallenge(t, "dup")

	_, err := f.challenges.CreateChallenge(context.Background(), &model.CreateChallengeReq{
		Slug: "dup", Title: "Another",
	})
	assert.ErrorIs(t, err, ErrSlugTaken)
}

func TestChallengeDetail(t *testing.T) {
	f := newFixture(t)
	challenge := f.storedChallenge(t, "detail")

	_, err := f.invites.CreateInvite(context.Background(), challenge.ChallengeId, &model.CreateInviteReq{
		Email: "g@example.com",
	})
	require.NoError(t, err)

	detail, err := f.challenges.ChallengeDetail(challenge.ChallengeId)
	require.NoError(t, err)
	assert.Equal(t, int64(1), detail.InviteCount)

	_, err = f.challenges.ChallengeDetail("missing")
	assert.ErrorIs(t, err, ErrChallengeNotFound)
}

func TestInviteDetailAndFollowUp(t *testing.T) {
	f := newFixture(t)
	challenge := f.storedChallenge(t, "fup")

	resp, err := f.invites.CreateInvite(context.Background(), challenge.ChallengeId, &model.CreateInviteReq{
		Email: "h@example.com", Name: "Hana",
	})
	require.NoError(t, err)

	detail, err := f.invites.InviteDetail(resp.InviteId)
	require.NoError(t, err)
	assert.Equal(t, "h@example.com", detail.CandidateEmail)
	assert.Equal(t, "fup", detail.ChallengeSlug)

	require.NoError(t, f.invites.SendFollowUp(context.Background(), resp.InviteId))
	assert.Equal(t, []string{"h@example.com", "h@example.com"}, f.mailer.sent)

	// follow-up only makes sense while pending
	_, err = f.invites.Start(context.Background(), resp.StartToken)
	require.NoError(t, err)
	assert.ErrorIs(t, f.invites.SendFollowUp(context.Background(), resp.InviteId), ErrInvalidState)
}

func TestSendFollowUp_DeliveryFailure(t *testing.T) {
	f := newFixture(t)
	challenge := f.storedChallenge(t, "fupfail")

	resp, err := f.invites.CreateInvite(context.Background(), challenge.ChallengeId, &model.CreateInviteReq{
		Email: "i@example.com",
	})
	require.NoError(t, err)

	f.mailer.fail = true
	f.mailer.error = "resend unavailable"
	err = f.invites.SendFollowUp(context.Background(), resp.InviteId)
	assert.ErrorIs(t, err, ErrEmailDelivery)
	assert.Contains(t, err.Error(), "resend unavailable")
}
