// Copyright 2025 Gauntlet Team
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//      http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

package logic

import (
	"context"
	"errors"
	"fmt"
	"time"

	"gorm.io/gorm"

	"github.com/go-gauntlet/gauntlet/internal/gauntlet/model"
	"github.com/go-gauntlet/gauntlet/internal/gauntlet/repo"
	"github.com/go-gauntlet/gauntlet/pkg/id"
	"github.com/go-gauntlet/gauntlet/pkg/log"
	"github.com/go-gauntlet/gauntlet/pkg/statemachine"
)

// Invite lifecycle errors, matched with errors.Is at the router layer.
var (
	ErrChallengeNotFound       = errors.New("challenge not found")
	ErrInviteNotFound          = errors.New("invite not found")
	ErrInviteTokenInvalid      = errors.New("invite token is invalid")
	ErrInviteNotActive         = errors.New("invite is no longer active")
	ErrStartWindowExpired      = errors.New("the window to start this assessment has expired")
	ErrAssessmentWindowExpired = errors.New("the assessment window has expired")
	ErrInvalidState            = errors.New("invite is not in a valid state for this operation")
	ErrRepoProvisioning        = errors.New("candidate repository provisioning failed")
	ErrFinalCommitUnavailable  = errors.New("final commit could not be determined")
	ErrEmailDelivery           = errors.New("invitation email delivery failed")
)

const (
	defaultStartWindowDays     = 7
	defaultCompleteWindowHours = 48
)

// Mailer is the outbound email channel; delivery failures surface as
// warnings, never as request failures.
type Mailer interface {
	Send(ctx context.Context, to, subject, html string) error
}

// newInviteFSM declares the invite lifecycle. Status only moves
// forward; submitted is terminal.
func newInviteFSM(current string) *statemachine.StateMachine[string] {
	return statemachine.NewWithState(current).
		Allow(model.InviteStatusPending, model.InviteStatusStarted).
		Allow(model.InviteStatusStarted, model.InviteStatusSubmitted)
}

type InviteLogic struct {
	challengeRepo repo.IChallengeRepository
	candidateRepo repo.ICandidateRepository
	inviteRepo    repo.IInviteRepository
	assessment    *AssessmentLogic
	mailer        Mailer
	baseURL       string
	now           func() time.Time
}

func NewInviteLogic(
	challengeRepo repo.IChallengeRepository,
	candidateRepo repo.ICandidateRepository,
	inviteRepo repo.IInviteRepository,
	assessment *AssessmentLogic,
	mailer Mailer,
	baseURL string,
) *InviteLogic {
	return &InviteLogic{
		challengeRepo: challengeRepo,
		candidateRepo: candidateRepo,
		inviteRepo:    inviteRepo,
		assessment:    assessment,
		mailer:        mailer,
		baseURL:       baseURL,
		now:           time.Now,
	}
}

// CreateInvite upserts the candidate by email, creates a pending
// invite and sends the invitation email best-effort.
func (il *InviteLogic) CreateInvite(ctx context.Context, challengeId string, req *model.CreateInviteReq) (*model.CreateInviteResp, error) {
	challenge, err := il.challengeRepo.GetChallengeByChallengeId(challengeId)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrChallengeNotFound
		}
		return nil, err
	}

	candidate, err := il.candidateRepo.UpsertCandidate(req.Email, req.Name)
	if err != nil {
		return nil, err
	}

	startWindowDays := req.StartWindowDays
	if startWindowDays <= 0 {
		startWindowDays = challenge.StartWindowDays
	}
	if startWindowDays <= 0 {
		startWindowDays = defaultStartWindowDays
	}

	invite := &model.ChallengeInvite{
		InviteId:      id.GetUUID(),
		ChallengeId:   challenge.ChallengeId,
		CandidateId:   candidate.CandidateId,
		StartToken:    id.GetUUIDWithoutDashes(),
		Status:        model.InviteStatusPending,
		StartDeadline: il.now().Add(time.Duration(startWindowDays) * 24 * time.Hour),
	}
	if err := il.inviteRepo.CreateInvite(invite); err != nil {
		return nil, err
	}

	resp := &model.CreateInviteResp{
		ChallengeInvite: *invite,
		StartURL:        il.startURL(invite.StartToken),
	}

	if err := il.sendInvitation(ctx, candidate, challenge, resp.StartURL, invite.StartDeadline); err != nil {
		log.Warnw("invitation email failed", "invite", invite.InviteId, "err", err)
		resp.EmailWarning = err.Error()
	}
	return resp, nil
}

func (il *InviteLogic) startURL(token string) string {
	return fmt.Sprintf("%s/api/candidate/start/%s", il.baseURL, token)
}

func (il *InviteLogic) sendInvitation(ctx context.Context, candidate *model.Candidate, challenge *model.Challenge, startURL string, deadline time.Time) error {
	if il.mailer == nil {
		return errors.New("no email channel configured")
	}
	name := candidate.Name
	if name == "" {
		name = "there"
	}
	html := fmt.Sprintf(
		"<p>Hi %s,</p><p>You have been invited to the coding assessment <b>%s</b>.</p>"+
			"<p><a href=%q>Start your assessment</a> before %s.</p>",
		name, challenge.Title, startURL, deadline.Format(time.RFC1123),
	)
	return il.mailer.Send(ctx, candidate.Email, fmt.Sprintf("Coding assessment: %s", challenge.Title), html)
}

// SendFollowUp re-sends the start link for a pending invite.
func (il *InviteLogic) SendFollowUp(ctx context.Context, inviteId string) error {
	invite, err := il.inviteRepo.GetInviteByInviteId(inviteId)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return ErrInviteNotFound
		}
		return err
	}
	if invite.Status != model.InviteStatusPending {
		return ErrInvalidState
	}

	candidate, err := il.candidateRepo.GetCandidateByCandidateId(invite.CandidateId)
	if err != nil {
		return err
	}
	challenge, err := il.challengeRepo.GetChallengeByChallengeId(invite.ChallengeId)
	if err != nil {
		return err
	}
	if err := il.sendInvitation(ctx, candidate, challenge, il.startURL(invite.StartToken), invite.StartDeadline); err != nil {
		return fmt.Errorf("%w: %v", ErrEmailDelivery, err)
	}
	return nil
}

// StartView returns what the candidate page renders for a token, both
// before and after starting.
func (il *InviteLogic) StartView(token string) (*model.StartView, error) {
	invite, challenge, err := il.inviteAndChallenge(token)
	if err != nil {
		return nil, err
	}
	return &model.StartView{
		Title:            challenge.Title,
		Instructions:     challenge.Instructions,
		Status:           invite.Status,
		StartDeadline:    invite.StartDeadline,
		CompleteDeadline: invite.CompleteDeadline,
		DefaultBranch:    challenge.DefaultBranch,
		RepoHTMLURL:      invite.RepoHTMLURL,
	}, nil
}

// Start performs the pending → started transition and provisions the
// candidate repository. Calling Start again on an already started
// invite re-issues a clone credential instead of provisioning twice.
func (il *InviteLogic) Start(ctx context.Context, token string) (*model.StartResp, error) {
	invite, challenge, err := il.inviteAndChallenge(token)
	if err != nil {
		return nil, err
	}

	now := il.now()
	switch invite.Status {
	case model.InviteStatusStarted:
		// idempotent re-entry: the start deadline no longer applies
		return il.reissue(ctx, invite, challenge)
	case model.InviteStatusPending:
		// fall through to first start
	default:
		return nil, ErrInviteNotActive
	}

	if invite.StartedAt == nil && now.After(invite.StartDeadline) {
		return nil, ErrStartWindowExpired
	}

	if !newInviteFSM(invite.Status).CanTransitTo(model.InviteStatusStarted) {
		return nil, ErrInviteNotActive
	}

	completeWindowHours := challenge.CompleteWindowHours
	if completeWindowHours <= 0 {
		completeWindowHours = defaultCompleteWindowHours
	}
	completeDeadline := now.Add(time.Duration(completeWindowHours) * time.Hour)

	won, err := il.inviteRepo.MarkStarted(invite.InviteId, now, completeDeadline)
	if err != nil {
		return nil, err
	}
	if !won {
		// lost the race to a concurrent start; the winner provisions
		return nil, ErrInvalidState
	}

	invite.CompleteDeadline = &completeDeadline
	return il.provision(ctx, invite, challenge)
}

// provision creates the candidate repository for a started invite and
// records it. A failure leaves the invite started with no repository;
// the next Start call lands back here and retries.
func (il *InviteLogic) provision(ctx context.Context, invite *model.ChallengeInvite, challenge *model.Challenge) (*model.StartResp, error) {
	repoResult, err := il.assessment.CreateCandidateRepo(ctx, challenge.SeedRepoFull, challenge.Slug, challenge.DefaultBranch)
	if err != nil {
		log.Errorw("candidate repository provisioning failed", "invite", invite.InviteId, "err", err)
		return nil, fmt.Errorf("%w: %v", ErrRepoProvisioning, err)
	}

	if err := il.inviteRepo.UpdateCandidateRepo(invite.InviteId,
		repoResult.RepoFull, repoResult.RepoHTMLURL, repoResult.PinnedSeedSHA); err != nil {
		return nil, err
	}

	log.Infow("assessment started",
		"invite", invite.InviteId,
		"repo", repoResult.RepoFull,
	)
	resp := &model.StartResp{
		CloneURL:      repoResult.CloneURL,
		RepoHTMLURL:   repoResult.RepoHTMLURL,
		DefaultBranch: challenge.DefaultBranch,
	}
	if invite.CompleteDeadline != nil {
		resp.CompleteDeadline = *invite.CompleteDeadline
	}
	return resp, nil
}

func (il *InviteLogic) reissue(ctx context.Context, invite *model.ChallengeInvite, challenge *model.Challenge) (*model.StartResp, error) {
	if invite.CompleteDeadline != nil && il.now().After(*invite.CompleteDeadline) {
		return nil, ErrAssessmentWindowExpired
	}
	if invite.RepoFull == "" {
		// an earlier start won the transition but provisioning failed
		return il.provision(ctx, invite, challenge)
	}
	cloneURL, err := il.assessment.IssueCloneURL(ctx, invite.RepoFull)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrRepoProvisioning, err)
	}
	resp := &model.StartResp{
		CloneURL:      cloneURL,
		RepoHTMLURL:   invite.RepoHTMLURL,
		DefaultBranch: challenge.DefaultBranch,
	}
	if invite.CompleteDeadline != nil {
		resp.CompleteDeadline = *invite.CompleteDeadline
	}
	return resp, nil
}

// Refresh re-issues the clone credential for a started invite.
func (il *InviteLogic) Refresh(ctx context.Context, token string) (*model.RefreshResp, error) {
	invite, _, err := il.inviteAndChallenge(token)
	if err != nil {
		return nil, err
	}
	if invite.Status != model.InviteStatusStarted {
		return nil, ErrInvalidState
	}
	if invite.CompleteDeadline != nil && il.now().After(*invite.CompleteDeadline) {
		return nil, ErrAssessmentWindowExpired
	}
	if invite.RepoFull == "" {
		// no repository yet; another Start call provisions it
		return nil, ErrInvalidState
	}

	cloneURL, err := il.assessment.IssueCloneURL(ctx, invite.RepoFull)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrRepoProvisioning, err)
	}
	return &model.RefreshResp{CloneURL: cloneURL}, nil
}

// Submit performs the started → submitted transition. The final head
// read is load-bearing; archival is not and surfaces as a warning.
func (il *InviteLogic) Submit(ctx context.Context, token string) (*model.SubmitResp, error) {
	invite, challenge, err := il.inviteAndChallenge(token)
	if err != nil {
		return nil, err
	}
	if invite.Status != model.InviteStatusStarted {
		if invite.Status == model.InviteStatusSubmitted {
			return nil, ErrInvalidState
		}
		return nil, ErrInviteNotActive
	}

	sha, err := il.assessment.FinalCommit(ctx, invite.RepoFull, challenge.DefaultBranch)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrFinalCommitUnavailable, err)
	}

	now := il.now()
	won, err := il.inviteRepo.MarkSubmitted(invite.InviteId, now, sha)
	if err != nil {
		return nil, err
	}
	if !won {
		return nil, ErrInvalidState
	}

	resp := &model.SubmitResp{
		FinalCommitSHA: sha,
		SubmittedAt:    now,
	}

	// the submission already happened; a failed archive never rolls
	// it back
	if err := il.assessment.ArchiveCandidateRepo(ctx, invite.RepoFull); err != nil {
		log.Warnw("candidate repository archive failed", "invite", invite.InviteId, "err", err)
		resp.Warnings = append(resp.Warnings, fmt.Sprintf("repository archive failed: %v", err))
	}

	log.Infow("assessment submitted", "invite", invite.InviteId, "commit", sha)
	return resp, nil
}

// Compare diffs the candidate repository against the seed commit
// pinned at start time, or the seed head recorded at setup when no
// pin was taken.
func (il *InviteLogic) Compare(ctx context.Context, inviteId string) (*model.DiffSummary, error) {
	invite, err := il.inviteRepo.GetInviteByInviteId(inviteId)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrInviteNotFound
		}
		return nil, err
	}
	if invite.RepoFull == "" {
		return nil, ErrInvalidState
	}
	challenge, err := il.challengeRepo.GetChallengeByChallengeId(invite.ChallengeId)
	if err != nil {
		return nil, err
	}

	seedSHA := invite.PinnedSeedSHA
	if seedSHA == "" {
		// older invites predate pinning; fall back to the seed head
		// recorded at challenge setup
		seedSHA = challenge.SeedMainHeadSHA
	}
	if seedSHA == "" {
		return nil, ErrInvalidState
	}

	// a submitted invite is compared at its recorded final commit, not
	// at whatever the branch points to now
	candidateSHA := ""
	if invite.Status == model.InviteStatusSubmitted {
		candidateSHA = invite.FinalCommitSHA
	}
	return il.assessment.Compare(ctx, challenge.SeedRepoFull, seedSHA, invite.RepoFull, candidateSHA, challenge.DefaultBranch)
}

// InviteDetail joins the invite with its candidate and challenge for
// the admin view.
func (il *InviteLogic) InviteDetail(inviteId string) (*model.InviteDetail, error) {
	invite, err := il.inviteRepo.GetInviteByInviteId(inviteId)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrInviteNotFound
		}
		return nil, err
	}

	detail := &model.InviteDetail{ChallengeInvite: *invite}
	if candidate, err := il.candidateRepo.GetCandidateByCandidateId(invite.CandidateId); err == nil {
		detail.CandidateEmail = candidate.Email
		detail.CandidateName = candidate.Name
	}
	if challenge, err := il.challengeRepo.GetChallengeByChallengeId(invite.ChallengeId); err == nil {
		detail.ChallengeSlug = challenge.Slug
	}
	return detail, nil
}

func (il *InviteLogic) inviteAndChallenge(token string) (*model.ChallengeInvite, *model.Challenge, error) {
	invite, err := il.inviteRepo.GetInviteByToken(token)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil, ErrInviteTokenInvalid
		}
		return nil, nil, err
	}
	challenge, err := il.challengeRepo.GetChallengeByChallengeId(invite.ChallengeId)
	if err != nil {
		return nil, nil, err
	}
	return invite, challenge, nil
}
