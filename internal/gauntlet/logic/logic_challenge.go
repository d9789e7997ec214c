package logic

import (
	"context"
	"errors"
	"strings"

	"gorm.io/gorm"

	"github.com/go-gauntlet/gauntlet/internal/gauntlet/model"
	"github.com/go-gauntlet/gauntlet/internal/gauntlet/repo"
	"github.com/go-gauntlet/gauntlet/pkg/id"
	"github.com/go-gauntlet/gauntlet/pkg/log"
)

var ErrSlugTaken = errors.New("challenge slug already in use")

type ChallengeLogic struct {
	challengeRepo repo.IChallengeRepository
	assessment    *AssessmentLogic
}

func NewChallengeLogic(challengeRepo repo.IChallengeRepository, assessment *AssessmentLogic) *ChallengeLogic {
	return &ChallengeLogic{
		challengeRepo: challengeRepo,
		assessment:    assessment,
	}
}

// CreateChallenge creates the challenge record and prepares its seed
// repository. Seed preparation aggregates warnings; the record is
// created whatever happened on the hosting side.
func (cl *ChallengeLogic) CreateChallenge(ctx context.Context, req *model.CreateChallengeReq) (*model.CreateChallengeResp, error) {
	if _, err := cl.challengeRepo.GetChallengeBySlug(req.Slug); err == nil {
		return nil, ErrSlugTaken
	} else if !errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, err
	}

	challenge := &model.Challenge{
		ChallengeId:         id.GetUUID(),
		Slug:                req.Slug,
		Title:               req.Title,
		Instructions:        req.Instructions,
		SeedRepoURL:         req.SeedRepoURL,
		DefaultBranch:       "main",
		StartWindowDays:     req.StartWindowDays,
		CompleteWindowHours: req.CompleteWindowHours,
	}

	setup := cl.assessment.PrepareSeedRepo(ctx, req.Slug, req.SeedRepoURL, challenge.DefaultBranch)
	challenge.SeedRepoFull = setup.SeedRepoFull
	challenge.SeedMainHeadSHA = setup.HeadSHA
	challenge.RepoSetupStatus = setup.Status
	challenge.SetupWarnings = strings.Join(setup.Warnings, "\n")

	if err := cl.challengeRepo.CreateChallenge(challenge); err != nil {
		return nil, err
	}
	log.Infow("challenge created",
		"challenge", challenge.ChallengeId,
		"slug", challenge.Slug,
		"repoSetupStatus", challenge.RepoSetupStatus,
	)

	return &model.CreateChallengeResp{
		Challenge: *challenge,
		Warnings:  setup.Warnings,
	}, nil
}

// ChallengeDetail returns the challenge with its invite count.
func (cl *ChallengeLogic) ChallengeDetail(challengeId string) (*model.ChallengeDetail, error) {
	challenge, err := cl.challengeRepo.GetChallengeByChallengeId(challengeId)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrChallengeNotFound
		}
		return nil, err
	}
	count, err := cl.challengeRepo.CountInvites(challengeId)
	if err != nil {
		return nil, err
	}
	return &model.ChallengeDetail{
		Challenge:   *challenge,
		InviteCount: count,
	}, nil
}

// DbHealth probes storage liveness.
func (cl *ChallengeLogic) DbHealth() error {
	return cl.challengeRepo.Ping()
}
