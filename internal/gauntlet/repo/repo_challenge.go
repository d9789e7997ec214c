package repo

import (
	"github.com/go-gauntlet/gauntlet/internal/gauntlet/model"
	"github.com/go-gauntlet/gauntlet/pkg/database"
)

type IChallengeRepository interface {
	CreateChallenge(challenge *model.Challenge) error
	GetChallengeByChallengeId(challengeId string) (*model.Challenge, error)
	GetChallengeBySlug(slug string) (*model.Challenge, error)
	UpdateChallengeByChallengeId(challengeId string, updates map[string]any) error
	CountInvites(challengeId string) (int64, error)
	Ping() error
}

type ChallengeRepo struct {
	database.IDatabase
}

func NewChallengeRepo(db database.IDatabase) IChallengeRepository {
	return &ChallengeRepo{
		IDatabase: db,
	}
}

// CreateChallenge creates a new challenge
func (cr *ChallengeRepo) CreateChallenge(challenge *model.Challenge) error {
	if err := cr.Database().Table(challenge.TableName()).Create(challenge).Error; err != nil {
		return err
	}
	return nil
}

func (cr *ChallengeRepo) GetChallengeByChallengeId(challengeId string) (*model.Challenge, error) {
	var challenge model.Challenge
	if err := cr.Database().Table(challenge.TableName()).
		Where("challenge_id = ?", challengeId).First(&challenge).Error; err != nil {
		return nil, err
	}
	return &challenge, nil
}

func (cr *ChallengeRepo) GetChallengeBySlug(slug string) (*model.Challenge, error) {
	var challenge model.Challenge
	if err := cr.Database().Table(challenge.TableName()).
		Where("slug = ?", slug).First(&challenge).Error; err != nil {
		return nil, err
	}
	return &challenge, nil
}

func (cr *ChallengeRepo) UpdateChallengeByChallengeId(challengeId string, updates map[string]any) error {
	var challenge model.Challenge
	return cr.Database().Table(challenge.TableName()).
		Where("challenge_id = ?", challengeId).Updates(updates).Error
}

func (cr *ChallengeRepo) CountInvites(challengeId string) (int64, error) {
	var invite model.ChallengeInvite
	var count int64
	err := cr.Database().Table(invite.TableName()).
		Where("challenge_id = ?", challengeId).Count(&count).Error
	return count, err
}

// Ping verifies storage liveness for the health probe.
func (cr *ChallengeRepo) Ping() error {
	sqlDB, err := cr.Database().DB()
	if err != nil {
		return err
	}
	return sqlDB.Ping()
}
