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

package repo

import (
	"time"

	"github.com/go-gauntlet/gauntlet/internal/gauntlet/model"
	"github.com/go-gauntlet/gauntlet/pkg/database"
)

type IInviteRepository interface {
	CreateInvite(invite *model.ChallengeInvite) error
	GetInviteByInviteId(inviteId string) (*model.ChallengeInvite, error)
	GetInviteByToken(token string) (*model.ChallengeInvite, error)
	MarkStarted(inviteId string, startedAt time.Time, completeDeadline time.Time) (bool, error)
	UpdateCandidateRepo(inviteId, repoFull, repoHTMLURL, pinnedSeedSHA string) error
	MarkSubmitted(inviteId string, submittedAt time.Time, finalCommitSHA string) (bool, error)
	ListInvitesByChallengeId(challengeId string) ([]model.ChallengeInvite, error)
}

type InviteRepo struct {
	database.IDatabase
}

func NewInviteRepo(db database.IDatabase) IInviteRepository {
	return &InviteRepo{
		IDatabase: db,
	}
}

// CreateInvite creates a new invite
func (ir *InviteRepo) CreateInvite(invite *model.ChallengeInvite) error {
	if err := ir.Database().Table(invite.TableName()).Create(invite).Error; err != nil {
		return err
	}
	return nil
}

func (ir *InviteRepo) GetInviteByInviteId(inviteId string) (*model.ChallengeInvite, error) {
	var invite model.ChallengeInvite
	if err := ir.Database().Table(invite.TableName()).
		Where("invite_id = ?", inviteId).First(&invite).Error; err != nil {
		return nil, err
	}
	return &invite, nil
}

func (ir *InviteRepo) GetInviteByToken(token string) (*model.ChallengeInvite, error) {
	var invite model.ChallengeInvite
	if err := ir.Database().Table(invite.TableName()).
		Where("start_token = ?", token).First(&invite).Error; err != nil {
		return nil, err
	}
	return &invite, nil
}

// MarkStarted performs the pending → started transition as a single
// conditional update. The status guard makes concurrent starts race
// safely: exactly one caller sees a row affected and goes on to
// provision the candidate repository.
func (ir *InviteRepo) MarkStarted(inviteId string, startedAt time.Time, completeDeadline time.Time) (bool, error) {
	var invite model.ChallengeInvite
	result := ir.Database().Table(invite.TableName()).
		Where("invite_id = ? AND status = ?", inviteId, model.InviteStatusPending).
		Updates(map[string]any{
			"status":            model.InviteStatusStarted,
			"started_at":        startedAt,
			"complete_deadline": completeDeadline,
		})
	if result.Error != nil {
		return false, result.Error
	}
	return result.RowsAffected > 0, nil
}

// UpdateCandidateRepo records the provisioned repository on the invite.
func (ir *InviteRepo) UpdateCandidateRepo(inviteId, repoFull, repoHTMLURL, pinnedSeedSHA string) error {
	var invite model.ChallengeInvite
	return ir.Database().Table(invite.TableName()).
		Where("invite_id = ?", inviteId).
		Updates(map[string]any{
			"repo_full":       repoFull,
			"repo_html_url":   repoHTMLURL,
			"pinned_seed_sha": pinnedSeedSHA,
		}).Error
}

// MarkSubmitted performs the started → submitted transition with the
// same conditional-update shape as MarkStarted.
func (ir *InviteRepo) MarkSubmitted(inviteId string, submittedAt time.Time, finalCommitSHA string) (bool, error) {
	var invite model.ChallengeInvite
	result := ir.Database().Table(invite.TableName()).
		Where("invite_id = ? AND status = ?", inviteId, model.InviteStatusStarted).
		Updates(map[string]any{
			"status":           model.InviteStatusSubmitted,
			"submitted_at":     submittedAt,
			"final_commit_sha": finalCommitSHA,
		})
	if result.Error != nil {
		return false, result.Error
	}
	return result.RowsAffected > 0, nil
}

func (ir *InviteRepo) ListInvitesByChallengeId(challengeId string) ([]model.ChallengeInvite, error) {
	var invite model.ChallengeInvite
	var invites []model.ChallengeInvite
	if err := ir.Database().Table(invite.TableName()).
		Where("challenge_id = ?", challengeId).
		Order("id DESC").Find(&invites).Error; err != nil {
		return nil, err
	}
	return invites, nil
}
