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
	"errors"

	"gorm.io/gorm"

	"github.com/go-gauntlet/gauntlet/internal/gauntlet/model"
	"github.com/go-gauntlet/gauntlet/pkg/database"
	"github.com/go-gauntlet/gauntlet/pkg/id"
)

type ICandidateRepository interface {
	UpsertCandidate(email, name string) (*model.Candidate, error)
	GetCandidateByCandidateId(candidateId string) (*model.Candidate, error)
	GetCandidateByEmail(email string) (*model.Candidate, error)
}

type CandidateRepo struct {
	database.IDatabase
}

func NewCandidateRepo(db database.IDatabase) ICandidateRepository {
	return &CandidateRepo{
		IDatabase: db,
	}
}

// UpsertCandidate inserts a candidate keyed by email. On an existing
// row the name is filled in only when it is still empty; a known name
// is never overwritten by later invites.
func (cr *CandidateRepo) UpsertCandidate(email, name string) (*model.Candidate, error) {
	var candidate model.Candidate
	err := cr.Database().Table(candidate.TableName()).
		Where("email = ?", email).First(&candidate).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		candidate = model.Candidate{
			CandidateId: id.GetUUID(),
			Email:       email,
			Name:        name,
		}
		if err := cr.Database().Table(candidate.TableName()).Create(&candidate).Error; err != nil {
			return nil, err
		}
		return &candidate, nil
	}
	if err != nil {
		return nil, err
	}

	if candidate.Name == "" && name != "" {
		if err := cr.Database().Table(candidate.TableName()).
			Where("candidate_id = ?", candidate.CandidateId).
			Update("name", name).Error; err != nil {
			return nil, err
		}
		candidate.Name = name
	}
	return &candidate, nil
}

func (cr *CandidateRepo) GetCandidateByCandidateId(candidateId string) (*model.Candidate, error) {
	var candidate model.Candidate
	if err := cr.Database().Table(candidate.TableName()).
		Where("candidate_id = ?", candidateId).First(&candidate).Error; err != nil {
		return nil, err
	}
	return &candidate, nil
}

func (cr *CandidateRepo) GetCandidateByEmail(email string) (*model.Candidate, error) {
	var candidate model.Candidate
	if err := cr.Database().Table(candidate.TableName()).
		Where("email = ?", email).First(&candidate).Error; err != nil {
		return nil, err
	}
	return &candidate, nil
}
