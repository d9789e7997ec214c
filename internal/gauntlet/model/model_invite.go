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

package model

import "time"

// Invite lifecycle. Transitions only move forward: pending → started →
// submitted.
const (
	InviteStatusPending   = "pending"
	InviteStatusStarted   = "started"
	InviteStatusSubmitted = "submitted"
)

type ChallengeInvite struct {
	BaseModel
	InviteId    string `gorm:"column:invite_id;uniqueIndex" json:"inviteId"`
	ChallengeId string `gorm:"column:challenge_id;index" json:"challengeId"`
	CandidateId string `gorm:"column:candidate_id;index" json:"candidateId"`
	// StartToken is the opaque capability embedded in the candidate
	// start link.
	StartToken string `gorm:"column:start_token;uniqueIndex" json:"-"`
	Status     string `gorm:"column:status" json:"status"`
	// StartDeadline gates the first start only; once started the
	// invite stays accessible until CompleteDeadline.
	StartDeadline    time.Time  `gorm:"column:start_deadline" json:"startDeadline"`
	StartedAt        *time.Time `gorm:"column:started_at" json:"startedAt"`
	CompleteDeadline *time.Time `gorm:"column:complete_deadline" json:"completeDeadline"`
	SubmittedAt      *time.Time `gorm:"column:submitted_at" json:"submittedAt"`
	RepoFull         string     `gorm:"column:repo_full" json:"repoFull"`
	RepoHTMLURL      string     `gorm:"column:repo_html_url" json:"repoHtmlUrl"`
	// PinnedSeedSHA is the seed head at start time; the compare view
	// diffs against this commit, not the live seed head.
	PinnedSeedSHA  string `gorm:"column:pinned_seed_sha" json:"pinnedSeedSha"`
	FinalCommitSHA string `gorm:"column:final_commit_sha" json:"finalCommitSha"`
}

func (i *ChallengeInvite) TableName() string {
	return "t_challenge_invite"
}

// CreateInviteReq request for inviting a candidate
type CreateInviteReq struct {
	Email string `json:"email"`
	Name  string `json:"name"`
	// Optional overrides of the challenge defaults.
	StartWindowDays     int `json:"startWindowDays"`
	CompleteWindowHours int `json:"completeWindowHours"`
}

// CreateInviteResp response for inviting a candidate
type CreateInviteResp struct {
	ChallengeInvite
	StartURL string `json:"startUrl"`
	// EmailWarning is set when the invitation email could not be
	// delivered; the invite itself is still created.
	EmailWarning string `json:"emailWarning,omitempty"`
}

// StartView is what the candidate sees before and after starting.
type StartView struct {
	Title            string     `json:"title"`
	Instructions     string     `json:"instructions"`
	Status           string     `json:"status"`
	StartDeadline    time.Time  `json:"startDeadline"`
	CompleteDeadline *time.Time `json:"completeDeadline"`
	DefaultBranch    string     `json:"defaultBranch"`
	RepoHTMLURL      string     `json:"repoHtmlUrl,omitempty"`
}

// StartResp response for starting an assessment
type StartResp struct {
	CloneURL         string    `json:"cloneUrl"`
	RepoHTMLURL      string    `json:"repoHtmlUrl"`
	DefaultBranch    string    `json:"defaultBranch"`
	CompleteDeadline time.Time `json:"completeDeadline"`
}

// RefreshResp response for refreshing the clone credential
type RefreshResp struct {
	CloneURL string `json:"cloneUrl"`
}

// SubmitResp response for submitting an assessment
type SubmitResp struct {
	FinalCommitSHA string    `json:"finalCommitSha"`
	SubmittedAt    time.Time `json:"submittedAt"`
	// Warnings carries non-fatal post-submission failures, archival
	// in particular.
	Warnings []string `json:"warnings,omitempty"`
}

// DiffSummary is the file-path set comparison between the pinned seed
// tree and the candidate tree.
type DiffSummary struct {
	Added     []string `json:"added"`
	Removed   []string `json:"removed"`
	Unchanged int      `json:"unchanged"`
}

// InviteDetail response for admin invite detail
type InviteDetail struct {
	ChallengeInvite
	CandidateEmail string `json:"candidateEmail"`
	CandidateName  string `json:"candidateName"`
	ChallengeSlug  string `json:"challengeSlug"`
}
