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

// Seed repository preparation outcome. Preparation aggregates warnings
// instead of failing, so a challenge is usable even when some setup
// steps did not land.
const (
	RepoSetupComplete     = "complete"
	RepoSetupPartial      = "partial"
	RepoSetupIncomplete   = "incomplete"
	RepoSetupNotAttempted = "not_attempted"
)

type Challenge struct {
	BaseModel
	ChallengeId  string `gorm:"column:challenge_id;uniqueIndex" json:"challengeId"`
	Slug         string `gorm:"column:slug;uniqueIndex" json:"slug"`
	Title        string `gorm:"column:title" json:"title"`
	Instructions string `gorm:"column:instructions;type:text" json:"instructions"`
	// SeedRepoURL is the external git URL imported into the seed
	// repository; empty means the seed starts from an auto-initialized
	// empty repository.
	SeedRepoURL     string `gorm:"column:seed_repo_url" json:"seedRepoUrl"`
	SeedRepoFull    string `gorm:"column:seed_repo_full" json:"seedRepoFull"`
	SeedMainHeadSHA string `gorm:"column:seed_main_head_sha" json:"seedMainHeadSha"`
	DefaultBranch   string `gorm:"column:default_branch" json:"defaultBranch"`
	RepoSetupStatus string `gorm:"column:repo_setup_status" json:"repoSetupStatus"`
	// SetupWarnings is the newline-joined warning list from the last
	// seed preparation run.
	SetupWarnings string `gorm:"column:setup_warnings;type:text" json:"setupWarnings"`
	// Invite window defaults, overridable per invite.
	StartWindowDays     int `gorm:"column:start_window_days" json:"startWindowDays"`
	CompleteWindowHours int `gorm:"column:complete_window_hours" json:"completeWindowHours"`
}

func (c *Challenge) TableName() string {
	return "t_challenge"
}

// CreateChallengeReq request for creating a challenge
type CreateChallengeReq struct {
	Slug                string `json:"slug"`
	Title               string `json:"title"`
	Instructions        string `json:"instructions"`
	SeedRepoURL         string `json:"seedRepoUrl"`
	StartWindowDays     int    `json:"startWindowDays"`
	CompleteWindowHours int    `json:"completeWindowHours"`
}

// CreateChallengeResp response for creating a challenge
type CreateChallengeResp struct {
	Challenge
	Warnings []string `json:"warnings"`
}

// ChallengeDetail response for challenge detail
type ChallengeDetail struct {
	Challenge
	InviteCount int64 `json:"inviteCount"`
}
