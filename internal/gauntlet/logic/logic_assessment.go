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
	"sort"
	"time"

	"github.com/go-gauntlet/gauntlet/internal/gauntlet/model"
	"github.com/go-gauntlet/gauntlet/internal/pkg/github"
	"github.com/go-gauntlet/gauntlet/pkg/id"
	"github.com/go-gauntlet/gauntlet/pkg/log"
)

// AssessmentLogic drives the repository side of an assessment: seed
// preparation, candidate repository generation, clone credentials and
// archival.
type AssessmentLogic struct {
	gh  *github.Client
	now func() time.Time
}

func NewAssessmentLogic(gh *github.Client) *AssessmentLogic {
	return &AssessmentLogic{
		gh:  gh,
		now: time.Now,
	}
}

// SeedSetupResult is the aggregated outcome of seed preparation.
type SeedSetupResult struct {
	SeedRepoFull string
	HeadSHA      string
	Status       string
	Warnings     []string
}

func (r *SeedSetupResult) warnf(format string, args ...any) {
	r.Warnings = append(r.Warnings, fmt.Sprintf(format, args...))
}

// PrepareSeedRepo builds the seed repository for a challenge. Every
// step failure becomes a warning instead of an error so the challenge
// record is always created; the returned status tells the admin how
// much of the setup actually landed.
func (al *AssessmentLogic) PrepareSeedRepo(ctx context.Context, slug, seedRepoURL, defaultBranch string) *SeedSetupResult {
	runId := id.GetULID()
	result := &SeedSetupResult{Status: model.RepoSetupNotAttempted}

	if !al.gh.Configured() {
		result.warnf("repository hosting is not configured; seed repository was not created")
		log.Warnw("seed setup skipped", "run", runId, "slug", slug)
		return result
	}

	seedName := fmt.Sprintf("challenges-%s-seed", slug)
	seedFull := al.gh.Owner() + "/" + seedName
	result.SeedRepoFull = seedFull

	if err := al.gh.ValidateInstallationAccess(ctx); err != nil {
		result.warnf("installation access check failed: %v", err)
		log.Warnw("installation access check failed", "run", runId, "slug", slug, "err", err)
	}

	exists, err := al.gh.RepoExists(ctx, seedFull)
	if err != nil {
		result.warnf("could not check for existing seed repository: %v", err)
		exists = false
	}
	if !exists {
		// an empty seed starts from an auto-initialized repository so
		// the default branch exists
		autoInit := seedRepoURL == ""
		if _, err := al.gh.CreateRepo(ctx, seedName, true, "Assessment seed repository", autoInit); err != nil {
			if errors.Is(err, github.ErrConflict) {
				// created by a concurrent run or a previous attempt
				log.Infow("seed repository already exists", "run", runId, "repo", seedFull)
			} else {
				result.warnf("seed repository creation failed: %v", err)
				result.Status = model.RepoSetupIncomplete
				log.Errorw("seed repository creation failed", "run", runId, "repo", seedFull, "err", err)
				return result
			}
		}
	}

	if seedRepoURL != "" {
		if err := al.importSeed(ctx, seedFull, seedRepoURL); err != nil {
			result.warnf("seed import from %s failed: %v", seedRepoURL, err)
			log.Errorw("seed import failed", "run", runId, "repo", seedFull, "err", err)
		}
	}

	if err := al.gh.SetDefaultBranch(ctx, seedFull, defaultBranch); err != nil {
		result.warnf("could not set default branch to %s: %v", defaultBranch, err)
	}
	if err := al.gh.MarkAsTemplate(ctx, seedFull); err != nil {
		result.warnf("could not mark seed repository as template: %v", err)
	}

	sha, err := al.gh.BranchHeadSHA(ctx, seedFull, defaultBranch)
	if err != nil {
		result.warnf("could not read seed head commit: %v", err)
	} else {
		result.HeadSHA = sha
	}

	if len(result.Warnings) == 0 {
		result.Status = model.RepoSetupComplete
	} else {
		result.Status = model.RepoSetupPartial
	}
	log.Infow("seed setup finished",
		"run", runId,
		"repo", seedFull,
		"status", result.Status,
		"warnings", len(result.Warnings),
	)
	return result
}

func (al *AssessmentLogic) importSeed(ctx context.Context, seedFull, vcsURL string) error {
	if _, err := al.gh.StartImport(ctx, seedFull, vcsURL); err != nil {
		return err
	}
	maxWait, interval := al.gh.ImportWait()
	_, err := al.gh.WaitForImport(ctx, seedFull, maxWait, interval)
	return err
}

// CandidateRepoResult describes a freshly provisioned candidate
// repository together with a live clone credential.
type CandidateRepoResult struct {
	RepoFull      string
	RepoHTMLURL   string
	PinnedSeedSHA string
	CloneURL      string
}

// CreateCandidateRepo generates a private candidate repository from
// the seed template. Failure here leaves the started invite without a
// repository; the next start call retries the provisioning.
func (al *AssessmentLogic) CreateCandidateRepo(ctx context.Context, seedRepoFull, slug, defaultBranch string) (*CandidateRepoResult, error) {
	name := fmt.Sprintf("assessments-%s-candidate-%d-%s", slug, al.now().Unix(), id.ShortId())

	repository, err := al.gh.CreateFromTemplate(ctx, seedRepoFull, name, true)
	if err != nil {
		return nil, fmt.Errorf("generate candidate repository: %w", err)
	}

	result := &CandidateRepoResult{
		RepoFull:    repository.FullName,
		RepoHTMLURL: repository.HTMLURL,
	}

	// pin the seed head the candidate branched from; the compare view
	// diffs against this commit later
	if sha, err := al.gh.BranchHeadSHA(ctx, seedRepoFull, defaultBranch); err != nil {
		log.Warnw("could not pin seed head", "seed", seedRepoFull, "err", err)
	} else {
		result.PinnedSeedSHA = sha
	}

	cloneURL, err := al.IssueCloneURL(ctx, repository.FullName)
	if err != nil {
		return nil, err
	}
	result.CloneURL = cloneURL
	return result, nil
}

// IssueCloneURL mints a fresh installation token and embeds it in the
// clone URL. The credential expires with the token, not with the link.
func (al *AssessmentLogic) IssueCloneURL(ctx context.Context, repoFull string) (string, error) {
	token, err := al.gh.InstallationToken(ctx)
	if err != nil {
		return "", fmt.Errorf("mint clone credential: %w", err)
	}
	return al.gh.TokenizedCloneURL(repoFull, token.Token), nil
}

// FinalCommit reads the head of the candidate's working branch.
func (al *AssessmentLogic) FinalCommit(ctx context.Context, repoFull, branch string) (string, error) {
	return al.gh.BranchHeadSHA(ctx, repoFull, branch)
}

// ArchiveCandidateRepo archives the candidate repository after
// submission.
func (al *AssessmentLogic) ArchiveCandidateRepo(ctx context.Context, repoFull string) error {
	return al.gh.ArchiveRepo(ctx, repoFull)
}

// Compare diffs the candidate tree against the seed tree at seedSHA.
// An empty candidateSHA means the live branch head.
func (al *AssessmentLogic) Compare(ctx context.Context, seedRepoFull, seedSHA, candidateRepoFull, candidateSHA, branch string) (*model.DiffSummary, error) {
	seedPaths, err := al.gh.TreePaths(ctx, seedRepoFull, seedSHA)
	if err != nil {
		return nil, fmt.Errorf("read seed tree: %w", err)
	}
	if candidateSHA == "" {
		candidateSHA, err = al.gh.BranchHeadSHA(ctx, candidateRepoFull, branch)
		if err != nil {
			return nil, fmt.Errorf("read candidate head: %w", err)
		}
	}
	candidatePaths, err := al.gh.TreePaths(ctx, candidateRepoFull, candidateSHA)
	if err != nil {
		return nil, fmt.Errorf("read candidate tree: %w", err)
	}
	return Diff(seedPaths, candidatePaths), nil
}

// Diff computes the file-path set comparison. Pure; order of the
// inputs does not matter, outputs are sorted.
func Diff(seedPaths, candidatePaths []string) *model.DiffSummary {
	seed := make(map[string]struct{}, len(seedPaths))
	for _, p := range seedPaths {
		seed[p] = struct{}{}
	}
	candidate := make(map[string]struct{}, len(candidatePaths))
	for _, p := range candidatePaths {
		candidate[p] = struct{}{}
	}

	summary := &model.DiffSummary{Added: []string{}, Removed: []string{}}
	for p := range candidate {
		if _, ok := seed[p]; ok {
			summary.Unchanged++
		} else {
			summary.Added = append(summary.Added, p)
		}
	}
	for p := range seed {
		if _, ok := candidate[p]; !ok {
			summary.Removed = append(summary.Removed, p)
		}
	}
	sort.Strings(summary.Added)
	sort.Strings(summary.Removed)
	return summary
}
