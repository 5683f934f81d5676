package workflow

import (
	"context"

	"github.com/testforge/covagent/internal/vcs"
)

// GitStatus reports staged, unstaged, untracked and conflicted files.
func (s *Service) GitStatus(ctx context.Context, repoPath string) (*vcs.Status, error) {
	repo, err := s.Project(repoPath)
	if err != nil {
		return nil, err
	}
	return s.git.Status(ctx, repo)
}

// GitAddAll stages every change.
func (s *Service) GitAddAll(ctx context.Context, repoPath string) (*vcs.AddResult, error) {
	repo, err := s.Project(repoPath)
	if err != nil {
		return nil, err
	}
	return s.git.AddAll(ctx, repo)
}

// GitCommit commits the staged changes.
func (s *Service) GitCommit(ctx context.Context, repoPath, message string) (*vcs.CommitResult, error) {
	if err := required("message", message); err != nil {
		return nil, err
	}
	repo, err := s.Project(repoPath)
	if err != nil {
		return nil, err
	}
	return s.git.Commit(ctx, repo, message)
}

// GitPush pushes a branch, the current one when branch is empty.
func (s *Service) GitPush(ctx context.Context, repoPath, remote, branch string) (*vcs.PushResult, error) {
	repo, err := s.Project(repoPath)
	if err != nil {
		return nil, err
	}
	return s.git.Push(ctx, repo, remote, branch)
}

// PullRequestRequest describes a pull request to open with gh.
type PullRequestRequest struct {
	RepoPath string
	Title    string
	Body     string
	Base     string
}

// GitPullRequest opens a pull request for the current branch.
func (s *Service) GitPullRequest(ctx context.Context, req PullRequestRequest) (*vcs.PullRequestResult, error) {
	if err := required("title", req.Title); err != nil {
		return nil, err
	}
	repo, err := s.Project(req.RepoPath)
	if err != nil {
		return nil, err
	}
	return s.git.PullRequest(ctx, repo, req.Title, req.Body, req.Base)
}
