// Package vcs wraps the git and gh command lines for staging, committing,
// pushing and opening pull requests.
package vcs

import (
	"context"
	"fmt"
	"log/slog"
	"regexp"
	"strings"

	"github.com/testforge/covagent/internal/runner"
)

// MaxListedFiles caps how many staged files AddAll lists.
const MaxListedFiles = 30

// DefaultRemote and DefaultBase are used when the caller leaves them empty.
const (
	DefaultRemote = "origin"
	DefaultBase   = "main"
)

// CommandError is returned when git or gh exits non-zero.
type CommandError struct {
	Command  string
	ExitCode int
	Stderr   string
}

// Error implements the error interface.
func (e *CommandError) Error() string {
	msg := strings.TrimSpace(e.Stderr)
	if msg == "" {
		msg = fmt.Sprintf("exit status %d", e.ExitCode)
	}
	return fmt.Sprintf("%s: %s", e.Command, msg)
}

// Git runs git commands in a repository directory.
type Git struct {
	Exec runner.Executor
}

// New returns a Git using ex, or the OS executor when ex is nil.
func New(ex runner.Executor) *Git {
	if ex == nil {
		ex = runner.OSExecutor{}
	}
	return &Git{Exec: ex}
}

func (g *Git) run(ctx context.Context, dir, name string, args ...string) (string, error) {
	res, err := g.Exec.Run(ctx, dir, name, args...)
	if err != nil {
		return "", err
	}
	if res.ExitCode != 0 {
		return "", &CommandError{Command: name + " " + strings.Join(args, " "), ExitCode: res.ExitCode, Stderr: res.Stderr}
	}
	return res.Stdout, nil
}

// FileStatus is one line of `git status --porcelain`.
type FileStatus struct {
	Code string `json:"code" yaml:"code"`
	Path string `json:"path" yaml:"path"`
}

func (f FileStatus) String() string {
	return f.Code + " " + f.Path
}

// Status groups porcelain entries. An entry may appear in both Staged and
// Unstaged when it has changes in the index and the worktree.
type Status struct {
	Staged    []FileStatus `json:"staged" yaml:"staged"`
	Unstaged  []FileStatus `json:"unstaged" yaml:"unstaged"`
	Untracked []FileStatus `json:"untracked" yaml:"untracked"`
	Conflicts []FileStatus `json:"conflicts" yaml:"conflicts"`
}

// Clean reports whether the working tree has no changes.
func (s *Status) Clean() bool {
	return len(s.Staged)+len(s.Unstaged)+len(s.Untracked)+len(s.Conflicts) == 0
}

// ParseStatus categorizes porcelain v1 output.
func ParseStatus(out string) *Status {
	s := &Status{Staged: []FileStatus{}, Unstaged: []FileStatus{}, Untracked: []FileStatus{}, Conflicts: []FileStatus{}}
	for _, line := range strings.Split(out, "\n") {
		line = strings.TrimRight(line, "\r")
		if len(line) < 3 {
			continue
		}
		fs := FileStatus{Code: line[:2], Path: strings.TrimSpace(line[3:])}
		x, y := line[0], line[1]
		switch {
		case fs.Code == "??":
			s.Untracked = append(s.Untracked, fs)
			continue
		case fs.Code == "UU":
			s.Conflicts = append(s.Conflicts, fs)
			continue
		}
		if strings.IndexByte("AMDR", x) >= 0 {
			s.Staged = append(s.Staged, fs)
		}
		if y == 'M' || y == 'D' {
			s.Unstaged = append(s.Unstaged, fs)
		}
	}
	return s
}

// Status returns the categorized working tree status.
func (g *Git) Status(ctx context.Context, repo string) (*Status, error) {
	out, err := g.run(ctx, repo, "git", "status", "--porcelain")
	if err != nil {
		return nil, err
	}
	return ParseStatus(out), nil
}

// AddResult lists what AddAll staged.
type AddResult struct {
	Count int          `json:"count" yaml:"count"`
	Files []FileStatus `json:"files" yaml:"files"`
	More  int          `json:"more,omitempty" yaml:"more,omitempty"`
}

// AddAll stages every change with `git add -A` and lists the staged
// files, at most MaxListedFiles of them.
func (g *Git) AddAll(ctx context.Context, repo string) (*AddResult, error) {
	if _, err := g.run(ctx, repo, "git", "add", "-A"); err != nil {
		return nil, err
	}
	st, err := g.Status(ctx, repo)
	if err != nil {
		return nil, err
	}
	res := &AddResult{Count: len(st.Staged), Files: st.Staged}
	if len(res.Files) > MaxListedFiles {
		res.More = len(res.Files) - MaxListedFiles
		res.Files = res.Files[:MaxListedFiles]
	}
	slog.Info("staged changes", "repo", repo, "files", res.Count)
	return res, nil
}

// CommitResult is the outcome of Commit.
type CommitResult struct {
	Branch string `json:"branch,omitempty" yaml:"branch,omitempty"`
	Hash   string `json:"hash,omitempty" yaml:"hash,omitempty"`
	Output string `json:"output" yaml:"output"`
}

var commitHeader = regexp.MustCompile(`^\[([^\s\]]+)(?: \(root-commit\))? ([0-9a-f]{4,40})\]`)

// Commit records the staged changes with message.
func (g *Git) Commit(ctx context.Context, repo, message string) (*CommitResult, error) {
	if strings.TrimSpace(message) == "" {
		return nil, fmt.Errorf("commit message is required")
	}
	out, err := g.run(ctx, repo, "git", "commit", "-m", message)
	if err != nil {
		return nil, err
	}
	res := &CommitResult{Output: strings.TrimSpace(out)}
	if m := commitHeader.FindStringSubmatch(res.Output); m != nil {
		res.Branch, res.Hash = m[1], m[2]
	}
	return res, nil
}

// CurrentBranch returns the checked out branch name.
func (g *Git) CurrentBranch(ctx context.Context, repo string) (string, error) {
	out, err := g.run(ctx, repo, "git", "rev-parse", "--abbrev-ref", "HEAD")
	if err != nil {
		return "", err
	}
	return strings.TrimSpace(out), nil
}

// PushResult is the outcome of Push.
type PushResult struct {
	Remote string `json:"remote" yaml:"remote"`
	Branch string `json:"branch" yaml:"branch"`
	Output string `json:"output,omitempty" yaml:"output,omitempty"`
}

// Push pushes branch, or the current branch when empty, to remote.
func (g *Git) Push(ctx context.Context, repo, remote, branch string) (*PushResult, error) {
	if remote == "" {
		remote = DefaultRemote
	}
	if branch == "" {
		b, err := g.CurrentBranch(ctx, repo)
		if err != nil {
			return nil, err
		}
		branch = b
	}
	res, err := g.Exec.Run(ctx, repo, "git", "push", remote, branch)
	if err != nil {
		return nil, err
	}
	if res.ExitCode != 0 {
		return nil, &CommandError{Command: "git push " + remote + " " + branch, ExitCode: res.ExitCode, Stderr: res.Stderr}
	}
	// git reports push progress on stderr.
	output := res.Stdout
	if strings.TrimSpace(output) == "" {
		output = res.Stderr
	}
	return &PushResult{Remote: remote, Branch: branch, Output: strings.TrimSpace(output)}, nil
}

// PullRequestResult is the outcome of PullRequest.
type PullRequestResult struct {
	URL    string `json:"url,omitempty" yaml:"url,omitempty"`
	Output string `json:"output" yaml:"output"`
}

// PullRequest opens a pull request with the GitHub CLI.
// Returns a *runner.ToolNotFoundError when gh is not installed.
func (g *Git) PullRequest(ctx context.Context, repo, title, body, base string) (*PullRequestResult, error) {
	if strings.TrimSpace(title) == "" {
		return nil, fmt.Errorf("pull request title is required")
	}
	if base == "" {
		base = DefaultBase
	}
	if _, err := g.Exec.LookPath("gh"); err != nil {
		return nil, err
	}
	out, err := g.run(ctx, repo, "gh", "pr", "create", "--base", base, "--title", title, "--body", body)
	if err != nil {
		return nil, err
	}
	res := &PullRequestResult{Output: strings.TrimSpace(out)}
	for _, line := range strings.Split(res.Output, "\n") {
		if strings.HasPrefix(line, "https://") {
			res.URL = strings.TrimSpace(line)
		}
	}
	return res, nil
}
