package cmd

import (
	"github.com/spf13/cobra"

	"github.com/testforge/covagent/internal/vcs"
	"github.com/testforge/covagent/internal/workflow"
)

func newGitCmd(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "git",
		Short: "Stage, commit and publish generated tests",
		Long: `Thin wrappers over git and the GitHub CLI, operating on the project
directory (--project).`,
		Example: `  covagent git status
  covagent git add
  covagent git commit -m "Add boundary tests for Parser"
  covagent git push
  covagent git pr --title "Raise Parser coverage" --body "Adds 12 tests"`,
	}
	cmd.AddCommand(
		newGitStatusCmd(a),
		newGitAddCmd(a),
		newGitCommitCmd(a),
		newGitPushCmd(a),
		newGitPRCmd(a),
	)
	return cmd
}

func newGitStatusCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "status",
		Short: "Show staged, unstaged, untracked and conflicting files",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			res, err := a.svc.GitStatus(a.context(cmd), "")
			if err != nil {
				return err
			}
			return a.write(cmd, res, nil)
		},
	}
}

func newGitAddCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "add",
		Short: "Stage every change",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			res, err := a.svc.GitAddAll(a.context(cmd), "")
			if err != nil {
				return err
			}
			return a.write(cmd, res, nil)
		},
	}
}

func newGitCommitCmd(a *app) *cobra.Command {
	var message string

	cmd := &cobra.Command{
		Use:   "commit",
		Short: "Commit the staged changes",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			res, err := a.svc.GitCommit(a.context(cmd), "", message)
			if err != nil {
				return err
			}
			return a.write(cmd, res, nil)
		},
	}
	cmd.Flags().StringVarP(&message, "message", "m", "", "Commit message")
	_ = cmd.MarkFlagRequired("message")
	return cmd
}

func newGitPushCmd(a *app) *cobra.Command {
	var remote, branch string

	cmd := &cobra.Command{
		Use:   "push",
		Short: "Push a branch to a remote",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			res, err := a.svc.GitPush(a.context(cmd), "", remote, branch)
			if err != nil {
				return err
			}
			return a.write(cmd, res, nil)
		},
	}
	cmd.Flags().StringVar(&remote, "remote", vcs.DefaultRemote, "Remote to push to")
	cmd.Flags().StringVar(&branch, "branch", "", "Branch to push (default: current branch)")
	return cmd
}

func newGitPRCmd(a *app) *cobra.Command {
	var req workflow.PullRequestRequest

	cmd := &cobra.Command{
		Use:   "pr",
		Short: "Open a pull request with the GitHub CLI",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			res, err := a.svc.GitPullRequest(a.context(cmd), req)
			if err != nil {
				return err
			}
			return a.write(cmd, res, nil)
		},
	}
	cmd.Flags().StringVar(&req.Title, "title", "", "Pull request title")
	cmd.Flags().StringVar(&req.Body, "body", "", "Pull request body")
	cmd.Flags().StringVar(&req.Base, "base", vcs.DefaultBase, "Base branch")
	_ = cmd.MarkFlagRequired("title")
	return cmd
}
