// Package gitrepo publishes leaderboard files by committing them to a local
// git worktree and pushing the branch to its remote.
package gitrepo

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	git "github.com/go-git/go-git/v5"
	gitconfig "github.com/go-git/go-git/v5/config"
	"github.com/go-git/go-git/v5/plumbing"
	"github.com/go-git/go-git/v5/plumbing/object"
	"github.com/go-git/go-git/v5/plumbing/transport"
	githttp "github.com/go-git/go-git/v5/plumbing/transport/http"

	"github.com/mkallio/inviteboard/internal/leaderboard/publish"
	apperrors "github.com/mkallio/inviteboard/internal/platform/errors"
)

// Options configure a Publisher.
type Options struct {
	// RepoPath is the root of the local clone holding the published files.
	RepoPath string
	// Branch is pushed to the remote of the same name.
	Branch string
	// Remote defaults to origin.
	Remote string
	// Token authenticates HTTPS pushes. It is passed to the transport and
	// never written to logs or errors.
	Token       string
	AuthorName  string
	AuthorEmail string
	Clock       func() time.Time
}

// Publisher commits and pushes through a local git repository. The
// repository is reopened on every call so config changes and crashed runs
// are picked up from disk.
type Publisher struct {
	opts Options
}

var _ publish.Publisher = (*Publisher)(nil)

// New validates the options and verifies the repository opens.
func New(opts Options) (*Publisher, error) {
	opts.RepoPath = strings.TrimSpace(opts.RepoPath)
	if opts.RepoPath == "" {
		return nil, errors.New("gitrepo: repo path is required")
	}
	opts.Branch = strings.TrimSpace(opts.Branch)
	if opts.Branch == "" {
		return nil, errors.New("gitrepo: branch is required")
	}
	if opts.Remote == "" {
		opts.Remote = "origin"
	}
	if opts.AuthorName == "" {
		opts.AuthorName = "Invite Leaderboard Bot"
	}
	if opts.AuthorEmail == "" {
		opts.AuthorEmail = "inviteboard@localhost"
	}
	if opts.Clock == nil {
		opts.Clock = time.Now
	}
	if _, err := git.PlainOpen(opts.RepoPath); err != nil {
		return nil, fmt.Errorf("open git repository %s: %w", opts.RepoPath, err)
	}
	return &Publisher{opts: opts}, nil
}

// Publish stages the requested paths, commits them when the index changed
// and pushes the branch. A clean index skips the commit, and a remote that
// is already up to date skips the push, so repeating a request after a
// partial failure converges instead of duplicating commits.
func (p *Publisher) Publish(ctx context.Context, req publish.Request) (publish.Result, error) {
	if err := ctx.Err(); err != nil {
		return publish.Result{}, err
	}
	repo, err := git.PlainOpen(p.opts.RepoPath)
	if err != nil {
		return publish.Result{}, apperrors.Wrap(apperrors.CodePublishFailed, "open git repository", err)
	}
	wt, err := repo.Worktree()
	if err != nil {
		return publish.Result{}, apperrors.Wrap(apperrors.CodePublishFailed, "open worktree", err)
	}
	for _, path := range req.Paths {
		if _, err := wt.Add(path); err != nil {
			return publish.Result{}, apperrors.Wrap(apperrors.CodePublishFailed, fmt.Sprintf("stage %s", path), err)
		}
	}
	status, err := wt.Status()
	if err != nil {
		return publish.Result{}, apperrors.Wrap(apperrors.CodePublishFailed, "read worktree status", err)
	}

	var result publish.Result
	if hasStagedChanges(status) {
		message := strings.TrimSpace(req.Message)
		if message == "" {
			message = "Update leaderboard"
		}
		hash, err := wt.Commit(message, &git.CommitOptions{Author: p.signature()})
		if err != nil {
			return publish.Result{}, apperrors.Wrap(apperrors.CodePublishFailed, "create commit", err)
		}
		result.Committed = true
		result.CommitHash = hash.String()
	}

	if err := p.push(ctx, repo); err != nil {
		return publish.Result{}, err
	}
	return result, nil
}

// Pending reports whether the published files are ahead of the remote:
// staged or modified tracked files, or commits the remote does not have.
// Untracked files are ignored because the repository may carry unrelated
// content that is never published.
func (p *Publisher) Pending(ctx context.Context) (bool, error) {
	if err := ctx.Err(); err != nil {
		return false, err
	}
	repo, err := git.PlainOpen(p.opts.RepoPath)
	if err != nil {
		return false, apperrors.Wrap(apperrors.CodePublishFailed, "open git repository", err)
	}
	wt, err := repo.Worktree()
	if err != nil {
		return false, apperrors.Wrap(apperrors.CodePublishFailed, "open worktree", err)
	}
	status, err := wt.Status()
	if err != nil {
		return false, apperrors.Wrap(apperrors.CodePublishFailed, "read worktree status", err)
	}
	for _, fileStatus := range status {
		if fileStatus.Staging == git.Untracked {
			continue
		}
		if fileStatus.Staging != git.Unmodified || fileStatus.Worktree != git.Unmodified {
			return true, nil
		}
	}

	local, err := repo.Reference(plumbing.NewBranchReferenceName(p.opts.Branch), true)
	if errors.Is(err, plumbing.ErrReferenceNotFound) {
		// Nothing committed yet, so nothing to push.
		return false, nil
	}
	if err != nil {
		return false, apperrors.Wrap(apperrors.CodePublishFailed, "resolve local branch", err)
	}
	remoteRef, err := repo.Reference(plumbing.NewRemoteReferenceName(p.opts.Remote, p.opts.Branch), true)
	if errors.Is(err, plumbing.ErrReferenceNotFound) {
		return true, nil
	}
	if err != nil {
		return false, apperrors.Wrap(apperrors.CodePublishFailed, "resolve remote branch", err)
	}
	return local.Hash() != remoteRef.Hash(), nil
}

func (p *Publisher) push(ctx context.Context, repo *git.Repository) error {
	refSpec := gitconfig.RefSpec(fmt.Sprintf("refs/heads/%s:refs/heads/%s", p.opts.Branch, p.opts.Branch))
	err := repo.PushContext(ctx, &git.PushOptions{
		RemoteName: p.opts.Remote,
		RefSpecs:   []gitconfig.RefSpec{refSpec},
		Auth:       p.auth(),
	})
	if err != nil && !errors.Is(err, git.NoErrAlreadyUpToDate) {
		return apperrors.Wrap(apperrors.CodePublishFailed, "push to remote", err)
	}
	return nil
}

func (p *Publisher) auth() transport.AuthMethod {
	if p.opts.Token == "" {
		return nil
	}
	return &githttp.BasicAuth{Username: "x-access-token", Password: p.opts.Token}
}

func (p *Publisher) signature() *object.Signature {
	return &object.Signature{
		Name:  p.opts.AuthorName,
		Email: p.opts.AuthorEmail,
		When:  p.opts.Clock().UTC(),
	}
}

func hasStagedChanges(status git.Status) bool {
	for _, fileStatus := range status {
		if fileStatus.Staging == git.Unmodified || fileStatus.Staging == git.Untracked {
			continue
		}
		return true
	}
	return false
}
