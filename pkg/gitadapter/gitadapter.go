// Package gitadapter implements gitport.Adapter on top of go-git, a pure-Go
// git implementation, so the Fix Orchestrator can create branches, apply
// edits, and commit without shelling out to the git binary.
package gitadapter

import (
	"errors"
	"os"
	"path/filepath"
	"time"

	"github.com/go-git/go-git/v5"
	"github.com/go-git/go-git/v5/config"
	"github.com/go-git/go-git/v5/plumbing"
	"github.com/go-git/go-git/v5/plumbing/object"

	"github.com/turbowrap/turbowrap/pkg/ferrors"
)

// Adapter wraps a go-git repository rooted at a working tree.
type Adapter struct {
	repo       *git.Repository
	workDir    string
	authorName string
	authorMail string
}

// New opens the git repository at repoPath (must already be a working
// clone) and returns an Adapter over it.
func New(repoPath, authorName, authorMail string) (*Adapter, error) {
	repo, err := git.PlainOpen(repoPath)
	if err != nil {
		return nil, ferrors.New(ferrors.KindGitUnavailable, repoPath, err)
	}
	return &Adapter{repo: repo, workDir: repoPath, authorName: authorName, authorMail: authorMail}, nil
}

func (a *Adapter) CreateOrCheckoutBranch(name string) error {
	wt, err := a.repo.Worktree()
	if err != nil {
		return ferrors.New(ferrors.KindGitUnavailable, name, err)
	}

	ref := plumbing.NewBranchReferenceName(name)

	if _, err := a.repo.Reference(ref, false); err == nil {
		// Branch-exists is recovered: switch to it instead.
		if err := wt.Checkout(&git.CheckoutOptions{Branch: ref, Create: false}); err != nil {
			return ferrors.New(ferrors.KindGitConflict, name, err)
		}
		return nil
	}

	if err := wt.Checkout(&git.CheckoutOptions{Branch: ref, Create: true}); err != nil {
		return ferrors.New(ferrors.KindGitUnavailable, name, err)
	}
	return nil
}

func (a *Adapter) ApplyEdits(files map[string]string) error {
	wt, err := a.repo.Worktree()
	if err != nil {
		return ferrors.New(ferrors.KindGitUnavailable, "", err)
	}

	for rel, content := range files {
		abs := filepath.Join(a.workDir, rel)
		if err := os.MkdirAll(filepath.Dir(abs), 0o755); err != nil {
			return ferrors.New(ferrors.KindGitUnavailable, rel, err)
		}
		if err := os.WriteFile(abs, []byte(content), 0o644); err != nil {
			return ferrors.New(ferrors.KindGitUnavailable, rel, err)
		}
		if _, err := wt.Add(rel); err != nil {
			return ferrors.New(ferrors.KindGitUnavailable, rel, err)
		}
	}
	return nil
}

func (a *Adapter) CommitAll(message string) (string, error) {
	wt, err := a.repo.Worktree()
	if err != nil {
		return "", ferrors.New(ferrors.KindGitUnavailable, "", err)
	}

	if _, err := wt.Add("."); err != nil {
		return "", ferrors.New(ferrors.KindGitUnavailable, "", err)
	}

	hash, err := wt.Commit(message, &git.CommitOptions{
		Author: &object.Signature{
			Name:  a.authorName,
			Email: a.authorMail,
			When:  time.Now(),
		},
	})
	if err != nil {
		return "", ferrors.New(ferrors.KindGitConflict, "", err)
	}
	return hash.String(), nil
}

func (a *Adapter) Revert() error {
	wt, err := a.repo.Worktree()
	if err != nil {
		return ferrors.New(ferrors.KindGitUnavailable, "", err)
	}

	head, err := a.repo.Head()
	if err != nil {
		return ferrors.New(ferrors.KindGitUnavailable, "", err)
	}

	if err := wt.Reset(&git.ResetOptions{Commit: head.Hash(), Mode: git.HardReset}); err != nil {
		return ferrors.New(ferrors.KindGitUnavailable, "", err)
	}
	if err := wt.Clean(&git.CleanOptions{Dir: true}); err != nil {
		return ferrors.New(ferrors.KindGitUnavailable, "", err)
	}
	return nil
}

func (a *Adapter) Push(branch string) error {
	refSpec := config.RefSpec("refs/heads/" + branch + ":refs/heads/" + branch)
	err := a.repo.Push(&git.PushOptions{
		RefSpecs: []config.RefSpec{refSpec},
	})
	if err != nil {
		if errors.Is(err, git.NoErrAlreadyUpToDate) {
			return nil
		}
		return ferrors.New(ferrors.KindGitUnavailable, branch, err)
	}
	return nil
}

func (a *Adapter) CurrentBranch() (string, error) {
	head, err := a.repo.Head()
	if err != nil {
		return "", ferrors.New(ferrors.KindGitUnavailable, "", err)
	}
	return head.Name().Short(), nil
}

func (a *Adapter) ListBranches() ([]string, error) {
	iter, err := a.repo.Branches()
	if err != nil {
		return nil, ferrors.New(ferrors.KindGitUnavailable, "", err)
	}

	var names []string
	err = iter.ForEach(func(ref *plumbing.Reference) error {
		names = append(names, ref.Name().Short())
		return nil
	})
	if err != nil {
		return nil, ferrors.New(ferrors.KindGitUnavailable, "", err)
	}
	return names, nil
}
