package git

import (
	"errors"

	"github.com/go-git/go-git/v5"
	"github.com/go-git/go-git/v5/plumbing"
)

// ErrNoRepository is returned when path is not inside a git work tree.
var ErrNoRepository = errors.New("not a git repository")

// Head returns the commit hash HEAD points at for the repository containing
// path. Parent directories are searched for the .git directory.
func Head(path string) (string, error) {
	repo, err := git.PlainOpenWithOptions(path, &git.PlainOpenOptions{DetectDotGit: true})
	if err != nil {
		if errors.Is(err, git.ErrRepositoryNotExists) {
			return "", ErrNoRepository
		}
		return "", err
	}
	ref, err := repo.Head()
	if err != nil {
		if errors.Is(err, plumbing.ErrReferenceNotFound) {
			// Fresh repository without commits.
			return "", nil
		}
		return "", err
	}
	return ref.Hash().String(), nil
}

// Revision is Head without the error, for callers that only annotate.
func Revision(path string) string {
	h, err := Head(path)
	if err != nil {
		return ""
	}
	return h
}
