package git

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/go-git/go-git/v5"
	"github.com/go-git/go-git/v5/plumbing/object"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestHead_ResolvesFromSubdirectory(t *testing.T) {
	root := t.TempDir()
	repo, err := git.PlainInit(root, false)
	require.NoError(t, err)

	require.NoError(t, os.WriteFile(filepath.Join(root, "main.c"), []byte("int main(){}"), 0o600))
	wt, err := repo.Worktree()
	require.NoError(t, err)
	_, err = wt.Add("main.c")
	require.NoError(t, err)
	hash, err := wt.Commit("init", &git.CommitOptions{Author: &object.Signature{Name: "tester", Email: "t@example.com", When: time.Now()}})
	require.NoError(t, err)

	sub := filepath.Join(root, ".ddd", "run")
	require.NoError(t, os.MkdirAll(sub, 0o755))

	got, err := Head(sub)
	require.NoError(t, err)
	assert.Equal(t, hash.String(), got)
	assert.Equal(t, hash.String(), Revision(root))
}

func TestHead_EmptyRepository(t *testing.T) {
	root := t.TempDir()
	_, err := git.PlainInit(root, false)
	require.NoError(t, err)

	got, err := Head(root)
	require.NoError(t, err)
	assert.Empty(t, got)
}

func TestHead_NotARepository(t *testing.T) {
	_, err := Head(t.TempDir())
	assert.ErrorIs(t, err, ErrNoRepository)
	assert.Empty(t, Revision(t.TempDir()))
}
