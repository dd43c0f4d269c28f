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

var testSig = &object.Signature{Name: "tester", Email: "tester@example.com", When: time.Unix(1700000000, 0)}

func initRepo(t *testing.T) (repoPath string, wt *git.Worktree) {
	t.Helper()
	repoPath = t.TempDir()
	repo, err := git.PlainInit(repoPath, false)
	require.NoError(t, err)
	wt, err = repo.Worktree()
	require.NoError(t, err)
	return repoPath, wt
}

func commitFile(t *testing.T, repoPath string, wt *git.Worktree, name, content string) string {
	t.Helper()
	require.NoError(t, os.WriteFile(filepath.Join(repoPath, name), []byte(content), 0o644))
	_, err := wt.Add(name)
	require.NoError(t, err)
	hash, err := wt.Commit("commit "+name, &git.CommitOptions{Author: testSig})
	require.NoError(t, err)
	return hash.String()
}

func TestCheckFreshness_NonGitDirectory_ReturnsFullThenNoneOnRepeat(t *testing.T) {
	notARepo := t.TempDir()
	tracker := New(t.TempDir())

	decision, err := tracker.CheckFreshness(notARepo)
	require.NoError(t, err)
	assert.Equal(t, Full, decision.Kind)

	decision, err = tracker.CheckFreshness(notARepo)
	require.NoError(t, err)
	assert.Equal(t, None, decision.Kind)
}

func TestCheckFreshness_FreshRepoNoSidecar_ReturnsFullWithCommit(t *testing.T) {
	repoPath, wt := initRepo(t)
	commit := commitFile(t, repoPath, wt, "a.go", "package a\n")

	tracker := New(t.TempDir())
	decision, err := tracker.CheckFreshness(repoPath)
	require.NoError(t, err)
	assert.Equal(t, Full, decision.Kind)
	assert.Equal(t, commit, decision.CurrentCommit)
}

func TestCheckFreshness_SidecarMatchesHead_ReturnsNone(t *testing.T) {
	repoPath, wt := initRepo(t)
	commit := commitFile(t, repoPath, wt, "a.go", "package a\n")

	tracker := New(t.TempDir())
	require.NoError(t, tracker.SaveLastIndexedCommit(commit))

	decision, err := tracker.CheckFreshness(repoPath)
	require.NoError(t, err)
	assert.Equal(t, None, decision.Kind)
}

func TestCheckFreshness_SidecarStale_ReturnsIncrementalWithClassifiedPaths(t *testing.T) {
	repoPath, wt := initRepo(t)
	first := commitFile(t, repoPath, wt, "a.go", "package a\n")

	tracker := New(t.TempDir())
	require.NoError(t, tracker.SaveLastIndexedCommit(first))

	// a.go modified, b.go added.
	require.NoError(t, os.WriteFile(filepath.Join(repoPath, "a.go"), []byte("package a\n\nfunc A() {}\n"), 0o644))
	_, err := wt.Add("a.go")
	require.NoError(t, err)
	commitFile(t, repoPath, wt, "b.go", "package b\n")

	decision, err := tracker.CheckFreshness(repoPath)
	require.NoError(t, err)
	require.Equal(t, Incremental, decision.Kind)
	assert.Contains(t, decision.Added, "b.go")
	assert.Contains(t, decision.Modified, "a.go")
	assert.Empty(t, decision.Deleted)
}

func TestCheckFreshness_DeletedFileIsClassified(t *testing.T) {
	repoPath, wt := initRepo(t)
	commitFile(t, repoPath, wt, "a.go", "package a\n")
	second := commitFile(t, repoPath, wt, "b.go", "package b\n")

	tracker := New(t.TempDir())
	require.NoError(t, tracker.SaveLastIndexedCommit(second))

	require.NoError(t, os.Remove(filepath.Join(repoPath, "b.go")))
	_, err := wt.Add("b.go")
	require.NoError(t, err)
	_, err = wt.Commit("remove b.go", &git.CommitOptions{Author: testSig})
	require.NoError(t, err)

	decision, err := tracker.CheckFreshness(repoPath)
	require.NoError(t, err)
	require.Equal(t, Incremental, decision.Kind)
	assert.Contains(t, decision.Deleted, "b.go")
}

func TestCheckFreshness_UnresolvableStoredCommitFallsBackToFull(t *testing.T) {
	repoPath, wt := initRepo(t)
	commitFile(t, repoPath, wt, "a.go", "package a\n")

	tracker := New(t.TempDir())
	require.NoError(t, tracker.SaveLastIndexedCommit("0000000000000000000000000000000000000000"))

	decision, err := tracker.CheckFreshness(repoPath)
	require.NoError(t, err)
	assert.Equal(t, Full, decision.Kind)
}

func TestClearLastIndexedCommit_ForcesFullOnNextCheck(t *testing.T) {
	repoPath, wt := initRepo(t)
	commit := commitFile(t, repoPath, wt, "a.go", "package a\n")

	tracker := New(t.TempDir())
	require.NoError(t, tracker.SaveLastIndexedCommit(commit))
	require.NoError(t, tracker.ClearLastIndexedCommit())

	decision, err := tracker.CheckFreshness(repoPath)
	require.NoError(t, err)
	assert.Equal(t, Full, decision.Kind)
}

func TestClearLastIndexedCommit_NoSidecarIsNoop(t *testing.T) {
	tracker := New(t.TempDir())
	require.NoError(t, tracker.ClearLastIndexedCommit())
}
