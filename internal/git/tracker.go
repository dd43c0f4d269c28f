// Package git decides whether the index held by C5 is stale relative to
// a repository's working tree, and persists the last commit id the engine
// indexed successfully.
//
// It resolves HEAD and diffs commits with go-git/go-git/v5 rather than
// shelling out to the git binary, following the connector idiom in
// ferg-cod3s-conexus's internal/mcp/git_helper.go (typed errors, no
// subprocess). The sidecar file uses the atomic write-temp-then-rename
// idiom amanmcp's internal/daemon/pidfile.go uses for its own state files.
package git

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/go-git/go-git/v5"
	"github.com/go-git/go-git/v5/plumbing"
	"github.com/go-git/go-git/v5/utils/merkletrie"

	"github.com/rishitank/holocron/internal/herrors"
)

// NonGitSentinel is written to the sidecar when repoPath is not a git
// working tree, so a repeat check_freshness on the same non-git directory
// resolves to None instead of Full.
const NonGitSentinel = "non-git-indexed"

const sidecarFileName = "last-indexed-commit"

// DecisionKind tags the three shapes a FreshnessDecision can take.
type DecisionKind int

const (
	// None: the index is already current; no work is needed.
	None DecisionKind = iota
	// Full: the index must be rebuilt from scratch.
	Full
	// Incremental: only the listed paths changed since the last index.
	Incremental
)

// FreshnessDecision is check_freshness's verdict (spec §4.6).
type FreshnessDecision struct {
	Kind          DecisionKind
	CurrentCommit string // empty when unresolved (non-git tree, detached HEAD with no commits, etc.)
	Added         []string
	Modified      []string
	Deleted       []string
}

// Tracker persists the last-indexed commit id for one repo root in a
// sidecar file under persistDir.
type Tracker struct {
	persistDir string
}

// New returns a Tracker whose sidecar lives under persistDir.
func New(persistDir string) *Tracker {
	return &Tracker{persistDir: persistDir}
}

func (t *Tracker) sidecarPath() string {
	return filepath.Join(t.persistDir, sidecarFileName)
}

// CheckFreshness implements spec §4.6's five-branch decision tree.
func (t *Tracker) CheckFreshness(repoPath string) (FreshnessDecision, error) {
	repo, openErr := git.PlainOpenWithOptions(repoPath, &git.PlainOpenOptions{DetectDotGit: true})
	if openErr != nil {
		stored, readErr := t.readSidecar()
		if readErr == nil && stored == NonGitSentinel {
			return FreshnessDecision{Kind: None}, nil
		}
		if err := t.writeSidecar(NonGitSentinel); err != nil {
			return FreshnessDecision{}, err
		}
		return FreshnessDecision{Kind: Full}, nil
	}

	head, headErr := repo.Head()
	if headErr != nil {
		return FreshnessDecision{Kind: Full}, nil
	}
	currentCommit := head.Hash().String()

	stored, readErr := t.readSidecar()
	if readErr != nil || stored == "" || stored == NonGitSentinel {
		return FreshnessDecision{Kind: Full, CurrentCommit: currentCommit}, nil
	}

	if stored == currentCommit {
		return FreshnessDecision{Kind: None}, nil
	}

	added, modified, deleted, diffErr := t.diffCommits(repo, stored, currentCommit)
	if diffErr != nil {
		return FreshnessDecision{Kind: Full, CurrentCommit: currentCommit}, nil
	}

	return FreshnessDecision{
		Kind:          Incremental,
		CurrentCommit: currentCommit,
		Added:         added,
		Modified:      modified,
		Deleted:       deleted,
	}, nil
}

// diffCommits classifies every path touched between fromHash and toHash as
// added, modified, or deleted by diffing the two commits' trees.
func (t *Tracker) diffCommits(repo *git.Repository, fromHash, toHash string) (added, modified, deleted []string, err error) {
	fromCommit, err := repo.CommitObject(plumbing.NewHash(fromHash))
	if err != nil {
		return nil, nil, nil, fmt.Errorf("resolve stored commit %s: %w", fromHash, err)
	}
	toCommit, err := repo.CommitObject(plumbing.NewHash(toHash))
	if err != nil {
		return nil, nil, nil, fmt.Errorf("resolve current commit %s: %w", toHash, err)
	}

	fromTree, err := fromCommit.Tree()
	if err != nil {
		return nil, nil, nil, fmt.Errorf("resolve stored tree: %w", err)
	}
	toTree, err := toCommit.Tree()
	if err != nil {
		return nil, nil, nil, fmt.Errorf("resolve current tree: %w", err)
	}

	changes, err := fromTree.Diff(toTree)
	if err != nil {
		return nil, nil, nil, fmt.Errorf("diff trees: %w", err)
	}

	for _, change := range changes {
		action, err := change.Action()
		if err != nil {
			return nil, nil, nil, fmt.Errorf("classify change: %w", err)
		}
		switch action {
		case merkletrie.Insert:
			added = append(added, change.To.Name)
		case merkletrie.Delete:
			deleted = append(deleted, change.From.Name)
		default:
			modified = append(modified, change.To.Name)
		}
	}
	return added, modified, deleted, nil
}

// SaveLastIndexedCommit is called by pkg/holocron.Engine (and exposed to its
// callers) only after a successful re-index (spec §4.6).
func (t *Tracker) SaveLastIndexedCommit(id string) error {
	return t.writeSidecar(id)
}

// ClearLastIndexedCommit forces the next check_freshness to return Full.
func (t *Tracker) ClearLastIndexedCommit() error {
	err := os.Remove(t.sidecarPath())
	if err != nil && !os.IsNotExist(err) {
		return herrors.Wrap(herrors.CodeGitUnavailable, fmt.Errorf("clear last indexed commit: %w", err))
	}
	return nil
}

func (t *Tracker) readSidecar() (string, error) {
	data, err := os.ReadFile(t.sidecarPath())
	if os.IsNotExist(err) {
		return "", nil
	}
	if err != nil {
		return "", err
	}
	return string(data), nil
}

func (t *Tracker) writeSidecar(content string) error {
	if err := os.MkdirAll(t.persistDir, 0o755); err != nil {
		return herrors.Wrap(herrors.CodeGitUnavailable, fmt.Errorf("create persist directory: %w", err))
	}
	target := t.sidecarPath()
	tmp := target + ".tmp"
	if err := os.WriteFile(tmp, []byte(content), 0o644); err != nil {
		return herrors.Wrap(herrors.CodeGitUnavailable, fmt.Errorf("write sidecar temp file: %w", err))
	}
	if err := os.Rename(tmp, target); err != nil {
		return herrors.Wrap(herrors.CodeGitUnavailable, fmt.Errorf("rename sidecar into place: %w", err))
	}
	return nil
}
