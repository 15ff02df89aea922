package storage

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	git "github.com/go-git/go-git/v5"
	"github.com/go-git/go-git/v5/plumbing"
	"github.com/go-git/go-git/v5/plumbing/object"

	"pagebuilder/internal/domain"
)

const pageFile = "page.json"

// Version is one published snapshot of a page.
type Version struct {
	Hash      string    `json:"hash"`
	Message   string    `json:"message"`
	Author    string    `json:"author"`
	CreatedAt time.Time `json:"createdAt"`
}

// VersionStore publishes page snapshots as commits in a git repository per
// page, under baseDir/<page id>.
type VersionStore struct {
	baseDir string
	lockMu  sync.Mutex
	locks   map[string]*sync.Mutex
}

func NewVersionStore(baseDir string) *VersionStore {
	return &VersionStore{
		baseDir: baseDir,
		locks:   make(map[string]*sync.Mutex),
	}
}

// Commit writes p to the page repository and commits it on main. Publishing
// an unchanged page still creates a version.
func (s *VersionStore) Commit(p *domain.PageSchema, message string) (string, error) {
	path, err := s.repoPath(p.ID)
	if err != nil {
		return "", err
	}
	lock := s.pageLock(p.ID)
	lock.Lock()
	defer lock.Unlock()

	repo, err := openOrInit(path)
	if err != nil {
		return "", err
	}
	worktree, err := repo.Worktree()
	if err != nil {
		return "", fmt.Errorf("open worktree: %w", err)
	}

	payload, err := json.MarshalIndent(p, "", "  ")
	if err != nil {
		return "", fmt.Errorf("marshal page: %w", err)
	}
	if err := os.WriteFile(filepath.Join(path, pageFile), append(payload, '\n'), 0o644); err != nil {
		return "", fmt.Errorf("write %s: %w", pageFile, err)
	}
	if _, err := worktree.Add(pageFile); err != nil {
		return "", fmt.Errorf("git add page: %w", err)
	}

	author := p.Metadata.Author
	if author == "" {
		author = "pagebuilder"
	}
	hash, err := worktree.Commit(message, &git.CommitOptions{
		AllowEmptyCommits: true,
		Author: &object.Signature{
			Name:  author,
			Email: fmt.Sprintf("%s@pagebuilder.local", sanitizeEmail(author)),
			When:  time.Now(),
		},
	})
	if err != nil {
		return "", fmt.Errorf("commit page: %w", err)
	}
	return hash.String(), nil
}

// List returns up to limit versions of pageID, newest first. A page that
// was never published has no versions.
func (s *VersionStore) List(pageID string, limit int) ([]Version, error) {
	path, err := s.repoPath(pageID)
	if err != nil {
		return nil, err
	}
	lock := s.pageLock(pageID)
	lock.Lock()
	defer lock.Unlock()

	repo, err := git.PlainOpen(path)
	if errors.Is(err, git.ErrRepositoryNotExists) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("open repo: %w", err)
	}
	ref, err := repo.Reference(plumbing.NewBranchReferenceName("main"), true)
	if err != nil {
		return nil, fmt.Errorf("resolve main: %w", err)
	}
	iter, err := repo.Log(&git.LogOptions{From: ref.Hash()})
	if err != nil {
		return nil, fmt.Errorf("read log: %w", err)
	}
	defer iter.Close()

	var out []Version
	err = iter.ForEach(func(c *object.Commit) error {
		out = append(out, Version{
			Hash:      c.Hash.String(),
			Message:   strings.TrimSpace(c.Message),
			Author:    c.Author.Name,
			CreatedAt: c.Author.When,
		})
		if limit > 0 && len(out) >= limit {
			return io.EOF
		}
		return nil
	})
	if err != nil && !errors.Is(err, io.EOF) {
		return nil, fmt.Errorf("iterate log: %w", err)
	}
	return out, nil
}

// Read returns the page as published in version hash. Abbreviated hashes
// are resolved.
func (s *VersionStore) Read(pageID, hash string) (*domain.PageSchema, error) {
	path, err := s.repoPath(pageID)
	if err != nil {
		return nil, err
	}
	lock := s.pageLock(pageID)
	lock.Lock()
	defer lock.Unlock()

	repo, err := git.PlainOpen(path)
	if err != nil {
		return nil, fmt.Errorf("open repo: %w", err)
	}
	h, err := repo.ResolveRevision(plumbing.Revision(hash))
	if err != nil {
		return nil, fmt.Errorf("resolve version %s: %w", hash, err)
	}
	c, err := repo.CommitObject(*h)
	if err != nil {
		return nil, fmt.Errorf("read commit %s: %w", hash, err)
	}
	file, err := c.File(pageFile)
	if err != nil {
		return nil, fmt.Errorf("load %s from commit: %w", pageFile, err)
	}
	content, err := file.Contents()
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", pageFile, err)
	}
	return DecodePage([]byte(content))
}

func (s *VersionStore) repoPath(pageID string) (string, error) {
	if pageID == "" || pageID != filepath.Base(pageID) || strings.HasPrefix(pageID, ".") {
		return "", fmt.Errorf("invalid page id %q", pageID)
	}
	return filepath.Join(s.baseDir, pageID), nil
}

func (s *VersionStore) pageLock(pageID string) *sync.Mutex {
	s.lockMu.Lock()
	defer s.lockMu.Unlock()
	lock, ok := s.locks[pageID]
	if !ok {
		lock = &sync.Mutex{}
		s.locks[pageID] = lock
	}
	return lock
}

// openOrInit opens the repository at path, creating it with HEAD on main
// when it does not exist yet.
func openOrInit(path string) (*git.Repository, error) {
	repo, err := git.PlainOpen(path)
	if err == nil {
		return repo, nil
	}
	if !errors.Is(err, git.ErrRepositoryNotExists) {
		return nil, fmt.Errorf("open repo: %w", err)
	}
	if err := os.MkdirAll(path, 0o755); err != nil {
		return nil, fmt.Errorf("create repo dir: %w", err)
	}
	repo, err = git.PlainInit(path, false)
	if err != nil {
		return nil, fmt.Errorf("init repo: %w", err)
	}
	head := plumbing.NewSymbolicReference(plumbing.HEAD, plumbing.NewBranchReferenceName("main"))
	if err := repo.Storer.SetReference(head); err != nil {
		return nil, fmt.Errorf("set HEAD to main: %w", err)
	}
	return repo, nil
}

func sanitizeEmail(name string) string {
	out := make([]rune, 0, len(name))
	for _, r := range name {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9':
			out = append(out, r)
		case r == ' ' || r == '-' || r == '_':
			out = append(out, '.')
		}
	}
	if len(out) == 0 {
		return "user"
	}
	return string(out)
}
