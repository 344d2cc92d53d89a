package ps

import (
	"errors"
	"os"
	"sync"

	"github.com/go-git/go-billy/v6/memfs"
	"github.com/go-git/go-billy/v6/osfs"
	"github.com/go-git/go-git/v6"
	"github.com/go-git/go-git/v6/plumbing/cache"
	"github.com/go-git/go-git/v6/storage/filesystem"
	"github.com/go-git/go-git/v6/storage/memory"
)

var (
	ErrNotInitialized  = errors.New("persistence layer not initialized")
	ErrNoSnapshot      = errors.New("no snapshot found")
	ErrCorruptSnapshot = errors.New("corrupt snapshot")
	ErrTagExists       = errors.New("tag already exists")
)

// Persistence stores registry snapshots in a git repository. Every snapshot
// is one commit; reads go straight to the object store.
type Persistence struct {
	repo   *git.Repository
	memory bool

	// mu serializes commits so HEAD only ever moves forward by one parent.
	mu sync.Mutex
}

// IsInitialized returns true if the persistence layer has a valid repository
func (p *Persistence) IsInitialized() bool {
	return p != nil && p.repo != nil
}

func (p *Persistence) ensureInitialized() error {
	if !p.IsInitialized() {
		return ErrNotInitialized
	}
	return nil
}

// NewMemoryPersistence returns a repository that lives only as long as the process.
func NewMemoryPersistence() (*Persistence, error) {
	repo, err := git.Init(memory.NewStorage(), git.WithWorkTree(memfs.New()))
	if err != nil {
		return nil, err
	}

	return &Persistence{repo: repo, memory: true}, nil
}

// NewFilePersistence opens the repository under baseDir, creating it when
// missing. With a non-nil gitURL a fresh baseDir is cloned from that remote.
func NewFilePersistence(baseDir string, gitURL *string) (*Persistence, error) {
	if err := os.MkdirAll(baseDir, 0755); err != nil {
		return nil, err
	}

	wt := osfs.New(baseDir)
	fs, err := wt.Chroot(".git")
	if err != nil {
		return nil, err
	}

	storer := filesystem.NewStorageWithOptions(
		fs,
		cache.NewObjectLRUDefault(),
		filesystem.Options{ExclusiveAccess: true})

	_, statErr := os.Stat(fs.Root())
	exists := statErr == nil

	var repo *git.Repository
	switch {
	case exists:
		repo, err = git.Open(storer, wt)
	case gitURL != nil && *gitURL != "":
		repo, err = git.Clone(storer, wt, &git.CloneOptions{URL: *gitURL})
	default:
		repo, err = git.Init(storer, git.WithWorkTree(wt))
	}
	if err != nil {
		return nil, err
	}

	return &Persistence{repo: repo}, nil
}
