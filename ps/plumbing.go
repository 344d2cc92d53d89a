package ps

import (
	"errors"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/go-git/go-git/v6"
	"github.com/go-git/go-git/v6/plumbing"
	"github.com/go-git/go-git/v6/plumbing/filemode"
	"github.com/go-git/go-git/v6/plumbing/object"
	"github.com/nickyhof/TableDB/core"
)

// createBlob stores data as a blob without touching the worktree.
func (p *Persistence) createBlob(data []byte) (plumbing.Hash, error) {
	obj := p.repo.Storer.NewEncodedObject()
	obj.SetType(plumbing.BlobObject)
	obj.SetSize(int64(len(data)))

	writer, err := obj.Writer()
	if err != nil {
		return plumbing.ZeroHash, fmt.Errorf("failed to create blob writer: %w", err)
	}

	if _, err := writer.Write(data); err != nil {
		writer.Close()
		return plumbing.ZeroHash, fmt.Errorf("failed to write blob data: %w", err)
	}
	writer.Close()

	hash, err := p.repo.Storer.SetEncodedObject(obj)
	if err != nil {
		return plumbing.ZeroHash, fmt.Errorf("failed to store blob: %w", err)
	}

	return hash, nil
}

// headCommit returns the commit HEAD points at, or nil before the first snapshot.
func (p *Persistence) headCommit() (*object.Commit, error) {
	headRef, err := p.repo.Head()
	if err != nil {
		if errors.Is(err, plumbing.ErrReferenceNotFound) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to resolve HEAD: %w", err)
	}

	commit, err := p.repo.CommitObject(headRef.Hash())
	if err != nil {
		return nil, fmt.Errorf("failed to get head commit: %w", err)
	}
	return commit, nil
}

// currentTree returns the root tree hash of HEAD; ZeroHash when there are no commits.
func (p *Persistence) currentTree() (plumbing.Hash, error) {
	commit, err := p.headCommit()
	if err != nil || commit == nil {
		return plumbing.ZeroHash, err
	}
	return commit.TreeHash, nil
}

func (p *Persistence) treeEntries(treeHash plumbing.Hash) (map[string]object.TreeEntry, error) {
	entries := make(map[string]object.TreeEntry)

	if treeHash == plumbing.ZeroHash {
		return entries, nil
	}

	tree, err := object.GetTree(p.repo.Storer, treeHash)
	if err != nil {
		return nil, fmt.Errorf("failed to get tree: %w", err)
	}

	for _, entry := range tree.Entries {
		entries[entry.Name] = entry
	}

	return entries, nil
}

// storeTree encodes entries as a tree object. Git requires entries sorted by
// name, with directories compared as if they had a trailing slash.
func (p *Persistence) storeTree(entries map[string]object.TreeEntry) (plumbing.Hash, error) {
	sorted := make([]object.TreeEntry, 0, len(entries))
	for _, entry := range entries {
		sorted = append(sorted, entry)
	}
	sort.Slice(sorted, func(i, j int) bool {
		return treeSortName(sorted[i]) < treeSortName(sorted[j])
	})

	tree := &object.Tree{Entries: sorted}

	obj := p.repo.Storer.NewEncodedObject()
	if err := tree.Encode(obj); err != nil {
		return plumbing.ZeroHash, fmt.Errorf("failed to encode tree: %w", err)
	}

	hash, err := p.repo.Storer.SetEncodedObject(obj)
	if err != nil {
		return plumbing.ZeroHash, fmt.Errorf("failed to store tree: %w", err)
	}

	return hash, nil
}

func treeSortName(entry object.TreeEntry) string {
	if entry.Mode == filemode.Dir {
		return entry.Name + "/"
	}
	return entry.Name
}

// treeChange sets or removes one path of a tree.
type treeChange struct {
	Path     string
	BlobHash plumbing.Hash
	IsDelete bool
}

// applyChanges rewrites the tree rooted at rootTreeHash, building each
// touched subtree once. Directories left empty are pruned and an empty root
// comes back as ZeroHash.
func (p *Persistence) applyChanges(rootTreeHash plumbing.Hash, changes []treeChange) (plumbing.Hash, error) {
	if len(changes) == 0 {
		return rootTreeHash, nil
	}

	grouped := make(map[string][]treeChange)
	var leaves []treeChange

	for _, change := range changes {
		dir, rest, nested := strings.Cut(change.Path, "/")
		if !nested {
			leaves = append(leaves, change)
			continue
		}
		grouped[dir] = append(grouped[dir], treeChange{
			Path:     rest,
			BlobHash: change.BlobHash,
			IsDelete: change.IsDelete,
		})
	}

	entries, err := p.treeEntries(rootTreeHash)
	if err != nil {
		return plumbing.ZeroHash, err
	}

	for _, change := range leaves {
		if change.IsDelete {
			delete(entries, change.Path)
			continue
		}
		entries[change.Path] = object.TreeEntry{
			Name: change.Path,
			Mode: filemode.Regular,
			Hash: change.BlobHash,
		}
	}

	for dir, subChanges := range grouped {
		subTreeHash := plumbing.ZeroHash
		if existing, ok := entries[dir]; ok && existing.Mode == filemode.Dir {
			subTreeHash = existing.Hash
		}

		newSubTreeHash, err := p.applyChanges(subTreeHash, subChanges)
		if err != nil {
			return plumbing.ZeroHash, err
		}

		if newSubTreeHash == plumbing.ZeroHash {
			delete(entries, dir)
		} else {
			entries[dir] = object.TreeEntry{
				Name: dir,
				Mode: filemode.Dir,
				Hash: newSubTreeHash,
			}
		}
	}

	if len(entries) == 0 {
		return plumbing.ZeroHash, nil
	}

	return p.storeTree(entries)
}

// commitTree records treeHash as a new commit on top of HEAD and moves the
// current branch to it.
func (p *Persistence) commitTree(treeHash plumbing.Hash, identity core.Identity, message string) (Transaction, error) {
	if treeHash == plumbing.ZeroHash {
		var err error
		treeHash, err = p.storeTree(nil)
		if err != nil {
			return Transaction{}, err
		}
	}

	var parentHashes []plumbing.Hash
	headRef, err := p.repo.Head()
	if err == nil {
		parentHashes = []plumbing.Hash{headRef.Hash()}
	}

	sig := object.Signature{
		Name:  identity.Name,
		Email: identity.Email,
		When:  time.Now(),
	}

	commit := &object.Commit{
		Author:       sig,
		Committer:    sig,
		Message:      message,
		TreeHash:     treeHash,
		ParentHashes: parentHashes,
	}

	obj := p.repo.Storer.NewEncodedObject()
	if err := commit.Encode(obj); err != nil {
		return Transaction{}, fmt.Errorf("failed to encode commit: %w", err)
	}

	commitHash, err := p.repo.Storer.SetEncodedObject(obj)
	if err != nil {
		return Transaction{}, fmt.Errorf("failed to store commit: %w", err)
	}

	branchName := plumbing.Master
	if headRef != nil && headRef.Name().IsBranch() {
		branchName = headRef.Name()
	}

	ref := plumbing.NewHashReference(branchName, commitHash)
	if err := p.repo.Storer.SetReference(ref); err != nil {
		return Transaction{}, fmt.Errorf("failed to update HEAD: %w", err)
	}

	return Transaction{
		ID:      commitHash.String(),
		When:    sig.When,
		Author:  identity.String(),
		Message: message,
	}, nil
}

// syncWorktree checks HEAD out into the worktree so a file-backed repository
// can be browsed with plain git. Memory repositories skip it.
func (p *Persistence) syncWorktree() error {
	if p.memory {
		return nil
	}

	wt, err := p.repo.Worktree()
	if err != nil {
		return err
	}

	commit, err := p.headCommit()
	if err != nil || commit == nil {
		return err
	}

	tree, err := commit.Tree()
	if err != nil {
		return err
	}

	// A hard reset onto an empty tree fails trying to remove the base dir.
	if len(tree.Entries) == 0 {
		fs := wt.Filesystem
		infos, err := fs.ReadDir("/")
		if err != nil {
			return nil
		}
		for _, info := range infos {
			if info.Name() != ".git" {
				fs.Remove(info.Name())
			}
		}
		return nil
	}

	return wt.Reset(&git.ResetOptions{
		Mode:   git.HardReset,
		Commit: commit.Hash,
	})
}

// readFile returns the contents of filePath inside tree.
func readFile(tree *object.Tree, filePath string) ([]byte, error) {
	file, err := tree.File(filePath)
	if err != nil {
		return nil, err
	}

	content, err := file.Contents()
	if err != nil {
		return nil, fmt.Errorf("failed to read %s: %w", filePath, err)
	}

	return []byte(content), nil
}
