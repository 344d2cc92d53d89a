package ps

import (
	"errors"
	"fmt"

	"github.com/go-git/go-git/v6"
	"github.com/go-git/go-git/v6/plumbing"
)

// Tag names a snapshot. A nil asof tags HEAD.
func (p *Persistence) Tag(name string, asof *Transaction) (Transaction, error) {
	if err := p.ensureInitialized(); err != nil {
		return Transaction{}, err
	}

	txn := p.LatestTransaction()
	if asof != nil {
		txn = *asof
	}
	if txn.IsZero() {
		return Transaction{}, fmt.Errorf("%w: nothing to tag", ErrNoSnapshot)
	}

	if _, err := p.repo.CreateTag(name, plumbing.NewHash(txn.ID), nil); err != nil {
		if errors.Is(err, git.ErrTagExists) {
			return Transaction{}, fmt.Errorf("%w: %s", ErrTagExists, name)
		}
		return Transaction{}, fmt.Errorf("failed to tag %s as %s: %w", txn.ID, name, err)
	}
	return txn, nil
}

// ResolveTag returns the snapshot a tag points at.
func (p *Persistence) ResolveTag(name string) (Transaction, error) {
	if err := p.ensureInitialized(); err != nil {
		return Transaction{}, err
	}

	ref, err := p.repo.Tag(name)
	if err != nil {
		return Transaction{}, fmt.Errorf("%w: tag %s: %v", ErrNoSnapshot, name, err)
	}

	commit, err := p.repo.CommitObject(ref.Hash())
	if err != nil {
		return Transaction{}, fmt.Errorf("%w: tag %s: %v", ErrNoSnapshot, name, err)
	}
	return transactionOf(commit), nil
}

// HasTag reports whether a tag with the given name exists.
func (p *Persistence) HasTag(name string) (bool, error) {
	_, err := p.ResolveTag(name)
	switch {
	case err == nil:
		return true, nil
	case errors.Is(err, ErrNoSnapshot), errors.Is(err, ErrNotInitialized):
		return false, nil
	}
	return false, err
}
