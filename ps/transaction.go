package ps

import (
	"fmt"
	"strings"
	"time"

	"github.com/go-git/go-git/v6"
	"github.com/go-git/go-git/v6/plumbing"
	"github.com/go-git/go-git/v6/plumbing/object"
)

// Transaction identifies one snapshot commit.
type Transaction struct {
	ID      string    `json:"id"`
	When    time.Time `json:"when"`
	Author  string    `json:"author,omitempty"` // "Name <email>"
	Message string    `json:"message,omitempty"`
}

func (t Transaction) String() string {
	return fmt.Sprintf("Transaction{ID: %s, When: %s, Author: %s}", t.ID, t.When.Format(time.RFC3339), t.Author)
}

// IsZero reports whether t names no commit.
func (t Transaction) IsZero() bool {
	return t.ID == ""
}

func transactionOf(c *object.Commit) Transaction {
	author := ""
	if c.Author.Name != "" || c.Author.Email != "" {
		author = fmt.Sprintf("%s <%s>", c.Author.Name, c.Author.Email)
	}
	return Transaction{
		ID:      c.Hash.String(),
		When:    c.Committer.When,
		Author:  author,
		Message: strings.TrimSpace(c.Message),
	}
}

// LatestTransaction returns the HEAD snapshot, or the zero Transaction when
// nothing has been committed yet.
func (p *Persistence) LatestTransaction() Transaction {
	if !p.IsInitialized() {
		return Transaction{}
	}

	commit, err := p.headCommit()
	if err != nil || commit == nil {
		return Transaction{}
	}
	return transactionOf(commit)
}

// TransactionsSince lists snapshots committed at or after asof, newest first.
func (p *Persistence) TransactionsSince(asof time.Time) ([]Transaction, error) {
	return p.log(&git.LogOptions{Since: &asof})
}

// TransactionsFrom lists the snapshot id and all of its ancestors, newest first.
func (p *Persistence) TransactionsFrom(id string) ([]Transaction, error) {
	return p.log(&git.LogOptions{From: plumbing.NewHash(id)})
}

func (p *Persistence) log(opts *git.LogOptions) ([]Transaction, error) {
	if err := p.ensureInitialized(); err != nil {
		return nil, err
	}
	if p.LatestTransaction().IsZero() {
		return nil, nil
	}

	iter, err := p.repo.Log(opts)
	if err != nil {
		return nil, fmt.Errorf("failed to read history: %w", err)
	}
	defer iter.Close()

	var transactions []Transaction
	err = iter.ForEach(func(c *object.Commit) error {
		transactions = append(transactions, transactionOf(c))
		return nil
	})
	if err != nil {
		return nil, err
	}
	return transactions, nil
}

// commitFor resolves a transaction id to its commit.
func (p *Persistence) commitFor(txn Transaction) (*object.Commit, error) {
	commit, err := p.repo.CommitObject(plumbing.NewHash(txn.ID))
	if err != nil {
		return nil, fmt.Errorf("%w: transaction %s: %v", ErrNoSnapshot, txn.ID, err)
	}
	return commit, nil
}
