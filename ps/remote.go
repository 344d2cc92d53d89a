package ps

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/go-git/go-git/v6"
	"github.com/go-git/go-git/v6/config"
	"github.com/go-git/go-git/v6/plumbing"
	"github.com/go-git/go-git/v6/plumbing/transport"
	"github.com/go-git/go-git/v6/plumbing/transport/http"
	"github.com/go-git/go-git/v6/plumbing/transport/ssh"
)

// DefaultRemote is used when a remote name is left empty.
const DefaultRemote = "origin"

type AuthType string

const (
	AuthTypeNone  AuthType = "none"
	AuthTypeToken AuthType = "token"
	AuthTypeSSH   AuthType = "ssh"
	AuthTypeBasic AuthType = "basic"
)

// RemoteAuth holds the credentials used to push and pull snapshots.
type RemoteAuth struct {
	Type       AuthType `koanf:"type"`
	Token      string   `koanf:"token"`
	KeyPath    string   `koanf:"key_path"`
	Passphrase string   `koanf:"passphrase"`
	Username   string   `koanf:"username"`
	Password   string   `koanf:"password"`
}

func (auth *RemoteAuth) authMethod() (transport.AuthMethod, error) {
	if auth == nil {
		return nil, nil
	}

	switch auth.Type {
	case AuthTypeNone, "":
		return nil, nil
	case AuthTypeToken:
		// Hosts accept any non-empty username alongside a token.
		return &http.BasicAuth{Username: "git", Password: auth.Token}, nil
	case AuthTypeSSH:
		keyPath := auth.KeyPath
		if keyPath == "" {
			home, err := os.UserHomeDir()
			if err != nil {
				return nil, err
			}
			keyPath = filepath.Join(home, ".ssh", "id_rsa")
		}
		return ssh.NewPublicKeysFromFile("git", keyPath, auth.Passphrase)
	case AuthTypeBasic:
		return &http.BasicAuth{Username: auth.Username, Password: auth.Password}, nil
	default:
		return nil, fmt.Errorf("unknown auth type: %s", auth.Type)
	}
}

// AddRemote registers url under name.
func (p *Persistence) AddRemote(name, url string) error {
	if err := p.ensureInitialized(); err != nil {
		return err
	}

	_, err := p.repo.CreateRemote(&config.RemoteConfig{
		Name: name,
		URLs: []string{url},
	})
	if err != nil {
		return fmt.Errorf("failed to add remote '%s': %w", name, err)
	}
	return nil
}

// Remotes returns the configured remote names and their urls.
func (p *Persistence) Remotes() (map[string][]string, error) {
	if err := p.ensureInitialized(); err != nil {
		return nil, err
	}

	remotes, err := p.repo.Remotes()
	if err != nil {
		return nil, fmt.Errorf("failed to list remotes: %w", err)
	}

	out := make(map[string][]string, len(remotes))
	for _, r := range remotes {
		cfg := r.Config()
		out[cfg.Name] = cfg.URLs
	}
	return out, nil
}

func (p *Persistence) currentBranch() plumbing.ReferenceName {
	headRef, err := p.repo.Head()
	if err != nil || !headRef.Name().IsBranch() {
		return plumbing.Master
	}
	return headRef.Name()
}

// Push publishes the current branch to remoteName.
func (p *Persistence) Push(remoteName string, auth *RemoteAuth) error {
	if err := p.ensureInitialized(); err != nil {
		return err
	}
	if remoteName == "" {
		remoteName = DefaultRemote
	}

	method, err := auth.authMethod()
	if err != nil {
		return fmt.Errorf("failed to configure auth: %w", err)
	}

	p.mu.Lock()
	defer p.mu.Unlock()

	branch := p.currentBranch()
	refSpec := config.RefSpec(fmt.Sprintf("%s:%s", branch, branch))

	err = p.repo.Push(&git.PushOptions{
		RemoteName: remoteName,
		RefSpecs:   []config.RefSpec{refSpec},
		Auth:       method,
	})
	if errors.Is(err, git.NoErrAlreadyUpToDate) {
		return nil
	}
	if err != nil {
		return fmt.Errorf("failed to push to '%s': %w", remoteName, err)
	}
	return nil
}

// Pull fast-forwards the current branch from remoteName. Registries loaded
// before the pull keep their contents; call LoadRegistry again to see it.
func (p *Persistence) Pull(remoteName string, auth *RemoteAuth) error {
	if err := p.ensureInitialized(); err != nil {
		return err
	}
	if remoteName == "" {
		remoteName = DefaultRemote
	}

	method, err := auth.authMethod()
	if err != nil {
		return fmt.Errorf("failed to configure auth: %w", err)
	}

	p.mu.Lock()
	defer p.mu.Unlock()

	wt, err := p.repo.Worktree()
	if err != nil {
		return fmt.Errorf("failed to get worktree: %w", err)
	}

	err = wt.Pull(&git.PullOptions{
		RemoteName:    remoteName,
		ReferenceName: p.currentBranch(),
		Auth:          method,
	})
	if errors.Is(err, git.NoErrAlreadyUpToDate) {
		return nil
	}
	if err != nil {
		return fmt.Errorf("failed to pull from '%s': %w", remoteName, err)
	}
	return nil
}
