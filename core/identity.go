package core

import "fmt"

// Identity is the author recorded on snapshots.
type Identity struct {
	Name  string `json:"name" koanf:"name"`
	Email string `json:"email" koanf:"email"`
}

func (identity Identity) String() string {
	return fmt.Sprintf("%s <%s>", identity.Name, identity.Email)
}
