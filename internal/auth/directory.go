package auth

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"sync"

	"golang.org/x/crypto/bcrypt"

	"github.com/mind-engage/mindengage-quiz/internal/rbac"
	"github.com/mind-engage/mindengage-quiz/internal/storage"
)

const usersKey = "auth/users"

var (
	ErrInvalidCredentials = errors.New("invalid credentials")
	ErrUnknownAccount     = errors.New("unknown account")
)

type Account struct {
	ID           string `json:"id"`
	Username     string `json:"username"`
	DisplayName  string `json:"display_name"`
	Role         string `json:"role"`
	PasswordHash string `json:"password_hash,omitempty"`
}

func (a Account) Identity() rbac.Identity {
	name := a.DisplayName
	if name == "" {
		name = a.Username
	}
	return rbac.Identity{ID: a.ID, DisplayName: name, Role: a.Role}
}

// Directory is the account list, stored as one JSON document in the KV store.
type Directory struct {
	kv   storage.KV
	mu   sync.Mutex
	Cost int
}

func NewDirectory(kv storage.KV) *Directory {
	return &Directory{kv: kv, Cost: 12}
}

func (d *Directory) load(ctx context.Context) ([]Account, error) {
	raw, ok, err := d.kv.Get(ctx, usersKey)
	if err != nil {
		return nil, fmt.Errorf("load accounts: %w", err)
	}
	if !ok || raw == "" {
		return nil, nil
	}
	var list []Account
	if err := json.Unmarshal([]byte(raw), &list); err != nil {
		return nil, fmt.Errorf("decode accounts: %w", err)
	}
	return list, nil
}

// Put creates or replaces an account. An empty password leaves the account
// without a usable password (guest accounts).
func (d *Directory) Put(ctx context.Context, a Account, password string) error {
	a.Username = strings.TrimSpace(a.Username)
	if a.ID == "" || a.Username == "" {
		return fmt.Errorf("account id and username required")
	}
	if !rbac.ValidRole(a.Role) {
		return fmt.Errorf("account %s: unknown role %q", a.Username, a.Role)
	}
	a.PasswordHash = ""
	if password != "" {
		h, err := bcrypt.GenerateFromPassword([]byte(password), d.Cost)
		if err != nil {
			return err
		}
		a.PasswordHash = string(h)
	}

	d.mu.Lock()
	defer d.mu.Unlock()
	list, err := d.load(ctx)
	if err != nil {
		return err
	}
	replaced := false
	for i := range list {
		if list[i].ID == a.ID {
			list[i] = a
			replaced = true
		} else if strings.EqualFold(list[i].Username, a.Username) {
			return fmt.Errorf("username %q already taken", a.Username)
		}
	}
	if !replaced {
		list = append(list, a)
	}
	b, err := json.Marshal(list)
	if err != nil {
		return err
	}
	return d.kv.Set(ctx, usersKey, string(b))
}

// Authenticate checks a username/password pair.
func (d *Directory) Authenticate(ctx context.Context, username, password string) (rbac.Identity, error) {
	list, err := d.load(ctx)
	if err != nil {
		return rbac.Identity{}, err
	}
	for _, a := range list {
		if !strings.EqualFold(a.Username, strings.TrimSpace(username)) {
			continue
		}
		if a.PasswordHash == "" || bcrypt.CompareHashAndPassword([]byte(a.PasswordHash), []byte(password)) != nil {
			return rbac.Identity{}, ErrInvalidCredentials
		}
		return a.Identity(), nil
	}
	return rbac.Identity{}, ErrInvalidCredentials
}

func (d *Directory) Lookup(ctx context.Context, id string) (Account, error) {
	list, err := d.load(ctx)
	if err != nil {
		return Account{}, err
	}
	for _, a := range list {
		if a.ID == id {
			a.PasswordHash = ""
			return a, nil
		}
	}
	return Account{}, fmt.Errorf("account %q: %w", id, ErrUnknownAccount)
}

// Role returns the stored role for an account id.
func (d *Directory) Role(ctx context.Context, id string) (string, bool, error) {
	a, err := d.Lookup(ctx, id)
	if errors.Is(err, ErrUnknownAccount) {
		return "", false, nil
	}
	if err != nil {
		return "", false, err
	}
	return a.Role, true, nil
}
