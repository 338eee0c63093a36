// Copyright (c) 2026 Yomira. All rights reserved.
// Author: tai.buivan.jp@gmail.com

package authfakes

import (
	"context"
	"sync"
	"time"

	"github.com/taibuivan/authcore/internal/platform/apperr"
	"github.com/taibuivan/authcore/internal/users/account"
)

// AccountStore is an in-memory [account.Store].
//
// Operation names for Fail: "find_by_id", "find_by_email", "create",
// "record_sign_in", "find_link", "upsert_link".
type AccountStore struct {
	failures

	mu    sync.Mutex
	users map[string]account.User
	links map[string]account.IdentityLink

	// BeforeCreate runs before Create checks uniqueness, outside the lock.
	// Tests use it to slip in a concurrent insert.
	BeforeCreate func(user *account.User)
}

// NewAccountStore returns an empty store.
func NewAccountStore() *AccountStore {
	return &AccountStore{
		users: make(map[string]account.User),
		links: make(map[string]account.IdentityLink),
	}
}

var _ account.Store = (*AccountStore)(nil)

// Users returns a snapshot of all users.
func (store *AccountStore) Users() []account.User {
	store.mu.Lock()
	defer store.mu.Unlock()
	users := make([]account.User, 0, len(store.users))
	for _, user := range store.users {
		users = append(users, user)
	}
	return users
}

// Links returns a snapshot of all identity links.
func (store *AccountStore) Links() []account.IdentityLink {
	store.mu.Lock()
	defer store.mu.Unlock()
	links := make([]account.IdentityLink, 0, len(store.links))
	for _, link := range store.links {
		links = append(links, link)
	}
	return links
}

// Seed inserts user directly.
func (store *AccountStore) Seed(user account.User) {
	store.mu.Lock()
	defer store.mu.Unlock()
	store.users[user.ID] = user
}

func (store *AccountStore) FindByID(_ context.Context, id string) (*account.User, error) {
	if err := store.err("find_by_id"); err != nil {
		return nil, err
	}
	store.mu.Lock()
	defer store.mu.Unlock()

	user, ok := store.users[id]
	if !ok {
		return nil, apperr.NotFound("Account")
	}
	return &user, nil
}

func (store *AccountStore) FindByEmail(_ context.Context, email string) (*account.User, error) {
	if err := store.err("find_by_email"); err != nil {
		return nil, err
	}
	store.mu.Lock()
	defer store.mu.Unlock()

	for _, user := range store.users {
		if user.Email == email {
			return &user, nil
		}
	}
	return nil, apperr.NotFound("Account")
}

func (store *AccountStore) Create(_ context.Context, user *account.User) error {
	if err := store.err("create"); err != nil {
		return err
	}
	if store.BeforeCreate != nil {
		store.BeforeCreate(user)
	}

	store.mu.Lock()
	defer store.mu.Unlock()

	for _, existing := range store.users {
		if existing.Email == user.Email || existing.ID == user.ID {
			return apperr.Conflict("Resource already exists")
		}
	}
	store.users[user.ID] = *user
	return nil
}

func (store *AccountStore) RecordSignIn(_ context.Context, id string, profile account.Profile, at time.Time) (*account.User, error) {
	if err := store.err("record_sign_in"); err != nil {
		return nil, err
	}
	store.mu.Lock()
	defer store.mu.Unlock()

	user, ok := store.users[id]
	if !ok {
		return nil, apperr.NotFound("Account")
	}

	if profile.DisplayName != nil {
		user.DisplayName = profile.DisplayName
	}
	if profile.AvatarURL != nil {
		user.AvatarURL = profile.AvatarURL
	}
	user.LastSignInAt = &at
	user.UpdatedAt = at

	store.users[id] = user
	return &user, nil
}

func (store *AccountStore) FindLink(_ context.Context, provider, providerUserID string) (*account.IdentityLink, error) {
	if err := store.err("find_link"); err != nil {
		return nil, err
	}
	store.mu.Lock()
	defer store.mu.Unlock()

	for _, link := range store.links {
		if link.Provider == provider && link.ProviderUserID == providerUserID {
			return &link, nil
		}
	}
	return nil, apperr.NotFound("Identity link")
}

func (store *AccountStore) UpsertLink(_ context.Context, link *account.IdentityLink) (*account.IdentityLink, error) {
	if err := store.err("upsert_link"); err != nil {
		return nil, err
	}
	store.mu.Lock()
	defer store.mu.Unlock()

	for _, existing := range store.links {
		if existing.Provider == link.Provider && existing.ProviderUserID == link.ProviderUserID && existing.UserID != link.UserID {
			return nil, apperr.Conflict("Identity is already linked to another account")
		}
	}

	for id, existing := range store.links {
		if existing.UserID == link.UserID && existing.Provider == link.Provider {
			existing.ProviderUserID = link.ProviderUserID
			existing.UpdatedAt = link.UpdatedAt
			store.links[id] = existing
			return &existing, nil
		}
	}

	stored := *link
	store.links[stored.ID] = stored
	return &stored, nil
}
