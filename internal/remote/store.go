// Package remote defines the contract of the user-data backend the session
// engine reconciles against.
package remote

import (
	"context"
	"errors"

	"chitieu/internal/core"
)

var (
	ErrInvalidCredentials = errors.New("invalid credentials")
	ErrEmailTaken         = errors.New("email already registered")
	ErrWeakPassword       = errors.New("password too weak")
	ErrWrongPassword      = errors.New("wrong password")
	ErrNotSignedIn        = errors.New("not signed in")
	ErrOffline            = errors.New("remote store offline")
	ErrAvatarTooLarge     = errors.New("avatar too large")
)

// Account is the identity returned by a successful authentication.
type Account struct {
	ID    string
	Email string
}

// SaveResult reports how a snapshot write was accepted. Offline means the
// write was queued locally by the backend and will be flushed by Sync.
type SaveResult struct {
	Offline bool
}

type NetworkStatus struct {
	Online bool
}

// Store is the remote user-data backend. Snapshot calls act on the signed-in
// account. Listener callbacks may be invoked from any goroutine.
type Store interface {
	Authenticate(ctx context.Context, email, password string) (Account, error)
	Register(ctx context.Context, email, password string, profile core.Profile) (*core.User, error)
	SignOut(ctx context.Context) error

	// LoadSnapshot returns nil when the account has no stored snapshot.
	LoadSnapshot(ctx context.Context) (*core.User, error)
	SaveSnapshot(ctx context.Context, u core.User) (SaveResult, error)
	Sync(ctx context.Context) error

	UpdateProfile(ctx context.Context, update core.ProfileUpdate) error
	ChangePassword(ctx context.Context, current, next string) error
	UploadAvatar(ctx context.Context, image []byte) (string, error)
	DeleteAccount(ctx context.Context, password string) error

	IsOnline() bool
	OnNetworkStatusChange(fn func(NetworkStatus))
	// OnAuthStateChange receives the signed-in user's snapshot, or nil when
	// the session ends.
	OnAuthStateChange(fn func(*core.User))
}
