// Package memory is an in-process remote.Store. It keeps accounts and
// snapshots in memory, hashes passwords with bcrypt and can be switched
// offline to exercise the reconciliation paths.
package memory

import (
	"context"
	"fmt"
	"log/slog"
	"slices"
	"strings"
	"sync"

	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"

	"chitieu/internal/core"
	"chitieu/internal/remote"
)

// Demo account credentials seeded by SeedDemo.
const (
	DemoEmail    = "demo@expensemanager.com"
	DemoPassword = "123456"
)

type account struct {
	id       string
	email    string
	hash     []byte
	name     string
	username string
}

type Store struct {
	mu       sync.Mutex
	accounts map[string]*account // by lower-cased email
	saved    map[string]core.User
	pending  map[string]core.User
	current  *account
	online   bool
	hashCost int

	listenerMu    sync.Mutex
	netListeners  []func(remote.NetworkStatus)
	authListeners []func(*core.User)
}

type Option func(*Store)

// WithHashCost sets the bcrypt cost. Tests use bcrypt.MinCost.
func WithHashCost(cost int) Option {
	return func(s *Store) { s.hashCost = cost }
}

// WithOffline starts the store in offline mode.
func WithOffline() Option {
	return func(s *Store) { s.online = false }
}

func New(opts ...Option) *Store {
	s := &Store{
		accounts: make(map[string]*account),
		saved:    make(map[string]core.User),
		pending:  make(map[string]core.User),
		online:   true,
		hashCost: bcrypt.DefaultCost,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

var _ remote.Store = (*Store)(nil)

func normEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

func (s *Store) Authenticate(ctx context.Context, email, password string) (remote.Account, error) {
	if err := ctx.Err(); err != nil {
		return remote.Account{}, err
	}
	s.mu.Lock()
	if !s.online {
		s.mu.Unlock()
		return remote.Account{}, remote.ErrOffline
	}
	acc, ok := s.accounts[normEmail(email)]
	if !ok || bcrypt.CompareHashAndPassword(acc.hash, []byte(password)) != nil {
		s.mu.Unlock()
		return remote.Account{}, remote.ErrInvalidCredentials
	}
	s.current = acc
	snap := s.snapshotLocked(acc)
	s.mu.Unlock()

	slog.DebugContext(ctx, "Remote sign-in", "component", "remote", "user_id", acc.id)
	s.emitAuth(&snap)
	return remote.Account{ID: acc.id, Email: acc.email}, nil
}

func (s *Store) Register(ctx context.Context, email, password string, profile core.Profile) (*core.User, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if len(password) < core.MinPasswordLength {
		return nil, remote.ErrWeakPassword
	}
	key := normEmail(email)
	if key == "" || !strings.Contains(key, "@") {
		return nil, fmt.Errorf("register %q: %w", email, remote.ErrInvalidCredentials)
	}
	hash, err := bcrypt.GenerateFromPassword([]byte(password), s.hashCost)
	if err != nil {
		return nil, fmt.Errorf("hash password: %w", err)
	}

	s.mu.Lock()
	if !s.online {
		s.mu.Unlock()
		return nil, remote.ErrOffline
	}
	if _, exists := s.accounts[key]; exists {
		s.mu.Unlock()
		return nil, remote.ErrEmailTaken
	}
	acc := &account{
		id:       uuid.NewString(),
		email:    strings.TrimSpace(email),
		hash:     hash,
		name:     strings.TrimSpace(profile.Name),
		username: strings.TrimSpace(profile.Username),
	}
	s.accounts[key] = acc
	s.current = acc
	u := s.snapshotLocked(acc)
	s.mu.Unlock()

	s.emitAuth(&u)
	out := u.Clone()
	return &out, nil
}

func (s *Store) SignOut(ctx context.Context) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	s.mu.Lock()
	if s.current == nil {
		s.mu.Unlock()
		return remote.ErrNotSignedIn
	}
	s.current = nil
	s.mu.Unlock()

	s.emitAuth(nil)
	return nil
}

func (s *Store) LoadSnapshot(ctx context.Context) (*core.User, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.current == nil {
		return nil, remote.ErrNotSignedIn
	}
	if u, ok := s.pending[s.current.id]; ok {
		out := u.Clone()
		return &out, nil
	}
	if u, ok := s.saved[s.current.id]; ok {
		out := u.Clone()
		return &out, nil
	}
	return nil, nil
}

// SaveSnapshot stores u for the signed-in account. While offline the write
// is queued and reported as such.
func (s *Store) SaveSnapshot(ctx context.Context, u core.User) (remote.SaveResult, error) {
	if err := ctx.Err(); err != nil {
		return remote.SaveResult{}, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.current == nil {
		return remote.SaveResult{}, remote.ErrNotSignedIn
	}
	u = u.Clone()
	u.ID = s.current.id
	if !s.online {
		s.pending[s.current.id] = u
		return remote.SaveResult{Offline: true}, nil
	}
	delete(s.pending, s.current.id)
	s.saved[s.current.id] = u
	return remote.SaveResult{}, nil
}

// Sync flushes queued writes. It fails while offline.
func (s *Store) Sync(ctx context.Context) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.online {
		return remote.ErrOffline
	}
	for id, u := range s.pending {
		s.saved[id] = u
		delete(s.pending, id)
	}
	return nil
}

func (s *Store) UpdateProfile(ctx context.Context, update core.ProfileUpdate) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.current == nil {
		return remote.ErrNotSignedIn
	}
	if !s.online {
		return remote.ErrOffline
	}
	if email := normEmail(update.Email); email != "" && email != normEmail(s.current.email) {
		if _, taken := s.accounts[email]; taken {
			return remote.ErrEmailTaken
		}
		delete(s.accounts, normEmail(s.current.email))
		s.current.email = strings.TrimSpace(update.Email)
		s.accounts[email] = s.current
	}
	s.current.name = strings.TrimSpace(update.Name)
	s.current.username = strings.TrimSpace(update.Username)
	return nil
}

func (s *Store) ChangePassword(ctx context.Context, current, next string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if len(next) < core.MinPasswordLength {
		return remote.ErrWeakPassword
	}
	s.mu.Lock()
	acc := s.current
	online := s.online
	var stored []byte
	if acc != nil {
		stored = acc.hash
	}
	s.mu.Unlock()
	if acc == nil {
		return remote.ErrNotSignedIn
	}
	if !online {
		return remote.ErrOffline
	}
	if bcrypt.CompareHashAndPassword(stored, []byte(current)) != nil {
		return remote.ErrWrongPassword
	}
	hash, err := bcrypt.GenerateFromPassword([]byte(next), s.hashCost)
	if err != nil {
		return fmt.Errorf("hash password: %w", err)
	}
	s.mu.Lock()
	acc.hash = hash
	s.mu.Unlock()
	return nil
}

func (s *Store) UploadAvatar(ctx context.Context, image []byte) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	if len(image) > core.MaxAvatarBytes {
		return "", remote.ErrAvatarTooLarge
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.current == nil {
		return "", remote.ErrNotSignedIn
	}
	if !s.online {
		return "", remote.ErrOffline
	}
	return fmt.Sprintf("memory://avatars/%s/%s", s.current.id, uuid.NewString()), nil
}

func (s *Store) DeleteAccount(ctx context.Context, password string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	s.mu.Lock()
	acc := s.current
	if acc == nil {
		s.mu.Unlock()
		return remote.ErrNotSignedIn
	}
	if !s.online {
		s.mu.Unlock()
		return remote.ErrOffline
	}
	if bcrypt.CompareHashAndPassword(acc.hash, []byte(password)) != nil {
		s.mu.Unlock()
		return remote.ErrWrongPassword
	}
	delete(s.accounts, normEmail(acc.email))
	delete(s.saved, acc.id)
	delete(s.pending, acc.id)
	s.current = nil
	s.mu.Unlock()

	s.emitAuth(nil)
	return nil
}

func (s *Store) IsOnline() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.online
}

// SetOnline flips connectivity and notifies network listeners on change.
func (s *Store) SetOnline(online bool) {
	s.mu.Lock()
	changed := s.online != online
	s.online = online
	s.mu.Unlock()
	if !changed {
		return
	}
	s.listenerMu.Lock()
	listeners := slices.Clone(s.netListeners)
	s.listenerMu.Unlock()
	for _, fn := range listeners {
		fn(remote.NetworkStatus{Online: online})
	}
}

// SignedIn reports whether an account holds the remote session.
func (s *Store) SignedIn() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.current != nil
}

// ExpireSession ends the remote session without a SignOut call, as when a
// token is revoked on another device.
func (s *Store) ExpireSession() {
	s.mu.Lock()
	had := s.current != nil
	s.current = nil
	s.mu.Unlock()
	if had {
		s.emitAuth(nil)
	}
}

func (s *Store) OnNetworkStatusChange(fn func(remote.NetworkStatus)) {
	s.listenerMu.Lock()
	defer s.listenerMu.Unlock()
	s.netListeners = append(s.netListeners, fn)
}

func (s *Store) OnAuthStateChange(fn func(*core.User)) {
	s.listenerMu.Lock()
	defer s.listenerMu.Unlock()
	s.authListeners = append(s.authListeners, fn)
}

// Pending reports how many snapshot writes are waiting for Sync.
func (s *Store) Pending() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.pending)
}

// SeedDemo creates the demo account with a few expenses if it is missing.
func (s *Store) SeedDemo(ctx context.Context) error {
	s.mu.Lock()
	_, exists := s.accounts[DemoEmail]
	s.mu.Unlock()
	if exists {
		return nil
	}
	hash, err := bcrypt.GenerateFromPassword([]byte(DemoPassword), s.hashCost)
	if err != nil {
		return fmt.Errorf("hash demo password: %w", err)
	}
	acc := &account{id: uuid.NewString(), email: DemoEmail, hash: hash, name: "Người dùng Demo", username: "demo"}

	today := core.Today()
	u := core.User{
		ID:           acc.id,
		Name:         acc.name,
		Email:        acc.email,
		Username:     acc.username,
		MonthlyLimit: 5_000_000,
		Categories:   core.DefaultCategories(),
	}
	for _, in := range []core.NewExpense{
		{Category: "an_uong", Amount: "50k", Date: today},
		{Category: "di_chuyen", Amount: "30k", Date: today},
		{Category: "mua_sam", Amount: "1.200k", Date: today},
	} {
		u.Expenses, _, err = core.AddExpense(u.Expenses, u.Categories, in)
		if err != nil {
			return fmt.Errorf("seed demo expense: %w", err)
		}
	}

	s.mu.Lock()
	s.accounts[DemoEmail] = acc
	s.saved[acc.id] = u
	s.mu.Unlock()
	slog.InfoContext(ctx, "Demo account seeded", "component", "remote", "email", DemoEmail)
	return nil
}

// snapshotLocked returns the stored snapshot of acc, or a profile-only user
// when nothing has been saved yet.
func (s *Store) snapshotLocked(acc *account) core.User {
	if u, ok := s.pending[acc.id]; ok {
		return u.Clone()
	}
	if u, ok := s.saved[acc.id]; ok {
		return u.Clone()
	}
	return core.User{ID: acc.id, Name: acc.name, Email: acc.email, Username: acc.username}
}

func (s *Store) emitAuth(u *core.User) {
	s.listenerMu.Lock()
	listeners := slices.Clone(s.authListeners)
	s.listenerMu.Unlock()
	for _, fn := range listeners {
		var arg *core.User
		if u != nil {
			c := u.Clone()
			arg = &c
		}
		fn(arg)
	}
}
