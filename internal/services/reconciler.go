package services

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"golang.org/x/sync/singleflight"

	"chitieu/internal/cache"
	"chitieu/internal/core"
	"chitieu/internal/events"
	"chitieu/internal/log"
	"chitieu/internal/remote"
	"chitieu/internal/session"
	"chitieu/internal/sheets"
)

// EngineConfig holds configuration for the reconciliation engine
type EngineConfig struct {
	// ReconnectSyncDelay is how long to wait after the network comes back
	// before syncing (default: 1s)
	ReconnectSyncDelay time.Duration
}

func DefaultEngineConfig() EngineConfig {
	return EngineConfig{ReconnectSyncDelay: time.Second}
}

// Engine reconciles the in-memory session with the remote store and the
// local cache. All exported methods are safe for concurrent use, including
// the network and auth callbacks the remote store invokes on its own.
type Engine struct {
	remote  remote.Store
	cache   cache.Local
	session *session.Session
	events  events.Publisher
	mirror  sheets.SnapshotMirror
	logger  *log.Logger
	config  EngineConfig

	syncs     singleflight.Group
	persistMu sync.Mutex

	iconMu       sync.Mutex
	selectedIcon string

	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup
}

type Option func(*Engine)

func WithEvents(p events.Publisher) Option {
	return func(e *Engine) { e.events = p }
}

func WithMirror(m sheets.SnapshotMirror) Option {
	return func(e *Engine) { e.mirror = m }
}

func WithLogger(l *log.Logger) Option {
	return func(e *Engine) { e.logger = l }
}

func WithConfig(c EngineConfig) Option {
	return func(e *Engine) { e.config = c }
}

// NewEngine wires the engine to rs and lc and subscribes to the remote
// store's network and auth callbacks.
func NewEngine(rs remote.Store, lc cache.Local, opts ...Option) *Engine {
	ctx, cancel := context.WithCancel(context.Background())
	e := &Engine{
		remote:       rs,
		cache:        lc,
		session:      session.New(),
		events:       events.Discard{},
		mirror:       sheets.Nop{},
		logger:       log.Discard(),
		config:       DefaultEngineConfig(),
		selectedIcon: core.DefaultIcon,
		ctx:          ctx,
		cancel:       cancel,
	}
	for _, opt := range opts {
		opt(e)
	}
	e.logger = e.logger.WithComponent(log.ComponentReconcile)

	rs.OnNetworkStatusChange(e.HandleNetworkStatus)
	rs.OnAuthStateChange(e.HandleAuthState)
	return e
}

// Close stops background syncs and waits for them to return.
func (e *Engine) Close() {
	e.cancel()
	e.wg.Wait()
}

// Wait blocks until every background sync started so far has returned.
func (e *Engine) Wait() {
	e.wg.Wait()
}

func (e *Engine) State() session.State {
	return e.session.State()
}

// Snapshot returns a copy of the signed-in user.
func (e *Engine) Snapshot() (core.User, bool) {
	return e.session.Snapshot()
}

// Login authenticates and makes the account's snapshot active. When the
// remote store is online a sync-then-reload runs in the background.
func (e *Engine) Login(ctx context.Context, email, password string) (core.User, error) {
	prev, version, ok := e.session.Transition(session.LoggingIn, session.LoggedOut)
	if !ok {
		return core.User{}, e.busyError(core.KindAuth, prev)
	}

	acc, err := e.remote.Authenticate(ctx, strings.TrimSpace(email), password)
	if err != nil {
		e.session.TransitionIf(version, session.LoggedOut, session.LoggingIn)
		e.logger.WarnContext(ctx, "Login failed", log.FieldOperation, log.OpLogin, log.FieldError, err)
		return core.User{}, core.WrapError(core.KindAuth, authMessage(err), err)
	}

	snap := e.loadForAccount(ctx, acc)
	seeded := len(snap.Categories) == 0
	if seeded {
		snap.Categories = core.DefaultCategories()
	}

	newVersion, ok := e.session.ActivateIf(version, snap, session.LoggingIn)
	if !ok {
		return core.User{}, core.NewError(core.KindAuth, "session changed during login")
	}
	if err := e.cache.SetLastUser(ctx, acc.ID); err != nil {
		e.logger.WarnContext(ctx, "Failed to remember last user", log.FieldError, err)
	}

	e.logger.InfoContext(ctx, "User logged in",
		log.FieldOperation, log.OpLogin,
		log.FieldUserID, acc.ID,
		"seeded_categories", seeded)
	e.publish(ctx, events.SessionLoggedIn, acc.ID, map[string]any{"email": acc.Email})

	if seeded {
		e.persist(ctx)
	} else {
		e.cacheSnapshot(ctx, snap)
	}

	if e.remote.IsOnline() {
		e.syncInBackground(newVersion, 0)
	}
	return snap, nil
}

// loadForAccount picks the remote snapshot, then the cached one, then an
// empty snapshot for the account.
func (e *Engine) loadForAccount(ctx context.Context, acc remote.Account) core.User {
	snap, err := e.remote.LoadSnapshot(ctx)
	if err != nil {
		e.logger.WarnContext(ctx, "Remote snapshot unavailable, trying local cache", log.FieldUserID, acc.ID, log.FieldError, err)
	}
	if snap == nil {
		cached, cerr := e.cache.Load(ctx, acc.ID)
		if cerr != nil {
			e.logger.WarnContext(ctx, "Failed to read cached snapshot", log.FieldUserID, acc.ID, log.FieldError, cerr)
		}
		snap = cached
	}
	if snap == nil {
		snap = &core.User{Email: acc.Email}
	}
	u := snap.Clone()
	u.ID = acc.ID
	if u.Email == "" {
		u.Email = acc.Email
	}
	if u.Expenses == nil {
		u.Expenses = []core.Expense{}
	}
	return u
}

// RegisterInput is the data collected by the sign-up form.
type RegisterInput struct {
	Name     string
	Email    string
	Username string
	Password string
}

// Register creates an account and activates its freshly seeded snapshot.
func (e *Engine) Register(ctx context.Context, in RegisterInput) (core.User, error) {
	if len(in.Password) < core.MinPasswordLength {
		return core.User{}, core.ErrWeakPassword
	}
	prev, version, ok := e.session.Transition(session.LoggingIn, session.LoggedOut)
	if !ok {
		return core.User{}, e.busyError(core.KindRegistration, prev)
	}

	profile := core.Profile{Name: strings.TrimSpace(in.Name), Username: strings.TrimSpace(in.Username)}
	created, err := e.remote.Register(ctx, strings.TrimSpace(in.Email), in.Password, profile)
	if err != nil || created == nil {
		e.session.TransitionIf(version, session.LoggedOut, session.LoggingIn)
		if err == nil {
			err = errors.New("remote returned no user")
		}
		e.logger.WarnContext(ctx, "Registration failed", log.FieldOperation, log.OpRegister, log.FieldError, err)
		return core.User{}, core.WrapError(core.KindRegistration, registrationMessage(err), err)
	}

	u := core.User{
		ID:         created.ID,
		Name:       firstNonEmpty(created.Name, profile.Name),
		Email:      firstNonEmpty(created.Email, strings.TrimSpace(in.Email)),
		Username:   firstNonEmpty(created.Username, profile.Username),
		Expenses:   []core.Expense{},
		Categories: core.DefaultCategories(),
	}
	if _, ok := e.session.ActivateIf(version, u, session.LoggingIn); !ok {
		return core.User{}, core.NewError(core.KindRegistration, "session changed during registration")
	}
	if err := e.cache.SetLastUser(ctx, u.ID); err != nil {
		e.logger.WarnContext(ctx, "Failed to remember last user", log.FieldError, err)
	}

	e.logger.InfoContext(ctx, "User registered", log.FieldOperation, log.OpRegister, log.FieldUserID, u.ID)
	e.publish(ctx, events.SessionLoggedIn, u.ID, map[string]any{"email": u.Email, "registered": true})
	e.persist(ctx)
	return u, nil
}

// Logout signs out remotely and clears the session. The cached snapshot is
// kept; only the last-user pointer is removed.
func (e *Engine) Logout(ctx context.Context) error {
	_, version, ok := e.session.Transition(session.LoggingOut, session.Active, session.Syncing)
	if !ok {
		return core.ErrNotLoggedIn
	}
	u, _ := e.session.Snapshot()

	if err := e.remote.SignOut(ctx); err != nil && !errors.Is(err, remote.ErrNotSignedIn) {
		e.session.TransitionIf(version, session.Active, session.LoggingOut)
		e.logger.WarnContext(ctx, "Logout failed", log.FieldOperation, log.OpLogout, log.FieldError, err)
		return core.WrapError(core.KindLogout, core.ErrLogout.Message, err)
	}

	e.endSession(ctx, version, u.ID, "logout")
	return nil
}

func (e *Engine) endSession(ctx context.Context, version uint64, userID, reason string) {
	if !e.session.ResetIf(version) {
		return
	}
	if err := e.cache.ClearLastUser(ctx); err != nil {
		e.logger.WarnContext(ctx, "Failed to clear last user", log.FieldError, err)
	}
	e.setIcon(core.DefaultIcon)
	e.logger.InfoContext(ctx, "Session ended", log.FieldOperation, log.OpLogout, log.FieldUserID, userID, "reason", reason)
	e.publish(ctx, events.SessionLoggedOut, userID, map[string]any{"reason": reason})
}

// Restore activates the last user's cached snapshot without contacting the
// remote store. It reports false when there is nothing to restore or a
// session is already active.
func (e *Engine) Restore(ctx context.Context) (core.User, bool, error) {
	_, version, ok := e.session.Transition(session.LoggingIn, session.LoggedOut)
	if !ok {
		return core.User{}, false, nil
	}
	giveUp := func() {
		e.session.TransitionIf(version, session.LoggedOut, session.LoggingIn)
	}

	id, err := e.cache.LastUser(ctx)
	if err != nil {
		giveUp()
		return core.User{}, false, fmt.Errorf("read last user: %w", err)
	}
	if id == "" {
		giveUp()
		return core.User{}, false, nil
	}
	cached, err := e.cache.Load(ctx, id)
	if err != nil {
		giveUp()
		return core.User{}, false, fmt.Errorf("load cached snapshot: %w", err)
	}
	if cached == nil {
		giveUp()
		e.logger.InfoContext(ctx, "Last user has no cached snapshot", log.FieldUserID, id)
		return core.User{}, false, nil
	}

	u := normalizeSnapshot(*cached, id)
	if _, ok := e.session.ActivateIf(version, u, session.LoggingIn); !ok {
		return core.User{}, false, nil
	}

	e.logger.InfoContext(ctx, "Session restored from cache", log.FieldOperation, log.OpRestore, log.FieldUserID, id)
	e.publish(ctx, events.SessionRestored, id, nil)
	return u, true, nil
}

// HandleNetworkStatus reacts to connectivity changes. Coming back online
// while a user is active schedules a delayed sync-then-reload.
func (e *Engine) HandleNetworkStatus(st remote.NetworkStatus) {
	ctx := e.ctx
	if !st.Online {
		e.logger.InfoContext(ctx, "Network offline", log.FieldOnline, false)
		e.publish(ctx, events.NetworkOffline, "", nil)
		return
	}
	e.publish(ctx, events.NetworkOnline, "", nil)

	if !e.session.State().SignedIn() {
		e.logger.DebugContext(ctx, "Network online with no active user")
		return
	}
	e.logger.InfoContext(ctx, "Network online, scheduling sync", "delay", e.config.ReconnectSyncDelay)
	e.syncInBackground(e.session.Version(), e.config.ReconnectSyncDelay)
}

// HandleAuthState applies auth changes reported by the remote store outside
// explicit login and logout calls. A snapshot for the signed-in user replaces
// the session data wholesale.
func (e *Engine) HandleAuthState(u *core.User) {
	ctx := e.ctx
	version := e.session.Version()
	state := e.session.State()
	switch {
	case state == session.LoggingIn || state == session.LoggingOut:
		// the explicit call in flight owns the transition
		return

	case u == nil && state.SignedIn():
		cur, _ := e.session.Snapshot()
		e.endSession(ctx, version, cur.ID, "auth_state")

	case u != nil && state == session.LoggedOut:
		snap := normalizeSnapshot(*u, u.ID)
		if _, ok := e.session.ActivateIf(version, snap, session.LoggedOut); !ok {
			return
		}
		if err := e.cache.SetLastUser(ctx, snap.ID); err != nil {
			e.logger.WarnContext(ctx, "Failed to remember last user", log.FieldError, err)
		}
		e.cacheSnapshot(ctx, snap)
		e.logger.InfoContext(ctx, "Session activated by auth state change", log.FieldUserID, snap.ID)
		e.publish(ctx, events.SessionLoggedIn, snap.ID, map[string]any{"source": "auth_state"})

	case u != nil && state.SignedIn():
		cur, ok := e.session.Snapshot()
		if !ok {
			return
		}
		if cur.ID != u.ID {
			e.switchUser(ctx, version, *u)
			return
		}
		snap := normalizeSnapshot(*u, cur.ID)
		if !e.session.ReplaceIf(version, snap) {
			return
		}
		e.cacheSnapshot(ctx, snap)
		e.logger.InfoContext(ctx, "Session refreshed by auth state change",
			log.FieldUserID, snap.ID,
			"expenses", len(snap.Expenses))
	}
}

func (e *Engine) switchUser(ctx context.Context, version uint64, u core.User) {
	snap := normalizeSnapshot(u, u.ID)
	if _, ok := e.session.ActivateIf(version, snap, session.Active, session.Syncing); !ok {
		return
	}
	if err := e.cache.SetLastUser(ctx, snap.ID); err != nil {
		e.logger.WarnContext(ctx, "Failed to remember last user", log.FieldError, err)
	}
	e.cacheSnapshot(ctx, snap)
	e.logger.InfoContext(ctx, "Active user switched by auth state change", log.FieldUserID, snap.ID)
	e.publish(ctx, events.SessionLoggedIn, snap.ID, map[string]any{"source": "auth_state"})
}

// normalizeSnapshot copies u under id, seeding default categories when it has
// none.
func normalizeSnapshot(u core.User, id string) core.User {
	snap := u.Clone()
	snap.ID = id
	if len(snap.Categories) == 0 {
		snap.Categories = core.DefaultCategories()
	}
	if snap.Expenses == nil {
		snap.Expenses = []core.Expense{}
	}
	return snap
}

func (e *Engine) cacheSnapshot(ctx context.Context, u core.User) {
	if err := e.cache.Save(ctx, u.ID, u); err != nil {
		e.logger.WarnContext(ctx, "Failed to cache snapshot", log.FieldUserID, u.ID, log.FieldError, err)
	}
}

// SyncNow runs a sync-then-reload for the active session and waits for it.
func (e *Engine) SyncNow(ctx context.Context) error {
	if !e.session.State().SignedIn() {
		return core.ErrNotLoggedIn
	}
	return e.syncAndReload(ctx, e.session.Version())
}

func (e *Engine) syncInBackground(version uint64, delay time.Duration) {
	e.wg.Add(1)
	go func() {
		defer e.wg.Done()
		if delay > 0 {
			t := time.NewTimer(delay)
			defer t.Stop()
			select {
			case <-e.ctx.Done():
				return
			case <-t.C:
			}
		}
		if e.session.Version() != version {
			e.logger.DebugContext(e.ctx, "Skipping sync for a finished session", log.FieldVersion, version)
			return
		}
		_ = e.syncAndReload(e.ctx, version)
	}()
}

// syncAndReload flushes pending remote writes, reloads the server copy and
// overwrites the session wholesale if it still belongs to version.
// Concurrent calls for the same session share one run.
func (e *Engine) syncAndReload(ctx context.Context, version uint64) error {
	_, err, _ := e.syncs.Do(fmt.Sprintf("sync-%d", version), func() (any, error) {
		return nil, e.doSync(ctx, version)
	})
	return err
}

func (e *Engine) doSync(ctx context.Context, version uint64) error {
	if !e.session.TransitionIf(version, session.Syncing, session.Active) {
		return nil
	}
	start := time.Now()
	cur, _ := e.session.Snapshot()

	fail := func(err error) error {
		e.session.CompleteSync(version, nil)
		e.logger.WarnContext(ctx, "Sync failed",
			log.FieldOperation, log.OpSync,
			log.FieldUserID, cur.ID,
			log.FieldError, err)
		e.publish(ctx, events.SyncFailed, cur.ID, map[string]any{"error": err.Error()})
		return core.WrapError(core.KindSync, core.ErrSync.Message, err)
	}

	if err := e.remote.Sync(ctx); err != nil {
		return fail(err)
	}
	fresh, err := e.remote.LoadSnapshot(ctx)
	if err != nil {
		return fail(err)
	}
	if fresh != nil {
		u := normalizeSnapshot(*fresh, cur.ID)
		fresh = &u
	}

	if !e.session.CompleteSync(version, fresh) {
		e.logger.InfoContext(ctx, "Discarding sync result for a finished session",
			log.FieldOperation, log.OpSync,
			log.FieldUserID, cur.ID)
		return nil
	}

	snap, _ := e.session.Snapshot()
	if err := e.cache.Save(ctx, snap.ID, snap); err != nil {
		e.logger.WarnContext(ctx, "Failed to cache synced snapshot", log.FieldError, err)
	}
	e.logger.InfoContext(ctx, "Sync completed",
		log.FieldOperation, log.OpSync,
		log.FieldUserID, snap.ID,
		"reloaded", fresh != nil,
		log.FieldDuration, time.Since(start).Milliseconds())
	e.publish(ctx, events.SyncCompleted, snap.ID, map[string]any{"expenses": len(snap.Expenses)})

	if err := e.mirror.Mirror(ctx, snap); err != nil {
		e.logger.WarnContext(ctx, "Sheet mirror failed", log.FieldOperation, log.OpMirror, log.FieldError, err)
	}
	return nil
}

func (e *Engine) publish(ctx context.Context, t events.Type, userID string, data map[string]any) {
	if err := e.events.Publish(ctx, events.New(t, userID, data)); err != nil {
		e.logger.WarnContext(ctx, "Failed to publish event", log.FieldEvent, t, log.FieldError, err)
	}
}

func (e *Engine) busyError(kind core.Kind, state session.State) error {
	if state.SignedIn() {
		return core.NewError(kind, "already logged in")
	}
	return core.NewError(kind, fmt.Sprintf("cannot start while %s", state))
}

func authMessage(err error) string {
	switch {
	case errors.Is(err, remote.ErrOffline):
		return "cannot log in while offline"
	case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
		return "login was cancelled"
	default:
		return core.ErrAuth.Message
	}
}

func registrationMessage(err error) string {
	switch {
	case errors.Is(err, remote.ErrEmailTaken):
		return "email is already registered"
	case errors.Is(err, remote.ErrWeakPassword):
		return core.ErrWeakPassword.Message
	case errors.Is(err, remote.ErrOffline):
		return "cannot register while offline"
	default:
		return core.ErrRegistration.Message
	}
}

func firstNonEmpty(vals ...string) string {
	for _, v := range vals {
		if strings.TrimSpace(v) != "" {
			return v
		}
	}
	return ""
}
