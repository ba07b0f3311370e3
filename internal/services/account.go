package services

import (
	"context"
	"errors"
	"strings"

	"chitieu/internal/core"
	"chitieu/internal/log"
	"chitieu/internal/remote"
	"chitieu/internal/session"
)

// UpdateProfile changes the personal fields remotely first. The local
// snapshot only changes once the remote store accepted the update.
func (e *Engine) UpdateProfile(ctx context.Context, update core.ProfileUpdate) (core.User, Persistence, error) {
	update.Name = strings.TrimSpace(update.Name)
	update.Username = strings.TrimSpace(update.Username)
	update.Email = strings.TrimSpace(update.Email)
	if update.Name == "" || update.Email == "" {
		return core.User{}, Persistence{}, core.NewError(core.KindProfile, "name and email are required")
	}
	if !e.session.State().SignedIn() {
		return core.User{}, Persistence{}, core.ErrNotLoggedIn
	}

	if err := e.remote.UpdateProfile(ctx, update); err != nil {
		e.logger.WarnContext(ctx, "Profile update rejected", log.FieldOperation, log.OpUpdate, log.FieldError, err)
		return core.User{}, Persistence{}, core.WrapError(core.KindProfile, accountMessage(err, core.ErrProfile.Message), err)
	}

	u, err := e.session.Mutate(func(u *core.User) error {
		u.Name = update.Name
		u.Username = update.Username
		u.Email = update.Email
		return nil
	})
	if err != nil {
		return core.User{}, Persistence{}, err
	}
	e.logger.InfoContext(ctx, "Profile updated", log.FieldOperation, log.OpUpdate, log.FieldUserID, u.ID)
	return u, e.persist(ctx), nil
}

// ChangePassword validates the confirmation and length locally before asking
// the remote store.
func (e *Engine) ChangePassword(ctx context.Context, current, next, confirm string) error {
	if next != confirm {
		return core.ErrPasswordMismatch
	}
	if len(next) < core.MinPasswordLength {
		return core.NewError(core.KindPassword, core.ErrWeakPassword.Message)
	}
	if !e.session.State().SignedIn() {
		return core.ErrNotLoggedIn
	}
	if err := e.remote.ChangePassword(ctx, current, next); err != nil {
		e.logger.WarnContext(ctx, "Password change rejected", log.FieldOperation, log.OpUpdate, log.FieldError, err)
		return core.WrapError(core.KindPassword, accountMessage(err, core.ErrPassword.Message), err)
	}
	e.logger.InfoContext(ctx, "Password changed", log.FieldOperation, log.OpUpdate)
	return nil
}

// SetAvatar stores an already encoded image (usually a data URL) on the
// snapshot.
func (e *Engine) SetAvatar(ctx context.Context, avatar string) (Persistence, error) {
	return e.setAvatar(ctx, strings.TrimSpace(avatar))
}

func (e *Engine) RemoveAvatar(ctx context.Context) (Persistence, error) {
	return e.setAvatar(ctx, "")
}

func (e *Engine) setAvatar(ctx context.Context, avatar string) (Persistence, error) {
	u, err := e.session.Mutate(func(u *core.User) error {
		u.Avatar = avatar
		return nil
	})
	if err != nil {
		return Persistence{}, err
	}
	e.logger.InfoContext(ctx, "Avatar changed", log.FieldOperation, log.OpUpdate, log.FieldUserID, u.ID, "removed", avatar == "")
	return e.persist(ctx), nil
}

// UploadAvatar sends image to the remote store and keeps the returned URL as
// the avatar.
func (e *Engine) UploadAvatar(ctx context.Context, image []byte) (string, Persistence, error) {
	if len(image) == 0 {
		return "", Persistence{}, core.NewError(core.KindProfile, "avatar image is empty")
	}
	if len(image) > core.MaxAvatarBytes {
		return "", Persistence{}, core.NewError(core.KindProfile, "avatar image must be 5 MB or smaller")
	}
	if !e.session.State().SignedIn() {
		return "", Persistence{}, core.ErrNotLoggedIn
	}
	url, err := e.remote.UploadAvatar(ctx, image)
	if err != nil {
		return "", Persistence{}, core.WrapError(core.KindProfile, accountMessage(err, "avatar upload failed"), err)
	}
	p, err := e.setAvatar(ctx, url)
	if err != nil {
		return "", Persistence{}, err
	}
	return url, p, nil
}

// DeleteAccount removes the account remotely, then drops the session, its
// cached snapshot and the last-user pointer.
func (e *Engine) DeleteAccount(ctx context.Context, password string) error {
	_, version, ok := e.session.Transition(session.LoggingOut, session.Active, session.Syncing)
	if !ok {
		return core.ErrNotLoggedIn
	}
	u, _ := e.session.Snapshot()

	if err := e.remote.DeleteAccount(ctx, password); err != nil {
		e.session.TransitionIf(version, session.Active, session.LoggingOut)
		e.logger.WarnContext(ctx, "Account deletion rejected", log.FieldOperation, log.OpDelete, log.FieldUserID, u.ID, log.FieldError, err)
		return core.WrapError(core.KindAccount, accountMessage(err, core.ErrAccount.Message), err)
	}

	if err := e.cache.Clear(ctx, u.ID); err != nil {
		e.logger.WarnContext(ctx, "Failed to clear cached snapshot", log.FieldUserID, u.ID, log.FieldError, err)
	}
	e.endSession(ctx, version, u.ID, "account_deleted")
	return nil
}

func accountMessage(err error, fallback string) string {
	switch {
	case errors.Is(err, remote.ErrWrongPassword):
		return "current password is incorrect"
	case errors.Is(err, remote.ErrEmailTaken):
		return "email is already registered"
	case errors.Is(err, remote.ErrOffline):
		return "this action needs a connection"
	case errors.Is(err, remote.ErrNotSignedIn):
		return "session expired, please log in again"
	case errors.Is(err, remote.ErrAvatarTooLarge):
		return "avatar image must be 5 MB or smaller"
	case errors.Is(err, remote.ErrWeakPassword):
		return core.ErrWeakPassword.Message
	default:
		return fallback
	}
}
