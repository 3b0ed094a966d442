package account

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"strings"
	"unicode/utf8"

	"golang.org/x/crypto/bcrypt"

	"github.com/takumayoshiokadotcom/kyonomi/internal/app"
	"github.com/takumayoshiokadotcom/kyonomi/internal/clock"
	"github.com/takumayoshiokadotcom/kyonomi/internal/db"
	svcErr "github.com/takumayoshiokadotcom/kyonomi/internal/errors"
	"github.com/takumayoshiokadotcom/kyonomi/internal/session"
	"github.com/takumayoshiokadotcom/kyonomi/internal/store"
)

const avatarPlaceholder = "https://via.placeholder.com/100x100?text="

// Service owns user accounts: registration, login, profile edits and the
// daily drinking status.
//
// Every method that changes the logged-in user writes the change to the store
// with a partial update and then re-saves the session snapshot.
type Service struct {
	appCtx *app.AppContext
	users  store.Table[db.User]
}

func NewService(appCtx *app.AppContext) *Service {
	return &Service{appCtx: appCtx, users: appCtx.Store.Users}
}

type RegisterInput struct {
	Email    string `json:"email"`
	Username string `json:"username"`
	Password string `json:"password"`
	Bio      string `json:"bio"`
}

// Register creates a user and logs them in.
//
// Behavior:
//   - Rejects an email that is already registered, without writing anything.
//   - Hashes the password with bcrypt.
//   - Derives a placeholder avatar from the first character of the username.
func (s *Service) Register(ctx context.Context, in RegisterInput) (*session.Session, error) {
	in.Email = strings.TrimSpace(in.Email)
	in.Username = strings.TrimSpace(in.Username)
	if in.Email == "" || !strings.Contains(in.Email, "@") {
		return nil, svcErr.InvalidArg("a valid email is required")
	}
	if in.Username == "" {
		return nil, svcErr.InvalidArg("username is required")
	}
	if in.Password == "" {
		return nil, svcErr.InvalidArg("password is required")
	}

	existing, err := s.users.List(ctx, store.Eq("email", in.Email))
	if err != nil {
		return nil, err
	}
	if len(existing) > 0 {
		return nil, svcErr.ErrDuplicateEmail
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(in.Password), s.appCtx.BcryptCost)
	if err != nil {
		return nil, svcErr.ErrInternal(fmt.Errorf("hash password: %w", err))
	}

	user, err := s.users.Create(ctx, db.User{
		Email:        in.Email,
		Username:     in.Username,
		PasswordHash: string(hash),
		Bio:          in.Bio,
		AvatarURL:    placeholderAvatar(in.Username),
		IsActive:     true,
	})
	if errors.Is(err, store.ErrConflict) {
		return nil, svcErr.ErrDuplicateEmail
	} else if err != nil {
		return nil, err
	}

	s.appCtx.Logger.Info("user registered", "user", user.ID)
	return s.startSession(ctx, user)
}

// Login checks the credentials and starts a session. A drinking status left
// over from another day is cleared before the session is returned.
func (s *Service) Login(ctx context.Context, email, password string) (*session.Session, error) {
	users, err := s.users.List(ctx, store.Eq("email", strings.TrimSpace(email)))
	if err != nil {
		return nil, err
	}
	if len(users) == 0 {
		return nil, svcErr.ErrInvalidCredentials
	}
	user := users[0]
	if bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(password)) != nil {
		return nil, svcErr.ErrInvalidCredentials
	}

	sess, err := s.startSession(ctx, user)
	if err != nil {
		return nil, err
	}
	if _, err := s.RefreshDailyStatus(ctx, sess); err != nil {
		return nil, err
	}
	return sess, nil
}

// Logout ends the session. Unknown tokens are not an error.
func (s *Service) Logout(ctx context.Context, token string) error {
	return s.appCtx.Sessions.Delete(ctx, token)
}

// Me returns the caller's profile as currently stored.
func (s *Service) Me(ctx context.Context, sess *session.Session) (db.Profile, error) {
	user, err := s.users.Get(ctx, sess.UserID)
	if store.IsNotFound(err) {
		return db.Profile{}, svcErr.ErrUserNotFound
	} else if err != nil {
		return db.Profile{}, err
	}
	return user.Profile(), nil
}

// ProfileInput carries the editable profile fields. Nil fields are left as they are.
type ProfileInput struct {
	Username *string `json:"username"`
	Bio      *string `json:"bio"`
	Phone    *string `json:"phone"`
}

func (s *Service) UpdateProfile(ctx context.Context, sess *session.Session, in ProfileInput) (db.Profile, error) {
	fields := store.Fields{}
	if in.Username != nil {
		name := strings.TrimSpace(*in.Username)
		if name == "" {
			return db.Profile{}, svcErr.InvalidArg("username cannot be empty")
		}
		fields["username"] = name
	}
	if in.Bio != nil {
		fields["bio"] = *in.Bio
	}
	if in.Phone != nil {
		fields["phone"] = strings.TrimSpace(*in.Phone)
	}
	if len(fields) == 0 {
		return sess.User.Profile(), nil
	}

	user, err := s.update(ctx, sess, fields)
	if err != nil {
		return db.Profile{}, err
	}
	return user.Profile(), nil
}

// SetDrinking sets today's drinking status. A nil value toggles the current one.
// Turning it on records today's date; turning it off clears the date.
func (s *Service) SetDrinking(ctx context.Context, sess *session.Session, value *bool) (db.Profile, error) {
	on := !sess.User.IsDrinkingToday
	if value != nil {
		on = *value
	}

	fields := store.Fields{"is_drinking_today": on, "last_drinking_date": nil}
	if on {
		fields["last_drinking_date"] = clock.Today(s.appCtx.Clock)
	}

	user, err := s.update(ctx, sess, fields)
	if err != nil {
		return db.Profile{}, err
	}
	s.appCtx.Logger.Debug("drinking status changed", "user", user.ID, "on", on)
	return user.Profile(), nil
}

// RefreshDailyStatus clears a drinking status whose date is not today and
// reports whether anything changed. Once cleared, further calls are no-ops.
//
// The check runs against the stored user, since another session may have
// changed the status since this one was saved. The session copy is brought
// up to date either way.
func (s *Service) RefreshDailyStatus(ctx context.Context, sess *session.Session) (bool, error) {
	user, err := s.users.Get(ctx, sess.UserID)
	if store.IsNotFound(err) {
		return false, svcErr.ErrUserNotFound
	} else if err != nil {
		return false, err
	}
	if !user.StaleOn(clock.Today(s.appCtx.Clock)) {
		sess.SetUser(user)
		return false, nil
	}
	if _, err := s.update(ctx, sess, store.Fields{"is_drinking_today": false, "last_drinking_date": nil}); err != nil {
		return false, err
	}
	s.appCtx.Logger.Info("stale drinking status reset", "user", sess.UserID)
	return true, nil
}

// Search returns users whose username, email or bio contains query, without
// the caller. An empty query yields no results.
func (s *Service) Search(ctx context.Context, sess *session.Session, query string) ([]db.PublicUser, error) {
	out := []db.PublicUser{}
	query = strings.TrimSpace(query)
	if query == "" {
		return out, nil
	}

	users, err := s.users.List(ctx, store.Filter{Search: query})
	if err != nil {
		return nil, err
	}
	for _, u := range users {
		if u.ID == sess.UserID {
			continue
		}
		out = append(out, u.Public())
	}
	return out, nil
}

func (s *Service) update(ctx context.Context, sess *session.Session, fields store.Fields) (db.User, error) {
	user, err := s.users.Update(ctx, sess.UserID, fields)
	if store.IsNotFound(err) {
		return db.User{}, svcErr.ErrUserNotFound
	} else if err != nil {
		return db.User{}, err
	}
	sess.SetUser(user)
	if err := s.appCtx.Sessions.Save(ctx, sess); err != nil {
		return db.User{}, fmt.Errorf("save session: %w", err)
	}
	return user, nil
}

func (s *Service) startSession(ctx context.Context, user db.User) (*session.Session, error) {
	sess := session.New(user, s.appCtx.Clock.Now())
	if err := s.appCtx.Sessions.Save(ctx, sess); err != nil {
		return nil, fmt.Errorf("save session: %w", err)
	}
	return sess, nil
}

func placeholderAvatar(username string) string {
	r, _ := utf8.DecodeRuneInString(username)
	return avatarPlaceholder + url.QueryEscape(string(r))
}
