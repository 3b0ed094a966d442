package matching

import (
	"context"
	"errors"
	"fmt"

	"github.com/takumayoshiokadotcom/kyonomi/internal/app"
	"github.com/takumayoshiokadotcom/kyonomi/internal/clock"
	"github.com/takumayoshiokadotcom/kyonomi/internal/db"
	svcErr "github.com/takumayoshiokadotcom/kyonomi/internal/errors"
	"github.com/takumayoshiokadotcom/kyonomi/internal/session"
	"github.com/takumayoshiokadotcom/kyonomi/internal/store"
)

// Notifier delivers in-app notifications.
type Notifier interface {
	Emit(ctx context.Context, userID string, typ db.NotificationType, fromID, message string) (db.Notification, error)
}

// Graph answers who follows whom.
type Graph interface {
	MutualFollows(ctx context.Context, userID string) ([]string, error)
}

// Service matches users who like each other on the same day.
// Likes are scoped to a calendar date: one active like per
// (liker, liked, date), and a match needs both directions on that date.
type Service struct {
	appCtx   *app.AppContext
	likes    store.Table[db.Like]
	users    store.Table[db.User]
	graph    Graph
	notifier Notifier
}

func NewService(appCtx *app.AppContext, graph Graph, notifier Notifier) *Service {
	return &Service{
		appCtx:   appCtx,
		likes:    appCtx.Store.Likes,
		users:    appCtx.Store.Users,
		graph:    graph,
		notifier: notifier,
	}
}

// Candidate is a mutual follow who is drinking today.
type Candidate struct {
	db.PublicUser
	LikedToday bool `json:"liked_today"`
}

// LikeResult reports the stored like and, on a match, the counterpart's contact.
type LikeResult struct {
	Like    db.Like     `json:"like"`
	Matched bool        `json:"matched"`
	Contact *db.Contact `json:"contact,omitempty"`
}

// Candidates lists mutual follows whose drinking status is set for today.
// Users that no longer exist are skipped.
func (s *Service) Candidates(ctx context.Context, sess *session.Session) ([]Candidate, error) {
	ids, err := s.graph.MutualFollows(ctx, sess.UserID)
	if err != nil {
		return nil, err
	}

	today := clock.Today(s.appCtx.Clock)
	sent, err := s.likes.List(ctx, store.Eq("liker_id", sess.UserID, "date", today, "is_active", true))
	if err != nil {
		return nil, err
	}
	liked := make(map[string]bool, len(sent))
	for _, l := range sent {
		liked[l.LikedID] = true
	}

	out := []Candidate{}
	for _, id := range ids {
		u, err := s.users.Get(ctx, id)
		if store.IsNotFound(err) {
			continue
		} else if err != nil {
			return nil, err
		}
		if !u.DrinkingOn(today) {
			continue
		}
		out = append(out, Candidate{PublicUser: u.Public(), LikedToday: liked[id]})
	}
	return out, nil
}

// SendLike records today's like from the caller to targetID.
//
// Behavior:
//   - Fails with ErrDuplicateLike when an active like for today already exists.
//   - Creates the like, then looks for the reciprocal like for the same date.
//   - On a match both likes are marked matched, match_made goes to both users
//     and the target's contact is returned.
//   - Otherwise like_received goes to the target.
func (s *Service) SendLike(ctx context.Context, sess *session.Session, targetID string) (*LikeResult, error) {
	if targetID == "" {
		return nil, svcErr.InvalidArg("target user id is required")
	}
	if targetID == sess.UserID {
		return nil, svcErr.ErrSelfAction
	}
	target, err := s.users.Get(ctx, targetID)
	if store.IsNotFound(err) {
		return nil, svcErr.ErrUserNotFound
	} else if err != nil {
		return nil, err
	}

	today := clock.Today(s.appCtx.Clock)
	existing, err := s.activeLikes(ctx, sess.UserID, targetID, today)
	if err != nil {
		return nil, err
	}
	if len(existing) > 0 {
		return nil, svcErr.ErrDuplicateLike
	}

	like, err := s.likes.Create(ctx, db.Like{
		LikerID:  sess.UserID,
		LikedID:  targetID,
		Date:     today,
		IsActive: true,
	})
	if errors.Is(err, store.ErrConflict) {
		// lost a race with a concurrent send
		return nil, svcErr.ErrDuplicateLike
	} else if err != nil {
		return nil, err
	}

	// the reciprocal check must see our own like already stored
	reciprocal, err := s.activeLikes(ctx, targetID, sess.UserID, today)
	if err != nil {
		return nil, err
	}
	if len(reciprocal) == 0 {
		s.notify(ctx, targetID, db.NotifyLikeReceived, sess.UserID,
			fmt.Sprintf("%sさんからいいねが届きました", sess.User.Username))
		return &LikeResult{Like: like}, nil
	}

	like, err = s.likes.Update(ctx, like.ID, store.Fields{"matched": true})
	if err != nil {
		return nil, err
	}
	if _, err := s.likes.Update(ctx, reciprocal[0].ID, store.Fields{"matched": true}); err != nil {
		return nil, err
	}

	s.notify(ctx, sess.UserID, db.NotifyMatchMade, targetID,
		fmt.Sprintf("%sさんとマッチしました！", target.Username))
	s.notify(ctx, targetID, db.NotifyMatchMade, sess.UserID,
		fmt.Sprintf("%sさんとマッチしました！", sess.User.Username))

	s.appCtx.Logger.Info("match made", "user", sess.UserID, "target", targetID, "date", today)
	contact := target.Contact()
	return &LikeResult{Like: like, Matched: true, Contact: &contact}, nil
}

// Contact re-reveals targetID's contact details to a user matched with them today.
func (s *Service) Contact(ctx context.Context, sess *session.Session, targetID string) (db.Contact, error) {
	matched, err := s.likes.List(ctx, store.Eq(
		"liker_id", sess.UserID,
		"liked_id", targetID,
		"date", clock.Today(s.appCtx.Clock),
		"matched", true,
	))
	if err != nil {
		return db.Contact{}, err
	}
	if len(matched) == 0 {
		return db.Contact{}, svcErr.ErrNotMatched
	}

	target, err := s.users.Get(ctx, targetID)
	if store.IsNotFound(err) {
		return db.Contact{}, svcErr.ErrUserNotFound
	} else if err != nil {
		return db.Contact{}, err
	}
	return target.Contact(), nil
}

func (s *Service) activeLikes(ctx context.Context, likerID, likedID, date string) ([]db.Like, error) {
	return s.likes.List(ctx, store.Eq(
		"liker_id", likerID,
		"liked_id", likedID,
		"date", date,
		"is_active", true,
	))
}

// notify emits a notification. A failed emit is logged and does not fail the
// like that triggered it.
func (s *Service) notify(ctx context.Context, userID string, typ db.NotificationType, fromID, message string) {
	if _, err := s.notifier.Emit(ctx, userID, typ, fromID, message); err != nil {
		s.appCtx.Logger.Warn("failed to emit notification", "user", userID, "type", typ, "err", err)
	}
}
