package social

import (
	"context"
	"errors"
	"fmt"

	"github.com/takumayoshiokadotcom/kyonomi/internal/app"
	"github.com/takumayoshiokadotcom/kyonomi/internal/db"
	svcErr "github.com/takumayoshiokadotcom/kyonomi/internal/errors"
	"github.com/takumayoshiokadotcom/kyonomi/internal/session"
	"github.com/takumayoshiokadotcom/kyonomi/internal/store"
)

// Notifier delivers in-app notifications.
type Notifier interface {
	Emit(ctx context.Context, userID string, typ db.NotificationType, fromID, message string) (db.Notification, error)
}

// Service implements the follow graph: requests, responses, unfollows and
// the derived lists (mutual follows, followers, following, pending requests).
//
// An edge follower→following moves pending → accepted or pending → rejected.
// A rejected edge can be reopened by a new request from the same follower.
type Service struct {
	appCtx   *app.AppContext
	follows  store.Table[db.Follow]
	users    store.Table[db.User]
	notifier Notifier
}

func NewService(appCtx *app.AppContext, notifier Notifier) *Service {
	return &Service{
		appCtx:   appCtx,
		follows:  appCtx.Store.Follows,
		users:    appCtx.Store.Users,
		notifier: notifier,
	}
}

// RequestFollow asks targetID to accept the caller as a follower.
//
// Behavior:
//   - Rejects following yourself and unknown targets.
//   - Fails with ErrDuplicateFollow when the edge is pending or accepted.
//   - Reopens a rejected edge as pending with a fresh requested_at.
//   - Emits follow_request to the target.
func (s *Service) RequestFollow(ctx context.Context, sess *session.Session, targetID string) (db.Follow, error) {
	if targetID == "" {
		return db.Follow{}, svcErr.InvalidArg("target user id is required")
	}
	if targetID == sess.UserID {
		return db.Follow{}, svcErr.ErrSelfAction
	}
	if _, err := s.users.Get(ctx, targetID); store.IsNotFound(err) {
		return db.Follow{}, svcErr.ErrUserNotFound
	} else if err != nil {
		return db.Follow{}, err
	}

	now := s.appCtx.Clock.Now().UTC()
	existing, err := s.edge(ctx, sess.UserID, targetID)
	if err != nil {
		return db.Follow{}, err
	}

	var follow db.Follow
	switch {
	case existing == nil:
		follow, err = s.follows.Create(ctx, db.Follow{
			FollowerID:  sess.UserID,
			FollowingID: targetID,
			Status:      db.FollowPending,
			RequestedAt: now,
		})
		if errors.Is(err, store.ErrConflict) {
			return db.Follow{}, svcErr.ErrDuplicateFollow
		}
	case existing.Status == db.FollowRejected:
		follow, err = s.follows.Update(ctx, existing.ID, store.Fields{
			"status":       db.FollowPending,
			"requested_at": now,
			"responded_at": nil,
		})
	default:
		return db.Follow{}, svcErr.ErrDuplicateFollow
	}
	if err != nil {
		return db.Follow{}, err
	}

	s.notify(ctx, targetID, db.NotifyFollowRequest, sess.UserID,
		fmt.Sprintf("%sさんからフォロー申請が届きました", sess.User.Username))
	return follow, nil
}

// RespondToFollow accepts or rejects a pending request addressed to the caller.
// Accepting emits follow_accepted to the requester.
func (s *Service) RespondToFollow(ctx context.Context, sess *session.Session, followID string, decision db.FollowStatus) (db.Follow, error) {
	if decision != db.FollowAccepted && decision != db.FollowRejected {
		return db.Follow{}, svcErr.InvalidArg("decision must be accepted or rejected")
	}

	follow, err := s.follows.Get(ctx, followID)
	if store.IsNotFound(err) {
		return db.Follow{}, svcErr.ErrFollowNotFound
	} else if err != nil {
		return db.Follow{}, err
	}
	if follow.FollowingID != sess.UserID {
		return db.Follow{}, svcErr.Forbidden("only the requested user can respond")
	}
	if follow.Status != db.FollowPending {
		return db.Follow{}, svcErr.ErrAlreadyResponded
	}

	follow, err = s.follows.Update(ctx, followID, store.Fields{
		"status":       decision,
		"responded_at": s.appCtx.Clock.Now().UTC(),
	})
	if store.IsNotFound(err) {
		return db.Follow{}, svcErr.ErrFollowNotFound
	} else if err != nil {
		return db.Follow{}, err
	}

	if decision == db.FollowAccepted {
		s.notify(ctx, follow.FollowerID, db.NotifyFollowAccepted, sess.UserID,
			fmt.Sprintf("%sさんがフォロー申請を承認しました", sess.User.Username))
	}
	return follow, nil
}

// Unfollow removes the caller's accepted edge to targetID.
func (s *Service) Unfollow(ctx context.Context, sess *session.Session, targetID string) error {
	edges, err := s.follows.List(ctx, store.Eq(
		"follower_id", sess.UserID,
		"following_id", targetID,
		"status", db.FollowAccepted,
	))
	if err != nil {
		return err
	}
	if len(edges) == 0 {
		return svcErr.ErrFollowNotFound
	}
	if err := s.follows.Delete(ctx, edges[0].ID); store.IsNotFound(err) {
		return svcErr.ErrFollowNotFound
	} else if err != nil {
		return err
	}
	return nil
}

// MutualFollows returns the ids of users with accepted edges in both
// directions, in the order userID started following them.
func (s *Service) MutualFollows(ctx context.Context, userID string) ([]string, error) {
	following, err := s.follows.List(ctx, store.Eq("follower_id", userID, "status", db.FollowAccepted))
	if err != nil {
		return nil, err
	}
	followers, err := s.follows.List(ctx, store.Eq("following_id", userID, "status", db.FollowAccepted))
	if err != nil {
		return nil, err
	}

	back := make(map[string]bool, len(followers))
	for _, f := range followers {
		back[f.FollowerID] = true
	}

	out := []string{}
	for _, f := range following {
		if back[f.FollowingID] {
			out = append(out, f.FollowingID)
			delete(back, f.FollowingID)
		}
	}
	return out, nil
}

// PendingRequests returns the follow requests waiting for userID's answer.
func (s *Service) PendingRequests(ctx context.Context, userID string) ([]db.Follow, error) {
	reqs, err := s.follows.List(ctx, store.Eq("following_id", userID, "status", db.FollowPending))
	if err != nil {
		return nil, err
	}
	if reqs == nil {
		reqs = []db.Follow{}
	}
	return reqs, nil
}

// Followers returns users with an accepted edge to userID.
func (s *Service) Followers(ctx context.Context, userID string) ([]db.PublicUser, error) {
	edges, err := s.follows.List(ctx, store.Eq("following_id", userID, "status", db.FollowAccepted))
	if err != nil {
		return nil, err
	}
	ids := make([]string, len(edges))
	for i, e := range edges {
		ids[i] = e.FollowerID
	}
	return s.publicUsers(ctx, ids)
}

// Following returns users userID follows with an accepted edge.
func (s *Service) Following(ctx context.Context, userID string) ([]db.PublicUser, error) {
	edges, err := s.follows.List(ctx, store.Eq("follower_id", userID, "status", db.FollowAccepted))
	if err != nil {
		return nil, err
	}
	ids := make([]string, len(edges))
	for i, e := range edges {
		ids[i] = e.FollowingID
	}
	return s.publicUsers(ctx, ids)
}

func (s *Service) edge(ctx context.Context, followerID, followingID string) (*db.Follow, error) {
	edges, err := s.follows.List(ctx, store.Eq("follower_id", followerID, "following_id", followingID))
	if err != nil {
		return nil, err
	}
	if len(edges) == 0 {
		return nil, nil
	}
	return &edges[0], nil
}

// publicUsers loads users in order, skipping ids that no longer resolve.
func (s *Service) publicUsers(ctx context.Context, ids []string) ([]db.PublicUser, error) {
	out := make([]db.PublicUser, 0, len(ids))
	for _, id := range ids {
		u, err := s.users.Get(ctx, id)
		if store.IsNotFound(err) {
			s.appCtx.Logger.Debug("skipping dangling follow edge", "user", id)
			continue
		} else if err != nil {
			return nil, err
		}
		out = append(out, u.Public())
	}
	return out, nil
}

// notify emits a notification. A failed emit is logged and does not fail the
// operation that triggered it.
func (s *Service) notify(ctx context.Context, userID string, typ db.NotificationType, fromID, message string) {
	if _, err := s.notifier.Emit(ctx, userID, typ, fromID, message); err != nil {
		s.appCtx.Logger.Warn("failed to emit notification", "user", userID, "type", typ, "err", err)
	}
}
