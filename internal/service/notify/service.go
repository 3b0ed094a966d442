package notify

import (
	"cmp"
	"context"
	"fmt"
	"slices"

	"github.com/takumayoshiokadotcom/kyonomi/internal/app"
	"github.com/takumayoshiokadotcom/kyonomi/internal/db"
	svcErr "github.com/takumayoshiokadotcom/kyonomi/internal/errors"
	"github.com/takumayoshiokadotcom/kyonomi/internal/session"
	"github.com/takumayoshiokadotcom/kyonomi/internal/store"
	"github.com/takumayoshiokadotcom/kyonomi/internal/utils/pagination"
)

// DefaultPageSize is used by ListPage when the caller passes no limit.
const DefaultPageSize = 20

// Service appends notifications for users and reads them back.
// Notifications are never deduplicated; every event is a new record.
type Service struct {
	appCtx        *app.AppContext
	notifications store.Table[db.Notification]
}

func NewService(appCtx *app.AppContext) *Service {
	return &Service{
		appCtx:        appCtx,
		notifications: appCtx.Store.Notifications,
	}
}

// Inbox is a user's notifications newest first plus how many are unread.
type Inbox struct {
	Items  []db.Notification `json:"items"`
	Unread int64             `json:"unread"`
}

// Page is one slice of an inbox. NextToken is nil on the last page.
type Page struct {
	Items     []db.Notification `json:"items"`
	Unread    int64             `json:"unread"`
	NextToken *string           `json:"next_token"`
}

// Emit appends an unread notification for userID and drops its cached
// unread count.
func (s *Service) Emit(ctx context.Context, userID string, typ db.NotificationType, fromID, message string) (db.Notification, error) {
	n, err := s.notifications.Create(ctx, db.Notification{
		UserID:     userID,
		Type:       typ,
		FromUserID: fromID,
		Message:    message,
		CreatedAt:  s.appCtx.Clock.Now().UTC(),
	})
	if err != nil {
		return db.Notification{}, fmt.Errorf("emit %s: %w", typ, err)
	}

	s.invalidate(ctx, userID)
	s.appCtx.Logger.Debug("notification emitted", "user", userID, "type", typ, "from", fromID)
	return n, nil
}

// ListFor returns every notification of userID sorted by created_at
// descending, ties broken by id descending.
func (s *Service) ListFor(ctx context.Context, userID string) (*Inbox, error) {
	items, err := s.sorted(ctx, userID)
	if err != nil {
		return nil, err
	}
	unread := countUnread(items)
	s.cacheCount(ctx, userID, unread)
	return &Inbox{Items: items, Unread: unread}, nil
}

// ListPage returns up to limit notifications after the position encoded in
// token, in the same order as ListFor.
//
// Example:
//
//	page, _ := svc.ListPage(ctx, "user1", nil, 10)
//	next, _ := svc.ListPage(ctx, "user1", page.NextToken, 10)
func (s *Service) ListPage(ctx context.Context, userID string, token *string, limit int) (*Page, error) {
	if limit <= 0 {
		limit = DefaultPageSize
	}

	var cur pagination.Cursor
	if token != nil {
		c, err := pagination.Parse(*token, userID)
		if err != nil {
			return nil, svcErr.InvalidArg(err.Error())
		}
		cur = c
	}

	items, err := s.sorted(ctx, userID)
	if err != nil {
		return nil, err
	}

	page := &Page{Items: []db.Notification{}, Unread: countUnread(items)}
	for _, n := range items {
		if !cur.After(n.CreatedAt.UnixMilli(), n.ID) {
			continue
		}
		if len(page.Items) == limit {
			last := page.Items[len(page.Items)-1]
			next := pagination.Cursor{Owner: userID, ID: last.ID, CreatedUnix: last.CreatedAt.UnixMilli()}.Token()
			page.NextToken = &next
			break
		}
		page.Items = append(page.Items, n)
	}
	return page, nil
}

// MarkRead flags one of the caller's notifications as read. Notifications of
// other users are reported as not found.
func (s *Service) MarkRead(ctx context.Context, sess *session.Session, id string) (db.Notification, error) {
	n, err := s.notifications.Get(ctx, id)
	if store.IsNotFound(err) || (err == nil && n.UserID != sess.UserID) {
		return db.Notification{}, svcErr.ErrNotificationGone
	} else if err != nil {
		return db.Notification{}, err
	}
	if n.IsRead {
		return n, nil
	}

	n, err = s.notifications.Update(ctx, id, store.Fields{"is_read": true})
	if err != nil {
		return db.Notification{}, err
	}
	s.invalidate(ctx, sess.UserID)
	return n, nil
}

// MarkAllRead flags every unread notification of the caller and returns how
// many changed.
func (s *Service) MarkAllRead(ctx context.Context, sess *session.Session) (int, error) {
	unread, err := s.notifications.List(ctx, store.Eq("user_id", sess.UserID, "is_read", false))
	if err != nil {
		return 0, err
	}

	marked := 0
	for _, n := range unread {
		if _, err := s.notifications.Update(ctx, n.ID, store.Fields{"is_read": true}); err != nil {
			if store.IsNotFound(err) {
				continue
			}
			s.invalidate(ctx, sess.UserID)
			return marked, err
		}
		marked++
	}
	s.invalidate(ctx, sess.UserID)
	return marked, nil
}

// UnreadCount returns how many unread notifications userID has.
// Cache-first strategy:
//  1. Attempts to read from Redis (notifications:unread:userID).
//  2. On a miss, counts from the store and caches the result for 1h.
func (s *Service) UnreadCount(ctx context.Context, userID string) (int64, error) {
	if n, ok, err := s.appCtx.RedisCache.GetUnreadCount(ctx, userID); err == nil && ok {
		return n, nil
	}

	unread, err := s.notifications.List(ctx, store.Eq("user_id", userID, "is_read", false))
	if err != nil {
		return 0, err
	}
	count := int64(len(unread))
	s.cacheCount(ctx, userID, count)
	return count, nil
}

func (s *Service) sorted(ctx context.Context, userID string) ([]db.Notification, error) {
	items, err := s.notifications.List(ctx, store.Eq("user_id", userID))
	if err != nil {
		return nil, err
	}
	slices.SortStableFunc(items, func(a, b db.Notification) int {
		if c := cmp.Compare(b.CreatedAt.UnixMilli(), a.CreatedAt.UnixMilli()); c != 0 {
			return c
		}
		return cmp.Compare(b.ID, a.ID)
	})
	return items, nil
}

func (s *Service) cacheCount(ctx context.Context, userID string, n int64) {
	if err := s.appCtx.RedisCache.SetUnreadCount(ctx, userID, n); err != nil {
		s.appCtx.Logger.Warn("failed to cache unread count", "user", userID, "err", err)
	}
}

func (s *Service) invalidate(ctx context.Context, userID string) {
	if err := s.appCtx.RedisCache.InvalidateUnreadCount(ctx, userID); err != nil {
		s.appCtx.Logger.Warn("failed to invalidate unread count", "user", userID, "err", err)
	}
}

func countUnread(items []db.Notification) int64 {
	var n int64
	for _, it := range items {
		if !it.IsRead {
			n++
		}
	}
	return n
}
