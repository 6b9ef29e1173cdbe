package notification

import (
	"context"
	"fmt"
	"time"

	cache "github.com/patrickmn/go-cache"

	"github.com/notifyah/notifyah/internal/model"
	"github.com/notifyah/notifyah/internal/repository"
	apperrors "github.com/notifyah/notifyah/pkg/errors"
	"github.com/notifyah/notifyah/pkg/logger"
)

const (
	unreadCacheTTL     = 30 * time.Second
	unreadCacheCleanup = 5 * time.Minute
)

// Page mirrors the paginated listing shape of the REST surface.
type Page struct {
	Content       []*model.Notification `json:"content"`
	Page          int                   `json:"page"`
	Size          int                   `json:"size"`
	TotalElements int64                 `json:"totalElements"`
	TotalPages    int                   `json:"totalPages"`
}

// Service owns notification persistence and the read-state surface.
// Creation is the only path used by the delivery pipeline; everything
// else backs the CRUD endpoints, always scoped to the recipient.
type Service struct {
	repo        repository.NotificationRepository
	unreadCache *cache.Cache
	logger      *logger.Logger
}

func NewService(repo repository.NotificationRepository, log *logger.Logger) *Service {
	return &Service{
		repo:        repo,
		unreadCache: cache.New(unreadCacheTTL, unreadCacheCleanup),
		logger:      log.WithComponent("notification"),
	}
}

// CreateFromEvent maps a decoded bus event to a durable record and
// persists it. The event tag is normalized to the closed type set,
// unknown tags defaulting to SYSTEM. Duplicate events from bus
// redelivery produce independent records; the at-least-once contract
// accepts that.
func (s *Service) CreateFromEvent(ctx context.Context, evt *model.NotificationEvent) (*model.Notification, error) {
	if len(evt.Content) > model.MaxContentLength {
		return nil, apperrors.NewBadRequest(fmt.Sprintf("content exceeds %d characters", model.MaxContentLength), nil)
	}
	if len(evt.RedirectURL) > model.MaxRedirectURLLength {
		return nil, apperrors.NewBadRequest(fmt.Sprintf("redirect URL exceeds %d characters", model.MaxRedirectURLLength), nil)
	}

	n := &model.Notification{
		RecipientID: evt.TargetUserID,
		Type:        model.MapEventType(evt.EventType),
		Content:     evt.Content,
		RedirectURL: evt.RedirectURL,
		IsRead:      false,
	}

	if err := s.repo.Create(ctx, n); err != nil {
		return nil, fmt.Errorf("failed to persist notification: %w", err)
	}

	s.invalidateUnread(evt.TargetUserID)
	s.logger.Info("notification created", "notification_id", n.ID, "recipient_id", n.RecipientID, "type", string(n.Type))

	return n, nil
}

func (s *Service) List(ctx context.Context, userID int64, page, size int) (*Page, error) {
	if page < 0 {
		page = 0
	}
	if size <= 0 || size > 100 {
		size = 20
	}

	items, total, err := s.repo.ListByRecipient(ctx, userID, page*size, size)
	if err != nil {
		return nil, fmt.Errorf("failed to list notifications: %w", err)
	}

	totalPages := int((total + int64(size) - 1) / int64(size))
	return &Page{
		Content:       items,
		Page:          page,
		Size:          size,
		TotalElements: total,
		TotalPages:    totalPages,
	}, nil
}

func (s *Service) CountUnread(ctx context.Context, userID int64) (int64, error) {
	key := unreadKey(userID)
	if cached, ok := s.unreadCache.Get(key); ok {
		return cached.(int64), nil
	}

	count, err := s.repo.CountUnread(ctx, userID)
	if err != nil {
		return 0, fmt.Errorf("failed to count unread notifications: %w", err)
	}

	s.unreadCache.Set(key, count, cache.DefaultExpiration)
	return count, nil
}

func (s *Service) MarkRead(ctx context.Context, userID, id int64) error {
	if err := s.repo.MarkRead(ctx, id, userID); err != nil {
		return err
	}
	s.invalidateUnread(userID)
	return nil
}

func (s *Service) MarkAllRead(ctx context.Context, userID int64) (int64, error) {
	updated, err := s.repo.MarkAllRead(ctx, userID)
	if err != nil {
		return 0, err
	}
	s.invalidateUnread(userID)
	s.logger.Debug("marked all read", "user_id", userID, "updated", updated)
	return updated, nil
}

func (s *Service) Delete(ctx context.Context, userID, id int64) error {
	if err := s.repo.Delete(ctx, id, userID); err != nil {
		return err
	}
	s.invalidateUnread(userID)
	return nil
}

func (s *Service) invalidateUnread(userID int64) {
	s.unreadCache.Delete(unreadKey(userID))
}

func unreadKey(userID int64) string {
	return fmt.Sprintf("unread:%d", userID)
}
