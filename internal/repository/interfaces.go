package repository

import (
	"context"
	"errors"

	"github.com/notifyah/notifyah/internal/model"
)

// ErrNotFound is returned when a row does not exist or is not owned by
// the requesting recipient. The two cases are deliberately
// indistinguishable to callers.
var ErrNotFound = errors.New("not found")

// NotificationRepository is the durability boundary of the delivery
// pipeline. Create must be atomic per call; duplicate events from the
// at-least-once bus produce independent rows.
type NotificationRepository interface {
	Create(ctx context.Context, n *model.Notification) error
	ListByRecipient(ctx context.Context, recipientID int64, offset, limit int) ([]*model.Notification, int64, error)
	CountUnread(ctx context.Context, recipientID int64) (int64, error)
	MarkRead(ctx context.Context, id, recipientID int64) error
	MarkAllRead(ctx context.Context, recipientID int64) (int64, error)
	Delete(ctx context.Context, id, recipientID int64) error
}

type UserRepository interface {
	Create(ctx context.Context, user *model.User) error
	Get(ctx context.Context, id int64) (*model.User, error)
	GetByUsernameOrEmail(ctx context.Context, usernameOrEmail string) (*model.User, error)
	ExistsByUsername(ctx context.Context, username string) (bool, error)
	ExistsByEmail(ctx context.Context, email string) (bool, error)
}
