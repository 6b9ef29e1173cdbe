package model

import (
	"time"
)

// NotificationType is the closed set of notification categories. Event
// tags outside this set normalize to TypeSystem rather than failing, so
// producers can add tags before consumers learn about them.
type NotificationType string

const (
	TypeNewComment NotificationType = "NEW_COMMENT"
	TypeNewFollow  NotificationType = "NEW_FOLLOW"
	TypePostLiked  NotificationType = "POST_LIKED"
	TypeSystem     NotificationType = "SYSTEM"
)

// MapEventType normalizes an incoming event tag to the closed enum,
// defaulting to TypeSystem on no match.
func MapEventType(eventType string) NotificationType {
	switch NotificationType(eventType) {
	case TypeNewComment, TypeNewFollow, TypePostLiked, TypeSystem:
		return NotificationType(eventType)
	default:
		return TypeSystem
	}
}

const (
	MaxContentLength     = 300
	MaxRedirectURLLength = 500
)

// Notification is the durable record created by the delivery pipeline.
// A record is visible only to its recipient; every read and mutation is
// scoped jointly by (id, recipient_id).
type Notification struct {
	ID          int64            `json:"id" db:"id"`
	RecipientID int64            `json:"recipientId" db:"recipient_id"`
	Type        NotificationType `json:"type" db:"type"`
	Content     string           `json:"content" db:"content"`
	RedirectURL string           `json:"redirectUrl,omitempty" db:"redirect_url"`
	IsRead      bool             `json:"isRead" db:"is_read"`
	CreatedAt   time.Time        `json:"createdAt" db:"created_at"`
}

// NotificationEvent is the bus-carried wire shape. It is decoded once
// per message and discarded after being mapped to a stored record.
type NotificationEvent struct {
	EventType    string `json:"eventType"`
	SenderID     int64  `json:"senderId"`
	TargetUserID int64  `json:"targetUserId"`
	EntityID     int64  `json:"entityId"`
	Content      string `json:"content"`
	RedirectURL  string `json:"redirectUrl,omitempty"`
}

// SendNotificationRequest is the body of the authenticated sender
// endpoint, which publishes an event to the bus on the caller's behalf.
type SendNotificationRequest struct {
	EventType    string `json:"eventType" binding:"required"`
	TargetUserID int64  `json:"targetUserId" binding:"required"`
	EntityID     int64  `json:"entityId"`
	Content      string `json:"content" binding:"required,max=300"`
	RedirectURL  string `json:"redirectUrl" binding:"max=500"`
}
