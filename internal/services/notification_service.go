package services

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"tms/internal/domain"
	"tms/internal/domain/models"
	"tms/internal/metrics"
	"tms/internal/push"
	"tms/internal/report"
	"tms/internal/repositories"
	"tms/internal/utils"
)

var (
	notificationTypes = map[string]bool{"info": true, "warning": true, "success": true, "error": true, "announcement": true}
	audiences         = map[string]bool{
		models.AudienceAll:           true,
		models.AudienceStudents:      true,
		models.AudienceDrivers:       true,
		models.AudienceSpecificRoute: true,
		models.AudienceSpecificUser:  true,
	}
)

type NotificationService struct {
	Notifications repositories.NotificationRepository
	Students      repositories.StudentRepository
	Drivers       repositories.DriverRepository
	Sender        push.Sender
	Now           func() time.Time
	RequestID     string
}

func (s NotificationService) now() time.Time {
	if s.Now != nil {
		return s.Now()
	}
	return time.Now()
}

// Publish validates, stores and pushes a notification.
func (s NotificationService) Publish(ctx context.Context, n models.Notification) (models.Notification, error) {
	n.Title = utils.NormalizeSpace(n.Title)
	n.Message = strings.TrimSpace(n.Message)
	if n.Title == "" {
		return n, domain.ValidationError{Field: "title", Msg: "required"}
	}
	if n.Message == "" {
		return n, domain.ValidationError{Field: "message", Msg: "required"}
	}
	if n.Type == "" {
		n.Type = "info"
	}
	if !notificationTypes[n.Type] {
		return n, domain.ValidationError{Field: "type", Msg: "unknown type"}
	}
	if n.Category == "" {
		n.Category = "general"
	}
	if n.TargetAudience == "" {
		n.TargetAudience = models.AudienceAll
	}
	if !audiences[n.TargetAudience] {
		return n, domain.ValidationError{Field: "target_audience", Msg: "unknown audience"}
	}
	if n.TargetAudience == models.AudienceSpecificRoute && (n.TargetRouteID == nil || *n.TargetRouteID <= 0) {
		return n, domain.ValidationError{Field: "target_route_id", Msg: "required for specific_route"}
	}
	if n.TargetAudience == models.AudienceSpecificUser && (n.TargetUserID == nil || *n.TargetUserID <= 0) {
		return n, domain.ValidationError{Field: "target_user_id", Msg: "required for specific_user"}
	}
	if n.ExpiresAt != nil && !n.ExpiresAt.After(s.now()) {
		return n, domain.ValidationError{Field: "expires_at", Msg: "must be in the future"}
	}

	id, err := s.Notifications.Create(ctx, n)
	if err != nil {
		return n, err
	}
	n.ID = id
	n.IsActive = true
	n.CreatedAt = s.now()
	utils.LogEvent(s.RequestID, "notification", "publish", fmt.Sprintf("id=%d audience=%s", id, n.TargetAudience))

	s.fanOut(ctx, n)
	return n, nil
}

// Notify is the fire-and-forget form used by other services.
func (s NotificationService) Notify(ctx context.Context, n models.Notification) {
	if _, err := s.Publish(ctx, n); err != nil {
		utils.LogEvent(s.RequestID, "notification", "notify_error", err.Error())
		report.ReportError(err)
	}
}

type pushPayload struct {
	ID       int64  `json:"id"`
	Title    string `json:"title"`
	Body     string `json:"body"`
	Type     string `json:"type"`
	Category string `json:"category"`
}

func (s NotificationService) fanOut(ctx context.Context, n models.Notification) {
	if s.Sender == nil {
		return
	}
	subs, err := s.Notifications.SubscriptionsFor(ctx, n)
	if err != nil {
		utils.LogEvent(s.RequestID, "notification", "subscriptions_error", err.Error())
		report.ReportError(err)
		return
	}
	payload, _ := json.Marshal(pushPayload{ID: n.ID, Title: n.Title, Body: n.Message, Type: n.Type, Category: n.Category})

	for _, sub := range subs {
		status, err := s.Sender.Send(ctx, sub, payload)
		switch {
		case err != nil:
			metrics.PushDeliveries.WithLabelValues("failed").Inc()
			utils.LogEvent(s.RequestID, "notification", "push_error", fmt.Sprintf("subscription=%d err=%v", sub.ID, err))
		case push.Gone(status):
			metrics.PushDeliveries.WithLabelValues("gone").Inc()
			if err := s.Notifications.DeleteSubscription(ctx, sub.Endpoint); err != nil {
				utils.LogEvent(s.RequestID, "notification", "push_cleanup_error", err.Error())
			}
		case status >= 300:
			metrics.PushDeliveries.WithLabelValues("failed").Inc()
			utils.LogEvent(s.RequestID, "notification", "push_rejected", fmt.Sprintf("subscription=%d status=%d", sub.ID, status))
		default:
			metrics.PushDeliveries.WithLabelValues("sent").Inc()
		}
	}
}

// ListFor returns the caller's notification feed.
func (s NotificationService) ListFor(ctx context.Context, p domain.Principal) ([]models.Notification, error) {
	rc := repositories.Recipient{UserType: p.UserType(), UserID: p.UserID}
	switch p.Role {
	case domain.RoleStudent:
		st, err := s.Students.GetByID(ctx, p.UserID)
		if err != nil {
			return nil, err
		}
		if st.AllocatedRouteID != nil {
			rc.RouteID = *st.AllocatedRouteID
		}
	case domain.RoleDriver:
		d, err := s.Drivers.GetByID(ctx, p.UserID)
		if err != nil {
			return nil, err
		}
		if d.AssignedRouteID != nil {
			rc.RouteID = *d.AssignedRouteID
		}
	}
	return s.Notifications.ListFor(ctx, rc, s.now(), 100)
}

func (s NotificationService) MarkRead(ctx context.Context, p domain.Principal, id int64) error {
	if id <= 0 {
		return domain.ValidationError{Field: "id", Msg: "invalid id"}
	}
	return s.Notifications.MarkRead(ctx, id, p.UserType(), p.UserID)
}

func (s NotificationService) Subscribe(ctx context.Context, p domain.Principal, sub models.PushSubscription) error {
	sub.Endpoint = strings.TrimSpace(sub.Endpoint)
	if !strings.HasPrefix(sub.Endpoint, "https://") {
		return domain.ValidationError{Field: "endpoint", Msg: "must be an https URL"}
	}
	if sub.P256dh == "" || sub.Auth == "" {
		return domain.ValidationError{Field: "keys", Msg: "p256dh and auth are required"}
	}
	sub.UserType = p.UserType()
	sub.UserID = p.UserID
	return s.Notifications.SaveSubscription(ctx, sub)
}

func (s NotificationService) Unsubscribe(ctx context.Context, p domain.Principal, endpoint string) error {
	endpoint = strings.TrimSpace(endpoint)
	if endpoint == "" {
		return domain.ValidationError{Field: "endpoint", Msg: "required"}
	}
	ok, err := s.Notifications.DeleteOwnSubscription(ctx, endpoint, p.UserType(), p.UserID)
	if err != nil {
		return err
	}
	if !ok {
		return domain.NotFoundError{Resource: "push subscription"}
	}
	return nil
}
