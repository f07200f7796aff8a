package handlers

import (
	"net/http"

	"tms/internal/domain/models"

	"github.com/gin-gonic/gin"
)

// GET /api/notifications/me
func MyNotifications(c *gin.Context) {
	p, ok := principal(c)
	if !ok {
		return
	}
	list, err := notificationService(c).ListFor(c.Request.Context(), p)
	if err != nil {
		RespondDomainError(c, err)
		return
	}
	respondOK(c, http.StatusOK, list)
}

// PUT /api/notifications/:id/read
func MarkNotificationRead(c *gin.Context) {
	p, ok := principal(c)
	if !ok {
		return
	}
	id, ok := paramID(c, "id")
	if !ok {
		return
	}
	if err := notificationService(c).MarkRead(c.Request.Context(), p, id); err != nil {
		RespondDomainError(c, err)
		return
	}
	respondMessage(c, http.StatusOK, "notification marked as read", nil)
}

// POST /api/notifications
func CreateNotification(c *gin.Context) {
	p, ok := principal(c)
	if !ok {
		return
	}
	var in models.Notification
	if !BindJSONOrError(c, &in) {
		return
	}
	in.ID = 0
	createdBy := p.UserID
	in.CreatedBy = &createdBy
	n, err := notificationService(c).Publish(c.Request.Context(), in)
	if err != nil {
		RespondDomainError(c, err)
		return
	}
	respondMessage(c, http.StatusCreated, "notification published", n)
}

// pushSubscriptionRequest accepts the browser PushSubscription JSON shape.
type pushSubscriptionRequest struct {
	Endpoint string `json:"endpoint"`
	Keys     struct {
		P256dh string `json:"p256dh"`
		Auth   string `json:"auth"`
	} `json:"keys"`
}

// POST /api/push/subscriptions
func SavePushSubscription(c *gin.Context) {
	p, ok := principal(c)
	if !ok {
		return
	}
	var in pushSubscriptionRequest
	if !BindJSONOrError(c, &in) {
		return
	}
	sub := models.PushSubscription{Endpoint: in.Endpoint, P256dh: in.Keys.P256dh, Auth: in.Keys.Auth}
	if err := notificationService(c).Subscribe(c.Request.Context(), p, sub); err != nil {
		RespondDomainError(c, err)
		return
	}
	respondMessage(c, http.StatusCreated, "push subscription saved", nil)
}

// DELETE /api/push/subscriptions
func DeletePushSubscription(c *gin.Context) {
	p, ok := principal(c)
	if !ok {
		return
	}
	var in pushSubscriptionRequest
	if !BindJSONOrError(c, &in) {
		return
	}
	if err := notificationService(c).Unsubscribe(c.Request.Context(), p, in.Endpoint); err != nil {
		RespondDomainError(c, err)
		return
	}
	respondMessage(c, http.StatusOK, "push subscription removed", nil)
}
