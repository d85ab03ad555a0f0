package api

import (
	"context"
	"fmt"
	"net/http"

	"terapiahub/internal/models"
)

// ListNotifications fetches a user's notifications, newest first.
func (c *Client) ListNotifications(ctx context.Context, role models.Role, userID int64, unreadOnly bool) ([]models.Notification, error) {
	path := fmt.Sprintf("/%s/notificaciones/%d", role, userID)
	if unreadOnly {
		path += "?solo_no_leidas=true"
	}

	var result []models.Notification
	if err := c.do(ctx, http.MethodGet, path, nil, &result, http.StatusOK); err != nil {
		return nil, err
	}
	return result, nil
}

// MarkNotificationRead asks the backend to mark one notification read and
// returns the server's version of it.
func (c *Client) MarkNotificationRead(ctx context.Context, role models.Role, id int64) (*models.Notification, error) {
	path := fmt.Sprintf("/%s/notificaciones/%d/marcar-leida", role, id)

	var result models.Notification
	if err := c.do(ctx, http.MethodPut, path, nil, &result, http.StatusOK); err != nil {
		return nil, err
	}
	return &result, nil
}

// MarkAllNotificationsRead marks every notification of the user read and
// returns how many changed.
func (c *Client) MarkAllNotificationsRead(ctx context.Context, role models.Role, userID int64) (int, error) {
	path := fmt.Sprintf("/%s/notificaciones/%d/marcar-todas-leidas", role, userID)

	var result models.MarkAllResult
	if err := c.do(ctx, http.MethodPut, path, nil, &result, http.StatusOK); err != nil {
		return 0, err
	}
	return result.Marcadas, nil
}
