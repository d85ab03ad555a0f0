package api

import (
	"context"
	"fmt"
	"net/http"

	"terapiahub/internal/models"
)

// Child CRUD for the signed-in parent

func (c *Client) ListChildren(ctx context.Context) ([]models.Child, error) {
	var result []models.Child
	if err := c.do(ctx, http.MethodGet, "/padre/hijos", nil, &result, http.StatusOK); err != nil {
		return nil, err
	}
	return result, nil
}

func (c *Client) CreateChild(ctx context.Context, request *models.ChildRequest) (*models.Child, error) {
	var result models.Child
	if err := c.do(ctx, http.MethodPost, "/padre/hijos", request, &result, http.StatusCreated); err != nil {
		return nil, err
	}
	return &result, nil
}

func (c *Client) UpdateChild(ctx context.Context, id int64, request *models.ChildRequest) (*models.Child, error) {
	var result models.Child
	path := fmt.Sprintf("/padre/hijos/%d", id)
	if err := c.do(ctx, http.MethodPut, path, request, &result, http.StatusOK); err != nil {
		return nil, err
	}
	return &result, nil
}

func (c *Client) DeleteChild(ctx context.Context, id int64) error {
	path := fmt.Sprintf("/padre/hijos/%d", id)
	return c.do(ctx, http.MethodDelete, path, nil, nil, http.StatusNoContent)
}
