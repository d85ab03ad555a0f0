package children

import (
	"context"
	"log/slog"

	"terapiahub/internal/models"
)

// ChildAPI is the slice of the REST client the service needs.
type ChildAPI interface {
	ListChildren(ctx context.Context) ([]models.Child, error)
	CreateChild(ctx context.Context, request *models.ChildRequest) (*models.Child, error)
	UpdateChild(ctx context.Context, id int64, request *models.ChildRequest) (*models.Child, error)
	DeleteChild(ctx context.Context, id int64) error
}

// Service runs child CRUD against the backend and keeps a
// SelectedChildContext in step with the results.
type Service struct {
	api       ChildAPI
	ctx       *SelectedChildContext
	selection SelectionStore
	parentID  int64
	logger    *slog.Logger
}

// NewService wires the API to the context. selection may be nil.
func NewService(api ChildAPI, childCtx *SelectedChildContext, selection SelectionStore, parentID int64, logger *slog.Logger) *Service {
	if logger == nil {
		logger = slog.Default()
	}
	return &Service{
		api:       api,
		ctx:       childCtx,
		selection: selection,
		parentID:  parentID,
		logger:    logger,
	}
}

// Context returns the shared context the service writes to.
func (s *Service) Context() *SelectedChildContext {
	return s.ctx
}

// Load fetches the parent's children and replaces the list. A stored
// selection is restored when that child is still in the list.
func (s *Service) Load(ctx context.Context) ([]models.Child, error) {
	list, err := s.api.ListChildren(ctx)
	if err != nil {
		s.logger.Error("load_children_failed", "parent_id", s.parentID, "error", err)
		return nil, err
	}

	s.ctx.SetChildren(list)

	if s.selection != nil {
		id, found, err := s.selection.LoadSelection(ctx, s.parentID)
		if err != nil {
			s.logger.Warn("load_selection_failed", "parent_id", s.parentID, "error", err)
		} else if found && indexOf(list, id) >= 0 {
			s.ctx.Select(id)
		}
	}
	return s.ctx.Children(), nil
}

func (s *Service) Create(ctx context.Context, request *models.ChildRequest) (*models.Child, error) {
	child, err := s.api.CreateChild(ctx, request)
	if err != nil {
		s.logger.Error("create_child_failed", "parent_id", s.parentID, "error", err)
		return nil, err
	}
	s.ctx.AddChild(*child)
	return child, nil
}

func (s *Service) Update(ctx context.Context, id int64, request *models.ChildRequest) (*models.Child, error) {
	child, err := s.api.UpdateChild(ctx, id, request)
	if err != nil {
		s.logger.Error("update_child_failed", "child_id", id, "error", err)
		return nil, err
	}
	s.ctx.UpdateChild(*child)
	return child, nil
}

func (s *Service) Delete(ctx context.Context, id int64) error {
	if err := s.api.DeleteChild(ctx, id); err != nil {
		s.logger.Error("delete_child_failed", "child_id", id, "error", err)
		return err
	}
	s.ctx.RemoveChild(id)
	s.persistSelection(ctx)
	return nil
}

// Select changes the selection and remembers it for the next session.
func (s *Service) Select(ctx context.Context, id int64) {
	s.ctx.Select(id)
	s.persistSelection(ctx)
}

func (s *Service) persistSelection(ctx context.Context) {
	if s.selection == nil {
		return
	}
	sel := s.ctx.SelectedID()
	var err error
	if sel == nil {
		err = s.selection.ClearSelection(ctx, s.parentID)
	} else {
		err = s.selection.SaveSelection(ctx, s.parentID, *sel)
	}
	if err != nil {
		s.logger.Warn("persist_selection_failed", "parent_id", s.parentID, "error", err)
	}
}
