package children

import (
	"terapiahub/internal/models"
	"terapiahub/internal/store"
)

// State is the snapshot observers receive. SelectedID is nil when no child
// is selected.
type State struct {
	Children   []models.Child
	SelectedID *int64
}

// SelectedChildContext is the shared record of a parent's children and which
// one every child-scoped view is looking at. Construct one per session and
// pass it to consumers.
type SelectedChildContext struct {
	state *store.Store[State]
}

func NewSelectedChildContext() *SelectedChildContext {
	return &SelectedChildContext{state: store.New(State{})}
}

// Children returns a copy of the current list, most recent first.
func (c *SelectedChildContext) Children() []models.Child {
	list := c.state.Get().Children
	out := make([]models.Child, len(list))
	copy(out, list)
	return out
}

// SelectedID returns the selected child id or nil.
func (c *SelectedChildContext) SelectedID() *int64 {
	sel := c.state.Get().SelectedID
	if sel == nil {
		return nil
	}
	id := *sel
	return &id
}

// Selected returns the selected child, or nil when nothing is selected or the
// selection points at an id that is not in the list.
func (c *SelectedChildContext) Selected() *models.Child {
	st := c.state.Get()
	if st.SelectedID == nil {
		return nil
	}
	if i := indexOf(st.Children, *st.SelectedID); i >= 0 {
		child := st.Children[i]
		return &child
	}
	return nil
}

// Subscribe calls fn with the new state after every mutation.
func (c *SelectedChildContext) Subscribe(fn func(State)) (unsubscribe func()) {
	return c.state.Subscribe(fn)
}

// SetChildren replaces the list. A selection still present in the new list
// is kept; otherwise the first child becomes selected, or none when the list
// is empty.
func (c *SelectedChildContext) SetChildren(list []models.Child) {
	c.state.Update(func(st State) State {
		next := make([]models.Child, len(list))
		copy(next, list)

		sel := st.SelectedID
		if sel != nil && indexOf(next, *sel) < 0 {
			sel = nil
		}
		if sel == nil && len(next) > 0 {
			sel = idPtr(next[0].ID)
		}
		return State{Children: next, SelectedID: sel}
	})
}

// AddChild prepends child. It becomes selected if nothing was.
func (c *SelectedChildContext) AddChild(child models.Child) {
	c.state.Update(func(st State) State {
		next := make([]models.Child, 0, len(st.Children)+1)
		next = append(next, child)
		next = append(next, st.Children...)

		sel := st.SelectedID
		if sel == nil {
			sel = idPtr(child.ID)
		}
		return State{Children: next, SelectedID: sel}
	})
}

// UpdateChild replaces the entry with the same id. Unknown ids are ignored.
func (c *SelectedChildContext) UpdateChild(child models.Child) {
	c.state.Update(func(st State) State {
		i := indexOf(st.Children, child.ID)
		if i < 0 {
			return st
		}
		next := make([]models.Child, len(st.Children))
		copy(next, st.Children)
		next[i] = child
		return State{Children: next, SelectedID: st.SelectedID}
	})
}

// RemoveChild drops the entry with id. If it was selected, selection moves
// to the new first entry, or to none when the list is empty.
func (c *SelectedChildContext) RemoveChild(id int64) {
	c.state.Update(func(st State) State {
		next := make([]models.Child, 0, len(st.Children))
		for _, ch := range st.Children {
			if ch.ID != id {
				next = append(next, ch)
			}
		}

		sel := st.SelectedID
		if sel != nil && *sel == id {
			sel = nil
			if len(next) > 0 {
				sel = idPtr(next[0].ID)
			}
		}
		return State{Children: next, SelectedID: sel}
	})
}

// Select sets the selected id without checking that it exists.
func (c *SelectedChildContext) Select(id int64) {
	c.state.Update(func(st State) State {
		return State{Children: st.Children, SelectedID: idPtr(id)}
	})
}

func indexOf(list []models.Child, id int64) int {
	for i, ch := range list {
		if ch.ID == id {
			return i
		}
	}
	return -1
}

func idPtr(id int64) *int64 {
	return &id
}
