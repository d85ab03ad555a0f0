package notification

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"terapiahub/internal/models"
	"terapiahub/internal/store"
)

// DefaultReconnectDelay is the fixed wait before each reconnect attempt.
const DefaultReconnectDelay = 5 * time.Second

var (
	ErrNoSession       = errors.New("feed has no user: call Connect or LoadInitial first")
	ErrRoleWithoutFeed = errors.New("role has no notification feed")
	ErrOtherSession    = errors.New("feed is connected for another user or role")
)

// NotificationAPI is the slice of the REST client the feed needs.
type NotificationAPI interface {
	ListNotifications(ctx context.Context, role models.Role, userID int64, unreadOnly bool) ([]models.Notification, error)
	MarkNotificationRead(ctx context.Context, role models.Role, id int64) (*models.Notification, error)
	MarkAllNotificationsRead(ctx context.Context, role models.Role, userID int64) (int, error)
}

// Feed keeps the live notification list of one (user, role) pair. It bridges
// a push channel into an observable list, fires alerts on arrival and
// reconciles read state with the backend. One Feed holds at most one
// connection; construct one per session and share it between consumers.
type Feed struct {
	api            NotificationAPI
	dialer         Dialer
	alerter        Alerter
	wsBase         string
	reconnectDelay time.Duration
	logger         *slog.Logger

	items *store.Store[[]models.Notification]
	conn  *store.Store[ConnState]

	mu         sync.Mutex
	userID     int64
	role       models.Role
	channel    Channel
	state      ConnState
	generation uint64 // bumped by Connect and Disconnect; stale loops and timers compare against it
	timer      *time.Timer
	reconnects int
}

type Option func(*Feed)

func WithDialer(d Dialer) Option {
	return func(f *Feed) { f.dialer = d }
}

func WithAlerter(a Alerter) Option {
	return func(f *Feed) { f.alerter = a }
}

func WithReconnectDelay(d time.Duration) Option {
	return func(f *Feed) { f.reconnectDelay = d }
}

func WithLogger(l *slog.Logger) Option {
	return func(f *Feed) { f.logger = l }
}

// NewFeed creates a disconnected feed. wsBase is used as given.
func NewFeed(api NotificationAPI, wsBase string, opts ...Option) *Feed {
	f := &Feed{
		api:            api,
		dialer:         NewWSDialer(""),
		alerter:        NopAlerter{},
		wsBase:         strings.TrimRight(wsBase, "/"),
		reconnectDelay: DefaultReconnectDelay,
		logger:         slog.Default(),
		items:          store.New[[]models.Notification](nil),
		conn:           store.New(StateDisconnected),
	}
	for _, opt := range opts {
		opt(f)
	}
	return f
}

// Notifications returns the current list, newest first. Callers must not
// modify the returned slice.
func (f *Feed) Notifications() []models.Notification {
	return f.items.Get()
}

// UnreadCount is derived from the current list on every call.
func (f *Feed) UnreadCount() int {
	return countUnread(f.items.Get())
}

// Unread returns the unread entries, newest first.
func (f *Feed) Unread() []models.Notification {
	list := f.items.Get()
	out := make([]models.Notification, 0, len(list))
	for _, n := range list {
		if !n.Leida {
			out = append(out, n)
		}
	}
	return out
}

func (f *Feed) State() ConnState {
	return f.conn.Get()
}

func (f *Feed) UserID() int64 {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.userID
}

func (f *Feed) Role() models.Role {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.role
}

// Reconnects is how many reconnect attempts have been scheduled since the
// feed was created.
func (f *Feed) Reconnects() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.reconnects
}

// Subscribe calls fn with the new list after every change.
func (f *Feed) Subscribe(fn func([]models.Notification)) (unsubscribe func()) {
	return f.items.Subscribe(fn)
}

// OnStateChange calls fn on every connection state transition.
func (f *Feed) OnStateChange(fn func(ConnState)) (unsubscribe func()) {
	return f.conn.Subscribe(fn)
}

// Endpoint is the push URL for a user and role.
func (f *Feed) Endpoint(userID int64, role models.Role) string {
	return fmt.Sprintf("%s/notificaciones/ws/%s/%d", f.wsBase, role, userID)
}

// Connect closes any existing connection and opens a push channel for
// (userID, role). ctx bounds only the first handshake. If that handshake
// fails the error is returned and a reconnect is already scheduled, the same
// as for a connection that drops later.
func (f *Feed) Connect(ctx context.Context, userID int64, role models.Role) error {
	if !role.ReceivesNotifications() {
		return fmt.Errorf("%w: %s", ErrRoleWithoutFeed, role)
	}

	f.mu.Lock()
	f.teardownLocked()
	f.userID = userID
	f.role = role
	gen := f.generation
	f.mu.Unlock()

	return f.open(ctx, gen)
}

// Disconnect closes the channel and cancels any pending reconnect. Received
// notifications are kept.
func (f *Feed) Disconnect() {
	f.mu.Lock()
	f.teardownLocked()
	f.setStateLocked(StateDisconnected)
	f.mu.Unlock()

	f.publishState()
	f.logger.Info("notification_feed_disconnected")
}

// teardownLocked invalidates the current generation so that read loops,
// dials in flight and timers belonging to it become no-ops.
func (f *Feed) teardownLocked() {
	f.generation++
	if f.timer != nil {
		f.timer.Stop()
		f.timer = nil
	}
	if f.channel != nil {
		if err := f.channel.Close(); err != nil {
			f.logger.Debug("close_channel_failed", "error", err)
		}
		f.channel = nil
	}
}

func (f *Feed) open(ctx context.Context, gen uint64) error {
	f.mu.Lock()
	if gen != f.generation {
		f.mu.Unlock()
		return nil
	}
	f.setStateLocked(StateConnecting)
	url := f.Endpoint(f.userID, f.role)
	f.mu.Unlock()
	f.publishState()

	connID := uuid.NewString()
	ch, err := f.dialer.Dial(ctx, url)

	f.mu.Lock()
	if gen != f.generation {
		// Disconnect or a newer Connect won the race
		f.mu.Unlock()
		if ch != nil {
			ch.Close()
		}
		return nil
	}
	if err != nil {
		f.logger.Error("notification_feed_connect_failed",
			"url", url,
			"connection_id", connID,
			"error", err,
		)
		f.scheduleReconnectLocked(gen)
		f.mu.Unlock()
		f.publishState()
		return err
	}
	f.channel = ch
	f.setStateLocked(StateOpen)
	f.mu.Unlock()
	f.publishState()

	f.logger.Info("notification_feed_open", "url", url, "connection_id", connID)
	go f.readLoop(ch, gen, connID)
	return nil
}

func (f *Feed) readLoop(ch Channel, gen uint64, connID string) {
	for {
		data, err := ch.ReadMessage()
		if err != nil {
			f.handleClose(gen, connID, err)
			return
		}
		f.handleFrame(gen, data)
	}
}

// handleFrame validates one pushed frame and prepends it. Malformed frames
// and tags outside the role vocabulary are dropped. A frame whose id is
// already present replaces that entry in place.
func (f *Feed) handleFrame(gen uint64, data []byte) {
	var n models.Notification
	if err := json.Unmarshal(data, &n); err != nil {
		f.logger.Warn("notification_frame_malformed", "error", err, "size", len(data))
		return
	}
	if err := n.Validate(); err != nil {
		f.logger.Warn("notification_frame_invalid", "error", err, "id", n.ID)
		return
	}

	f.mu.Lock()
	if gen != f.generation {
		f.mu.Unlock()
		return
	}
	role := f.role
	f.mu.Unlock()

	if !n.Tipo.BelongsTo(role) {
		f.logger.Warn("notification_type_outside_vocabulary", "type", n.Tipo, "role", role, "id", n.ID)
		return
	}

	f.items.Update(func(list []models.Notification) []models.Notification {
		return upsertFront(list, n)
	})
	f.alerter.Alert(context.Background(), role, n)
}

func (f *Feed) handleClose(gen uint64, connID string, cause error) {
	f.mu.Lock()
	if gen != f.generation {
		f.mu.Unlock()
		return
	}
	f.channel = nil
	f.scheduleReconnectLocked(gen)
	f.mu.Unlock()
	f.publishState()

	f.logger.Warn("notification_feed_closed",
		"connection_id", connID,
		"retry_in", f.reconnectDelay,
		"error", cause,
	)
}

// scheduleReconnectLocked arms one reconnect after the fixed delay. There is
// no attempt ceiling; every involuntary close schedules another.
func (f *Feed) scheduleReconnectLocked(gen uint64) {
	f.reconnects++
	f.setStateLocked(StateReconnecting)
	f.timer = time.AfterFunc(f.reconnectDelay, func() {
		f.open(context.Background(), gen)
	})
}

func (f *Feed) setStateLocked(s ConnState) {
	f.state = s
}

// publishState copies the locked state into the observable store. The state
// is read inside the store's update so concurrent publishers cannot leave an
// older state behind. Subscribers run without f.mu held.
func (f *Feed) publishState() {
	f.conn.UpdateIf(func(cur ConnState) (ConnState, bool) {
		f.mu.Lock()
		s := f.state
		f.mu.Unlock()
		return s, s != cur
	})
}

// LoadInitial fetches the full list over REST and replaces the local one.
// On failure the list is left as it was. While a channel is open or a
// reconnect is pending, only the connected user and role may be loaded.
func (f *Feed) LoadInitial(ctx context.Context, userID int64, role models.Role) error {
	if !role.ReceivesNotifications() {
		return fmt.Errorf("%w: %s", ErrRoleWithoutFeed, role)
	}

	f.mu.Lock()
	err := f.otherSessionLocked(userID, role)
	f.mu.Unlock()
	if err != nil {
		return err
	}

	list, err := f.api.ListNotifications(ctx, role, userID, false)
	if err != nil {
		f.logger.Error("load_notifications_failed", "user_id", userID, "role", role, "error", err)
		return err
	}

	f.mu.Lock()
	// a Connect for someone else may have landed during the fetch
	if err := f.otherSessionLocked(userID, role); err != nil {
		f.mu.Unlock()
		return err
	}
	f.userID = userID
	f.role = role
	f.mu.Unlock()

	next := make([]models.Notification, len(list))
	copy(next, list)
	f.items.Set(next)
	return nil
}

// otherSessionLocked reports whether a live or pending connection belongs to
// a different user or role.
func (f *Feed) otherSessionLocked(userID int64, role models.Role) error {
	live := f.channel != nil || f.timer != nil || f.state != StateDisconnected
	if live && (f.userID != userID || f.role != role) {
		return fmt.Errorf("%w: connected as %s %d", ErrOtherSession, f.role, f.userID)
	}
	return nil
}

// MarkRead asks the backend to mark id read and, once confirmed, replaces the
// local entry with the server's version. Nothing changes locally before the
// confirmation arrives.
func (f *Feed) MarkRead(ctx context.Context, id int64) (*models.Notification, error) {
	role := f.Role()
	if role == "" {
		return nil, ErrNoSession
	}

	updated, err := f.api.MarkNotificationRead(ctx, role, id)
	if err != nil {
		f.logger.Error("mark_notification_read_failed", "id", id, "error", err)
		return nil, err
	}

	f.items.Update(func(list []models.Notification) []models.Notification {
		next := make([]models.Notification, len(list))
		copy(next, list)
		for i := range next {
			if next[i].ID == updated.ID {
				next[i] = *updated
			}
		}
		return next
	})
	return updated, nil
}

// MarkAllRead asks the backend to mark everything read and, once confirmed,
// flips every local entry instead of re-fetching.
func (f *Feed) MarkAllRead(ctx context.Context, userID int64, role models.Role) (int, error) {
	count, err := f.api.MarkAllNotificationsRead(ctx, role, userID)
	if err != nil {
		f.logger.Error("mark_all_notifications_read_failed", "user_id", userID, "role", role, "error", err)
		return 0, err
	}

	f.items.Update(func(list []models.Notification) []models.Notification {
		next := make([]models.Notification, len(list))
		for i, n := range list {
			n.Leida = true
			next[i] = n
		}
		return next
	})
	return count, nil
}

func upsertFront(list []models.Notification, n models.Notification) []models.Notification {
	for i := range list {
		if list[i].ID == n.ID {
			next := make([]models.Notification, len(list))
			copy(next, list)
			next[i] = n
			return next
		}
	}
	next := make([]models.Notification, 0, len(list)+1)
	next = append(next, n)
	return append(next, list...)
}

func countUnread(list []models.Notification) int {
	count := 0
	for _, n := range list {
		if !n.Leida {
			count++
		}
	}
	return count
}
