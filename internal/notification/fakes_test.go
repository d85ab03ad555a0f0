package notification

import (
	"context"
	"errors"
	"sync"

	"github.com/stretchr/testify/mock"

	"terapiahub/internal/models"
)

var errChannelClosed = errors.New("channel closed")

type fakeChannel struct {
	frames chan []byte
	closed chan struct{}
	once   sync.Once
}

func newFakeChannel() *fakeChannel {
	return &fakeChannel{
		frames: make(chan []byte, 16),
		closed: make(chan struct{}),
	}
}

func (c *fakeChannel) ReadMessage() ([]byte, error) {
	select {
	case f := <-c.frames:
		return f, nil
	case <-c.closed:
		return nil, errChannelClosed
	}
}

func (c *fakeChannel) Close() error {
	c.once.Do(func() { close(c.closed) })
	return nil
}

type fakeDialer struct {
	mu       sync.Mutex
	urls     []string
	channels []*fakeChannel
	err      error
}

func (d *fakeDialer) Dial(ctx context.Context, url string) (Channel, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.urls = append(d.urls, url)
	if d.err != nil {
		return nil, d.err
	}
	ch := newFakeChannel()
	d.channels = append(d.channels, ch)
	return ch, nil
}

func (d *fakeDialer) dials() int {
	d.mu.Lock()
	defer d.mu.Unlock()
	return len(d.urls)
}

func (d *fakeDialer) last() *fakeChannel {
	d.mu.Lock()
	defer d.mu.Unlock()
	if len(d.channels) == 0 {
		return nil
	}
	return d.channels[len(d.channels)-1]
}

type MockNotificationAPI struct {
	mock.Mock
}

func (m *MockNotificationAPI) ListNotifications(ctx context.Context, role models.Role, userID int64, unreadOnly bool) ([]models.Notification, error) {
	args := m.Called(ctx, role, userID, unreadOnly)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]models.Notification), args.Error(1)
}

func (m *MockNotificationAPI) MarkNotificationRead(ctx context.Context, role models.Role, id int64) (*models.Notification, error) {
	args := m.Called(ctx, role, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.Notification), args.Error(1)
}

func (m *MockNotificationAPI) MarkAllNotificationsRead(ctx context.Context, role models.Role, userID int64) (int, error) {
	args := m.Called(ctx, role, userID)
	return args.Int(0), args.Error(1)
}

type recordingAlerter struct {
	mu    sync.Mutex
	seen  []models.Notification
	roles []models.Role
}

func (a *recordingAlerter) Alert(_ context.Context, role models.Role, n models.Notification) {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.seen = append(a.seen, n)
	a.roles = append(a.roles, role)
}

func (a *recordingAlerter) count() int {
	a.mu.Lock()
	defer a.mu.Unlock()
	return len(a.seen)
}
