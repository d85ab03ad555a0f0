package notification

import (
	"context"
	"encoding/json"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"terapiahub/internal/models"
)

const (
	waitFor = 2 * time.Second
	tick    = 5 * time.Millisecond
)

func frame(t *testing.T, n models.Notification) []byte {
	t.Helper()
	data, err := json.Marshal(n)
	require.NoError(t, err)
	return data
}

func ids(list []models.Notification) []int64 {
	out := make([]int64, 0, len(list))
	for _, n := range list {
		out = append(out, n.ID)
	}
	return out
}

func newTestFeed(api NotificationAPI, d Dialer, opts ...Option) *Feed {
	opts = append([]Option{WithDialer(d), WithReconnectDelay(10 * time.Millisecond)}, opts...)
	return NewFeed(api, "ws://backend.test/", opts...)
}

func TestFeed_EndpointIsPerRolePerUser(t *testing.T) {
	f := NewFeed(nil, "ws://backend.test/")
	assert.Equal(t, "ws://backend.test/notificaciones/ws/padre/42", f.Endpoint(42, models.RoleParent))
	assert.Equal(t, "ws://backend.test/notificaciones/ws/terapeuta/9", f.Endpoint(9, models.RoleTherapist))
}

func TestFeed_ConnectOpensChannel(t *testing.T) {
	d := &fakeDialer{}
	f := newTestFeed(nil, d)
	defer f.Disconnect()

	assert.Equal(t, StateDisconnected, f.State())
	require.NoError(t, f.Connect(context.Background(), 42, models.RoleParent))

	assert.Equal(t, StateOpen, f.State())
	assert.Equal(t, int64(42), f.UserID())
	assert.Equal(t, models.RoleParent, f.Role())
	assert.Equal(t, []string{"ws://backend.test/notificaciones/ws/padre/42"}, d.urls)
}

func TestFeed_ConnectRejectsCoordinator(t *testing.T) {
	d := &fakeDialer{}
	f := newTestFeed(nil, d)

	err := f.Connect(context.Background(), 1, models.RoleCoordinator)
	assert.ErrorIs(t, err, ErrRoleWithoutFeed)
	assert.Zero(t, d.dials())
}

func TestFeed_ConnectClosesPreviousChannel(t *testing.T) {
	d := &fakeDialer{}
	f := newTestFeed(nil, d)
	defer f.Disconnect()

	require.NoError(t, f.Connect(context.Background(), 1, models.RoleParent))
	first := d.last()
	require.NoError(t, f.Connect(context.Background(), 2, models.RoleTherapist))

	select {
	case <-first.closed:
	default:
		t.Fatal("previous channel was not closed")
	}

	// closing the old channel must not schedule a reconnect
	time.Sleep(50 * time.Millisecond)
	assert.Equal(t, 2, d.dials())
	assert.Zero(t, f.Reconnects())
}

func TestFeed_ArrivalOrderIsNewestFirst(t *testing.T) {
	d := &fakeDialer{}
	f := newTestFeed(nil, d)
	defer f.Disconnect()
	require.NoError(t, f.Connect(context.Background(), 42, models.RoleParent))

	ch := d.last()
	for _, id := range []int64{1, 2, 3} {
		ch.frames <- frame(t, models.Notification{ID: id, Tipo: models.TypeNuevaTarea})
	}

	require.Eventually(t, func() bool { return len(f.Notifications()) == 3 }, waitFor, tick)
	assert.Equal(t, []int64{3, 2, 1}, ids(f.Notifications()))
	assert.Equal(t, 3, f.UnreadCount())
}

func TestFeed_DropsMalformedAndForeignFrames(t *testing.T) {
	d := &fakeDialer{}
	alerts := &recordingAlerter{}
	f := newTestFeed(nil, d, WithAlerter(alerts))
	defer f.Disconnect()
	require.NoError(t, f.Connect(context.Background(), 42, models.RoleParent))

	ch := d.last()
	ch.frames <- []byte(`{not json`)
	ch.frames <- []byte(`{"mensaje":"sin id","tipo":"NUEVA_TAREA"}`)
	ch.frames <- []byte(`{"id":5,"mensaje":"sin tipo"}`)
	ch.frames <- frame(t, models.Notification{ID: 6, Tipo: models.TypeMensajeColega}) // therapist tag
	ch.frames <- frame(t, models.Notification{ID: 7, Tipo: models.TypePagoPendiente})

	require.Eventually(t, func() bool { return len(f.Notifications()) == 1 }, waitFor, tick)
	assert.Equal(t, []int64{7}, ids(f.Notifications()))
	assert.Equal(t, StateOpen, f.State(), "bad frames do not close the channel")
	require.Eventually(t, func() bool { return alerts.count() == 1 }, waitFor, tick)
}

func TestFeed_DuplicateIDReplacesEntry(t *testing.T) {
	d := &fakeDialer{}
	f := newTestFeed(nil, d)
	defer f.Disconnect()
	require.NoError(t, f.Connect(context.Background(), 42, models.RoleParent))

	ch := d.last()
	ch.frames <- frame(t, models.Notification{ID: 1, Tipo: models.TypeNuevaTarea, Mensaje: "v1"})
	ch.frames <- frame(t, models.Notification{ID: 2, Tipo: models.TypeNuevaTarea})
	ch.frames <- frame(t, models.Notification{ID: 1, Tipo: models.TypeNuevaTarea, Mensaje: "v2"})

	require.Eventually(t, func() bool {
		list := f.Notifications()
		return len(list) == 2 && list[1].Mensaje == "v2"
	}, waitFor, tick)
	assert.Equal(t, []int64{2, 1}, ids(f.Notifications()))
}

func TestFeed_AlertsOnArrival(t *testing.T) {
	d := &fakeDialer{}
	alerts := &recordingAlerter{}
	f := newTestFeed(nil, d, WithAlerter(alerts))
	defer f.Disconnect()
	require.NoError(t, f.Connect(context.Background(), 9, models.RoleTherapist))

	d.last().frames <- frame(t, models.Notification{ID: 1, Tipo: models.TypeEventoCentro})

	require.Eventually(t, func() bool { return alerts.count() == 1 }, waitFor, tick)
	assert.Equal(t, models.RoleTherapist, alerts.roles[0])
}

func TestFeed_ReconnectsAfterEveryInvoluntaryClose(t *testing.T) {
	d := &fakeDialer{}
	f := newTestFeed(nil, d)
	defer f.Disconnect()
	require.NoError(t, f.Connect(context.Background(), 42, models.RoleParent))

	for drop := 1; drop <= 3; drop++ {
		d.last().Close()
		require.Eventually(t, func() bool { return d.dials() == drop+1 && f.State() == StateOpen }, waitFor, tick)
		assert.Equal(t, drop, f.Reconnects())
	}

	for _, url := range d.urls {
		assert.Equal(t, "ws://backend.test/notificaciones/ws/padre/42", url)
	}
}

func TestFeed_FailedDialKeepsRetrying(t *testing.T) {
	d := &fakeDialer{err: errors.New("connection refused")}
	f := newTestFeed(nil, d)
	defer f.Disconnect()

	err := f.Connect(context.Background(), 42, models.RoleParent)
	assert.Error(t, err)

	require.Eventually(t, func() bool { return d.dials() >= 4 }, waitFor, tick)
	assert.Equal(t, StateReconnecting, f.State())
}

func TestFeed_DisconnectCancelsPendingReconnect(t *testing.T) {
	d := &fakeDialer{err: errors.New("connection refused")}
	f := NewFeed(nil, "ws://backend.test", WithDialer(d), WithReconnectDelay(50*time.Millisecond))

	_ = f.Connect(context.Background(), 42, models.RoleParent)
	assert.Equal(t, StateReconnecting, f.State())

	f.Disconnect()
	assert.Equal(t, StateDisconnected, f.State())

	time.Sleep(150 * time.Millisecond)
	assert.Equal(t, 1, d.dials(), "no reconnect after explicit disconnect")
}

func TestFeed_DisconnectKeepsNotifications(t *testing.T) {
	d := &fakeDialer{}
	f := newTestFeed(nil, d)
	require.NoError(t, f.Connect(context.Background(), 42, models.RoleParent))

	ch := d.last()
	ch.frames <- frame(t, models.Notification{ID: 1, Tipo: models.TypeNuevaTarea})
	require.Eventually(t, func() bool { return len(f.Notifications()) == 1 }, waitFor, tick)

	f.Disconnect()
	assert.Len(t, f.Notifications(), 1)

	time.Sleep(50 * time.Millisecond)
	assert.Equal(t, 1, d.dials())
	assert.Zero(t, f.Reconnects())
}

func TestFeed_StateTransitions(t *testing.T) {
	d := &fakeDialer{}
	f := newTestFeed(nil, d)

	var states []ConnState
	unsubscribe := f.OnStateChange(func(s ConnState) { states = append(states, s) })
	defer unsubscribe()

	require.NoError(t, f.Connect(context.Background(), 42, models.RoleParent))
	f.Disconnect()

	assert.Equal(t, []ConnState{StateConnecting, StateOpen, StateDisconnected}, states)
}

func TestFeed_StateMatchesAfterConcurrentConnectAndDisconnect(t *testing.T) {
	d := &fakeDialer{}
	f := newTestFeed(nil, d)
	defer f.Disconnect()

	var wg sync.WaitGroup
	for i := 0; i < 20; i++ {
		wg.Add(2)
		go func() {
			defer wg.Done()
			_ = f.Connect(context.Background(), 42, models.RoleParent)
		}()
		go func() {
			defer wg.Done()
			f.Disconnect()
		}()
	}
	wg.Wait()

	f.mu.Lock()
	internal := f.state
	f.mu.Unlock()
	assert.Equal(t, internal, f.State())
}

func TestFeed_LoadInitialReplacesList(t *testing.T) {
	api := new(MockNotificationAPI)
	api.On("ListNotifications", mock.Anything, models.RoleParent, int64(42), false).Return([]models.Notification{
		{ID: 3, Tipo: models.TypeNuevaTarea},
		{ID: 2, Tipo: models.TypePagoPendiente, Leida: true},
		{ID: 1, Tipo: models.TypeSesionCancelada},
	}, nil)

	f := newTestFeed(api, &fakeDialer{})
	require.NoError(t, f.LoadInitial(context.Background(), 42, models.RoleParent))

	assert.Equal(t, []int64{3, 2, 1}, ids(f.Notifications()))
	assert.Equal(t, 2, f.UnreadCount())
	assert.Equal(t, []int64{3, 1}, ids(f.Unread()))
	assert.Equal(t, models.RoleParent, f.Role())
	api.AssertExpectations(t)
}

func TestFeed_LoadInitialErrorLeavesState(t *testing.T) {
	api := new(MockNotificationAPI)
	api.On("ListNotifications", mock.Anything, models.RoleParent, int64(42), false).
		Return([]models.Notification{{ID: 1, Tipo: models.TypeNuevaTarea}}, nil).Once()
	api.On("ListNotifications", mock.Anything, models.RoleParent, int64(42), false).
		Return(nil, errors.New("503")).Once()

	f := newTestFeed(api, &fakeDialer{})
	require.NoError(t, f.LoadInitial(context.Background(), 42, models.RoleParent))
	assert.Error(t, f.LoadInitial(context.Background(), 42, models.RoleParent))

	assert.Equal(t, []int64{1}, ids(f.Notifications()))
}

func TestFeed_LoadInitialRejectsCoordinator(t *testing.T) {
	api := new(MockNotificationAPI)
	f := newTestFeed(api, &fakeDialer{})

	err := f.LoadInitial(context.Background(), 1, models.RoleCoordinator)
	assert.ErrorIs(t, err, ErrRoleWithoutFeed)
	assert.Empty(t, f.Role())
	assert.Empty(t, f.Notifications())
	api.AssertNotCalled(t, "ListNotifications", mock.Anything, mock.Anything, mock.Anything, mock.Anything)
}

func TestFeed_LoadInitialKeepsConnectedIdentity(t *testing.T) {
	api := new(MockNotificationAPI)
	d := &fakeDialer{}
	f := newTestFeed(api, d)
	defer f.Disconnect()
	require.NoError(t, f.Connect(context.Background(), 42, models.RoleParent))

	err := f.LoadInitial(context.Background(), 9, models.RoleTherapist)
	assert.ErrorIs(t, err, ErrOtherSession)
	api.AssertNotCalled(t, "ListNotifications", mock.Anything, mock.Anything, mock.Anything, mock.Anything)
	assert.Equal(t, int64(42), f.UserID())
	assert.Equal(t, models.RoleParent, f.Role())

	// parent tags are still accepted on the open channel
	d.last().frames <- frame(t, models.Notification{ID: 1, Tipo: models.TypeNuevaTarea})
	require.Eventually(t, func() bool { return len(f.Notifications()) == 1 }, waitFor, tick)

	d.last().Close()
	require.Eventually(t, func() bool { return d.dials() == 2 && f.State() == StateOpen }, waitFor, tick)
	d.mu.Lock()
	for _, url := range d.urls {
		assert.Equal(t, "ws://backend.test/notificaciones/ws/padre/42", url)
	}
	d.mu.Unlock()
}

func TestFeed_LoadInitialOtherUserAfterDisconnect(t *testing.T) {
	api := new(MockNotificationAPI)
	api.On("ListNotifications", mock.Anything, models.RoleTherapist, int64(9), false).
		Return([]models.Notification{{ID: 1, Tipo: models.TypeNuevoPaciente}}, nil)

	f := newTestFeed(api, &fakeDialer{})
	require.NoError(t, f.Connect(context.Background(), 42, models.RoleParent))
	f.Disconnect()

	require.NoError(t, f.LoadInitial(context.Background(), 9, models.RoleTherapist))
	assert.Equal(t, int64(9), f.UserID())
	assert.Equal(t, models.RoleTherapist, f.Role())
	api.AssertExpectations(t)
}

func TestFeed_MarkReadAppliesServerVersion(t *testing.T) {
	api := new(MockNotificationAPI)
	api.On("ListNotifications", mock.Anything, models.RoleParent, int64(42), false).Return([]models.Notification{
		{ID: 2, Tipo: models.TypeNuevaTarea},
		{ID: 1, Tipo: models.TypeNuevaTarea},
	}, nil)
	api.On("MarkNotificationRead", mock.Anything, models.RoleParent, int64(1)).
		Return(&models.Notification{ID: 1, Tipo: models.TypeNuevaTarea, Leida: true, Mensaje: "server"}, nil)

	f := newTestFeed(api, &fakeDialer{})
	require.NoError(t, f.LoadInitial(context.Background(), 42, models.RoleParent))

	updated, err := f.MarkRead(context.Background(), 1)
	require.NoError(t, err)
	assert.True(t, updated.Leida)

	list := f.Notifications()
	assert.Equal(t, []int64{2, 1}, ids(list))
	assert.Equal(t, "server", list[1].Mensaje)
	assert.Equal(t, 1, f.UnreadCount())
}

func TestFeed_MarkReadFailureChangesNothing(t *testing.T) {
	api := new(MockNotificationAPI)
	api.On("ListNotifications", mock.Anything, models.RoleParent, int64(42), false).
		Return([]models.Notification{{ID: 1, Tipo: models.TypeNuevaTarea}}, nil)
	api.On("MarkNotificationRead", mock.Anything, models.RoleParent, int64(1)).Return(nil, errors.New("timeout"))

	f := newTestFeed(api, &fakeDialer{})
	require.NoError(t, f.LoadInitial(context.Background(), 42, models.RoleParent))

	_, err := f.MarkRead(context.Background(), 1)
	assert.Error(t, err)
	assert.Equal(t, 1, f.UnreadCount())
}

func TestFeed_MarkReadWithoutSession(t *testing.T) {
	f := newTestFeed(new(MockNotificationAPI), &fakeDialer{})
	_, err := f.MarkRead(context.Background(), 1)
	assert.ErrorIs(t, err, ErrNoSession)
}

func TestFeed_MarkAllReadIsIdempotent(t *testing.T) {
	api := new(MockNotificationAPI)
	api.On("ListNotifications", mock.Anything, models.RoleTherapist, int64(9), false).Return([]models.Notification{
		{ID: 3, Tipo: models.TypeTareaEntregada},
		{ID: 2, Tipo: models.TypeNuevoPaciente, Leida: true},
		{ID: 1, Tipo: models.TypeEventoCentro},
	}, nil)
	api.On("MarkAllNotificationsRead", mock.Anything, models.RoleTherapist, int64(9)).Return(2, nil).Once()
	api.On("MarkAllNotificationsRead", mock.Anything, models.RoleTherapist, int64(9)).Return(0, nil).Once()

	f := newTestFeed(api, &fakeDialer{})
	require.NoError(t, f.LoadInitial(context.Background(), 9, models.RoleTherapist))

	for i := 0; i < 2; i++ {
		_, err := f.MarkAllRead(context.Background(), 9, models.RoleTherapist)
		require.NoError(t, err)

		assert.Equal(t, []int64{3, 2, 1}, ids(f.Notifications()))
		assert.Zero(t, f.UnreadCount())
		for _, n := range f.Notifications() {
			assert.True(t, n.Leida)
		}
	}
	api.AssertExpectations(t)
}

func TestFeed_MarkAllReadFailureChangesNothing(t *testing.T) {
	api := new(MockNotificationAPI)
	api.On("ListNotifications", mock.Anything, models.RoleParent, int64(42), false).
		Return([]models.Notification{{ID: 1, Tipo: models.TypeNuevaTarea}}, nil)
	api.On("MarkAllNotificationsRead", mock.Anything, models.RoleParent, int64(42)).Return(0, errors.New("down"))

	f := newTestFeed(api, &fakeDialer{})
	require.NoError(t, f.LoadInitial(context.Background(), 42, models.RoleParent))

	_, err := f.MarkAllRead(context.Background(), 42, models.RoleParent)
	assert.Error(t, err)
	assert.Equal(t, 1, f.UnreadCount())
}

func TestFeed_SubscribersSeeEveryChange(t *testing.T) {
	api := new(MockNotificationAPI)
	api.On("ListNotifications", mock.Anything, models.RoleParent, int64(42), false).
		Return([]models.Notification{{ID: 1, Tipo: models.TypeNuevaTarea}}, nil)
	api.On("MarkAllNotificationsRead", mock.Anything, models.RoleParent, int64(42)).Return(1, nil)

	f := newTestFeed(api, &fakeDialer{})

	var unread []int
	unsubscribe := f.Subscribe(func(list []models.Notification) {
		unread = append(unread, countUnread(list))
	})
	defer unsubscribe()

	require.NoError(t, f.LoadInitial(context.Background(), 42, models.RoleParent))
	_, err := f.MarkAllRead(context.Background(), 42, models.RoleParent)
	require.NoError(t, err)

	assert.Equal(t, []int{1, 0}, unread)
}
