package devserver

// server.go = in-memory stand-in for the therapy-center backend: the
// notification and child REST endpoints plus the push WebSocket.

import (
	"fmt"
	"log/slog"
	"net/http"
	"sort"
	"strconv"
	"sync"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"

	"terapiahub/internal/models"
)

const writeWait = 10 * time.Second

type feedKey struct {
	role   models.Role
	userID int64
}

// subscriber serializes writes; gorilla allows one concurrent writer per conn.
type subscriber struct {
	conn *websocket.Conn
	mu   sync.Mutex
}

func (s *subscriber) writeJSON(v any) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.conn.SetWriteDeadline(time.Now().Add(writeWait))
	return s.conn.WriteJSON(v)
}

type Server struct {
	mu            sync.Mutex
	notifications map[feedKey][]models.Notification // newest first
	children      []models.Child                    // newest first
	subs          map[feedKey]map[*subscriber]struct{}
	nextID        int64
	connections   int
	lastClientID  string

	upgrader websocket.Upgrader
	router   *gin.Engine
	logger   *slog.Logger
}

func New(logger *slog.Logger) *Server {
	if logger == nil {
		logger = slog.Default()
	}
	s := &Server{
		notifications: make(map[feedKey][]models.Notification),
		subs:          make(map[feedKey]map[*subscriber]struct{}),
		nextID:        1,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			CheckOrigin:     func(r *http.Request) bool { return true },
		},
		logger: logger,
	}
	s.router = s.routes()
	return s
}

// Handler exposes the router for http.Server or httptest.
func (s *Server) Handler() http.Handler {
	return s.router
}

func (s *Server) routes() *gin.Engine {
	r := gin.New()
	r.Use(gin.Recovery(), sessionMiddleware(), s.requestLogger())

	for _, role := range []models.Role{models.RoleParent, models.RoleTherapist} {
		g := r.Group("/" + string(role))
		h := &roleHandler{srv: s, role: role}
		g.GET("/notificaciones/:id", h.list)
		g.PUT("/notificaciones/:id/marcar-leida", h.markRead)
		g.PUT("/notificaciones/:id/marcar-todas-leidas", h.markAllRead)
	}

	hijos := r.Group("/padre/hijos")
	hijos.GET("", s.listChildren)
	hijos.POST("", s.createChild)
	hijos.PUT("/:id", s.updateChild)
	hijos.DELETE("/:id", s.deleteChild)

	r.GET("/notificaciones/ws/:role/:userId", s.serveWS)

	// manual testing from the CLI or curl
	r.POST("/dev/push/:role/:userId", s.pushHandler)
	r.POST("/dev/drop/:role/:userId", s.dropHandler)

	return r
}

// Push stores n for (role, userID), assigning id and date when missing, and
// sends it to every open socket of that user.
func (s *Server) Push(role models.Role, userID int64, n models.Notification) models.Notification {
	key := feedKey{role: role, userID: userID}

	s.mu.Lock()
	if n.ID == 0 {
		n.ID = s.allocIDLocked()
	} else if n.ID >= s.nextID {
		s.nextID = n.ID + 1
	}
	if n.Fecha.IsZero() {
		n.Fecha = time.Now().UTC()
	}
	n.UsuarioID = userID
	s.notifications[key] = append([]models.Notification{n}, s.notifications[key]...)
	targets := s.subscribersLocked(key)
	s.mu.Unlock()

	for _, sub := range targets {
		if err := sub.writeJSON(n); err != nil {
			s.logger.Warn("push_failed", "role", role, "user_id", userID, "error", err)
		}
	}
	return n
}

// PushRaw sends an arbitrary frame without storing it.
func (s *Server) PushRaw(role models.Role, userID int64, frame []byte) {
	s.mu.Lock()
	targets := s.subscribersLocked(feedKey{role: role, userID: userID})
	s.mu.Unlock()

	for _, sub := range targets {
		sub.mu.Lock()
		sub.conn.SetWriteDeadline(time.Now().Add(writeWait))
		err := sub.conn.WriteMessage(websocket.TextMessage, frame)
		sub.mu.Unlock()
		if err != nil {
			s.logger.Warn("push_raw_failed", "error", err)
		}
	}
}

// Drop closes every socket of (role, userID) without a close handshake, the
// way a network failure would.
func (s *Server) Drop(role models.Role, userID int64) int {
	key := feedKey{role: role, userID: userID}

	s.mu.Lock()
	targets := s.subscribersLocked(key)
	delete(s.subs, key)
	s.mu.Unlock()

	for _, sub := range targets {
		sub.conn.Close()
	}
	return len(targets)
}

// Subscribers is the number of open sockets for (role, userID).
func (s *Server) Subscribers(role models.Role, userID int64) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.subs[feedKey{role: role, userID: userID}])
}

// Connections counts every accepted socket since start.
func (s *Server) Connections() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.connections
}

// SetChildren seeds the child list, newest first.
func (s *Server) SetChildren(list []models.Child) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.children = append([]models.Child(nil), list...)
	for _, c := range list {
		if c.ID >= s.nextID {
			s.nextID = c.ID + 1
		}
	}
}

func (s *Server) allocIDLocked() int64 {
	id := s.nextID
	s.nextID++
	return id
}

func (s *Server) subscribersLocked(key feedKey) []*subscriber {
	out := make([]*subscriber, 0, len(s.subs[key]))
	for sub := range s.subs[key] {
		out = append(out, sub)
	}
	return out
}

func (s *Server) serveWS(c *gin.Context) {
	role, err := models.ParseRole(c.Param("role"))
	if err != nil || !role.ReceivesNotifications() {
		c.JSON(http.StatusNotFound, gin.H{"error": "unknown role"})
		return
	}
	userID, err := strconv.ParseInt(c.Param("userId"), 10, 64)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid user id"})
		return
	}

	conn, err := s.upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		s.logger.Error("websocket_upgrade_failed", "error", err)
		return
	}

	key := feedKey{role: role, userID: userID}
	sub := &subscriber{conn: conn}

	s.mu.Lock()
	if s.subs[key] == nil {
		s.subs[key] = make(map[*subscriber]struct{})
	}
	s.subs[key][sub] = struct{}{}
	s.connections++
	s.mu.Unlock()

	s.logger.Info("push_subscriber_joined", "role", role, "user_id", userID)

	// clients never send payloads; reading only detects the close
	for {
		if _, _, err := conn.ReadMessage(); err != nil {
			break
		}
	}

	s.mu.Lock()
	delete(s.subs[key], sub)
	s.mu.Unlock()
	conn.Close()

	s.logger.Info("push_subscriber_left", "role", role, "user_id", userID)
}

func (s *Server) pushHandler(c *gin.Context) {
	role, userID, ok := feedParams(c)
	if !ok {
		return
	}
	var n models.Notification
	if err := c.ShouldBindJSON(&n); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusCreated, s.Push(role, userID, n))
}

func (s *Server) dropHandler(c *gin.Context) {
	role, userID, ok := feedParams(c)
	if !ok {
		return
	}
	c.JSON(http.StatusOK, gin.H{"dropped": s.Drop(role, userID)})
}

func feedParams(c *gin.Context) (models.Role, int64, bool) {
	role, err := models.ParseRole(c.Param("role"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return "", 0, false
	}
	userID, err := strconv.ParseInt(c.Param("userId"), 10, 64)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid user id"})
		return "", 0, false
	}
	return role, userID, true
}

type roleHandler struct {
	srv  *Server
	role models.Role
}

// GET /{role}/notificaciones/{userId}[?solo_no_leidas=true]
func (h *roleHandler) list(c *gin.Context) {
	userID, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid user id"})
		return
	}
	unreadOnly := c.Query("solo_no_leidas") == "true"

	h.srv.mu.Lock()
	src := h.srv.notifications[feedKey{role: h.role, userID: userID}]
	out := make([]models.Notification, 0, len(src))
	for _, n := range src {
		if unreadOnly && n.Leida {
			continue
		}
		out = append(out, n)
	}
	h.srv.mu.Unlock()

	sort.SliceStable(out, func(i, j int) bool { return out[i].Fecha.After(out[j].Fecha) })
	c.JSON(http.StatusOK, out)
}

// PUT /{role}/notificaciones/{id}/marcar-leida
func (h *roleHandler) markRead(c *gin.Context) {
	id, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid notification id"})
		return
	}

	h.srv.mu.Lock()
	defer h.srv.mu.Unlock()
	for key, list := range h.srv.notifications {
		if key.role != h.role {
			continue
		}
		for i := range list {
			if list[i].ID == id {
				list[i].Leida = true
				c.JSON(http.StatusOK, list[i])
				return
			}
		}
	}
	c.JSON(http.StatusNotFound, gin.H{"error": fmt.Sprintf("notification %d not found", id)})
}

// PUT /{role}/notificaciones/{userId}/marcar-todas-leidas
func (h *roleHandler) markAllRead(c *gin.Context) {
	userID, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid user id"})
		return
	}

	h.srv.mu.Lock()
	list := h.srv.notifications[feedKey{role: h.role, userID: userID}]
	marked := 0
	for i := range list {
		if !list[i].Leida {
			list[i].Leida = true
			marked++
		}
	}
	h.srv.mu.Unlock()

	c.JSON(http.StatusOK, models.MarkAllResult{Marcadas: marked})
}
