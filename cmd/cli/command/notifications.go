package command

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"strconv"
	"syscall"

	"github.com/fatih/color"
	"github.com/spf13/cobra"
	"golang.org/x/time/rate"

	"terapiahub/internal/api"
	"terapiahub/internal/auth"
	"terapiahub/internal/models"
	"terapiahub/internal/notification"
)

var unreadOnly bool

var notificationsCmd = &cobra.Command{
	Use:     "notificaciones",
	Aliases: []string{"notif"},
	Short:   "Live notifications for parents and therapists",
}

var listenCmd = &cobra.Command{
	Use:   "escuchar",
	Short: "Load notifications and listen for new ones until Ctrl+C",
	RunE: func(cmd *cobra.Command, args []string) error {
		session, client, tok, err := currentSession()
		if err != nil {
			return err
		}

		feed := newFeed(client, tok, alerterFromConfig())
		ctx := cmd.Context()

		if err := feed.LoadInitial(ctx, session.UserID, session.Role); err != nil {
			color.Yellow("⚠️  Could not load existing notifications: %v", err)
		} else {
			printNotifications(session.Role, feed.Notifications())
		}

		unsubscribe := feed.OnStateChange(func(s notification.ConnState) {
			printState(s)
		})
		defer unsubscribe()

		// the feed keeps retrying on its own after a failed first attempt
		if err := feed.Connect(ctx, session.UserID, session.Role); err != nil {
			color.Red("✗ Could not connect: %v", err)
		}

		interrupt := make(chan os.Signal, 1)
		signal.Notify(interrupt, os.Interrupt, syscall.SIGTERM)
		<-interrupt

		feed.Disconnect()
		fmt.Printf("\n📭 %d unread\n", feed.UnreadCount())
		return nil
	},
}

var listCmd = &cobra.Command{
	Use:   "listar",
	Short: "List your notifications, newest first",
	RunE: func(cmd *cobra.Command, args []string) error {
		session, client, _, err := currentSession()
		if err != nil {
			return err
		}
		if !session.Role.ReceivesNotifications() {
			return fmt.Errorf("%w: %s", notification.ErrRoleWithoutFeed, session.Role)
		}

		list, err := client.ListNotifications(cmd.Context(), session.Role, session.UserID, unreadOnly)
		if err != nil {
			return fmt.Errorf("failed to fetch notifications: %w", err)
		}
		printNotifications(session.Role, list)
		return nil
	},
}

var markReadCmd = &cobra.Command{
	Use:   "marcar-leida [notification_id]",
	Short: "Mark one notification as read",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		id, err := strconv.ParseInt(args[0], 10, 64)
		if err != nil {
			return fmt.Errorf("invalid notification ID: %w", err)
		}

		feed, session, err := loadedFeed(cmd.Context())
		if err != nil {
			return err
		}

		updated, err := feed.MarkRead(cmd.Context(), id)
		if err != nil {
			return fmt.Errorf("failed to mark notification %d: %w", id, err)
		}

		fmt.Printf("✅ %s %s marked as read\n", notification.Icon(session.Role, updated.Tipo), notification.Title(session.Role, updated.Tipo))
		if route, ok := notification.Route(session.Role, updated.Tipo); ok {
			fmt.Printf("   See %s\n", route)
		}
		fmt.Printf("📭 %d unread\n", feed.UnreadCount())
		return nil
	},
}

var markAllCmd = &cobra.Command{
	Use:   "marcar-todas",
	Short: "Mark every notification as read",
	RunE: func(cmd *cobra.Command, args []string) error {
		feed, session, err := loadedFeed(cmd.Context())
		if err != nil {
			return err
		}

		count, err := feed.MarkAllRead(cmd.Context(), session.UserID, session.Role)
		if err != nil {
			return fmt.Errorf("failed to mark notifications: %w", err)
		}

		fmt.Printf("✅ %d notifications marked as read\n", count)
		return nil
	},
}

func init() {
	listCmd.Flags().BoolVar(&unreadOnly, "no-leidas", false, "only unread notifications")

	notificationsCmd.AddCommand(listenCmd)
	notificationsCmd.AddCommand(listCmd)
	notificationsCmd.AddCommand(markReadCmd)
	notificationsCmd.AddCommand(markAllCmd)
}

func newFeed(client *api.Client, tok string, alerter notification.Alerter) *notification.Feed {
	return notification.NewFeed(client, cfg.WSBaseURL,
		notification.WithDialer(notification.NewWSDialer(tok)),
		notification.WithAlerter(alerter),
		notification.WithReconnectDelay(cfg.ReconnectDelay),
		notification.WithLogger(logger),
	)
}

// loadedFeed returns a feed primed with the user's current list so that
// read-state changes are applied to it.
func loadedFeed(ctx context.Context) (*notification.Feed, *auth.Session, error) {
	session, client, tok, err := currentSession()
	if err != nil {
		return nil, nil, err
	}
	if !session.Role.ReceivesNotifications() {
		return nil, nil, fmt.Errorf("%w: %s", notification.ErrRoleWithoutFeed, session.Role)
	}

	feed := newFeed(client, tok, notification.NopAlerter{})
	if err := feed.LoadInitial(ctx, session.UserID, session.Role); err != nil {
		return nil, nil, fmt.Errorf("failed to fetch notifications: %w", err)
	}
	return feed, session, nil
}

func alerterFromConfig() notification.Alerter {
	permission := notification.PermissionDenied
	if cfg.AlertsEnabled {
		permission = notification.PermissionGranted
	}
	terminal := notification.NewTerminalAlerter(os.Stdout, permission, cfg.AlertsEnabled && cfg.AlertSound)
	return notification.NewThrottledAlerter(terminal, rate.Limit(cfg.AlertRate), cfg.AlertBurst)
}

func printNotifications(role models.Role, list []models.Notification) {
	if len(list) == 0 {
		fmt.Println("📭 No notifications")
		return
	}

	unread := 0
	for _, n := range list {
		if !n.Leida {
			unread++
		}
	}
	fmt.Printf("🔔 Notifications (%d, %d unread)\n", len(list), unread)
	fmt.Println("─────────────────────────────────────────────────────────")
	for _, n := range list {
		marker := " "
		if !n.Leida {
			marker = color.New(color.FgCyan, color.Bold).Sprint("●")
		}
		fmt.Printf("%s %s [%d] %s\n", marker, notification.Icon(role, n.Tipo), n.ID, notification.Title(role, n.Tipo))
		fmt.Printf("    %s\n", n.Mensaje)
		fmt.Printf("    %s", n.Fecha.Local().Format("2006-01-02 15:04"))
		if route, ok := notification.Route(role, n.Tipo); ok {
			fmt.Printf("  →  %s", route)
		}
		fmt.Println()
	}
}

func printState(s notification.ConnState) {
	switch s {
	case notification.StateOpen:
		color.Green("🔌 Connected, waiting for notifications (Ctrl+C to exit)")
	case notification.StateConnecting:
		color.HiBlack("🔌 Connecting...")
	case notification.StateReconnecting:
		color.Yellow("🔌 Connection lost, retrying in %s", cfg.ReconnectDelay)
	case notification.StateDisconnected:
		color.HiBlack("🔌 Disconnected")
	}
}
