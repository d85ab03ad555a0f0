package command

import (
	"fmt"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"terapiahub/cmd/cli/authentication"
	"terapiahub/internal/auth"
)

var sessionCmd = &cobra.Command{
	Use:   "sesion",
	Short: "Manage the stored session token",
	Long:  `Store, show or remove the session JWT kept in the OS keyring.`,
}

var sessionLoginCmd = &cobra.Command{
	Use:   "iniciar [token]",
	Short: "Store a session token issued by the auth service",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		session, err := auth.ParseSession(args[0])
		if err != nil {
			return fmt.Errorf("cannot use token: %w", err)
		}

		stored := &authentication.StoredSession{
			Token:  args[0],
			UserID: session.UserID,
			Role:   string(session.Role),
		}
		if !session.ExpiresAt.IsZero() {
			stored.ExpiresAt = session.ExpiresAt.Unix()
		}
		if err := authentication.StoreSession(stored); err != nil {
			return fmt.Errorf("store session: %w", err)
		}

		color.Green("✓ Session stored for %s #%d", session.Role, session.UserID)
		return nil
	},
}

var sessionShowCmd = &cobra.Command{
	Use:   "ver",
	Short: "Show who the current token belongs to",
	RunE: func(cmd *cobra.Command, args []string) error {
		session, _, _, err := currentSession()
		if err != nil {
			return err
		}

		fmt.Printf("User:  %d\n", session.UserID)
		fmt.Printf("Role:  %s\n", session.Role)
		if session.Name != "" {
			fmt.Printf("Name:  %s\n", session.Name)
		}
		if !session.ExpiresAt.IsZero() {
			fmt.Printf("Until: %s\n", session.ExpiresAt.Format("2006-01-02 15:04"))
		}
		return nil
	},
}

var sessionLogoutCmd = &cobra.Command{
	Use:   "cerrar",
	Short: "Remove the stored session token",
	RunE: func(cmd *cobra.Command, args []string) error {
		if err := authentication.DeleteSession(); err != nil {
			return err
		}
		fmt.Println("✓ Session removed.")
		return nil
	},
}

func init() {
	sessionCmd.AddCommand(sessionLoginCmd)
	sessionCmd.AddCommand(sessionShowCmd)
	sessionCmd.AddCommand(sessionLogoutCmd)
}
