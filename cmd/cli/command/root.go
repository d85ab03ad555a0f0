package command

// root.go defines the root command for terapiahubCLI and the helpers every
// subcommand shares: configuration, logging and the session token.

import (
	"errors"
	"fmt"
	"log/slog"
	"os"
	"time"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"terapiahub/cmd/cli/authentication"
	"terapiahub/internal/api"
	"terapiahub/internal/auth"
	"terapiahub/internal/config"
)

var (
	apiURL string // overrides API_BASE_URL
	wsURL  string // overrides WS_BASE_URL
	token  string // overrides AUTH_TOKEN and the stored session

	cfg    *config.Config
	logger *slog.Logger
)

// rootCmd represents the base command when called without any subcommands
var rootCmd = &cobra.Command{
	Use:   "terapiahubCLI",
	Short: "terapiahubCLI - cliente de terminal del centro terapéutico",
	Long: `terapiahubCLI drives the therapy-center client core from a terminal:
- Listen to live notifications for a parent or therapist
- Mark notifications as read
- List, create and select children for a parent account

Use "terapiahubCLI command --help" to see all available commands.`,
	SilenceUsage: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		loaded, err := config.LoadConfig()
		if err != nil {
			return err
		}
		if cmd.Flags().Changed("api") {
			loaded.APIBaseURL = apiURL
		}
		if cmd.Flags().Changed("ws") {
			loaded.WSBaseURL = wsURL
		}
		if err := loaded.Validate(); err != nil {
			return err
		}
		cfg = loaded
		logger = cfg.NewLogger(os.Stderr)
		slog.SetDefault(logger)
		return nil
	},
}

// Execute adds all child commands to the root command and sets flags appropriately.
// This is called by main.main(). It only needs to happen once to the rootCmd.
func Execute() {
	err := rootCmd.Execute()
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func init() {
	rootCmd.PersistentFlags().StringVar(&apiURL, "api", "", "backend REST base URL (default from API_BASE_URL)")
	rootCmd.PersistentFlags().StringVar(&wsURL, "ws", "", "backend WebSocket base URL (default from WS_BASE_URL)")
	rootCmd.PersistentFlags().StringVar(&token, "token", "", "session JWT (default from AUTH_TOKEN or the stored session)")

	rootCmd.AddCommand(sessionCmd)
	rootCmd.AddCommand(notificationsCmd)
	rootCmd.AddCommand(childrenCmd)
}

// resolveToken picks the flag, then AUTH_TOKEN, then the keyring.
func resolveToken() (string, error) {
	if token != "" {
		return token, nil
	}
	if cfg.AuthToken != "" {
		return cfg.AuthToken, nil
	}
	stored, err := authentication.GetSession()
	if errors.Is(err, authentication.ErrNoStoredSession) {
		return "", errors.New("not signed in: pass --token, set AUTH_TOKEN or run 'sesion iniciar'")
	}
	if err != nil {
		return "", fmt.Errorf("read stored session: %w", err)
	}
	return stored.Token, nil
}

// currentSession returns who the token belongs to and a client that sends it.
func currentSession() (*auth.Session, *api.Client, string, error) {
	tok, err := resolveToken()
	if err != nil {
		return nil, nil, "", err
	}
	session, err := auth.ParseSession(tok)
	if err != nil {
		return nil, nil, "", err
	}
	if session.Expired(time.Now()) {
		color.Yellow("⚠️  The session token expired at %s; the backend may reject it", session.ExpiresAt.Format(time.RFC3339))
	}

	client := api.NewClient(cfg.APIBaseURL, cfg.HTTPTimeout)
	client.SetToken(tok)
	return session, client, tok, nil
}
