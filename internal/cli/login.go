// internal/cli/login.go
package cli

import (
	"errors"
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"golang.org/x/term"

	"github.com/celltrack/crawler/internal/app"
	"github.com/celltrack/crawler/internal/catalog"
	"github.com/celltrack/crawler/internal/ui"
)

var loginEmail string

// loginCmd represents the login command
var loginCmd = &cobra.Command{
	Use:   "login",
	Short: "Authenticate against the catalog backend and save the tokens",
	Long: `Prompts for backend credentials, exchanges them for an access and
refresh token pair, and persists the tokens (OS keyring when available,
a file under the home directory otherwise). Subsequent commands reuse
the saved tokens and only prompt again when both have expired.`,
	Example: `  # Prompt for email and password
  crawler login

  # Prompt for the password only
  crawler login --email=ops@example.com`,
	Args: cobra.NoArgs,
	RunE: runLogin,
}

func init() {
	rootCmd.AddCommand(loginCmd)

	loginCmd.Flags().StringVar(&loginEmail, "email", "", "Backend account email")
}

func runLogin(cmd *cobra.Command, args []string) error {
	a := GetAppFromCmd(cmd)
	ctx := cmd.Context()

	email := loginEmail
	var password string
	if email == "" {
		var err error
		email, password, err = app.PromptCredentials(ctx)
		if err != nil {
			return err
		}
	} else {
		var err error
		password, err = promptPassword()
		if err != nil {
			return err
		}
	}

	if err := a.Sessions.Login(ctx, email, password); err != nil {
		if errors.Is(err, catalog.ErrInvalidCredentials) {
			fmt.Fprintln(os.Stdout, ui.Error("invalid credentials"))
			return err
		}
		return fmt.Errorf("login failed: %w", err)
	}

	// Tokens are persisted by Application.Close after the command runs.
	fmt.Fprintln(os.Stdout, ui.Success("login successful"))
	return nil
}

func promptPassword() (string, error) {
	fmt.Fprint(os.Stderr, "Password: ")
	fd := int(os.Stdin.Fd())
	if term.IsTerminal(fd) {
		raw, err := term.ReadPassword(fd)
		fmt.Fprintln(os.Stderr)
		if err != nil {
			return "", fmt.Errorf("read password: %w", err)
		}
		return string(raw), nil
	}
	var password string
	if _, err := fmt.Fscanln(os.Stdin, &password); err != nil {
		return "", fmt.Errorf("read password: %w", err)
	}
	return password, nil
}
