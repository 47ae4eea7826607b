// Command fitnessctl runs maintenance tasks against a fitness API deployment.
// It reads the same environment as the API server.
package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/redmonkez12/fitness-api/internal/auth"
	"github.com/redmonkez12/fitness-api/internal/config"
	"github.com/redmonkez12/fitness-api/internal/database"
)

func main() {
	if err := newRootCmd().Execute(); err != nil {
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	rootCmd := &cobra.Command{
		Use:           "fitnessctl",
		Short:         "Maintenance commands for the fitness API",
		SilenceUsage:  true,
		SilenceErrors: false,
	}

	migrateCmd := &cobra.Command{
		Use:   "migrate",
		Short: "Apply pending database migrations",
		RunE:  runMigrate,
	}

	tokenCmd := &cobra.Command{
		Use:   "token",
		Short: "Work with issued tokens",
	}

	inspectCmd := &cobra.Command{
		Use:   "inspect <token>",
		Short: "Verify a token with the configured secrets and print its claims",
		Args:  cobra.ExactArgs(1),
		RunE:  runInspect,
	}
	inspectCmd.Flags().String("kind", "access", "Token kind (access, refresh, reset)")

	tokenCmd.AddCommand(inspectCmd)
	rootCmd.AddCommand(migrateCmd, tokenCmd)

	return rootCmd
}

func runMigrate(cmd *cobra.Command, _ []string) error {
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}

	db, err := database.Open(cfg.Database)
	if err != nil {
		return err
	}
	defer db.Close()

	if err := database.RunMigrations(cmd.Context(), db.DB); err != nil {
		return err
	}

	fmt.Fprintln(cmd.OutOrStdout(), "migrations applied")
	return nil
}

func runInspect(cmd *cobra.Command, args []string) error {
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}

	kind, _ := cmd.Flags().GetString("kind")
	claims, err := inspectToken(cfg.Auth, kind, args[0])
	if err != nil {
		return err
	}

	out := cmd.OutOrStdout()
	fmt.Fprintf(out, "user:     %s\n", claims.UserID)
	fmt.Fprintf(out, "subject:  %s\n", claims.Subject)
	fmt.Fprintf(out, "id:       %s\n", claims.ID)
	fmt.Fprintf(out, "issued:   %s\n", claims.IssuedAt.UTC().Format("2006-01-02T15:04:05Z"))
	fmt.Fprintf(out, "expires:  %s\n", claims.ExpiresAt.UTC().Format("2006-01-02T15:04:05Z"))
	return nil
}

// inspectToken verifies token as the given kind. Revocation is not checked.
func inspectToken(cfg config.AuthConfig, kind, token string) (*auth.Claims, error) {
	secret := map[string]string{
		"access":  cfg.AccessSecret,
		"refresh": cfg.RefreshSecret,
		"reset":   cfg.ResetSecret,
	}[kind]
	if secret == "" {
		return nil, fmt.Errorf("unknown token kind %q", kind)
	}

	signer, err := auth.NewSigner(cfg.TokenFormat, secret)
	if err != nil {
		return nil, err
	}
	tokens := auth.NewTokenService(signer, signer, signer, 0, 0, 0)

	switch kind {
	case "access":
		return tokens.VerifyAccess(token)
	case "refresh":
		return tokens.VerifyRefresh(token)
	default:
		return tokens.VerifyReset(token)
	}
}

