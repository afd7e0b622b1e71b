package cmd

import (
	"bufio"
	"context"
	"fmt"
	"path/filepath"

	"github.com/spf13/cobra"
	"google.golang.org/api/drive/v3"

	"github.com/plexdrive/plexdrive/internal/config"
	"github.com/plexdrive/plexdrive/internal/metadata"
	"github.com/plexdrive/plexdrive/internal/remote/auth"
)

var (
	initClientID     string
	initClientSecret string
)

var initCmd = &cobra.Command{
	Use:   "init",
	Short: "Authorize plexdrive and initialize the local cache",
	RunE:  runInit,
}

func init() {
	initCmd.Flags().StringVar(&initClientID, "client-id", "", "OAuth client id")
	initCmd.Flags().StringVar(&initClientSecret, "client-secret", "", "OAuth client secret")
	initCmd.MarkFlagRequired("client-id")
	initCmd.MarkFlagRequired("client-secret")
}

func runInit(cmd *cobra.Command, args []string) error {
	ctx := context.Background()

	if err := config.Wipe(configDir); err != nil {
		return fmt.Errorf("init: %w", err)
	}

	if err := config.Write(configDir, config.Credentials{
		ClientID:     initClientID,
		ClientSecret: initClientSecret,
	}); err != nil {
		return fmt.Errorf("init: %w", err)
	}

	tokenSource := auth.New(initClientID, initClientSecret, filepath.Join(configDir, config.TokenFileName), []string{drive.DriveReadonlyScope})

	fmt.Fprintln(cmd.OutOrStdout(), "Visit the URL below, authorize plexdrive, and paste the resulting code:")
	fmt.Fprintln(cmd.OutOrStdout(), tokenSource.AuthCodeURL())
	fmt.Fprint(cmd.OutOrStdout(), "Code: ")

	reader := bufio.NewReader(cmd.InOrStdin())
	code, err := reader.ReadString('\n')
	if err != nil {
		return fmt.Errorf("init: reading authorization code: %w", err)
	}
	code = trimNewline(code)

	if err := tokenSource.Exchange(ctx, code); err != nil {
		return fmt.Errorf("init: %w", err)
	}

	store, err := metadata.Open(filepath.Join(configDir, config.DatabaseFileName))
	if err != nil {
		return fmt.Errorf("init: %w", err)
	}
	defer store.Close()

	if err := store.Initialize(ctx); err != nil {
		return fmt.Errorf("init: %w", err)
	}

	fmt.Fprintln(cmd.OutOrStdout(), "plexdrive initialized in", configDir)
	return nil
}

func trimNewline(s string) string {
	for len(s) > 0 && (s[len(s)-1] == '\n' || s[len(s)-1] == '\r') {
		s = s[:len(s)-1]
	}
	return s
}
