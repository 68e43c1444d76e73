package main

import (
	"fmt"
	"log/slog"
	"os"
	"time"

	"github.com/gitclixlogix/contentry/pkg/client"
	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"
)

var (
	serverURL   string
	credentials string
	debug       bool
)

var rootCmd = &cobra.Command{
	Use:   "contentry",
	Short: "Content moderation from the command line",
	Long: "Contentry submits content to the moderation API and reports the\n" +
		"AI verdict: a safety score, per-category breakdown, and suggestion.",
	SilenceUsage: true,
}

func init() {
	rootCmd.PersistentFlags().StringVar(&serverURL, "server", "",
		"API base URL (default: CONTENTRY_SERVER env var or http://localhost:8080)")
	rootCmd.PersistentFlags().StringVar(&credentials, "credentials", "",
		"path to credentials file (default: ~/.contentry/credentials.yaml)")
	rootCmd.PersistentFlags().BoolVar(&debug, "debug", false, "enable debug logging")
}

func setupLogger(dbg bool) *slog.Logger {
	logLevel := slog.LevelInfo
	if dbg {
		logLevel = slog.LevelDebug
	}
	return slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: logLevel}))
}

func credentialsPath() (string, error) {
	if credentials != "" {
		return credentials, nil
	}
	path, err := client.DefaultCredentialsPath()
	if err != nil {
		return "", fmt.Errorf("locating credentials: %w", err)
	}
	return path, nil
}

// resolveServer picks the API base URL.
// Priority: --server flag > CONTENTRY_SERVER env var > base_url in the
// credentials file > localhost default.
func resolveServer(credPath string) string {
	if serverURL != "" {
		return serverURL
	}
	if env := os.Getenv("CONTENTRY_SERVER"); env != "" {
		return env
	}
	if data, err := os.ReadFile(credPath); err == nil {
		var creds struct {
			BaseURL string `yaml:"base_url"`
		}
		if yaml.Unmarshal(data, &creds) == nil && creds.BaseURL != "" {
			return creds.BaseURL
		}
	}
	return "http://localhost:8080"
}

// resolveIdentity picks the identity source.
// Priority: CONTENTRY_USER_ID/CONTENTRY_API_KEY env vars > the
// credentials file.
func resolveIdentity(credPath string) client.IdentitySource {
	if userID := os.Getenv("CONTENTRY_USER_ID"); userID != "" {
		return client.Static(userID, os.Getenv("CONTENTRY_API_KEY"))
	}
	return client.FromFile(credPath)
}

func newClient(logger *slog.Logger, interval time.Duration) (*client.Client, error) {
	credPath, err := credentialsPath()
	if err != nil {
		return nil, err
	}
	opts := []client.Option{client.WithLogger(logger)}
	if interval > 0 {
		opts = append(opts, client.WithInterval(interval))
	}
	return client.New(resolveServer(credPath), resolveIdentity(credPath), opts...), nil
}
