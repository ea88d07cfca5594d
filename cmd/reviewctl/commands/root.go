// Package commands implements the reviewctl command tree.
package commands

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/J-Stott/RegularReviewsBackEnd/internal/config"
)

// options are the global flags plus the hooks tests replace.
type options struct {
	server     string
	token      string
	timeout    time.Duration
	jsonOutput bool

	loadConfig func() (*config.Config, error)
}

// NewRootCmd builds the reviewctl command tree.
func NewRootCmd() *cobra.Command {
	return newRootCmd(&options{loadConfig: config.Load})
}

func newRootCmd(opts *options) *cobra.Command {
	root := &cobra.Command{
		Use:   "reviewctl",
		Short: "Operate the Regular Reviews service",
		Long: `reviewctl repairs derived aggregates and manages the review database.

Recomputation runs inside the service through the admin API, so it is
serialized with live traffic by the service's keyed locks. Without --token,
an admin token is signed with JWT_SECRET from the environment.`,
		SilenceUsage: true,
	}

	root.PersistentFlags().StringVar(&opts.server, "server", envOr("REVIEWCTL_SERVER", "http://localhost:8080"), "Review service base URL")
	root.PersistentFlags().StringVar(&opts.token, "token", os.Getenv("REVIEWCTL_TOKEN"), "Admin bearer token")
	root.PersistentFlags().DurationVar(&opts.timeout, "timeout", 5*time.Minute, "Request timeout")
	root.PersistentFlags().BoolVar(&opts.jsonOutput, "json", false, "Output in JSON format")

	root.AddCommand(
		newRecomputeCmd(opts),
		newTokenCmd(opts),
		newMigrateCmd(opts),
	)
	return root
}

// Execute runs the root command until it finishes or the process is
// interrupted.
func Execute() {
	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	if err := NewRootCmd().ExecuteContext(ctx); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func envOr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}
