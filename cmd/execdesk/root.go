package main

import (
	"context"
	"os"

	"github.com/rs/zerolog"
	"github.com/spf13/cobra"

	"github.com/execdesk/execdesk/internal/app"
	"github.com/execdesk/execdesk/internal/config"
	"github.com/execdesk/execdesk/internal/generation"
)

var (
	flagConfig string
	flagOrg    string
)

var rootCmd = &cobra.Command{
	Use:           "execdesk",
	Short:         "Delegation and task lifecycle engine",
	Long:          "execdesk plans work with a generation collaborator, routes it to specialists and a worker pool, and tracks the review lifecycle.",
	SilenceUsage:  true,
	SilenceErrors: false,
}

func init() {
	rootCmd.PersistentFlags().StringVar(&flagConfig, "config", "", "path to config file (default ./execdesk.yaml)")
	rootCmd.PersistentFlags().StringVar(&flagOrg, "org", "default", "organization key to operate on")
}

func newLogger() zerolog.Logger {
	return zerolog.New(zerolog.ConsoleWriter{Out: os.Stderr}).With().Timestamp().Logger()
}

// buildApp assembles the engine; configuration errors are fatal here and
// nowhere else.
func buildApp(ctx context.Context, logger zerolog.Logger) (*app.App, error) {
	cfg, err := config.Load(flagConfig)
	if err != nil {
		return nil, err
	}
	return app.New(ctx, cfg, generationClient(), logger)
}

// generationClient picks the collaborator. The engine treats it as a black
// box; the offline static client keeps every command usable without
// credentials.
func generationClient() generation.Client {
	return &generation.StaticClient{}
}

func orgRuntime(a *app.App) (*app.OrgRuntime, error) {
	rt, ok := a.Org(flagOrg)
	if !ok {
		return nil, errUnknownOrg(flagOrg)
	}
	return rt, nil
}

type errUnknownOrg string

func (e errUnknownOrg) Error() string { return "unknown organization: " + string(e) }
