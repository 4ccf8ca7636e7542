package main

import (
	"errors"
	"io"

	"github.com/jrsteele09/go-directory-session/directory"
	"github.com/jrsteele09/go-directory-session/internal/config"
	"github.com/jrsteele09/go-directory-session/internal/logging"
	"github.com/jrsteele09/go-directory-session/internal/metrics"
	"github.com/jrsteele09/go-directory-session/internal/tokenstore"
	"github.com/jrsteele09/go-directory-session/session"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/spf13/cobra"
)

// errReported is returned after a failure has already been printed.
var errReported = errors.New("failure reported")

// flagBindings maps persistent flags onto configuration keys.
var flagBindings = map[string]string{
	"API_BASE_URL": "api-url",
	"TOKEN_STORE":  "token-store",
	"LOG_LEVEL":    "log-level",
}

type cli struct {
	jsonOut    bool
	configFile string

	cfg      config.Config
	closer   io.Closer
	registry *prometheus.Registry
	manager  *session.Manager
}

func newRootCmd() *cobra.Command {
	c := &cli{}
	root := &cobra.Command{
		Use:   "dirsession",
		Short: "Manage a business directory login session",
		Long: `Log in to the business directory API and manage the stored session.

Examples:
  dirsession login alice
  dirsession whoami --json
  dirsession dashboard
  dirsession logout`,
		SilenceUsage:       true,
		SilenceErrors:      true,
		PersistentPreRunE:  c.setup,
		PersistentPostRunE: c.teardown,
	}

	root.PersistentFlags().BoolVar(&c.jsonOut, "json", false, "output JSON")
	root.PersistentFlags().StringVar(&c.configFile, "config", "", "config file (yaml, json or toml)")
	root.PersistentFlags().String("api-url", "", "directory API base URL")
	root.PersistentFlags().String("token-store", "", "token backend: memory, file, sqlite or redis")
	root.PersistentFlags().String("log-level", "", "log level (debug, info, warn, error)")

	root.AddCommand(
		c.loginCmd(),
		c.logoutCmd(),
		c.signupCmd(),
		c.whoamiCmd(),
		c.statusCmd(),
		c.dashboardCmd(),
	)
	return root
}

func (c *cli) setup(cmd *cobra.Command, _ []string) error {
	config.Reset()
	if err := config.LoadFile(c.configFile); err != nil {
		return err
	}
	for key, name := range flagBindings {
		if err := config.BindFlag(key, cmd.Root().PersistentFlags().Lookup(name)); err != nil {
			return err
		}
	}

	c.cfg = config.New()
	logging.Setup(c.cfg.GetLogLevel(), c.cfg.GetEnv())

	store, closer, err := tokenstore.Open(c.cfg)
	if err != nil {
		return err
	}
	c.closer = closer
	c.registry = prometheus.NewRegistry()
	c.manager = session.New(
		directory.NewFromConfig(c.cfg, store),
		store,
		session.WithMetrics(metrics.New(c.registry)),
	)
	return nil
}

func (c *cli) teardown(*cobra.Command, []string) error {
	if c.manager != nil {
		c.manager.Close()
	}
	if c.closer != nil {
		return c.closer.Close()
	}
	return nil
}
