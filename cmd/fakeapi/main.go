// Command fakeapi serves an in-memory directory API for local development.
package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"runtime/debug"
	"syscall"
	"time"

	"github.com/common-nighthawk/go-figure"
	"github.com/go-chi/chi/v5"
	"github.com/jrsteele09/go-directory-session/apifake"
	"github.com/jrsteele09/go-directory-session/internal/config"
	"github.com/jrsteele09/go-directory-session/internal/logging"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog/log"
)

type demoUser struct {
	user     apifake.User
	password string
}

var demoUsers = []demoUser{
	{user: apifake.User{Username: "alice", Email: "alice@example.com", IsCustomer: true, ReviewCount: 4}, password: "alice-password"},
	{user: apifake.User{Username: "owner", Email: "owner@example.com", IsBusinessOwner: true, BusinessCount: 2}, password: "owner-password"},
	{user: apifake.User{Username: "admin", Email: "admin@example.com", IsStaff: true, IsSuperuser: true}, password: "admin-password"},
}

func main() {
	if err := run(); err != nil {
		log.Fatal().Err(err).Msg("fake API stopped")
	}
	log.Info().Msg("fake API stopped")
}

func run() (returnError error) {
	defer func() {
		if r := recover(); r != nil {
			log.Error().Interface("panic", r).Msg("recovered from panic")
			debug.PrintStack()
			returnError = errors.New("panic recovered")
		}
	}()

	c := config.New()
	logging.Setup(c.GetLogLevel(), c.GetEnv())
	displayAppname(c.GetAppName() + " API")

	reg := newRegistry()
	api := apifake.New(
		apifake.WithRegisterer(reg),
		apifake.WithSigningSecret(c.GetSigningSecret()),
		apifake.WithAccessTTL(c.GetAccessTokenTTL()),
		apifake.WithRefreshTTL(c.GetRefreshTokenTTL()),
	)
	if err := seed(api); err != nil {
		return err
	}

	server := &http.Server{
		Addr:              c.GetFakeAPIPort(),
		Handler:           routes(api, reg),
		ReadHeaderTimeout: 5 * time.Second,
	}
	errCh := make(chan error, 1)
	go func() { errCh <- listenAndServe(server) }()

	select {
	case err := <-errCh:
		return err
	case <-waitForStopSignal():
	}
	return shutdown(server)
}

func routes(api *apifake.Server, reg *prometheus.Registry) http.Handler {
	r := chi.NewRouter()
	r.Handle("/api/*", api.Handler("/api"))
	r.Handle("/metrics", promhttp.HandlerFor(reg, promhttp.HandlerOpts{}))
	r.Get("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
	})
	return r
}

func newRegistry() *prometheus.Registry {
	reg := prometheus.NewRegistry()
	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	return reg
}

func seed(api *apifake.Server) error {
	for _, d := range demoUsers {
		u, err := api.AddUser(d.user, d.password)
		if err != nil {
			return fmt.Errorf("seeding %s: %w", d.user.Username, err)
		}
		log.Info().Str("username", u.Username).Str("password", d.password).Msg("demo user")
	}
	return nil
}

func listenAndServe(server *http.Server) error {
	log.Info().Str("addr", server.Addr).Msg("fake API listening")
	if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return fmt.Errorf("server.ListenAndServe %w", err)
	}
	return nil
}

func waitForStopSignal() <-chan os.Signal {
	stop := make(chan os.Signal, 1)
	signal.Notify(stop, os.Interrupt, syscall.SIGTERM)
	return stop
}

func shutdown(server *http.Server) error {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := server.Shutdown(ctx); err != nil {
		return fmt.Errorf("server.Shutdown: %w", err)
	}
	return nil
}

func displayAppname(appname string) {
	myFigure := figure.NewFigure(appname, "cybermedium", true)
	myFigure.Print()
	fmt.Println()
}
