package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"strconv"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/pkg/errors"
	"github.com/spf13/cobra"

	"github.com/ARTM2000/grove/diag"
	"github.com/ARTM2000/grove/internal/demo"
)

type serveCmd struct {
	addr            string
	shutdownTimeout time.Duration
}

func (s *serveCmd) registerFlags() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Serve container diagnostics and the demo application over HTTP",
		Args:  cobra.NoArgs,
	}
	cmd.Flags().StringVar(&s.addr, "addr", "", "listen address, overrides the configured diag address")
	cmd.Flags().DurationVar(&s.shutdownTimeout, "shutdown-timeout", 10*time.Second, "time allowed for graceful shutdown")
	return cmd
}

func (s *serveCmd) run(c *cli, cmd *cobra.Command, _ []string) error {
	root, err := c.provider()
	if err != nil {
		return err
	}

	addr := s.addr
	if addr == "" {
		addr = c.cfg.DiagAddr
	}

	r := diag.Router(root, c.log)
	r.Group(func(r chi.Router) {
		r.Use(diag.Scoped(root, c.log))
		r.Get("/users/{id}/welcome", welcomeHandler)
	})

	srv := &http.Server{Addr: addr, Handler: r, ReadHeaderTimeout: 5 * time.Second}

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	errCh := make(chan error, 1)
	go func() {
		c.log.WithField("addr", addr).Info("diagnostics server listening")
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if !errors.Is(err, http.ErrServerClosed) {
			_ = root.Dispose()
			return errors.Wrap(err, "serving diagnostics")
		}
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), s.shutdownTimeout)
	defer cancel()

	c.log.Info("shutting down")
	err = srv.Shutdown(shutdownCtx)
	if serr := root.Shutdown(shutdownCtx); err == nil {
		err = serr
	}
	return err
}

func welcomeHandler(w http.ResponseWriter, r *http.Request) {
	id, err := strconv.Atoi(chi.URLParam(r, "id"))
	if err != nil {
		http.Error(w, "invalid user id", http.StatusBadRequest)
		return
	}

	scope, ok := diag.ScopeFrom(r.Context())
	if !ok {
		http.Error(w, "no request scope", http.StatusInternalServerError)
		return
	}
	lines, err := demo.Welcome(scope, id)
	if errors.Is(err, demo.ErrNotFound) {
		http.Error(w, err.Error(), http.StatusNotFound)
		return
	}
	if err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	for _, l := range lines {
		_, _ = w.Write([]byte(l + "\n"))
	}
}
