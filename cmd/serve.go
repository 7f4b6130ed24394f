package main

import (
	"context"
	"fmt"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/sells-group/domain-intel/internal/batch"
	"github.com/sells-group/domain-intel/internal/normalize"
	"github.com/sells-group/domain-intel/internal/server"
	"github.com/sells-group/domain-intel/internal/session"
)

var servePort int

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the analysis API server",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
		defer stop()

		// Collaborators are optional at startup: the server answers 503 on
		// the endpoints that need a missing one.
		var srvStore server.Store
		var checker normalize.DomainChecker
		var recency batch.RecencyChecker
		st, err := openStore(ctx)
		if err != nil {
			zap.L().Warn("store unavailable", zap.Error(err))
		} else {
			defer st.Close()
			if err := st.Migrate(ctx); err != nil {
				return eris.Wrap(err, "serve: migrate store")
			}
			srvStore = st
			checker = st
			recency = st
		}

		var resolver batch.Resolver
		if st != nil {
			if svc := buildResolver(ctx, st); svc != nil {
				resolver = svc
			}
		}

		hub := session.NewHub()
		runner := batch.NewRunner(resolver, recency, recentWindow(),
			cfg.Batch.ProgressEvery, cfg.Batch.SummaryTail)
		scheduler := batch.NewScheduler(runner)

		srv := server.New(server.Config{
			MaxBatchEmails: cfg.Batch.MaxEmails,
			RecentWindow:   recentWindow(),
			AllowedOrigins: cfg.Server.AllowedOrigins,
		}, srvStore, resolver, normalize.New(checker, cacheWindow()), hub, scheduler)

		port := servePort
		if port == 0 {
			port = cfg.Server.Port
		}

		httpSrv := &http.Server{
			Addr:    fmt.Sprintf(":%d", port),
			Handler: srv.Router(),
		}

		// Graceful shutdown
		go func() {
			<-ctx.Done()
			zap.L().Info("shutting down server")
			shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
			defer cancel()
			if err := httpSrv.Shutdown(shutdownCtx); err != nil {
				zap.L().Warn("shutdown", zap.Error(err))
			}
		}()

		zap.L().Info("starting server", zap.Int("port", port))
		if err := httpSrv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			return eris.Wrap(err, "serve: listen")
		}
		scheduler.Wait()

		return nil
	},
}

func init() {
	serveCmd.Flags().IntVar(&servePort, "port", 0, "server port (default from config)")
	rootCmd.AddCommand(serveCmd)
}
