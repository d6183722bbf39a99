package cli

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"github.com/nhle/career-planner/internal/api"
	"github.com/nhle/career-planner/internal/credential"
	"github.com/nhle/career-planner/internal/notify"
	"github.com/nhle/career-planner/internal/planner"
	"github.com/nhle/career-planner/internal/quota"
	"github.com/nhle/career-planner/internal/store"
	"github.com/nhle/career-planner/internal/summary"
)

func newServeCommand(a *app) *cobra.Command {
	var addr string

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Serve the planner HTTP API",
		RunE: func(cmd *cobra.Command, args []string) error {
			if addr != "" {
				a.cfg.Server.Addr = addr
			}
			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()
			return a.serve(ctx)
		},
	}

	cmd.Flags().StringVar(&addr, "addr", "", "listen address (overrides server.addr)")
	return cmd
}

// services is the wired planner stack shared by serve and summary.
type services struct {
	planner    *planner.Service
	dispatcher *notify.Dispatcher
}

// wire builds the planner over st. Notices go to the webhook dispatcher
// when notifyParent is set, and are discarded otherwise.
func (a *app) wire(st *store.SQLiteStore, reg prometheus.Registerer, notifyParent bool) *services {
	opts := []planner.Option{
		planner.WithLogger(a.logger),
		planner.WithMetrics(planner.NewMetrics(reg)),
	}

	if ttl := a.cfg.Summary.CacheTTL(); ttl > 0 {
		opts = append(opts, planner.WithSummarizer(summary.NewCache(summary.NewEngine(st, nil), ttl)))
	}

	svc := &services{}
	if notifyParent {
		secret, err := credential.WebhookSecret()
		if err != nil {
			a.logger.Warn("credential.webhook_secret.unavailable", "error", err)
		}
		svc.dispatcher = notify.NewDispatcher(
			notify.NewWebhookSink(a.cfg.Notify, secret),
			notify.WithLogger(a.logger),
			notify.WithDeadLetters(st),
			notify.WithMetrics(notify.NewMetrics(reg)),
			notify.WithQueueSize(a.cfg.Notify.QueueSize),
			notify.WithTimeout(a.cfg.Notify.Timeout()),
		)
		opts = append(opts, planner.WithNotifier(svc.dispatcher))
	}

	svc.planner = planner.NewService(st, quota.NewGate(st, a.cfg.Limits), opts...)
	return svc
}

func (a *app) serve(ctx context.Context) error {
	st, err := a.openStore()
	if err != nil {
		return err
	}
	defer st.Close()

	reg := prometheus.NewRegistry()
	reg.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))

	svc := a.wire(st, reg, true)
	svc.dispatcher.Start()
	defer svc.dispatcher.Stop()

	srv := &http.Server{
		Addr:    a.cfg.Server.Addr,
		Handler: api.NewServer(svc.planner, api.WithGatherer(reg), api.WithLogger(a.logger)).Handler(),
	}

	g, ctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		a.logger.Info("api.server.listening", "addr", srv.Addr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("serving %s: %w", srv.Addr, err)
		}
		return nil
	})
	g.Go(func() error {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), a.cfg.Server.ShutdownTimeout())
		defer cancel()
		a.logger.Info("api.server.stopping")
		return srv.Shutdown(shutdownCtx)
	})
	return g.Wait()
}
