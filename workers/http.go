package workers

import (
	"context"
	"crypto/tls"
	"fmt"
	"net/http"
	"time"

	"github.com/go-chi/chi"
	"github.com/go-chi/chi/middleware"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/sirupsen/logrus"

	"goswapbridge/config"
	"goswapbridge/workers/handlers"
)

// NewRouter wires the API routes. Mutations sit behind signature
// authentication; gatherer may be nil to leave /metrics out.
func NewRouter(h *handlers.Handlers, gatherer prometheus.Gatherer) http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)

	r.Options("/*", CORSHeaders)

	r.Get("/health", h.HealthCheck)
	r.Get("/state", h.State)
	r.Get("/config", h.Config)
	r.Get("/domain", h.Domain)
	r.Get("/validators", h.Validators)
	r.Get("/allowance/{relayer}/{token}", h.Allowance)
	r.Get("/consumed/{ref}", h.Consumed)
	r.Get("/whitelist/token/{token}", h.WhitelistedToken)
	r.Get("/whitelist/chain/{chainId}", h.WhitelistedChain)

	r.Get("/balance/{token}", h.CustodyBalance)
	r.Get("/balance/{token}/onchain", h.OnchainBalance)
	r.Get("/balance/{token}/{holder}", h.CustodyBalance)

	r.Get("/events", h.Events)
	r.Get("/events/{kind}", h.Events)

	if gatherer != nil {
		r.Method(http.MethodGet, "/metrics", promhttp.HandlerFor(gatherer, promhttp.HandlerOpts{}))
	}

	r.Group(func(r chi.Router) {
		r.Use(h.Authenticate)

		r.Post("/swap/request", h.RequestSwap)
		r.Post("/swap/settle", h.SettleSwap)
		r.Post("/refund", h.RefundStableCoin)
		r.Post("/withdraw", h.WithdrawTokens)
		r.Post("/withdraw/native", h.WithdrawNative)
		r.Post("/withdraw/signed", h.WithdrawWithSignatures)
		r.Post("/deposit", h.Deposit)
		r.Post("/fund", h.Fund)
		r.Post("/rescue", h.RescueTokens)
		r.Post("/rescue/native", h.RescueNative)
		r.Post("/admin/*", h.Admin)
	})

	return r
}

// Worker_HTTP serves handler until ctx is cancelled, then shuts the server
// down gracefully.
func Worker_HTTP(ctx context.Context, cfg *config.Configuration, handler http.Handler, log *logrus.Entry) error {
	log.Info("Starting HTTP service")

	server := &http.Server{
		Addr:              fmt.Sprintf("%s:%d", cfg.Server.Host, cfg.Server.Port),
		Handler:           handler,
		ReadHeaderTimeout: 10 * time.Second,
	}
	if cfg.Server.UseSSL {
		cert, err := tls.LoadX509KeyPair(cfg.Server.CertFile, cfg.Server.KeyFile)
		if err != nil {
			return err
		}
		server.TLSConfig = &tls.Config{
			Certificates: []tls.Certificate{cert},
			MinVersion:   tls.VersionTLS12,
		}
	}

	errc := make(chan error, 1)
	go func() {
		var err error
		if cfg.Server.UseSSL {
			err = server.ListenAndServeTLS("", "")
		} else {
			err = server.ListenAndServe()
		}
		if err != nil && err != http.ErrServerClosed {
			errc <- err
		}
		close(errc)
	}()
	log.WithField("addr", server.Addr).Info("HTTP service started")

	select {
	case err, ok := <-errc:
		if ok {
			log.WithError(err).Error("error listening")
			return err
		}
		return nil
	case <-ctx.Done():
	}
	log.Info("HTTP service stopped")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		log.WithError(err).Error("HTTP service shutdown error")
		return err
	}
	log.Info("HTTP service shutdown normal")
	return nil
}

func CORSHeaders(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Access-Control-Allow-Origin", "*")
	w.Header().Set("Access-Control-Allow-Methods", "POST, GET, OPTIONS")
	w.Header().Set("Access-Control-Allow-Headers", "Accept, Content-Type, Content-Length, Accept-Encoding, Origin, X-Requested-With, "+handlers.SignatureHeader)
}
