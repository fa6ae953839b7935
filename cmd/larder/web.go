package main

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"

	"larder/internal/ai"
	"larder/internal/auth"
	"larder/internal/cache"
	"larder/internal/cart"
	"larder/internal/config"
	"larder/internal/grocery"
	"larder/internal/instacart"
	"larder/internal/kroger"
	"larder/internal/menus"
	"larder/internal/prices"
	"larder/internal/users"
)

func runServer(cfg *config.Config, addr string) error {
	shutdownLogging, err := setupLogging(context.Background())
	if err != nil {
		return fmt.Errorf("failed to set up logging: %w", err)
	}
	defer shutdownLogging()

	c, err := cache.MakeCache()
	if err != nil {
		return fmt.Errorf("failed to create cache: %w", err)
	}

	authClient, err := auth.NewClient(cfg.Clerk.SecretKey)
	if err != nil {
		return fmt.Errorf("failed to create auth client: %w", err)
	}

	mux := http.NewServeMux()

	var retailers []prices.Retailer
	krogerClient, err := kroger.NewClient(cfg.Kroger)
	if err != nil {
		slog.Warn("kroger client disabled", "error", err)
		krogerClient = nil
	} else {
		retailers = append(retailers, &prices.KrogerRetailer{Client: krogerClient})
	}

	checkouts := make(map[string]cart.Checkout)
	instacartClient, err := instacart.NewClient(cfg.Instacart)
	if err != nil {
		slog.Warn("instacart client disabled", "error", err)
		instacartClient = nil
	} else {
		retailers = append(retailers, &prices.InstacartRetailer{Client: instacartClient})
		checkouts["instacart"] = &cart.InstacartCheckout{Client: instacartClient}
	}

	fetcher := &menuFetcher{cfg: cfg, cache: c}
	if cfg.AI.APIKey != "" {
		fetcher.synth = ai.NewClient(cfg.AI.APIKey, cfg.AI.Model)
	}
	grocery.NewHandler(fetcher, authClient).Register(mux)

	cartStore := cart.NewStore()
	submitter := cart.NewSubmitter(cartStore, checkouts)
	cart.NewHandler(cartStore, submitter, authClient).Register(mux)

	userStorage := users.NewStorage(c)
	users.NewHandler(userStorage, authClient).Register(mux)

	comparer := prices.NewComparer(retailers...)
	mux.HandleFunc("GET /compare", func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()
		item := strings.TrimSpace(r.URL.Query().Get("item"))
		if item == "" {
			http.Error(w, "provide an item with ?item=...", http.StatusBadRequest)
			return
		}
		quotes, err := comparer.Compare(ctx, item)
		if err != nil {
			slog.ErrorContext(ctx, "price comparison failed", "item", item, "error", err)
			http.Error(w, "price comparison failed", http.StatusBadGateway)
			return
		}
		if quotes == nil {
			quotes = []prices.Quote{}
		}
		w.Header().Set("Content-Type", "application/json")
		if err := json.NewEncoder(w).Encode(quotes); err != nil {
			slog.ErrorContext(ctx, "failed to encode quotes", "error", err)
		}
	})

	mux.HandleFunc("GET /search", func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()
		term := strings.TrimSpace(r.URL.Query().Get("term"))
		if term == "" {
			http.Error(w, "provide a search term with ?term=...", http.StatusBadRequest)
			return
		}

		var result any
		var err error
		switch store := strings.TrimSpace(r.URL.Query().Get("store")); store {
		case "kroger":
			if krogerClient == nil {
				http.Error(w, "kroger is not configured", http.StatusServiceUnavailable)
				return
			}
			result, err = krogerClient.SearchProducts(ctx, term, r.URL.Query().Get("location"))
		case "instacart":
			if instacartClient == nil {
				http.Error(w, "instacart is not configured", http.StatusServiceUnavailable)
				return
			}
			result, err = instacartClient.SearchProducts(ctx, term)
		default:
			http.Error(w, "store must be kroger or instacart", http.StatusBadRequest)
			return
		}
		if err != nil {
			slog.ErrorContext(ctx, "retailer search failed", "term", term, "error", err)
			http.Error(w, "retailer search failed", http.StatusBadGateway)
			return
		}
		w.Header().Set("Content-Type", "application/json")
		if err := json.NewEncoder(w).Encode(result); err != nil {
			slog.ErrorContext(ctx, "failed to encode search results", "error", err)
		}
	})

	mux.Handle("GET /metrics", promhttp.Handler())

	ro := &readyOnce{}
	ro.Add(readyFunc(func(ctx context.Context) error {
		return cacheReady(ctx, c)
	}))
	mux.Handle("/ready", ro)

	server := &http.Server{
		Addr:    addr,
		Handler: authClient.WithAuthHTTP(WithMiddleware(mux)),
	}

	serverErrors := make(chan error, 1)

	go func() {
		slog.Info("Serving Larder", "address", addr)
		serverErrors <- server.ListenAndServe()
	}()

	shutdown := make(chan os.Signal, 1)
	signal.Notify(shutdown, os.Interrupt, syscall.SIGTERM)

	select {
	case err := <-serverErrors:
		if err != nil && err != http.ErrServerClosed {
			return fmt.Errorf("server error: %w", err)
		}
		return nil
	case sig := <-shutdown:
		slog.Info("Shutdown signal received", "signal", sig)
		return gracefulShutdown(server)
	}
}

func gracefulShutdown(svr *http.Server) error {
	// Give outstanding requests 25 seconds to complete (kubernetes has 30 second grace period)
	ctx, cancel := context.WithTimeout(context.Background(), 25*time.Second)
	defer cancel()

	if err := svr.Shutdown(ctx); err != nil {
		slog.Error("Server shutdown error", "error", err)
		if closeErr := svr.Close(); closeErr != nil {
			slog.Error("Server close error", "error", closeErr)
		}
		return err
	}
	return nil
}

// menuFetcher wires the per-user credential store into a fetcher at request
// time; credentials differ per signed-in user.
type menuFetcher struct {
	cfg   *config.Config
	cache cache.Cache
	synth menus.Synthesizer
}

func (m *menuFetcher) FetchGroceryPayload(ctx context.Context, userID, menuID string) (any, error) {
	creds := auth.NewCredentials(m.cache, userID, m.cfg.Backend.BaseURL+"/auth/refresh")
	fetcher := menus.NewFetcher(m.cfg.Backend, creds, m.cache)
	if m.synth != nil {
		fetcher.WithSynthesizer(m.synth)
	}
	return fetcher.FetchGroceryPayload(ctx, menuID)
}

func cacheReady(ctx context.Context, c cache.Cache) error {
	if err := c.Set(ctx, "ready_probe", time.Now().Format(time.RFC3339)); err != nil {
		return fmt.Errorf("cache not writable: %w", err)
	}
	return nil
}
