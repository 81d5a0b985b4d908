package main

import (
	"context"
	"log"
	"net/http"
	"os"
	"os/signal"
	"strconv"
	"sync"
	"syscall"
	"time"

	"github.com/joho/godotenv"

	"github.com/KenanMathews/multiplayer-conway/internal/handler"
	"github.com/KenanMathews/multiplayer-conway/internal/session"
	"github.com/KenanMathews/multiplayer-conway/internal/turn"
)

func main() {
	// .env is optional; real deployments set the environment directly.
	if err := godotenv.Load(); err == nil {
		log.Println("Loaded configuration from .env")
	}

	addr := ":" + envOr("PORT", "8080")
	maxGames := envIntOr("MAX_GAMES", 100)
	publicURL := envOr("PUBLIC_URL", "http://localhost:8080")

	registry := session.NewRegistry(maxGames)
	coordinator := turn.NewCoordinator(registry)
	gateway := handler.New(registry, coordinator, publicURL)
	coordinator.SetEvents(gateway)

	mux := http.NewServeMux()
	mux.HandleFunc("/ws", rateLimitMiddleware(gateway.Handle))
	mux.HandleFunc("/qr", gateway.HandleQR)

	server := &http.Server{
		Addr:         addr,
		ReadTimeout:  5 * time.Second,
		WriteTimeout: 10 * time.Second,
		IdleTimeout:  30 * time.Second,
		Handler:      loggingMiddleware(mux),
	}

	shutdown := make(chan struct{})
	go handleSignals(server, shutdown)

	go coordinator.Maintain(30 * time.Second)

	log.Printf("Server starting on %s", server.Addr)
	if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		log.Fatalf("Server failed: %v", err)
	}

	<-shutdown
	log.Println("Server stopped gracefully")
}

func envOr(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}

func envIntOr(key string, def int) int {
	v := os.Getenv(key)
	if v == "" {
		return def
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		log.Printf("Invalid %s=%q, using %d", key, v, def)
		return def
	}
	return n
}

func handleSignals(server *http.Server, shutdown chan struct{}) {
	sig := make(chan os.Signal, 1)
	signal.Notify(sig, os.Interrupt, syscall.SIGTERM, syscall.SIGQUIT)

	<-sig
	log.Println("Received shutdown signal")

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := server.Shutdown(ctx); err != nil {
		log.Printf("HTTP server shutdown error: %v", err)
	}

	close(shutdown)
}

func loggingMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		next.ServeHTTP(w, r)
		log.Printf("%s %s %s", r.Method, r.URL.Path, time.Since(start))
	})
}

func rateLimitMiddleware(next http.HandlerFunc) http.HandlerFunc {
	limiter := newRateLimiter(100, time.Minute)
	return func(w http.ResponseWriter, r *http.Request) {
		if !limiter.Allow(r.RemoteAddr) {
			http.Error(w, "Too many requests", http.StatusTooManyRequests)
			return
		}
		next.ServeHTTP(w, r)
	}
}

type rateLimiter struct {
	requests int
	interval time.Duration
	mu       sync.Mutex
	counters map[string]int
}

func newRateLimiter(requests int, interval time.Duration) *rateLimiter {
	rl := &rateLimiter{
		requests: requests,
		interval: interval,
		counters: make(map[string]int),
	}
	go rl.resetCounters()
	return rl
}

func (rl *rateLimiter) Allow(ip string) bool {
	rl.mu.Lock()
	defer rl.mu.Unlock()

	if rl.counters[ip] >= rl.requests {
		return false
	}
	rl.counters[ip]++
	return true
}

func (rl *rateLimiter) resetCounters() {
	for range time.Tick(rl.interval) {
		rl.mu.Lock()
		rl.counters = make(map[string]int)
		rl.mu.Unlock()
	}
}
