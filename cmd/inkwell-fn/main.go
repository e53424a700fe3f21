// Command inkwell-fn serves the single-path story handler, for platforms
// that route one function per endpoint.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/bryan-buckman/inkwell/internal/config"
	"github.com/bryan-buckman/inkwell/internal/function"
	"github.com/bryan-buckman/inkwell/internal/logging"
	"github.com/bryan-buckman/inkwell/internal/stories"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "config: %v\n", err)
		os.Exit(1)
	}
	cfg.ServerFlags(flag.CommandLine)
	flag.Parse()
	if err := cfg.Validate(); err != nil {
		fmt.Fprintf(os.Stderr, "config: %v\n", err)
		os.Exit(1)
	}
	log, err := logging.New(os.Stderr, cfg.LogLevel, cfg.LogFormat)
	if err != nil {
		fmt.Fprintf(os.Stderr, "logging: %v\n", err)
		os.Exit(1)
	}

	fn := function.New(func() (*stories.Service, error) {
		return stories.Open(cfg.DatabaseURL, cfg.DatabaseSSL, cfg.SanitizePolicy, log)
	}, log, cfg.CORSOrigins)
	defer fn.Close()

	server := &http.Server{
		Addr:              cfg.Addr(),
		Handler:           logging.AccessLog(log)(fn),
		ReadHeaderTimeout: 10 * time.Second,
		ReadTimeout:       30 * time.Second,
		WriteTimeout:      30 * time.Second,
		IdleTimeout:       60 * time.Second,
	}

	shutdownDone := make(chan struct{})
	go func() {
		defer close(shutdownDone)
		sigCh := make(chan os.Signal, 1)
		signal.Notify(sigCh, os.Interrupt, syscall.SIGTERM)
		<-sigCh

		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := server.Shutdown(ctx); err != nil {
			log.WithError(err).Warn("graceful shutdown failed")
		}
	}()

	log.WithField("addr", server.Addr).Info("function listening")
	err = server.ListenAndServe()
	if err != nil && !errors.Is(err, http.ErrServerClosed) {
		log.WithError(err).Error("server error")
		return
	}
	<-shutdownDone
}
