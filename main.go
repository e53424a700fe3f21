// Command inkwell serves the story API and reader pages. The import-feed
// subcommand loads stories from RSS/Atom feeds.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/bryan-buckman/inkwell/internal/config"
	"github.com/bryan-buckman/inkwell/internal/logging"
	"github.com/bryan-buckman/inkwell/internal/opml"
	"github.com/bryan-buckman/inkwell/internal/rss"
	"github.com/bryan-buckman/inkwell/internal/server"
	"github.com/bryan-buckman/inkwell/internal/stories"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "config: %v\n", err)
		os.Exit(1)
	}

	if len(os.Args) > 1 && os.Args[1] == "import-feed" {
		if err := runImport(cfg, os.Args[2:]); err != nil {
			fmt.Fprintf(os.Stderr, "import failed: %v\n", err)
			os.Exit(1)
		}
		return
	}

	cfg.ServerFlags(flag.CommandLine)
	flag.Parse()
	log := mustLogger(cfg)
	if err := run(cfg, log); err != nil {
		log.WithError(err).Fatal("server exited")
	}
}

func run(cfg *config.Config, log *logrus.Logger) error {
	if err := cfg.Validate(); err != nil {
		return err
	}
	svc, err := stories.Open(cfg.DatabaseURL, cfg.DatabaseSSL, cfg.SanitizePolicy, log)
	if err != nil {
		return err
	}
	defer svc.Store().Close()
	log.WithFields(logrus.Fields{
		"backend":  svc.Store().DatabaseType(),
		"sanitize": svc.Sanitizer().Name(),
	}).Info("store ready")

	srv, err := server.New(svc, log, server.Options{CORSOrigins: cfg.CORSOrigins})
	if err != nil {
		return err
	}

	shutdownDone := make(chan struct{})
	go func() {
		defer close(shutdownDone)
		sigCh := make(chan os.Signal, 1)
		signal.Notify(sigCh, os.Interrupt, syscall.SIGTERM)
		sig := <-sigCh
		log.WithField("signal", sig.String()).Info("shutting down")

		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := srv.Shutdown(ctx); err != nil {
			log.WithError(err).Warn("graceful shutdown failed")
		}
	}()

	if err := srv.Start(cfg.Addr()); err != nil {
		return err
	}
	<-shutdownDone
	return nil
}

func runImport(cfg *config.Config, args []string) error {
	fs := flag.NewFlagSet("import-feed", flag.ContinueOnError)
	cfg.ServerFlags(fs)
	opmlPath := fs.String("opml", "", "OPML file listing feeds to import")
	timeout := fs.Duration("timeout", 10*time.Minute, "overall import deadline")
	if err := fs.Parse(args); err != nil {
		return err
	}
	if err := cfg.Validate(); err != nil {
		return err
	}
	log := mustLogger(cfg)

	urls := fs.Args()
	if *opmlPath != "" {
		f, err := os.Open(*opmlPath)
		if err != nil {
			return err
		}
		feeds, err := opml.Parse(f)
		f.Close()
		if err != nil {
			return err
		}
		for _, feed := range feeds {
			log.WithFields(logrus.Fields{
				"folder": strings.Join(feed.FolderPath, "/"),
				"title":  feed.Title,
				"url":    feed.URL,
			}).Debug("feed listed in opml")
		}
		urls = append(urls, opml.URLs(feeds)...)
	}
	if len(urls) == 0 {
		return errors.New("no feeds given: pass feed URLs or --opml")
	}

	svc, err := stories.Open(cfg.DatabaseURL, cfg.DatabaseSSL, cfg.SanitizePolicy, log)
	if err != nil {
		return err
	}
	defer svc.Store().Close()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	ctx, cancel := context.WithTimeout(ctx, *timeout)
	defer cancel()

	created, failed := 0, 0
	for _, res := range rss.NewImporter(svc, log).ImportAll(ctx, urls) {
		if res.Err != nil {
			failed++
			log.WithError(res.Err).WithField("feed", res.URL).Warn("feed failed")
			continue
		}
		created += res.Created
	}
	log.WithFields(logrus.Fields{"feeds": len(urls), "failed": failed, "created": created}).Info("import complete")
	if failed == len(urls) {
		return errors.New("every feed failed")
	}
	return nil
}

func mustLogger(cfg *config.Config) *logrus.Logger {
	log, err := logging.New(os.Stderr, cfg.LogLevel, cfg.LogFormat)
	if err != nil {
		fmt.Fprintf(os.Stderr, "logging: %v\n", err)
		os.Exit(1)
	}
	return log
}
