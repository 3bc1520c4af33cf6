package main

import (
	"context"
	"flag"
	"fmt"
	"log/slog"
	"os"

	"postsync/internal/cli"
	"postsync/internal/config"
	"postsync/internal/fetch"
	"postsync/internal/github"
	"postsync/internal/sync"
)

func main() {
	dryRun := flag.Bool("dry-run", false, "show what would be done without making changes")
	member := flag.String("member", "", "sync posts for a specific member only")
	configPath := flag.String("config", "members.yml", "path to members configuration file")
	postsDir := flag.String("out", "publications/posts", "directory for synced post files")
	verbose := flag.Bool("verbose", false, "enable verbose logging")
	interactive := flag.Bool("interactive", false, "pick members and confirm writes interactively")
	flag.Parse()

	level := slog.LevelInfo
	if *verbose {
		level = slog.LevelDebug
	}
	log := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level}))
	slog.SetDefault(log)

	cfg, err := config.Load(*configPath)
	if err != nil {
		log.Error("failed to load configuration", "error", err)
		os.Exit(1)
	}
	log.Info("loaded configuration", "members", len(cfg.Members))

	client := github.NewClient(log)
	fetcher := fetch.New(client, log)
	syncer := sync.New(cfg.Members, cfg.SyncConfig, fetcher, *postsDir, *dryRun, log)

	if *interactive && *member == "" {
		selected, err := cli.PickMembers(cfg.Members)
		if err != nil {
			log.Error("member selection failed", "error", err)
			return
		}
		syncer.Members = selected
	}
	if *interactive && !*dryRun {
		ok, err := cli.Confirm(fmt.Sprintf("Write synced posts to %s?", *postsDir), true)
		if err != nil || !ok {
			log.Info("sync aborted")
			return
		}
	}

	if err := syncer.Run(context.Background(), *member); err != nil {
		log.Error("sync run failed", "error", err)
		return
	}

	if *dryRun {
		log.Info("dry run completed, use -verbose for more details")
	} else {
		log.Info("post synchronization completed")
	}
}
