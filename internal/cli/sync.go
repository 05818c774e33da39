package cli

import (
	"context"
	"flag"
	"fmt"
	"os"

	"github.com/mrlokans/audioshelf/internal/config"
)

// SyncCommand pulls the remote catalog into the local store once.
type SyncCommand struct {
	DatabasePath string
	LibraryRoot  string
	ServerURL    string
}

func NewSyncCommand() *SyncCommand {
	return &SyncCommand{}
}

func (cmd *SyncCommand) ParseFlags(args []string) error {
	fs := flag.NewFlagSet("sync", flag.ExitOnError)

	fs.StringVar(&cmd.DatabasePath, "db", config.DefaultDatabasePath, "Path to the local catalog database")
	fs.StringVar(&cmd.LibraryRoot, "root", config.DefaultLibraryRoot, "Directory materialized books live under")
	fs.StringVar(&cmd.ServerURL, "server", "", "Base URL of the library server API (required)")

	fs.Usage = func() {
		fmt.Fprintf(os.Stderr, "Usage: %s sync -server <url> [options]\n\n", os.Args[0])
		fmt.Fprintf(os.Stderr, "Pull the remote catalog into the local store and reconcile the\n")
		fmt.Fprintf(os.Stderr, "downloaded state of every book against the files on disk.\n\n")
		fmt.Fprintf(os.Stderr, "Options:\n")
		fs.PrintDefaults()
	}

	if err := fs.Parse(args); err != nil {
		return err
	}

	if cmd.ServerURL == "" {
		return fmt.Errorf("required flag -server not provided")
	}

	return nil
}

func (cmd *SyncCommand) Run() error {
	service, db, err := buildService(cmd.DatabasePath, cmd.LibraryRoot, cmd.ServerURL)
	if err != nil {
		return err
	}
	defer db.Close()

	if err := service.Sync(context.Background()); err != nil {
		return fmt.Errorf("catalog sync failed: %w", err)
	}

	fmt.Println("Catalog synced")
	return nil
}
