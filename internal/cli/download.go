package cli

import (
	"context"
	"flag"
	"fmt"
	"os"

	"github.com/mrlokans/audioshelf/internal/config"
)

// DownloadCommand materializes one book onto local storage.
type DownloadCommand struct {
	BookID       uint
	DatabasePath string
	LibraryRoot  string
	ServerURL    string
}

func NewDownloadCommand() *DownloadCommand {
	return &DownloadCommand{}
}

func (cmd *DownloadCommand) ParseFlags(args []string) error {
	fs := flag.NewFlagSet("download", flag.ExitOnError)

	var bookID uint64
	fs.Uint64Var(&bookID, "book", 0, "Server id of the book to download (required)")
	fs.StringVar(&cmd.DatabasePath, "db", config.DefaultDatabasePath, "Path to the local catalog database")
	fs.StringVar(&cmd.LibraryRoot, "root", config.DefaultLibraryRoot, "Directory materialized books live under")
	fs.StringVar(&cmd.ServerURL, "server", "", "Base URL of the library server API (required)")

	fs.Usage = func() {
		fmt.Fprintf(os.Stderr, "Usage: %s download -server <url> -book <id> [options]\n\n", os.Args[0])
		fmt.Fprintf(os.Stderr, "Download a book's archive, extract it under the library root and\n")
		fmt.Fprintf(os.Stderr, "record the resulting file paths in the local store.\n\n")
		fmt.Fprintf(os.Stderr, "Options:\n")
		fs.PrintDefaults()
	}

	if err := fs.Parse(args); err != nil {
		return err
	}

	if cmd.ServerURL == "" {
		return fmt.Errorf("required flag -server not provided")
	}
	if bookID == 0 {
		return fmt.Errorf("required flag -book not provided")
	}
	cmd.BookID = uint(bookID)

	return nil
}

func (cmd *DownloadCommand) Run() error {
	service, db, err := buildService(cmd.DatabasePath, cmd.LibraryRoot, cmd.ServerURL)
	if err != nil {
		return err
	}
	defer db.Close()

	if err := service.Download(context.Background(), cmd.BookID); err != nil {
		return fmt.Errorf("download failed: %w", err)
	}

	fmt.Printf("Book %d downloaded\n", cmd.BookID)
	return nil
}
