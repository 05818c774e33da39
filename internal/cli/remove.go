package cli

import (
	"flag"
	"fmt"
	"os"

	"github.com/mrlokans/audioshelf/internal/config"
)

// RemoveCommand deletes a book's local files and its store rows.
type RemoveCommand struct {
	BookID       uint
	DatabasePath string
	LibraryRoot  string
}

func NewRemoveCommand() *RemoveCommand {
	return &RemoveCommand{}
}

func (cmd *RemoveCommand) ParseFlags(args []string) error {
	fs := flag.NewFlagSet("remove", flag.ExitOnError)

	var bookID uint64
	fs.Uint64Var(&bookID, "book", 0, "Server id of the book to remove (required)")
	fs.StringVar(&cmd.DatabasePath, "db", config.DefaultDatabasePath, "Path to the local catalog database")
	fs.StringVar(&cmd.LibraryRoot, "root", config.DefaultLibraryRoot, "Directory materialized books live under")

	fs.Usage = func() {
		fmt.Fprintf(os.Stderr, "Usage: %s remove -book <id> [options]\n\n", os.Args[0])
		fmt.Fprintf(os.Stderr, "Delete a book's materialized files and then its catalog and progress\n")
		fmt.Fprintf(os.Stderr, "rows. If the filesystem delete fails, the rows are kept so the book\n")
		fmt.Fprintf(os.Stderr, "still shows as downloaded and the removal can be retried.\n\n")
		fmt.Fprintf(os.Stderr, "Options:\n")
		fs.PrintDefaults()
	}

	if err := fs.Parse(args); err != nil {
		return err
	}

	if bookID == 0 {
		return fmt.Errorf("required flag -book not provided")
	}
	cmd.BookID = uint(bookID)

	return nil
}

func (cmd *RemoveCommand) Run() error {
	// The remove path never talks to the server; the client base URL is
	// only needed to satisfy construction.
	service, db, err := buildService(cmd.DatabasePath, cmd.LibraryRoot, "http://localhost")
	if err != nil {
		return err
	}
	defer db.Close()

	if err := service.Remove(cmd.BookID); err != nil {
		return fmt.Errorf("remove failed: %w", err)
	}

	fmt.Printf("Book %d removed\n", cmd.BookID)
	return nil
}
