package config

// Default paths for local storage
const (
	// DefaultDatabasePath is the default path for the catalog database
	DefaultDatabasePath = "./audioshelf.db"

	// DefaultLibraryRoot is the default directory for materialized books
	DefaultLibraryRoot = "./audiobooks"
)
