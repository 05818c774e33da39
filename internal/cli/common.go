// Package cli implements the command-line entry points for catalog sync,
// book download and book removal.
package cli

import (
	"fmt"

	"github.com/mrlokans/audioshelf/internal/api"
	"github.com/mrlokans/audioshelf/internal/database"
	"github.com/mrlokans/audioshelf/internal/database/catalog"
	"github.com/mrlokans/audioshelf/internal/library"
	"github.com/mrlokans/audioshelf/internal/materializer"
)

// buildService constructs the library service and its database for one-shot
// CLI use. The caller must Close the returned database.
func buildService(dbPath, rootDir, baseURL string) (*library.Service, *database.Database, error) {
	db, err := database.NewDatabase(dbPath)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to open database: %w", err)
	}

	apiClient := api.NewClient(baseURL)

	mat, err := materializer.New(rootDir, apiClient)
	if err != nil {
		db.Close()
		return nil, nil, fmt.Errorf("failed to initialize library root: %w", err)
	}

	service := library.NewService(apiClient, catalog.NewRepository(db.DB), mat)
	return service, db, nil
}
