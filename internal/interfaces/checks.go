package interfaces

// This file contains compile-time interface implementation checks.
// These ensure that concrete types satisfy their interfaces at compile time,
// catching missing methods before runtime.
//
// To verify all checks pass: go build ./internal/interfaces/...

import (
	"github.com/mrlokans/audioshelf/internal/api"
	"github.com/mrlokans/audioshelf/internal/database/progress"
	"github.com/mrlokans/audioshelf/internal/library"
	"github.com/mrlokans/audioshelf/internal/materializer"
	"github.com/mrlokans/audioshelf/internal/playback"
)

// =============================================================================
// Remote API Client
// =============================================================================

// The API client is consumed through three narrow interfaces, one per caller.
var _ library.CatalogClient = (*api.Client)(nil)
var _ materializer.ArchiveFetcher = (*api.Client)(nil)
var _ playback.RemoteProgress = (*api.Client)(nil)

// =============================================================================
// Progress Ledger
// =============================================================================

// ProgressStore implementations
var _ playback.ProgressStore = (*progress.Repository)(nil)
