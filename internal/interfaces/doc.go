// Package interfaces documents the core abstractions used throughout the application.
//
// # Interface Categories
//
// The application uses several categories of interfaces:
//
// ## Remote Service Interfaces
//
//   - CatalogClient: Catalog listing and file metadata (internal/library/service.go)
//   - ArchiveFetcher: Book archive download stream (internal/materializer/materializer.go)
//   - RemoteProgress: Server-side progress read/write (internal/playback/player.go)
//
// All three are satisfied by api.Client; each consumer depends only on the
// slice of the remote API it actually calls.
//
// ## Local Storage Interfaces
//
//   - ProgressStore: Local progress ledger access (internal/playback/player.go)
//
// ## Playback Engine Interface
//
//   - Player: Transport control and position reporting (internal/playback/player.go).
//     The audio engine lives in the embedding application; sessions only need
//     position, transport control and a position-change notification.
//
// # Adding a New Remote Backend
//
// To sync against a different library server:
//
//  1. Implement the three remote interfaces in a new client package
//
//     type JellyfinClient struct {
//         baseURL    string
//         httpClient *http.Client
//     }
//
//     func (c *JellyfinClient) ListBooks(ctx context.Context) (*api.BooksResponse, error)
//     func (c *JellyfinClient) FileMetadata(ctx context.Context, bookID uint) ([]entities.AudioFile, error)
//     func (c *JellyfinClient) DownloadBook(ctx context.Context, bookID uint) (io.ReadCloser, error)
//
//  2. Wire it in entrypoint.go in place of api.NewClient
//
// # Compile-Time Interface Checks
//
// All implementations should include compile-time checks to ensure they satisfy
// their interfaces. This catches missing methods at compile time rather than runtime:
//
//	var _ SomeInterface = (*MyImplementation)(nil)
//
// See checks.go for the full set.
package interfaces
