// Package api implements the client for the remote audiobook library
// service: catalog listing, per-book file metadata, archive download and
// the progress read/write endpoints.
//
// The client performs no retries of its own. Catalog and download failures
// are surfaced to the caller; the progress reconciler simply tries again at
// its next scheduled interval.
package api

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/mrlokans/audioshelf/internal/entities"
)

const defaultTimeout = 30 * time.Second

// Client interfaces with the audiobook library server.
type Client struct {
	baseURL    string
	httpClient *http.Client

	// Archive downloads are long-running streams; the short request
	// timeout would cut them off, so they get a client of their own and
	// rely on the caller's context for cancellation.
	downloadClient *http.Client
}

// NewClient creates a client for the server at baseURL
// (e.g. "http://192.168.1.8:3000/api").
func NewClient(baseURL string) *Client {
	return &Client{
		baseURL: baseURL,
		httpClient: &http.Client{
			Timeout: defaultTimeout,
		},
		downloadClient: &http.Client{},
	}
}

// BooksResponse represents the catalog listing returned by the server.
type BooksResponse struct {
	Books   []entities.Audiobook `json:"books"`
	Count   int                  `json:"count"`
	Message string               `json:"message"`
}

// FileMetadataResponse wraps the per-book file metadata listing.
type FileMetadataResponse struct {
	Data []entities.AudioFile `json:"data"`
}

type progressResponse struct {
	ProgressTimeMarker int64 `json:"progress_time_marker"`
}

type updateProgressRequest struct {
	UserID             uint  `json:"user_id"`
	BookID             uint  `json:"book_id"`
	FileID             uint  `json:"file_id"`
	ProgressTimeMarker int64 `json:"progress_time_marker"`
}

// ListBooks fetches the full catalog listing.
func (c *Client) ListBooks(ctx context.Context) (*BooksResponse, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"/list_books", nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("list books request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, &StatusError{StatusCode: resp.StatusCode, Endpoint: "/list_books"}
	}

	var listing BooksResponse
	if err := json.NewDecoder(resp.Body).Decode(&listing); err != nil {
		return nil, fmt.Errorf("failed to decode book listing: %w", err)
	}

	return &listing, nil
}

// FileMetadata fetches the file rows the server holds for one book.
func (c *Client) FileMetadata(ctx context.Context, bookID uint) ([]entities.AudioFile, error) {
	url := fmt.Sprintf("%s/file_metadata/%d", c.baseURL, bookID)
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("file metadata request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusNotFound {
		return nil, ErrBookNotFound
	}
	if resp.StatusCode != http.StatusOK {
		return nil, &StatusError{StatusCode: resp.StatusCode, Endpoint: "/file_metadata"}
	}

	var metadata FileMetadataResponse
	if err := json.NewDecoder(resp.Body).Decode(&metadata); err != nil {
		return nil, fmt.Errorf("failed to decode file metadata: %w", err)
	}

	return metadata.Data, nil
}

// DownloadBook opens the archive stream for one book. The caller owns the
// returned reader and must close it.
func (c *Client) DownloadBook(ctx context.Context, bookID uint) (io.ReadCloser, error) {
	url := fmt.Sprintf("%s/download_book/%d", c.baseURL, bookID)
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}

	resp, err := c.downloadClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("download request failed: %w", err)
	}

	if resp.StatusCode == http.StatusNotFound {
		resp.Body.Close()
		return nil, ErrBookNotFound
	}
	if resp.StatusCode != http.StatusOK {
		resp.Body.Close()
		return nil, &StatusError{StatusCode: resp.StatusCode, Endpoint: "/download_book"}
	}

	return resp.Body, nil
}

// UpdateProgress pushes an absolute position for a (book, file) pair. Every
// push carries the full position, never a delta, so a dropped or reordered
// push cannot regress the server below a value it already confirmed once the
// resume merge takes the maximum.
func (c *Client) UpdateProgress(ctx context.Context, userID, bookID, fileID uint, progressMs int64) error {
	payload, err := json.Marshal(updateProgressRequest{
		UserID:             userID,
		BookID:             bookID,
		FileID:             fileID,
		ProgressTimeMarker: progressMs,
	})
	if err != nil {
		return fmt.Errorf("failed to encode progress payload: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/update_progress", bytes.NewReader(payload))
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("update progress request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK && resp.StatusCode != http.StatusCreated && resp.StatusCode != http.StatusNoContent {
		return &StatusError{StatusCode: resp.StatusCode, Endpoint: "/update_progress"}
	}

	return nil
}

// GetProgress reads the server-confirmed position for a (book, file) pair.
// Callers starting playback treat any error as position 0.
func (c *Client) GetProgress(ctx context.Context, userID, bookID, fileID uint) (int64, error) {
	url := fmt.Sprintf("%s/get_progress/%d/%d/%d", c.baseURL, userID, bookID, fileID)
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return 0, fmt.Errorf("failed to create request: %w", err)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return 0, fmt.Errorf("get progress request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return 0, &StatusError{StatusCode: resp.StatusCode, Endpoint: "/get_progress"}
	}

	var marker progressResponse
	if err := json.NewDecoder(resp.Body).Decode(&marker); err != nil {
		return 0, fmt.Errorf("failed to decode progress response: %w", err)
	}

	return marker.ProgressTimeMarker, nil
}
