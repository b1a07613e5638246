// Package upload implements the outbound transfer of a recording: a streamed
// HTTP multipart POST with chunk-boundary progress reporting and cooperative
// cancellation.
package upload

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"net/url"
	"os"
	"path/filepath"
	"sync/atomic"
	"time"

	"github.com/slok/recup/internal/log"
	"github.com/slok/recup/internal/model"
)

const (
	// replaceCommandParam is the query parameter the remote endpoint expects.
	replaceCommandParam = "command"
	replaceCommandValue = "replacerecordings"

	// videoFieldName is the multipart form field holding the file.
	videoFieldName = "video"
)

// ProgressSink receives the total number of bytes sent so far. It is invoked
// at every chunk boundary and must not block.
type ProgressSink func(bytesSent int64)

// CancelCheck reports whether the transfer should abort. It is polled at
// every chunk boundary, so cancellation latency is bounded by the chunk size.
type CancelCheck func() bool

// Request describes one upload.
type Request struct {
	// Endpoint is the remote upload URL. The replacerecordings command query
	// parameter is appended if absent.
	Endpoint string
	// SourcePath is the file to stream.
	SourcePath string
	// Progress is an optional progress sink.
	Progress ProgressSink
	// Cancelled is an optional cancellation check.
	Cancelled CancelCheck
}

// Uploader knows how to transfer a recording to a remote endpoint.
type Uploader interface {
	// Upload streams the file and returns the endpoint's parsed response on
	// unambiguous success. A user cancellation surfaces as model.ErrCancelled.
	Upload(ctx context.Context, req Request) (map[string]interface{}, error)
}

// ClientConfig is the configuration for the upload client.
type ClientConfig struct {
	// HTTPClient defaults to a client with a 300s overall timeout.
	HTTPClient *http.Client
	// ChunkSize is the streaming chunk size in bytes. Smaller chunks lower
	// cancellation latency at the cost of more progress checkpoints.
	ChunkSize int
	Logger    log.Logger
}

func (c *ClientConfig) defaults() error {
	if c.HTTPClient == nil {
		c.HTTPClient = &http.Client{Timeout: 300 * time.Second}
	}
	if c.ChunkSize <= 0 {
		c.ChunkSize = 64 * 1024
	}
	if c.Logger == nil {
		c.Logger = log.Noop
	}
	c.Logger = c.Logger.WithValues(log.Kv{"svc": "upload.Client"})
	return nil
}

// Client is the HTTP multipart implementation of Uploader.
type Client struct {
	httpClient *http.Client
	chunkSize  int
	logger     log.Logger
}

// NewClient creates a new upload client.
func NewClient(cfg ClientConfig) (*Client, error) {
	if err := cfg.defaults(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}

	return &Client{
		httpClient: cfg.HTTPClient,
		chunkSize:  cfg.ChunkSize,
		logger:     cfg.Logger,
	}, nil
}

// Upload streams the file as a multipart POST body. The body is produced on
// the fly through a pipe so the whole file is never held in memory.
func (c *Client) Upload(ctx context.Context, req Request) (map[string]interface{}, error) {
	endpoint, err := ensureReplaceCommand(req.Endpoint)
	if err != nil {
		return nil, fmt.Errorf("invalid endpoint: %w", err)
	}

	src, err := os.Open(req.SourcePath)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, fmt.Errorf("recording %q: %w", req.SourcePath, model.ErrNotFound)
		}
		return nil, fmt.Errorf("could not open recording: %w", err)
	}
	defer src.Close()

	pr, pw := io.Pipe()
	defer pr.Close() // Unblocks the body writer if the request fails early.
	mw := multipart.NewWriter(pw)

	// Track whether the body writer aborted on a cancellation, the error that
	// travels through the HTTP transport is not always unwrappable.
	var cancelled atomic.Bool
	streamReq := req
	if req.Cancelled != nil {
		streamReq.Cancelled = func() bool {
			if req.Cancelled() {
				cancelled.Store(true)
				return true
			}
			return false
		}
	}

	go c.streamBody(src, filepath.Base(req.SourcePath), mw, pw, streamReq)

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, pr)
	if err != nil {
		return nil, fmt.Errorf("could not create request: %w", err)
	}
	httpReq.Header.Set("Content-Type", mw.FormDataContentType())

	resp, err := c.httpClient.Do(httpReq)
	if err != nil {
		if cancelled.Load() || errors.Is(err, model.ErrCancelled) {
			return nil, model.ErrCancelled
		}
		return nil, fmt.Errorf("upload request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("Upload failed: %d", resp.StatusCode)
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("could not read response: %w", err)
	}

	var result map[string]interface{}
	if err := json.Unmarshal(body, &result); err != nil {
		// The endpoint returned 200 with a non-JSON body, treat as success.
		result = map[string]interface{}{"success": true, "message": "Upload completed"}
	}

	if msg, ok := result["error"].(string); ok && msg != "" {
		return nil, fmt.Errorf("endpoint rejected upload: %s", msg)
	}

	return result, nil
}

// streamBody writes the multipart body chunk by chunk, checking cancellation
// and reporting progress at every chunk boundary.
func (c *Client) streamBody(src *os.File, filename string, mw *multipart.Writer, pw *io.PipeWriter, req Request) {
	part, err := mw.CreateFormFile(videoFieldName, filename)
	if err != nil {
		pw.CloseWithError(err)
		return
	}

	buf := make([]byte, c.chunkSize)
	var sent int64
	for {
		if req.Cancelled != nil && req.Cancelled() {
			pw.CloseWithError(model.ErrCancelled)
			return
		}

		n, err := src.Read(buf)
		if n > 0 {
			if _, werr := part.Write(buf[:n]); werr != nil {
				pw.CloseWithError(werr)
				return
			}
			sent += int64(n)
			if req.Progress != nil {
				req.Progress(sent)
			}
		}
		if err == io.EOF {
			break
		}
		if err != nil {
			pw.CloseWithError(err)
			return
		}
	}

	if err := mw.Close(); err != nil {
		pw.CloseWithError(err)
		return
	}
	pw.Close()
}

// ensureReplaceCommand guarantees the replacerecordings command parameter is
// present on the endpoint URL.
func ensureReplaceCommand(endpoint string) (string, error) {
	u, err := url.Parse(endpoint)
	if err != nil {
		return "", err
	}

	q := u.Query()
	if q.Get(replaceCommandParam) != replaceCommandValue {
		q.Set(replaceCommandParam, replaceCommandValue)
		u.RawQuery = q.Encode()
	}

	return u.String(), nil
}
