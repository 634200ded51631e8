package assets

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"sync/atomic"

	"github.com/art-vbst/art/internal/logging"
	"github.com/art-vbst/art/internal/util"
)

// Options configures the transfer executor.
type Options struct {
	FetchPrefix  string
	SaveDir      string
	UploadPrefix string
	UploadURL    string // optional template containing {artwork_id}
	Cookie       string
	FileField    string
	IsMainField  string
	DryRun       bool
	SkipDownload bool
	Cleanup      bool
}

// ownerPlaceholder is the owner-identifier slot in an upload URL template.
const ownerPlaceholder = "{artwork_id}"

// DownloadError reports a failed fetch for one asset.
type DownloadError struct {
	AssetID int64
	URL     string
	Err     error
}

func (e *DownloadError) Error() string {
	return fmt.Sprintf("download failed for asset %d (%s): %v", e.AssetID, e.URL, e.Err)
}

func (e *DownloadError) Unwrap() error { return e.Err }

// UploadError reports a failed upload for one asset.
type UploadError struct {
	AssetID int64
	URL     string
	Err     error
}

func (e *UploadError) Error() string {
	return fmt.Sprintf("upload failed for asset %d (%s): %v", e.AssetID, e.URL, e.Err)
}

func (e *UploadError) Unwrap() error { return e.Err }

// ItemError pairs a failed asset with its error.
type ItemError struct {
	ID   int64
	Path string
	Err  error
}

// Outcome accumulates per-asset transfer counts. Safe for concurrent use
// by a bounded worker pool.
type Outcome struct {
	Processed       atomic.Int64
	Downloaded      atomic.Int64
	SkippedDownload atomic.Int64
	Uploaded        atomic.Int64
	Failed          atomic.Int64

	mu     sync.Mutex
	errors []ItemError
}

// RecordFailure notes a per-asset failure.
func (o *Outcome) RecordFailure(img Image, err error) {
	o.Failed.Add(1)
	o.mu.Lock()
	o.errors = append(o.errors, ItemError{ID: img.ID, Path: img.Path, Err: err})
	o.mu.Unlock()
}

// Errors returns the recorded per-asset failures.
func (o *Outcome) Errors() []ItemError {
	o.mu.Lock()
	defer o.mu.Unlock()
	out := make([]ItemError, len(o.errors))
	copy(out, o.errors)
	return out
}

// String summarizes the outcome for the final report.
func (o *Outcome) String() string {
	return fmt.Sprintf("processed %d (downloaded %d, skipped %d, uploaded %d, failed %d)",
		o.Processed.Load(), o.Downloaded.Load(), o.SkippedDownload.Load(),
		o.Uploaded.Load(), o.Failed.Load())
}

// ResolveUploadURL computes the destination endpoint for an artwork's
// images: an explicit template with the owner placeholder wins, otherwise
// the platform's fixed path pattern is joined onto the prefix.
func ResolveUploadURL(opts Options, artworkID string) (string, error) {
	if opts.UploadPrefix != "" {
		return util.JoinURL(opts.UploadPrefix, fmt.Sprintf("artworks/%s/images", artworkID)), nil
	}
	if opts.UploadURL != "" && strings.Contains(opts.UploadURL, ownerPlaceholder) {
		return strings.ReplaceAll(opts.UploadURL, ownerPlaceholder, artworkID), nil
	}
	if opts.UploadURL != "" {
		return opts.UploadURL, nil
	}
	return "", fmt.Errorf("unable to resolve upload URL: provide an upload prefix or a URL template containing %s", ownerPlaceholder)
}

// Executor transfers one asset at a time: download from the legacy media
// host, upload to the platform API, optional local cleanup.
type Executor struct {
	transport Transport
	opts      Options
}

// NewExecutor creates an Executor.
func NewExecutor(transport Transport, opts Options) *Executor {
	return &Executor{transport: transport, opts: opts}
}

// Process transfers one asset. The returned error is a *DownloadError or
// *UploadError; callers record it and continue with the next asset.
func (e *Executor) Process(ctx context.Context, img Image, out *Outcome) error {
	out.Processed.Add(1)

	fetchURL := util.JoinURL(e.opts.FetchPrefix, img.Path)
	localPath := filepath.Join(e.opts.SaveDir, filepath.FromSlash(img.Path))

	if e.opts.SkipDownload && fileExists(localPath) {
		out.SkippedDownload.Add(1)
	} else {
		if err := e.download(ctx, img, fetchURL, localPath); err != nil {
			out.RecordFailure(img, err)
			return err
		}
		out.Downloaded.Add(1)
	}

	uploadURL, err := ResolveUploadURL(e.opts, img.ArtworkID)
	if err != nil {
		out.RecordFailure(img, err)
		return err
	}

	if err := e.upload(ctx, img, uploadURL, localPath); err != nil {
		out.RecordFailure(img, err)
		return err
	}
	out.Uploaded.Add(1)

	if e.opts.Cleanup && !e.opts.DryRun {
		// Best-effort hygiene only; a leftover file never fails the run.
		if err := os.Remove(localPath); err != nil && !errors.Is(err, os.ErrNotExist) {
			logging.Debug("cleanup of %s failed: %v", localPath, err)
		}
	}

	return nil
}

func (e *Executor) download(ctx context.Context, img Image, fetchURL, localPath string) error {
	if e.opts.DryRun {
		fmt.Printf("$ curl -sS -fL %s -o %s\n", fetchURL, localPath)
		return nil
	}

	if err := os.MkdirAll(filepath.Dir(localPath), 0o755); err != nil {
		return &DownloadError{AssetID: img.ID, URL: fetchURL, Err: err}
	}

	body, err := e.transport.Fetch(ctx, fetchURL)
	if err != nil {
		return &DownloadError{AssetID: img.ID, URL: fetchURL, Err: err}
	}
	defer body.Close()

	f, err := os.Create(localPath)
	if err != nil {
		return &DownloadError{AssetID: img.ID, URL: fetchURL, Err: err}
	}
	if _, err := io.Copy(f, body); err != nil {
		f.Close()
		os.Remove(localPath) // don't leave a truncated file for skip-download to find
		return &DownloadError{AssetID: img.ID, URL: fetchURL, Err: err}
	}
	if err := f.Close(); err != nil {
		os.Remove(localPath)
		return &DownloadError{AssetID: img.ID, URL: fetchURL, Err: err}
	}
	return nil
}

func (e *Executor) upload(ctx context.Context, img Image, uploadURL, localPath string) error {
	isMain := "false"
	if img.IsMain {
		isMain = "true"
	}

	if e.opts.DryRun {
		fmt.Printf("$ curl -sS -fL -X POST -H \"Cookie: %s\" -F %s=@%s -F %s=%s %s\n",
			e.opts.Cookie, e.opts.FileField, localPath, e.opts.IsMainField, isMain, uploadURL)
		return nil
	}

	header := http.Header{}
	if e.opts.Cookie != "" {
		header.Set("Cookie", e.opts.Cookie)
	}
	fields := map[string]string{e.opts.IsMainField: isMain}

	if err := e.transport.PostFile(ctx, uploadURL, header, fields, e.opts.FileField, localPath); err != nil {
		return &UploadError{AssetID: img.ID, URL: uploadURL, Err: err}
	}
	return nil
}

func fileExists(path string) bool {
	info, err := os.Stat(path)
	return err == nil && !info.IsDir()
}
