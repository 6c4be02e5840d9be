// Package media downloads chat attachments into short-lived scratch files.
package media

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"path/filepath"
	"regexp"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	apperrors "github.com/chatmaster/relay-bot/internal/core/errors"
	"github.com/chatmaster/relay-bot/internal/platform/httpclient"
	"github.com/chatmaster/relay-bot/internal/platform/observability"
	"github.com/chatmaster/relay-bot/internal/platform/textutil"
)

const (
	opAcquire      = "media.acquire"
	scratchFileExt = ".jpg"
	scratchPerm    = 0o600
	maxFileIDChars = 64
	maxErrorBody   = 4096
)

var unsafeNameChars = regexp.MustCompile(`[^A-Za-z0-9_-]`)

// ScratchFile is a downloaded attachment on local disk. The owner must call
// Remove once it is done with the file.
type ScratchFile struct {
	Path string
	Size int64
}

// Remove deletes the file. Removing an already removed file is not an error.
func (f *ScratchFile) Remove() error {
	if f == nil || f.Path == "" {
		return nil
	}

	if err := os.Remove(f.Path); err != nil && !errors.Is(err, os.ErrNotExist) {
		return fmt.Errorf("remove scratch file: %w", err)
	}

	return nil
}

// Downloader streams remote files into a scratch directory.
type Downloader struct {
	http    httpclient.Doer
	dir     string
	timeout time.Duration
	logger  *zerolog.Logger
}

// NewDownloader creates a downloader writing into dir.
func NewDownloader(doer httpclient.Doer, dir string, timeout time.Duration, logger *zerolog.Logger) *Downloader {
	if dir == "" {
		dir = os.TempDir()
	}

	if logger == nil {
		nop := zerolog.Nop()
		logger = &nop
	}

	l := logger.With().Str("component", "media").Logger()

	return &Downloader{
		http:    doer,
		dir:     dir,
		timeout: timeout,
		logger:  &l,
	}
}

// Acquire downloads url into a new scratch file named after fileID.
// On any failure the partially written file is removed and a
// KindAcquisition error is returned.
func (d *Downloader) Acquire(ctx context.Context, url, fileID string) (*ScratchFile, error) {
	path := d.scratchPath(fileID)

	f, err := os.OpenFile(path, os.O_WRONLY|os.O_CREATE|os.O_EXCL, scratchPerm)
	if err != nil {
		return nil, apperrors.New(apperrors.KindAcquisition, opAcquire, fmt.Errorf("create scratch file: %w", err))
	}

	start := time.Now()

	resp, err := d.http.Do(ctx, httpclient.Request{
		Method:  http.MethodGet,
		URL:     url,
		Timeout: d.timeout,
		Sink:    f,
	})

	closeErr := f.Close()

	switch {
	case err != nil:
		err = apperrors.New(apperrors.KindAcquisition, opAcquire, err)
	case !resp.OK():
		err = apperrors.New(apperrors.KindAcquisition, opAcquire, apperrors.ErrHTTPStatus).
			WithResponse(resp.Status, textutil.Truncate(string(resp.Body), maxErrorBody))
	case closeErr != nil:
		err = apperrors.New(apperrors.KindAcquisition, opAcquire, fmt.Errorf("close scratch file: %w", closeErr))
	}

	if err != nil {
		observability.ImageDownloadDuration.WithLabelValues(observability.StatusError).Observe(time.Since(start).Seconds())

		if rmErr := os.Remove(path); rmErr != nil && !errors.Is(rmErr, os.ErrNotExist) {
			d.logger.Warn().Err(rmErr).Str("path", path).Msg("failed to remove partial download")
		}

		return nil, err
	}

	observability.ImageDownloadDuration.WithLabelValues(observability.StatusSuccess).Observe(time.Since(start).Seconds())
	observability.ImageDownloadBytes.Observe(float64(resp.Written))

	d.logger.Debug().
		Str("file_id", fileID).
		Int64("bytes", resp.Written).
		Dur("duration", time.Since(start)).
		Msg("downloaded attachment")

	return &ScratchFile{Path: path, Size: resp.Written}, nil
}

// scratchPath derives a unique path from the platform file id. The random
// suffix keeps concurrent downloads of the same file apart.
func (d *Downloader) scratchPath(fileID string) string {
	name := unsafeNameChars.ReplaceAllString(fileID, "_")
	if len(name) > maxFileIDChars {
		name = name[:maxFileIDChars]
	}

	if name == "" {
		name = "file"
	}

	return filepath.Join(d.dir, name+"-"+uuid.NewString()+scratchFileExt)
}
