// Package s3 provides the "s3_upload" evaluator, which uploads files from an
// experiment's results directory to pre-signed object storage URLs.
package s3

import (
	"context"
	"errors"
	"fmt"
	"mime"
	"net/http"
	"os"
	"path/filepath"
	"sort"
	"time"

	"github.com/specialistvlad/expgrid/internal/ctxlog"
	"github.com/specialistvlad/expgrid/internal/registry"
	"github.com/specialistvlad/expgrid/internal/workspace"
)

// Module implements the registry.Module interface for this package.
type Module struct{}

// httpClient is shared by all uploads to reuse TCP connections.
var httpClient = &http.Client{Timeout: 5 * time.Minute}

// Settings are read from the experiment's arguments.
type Settings struct {
	// URLs maps a file name inside the results directory to its pre-signed
	// PUT URL.
	URLs map[string]string `exp:"s3_upload_urls"`
}

// Upload is the outcome of one uploaded file.
type Upload struct {
	File   string
	Size   int64
	Status string
}

// uploadFile PUTs one workspace file to a pre-signed URL.
func uploadFile(ctx context.Context, ws *workspace.Workspace, name, uploadURL string) (*Upload, error) {
	logger := ctxlog.FromContext(ctx).With("action", "upload", "file", name)

	path, err := ws.Path(name)
	if err != nil {
		return nil, err
	}
	file, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open source file '%s': %w", name, err)
	}
	defer file.Close()

	stat, err := file.Stat()
	if err != nil {
		return nil, fmt.Errorf("failed to get file stats for '%s': %w", name, err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPut, uploadURL, file)
	if err != nil {
		return nil, fmt.Errorf("failed to create S3 upload request: %w", err)
	}

	contentType := mime.TypeByExtension(filepath.Ext(name))
	if contentType == "" {
		contentType = "application/octet-stream"
	}
	req.Header.Set("Content-Type", contentType)
	req.ContentLength = stat.Size()

	logger.Info("Uploading file to S3", "size", stat.Size(), "contentType", contentType)

	resp, err := httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("failed to execute S3 upload request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("S3 upload of '%s' failed with status: %s", name, resp.Status)
	}

	logger.Debug("Successfully uploaded file", "status", resp.Status)
	return &Upload{File: name, Size: stat.Size(), Status: resp.Status}, nil
}

// OnUpload is the handler for the "s3_upload" evaluator. Files are uploaded
// in name order and the first failure stops the evaluator.
func OnUpload(ctx context.Context, ws *workspace.Workspace, _ any, args registry.Args) error {
	var s Settings
	if err := registry.DecodeArgs(args, &s); err != nil {
		return err
	}
	if len(s.URLs) == 0 {
		return errors.New("argument 's3_upload_urls' is required")
	}

	names := make([]string, 0, len(s.URLs))
	for name := range s.URLs {
		names = append(names, name)
	}
	sort.Strings(names)

	for _, name := range names {
		if _, err := uploadFile(ctx, ws, name, s.URLs[name]); err != nil {
			return err
		}
	}
	return nil
}

// Register registers the evaluator with the registry.
func (m *Module) Register(r *registry.Registry) {
	r.RegisterEvaluator("s3_upload", registry.NewArgsEvaluator(OnUpload))
}
