// Package webhook provides the "webhook" evaluator, which POSTs an
// experiment's result as JSON to the URL named by its webhook_url argument.
package webhook

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"path/filepath"
	"time"

	"github.com/specialistvlad/expgrid/internal/ctxlog"
	"github.com/specialistvlad/expgrid/internal/registry"
	"github.com/specialistvlad/expgrid/internal/workspace"
)

// Module implements the registry.Module interface for this package.
type Module struct{}

// Settings are read from the experiment's arguments.
type Settings struct {
	URL     string            `exp:"webhook_url"`
	Timeout time.Duration     `exp:"webhook_timeout"`
	Headers map[string]string `exp:"webhook_headers"`
}

// Payload is the JSON body sent to the webhook.
type Payload struct {
	Experiment string         `json:"experiment"`
	Result     any            `json:"result"`
	Args       map[string]any `json:"args"`
}

// OnWebhook is the handler for the "webhook" evaluator.
func OnWebhook(ctx context.Context, ws *workspace.Workspace, result any, args registry.Args) error {
	var s Settings
	if err := registry.DecodeArgs(args, &s); err != nil {
		return err
	}
	if s.URL == "" {
		return errors.New("argument 'webhook_url' is required")
	}

	body, err := json.Marshal(Payload{
		Experiment: filepath.Base(ws.Dir()),
		Result:     result,
		Args:       args,
	})
	if err != nil {
		return fmt.Errorf("failed to encode webhook payload: %w", err)
	}

	logger := ctxlog.FromContext(ctx).With("url", s.URL)
	logger.Info("Posting result to webhook")

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, s.URL, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	for k, v := range s.Headers {
		req.Header.Set(k, v)
	}

	client := newClient(s.Timeout)
	defer client.CloseIdleConnections()

	resp, err := client.Do(req)
	if err != nil {
		return fmt.Errorf("failed to execute request: %w", err)
	}
	defer resp.Body.Close()
	_, _ = io.Copy(io.Discard, resp.Body)

	logger.Debug("Received webhook response", "status", resp.Status)
	if resp.StatusCode >= 300 {
		return fmt.Errorf("webhook responded with %s", resp.Status)
	}
	return nil
}

// Register registers the evaluator with the registry.
func (m *Module) Register(r *registry.Registry) {
	r.RegisterEvaluator("webhook", registry.NewArgsEvaluator(OnWebhook))
}
