// Package socketio provides the "socketio_emit" evaluator, which streams an
// experiment's result to a socket.io server.
package socketio

import (
	"context"
	"crypto/tls"
	"errors"
	"fmt"
	"net/url"
	"path/filepath"
	"sync/atomic"
	"time"

	"github.com/specialistvlad/expgrid/internal/ctxlog"
	"github.com/specialistvlad/expgrid/internal/registry"
	"github.com/specialistvlad/expgrid/internal/workspace"
	"github.com/zishang520/engine.io-client-go/transports"
	"github.com/zishang520/engine.io/v2/types"
	"github.com/zishang520/socket.io-client-go/socket"
)

const (
	defaultEvent   = "experiment_result"
	defaultTimeout = 10 * time.Second
)

// Module implements the registry.Module interface for this package.
type Module struct{}

// Settings are read from the experiment's arguments.
type Settings struct {
	URL                string        `exp:"socketio_url"`
	Namespace          string        `exp:"socketio_namespace"`
	Event              string        `exp:"socketio_event"`
	ReplyEvent         string        `exp:"socketio_reply_event"`
	Timeout            time.Duration `exp:"socketio_timeout"`
	InsecureSkipVerify bool          `exp:"socketio_insecure_skip_verify"`
}

func (s *Settings) applyDefaults() {
	if s.Namespace == "" {
		s.Namespace = "/"
	}
	if s.Event == "" {
		s.Event = defaultEvent
	}
	if s.Timeout <= 0 {
		s.Timeout = defaultTimeout
	}
}

// Message is the payload emitted for each experiment.
type Message struct {
	Experiment string         `json:"experiment"`
	Result     any            `json:"result"`
	Args       map[string]any `json:"args"`
}

// OnEmit is the handler for the "socketio_emit" evaluator. It connects,
// emits one Message and, when a reply event is configured, waits for it.
func OnEmit(ctx context.Context, ws *workspace.Workspace, result any, args registry.Args) error {
	var s Settings
	if err := registry.DecodeArgs(args, &s); err != nil {
		return err
	}
	if s.URL == "" {
		return errors.New("argument 'socketio_url' is required")
	}
	s.applyDefaults()

	logger := ctxlog.FromContext(ctx).With("evaluator", "socketio_emit", "url", s.URL, "event", s.Event)
	logger.Debug("Handler started")
	defer logger.Debug("Handler finished")

	parsedURL, err := url.Parse(s.URL)
	if err != nil {
		return fmt.Errorf("failed to parse URL: %w", err)
	}

	msg := Message{
		Experiment: filepath.Base(ws.Dir()),
		Result:     result,
		Args:       args,
	}

	var isConnected atomic.Bool
	done := make(chan error, 1)
	opCtx, cancel := context.WithTimeout(ctx, s.Timeout)
	defer cancel()

	baseURL := fmt.Sprintf("%s://%s", parsedURL.Scheme, parsedURL.Host)
	opts := socket.DefaultOptions()
	if parsedURL.Path != "" {
		opts.SetPath(parsedURL.Path)
	}
	if s.InsecureSkipVerify {
		logger.Warn("Skipping TLS certificate verification")
		opts.SetTLSClientConfig(&tls.Config{InsecureSkipVerify: true})
	}
	opts.SetTransports(types.NewSet(transports.WebSocket))

	manager := socket.NewManager(baseURL, opts)
	io := manager.Socket(s.Namespace, opts)
	defer func() {
		logger.Debug("Disconnecting socket client")
		io.Disconnect()
	}()

	io.On(types.EventName("connect"), func(...any) {
		isConnected.Store(true)
		logger.Info("Connected, emitting result", "sid", io.Id())
		io.Emit(s.Event, msg)
		if s.ReplyEvent == "" {
			select {
			case done <- nil:
			default:
			}
		}
	})

	io.On(types.EventName("connect_error"), func(errs ...any) {
		var err error = errors.New("connection failed")
		if len(errs) > 0 {
			if e, ok := errs[0].(error); ok {
				err = e
			}
		}
		select {
		case done <- err:
		default:
		}
	})

	if s.ReplyEvent != "" {
		io.Once(types.EventName(s.ReplyEvent), func(...any) {
			logger.Debug("Reply event received", "reply_event", s.ReplyEvent)
			select {
			case done <- nil:
			default:
			}
		})
	}

	io.Connect()

	select {
	case <-opCtx.Done():
		if isConnected.Load() {
			return fmt.Errorf("timed out after connecting while waiting for event '%s'", s.ReplyEvent)
		}
		return errors.New("timed out while waiting for initial connection")
	case err := <-done:
		return err
	}
}

// Register registers the evaluator with the registry.
func (m *Module) Register(r *registry.Registry) {
	r.RegisterEvaluator("socketio_emit", registry.NewArgsEvaluator(OnEmit))
}
