// Package chatlog writes NDJSON conversation transcripts, one file per
// (user, session) pair plus an optional global feed. Writes are queued and
// handled by a single background goroutine so request handlers never block
// on transcript I/O.
package chatlog

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"regexp"
	"strings"
	"sync"
	"time"
)

// Channel values identify which transport produced an event.
const (
	ChannelHTTP   = "chat_http"
	ChannelStream = "chat_stream"
	ChannelWS     = "chat_ws"
	ChannelA2A    = "a2a"
)

// Direction values.
const (
	DirectionInbound  = "inbound"
	DirectionOutbound = "outbound"
)

// Event types.
const (
	EventUserMessage   = "user_message"
	EventAgentResponse = "agent_response"
)

// Config controls transcript logging.
type Config struct {
	Enabled       bool
	Dir           string
	GlobalEnabled bool
	GlobalPath    string
	QueueSize     int
}

// Event is one transcript line. Content is a control-character-stripped
// copy of ContentRaw, populated automatically when left empty.
type Event struct {
	Timestamp  time.Time         `json:"timestamp"`
	UserID     string            `json:"user_id"`
	SessionID  string            `json:"session_id"`
	Channel    string            `json:"channel"`
	Direction  string            `json:"direction"`
	EventType  string            `json:"event_type"`
	ContentRaw string            `json:"content_raw"`
	Content    string            `json:"content"`
	Meta       map[string]string `json:"meta,omitempty"`
}

// Logger accepts transcript events. Log never blocks the caller.
type Logger interface {
	Log(event Event)
	Close() error
}

// New returns a Logger for the given config. A disabled config yields a
// no-op logger, so callers never need to branch.
func New(cfg Config, logger *slog.Logger) (Logger, error) {
	if !cfg.Enabled && !cfg.GlobalEnabled {
		return nopLogger{}, nil
	}
	if logger == nil {
		logger = slog.Default()
	}
	if cfg.QueueSize <= 0 {
		cfg.QueueSize = 256
	}

	if cfg.Enabled {
		if err := os.MkdirAll(cfg.Dir, 0755); err != nil {
			return nil, fmt.Errorf("create transcript directory: %w", err)
		}
	}
	if cfg.GlobalEnabled {
		if err := os.MkdirAll(filepath.Dir(cfg.GlobalPath), 0755); err != nil {
			return nil, fmt.Errorf("create global transcript directory: %w", err)
		}
	}

	ctx, cancel := context.WithCancel(context.Background())
	l := &asyncLogger{
		cfg:    cfg,
		queue:  make(chan Event, cfg.QueueSize),
		ctx:    ctx,
		cancel: cancel,
		logger: logger,
	}
	l.wg.Add(1)
	go l.run()
	return l, nil
}

// Nop returns a Logger that discards everything. Useful as a default so
// callers can log unconditionally.
func Nop() Logger { return nopLogger{} }

type nopLogger struct{}

func (nopLogger) Log(Event)    {}
func (nopLogger) Close() error { return nil }

type asyncLogger struct {
	cfg    Config
	queue  chan Event
	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup
	logger *slog.Logger

	closeOnce sync.Once
}

// Log queues an event for the background writer. When the queue is full the
// oldest entry is dropped so producers keep making progress.
func (l *asyncLogger) Log(event Event) {
	if event.Timestamp.IsZero() {
		event.Timestamp = time.Now().UTC()
	}
	if event.Content == "" {
		event.Content = cleanForReadability(event.ContentRaw)
	}

	select {
	case l.queue <- event:
	case <-l.ctx.Done():
	default:
		// Queue full: drop the oldest entry and retry once.
		select {
		case <-l.queue:
			l.logger.Warn("transcript queue full, dropped oldest event",
				"user_id", event.UserID, "session_id", event.SessionID)
		default:
		}
		select {
		case l.queue <- event:
		case <-l.ctx.Done():
		default:
			l.logger.Warn("transcript event dropped",
				"user_id", event.UserID, "session_id", event.SessionID)
		}
	}
}

func (l *asyncLogger) run() {
	defer l.wg.Done()

	for {
		select {
		case event := <-l.queue:
			l.write(event)
		case <-l.ctx.Done():
			// Drain whatever is already queued before exiting.
			for {
				select {
				case event := <-l.queue:
					l.write(event)
				default:
					return
				}
			}
		}
	}
}

func (l *asyncLogger) write(event Event) {
	line, err := json.Marshal(event)
	if err != nil {
		l.logger.Error("marshal transcript event", "error", err)
		return
	}
	line = append(line, '\n')

	if l.cfg.Enabled {
		path := l.sessionPath(event)
		if err := appendLine(path, line); err != nil {
			l.logger.Error("write transcript", "path", path, "error", err)
		}
	}
	if l.cfg.GlobalEnabled {
		if err := appendLine(l.cfg.GlobalPath, line); err != nil {
			l.logger.Error("write global transcript", "path", l.cfg.GlobalPath, "error", err)
		}
	}
}

func (l *asyncLogger) sessionPath(event Event) string {
	user := sanitizePathComponent(event.UserID)
	session := sanitizePathComponent(event.SessionID)
	return filepath.Join(l.cfg.Dir, user, session+".ndjson")
}

// Close stops the writer and waits briefly for queued events to flush.
func (l *asyncLogger) Close() error {
	l.closeOnce.Do(func() {
		l.cancel()

		done := make(chan struct{})
		go func() {
			l.wg.Wait()
			close(done)
		}()

		select {
		case <-done:
		case <-time.After(5 * time.Second):
			l.logger.Warn("transcript writer shutdown timeout",
				"queue_remaining", len(l.queue))
		}
	})
	return nil
}

func appendLine(path string, line []byte) error {
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return fmt.Errorf("create directory: %w", err)
	}
	f, err := os.OpenFile(path, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0644)
	if err != nil {
		return fmt.Errorf("open transcript file: %w", err)
	}
	defer func() { _ = f.Close() }()

	if _, err := f.Write(line); err != nil {
		return fmt.Errorf("append transcript line: %w", err)
	}
	return nil
}

func sanitizePathComponent(s string) string {
	if s == "" {
		return "unknown"
	}
	replacer := strings.NewReplacer("/", "_", "\\", "_", "..", "_", string(os.PathSeparator), "_")
	return replacer.Replace(s)
}

var ansiPattern = regexp.MustCompile(`\x1b(\[[0-9;?]*[a-zA-Z]|\][^\x07]*(\x07|\x1b\\)|[()][0-9A-B])`)

// cleanForReadability strips ANSI escape sequences and non-printable control
// characters so transcripts stay safe to view with ordinary tools. Newlines
// and tabs are preserved.
func cleanForReadability(raw string) string {
	cleaned := ansiPattern.ReplaceAllString(raw, "")
	var b strings.Builder
	b.Grow(len(cleaned))
	for _, r := range cleaned {
		if r == '\n' || r == '\t' || r >= 0x20 {
			b.WriteRune(r)
		}
	}
	return b.String()
}
