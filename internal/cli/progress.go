package cli

import (
	"encoding/json"
	"io"
	"os"
	"sync"
	"time"
)

// progressSink receives one JSON object per line for every progress event.
// Events carry a sequence number so consumers can detect drops.
type progressSink struct {
	mu     sync.Mutex
	out    io.Writer
	closer io.Closer
	seq    int
}

func newProgressSink(path string, defaultOut io.Writer) (*progressSink, error) {
	if path == "" {
		return nil, nil
	}
	if path == "-" {
		return &progressSink{out: defaultOut}, nil
	}
	f, err := os.OpenFile(path, os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0o600)
	if err != nil {
		return nil, err
	}
	return &progressSink{out: f, closer: f}, nil
}

func (s *progressSink) Close() error {
	if s == nil || s.closer == nil {
		return nil
	}
	return s.closer.Close()
}

func emitProgress(ctx *Context, eventType string, fields map[string]any) {
	if ctx == nil || ctx.Progress == nil || ctx.Progress.out == nil {
		return
	}
	now := time.Now
	if ctx.Now != nil {
		now = ctx.Now
	}
	sink := ctx.Progress
	sink.mu.Lock()
	defer sink.mu.Unlock()
	sink.seq++
	payload := map[string]any{
		"type":      eventType,
		"seq":       sink.seq,
		"timestamp": now().UTC().Format(time.RFC3339),
	}
	for k, v := range fields {
		if _, reserved := payload[k]; !reserved {
			payload[k] = v
		}
	}
	_ = json.NewEncoder(sink.out).Encode(payload)
}
