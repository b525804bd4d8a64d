// Package feed implements the bridge boundary to the platform
// notification source and sink as newline-delimited JSON streams.
package feed

import (
	"bufio"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/quelld/quell/internal/model"
)

// maxLineBytes bounds a single event line. Platform notifications are
// small; anything bigger is a misbehaving bridge.
const maxLineBytes = 256 * 1024

var errLineTooLong = errors.New("event line exceeds size limit")

// Source decodes notification events from an NDJSON stream. Bad lines
// (malformed JSON, missing package, oversized) are skipped with a log,
// never fatal: one bad event must not end the stream.
type Source struct {
	events    chan *model.Notification
	done      chan struct{}
	closeOnce sync.Once
	err       error
}

// NewSource starts decoding events from r. The returned source is ready
// for Next immediately. Call Close when done consuming to release the
// decode goroutine.
func NewSource(r io.Reader) *Source {
	s := &Source{
		events: make(chan *model.Notification),
		done:   make(chan struct{}),
	}
	go s.scan(r)
	return s
}

// Close releases the decode goroutine. Events decoded but not yet
// consumed are dropped; Next returns io.EOF afterwards.
func (s *Source) Close() {
	s.closeOnce.Do(func() { close(s.done) })
}

func (s *Source) scan(r io.Reader) {
	defer close(s.events)

	reader := bufio.NewReaderSize(r, 64*1024)
	for {
		line, err := readEventLine(reader)
		switch {
		case errors.Is(err, errLineTooLong):
			slog.Warn("skipping oversized event line", "limit_bytes", maxLineBytes)
			continue
		case err != nil && !errors.Is(err, io.EOF):
			s.err = fmt.Errorf("event stream failed: %w", err)
			return
		}

		if evt := decodeEvent(line); evt != nil {
			select {
			case s.events <- evt:
			case <-s.done:
				return
			}
		}

		if err != nil { // io.EOF
			return
		}
	}
}

// readEventLine reads one newline-terminated line. A line longer than
// maxLineBytes is discarded through to its newline and reported as
// errLineTooLong so the stream resynchronizes on the next line.
func readEventLine(reader *bufio.Reader) ([]byte, error) {
	var line []byte
	for {
		fragment, isPrefix, err := reader.ReadLine()
		if err != nil {
			return line, err
		}
		line = append(line, fragment...)
		if !isPrefix {
			return line, nil
		}
		if len(line) > maxLineBytes {
			for isPrefix && err == nil {
				_, isPrefix, err = reader.ReadLine()
			}
			if err != nil {
				return nil, err
			}
			return nil, errLineTooLong
		}
	}
}

// decodeEvent parses one line, returning nil for lines that should be
// skipped. Missing identity and timestamp are filled in.
func decodeEvent(line []byte) *model.Notification {
	if len(line) == 0 {
		return nil
	}

	var evt model.Notification
	if err := json.Unmarshal(line, &evt); err != nil {
		slog.Warn("skipping malformed event line", "error", err)
		return nil
	}
	if evt.PackageName == "" {
		slog.Warn("skipping event without package name")
		return nil
	}
	if evt.ID == "" {
		evt.ID = uuid.NewString()
	}
	if evt.Timestamp == 0 {
		evt.Timestamp = time.Now().UnixMilli()
	}
	return &evt
}

// Next returns the next event, io.EOF when the stream ends or the
// source is closed, or the context error when canceled first.
func (s *Source) Next(ctx context.Context) (*model.Notification, error) {
	// A closed source always reports end of stream, even while the decode
	// goroutine is still offering a pending event.
	select {
	case <-s.done:
		return nil, io.EOF
	default:
	}

	select {
	case <-ctx.Done():
		return nil, ctx.Err()
	case <-s.done:
		return nil, io.EOF
	case evt, ok := <-s.events:
		if !ok {
			if s.err != nil {
				return nil, s.err
			}
			return nil, io.EOF
		}
		return evt, nil
	}
}

// command is one instruction to the platform bridge.
type command struct {
	Action string `json:"action"`
	ID     string `json:"id"`
}

// Sink encodes cancel commands onto an NDJSON stream.
type Sink struct {
	mu  sync.Mutex
	enc *json.Encoder
}

// NewSink creates a sink writing to w.
func NewSink(w io.Writer) *Sink {
	return &Sink{enc: json.NewEncoder(w)}
}

// Cancel asks the bridge to cancel the notification with the given
// identity token.
func (s *Sink) Cancel(_ context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.enc.Encode(command{Action: "cancel", ID: id}); err != nil {
		return fmt.Errorf("failed to emit cancel command: %w", err)
	}
	return nil
}
