// Package feed supplies raw catalog payloads to the monitor.
//
// A Source keeps the most recently captured response body. Snapshot returns it
// (capturing one first if nothing has been captured yet); Refresh re-fetches so
// the next Snapshot reflects current data.
package feed

import (
	"context"
	"errors"
	"os"
	"strings"
	"sync"
	"time"
)

// ErrFeed marks a failed feed acquisition (network, timeout, unexpected status).
var ErrFeed = errors.New("feed error")

type Source interface {
	Snapshot(ctx context.Context) ([]byte, error)
	Refresh(ctx context.Context) error
}

// Aged is implemented by sources that know when their snapshot was captured.
type Aged interface {
	CapturedAt() time.Time
}

// FileSource serves a catalog stored on disk. Useful for dry runs against a saved payload.
type FileSource struct {
	Path string

	mu   sync.Mutex
	body []byte
	at   time.Time
}

func NewFileSource(path string) *FileSource {
	return &FileSource{Path: strings.TrimPrefix(path, "file://")}
}

func (s *FileSource) Snapshot(ctx context.Context) ([]byte, error) {
	s.mu.Lock()
	body := s.body
	s.mu.Unlock()
	if body != nil {
		return body, nil
	}
	if err := s.Refresh(ctx); err != nil {
		return nil, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.body, nil
}

func (s *FileSource) Refresh(ctx context.Context) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	b, err := os.ReadFile(s.Path)
	if err != nil {
		return errors.Join(ErrFeed, err)
	}
	s.mu.Lock()
	s.body = b
	s.at = time.Now()
	s.mu.Unlock()
	return nil
}

// CapturedAt returns when the file was last read.
func (s *FileSource) CapturedAt() time.Time {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.at
}
