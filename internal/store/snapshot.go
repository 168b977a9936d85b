package store

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"cloud.google.com/go/storage"

	"github.com/avolkov/finsight/internal/domain"
)

// State is the persisted layout: one JSON document holding the store's
// transactions and analysis under a single named key (file path or GCS
// object).
type State struct {
	Transactions []domain.Transaction `json:"transactions"`
	Analysis     domain.Analysis      `json:"analysis"`
}

// Snapshot persists and restores the store state. Read returns (nil, nil)
// when no snapshot exists yet.
type Snapshot interface {
	Read(ctx context.Context) (*State, error)
	Write(ctx context.Context, state *State) error
}

// NewSnapshot picks a backend from the URI: "gs://bucket/object" selects
// GCS, anything else is treated as a local file path. An empty URI
// returns nil (persistence disabled).
func NewSnapshot(uri string) Snapshot {
	if uri == "" {
		return nil
	}
	if strings.HasPrefix(uri, "gs://") {
		return &GCSSnapshot{URI: uri}
	}
	return &FileSnapshot{Path: uri}
}

// FileSnapshot stores the state as a JSON file on local disk.
type FileSnapshot struct {
	Path string
}

// Read implements Snapshot.
func (f *FileSnapshot) Read(ctx context.Context) (*State, error) {
	data, err := os.ReadFile(f.Path)
	if errors.Is(err, os.ErrNotExist) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("read snapshot %q: %w", f.Path, err)
	}
	return decodeState(data)
}

// Write implements Snapshot. The file is written via a temp-and-rename so
// a crash mid-write never leaves a truncated snapshot behind.
func (f *FileSnapshot) Write(ctx context.Context, state *State) error {
	data, err := json.Marshal(state)
	if err != nil {
		return fmt.Errorf("encode snapshot: %w", err)
	}

	dir := filepath.Dir(f.Path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("create snapshot dir %q: %w", dir, err)
	}

	tmp, err := os.CreateTemp(dir, filepath.Base(f.Path)+".tmp-*")
	if err != nil {
		return fmt.Errorf("create temp snapshot: %w", err)
	}
	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		os.Remove(tmp.Name())
		return fmt.Errorf("write temp snapshot: %w", err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmp.Name())
		return fmt.Errorf("close temp snapshot: %w", err)
	}
	if err := os.Rename(tmp.Name(), f.Path); err != nil {
		os.Remove(tmp.Name())
		return fmt.Errorf("rename snapshot: %w", err)
	}
	return nil
}

// GCSSnapshot stores the state as a single JSON object in Google Cloud
// Storage. It assumes Application Default Credentials are configured.
type GCSSnapshot struct {
	URI string // gs://bucket/object
}

func (g *GCSSnapshot) split() (bucket, object string, err error) {
	trimmed := strings.TrimPrefix(g.URI, "gs://")
	parts := strings.SplitN(trimmed, "/", 2)
	if len(parts) != 2 || parts[0] == "" || parts[1] == "" {
		return "", "", fmt.Errorf("invalid GCS URI: %s", g.URI)
	}
	return parts[0], parts[1], nil
}

// Read implements Snapshot.
func (g *GCSSnapshot) Read(ctx context.Context) (*State, error) {
	bucket, object, err := g.split()
	if err != nil {
		return nil, err
	}

	client, err := storage.NewClient(ctx)
	if err != nil {
		return nil, fmt.Errorf("create storage client: %w", err)
	}
	defer client.Close()

	rc, err := client.Bucket(bucket).Object(object).NewReader(ctx)
	if errors.Is(err, storage.ErrObjectNotExist) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("read snapshot object %s/%s: %w", bucket, object, err)
	}
	defer rc.Close()

	data, err := io.ReadAll(rc)
	if err != nil {
		return nil, fmt.Errorf("read snapshot bytes: %w", err)
	}
	return decodeState(data)
}

// Write implements Snapshot.
func (g *GCSSnapshot) Write(ctx context.Context, state *State) error {
	bucket, object, err := g.split()
	if err != nil {
		return err
	}

	data, err := json.Marshal(state)
	if err != nil {
		return fmt.Errorf("encode snapshot: %w", err)
	}

	client, err := storage.NewClient(ctx)
	if err != nil {
		return fmt.Errorf("create storage client: %w", err)
	}
	defer client.Close()

	w := client.Bucket(bucket).Object(object).NewWriter(ctx)
	w.ContentType = "application/json"
	if _, err := w.Write(data); err != nil {
		_ = w.Close()
		return fmt.Errorf("write snapshot object %s/%s: %w", bucket, object, err)
	}
	if err := w.Close(); err != nil {
		return fmt.Errorf("finalize snapshot upload: %w", err)
	}
	return nil
}

// decodeState parses persisted bytes. Corrupt data is reported as an
// error; the store maps that to "start from empty defaults".
func decodeState(data []byte) (*State, error) {
	var state State
	if err := json.Unmarshal(data, &state); err != nil {
		return nil, fmt.Errorf("decode snapshot: %w", err)
	}
	return &state, nil
}
