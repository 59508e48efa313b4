package store

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"os"
	"sync"

	"github.com/viant/afs"
	"github.com/viant/bearer/auth/credential"
	"golang.org/x/oauth2"
)

// FileStore persists the pair as an oauth2 token document at URL.
// Reads are served from memory, writes go through to storage first.
type FileStore struct {
	mu   sync.RWMutex
	URL  string
	fs   afs.Service
	pair *credential.Pair
}

type FileStoreOption func(*FileStore)

// WithFileService sets the afs service used to read and write the document
func WithFileService(fs afs.Service) FileStoreOption {
	return func(f *FileStore) {
		f.fs = fs
	}
}

// NewFileStore creates a Store persisted at URL (file://, mem:// or any afs scheme)
func NewFileStore(ctx context.Context, URL string, options ...FileStoreOption) (*FileStore, error) {
	ret := &FileStore{URL: URL}
	for _, opt := range options {
		opt(ret)
	}
	if ret.fs == nil {
		ret.fs = afs.New()
	}
	if err := ret.load(ctx); err != nil {
		return nil, err
	}
	return ret, nil
}

func (f *FileStore) Get(_ context.Context) (*credential.Pair, error) {
	f.mu.RLock()
	defer f.mu.RUnlock()
	return f.pair.Clone(), nil
}

func (f *FileStore) Set(ctx context.Context, pair *credential.Pair) error {
	if !pair.Valid() {
		return ErrIncompletePair
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	data, err := json.MarshalIndent(pair.Token(), "", "  ")
	if err != nil {
		return err
	}
	if err = f.fs.Upload(ctx, f.URL, os.FileMode(0o600), bytes.NewReader(data)); err != nil {
		return fmt.Errorf("failed to persist credentials %v: %w", f.URL, err)
	}
	f.pair = pair.Clone()
	return nil
}

func (f *FileStore) Clear(ctx context.Context) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	exists, err := f.fs.Exists(ctx, f.URL)
	if err != nil {
		return err
	}
	if exists {
		if err = f.fs.Delete(ctx, f.URL); err != nil {
			return fmt.Errorf("failed to remove credentials %v: %w", f.URL, err)
		}
	}
	f.pair = nil
	return nil
}

func (f *FileStore) load(ctx context.Context) error {
	exists, err := f.fs.Exists(ctx, f.URL)
	if err != nil {
		return err
	}
	if !exists {
		return nil
	}
	data, err := f.fs.DownloadWithURL(ctx, f.URL)
	if err != nil {
		return fmt.Errorf("failed to load credentials %v: %w", f.URL, err)
	}
	token := &oauth2.Token{}
	if err = json.Unmarshal(data, token); err != nil {
		return fmt.Errorf("invalid credentials document %v: %w", f.URL, err)
	}
	// a partial document is treated as no credentials
	if pair := credential.FromToken(token); pair.Valid() {
		f.pair = pair
	}
	return nil
}
