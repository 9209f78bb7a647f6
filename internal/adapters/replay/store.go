// Package replay stores one replay blob per leaderboard entry id.
//
// Blobs live in a single directory as <entryId>.rep, or <entryId>.rep.zst
// when compression is on. Writes go through a staged temp file that is
// renamed into place, so a reader sees either the old blob or the new one.
package replay

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"github.com/klauspost/compress/zstd"

	"github.com/okian/jmscore/pkg/logger"
	"github.com/okian/jmscore/pkg/metrics"
)

const (
	rawExt      = ".rep"
	zstdExt     = ".rep.zst"
	stagePrefix = ".stage-"
	tmpSuffix   = ".tmp"
	maxIDLen    = 32
	dirPerm     = 0o750
	filePerm    = 0o640
)

// Store is a directory of replay blobs.
type Store struct {
	dir      string
	compress bool
	enc      *zstd.Encoder
	dec      *zstd.Decoder
	logger   logger.Logger
}

// Open creates dir if needed and returns a Store rooted there.
func Open(dir string, opts ...Option) (*Store, error) {
	s := &Store{dir: dir}
	for _, opt := range opts {
		opt(s)
	}
	if s.logger == nil {
		s.logger = logger.Get().Named("replay")
	}

	if err := os.MkdirAll(dir, dirPerm); err != nil {
		return nil, fmt.Errorf("%w: create %s: %w", ErrStorage, dir, err)
	}

	var err error
	if s.compress {
		s.enc, err = zstd.NewWriter(nil, zstd.WithEncoderLevel(zstd.SpeedDefault))
		if err != nil {
			return nil, fmt.Errorf("%w: zstd encoder: %w", ErrStorage, err)
		}
	}
	// Existing .zst blobs stay readable even when compression is off.
	s.dec, err = zstd.NewReader(nil)
	if err != nil {
		return nil, fmt.Errorf("%w: zstd decoder: %w", ErrStorage, err)
	}
	return s, nil
}

// Close releases the codec resources.
func (s *Store) Close() error {
	if s.enc != nil {
		_ = s.enc.Close()
	}
	s.dec.Close()
	return nil
}

// validID accepts 1-32 ASCII letters and digits.
func validID(id string) bool {
	if id == "" || len(id) > maxIDLen {
		return false
	}
	for i := 0; i < len(id); i++ {
		c := id[i]
		if (c < '0' || c > '9') && (c < 'a' || c > 'z') && (c < 'A' || c > 'Z') {
			return false
		}
	}
	return true
}

func (s *Store) rawPath(id string) string  { return filepath.Join(s.dir, id+rawExt) }
func (s *Store) zstdPath(id string) string { return filepath.Join(s.dir, id+zstdExt) }

// Staged is a replay written to a temp file and not yet visible.
type Staged struct {
	store      *Store
	path       string
	size       int
	compressed bool
	done       bool
}

// Stage writes data to a temp file in the store directory.
func (s *Store) Stage(_ context.Context, data []byte) (*Staged, error) {
	payload := data
	if s.compress {
		payload = s.enc.EncodeAll(data, make([]byte, 0, len(data)/2))
	}

	f, err := os.CreateTemp(s.dir, stagePrefix+"*"+tmpSuffix)
	if err != nil {
		return nil, fmt.Errorf("%w: stage: %w", ErrStorage, err)
	}
	if _, err := f.Write(payload); err != nil {
		_ = f.Close()
		_ = os.Remove(f.Name())
		return nil, fmt.Errorf("%w: stage write: %w", ErrStorage, err)
	}
	if err := f.Close(); err != nil {
		_ = os.Remove(f.Name())
		return nil, fmt.Errorf("%w: stage close: %w", ErrStorage, err)
	}
	if err := os.Chmod(f.Name(), filePerm); err != nil {
		_ = os.Remove(f.Name())
		return nil, fmt.Errorf("%w: stage chmod: %w", ErrStorage, err)
	}
	return &Staged{store: s, path: f.Name(), size: len(data), compressed: s.compress}, nil
}

// Publish makes the staged blob the replay of entryID, replacing any
// previous blob in either form.
func (st *Staged) Publish(entryID string) error {
	if st.done {
		return ErrFinished
	}
	if !validID(entryID) {
		_ = st.Discard()
		return fmt.Errorf("%w: %q", ErrInvalidID, entryID)
	}
	st.done = true

	s := st.store
	target, stale := s.rawPath(entryID), s.zstdPath(entryID)
	if st.compressed {
		target, stale = stale, target
	}
	if err := os.Rename(st.path, target); err != nil {
		_ = os.Remove(st.path)
		return fmt.Errorf("%w: publish %s: %w", ErrStorage, entryID, err)
	}
	if err := os.Remove(stale); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return fmt.Errorf("%w: remove stale %s: %w", ErrStorage, entryID, err)
	}
	metrics.RecordReplayWritten(st.size)
	return nil
}

// Discard removes the staged file. It is a no-op after Publish.
func (st *Staged) Discard() error {
	if st.done {
		return nil
	}
	st.done = true
	if err := os.Remove(st.path); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return fmt.Errorf("%w: discard: %w", ErrStorage, err)
	}
	return nil
}

// Put stores data as the replay of entryID.
func (s *Store) Put(ctx context.Context, entryID string, data []byte) error {
	if !validID(entryID) {
		return fmt.Errorf("%w: %q", ErrInvalidID, entryID)
	}
	st, err := s.Stage(ctx, data)
	if err != nil {
		return err
	}
	return st.Publish(entryID)
}

// Get returns the raw replay bytes of entryID.
func (s *Store) Get(_ context.Context, entryID string) ([]byte, error) {
	if !validID(entryID) {
		return nil, ErrNotFound
	}

	data, err := os.ReadFile(s.rawPath(entryID))
	if err == nil {
		return data, nil
	}
	if !errors.Is(err, fs.ErrNotExist) {
		return nil, fmt.Errorf("%w: read %s: %w", ErrStorage, entryID, err)
	}

	frame, err := os.ReadFile(s.zstdPath(entryID))
	if errors.Is(err, fs.ErrNotExist) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("%w: read %s: %w", ErrStorage, entryID, err)
	}
	data, err = s.dec.DecodeAll(frame, nil)
	if err != nil {
		return nil, fmt.Errorf("%w: decode %s: %w", ErrStorage, entryID, err)
	}
	return data, nil
}

// Exists reports whether entryID has a replay in either form.
func (s *Store) Exists(_ context.Context, entryID string) (bool, error) {
	if !validID(entryID) {
		return false, nil
	}
	for _, p := range []string{s.rawPath(entryID), s.zstdPath(entryID)} {
		_, err := os.Stat(p)
		if err == nil {
			return true, nil
		}
		if !errors.Is(err, fs.ErrNotExist) {
			return false, fmt.Errorf("%w: stat %s: %w", ErrStorage, entryID, err)
		}
	}
	return false, nil
}

// Delete removes the replay of entryID. A missing replay is not an error.
func (s *Store) Delete(_ context.Context, entryID string) error {
	if !validID(entryID) {
		return fmt.Errorf("%w: %q", ErrInvalidID, entryID)
	}
	var errs []error
	for _, p := range []string{s.rawPath(entryID), s.zstdPath(entryID)} {
		if err := os.Remove(p); err != nil && !errors.Is(err, fs.ErrNotExist) {
			errs = append(errs, err)
		}
	}
	if err := errors.Join(errs...); err != nil {
		return fmt.Errorf("%w: delete %s: %w", ErrStorage, entryID, err)
	}
	return nil
}

// Sweep removes staged files left behind by an interrupted submission and
// returns how many were removed.
func (s *Store) Sweep(ctx context.Context) (int, error) {
	entries, err := os.ReadDir(s.dir)
	if err != nil {
		return 0, fmt.Errorf("%w: sweep: %w", ErrStorage, err)
	}
	removed := 0
	for _, e := range entries {
		name := e.Name()
		if e.IsDir() || !strings.HasPrefix(name, stagePrefix) || !strings.HasSuffix(name, tmpSuffix) {
			continue
		}
		if err := os.Remove(filepath.Join(s.dir, name)); err != nil && !errors.Is(err, fs.ErrNotExist) {
			s.logger.Warn(ctx, "sweep failed", logger.String("file", name), logger.Error(err))
			continue
		}
		removed++
	}
	if removed > 0 {
		s.logger.Info(ctx, "removed staged replays", logger.Int("count", removed))
	}
	return removed, nil
}
