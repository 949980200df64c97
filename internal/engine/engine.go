// Package engine implements the log-structured storage engine at the heart
// of kvs: an append-only command log per generation, an in-memory index of
// (generation, offset, length) pointers, and the replay procedure that
// rebuilds that index from whatever generations are found on disk.
//
// The engine is single-threaded by design (spec.md §5): Store holds no
// internal lock, and callers sharing a Store across goroutines must
// serialize access themselves.
package engine

import (
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"

	"github.com/lukeojones/kvs/internal/config"
	"github.com/lukeojones/kvs/internal/format"
	"github.com/lukeojones/kvs/internal/storage"
)

// Store is the public façade over the log-structured engine: the in-memory
// index, one writer bound to the active generation, and one reader per
// known generation.
type Store struct {
	dir       string
	cfg       *config.Config
	index     map[string]LogPointer
	activeGen uint64
	writer    *storage.Writer
	readers   map[uint64]*storage.Reader
}

// Open prepares a Store rooted at dir, creating dir if absent, replaying
// every existing generation found there into a fresh index, and allocating
// a new active generation for subsequent writes.
func Open(dir string, cfg *config.Config) (*Store, error) {
	if cfg == nil {
		cfg = config.Default()
	}

	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("engine: create store directory %s: %w", dir, err)
	}

	gens, err := storage.DiscoverGenerations(dir)
	if err != nil {
		return nil, err
	}

	index := make(map[string]LogPointer)
	readers := make(map[uint64]*storage.Reader)
	for _, gen := range gens {
		reader, err := openReader(dir, gen)
		if err != nil {
			closeReaders(readers)
			return nil, err
		}
		if err := replay(reader, gen, index); err != nil {
			closeReaders(readers)
			reader.Close()
			return nil, err
		}
		readers[gen] = reader
	}

	active := storage.NextGeneration(gens)

	writeFile, err := os.OpenFile(storage.GenerationPath(dir, active), os.O_CREATE|os.O_RDWR|os.O_APPEND, 0o644)
	if err != nil {
		closeReaders(readers)
		return nil, fmt.Errorf("engine: open active generation %d: %w", active, err)
	}
	writer, err := storage.NewWriter(writeFile, int(cfg.SyncEveryBytes))
	if err != nil {
		writeFile.Close()
		closeReaders(readers)
		return nil, err
	}

	activeReader, err := openReader(dir, active)
	if err != nil {
		writer.Close()
		closeReaders(readers)
		return nil, err
	}
	readers[active] = activeReader

	store := &Store{
		dir:       dir,
		cfg:       cfg,
		index:     index,
		activeGen: active,
		writer:    writer,
		readers:   readers,
	}

	if cfg.ManifestChecksum != "none" {
		writeManifest(dir, store.generations(), active, len(index))
	}

	slog.Info("engine: store opened",
		"dir", dir,
		"active_generation", active,
		"replayed_generations", len(gens),
		"keys", len(index))

	return store, nil
}

func openReader(dir string, gen uint64) (*storage.Reader, error) {
	file, err := os.Open(storage.GenerationPath(dir, gen))
	if err != nil {
		return nil, fmt.Errorf("engine: open generation %d: %w", gen, err)
	}
	reader, err := storage.NewReader(file)
	if err != nil {
		file.Close()
		return nil, err
	}
	return reader, nil
}

func closeReaders(readers map[uint64]*storage.Reader) {
	for _, r := range readers {
		r.Close()
	}
}

func (s *Store) generations() []uint64 {
	gens := make([]uint64, 0, len(s.readers))
	for gen := range s.readers {
		gens = append(gens, gen)
	}
	return gens
}

// replay scans one generation's log in ascending offset order, applying
// each record to index exactly as if re-executing the original command
// stream: Set records install a pointer, Remove records delete one.
func replay(reader *storage.Reader, gen uint64, index map[string]LogPointer) error {
	for {
		start := reader.Pos()
		line, err := reader.ReadLine()
		if err == io.EOF {
			if len(line) == 0 {
				return nil
			}
			return fmt.Errorf("%w: generation %d offset %d: truncated trailing record", ErrCorrupt, gen, start)
		}
		if err != nil {
			return err
		}

		rec, err := format.Decode(line)
		if err != nil {
			return fmt.Errorf("%w: generation %d offset %d: %v", ErrCorrupt, gen, start, err)
		}

		end := reader.Pos()
		switch {
		case rec.IsSet():
			index[rec.Set.Key] = LogPointer{Generation: gen, Start: uint64(start), Length: uint64(end - start)}
		case rec.IsRemove():
			delete(index, rec.Remove.Key)
		}
	}
}

// Get returns the value currently associated with key, or ErrKeyNotFound if
// key is absent from the index.
func (s *Store) Get(key string) (string, error) {
	ptr, ok := s.index[key]
	if !ok {
		return "", ErrKeyNotFound
	}

	reader, ok := s.readers[ptr.Generation]
	if !ok {
		return "", fmt.Errorf("%w: generation %d", ErrReaderNotFound, ptr.Generation)
	}

	if err := reader.Seek(int64(ptr.Start)); err != nil {
		return "", err
	}

	buf := make([]byte, ptr.Length)
	if _, err := reader.Read(buf); err != nil {
		return "", err
	}

	rec, err := format.Decode(buf)
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrCorrupt, err)
	}
	if !rec.IsSet() {
		return "", fmt.Errorf("%w: index pointer for %q resolved to a non-Set record", ErrCorrupt, key)
	}

	return rec.Set.Value, nil
}

// Set stores value for key, appending a Set record to the active
// generation's log and flushing before updating the index, so the pointer
// it records is always backed by durable-to-the-wrapper bytes.
func (s *Store) Set(key, value string) error {
	data, err := format.EncodeSet(key, value)
	if err != nil {
		return err
	}

	start := s.writer.Pos()
	if _, err := s.writer.Write(data); err != nil {
		return err
	}
	if err := s.writer.Flush(); err != nil {
		return err
	}
	end := s.writer.Pos()

	s.index[key] = LogPointer{Generation: s.activeGen, Start: uint64(start), Length: uint64(end - start)}

	slog.Debug("engine: set", "key", key, "generation", s.activeGen, "offset", start, "length", end-start)
	return nil
}

// Remove deletes key from the store, failing with ErrKeyNotFound if key is
// not currently present. The index is mutated before the tombstone is
// appended: because the engine is single-threaded and replay rebuilds the
// index from the log alone, this order and the reverse one leave the same
// on-restart state. A crash before the tombstone reaches the log leaves the
// key live after the next Open in either order.
func (s *Store) Remove(key string) error {
	if _, ok := s.index[key]; !ok {
		return ErrKeyNotFound
	}

	delete(s.index, key)

	data, err := format.EncodeRemove(key)
	if err != nil {
		return err
	}
	if _, err := s.writer.Write(data); err != nil {
		return err
	}
	if err := s.writer.Flush(); err != nil {
		return err
	}

	slog.Debug("engine: removed", "key", key)
	return nil
}

// Len returns the number of keys currently live in the index.
func (s *Store) Len() int {
	return len(s.index)
}

// GenerationCount returns the number of generations known to this store,
// including the active one.
func (s *Store) GenerationCount() int {
	return len(s.readers)
}

// Close flushes the active writer and closes every open file handle. It
// attempts every close, collects every error encountered, and returns them
// joined with errors.Join. The manifest is rewritten first, so it reflects every
// Set and Remove made during this Store's lifetime rather than only the
// index as it stood at Open.
func (s *Store) Close() error {
	if s.cfg.ManifestChecksum != "none" {
		writeManifest(s.dir, s.generations(), s.activeGen, len(s.index))
	}

	var errs []error

	if err := s.writer.Close(); err != nil {
		errs = append(errs, err)
	}
	for gen, reader := range s.readers {
		if err := reader.Close(); err != nil {
			errs = append(errs, fmt.Errorf("generation %d: %w", gen, err))
		}
	}

	slog.Info("engine: store closed", "dir", s.dir, "keys", len(s.index))

	return errors.Join(errs...)
}
