package eventlog

import (
	"bufio"
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sync"

	"github.com/sanix-darker/streamkernel/internal/kernelid"
)

// FileStore is a durable Store backed by one newline-delimited JSON file
// per stream under Dir, grounded on internal/config/store.go's
// LoadYAMLFile pattern of reading a whole file into memory and
// re-deriving state from it, adapted here to an append-only per-line
// write instead of a one-shot load. Stdlib-only (encoding/json, bufio,
// os): this is plain line-oriented file I/O, not a config-file format
// yaml.v3 is suited to, and nothing in the dependency set offers an
// embedded database or structured-log library to reach for instead.
type FileStore struct {
	dir string
	mu  sync.Mutex
	// seqs caches the next seq to assign per stream, avoiding a re-scan
	// of the file on every Append.
	seqs map[kernelid.StreamID]int64
}

// NewFileStore creates a FileStore rooted at dir, creating dir if needed.
func NewFileStore(dir string) (*FileStore, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("eventlog: create store dir: %w", err)
	}
	return &FileStore{dir: dir, seqs: make(map[kernelid.StreamID]int64)}, nil
}

func (f *FileStore) path(streamID kernelid.StreamID) string {
	return filepath.Join(f.dir, string(streamID)+".jsonl")
}

func (f *FileStore) Append(_ context.Context, streamID kernelid.StreamID, evt RecordedEvent) (RecordedEvent, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	next, ok := f.seqs[streamID]
	if !ok {
		existing, err := f.readLocked(streamID)
		if err != nil {
			return RecordedEvent{}, err
		}
		next = int64(len(existing)) + 1
	}

	evt.StreamID = streamID
	evt.Seq = next

	file, err := os.OpenFile(f.path(streamID), os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0o644)
	if err != nil {
		return RecordedEvent{}, fmt.Errorf("eventlog: open %s: %w", f.path(streamID), err)
	}
	defer file.Close()

	line, err := json.Marshal(evt)
	if err != nil {
		return RecordedEvent{}, fmt.Errorf("eventlog: marshal event: %w", err)
	}
	if _, err := file.Write(append(line, '\n')); err != nil {
		return RecordedEvent{}, fmt.Errorf("eventlog: write event: %w", err)
	}

	f.seqs[streamID] = next + 1
	return evt, nil
}

func (f *FileStore) GetEvents(_ context.Context, streamID kernelid.StreamID) ([]RecordedEvent, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.readLocked(streamID)
}

func (f *FileStore) readLocked(streamID kernelid.StreamID) ([]RecordedEvent, error) {
	file, err := os.Open(f.path(streamID))
	if os.IsNotExist(err) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("eventlog: open %s: %w", f.path(streamID), err)
	}
	defer file.Close()

	var out []RecordedEvent
	scanner := bufio.NewScanner(file)
	scanner.Buffer(make([]byte, 0, 64*1024), 1<<20)
	for scanner.Scan() {
		line := scanner.Bytes()
		if len(line) == 0 {
			continue
		}
		var evt RecordedEvent
		if err := json.Unmarshal(line, &evt); err != nil {
			return nil, fmt.Errorf("eventlog: corrupt line in %s: %w", f.path(streamID), err)
		}
		out = append(out, evt)
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("eventlog: read %s: %w", f.path(streamID), err)
	}
	return out, nil
}

func (f *FileStore) ListStreams(_ context.Context) ([]kernelid.StreamID, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	entries, err := os.ReadDir(f.dir)
	if err != nil {
		return nil, fmt.Errorf("eventlog: read dir %s: %w", f.dir, err)
	}
	var out []kernelid.StreamID
	for _, e := range entries {
		if e.IsDir() {
			continue
		}
		name := e.Name()
		const suffix = ".jsonl"
		if len(name) > len(suffix) && name[len(name)-len(suffix):] == suffix {
			out = append(out, kernelid.StreamID(name[:len(name)-len(suffix)]))
		}
	}
	return out, nil
}
