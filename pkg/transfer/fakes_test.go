package transfer

import (
	"context"
	"fmt"
	"path"
	"sort"
	"strings"
	"sync"

	"github.com/go-git/go-billy/v5"
	"github.com/go-git/go-billy/v5/memfs"
	"github.com/go-git/go-billy/v5/util"

	"github.com/3leaps/goferry/pkg/provider"
	"github.com/3leaps/goferry/pkg/staging"
)

// memSource is an in-memory remote tree that downloads into a billy fs.
type memSource struct {
	local billy.Filesystem
	files map[string][]byte
	dirs  []string
	fail  map[string]error

	listErr error

	// onGet runs before each download.
	onGet func(remote string)

	mu    sync.Mutex
	order []string
}

func newMemSource(local billy.Filesystem) *memSource {
	return &memSource{local: local, files: map[string][]byte{}, fail: map[string]error{}}
}

func (s *memSource) add(name string, size int) {
	s.files[name] = []byte(strings.Repeat("x", size))
}

func (s *memSource) ListRecursive(ctx context.Context, root string) ([]provider.Entry, error) {
	if s.listErr != nil {
		return nil, s.listErr
	}
	var out []provider.Entry
	for _, d := range s.dirs {
		if _, ok := relPath(d, root); ok {
			out = append(out, provider.Entry{Path: d, Kind: provider.KindDir})
		}
	}
	names := make([]string, 0, len(s.files))
	for name := range s.files {
		names = append(names, name)
	}
	sort.Strings(names)
	for _, name := range names {
		if _, ok := relPath(name, root); ok {
			out = append(out, provider.Entry{Path: name, Kind: provider.KindFile, Size: int64(len(s.files[name]))})
		}
	}
	return out, nil
}

func (s *memSource) GetFile(ctx context.Context, remotePath, localPath string) error {
	if s.onGet != nil {
		s.onGet(remotePath)
	}
	if err := ctx.Err(); err != nil {
		return err
	}
	s.mu.Lock()
	s.order = append(s.order, remotePath)
	s.mu.Unlock()

	if err := s.fail[remotePath]; err != nil {
		return err
	}
	data, ok := s.files[remotePath]
	if !ok {
		return &provider.ProviderError{Op: "GetFile", Provider: provider.ProviderHDFS, Key: remotePath, Err: provider.ErrNotFound}
	}
	if err := s.local.MkdirAll(path.Dir(localPath), 0o755); err != nil {
		return err
	}
	return util.WriteFile(s.local, localPath, data, 0o644)
}

func (s *memSource) downloads() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]string(nil), s.order...)
}

// memSink is an in-memory remote store that uploads from a billy fs.
type memSink struct {
	local billy.Filesystem
	fail  map[string]error

	// onPut runs before each upload.
	onPut func(dest string)

	mu      sync.Mutex
	objects map[string][]byte
	order   []string
}

func newMemSink(local billy.Filesystem) *memSink {
	return &memSink{local: local, fail: map[string]error{}, objects: map[string][]byte{}}
}

func (s *memSink) PutFile(ctx context.Context, localPath, remotePath string) error {
	if s.onPut != nil {
		s.onPut(remotePath)
	}
	if err := ctx.Err(); err != nil {
		return err
	}
	if err := s.fail[remotePath]; err != nil {
		return err
	}
	data, err := util.ReadFile(s.local, localPath)
	if err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.objects[remotePath] = data
	s.order = append(s.order, remotePath)
	return nil
}

func (s *memSink) ListRecursive(ctx context.Context, root string) ([]provider.Entry, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []provider.Entry
	for name, data := range s.objects {
		if _, ok := relPath(name, root); ok {
			out = append(out, provider.Entry{Path: name, Kind: provider.KindFile, Size: int64(len(data))})
		}
	}
	return out, nil
}

func (s *memSink) uploads() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]string(nil), s.order...)
}

func newMemArea() *staging.Area {
	return staging.New(memfs.New(), "/tmp")
}

func throttled(key string) error {
	return &provider.ProviderError{Op: "PutFile", Provider: provider.ProviderS3, Bucket: "dst", Key: key,
		Err: fmt.Errorf("%w: SlowDown", provider.ErrThrottled)}
}
