package cmd

import (
	"bytes"
	"context"
	"os"
	"path/filepath"
	"sort"
	"sync"
	"testing"

	"github.com/spf13/cobra"
	"github.com/stretchr/testify/require"

	"github.com/3leaps/goferry/pkg/provider"
	"github.com/3leaps/goferry/pkg/provider/hdfs"
	"github.com/3leaps/goferry/pkg/provider/local"
	"github.com/3leaps/goferry/pkg/provider/s3"
)

// fakeStore is an in-memory bucket.
type fakeStore struct {
	mu      sync.Mutex
	bucket  string
	objects map[string][]byte
	fail    map[string]error
	closed  bool
}

func newFakeStore() *fakeStore {
	return &fakeStore{objects: map[string][]byte{}, fail: map[string]error{}}
}

func (s *fakeStore) ListRecursive(ctx context.Context, root string) ([]provider.Entry, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []provider.Entry
	for key, data := range s.objects {
		if provider.UnderRoot(key, root) {
			out = append(out, provider.Entry{Path: key, Kind: provider.KindFile, Size: int64(len(data))})
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Path < out[j].Path })
	return out, nil
}

func (s *fakeStore) PutFile(ctx context.Context, localPath, key string) error {
	if err := s.fail[key]; err != nil {
		return err
	}
	data, err := os.ReadFile(localPath)
	if err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.objects[key] = data
	return nil
}

func (s *fakeStore) GetFile(ctx context.Context, key, localPath string) error {
	if err := s.fail[key]; err != nil {
		return err
	}
	s.mu.Lock()
	data, ok := s.objects[key]
	s.mu.Unlock()
	if !ok {
		return &provider.ProviderError{Op: "GetFile", Provider: provider.ProviderS3, Bucket: s.bucket, Key: key, Err: provider.ErrNotFound}
	}
	if err := os.MkdirAll(filepath.Dir(localPath), 0o755); err != nil {
		return err
	}
	return os.WriteFile(localPath, data, 0o644)
}

func (s *fakeStore) Close() error {
	s.closed = true
	return nil
}

func (s *fakeStore) keys() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]string, 0, len(s.objects))
	for k := range s.objects {
		out = append(out, k)
	}
	sort.Strings(out)
	return out
}

// diskSource stands in for HDFS with a local directory tree.
type diskSource struct {
	*local.Provider
	fail map[string]error
}

func newDiskSource() *diskSource {
	return &diskSource{Provider: local.NewOS(), fail: map[string]error{}}
}

func (d *diskSource) GetFile(ctx context.Context, remotePath, localPath string) error {
	if err := d.fail[remotePath]; err != nil {
		return err
	}
	data, err := os.ReadFile(remotePath)
	if err != nil {
		return err
	}
	return os.WriteFile(localPath, data, 0o644)
}

func (d *diskSource) Close() error { return nil }

// useFakes points the provider constructors at store and src for the
// duration of the test. A nil argument makes that constructor fail the test.
func useFakes(t *testing.T, store *fakeStore, src sourceFS) {
	t.Helper()
	origStore, origSource := openObjectStore, openSourceFS
	t.Cleanup(func() {
		openObjectStore, openSourceFS = origStore, origSource
	})

	openObjectStore = func(ctx context.Context, c s3.Config) (objectStore, error) {
		if store == nil {
			t.Errorf("object store opened unexpectedly")
			return nil, provider.ErrProviderUnavailable
		}
		store.bucket = c.Bucket
		return store, nil
	}
	openSourceFS = func(ctx context.Context, c hdfs.Config) (sourceFS, error) {
		if src == nil {
			t.Errorf("source filesystem opened unexpectedly")
			return nil, provider.ErrProviderUnavailable
		}
		return src, nil
	}
}

func resetFlags() {
	configPath = ""
	verbose = false
	outputDest = ""
	statusAddr = ""
	stagingDir = ""
	excludes = nil
	planOnly = false
	cfg = nil
}

// runCommand runs root with args and returns what it printed to stdout.
func runCommand(t *testing.T, root *cobra.Command, args ...string) (string, error) {
	t.Helper()
	resetFlags()
	t.Setenv("XDG_CONFIG_HOME", t.TempDir())

	var out bytes.Buffer
	root.SetOut(&out)
	root.SetArgs(args)
	root.SetContext(context.Background())

	err := root.Execute()

	root.SetArgs(nil)
	root.SetOut(nil)
	resetFlags()
	return out.String(), err
}

// writeTree creates files under dir; keys are slash-separated relative paths.
func writeTree(t *testing.T, dir string, files map[string]string) {
	t.Helper()
	for name, content := range files {
		p := filepath.Join(dir, filepath.FromSlash(name))
		require.NoError(t, os.MkdirAll(filepath.Dir(p), 0o755))
		require.NoError(t, os.WriteFile(p, []byte(content), 0o644))
	}
}
