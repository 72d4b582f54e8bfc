package browser

import (
	"archive/tar"
	"bytes"
	"compress/gzip"
	"context"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/andybalholm/brotli"
	"github.com/go-resty/resty/v2"
)

func buildTar(t *testing.T, files map[string]string) []byte {
	t.Helper()

	var buf bytes.Buffer
	tw := tar.NewWriter(&buf)
	for name, body := range files {
		hdr := &tar.Header{
			Name:     name,
			Mode:     0o644,
			Size:     int64(len(body)),
			Typeflag: tar.TypeReg,
		}
		if err := tw.WriteHeader(hdr); err != nil {
			t.Fatal(err)
		}
		if _, err := tw.Write([]byte(body)); err != nil {
			t.Fatal(err)
		}
	}
	if err := tw.Close(); err != nil {
		t.Fatal(err)
	}
	return buf.Bytes()
}

func gzipBytes(t *testing.T, data []byte) []byte {
	t.Helper()

	var buf bytes.Buffer
	zw := gzip.NewWriter(&buf)
	if _, err := zw.Write(data); err != nil {
		t.Fatal(err)
	}
	if err := zw.Close(); err != nil {
		t.Fatal(err)
	}
	return buf.Bytes()
}

func brotliBytes(t *testing.T, data []byte) []byte {
	t.Helper()

	var buf bytes.Buffer
	bw := brotli.NewWriter(&buf)
	if _, err := bw.Write(data); err != nil {
		t.Fatal(err)
	}
	if err := bw.Close(); err != nil {
		t.Fatal(err)
	}
	return buf.Bytes()
}

func TestUnpack_Formats(t *testing.T) {
	raw := buildTar(t, map[string]string{"chromium/chromium": "binary", "chromium/locales/es.pak": "pak"})

	cases := map[string][]byte{
		"pkg.tar":    raw,
		"pkg.tar.gz": gzipBytes(t, raw),
		"pkg.tgz":    gzipBytes(t, raw),
		"pkg.tar.br": brotliBytes(t, raw),
	}

	for name, data := range cases {
		t.Run(name, func(t *testing.T) {
			dest := t.TempDir()
			if err := Unpack(bytes.NewReader(data), name, dest); err != nil {
				t.Fatalf("Unpack failed: %v", err)
			}

			got, err := os.ReadFile(filepath.Join(dest, "chromium", "chromium"))
			if err != nil {
				t.Fatalf("Expected extracted binary: %v", err)
			}
			if string(got) != "binary" {
				t.Errorf("Expected content 'binary', got %q", got)
			}
			if findExecutable(dest) == "" {
				t.Error("Expected executable to be found")
			}
		})
	}
}

func TestUnpack_RejectsUnknownFormat(t *testing.T) {
	if err := Unpack(strings.NewReader(""), "pkg.zip", t.TempDir()); err == nil {
		t.Error("Expected error for zip archives")
	}
}

func TestUnpack_ContainsTraversal(t *testing.T) {
	dest := t.TempDir()
	raw := buildTar(t, map[string]string{"../../escaped": "x"})

	if err := Unpack(bytes.NewReader(raw), "pkg.tar", dest); err != nil {
		t.Fatalf("Unpack failed: %v", err)
	}
	if _, err := os.Stat(filepath.Join(dest, "escaped")); err != nil {
		t.Errorf("Expected entry to be confined to the destination: %v", err)
	}
}

func TestInstaller_DownloadsOnce(t *testing.T) {
	archive := gzipBytes(t, buildTar(t, map[string]string{"bin/chromium": "binary"}))

	var downloads atomic.Int32
	var requestedPath atomic.Value
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		downloads.Add(1)
		requestedPath.Store(r.URL.Path)
		w.Write(archive)
	}))
	defer server.Close()

	installer := NewInstaller(resty.New())
	dir := t.TempDir()
	packageURL := server.URL + "/chromium-{arch}.tar.gz"

	var wg sync.WaitGroup
	paths := make([]string, 5)
	errs := make([]error, 5)
	for i := range paths {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			paths[i], errs[i] = installer.Install(context.Background(), packageURL, dir)
		}(i)
	}
	wg.Wait()

	for i := range paths {
		if errs[i] != nil {
			t.Fatalf("Install %d failed: %v", i, errs[i])
		}
		if paths[i] != paths[0] {
			t.Errorf("Expected identical paths, got %s and %s", paths[0], paths[i])
		}
	}

	if _, err := installer.Install(context.Background(), packageURL, dir); err != nil {
		t.Fatalf("Second install failed: %v", err)
	}

	if n := downloads.Load(); n != 1 {
		t.Errorf("Expected a single download, got %d", n)
	}
	if p := requestedPath.Load().(string); p != "/chromium-"+Arch()+".tar.gz" {
		t.Errorf("Expected arch placeholder to be replaced, got %s", p)
	}

	info, err := os.Stat(paths[0])
	if err != nil {
		t.Fatal(err)
	}
	if info.Mode()&0o111 == 0 {
		t.Error("Expected installed browser to be executable")
	}
}

func TestInstaller_HTTPErrorIsNotRetried(t *testing.T) {
	var hits atomic.Int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		hits.Add(1)
		w.WriteHeader(http.StatusNotFound)
		io.WriteString(w, "missing")
	}))
	defer server.Close()

	installer := NewInstaller(resty.New())
	_, err := installer.Install(context.Background(), server.URL+"/chromium.tar", t.TempDir())
	if err == nil {
		t.Fatal("Expected error for 404")
	}
	if hits.Load() != 1 {
		t.Errorf("Expected no retry on 404, got %d requests", hits.Load())
	}
}

func TestInstaller_TruncatedPackageIsNotReused(t *testing.T) {
	full := buildTar(t, map[string]string{"chromium/chromium": "FULL-BINARY-CONTENT"})
	truncated := full[:512+5]

	var downloads atomic.Int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if downloads.Add(1) == 1 {
			w.Write(truncated)
			return
		}
		w.Write(full)
	}))
	defer server.Close()

	dir := t.TempDir()
	packageURL := server.URL + "/chromium.tar"

	if _, err := NewInstaller(resty.New()).Install(context.Background(), packageURL, dir); err == nil {
		t.Fatal("Expected truncated package to fail")
	}
	entries, err := os.ReadDir(dir)
	if err != nil {
		t.Fatal(err)
	}
	if len(entries) != 0 {
		t.Errorf("Expected partial files to be removed, found %d entries", len(entries))
	}

	path, err := NewInstaller(resty.New()).Install(context.Background(), packageURL, dir)
	if err != nil {
		t.Fatalf("Second install failed: %v", err)
	}
	if n := downloads.Load(); n != 2 {
		t.Errorf("Expected the package to be downloaded again, got %d downloads", n)
	}
	got, err := os.ReadFile(path)
	if err != nil {
		t.Fatal(err)
	}
	if string(got) != "FULL-BINARY-CONTENT" {
		t.Errorf("Expected complete binary, got %q", got)
	}
	info, err := os.Stat(path)
	if err != nil {
		t.Fatal(err)
	}
	if info.Mode()&0o111 == 0 {
		t.Error("Expected installed browser to be executable")
	}
}

func TestInstaller_CancelledCallerDoesNotFailOthers(t *testing.T) {
	archive := buildTar(t, map[string]string{"bin/chromium": "binary"})

	started := make(chan struct{}, 1)
	release := make(chan struct{})
	releaseOnce := sync.OnceFunc(func() { close(release) })

	var downloads atomic.Int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		downloads.Add(1)
		select {
		case started <- struct{}{}:
		default:
		}
		<-release
		w.Write(archive)
	}))
	defer server.Close()
	defer releaseOnce()

	installer := NewInstaller(resty.New())
	dir := t.TempDir()
	packageURL := server.URL + "/chromium.tar"

	ctxA, cancelA := context.WithCancel(context.Background())
	errA := make(chan error, 1)
	go func() {
		_, err := installer.Install(ctxA, packageURL, dir)
		errA <- err
	}()

	select {
	case <-started:
	case <-time.After(5 * time.Second):
		t.Fatal("Download never started")
	}

	type result struct {
		path string
		err  error
	}
	resB := make(chan result, 1)
	go func() {
		path, err := installer.Install(context.Background(), packageURL, dir)
		resB <- result{path, err}
	}()
	time.Sleep(50 * time.Millisecond)

	cancelA()
	select {
	case err := <-errA:
		if !errors.Is(err, context.Canceled) {
			t.Errorf("Expected cancelled caller to get context.Canceled, got %v", err)
		}
	case <-time.After(5 * time.Second):
		t.Fatal("Cancelled caller kept waiting")
	}

	releaseOnce()
	select {
	case r := <-resB:
		if r.err != nil {
			t.Fatalf("Expected the live caller to succeed, got %v", r.err)
		}
		if r.path == "" {
			t.Error("Expected an executable path")
		}
	case <-time.After(5 * time.Second):
		t.Fatal("Live caller never finished")
	}

	if n := downloads.Load(); n != 1 {
		t.Errorf("Expected a single download, got %d", n)
	}
}
