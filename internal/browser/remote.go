package browser

import (
	"archive/tar"
	"compress/gzip"
	"context"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"os"
	"path/filepath"
	"runtime"
	"strings"
	"sync"
	"time"

	"github.com/andybalholm/brotli"
	"github.com/go-resty/resty/v2"
	"github.com/llegapo/scraper/internal/retry"
	"github.com/rs/zerolog/log"
	"golang.org/x/sync/singleflight"
)

// executableNames are the binary names looked up inside an unpacked package
var executableNames = []string{"chromium", "chrome", "headless_shell", "chrome-headless-shell"}

// DefaultInstaller is shared by every RemoteDownloaded strategy of the process
var DefaultInstaller = NewInstaller(nil)

// DefaultInstallTimeout bounds one shared download and unpack
const DefaultInstallTimeout = 10 * time.Minute

// Installer downloads and unpacks browser packages. Concurrent installs of the
// same package share one download and results are kept for the process lifetime.
type Installer struct {
	client  *resty.Client
	retry   retry.Config
	timeout time.Duration
	group   singleflight.Group

	mu       sync.Mutex
	resolved map[string]string
}

// NewInstaller creates an installer. A nil client gets a resty client with a
// generous timeout.
func NewInstaller(client *resty.Client) *Installer {
	if client == nil {
		client = resty.New().SetTimeout(5 * time.Minute)
	}
	cfg := retry.DefaultConfig()
	cfg.Name = "browser-download"
	return &Installer{
		client:   client,
		retry:    cfg,
		timeout:  DefaultInstallTimeout,
		resolved: make(map[string]string),
	}
}

// Arch returns the architecture token substituted for {arch}
func Arch() string {
	if runtime.GOARCH == "arm64" {
		return "arm64"
	}
	return "x64"
}

// Install returns the executable unpacked from packageURL into cacheDir,
// downloading it first if needed. The shared download is detached from ctx;
// a cancelled caller stops waiting without failing the others.
func (i *Installer) Install(ctx context.Context, packageURL, cacheDir string) (string, error) {
	if packageURL == "" {
		return "", errors.New("browser package URL is empty")
	}
	if cacheDir == "" {
		cacheDir = filepath.Join(os.TempDir(), "llegapo-chromium")
	}

	resolvedURL := strings.ReplaceAll(packageURL, "{arch}", Arch())
	key := resolvedURL + "|" + cacheDir

	i.mu.Lock()
	if path, ok := i.resolved[key]; ok {
		i.mu.Unlock()
		return path, nil
	}
	i.mu.Unlock()

	ch := i.group.DoChan(key, func() (interface{}, error) {
		installCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), i.timeout)
		defer cancel()
		return i.install(installCtx, resolvedURL, cacheDir)
	})

	var res singleflight.Result
	select {
	case <-ctx.Done():
		return "", ctx.Err()
	case res = <-ch:
	}
	if res.Err != nil {
		return "", res.Err
	}

	path := res.Val.(string)
	i.mu.Lock()
	i.resolved[key] = path
	i.mu.Unlock()

	log.Debug().Str("path", path).Bool("shared", res.Shared).Msg("Browser package ready")
	return path, nil
}

// installDir is where the package of packageURL lives once fully unpacked.
// It only ever appears through a rename, so its presence marks a complete install.
func installDir(cacheDir, packageURL string) string {
	sum := sha256.Sum256([]byte(packageURL))
	return filepath.Join(cacheDir, "pkg-"+hex.EncodeToString(sum[:6]))
}

func (i *Installer) install(ctx context.Context, packageURL, cacheDir string) (string, error) {
	final := installDir(cacheDir, packageURL)
	if path := findExecutable(final); path != "" {
		return path, nil
	}

	if err := os.MkdirAll(cacheDir, 0o755); err != nil {
		return "", fmt.Errorf("create browser cache dir: %w", err)
	}

	start := time.Now()
	log.Info().Str("url", packageURL).Str("dir", cacheDir).Msg("Downloading browser package")

	archive, err := os.CreateTemp(cacheDir, "package-*")
	if err != nil {
		return "", fmt.Errorf("create temp file: %w", err)
	}
	defer func() {
		archive.Close()
		os.Remove(archive.Name())
	}()

	err = retry.WithRetry(ctx, i.retry, func() error {
		if _, err := archive.Seek(0, io.SeekStart); err != nil {
			return err
		}
		if err := archive.Truncate(0); err != nil {
			return err
		}
		return i.download(ctx, packageURL, archive)
	})
	if err != nil {
		return "", fmt.Errorf("download browser package: %w", err)
	}

	if _, err := archive.Seek(0, io.SeekStart); err != nil {
		return "", err
	}

	staging, err := os.MkdirTemp(cacheDir, ".unpack-*")
	if err != nil {
		return "", fmt.Errorf("create staging dir: %w", err)
	}
	// no-op once staging has been renamed into place
	defer os.RemoveAll(staging)

	if err := Unpack(archive, archiveName(packageURL), staging); err != nil {
		return "", fmt.Errorf("unpack browser package: %w", err)
	}

	staged := findExecutable(staging)
	if staged == "" {
		return "", fmt.Errorf("%w: no executable in package %s", ErrBrowserNotFound, packageURL)
	}
	if err := os.Chmod(staged, 0o755); err != nil {
		return "", fmt.Errorf("mark browser executable: %w", err)
	}

	if err := os.Rename(staging, final); err != nil {
		// another process may have completed the same install first
		if path := findExecutable(final); path != "" {
			return path, nil
		}
		return "", fmt.Errorf("finalize browser package: %w", err)
	}

	path := findExecutable(final)
	if path == "" {
		return "", fmt.Errorf("%w: no executable in package %s", ErrBrowserNotFound, packageURL)
	}

	log.Info().
		Str("path", path).
		Dur("elapsed", time.Since(start)).
		Msg("Browser package installed")

	return path, nil
}

func (i *Installer) download(ctx context.Context, packageURL string, w io.Writer) error {
	resp, err := i.client.R().
		SetContext(ctx).
		SetDoNotParseResponse(true).
		Get(packageURL)
	if err != nil {
		return err
	}
	body := resp.RawBody()
	defer body.Close()

	if resp.StatusCode() >= http.StatusBadRequest {
		return retry.NewHTTPError(resp.StatusCode(), http.StatusText(resp.StatusCode()), packageURL)
	}

	_, err = io.Copy(w, body)
	return err
}

// archiveName returns the path component of rawURL, used to pick the decoder
func archiveName(rawURL string) string {
	if u, err := url.Parse(rawURL); err == nil {
		return u.Path
	}
	return rawURL
}

// Unpack extracts a .tar, .tar.gz/.tgz or .tar.br stream into dest
func Unpack(r io.Reader, name, dest string) error {
	var stream io.Reader
	switch {
	case strings.HasSuffix(name, ".tar.br"):
		stream = brotli.NewReader(r)
	case strings.HasSuffix(name, ".tar.gz"), strings.HasSuffix(name, ".tgz"):
		gz, err := gzip.NewReader(r)
		if err != nil {
			return err
		}
		defer gz.Close()
		stream = gz
	case strings.HasSuffix(name, ".tar"):
		stream = r
	default:
		return fmt.Errorf("unsupported archive format: %s", name)
	}

	root, err := filepath.Abs(dest)
	if err != nil {
		return err
	}

	tr := tar.NewReader(stream)
	for {
		hdr, err := tr.Next()
		if err == io.EOF {
			return nil
		}
		if err != nil {
			return err
		}

		target := filepath.Join(root, filepath.Clean("/"+hdr.Name))
		if target != root && !strings.HasPrefix(target, root+string(os.PathSeparator)) {
			return fmt.Errorf("archive entry escapes destination: %s", hdr.Name)
		}

		switch hdr.Typeflag {
		case tar.TypeDir:
			if err := os.MkdirAll(target, 0o755); err != nil {
				return err
			}
		case tar.TypeReg:
			if err := writeFile(target, tr, hdr.FileInfo().Mode().Perm()); err != nil {
				return err
			}
		case tar.TypeSymlink:
			link := filepath.Join(filepath.Dir(target), hdr.Linkname)
			if filepath.IsAbs(hdr.Linkname) || !strings.HasPrefix(link, root+string(os.PathSeparator)) {
				return fmt.Errorf("symlink escapes destination: %s", hdr.Name)
			}
			if err := os.MkdirAll(filepath.Dir(target), 0o755); err != nil {
				return err
			}
			if err := os.Symlink(hdr.Linkname, target); err != nil && !os.IsExist(err) {
				return err
			}
		}
	}
}

func writeFile(path string, r io.Reader, mode os.FileMode) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return err
	}
	if mode == 0 {
		mode = 0o644
	}
	f, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, mode)
	if err != nil {
		return err
	}
	if _, err := io.Copy(f, r); err != nil {
		f.Close()
		return err
	}
	return f.Close()
}

// findExecutable walks dir for a known browser binary name
func findExecutable(dir string) string {
	var found string
	filepath.WalkDir(dir, func(path string, d os.DirEntry, err error) error {
		if err != nil || found != "" {
			return nil
		}
		if d.IsDir() {
			return nil
		}
		for _, name := range executableNames {
			if d.Name() == name {
				found = path
				return filepath.SkipAll
			}
		}
		return nil
	})
	return found
}
