package browser

import (
	"os"
	"os/exec"
	"path/filepath"
	"runtime"
	"sort"
	"strings"

	"github.com/rs/zerolog/log"
)

// Environment variables consulted by FindChrome
const (
	ChromePathEnv      = "CHROME_PATH"
	PlaywrightCacheEnv = "PLAYWRIGHT_BROWSERS_PATH"
)

// pathNames are looked up in PATH after the fixed locations
var pathNames = []string{"google-chrome-stable", "google-chrome", "chromium", "chromium-browser", "chrome", "headless_shell"}

// FindChrome locates a Chrome/Chromium executable, or returns "" so chromedp
// falls back to its own lookup. Order: CHROME_PATH, system installs,
// Playwright-managed builds, PATH.
func FindChrome() string {
	if path := os.Getenv(ChromePathEnv); path != "" {
		if isExecutable(path) {
			log.Debug().Str("path", path).Msg("Chrome found via CHROME_PATH")
			return path
		}
		log.Warn().Str("path", path).Msg("CHROME_PATH set but not executable")
	}

	if path := firstExecutable(systemCandidates(runtime.GOOS)); path != "" {
		log.Debug().Str("path", path).Msg("Chrome found at system location")
		return path
	}

	if path := firstExecutable(playwrightCandidates(playwrightCacheDir())); path != "" {
		log.Debug().Str("path", path).Msg("Chrome found in Playwright cache")
		return path
	}

	for _, name := range pathNames {
		if path, err := exec.LookPath(name); err == nil {
			log.Debug().Str("path", path).Msg("Chrome found in PATH")
			return path
		}
	}

	log.Warn().Str("os", runtime.GOOS).Msg("Chrome not found, falling back to chromedp lookup")
	return ""
}

func firstExecutable(paths []string) string {
	for _, p := range paths {
		if isExecutable(p) {
			return p
		}
	}
	return ""
}

func systemCandidates(goos string) []string {
	switch goos {
	case "darwin":
		apps := []string{
			"Google Chrome.app/Contents/MacOS/Google Chrome",
			"Chromium.app/Contents/MacOS/Chromium",
		}
		roots := []string{"/Applications"}
		if home, err := os.UserHomeDir(); err == nil {
			roots = append(roots, filepath.Join(home, "Applications"))
		}
		var out []string
		for _, root := range roots {
			for _, app := range apps {
				out = append(out, filepath.Join(root, app))
			}
		}
		return out

	case "windows":
		var out []string
		for _, env := range []string{"ProgramFiles", "ProgramFiles(x86)", "LocalAppData"} {
			if base := os.Getenv(env); base != "" {
				out = append(out,
					filepath.Join(base, "Google", "Chrome", "Application", "chrome.exe"),
					filepath.Join(base, "Chromium", "Application", "chrome.exe"),
				)
			}
		}
		return out

	default:
		return []string{
			"/usr/bin/google-chrome-stable",
			"/usr/bin/google-chrome",
			"/usr/bin/chromium-browser",
			"/usr/bin/chromium",
			"/snap/bin/chromium",
			"/headless-shell/headless-shell",
		}
	}
}

// playwrightCacheDir returns where Playwright keeps downloaded browsers
func playwrightCacheDir() string {
	if dir := os.Getenv(PlaywrightCacheEnv); dir != "" && dir != "0" {
		return dir
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return ""
	}
	switch runtime.GOOS {
	case "darwin":
		return filepath.Join(home, "Library", "Caches", "ms-playwright")
	case "windows":
		return filepath.Join(os.Getenv("LocalAppData"), "ms-playwright")
	}
	return filepath.Join(home, ".cache", "ms-playwright")
}

// playwrightCandidates lists the Chromium builds under dir, newest revision
// first. Full Chromium is preferred over the headless shell.
func playwrightCandidates(dir string) []string {
	if dir == "" {
		return nil
	}

	var out []string
	for _, pattern := range []string{
		filepath.Join(dir, "chromium-*", "chrome-*", "chrome"),
		filepath.Join(dir, "chromium_headless_shell-*", "chrome-*", "headless_shell"),
	} {
		matches, _ := filepath.Glob(pattern)
		sort.Sort(sort.Reverse(sort.StringSlice(matches)))
		out = append(out, matches...)
	}
	return out
}

// isExecutable checks if a file exists and is executable
func isExecutable(path string) bool {
	info, err := os.Stat(path)
	if err != nil || info.IsDir() {
		return false
	}
	return runtime.GOOS == "windows" || info.Mode()&0o111 != 0
}

// ChromeVersion returns the version reported by the binary at path
func ChromeVersion(path string) string {
	if path == "" {
		return "unknown"
	}
	if runtime.GOOS == "windows" {
		// chrome.exe ignores --version
		return "detected"
	}

	out, err := exec.Command(path, "--version").Output()
	if err != nil {
		return "detected"
	}
	return strings.TrimSpace(string(out))
}
