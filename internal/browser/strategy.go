package browser

import (
	"context"
	"fmt"

	"github.com/chromedp/chromedp"
)

// Flag is a single Chrome command line switch. Value is a bool or a string.
type Flag struct {
	Name  string
	Value interface{}
}

// LaunchStrategy decides how the browser binary is obtained and which flags
// it runs with. It is one of Local or RemoteDownloaded.
type LaunchStrategy interface {
	// Name labels logs and errors
	Name() string

	// Resolve returns the executable path; "" lets chromedp search for it.
	Resolve(ctx context.Context) (string, error)

	// LaunchFlags returns the complete flag list of the strategy
	LaunchFlags() []Flag
}

// Local runs an installed Chrome/Chromium. An empty ExecPath is auto-detected.
type Local struct {
	ExecPath string
	Flags    []Flag
}

func (l Local) Name() string { return "local" }

func (l Local) LaunchFlags() []Flag { return l.Flags }

// Resolve validates an explicit path or falls back to FindChrome
func (l Local) Resolve(context.Context) (string, error) {
	if l.ExecPath == "" {
		return FindChrome(), nil
	}
	if !isExecutable(l.ExecPath) {
		return "", fmt.Errorf("%w: %s is not executable", ErrBrowserNotFound, l.ExecPath)
	}
	return l.ExecPath, nil
}

// RemoteDownloaded fetches a packaged Chromium build for serverless hosts.
// PackageURL may contain an {arch} placeholder.
type RemoteDownloaded struct {
	PackageURL string
	CacheDir   string
	Flags      []Flag

	// Installer downloads the package; nil uses DefaultInstaller.
	Installer *Installer
}

func (r RemoteDownloaded) Name() string { return "remote" }

func (r RemoteDownloaded) LaunchFlags() []Flag { return r.Flags }

// Resolve downloads and unpacks the package at most once per process
func (r RemoteDownloaded) Resolve(ctx context.Context) (string, error) {
	installer := r.Installer
	if installer == nil {
		installer = DefaultInstaller
	}
	return installer.Install(ctx, r.PackageURL, r.CacheDir)
}

// StrategyOptions selects a launch strategy
type StrategyOptions struct {
	Production bool
	ChromePath string
	PackageURL string
	CacheDir   string
}

// SelectStrategy picks the strategy once from configuration: production hosts
// with a package URL and no explicit binary download the browser, everything
// else runs the local install.
func SelectStrategy(opts StrategyOptions) LaunchStrategy {
	if opts.Production && opts.PackageURL != "" && opts.ChromePath == "" {
		return RemoteDownloaded{
			PackageURL: opts.PackageURL,
			CacheDir:   opts.CacheDir,
			Flags:      ServerlessFlags(),
		}
	}
	return Local{
		ExecPath: opts.ChromePath,
		Flags:    LocalFlags(),
	}
}

// LocalFlags is the flag list for an installed browser
func LocalFlags() []Flag {
	return []Flag{
		{"no-first-run", true},
		{"no-default-browser-check", true},
		{"disable-gpu", true},
		{"no-sandbox", true},
		{"disable-dev-shm-usage", true},
		{"disable-extensions", true},
		{"disable-background-networking", true},
		{"disable-breakpad", true},
		{"disable-client-side-phishing-detection", true},
		{"disable-default-apps", true},
		{"disable-hang-monitor", true},
		{"disable-ipc-flooding-protection", true},
		{"disable-prompt-on-repost", true},
		{"disable-renderer-backgrounding", true},
		{"disable-sync", true},
		{"disable-translate", true},
		{"force-color-profile", "srgb"},
		{"metrics-recording-only", true},
		{"mute-audio", true},
		{"safebrowsing-disable-auto-update", true},
		{"disable-features", "site-per-process,TranslateUI,BlinkGenPropertyTrees"},
		{"disable-blink-features", "AutomationControlled"},
		{"disable-infobars", true},
	}
}

// ServerlessFlags is the flag list for a downloaded browser on a
// single-process, memory-constrained host
func ServerlessFlags() []Flag {
	return []Flag{
		{"no-first-run", true},
		{"no-default-browser-check", true},
		{"disable-gpu", true},
		{"no-sandbox", true},
		{"disable-setuid-sandbox", true},
		{"disable-dev-shm-usage", true},
		{"disable-extensions", true},
		{"disable-background-networking", true},
		{"disable-breakpad", true},
		{"disable-default-apps", true},
		{"disable-sync", true},
		{"disable-translate", true},
		{"metrics-recording-only", true},
		{"mute-audio", true},
		{"disable-blink-features", "AutomationControlled"},
		{"single-process", true},
		{"no-zygote", true},
		{"disk-cache-size", "0"},
		{"media-cache-size", "0"},
	}
}

// allocatorOptions turns a flag list into chromedp allocator options
func allocatorOptions(execPath string, flags []Flag) []chromedp.ExecAllocatorOption {
	opts := make([]chromedp.ExecAllocatorOption, 0, len(flags)+1)
	if execPath != "" {
		opts = append(opts, chromedp.ExecPath(execPath))
	}
	for _, f := range flags {
		opts = append(opts, chromedp.Flag(f.Name, f.Value))
	}
	return opts
}
