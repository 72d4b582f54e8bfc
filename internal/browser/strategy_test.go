package browser

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"runtime"
	"testing"
)

func TestSelectStrategy(t *testing.T) {
	remote, ok := SelectStrategy(StrategyOptions{
		Production: true,
		PackageURL: "https://example.com/chromium-{arch}.tar.br",
		CacheDir:   "/tmp/chromium",
	}).(RemoteDownloaded)
	if !ok {
		t.Fatal("Expected RemoteDownloaded in production with a package URL")
	}
	if !hasFlag(remote.LaunchFlags(), "single-process") || !hasFlag(remote.LaunchFlags(), "no-zygote") {
		t.Error("Expected serverless flags on the remote strategy")
	}

	local, ok := SelectStrategy(StrategyOptions{
		Production: true,
		PackageURL: "https://example.com/chromium.tar",
		ChromePath: "/usr/bin/chromium",
	}).(Local)
	if !ok {
		t.Fatal("Expected an explicit chrome path to win over the package")
	}
	if local.ExecPath != "/usr/bin/chromium" {
		t.Errorf("Expected exec path to be kept, got %s", local.ExecPath)
	}
	if hasFlag(local.LaunchFlags(), "single-process") {
		t.Error("Expected no single-process flag for local browsers")
	}

	if _, ok := SelectStrategy(StrategyOptions{PackageURL: "https://example.com/x.tar"}).(Local); !ok {
		t.Error("Expected local strategy outside production")
	}
}

func TestLocalResolve(t *testing.T) {
	if runtime.GOOS == "windows" {
		t.Skip("permission bits are not meaningful on windows")
	}

	dir := t.TempDir()
	exe := filepath.Join(dir, "chromium")
	if err := os.WriteFile(exe, []byte("#!/bin/sh\n"), 0o755); err != nil {
		t.Fatal(err)
	}
	plain := filepath.Join(dir, "notes.txt")
	if err := os.WriteFile(plain, []byte("x"), 0o644); err != nil {
		t.Fatal(err)
	}

	got, err := Local{ExecPath: exe}.Resolve(context.Background())
	if err != nil || got != exe {
		t.Errorf("Expected %s, got %s (%v)", exe, got, err)
	}

	if _, err := (Local{ExecPath: plain}).Resolve(context.Background()); !errors.Is(err, ErrBrowserNotFound) {
		t.Errorf("Expected ErrBrowserNotFound, got %v", err)
	}
}

func TestAllocatorOptions(t *testing.T) {
	opts := allocatorOptions("/usr/bin/chromium", LocalFlags())
	if len(opts) != len(LocalFlags())+1 {
		t.Errorf("Expected exec path plus one option per flag, got %d", len(opts))
	}

	if got := len(allocatorOptions("", ServerlessFlags())); got != len(ServerlessFlags()) {
		t.Errorf("Expected no exec path option, got %d options", got)
	}
}

func hasFlag(flags []Flag, name string) bool {
	for _, f := range flags {
		if f.Name == name {
			return true
		}
	}
	return false
}
