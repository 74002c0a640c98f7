package present

import (
	"context"
	"errors"
	"fmt"
	"os/exec"
	"runtime"
)

// Launcher hands a URL to something that can open it.
type Launcher interface {
	Launch(ctx context.Context, url string) error
}

// LauncherFunc adapts a function to Launcher.
type LauncherFunc func(ctx context.Context, url string) error

// Launch calls f.
func (f LauncherFunc) Launch(ctx context.Context, url string) error {
	return f(ctx, url)
}

// OSLauncher opens URLs with the operating system's default handler.
type OSLauncher struct {
	// GOOS selects the open command. Empty means runtime.GOOS.
	GOOS string
}

// Launch starts the platform open command and waits for it to exit.
func (l OSLauncher) Launch(ctx context.Context, url string) error {
	goos := l.GOOS
	if goos == "" {
		goos = runtime.GOOS
	}
	name, args, err := openCommand(goos, url)
	if err != nil {
		return err
	}
	if out, err := exec.CommandContext(ctx, name, args...).CombinedOutput(); err != nil {
		return fmt.Errorf("%s %s: %w (%s)", name, url, err, out)
	}
	return nil
}

func openCommand(goos, url string) (string, []string, error) {
	switch goos {
	case "darwin":
		return "open", []string{url}, nil
	case "windows":
		return "rundll32", []string{"url.dll,FileProtocolHandler", url}, nil
	case "linux", "freebsd", "openbsd", "netbsd":
		return "xdg-open", []string{url}, nil
	default:
		return "", nil, errors.New("unsupported platform: " + goos)
	}
}
