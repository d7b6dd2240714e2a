package preview

import (
	"errors"
	"os"
	"os/exec"
	"runtime"
	"strings"
)

// ErrNoBrowser is returned when no Chrome or Chromium is installed.
var ErrNoBrowser = errors.New("chrome/chromium is required but not installed")

// FindChrome looks for google-chrome or chromium on PATH, then in the usual
// install locations.
func FindChrome() (string, bool) {
	binaries := []string{
		"google-chrome",
		"google-chrome-stable",
		"chromium",
		"chromium-browser",
	}
	for _, bin := range binaries {
		if path, err := exec.LookPath(bin); err == nil {
			return path, true
		}
	}
	for _, path := range commonChromePaths(runtime.GOOS) {
		if _, err := os.Stat(path); err == nil {
			return path, true
		}
	}
	return "", false
}

// ChromeVersion runs the browser with --version.
func ChromeVersion(path string) string {
	out, err := exec.Command(path, "--version").Output()
	if err != nil {
		return "unknown"
	}
	return strings.TrimSpace(string(out))
}

func commonChromePaths(goos string) []string {
	switch goos {
	case "darwin":
		return []string{
			"/Applications/Google Chrome.app/Contents/MacOS/Google Chrome",
			"/Applications/Chromium.app/Contents/MacOS/Chromium",
		}
	case "linux":
		return []string{
			"/usr/bin/google-chrome",
			"/usr/bin/google-chrome-stable",
			"/usr/bin/chromium",
			"/usr/bin/chromium-browser",
			"/snap/bin/chromium",
		}
	case "windows":
		return []string{
			`C:\Program Files\Google\Chrome\Application\chrome.exe`,
			`C:\Program Files (x86)\Google\Chrome\Application\chrome.exe`,
			`C:\Program Files\Chromium\Application\chromium.exe`,
			`C:\Program Files (x86)\Chromium\Application\chromium.exe`,
		}
	}
	return nil
}

// InstallHint is a one-line pointer shown when no browser is found.
func InstallHint(goos string) string {
	switch goos {
	case "linux":
		return "install chromium (apt install chromium-browser, dnf install chromium, pacman -S chromium)"
	case "darwin":
		return "install Chrome with: brew install --cask google-chrome"
	case "windows":
		return "download Google Chrome from https://www.google.com/chrome/"
	}
	return "install Chrome or Chromium for your OS"
}
