package setup

import (
	"bytes"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"strings"
	"text/template"
)

const (
	// BinaryName is the name of the installed binary.
	BinaryName = "placereminder"

	// UnitName is the systemd user unit.
	UnitName = "placereminder.service"
)

const unitTemplate = `[Unit]
Description=placereminder location reminder backend
After=network-online.target
Wants=network-online.target

[Service]
ExecStart={{.BinaryPath}} serve --config {{.ConfigPath}}
Restart=on-failure
RestartSec=5

[Install]
WantedBy=default.target
`

// unitData holds template values for the systemd unit.
type unitData struct {
	BinaryPath string
	ConfigPath string
}

// runCommand executes an external command and returns its combined output.
var runCommand = func(name string, args ...string) ([]byte, error) {
	//nolint:gosec // fixed command names, arguments built from known paths
	return exec.Command(name, args...).CombinedOutput()
}

// BinaryInstallPath returns the full path to the installed binary.
func BinaryInstallPath(homeDir string) string {
	return filepath.Join(homeDir, ".local", "bin", BinaryName)
}

// UnitPath returns the systemd user unit destination path.
func UnitPath(homeDir string) string {
	return filepath.Join(homeDir, ".config", "systemd", "user", UnitName)
}

// InstallBinary copies the currently-running binary to ~/.local/bin.
func InstallBinary(homeDir string) error {
	self, err := os.Executable()
	if err != nil {
		return fmt.Errorf("resolving current executable path: %w", err)
	}

	// Resolve symlinks so we copy the actual binary.
	self, err = filepath.EvalSymlinks(self)
	if err != nil {
		return fmt.Errorf("resolving executable symlinks: %w", err)
	}

	dest := BinaryInstallPath(homeDir)
	if self == dest {
		return nil
	}
	if err := os.MkdirAll(filepath.Dir(dest), 0o755); err != nil {
		return fmt.Errorf("creating %s: %w", filepath.Dir(dest), err)
	}
	return copyFile(self, dest, 0o755)
}

// WriteUnit renders the systemd unit for configPath and writes it to
// ~/.config/systemd/user/.
func WriteUnit(homeDir, configPath string) error {
	tmpl, err := template.New("unit").Parse(unitTemplate)
	if err != nil {
		return fmt.Errorf("parsing unit template: %w", err)
	}

	data := unitData{
		BinaryPath: BinaryInstallPath(homeDir),
		ConfigPath: configPath,
	}

	var buf bytes.Buffer
	if err := tmpl.Execute(&buf, data); err != nil {
		return fmt.Errorf("executing unit template: %w", err)
	}

	dest := UnitPath(homeDir)
	if err := os.MkdirAll(filepath.Dir(dest), 0o755); err != nil {
		return fmt.Errorf("creating systemd user directory: %w", err)
	}

	if err := os.WriteFile(dest, buf.Bytes(), 0o644); err != nil {
		return fmt.Errorf("writing unit to %s: %w", dest, err)
	}
	return nil
}

// EnableService reloads systemd and starts the unit now and on login.
func EnableService() error {
	if err := systemctl("daemon-reload"); err != nil {
		return err
	}
	return systemctl("enable", "--now", UnitName)
}

// DisableService stops the unit and removes it from login startup.
func DisableService() error {
	return systemctl("disable", "--now", UnitName)
}

// IsServiceActive reports whether the unit is currently running.
func IsServiceActive() bool {
	out, err := runCommand("systemctl", "--user", "is-active", UnitName)
	return err == nil && strings.TrimSpace(string(out)) == "active"
}

// RemoveUnit deletes the unit file.
func RemoveUnit(homeDir string) error {
	unit := UnitPath(homeDir)
	if err := os.Remove(unit); err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("removing unit %s: %w", unit, err)
	}
	return nil
}

// RemoveBinary deletes the installed binary.
func RemoveBinary(homeDir string) error {
	path := BinaryInstallPath(homeDir)
	if err := os.Remove(path); err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("removing %s: %w", path, err)
	}
	return nil
}

// PurgeUserData removes config and the reminder database.
func PurgeUserData(homeDir string) error {
	dirs := []string{
		filepath.Join(homeDir, ".config", BinaryName),
		filepath.Join(homeDir, ".local", "share", BinaryName),
	}
	for _, dir := range dirs {
		if err := os.RemoveAll(dir); err != nil {
			return fmt.Errorf("removing %s: %w", dir, err)
		}
	}
	return nil
}

// --- helpers -----------------------------------------------------------------

func systemctl(args ...string) error {
	args = append([]string{"--user"}, args...)
	if output, err := runCommand("systemctl", args...); err != nil {
		return fmt.Errorf("systemctl %s: %s: %w", strings.Join(args[1:], " "), strings.TrimSpace(string(output)), err)
	}
	return nil
}

// copyFile copies src to dst with the given permissions.
func copyFile(src, dst string, perm os.FileMode) error {
	data, err := os.ReadFile(src)
	if err != nil {
		return fmt.Errorf("reading %s: %w", src, err)
	}
	if err := os.WriteFile(dst, data, perm); err != nil {
		return fmt.Errorf("writing %s: %w", dst, err)
	}
	return nil
}
