package infra

import (
	"os"
	"path/filepath"
	"runtime"
)

// Paths holds the filesystem locations used by the service.
type Paths struct {
	DataDir   string // registry, key and log
	AssetsDir string // template images
	LogFile   string
	KeyFile   string // SQLCipher key, hex encoded
}

// DetectPaths resolves the per-user data directory and the executable's
// directory. On Windows data goes to %LOCALAPPDATA%\autoskip, elsewhere to
// ~/.autoskip. An empty assetsDir means "next to the executable".
func DetectPaths(assetsDir string) Paths {
	dataDir := defaultDataDir(runtime.GOOS, os.Getenv("LOCALAPPDATA"))
	if assetsDir == "" {
		assetsDir = executableDir()
	}
	return Paths{
		DataDir:   dataDir,
		AssetsDir: assetsDir,
		LogFile:   filepath.Join(dataDir, "autoskip.log"),
		KeyFile:   filepath.Join(dataDir, "registry.key"),
	}
}

func defaultDataDir(goos, localAppData string) string {
	if goos == "windows" && localAppData != "" {
		return filepath.Join(localAppData, "autoskip")
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return filepath.Join(os.TempDir(), "autoskip")
	}
	return filepath.Join(home, ".autoskip")
}

func executableDir() string {
	exe, err := os.Executable()
	if err != nil {
		return "."
	}
	if resolved, err := filepath.EvalSymlinks(exe); err == nil {
		exe = resolved
	}
	return filepath.Dir(exe)
}

// Asset resolves name against the assets directory unless it is already absolute.
func (p Paths) Asset(name string) string {
	if filepath.IsAbs(name) {
		return name
	}
	return filepath.Join(p.AssetsDir, name)
}
