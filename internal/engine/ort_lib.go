//go:build onnx

package engine

import (
	"fmt"
	"os"
	"path/filepath"
	"runtime"
	"sync"

	ort "github.com/yalue/onnxruntime_go"
)

// The ONNX Runtime environment is process-wide. ortInitErr is kept so later
// constructors surface the original failure instead of running against an
// uninitialized environment.
var (
	ortInitOnce sync.Once
	ortInitErr  error
)

// initRuntime loads the shared library and initializes the ONNX Runtime
// environment once per process. Later calls return the first outcome.
func initRuntime(explicit string, devMode bool) error {
	ortInitOnce.Do(func() {
		libPath, err := resolveORTLibPath(explicit, devMode)
		if err != nil {
			ortInitErr = fmt.Errorf("resolve ORT lib: %w", err)
			return
		}
		ort.SetSharedLibraryPath(libPath)
		ortInitErr = ort.InitializeEnvironment()
	})
	return ortInitErr
}

// resolveORTLibPath returns the path to the ONNX Runtime shared library.
// Search order:
//  1. explicit path (NUPI_ORT_LIB_PATH or ort_lib_path in config)
//  2. lib/<goos>-<goarch>/ relative to executable
//  3. ../lib/<goos>-<goarch>/ relative to executable (bin/ layout)
//  4. lib/<goos>-<goarch>/ relative to CWD (dev mode only)
//  5. ../lib/<goos>-<goarch>/ relative to CWD (dev mode only)
//
// CWD lookup is off outside dev mode to prevent shared library hijacking.
func resolveORTLibPath(explicit string, devMode bool) (string, error) {
	if explicit != "" {
		info, err := os.Stat(explicit)
		if err != nil {
			return "", fmt.Errorf("ort: library path %q does not exist", explicit)
		}
		if info.IsDir() {
			return "", fmt.Errorf("ort: library path %q is a directory, expected a file", explicit)
		}
		return explicit, nil
	}

	filename := ortLibFilename()
	libRel := filepath.Join("lib", runtime.GOOS+"-"+runtime.GOARCH, filename)
	libRelParent := filepath.Join("..", "lib", runtime.GOOS+"-"+runtime.GOARCH, filename)

	if exePath, err := os.Executable(); err == nil {
		if path, ok := firstExisting(filepath.Dir(exePath), libRel, libRelParent); ok {
			return path, nil
		}
	}

	if devMode {
		if dir, err := os.Getwd(); err == nil {
			if path, ok := firstExisting(dir, libRel, libRelParent); ok {
				return path, nil
			}
		}
	}

	return "", fmt.Errorf("ort: shared library not found; searched lib/<os>-<arch>/%s relative to executable (set NUPI_ORT_LIB_PATH to override, or NUPI_DEV_MODE=1 to enable CWD lookup)", filename)
}

func firstExisting(base string, rels ...string) (string, bool) {
	for _, rel := range rels {
		path := filepath.Join(base, rel)
		if _, err := os.Stat(path); err == nil {
			return path, true
		}
	}
	return "", false
}

// ortLibFilename returns the platform-specific ONNX Runtime library filename.
func ortLibFilename() string {
	switch runtime.GOOS {
	case "darwin":
		return "libonnxruntime.dylib"
	case "windows":
		return "onnxruntime.dll"
	default:
		return "libonnxruntime.so"
	}
}
