package voice

import (
	"fmt"
	"os"
	"runtime"
	"sync"

	ort "github.com/yalue/onnxruntime_go"
)

var (
	onnxInitMu      sync.Mutex
	onnxInitialized bool
)

// initONNXRuntime инициализирует ONNX Runtime один раз на процесс.
// Путь к shared library берётся из ONNXRUNTIME_SHARED_LIBRARY_PATH
// или из стандартных мест рядом с бинарником.
func initONNXRuntime() error {
	onnxInitMu.Lock()
	defer onnxInitMu.Unlock()

	if onnxInitialized {
		return nil
	}

	libPath := os.Getenv("ONNXRUNTIME_SHARED_LIBRARY_PATH")
	if libPath == "" {
		var candidates []string
		switch runtime.GOOS {
		case "darwin":
			candidates = []string{
				"../Resources/libonnxruntime.dylib",
				"./libonnxruntime.dylib",
			}
		case "windows":
			candidates = []string{"./onnxruntime.dll"}
		default:
			candidates = []string{
				"./libonnxruntime.so",
				"/usr/lib/libonnxruntime.so",
				"/usr/local/lib/libonnxruntime.so",
			}
		}
		for _, p := range candidates {
			if _, err := os.Stat(p); err == nil {
				libPath = p
				break
			}
		}
	}

	if libPath != "" {
		ort.SetSharedLibraryPath(libPath)
	}

	if err := ort.InitializeEnvironment(); err != nil {
		return fmt.Errorf("failed to initialize ONNX Runtime: %w", err)
	}

	onnxInitialized = true
	return nil
}
