package model

import "fmt"

// BackendKind identifies which build/run path is used for the search engine.
type BackendKind string

// Backend kinds.
const (
	BackendNative BackendKind = "native"
	BackendGPU    BackendKind = "gpu"
)

// BackendKinds lists every known backend kind.
var BackendKinds = []BackendKind{BackendNative, BackendGPU}

// ParseBackendKind converts a user supplied name into a BackendKind.
func ParseBackendKind(s string) (BackendKind, error) {
	switch BackendKind(s) {
	case BackendNative, BackendGPU:
		return BackendKind(s), nil
	case "rust":
		return BackendNative, nil
	case "cuda":
		return BackendGPU, nil
	}
	return "", fmt.Errorf("unknown backend %q: must be one of %v", s, BackendKinds)
}

func (k BackendKind) String() string { return string(k) }
