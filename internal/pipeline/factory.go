package pipeline

import (
	"fmt"

	"sessionscribe/internal/config"
)

// ForBackend returns the pipeline implementation for an analyze backend. The
// mock backend is fully in-process; the remaining backends require their
// external collaborator binaries and API credentials to be installed
// alongside this tool.
func ForBackend(backend string, cfg *config.Config) (Pipeline, error) {
	switch backend {
	case BackendMock:
		return &Mock{SessionsDir: cfg.Paths.SessionsDir}, nil
	case BackendClaude, BackendGemini, BackendOpenOCR:
		return nil, fmt.Errorf("analyze backend %q requires its external collaborator; only %q runs in-process", backend, BackendMock)
	default:
		return nil, fmt.Errorf("unknown analyze backend %q", backend)
	}
}
