// Package services defines the error vocabulary shared by pipeline stage
// collaborators and the worker that drives them.
package services

import (
	"errors"
	"fmt"
	"strings"
)

var (
	// ErrIngestion marks a job whose raw file is missing or unreadable before
	// any session is created.
	ErrIngestion = errors.New("ingestion error")
	// ErrExternalTool marks failures of spawned tools such as ffmpeg/ffprobe.
	ErrExternalTool = errors.New("external tool error")
	// ErrConfiguration marks unusable stage configuration.
	ErrConfiguration = errors.New("configuration error")
	// ErrTransient marks retry-able failures with no better classification.
	ErrTransient = errors.New("transient failure")
)

// Wrap builds an error message that includes stage context while tagging it
// with the provided marker for later classification. The marker should be one
// of the exported sentinel errors above.
func Wrap(marker error, stage, operation, message string, err error) error {
	detail := buildDetail(stage, operation, message)
	if marker == nil {
		marker = ErrTransient
	}
	if err != nil {
		return fmt.Errorf("%w: %s: %w", marker, detail, err)
	}
	return fmt.Errorf("%w: %s", marker, detail)
}

// Classify names an error's failure class for logs and retry policy.
// Unmarked errors classify as transient.
func Classify(err error) string {
	switch {
	case errors.Is(err, ErrIngestion):
		return "ingestion"
	case errors.Is(err, ErrExternalTool):
		return "external_tool"
	case errors.Is(err, ErrConfiguration):
		return "configuration"
	default:
		return "transient"
	}
}

// StageMessage renders the "<stage>: <message>" form persisted on a failed
// job record. The sentinel prefix added by Wrap is stripped so viewers see
// the stage name first.
func StageMessage(stage string, err error) string {
	message := "failed without error detail"
	if err != nil {
		message = strings.TrimSpace(err.Error())
		for _, marker := range []error{ErrIngestion, ErrExternalTool, ErrConfiguration, ErrTransient} {
			prefix := marker.Error() + ": "
			if strings.HasPrefix(message, prefix) {
				message = strings.TrimPrefix(message, prefix)
				break
			}
		}
	}
	stage = strings.TrimSpace(stage)
	if stage == "" {
		return message
	}
	if strings.HasPrefix(message, stage+": ") {
		return message
	}
	return fmt.Sprintf("%s: %s", stage, message)
}

func buildDetail(stage, operation, message string) string {
	parts := make([]string, 0, 3)
	if stage = strings.TrimSpace(stage); stage != "" {
		parts = append(parts, stage)
	}
	if operation = strings.TrimSpace(operation); operation != "" {
		parts = append(parts, operation)
	}
	if message = strings.TrimSpace(message); message != "" {
		parts = append(parts, message)
	}
	if len(parts) == 0 {
		return "service failure"
	}
	return strings.Join(parts, ": ")
}
