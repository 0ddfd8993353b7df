// Package session manages session identifiers and the on-disk session
// directory layout.
package session

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"regexp"
	"strings"
	"time"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"
)

// idPattern matches the session_id format YYYY-MM-DD_HH-MM-SS_<game>_<tag>.
var idPattern = regexp.MustCompile(
	`^\d{4}-\d{2}-\d{2}_\d{2}-\d{2}-\d{2}_[a-zA-Z0-9-]+_[a-zA-Z0-9-]+$`)

// Components are the parsed pieces of a session identifier.
type Components struct {
	Date string
	Time string
	Game string
	Tag  string
}

// NewID builds a session identifier from game, tag, and timestamp. Underscores
// inside game or tag are flattened to dashes so the identifier still splits
// into exactly four parts.
func NewID(game, tag string, at time.Time) string {
	return fmt.Sprintf("%s_%s_%s",
		at.Format("2006-01-02_15-04-05"), sanitize(game), sanitize(tag))
}

// ValidateID reports whether an identifier matches the session_id format.
func ValidateID(id string) bool {
	return idPattern.MatchString(id)
}

// ParseID splits a session identifier into its components.
func ParseID(id string) (*Components, error) {
	if !ValidateID(id) {
		return nil, fmt.Errorf("invalid session id %q", id)
	}
	parts := strings.Split(id, "_")
	return &Components{Date: parts[0], Time: parts[1], Game: parts[2], Tag: parts[3]}, nil
}

func sanitize(value string) string {
	var b strings.Builder
	for _, r := range value {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9', r == '-':
			b.WriteRune(r)
		default:
			b.WriteRune('-')
		}
	}
	out := strings.Trim(b.String(), "-")
	if out == "" {
		return "unknown"
	}
	return out
}

// DisplayTitle renders a game slug as a human-readable title, such as
// "stardew-valley" -> "Stardew Valley".
func DisplayTitle(game string) string {
	cleaned := strings.Map(func(r rune) rune {
		if r == '-' || r == '_' || r == '.' {
			return ' '
		}
		return r
	}, game)
	cleaned = strings.Join(strings.Fields(cleaned), " ")
	if cleaned == "" {
		return "Unknown Game"
	}
	return cases.Title(language.Und).String(cleaned)
}

// Dir returns the session directory path under the sessions root.
func Dir(sessionsDir, id string) string {
	return filepath.Join(sessionsDir, id)
}

// CreateSkeleton creates the session directory with its source, segments, and
// outputs subdirectories and returns the session directory path.
func CreateSkeleton(sessionsDir, id string) (string, error) {
	sessionDir := Dir(sessionsDir, id)
	for _, sub := range []string{"source", "segments", "outputs"} {
		if err := os.MkdirAll(filepath.Join(sessionDir, sub), 0o755); err != nil {
			return "", fmt.Errorf("create session directory: %w", err)
		}
	}
	return sessionDir, nil
}

// LinkSource places the raw recording under <session>/source/, hardlinking
// when possible and copying across filesystems. Returns the destination path
// and the mode actually used ("hardlink" or "copy").
func LinkSource(rawPath, sessionDir string) (string, string, error) {
	dest := filepath.Join(sessionDir, "source", filepath.Base(rawPath))
	if err := os.Link(rawPath, dest); err == nil {
		return dest, "hardlink", nil
	}
	if err := copyFile(rawPath, dest); err != nil {
		return "", "", fmt.Errorf("copy source video: %w", err)
	}
	return dest, "copy", nil
}

// CopySource forces a full copy of the raw recording into the session.
func CopySource(rawPath, sessionDir string) (string, error) {
	dest := filepath.Join(sessionDir, "source", filepath.Base(rawPath))
	if err := copyFile(rawPath, dest); err != nil {
		return "", fmt.Errorf("copy source video: %w", err)
	}
	return dest, nil
}

func copyFile(src, dst string) error {
	in, err := os.Open(src)
	if err != nil {
		return err
	}
	defer in.Close()

	out, err := os.Create(dst)
	if err != nil {
		return err
	}
	defer out.Close()

	if _, err := io.Copy(out, in); err != nil {
		return err
	}
	return out.Close()
}
