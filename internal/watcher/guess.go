package watcher

import (
	"path/filepath"
	"regexp"
	"strings"
)

var (
	datePrefixPattern = regexp.MustCompile(`^\d{4}[-_]?\d{2}[-_]?\d{2}[-_]?`)
	dateSuffixPattern = regexp.MustCompile(`[-_]?\d{4}[-_]?\d{2}[-_]?\d{2}$`)
	separatorPattern  = regexp.MustCompile(`[-_\s]+`)
)

// GuessGame extracts a likely game name from a recording filename. The
// suggestion is stored alongside the job for the operator to confirm or
// override; a wrong guess never blocks processing. Recognized shapes:
//
//	2026-01-20_gnosia_run01.mp4  -> gnosia
//	genshin_2026-01-20.mp4       -> genshin
//	mario-kart-race.mp4          -> mario
func GuessGame(filename string) string {
	name := strings.TrimSuffix(filename, filepath.Ext(filename))

	if loc := datePrefixPattern.FindStringIndex(name); loc != nil {
		if game := firstSegment(name[loc[1]:]); game != "" {
			return game
		}
	}
	if loc := dateSuffixPattern.FindStringIndex(name); loc != nil {
		if game := firstSegment(name[:loc[0]]); game != "" {
			return game
		}
	}
	return firstSegment(name)
}

func firstSegment(s string) string {
	parts := separatorPattern.Split(s, -1)
	if len(parts) == 0 || parts[0] == "" {
		return ""
	}
	return strings.ToLower(parts[0])
}
