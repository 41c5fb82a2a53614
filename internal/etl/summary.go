package etl

import (
	"fmt"
	"strings"
	"time"
)

// FormatSummary returns a human-readable report of a run.
func FormatSummary(r *RunResult) string {
	var sb strings.Builder

	sb.WriteString(fmt.Sprintf("Run %s", r.RunID))
	if r.Duration > 0 {
		sb.WriteString(fmt.Sprintf(" finished in %s", r.Duration.Round(time.Millisecond)))
	}
	sb.WriteString("\n")

	if r.Songs != nil {
		sb.WriteString(formatPass("Song metadata", r.Songs))
		sb.WriteString(fmt.Sprintf("  songs: %d, artists: %d\n", r.Songs.Stats.Songs, r.Songs.Stats.Artists))
	}
	if r.Logs != nil {
		s := r.Logs.Stats
		sb.WriteString(formatPass("Event logs", r.Logs))
		sb.WriteString(fmt.Sprintf("  time: %d, users: %d, songplays: %d (%d matched to the catalog)\n",
			s.TimeEntries, s.Users, s.Songplays, s.Resolved))
		if s.Discarded > 0 || s.Skipped > 0 {
			sb.WriteString(fmt.Sprintf("  %d non-NextSong events discarded, %d malformed records skipped\n",
				s.Discarded, s.Skipped))
		}
	}

	return sb.String()
}

// formatPass formats the file counts of one pass and lists failed files.
func formatPass(label string, p *PassResult) string {
	var sb strings.Builder

	fileWord := "file"
	if p.Files != 1 {
		fileWord = "files"
	}
	sb.WriteString(fmt.Sprintf("%s: %d/%d %s loaded from %s\n", label, p.Loaded, p.Files, fileWord, p.Root))

	for _, f := range p.Failed {
		sb.WriteString(fmt.Sprintf("  ! %s: %v\n", f.Path, f.Err))
	}
	return sb.String()
}
