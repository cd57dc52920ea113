package vcs

import (
	"fmt"
	"strings"

	godiff "github.com/sourcegraph/go-diff/diff"
)

// FileStat is the line count of one file in a patch.
type FileStat struct {
	Path       string
	Insertions int
	Deletions  int
}

// SummarizePatch parses a unified multi-file patch and counts changed lines
// per file.
func SummarizePatch(patch string) ([]FileStat, error) {
	if strings.TrimSpace(patch) == "" {
		return nil, nil
	}
	fileDiffs, err := godiff.ParseMultiFileDiff([]byte(patch))
	if err != nil {
		return nil, fmt.Errorf("parse patch: %w", err)
	}
	stats := make([]FileStat, 0, len(fileDiffs))
	for _, fd := range fileDiffs {
		if fd == nil {
			continue
		}
		st := fd.Stat()
		stats = append(stats, FileStat{
			Path:       diffPath(fd),
			Insertions: int(st.Added + st.Changed),
			Deletions:  int(st.Deleted + st.Changed),
		})
	}
	return stats, nil
}

// Totals folds per-file counts into a ChangeSummary.
func Totals(stats []FileStat) ChangeSummary {
	sum := ChangeSummary{Changes: len(stats)}
	for _, st := range stats {
		sum.Insertions += st.Insertions
		sum.Deletions += st.Deletions
	}
	return sum
}

func diffPath(fd *godiff.FileDiff) string {
	name := strings.TrimSpace(fd.NewName)
	if name == "" || name == "/dev/null" {
		name = strings.TrimSpace(fd.OrigName)
	}
	name = strings.Trim(name, "\"")
	name = strings.TrimPrefix(name, "a/")
	return strings.TrimPrefix(name, "b/")
}
