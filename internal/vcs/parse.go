package vcs

import (
	"regexp"
	"strconv"
	"strings"
)

// parseStatus reads `git status --porcelain=v1 -z --branch` output.
func parseStatus(out string) Status {
	var st Status
	entries := strings.Split(out, "\x00")
	for i := 0; i < len(entries); i++ {
		entry := entries[i]
		if entry == "" {
			continue
		}
		if strings.HasPrefix(entry, "## ") {
			st.Branch = parseStatusBranch(entry[3:])
			continue
		}
		if len(entry) < 4 {
			continue
		}
		x, y, path := entry[0], entry[1], entry[3:]
		// Renames and copies are followed by the source path.
		if x == 'R' || x == 'C' {
			i++
		}

		switch {
		case isConflict(x, y):
			st.Conflicted = append(st.Conflicted, path)
		case x == '?' && y == '?':
			st.Untracked = append(st.Untracked, path)
		case x == '!':
		default:
			if x == 'D' || y == 'D' {
				st.Deleted = append(st.Deleted, path)
			}
			if strings.IndexByte("MARC", x) >= 0 {
				st.Staged = append(st.Staged, path)
			}
			if y == 'M' {
				st.Modified = append(st.Modified, path)
			}
		}
	}
	return st
}

func isConflict(x, y byte) bool {
	return x == 'U' || y == 'U' || (x == 'A' && y == 'A') || (x == 'D' && y == 'D')
}

// parseStatusBranch extracts the branch from a "## " header line.
// Detached heads yield "".
func parseStatusBranch(header string) string {
	switch {
	case strings.HasPrefix(header, "HEAD (no branch)"):
		return ""
	case strings.HasPrefix(header, "No commits yet on "):
		return strings.TrimPrefix(header, "No commits yet on ")
	case strings.HasPrefix(header, "Initial commit on "):
		return strings.TrimPrefix(header, "Initial commit on ")
	}
	if idx := strings.Index(header, "..."); idx >= 0 {
		header = header[:idx]
	}
	if idx := strings.IndexByte(header, ' '); idx >= 0 {
		header = header[:idx]
	}
	return header
}

var detachedBranchRE = regexp.MustCompile(`^\((?:HEAD )?detached (?:from|at) [^)]*\)\s+([0-9a-f]+)`)

// parseBranches reads `git branch -a -v --no-color` output.
func parseBranches(out string) []Branch {
	var branches []Branch
	for _, line := range strings.Split(out, "\n") {
		if len(line) < 3 {
			continue
		}
		current := line[0] == '*'
		rest := strings.TrimSpace(line[2:])
		if rest == "" || strings.Contains(rest, " -> ") {
			continue
		}
		if m := detachedBranchRE.FindStringSubmatch(rest); m != nil {
			end := strings.IndexByte(rest, ')')
			branches = append(branches, Branch{Name: rest[:end+1], Commit: m[1], Current: current})
			continue
		}
		fields := strings.Fields(rest)
		b := Branch{Name: fields[0], Current: current, Remote: strings.HasPrefix(fields[0], "remotes/")}
		if len(fields) > 1 {
			b.Commit = fields[1]
		}
		branches = append(branches, b)
	}
	return branches
}

var (
	shortstatFilesRE      = regexp.MustCompile(`(\d+) files? changed`)
	shortstatInsertionsRE = regexp.MustCompile(`(\d+) insertions?\(\+\)`)
	shortstatDeletionsRE  = regexp.MustCompile(`(\d+) deletions?\(-\)`)
)

// parseChangeSummary finds the shortstat line in merge or pull output.
func parseChangeSummary(out string) ChangeSummary {
	var sum ChangeSummary
	for _, line := range strings.Split(out, "\n") {
		m := shortstatFilesRE.FindStringSubmatch(line)
		if m == nil {
			continue
		}
		sum.Changes = atoi(m[1])
		if m := shortstatInsertionsRE.FindStringSubmatch(line); m != nil {
			sum.Insertions = atoi(m[1])
		}
		if m := shortstatDeletionsRE.FindStringSubmatch(line); m != nil {
			sum.Deletions = atoi(m[1])
		}
	}
	return sum
}

var conflictRE = regexp.MustCompile(`^CONFLICT \(([^)]+)\): (.*)$`)

// parseMergeOutput reads the stdout of `git merge`.
func parseMergeOutput(out string) MergeResult {
	var res MergeResult
	for _, line := range strings.Split(out, "\n") {
		line = strings.TrimRight(line, "\r")
		if strings.HasPrefix(line, "Auto-merging ") {
			res.Merged = append(res.Merged, strings.TrimPrefix(line, "Auto-merging "))
			continue
		}
		m := conflictRE.FindStringSubmatch(line)
		if m == nil {
			continue
		}
		res.Conflicts = append(res.Conflicts, Conflict{File: conflictFile(m[2]), Reason: m[1]})
	}
	res.Failed = len(res.Conflicts) > 0
	res.Summary = parseChangeSummary(out)
	return res
}

// conflictFile pulls the path out of a CONFLICT detail, e.g.
// "Merge conflict in a.txt" or "a.txt deleted in HEAD and modified in x."
func conflictFile(detail string) string {
	if idx := strings.Index(detail, "Merge conflict in "); idx >= 0 {
		return strings.TrimSpace(detail[idx+len("Merge conflict in "):])
	}
	if fields := strings.Fields(detail); len(fields) > 0 {
		return fields[0]
	}
	return detail
}

// parseFetchOutput reads the ref update lines git fetch prints on stderr.
func parseFetchOutput(out string) FetchResult {
	var res FetchResult
	for _, line := range strings.Split(out, "\n") {
		line = strings.TrimRight(line, "\r")
		if len(line) < 2 || line[0] != ' ' {
			continue
		}
		arrow := strings.Index(line, " -> ")
		if arrow < 0 {
			continue
		}
		flag := line[1]
		to := strings.TrimSpace(line[arrow+4:])
		if idx := strings.Index(to, "  ("); idx >= 0 {
			to = strings.TrimSpace(to[:idx])
		}
		switch {
		case flag == '-' || strings.Contains(line, "[deleted]"):
			res.Deleted = append(res.Deleted, to)
		case strings.Contains(line, "[new tag]") || (flag == 't' && strings.HasPrefix(to, "refs/tags/")):
			res.Tags = append(res.Tags, to)
		case flag == '=':
		default:
			res.Updated = append(res.Updated, to)
		}
	}
	return res
}

var commitHashRE = regexp.MustCompile(`^\[[^\]]*?([0-9a-f]{7,40})\]`)

// parseCommitHash reads the hash from the first line of `git commit`,
// e.g. "[main (root-commit) 1a2b3c4] message".
func parseCommitHash(out string) string {
	line, _, _ := strings.Cut(strings.TrimSpace(out), "\n")
	if m := commitHashRE.FindStringSubmatch(line); m != nil {
		return m[1]
	}
	return ""
}

// parseStashList reads `git stash list --format=%H%x1f%s` output.
func parseStashList(out string) []StashEntry {
	var entries []StashEntry
	for _, line := range strings.Split(strings.TrimSpace(out), "\n") {
		if line == "" {
			continue
		}
		hash, msg, _ := strings.Cut(line, "\x1f")
		entries = append(entries, StashEntry{Hash: hash, Message: strings.TrimSpace(msg)})
	}
	return entries
}

func atoi(s string) int {
	n, _ := strconv.Atoi(s)
	return n
}
