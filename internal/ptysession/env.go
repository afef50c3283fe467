package ptysession

import (
	"strings"
)

// MaxEnvEntryBytes caps any single "KEY=VALUE" entry. Oversized entries
// are dropped rather than truncated, since a truncated value could change
// its meaning silently.
const MaxEnvEntryBytes = 4 * 1024

// MaxEnvTotalBytes is a soft ceiling on the combined size of the
// sanitized environment. Exceeding it is logged by the caller but does
// not by itself drop any entry.
const MaxEnvTotalBytes = 32 * 1024

// deniedEnvKeys are stripped outright: they let a child process load
// arbitrary code or alter shell startup behavior.
var deniedEnvKeys = map[string]bool{
	"LD_PRELOAD":      true,
	"LD_LIBRARY_PATH": true,
	"BASH_ENV":        true,
	"ENV":             true,
	"CDPATH":          true,
}

// SanitizeEnv filters a raw "KEY=VALUE" environment list down to one safe
// to hand to a freshly spawned shell. It drops entries on the deny list,
// any DYLD_*-prefixed entry, and any entry whose "KEY=VALUE" text exceeds
// MaxEnvEntryBytes. It rewrites PATH to drop relative or otherwise
// non-absolute components, and sets TERM to a sane default when absent.
// totalBytes is the combined size of the returned entries, for the
// caller to log against MaxEnvTotalBytes.
func SanitizeEnv(raw []string) (sanitized []string, totalBytes int) {
	hasTerm := false

	for _, entry := range raw {
		if len(entry) > MaxEnvEntryBytes {
			continue
		}

		key, value, ok := splitEnvEntry(entry)
		if !ok {
			continue
		}

		if deniedEnvKeys[key] {
			continue
		}
		if strings.HasPrefix(key, "DYLD_") {
			continue
		}

		if key == "PATH" {
			value = filterAbsolutePathComponents(value)
		}
		if key == "TERM" {
			hasTerm = true
		}

		kept := key + "=" + value
		sanitized = append(sanitized, kept)
		totalBytes += len(kept)
	}

	if !hasTerm {
		const def = "TERM=xterm-256color"
		sanitized = append(sanitized, def)
		totalBytes += len(def)
	}

	return sanitized, totalBytes
}

func splitEnvEntry(entry string) (key, value string, ok bool) {
	idx := strings.IndexByte(entry, '=')
	if idx < 0 {
		return "", "", false
	}
	return entry[:idx], entry[idx+1:], true
}

// filterAbsolutePathComponents drops any PATH component that is not an
// absolute path, preventing a relative or empty component (which
// resolves to the current directory) from shadowing system binaries.
func filterAbsolutePathComponents(path string) string {
	parts := strings.Split(path, ":")
	kept := make([]string, 0, len(parts))
	for _, p := range parts {
		if strings.HasPrefix(p, "/") {
			kept = append(kept, p)
		}
	}
	return strings.Join(kept, ":")
}
