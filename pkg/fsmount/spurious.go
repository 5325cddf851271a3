package fsmount

import "strings"

// isSpuriousLookup reports whether name is a shell/terminal artifact worth
// filtering out before contacting the server: purely numeric names (tab
// completion probing inode-like paths), names starting with "drwx" (a
// pasted `ls -l` line misinterpreted as a path), and a fixed set of shell
// builtins/command names a stray keystroke can turn into a lookup.
func isSpuriousLookup(name string) bool {
	if name == "" {
		return false
	}
	if isAllDigits(name) {
		return true
	}
	if strings.HasPrefix(name, "drwx") {
		return true
	}
	switch strings.ToLower(name) {
	case "total", "echo", "cat", "ls", "mkdir", "rmdir":
		return true
	}
	return false
}

func isAllDigits(s string) bool {
	for _, r := range s {
		if r < '0' || r > '9' {
			return false
		}
	}
	return true
}
