package config

import (
	"path/filepath"
	"strings"

	"github.com/bmatcuk/doublestar/v4"
	"mvdan.cc/sh/v3/syntax"

	"github.com/cyrup-ai/kodegen-tools-config/internal/logging"
)

// CommandBlocked parses commandLine as a shell program and reports the first
// invoked command whose base name is in blocked_commands. Pipelines, lists and
// command substitutions are all inspected. A line that fails to parse is
// checked by its first whitespace-separated word.
func (m *Manager) CommandBlocked(commandLine string) (string, bool) {
	blocked := m.BlockedCommands()
	if len(blocked) == 0 {
		return "", false
	}
	set := make(map[string]struct{}, len(blocked))
	for _, c := range blocked {
		set[c] = struct{}{}
	}

	for _, name := range commandNames(commandLine) {
		if _, ok := set[filepath.Base(name)]; ok {
			return name, true
		}
	}
	return "", false
}

// commandNames returns the literal name of every simple command in line.
func commandNames(line string) []string {
	parser := syntax.NewParser(syntax.Variant(syntax.LangBash), syntax.KeepComments(false))
	file, err := parser.Parse(strings.NewReader(line), "")
	if err != nil {
		logging.Debug().Err(err).Msg("command parse failed, checking first word")
		if fields := strings.Fields(line); len(fields) > 0 {
			return []string{fields[0]}
		}
		return nil
	}

	var names []string
	syntax.Walk(file, func(node syntax.Node) bool {
		call, ok := node.(*syntax.CallExpr)
		if !ok || len(call.Args) == 0 {
			return true
		}
		if name := call.Args[0].Lit(); name != "" {
			names = append(names, name)
		}
		return true
	})
	return names
}

// PathAllowed reports whether path may be accessed. A denied entry always
// wins; an empty allowed list permits everything else.
func (m *Manager) PathAllowed(path string) bool {
	m.mu.RLock()
	allowed := cloneList(m.cfg.AllowedDirectories)
	denied := cloneList(m.cfg.DeniedDirectories)
	m.mu.RUnlock()

	target := filepath.Clean(expandHome(path))
	if abs, err := filepath.Abs(target); err == nil {
		target = abs
	}

	for _, entry := range denied {
		if pathMatches(target, entry) {
			return false
		}
	}
	if len(allowed) == 0 {
		return true
	}
	for _, entry := range allowed {
		if pathMatches(target, entry) {
			return true
		}
	}
	return false
}

// pathMatches treats entry as a glob when it has metacharacters, otherwise
// as a directory containing target.
func pathMatches(target, entry string) bool {
	entry = expandHome(strings.TrimSpace(entry))
	if entry == "" {
		return false
	}

	if strings.ContainsAny(entry, "*?[{") {
		pattern := filepath.ToSlash(entry)
		ok, err := doublestar.Match(pattern, filepath.ToSlash(target))
		if err != nil {
			logging.Warn().Err(err).Str("pattern", entry).Msg("invalid directory pattern")
			return false
		}
		return ok
	}

	dir := filepath.Clean(entry)
	if abs, err := filepath.Abs(dir); err == nil {
		dir = abs
	}
	rel, err := filepath.Rel(dir, target)
	if err != nil {
		return false
	}
	return rel == "." || (rel != ".." && !strings.HasPrefix(rel, ".."+string(filepath.Separator)))
}
