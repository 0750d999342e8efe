package policy

import (
	"regexp"
	"strings"
)

// CompiledPattern pairs a compiled regular expression with its original
// source text so decisions can report which declared pattern matched.
type CompiledPattern struct {
	Source string
	Regexp *regexp.Regexp
}

// compilePatterns compiles each pattern source in declared order.
// An invalid pattern is skipped and reported via invalid, never returned
// as an error: a malformed policy pattern must not abort the registry
// load (§4.2, §7).
func compilePatterns(sources []string) (compiled []CompiledPattern, invalid []string) {
	for _, src := range sources {
		re, err := regexp.Compile("(?i)" + src)
		if err != nil {
			invalid = append(invalid, src)
			continue
		}
		compiled = append(compiled, CompiledPattern{Source: src, Regexp: re})
	}
	return compiled, invalid
}

// matchFirst returns the first pattern (in declared order) matching s, or
// ok=false if none match. Matching is stateless and side-effect-free.
func matchFirst(patterns []CompiledPattern, s string) (CompiledPattern, bool) {
	for _, p := range patterns {
		if p.Regexp.MatchString(s) {
			return p, true
		}
	}
	return CompiledPattern{}, false
}

// matchExecutable reports whether any executable token is contained,
// case-insensitively, within s.
func matchExecutable(executables []string, s string) (string, bool) {
	lower := strings.ToLower(s)
	for _, exe := range executables {
		if strings.Contains(lower, strings.ToLower(exe)) {
			return exe, true
		}
	}
	return "", false
}
