// Package filter implements the VM exclusion rules applied during a
// collection run: name-based skip patterns, power/guest state checks, and
// UUID deduplication with an auditable ledger.
package filter

import (
	"bufio"
	"fmt"
	"os"
	"regexp"
	"strings"
)

// metaChars are the characters that promote a rule from exact-match to
// wildcard matching. Only `*` is dynamic; everything else is taken literally.
const metaChars = `*?[](){}|^$+\`

// Pattern is one compiled skip rule.
type Pattern struct {
	raw     string
	literal bool
	re      *regexp.Regexp // nil when literal or when compilation failed
}

// Raw returns the rule text the pattern was compiled from.
func (p Pattern) Raw() string { return p.raw }

// Compile builds a Pattern from one rule. Rules without wildcard or regex
// metacharacters match by exact name equality. Rules with metacharacters are
// matched with every other metacharacter escaped and each `*` standing for
// any sequence, anywhere in the name. A rule that still fails to compile
// degrades to substring matching and never aborts the run.
func Compile(rule string) Pattern {
	if !strings.ContainsAny(rule, metaChars) {
		return Pattern{raw: rule, literal: true}
	}
	expr := strings.ReplaceAll(regexp.QuoteMeta(rule), `\*`, `.*`)
	re, err := regexp.Compile(expr)
	if err != nil {
		return Pattern{raw: rule}
	}
	return Pattern{raw: rule, re: re}
}

// CompileAll compiles a list of rules in order.
func CompileAll(rules []string) []Pattern {
	patterns := make([]Pattern, 0, len(rules))
	for _, rule := range rules {
		patterns = append(patterns, Compile(rule))
	}
	return patterns
}

// match reports whether the pattern excludes name.
func (p Pattern) match(name string) bool {
	if p.literal {
		return name == p.raw
	}
	if p.re != nil {
		return p.re.MatchString(name)
	}
	// Degraded rule: strip the wildcards and fall back to substring.
	return strings.Contains(name, strings.ReplaceAll(p.raw, "*", ""))
}

// ShouldSkip reports whether name matches any pattern. The first matching
// pattern wins; an empty pattern list never skips.
func ShouldSkip(name string, patterns []Pattern) bool {
	for _, p := range patterns {
		if p.match(name) {
			return true
		}
	}
	return false
}

// LoadSkipList reads skip rules from path, one per line. Blank lines and
// lines starting with `#` are ignored. A missing file yields an empty list.
func LoadSkipList(path string) ([]Pattern, error) {
	f, err := os.Open(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("filter: open skip list: %w", err)
	}
	defer f.Close()

	var rules []string
	scanner := bufio.NewScanner(f)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		rules = append(rules, line)
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("filter: read skip list: %w", err)
	}
	return CompileAll(rules), nil
}
