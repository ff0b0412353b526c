package rules

import (
	"os"
	"path/filepath"
	"strings"

	"log/slog"

	"github.com/fsnotify/fsnotify"

	"github.com/docker/openclaudia/pkg/concurrent"
)

// Rule is one loaded *.md file: its stem name, raw content, and the
// language tokens it applies to (empty means universal).
type Rule struct {
	Name      string
	Content   string
	Languages []string
}

func (r Rule) isGlobal() bool { return len(r.Languages) == 0 }

// Engine loads and matches markdown rules from one rules directory. Rules
// are held in a concurrent.Slice so a WatchForChanges reload racing with a
// concurrent ForExtensions/All/Combined lookup from the request path never
// observes a torn slice header.
type Engine struct {
	rulesDir string
	rules    *concurrent.Slice[Rule]
}

// New loads every *.md rule from rulesDir. A missing directory yields an
// empty engine, not an error.
func New(rulesDir string) *Engine {
	e := &Engine{rulesDir: rulesDir, rules: concurrent.NewSlice[Rule]()}
	e.Reload()
	return e
}

func loadRules(rulesDir string) []Rule {
	entries, err := os.ReadDir(rulesDir)
	if err != nil {
		slog.Debug("rules directory unavailable", "path", rulesDir, "error", err)
		return nil
	}

	var rules []Rule
	for _, entry := range entries {
		if entry.IsDir() || !strings.EqualFold(filepath.Ext(entry.Name()), ".md") {
			continue
		}
		path := filepath.Join(rulesDir, entry.Name())
		content, err := os.ReadFile(path)
		if err != nil {
			slog.Warn("failed to read rule file", "path", path, "error", err)
			continue
		}
		stem := strings.TrimSuffix(entry.Name(), filepath.Ext(entry.Name()))
		name, languages := parseRuleName(stem)
		rules = append(rules, Rule{Name: name, Content: string(content), Languages: languages})
	}
	return rules
}

// parseRuleName derives a rule's applicability from its file stem:
// "always"/"global"/"all" and anything not matching a known language
// prefix are universal; a stem equal to, or "<lang>-"-prefixed by, one of
// the ~45 known language tokens applies to that language only.
func parseRuleName(stem string) (name string, languages []string) {
	lower := strings.ToLower(stem)
	if lower == "always" || lower == "global" || lower == "all" {
		return stem, nil
	}
	for lang := range knownLanguages {
		if lower == lang || strings.HasPrefix(lower, lang+"-") {
			return stem, []string{lang}
		}
	}
	return stem, nil
}

// ForExtensions returns every universal rule plus every rule whose
// language set intersects the languages the given extensions map to.
func (e *Engine) ForExtensions(extensions []string) []Rule {
	active := make(map[string]bool, len(extensions))
	for _, ext := range extensions {
		if lang := extensionToLanguage(ext); lang != "" {
			active[lang] = true
		}
	}

	var matched []Rule
	e.rules.Range(func(_ int, r Rule) bool {
		if r.isGlobal() {
			matched = append(matched, r)
			return true
		}
		for _, lang := range r.Languages {
			if active[lang] {
				matched = append(matched, r)
				break
			}
		}
		return true
	})
	return matched
}

// ForFiles derives extensions from file paths and delegates to ForExtensions.
func (e *Engine) ForFiles(filePaths []string) []Rule {
	exts := make([]string, 0, len(filePaths))
	for _, p := range filePaths {
		ext := strings.TrimPrefix(filepath.Ext(p), ".")
		if ext != "" {
			exts = append(exts, ext)
		}
	}
	return e.ForExtensions(exts)
}

// Combined formats the rules applicable to extensions as "## <name>
// Rules\n\n<content>" blocks joined by a "---" separator.
func (e *Engine) Combined(extensions []string) string {
	matched := e.ForExtensions(extensions)
	if len(matched) == 0 {
		return ""
	}
	blocks := make([]string, len(matched))
	for i, r := range matched {
		blocks[i] = "## " + r.Name + " Rules\n\n" + r.Content
	}
	return strings.Join(blocks, "\n\n---\n\n")
}

// Reload re-reads every rule file from disk.
func (e *Engine) Reload() {
	loaded := loadRules(e.rulesDir)
	e.rules.Clear()
	for _, r := range loaded {
		e.rules.Append(r)
	}
}

// WatchForChanges watches the rules directory for filesystem changes and
// calls Reload whenever a *.md file is created, written, renamed, or
// removed. The returned stop function closes the watcher; it is
// idempotent. A missing rules directory is tolerated: the watch is simply
// not established and stop is a no-op.
func (e *Engine) WatchForChanges() (stop func() error, err error) {
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, err
	}

	if err := watcher.Add(e.rulesDir); err != nil {
		slog.Debug("rules directory not watchable", "path", e.rulesDir, "error", err)
		watcher.Close()
		return func() error { return nil }, nil
	}

	go func() {
		for {
			select {
			case event, ok := <-watcher.Events:
				if !ok {
					return
				}
				if strings.EqualFold(filepath.Ext(event.Name), ".md") {
					e.Reload()
				}
			case _, ok := <-watcher.Errors:
				if !ok {
					return
				}
			}
		}
	}()

	return watcher.Close, nil
}

// All returns every loaded rule.
func (e *Engine) All() []Rule {
	return e.rules.All()
}
