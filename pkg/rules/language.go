// Package rules loads markdown rule files from a project's rules directory
// and selects which apply given the file extensions a tool call touches.
package rules

import "strings"

// languageByExtension maps a lowercased file extension to a canonical
// language token. Extensions not present here have no language association.
var languageByExtension = map[string]string{
	"rs":       "rust",
	"py":       "python",
	"pyw":      "python",
	"js":       "javascript",
	"mjs":      "javascript",
	"cjs":      "javascript",
	"ts":       "typescript",
	"mts":      "typescript",
	"cts":      "typescript",
	"tsx":      "tsx",
	"jsx":      "jsx",
	"go":       "go",
	"java":     "java",
	"kt":       "kotlin",
	"kts":      "kotlin",
	"swift":    "swift",
	"c":        "c",
	"h":        "c",
	"cpp":      "cpp",
	"cc":       "cpp",
	"cxx":      "cpp",
	"hpp":      "cpp",
	"hxx":      "cpp",
	"cs":       "csharp",
	"rb":       "ruby",
	"php":      "php",
	"scala":    "scala",
	"ex":       "elixir",
	"exs":      "elixir",
	"erl":      "erlang",
	"hrl":      "erlang",
	"hs":       "haskell",
	"clj":      "clojure",
	"cljs":     "clojure",
	"cljc":     "clojure",
	"lua":      "lua",
	"r":        "r",
	"jl":       "julia",
	"dart":     "dart",
	"zig":      "zig",
	"nim":      "nim",
	"v":        "vlang",
	"sql":      "sql",
	"sh":       "shell",
	"bash":     "shell",
	"zsh":      "shell",
	"ps1":      "powershell",
	"psm1":     "powershell",
	"yml":      "yaml",
	"yaml":     "yaml",
	"json":     "json",
	"toml":     "toml",
	"xml":      "xml",
	"html":     "html",
	"htm":      "html",
	"css":      "css",
	"scss":     "scss",
	"sass":     "scss",
	"less":     "less",
	"md":       "markdown",
	"markdown": "markdown",
	"vue":      "vue",
	"svelte":   "svelte",
}

// knownLanguages is the closed set a rule file's stem is matched against.
var knownLanguages = buildKnownLanguages()

func buildKnownLanguages() map[string]bool {
	set := make(map[string]bool, len(languageByExtension))
	for _, lang := range languageByExtension {
		set[lang] = true
	}
	return set
}

// extensionToLanguage looks up the canonical language token for a lowercased
// file extension, or "" if there is none.
func extensionToLanguage(ext string) string {
	return languageByExtension[strings.ToLower(ext)]
}
