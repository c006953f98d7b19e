package core

import (
	"strings"
)

// Language enumerates the source languages Omen's per-file analyzers
// understand directly. It is deliberately narrower than the tree-sitter
// grammar registry the parser layer otherwise has available (see
// internal/parser): complexity, SATD and mutation all key off this set.
type Language int

// Language constants, in declaration order matching original_source's enum.
const (
	LangUnknown Language = iota
	LangGo
	LangRust
	LangPython
	LangTypeScript
	LangJavaScript
	LangTSX
	LangJSX
	LangJava
	LangC
	LangCpp
	LangCSharp
	LangRuby
	LangPHP
	LangBash
)

// extensionTable maps lower-cased file extensions (without the dot) to a Language.
var extensionTable = map[string]Language{
	"go":      LangGo,
	"rs":      LangRust,
	"py":      LangPython,
	"pyi":     LangPython,
	"ts":      LangTypeScript,
	"mts":     LangTypeScript,
	"cts":     LangTypeScript,
	"js":      LangJavaScript,
	"mjs":     LangJavaScript,
	"cjs":     LangJavaScript,
	"tsx":     LangTSX,
	"jsx":     LangJSX,
	"java":    LangJava,
	"c":       LangC,
	"h":       LangC,
	"cpp":     LangCpp,
	"cc":      LangCpp,
	"cxx":     LangCpp,
	"hpp":     LangCpp,
	"hxx":     LangCpp,
	"hh":      LangCpp,
	"cs":      LangCSharp,
	"rb":      LangRuby,
	"rake":    LangRuby,
	"gemspec": LangRuby,
	"php":     LangPHP,
	"sh":      LangBash,
	"bash":    LangBash,
}

// DetectLanguage detects the Language of path from its extension, matching
// case-insensitively. Returns LangUnknown when the extension is absent or
// unrecognized; FileSet drops such paths per its scan contract.
func DetectLanguage(path string) Language {
	ext := extOf(path)
	if ext == "" {
		return LangUnknown
	}

	lang, ok := extensionTable[strings.ToLower(ext)]
	if !ok {
		return LangUnknown
	}

	return lang
}

func extOf(path string) string {
	slash := strings.LastIndexAny(path, "/\\")
	name := path
	if slash >= 0 {
		name = path[slash+1:]
	}

	dot := strings.LastIndex(name, ".")
	if dot < 0 || dot == len(name)-1 {
		return ""
	}

	return name[dot+1:]
}

// DisplayName returns the human-readable language name.
func (l Language) DisplayName() string {
	switch l {
	case LangGo:
		return "Go"
	case LangRust:
		return "Rust"
	case LangPython:
		return "Python"
	case LangTypeScript:
		return "TypeScript"
	case LangJavaScript:
		return "JavaScript"
	case LangTSX:
		return "TSX"
	case LangJSX:
		return "JSX"
	case LangJava:
		return "Java"
	case LangC:
		return "C"
	case LangCpp:
		return "C++"
	case LangCSharp:
		return "C#"
	case LangRuby:
		return "Ruby"
	case LangPHP:
		return "PHP"
	case LangBash:
		return "Bash"
	default:
		return "Unknown"
	}
}

func (l Language) String() string {
	return l.DisplayName()
}

// SupportsClasses reports whether the language has a class/OOP concept.
func (l Language) SupportsClasses() bool {
	switch l {
	case LangJava, LangCSharp, LangTypeScript, LangJavaScript, LangTSX, LangJSX,
		LangPython, LangRuby, LangPHP, LangCpp:
		return true
	default:
		return false
	}
}

// HasImports reports whether the language has an explicit import/include statement.
func (l Language) HasImports() bool {
	switch l {
	case LangC, LangCpp, LangBash:
		return false
	default:
		return l != LangUnknown
	}
}

// GlobPatterns returns the glob patterns matching source files of this language.
func (l Language) GlobPatterns() []string {
	switch l {
	case LangGo:
		return []string{"**/*.go"}
	case LangRust:
		return []string{"**/*.rs"}
	case LangPython:
		return []string{"**/*.py", "**/*.pyi"}
	case LangTypeScript:
		return []string{"**/*.ts", "**/*.mts", "**/*.cts"}
	case LangJavaScript:
		return []string{"**/*.js", "**/*.mjs", "**/*.cjs"}
	case LangTSX:
		return []string{"**/*.tsx"}
	case LangJSX:
		return []string{"**/*.jsx"}
	case LangJava:
		return []string{"**/*.java"}
	case LangC:
		return []string{"**/*.c", "**/*.h"}
	case LangCpp:
		return []string{"**/*.cpp", "**/*.cc", "**/*.cxx", "**/*.hpp", "**/*.hxx", "**/*.hh"}
	case LangCSharp:
		return []string{"**/*.cs"}
	case LangRuby:
		return []string{"**/*.rb", "**/*.rake", "**/*.gemspec"}
	case LangPHP:
		return []string{"**/*.php"}
	case LangBash:
		return []string{"**/*.sh", "**/*.bash"}
	default:
		return nil
	}
}

// commentPrefixes lists the line-comment markers used to estimate LOC,
// indexed by Language. Block-comment interiors are not tracked; this mirrors
// original_source's "simple per-language comment prefixes" LOC heuristic.
var commentPrefixes = map[Language][]string{
	LangGo:         {"//", "/*", "*"},
	LangRust:       {"//", "/*", "*"},
	LangJava:       {"//", "/*", "*"},
	LangC:          {"//", "/*", "*"},
	LangCpp:        {"//", "/*", "*"},
	LangCSharp:     {"//", "/*", "*"},
	LangTypeScript: {"//", "/*", "*"},
	LangJavaScript: {"//", "/*", "*"},
	LangTSX:        {"//", "/*", "*"},
	LangJSX:        {"//", "/*", "*"},
	LangPython:     {"#", `'''`, `"""`},
	LangRuby:       {"#"},
	LangPHP:        {"//", "/*", "*", "#"},
	LangBash:       {"#"},
}

// SourceFile is a path, its detected Language, and its byte content.
type SourceFile struct {
	Path     string
	Language Language
	Content  []byte
}

// NewSourceFile wraps content with its detected language. Returns an
// UnsupportedLanguage Error when the extension is not recognized.
func NewSourceFile(path string, content []byte) (*SourceFile, error) {
	lang := DetectLanguage(path)
	if lang == LangUnknown {
		return nil, UnsupportedLanguageError(path)
	}

	return &SourceFile{Path: path, Language: lang, Content: content}, nil
}

// LinesOfCode counts non-blank, non-comment lines using the language's
// comment-prefix table. Lines whose trimmed text starts with any configured
// prefix are skipped, matching original_source's `lines_of_code` heuristic.
func (sf *SourceFile) LinesOfCode() int {
	prefixes := commentPrefixes[sf.Language]
	count := 0

	for _, line := range strings.Split(string(sf.Content), "\n") {
		trimmed := strings.TrimSpace(line)
		if trimmed == "" {
			continue
		}

		skip := false

		for _, p := range prefixes {
			if strings.HasPrefix(trimmed, p) {
				skip = true

				break
			}
		}

		if !skip {
			count++
		}
	}

	return count
}
