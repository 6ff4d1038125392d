package apps

import (
	"fmt"
	"strings"

	ferrors "github.com/appdock/appdock/internal/foundation/errors"
)

// ScriptTranslator parses the supported installer-script subset:
//
//	# comment                 ignored
//	VERSION <marker>          at most once
//	ENV KEY=VALUE             repeatable, applies to install steps and launch
//	RUN <shell command>       repeatable, executed in order during install
//	LAUNCH <shell command>    at most once, how the app starts
//
// A bare non-empty line is shorthand for RUN. Shell control flow (if, for,
// while, case, functions) is outside the subset and yields a parse error
// rather than a half-translated recipe.
type ScriptTranslator struct{}

// NewScriptTranslator returns the default translator.
func NewScriptTranslator() *ScriptTranslator {
	return &ScriptTranslator{}
}

var unsupportedPrefixes = []string{"if ", "if[", "for ", "while ", "until ", "case ", "function ", "elif ", "else", "fi", "done", "esac"}

// Translate implements Translator.
func (t *ScriptTranslator) Translate(raw string) (Recipe, error) {
	var r Recipe
	sawVersion := false
	sawLaunch := false

	for i, line := range strings.Split(raw, "\n") {
		lineNo := i + 1
		line = strings.TrimSpace(line)
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}

		for _, p := range unsupportedPrefixes {
			if line == strings.TrimSpace(p) || strings.HasPrefix(line, p) {
				return Recipe{}, parseError(lineNo, fmt.Sprintf("shell control flow is not supported: %q", line))
			}
		}

		directive, rest, _ := strings.Cut(line, " ")
		rest = strings.TrimSpace(rest)

		switch directive {
		case "VERSION":
			if sawVersion {
				return Recipe{}, parseError(lineNo, "duplicate VERSION directive")
			}
			if rest == "" {
				return Recipe{}, parseError(lineNo, "VERSION requires a value")
			}
			sawVersion = true
			r.Version = rest
		case "ENV":
			if !strings.Contains(rest, "=") {
				return Recipe{}, parseError(lineNo, "ENV requires KEY=VALUE")
			}
			r.Env = append(r.Env, rest)
		case "RUN":
			if rest == "" {
				return Recipe{}, parseError(lineNo, "RUN requires a command")
			}
			r.Steps = append(r.Steps, rest)
		case "LAUNCH":
			if sawLaunch {
				return Recipe{}, parseError(lineNo, "duplicate LAUNCH directive")
			}
			if rest == "" {
				return Recipe{}, parseError(lineNo, "LAUNCH requires a command")
			}
			sawLaunch = true
			r.Launch = LaunchSpec{Command: rest}
		default:
			// Bare command line.
			r.Steps = append(r.Steps, line)
		}
	}

	r.Launch.Env = r.Env
	return r, nil
}

func parseError(line int, msg string) error {
	return ferrors.TranslateError(msg).WithContext("line", line).Build()
}
