package resolve

import (
	"bufio"
	"os"
	"strings"
	"unicode"

	"strata/internal/errors"
	"strata/internal/paths"
)

// validate checks a request and fills in a missing identifier from the
// word under the cursor at uri:position. Returns a ValidationError when
// neither route yields a symbol.
func (o *Orchestrator) validate(req *Request) error {
	if req.Identifier != "" {
		return nil
	}
	if strings.TrimSpace(req.URI) == "" {
		return errors.NewValidationError("request needs an identifier or a uri with a position")
	}

	word, err := wordAt(paths.URIToPath(req.URI, o.workspaceRoot), req.Position.Line, req.Position.Character)
	if err != nil || word == "" {
		return errors.NewValidationError("no symbol at the given position")
	}
	req.Identifier = word
	return nil
}

// wordAt reads one line of a file and returns the identifier-like word
// covering the 0-based character offset.
func wordAt(path string, line, character int) (string, error) {
	f, err := os.Open(path)
	if err != nil {
		return "", err
	}
	defer f.Close()

	scanner := bufio.NewScanner(f)
	scanner.Buffer(make([]byte, 64*1024), 1024*1024)
	current := 0
	for scanner.Scan() {
		if current == line {
			return wordIn(scanner.Text(), character), scanner.Err()
		}
		current++
	}
	return "", scanner.Err()
}

func wordIn(text string, character int) string {
	if character < 0 || character >= len(text) {
		return ""
	}
	isWord := func(b byte) bool {
		return b == '_' || unicode.IsLetter(rune(b)) || unicode.IsDigit(rune(b))
	}
	if !isWord(text[character]) {
		return ""
	}

	start := character
	for start > 0 && isWord(text[start-1]) {
		start--
	}
	end := character
	for end < len(text) && isWord(text[end]) {
		end++
	}
	return text[start:end]
}
