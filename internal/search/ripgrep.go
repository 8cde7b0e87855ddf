package search

import (
	"bufio"
	"context"
	"encoding/json"
	"fmt"
	"os/exec"
	"strings"
)

// rgEvent is one line of `rg --json` output. Only "match" events carry
// result data; begin/end/summary events are skipped.
type rgEvent struct {
	Type string `json:"type"`
	Data rgData `json:"data"`
}

type rgData struct {
	Path       rgText       `json:"path"`
	Lines      rgText       `json:"lines"`
	LineNumber int          `json:"line_number"`
	Submatches []rgSubmatch `json:"submatches"`
}

type rgText struct {
	Text string `json:"text"`
}

type rgSubmatch struct {
	Match rgText `json:"match"`
	Start int    `json:"start"`
	End   int    `json:"end"`
}

// runRipgrep executes one rg process and feeds every match to emit.
// emit returns false to stop early (cap reached, stream cancelled); the
// process is then killed via the context.
//
// Exit code 1 means "no matches" and is not an error. Exit code 2 is a
// real failure and carries rg's stderr.
func runRipgrep(ctx context.Context, rgPath string, q Query, excludes []string, emit func(Match) bool) error {
	args := []string{
		"--json",
		"--no-messages",
		"--max-count", fmt.Sprintf("%d", q.MaxMatches),
	}
	for _, dir := range excludes {
		args = append(args, "-g", "!"+dir)
	}
	args = append(args, "-e", q.Pattern, q.Dir)

	cmd := exec.CommandContext(ctx, rgPath, args...)

	stdout, err := cmd.StdoutPipe()
	if err != nil {
		return fmt.Errorf("rg stdout pipe: %w", err)
	}
	var stderr strings.Builder
	cmd.Stderr = &stderr

	if err := cmd.Start(); err != nil {
		return fmt.Errorf("rg start: %w", err)
	}

	stopped := false
	scanner := bufio.NewScanner(stdout)
	scanner.Buffer(make([]byte, 64*1024), 1024*1024)
	for scanner.Scan() {
		m, ok := parseMatchEvent(scanner.Bytes())
		if !ok {
			continue
		}
		if !emit(m) {
			stopped = true
			_ = cmd.Process.Kill()
			break
		}
	}

	waitErr := cmd.Wait()
	if stopped {
		return nil
	}
	if ctx.Err() != nil {
		return ctx.Err()
	}
	if waitErr != nil {
		if exitErr, ok := waitErr.(*exec.ExitError); ok {
			switch exitErr.ExitCode() {
			case 1:
				// No matches found; a valid empty result.
				return nil
			case 2:
				return fmt.Errorf("rg failed: %s", firstLine(stderr.String()))
			}
		}
		return fmt.Errorf("rg: %w", waitErr)
	}
	return nil
}

// parseMatchEvent decodes a single rg JSON line into a Match. Lines
// that are not match events (or fail to parse) are skipped.
func parseMatchEvent(line []byte) (Match, bool) {
	var ev rgEvent
	if err := json.Unmarshal(line, &ev); err != nil || ev.Type != "match" {
		return Match{}, false
	}

	m := Match{
		Path: ev.Data.Path.Text,
		Line: ev.Data.LineNumber,
		Text: strings.TrimRight(ev.Data.Lines.Text, "\r\n"),
	}
	if len(ev.Data.Submatches) > 0 {
		sm := ev.Data.Submatches[0]
		m.Column = sm.Start
		m.Word = sm.Match.Text
	}
	return m, true
}

func firstLine(s string) string {
	s = strings.TrimSpace(s)
	if i := strings.IndexByte(s, '\n'); i >= 0 {
		return s[:i]
	}
	if s == "" {
		return "exit status 2"
	}
	return s
}
