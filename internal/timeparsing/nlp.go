package timeparsing

import (
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/olebedev/when"
	"github.com/olebedev/when/rules/common"
	"github.com/olebedev/when/rules/en"
)

var (
	nlpOnce   sync.Once
	nlpParser *when.Parser
)

func parser() *when.Parser {
	nlpOnce.Do(func() {
		nlpParser = when.New(nil)
		nlpParser.Add(en.All...)
		nlpParser.Add(common.All...)
	})
	return nlpParser
}

// ParseNaturalLanguage parses phrases like "tomorrow", "next monday", or
// "in 3 days" relative to the given base time. The whole input must be
// consumed; trailing garbage is an error.
func ParseNaturalLanguage(s string, now time.Time) (time.Time, error) {
	trimmed := strings.TrimSpace(s)
	if trimmed == "" {
		return time.Time{}, fmt.Errorf("empty time expression")
	}

	r, err := parser().Parse(trimmed, now)
	if err != nil {
		return time.Time{}, fmt.Errorf("parsing %q: %w", s, err)
	}
	if r == nil {
		return time.Time{}, fmt.Errorf("unrecognized time expression: %q", s)
	}
	if r.Index != 0 || strings.TrimSpace(trimmed[len(r.Text):]) != "" {
		return time.Time{}, fmt.Errorf("unrecognized time expression: %q", s)
	}

	return r.Time, nil
}
