package fleet

import (
	"regexp"
	"strings"
)

const renderedLineSeparatorConstant = "\n"

var logLineBreakPattern = regexp.MustCompile(`\r?\n`)

// ReconciliationLog accumulates the status lines of one reconciliation. It is owned by a
// single reconciliation and is not safe for concurrent use.
type ReconciliationLog struct {
	lines []string
}

// Append records message, splitting it on line breaks and prefixing every line with
// indentLevel spaces.
func (reconciliationLog *ReconciliationLog) Append(message string, indentLevel int) {
	if indentLevel < 0 {
		indentLevel = 0
	}
	indentation := strings.Repeat(" ", indentLevel)
	for _, line := range logLineBreakPattern.Split(message, -1) {
		reconciliationLog.lines = append(reconciliationLog.lines, indentation+line)
	}
}

// Lines returns a copy of the recorded lines.
func (reconciliationLog *ReconciliationLog) Lines() []string {
	return append([]string(nil), reconciliationLog.lines...)
}

// Render joins the recorded lines with newlines.
func (reconciliationLog *ReconciliationLog) Render() string {
	return strings.Join(reconciliationLog.lines, renderedLineSeparatorConstant)
}
