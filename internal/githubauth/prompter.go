package githubauth

import (
	"bufio"
	"io"
	"strings"
)

// IOTokenPrompter asks for a token on a reader/writer pair.
type IOTokenPrompter struct {
	reader *bufio.Reader
	writer io.Writer
}

// NewIOTokenPrompter constructs a prompter from the provided reader and writer.
func NewIOTokenPrompter(input io.Reader, output io.Writer) *IOTokenPrompter {
	return &IOTokenPrompter{reader: bufio.NewReader(input), writer: output}
}

// Prompt writes the guidance text and returns the trimmed first line of input.
func (prompter *IOTokenPrompter) Prompt(guidance string) (string, error) {
	if prompter.writer != nil {
		if _, writeError := io.WriteString(prompter.writer, guidance); writeError != nil {
			return "", writeError
		}
	}

	response, readError := prompter.reader.ReadString('\n')
	if readError != nil && readError != io.EOF {
		return "", readError
	}
	return strings.TrimSpace(response), nil
}
