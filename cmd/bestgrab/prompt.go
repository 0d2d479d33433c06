package main

import (
	"bufio"
	"fmt"
	"io"
	"strings"

	"github.com/cockroachdb/errors"
)

type prompter struct {
	in  *bufio.Reader
	out io.Writer
}

func newPrompter(in io.Reader, out io.Writer) *prompter {
	return &prompter{in: bufio.NewReader(in), out: out}
}

// ask prints question and returns the trimmed answer line. A final line
// without a newline is accepted.
func (p *prompter) ask(question string) (string, error) {
	fmt.Fprint(p.out, question)
	line, err := p.in.ReadString('\n')
	if err != nil && !(errors.Is(err, io.EOF) && line != "") {
		return "", errors.Wrap(err, "read answer")
	}
	return strings.TrimSpace(line), nil
}

// yes asks a Y/N question. Only "y" or "Y" counts as yes.
func (p *prompter) yes(question string) (bool, error) {
	answer, err := p.ask(question)
	if err != nil {
		return false, err
	}
	return strings.ToUpper(answer) == "Y", nil
}
