package cli

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/spf13/cobra"
	"golang.org/x/term"
)

// prompter reads answers from the command's input, hiding secrets when the
// input is a terminal. Prompts go to stderr so stdout carries only results.
type prompter struct {
	cmd    *cobra.Command
	reader *bufio.Reader
}

func newPrompter(cmd *cobra.Command) *prompter {
	return &prompter{cmd: cmd, reader: bufio.NewReader(cmd.InOrStdin())}
}

func (p *prompter) line(label string) (string, error) {
	fmt.Fprint(p.cmd.ErrOrStderr(), label)
	input, err := p.reader.ReadString('\n')
	if err != nil && !(errors.Is(err, io.EOF) && input != "") {
		return "", err
	}
	return strings.TrimSpace(input), nil
}

func (p *prompter) required(label, value string) (string, error) {
	if value = strings.TrimSpace(value); value != "" {
		return value, nil
	}
	value, err := p.line(label)
	if err != nil {
		return "", err
	}
	if value == "" {
		return "", fmt.Errorf("%s is required", strings.TrimSuffix(strings.TrimSpace(label), ":"))
	}
	return value, nil
}

func (p *prompter) password(label string) (string, error) {
	if f, ok := p.cmd.InOrStdin().(*os.File); ok && term.IsTerminal(int(f.Fd())) {
		fmt.Fprint(p.cmd.ErrOrStderr(), label)
		secret, err := term.ReadPassword(int(f.Fd()))
		fmt.Fprintln(p.cmd.ErrOrStderr())
		if err != nil {
			return "", fmt.Errorf("read password: %w", err)
		}
		if len(secret) == 0 {
			return "", errors.New("password is required")
		}
		return string(secret), nil
	}
	return p.required(label, "")
}
