package cli

import (
	"bufio"
	"fmt"
	"os"
	"strings"

	"golang.org/x/term"

	"github.com/creativeflow/creative-int/internal/naming"
)

// stdinPrompter collects folder metadata defaults interactively. It satisfies
// the ingest prompter so new source folders can be described once and reused.
type stdinPrompter struct {
	reader *bufio.Reader
}

func newStdinPrompter() *stdinPrompter {
	return &stdinPrompter{reader: bufio.NewReader(os.Stdin)}
}

func (p *stdinPrompter) FolderDefaults(folder string) (naming.FolderDefaults, error) {
	fmt.Printf("\nNew source folder %q has no metadata defaults yet.\n", folder)

	category, err := p.ask("Category", folder)
	if err != nil {
		return naming.FolderDefaults{}, err
	}
	creator, err := p.ask("Creator name", "UNK")
	if err != nil {
		return naming.FolderDefaults{}, err
	}
	language, err := p.ask("Language", "EN")
	if err != nil {
		return naming.FolderDefaults{}, err
	}
	contentType, err := p.ask("Content type (SFW/NSFW)", "SFW")
	if err != nil {
		return naming.FolderDefaults{}, err
	}
	description, err := p.ask("Description", "Generic")
	if err != nil {
		return naming.FolderDefaults{}, err
	}

	return naming.FolderDefaults{
		CategoryName: category,
		CreatorName:  creator,
		Language:     language,
		ContentType:  contentType,
		Description:  description,
	}, nil
}

func (p *stdinPrompter) ask(label, fallback string) (string, error) {
	fmt.Printf("  %s [%s]: ", label, fallback)
	input, err := p.reader.ReadString('\n')
	if err != nil {
		return "", err
	}
	input = strings.TrimSpace(input)
	if input == "" {
		return fallback, nil
	}
	return input, nil
}

// promptPassword reads a password without echoing when stdin is a terminal,
// falling back to a plain line read otherwise (pipes, CI).
func promptPassword(label string) (string, error) {
	fmt.Fprint(os.Stderr, label)

	fd := int(os.Stdin.Fd())
	if term.IsTerminal(fd) {
		data, err := term.ReadPassword(fd)
		fmt.Fprintln(os.Stderr)
		if err != nil {
			return "", err
		}
		return string(data), nil
	}

	reader := bufio.NewReader(os.Stdin)
	line, err := reader.ReadString('\n')
	if err != nil {
		return "", err
	}
	return strings.TrimSpace(line), nil
}
