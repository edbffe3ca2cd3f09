package tui

import (
	"fmt"
	"os"

	"github.com/AlecAivazis/survey/v2"
	"github.com/mattn/go-isatty"
)

// ErrInteractiveDisabled is returned when interactive prompts are disabled via LANDIT_TEST_NO_INTERACTIVE
var ErrInteractiveDisabled = fmt.Errorf("interactive prompts are disabled (LANDIT_TEST_NO_INTERACTIVE is set)")

// Prompter is the user-interaction contract consumed by the land engine.
// Injecting a scripted implementation makes the interactive decision points
// deterministic in tests.
type Prompter interface {
	// Confirm asks a yes/no question.
	Confirm(prompt string, defaultValue bool) (bool, error)
	// Select asks the user to pick one of options; returns the chosen option.
	Select(prompt string, options []string) (string, error)
}

// SurveyPrompter is the terminal implementation of Prompter.
type SurveyPrompter struct{}

// NewPrompter returns the terminal Prompter.
func NewPrompter() *SurveyPrompter {
	return &SurveyPrompter{}
}

func checkInteractiveAllowed() error {
	if os.Getenv("LANDIT_TEST_NO_INTERACTIVE") != "" {
		return ErrInteractiveDisabled
	}
	if !isatty.IsTerminal(os.Stdin.Fd()) && !isatty.IsCygwinTerminal(os.Stdin.Fd()) {
		return fmt.Errorf("cannot prompt: stdin is not a terminal")
	}
	return nil
}

// Confirm asks a yes/no question on the terminal.
func (p *SurveyPrompter) Confirm(prompt string, defaultValue bool) (bool, error) {
	if err := checkInteractiveAllowed(); err != nil {
		return false, err
	}

	confirmed := defaultValue
	question := &survey.Confirm{
		Message: prompt,
		Default: defaultValue,
	}
	if err := survey.AskOne(question, &confirmed); err != nil {
		return false, fmt.Errorf("canceled")
	}
	return confirmed, nil
}

// Select asks the user to pick one of options on the terminal.
func (p *SurveyPrompter) Select(prompt string, options []string) (string, error) {
	if err := checkInteractiveAllowed(); err != nil {
		return "", err
	}

	var choice string
	question := &survey.Select{
		Message: prompt,
		Options: options,
	}
	if err := survey.AskOne(question, &choice); err != nil {
		return "", fmt.Errorf("canceled")
	}
	return choice, nil
}
