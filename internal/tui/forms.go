package tui

import (
	"errors"

	"github.com/charmbracelet/huh"
)

// SelectOption is one choice in a Select prompt. Value is what the
// caller gets back; Label is what the user sees.
type SelectOption struct {
	Value string
	Label string
}

// Confirm asks a yes/no question. On error (including the user
// aborting the prompt) the provided default is returned.
func Confirm(message string, defaultValue bool) (bool, error) {
	var answer bool
	err := huh.NewConfirm().
		Title(message).
		Affirmative("Yes").
		Negative("No").
		Value(&answer).
		Run()
	if err != nil {
		return defaultValue, err
	}
	return answer, nil
}

// ConfirmDangerous asks for confirmation before an irreversible
// action, such as deleting a document or discarding a draft.
func ConfirmDangerous(message string) (bool, error) {
	var answer bool
	err := huh.NewConfirm().
		Title(message).
		Description("This action cannot be undone.").
		Affirmative("Yes, I'm sure").
		Negative("Cancel").
		Value(&answer).
		Run()
	if err != nil {
		return false, err
	}
	return answer, nil
}

// Input prompts for a single line of text. An empty answer is allowed.
func Input(title, placeholder string) (string, error) {
	var answer string
	err := huh.NewInput().
		Title(title).
		Placeholder(placeholder).
		Value(&answer).
		Run()
	return answer, err
}

// InputRequired prompts for a single line of text and keeps the prompt
// open until the user types something.
func InputRequired(title, placeholder string) (string, error) {
	var answer string
	err := huh.NewInput().
		Title(title).
		Placeholder(placeholder).
		Value(&answer).
		Validate(func(s string) error {
			if s == "" {
				return errors.New("this field is required")
			}
			return nil
		}).
		Run()
	return answer, err
}

// Select prompts the user to pick one option and returns its Value.
func Select(title string, options []SelectOption) (string, error) {
	choices := make([]huh.Option[string], len(options))
	for i, opt := range options {
		choices[i] = huh.NewOption(opt.Label, opt.Value)
	}

	var answer string
	err := huh.NewSelect[string]().
		Title(title).
		Options(choices...).
		Value(&answer).
		Run()
	return answer, err
}

// SelectScope asks whether a config value should be written to the
// local project config or the global one. Returns "local" or "global".
func SelectScope() (string, error) {
	return Select("Where should this be saved?", []SelectOption{
		{Value: "local", Label: "Local (.inkwell/config.json)"},
		{Value: "global", Label: "Global (~/.config/inkwell/config.json)"},
	})
}
