// Package prompt wraps manifoldco/promptui for the handful of interactive
// prompts the client CLI needs (server URL, username, password).
package prompt

import (
	"errors"
	"fmt"

	"github.com/manifoldco/promptui"
)

// ErrAborted is returned when the user cancels a prompt (Ctrl+C).
var ErrAborted = errors.New("aborted")

func wrapError(err error) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, promptui.ErrInterrupt) || errors.Is(err, promptui.ErrAbort) {
		return ErrAborted
	}
	return err
}

// Input prompts for a line of text, falling back to defaultValue on an
// empty response.
func Input(label, defaultValue string) (string, error) {
	prompt := promptui.Prompt{Label: label, Default: defaultValue}
	result, err := prompt.Run()
	return result, wrapError(err)
}

// InputRequired prompts for text that cannot be left blank.
func InputRequired(label string) (string, error) {
	prompt := promptui.Prompt{
		Label: label,
		Validate: func(input string) error {
			if input == "" {
				return fmt.Errorf("%s is required", label)
			}
			return nil
		},
	}
	result, err := prompt.Run()
	return result, wrapError(err)
}

// Password prompts for masked input.
func Password(label string) (string, error) {
	prompt := promptui.Prompt{Label: label, Mask: '*'}
	result, err := prompt.Run()
	return result, wrapError(err)
}

// PasswordWithConfirmation prompts twice and fails if the two don't match.
func PasswordWithConfirmation(label, confirmLabel string) (string, error) {
	password, err := Password(label)
	if err != nil {
		return "", err
	}
	confirm, err := Password(confirmLabel)
	if err != nil {
		return "", err
	}
	if password != confirm {
		return "", errors.New("passwords do not match")
	}
	return password, nil
}
