package keystore

import (
	"errors"
	"fmt"
	"os"

	"golang.org/x/term"
)

// PromptPassword reads a password from the terminal without echo. With
// confirm set the password is asked twice and both entries must match.
func PromptPassword(prompt string, confirm bool) ([]byte, error) {
	fd := int(os.Stdin.Fd())
	if !term.IsTerminal(fd) {
		return nil, errors.New("stdin is not a terminal: set the password through the environment")
	}

	password, err := readPassword(fd, prompt)
	if err != nil {
		return nil, err
	}
	if !confirm {
		return password, nil
	}

	again, err := readPassword(fd, "Repeat password: ")
	if err != nil {
		clear(password)
		return nil, err
	}
	defer clear(again)
	if string(again) != string(password) {
		clear(password)
		return nil, errors.New("passwords do not match")
	}
	return password, nil
}

func readPassword(fd int, prompt string) ([]byte, error) {
	fmt.Fprint(os.Stderr, prompt)
	defer fmt.Fprintln(os.Stderr)

	raw, err := term.ReadPassword(fd)
	if err != nil {
		return nil, fmt.Errorf("read password: %w", err)
	}
	if len(raw) == 0 {
		return nil, errors.New("password cannot be empty")
	}
	return raw, nil
}

// ResolvePassword returns configured when set and prompts otherwise.
func ResolvePassword(configured string, confirm bool) ([]byte, error) {
	if configured != "" {
		return []byte(configured), nil
	}
	return PromptPassword("Keystore password: ", confirm)
}
