package main

import (
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/spf13/pflag"
	"golang.org/x/term"

	"github.com/outjet/garage-api/internal/service/auth"
)

// readPassword is replaced in tests to avoid touching the terminal
var readPassword = func() ([]byte, error) {
	return term.ReadPassword(int(os.Stdin.Fd()))
}

func runHashPassword(args []string, stdout io.Writer, stderr io.Writer) error {
	fs := pflag.NewFlagSet("hash-password", pflag.ContinueOnError)
	useArgon := fs.Bool("argon2", false, "Use argon2id instead of bcrypt")
	if err := fs.Parse(args); err != nil {
		return err
	}

	password, err := promptPassword(stderr, "Password: ")
	if err != nil {
		return err
	}
	confirm, err := promptPassword(stderr, "Repeat password: ")
	if err != nil {
		return err
	}
	if password != confirm {
		return errors.New("passwords do not match")
	}

	var hasher auth.PasswordHasher = auth.DefaultHasher
	if *useArgon {
		hasher = auth.Argon2Hasher{}
	}

	hash, err := hasher.Hash(password)
	if err != nil {
		return fmt.Errorf("error while hashing password. Err: %w", err)
	}

	_, err = fmt.Fprintln(stdout, hash)
	return err
}

// Prompt goes to stderr so stdout holds the hash only
func promptPassword(w io.Writer, prompt string) (string, error) {
	fmt.Fprint(w, prompt)
	pw, err := readPassword()
	fmt.Fprintln(w)
	if err != nil {
		return "", fmt.Errorf("error while reading password. Err: %w", err)
	}
	if len(pw) == 0 {
		return "", errors.New("password must not be empty")
	}
	return string(pw), nil
}
