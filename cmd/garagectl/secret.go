package main

import (
	"crypto/rand"
	"encoding/hex"
	"fmt"
	"io"

	"github.com/spf13/pflag"
)

const defaultSecretBytes = 32

func runSecret(args []string, stdout io.Writer) error {
	fs := pflag.NewFlagSet("secret", pflag.ContinueOnError)
	size := fs.IntP("bytes", "n", defaultSecretBytes, "Number of random bytes")
	if err := fs.Parse(args); err != nil {
		return err
	}
	if *size < 16 {
		return fmt.Errorf("secret must be at least 16 bytes, got %d", *size)
	}

	b := make([]byte, *size)
	if _, err := rand.Read(b); err != nil {
		return fmt.Errorf("error while generating secret key. Err: %w", err)
	}

	_, err := fmt.Fprintln(stdout, hex.EncodeToString(b))
	return err
}
