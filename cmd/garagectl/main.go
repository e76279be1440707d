// Command garagectl holds operator utilities for the garage api host.
//
//	garagectl secret                      print a random token signing key
//	garagectl hash-password [--argon2]    read password without echo, print its hash
//	garagectl pulse [--pin-door-control]  toggle the door once, sensors ignored
package main

import (
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/spf13/pflag"
)

const usage = `Usage: garagectl <command> [flags]

Commands:
  secret          print a random secret key for signing tokens
  hash-password   read a password and print its hash
  pulse           pulse the door relay once without checking sensors
`

var ErrUnknownCommand = errors.New("unknown command")

func main() {
	err := run(os.Args[1:], os.Stdout, os.Stderr)

	switch {
	case err == nil:
	case errors.Is(err, pflag.ErrHelp):
	default:
		fmt.Fprintln(os.Stderr, "garagectl:", err)
		os.Exit(1)
	}
}

func run(args []string, stdout io.Writer, stderr io.Writer) error {
	if len(args) == 0 {
		fmt.Fprint(stderr, usage)
		return ErrUnknownCommand
	}

	switch args[0] {
	case "secret":
		return runSecret(args[1:], stdout)
	case "hash-password":
		return runHashPassword(args[1:], stdout, stderr)
	case "pulse":
		return runPulse(args[1:], stderr)
	case "help", "-h", "--help":
		fmt.Fprint(stdout, usage)
		return nil
	default:
		fmt.Fprint(stderr, usage)
		return fmt.Errorf("%w: %s", ErrUnknownCommand, args[0])
	}
}
