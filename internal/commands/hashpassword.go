package commands

import (
	"bufio"
	"errors"
	"flag"
	"fmt"
	"io"
	"os"
	"strings"

	"golang.org/x/term"

	"github.com/klabast/wb-services/admission-board/internal/app"
)

// MinPasswordLength is the shortest admin password accepted
const MinPasswordLength = 12

// HashPassword handles the hash-password subcommand
func HashPassword(args []string) {
	fs := flag.NewFlagSet("hash-password", flag.ExitOnError)
	overwrite := fs.Bool("overwrite", false, "Overwrite existing auth file without asking")
	insecureUnmask := fs.Bool("insecure-unmask-password", false, "Show password as plain text (INSECURE!)")
	file := fs.String("file", "", "Auth file to write (default: auth.secret next to the binary)")
	fs.Usage = func() {
		fmt.Fprintf(os.Stderr, "Usage: admission-board hash-password [OPTIONS]\n\n")
		fmt.Fprintf(os.Stderr, "Creates the admin auth file with a hashed password (Argon2id).\n\n")
		fmt.Fprintf(os.Stderr, "Options:\n")
		fs.PrintDefaults()
		fmt.Fprintf(os.Stderr, "\nEnvironment Variables:\n")
		fmt.Fprintf(os.Stderr, "  AUTH_FILE    Path to auth file, overrides -file\n")
	}
	fs.Parse(args)

	if err := hashPassword(*file, *overwrite, *insecureUnmask); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func hashPassword(file string, overwrite, unmasked bool) error {
	authFile, err := app.ResolveAuthFile(file)
	if err != nil {
		return err
	}

	prompt := prompter{
		in:       bufio.NewReader(os.Stdin),
		out:      os.Stdout,
		unmasked: unmasked || !term.IsTerminal(int(os.Stdin.Fd())),
	}
	if unmasked {
		fmt.Fprintf(os.Stderr, "WARNING: Password will be visible on screen!\n")
	}
	return writeAuthFile(prompt, authFile, overwrite)
}

// writeAuthFile asks for the credentials and, when authFile exists, for
// permission to replace it. Every answer comes from the same prompter.
func writeAuthFile(prompt prompter, authFile string, overwrite bool) error {
	username, err := prompt.line("Enter username: ")
	if err != nil {
		return fmt.Errorf("reading username: %w", err)
	}
	password, err := prompt.secret("Enter password:   ")
	if err != nil {
		return fmt.Errorf("reading password: %w", err)
	}
	confirm, err := prompt.secret("Confirm password: ")
	if err != nil {
		return fmt.Errorf("reading password confirmation: %w", err)
	}

	if err := checkCredentials(username, password, confirm); err != nil {
		return err
	}

	if _, err := os.Stat(authFile); err == nil && !overwrite {
		fmt.Fprintf(prompt.out, "Auth file already exists: %s\n", authFile)
		answer, err := prompt.line("Overwrite? (y/N): ")
		if err != nil && !errors.Is(err, io.EOF) {
			return fmt.Errorf("reading confirmation: %w", err)
		}
		if answer = strings.ToLower(answer); answer != "y" && answer != "yes" {
			return errors.New("aborted")
		}
		overwrite = true
	}
	return app.CreateAuthFile(authFile, username, password, overwrite)
}

// checkCredentials rejects input the auth file format or policy cannot hold
func checkCredentials(username, password, confirm string) error {
	switch {
	case username == "":
		return errors.New("username cannot be empty")
	case strings.ContainsAny(username, ": \t"):
		return errors.New("username cannot contain colons or whitespace")
	case password == "":
		return errors.New("password cannot be empty")
	case len(password) < MinPasswordLength:
		return fmt.Errorf("password must be at least %d characters", MinPasswordLength)
	case password != confirm:
		return errors.New("passwords do not match")
	}
	return nil
}

// prompter reads answers from a terminal or a pipe
type prompter struct {
	in       *bufio.Reader
	out      io.Writer
	unmasked bool
}

func (p prompter) line(label string) (string, error) {
	fmt.Fprint(p.out, label)
	s, err := p.in.ReadString('\n')
	if err != nil && !(errors.Is(err, io.EOF) && s != "") {
		return "", err
	}
	return strings.TrimSpace(s), nil
}

// secret reads without echo when stdin is a terminal
func (p prompter) secret(label string) (string, error) {
	if p.unmasked {
		return p.line(label)
	}
	fmt.Fprint(p.out, label)
	b, err := term.ReadPassword(int(os.Stdin.Fd()))
	fmt.Fprintln(p.out)
	if err != nil {
		return "", err
	}
	return string(b), nil
}
