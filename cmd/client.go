/*
Copyright © 2026 NAME HERE <EMAIL ADDRESS>
*/
package cmd

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"github.com/baymax-health/apiserver/internal/client"
	"github.com/spf13/cobra"
	"golang.org/x/term"
)

var (
	apiURL      string
	sessionPath string
	clientTZ    string
)

func init() {
	rootCmd.PersistentFlags().StringVar(&apiURL, "api", "", "API base URL (default from session, then BAYMAX_API_URL, then "+client.DefaultBaseURL+")")
	rootCmd.PersistentFlags().StringVar(&sessionPath, "session", "", "Path to the session file (default in the user config dir)")
	rootCmd.PersistentFlags().StringVar(&clientTZ, "timezone", "UTC", "Time zone the server keys intake days in")
}

func resolveSessionPath() (string, error) {
	if sessionPath != "" {
		return sessionPath, nil
	}
	return client.DefaultSessionPath()
}

func resolveAPIURL(s client.Session) string {
	if apiURL != "" {
		return apiURL
	}
	if s.BaseURL != "" {
		return s.BaseURL
	}
	if env := strings.TrimSpace(os.Getenv("BAYMAX_API_URL")); env != "" {
		return env
	}
	return client.DefaultBaseURL
}

// withSession runs fn with an authenticated client for the saved session.
func withSession(fn func(s client.Session, api *client.Client) error) error {
	path, err := resolveSessionPath()
	if err != nil {
		return err
	}
	s, err := client.LoadSession(path)
	if err != nil {
		if errors.Is(err, client.ErrNoSession) {
			return errors.New("not logged in, run `baymax login` first")
		}
		return err
	}
	s.BaseURL = resolveAPIURL(s)
	return fn(s, s.Client())
}

func clientLocation() (*time.Location, error) {
	loc, err := time.LoadLocation(clientTZ)
	if err != nil {
		return nil, fmt.Errorf("invalid --timezone %q: %w", clientTZ, err)
	}
	return loc, nil
}

func promptLine(cmd *cobra.Command, reader *bufio.Reader, label string) (string, error) {
	fmt.Fprintf(cmd.ErrOrStderr(), "%s: ", label)
	line, err := reader.ReadString('\n')
	if err != nil && !(errors.Is(err, io.EOF) && line != "") {
		return "", fmt.Errorf("read %s: %w", strings.ToLower(label), err)
	}
	return strings.TrimSpace(line), nil
}

// promptPassword reads a password without echo when stdin is a terminal.
func promptPassword(cmd *cobra.Command, reader *bufio.Reader, label string) (string, error) {
	fd := int(os.Stdin.Fd())
	if cmd.InOrStdin() != os.Stdin || !term.IsTerminal(fd) {
		return promptLine(cmd, reader, label)
	}
	fmt.Fprintf(cmd.ErrOrStderr(), "%s: ", label)
	raw, err := term.ReadPassword(fd)
	fmt.Fprintln(cmd.ErrOrStderr())
	if err != nil {
		return "", fmt.Errorf("read %s: %w", strings.ToLower(label), err)
	}
	return string(raw), nil
}
