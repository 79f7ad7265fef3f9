package main

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"golang.org/x/term"

	"github.com/isometry/dirauth/internal/auth"
	"github.com/isometry/dirauth/internal/config"
	"github.com/isometry/dirauth/internal/logging"
	"github.com/isometry/dirauth/internal/messages"
)

// exitError carries the process exit code for a completed check:
// 1 for a rejected attempt, 2 when the directory could not be reached.
type exitError struct {
	code    int
	message string
}

func (e *exitError) Error() string { return e.message }

// newCheckCmd creates the check subcommand.
func newCheckCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "check <username>",
		Short: "Check a username and password against the directory",
		Long: `Check a username and password against the configured directory.
The password is prompted for on a terminal, or read from stdin
otherwise. Exit code 0 means the credentials were accepted, 1 means
they were rejected, 2 means the directory was unavailable.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runCheck(cmd, args[0])
		},
	}

	flags := cmd.Flags()
	flags.String("url", "", "directory server URL (ldap:// or ldaps://)")
	flags.String("domain", "", "domain for DNS SRV server discovery")
	flags.String("base_dn", "", "base DN for user searches")
	flags.String("filter", "", "user search filter template")
	flags.Duration("timeout", 0, "per-operation timeout")
	flags.Bool("start_tls", true, "upgrade plain connections with StartTLS")
	flags.String("ca_cert_file", "", "PEM bundle of trusted CA certificates")
	flags.String("messages_file", "", "XML error-message catalog")
	flags.String("bind.dn", "", "service bind DN for the search phase")
	flags.String("bind.password", "", "service bind password")

	return cmd
}

func runCheck(cmd *cobra.Command, username string) error {
	logging.SetDefault("dirauth", cmd.Root().Version, logFormat, logging.ParseLevel(logLevel))
	log := slog.Default()

	endpoint, err := config.Load(configFile, cmd.Flags())
	if err != nil {
		return err
	}

	catalog, err := loadCatalog(endpoint.MessagesFile)
	if err != nil {
		return err
	}

	password, err := readPassword(cmd)
	if err != nil {
		return fmt.Errorf("failed to read password: %w", err)
	}

	svc, err := auth.NewService(endpoint, catalog, log)
	if err != nil {
		return err
	}

	ctx, cancel := checkContext(cmd.Context(), endpoint.Timeout)
	defer cancel()

	result := svc.Authenticate(ctx, username, password)
	if result.Succeeded {
		cmd.Printf("accepted: %s <%s>\n", result.FullName, result.Email)
		return nil
	}

	code := 1
	if result.Reason == auth.ReasonUnavailable {
		code = 2
	}
	return &exitError{code: code, message: result.Message}
}

// loadCatalog reads the message catalog; a missing path means raw
// messages pass through untranslated.
func loadCatalog(path string) (auth.Translator, error) {
	if path == "" {
		return nil, nil
	}
	catalog, err := messages.Load(path)
	if err != nil {
		return nil, fmt.Errorf("failed to load message catalog: %w", err)
	}
	return catalog, nil
}

// readPassword prompts on a terminal without echo, and otherwise reads
// one line from stdin so the command can be scripted.
func readPassword(cmd *cobra.Command) (string, error) {
	stdin, isFile := cmd.InOrStdin().(*os.File)
	if isFile && term.IsTerminal(int(stdin.Fd())) {
		fmt.Fprint(cmd.ErrOrStderr(), "Password: ")
		secret, err := term.ReadPassword(int(stdin.Fd()))
		fmt.Fprintln(cmd.ErrOrStderr())
		if err != nil {
			return "", err
		}
		return string(secret), nil
	}

	line, err := bufio.NewReader(cmd.InOrStdin()).ReadString('\n')
	if err != nil && err != io.EOF {
		return "", err
	}
	return strings.TrimRight(line, "\r\n"), nil
}

// checkContext bounds the whole check and cancels on interrupt. Twice
// the per-operation timeout gives the second connection of
// search-then-bind room after a slow first phase.
func checkContext(parent context.Context, timeout time.Duration) (context.Context, context.CancelFunc) {
	if parent == nil {
		parent = context.Background()
	}
	ctx, cancelTimeout := context.WithTimeout(parent, 2*timeout)
	ctx, cancelSignal := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	return ctx, func() {
		cancelSignal()
		cancelTimeout()
	}
}
