package telegram

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/gotd/td/telegram/auth"
	"github.com/gotd/td/tg"
	"golang.org/x/term"
)

// TerminalAuth asks for missing credentials on the terminal.
// Phone and password from configuration are used without prompting.
type TerminalAuth struct {
	phone    string
	password string
	in       *bufio.Reader
	out      io.Writer
}

var _ auth.UserAuthenticator = (*TerminalAuth)(nil)

// NewTerminalAuth creates a terminal authenticator on stdin/stdout
func NewTerminalAuth(phone, password string) *TerminalAuth {
	return &TerminalAuth{
		phone:    phone,
		password: password,
		in:       bufio.NewReader(os.Stdin),
		out:      os.Stdout,
	}
}

func (a *TerminalAuth) Phone(ctx context.Context) (string, error) {
	if a.phone != "" {
		return a.phone, nil
	}
	return a.prompt("Phone number (international format): ")
}

func (a *TerminalAuth) Password(ctx context.Context) (string, error) {
	if a.password != "" {
		return a.password, nil
	}
	fd := int(os.Stdin.Fd())
	if !term.IsTerminal(fd) {
		return a.prompt("2FA password: ")
	}
	fmt.Fprint(a.out, "2FA password: ")
	b, err := term.ReadPassword(fd)
	fmt.Fprintln(a.out)
	if err != nil {
		return "", fmt.Errorf("read password: %w", err)
	}
	return strings.TrimSpace(string(b)), nil
}

func (a *TerminalAuth) Code(ctx context.Context, sentCode *tg.AuthSentCode) (string, error) {
	return a.prompt("Login code: ")
}

func (a *TerminalAuth) AcceptTermsOfService(ctx context.Context, tos tg.HelpTermsOfService) error {
	return &auth.SignUpRequired{TermsOfService: tos}
}

func (a *TerminalAuth) SignUp(ctx context.Context) (auth.UserInfo, error) {
	return auth.UserInfo{}, errors.New("sign up is not supported, register the account in an official app first")
}

func (a *TerminalAuth) prompt(label string) (string, error) {
	fmt.Fprint(a.out, label)
	line, err := a.in.ReadString('\n')
	if err != nil && !(errors.Is(err, io.EOF) && line != "") {
		return "", fmt.Errorf("read %s: %w", strings.TrimSuffix(strings.ToLower(label), ": "), err)
	}
	return strings.TrimSpace(line), nil
}
