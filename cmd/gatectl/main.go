// Command gatectl provisions accounts and maintains sessions for the credential gate.
//
//	gatectl useradd <username>
//	gatectl passwd <username>
//	gatectl sessions purge
package main

import (
	"bufio"
	"context"
	"crypto/subtle"
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/sirupsen/logrus"
	"golang.org/x/term"

	"credential-gate/internal/app"
	"credential-gate/internal/config"
	"credential-gate/internal/password"
	"credential-gate/internal/service"
	"credential-gate/internal/session"
)

const usage = `usage:
  gatectl useradd <username>
  gatectl passwd <username>
  gatectl sessions purge`

func main() {
	logger := logrus.New()
	logger.SetFormatter(&logrus.TextFormatter{FullTimestamp: true})
	logger.SetOutput(os.Stderr)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, os.Args[1:], logger); err != nil {
		logger.Error(err)
		os.Exit(1)
	}
}

func run(ctx context.Context, args []string, logger *logrus.Logger) error {
	if len(args) < 2 {
		return errors.New(usage)
	}

	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return fmt.Errorf("invalid config: %w", err)
	}

	stores, err := app.OpenStores(ctx, cfg)
	if err != nil {
		return fmt.Errorf("open stores: %w", err)
	}
	defer stores.Close()

	sessions, err := session.NewStore(stores.Sessions, session.Options{
		Secret: []byte(cfg.Auth.SessionSecret),
		TTL:    cfg.SessionTTL(),
	})
	if err != nil {
		return fmt.Errorf("setup session store: %w", err)
	}

	switch args[0] {
	case "useradd", "passwd":
		hasher, err := password.NewBcrypt(cfg.Auth.BcryptCost)
		if err != nil {
			return err
		}
		users := service.NewUserService(stores.Users, sessions, hasher, cfg.Auth.MinPasswordLength, logger)

		pw, err := promptPassword(os.Stdin, os.Stderr)
		if err != nil {
			return err
		}
		if args[0] == "useradd" {
			user, err := users.Register(ctx, args[1], pw)
			if err != nil {
				return fmt.Errorf("add user: %w", err)
			}
			fmt.Printf("created user %s (id %d)\n", user.Username, user.ID)
			return nil
		}
		if err := users.SetPassword(ctx, args[1], pw); err != nil {
			return fmt.Errorf("set password: %w", err)
		}
		fmt.Printf("password updated for %s\n", strings.TrimSpace(args[1]))
		return nil

	case "sessions":
		if args[1] != "purge" {
			return errors.New(usage)
		}
		n, err := sessions.PurgeExpired(ctx)
		if err != nil {
			return err
		}
		fmt.Printf("purged %d expired sessions\n", n)
		return nil
	}

	return errors.New(usage)
}

// promptPassword reads a password twice without echo on a terminal, or a
// single line when input is piped.
func promptPassword(in *os.File, out io.Writer) (string, error) {
	fd := int(in.Fd())
	if !term.IsTerminal(fd) {
		line, err := bufio.NewReader(in).ReadString('\n')
		if err != nil && !errors.Is(err, io.EOF) {
			return "", fmt.Errorf("read password: %w", err)
		}
		return strings.TrimRight(line, "\r\n"), nil
	}

	fmt.Fprint(out, "Password: ")
	first, err := term.ReadPassword(fd)
	fmt.Fprintln(out)
	if err != nil {
		return "", fmt.Errorf("read password: %w", err)
	}
	fmt.Fprint(out, "Confirm password: ")
	second, err := term.ReadPassword(fd)
	fmt.Fprintln(out)
	if err != nil {
		return "", fmt.Errorf("read password: %w", err)
	}
	if subtle.ConstantTimeCompare(first, second) != 1 {
		return "", errors.New(service.MsgPasswordMismatch)
	}
	return string(first), nil
}
