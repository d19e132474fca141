package main

import (
	"bufio"
	"context"
	"fmt"
	"os"
	"strings"
	"time"

	"golang.org/x/term"

	"github.com/skolegrid/aula-bridge/internal/aula"
	"github.com/skolegrid/aula-bridge/internal/logger"
	"github.com/skolegrid/aula-bridge/internal/parse"
)

// check-login verifies a set of Unilogin credentials against the platform
// without starting the server. Credentials come from the environment or,
// when absent, an interactive prompt. Exit code 0 means the login worked
// and the child list could be read.
func main() {
	log := logger.Setup("warn", "pretty")

	username := os.Getenv("AULA_USERNAME")
	password := os.Getenv("AULA_PASSWORD")

	reader := bufio.NewReader(os.Stdin)
	if username == "" {
		fmt.Print("Username: ")
		line, err := reader.ReadString('\n')
		if err != nil {
			fmt.Fprintln(os.Stderr, "could not read username:", err)
			os.Exit(2)
		}
		username = strings.TrimSpace(line)
	}
	if password == "" {
		fmt.Print("Password: ")
		raw, err := term.ReadPassword(int(os.Stdin.Fd()))
		fmt.Println()
		if err != nil {
			fmt.Fprintln(os.Stderr, "could not read password:", err)
			os.Exit(2)
		}
		password = string(raw)
	}

	session := aula.NewSession(aula.Options{
		Username: username,
		Password: password,
		Timeout:  30 * time.Second,
	}, log)
	defer session.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Minute)
	defer cancel()

	if err := session.Login(ctx); err != nil {
		fmt.Fprintln(os.Stderr, "login failed:", err)
		os.Exit(1)
	}

	children, warnings, err := parse.Children(session.ProfilesRaw())
	if err != nil {
		fmt.Fprintln(os.Stderr, "login ok, but the profile payload was unreadable:", err)
		os.Exit(1)
	}

	fmt.Printf("login ok, %d children:\n", len(children))
	for _, child := range children {
		fmt.Printf("  %s  %s (%s)\n", child.ID, child.Name, child.InstitutionName)
	}
	for _, w := range warnings {
		fmt.Printf("warning: %s: %s\n", w.Source, w.Detail)
	}
}
