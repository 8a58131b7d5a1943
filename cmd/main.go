// Command aiguard is the AI Guard console client.
//
// FILES:
//   - main.go:      entry point, global flags, command dispatch, help
//   - app.go:       wiring of config, logging, identity, gateway, session
//   - args.go:      per-command flag parsing
//   - account.go:   login, signup, logout, reset-password, whoami, profile
//   - resources.go: dashboard, projects, keys, members, tokens, health
//   - config.go:    config init/show/path
//   - version.go:   version banner
package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/aiguard/console/internal/apierror"
	"github.com/aiguard/console/internal/tui"
)

// globalOptions are accepted anywhere on the command line.
type globalOptions struct {
	configPath string
	debug      bool
	jsonOut    bool
}

// commandFunc runs one subcommand against a wired app.
type commandFunc func(ctx context.Context, a *app, args []string) error

var commands = map[string]commandFunc{
	"login":          runLogin,
	"signup":         runSignup,
	"logout":         runLogout,
	"reset-password": runResetPassword,
	"whoami":         runWhoami,
	"profile":        runProfile,
	"dashboard":      runDashboard,
	"projects":       runProjects,
	"keys":           runKeys,
	"members":        runMembers,
	"tokens":         runTokens,
	"health":         runHealth,
}

func main() {
	os.Exit(run(os.Args[1:]))
}

func run(args []string) int {
	opts, rest, err := parseGlobalFlags(args)
	if err != nil {
		tui.PrintError(err.Error())
		return 2
	}

	if len(rest) == 0 {
		printHelp()
		return 0
	}

	name, cmdArgs := rest[0], rest[1:]
	switch name {
	case "help", "-h", "--help":
		printHelp()
		return 0
	case "version", "-v", "--version":
		PrintVersion()
		return 0
	case "config":
		if err := runConfigCommand(opts, cmdArgs); err != nil {
			reportError(err)
			return 1
		}
		return 0
	}

	handler, ok := commands[name]
	if !ok {
		tui.PrintError(fmt.Sprintf("unknown command %q", name))
		fmt.Fprintln(os.Stderr, "Run 'aiguard help' for usage.")
		return 2
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	a, err := newApp(ctx, opts)
	if err != nil {
		reportError(err)
		return 1
	}
	defer a.Close()

	if err := handler(ctx, a, cmdArgs); err != nil {
		reportError(err)
		return 1
	}
	return 0
}

// parseGlobalFlags pulls -c/--config, -d/--debug and --json out of args and
// returns what is left in order.
func parseGlobalFlags(args []string) (globalOptions, []string, error) {
	var opts globalOptions
	rest := make([]string, 0, len(args))

	for i := 0; i < len(args); i++ {
		switch arg := args[i]; arg {
		case "-c", "--config":
			if i+1 >= len(args) {
				return opts, nil, errors.New("--config requires a value")
			}
			opts.configPath = args[i+1]
			i++
		case "-d", "--debug":
			opts.debug = true
		case "--json":
			opts.jsonOut = true
		case "--":
			rest = append(rest, args[i+1:]...)
			return opts, rest, nil
		default:
			if v, ok := cutFlag(arg, "--config"); ok {
				opts.configPath = v
				continue
			}
			rest = append(rest, arg)
		}
	}
	return opts, rest, nil
}

// reportError prints err with the backend's suggestions when present.
func reportError(err error) {
	if errors.Is(err, context.Canceled) {
		tui.PrintWarn("Interrupted")
		return
	}
	apiErr, ok := apierror.As(err)
	if !ok {
		tui.PrintError(err.Error())
		return
	}
	msg := apiErr.Message
	switch apiErr.Kind() {
	case apierror.KindAuthentication, apierror.KindValidation:
	default:
		if apiErr.StatusCode > 0 {
			msg = fmt.Sprintf("%s (HTTP %d)", msg, apiErr.StatusCode)
		}
	}
	tui.PrintError(msg)
	for _, s := range apiErr.Suggestions {
		fmt.Fprintf(os.Stderr, "        %s\n", s)
	}
}

func printHelp() {
	fmt.Println("AI Guard Console")
	fmt.Println()
	fmt.Println("Usage: aiguard [OPTIONS] COMMAND [ARGS...]")
	fmt.Println()
	fmt.Println("Options:")
	fmt.Println("  -c, --config FILE    Config file (default ~/.config/aiguard/config.yaml)")
	fmt.Println("  -d, --debug          Enable debug logging")
	fmt.Println("  --json               Print results as JSON")
	fmt.Println("  -h, --help           Show this help")
	fmt.Println()
	fmt.Println("Account:")
	fmt.Println("  login [--email E]                      Sign in")
	fmt.Println("  signup [--email E] [--name N]          Create an account")
	fmt.Println("  logout                                 Sign out and forget the saved session")
	fmt.Println("  reset-password [--email E]             Email a password reset link")
	fmt.Println("  whoami                                 Show the signed-in identity")
	fmt.Println("  profile set-name NAME                  Change the display name")
	fmt.Println()
	fmt.Println("Resources:")
	fmt.Println("  dashboard [stats|activity|trend|providers]")
	fmt.Println("  projects  [list|get|create|update|delete|usage|quota]")
	fmt.Println("  keys      [list|add|update|delete] PROJECT ...")
	fmt.Println("  members   [list|add|update|remove] PROJECT ...")
	fmt.Println("  tokens    [list|create|rotate|delete]")
	fmt.Println("  health                                 Check backend connectivity")
	fmt.Println()
	fmt.Println("Setup:")
	fmt.Println("  config [init|show|path]                Manage the config file")
	fmt.Println("  version                                Show version")
}
