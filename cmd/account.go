package main

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/aiguard/console/internal/apierror"
	"github.com/aiguard/console/internal/tui"
)

func runLogin(ctx context.Context, a *app, args []string) error {
	ca, err := parseCmdArgs(args, "email")
	if err != nil {
		return err
	}
	email, err := a.askValue(ca, "email", "Email")
	if err != nil {
		return err
	}
	password, err := a.prompt.Password("Password")
	if err != nil {
		return err
	}

	tui.PrintStep("Signing in")
	if err := a.store.Login(ctx, email, password); err != nil {
		return err
	}
	st := a.store.State()
	tui.PrintSuccess(fmt.Sprintf("Signed in as %s", st.Identity.Email))
	if st.Identity.Synthesized {
		tui.PrintWarn("Profile could not be loaded; it will sync on the next request")
	}
	return nil
}

func runSignup(ctx context.Context, a *app, args []string) error {
	ca, err := parseCmdArgs(args, "email", "name")
	if err != nil {
		return err
	}
	email, err := a.askValue(ca, "email", "Email")
	if err != nil {
		return err
	}
	name, err := a.askValue(ca, "name", "Display name")
	if err != nil {
		return err
	}
	password, err := a.prompt.Password("Password")
	if err != nil {
		return err
	}
	confirm, err := a.prompt.Password("Confirm password")
	if err != nil {
		return err
	}
	if password != confirm {
		return apierror.Validation("password", "Passwords do not match")
	}

	tui.PrintStep("Creating account")
	err = a.store.Signup(ctx, email, password, name)
	if errors.Is(err, apierror.ErrDisplayNameNotSet) && a.store.State().Identity != nil {
		tui.PrintWarn("Account created, but the display name could not be saved. Try 'aiguard profile set-name'.")
		return nil
	}
	if err != nil {
		return err
	}
	tui.PrintSuccess(fmt.Sprintf("Welcome, %s", name))
	return nil
}

func runLogout(ctx context.Context, a *app, _ []string) error {
	if a.store.State().Identity == nil {
		tui.PrintInfo("Not signed in")
		return nil
	}
	if err := a.store.Logout(ctx); err != nil {
		return err
	}
	tui.PrintSuccess("Signed out")
	return nil
}

func runResetPassword(ctx context.Context, a *app, args []string) error {
	ca, err := parseCmdArgs(args, "email")
	if err != nil {
		return err
	}
	email, err := a.askValue(ca, "email", "Email")
	if err != nil {
		return err
	}
	if err := a.store.ResetPassword(ctx, email); err != nil {
		return err
	}
	tui.PrintSuccess("If an account exists for that address, a reset link is on its way")
	return nil
}

func runWhoami(_ context.Context, a *app, _ []string) error {
	st := a.store.State()
	return a.emit(st.Identity, func() {
		tui.RenderAccount(st, time.Now())
	})
}

func runProfile(ctx context.Context, a *app, args []string) error {
	ca, err := parseCmdArgs(args)
	if err != nil {
		return err
	}
	switch ca.arg(0) {
	case "", "show":
		return runWhoami(ctx, a, nil)
	case "set-name":
		pos, err := ca.require("set-name", "NAME")
		if err != nil {
			return err
		}
		if err := a.store.UpdateProfile(ctx, pos[1]); err != nil {
			return err
		}
		tui.PrintSuccess(fmt.Sprintf("Display name set to %s", a.store.State().Identity.Name))
		return nil
	default:
		return fmt.Errorf("unknown profile command %q (expected show or set-name)", ca.arg(0))
	}
}

// askValue returns --name when given, otherwise prompts for it.
func (a *app) askValue(ca *cmdArgs, flag, label string) (string, error) {
	if v, ok := ca.value(flag); ok {
		return v, nil
	}
	return a.prompt.Ask(label, "")
}
