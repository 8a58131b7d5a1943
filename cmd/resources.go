package main

import (
	"context"
	"fmt"
	"strconv"
	"time"

	"github.com/aiguard/console/internal/apierror"
	"github.com/aiguard/console/internal/services"
	"github.com/aiguard/console/internal/tui"
	"github.com/aiguard/console/internal/utils"
)

// =============================================================================
// DASHBOARD
// =============================================================================

func runDashboard(ctx context.Context, a *app, args []string) error {
	ca, err := parseCmdArgs(args, "limit", "days")
	if err != nil {
		return err
	}
	if _, err := a.requireSession(); err != nil {
		return err
	}
	d := a.svc.Dashboard

	switch ca.arg(0) {
	case "", "stats":
		stats, err := d.Stats(ctx)
		if err != nil {
			return err
		}
		return a.emit(stats, func() {
			tui.PrintHeader("Dashboard")
			tui.PrintField("Requests", strconv.FormatInt(stats.TotalRequests, 10))
			tui.PrintField("Tokens", strconv.FormatInt(stats.TotalTokens, 10))
			tui.PrintField("Cost", fmt.Sprintf("$%.2f", stats.TotalCost))
			tui.PrintField("Projects", strconv.Itoa(stats.ActiveProjects))
		})

	case "activity":
		limit, err := ca.intValue("limit", services.DefaultActivityLimit)
		if err != nil {
			return err
		}
		items, err := d.RecentActivity(ctx, limit)
		if err != nil {
			return err
		}
		return a.emit(items, func() {
			t := tui.NewTable("WHEN", "TYPE", "PROJECT", "TITLE")
			for _, it := range items {
				t.Append(formatTime(it.Timestamp), it.Type, it.ProjectName, it.Title)
			}
			t.Render()
		})

	case "trend":
		days, err := ca.intValue("days", services.DefaultTrendDays)
		if err != nil {
			return err
		}
		trend, err := d.UsageTrend(ctx, days)
		if err != nil {
			return err
		}
		return a.emit(trend, func() {
			t := tui.NewTable("DATE", "REQUESTS", "TOKENS", "COST")
			for _, u := range trend {
				t.Append(u.Date, strconv.FormatInt(u.Requests, 10), strconv.FormatInt(u.Tokens, 10), fmt.Sprintf("$%.2f", u.Cost))
			}
			t.Render()
		})

	case "providers":
		stats, err := d.ProviderStats(ctx)
		if err != nil {
			return err
		}
		return a.emit(stats, func() {
			t := tui.NewTable("PROVIDER", "REQUESTS", "COST", "SHARE")
			for _, p := range stats {
				t.Append(p.Provider, strconv.FormatInt(p.Requests, 10), fmt.Sprintf("$%.2f", p.Cost), fmt.Sprintf("%.1f%%", p.Percentage))
			}
			t.Render()
		})
	}
	return fmt.Errorf("unknown dashboard view %q (expected stats, activity, trend or providers)", ca.arg(0))
}

// =============================================================================
// PROJECTS
// =============================================================================

func runProjects(ctx context.Context, a *app, args []string) error {
	ca, err := parseCmdArgs(args, "name", "description", "start", "end", "group-by", "interval")
	if err != nil {
		return err
	}
	if _, err := a.requireSession(); err != nil {
		return err
	}
	ps := a.svc.Projects

	switch ca.arg(0) {
	case "", "list":
		projects, err := ps.List(ctx)
		if err != nil {
			return err
		}
		return a.emit(projects, func() {
			t := tui.NewTable("ID", "NAME", "ROLE", "MEMBERS", "KEYS", "DESCRIPTION")
			for _, p := range projects {
				t.Append(p.ID, p.Name, string(p.Role), strconv.Itoa(p.MemberCount), strconv.Itoa(p.APIKeyCount), p.Description)
			}
			t.Render()
		})

	case "get":
		pos, err := ca.require("get", "PROJECT")
		if err != nil {
			return err
		}
		p, err := ps.Get(ctx, pos[1])
		if err != nil {
			return err
		}
		return a.emit(p, func() { renderProject(p) })

	case "create":
		name, err := a.askValue(ca, "name", "Project name")
		if err != nil {
			return err
		}
		desc, _ := ca.value("description")
		p, err := ps.Create(ctx, services.CreateProjectRequest{Name: name, Description: desc})
		if err != nil {
			return err
		}
		return a.emit(p, func() {
			tui.PrintSuccess(fmt.Sprintf("Created project %s (%s)", p.Name, p.ID))
		})

	case "update":
		pos, err := ca.require("update", "PROJECT")
		if err != nil {
			return err
		}
		var upd services.ProjectUpdate
		if v, ok := ca.value("name"); ok {
			upd.Name = &v
		}
		if v, ok := ca.value("description"); ok {
			upd.Description = &v
		}
		p, err := ps.Update(ctx, pos[1], upd)
		if err != nil {
			return err
		}
		return a.emit(p, func() {
			tui.PrintSuccess(fmt.Sprintf("Updated project %s", p.Name))
		})

	case "delete":
		pos, err := ca.require("delete", "PROJECT")
		if err != nil {
			return err
		}
		if ok, err := a.confirm(ca, fmt.Sprintf("Delete project %s and all its keys", pos[1])); err != nil || !ok {
			return err
		}
		if err := ps.Delete(ctx, pos[1]); err != nil {
			return err
		}
		tui.PrintSuccess("Project deleted")
		return nil

	case "usage":
		pos, err := ca.require("usage", "PROJECT")
		if err != nil {
			return err
		}
		q := services.UsageQuery{}
		q.StartDate, _ = ca.value("start")
		q.EndDate, _ = ca.value("end")
		q.GroupBy, _ = ca.value("group-by")
		stats, err := ps.Usage(ctx, pos[1], q)
		if err != nil {
			return err
		}
		return a.emit(stats, func() { renderUsage(stats) })

	case "quota":
		pos, err := ca.require("quota", "PROJECT")
		if err != nil {
			return err
		}
		return a.watchQuota(ctx, ca, pos[1])
	}
	return fmt.Errorf("unknown projects command %q", ca.arg(0))
}

func (a *app) watchQuota(ctx context.Context, ca *cmdArgs, projectID string) error {
	bar := tui.NewQuotaBar(func(ctx context.Context) (*services.QuotaStatus, error) {
		return a.svc.Projects.Quota(ctx, projectID)
	})
	if err := bar.Refresh(ctx); err != nil {
		return err
	}
	if !ca.flag("watch") || a.jsonOut {
		return a.emit(bar.Status(), bar.Render)
	}

	secs, err := ca.intValue("interval", int(tui.DefaultWatchInterval/time.Second))
	if err != nil {
		return err
	}
	bar.Render()
	bar.StartAutoRefresh(ctx, time.Duration(secs)*time.Second)
	bar.Wait()
	return nil
}

func renderProject(p *services.Project) {
	tui.PrintHeader(p.Name)
	tui.PrintField("ID", p.ID)
	tui.PrintField("Description", p.Description)
	tui.PrintField("Role", string(p.Role))
	tui.PrintField("Members", strconv.Itoa(p.MemberCount))
	tui.PrintField("API keys", strconv.Itoa(p.APIKeyCount))
	tui.PrintField("Created", formatTime(p.CreatedAt))
	if u := p.Usage; u != nil && u.CurrentMonth != nil {
		tui.PrintField("This month", fmt.Sprintf("%d requests, %d tokens, $%.2f",
			u.CurrentMonth.Requests, u.CurrentMonth.Tokens, u.CurrentMonth.Cost))
	}
	if s := p.Settings; s != nil && len(s.AllowedProviders) > 0 {
		tui.PrintField("Providers", fmt.Sprint(s.AllowedProviders))
	}
}

func renderUsage(stats *services.UsageStats) {
	rows := stats.Daily
	if len(rows) == 0 {
		rows = stats.Monthly
	}
	t := tui.NewTable("DATE", "PROVIDER", "MODEL", "REQUESTS", "TOKENS", "COST")
	for _, u := range rows {
		t.Append(u.Date, u.Provider, u.Model, strconv.FormatInt(u.Requests, 10), strconv.FormatInt(u.Tokens, 10), fmt.Sprintf("$%.4f", u.Cost))
	}
	t.Render()
	tui.PrintInfo(fmt.Sprintf("Total: %d requests, %d tokens, $%.2f", stats.Total.Requests, stats.Total.Tokens, stats.Total.Cost))
}

// =============================================================================
// PROVIDER KEYS
// =============================================================================

func runKeys(ctx context.Context, a *app, args []string) error {
	ca, err := parseCmdArgs(args, "name", "provider", "key", "status")
	if err != nil {
		return err
	}
	if _, err := a.requireSession(); err != nil {
		return err
	}
	ps := a.svc.Projects

	switch ca.arg(0) {
	case "list":
		pos, err := ca.require("list", "PROJECT")
		if err != nil {
			return err
		}
		keys, err := ps.ListKeys(ctx, pos[1])
		if err != nil {
			return err
		}
		return a.emit(keys, func() {
			t := tui.NewTable("ID", "NAME", "PROVIDER", "PREFIX", "STATUS", "LAST USED")
			for _, k := range keys {
				last := "never"
				if k.LastUsed != nil {
					last = formatTime(*k.LastUsed)
				}
				t.Append(k.ID, k.Name, k.Provider, k.KeyPrefix, string(k.Status), last)
			}
			t.Render()
		})

	case "add":
		pos, err := ca.require("add", "PROJECT")
		if err != nil {
			return err
		}
		req := services.AddKeyRequest{}
		if req.Provider, err = a.askValue(ca, "provider", "Provider (openai/anthropic/google)"); err != nil {
			return err
		}
		if req.Name, err = a.askValue(ca, "name", "Key name"); err != nil {
			return err
		}
		if req.Key, err = a.providerKey(ca, req.Provider); err != nil {
			return err
		}
		k, err := ps.AddKey(ctx, pos[1], req)
		if err != nil {
			return err
		}
		return a.emit(k, func() {
			tui.PrintSuccess(fmt.Sprintf("Added %s key %s (%s)", k.Provider, k.Name, utils.MaskKey(req.Key)))
		})

	case "update":
		pos, err := ca.require("update", "PROJECT", "KEY")
		if err != nil {
			return err
		}
		var upd services.KeyUpdate
		if v, ok := ca.value("name"); ok {
			upd.Name = &v
		}
		if v, ok := ca.value("status"); ok {
			status := services.KeyStatus(v)
			upd.Status = &status
		}
		k, err := ps.UpdateKey(ctx, pos[1], pos[2], upd)
		if err != nil {
			return err
		}
		return a.emit(k, func() {
			tui.PrintSuccess(fmt.Sprintf("Updated key %s (%s)", k.Name, k.Status))
		})

	case "delete":
		pos, err := ca.require("delete", "PROJECT", "KEY")
		if err != nil {
			return err
		}
		if ok, err := a.confirm(ca, fmt.Sprintf("Delete key %s", pos[2])); err != nil || !ok {
			return err
		}
		if err := ps.DeleteKey(ctx, pos[1], pos[2]); err != nil {
			return err
		}
		tui.PrintSuccess("Key deleted")
		return nil
	}
	return fmt.Errorf("unknown keys command %q (expected list, add, update or delete)", ca.arg(0))
}

// providerKey takes --key, then the provider's environment variable, then
// prompts without echo.
func (a *app) providerKey(ca *cmdArgs, provider string) (string, error) {
	if v, ok := ca.value("key"); ok {
		return v, nil
	}
	if info, ok := tui.LookupProvider(provider); ok {
		if v, ok := info.KeyFromEnv(); ok {
			tui.PrintInfo(fmt.Sprintf("Using %s from the environment", info.EnvVar))
			return v, nil
		}
	}
	return a.prompt.Password("API key")
}

// =============================================================================
// MEMBERS
// =============================================================================

func runMembers(ctx context.Context, a *app, args []string) error {
	ca, err := parseCmdArgs(args, "email", "role")
	if err != nil {
		return err
	}
	if _, err := a.requireSession(); err != nil {
		return err
	}
	ps := a.svc.Projects

	switch ca.arg(0) {
	case "list":
		pos, err := ca.require("list", "PROJECT")
		if err != nil {
			return err
		}
		members, err := ps.ListMembers(ctx, pos[1])
		if err != nil {
			return err
		}
		return a.emit(members, func() {
			t := tui.NewTable("USER", "EMAIL", "ROLE", "ADDED")
			for _, m := range members {
				t.Append(m.UserID, m.Email, string(m.Role), formatTime(m.AddedAt))
			}
			t.Render()
		})

	case "add":
		pos, err := ca.require("add", "PROJECT")
		if err != nil {
			return err
		}
		email, err := a.askValue(ca, "email", "Email")
		if err != nil {
			return err
		}
		role, _ := ca.value("role")
		if role == "" {
			role = string(services.RoleMember)
		}
		m, err := ps.AddMember(ctx, pos[1], services.AddMemberRequest{Email: email, Role: services.Role(role)})
		if err != nil {
			return err
		}
		return a.emit(m, func() {
			tui.PrintSuccess(fmt.Sprintf("Added %s as %s", email, m.Role))
		})

	case "update":
		pos, err := ca.require("update", "PROJECT", "MEMBER")
		if err != nil {
			return err
		}
		role, ok := ca.value("role")
		if !ok {
			return apierror.Validation("role", "--role is required")
		}
		m, err := ps.UpdateMember(ctx, pos[1], pos[2], services.Role(role))
		if err != nil {
			return err
		}
		return a.emit(m, func() {
			tui.PrintSuccess(fmt.Sprintf("Member %s is now %s", pos[2], m.Role))
		})

	case "remove":
		pos, err := ca.require("remove", "PROJECT", "MEMBER")
		if err != nil {
			return err
		}
		if ok, err := a.confirm(ca, fmt.Sprintf("Remove member %s", pos[2])); err != nil || !ok {
			return err
		}
		if err := ps.RemoveMember(ctx, pos[1], pos[2]); err != nil {
			return err
		}
		tui.PrintSuccess("Member removed")
		return nil
	}
	return fmt.Errorf("unknown members command %q (expected list, add, update or remove)", ca.arg(0))
}

// =============================================================================
// PERSONAL ACCESS TOKENS
// =============================================================================

func runTokens(ctx context.Context, a *app, args []string) error {
	ca, err := parseCmdArgs(args, "name", "scopes", "project", "expires-in-days")
	if err != nil {
		return err
	}
	if _, err := a.requireSession(); err != nil {
		return err
	}
	ts := a.svc.Tokens

	switch ca.arg(0) {
	case "", "list":
		tokens, err := ts.List(ctx)
		if err != nil {
			return err
		}
		return a.emit(tokens, func() {
			t := tui.NewTable("ID", "NAME", "SCOPES", "EXPIRES", "LAST USED", "STATE")
			for _, tok := range tokens {
				state := "active"
				if tok.IsRevoked {
					state = "revoked"
				}
				t.Append(tok.ID, tok.Name, fmt.Sprint(tok.Scopes), formatOptionalTime(tok.ExpiresAt, "never"),
					formatOptionalTime(tok.LastUsedAt, "never"), state)
			}
			t.Render()
		})

	case "create":
		name, err := a.askValue(ca, "name", "Token name")
		if err != nil {
			return err
		}
		scopes, _ := ca.value("scopes")
		days, err := ca.intValue("expires-in-days", 0)
		if err != nil {
			return err
		}
		project, _ := ca.value("project")
		tok, err := ts.Create(ctx, services.CreateTokenRequest{
			Name:          name,
			Scopes:        splitList(scopes),
			ProjectID:     project,
			ExpiresInDays: days,
		})
		if err != nil {
			return err
		}
		return a.emit(tok, func() { renderSecret("Created", tok) })

	case "rotate":
		pos, err := ca.require("rotate", "TOKEN")
		if err != nil {
			return err
		}
		tok, err := ts.Rotate(ctx, pos[1])
		if err != nil {
			return err
		}
		return a.emit(tok, func() { renderSecret("Rotated", tok) })

	case "delete":
		pos, err := ca.require("delete", "TOKEN")
		if err != nil {
			return err
		}
		if ok, err := a.confirm(ca, fmt.Sprintf("Revoke token %s", pos[1])); err != nil || !ok {
			return err
		}
		if err := ts.Delete(ctx, pos[1]); err != nil {
			return err
		}
		tui.PrintSuccess("Token deleted")
		return nil
	}
	return fmt.Errorf("unknown tokens command %q (expected list, create, rotate or delete)", ca.arg(0))
}

func renderSecret(verb string, tok *services.PersonalAccessToken) {
	tui.PrintSuccess(fmt.Sprintf("%s token %s (%s)", verb, tok.Name, tok.ID))
	if tok.Token != "" {
		tui.PrintWarn("Copy the token now. It will not be shown again:")
		fmt.Fprintln(tui.Out, "  "+tok.Token)
	}
}

// =============================================================================
// HEALTH
// =============================================================================

func runHealth(ctx context.Context, a *app, _ []string) error {
	start := time.Now()
	h, err := a.svc.Health.Check(ctx)
	if err != nil {
		return err
	}
	return a.emit(h, func() {
		msg := fmt.Sprintf("%s is %s (%s)", a.client.BaseURL(), h.Status, time.Since(start).Round(time.Millisecond))
		if h.Version != "" {
			msg += ", version " + h.Version
		}
		tui.PrintSuccess(msg)
	})
}

// =============================================================================
// HELPERS
// =============================================================================

// confirm asks before destructive calls unless --yes was given.
func (a *app) confirm(ca *cmdArgs, question string) (bool, error) {
	if ca.flag("yes") {
		return true, nil
	}
	ok, err := a.prompt.Confirm(question+"?", false)
	if err == nil && !ok {
		tui.PrintInfo("Cancelled")
	}
	return ok, err
}

func formatTime(t time.Time) string {
	if t.IsZero() {
		return "-"
	}
	return t.Local().Format("2006-01-02 15:04")
}

func formatOptionalTime(t *time.Time, none string) string {
	if t == nil {
		return none
	}
	return formatTime(*t)
}
