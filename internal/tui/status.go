package tui

// Account and quota rendering.
//
// QuotaBar keeps the last quota snapshot of one project and re-renders it on
// a timer, the way `projects quota --watch` shows it.

import (
	"context"
	"fmt"
	"os"
	"strings"
	"sync"
	"time"

	"golang.org/x/term"

	"github.com/aiguard/console/internal/services"
	"github.com/aiguard/console/internal/session"
)

// =============================================================================
// CONFIGURATION
// =============================================================================

const (
	// WarnQuotaPercent colors a quota window yellow.
	WarnQuotaPercent = 50.0

	// CriticalQuotaPercent colors a quota window red.
	CriticalQuotaPercent = 80.0

	// DefaultWatchInterval is the refresh period for --watch.
	DefaultWatchInterval = 10 * time.Second

	miniBarWidth = 15
)

// =============================================================================
// ACCOUNT
// =============================================================================

// RenderAccount prints the session state for `whoami`.
func RenderAccount(st session.State, now time.Time) {
	switch st.Phase() {
	case session.PhaseInitializing:
		PrintInfo("Session is still initializing")
		return
	case session.PhaseAnonymous:
		PrintWarn("Not signed in. Run `aiguard login` first.")
		if st.Error != "" {
			PrintError(st.Error)
		}
		return
	}

	id := st.Identity
	PrintSuccess(fmt.Sprintf("Signed in as %s", paint(ColorBold, id.Email)))
	PrintField("Name", orDash(id.Name))
	PrintField("Plan", paint(ColorBold, formatTier(id.Tier)))
	PrintField("User ID", id.UID)
	if !id.CreatedAt.IsZero() {
		PrintField("Member since", fmt.Sprintf("%s (%s)", id.CreatedAt.Local().Format("2006-01-02"), formatDuration(now.Sub(id.CreatedAt))))
	}
	if id.Synthesized {
		PrintWarn("Profile service unreachable; showing defaults until it responds")
	}
	if st.Error != "" {
		PrintWarn(st.Error)
	}
}

// =============================================================================
// QUOTA
// =============================================================================

// RenderQuota prints both quota windows with usage bars.
func RenderQuota(q *services.QuotaStatus) {
	fmt.Fprintln(Out, formatQuotaLine("Daily", q.Daily))
	fmt.Fprintln(Out, formatQuotaLine("Monthly", q.Monthly))
}

func formatQuotaLine(label string, w services.QuotaWindow) string {
	if w.Limit <= 0 {
		return fmt.Sprintf("  %-8s %d requests (no limit)", label, w.Used)
	}
	pct := quotaPercent(w)
	return fmt.Sprintf("  %-8s %s %s / %d  %s",
		label, renderMiniBar(pct, miniBarWidth),
		paint(quotaColor(pct), fmt.Sprintf("%d", w.Used)), w.Limit,
		fmt.Sprintf("%.1f%% used", pct))
}

// quotaPercent trusts the backend's percentage and derives it when absent.
func quotaPercent(w services.QuotaWindow) float64 {
	if w.Percentage > 0 || w.Limit <= 0 {
		return w.Percentage
	}
	return float64(w.Used) / float64(w.Limit) * 100
}

// QuotaFetcher loads the current quota. ProjectService.Quota bound to an id
// satisfies it.
type QuotaFetcher func(ctx context.Context) (*services.QuotaStatus, error)

// QuotaBar caches one project's quota and re-renders it periodically.
type QuotaBar struct {
	mu sync.RWMutex

	fetch       QuotaFetcher
	status      *services.QuotaStatus
	lastRefresh time.Time
	lastErr     error

	autoRefreshOn bool
	autoStop      chan struct{}
	done          chan struct{}
}

// NewQuotaBar creates a bar over fetch.
func NewQuotaBar(fetch QuotaFetcher) *QuotaBar {
	return &QuotaBar{fetch: fetch}
}

// Refresh fetches the latest quota.
func (qb *QuotaBar) Refresh(ctx context.Context) error {
	status, err := qb.fetch(ctx)

	qb.mu.Lock()
	defer qb.mu.Unlock()
	qb.lastErr = err
	if err != nil {
		return err
	}
	qb.status = status
	qb.lastRefresh = time.Now()
	return nil
}

// Status returns the cached quota (may be nil).
func (qb *QuotaBar) Status() *services.QuotaStatus {
	qb.mu.RLock()
	defer qb.mu.RUnlock()
	return qb.status
}

// Render prints the cached quota followed by the refresh age.
func (qb *QuotaBar) Render() {
	qb.mu.RLock()
	defer qb.mu.RUnlock()

	if qb.status == nil {
		if qb.lastErr != nil {
			PrintError(qb.lastErr.Error())
		}
		return
	}
	RenderQuota(qb.status)
	line := "  " + paint(ColorDim, "refreshed "+formatDuration(time.Since(qb.lastRefresh)))
	if qb.lastErr != nil {
		line += " " + paint(ColorYellow, "(last refresh failed: "+qb.lastErr.Error()+")")
	}
	fmt.Fprintln(Out, line)
}

// StartAutoRefresh refreshes and redraws every interval until ctx ends or
// StopAutoRefresh is called. Later calls while running are ignored.
func (qb *QuotaBar) StartAutoRefresh(ctx context.Context, interval time.Duration) {
	if interval <= 0 {
		return
	}

	qb.mu.Lock()
	if qb.autoRefreshOn {
		qb.mu.Unlock()
		return
	}
	qb.autoRefreshOn = true
	qb.autoStop = make(chan struct{})
	qb.done = make(chan struct{})
	stopCh, done := qb.autoStop, qb.done
	qb.mu.Unlock()

	go func() {
		defer close(done)
		ticker := time.NewTicker(interval)
		defer ticker.Stop()
		for {
			select {
			case <-ticker.C:
				_ = qb.Refresh(ctx)
				qb.redraw()
			case <-stopCh:
				return
			case <-ctx.Done():
				return
			}
		}
	}()
}

// StopAutoRefresh stops the refresh loop and waits for it to exit.
func (qb *QuotaBar) StopAutoRefresh() {
	qb.mu.Lock()
	if !qb.autoRefreshOn {
		qb.mu.Unlock()
		return
	}
	qb.autoRefreshOn = false
	close(qb.autoStop)
	qb.autoStop = nil
	done := qb.done
	qb.mu.Unlock()
	<-done
}

// Wait blocks until the refresh loop exits.
func (qb *QuotaBar) Wait() {
	qb.mu.RLock()
	done := qb.done
	qb.mu.RUnlock()
	if done != nil {
		<-done
	}
}

// redraw clears the previous block on a terminal before rendering.
func (qb *QuotaBar) redraw() {
	if f, ok := Out.(*os.File); ok && term.IsTerminal(int(f.Fd())) {
		// Two quota lines plus the refresh line.
		fmt.Fprint(Out, "\033[3A\033[J")
	}
	qb.Render()
}

// =============================================================================
// PROGRESS BAR
// =============================================================================

// renderMiniBar returns a compact bar without brackets for inline display.
// width is the number of bar characters.
func renderMiniBar(percent float64, width int) string {
	if percent < 0 {
		percent = 0
	}
	if percent > 100 {
		percent = 100
	}

	filled := int(percent / 100 * float64(width))
	if filled > width {
		filled = width
	}
	empty := width - filled

	return paint(quotaColor(percent), strings.Repeat("█", filled)) +
		paint(ColorDim, strings.Repeat("░", empty))
}

// =============================================================================
// HELPERS
// =============================================================================

func quotaColor(percent float64) string {
	if percent >= CriticalQuotaPercent {
		return ColorRed
	}
	if percent >= WarnQuotaPercent {
		return ColorYellow
	}
	return ColorGreen
}

func formatTier(tier services.Tier) string {
	switch tier {
	case services.TierFree:
		return "Free"
	case services.TierPro:
		return "Pro"
	case services.TierEnterprise:
		return "Enterprise"
	case "":
		return "-"
	default:
		return string(tier)
	}
}

func formatDuration(d time.Duration) string {
	switch {
	case d < time.Minute:
		return "just now"
	case d < time.Hour:
		return fmt.Sprintf("%dm ago", int(d.Minutes()))
	case d < 48*time.Hour:
		return fmt.Sprintf("%dh ago", int(d.Hours()))
	default:
		return fmt.Sprintf("%dd ago", int(d.Hours()/24))
	}
}

func orDash(s string) string {
	if s == "" {
		return "-"
	}
	return s
}
