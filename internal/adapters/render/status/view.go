package status

import (
	"fmt"
	"math"
	"strings"
	"time"

	"github.com/bnema/browser-accounts-cli/internal/application"
	"github.com/bnema/browser-accounts-cli/internal/domain"
	"github.com/charmbracelet/lipgloss"
)

type RenderOptions struct {
	Now        time.Time
	StaleAfter time.Duration
	// Active highlights the account currently loaded in the browser.
	Active domain.AccountID
}

const freshnessBarWidth = 24

func renderView(b board) string {
	s := b.styles
	header := fmt.Sprintf("accounts: %d", len(b.statuses))
	if b.stale > 0 {
		header += fmt.Sprintf(", %d need re-authentication", b.stale)
	}
	lines := []string{
		s.title.Render("Browser Accounts"),
		s.header.Render(header),
	}

	if len(b.statuses) == 0 {
		lines = append(lines, s.empty.Render("No accounts configured."))
		return lipgloss.JoinVertical(lipgloss.Left, lines...)
	}

	for _, status := range b.statuses {
		lines = append(lines, s.section.Render(renderAccount(status, b.opts, s)))
	}

	return lipgloss.JoinVertical(lipgloss.Left, lines...)
}

func renderAccount(status application.Status, opts RenderOptions, s styles) string {
	title := s.account.Render(accountTitle(status.Account))
	if opts.Active != "" && status.Account.ID == opts.Active {
		title += " " + s.active.Render("[active]")
	}

	parts := []string{
		title,
		s.detail.Render(fmt.Sprintf("site id: %s", siteIDLabel(status.Account.SiteID))),
		visitLine(status, opts, s),
		s.detail.Render(cookiesLabel(status.Cookies)),
	}

	return lipgloss.JoinVertical(lipgloss.Left, parts...)
}

func accountTitle(account domain.Account) string {
	name := strings.TrimSpace(account.Name)
	if name == "" || name == string(account.ID) {
		return string(account.ID)
	}
	return fmt.Sprintf("%s (%s)", name, account.ID)
}

func siteIDLabel(siteID string) string {
	if siteID == "" {
		return "unverified"
	}
	return siteID
}

func cookiesLabel(count int) string {
	switch count {
	case 0:
		return "cookies: none stored"
	case 1:
		return "cookies: 1 stored"
	default:
		return fmt.Sprintf("cookies: %d stored", count)
	}
}

func visitLine(status application.Status, opts RenderOptions, s styles) string {
	label := s.key.Render("last visit:")
	lastVisit := status.Account.LastVisit

	if lastVisit.IsZero() {
		return lipgloss.JoinHorizontal(lipgloss.Top, label, " ", s.warning.Render("never [stale]"))
	}

	freshness := freshnessPercent(lastVisit, opts.Now, opts.StaleAfter)
	when := lipgloss.NewStyle().Foreground(interpolateColor(freshness, 0, 100)).Render(formatVisitRelative(lastVisit, opts.Now))

	line := lipgloss.JoinHorizontal(
		lipgloss.Top,
		label,
		" ",
		renderProgressBar(freshness, freshnessBarWidth, s),
		" ",
		when,
	)

	if status.Stale {
		line += " " + s.warning.Render("[stale]")
	}

	return line
}

// freshnessPercent is 100 right after a visit and reaches 0 at staleAfter.
func freshnessPercent(lastVisit, now time.Time, staleAfter time.Duration) float64 {
	if now.IsZero() || staleAfter <= 0 {
		return 100
	}
	age := now.Sub(lastVisit)
	return clampPercent(100 * (1 - age.Seconds()/staleAfter.Seconds()))
}

func renderProgressBar(percent float64, width int, s styles) string {
	if width <= 0 {
		return ""
	}

	filled := int(math.Round(float64(width) * clampPercent(percent) / 100))
	if filled < 0 {
		filled = 0
	}
	if filled > width {
		filled = width
	}

	return lipgloss.JoinHorizontal(
		lipgloss.Top,
		s.barBracket.Render("["),
		s.barFill.Render(strings.Repeat("=", filled)),
		s.barEmpty.Render(strings.Repeat("-", width-filled)),
		s.barBracket.Render("]"),
	)
}

func clampPercent(v float64) float64 {
	if v < 0 {
		return 0
	}
	if v > 100 {
		return 100
	}
	return v
}

func formatVisitRelative(lastVisit, now time.Time) string {
	if now.IsZero() {
		return lastVisit.Format(time.RFC3339)
	}
	if lastVisit.After(now) {
		return "just now"
	}

	age := now.Sub(lastVisit)
	switch {
	case age < time.Minute:
		return "just now"
	case age < time.Hour:
		return plural(int(age.Minutes()), "minute") + " ago"
	case age < 24*time.Hour:
		return plural(int(age.Hours()), "hour") + " ago"
	default:
		return plural(int(age.Hours()/24), "day") + " ago"
	}
}

func plural(n int, unit string) string {
	if n == 1 {
		return fmt.Sprintf("1 %s", unit)
	}
	return fmt.Sprintf("%d %ss", n, unit)
}

func interpolateColor(value, min, max float64) lipgloss.Color {
	if max == min {
		return lipgloss.Color("255")
	}

	normalized := (value - min) / (max - min)
	if normalized < 0 {
		normalized = 0
	}
	if normalized > 1 {
		normalized = 1
	}

	// ANSI 256 greyscale: 240 is faded, 255 is bright white.
	baseColor := 240.0
	targetColor := 255.0
	colorCode := int(baseColor + (targetColor-baseColor)*normalized)

	return lipgloss.Color(fmt.Sprintf("%d", colorCode))
}
