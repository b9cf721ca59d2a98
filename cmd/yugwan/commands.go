package main

import (
	"context"
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"io"
	"strconv"
	"strings"
	"text/tabwriter"
	"time"

	figure "github.com/common-nighthawk/go-figure"
	"github.com/joonyo2/yugwan/internal/config"
	"github.com/joonyo2/yugwan/pkg/yugwan"
)

// version is set at build time with -ldflags "-X main.version=..."
var version = "dev"

type command func(ctx context.Context, a *app, args []string) error

var commands = map[string]command{
	"login":   loginCmd,
	"logout":  logoutCmd,
	"status":  statusCmd,
	"profile": profileCmd,
	"notices": noticesCmd,
	"notice":  noticeCmd,
	"news":    newsCmd,
	"winners": winnersCmd,
	"popups":  popupsCmd,
}

func printVersion(w io.Writer) {
	fmt.Fprintln(w, figure.NewFigure("yugwan", "cybermedium", true).String())
	fmt.Fprintf(w, "yugwan %s (%s)\n", version, yugwan.UserAgent)
}

func loginCmd(ctx context.Context, a *app, args []string) error {
	fs := flag.NewFlagSet("login", flag.ContinueOnError)
	fs.SetOutput(a.stderr)
	email := fs.String("email", "", "Account email")
	password := fs.String("password", config.GetEnv("YUGWAN_PASSWORD", ""), "Account password (defaults to YUGWAN_PASSWORD)")
	if err := fs.Parse(args); err != nil {
		return err
	}
	if *email == "" || *password == "" {
		return fmt.Errorf("email and password are required")
	}

	_, err := a.client.Auth.Login(ctx, *email, *password)
	if errors.Is(err, yugwan.ErrReauthRequired) {
		// the stale session is gone now
		_, err = a.client.Auth.Login(ctx, *email, *password)
	}
	if err != nil {
		return err
	}

	// warm the profile cache for status
	user, err := a.client.Auth.GetProfile(ctx)
	if err != nil {
		a.logger.Warn("logged in but profile could not be loaded", "error", err)
		fmt.Fprintln(a.stdout, "Logged in.")
		return nil
	}
	fmt.Fprintf(a.stdout, "Logged in as %s.\n", user.Profile().DisplayName())
	return nil
}

func logoutCmd(ctx context.Context, a *app, args []string) error {
	if err := a.client.Auth.Logout(ctx); err != nil {
		return err
	}
	fmt.Fprintln(a.stdout, "Logged out.")
	return nil
}

func statusCmd(ctx context.Context, a *app, args []string) error {
	info, err := a.client.SessionInfo(ctx)
	if err != nil {
		return err
	}
	if a.json {
		return a.printJSON(info)
	}

	if !info.Authenticated {
		fmt.Fprintln(a.stdout, "Not logged in.")
		return nil
	}

	tw := tabwriter.NewWriter(a.stdout, 0, 4, 2, ' ', 0)
	if info.Profile != nil {
		fmt.Fprintf(tw, "User:\t%s\n", info.Profile.DisplayName())
	}
	now := time.Now()
	if info.Access != nil && !info.Access.ExpiresAt.IsZero() {
		state := "valid for " + info.Access.TTL(now).Round(time.Second).String()
		if info.AccessExpired(now) {
			state = "expired, renewed on next request"
		}
		fmt.Fprintf(tw, "Access token:\t%s\n", state)
	}
	if info.Refresh != nil && !info.Refresh.ExpiresAt.IsZero() {
		fmt.Fprintf(tw, "Session expires:\t%s\n", info.Refresh.ExpiresAt.Local().Format(time.RFC1123))
	}
	fmt.Fprintf(tw, "API:\t%s\n", a.client.BaseURL())
	return tw.Flush()
}

func profileCmd(ctx context.Context, a *app, args []string) error {
	user, err := a.client.Auth.GetProfile(ctx)
	if err != nil {
		return err
	}
	if a.json {
		return a.printJSON(user)
	}

	tw := tabwriter.NewWriter(a.stdout, 0, 4, 2, ' ', 0)
	fmt.Fprintf(tw, "Username:\t%s\n", user.Username)
	fmt.Fprintf(tw, "Name:\t%s\n", strings.TrimSpace(user.LastName+user.FirstName))
	fmt.Fprintf(tw, "Email:\t%s\n", user.Email)
	fmt.Fprintf(tw, "Tier:\t%s\n", displayOr(user.TierDisplay, user.Tier))
	if user.Phone != "" {
		fmt.Fprintf(tw, "Phone:\t%s\n", user.Phone)
	}
	return tw.Flush()
}

// listFlags parses the shared paging and filter flags of list commands
func listFlags(a *app, name string, args []string, filter string) (*yugwan.ListParams, error) {
	fs := flag.NewFlagSet(name, flag.ContinueOnError)
	fs.SetOutput(a.stderr)
	page := fs.Int("page", 0, "Page number")
	search := fs.String("search", "", "Search text")
	value := fs.String(filter, "", "Filter by "+filter)
	if err := fs.Parse(args); err != nil {
		return nil, err
	}

	params := &yugwan.ListParams{Page: *page, Search: *search}
	switch filter {
	case "category":
		params.Category = *value
	case "source":
		params.Source = *value
	}
	return params, nil
}

func noticesCmd(ctx context.Context, a *app, args []string) error {
	params, err := listFlags(a, "notices", args, "category")
	if err != nil {
		return err
	}

	page, err := a.client.Archive.ListNotices(ctx, params)
	if err != nil {
		return err
	}
	if a.json {
		return a.printJSON(page)
	}

	tw := tabwriter.NewWriter(a.stdout, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "ID\tDATE\tCATEGORY\tTITLE")
	for _, n := range page.Results {
		title := n.Title
		if n.IsPinned {
			title = "[pinned] " + title
		}
		fmt.Fprintf(tw, "%d\t%s\t%s\t%s\n", n.ID, n.CreatedAt.Format("2006-01-02"), displayOr(n.CategoryDisplay, n.Category), title)
	}
	if err := tw.Flush(); err != nil {
		return err
	}
	return a.printPageFooter(page.Count, len(page.Results), page.HasNext())
}

func noticeCmd(ctx context.Context, a *app, args []string) error {
	if len(args) != 1 {
		return fmt.Errorf("usage: notice <id>")
	}
	id, err := strconv.Atoi(args[0])
	if err != nil || id <= 0 {
		return fmt.Errorf("invalid notice id %q", args[0])
	}

	notice, err := a.client.Archive.GetNotice(ctx, id)
	if err != nil {
		return err
	}
	if a.json {
		return a.printJSON(notice)
	}

	fmt.Fprintf(a.stdout, "%s\n%s | %s | views %d\n\n%s\n",
		notice.Title,
		notice.CreatedAt.Format("2006-01-02"),
		displayOr(notice.CategoryDisplay, notice.Category),
		notice.Views,
		notice.Content,
	)
	return nil
}

func newsCmd(ctx context.Context, a *app, args []string) error {
	params, err := listFlags(a, "news", args, "source")
	if err != nil {
		return err
	}

	page, err := a.client.Archive.ListNews(ctx, params)
	if err != nil {
		return err
	}
	if a.json {
		return a.printJSON(page)
	}

	tw := tabwriter.NewWriter(a.stdout, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "DATE\tSOURCE\tTITLE\tLINK")
	for _, n := range page.Results {
		fmt.Fprintf(tw, "%s\t%s\t%s\t%s\n", n.PublishedDate, n.Source, n.Title, n.LinkURL)
	}
	if err := tw.Flush(); err != nil {
		return err
	}
	return a.printPageFooter(page.Count, len(page.Results), page.HasNext())
}

func winnersCmd(ctx context.Context, a *app, args []string) error {
	year := 0
	if len(args) > 0 {
		y, err := strconv.Atoi(args[0])
		if err != nil || y <= 0 {
			return fmt.Errorf("invalid year %q", args[0])
		}
		year = y
	}

	winners, err := a.client.Contest.GetWinners(ctx, year)
	if err != nil {
		return err
	}
	if a.json {
		return a.printJSON(winners)
	}

	tw := tabwriter.NewWriter(a.stdout, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "YEAR\tAWARD\tNAME\tSCHOOL\tDIVISION")
	for _, w := range winners {
		fmt.Fprintf(tw, "%d\t%s\t%s\t%s\t%s\n", w.ContestYear, w.Award, w.Name, w.SchoolName, displayOr(w.DivisionDisplay, w.Division))
	}
	return tw.Flush()
}

func popupsCmd(ctx context.Context, a *app, args []string) error {
	popups, err := a.client.Popups.GetActive(ctx)
	if err != nil {
		return err
	}
	if a.json {
		return a.printJSON(popups)
	}

	if len(popups) == 0 {
		fmt.Fprintln(a.stdout, "No active popups.")
		return nil
	}
	tw := tabwriter.NewWriter(a.stdout, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "ID\tTITLE\tUNTIL\tLINK")
	for _, p := range popups {
		fmt.Fprintf(tw, "%d\t%s\t%s\t%s\n", p.ID, p.Title, p.EndAt.Format("2006-01-02"), p.LinkURL)
	}
	return tw.Flush()
}

func (a *app) printJSON(v interface{}) error {
	enc := json.NewEncoder(a.stdout)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

func (a *app) printPageFooter(total, shown int, more bool) error {
	footer := fmt.Sprintf("\n%d of %d", shown, total)
	if more {
		footer += ", more with -page"
	}
	_, err := fmt.Fprintln(a.stdout, footer)
	return err
}

func displayOr(display, raw string) string {
	if display != "" {
		return display
	}
	return raw
}
