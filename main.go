package main

import (
	"context"
	"database/sql"
	"errors"
	"flag"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"golang.org/x/sync/errgroup"

	"github.com/lotas/tabgruppen/internal/applog"
	"github.com/lotas/tabgruppen/internal/config"
	"github.com/lotas/tabgruppen/internal/export"
	"github.com/lotas/tabgruppen/internal/facility"
	"github.com/lotas/tabgruppen/internal/firefox"
	"github.com/lotas/tabgruppen/internal/organizer"
	"github.com/lotas/tabgruppen/internal/server"
	"github.com/lotas/tabgruppen/internal/storage"
	"github.com/lotas/tabgruppen/internal/tui"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
	if err := applog.Init(cfg.LogDir()); err != nil {
		fmt.Fprintf(os.Stderr, "Warning: logging disabled: %v\n", err)
	}
	defer applog.Close()

	if len(os.Args) > 1 {
		switch os.Args[1] {
		case "preview":
			exitOn(runPreview(cfg, os.Args[2:]))
			return
		case "organize":
			exitOn(runOrganize(cfg, os.Args[2:]))
			return
		case "history":
			exitOn(runHistory(cfg, os.Args[2:]))
			return
		case "profiles":
			exitOn(runProfiles())
			return
		case "help", "--help", "-h":
			printHelp()
			return
		}
	}

	fs := flag.NewFlagSet("tabgruppen", flag.ExitOnError)
	profileName := fs.String("profile", "", "Browse a Firefox profile's session file (read-only)")
	port := fs.Int("port", cfg.Port, "WebSocket port for the browser extension")
	fs.Parse(os.Args[1:])

	exitOn(runTUI(cfg, *profileName, *port))
}

func exitOn(err error) {
	if err == nil {
		return
	}
	applog.Error("cli.exit", err)
	fmt.Fprintf(os.Stderr, "Error: %v\n", err)
	applog.Close()
	os.Exit(1)
}

func printHelp() {
	fmt.Print(helpText)
}

const helpText = `tabgruppen · group browser tabs by site

Usage:
  tabgruppen                                   Start the TUI on the live browser (default)
    --port <n>             WebSocket port for the extension (default: 19191)
    --profile <name>       Browse a Firefox session file instead (read-only)

  tabgruppen preview                           Print suggested groups
    --profile <name>       Firefox profile name (env: TABGRUPPEN_PROFILE)
    --live                 Read tabs from the extension instead of the session file
    --port <n>             WebSocket port for live mode (default: 19191)
    --json                 Print JSON instead of markdown
    --out <file>           Output file path (default: stdout)

  tabgruppen organize                          Group every tab of the current window by site
    --port <n>             WebSocket port (default: 19191)

  tabgruppen history [run-id]                  List recent organize runs, or the ops of one
    --limit <n>            Number of runs to list (default: 20)

  tabgruppen profiles                          List Firefox profiles

Keys (TUI):
  space toggle tab or group   r rename group   o organize   R reload   q quit

Environment:
  TABGRUPPEN_PORT              WebSocket port (default: 19191)
  TABGRUPPEN_PROFILE           Default Firefox profile for preview (overridden by --profile);
                               the TUI reads a session file only when --profile is given
  TABGRUPPEN_DATA_DIR          Data directory (default: ~/.local/share/tabgruppen)
  TABGRUPPEN_DB                Journal database path (default: <data dir>/tabgruppen.db)
  TABGRUPPEN_CONNECT_TIMEOUT   Wait for the extension (default: 10s)
  TABGRUPPEN_CALL_TIMEOUT      Per-call timeout on the bridge (default: 5s)
  TABGRUPPEN_EXTENSION_ORIGIN  Extension page prefix to hide from suggestions
`

func runTUI(cfg *config.Config, profileName string, port int) error {
	if profileName != "" {
		fac, profile, err := offlineFacility(profileName)
		if err != nil {
			return err
		}
		sess := organizer.New(fac, organizer.WithExtensionOrigin(cfg.ExtensionOrigin))
		p := tea.NewProgram(tui.NewModel(sess, nil, profile), tea.WithAltScreen())
		_, err = p.Run()
		return err
	}

	db, err := storage.OpenDB(cfg.DBPath)
	if err != nil {
		return err
	}
	defer db.Close()

	srv := server.New(port, server.WithCallTimeout(cfg.CallTimeout))
	sess := organizer.New(srv,
		organizer.WithExtensionOrigin(cfg.ExtensionOrigin),
		organizer.WithJournal(storage.NewJournal(db)))

	connect := func(ctx context.Context) error {
		ctx, cancel := context.WithTimeout(ctx, cfg.ConnectTimeout)
		defer cancel()
		return srv.WaitConnected(ctx)
	}
	p := tea.NewProgram(tui.NewModel(sess, connect, fmt.Sprintf("live :%d", port)), tea.WithAltScreen())

	ctx, cancel := context.WithCancel(context.Background())
	g, ctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		if err := srv.ListenAndServe(ctx); err != nil {
			p.Quit()
			return fmt.Errorf("listen on port %d: %w", port, err)
		}
		return nil
	})
	g.Go(func() error {
		defer cancel()
		_, err := p.Run()
		return err
	})
	return g.Wait()
}

func runPreview(cfg *config.Config, args []string) error {
	fs := flag.NewFlagSet("preview", flag.ExitOnError)
	profileName := fs.String("profile", "", "Firefox profile name")
	liveMode := fs.Bool("live", false, "Read tabs from the extension instead of the session file")
	port := fs.Int("port", cfg.Port, "WebSocket port for live mode")
	jsonFlag := fs.Bool("json", false, "Print JSON instead of markdown")
	outFile := fs.String("out", "", "Output file path (default: stdout)")
	fs.Parse(args)

	var (
		fac    facility.Facility
		source string
	)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	if *liveMode {
		srv, err := startLive(ctx, cfg, *port)
		if err != nil {
			return err
		}
		fac, source = srv, "live"
	} else {
		off, profile, err := offlineFacility(resolveProfileName(cfg, *profileName))
		if err != nil {
			return err
		}
		fac, source = off, profile
	}

	groups, err := organizer.New(fac, organizer.WithExtensionOrigin(cfg.ExtensionOrigin)).Fetch(ctx)
	if err != nil {
		return err
	}

	var output string
	if *jsonFlag {
		output, err = export.JSON(source, groups, time.Now())
		if err != nil {
			return fmt.Errorf("generate JSON: %w", err)
		}
	} else {
		output = export.Markdown(source, groups, time.Now())
	}

	if *outFile != "" {
		if err := os.WriteFile(*outFile, []byte(output), 0o644); err != nil {
			return fmt.Errorf("write file: %w", err)
		}
		return nil
	}
	fmt.Print(output)
	return nil
}

func runOrganize(cfg *config.Config, args []string) error {
	fs := flag.NewFlagSet("organize", flag.ExitOnError)
	port := fs.Int("port", cfg.Port, "WebSocket port")
	fs.Parse(args)

	db, err := storage.OpenDB(cfg.DBPath)
	if err != nil {
		return err
	}
	defer db.Close()

	srv := server.New(*port, server.WithCallTimeout(cfg.CallTimeout))
	sess := organizer.New(srv,
		organizer.WithExtensionOrigin(cfg.ExtensionOrigin),
		organizer.WithJournal(storage.NewJournal(db)))

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	g, ctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		if err := srv.ListenAndServe(ctx); err != nil {
			return fmt.Errorf("listen on port %d: %w", *port, err)
		}
		return nil
	})
	g.Go(func() error {
		defer cancel()
		fmt.Fprintf(os.Stderr, "Waiting for browser extension on port %d...\n", *port)
		wctx, wcancel := context.WithTimeout(ctx, cfg.ConnectTimeout)
		defer wcancel()
		if err := srv.WaitConnected(wctx); err != nil {
			return fmt.Errorf("timed out waiting for extension (%s)", cfg.ConnectTimeout)
		}

		if err := sess.Load(ctx); err != nil {
			return err
		}
		report, err := sess.Organize(ctx)
		if errors.Is(err, organizer.ErrNothingSelected) {
			fmt.Println("No groupable tabs in the current window.")
			return nil
		}
		if report != nil {
			for _, op := range report.Mutations() {
				line := fmt.Sprintf("  %-8s %-30s %s", op.Kind, op.Group, op.Outcome)
				if op.Err != nil {
					line += "  " + op.Err.Error()
				}
				fmt.Println(line)
			}
		}
		if err != nil {
			return err
		}
		fmt.Println(report.Summary())
		for _, grp := range sess.Model().Groups() {
			fmt.Printf("  %s (%d tabs)\n", grp.Name(), len(grp.Tabs))
		}
		return nil
	})
	return g.Wait()
}

func runHistory(cfg *config.Config, args []string) error {
	fs := flag.NewFlagSet("history", flag.ExitOnError)
	limit := fs.Int("limit", 20, "Number of runs to list")
	fs.Parse(reorderArgs(args))

	db, err := storage.OpenDB(cfg.DBPath)
	if err != nil {
		return err
	}
	defer db.Close()

	if fs.NArg() > 0 {
		id, err := strconv.ParseInt(fs.Arg(0), 10, 64)
		if err != nil {
			return fmt.Errorf("invalid run id %q", fs.Arg(0))
		}
		return printRunOps(db, id)
	}

	runs, err := storage.ListRuns(db, *limit)
	if err != nil {
		return err
	}
	if len(runs) == 0 {
		fmt.Println("No organize runs recorded.")
		return nil
	}
	for _, r := range runs {
		line := fmt.Sprintf("#%-4d %s  %-6s  %d created, %d added, %d ungrouped, %d updated, %d skipped",
			r.ID, r.StartedAt.Local().Format("2006-01-02 15:04:05"), r.Status,
			r.Created, r.Added, r.Ungrouped, r.Updated, r.Skipped)
		if r.Error != "" {
			line += "  (" + r.Error + ")"
		}
		fmt.Println(line)
	}
	return nil
}

func printRunOps(db *sql.DB, id int64) error {
	ops, err := storage.GetRunOps(db, id)
	if err != nil {
		return err
	}
	if len(ops) == 0 {
		fmt.Printf("Run #%d recorded no operations.\n", id)
		return nil
	}
	for _, op := range ops {
		ids := make([]string, len(op.TabIDs))
		for i, t := range op.TabIDs {
			ids[i] = strconv.Itoa(int(t))
		}
		line := fmt.Sprintf("%3d  %-12s %-30s tabs=%s  %s", op.Seq, op.Kind, op.GroupName, strings.Join(ids, ","), op.Outcome)
		if op.Error != "" {
			line += "  " + op.Error
		}
		fmt.Println(line)
	}
	return nil
}

func runProfiles() error {
	profiles, err := firefox.DiscoverProfiles("")
	if err != nil {
		return fmt.Errorf("discover Firefox profiles: %w", err)
	}
	if len(profiles) == 0 {
		return errors.New("no Firefox profiles found")
	}
	for _, p := range profiles {
		suffix := ""
		if p.IsDefault {
			suffix = " [default]"
		}
		fmt.Printf("%s (%s)%s\n", p.Name, p.Path, suffix)
	}
	return nil
}

// startLive serves the bridge until ctx is done and waits for the
// extension to connect.
func startLive(ctx context.Context, cfg *config.Config, port int) (*server.Server, error) {
	srv := server.New(port, server.WithCallTimeout(cfg.CallTimeout))
	errc := make(chan error, 1)
	go func() { errc <- srv.ListenAndServe(ctx) }()

	fmt.Fprintf(os.Stderr, "Waiting for browser extension on port %d...\n", port)
	wctx, cancel := context.WithTimeout(ctx, cfg.ConnectTimeout)
	defer cancel()
	waitErr := make(chan error, 1)
	go func() { waitErr <- srv.WaitConnected(wctx) }()

	select {
	case err := <-errc:
		if err == nil {
			err = errors.New("server stopped")
		}
		return nil, fmt.Errorf("listen on port %d: %w", port, err)
	case err := <-waitErr:
		if err != nil {
			return nil, fmt.Errorf("timed out waiting for extension (%s)", cfg.ConnectTimeout)
		}
		return srv, nil
	}
}

// offlineFacility reads the session file of the named (or default) profile.
func offlineFacility(profileName string) (*firefox.Offline, string, error) {
	profiles, err := firefox.DiscoverProfiles("")
	if err != nil {
		return nil, "", fmt.Errorf("discover profiles: %w", err)
	}
	profile, err := firefox.ResolveProfile(profiles, profileName)
	if err != nil {
		return nil, "", err
	}
	snap, err := firefox.ReadSessionFile(profile.Path)
	if err != nil {
		return nil, "", fmt.Errorf("read session: %w", err)
	}
	return firefox.NewOffline(snap), profile.Name, nil
}

// reorderArgs moves flag arguments before positional arguments so that
// flag.Parse handles them correctly (it stops at the first non-flag arg).
func reorderArgs(args []string) []string {
	var flags, positional []string
	for i := 0; i < len(args); i++ {
		if strings.HasPrefix(args[i], "-") {
			flags = append(flags, args[i])
			if i+1 < len(args) && !strings.HasPrefix(args[i+1], "-") && !strings.Contains(args[i], "=") {
				flags = append(flags, args[i+1])
				i++
			}
		} else {
			positional = append(positional, args[i])
		}
	}
	return append(flags, positional...)
}

// resolveProfileName returns the profile name from the flag if set,
// otherwise the configured default.
func resolveProfileName(cfg *config.Config, flagValue string) string {
	if flagValue != "" {
		return flagValue
	}
	return cfg.Profile
}
