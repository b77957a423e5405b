package main

import (
	"bufio"
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"
	"time"

	"signalboard/internal/api"
	"signalboard/internal/config"
	"signalboard/internal/refresh"
	"signalboard/internal/search"
	"signalboard/internal/store"
	"signalboard/internal/symbols"
	"signalboard/internal/util"
	"signalboard/internal/watchlist"
)

func main() {
	configPath := flag.String("config", "config.yaml", "path to config file")
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		fmt.Fprintln(os.Stderr, "config:", err)
		os.Exit(1)
	}

	logger := util.NewLogger(cfg.Logging.Level, cfg.Logging.Format)
	util.SetDefault(logger)

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	client := api.NewClient(cfg.Backend.BaseURL,
		api.WithTimeout(cfg.Backend.Timeout()),
		api.WithRateLimiter(util.NewRateLimiter(cfg.Backend.RateLimitPerMin)),
		api.WithLogger(logger))

	sessions, err := store.NewSessionStore(cfg.Storage.SQLitePath)
	if err != nil {
		logger.Error("opening session store", "error", err)
		os.Exit(1)
	}
	defer sessions.Close()

	// Symbol universe: warm-start from the last session's snapshot, then load
	// the authoritative set in the background.
	index := symbols.NewIndex(client, logger)
	snapshotPath := filepath.Join(cfg.Storage.DataDir, "symbols.parquet")
	if err := index.WarmFromSnapshot(snapshotPath); err != nil {
		logger.Debug("no symbol snapshot", "error", err)
	}
	go func() {
		err := util.Retry(ctx, 3, time.Second, index.Load)
		if err != nil {
			logger.Warn("symbol universe unavailable, search is remote-only", "error", err)
			return
		}
		if err := index.SaveSnapshot(snapshotPath); err != nil {
			logger.Warn("saving symbol snapshot", "error", err)
		}
	}()

	binding := &consoleBinding{}
	cache := watchlist.NewCache(client, binding, sessions, logger)
	go func() {
		if err := util.Retry(ctx, 3, time.Second, cache.Hydrate); err != nil {
			logger.Warn("watchlist hydrate failed, starting empty", "error", err)
		}
	}()

	renderer := &consoleRenderer{cache: cache}
	engine := search.NewEngine(index, client, renderer, search.Config{
		Debounce:    cfg.Search.Debounce(),
		RemoteLimit: cfg.Search.RemoteLimit,
	}, logger)

	sections := &sectionPrinter{client: client}
	sched := refresh.NewScheduler(cfg.Refresh.Interval(), &consoleNotifier{}, sessions, logger)
	sched.Register("signals", sections.signals)
	sched.Register("news", sections.news)
	sched.Register("recommendations", sections.recommendations)
	sched.Register("market", sections.market)
	sched.Register("stats", sections.stats)
	sched.SetSection(cfg.Refresh.InitialSection)
	defer sched.Disable()

	fmt.Println("signalboard console. Type to search; :help for commands.")
	repl(ctx, cancel, engine, cache, sched, sessions)
}

// repl reads commands from stdin until EOF, :quit, or a signal. Plain input
// is treated as the live search query; ":"-prefixed lines are commands.
func repl(ctx context.Context, cancel context.CancelFunc, engine *search.Engine, cache *watchlist.Cache, sched *refresh.Scheduler, sessions *store.SessionStore) {
	lines := make(chan string)
	go func() {
		scanner := bufio.NewScanner(os.Stdin)
		for scanner.Scan() {
			lines <- scanner.Text()
		}
		close(lines)
	}()

	for {
		var line string
		var ok bool
		select {
		case <-ctx.Done():
			return
		case line, ok = <-lines:
			if !ok {
				return
			}
		}

		if !strings.HasPrefix(line, ":") {
			engine.QueryChanged(line)
			continue
		}

		fields := strings.Fields(line[1:])
		if len(fields) == 0 {
			continue
		}
		arg := ""
		if len(fields) > 1 {
			arg = fields[1]
		}

		switch fields[0] {
		case "up":
			engine.MoveSelection(-1)
		case "down":
			engine.MoveSelection(1)
		case "enter":
			engine.Commit()
		case "esc":
			engine.Cancel()
		case "star":
			if err := cache.Toggle(ctx, arg); err != nil {
				fmt.Println("  !", err)
			}
		case "watchlist":
			fmt.Println("  watchlist:", strings.Join(cache.Symbols(), " "))
		case "section":
			sched.SetSection(arg)
			fmt.Println("  section:", arg)
		case "auto":
			switch arg {
			case "on":
				sched.Enable(ctx)
			case "off":
				sched.Disable()
			default:
				fmt.Println("  usage: :auto on|off")
			}
		case "log":
			printSessionLog(ctx, sessions)
		case "help":
			printHelp()
		case "quit", "q":
			cancel()
			return
		default:
			fmt.Println("  unknown command, :help for help")
		}
	}
}

func printSessionLog(ctx context.Context, sessions *store.SessionStore) {
	entries, err := sessions.Recent(ctx, 20)
	if err != nil {
		fmt.Println("  !", err)
		return
	}
	for _, e := range entries {
		status := "ok"
		if !e.OK {
			status = "FAIL " + e.Detail
		}
		fmt.Printf("  %s %-7s %-12s %-7s %4dms %s\n",
			e.Timestamp.Format("15:04:05"), e.Kind, e.Target, e.Action, e.ElapsedMS, status)
	}
}

func printHelp() {
	fmt.Print(`  <text>            search as you type
  :up / :down       move result selection
  :enter            open selected (or first) result
  :esc              dismiss results
  :star SYMBOL      toggle watchlist membership
  :watchlist        show watchlist
  :section NAME     set refresh section (signals news recommendations market stats)
  :auto on|off      toggle auto-refresh
  :log              show recent session log
  :quit             exit
`)
}
