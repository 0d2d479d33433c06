package main

import (
	"context"
	"fmt"
	"io"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/cockroachdb/errors"
	"github.com/mattn/go-colorable"
	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"bestgrab/internal/adapters/jq"
	"bestgrab/internal/adapters/localstorage"
	"bestgrab/internal/adapters/ytdlp"
	"bestgrab/internal/config"
	"bestgrab/internal/core/domain"
	"bestgrab/internal/selector"
	"bestgrab/internal/service"
)

// Exit codes.
const (
	exitOK                = 0
	exitFailure           = 1
	exitDependencyMissing = 2
)

type rootOptions struct {
	url        string
	proxy      bool
	cookies    bool
	outputDir  string
	logLevel   string
	envFile    string
	askProxy   bool
	askCookies bool
}

func main() {
	out := colorable.NewColorableStdout()
	cmd := newRootCmd(out)
	if err := cmd.Execute(); err != nil {
		os.Exit(reportError(out, err))
	}
	os.Exit(exitOK)
}

func newRootCmd(out io.Writer) *cobra.Command {
	var opts rootOptions

	cmd := &cobra.Command{
		Use:   "bestgrab",
		Short: "Download a video at the best available quality with yt-dlp",
		Long: `bestgrab lists the formats yt-dlp offers for a URL, picks one video-only
and one audio-only stream, and downloads them merged into a folder named
after the current minute, together with subtitles, a thumbnail and a
video_info.txt summary.

Without flags every setting is asked for interactively.`,
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			opts.askProxy = !cmd.Flags().Changed("proxy")
			opts.askCookies = !cmd.Flags().Changed("cookies")
			return run(cmd.Context(), opts, cmd.InOrStdin(), out)
		},
	}

	cmd.Flags().StringVarP(&opts.url, "url", "u", "", "Video URL (prompted when empty)")
	cmd.Flags().BoolVar(&opts.proxy, "proxy", false, "Use the configured proxy (prompted when not set)")
	cmd.Flags().BoolVar(&opts.cookies, "cookies", false, "Use the configured cookies file (prompted when not set)")
	cmd.Flags().StringVarP(&opts.outputDir, "output-dir", "o", "", "Directory the timestamped folder is created in")
	cmd.Flags().StringVar(&opts.logLevel, "log-level", "", "Log level (debug, info, warn, error)")
	cmd.Flags().StringVar(&opts.envFile, "env-file", ".env", "Optional .env file with BESTGRAB_* settings")
	return cmd
}

func run(ctx context.Context, opts rootOptions, in io.Reader, out io.Writer) error {
	cfg, envLoaded := config.Load(opts.envFile)
	if opts.outputDir != "" {
		cfg.OutputDir = opts.outputDir
	}
	if opts.logLevel != "" {
		cfg.LogLevel = opts.logLevel
	}

	logger := logrus.New()
	logger.SetOutput(colorable.NewColorableStderr())
	lvl, err := cfg.Level()
	if err != nil {
		logger.WithError(err).Warn("using info level")
	}
	logger.SetLevel(lvl)
	if !envLoaded {
		logger.Debug("no .env file found")
	}

	ytDlp := ytdlp.NewYtDlpDownloader(cfg.YtDlpPath, cfg.DownloadOptions(), logger)
	ytDlp.Stdout = out
	extractor := jq.NewExtractor(cfg.JqPath, logger)
	storage := localstorage.NewLocalStorage(cfg.OutputDir)

	orchestrator := service.NewOrchestrator(ytDlp, selector.NewTextSelector(), extractor, storage, logger, out)

	if ctx == nil {
		ctx = context.Background()
	}
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)
	defer signal.Stop(sigChan)
	go func() {
		select {
		case <-sigChan:
			logger.Warn("received interrupt signal, cancelling")
			cancel()
		case <-ctx.Done():
		}
	}()

	if err := orchestrator.CheckDependencies(ctx); err != nil {
		return err
	}

	printBanner(out)
	p := newPrompter(in, out)

	job, err := askJob(p, opts, cfg, orchestrator)
	if err != nil {
		return err
	}

	_, err = orchestrator.RunJob(ctx, job)
	return err
}

// askJob fills in whatever the flags left open.
func askJob(p *prompter, opts rootOptions, cfg *config.Config, orchestrator *service.Orchestrator) (domain.DownloadJob, error) {
	url := strings.TrimSpace(opts.url)
	if url == "" {
		answer, err := p.ask("\n🔗 Enter video URL: ")
		if err != nil {
			return domain.DownloadJob{}, err
		}
		url = answer
	}
	if url == "" {
		return domain.DownloadJob{}, errors.New("no video URL given")
	}

	useProxy := opts.proxy
	if opts.askProxy {
		yes, err := p.yes(fmt.Sprintf("🔄 Use default proxy %s? (Y/N): ", cfg.Proxy))
		if err != nil {
			return domain.DownloadJob{}, err
		}
		useProxy = yes
	}
	var proxy string
	if useProxy {
		proxy = cfg.Proxy
	}

	useCookies := opts.cookies
	if opts.askCookies {
		yes, err := p.yes("🍪 Use cookies file? (Y/N): ")
		if err != nil {
			return domain.DownloadJob{}, err
		}
		useCookies = yes
	}
	var cookies string
	if useCookies {
		if cfg.CookiesAvailable() {
			cookies = cfg.CookiesFile
		} else {
			fmt.Fprintf(p.out, "⚠️  Cookies file %s not found, continuing without cookies\n", cfg.CookiesFile)
		}
	}

	return orchestrator.NewJob(url, proxy, cookies), nil
}

func printBanner(out io.Writer) {
	rule := strings.Repeat("=", 40)
	fmt.Fprintf(out, "\n%s\n📺 Smart video downloader (best quality auto-select)\n%s\n", rule, rule)
}

// reportError prints what the user needs to know about err and returns the
// process exit code.
func reportError(out io.Writer, err error) int {
	switch {
	case errors.Is(err, domain.ErrDependencyMissing):
		fmt.Fprintf(out, "\033[31m❌ Please install the dependencies first (%v):\n", err)
		fmt.Fprintln(out, "1. yt-dlp: pip install yt-dlp --upgrade")
		fmt.Fprintln(out, "2. jq: brew install jq (Mac) or sudo apt install jq (Linux)\033[0m")
		return exitDependencyMissing
	case errors.Is(err, domain.ErrOperationFailure):
		// Already reported by the orchestrator.
		return exitFailure
	default:
		fmt.Fprintf(out, "\033[31m❌ Startup failed: %v\033[0m\n", err)
		return exitFailure
	}
}
