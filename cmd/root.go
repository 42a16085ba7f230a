package cmd

import (
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/spf13/cobra"

	"opendownloadmanager/downloader"
	"opendownloadmanager/internal"
	"opendownloadmanager/utils"
)

var (
	outputPath string
	threads    int
	proxyURL   string
	quiet      bool
	debug      bool
	logLevel   string
	logFile    string
	configPath string
	config     *internal.Config
	controller *downloader.Controller
)

var rootCmd = &cobra.Command{
	Use:     "dlmgr",
	Short:   "Resumable, multi-segment HTTP(S) downloader",
	Version: "v0.1.0",
	Long: `dlmgr downloads a remote HTTP(S) resource by splitting it into
parallel ranged-GET segments, checkpointing progress to disk so a task
can be paused and resumed across process restarts.

Examples:
  dlmgr add https://example.com/file.iso
  dlmgr add https://example.com/file.iso -o /tmp/file.iso -t 8
  dlmgr list
  dlmgr progress <id>
  dlmgr pause <id>
  dlmgr resume <id>
  dlmgr cancel <id>
  dlmgr retry <id>
  dlmgr remove <id>

Environment Variables:
  DLMGR_THREADS      Default number of segments (1-32)
  DLMGR_TIMEOUT      Per-request HTTP timeout in seconds
  DLMGR_MAX_RETRIES  Per-segment retry budget
  DLMGR_PROXY        Proxy URL (http://, https://, socks5://)
  DLMGR_META_DIR     Directory for persisted task metadata`,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		config = internal.LoadFromFile(configPath)
		config.LoadFromEnv()

		if debug {
			config.EnableDebug = true
			config.LogLevel = "debug"
		}
		if quiet {
			config.QuietMode = true
		}
		if logLevel != "" {
			config.LogLevel = logLevel
		}
		if logFile != "" {
			config.LogFile = logFile
		}
		if proxyURL != "" {
			config.ProxyURL = proxyURL
		}

		if err := config.ValidateConfig(); err != nil {
			return fmt.Errorf("configuration error: %v", err)
		}

		if err := internal.InitLogger(config); err != nil {
			return fmt.Errorf("failed to initialize logger: %v", err)
		}

		controller = downloader.NewController(config.DownloadConfigFromConfig())
		return nil
	},
}

var addCmd = &cobra.Command{
	Use:   "add <URL>",
	Short: "Add a new download task and run it in the foreground",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		url := args[0]

		if threads > 0 {
			config.NumThreads = threads
			controller = downloader.NewController(config.DownloadConfigFromConfig())
		}

		id, err := controller.Add(url, outputPath)
		if err != nil {
			return fmt.Errorf("add failed: %w", err)
		}

		if !quiet {
			fmt.Printf("task %s added (%d threads)\n", id, config.NumThreads)
		}

		watchForeground(id)
		return nil
	},
}

var listCmd = &cobra.Command{
	Use:   "list",
	Short: "List all known tasks and their status",
	RunE: func(cmd *cobra.Command, args []string) error {
		summaries := controller.List()
		if len(summaries) == 0 {
			fmt.Println("no tasks")
			return nil
		}
		for _, s := range summaries {
			fmt.Printf("%s  %-12s %s\n", s.ID, s.Status, s.URL)
		}
		return nil
	},
}

var progressCmd = &cobra.Command{
	Use:   "progress <id>",
	Short: "Show a task's current progress",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		snap, ok := controller.Progress(args[0])
		if !ok {
			return fmt.Errorf("no progress available for task %s", args[0])
		}
		printProgress(snap)
		return nil
	},
}

var pauseCmd = &cobra.Command{
	Use:   "pause <id>",
	Short: "Pause a running task",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		if !controller.Pause(args[0]) {
			return fmt.Errorf("unknown task %s", args[0])
		}
		fmt.Printf("task %s paused\n", args[0])
		return nil
	},
}

var resumeCmd = &cobra.Command{
	Use:   "resume <id>",
	Short: "Resume a paused task",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		if !controller.Resume(args[0]) {
			return fmt.Errorf("task %s is not paused", args[0])
		}
		fmt.Printf("task %s resumed\n", args[0])
		watchForeground(args[0])
		return nil
	},
}

var cancelCmd = &cobra.Command{
	Use:   "cancel <id>",
	Short: "Cancel a task and remove its partial data",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		if !controller.Cancel(args[0]) {
			return fmt.Errorf("unknown task %s", args[0])
		}
		fmt.Printf("task %s canceled\n", args[0])
		return nil
	},
}

var retryCmd = &cobra.Command{
	Use:   "retry <id>",
	Short: "Retry a failed or canceled task",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		if !controller.Retry(args[0]) {
			return fmt.Errorf("task %s is not failed or canceled", args[0])
		}
		fmt.Printf("task %s retrying\n", args[0])
		watchForeground(args[0])
		return nil
	},
}

var removeCmd = &cobra.Command{
	Use:   "remove <id>",
	Short: "Cancel (if running) and forget a task",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		if !controller.Remove(args[0]) {
			return fmt.Errorf("unknown task %s", args[0])
		}
		fmt.Printf("task %s removed\n", args[0])
		return nil
	},
}

// watchForeground installs a SIGINT/SIGTERM handler that pauses id, then
// polls progress until the task leaves the Downloading phase, rendering
// a CLI progress bar unless quiet mode is set.
func watchForeground(id string) {
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)
	defer signal.Stop(sigChan)

	stop := make(chan struct{})
	go func() {
		select {
		case sig := <-sigChan:
			internal.LogInfo("received %v, pausing task %s", sig, id)
			controller.Pause(id)
		case <-stop:
		}
	}()
	defer close(stop)

	var bar *utils.BarBridge
	ticker := time.NewTicker(250 * time.Millisecond)
	defer ticker.Stop()

	for range ticker.C {
		summaries := controller.List()
		status := ""
		for _, s := range summaries {
			if s.ID == id {
				status = s.Status
				break
			}
		}

		if snap, ok := controller.Progress(id); ok {
			if bar == nil && !quiet {
				bar = utils.NewBarBridge(snapshotSource{snap}, snap.TotalSize, quiet)
			}
			if bar != nil {
				bar.Tick()
			}
		}

		if status != "Downloading" && status != "" {
			if bar != nil {
				bar.Finish(outputPath)
			}
			fmt.Printf("task %s: %s\n", id, status)
			return
		}
	}
}

// snapshotSource adapts a single already-taken ProgressSnapshot to the
// internal.ProgressSource interface expected by BarBridge.
type snapshotSource struct {
	snap internal.ProgressSnapshot
}

func (s snapshotSource) Snapshot() internal.ProgressSnapshot { return s.snap }

func printProgress(snap internal.ProgressSnapshot) {
	fmt.Printf("%s / %s (%.1f%%)\n",
		humanize.Bytes(uint64(snap.TotalDownloaded)),
		humanize.Bytes(uint64(snap.TotalSize)),
		snap.Percent)
	for _, seg := range snap.Segments {
		fmt.Printf("  segment %d: %s / %s\n", seg.SegmentID,
			humanize.Bytes(uint64(seg.Downloaded)), humanize.Bytes(uint64(seg.Total)))
	}
}

func init() {
	rootCmd.PersistentFlags().StringVar(&configPath, "config", "dlmgr.toml", "path to TOML config file")
	rootCmd.PersistentFlags().StringVar(&proxyURL, "proxy", "", "HTTP/SOCKS5 proxy URL (env: DLMGR_PROXY)")
	rootCmd.PersistentFlags().BoolVarP(&quiet, "quiet", "q", false, "suppress progress bar output")
	rootCmd.PersistentFlags().BoolVarP(&debug, "debug", "d", false, "enable debug logging")
	rootCmd.PersistentFlags().StringVar(&logLevel, "log-level", "", "log level (debug, info, warn, error)")
	rootCmd.PersistentFlags().StringVar(&logFile, "log-file", "", "write logs to file instead of stderr")

	addCmd.Flags().StringVarP(&outputPath, "output", "o", "", "output file path")
	addCmd.Flags().IntVarP(&threads, "threads", "t", 0, "number of segments (default from config)")

	rootCmd.AddCommand(addCmd, listCmd, progressCmd, pauseCmd, resumeCmd, cancelCmd, retryCmd, removeCmd)
}

func Execute() error {
	return rootCmd.Execute()
}
