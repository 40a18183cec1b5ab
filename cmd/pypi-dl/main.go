package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/charmbracelet/lipgloss"
	"github.com/spf13/cobra"

	"github.com/Hektorwang/pypi-downloader/internal/config"
	"github.com/Hektorwang/pypi-downloader/internal/download"
	"github.com/Hektorwang/pypi-downloader/internal/index"
	"github.com/Hektorwang/pypi-downloader/internal/model"
	"github.com/Hektorwang/pypi-downloader/internal/resolver"
)

var (
	requirementFile string
	configPath      string
	downloadDir     string
	concurrency     int
	useCN           bool
	dryRun          bool
	urlListPath     string
	buildIndex      bool
	pythonVersion   string
	abi             string
	platform        string
	allVersions     bool
	latestPatch     bool
	verbose         bool
)

func main() {
	rootCmd := &cobra.Command{
		Use:   "pypi-dl [packages...]",
		Short: "Download PyPI packages and their files through mirror fallback",
		Long: "pypi-dl resolves a requirements file with pip-compile, then downloads every\n" +
			"pinned package from a rotating set of PyPI mirrors into a local directory\n" +
			"that can be served as an offline package repository.",
		Args: cobra.ArbitraryArgs,
		RunE: run,
		// Errors are printed once, with the summary table already out.
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	rootCmd.Flags().StringVarP(&requirementFile, "requirement", "r", "", "Requirements file to resolve with pip-compile")
	rootCmd.Flags().StringVar(&configPath, "config", "", "Path to JSON config file")
	rootCmd.Flags().StringVarP(&downloadDir, "download-dir", "d", "", "Directory to download packages into")
	rootCmd.Flags().IntVarP(&concurrency, "concurrency", "c", 0, "Maximum concurrent file downloads")
	rootCmd.Flags().BoolVar(&useCN, "cn", false, "Use the CN mirror set with fallback rotation")
	rootCmd.Flags().BoolVar(&dryRun, "dry-run", false, "Collect download URLs without downloading")
	rootCmd.Flags().StringVar(&urlListPath, "url-list-path", "", "Where to write the dry-run URL list")
	rootCmd.Flags().BoolVar(&buildIndex, "build-index", false, "Build a PEP 503 simple index after downloading")
	rootCmd.Flags().StringVar(&pythonVersion, "python-version", "", "Only download wheels for this Python tag set (e.g. cp311)")
	rootCmd.Flags().StringVar(&abi, "abi", "", "Only download wheels for this ABI tag set")
	rootCmd.Flags().StringVar(&platform, "platform", "", "Only download wheels for this platform tag set")
	rootCmd.Flags().BoolVar(&allVersions, "all-versions", false, "Download every Python 3 compatible version")
	rootCmd.Flags().BoolVar(&latestPatch, "latest-patch", false, "Download the latest patch of each minor version")
	rootCmd.Flags().BoolVarP(&verbose, "verbose", "v", false, "Verbose output")

	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func run(cmd *cobra.Command, args []string) error {
	if allVersions && latestPatch {
		return fmt.Errorf("--all-versions and --latest-patch are mutually exclusive")
	}
	if requirementFile == "" && len(args) == 0 {
		return fmt.Errorf("nothing to do: pass packages as arguments or a requirements file with -r")
	}

	settings, err := loadSettings()
	if err != nil {
		return err
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, os.Interrupt, syscall.SIGTERM)
	go func() {
		<-sigCh
		fmt.Println("\nInterrupted, cancelling...")
		cancel()
	}()

	requirements, err := gatherRequirements(ctx, args)
	if err != nil {
		return err
	}

	manager, err := download.NewManager(settings, printEvent)
	if err != nil {
		return err
	}
	defer manager.Close()

	statuses, err := manager.Run(ctx, requirements)
	if err != nil {
		if ctx.Err() != nil {
			fmt.Println("\nSynchronization cancelled.")
			os.Exit(130)
		}
		return err
	}

	printSummary(statuses)

	if buildIndex && !settings.DryRun {
		fmt.Println("\nBuilding simple index...")
		if err := index.Build(settings.DownloadDir); err != nil {
			return fmt.Errorf("building index: %w", err)
		}
		fmt.Printf("Index written to %s/simple\n", settings.DownloadDir)
	}

	for _, s := range statuses {
		if s.Status != model.StatusSynchronized {
			os.Exit(1)
		}
	}
	return nil
}

func loadSettings() (*config.Settings, error) {
	settings := config.DefaultSettings()
	if configPath != "" {
		loaded, err := config.Load(configPath)
		if err != nil {
			return nil, fmt.Errorf("loading config: %w", err)
		}
		settings = loaded
	}

	if downloadDir != "" {
		settings.DownloadDir = downloadDir
	}
	if concurrency > 0 {
		settings.Concurrency = concurrency
	}
	if urlListPath != "" {
		settings.URLListPath = urlListPath
	}
	if useCN {
		settings.UseCNMirrors = true
	}
	if dryRun {
		settings.DryRun = true
	}
	if pythonVersion != "" {
		settings.PythonVersion = pythonVersion
	}
	if abi != "" {
		settings.ABI = abi
	}
	if platform != "" {
		settings.Platform = platform
	}
	if allVersions {
		settings.AllVersions = true
	}
	if latestPatch {
		settings.LatestPatch = true
	}
	if verbose {
		settings.Verbose = true
	}
	return settings, nil
}

// gatherRequirements combines positional pins with the pip-compile
// resolution of the requirements file, when one was given.
func gatherRequirements(ctx context.Context, args []string) (string, error) {
	var parts []string
	if len(args) > 0 {
		parts = append(parts, strings.Join(args, "\n"))
	}
	if requirementFile != "" {
		fmt.Printf("Resolving %s with pip-compile...\n", requirementFile)
		resolved, err := resolver.Compile(ctx, requirementFile, useCN)
		if err != nil {
			return "", err
		}
		parts = append(parts, resolved)
	}
	return strings.Join(parts, "\n"), nil
}

func printEvent(event download.ProgressEvent) {
	prefix := "   "
	switch event.Level {
	case download.LevelError:
		prefix = "[x] "
	case download.LevelWarning:
		prefix = "[!] "
	case download.LevelSuccess:
		prefix = "[+] "
	case download.LevelInfo:
		prefix = "[i] "
	}
	fmt.Println(prefix + event.Message)
}

var (
	headerStyle = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("#4ECDC4"))
	okStyle     = lipgloss.NewStyle().Foreground(lipgloss.Color("#95E1A3"))
	warnStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("#FFE66D"))
	failStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("#FF6B6B"))
)

func statusStyle(s model.Status) lipgloss.Style {
	switch s {
	case model.StatusSynchronized:
		return okStyle
	case model.StatusPartialSync:
		return warnStyle
	default:
		return failStyle
	}
}

func printSummary(statuses []model.PackageStatus) {
	if len(statuses) == 0 {
		return
	}

	pkgW, verW, statW := len("Package"), len("Version"), len("Status")
	for _, s := range statuses {
		pkgW = max(pkgW, len(s.Package))
		verW = max(verW, len(s.VersionLabel))
		statW = max(statW, len(s.Status))
	}

	fmt.Println()
	fmt.Println(headerStyle.Render(fmt.Sprintf("%-*s  %-*s  %-*s  %s",
		pkgW, "Package", verW, "Version", statW, "Status", "Details")))
	for _, s := range statuses {
		line := fmt.Sprintf("%-*s  %-*s  %-*s  %s",
			pkgW, s.Package, verW, s.VersionLabel, statW, s.Status, s.Details)
		fmt.Println(statusStyle(s.Status).Render(line))
	}
}
