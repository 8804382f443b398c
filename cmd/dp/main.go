package main

import (
	"bufio"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/spf13/cobra"
	"golang.org/x/term"

	"dp-go/internal/app"
	"dp-go/internal/config"
	"dp-go/internal/dp"
)

func main() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

// newApp reads the config and creates a DPApp. The caller must defer app.Close().
// operation identifies the CLI command being run (e.g. "Build", "Publish").
func newApp(cmd *cobra.Command, operation string) (*app.DPApp, error) {
	defaults, err := app.GetDefaults()
	if err != nil {
		return nil, fmt.Errorf("getting defaults: %w", err)
	}

	cfg, err := config.ReadFromFile(defaults["config_path"])
	if err != nil {
		return nil, fmt.Errorf("reading config: %w", err)
	}

	a, err := app.NewDPApp(cmd.Context(), cfg, operation)
	if err != nil {
		return nil, fmt.Errorf("initializing app: %w", err)
	}

	return a, nil
}

// confirmPublish asks the operator to confirm before the remote function is
// replaced. With --yes the prompt is skipped. When stdin is not a terminal
// the prompt cannot be answered, so --yes is required.
func confirmPublish(artifact *dp.Artifact, strategy dp.Strategy, function string, assumeYes bool) error {
	fmt.Printf("Archive: %s (%d bytes, sha256 %s)\n", artifact.Path, artifact.Size, artifact.Checksum)
	if strategy == dp.StrategyBucket {
		fmt.Println("Archive exceeds the direct upload limit; it will be staged through a transient bucket.")
	}

	if assumeYes {
		return nil
	}

	if !term.IsTerminal(int(os.Stdin.Fd())) {
		return fmt.Errorf("stdin is not a terminal; pass --yes to publish without a prompt")
	}

	fmt.Printf("Publish to function %q? [y/N]: ", function)
	reader := bufio.NewReader(os.Stdin)
	line, err := reader.ReadString('\n')
	if err != nil {
		return fmt.Errorf("reading confirmation: %w", err)
	}

	answer := strings.ToLower(strings.TrimSpace(line))
	if answer != "y" && answer != "yes" {
		return fmt.Errorf("publish aborted")
	}
	return nil
}

var rootCmd = &cobra.Command{
	Use:   "dp",
	Short: "Deployment packager for Python functions",
}

// config command
var configCmd = &cobra.Command{
	Use:   "config",
	Short: "Manage configuration",
}

var configInitCmd = &cobra.Command{
	Use:   "init",
	Short: "Initialize configuration",
	RunE: func(cmd *cobra.Command, args []string) error {
		// Get application defaults
		defaults, err := app.GetDefaults()
		if err != nil {
			return fmt.Errorf("failed to get defaults: %w", err)
		}

		// Create config with defaults
		cfg := config.NewConfig(defaults["base_dir"])

		// Initialize config file
		if err := config.Init(defaults["config_path"], cfg); err != nil {
			return fmt.Errorf("failed to initialize config: %w", err)
		}

		fmt.Printf("Configuration initialized at %s\n", defaults["config_path"])
		fmt.Printf("Base Dir: %s\n", defaults["base_dir"])
		fmt.Println("Edit the file to set function.name, function.region, and package.sources.")
		return nil
	},
}

var configListCmd = &cobra.Command{
	Use:   "list",
	Short: "View configuration",
	RunE: func(cmd *cobra.Command, args []string) error {
		// Get application defaults
		defaults, err := app.GetDefaults()
		if err != nil {
			return fmt.Errorf("failed to get defaults: %w", err)
		}

		// Read config
		cfg, err := config.ReadFromFile(defaults["config_path"])
		if err != nil {
			return fmt.Errorf("failed to read config: %w", err)
		}

		// Display config
		fmt.Printf("Configuration from %s:\n\n", defaults["config_path"])
		fmt.Printf("Function:     %s (%s)\n", cfg.Function.Name, cfg.Function.Region)
		fmt.Printf("Staging Dir:  %s\n", cfg.Package.StagingDir)
		fmt.Printf("Artifact:     %s\n", cfg.Package.ArtifactPath)
		fmt.Printf("Sources:      %s\n", strings.Join(cfg.Package.Sources, ", "))
		fmt.Printf("Packages:     %s\n", strings.Join(cfg.Dependencies.Packages, ", "))
		fmt.Printf("Installer:    %s\n", cfg.Dependencies.Installer.Type)
		fmt.Printf("Log Dir:      %s\n", cfg.LogDir)
		return nil
	},
}

// clean command
var cleanCmd = &cobra.Command{
	Use:   "clean",
	Short: "Remove the staging directory and archive",
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := newApp(cmd, "Clean")
		if err != nil {
			return err
		}
		defer a.Close()

		if err := a.Clean(); err != nil {
			return fmt.Errorf("clean failed: %w", err)
		}

		fmt.Println("Workspace cleaned.")
		return nil
	},
}

// build command
var buildCmd = &cobra.Command{
	Use:   "build",
	Short: "Stage dependencies and sources, then build the archive",
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := newApp(cmd, "Build")
		if err != nil {
			return err
		}
		defer a.Close()

		artifact, err := a.Build(cmd.Context())
		if err != nil {
			a.MarkFailed()
			return fmt.Errorf("build failed: %w", err)
		}

		fmt.Printf("Built %s (%d bytes, sha256 %s)\n", artifact.Path, artifact.Size, artifact.Checksum)
		return nil
	},
}

// publish command
var publishCmd = &cobra.Command{
	Use:   "publish",
	Short: "Upload the current archive to the remote function",
	RunE: func(cmd *cobra.Command, args []string) error {
		assumeYes, _ := cmd.Flags().GetBool("yes")
		keepBucket, _ := cmd.Flags().GetBool("keep-bucket")

		a, err := newApp(cmd, "Publish")
		if err != nil {
			return err
		}
		defer a.Close()

		artifact, strategy, err := a.Measure()
		if err != nil {
			return fmt.Errorf("measuring archive: %w", err)
		}

		if err := confirmPublish(artifact, strategy, a.FunctionName(), assumeYes); err != nil {
			return err
		}

		result, err := a.Publish(cmd.Context(), keepBucket)
		if err != nil {
			a.MarkFailed()
			return fmt.Errorf("publish failed: %w", err)
		}

		printPublishResult(result)
		return nil
	},
}

// deploy command: clean, build, publish in one run
var deployCmd = &cobra.Command{
	Use:   "deploy",
	Short: "Clean, build, and publish in one run",
	RunE: func(cmd *cobra.Command, args []string) error {
		assumeYes, _ := cmd.Flags().GetBool("yes")
		keepBucket, _ := cmd.Flags().GetBool("keep-bucket")

		a, err := newApp(cmd, "Deploy")
		if err != nil {
			return err
		}
		defer a.Close()

		if err := a.Clean(); err != nil {
			a.MarkFailed()
			return fmt.Errorf("clean failed: %w", err)
		}

		artifact, err := a.Build(cmd.Context())
		if err != nil {
			a.MarkFailed()
			return fmt.Errorf("build failed: %w", err)
		}

		_, strategy, err := a.Measure()
		if err != nil {
			a.MarkFailed()
			return fmt.Errorf("measuring archive: %w", err)
		}

		if err := confirmPublish(artifact, strategy, a.FunctionName(), assumeYes); err != nil {
			a.MarkFailed()
			return err
		}

		result, err := a.Publish(cmd.Context(), keepBucket)
		if err != nil {
			a.MarkFailed()
			return fmt.Errorf("publish failed: %w", err)
		}

		printPublishResult(result)
		return nil
	},
}

// inspect command
var inspectCmd = &cobra.Command{
	Use:   "inspect",
	Short: "List the contents of the current archive",
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := newApp(cmd, "Inspect")
		if err != nil {
			return err
		}
		defer a.Close()

		artifact, strategy, err := a.Measure()
		if err != nil {
			return err
		}

		entries, err := a.ListArchive()
		if err != nil {
			return err
		}

		fmt.Printf("%s: %d bytes, %d entries, sha256 %s\n", artifact.Path, artifact.Size, len(entries), artifact.Checksum)
		fmt.Printf("Publish path: %s\n\n", strategy)
		for _, e := range entries {
			fmt.Println(e)
		}
		return nil
	},
}

// history command
var historyCmd = &cobra.Command{
	Use:   "history",
	Short: "View deploy operation history",
	RunE: func(cmd *cobra.Command, args []string) error {
		limit, _ := cmd.Flags().GetInt("limit")

		a, err := newApp(cmd, "GetHistory")
		if err != nil {
			return err
		}
		defer a.Close()

		ops, err := a.GetHistory(limit)
		if err != nil {
			return err
		}

		if len(ops) == 0 {
			fmt.Println("No deploy operations recorded.")
			return nil
		}

		for _, op := range ops {
			duration := ""
			if op.FinishedAt.Valid {
				d := op.FinishedAt.Time.Sub(op.StartedAt)
				duration = d.Truncate(time.Millisecond).String()
			}
			fmt.Printf("#%d  %-10s  %s  %-8s  %-8s  %d bytes  %s\n",
				op.ID,
				op.Operation,
				op.StartedAt.Format("2006-01-02 15:04:05"),
				op.Status,
				op.Strategy,
				op.ArtifactSize,
				duration,
			)
		}
		return nil
	},
}

func printPublishResult(result *dp.PublishResult) {
	switch result.Strategy {
	case dp.StrategyDirect:
		fmt.Println("Function code updated (direct upload).")
	case dp.StrategyBucket:
		if result.CleanedUp {
			fmt.Printf("Function code updated via transient bucket %s (removed).\n", result.Bucket)
		} else {
			fmt.Printf("Function code updated via bucket %s, key %s (retained).\n", result.Bucket, result.Key)
		}
	}
}

func init() {
	// config subcommands
	configCmd.AddCommand(configInitCmd)
	configCmd.AddCommand(configListCmd)

	// root commands
	rootCmd.AddCommand(configCmd)
	rootCmd.AddCommand(cleanCmd)
	rootCmd.AddCommand(buildCmd)
	rootCmd.AddCommand(publishCmd)
	publishCmd.Flags().BoolP("yes", "y", false, "Skip the confirmation prompt")
	publishCmd.Flags().Bool("keep-bucket", false, "Retain the transient bucket after a staged publish")
	rootCmd.AddCommand(deployCmd)
	deployCmd.Flags().BoolP("yes", "y", false, "Skip the confirmation prompt")
	deployCmd.Flags().Bool("keep-bucket", false, "Retain the transient bucket after a staged publish")
	rootCmd.AddCommand(inspectCmd)
	rootCmd.AddCommand(historyCmd)
	historyCmd.Flags().IntP("limit", "n", 50, "Maximum number of operations to show")
}
