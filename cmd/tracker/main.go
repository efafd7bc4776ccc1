package main

import (
	"fmt"
	"os"
	"runtime"

	"github.com/fentz26/tracker/internal/config"
	"github.com/fentz26/tracker/internal/version"
	"github.com/spf13/cobra"
)

var rootCmd = &cobra.Command{
	Use:   "tracker",
	Short: "Tracker - task, epic and subtask tracker",
	Long:  `Tracker keeps tasks, epics and subtasks in a daemon, rejects overlapping schedules and remembers what you looked at last.`,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		c, err := config.Load(configPath)
		if err != nil {
			return err
		}
		cfg = c
		apiClient.Timeout = cfg.APITimeout
		if !cmd.Flags().Changed("api") {
			apiAddr = "http://" + cfg.Listen
		}
		return nil
	},
	SilenceUsage: true,
	// No RunE - defaults to showing help when no subcommand is provided
}

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print the tracker version",
	Run: func(cmd *cobra.Command, args []string) {
		fmt.Printf("tracker version %s\n", version.Version)
		fmt.Printf("  Go version: %s\n", runtime.Version())
		fmt.Printf("  OS/Arch:    %s/%s\n", runtime.GOOS, runtime.GOARCH)
	},
}

var (
	apiAddr    string
	configPath string
	cfg        = config.DefaultConfig()
)

func init() {
	rootCmd.PersistentFlags().StringVar(&apiAddr, "api", "http://127.0.0.1:8080", "API server address")
	rootCmd.PersistentFlags().StringVar(&configPath, "config", config.DefaultPath(), "Path to config file")

	// Add subcommands
	rootCmd.AddCommand(daemonCmd)
	rootCmd.AddCommand(newItemCmd(taskKind))
	rootCmd.AddCommand(newItemCmd(epicKind))
	rootCmd.AddCommand(newItemCmd(subtaskKind))
	rootCmd.AddCommand(historyCmd, prioritizedCmd, journalCmd)
	rootCmd.AddCommand(configCmd)
	rootCmd.AddCommand(tuiCmd)
	rootCmd.AddCommand(versionCmd)
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
