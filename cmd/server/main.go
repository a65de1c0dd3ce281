package main

import (
	"fmt"
	"log/slog"
	"os"
	"strings"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/mcouto/jira-mcp-server/internal/mcp"
)

var (
	version = "1.0.0"

	cfgFile string
)

func main() {
	rootCmd := &cobra.Command{
		Use:     "jira-mcp-server",
		Short:   "Jira MCP Server - AI assistant integration for Jira",
		Version: version,
		PersistentPreRun: func(cmd *cobra.Command, args []string) {
			setupLogging()
		},
	}

	cobra.OnInitialize(initConfig)

	// Global flags
	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "Config file (default: ./jira-mcp-server.yaml)")
	rootCmd.PersistentFlags().String("jira-url", "", "Jira server URL")
	rootCmd.PersistentFlags().Int("port", 8080, "Server port (for SSE mode)")
	rootCmd.PersistentFlags().String("log-level", "info", "Log level (debug, info, warn, error)")
	_ = viper.BindPFlag("url", rootCmd.PersistentFlags().Lookup("jira-url"))
	_ = viper.BindPFlag("port", rootCmd.PersistentFlags().Lookup("port"))
	_ = viper.BindPFlag("log_level", rootCmd.PersistentFlags().Lookup("log-level"))

	// MCP command
	mcpCmd := &cobra.Command{
		Use:   "mcp",
		Short: "Start MCP server",
		Long:  "Start the MCP server in stdio or SSE mode",
		RunE:  runMCP,
	}

	var sseMode bool
	mcpCmd.Flags().BoolVar(&sseMode, "sse", false, "Run in SSE mode instead of stdio")

	rootCmd.AddCommand(mcpCmd)

	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

// initConfig reads configuration from an optional file and JIRA_* env vars.
func initConfig() {
	if cfgFile != "" {
		viper.SetConfigFile(cfgFile)
	} else {
		viper.AddConfigPath(".")
		viper.SetConfigName("jira-mcp-server")
		viper.SetConfigType("yaml")
	}

	viper.SetEnvPrefix("JIRA")
	viper.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))
	viper.AutomaticEnv()

	if err := viper.ReadInConfig(); err == nil {
		slog.Debug("using config file", "path", viper.ConfigFileUsed())
	}
}

func setupLogging() {
	var level slog.Level
	switch viper.GetString("log_level") {
	case "debug":
		level = slog.LevelDebug
	case "warn":
		level = slog.LevelWarn
	case "error":
		level = slog.LevelError
	default:
		level = slog.LevelInfo
	}

	handler := slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{
		Level: level,
	})
	slog.SetDefault(slog.New(handler))
}

func runMCP(cmd *cobra.Command, args []string) error {
	jiraURL := viper.GetString("url")
	if jiraURL == "" {
		return fmt.Errorf("JIRA_URL is required (set via --jira-url, JIRA_URL env var, or config file)")
	}

	sseMode, _ := cmd.Flags().GetBool("sse")

	config := mcp.Config{
		JiraURL:      jiraURL,
		JiraUsername: viper.GetString("username"),
		JiraAPIToken: viper.GetString("api_token"),
		Port:         viper.GetInt("port"),
		SSEMode:      sseMode,
	}

	// SSE mode takes credentials per request; stdio needs them up front.
	if !sseMode {
		if config.JiraUsername == "" {
			return fmt.Errorf("JIRA_USERNAME is required for stdio mode (set via JIRA_USERNAME env var)")
		}
		if config.JiraAPIToken == "" {
			return fmt.Errorf("JIRA_API_TOKEN is required for stdio mode (set via JIRA_API_TOKEN env var)")
		}
	}

	server := mcp.NewServer(config)
	return server.Run()
}
