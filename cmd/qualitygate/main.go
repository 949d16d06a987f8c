package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	appanalyses "github.com/bryanwahyu/quality-gate/internal/application/analyses"
	"github.com/bryanwahyu/quality-gate/internal/bootstrap"
	"github.com/bryanwahyu/quality-gate/internal/config"
	"github.com/bryanwahyu/quality-gate/internal/gate"
	"github.com/bryanwahyu/quality-gate/internal/infra/db"
	"github.com/bryanwahyu/quality-gate/internal/infra/db/migrations"
)

var configPath string

var rootCmd = &cobra.Command{
	Use:   "qualitygate",
	Short: "Code quality gate for SQL, Python, DAX and Power Query",
	Long: `qualitygate scores BI code with static rules, flake8, bandit and an AI review.

Run it in CI to gate changed files, or analyse a single file locally.`,
	SilenceUsage:  true,
	SilenceErrors: true,
}

var analyzeCmd = &cobra.Command{
	Use:   "analyze <file>",
	Short: "Analyse one file and print the result as JSON",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		langFlag, _ := cmd.Flags().GetString("language")
		noAI, _ := cmd.Flags().GetBool("no-ai")
		noStore, _ := cmd.Flags().GetBool("no-store")

		path := args[0]
		lang := langFlag
		if lang == "" {
			l, ok := gate.LanguageFor(path)
			if !ok {
				return fmt.Errorf("cannot infer language of %s, pass --language", path)
			}
			lang = string(l)
		}
		content, err := os.ReadFile(path)
		if err != nil {
			return err
		}

		cfg, err := loadConfig()
		if err != nil {
			return err
		}
		ctx := context.Background()
		app, err := openApp(ctx, cfg, noStore)
		if err != nil {
			return err
		}
		defer app.Close()

		opts := appanalyses.DefaultOptions()
		opts.AI = !noAI
		a, err := app.Service.Analyze(ctx, appanalyses.AnalyzeCommand{
			FileName:    filepath.Base(path),
			Language:    lang,
			Content:     string(content),
			Description: "command line analysis",
			Author:      "cli",
			Options:     opts,
		})
		if err != nil {
			return err
		}
		if err := printJSON(a); err != nil {
			return err
		}
		if !a.Approved {
			return exitCode(1)
		}
		return nil
	},
}

var migrateCmd = &cobra.Command{
	Use:   "migrate",
	Short: "Apply pending database migrations",
	RunE: func(cmd *cobra.Command, args []string) error {
		statusOnly, _ := cmd.Flags().GetBool("status")

		cfg, err := loadConfig()
		if err != nil {
			return err
		}
		cfg.Database.AutoMigrate = false
		conn, _, err := db.Open(context.Background(), cfg)
		if err != nil {
			return err
		}
		defer conn.Close()

		driver := cfg.Database.Driver
		if !statusOnly {
			if err := migrations.Up(conn, driver); err != nil {
				return err
			}
		}
		st, err := migrations.GetStatus(conn, driver)
		if err != nil {
			return fmt.Errorf("migration status: %w", err)
		}
		fmt.Printf("Driver:  %s\n", driver)
		fmt.Printf("Version: %d/%d\n", st.CurrentVersion, st.LatestVersion)
		fmt.Printf("Dirty:   %v\n", st.Dirty)
		fmt.Printf("Pending: %v\n", st.Pending)
		return nil
	},
}

var toolsCmd = &cobra.Command{
	Use:   "tools",
	Short: "Show which checkers are available",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfig()
		if err != nil {
			return err
		}
		app, err := bootstrap.NewInMemory(context.Background(), cfg)
		if err != nil {
			return err
		}
		return printJSON(app.Service.ToolsStatus())
	},
}

func init() {
	rootCmd.PersistentFlags().StringVarP(&configPath, "config", "c", "", "Config file (default: $CONFIG_PATH or config.yaml)")

	analyzeCmd.Flags().StringP("language", "l", "", "Language (SQL, Python, DAX, PowerQuery); inferred from the extension when empty")
	analyzeCmd.Flags().Bool("no-ai", false, "Skip the AI review")
	analyzeCmd.Flags().Bool("no-store", false, "Do not persist the analysis")

	migrateCmd.Flags().Bool("status", false, "Only print the migration status")

	rootCmd.AddCommand(ciCmd)
	rootCmd.AddCommand(analyzeCmd)
	rootCmd.AddCommand(migrateCmd)
	rootCmd.AddCommand(toolsCmd)
}

// exitCode ends the process with a status but no error message.
type exitCode int

func (e exitCode) Error() string { return fmt.Sprintf("exit status %d", int(e)) }

func main() {
	if err := rootCmd.Execute(); err != nil {
		var code exitCode
		if errors.As(err, &code) {
			os.Exit(int(code))
		}
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(2)
	}
}

func loadConfig() (*config.Config, error) {
	return config.ResolvePath(configPath)
}

func openApp(ctx context.Context, cfg *config.Config, inMemory bool) (*bootstrap.App, error) {
	if inMemory {
		return bootstrap.NewInMemory(ctx, cfg)
	}
	return bootstrap.New(ctx, cfg)
}

func printJSON(v any) error {
	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	enc.SetEscapeHTML(false)
	return enc.Encode(v)
}
