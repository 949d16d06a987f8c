package main

import (
	"context"
	"fmt"
	"log"
	"os"
	"time"

	"github.com/spf13/cobra"

	appanalyses "github.com/bryanwahyu/quality-gate/internal/application/analyses"
	"github.com/bryanwahyu/quality-gate/internal/gate"
)

var ciCmd = &cobra.Command{
	Use:   "ci",
	Short: "Gate the files changed between two revisions",
	Long: `Analyse the files changed between --base and --head (or the --files given),
write quality_report.json and exit 0 (PASSED), 1 (FAILED) or 2 (ERROR).`,
	RunE: func(cmd *cobra.Command, args []string) error {
		base, _ := cmd.Flags().GetString("base")
		head, _ := cmd.Flags().GetString("head")
		files, _ := cmd.Flags().GetStringSlice("files")
		langs, _ := cmd.Flags().GetStringSlice("languages")
		output, _ := cmd.Flags().GetString("output")
		noStore, _ := cmd.Flags().GetBool("no-store")
		upload, _ := cmd.Flags().GetBool("upload")

		cfg, err := loadConfig()
		if err != nil {
			return err
		}
		if len(langs) == 0 {
			langs = cfg.Gate.Languages
		}
		enabled, err := gate.ParseLanguages(langs)
		if err != nil {
			return err
		}

		ctx := context.Background()
		if len(files) == 0 {
			files, err = gate.ChangedFiles(ctx, "", base, head)
			if err != nil {
				log.Printf("gate: cannot list changed files: %v", err)
				files = nil
			}
		}

		app, err := openApp(ctx, cfg, noStore)
		if err != nil {
			return err
		}
		defer app.Close()

		runner := &gate.Runner{
			Analyzer:    app.Service,
			MinScore:    cfg.Gate.MinScore,
			Languages:   enabled,
			Concurrency: cfg.Gate.Concurrency,
			Options:     appanalyses.DefaultOptions(),
		}
		targets := runner.Select(files)
		if len(targets) == 0 {
			fmt.Println("No changed files to analyse")
		} else {
			fmt.Printf("%d file(s) to analyse:\n", len(targets))
			for _, t := range targets {
				fmt.Printf("   - %s (%s)\n", t.Path, t.Language)
			}
		}

		report := runner.Run(ctx, targets)
		if err := gate.WriteReport(output, report); err != nil {
			return err
		}

		if upload {
			if app.Store == nil {
				log.Printf("gate: --upload ignored, minio is disabled")
			} else {
				key := fmt.Sprintf("ci/%s/%s", time.Now().UTC().Format("20060102T150405Z"), gate.ReportFile)
				if url, err := app.Store.PutFile(ctx, output, key); err != nil {
					log.Printf("gate: report upload failed: %v", err)
				} else {
					fmt.Printf("Report uploaded: %s\n", url)
				}
			}
		}

		gate.PrintSummary(os.Stdout, report)
		if code := report.ExitCode(); code != 0 {
			return exitCode(code)
		}
		return nil
	},
}

func init() {
	ciCmd.Flags().String("base", "HEAD~1", "Base revision of the diff")
	ciCmd.Flags().String("head", "HEAD", "Head revision of the diff")
	ciCmd.Flags().StringSlice("files", nil, "Analyse these files instead of the git diff")
	ciCmd.Flags().StringSlice("languages", nil, "Enabled languages (default: gate.languages from config)")
	ciCmd.Flags().StringP("output", "o", gate.ReportFile, "Report path")
	ciCmd.Flags().Bool("no-store", false, "Keep analyses in memory instead of the database")
	ciCmd.Flags().Bool("upload", false, "Archive the report in MinIO")
}
