package main

import (
	"errors"
	"fmt"
	"os"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/spf13/cobra"

	"github.com/yourorg/musigent/internal/logging"
	"github.com/yourorg/musigent/internal/pipeline"
	"github.com/yourorg/musigent/internal/report"
	"github.com/yourorg/musigent/internal/signal"
	"github.com/yourorg/musigent/pkg/types"
)

func progressTo(cmd *cobra.Command, quiet bool) pipeline.ProgressFunc {
	if quiet {
		return nil
	}
	return func(stage string) {
		fmt.Fprintln(cmd.ErrOrStderr(), "...", stage)
	}
}

func newGenerateCmd(opts *rootOptions) *cobra.Command {
	var mode, prompt, user, format string
	var duration int
	var quiet bool
	cmd := &cobra.Command{Use: "generate", Short: "Generate a track for a mode and prompt", RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := opts.load()
		if err != nil {
			return err
		}
		a, err := newApp(cfg, progressTo(cmd, quiet))
		if err != nil {
			return err
		}
		res, err := a.pipeline.Generate(cmd.Context(), user, types.ParseMode(mode), prompt, duration)
		if err != nil {
			return err
		}
		return report.Write(cmd.OutOrStdout(), res, format)
	}}
	cmd.Flags().StringVar(&mode, "mode", string(types.ModeBGM), "jingle | bgm | persona | other")
	cmd.Flags().StringVar(&prompt, "prompt", "", "creative prompt")
	cmd.Flags().IntVar(&duration, "duration", 30, "duration in seconds")
	cmd.Flags().StringVar(&user, "user", "", "username recorded in the ledger")
	cmd.Flags().StringVar(&format, "format", report.FormatText, "output format: text | markdown | json | yaml")
	cmd.Flags().BoolVar(&quiet, "quiet", false, "hide stage progress")
	_ = cmd.MarkFlagRequired("prompt")
	return cmd
}

func newJingleCmd(opts *rootOptions) *cobra.Command {
	var survey types.JingleSurvey
	var user, format string
	var quiet bool
	cmd := &cobra.Command{Use: "jingle", Short: "Generate a 5-second brand jingle from a survey", RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := opts.load()
		if err != nil {
			return err
		}
		a, err := newApp(cfg, progressTo(cmd, quiet))
		if err != nil {
			return err
		}
		res, err := a.pipeline.Jingle(cmd.Context(), user, survey)
		if errors.Is(err, pipeline.ErrThrottled) {
			return fmt.Errorf("refused: %w", err)
		}
		if err != nil {
			return err
		}
		return report.Write(cmd.OutOrStdout(), res, format)
	}}
	cmd.Flags().StringVar(&user, "user", "", "username recorded in the ledger")
	cmd.Flags().StringVar(&survey.BrandName, "brand", "", "brand name")
	cmd.Flags().StringVar(&survey.CompanyField, "field", "", "company field")
	cmd.Flags().StringVar(&survey.CustomerPersona, "persona", "", "target customer persona")
	cmd.Flags().StringVar(&survey.Vibe, "vibe", "standard", "energetic | peaceful | standard")
	cmd.Flags().StringVar(&format, "format", report.FormatText, "output format: text | markdown | json | yaml")
	cmd.Flags().BoolVar(&quiet, "quiet", false, "hide stage progress")
	_ = cmd.MarkFlagRequired("brand")
	return cmd
}

func newLedgerCmd(opts *rootOptions) *cobra.Command {
	var user string
	cmd := &cobra.Command{Use: "ledger", Short: "Show a user's recorded usage", RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := opts.load()
		if err != nil {
			return err
		}
		a, err := newApp(cfg, nil)
		if err != nil {
			return err
		}
		sum, err := a.ledger.UserSummary(user)
		if err != nil {
			return err
		}
		recent, err := a.ledger.RollingWindowCount(user, cfg.Throttle.Window)
		if err != nil {
			return err
		}
		out := cmd.OutOrStdout()
		fmt.Fprintf(out, "ledger:      %s\n", a.ledger.Path())
		fmt.Fprintf(out, "user:        %s\n", user)
		fmt.Fprintf(out, "entries:     %s\n", humanize.Comma(int64(sum.Total)))
		fmt.Fprintf(out, "last %s: %d of %d jingle slots used\n", cfg.Throttle.Window, recent, cfg.Throttle.JinglePerMinute)
		if sum.Total > 0 {
			fmt.Fprintf(out, "last entry:  %s (%s)\n", humanize.Time(sum.Last), sum.Last.UTC().Format(time.RFC3339))
		}
		return nil
	}}
	cmd.Flags().StringVar(&user, "user", "", "username")
	_ = cmd.MarkFlagRequired("user")
	return cmd
}

func newAnalyzeCmd(opts *rootOptions) *cobra.Command {
	var withRecognition bool
	cmd := &cobra.Command{Use: "analyze <file>", Short: "Score a local WAV/MP3 file for originality and copyright risk", Args: cobra.ExactArgs(1), RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := opts.load()
		if err != nil {
			return err
		}
		data, err := os.ReadFile(args[0])
		if err != nil {
			return err
		}
		out := cmd.OutOrStdout()
		fmt.Fprintf(out, "file:        %s (%s)\n", args[0], humanize.Bytes(uint64(len(data))))

		score, err := signal.NewAnalyzer(cfg.Quality.ChunkSize).Analyze(data)
		if err != nil {
			fmt.Fprintf(out, "originality: not computable (%v)\n", err)
		} else {
			fmt.Fprintf(out, "originality: %.3f (threshold %.2f)\n", score, cfg.Quality.Threshold())
		}
		if !withRecognition {
			return nil
		}
		logger, err := logging.New(cfg.Log)
		if err != nil {
			return err
		}
		cs := newAssessor(cfg, logger).Assess(cmd.Context(), data)
		fmt.Fprintf(out, "copyright:   %s risk (score %d)\n", cs.RiskLevel, cs.Score)
		for _, r := range cs.Reasons {
			fmt.Fprintf(out, "  - %s\n", r)
		}
		return nil
	}}
	cmd.Flags().BoolVar(&withRecognition, "recognize", false, "also query the recognition service")
	return cmd
}
