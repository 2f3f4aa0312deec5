package main

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/joho/godotenv"
	"github.com/olekukonko/tablewriter"
	"github.com/spf13/cobra"

	"learnerdash/adapters/excel"
	"learnerdash/app"
	"learnerdash/internal/config"
	"learnerdash/internal/report"
	"learnerdash/internal/session"
	"learnerdash/internal/testkit"
)

func main() {
	_ = godotenv.Load()
	if err := newRootCmd().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

// globalFlags are shared by every subcommand that reads a markbook
type globalFlags struct {
	thresholds   string
	headerMarker string
	nameMarker   string
	maxMarker    string
	dateColumn   string
}

func newRootCmd() *cobra.Command {
	flags := &globalFlags{}
	rootCmd := &cobra.Command{
		Use:           "learnerdash",
		Short:         "Analyse learner mark sheets from the command line",
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	pf := rootCmd.PersistentFlags()
	pf.StringVar(&flags.thresholds, "thresholds", "", "YAML file with thresholds, markers and report texts")
	pf.StringVar(&flags.headerMarker, "header-marker", "", "text that identifies the header row")
	pf.StringVar(&flags.nameMarker, "name-marker", "", "text that identifies the learner name column")
	pf.StringVar(&flags.maxMarker, "max-marker", "", "label of the declared maximum total")
	pf.StringVar(&flags.dateColumn, "date-column", "", "header of the test date column")

	rootCmd.AddCommand(
		newAnalyzeCmd(flags),
		newReportCmd(flags),
		newCompareCmd(flags),
		newDemoCmd(),
	)
	return rootCmd
}

// loadConfig layers defaults, the --thresholds file (else THRESHOLDS_FILE),
// the environment and finally the marker flags
func (f *globalFlags) loadConfig() (*config.Config, error) {
	path := f.thresholds
	if path == "" {
		path = os.Getenv("THRESHOLDS_FILE")
	}
	cfg, err := config.LoadFile(path)
	if err != nil {
		return nil, err
	}
	overrides := []struct {
		value  string
		target *string
	}{
		{f.headerMarker, &cfg.Markers.HeaderMarker},
		{f.nameMarker, &cfg.Markers.NameMarker},
		{f.maxMarker, &cfg.Markers.MaxMarker},
		{f.dateColumn, &cfg.Markers.DateColumn},
	}
	for _, o := range overrides {
		if o.value != "" {
			*o.target = o.value
		}
	}
	return cfg, cfg.Validate()
}

func (f *globalFlags) service() (*config.Config, *app.AnalysisService, error) {
	cfg, err := f.loadConfig()
	if err != nil {
		return nil, nil, err
	}
	return cfg, app.NewAnalysisService(excel.NewDataReader(), cfg.Markers, cfg.Thresholds), nil
}

func newAnalyzeCmd(flags *globalFlags) *cobra.Command {
	return &cobra.Command{
		Use:   "analyze <file>",
		Short: "Print learner results, question means and findings",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			_, svc, err := flags.service()
			if err != nil {
				return err
			}
			state, err := svc.AnalyzeFile(cmd.Context(), args[0])
			if err != nil {
				return err
			}
			printAnalysis(cmd.OutOrStdout(), state)
			return nil
		},
	}
}

func printAnalysis(w io.Writer, state *session.State) {
	a := state.Analysis
	fmt.Fprintf(w, "%s: %d learners, class average %.2f%%\n\n", state.Filename, len(state.Table.Learners), a.ClassAverage)

	learners := tablewriter.NewWriter(w)
	learners.SetHeader([]string{"Learner", "Total", "Percentage"})
	for _, l := range state.Table.Learners {
		learners.Append([]string{l.Name, fmt.Sprintf("%g", l.Total), fmt.Sprintf("%.2f", l.Percentage)})
	}
	learners.Render()
	fmt.Fprintln(w)

	weak := make(map[string]bool, len(a.WeakQuestions))
	for _, q := range a.WeakQuestions {
		weak[q] = true
	}
	questions := tablewriter.NewWriter(w)
	questions.SetHeader([]string{"Question", "Mean", "Weak"})
	for _, qm := range a.QuestionMeans {
		mark := ""
		if weak[qm.Question] {
			mark = "yes"
		}
		questions.Append([]string{qm.Question, fmt.Sprintf("%.2f", qm.Mean), mark})
	}
	questions.Render()

	fmt.Fprintln(w, "\nInsights:")
	for _, s := range a.Insights() {
		fmt.Fprintf(w, "  - %s\n", s)
	}
	fmt.Fprintln(w, "\nRecommendations:")
	for _, s := range a.Recommendations() {
		fmt.Fprintf(w, "  - %s\n", s)
	}
}

func newReportCmd(flags *globalFlags) *cobra.Command {
	var format, out string

	cmd := &cobra.Command{
		Use:   "report <file>",
		Short: "Export the dashboard as pdf, docx, html or md",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			f, err := report.ParseFormat(format)
			if err != nil {
				return err
			}
			cfg, svc, err := flags.service()
			if err != nil {
				return err
			}
			state, err := svc.AnalyzeFile(cmd.Context(), args[0])
			if err != nil {
				return err
			}
			doc, err := report.NewBuilder(cfg.Report).Build(cmd.Context(), state, f)
			if err != nil {
				return err
			}

			path := out
			if path == "" {
				path = doc.Filename
			} else if info, err := os.Stat(path); err == nil && info.IsDir() {
				path = filepath.Join(path, doc.Filename)
			}
			if err := os.WriteFile(path, doc.Data, 0644); err != nil {
				return fmt.Errorf("failed to write %s: %w", path, err)
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Wrote %s (%d bytes)\n", path, len(doc.Data))
			return nil
		},
	}

	names := make([]string, len(report.Formats))
	for i, f := range report.Formats {
		names[i] = string(f)
	}
	cmd.Flags().StringVar(&format, "format", string(report.FormatPDF), "output format: "+strings.Join(names, ", "))
	cmd.Flags().StringVar(&out, "out", "", "output file or directory (default: <input>_dashboard.<format>)")
	return cmd
}

func newCompareCmd(flags *globalFlags) *cobra.Command {
	return &cobra.Command{
		Use:   "compare <fileA> <fileB>",
		Short: "Compare the question means of two markbooks",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			_, svc, err := flags.service()
			if err != nil {
				return err
			}
			return runCompare(cmd.Context(), cmd.OutOrStdout(), svc, args[0], args[1])
		},
	}
}

func runCompare(ctx context.Context, w io.Writer, svc *app.AnalysisService, pathA, pathB string) error {
	state, err := svc.AnalyzeFile(ctx, pathA)
	if err != nil {
		return err
	}
	data, err := os.ReadFile(pathB)
	if err != nil {
		return fmt.Errorf("failed to read %s: %w", pathB, err)
	}
	compared, err := svc.Compare(ctx, state, data, pathB)
	if err != nil {
		return err
	}

	r := compared.Comparison.Result
	table := tablewriter.NewWriter(w)
	table.SetHeader([]string{"Question", compared.Filename, compared.Comparison.Filename, "Difference"})
	for i, q := range r.Questions {
		table.Append([]string{q, fmt.Sprintf("%.2f", r.Original[i]), fmt.Sprintf("%.2f", r.Other[i]), fmt.Sprintf("%+.2f", r.Other[i]-r.Original[i])})
	}
	table.Render()
	return nil
}

func newDemoCmd() *cobra.Command {
	var out string
	gen := testkit.DefaultMarkbookConfig()

	cmd := &cobra.Command{
		Use:   "demo",
		Short: "Write a synthetic markbook to try the dashboard with",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := testkit.NewMarkbookGenerator(gen).WriteToFile(out); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Wrote %s: %d learners, %d questions\n", out, gen.LearnerCount, gen.QuestionCount)
			return nil
		},
	}

	cmd.Flags().StringVar(&out, "out", "demo_markbook.xlsx", "output .xlsx path")
	cmd.Flags().IntVar(&gen.LearnerCount, "learners", gen.LearnerCount, "number of learners")
	cmd.Flags().IntVar(&gen.QuestionCount, "questions", gen.QuestionCount, "number of questions")
	cmd.Flags().Int64Var(&gen.Seed, "seed", gen.Seed, "random seed for deterministic output")
	return cmd
}
