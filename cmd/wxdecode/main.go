// Command wxdecode translates a weather code from the terminal.
package main

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"strings"

	"github.com/spf13/cobra"

	"github.com/yegors/wmo-decoder/internal/ai/gemini"
	"github.com/yegors/wmo-decoder/internal/config"
	"github.com/yegors/wmo-decoder/internal/i18n"
	"github.com/yegors/wmo-decoder/internal/presenter"
	"github.com/yegors/wmo-decoder/internal/query"
	"github.com/yegors/wmo-decoder/internal/templating"
	"github.com/yegors/wmo-decoder/internal/translator"
	"github.com/yegors/wmo-decoder/internal/wxcode"
	"github.com/yegors/wmo-decoder/pkg/logger"
)

// Version is injected at build time
var Version = "dev"

func main() {
	if err := newRootCmd().Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:   "wxdecode",
		Short: "Translate aviation weather codes (METAR/TAF) and plain descriptions",
		Long: `wxdecode translates between WMO weather codes and plain-language
descriptions using Gemini with Google Search grounding.

The API key is read from GEMINI_API_KEY or API_KEY (a .env file in the
working directory is loaded first).`,
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	root.AddCommand(
		newTranslateCmd(),
		newExamplesCmd(),
		newVersionCmd(),
	)

	return root
}

func newVersionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Show version information",
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Fprintf(cmd.OutOrStdout(), "wxdecode version %s\n", Version)
		},
	}
}

func newExamplesCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "examples",
		Short: "List the quick-fill example queries",
		Run: func(cmd *cobra.Command, args []string) {
			printExamples(cmd.OutOrStdout(), query.Examples())
		},
	}
}

func printExamples(w io.Writer, examples []query.Example) {
	for _, ex := range examples {
		if ex.Hint != "" && ex.Hint != ex.Query {
			fmt.Fprintf(w, "%-14s %s\n", ex.Query, ex.Hint)
			continue
		}
		fmt.Fprintln(w, ex.Query)
	}
}

func newTranslateCmd() *cobra.Command {
	var (
		configPath string
		lang       string
		asJSON     bool
		strict     bool
	)

	cmd := &cobra.Command{
		Use:   "translate <query...>",
		Short: "Translate a weather code or description",
		Example: `  wxdecode translate +TSRA
  wxdecode translate --lang ar "Heavy snow showers"
  wxdecode translate --json FG`,
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.LoadWithFallback(configPath)
			if err != nil {
				return err
			}
			if err := cfg.Validate(); err != nil {
				return err
			}

			// Logs go to stderr; keep them quiet unless asked for
			level := cfg.Logging.Level
			if level == "info" || level == "" {
				level = "warn"
			}
			log, err := logger.New(logger.Config{Level: level, Format: cfg.Logging.Format})
			if err != nil {
				return err
			}
			defer log.Sync()

			catalog, err := i18n.New(cfg.UI.DefaultLocale, log)
			if err != nil {
				return err
			}
			locale := catalog.Match(lang, "")

			svc := translator.NewService(
				gemini.NewClient(cfg.Gemini.APIKey, gemini.Options{BaseURL: cfg.Gemini.BaseURL, Timeout: cfg.GeminiTimeout()}, log),
				templating.NewService(cfg.Templating.PromptsDir, log),
				nil,
				translator.Config{
					Model:        cfg.Gemini.Model,
					Temperature:  cfg.Gemini.Temperature,
					EnableSearch: cfg.Gemini.EnableSearch,
					Strict:       strict,
				}, log)

			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt)
			defer stop()

			rec, err := svc.Translate(ctx, strings.Join(args, " "))
			if err != nil {
				return describeError(presenter.New(catalog), locale, err)
			}

			out := cmd.OutOrStdout()
			if asJSON {
				enc := json.NewEncoder(out)
				enc.SetIndent("", "  ")
				return enc.Encode(rec)
			}
			printRecord(out, catalog, locale, rec)
			return nil
		},
	}

	cmd.Flags().StringVar(&configPath, "config", "", "Path to configuration file")
	cmd.Flags().StringVar(&lang, "lang", "", "Label language: en or ar (default from config)")
	cmd.Flags().BoolVar(&asJSON, "json", false, "Print the record as JSON")
	cmd.Flags().BoolVar(&strict, "strict", false, "Fail when the model reply does not follow the output format")

	_ = cmd.RegisterFlagCompletionFunc("lang", func(cmd *cobra.Command, args []string, toComplete string) ([]string, cobra.ShellCompDirective) {
		return []string{i18n.English, i18n.Arabic}, cobra.ShellCompDirectiveNoFileComp
	})

	return cmd
}

// describeError adds the setup steps to configuration errors
func describeError(pres *presenter.Presenter, locale string, err error) error {
	var werr *wxcode.Error
	if !errors.As(err, &werr) || werr.Kind != wxcode.KindConfiguration {
		return err
	}

	checklist := pres.Checklist(locale)
	var b strings.Builder
	b.WriteString(werr.Message)
	b.WriteString("\n\n")
	b.WriteString(checklist.Title)
	for i, step := range checklist.Steps {
		fmt.Fprintf(&b, "\n  %d. %s", i+1, step.Text)
		if step.LinkURL != "" {
			fmt.Fprintf(&b, " %s", step.LinkURL)
		}
	}
	return errors.New(b.String())
}

// printRecord writes rec as labelled lines in the given locale
func printRecord(w io.Writer, catalog *i18n.Catalog, locale string, rec *wxcode.Record) {
	line := func(key, value string) {
		if value == "" {
			return
		}
		fmt.Fprintf(w, "%s: %s\n", catalog.T(locale, key), value)
	}

	line(i18n.CodeLabel, rec.Code)
	if rec.HasNumericCode() {
		line(i18n.NumericLabel, rec.NumericCode)
	}
	name := rec.Name
	if rec.NameAr != "" {
		name += " / " + rec.NameAr
	}
	line(i18n.NameLabel, name)
	line(i18n.DescriptionLabel, rec.Description)
	line(i18n.DescriptionArLabel, rec.DescriptionAr)

	if len(rec.SourceURLs) > 0 {
		fmt.Fprintf(w, "%s (%s):\n", catalog.T(locale, i18n.SourcesLabel), catalog.T(locale, i18n.Verified))
		for _, u := range rec.SourceURLs {
			fmt.Fprintf(w, "  - %s\n", u)
		}
	}
}
