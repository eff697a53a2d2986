package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"compset/server/config"
	"compset/server/internal/analysis"
	"compset/server/internal/database"
	"compset/server/internal/models"
	"compset/server/internal/optimization"
)

type rootOptions struct {
	dbPath   string
	logLevel string
	timeout  time.Duration
}

func newRootCommand() *cobra.Command {
	opts := &rootOptions{}

	cmd := &cobra.Command{
		Use:           "compsetctl",
		Short:         "Operate the competitive set analytics database",
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	pf := cmd.PersistentFlags()
	pf.StringVar(&opts.dbPath, "db", "", "sqlite database path (default: DATABASE_PATH)")
	pf.StringVar(&opts.logLevel, "log-level", "warn", "log level (debug, info, warn, error)")
	pf.DurationVar(&opts.timeout, "timeout", 30*time.Second, "operation timeout")

	cmd.AddCommand(newMigrateCmd(opts))
	cmd.AddCommand(newAnalyzeCmd(opts))
	cmd.AddCommand(newRelationshipsCmd(opts))
	cmd.AddCommand(newPresetCmd())
	return cmd
}

func (o *rootOptions) logger() *logrus.Logger {
	logger := logrus.New()
	logger.SetFormatter(&logrus.JSONFormatter{})
	logger.SetOutput(os.Stderr)
	if level, err := logrus.ParseLevel(o.logLevel); err == nil {
		logger.SetLevel(level)
	}
	return logger
}

func (o *rootOptions) openDatabase() (*database.Database, error) {
	path := o.dbPath
	if path == "" {
		cfg, err := config.LoadConfig()
		if err != nil {
			return nil, fmt.Errorf("failed to load configuration: %w", err)
		}
		path = cfg.Database.Path
	}
	return database.NewDatabase(path, o.logger())
}

func writeJSON(w io.Writer, v interface{}) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

func newMigrateCmd(opts *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "migrate",
		Short: "Apply pending schema migrations",
		RunE: func(cmd *cobra.Command, args []string) error {
			db, err := opts.openDatabase()
			if err != nil {
				return err
			}
			defer db.Close()

			if err := db.RunMigrations(); err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), "schema is up to date")
			return nil
		},
	}
}

func newAnalyzeCmd(opts *rootOptions) *cobra.Command {
	var (
		subjectID    int64
		mode         string
		bedrooms     string
		availability string
		price        models.Range
		sqft         models.Range
		tolerance    float64
	)

	cmd := &cobra.Command{
		Use:   "analyze",
		Short: "Run a filtered comparative analysis for a subject property",
		RunE: func(cmd *cobra.Command, args []string) error {
			db, err := opts.openDatabase()
			if err != nil {
				return err
			}
			defer db.Close()

			ctx, cancel := context.WithTimeout(cmd.Context(), opts.timeout)
			defer cancel()

			logger := opts.logger()
			analyzer := analysis.NewAnalyzer(db, database.NewRelationshipRepository(db.GetDB(), logger), tolerance, logger)
			result, err := analyzer.Analyze(ctx, analysis.Request{
				SubjectID: subjectID,
				Mode:      models.AnalysisMode(mode),
				Criteria: models.FilterCriteria{
					BedroomTypes:       splitList(bedrooms),
					PriceRange:         price,
					Availability:       availability,
					SquareFootageRange: sqft,
				},
			})
			if err != nil {
				return err
			}
			return writeJSON(cmd.OutOrStdout(), result)
		},
	}

	f := cmd.Flags()
	f.Int64Var(&subjectID, "subject", 0, "subject property id")
	f.StringVar(&mode, "mode", string(models.ModeExternal), "comparison mode (external, internal)")
	f.StringVar(&bedrooms, "bedrooms", "", "comma separated bedroom types (Studio,1BR,2BR,3BR+)")
	f.StringVar(&availability, "availability", models.Available60Days, "availability horizon (now, 30days, 60days)")
	f.Float64Var(&price.Min, "min-rent", 0, "minimum rent")
	f.Float64Var(&price.Max, "max-rent", 0, "maximum rent (0 for no limit)")
	f.Float64Var(&sqft.Min, "min-sqft", 0, "minimum square footage")
	f.Float64Var(&sqft.Max, "max-sqft", 0, "maximum square footage (0 for no limit)")
	f.Float64Var(&tolerance, "tolerance", analysis.DefaultMarketTolerancePercent, "at-market band in percent")
	_ = cmd.MarkFlagRequired("subject")
	return cmd
}

func newRelationshipsCmd(opts *rootOptions) *cobra.Command {
	var (
		portfolioID int64
		activeOnly  bool
	)

	cmd := &cobra.Command{
		Use:   "relationships",
		Short: "List the competitive relationships of a portfolio",
		RunE: func(cmd *cobra.Command, args []string) error {
			db, err := opts.openDatabase()
			if err != nil {
				return err
			}
			defer db.Close()

			ctx, cancel := context.WithTimeout(cmd.Context(), opts.timeout)
			defer cancel()

			repo := database.NewRelationshipRepository(db.GetDB(), opts.logger())
			var rels []models.CompetitiveRelationship
			if activeOnly {
				rels, err = repo.ListActive(ctx, portfolioID)
			} else {
				rels, err = repo.List(ctx, portfolioID)
			}
			if err != nil {
				return err
			}
			return writeJSON(cmd.OutOrStdout(), rels)
		},
	}

	cmd.Flags().Int64Var(&portfolioID, "portfolio", 0, "portfolio id")
	cmd.Flags().BoolVar(&activeOnly, "active", false, "only active relationships")
	_ = cmd.MarkFlagRequired("portfolio")
	return cmd
}

type presetOutput struct {
	Goal       optimization.Goal        `json:"goal"`
	AutoMapped bool                     `json:"auto_mapped"`
	Parameters *optimization.Parameters `json:"parameters,omitempty"`
}

func newPresetCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "preset [goal]",
		Short: "Show the occupancy and risk preset of a goal, or of every goal",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			goals := optimization.Goals()
			if len(args) == 1 {
				goal, err := optimization.ParseGoal(args[0])
				if err != nil {
					return err
				}
				goals = []optimization.Goal{goal}
			}

			out := make([]presetOutput, 0, len(goals))
			for _, goal := range goals {
				entry := presetOutput{Goal: goal}
				if params, ok := optimization.ParametersFor(goal); ok {
					entry.AutoMapped = true
					entry.Parameters = &params
				}
				out = append(out, entry)
			}
			return writeJSON(cmd.OutOrStdout(), out)
		},
	}
}

func splitList(s string) []string {
	if strings.TrimSpace(s) == "" {
		return nil
	}
	parts := strings.Split(s, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}
