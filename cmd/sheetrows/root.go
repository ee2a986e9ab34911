package main

import (
	"fmt"
	"io"

	sheetrows "github.com/ideamans/go-sheetrows"
	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

// skipFeed marks commands that run without a configured backend
const skipFeed = "sheetrows/skip-feed"

// app carries the state shared by all commands of one invocation
type app struct {
	configFile string
	verbose    bool
	jsonOut    bool

	v      *viper.Viper
	log    *logrus.Logger
	client *sheetrows.Client
}

func newRootCmd() *cobra.Command {
	a := &app{}

	root := &cobra.Command{
		Use:   "sheetrows",
		Short: "Row-level access to spreadsheet worksheets",
		Long: `sheetrows lists, queries and edits the rows of Google Sheets worksheets
or Excel workbooks. Rows are addressed by a stable identifier or by their
position in the result of a query.`,
		SilenceUsage: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			return a.setup(cmd)
		},
	}

	flags := root.PersistentFlags()
	flags.StringVar(&a.configFile, "config", "", "config file (default: ./sheetrows.toml or ~/.config/sheetrows/sheetrows.toml)")
	flags.String("backend", "", "backend to use: googlesheets or excel")
	flags.BoolVarP(&a.verbose, "verbose", "v", false, "verbose logging")
	flags.BoolVar(&a.jsonOut, "json", false, "output as JSON")

	root.AddCommand(
		newVersionCmd(),
		newConfigCmd(a),
		newSpreadsheetsCmd(a),
		newWorksheetsCmd(a),
		newRowsCmd(a),
		newGetCmd(a),
		newInsertCmd(a),
		newUpdateCmd(a),
		newDeleteCmd(a),
		newDeleteAllCmd(a),
		newServeCmd(a),
	)
	return root
}

// setup configures logging, loads the configuration and opens the backend
func (a *app) setup(cmd *cobra.Command) error {
	a.log = logrus.New()
	a.log.SetOutput(cmd.ErrOrStderr())
	a.log.SetFormatter(&logrus.TextFormatter{FullTimestamp: true})
	a.log.SetLevel(logrus.WarnLevel)
	if a.verbose {
		a.log.SetLevel(logrus.DebugLevel)
	}

	v, err := loadConfig(a.configFile)
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}
	if err := v.BindPFlag(cfgKeyBackend, cmd.Root().PersistentFlags().Lookup("backend")); err != nil {
		return err
	}
	a.v = v

	if cmd.Annotations[skipFeed] != "" {
		return nil
	}

	feed, err := newFeed(cmd.Context(), v, a.log)
	if err != nil {
		return err
	}
	a.client = sheetrows.New(feed, &sheetrows.Config{Logger: a.log})
	a.log.WithField("backend", v.GetString(cfgKeyBackend)).Debug("backend ready")
	return nil
}

func (a *app) out(cmd *cobra.Command) io.Writer {
	return cmd.OutOrStdout()
}
