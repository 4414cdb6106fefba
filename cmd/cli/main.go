package main

import (
	"os"

	"github.com/spf13/cobra"

	"github.com/himanishpuri/KaraokeScore/internal/config"
	"github.com/himanishpuri/KaraokeScore/pkg/karaoke/storage"
	"github.com/himanishpuri/KaraokeScore/pkg/logger"
)

const banner = `
 _  __                      _        ____
| |/ /__ _ _ __ __ _  ___ | | _____/ ___|  ___ ___  _ __ ___
| ' // _' | '__/ _' |/ _ \| |/ / _ \___ \ / __/ _ \| '__/ _ \
| . \ (_| | | | (_| | (_) |   <  __/___) | (_| (_) | | |  __/
|_|\_\__,_|_|  \__,_|\___/|_|\_\___|____/ \___\___/|_|  \___|

           Karaoke Scoring CLI Tool
`

// app carries the global flags and what they resolve to.
type app struct {
	configPath string
	dbPath     string
	verbose    bool

	cfg *config.Config
	log *logger.Logger
}

func newRootCmd() *cobra.Command {
	a := &app{}

	root := &cobra.Command{
		Use:   "karaoke",
		Short: "Score karaoke recordings against reference songs",
		Long:  banner + "\nManage the reference song catalog and score sung recordings.",
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			return a.init()
		},
		SilenceUsage: true,
	}

	root.PersistentFlags().StringVar(&a.configPath, "config", "", "Path to a YAML config file")
	root.PersistentFlags().StringVar(&a.dbPath, "db", "", "Path to the SQLite catalog (overrides config)")
	root.PersistentFlags().BoolVarP(&a.verbose, "verbose", "v", false, "Debug logging")

	root.AddCommand(
		newScoreCmd(a),
		newProbeCmd(a),
		newSegmentCmd(a),
		newSongsCmd(a),
	)
	return root
}

func (a *app) init() error {
	cfg, err := config.Load(a.configPath)
	if err != nil {
		return err
	}
	if a.dbPath != "" {
		cfg.DBPath = a.dbPath
	}
	a.cfg = cfg

	level := cfg.LogLevel
	if a.verbose {
		level = "debug"
	}
	// Logs go to stderr so command output stays pipeable.
	a.log = logger.New(logger.Config{Level: level, Output: os.Stderr})
	return nil
}

func (a *app) openCatalog() (*storage.DBClient, error) {
	return storage.NewDBClientWithPath(a.cfg.DBPath)
}

func main() {
	if err := newRootCmd().Execute(); err != nil {
		os.Exit(1)
	}
}
