package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"

	"github.com/joho/godotenv"
	"github.com/rs/zerolog"
	"github.com/urfave/cli/v2"
	"github.com/xeptore/flaw/v8"

	"github.com/RaduTek/YTMusicDL/archive"
	"github.com/RaduTek/YTMusicDL/cache"
	"github.com/RaduTek/YTMusicDL/catalog"
	"github.com/RaduTek/YTMusicDL/config"
	"github.com/RaduTek/YTMusicDL/constant"
	"github.com/RaduTek/YTMusicDL/cover"
	"github.com/RaduTek/YTMusicDL/dl"
	"github.com/RaduTek/YTMusicDL/errutil"
	"github.com/RaduTek/YTMusicDL/log"
	"github.com/RaduTek/YTMusicDL/m3u"
	"github.com/RaduTek/YTMusicDL/tag"
	"github.com/RaduTek/YTMusicDL/template"
	"github.com/RaduTek/YTMusicDL/ytdlp"
	"github.com/RaduTek/YTMusicDL/ytmusic"
)

const (
	flagConfigFilePath = "config"
	flagBatchFilePath  = "batch"
	flagVerbose        = "verbose"
	flagJSONLog        = "json-log"
)

func main() {
	logger := log.NewPretty(os.Stdout).Level(zerolog.InfoLevel)
	if err := godotenv.Load(); nil != err {
		if errors.Is(err, os.ErrNotExist) {
			logger.Debug().Msg(".env file was not found")
		} else {
			logger.Fatal().Err(err).Msg("Failed to load .env file")
		}
	}

	//nolint:exhaustruct
	app := &cli.App{
		Name:    constant.Name,
		Version: constant.Version,
		Suggest: true,
		Usage:   "YouTube Music metadata resolver and downloader",
		Commands: []*cli.Command{
			//nolint:exhaustruct
			{
				Name:      "download",
				Aliases:   []string{"d"},
				Usage:     "Download songs, albums or playlists from URLs or catalog ids",
				ArgsUsage: "[sources...]",
				Action:    run,
				Flags: []cli.Flag{
					//nolint:exhaustruct
					&cli.StringFlag{
						Name:    flagConfigFilePath,
						Aliases: []string{"c"},
						Usage:   "Config file path",
					},
					//nolint:exhaustruct
					&cli.StringFlag{
						Name:    flagBatchFilePath,
						Aliases: []string{"b"},
						Usage:   "File containing one source per line",
					},
					//nolint:exhaustruct
					&cli.BoolFlag{
						Name:    flagVerbose,
						Aliases: []string{"v"},
						Usage:   "Enable verbose logging",
					},
					//nolint:exhaustruct
					&cli.BoolFlag{
						Name:  flagJSONLog,
						Usage: "Emit single-line JSON log records instead of pretty output",
					},
				},
			},
		},
	}

	if err := app.Run(os.Args); nil != err {
		if errors.Is(err, context.Canceled) {
			logger.Warn().Msg("Application was canceled")
			return
		}
		if flawErr := new(flaw.Flaw); errors.As(err, &flawErr) {
			logger.Fatal().Func(log.Flaw(flawErr)).Msg("Application exited with flaw")
			return
		}
		logger.Fatal().Err(err).Msg("Application exited with error")
	}
}

func run(cliCtx *cli.Context) error {
	ctx, cancel := signal.NotifyContext(cliCtx.Context, syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	level := zerolog.InfoLevel
	if cliCtx.Bool(flagVerbose) {
		level = zerolog.TraceLevel
	}
	newLogger := log.NewPretty
	if cliCtx.Bool(flagJSONLog) {
		newLogger = log.NewPacked
	}
	logger := newLogger(os.Stdout).Level(level)

	cfg, err := loadConfig(cliCtx.String(flagConfigFilePath), os.Getenv("CONFIG"), logger)
	if nil != err {
		return err
	}

	sources, err := collectSources(cliCtx)
	if nil != err {
		return err
	}
	if len(sources) == 0 {
		return errors.New("no sources given. pass them as arguments or via a batch file")
	}

	if !filepath.IsAbs(cfg.BasePath) {
		wd, err := os.Getwd()
		if nil != err {
			return fmt.Errorf("failed to get working directory: %v", err)
		}
		cfg.BasePath = filepath.Join(wd, cfg.BasePath)
	}
	logger.Debug().Str("base_path", cfg.BasePath).Msg("Resolved base path")

	tmpl, err := template.New(cfg.OutputTemplate, cfg.TemplateOptions())
	if nil != err {
		return fmt.Errorf("invalid output template: %w", err)
	}

	var arch *archive.Archive
	if cfg.ArchiveFile != "" {
		archivePath := cfg.ArchiveFile
		if !filepath.IsAbs(archivePath) {
			archivePath = filepath.Join(cfg.BasePath, archivePath)
		}
		var opts []archive.Option
		if cfg.ArchiveBatchSave {
			opts = append(opts, archive.WithManualSave())
		}
		a, err := archive.Open(archivePath, opts...)
		if nil != err {
			return fmt.Errorf("failed to open archive: %w", err)
		}
		arch = a
		logger.Debug().Str("archive", archivePath).Msg("Archive loaded")
	}

	d := dl.New(dl.Params{
		Config:         cfg,
		Catalog:        catalog.New(cfg.CatalogAPIURL, logger),
		Flat:           ytdlp.NewFlatEnumerator(logger),
		Parser:         ytmusic.NewParser(cfg.CoverSize, logger),
		Template:       tmpl,
		Archive:        arch,
		Cache:          cache.New(),
		Audio:          ytdlp.New(cfg, logger),
		Covers:         cover.New(cfg, logger),
		Tagger:         tag.New(cfg, logger),
		PlaylistWriter: m3u.New(logger),
		Logger:         logger,
	})

	stats := d.DownloadMany(ctx, sources)

	if arch != nil {
		if err := arch.Save(); nil != err {
			logger.Error().Err(err).Msg("Failed to save archive")
			stats.Errors++
		}
	}

	logger.Info().
		Int("songs", stats.Songs).
		Int("albums", stats.Albums).
		Int("playlists", stats.Playlists).
		Int("skipped", stats.Skipped).
		Int("errors", stats.Errors).
		Int("warnings", stats.Warnings).
		Msg("Download complete")

	if _, ok := errutil.IsAny(ctx.Err(), context.Canceled, context.DeadlineExceeded); ok {
		return context.Canceled
	}
	return nil
}

func loadConfig(filePath, env string, logger zerolog.Logger) (*config.Config, error) {
	switch {
	case filePath != "" && env != "":
		return nil, errors.New("config file path and CONFIG environment variable are both set. specify only one")
	case filePath != "":
		logger.Debug().Str("config_file_path", filePath).Msg("Loading config from file")
		cfg, err := config.FromFile(filePath)
		if nil != err {
			return nil, fmt.Errorf("failed to load config file: %w", err)
		}
		return cfg, nil
	case env != "":
		logger.Debug().Msg("Loading config from environment variable")
		cfg, err := config.FromString(env)
		if nil != err {
			return nil, fmt.Errorf("failed to load config from environment variable: %w", err)
		}
		return cfg, nil
	default:
		logger.Debug().Msg("Using default config")
		cfg, err := config.FromString("")
		if nil != err {
			return nil, err
		}
		return cfg, nil
	}
}

func collectSources(cliCtx *cli.Context) ([]string, error) {
	sources := cliCtx.Args().Slice()

	batchPath := cliCtx.String(flagBatchFilePath)
	if batchPath == "" {
		return sources, nil
	}

	data, err := os.ReadFile(batchPath)
	if nil != err {
		return nil, fmt.Errorf("failed to read batch file %q: %v", batchPath, err)
	}
	for _, line := range strings.Split(string(data), "\n") {
		line = strings.TrimSpace(line)
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		sources = append(sources, line)
	}
	return sources, nil
}
