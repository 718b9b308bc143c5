package config

import (
	"errors"
	"fmt"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/RaduTek/YTMusicDL/template"
)

const (
	FormatOpus = "opus"
	FormatM4A  = "m4a"
	FormatMP3  = "mp3"

	QualityMedium = "medium"
	QualityHigh   = "high"

	CoverJPG = "jpg"
	CoverPNG = "png"
)

type Config struct {
	BasePath       string `json:"base_path"       yaml:"base_path"`
	CatalogAPIURL  string `json:"catalog_api_url" yaml:"catalog_api_url"`
	Format         string `json:"format"          yaml:"format"`
	Quality        string `json:"quality"         yaml:"quality"`
	ArchiveFile    string `json:"archive_file"    yaml:"archive_file"`
	OutputTemplate string `json:"output_template" yaml:"output_template"`

	CoverSize   int    `json:"cover_size"   yaml:"cover_size"`
	CoverFormat string `json:"cover_format" yaml:"cover_format"`

	SkipExisting      bool `json:"skip_existing"       yaml:"skip_existing"`
	WritePlaylistFile bool `json:"write_playlist_file" yaml:"write_playlist_file"`
	PlaylistLimit     int  `json:"playlist_limit"      yaml:"playlist_limit"`

	// SongFullMetadata merges each song with its full album resolution
	// before download (one extra fetch per song outside album context).
	SongFullMetadata bool `json:"song_full_metadata" yaml:"song_full_metadata"`

	// AlbumSongInsteadOfVideo enables audio counterpart reconciliation for
	// album tracks the catalog substitutes with music videos.
	AlbumSongInsteadOfVideo bool `json:"album_song_instead_of_video" yaml:"album_song_instead_of_video"`

	// ArchiveBatchSave defers archive writes to the end of the run instead
	// of flushing after every mutation.
	ArchiveBatchSave bool `json:"archive_batch_save" yaml:"archive_batch_save"`

	ArtistSeparator             string `json:"artist_separator"              yaml:"artist_separator"`
	FilenameSeparator           string `json:"filename_separator"            yaml:"filename_separator"`
	FilenameSanitizePlaceholder string `json:"filename_sanitize_placeholder" yaml:"filename_sanitize_placeholder"`
	UnknownPlaceholder          string `json:"unknown_placeholder"           yaml:"unknown_placeholder"`

	DateFormat     string `json:"date_format"      yaml:"date_format"`
	TimeFormat     string `json:"time_format"      yaml:"time_format"`
	DateTimeFormat string `json:"date_time_format" yaml:"date_time_format"`

	SuppressDownloaderOutput bool `json:"suppress_downloader_output" yaml:"suppress_downloader_output"`
}

func Default() Config {
	return Config{
		BasePath:                    "",
		CatalogAPIURL:               "http://127.0.0.1:8089",
		Format:                      FormatM4A,
		Quality:                     QualityHigh,
		ArchiveFile:                 "",
		OutputTemplate:              "{song_title} - {song_artist} [{song_id}].{ext}",
		CoverSize:                   500,
		CoverFormat:                 CoverJPG,
		SkipExisting:                true,
		WritePlaylistFile:           true,
		PlaylistLimit:               5000,
		SongFullMetadata:            true,
		AlbumSongInsteadOfVideo:     true,
		ArchiveBatchSave:            false,
		ArtistSeparator:             "; ",
		FilenameSeparator:           ", ",
		FilenameSanitizePlaceholder: "_",
		UnknownPlaceholder:          "Unknown",
		DateFormat:                  "02-01-2006",
		TimeFormat:                  "15-04-05",
		DateTimeFormat:              "02-01-2006 15-04-05",
		SuppressDownloaderOutput:    true,
	}
}

func (cfg *Config) validate() error {
	switch cfg.Format {
	case FormatOpus, FormatM4A, FormatMP3:
	default:
		return fmt.Errorf("unsupported audio format %q", cfg.Format)
	}

	switch cfg.Quality {
	case QualityMedium, QualityHigh:
	default:
		return fmt.Errorf("unsupported audio quality %q", cfg.Quality)
	}

	switch cfg.CoverFormat {
	case CoverJPG, CoverPNG:
	default:
		return fmt.Errorf("unsupported cover format %q", cfg.CoverFormat)
	}

	if cfg.CoverSize <= 0 {
		return errors.New("cover size must be positive")
	}

	if cfg.PlaylistLimit <= 0 {
		return errors.New("playlist limit must be positive")
	}

	if cfg.CatalogAPIURL == "" {
		return errors.New("catalog API URL is empty")
	}

	// A broken template must fail here, before any processing starts.
	if err := template.Check(cfg.OutputTemplate); nil != err {
		return fmt.Errorf("invalid output template: %w", err)
	}

	return nil
}

func FromFile(filePath string) (*Config, error) {
	data, err := os.ReadFile(filePath)
	if nil != err {
		return nil, fmt.Errorf("failed to read config file %q: %v", filePath, err)
	}
	return FromString(string(data))
}

func FromString(data string) (*Config, error) {
	cfg := Default()
	if err := yaml.Unmarshal([]byte(data), &cfg); nil != err {
		return nil, fmt.Errorf("failed to unmarshal config: %v", err)
	}

	if err := cfg.validate(); nil != err {
		return nil, fmt.Errorf("validation failed: %w", err)
	}

	return &cfg, nil
}

// TemplateOptions derives the template engine options from the config.
func (cfg *Config) TemplateOptions() template.Options {
	return template.Options{
		Extension:           cfg.Format,
		ArtistSeparator:     cfg.FilenameSeparator,
		SanitizePlaceholder: cfg.FilenameSanitizePlaceholder,
		Unknown:             cfg.UnknownPlaceholder,
		DateFormat:          cfg.DateFormat,
		TimeFormat:          cfg.TimeFormat,
		DateTimeFormat:      cfg.DateTimeFormat,
		Clock:               nil,
	}
}
