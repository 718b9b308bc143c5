// Package tag embeds resolved metadata into downloaded media files: ID3v2
// frames for mp3 output, MP4 atoms for m4a. Opus containers are tagged by
// the downloader itself during extraction.
package tag

import (
	"context"
	"fmt"
	"strconv"

	"github.com/bogem/id3v2"
	"github.com/rs/zerolog"
	"github.com/zhaarey/go-mp4tag"

	"github.com/RaduTek/YTMusicDL/config"
	"github.com/RaduTek/YTMusicDL/ytmusic"
)

type Embedder struct {
	format    string
	artistSep string
	logger    zerolog.Logger
}

func New(cfg *config.Config, logger zerolog.Logger) *Embedder {
	return &Embedder{
		format:    cfg.Format,
		artistSep: cfg.ArtistSeparator,
		logger:    logger.With().Str("module", "tag").Logger(),
	}
}

// Embed writes the song's resolved metadata and cover art into the file at
// filePath. Opus output is a no-op here.
func (e *Embedder) Embed(_ context.Context, filePath string, song ytmusic.Song, cover []byte) error {
	switch e.format {
	case config.FormatMP3:
		return e.embedID3(filePath, song, cover)
	case config.FormatM4A:
		return e.embedMP4(filePath, song, cover)
	default:
		return nil
	}
}

func (e *Embedder) embedID3(filePath string, song ytmusic.Song, cover []byte) (err error) {
	file, err := id3v2.Open(filePath, id3v2.Options{Parse: false}) //nolint:exhaustruct
	if nil != err {
		return fmt.Errorf("failed to open %q for tagging: %v", filePath, err)
	}
	defer func() {
		if closeErr := file.Close(); nil != closeErr && nil == err {
			err = fmt.Errorf("failed to close tagged file: %v", closeErr)
		}
	}()

	file.SetDefaultEncoding(id3v2.EncodingUTF8)
	file.SetTitle(song.Title)
	if len(song.Artists) > 0 {
		file.SetArtist(ytmusic.JoinArtists(song.Artists, e.artistSep))
	}
	if song.Year > 0 {
		file.SetYear(strconv.Itoa(song.Year))
	}

	if album := song.Album; album != nil {
		file.SetAlbum(album.Title)
		if len(album.Artists) > 0 {
			file.AddTextFrame(file.CommonID("Band/Orchestra/Accompaniment"), file.DefaultEncoding(), ytmusic.JoinArtists(album.Artists, e.artistSep))
		}
		if song.Index > 0 && album.TotalTracks > 0 {
			file.AddTextFrame(file.CommonID("Track number/Position in set"), file.DefaultEncoding(), fmt.Sprintf("%d/%d", song.Index, album.TotalTracks))
		}
		if album.Year > 0 && song.Year == 0 {
			file.SetYear(strconv.Itoa(album.Year))
		}
	}

	if song.Lyrics != "" {
		file.AddUnsynchronisedLyricsFrame(id3v2.UnsynchronisedLyricsFrame{
			Encoding:          id3v2.EncodingUTF8,
			Language:          "und",
			ContentDescriptor: song.LyricsSource,
			Lyrics:            song.Lyrics,
		})
	}

	if len(cover) > 0 {
		file.AddAttachedPicture(id3v2.PictureFrame{
			Encoding:    id3v2.EncodingUTF8,
			MimeType:    coverMime(cover),
			PictureType: id3v2.PTFrontCover,
			Description: "Front cover",
			Picture:     cover,
		})
	}

	if err := file.Save(); nil != err {
		return fmt.Errorf("failed to save tags to %q: %v", filePath, err)
	}

	e.logger.Debug().Str("song", song.String()).Str("file", filePath).Msg("Embedded tags")
	return nil
}

func (e *Embedder) embedMP4(filePath string, song ytmusic.Song, cover []byte) error {
	file, err := mp4tag.Open(filePath)
	if nil != err {
		return fmt.Errorf("failed to open %q for tagging: %v", filePath, err)
	}
	defer file.Close()

	if err := file.Write(MP4TagsForSong(song, cover, e.artistSep), []string{}); nil != err {
		return fmt.Errorf("failed to save tags to %q: %v", filePath, err)
	}

	e.logger.Debug().Str("song", song.String()).Str("file", filePath).Msg("Embedded tags")
	return nil
}

// MP4TagsForSong builds the MP4 atom set for a resolved song. The picture
// format is left to the container writer's sniffing.
func MP4TagsForSong(song ytmusic.Song, cover []byte, artistSep string) *mp4tag.MP4Tags {
	tags := &mp4tag.MP4Tags{ //nolint:exhaustruct
		Title: song.Title,
	}
	if len(song.Artists) > 0 {
		tags.Artist = ytmusic.JoinArtists(song.Artists, artistSep)
	}
	if song.Year > 0 {
		tags.Date = strconv.Itoa(song.Year)
	}
	if song.Index > 0 {
		tags.TrackNumber = int16(song.Index)
	}

	if album := song.Album; album != nil {
		tags.Album = album.Title
		if len(album.Artists) > 0 {
			tags.AlbumArtist = ytmusic.JoinArtists(album.Artists, artistSep)
		}
		if album.TotalTracks > 0 {
			tags.TrackTotal = int16(album.TotalTracks)
		}
		if album.Year > 0 && song.Year == 0 {
			tags.Date = strconv.Itoa(album.Year)
		}
	}

	if song.Lyrics != "" {
		tags.Lyrics = song.Lyrics
	}

	if len(cover) > 0 {
		tags.Pictures = []*mp4tag.MP4Picture{{Data: cover}} //nolint:exhaustruct
	}

	return tags
}

func coverMime(cover []byte) string {
	if len(cover) >= 8 && string(cover[1:4]) == "PNG" {
		return "image/png"
	}
	return "image/jpeg"
}
