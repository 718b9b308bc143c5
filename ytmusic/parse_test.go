package ytmusic_test

import (
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/tidwall/gjson"

	"github.com/RaduTek/YTMusicDL/ytmusic"
)

func TestLengthToSeconds(t *testing.T) {
	t.Parallel()

	tests := []struct {
		length  string
		seconds int
	}{
		{length: "0:42", seconds: 42},
		{length: "3:05", seconds: 185},
		{length: "1:02:03", seconds: 3723},
		{length: " 3:05 ", seconds: 185},
	}
	for _, test := range tests {
		got, err := ytmusic.LengthToSeconds(test.length)
		require.NoError(t, err, "length: %q", test.length)
		assert.Exactly(t, test.seconds, got, "length: %q", test.length)
	}

	_, err := ytmusic.LengthToSeconds("abc")
	assert.Error(t, err)
}

func TestSecondsToLength(t *testing.T) {
	t.Parallel()

	assert.Exactly(t, "00:42", ytmusic.SecondsToLength(42))
	assert.Exactly(t, "03:05", ytmusic.SecondsToLength(185))
	assert.Exactly(t, "01:02:03", ytmusic.SecondsToLength(3723))
}

func TestParseCoverArt(t *testing.T) {
	t.Parallel()

	parser := ytmusic.NewParser(500, zerolog.Nop())

	t.Run("SizeSuffixRewrite", func(t *testing.T) {
		t.Parallel()
		thumbs := gjson.Parse(`[
			{"url": "https://lh3.example.com/img=s60", "width": 60, "height": 60},
			{"url": "https://lh3.example.com/img=s120", "width": 120, "height": 120}
		]`)
		url, err := parser.ParseCoverArt(thumbs)
		require.NoError(t, err)
		assert.Exactly(t, "https://lh3.example.com/img=s500", url)
	})

	t.Run("CropSuffixRewrite", func(t *testing.T) {
		t.Parallel()
		thumbs := gjson.Parse(`[
			{"url": "https://i.example.com/vi/abc=w400-h225-l90-rj", "width": 400, "height": 225}
		]`)
		url, err := parser.ParseCoverArt(thumbs)
		require.NoError(t, err)
		assert.Exactly(t, "https://i.example.com/vi/abc=s500", url)
	})

	t.Run("WidthScanFallback", func(t *testing.T) {
		t.Parallel()
		thumbs := gjson.Parse(`[
			{"url": "https://i.example.com/small.jpg", "width": 120, "height": 120},
			{"url": "https://i.example.com/medium.jpg", "width": 480, "height": 480},
			{"url": "https://i.example.com/large.jpg", "width": 1080, "height": 1080}
		]`)
		url, err := parser.ParseCoverArt(thumbs)
		require.NoError(t, err)
		assert.Exactly(t, "https://i.example.com/medium.jpg", url)
	})

	t.Run("AllTooLargeTakesLargest", func(t *testing.T) {
		t.Parallel()
		thumbs := gjson.Parse(`[
			{"url": "https://i.example.com/big.jpg", "width": 720, "height": 720},
			{"url": "https://i.example.com/bigger.jpg", "width": 1080, "height": 1080}
		]`)
		url, err := parser.ParseCoverArt(thumbs)
		require.NoError(t, err)
		assert.Exactly(t, "https://i.example.com/bigger.jpg", url)
	})

	t.Run("Empty", func(t *testing.T) {
		t.Parallel()
		_, err := parser.ParseCoverArt(gjson.Parse(`[]`))
		require.Error(t, err)
		var recErr *ytmusic.MalformedRecordError
		assert.ErrorAs(t, err, &recErr)
	})
}

func TestParseTrackSong(t *testing.T) {
	t.Parallel()

	parser := ytmusic.NewParser(500, zerolog.Nop())

	t.Run("WatchPlaylistShape", func(t *testing.T) {
		t.Parallel()
		rec := gjson.Parse(`{
			"videoId": "qwertyuiop1",
			"title": "Song Title",
			"length": "3:05",
			"year": 2021,
			"videoType": "MUSIC_VIDEO_TYPE_ATV",
			"album": {"name": "Album Title", "id": "MPREb_abc"},
			"artists": [{"name": "Artist 1", "id": "UCa"}, {"name": "Artist 2", "id": "UCb"}],
			"thumbnail": [{"url": "https://lh3.example.com/img=s60", "width": 60, "height": 60}]
		}`)
		song, err := parser.ParseTrackSong(rec)
		require.NoError(t, err)
		assert.Exactly(t, "qwertyuiop1", song.ID)
		assert.Exactly(t, "Song Title", song.Title)
		assert.Exactly(t, 185, song.Duration)
		assert.Exactly(t, 2021, song.Year)
		assert.Exactly(t, ytmusic.KindAudio, song.Kind)
		require.NotNil(t, song.Album)
		assert.Exactly(t, "MPREb_abc", song.Album.ID)
		assert.Exactly(t, "Album Title", song.Album.Title)
		require.Len(t, song.Artists, 2)
		assert.Exactly(t, "Artist 1", song.Artists[0].Name)
		assert.Exactly(t, "https://lh3.example.com/img=s500", song.Cover)
	})

	t.Run("AlbumTrackShape", func(t *testing.T) {
		t.Parallel()
		rec := gjson.Parse(`{
			"videoId": "qwertyuiop2",
			"title": "Another Song",
			"duration_seconds": 241,
			"trackNumber": 7,
			"videoType": "MUSIC_VIDEO_TYPE_OMV",
			"album": "Album Title",
			"artists": [{"name": "Artist 1", "id": "UCa"}]
		}`)
		song, err := parser.ParseTrackSong(rec)
		require.NoError(t, err)
		assert.Exactly(t, 241, song.Duration)
		assert.Exactly(t, 7, song.Index)
		assert.Exactly(t, ytmusic.KindVideo, song.Kind)
		assert.Nil(t, song.Album, "display-string album field must not produce an album reference")
	})

	t.Run("UnknownVideoType", func(t *testing.T) {
		t.Parallel()
		rec := gjson.Parse(`{"videoId": "qwertyuiop3", "title": "X", "videoType": "MUSIC_VIDEO_TYPE_SHOW"}`)
		song, err := parser.ParseTrackSong(rec)
		require.NoError(t, err)
		assert.Exactly(t, ytmusic.KindUnknown, song.Kind)
	})

	t.Run("MissingRequiredFields", func(t *testing.T) {
		t.Parallel()
		var recErr *ytmusic.MalformedRecordError

		_, err := parser.ParseTrackSong(gjson.Parse(`{"title": "No ID"}`))
		require.ErrorAs(t, err, &recErr)
		assert.Exactly(t, "videoId", recErr.Field)

		_, err = parser.ParseTrackSong(gjson.Parse(`{"videoId": "qwertyuiop4"}`))
		require.ErrorAs(t, err, &recErr)
		assert.Exactly(t, "title", recErr.Field)
	})

	t.Run("BadDuration", func(t *testing.T) {
		t.Parallel()
		rec := gjson.Parse(`{"videoId": "qwertyuiop5", "title": "X", "duration": "a:bc"}`)
		_, err := parser.ParseTrackSong(rec)
		var recErr *ytmusic.MalformedRecordError
		require.ErrorAs(t, err, &recErr)
		assert.Exactly(t, "duration", recErr.Field)
	})
}

func TestParseAlbumWithSongs(t *testing.T) {
	t.Parallel()

	parser := ytmusic.NewParser(500, zerolog.Nop())

	t.Run("FullRecord", func(t *testing.T) {
		t.Parallel()
		rec := gjson.Parse(`{
			"title": "Album Title",
			"type": "Album",
			"year": 2020,
			"trackCount": 2,
			"duration_seconds": 426,
			"audioPlaylistId": "OLAK5uy_abc",
			"artists": [{"name": "Artist 1", "id": "UCa"}],
			"thumbnails": [{"url": "https://lh3.example.com/img=s60", "width": 60, "height": 60}],
			"tracks": [
				{"videoId": "aaaaaaaaaa1", "title": "Track One", "duration_seconds": 185, "videoType": "MUSIC_VIDEO_TYPE_ATV"},
				{"videoId": "aaaaaaaaaa2", "title": "Track Two", "duration_seconds": 241, "videoType": "MUSIC_VIDEO_TYPE_ATV"}
			]
		}`)
		album, err := parser.ParseAlbumWithSongs(rec, "MPREb_abc")
		require.NoError(t, err)
		assert.Exactly(t, "MPREb_abc", album.ID)
		assert.Exactly(t, "OLAK5uy_abc", album.PlaylistID)
		assert.Exactly(t, 2020, album.Year)
		assert.Exactly(t, 2, album.TotalTracks)
		require.Exactly(t, 2, album.Songs.Len())

		songs := album.Songs.Songs()
		assert.Exactly(t, "Track One", songs[0].Title)
		assert.Exactly(t, 1, songs[0].Index)
		assert.Exactly(t, 2, songs[1].Index)
		assert.True(t, songs[0].MetadataComplete)
	})

	t.Run("MalformedTrackSkipped", func(t *testing.T) {
		t.Parallel()
		rec := gjson.Parse(`{
			"title": "Album Title",
			"tracks": [
				{"videoId": "aaaaaaaaaa1", "title": "Track One"},
				{"title": "No ID Track"},
				{"videoId": "aaaaaaaaaa3", "title": "Track Three"}
			]
		}`)
		album, err := parser.ParseAlbumWithSongs(rec, "MPREb_abc")
		require.NoError(t, err)
		require.Exactly(t, 2, album.Songs.Len())

		// Positional indexes still count the skipped slot.
		songs := album.Songs.Songs()
		assert.Exactly(t, 1, songs[0].Index)
		assert.Exactly(t, 3, songs[1].Index)
	})

	t.Run("MissingTracks", func(t *testing.T) {
		t.Parallel()
		_, err := parser.ParseAlbumWithSongs(gjson.Parse(`{"title": "Album Title"}`), "MPREb_abc")
		var recErr *ytmusic.MalformedRecordError
		require.ErrorAs(t, err, &recErr)
		assert.Exactly(t, "tracks", recErr.Field)
	})

	t.Run("MissingTitle", func(t *testing.T) {
		t.Parallel()
		_, err := parser.ParseAlbumWithSongs(gjson.Parse(`{"tracks": []}`), "MPREb_abc")
		var recErr *ytmusic.MalformedRecordError
		require.ErrorAs(t, err, &recErr)
		assert.Exactly(t, "title", recErr.Field)
	})
}

func TestParsePlaylist(t *testing.T) {
	t.Parallel()

	parser := ytmusic.NewParser(500, zerolog.Nop())

	t.Run("SingleAuthor", func(t *testing.T) {
		t.Parallel()
		rec := gjson.Parse(`{
			"id": "PLabc123",
			"title": "My Mix",
			"privacy": "PUBLIC",
			"trackCount": 1,
			"author": {"name": "Owner", "id": "UCo"},
			"tracks": [{"videoId": "aaaaaaaaaa1", "title": "Track One"}]
		}`)
		playlist, err := parser.ParsePlaylist(rec)
		require.NoError(t, err)
		assert.Exactly(t, "PLabc123", playlist.ID)
		assert.Exactly(t, "PUBLIC", playlist.Visibility)
		require.Len(t, playlist.Authors, 1)
		assert.Exactly(t, "Owner", playlist.Authors[0].Name)
		require.Len(t, playlist.Songs, 1)
	})

	t.Run("CollaborativeAuthors", func(t *testing.T) {
		t.Parallel()
		rec := gjson.Parse(`{
			"id": "PLabc123",
			"title": "Shared Mix",
			"author": [{"name": "Owner", "id": "UCo"}, {"name": "Collaborator", "id": "UCc"}],
			"tracks": []
		}`)
		playlist, err := parser.ParsePlaylist(rec)
		require.NoError(t, err)
		require.Len(t, playlist.Authors, 2)
	})
}

func TestFindSongInAlbumList(t *testing.T) {
	t.Parallel()

	newAlbum := func() *ytmusic.AlbumWithSongs {
		album := &ytmusic.AlbumWithSongs{
			Album: ytmusic.Album{ID: "MPREb_abc", Title: "Album Title"},
			Songs: ytmusic.NewSongList(),
		}
		album.Songs.Set(ytmusic.Song{ID: "video000001", Title: "Track One", Index: 1, Kind: ytmusic.KindVideo})
		album.Songs.Set(ytmusic.Song{ID: "video000002", Title: "Track Two", Index: 2, Kind: ytmusic.KindVideo})
		return album
	}

	t.Run("CaseInsensitiveMatch", func(t *testing.T) {
		t.Parallel()
		album := newAlbum()
		song := ytmusic.Song{ID: "audio000002", Title: "TRACK TWO", Duration: 241, Kind: ytmusic.KindAudio}
		index, err := ytmusic.FindSongInAlbumList(&song, album)
		require.NoError(t, err)
		assert.Exactly(t, 2, index)
		assert.Exactly(t, 2, song.Index)

		// The matched entry is re-keyed under the song's id in place.
		require.Exactly(t, 2, album.Songs.Len())
		entry, ok := album.Songs.Get("audio000002")
		require.True(t, ok)
		assert.Exactly(t, ytmusic.KindAudio, entry.Kind)
		assert.Exactly(t, 241, entry.Duration)
		_, ok = album.Songs.Get("video000002")
		assert.False(t, ok)

		songs := album.Songs.Songs()
		assert.Exactly(t, "Track One", songs[0].Title)
		assert.Exactly(t, "audio000002", songs[1].ID)
	})

	t.Run("NoMatch", func(t *testing.T) {
		t.Parallel()
		album := newAlbum()
		song := ytmusic.Song{ID: "audio000003", Title: "Track Three"}
		_, err := ytmusic.FindSongInAlbumList(&song, album)
		require.Error(t, err)
		assert.ErrorIs(t, err, ytmusic.ErrSongNotFound)
	})
}

func TestSongList(t *testing.T) {
	t.Parallel()

	list := ytmusic.NewSongList()
	list.Set(ytmusic.Song{ID: "a", Title: "A"})
	list.Set(ytmusic.Song{ID: "b", Title: "B"})
	list.Set(ytmusic.Song{ID: "a", Title: "A2"})

	require.Exactly(t, 2, list.Len())
	songs := list.Songs()
	assert.Exactly(t, "A2", songs[0].Title, "replacing an entry keeps its position")
	assert.Exactly(t, "B", songs[1].Title)

	require.True(t, list.ReplaceKey("b", ytmusic.Song{ID: "c", Title: "C"}))
	_, ok := list.Get("b")
	assert.False(t, ok)
	entry, ok := list.Get("c")
	require.True(t, ok)
	assert.Exactly(t, "C", entry.Title)
	assert.False(t, list.ReplaceKey("missing", ytmusic.Song{ID: "d"}))
}
