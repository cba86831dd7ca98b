package extractor

import (
	"bufio"
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"time"

	"github.com/dhowden/tag"
	"github.com/tcolgate/mp3"

	"github.com/narwhalmedia/medialibrary/internal/medialibrary/domain"
	"github.com/narwhalmedia/medialibrary/pkg/interfaces"
)

// playlistHeader opens an extended M3U playlist.
var playlistHeader = []byte("#EXTM3U")

// TagExtractor reads container tags with dhowden/tag. MP3 durations are
// computed by decoding frame headers. Audio whose container cannot be
// recognized is rejected with domain.ErrUnsupportedMedia.
type TagExtractor struct {
	logger interfaces.Logger
}

// NewTagExtractor creates a new tag based metadata extractor.
func NewTagExtractor(logger interfaces.Logger) *TagExtractor {
	return &TagExtractor{logger: logger}
}

// Extract parses the file at path.
func (e *TagExtractor) Extract(ctx context.Context, path string) (*domain.Metadata, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	info, err := os.Stat(path)
	if err != nil {
		return nil, fmt.Errorf("stat %s: %w", path, err)
	}
	if info.IsDir() {
		return &domain.Metadata{Container: domain.ContainerDirectory}, nil
	}
	if info.Size() == 0 {
		return nil, fmt.Errorf("%w: %s is empty", domain.ErrUnsupportedMedia, path)
	}

	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open %s: %w", path, err)
	}
	defer f.Close()

	head, err := bufio.NewReader(f).Peek(len(playlistHeader))
	if err != nil && !errors.Is(err, io.EOF) {
		return nil, fmt.Errorf("read %s: %w", path, err)
	}
	if bytes.Equal(head, playlistHeader) || domain.TypeFromExtension(path) == domain.MediaTypePlaylist {
		return &domain.Metadata{Container: domain.ContainerPlaylist}, nil
	}

	md := &domain.Metadata{Container: domain.ContainerFile}
	switch domain.TypeFromExtension(path) {
	case domain.MediaTypeSubtitle:
		md.Tracks = []domain.TrackKind{domain.TrackKindSubtitle}
		return md, nil
	case domain.MediaTypeVideo:
		md.Tracks = []domain.TrackKind{domain.TrackKindVideo, domain.TrackKindAudio}
		// video containers rarely carry tags, a failure is not fatal
		if err := e.readTags(f, md); err != nil {
			e.logger.Debug("No tags in video",
				interfaces.String("path", path),
				interfaces.Error(err))
		}
		md.Normalize()
		return md, nil
	}

	if _, err := f.Seek(0, io.SeekStart); err != nil {
		return nil, fmt.Errorf("seek %s: %w", path, err)
	}
	format, _, err := tag.Identify(f)
	if err != nil {
		format = tag.UnknownFormat
	}
	ext := domain.Extension(path)
	mpeg := ext == ".mp3" || ext == ".mp2"

	switch {
	case format != tag.UnknownFormat:
		if err := e.readTags(f, md); err != nil {
			return nil, fmt.Errorf("%w: read tags of %s: %v", domain.ErrUnsupportedMedia, path, err)
		}
	case mpeg, hasPCMHeader(f):
		e.logger.Debug("No tags found", interfaces.String("path", path))
	default:
		return nil, fmt.Errorf("%w: unrecognized audio container %s", domain.ErrUnsupportedMedia, path)
	}
	md.Tracks = []domain.TrackKind{domain.TrackKindAudio}

	if mpeg {
		// untagged streams must open on a frame
		duration, err := mp3Duration(ctx, f, format == tag.UnknownFormat || format == tag.ID3v1)
		if err != nil {
			return nil, fmt.Errorf("decode %s: %w", path, err)
		}
		md.Duration = duration.Milliseconds()
	}

	md.Normalize()
	return md, nil
}

func (e *TagExtractor) readTags(f *os.File, md *domain.Metadata) error {
	if _, err := f.Seek(0, io.SeekStart); err != nil {
		return err
	}

	m, err := tag.ReadFrom(f)
	if err != nil {
		return err
	}

	md.Title = m.Title()
	md.Artist = m.Artist()
	md.Album = m.Album()
	md.AlbumArtist = m.AlbumArtist()
	md.Genre = m.Genre()
	md.Year = m.Year()
	md.Track, _ = m.Track()
	md.Disc, _ = m.Disc()

	if p := m.Picture(); p != nil && len(p.Data) > 0 {
		md.Artwork = &domain.Artwork{
			Data:     p.Data,
			MIMEType: p.MIMEType,
			Ext:      p.Ext,
		}
	}
	return nil
}

// mp3Duration sums the duration of every frame in the stream. At least one
// frame must decode. When strict, no bytes may precede the first frame.
func mp3Duration(ctx context.Context, f *os.File, strict bool) (time.Duration, error) {
	offset, err := id3v2Size(f)
	if err != nil {
		return 0, err
	}
	if _, err := f.Seek(offset, io.SeekStart); err != nil {
		return 0, err
	}

	var (
		d        = mp3.NewDecoder(bufio.NewReader(f))
		frame    mp3.Frame
		skipped  int
		duration time.Duration
	)
	for i := 0; ; i++ {
		if i%1000 == 0 {
			if err := ctx.Err(); err != nil {
				return 0, err
			}
		}
		if err := d.Decode(&frame, &skipped); err != nil {
			if i == 0 {
				return 0, fmt.Errorf("%w: no mpeg frame", domain.ErrUnsupportedMedia)
			}
			// EOF or trailing garbage, either way the stream ends here
			break
		}
		if i == 0 && strict && skipped > 0 {
			return 0, fmt.Errorf("%w: %d bytes before the first mpeg frame", domain.ErrUnsupportedMedia, skipped)
		}
		duration += frame.Duration()
	}
	return duration, nil
}

// id3v2Size returns the length of a leading ID3v2 tag, zero when absent.
func id3v2Size(f *os.File) (int64, error) {
	var header [10]byte
	if _, err := f.ReadAt(header[:], 0); err != nil {
		if errors.Is(err, io.EOF) {
			return 0, nil
		}
		return 0, err
	}
	if string(header[:3]) != "ID3" {
		return 0, nil
	}
	size := int64(header[6]&0x7f)<<21 | int64(header[7]&0x7f)<<14 | int64(header[8]&0x7f)<<7 | int64(header[9]&0x7f)
	size += int64(len(header))
	if header[5]&0x10 != 0 {
		// footer
		size += int64(len(header))
	}
	return size, nil
}

// hasPCMHeader reports whether f opens with a RIFF/WAVE or FORM/AIFF header.
func hasPCMHeader(f *os.File) bool {
	var header [12]byte
	if _, err := f.ReadAt(header[:], 0); err != nil {
		return false
	}
	switch string(header[:4]) + string(header[8:12]) {
	case "RIFFWAVE", "FORMAIFF", "FORMAIFC":
		return true
	}
	return false
}

var _ domain.MetadataExtractor = (*TagExtractor)(nil)
