package domain

import (
	"path/filepath"
	"strings"
)

// Classifier decides the type of a media. ok is false when it has no opinion.
type Classifier interface {
	Classify(path string, md *Metadata) (t MediaType, ok bool)
}

// ClassifierFunc adapts a function to Classifier.
type ClassifierFunc func(path string, md *Metadata) (MediaType, bool)

func (f ClassifierFunc) Classify(path string, md *Metadata) (MediaType, bool) {
	return f(path, md)
}

// ClassifierChain asks each classifier in turn; the first definite answer wins.
type ClassifierChain []Classifier

// DefaultClassifiers returns track kinds, then container kind, then extension.
func DefaultClassifiers() ClassifierChain {
	return ClassifierChain{
		ClassifierFunc(classifyByTracks),
		ClassifierFunc(classifyByContainer),
		ClassifierFunc(classifyByExtension),
	}
}

// Classify returns MediaTypeUnknown when no classifier answers.
func (c ClassifierChain) Classify(path string, md *Metadata) MediaType {
	for _, classifier := range c {
		if t, ok := classifier.Classify(path, md); ok {
			return t
		}
	}
	return MediaTypeUnknown
}

// video beats audio
func classifyByTracks(_ string, md *Metadata) (MediaType, bool) {
	if md == nil {
		return MediaTypeUnknown, false
	}
	switch {
	case md.HasTrack(TrackKindVideo):
		return MediaTypeVideo, true
	case md.HasTrack(TrackKindAudio):
		return MediaTypeAudio, true
	default:
		return MediaTypeUnknown, false
	}
}

func classifyByContainer(_ string, md *Metadata) (MediaType, bool) {
	if md == nil {
		return MediaTypeUnknown, false
	}
	switch md.Container {
	case ContainerDirectory:
		return MediaTypeDir, true
	case ContainerPlaylist:
		return MediaTypePlaylist, true
	default:
		return MediaTypeUnknown, false
	}
}

func classifyByExtension(path string, _ *Metadata) (MediaType, bool) {
	t := TypeFromExtension(path)
	return t, t != MediaTypeUnknown
}

var videoExtensions = map[string]struct{}{
	".3g2": {}, ".3gp": {}, ".asf": {}, ".avi": {}, ".divx": {}, ".flv": {}, ".m2ts": {},
	".m2v": {}, ".m4v": {}, ".mkv": {}, ".mov": {}, ".mp4": {}, ".mpeg": {}, ".mpg": {},
	".mts": {}, ".ogv": {}, ".ogm": {}, ".rm": {}, ".rmvb": {}, ".ts": {}, ".vob": {},
	".webm": {}, ".wmv": {},
}

var audioExtensions = map[string]struct{}{
	".aac": {}, ".aif": {}, ".aiff": {}, ".alac": {}, ".amr": {}, ".ape": {}, ".dsf": {},
	".flac": {}, ".m4a": {}, ".m4b": {}, ".mka": {}, ".mp2": {}, ".mp3": {}, ".mpc": {},
	".oga": {}, ".ogg": {}, ".opus": {}, ".wav": {}, ".wma": {}, ".wv": {},
}

var subtitleExtensions = map[string]struct{}{
	".ass": {}, ".idx": {}, ".smi": {}, ".srt": {}, ".ssa": {}, ".sub": {}, ".vtt": {},
}

var playlistExtensions = map[string]struct{}{
	".asx": {}, ".b4s": {}, ".m3u": {}, ".m3u8": {}, ".pls": {}, ".wpl": {}, ".xspf": {},
}

// Extension returns the lower-cased extension of path, ignoring a "?query" suffix.
func Extension(path string) string {
	if i := strings.LastIndexByte(path, '?'); i >= 0 {
		path = path[:i]
	}
	return strings.ToLower(filepath.Ext(path))
}

// TypeFromExtension classifies a path by its extension alone.
func TypeFromExtension(path string) MediaType {
	ext := Extension(path)
	if _, ok := videoExtensions[ext]; ok {
		return MediaTypeVideo
	}
	if _, ok := audioExtensions[ext]; ok {
		return MediaTypeAudio
	}
	if _, ok := subtitleExtensions[ext]; ok {
		return MediaTypeSubtitle
	}
	if _, ok := playlistExtensions[ext]; ok {
		return MediaTypePlaylist
	}
	return MediaTypeUnknown
}

// IsCandidate reports whether discovery should hand path to the indexer.
func IsCandidate(path string) bool {
	return TypeFromExtension(path) != MediaTypeUnknown
}
