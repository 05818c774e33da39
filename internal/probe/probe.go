// Package probe fills in audio stream properties for materialized files.
// The server's file metadata may omit duration, channel count, sample rate
// or bitrate; once the file is on disk they can be read from the stream
// itself.
package probe

import (
	"log"
	"strings"

	"go.senan.xyz/taglib"

	"github.com/mrlokans/audioshelf/internal/entities"
)

var audioExtensions = []string{".mp3", ".m4b", ".m4a", ".aac", ".wav", ".ogg"}

// IsAudioFile reports whether a path looks like a playable audio file.
// Archives also carry artwork and manifests, which are not playable.
func IsAudioFile(path string) bool {
	lower := strings.ToLower(path)
	for _, ext := range audioExtensions {
		if strings.HasSuffix(lower, ext) {
			return true
		}
	}
	return false
}

// Fill populates any nil stream-property fields of a file from its local
// copy. Best-effort: a probe failure leaves the fields nil and is only
// logged, since server-side metadata may still arrive later.
func Fill(file *entities.AudioFile) {
	if file.LocalPath == nil || !IsAudioFile(*file.LocalPath) {
		return
	}
	if file.DurationMs != nil && file.Channels != nil && file.SampleRate != nil && file.Bitrate != nil {
		return
	}

	props, err := taglib.ReadProperties(*file.LocalPath)
	if err != nil {
		log.Printf("Probe failed for %s: %v", *file.LocalPath, err)
		return
	}

	if file.DurationMs == nil && props.Length > 0 {
		ms := props.Length.Milliseconds()
		file.DurationMs = &ms
	}
	if file.Channels == nil && props.Channels > 0 {
		channels := int(props.Channels)
		file.Channels = &channels
	}
	if file.SampleRate == nil && props.SampleRate > 0 {
		rate := int(props.SampleRate)
		file.SampleRate = &rate
	}
	if file.Bitrate == nil && props.Bitrate > 0 {
		bitrate := int(props.Bitrate)
		file.Bitrate = &bitrate
	}
}
