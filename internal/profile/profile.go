// Package profile maps a destination container extension to the encoder
// argument set used for it. The mapping is a fixed table; destinations
// without a row fall back to a lossless stream copy. Automation downstream
// depends on these exact parameter sets, so rows are never tuned silently.
package profile

// Profile describes the encoding parameters for one destination format.
type Profile struct {
	VideoCodec   string
	VideoArgs    []string // quality/bitrate parameters for the video codec
	AudioCodec   string
	AudioBitrate string
}

var profiles = map[string]Profile{
	".mp4": {
		VideoCodec:   "libx264",
		VideoArgs:    []string{"-crf", "23", "-preset", "medium"},
		AudioCodec:   "aac",
		AudioBitrate: "128k",
	},
	".webm": {
		VideoCodec:   "libvpx-vp9",
		VideoArgs:    []string{"-crf", "30", "-b:v", "0"},
		AudioCodec:   "libopus",
		AudioBitrate: "128k",
	},
	".avi": {
		VideoCodec:   "mpeg4",
		VideoArgs:    []string{"-q:v", "3"},
		AudioCodec:   "mp3",
		AudioBitrate: "128k",
	},
	".mov": {
		VideoCodec:   "h264",
		VideoArgs:    []string{"-crf", "23"},
		AudioCodec:   "aac",
		AudioBitrate: "128k",
	},
}

// Lookup returns the profile registered for the destination extension.
func Lookup(destExt string) (Profile, bool) {
	p, ok := profiles[destExt]
	return p, ok
}

// Known returns the destination extensions that have an explicit profile.
func Known() []string {
	out := make([]string, 0, len(profiles))
	for ext := range profiles {
		out = append(out, ext)
	}
	return out
}

// Args builds the full encoder argument list for converting inputPath to
// outputPath with the profile selected by destExt. Unrecognized destinations
// get a stream copy. The trailing -y overwrites an existing destination.
func Args(destExt, inputPath, outputPath string) []string {
	p, ok := profiles[destExt]
	if !ok {
		return []string{"-i", inputPath, "-c", "copy", "-y", outputPath}
	}

	args := []string{"-i", inputPath, "-c:v", p.VideoCodec}
	args = append(args, p.VideoArgs...)
	args = append(args, "-c:a", p.AudioCodec, "-b:a", p.AudioBitrate, "-y", outputPath)
	return args
}
