package media

import (
	"encoding/json"
	"fmt"
	"strconv"
	"strings"

	ffmpeg_go "github.com/u2takey/ffmpeg-go"

	"vidprint/internal/errs"
)

// Info describes the first video stream of a file.
type Info struct {
	Width      int
	Height     int
	Duration   float64
	FPS        float64
	FrameCount int
}

// Probe reads stream metadata with ffprobe. Files without a video stream or
// with no decodable frames are rejected.
func Probe(path string) (Info, error) {
	raw, err := ffmpeg_go.Probe(path)
	if err != nil {
		return Info{}, errs.Wrap(errs.KindDecode, fmt.Sprintf("probe %s", path), err)
	}
	return parseProbe(raw, path)
}

func parseProbe(raw, path string) (Info, error) {
	var probeResult struct {
		Streams []struct {
			CodecType    string `json:"codec_type"`
			Width        int    `json:"width"`
			Height       int    `json:"height"`
			Duration     string `json:"duration"`
			NBFrames     string `json:"nb_frames"`
			AvgFrameRate string `json:"avg_frame_rate"`
			RFrameRate   string `json:"r_frame_rate"`
		} `json:"streams"`
		Format struct {
			Duration string `json:"duration"`
		} `json:"format"`
	}
	if err := json.Unmarshal([]byte(raw), &probeResult); err != nil {
		return Info{}, errs.Wrap(errs.KindDecode, "parse ffprobe output", err)
	}

	for _, stream := range probeResult.Streams {
		if stream.CodecType != "video" {
			continue
		}
		info := Info{
			Width:  stream.Width,
			Height: stream.Height,
		}
		info.Duration, _ = strconv.ParseFloat(stream.Duration, 64)
		if info.Duration == 0 {
			info.Duration, _ = strconv.ParseFloat(probeResult.Format.Duration, 64)
		}
		info.FPS = parseRate(stream.AvgFrameRate)
		if info.FPS == 0 {
			info.FPS = parseRate(stream.RFrameRate)
		}
		info.FrameCount, _ = strconv.Atoi(stream.NBFrames)
		if info.FrameCount == 0 && info.Duration > 0 && info.FPS > 0 {
			info.FrameCount = int(info.Duration * info.FPS)
		}
		if info.FrameCount <= 0 {
			return Info{}, errs.New(errs.KindDecode, fmt.Sprintf("%s has no decodable frames", path))
		}
		return info, nil
	}
	return Info{}, errs.New(errs.KindDecode, fmt.Sprintf("%s has no video stream", path))
}

// parseRate parses ffprobe rational rates like "30000/1001".
func parseRate(rate string) float64 {
	num, den, found := strings.Cut(rate, "/")
	if !found {
		f, _ := strconv.ParseFloat(rate, 64)
		return f
	}
	n, err := strconv.ParseFloat(num, 64)
	if err != nil {
		return 0
	}
	d, err := strconv.ParseFloat(den, 64)
	if err != nil || d == 0 {
		return 0
	}
	return n / d
}
