package media

import (
	"context"
	"fmt"
	"image/color"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"vidprint/internal/errs"
)

func TestIsURL(t *testing.T) {
	assert.True(t, IsURL("http://example.com/v.mp4"))
	assert.True(t, IsURL("https://example.com/v.mp4"))
	assert.False(t, IsURL("/data/videos/v.mp4"))
	assert.False(t, IsURL("videos/v.mp4"))
	assert.False(t, IsURL("ftp://example.com/v.mp4"))
	assert.False(t, IsURL(""))
}

func TestDownloaderFetchLocal(t *testing.T) {
	dir := t.TempDir()
	local := filepath.Join(dir, "v.mp4")
	require.NoError(t, os.WriteFile(local, []byte("x"), 0o644))

	d := NewDownloader(dir, time.Second)
	path, cleanup, err := d.Fetch(context.Background(), local)
	require.NoError(t, err)
	assert.Equal(t, local, path)

	cleanup()
	_, err = os.Stat(local)
	assert.NoError(t, err, "cleanup must not remove local files")
}

func TestDownloaderFetchLocalMissing(t *testing.T) {
	d := NewDownloader(t.TempDir(), time.Second)
	_, _, err := d.Fetch(context.Background(), "/does/not/exist.mp4")
	require.Error(t, err)
	assert.True(t, errs.IsKind(err, errs.KindAcquisition))
}

func TestDownloaderFetchRemote(t *testing.T) {
	payload := []byte("fake video bytes")
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write(payload)
	}))
	defer srv.Close()

	dir := t.TempDir()
	d := NewDownloader(dir, time.Second)
	path, cleanup, err := d.Fetch(context.Background(), srv.URL+"/clip.mp4")
	require.NoError(t, err)
	assert.Equal(t, ".mp4", filepath.Ext(path))

	got, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, payload, got)

	cleanup()
	_, err = os.Stat(path)
	assert.True(t, os.IsNotExist(err), "cleanup must remove downloaded files")
}

func TestDownloaderFetchRemoteStatusError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.NotFound(w, r)
	}))
	defer srv.Close()

	d := NewDownloader(t.TempDir(), time.Second)
	_, _, err := d.Fetch(context.Background(), srv.URL+"/missing.mp4")
	require.Error(t, err)
	assert.True(t, errs.IsKind(err, errs.KindAcquisition))
}

func TestParseProbe(t *testing.T) {
	raw := `{
		"streams": [
			{"codec_type": "audio"},
			{"codec_type": "video", "width": 1920, "height": 1080,
			 "duration": "10.5", "nb_frames": "315", "avg_frame_rate": "30/1"}
		],
		"format": {"duration": "10.5"}
	}`
	info, err := parseProbe(raw, "v.mp4")
	require.NoError(t, err)
	assert.Equal(t, 1920, info.Width)
	assert.Equal(t, 1080, info.Height)
	assert.Equal(t, 315, info.FrameCount)
	assert.InDelta(t, 10.5, info.Duration, 1e-9)
	assert.InDelta(t, 30.0, info.FPS, 1e-9)
}

func TestParseProbeFrameCountFallback(t *testing.T) {
	raw := `{
		"streams": [
			{"codec_type": "video", "width": 640, "height": 360,
			 "avg_frame_rate": "30000/1001"}
		],
		"format": {"duration": "2.0"}
	}`
	info, err := parseProbe(raw, "v.mkv")
	require.NoError(t, err)
	assert.InDelta(t, 29.97, info.FPS, 0.01)
	wantFrames := 2.0 * 30000.0 / 1001.0
	assert.Equal(t, int(wantFrames), info.FrameCount)
}

func TestParseProbeNoVideoStream(t *testing.T) {
	raw := `{"streams": [{"codec_type": "audio"}]}`
	_, err := parseProbe(raw, "a.mp3")
	require.Error(t, err)
	assert.True(t, errs.IsKind(err, errs.KindDecode))
}

func TestParseProbeNoFrames(t *testing.T) {
	raw := `{"streams": [{"codec_type": "video", "width": 10, "height": 10}]}`
	_, err := parseProbe(raw, "empty.mp4")
	require.Error(t, err)
	assert.True(t, errs.IsKind(err, errs.KindDecode))
}

func TestParseRate(t *testing.T) {
	assert.InDelta(t, 30.0, parseRate("30/1"), 1e-9)
	assert.InDelta(t, 29.97, parseRate("30000/1001"), 0.01)
	assert.InDelta(t, 25.0, parseRate("25"), 1e-9)
	assert.Equal(t, 0.0, parseRate("0/0"))
	assert.Equal(t, 0.0, parseRate("bogus"))
}

func TestSelectExpr(t *testing.T) {
	assert.Equal(t, `eq(n\,0)`, selectExpr([]int{0}))
	assert.Equal(t, `eq(n\,0)+eq(n\,15)+eq(n\,30)`, selectExpr([]int{0, 15, 30}))
}

func TestParseRGBFrames(t *testing.T) {
	size := 2
	frameLen := size * size * 3
	data := make([]byte, frameLen*2)
	for i := 0; i < frameLen; i++ {
		data[i] = 255 // frame 0 white
	}
	// frame 1 stays black

	frames, err := parseRGBFrames(data, size)
	require.NoError(t, err)
	require.Len(t, frames, 2)

	r, g, b, _ := frames[0].At(0, 0).RGBA()
	assert.Equal(t, color.RGBA{255, 255, 255, 255}, color.RGBA{uint8(r >> 8), uint8(g >> 8), uint8(b >> 8), 255})

	r, g, b, _ = frames[1].At(1, 1).RGBA()
	assert.Equal(t, uint32(0), r)
	assert.Equal(t, uint32(0), g)
	assert.Equal(t, uint32(0), b)
}

func TestParseRGBFramesDropsPartialTail(t *testing.T) {
	size := 4
	frameLen := size * size * 3
	data := make([]byte, frameLen+frameLen/2)

	frames, err := parseRGBFrames(data, size)
	require.NoError(t, err)
	assert.Len(t, frames, 1)
}

func TestParseRGBFramesBadSize(t *testing.T) {
	_, err := parseRGBFrames([]byte{1, 2, 3}, 0)
	require.Error(t, err)
	assert.True(t, errs.IsKind(err, errs.KindDecode))
}

func TestFramesAtEmptyIndices(t *testing.T) {
	s := NewFrameSource(8)
	frames, err := s.FramesAt(context.Background(), "v.mp4", nil)
	require.NoError(t, err)
	assert.Nil(t, frames)
}

func ExampleIsURL() {
	fmt.Println(IsURL("https://cdn.example.com/v.mp4"))
	fmt.Println(IsURL("/srv/videos/v.mp4"))
	// Output:
	// true
	// false
}
