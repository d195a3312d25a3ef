package capture

import (
	"bytes"
	"context"
	"image"
	"image/color"
	"image/jpeg"
	"os"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func writeTestJPEGFile(t *testing.T, frameCount int) string {
	t.Helper()
	f, err := os.CreateTemp(t.TempDir(), "frames-*.mjpeg")
	require.NoError(t, err)
	defer f.Close()

	for i := 0; i < frameCount; i++ {
		img := image.NewRGBA(image.Rect(0, 0, 4, 4))
		img.Set(0, 0, color.RGBA{uint8(i), 0, 0, 255})
		var buf bytes.Buffer
		require.NoError(t, jpeg.Encode(&buf, img, nil))
		_, err := f.Write(buf.Bytes())
		require.NoError(t, err)
	}
	return f.Name()
}

func TestReadJPEGFrameFindsSOIAndEOI(t *testing.T) {
	path := writeTestJPEGFile(t, 2)
	f, err := os.Open(path)
	require.NoError(t, err)
	defer f.Close()

	frame1, err := readJPEGFrame(f)
	require.NoError(t, err)
	require.Equal(t, byte(0xFF), frame1[0])
	require.Equal(t, byte(0xD8), frame1[1])

	frame2, err := readJPEGFrame(f)
	require.NoError(t, err)
	require.NotEmpty(t, frame2)
}

func TestFileSourceLoopsOnEOF(t *testing.T) {
	path := writeTestJPEGFile(t, 1)
	src := newFileSource(path, 2)

	ctx := context.Background()
	require.NoError(t, src.Open(ctx))
	defer src.Close()

	for i := 0; i < 3; i++ {
		readCtx, cancel := context.WithTimeout(ctx, time.Second)
		data, _, err := src.ReadLatest(readCtx)
		cancel()
		require.NoError(t, err)
		require.NotEmpty(t, data)
	}
}

func TestResolveSourceKind(t *testing.T) {
	require.Equal(t, SourceRTSP, ResolveSourceKind("rtsp://example.com/stream"))
	require.Equal(t, SourceRTSP, ResolveSourceKind("http://example.com/stream.mjpg"))
	require.Equal(t, SourceLocalFile, ResolveSourceKind("/var/lib/coalguard/clip.mjpeg"))
}
