package capture

import (
	"context"
	"io"
	"os"
	"time"

	"github.com/pkg/errors"
)

// fileSource reads a local file of concatenated JPEG frames (SOI/EOI
// delimited), looping back to the start on EOF (§4.2 local-file source,
// SPEC_FULL.md supplement: original_source's video_path fallback). The
// SOI/EOI scan is adapted from the dashboard's FFmpeg MJPEG stdout reader.
type fileSource struct {
	path string
	buf  *grabBuffer

	stopCh chan struct{}
	doneCh chan struct{}
}

func newFileSource(path string, grabSkip int) *fileSource {
	return &fileSource{
		path:   path,
		buf:    newGrabBuffer(grabSkip),
		stopCh: make(chan struct{}),
		doneCh: make(chan struct{}),
	}
}

func (s *fileSource) Open(ctx context.Context) error {
	f, err := os.Open(s.path)
	if err != nil {
		return errors.Wrapf(err, "capture: open local file %q", s.path)
	}
	if _, err := readJPEGFrame(f); err != nil {
		f.Close()
		return errors.Wrapf(err, "capture: %q does not contain a JPEG frame", s.path)
	}
	f.Close()

	go s.readLoop()
	return nil
}

// readLoop repeatedly scans the file for JPEG frames and restarts from the
// beginning on EOF, pacing naturally on read latency (§4.2 "local-file loop
// on EOF").
func (s *fileSource) readLoop() {
	defer close(s.doneCh)

	for {
		select {
		case <-s.stopCh:
			return
		default:
		}

		f, err := os.Open(s.path)
		if err != nil {
			time.Sleep(time.Second)
			continue
		}

		for {
			select {
			case <-s.stopCh:
				f.Close()
				return
			default:
			}

			data, err := readJPEGFrame(f)
			if err != nil {
				break // EOF or corrupt tail: reopen and loop
			}
			s.buf.push(rawFrame{data: data, capturedAt: time.Now()})
		}
		f.Close()
	}
}

func (s *fileSource) ReadLatest(ctx context.Context) ([]byte, time.Time, error) {
	f, err := s.buf.readLatest(ctx)
	if err != nil {
		return nil, time.Time{}, err
	}
	return f.data, f.capturedAt, nil
}

func (s *fileSource) Close() error {
	select {
	case <-s.stopCh:
	default:
		close(s.stopCh)
	}
	<-s.doneCh
	return nil
}

// readJPEGFrame scans r for one SOI (0xFFD8) .. EOI (0xFFD9) delimited
// JPEG frame and returns its bytes.
func readJPEGFrame(r io.Reader) ([]byte, error) {
	buf := make([]byte, 4096)
	data := make([]byte, 0, 65536)

	foundSOI := false
	for !foundSOI {
		n, err := r.Read(buf)
		if n == 0 && err != nil {
			return nil, err
		}
		data = append(data, buf[:n]...)
		for i := 0; i < len(data)-1; i++ {
			if data[i] == 0xFF && data[i+1] == 0xD8 {
				data = data[i:]
				foundSOI = true
				break
			}
		}
		if len(data) > 200000 {
			return nil, errors.New("capture: no SOI marker found")
		}
	}

	for {
		for i := 1; i < len(data); i++ {
			if data[i-1] == 0xFF && data[i] == 0xD9 {
				frame := make([]byte, i+1)
				copy(frame, data[:i+1])
				return frame, nil
			}
		}
		n, err := r.Read(buf)
		if n == 0 && err != nil {
			return nil, err
		}
		data = append(data, buf[:n]...)
		if len(data) > 2_000_000 {
			return nil, errors.New("capture: frame exceeded max size without EOI")
		}
	}
}
