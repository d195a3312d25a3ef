package capture

import (
	"context"
	"time"

	"github.com/bluenviron/gortsplib/v4"
	"github.com/bluenviron/gortsplib/v4/pkg/base"
	"github.com/bluenviron/gortsplib/v4/pkg/description"
	"github.com/bluenviron/gortsplib/v4/pkg/format"
	"github.com/pion/rtp"
	"github.com/pkg/errors"
)

// rtspSource pulls an MJPEG-over-RTSP stream using gortsplib, grounded on
// the viamrobotics-rdk and WebRtcDashboard RTSP clients in the example
// pack. H.264 depacketization is out of scope (§1 Non-goals / SPEC_FULL.md
// domain-stack note) — only MJPEG media is accepted.
type rtspSource struct {
	url string
	buf *grabBuffer

	client *gortsplib.Client
}

func newRTSPSource(url string, grabSkip int) *rtspSource {
	return &rtspSource{url: url, buf: newGrabBuffer(grabSkip)}
}

func (s *rtspSource) Open(ctx context.Context) error {
	u, err := base.ParseURL(s.url)
	if err != nil {
		return errors.Wrapf(err, "capture: parse rtsp url %q", s.url)
	}

	client := &gortsplib.Client{}
	if err := client.Start(u.Scheme, u.Host); err != nil {
		return errors.Wrapf(err, "capture: start rtsp client %q", s.url)
	}
	s.client = client

	success := false
	defer func() {
		if !success {
			client.Close()
		}
	}()

	desc, _, err := client.Describe(u)
	if err != nil {
		return errors.Wrapf(err, "capture: describe %q", s.url)
	}

	var mjpeg *format.MJPEG
	media := desc.FindFormat(&mjpeg)
	if media == nil {
		return errors.Errorf("capture: no MJPEG track on %q", s.url)
	}

	decoder, err := mjpeg.CreateDecoder()
	if err != nil {
		return errors.Wrapf(err, "capture: create mjpeg decoder for %q", s.url)
	}

	if _, err := client.Setup(desc.BaseURL, media, 0, 0); err != nil {
		return errors.Wrapf(err, "capture: setup %q", s.url)
	}

	client.OnPacketRTP(media, mjpeg, func(pkt *rtp.Packet) {
		jpegBytes, err := decoder.Decode(pkt)
		if err != nil {
			return
		}
		s.buf.push(rawFrame{data: jpegBytes, capturedAt: time.Now()})
	})

	if _, err := client.Play(nil); err != nil {
		return errors.Wrapf(err, "capture: play %q", s.url)
	}

	success = true
	return nil
}

func (s *rtspSource) ReadLatest(ctx context.Context) ([]byte, time.Time, error) {
	f, err := s.buf.readLatest(ctx)
	if err != nil {
		return nil, time.Time{}, err
	}
	return f.data, f.capturedAt, nil
}

func (s *rtspSource) Close() error {
	if s.client != nil {
		s.client.Close()
	}
	return nil
}
