package capture

import (
	"context"
	"strings"
	"time"
)

// SourceKind is how a camera's configured path is interpreted (§4.2
// "source resolution").
type SourceKind int

const (
	SourceRTSP SourceKind = iota
	SourceLocalFile
)

// ResolveSourceKind classifies a camera's configured source string.
// rtsp:// (and http(s):// serving an MJPEG stream) resolve to SourceRTSP;
// anything else is treated as a local MJPEG file path, looped on EOF
// (§4.2, supplemented by original_source's video_path fallback).
func ResolveSourceKind(path string) SourceKind {
	lower := strings.ToLower(path)
	if strings.HasPrefix(lower, "rtsp://") || strings.HasPrefix(lower, "http://") || strings.HasPrefix(lower, "https://") {
		return SourceRTSP
	}
	return SourceLocalFile
}

// rawFrame is one still-encoded JPEG frame pulled off the wire or file,
// stamped with the time it was captured.
type rawFrame struct {
	data       []byte
	capturedAt time.Time
}

// Source is the narrow interface both backends (RTSP, local file) satisfy.
// Frames are buffered in a small drop-oldest channel internally; ReadLatest
// implements "grab-skip" (§4.2) by draining every pending frame cheaply
// (no decode) before returning only the newest one.
type Source interface {
	Open(ctx context.Context) error
	ReadLatest(ctx context.Context) ([]byte, time.Time, error)
	Close() error
}

// grabBuffer is the shared drop-oldest ring both source backends push
// decoded-ready JPEG payloads into from their own I/O goroutine.
type grabBuffer struct {
	ch chan rawFrame
}

// newGrabBuffer sizes the channel to grabSkip cheap, no-decode frames; the
// worker decodes only the newest, so up to grabSkip-1 buffered frames are
// discarded per decode (§4.2 GRAB_SKIP, default 2).
func newGrabBuffer(grabSkip int) *grabBuffer {
	if grabSkip < 1 {
		grabSkip = 1
	}
	return &grabBuffer{ch: make(chan rawFrame, grabSkip)}
}

// push adds a frame, dropping the oldest buffered one if full.
func (g *grabBuffer) push(f rawFrame) {
	select {
	case g.ch <- f:
		return
	default:
	}
	select {
	case <-g.ch:
	default:
	}
	select {
	case g.ch <- f:
	default:
	}
}

// readLatest drains every buffered frame without decoding and returns only
// the newest, blocking until at least one is available or ctx is done.
func (g *grabBuffer) readLatest(ctx context.Context) (rawFrame, error) {
	select {
	case f := <-g.ch:
		return drainRest(g.ch, f), nil
	case <-ctx.Done():
		return rawFrame{}, ctx.Err()
	}
}

func drainRest(ch chan rawFrame, latest rawFrame) rawFrame {
	for {
		select {
		case f := <-ch:
			latest = f
		default:
			return latest
		}
	}
}
