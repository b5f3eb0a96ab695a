// Package camera feeds already-encoded frames from an external encoder into
// the frame hub. No image processing happens here.
package camera

import (
	"context"
	"errors"
	"fmt"
	"io"
	"mime"
	"mime/multipart"
	"net/http"
)

// Source yields opaque encoded frames, one per call.
type Source interface {
	NextFrame(ctx context.Context) ([]byte, error)
	Close() error
}

// MJPEGSource consumes a multipart/x-mixed-replace stream, the usual output
// of MJPEG camera daemons, one JPEG per part.
type MJPEGSource struct {
	resp  *http.Response
	parts *multipart.Reader
}

// OpenMJPEG connects to the stream URL and prepares the part reader.
func OpenMJPEG(ctx context.Context, url string) (*MJPEGSource, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, fmt.Errorf("camera: %w", err)
	}
	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("camera: connect %s: %w", url, err)
	}
	if resp.StatusCode != http.StatusOK {
		resp.Body.Close()
		return nil, fmt.Errorf("camera: %s responded %s", url, resp.Status)
	}
	mediaType, params, err := mime.ParseMediaType(resp.Header.Get("Content-Type"))
	if err != nil {
		resp.Body.Close()
		return nil, fmt.Errorf("camera: content type: %w", err)
	}
	if mediaType != "multipart/x-mixed-replace" || params["boundary"] == "" {
		resp.Body.Close()
		return nil, fmt.Errorf("camera: %s is not an MJPEG stream (%s)", url, mediaType)
	}
	return &MJPEGSource{
		resp:  resp,
		parts: multipart.NewReader(resp.Body, params["boundary"]),
	}, nil
}

// NextFrame returns the next part's bytes.
func (s *MJPEGSource) NextFrame(ctx context.Context) ([]byte, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	part, err := s.parts.NextPart()
	if err != nil {
		if errors.Is(err, io.EOF) {
			return nil, io.EOF
		}
		return nil, fmt.Errorf("camera: next part: %w", err)
	}
	defer part.Close()
	data, err := io.ReadAll(part)
	if err != nil {
		return nil, fmt.Errorf("camera: read part: %w", err)
	}
	return data, nil
}

// Close tears down the HTTP stream.
func (s *MJPEGSource) Close() error {
	return s.resp.Body.Close()
}
