package headless

import (
	"bytes"
	"encoding/base64"
	"fmt"
	"image"
	"image/color"
	"image/png"
)

// Screenshot implements surface.Surface. Without a renderer there is no
// pixel content to capture, so it produces a solid placeholder frame at the
// configured size, base64-encoded like the GUI surface's capture path.
func (s *Surface) Screenshot() (string, error) {
	if _, err := s.activeTab(); err != nil {
		return "", err
	}

	img := image.NewRGBA(image.Rect(0, 0, s.cfg.ScreenshotWidth, s.cfg.ScreenshotHeight))
	bg := color.RGBA{R: 0xf0, G: 0xf0, B: 0xf0, A: 0xff}
	for y := 0; y < s.cfg.ScreenshotHeight; y++ {
		for x := 0; x < s.cfg.ScreenshotWidth; x++ {
			img.SetRGBA(x, y, bg)
		}
	}

	var buf bytes.Buffer
	if err := png.Encode(&buf, img); err != nil {
		return "", fmt.Errorf("failed to encode screenshot: %w", err)
	}
	return base64.StdEncoding.EncodeToString(buf.Bytes()), nil
}
