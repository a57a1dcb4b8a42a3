// Package transform produces native ad variants from source media: a
// center-cropped, time-limited video rendition plus a size-constrained
// thumbnail. Video work shells out to ffmpeg/ffprobe; image work is done
// in-process.
package transform

import (
	"bytes"
	"context"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/creativeflow/creative-int/internal/logging"
)

// Native format constraints for the target placement.
const (
	NativeWidth       = 640
	NativeHeight      = 360
	NativeMaxDuration = 4.0
)

// MediaInfo holds the probed properties of a media file.
type MediaInfo struct {
	Width    int
	Height   int
	Duration float64 // seconds, 0 for still images
}

// AspectRatio returns width/height, 0 when the height is unknown.
func (m MediaInfo) AspectRatio() float64 {
	if m.Height == 0 {
		return 0
	}
	return float64(m.Width) / float64(m.Height)
}

// Converter renders native variants via ffmpeg. The binaries are looked up
// on PATH unless explicit paths are given.
type Converter struct {
	ffmpeg  string
	ffprobe string
	log     *logging.Logger
}

// NewConverter creates a converter using ffmpeg and ffprobe from PATH.
func NewConverter(log *logging.Logger) *Converter {
	return &Converter{ffmpeg: "ffmpeg", ffprobe: "ffprobe", log: log}
}

// Available reports whether both binaries can be found.
func (c *Converter) Available() bool {
	_, errM := exec.LookPath(c.ffmpeg)
	_, errP := exec.LookPath(c.ffprobe)
	return errM == nil && errP == nil
}

// Probe reads duration and dimensions from a media file.
func (c *Converter) Probe(ctx context.Context, path string) (MediaInfo, error) {
	var info MediaInfo

	duration, err := c.probeValue(ctx, path, "format=duration", "")
	if err != nil {
		return info, err
	}
	info.Duration, _ = strconv.ParseFloat(duration, 64)

	width, err := c.probeValue(ctx, path, "stream=width", "v:0")
	if err != nil {
		return info, err
	}
	info.Width, _ = strconv.Atoi(width)

	height, err := c.probeValue(ctx, path, "stream=height", "v:0")
	if err != nil {
		return info, err
	}
	info.Height, _ = strconv.Atoi(height)

	if info.Width == 0 || info.Height == 0 {
		return info, fmt.Errorf("could not determine dimensions of %s", filepath.Base(path))
	}
	return info, nil
}

func (c *Converter) probeValue(ctx context.Context, path, entries, stream string) (string, error) {
	args := []string{"-v", "error"}
	if stream != "" {
		args = append(args, "-select_streams", stream)
	}
	args = append(args, "-show_entries", entries, "-of", "default=noprint_wrappers=1:nokey=1", path)

	out, err := c.run(ctx, c.ffprobe, args)
	if err != nil {
		return "", fmt.Errorf("ffprobe failed on %s: %w", filepath.Base(path), err)
	}
	return strings.TrimSpace(out), nil
}

// ConvertNative renders the native video variant and its first-frame PNG
// thumbnail. The source is center-cropped to 16:9, scaled to 640x360, and
// trimmed to at most 4 seconds. Returns the achieved duration.
func (c *Converter) ConvertNative(ctx context.Context, srcPath, videoOut, thumbOut string) (float64, error) {
	info, err := c.Probe(ctx, srcPath)
	if err != nil {
		return 0, err
	}

	crop := cropFilter(info.Width, info.Height)
	vf := fmt.Sprintf("%s,scale=%d:%d", crop, NativeWidth, NativeHeight)

	for _, dir := range []string{filepath.Dir(videoOut), filepath.Dir(thumbOut)} {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return 0, err
		}
	}

	_, err = c.run(ctx, c.ffmpeg, []string{
		"-i", srcPath,
		"-ss", "0",
		"-t", strconv.FormatFloat(NativeMaxDuration, 'f', -1, 64),
		"-vf", vf,
		"-c:v", "libx264",
		"-preset", "veryfast",
		"-crf", "23",
		"-c:a", "aac",
		"-b:a", "128k",
		"-y",
		videoOut,
	})
	if err != nil {
		return 0, fmt.Errorf("native video conversion failed for %s: %w", filepath.Base(srcPath), err)
	}

	_, err = c.run(ctx, c.ffmpeg, []string{
		"-i", srcPath,
		"-ss", "00:00:00.000",
		"-vframes", "1",
		"-vf", vf,
		"-y",
		thumbOut,
	})
	if err != nil {
		return 0, fmt.Errorf("thumbnail extraction failed for %s: %w", filepath.Base(srcPath), err)
	}

	achieved := info.Duration
	if achieved > NativeMaxDuration {
		achieved = NativeMaxDuration
	}
	c.log.Debugf("Converted %s to native format (%.1fs)", filepath.Base(srcPath), achieved)
	return achieved, nil
}

// cropFilter center-crops the source to the target 16:9 aspect before
// scaling, cutting width from wide sources and height from tall ones.
func cropFilter(width, height int) string {
	targetAspect := float64(NativeWidth) / float64(NativeHeight)
	aspect := float64(width) / float64(height)

	if aspect > targetAspect {
		cropWidth := int(float64(height) * targetAspect)
		return fmt.Sprintf("crop=%d:%d:(iw-%d)/2:0", cropWidth, height, cropWidth)
	}
	cropHeight := int(float64(width) / targetAspect)
	return fmt.Sprintf("crop=%d:%d:0:(ih-%d)/2", width, cropHeight, cropHeight)
}

func (c *Converter) run(ctx context.Context, bin string, args []string) (string, error) {
	cmd := exec.CommandContext(ctx, bin, args...)
	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	if err := cmd.Run(); err != nil {
		msg := strings.TrimSpace(stderr.String())
		if msg == "" {
			return "", err
		}
		return "", fmt.Errorf("%w: %s", err, lastLine(msg))
	}
	return stdout.String(), nil
}

func lastLine(s string) string {
	lines := strings.Split(strings.TrimSpace(s), "\n")
	return strings.TrimSpace(lines[len(lines)-1])
}
