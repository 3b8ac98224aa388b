package faceid

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"

	"github.com/sirupsen/logrus"

	"github.com/kozaktomas/facegate/internal/config"
	"github.com/kozaktomas/facegate/internal/embedding"
	"github.com/kozaktomas/facegate/internal/imageprep"
	"github.com/kozaktomas/facegate/internal/logging"
	"github.com/kozaktomas/facegate/internal/matcher"
	"github.com/kozaktomas/facegate/internal/provider"
)

// Settings drive the capture pipeline and the matcher.
type Settings struct {
	Model         string
	Detector      string
	QuickDetector string
	AntiSpoofing  bool
	Dim           int
	MaxWidth      int
	MaxHeight     int
	Threshold     float64
	HistoryLimit  int
}

// SettingsFromConfig maps the loaded configuration onto flow settings.
func SettingsFromConfig(cfg *config.Config) Settings {
	return Settings{
		Model:         cfg.Provider.Model,
		Detector:      cfg.Provider.Detector,
		QuickDetector: cfg.Provider.QuickDetector,
		AntiSpoofing:  cfg.Provider.AntiSpoofing,
		Dim:           cfg.EmbeddingDim(),
		MaxWidth:      cfg.Image.MaxWidth,
		MaxHeight:     cfg.Image.MaxHeight,
		Threshold:     cfg.Match.Threshold,
		HistoryLimit:  cfg.Match.HistoryLimit,
	}
}

func (s Settings) withDefaults() Settings {
	if s.MaxWidth <= 0 {
		s.MaxWidth = imageprep.DefaultMaxWidth
	}
	if s.MaxHeight <= 0 {
		s.MaxHeight = imageprep.DefaultMaxHeight
	}
	if s.Threshold <= 0 {
		s.Threshold = matcher.DefaultThreshold
	}
	if s.HistoryLimit <= 0 {
		s.HistoryLimit = matcher.DefaultHistoryLimit
	}
	return s
}

// captureMode selects how a failed full detection is reported.
type captureMode int

const (
	captureRegister captureMode = iota
	captureMatch
)

type capturer struct {
	provider provider.Provider
	settings Settings
}

// checkImage rejects paths that cannot be an image before any work is done.
func checkImage(path string) error {
	info, err := os.Stat(path)
	if err != nil {
		return newError(KindInvalidInput, fmt.Sprintf("Image file not found: %s", path), err)
	}
	if info.IsDir() || info.Size() == 0 {
		return newError(KindInvalidInput, fmt.Sprintf("Invalid image file: %s", path), nil)
	}
	return nil
}

// capture turns an image into a single validated embedding of the configured dimension.
func (c *capturer) capture(ctx context.Context, log *logrus.Entry, imagePath string, mode captureMode) (embedding.Vector, error) {
	done := logging.Phase(log, "image preprocessing")
	prepared, err := imageprep.Normalize(imagePath, c.settings.MaxWidth, c.settings.MaxHeight)
	if err != nil {
		log.WithError(err).Warn("image preprocessing skipped, using original image")
	} else if prepared.Resized {
		log.WithFields(logrus.Fields{
			"from": fmt.Sprintf("%dx%d", prepared.OriginalWidth, prepared.OriginalHeight),
			"to":   fmt.Sprintf("%dx%d", prepared.Width, prepared.Height),
		}).Info("image resized")
	}
	done()
	defer func() {
		if err := prepared.Cleanup(); err != nil {
			log.WithError(err).Warn("failed to clean up temporary image")
		}
	}()

	data, err := os.ReadFile(prepared.Path)
	if err != nil {
		return nil, newError(KindInvalidInput, fmt.Sprintf("Invalid image file: %s", imagePath), err)
	}

	if c.settings.QuickDetector != "" {
		c.quickCheck(ctx, log, data)
	}

	done = logging.Phase(log, "detection")
	faces, err := c.provider.DetectFaces(ctx, data, provider.DetectOptions{
		Detector:         c.settings.Detector,
		AntiSpoofing:     c.settings.AntiSpoofing,
		Align:            true,
		EnforceDetection: true,
	})
	done()
	if err != nil {
		return nil, detectionError(err, mode)
	}

	switch {
	case len(faces) == 0:
		return nil, newError(KindNoFace, msgNoFace, nil)
	case len(faces) > 1:
		return nil, newError(KindMultipleFaces, msgMultipleFaces, nil)
	case c.settings.AntiSpoofing && !faces[0].IsReal:
		log.WithField("antispoof_score", faces[0].AntiSpoofScore).Warn("spoofed face rejected")
		return nil, newError(KindSpoofDetected, msgSpoof, nil)
	}

	done = logging.Phase(log, "representation")
	reps, err := c.provider.Represent(ctx, data, provider.RepresentOptions{
		Model:            c.settings.Model,
		Detector:         c.settings.Detector,
		EnforceDetection: true,
	})
	done()
	if err != nil {
		if errors.Is(err, provider.ErrNoFace) {
			return nil, newError(KindNoFace, msgNoFace, err)
		}
		return nil, newError(KindProviderError, "Face encoding extraction failed", err)
	}
	if len(reps) == 0 {
		return nil, newError(KindNoFace, msgNoFace, nil)
	}

	vec := reps[0].Embedding
	if len(vec) != c.settings.Dim {
		return nil, newError(KindInvalidEmbedding,
			fmt.Sprintf("Unexpected encoding dimension: %d. Expected %d", len(vec), c.settings.Dim), nil)
	}
	if vec.IsZero() {
		return nil, newError(KindInvalidEmbedding, msgInvalidEncoding, nil)
	}
	return vec, nil
}

// quickCheck runs the fast detector. Its outcome is only logged; the full
// detection decides.
func (c *capturer) quickCheck(ctx context.Context, log *logrus.Entry, data []byte) {
	done := logging.Phase(log, "quick check")
	defer done()

	faces, err := c.provider.DetectFaces(ctx, data, provider.DetectOptions{
		Detector: c.settings.QuickDetector,
	})
	if err != nil {
		log.WithError(err).Info("quick face check failed, proceeding with full processing")
		return
	}
	if len(faces) != 1 {
		log.WithField("faces", len(faces)).Info("quick face check did not find exactly one face, proceeding with full processing")
		return
	}
	log.Debug("quick face check passed")
}

// detectionError maps a failed full detection. Rejections by the provider are
// user facing; transport and server errors are not.
func detectionError(err error, mode captureMode) error {
	var apiErr *provider.APIError
	rejected := errors.Is(err, provider.ErrNoFace) ||
		(errors.As(err, &apiErr) && apiErr.StatusCode >= http.StatusBadRequest && apiErr.StatusCode < http.StatusInternalServerError)
	if !rejected {
		return newError(KindProviderError, "Face detection failed", err)
	}
	if mode == captureMatch {
		return newError(KindPoorQuality, msgPoorQuality, err)
	}
	return newError(KindNoFace, msgNoFaceRegister, err)
}
