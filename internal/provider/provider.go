package provider

import (
	"context"
	"errors"

	"github.com/kozaktomas/facegate/internal/embedding"
)

// ErrNoFace is returned when the provider could not find any face in the image
// while detection was enforced.
var ErrNoFace = errors.New("face could not be detected")

// Provider is the face detection and embedding backend. Implementations must be
// safe to reuse for many calls; one instance is created per process.
type Provider interface {
	// DetectFaces finds faces in an image and optionally classifies their liveness.
	DetectFaces(ctx context.Context, image []byte, opts DetectOptions) ([]DetectedFace, error)
	// Represent extracts one embedding per face found in the image.
	Represent(ctx context.Context, image []byte, opts RepresentOptions) ([]Representation, error)
}

type DetectOptions struct {
	Detector         string
	AntiSpoofing     bool
	Align            bool
	EnforceDetection bool
}

type RepresentOptions struct {
	Model            string
	Detector         string
	EnforceDetection bool
}

// FacialArea is the bounding box of a detected face in pixels.
type FacialArea struct {
	X int `json:"x"`
	Y int `json:"y"`
	W int `json:"w"`
	H int `json:"h"`
}

type DetectedFace struct {
	IsReal         bool       `json:"is_real"`
	AntiSpoofScore float64    `json:"antispoof_score"`
	Confidence     float64    `json:"confidence"`
	Area           FacialArea `json:"facial_area"`
}

type Representation struct {
	Embedding      embedding.Vector `json:"embedding"`
	FaceConfidence float64          `json:"face_confidence"`
	Area           FacialArea       `json:"facial_area"`
}
