// Package recognition turns classifier output into access events.
//
// The classifier itself is external. A Reporter publishes each camera frame
// (best effort) and the access decision for it. It never reads coordinator
// output; the lock reacts to what it publishes through the bus only.
package recognition

import (
	"context"
	"encoding/base64"
	"errors"
	"fmt"
	"time"

	"github.com/nerrad567/smartlock-core/internal/infrastructure/mqtt"
	"github.com/nerrad567/smartlock-core/internal/message"
)

// DefaultThreshold is the largest distance still treated as a match.
// Lower confidence values mean a closer match.
const DefaultThreshold = 70.0

var topics = mqtt.Topics{}

// Classifier identifies the face in a frame.
type Classifier interface {
	// Identify returns the label and distance for the closest known face.
	// An empty label means no known face.
	Identify(frame []byte) (label string, confidence float64, err error)
}

// Publisher sends messages to the bus.
type Publisher interface {
	Publish(topic string, payload []byte, qos byte, retained bool) error
}

// FrameSource yields camera frames.
type FrameSource interface {
	NextFrame(ctx context.Context) ([]byte, error)
}

// Logger defines the logging interface used by the Reporter.
type Logger interface {
	Debug(msg string, args ...any)
	Warn(msg string, args ...any)
}

type noopLogger struct{}

func (noopLogger) Debug(string, ...any) {}
func (noopLogger) Warn(string, ...any)  {}

// Reporter publishes camera frames and access decisions.
type Reporter struct {
	pub        Publisher
	classifier Classifier
	threshold  float64
	relay      bool
	logger     Logger
	now        func() time.Time
}

// Option configures a Reporter.
type Option func(*Reporter)

// WithThreshold overrides DefaultThreshold.
func WithThreshold(t float64) Option {
	return func(r *Reporter) { r.threshold = t }
}

// WithoutCameraRelay disables publishing frames to smartlock/camera.
func WithoutCameraRelay() Option {
	return func(r *Reporter) { r.relay = false }
}

// WithLogger sets the logger.
func WithLogger(l Logger) Option {
	return func(r *Reporter) { r.logger = l }
}

// NewReporter creates a Reporter.
func NewReporter(pub Publisher, classifier Classifier, opts ...Option) *Reporter {
	r := &Reporter{
		pub:        pub,
		classifier: classifier,
		threshold:  DefaultThreshold,
		relay:      true,
		logger:     noopLogger{},
		now:        time.Now,
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Decide converts a classification into an access event.
func (r *Reporter) Decide(label string, confidence float64, at time.Time) message.Access {
	known := label != "" && label != message.UnknownUser
	return message.NewAccess(label, known && confidence < r.threshold, at)
}

// Report handles one frame: relays it, classifies it and publishes the
// access event. A classifier error is reported as an unknown face.
func (r *Reporter) Report(frame []byte) (message.Access, error) {
	if r.relay {
		r.relayFrame(frame)
	}

	label, confidence, err := r.classifier.Identify(frame)
	if err != nil {
		r.logger.Debug("classification failed", "error", err)
		label = ""
	}

	access := r.Decide(label, confidence, r.now())
	payload, err := message.Encode(access)
	if err != nil {
		return access, fmt.Errorf("encoding access event: %w", err)
	}
	if err := r.pub.Publish(topics.Access(), payload, mqtt.QoSAtLeastOnce, false); err != nil {
		return access, fmt.Errorf("publishing access event: %w", err)
	}
	return access, nil
}

// Run reports frames from src until ctx is done or src fails.
func (r *Reporter) Run(ctx context.Context, src FrameSource) error {
	for {
		frame, err := src.NextFrame(ctx)
		if err != nil {
			if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
				return nil
			}
			return fmt.Errorf("reading frame: %w", err)
		}
		if _, err := r.Report(frame); err != nil {
			r.logger.Warn("reporting frame", "error", err)
		}
	}
}

func (r *Reporter) relayFrame(frame []byte) {
	encoded := base64.StdEncoding.EncodeToString(frame)
	if err := r.pub.Publish(topics.Camera(), []byte(encoded), mqtt.QoSAtMostOnce, false); err != nil {
		r.logger.Debug("camera frame dropped", "error", err)
	}
}

// StaticClassifier always returns the same result. It is used by the
// admin CLI to inject a recognition without a camera.
type StaticClassifier struct {
	Label      string
	Confidence float64
}

// Identify implements Classifier.
func (s StaticClassifier) Identify([]byte) (string, float64, error) {
	return s.Label, s.Confidence, nil
}
