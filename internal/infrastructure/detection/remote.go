package detection

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/go-resty/resty/v2"
	"github.com/qcdash/backend/internal/domain/detection"
	"github.com/qcdash/backend/internal/infrastructure/config"
	"go.uber.org/zap"
)

// predictResponse is the inference server's answer to POST /predict
type predictResponse struct {
	// Scores are class probabilities in manifest order
	Scores []float64 `json:"scores"`
	Model  string    `json:"model"`
}

// healthResponse is the inference server's answer to GET /health
type healthResponse struct {
	Status string `json:"status"`
	Model  string `json:"model"`
}

// RemoteClassifier calls an HTTP inference server and interprets its scores
// with the model manifest.
type RemoteClassifier struct {
	client   *resty.Client
	manifest detection.Manifest
	cutoff   float64
	logger   *zap.Logger
}

// NewRemoteClassifier creates a classifier for the server at cfg.ModelURL
func NewRemoteClassifier(cfg config.DetectionConfig, manifest detection.Manifest, logger *zap.Logger) (*RemoteClassifier, error) {
	if cfg.ModelURL == "" {
		return nil, errors.New("detection model URL is required")
	}
	if err := manifest.Validate(); err != nil {
		return nil, err
	}
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 15 * time.Second
	}

	client := resty.New().
		SetBaseURL(strings.TrimRight(cfg.ModelURL, "/")).
		SetTimeout(timeout).
		SetRetryCount(2).
		SetRetryWaitTime(200 * time.Millisecond).
		SetRetryMaxWaitTime(time.Second).
		AddRetryCondition(func(r *resty.Response, err error) bool {
			return err != nil || r.StatusCode() >= http.StatusInternalServerError
		}).
		SetHeader("Accept", "application/json")
	if cfg.APIKey != "" {
		client.SetAuthToken(cfg.APIKey)
	}

	return &RemoteClassifier{
		client:   client,
		manifest: manifest,
		cutoff:   cfg.Cutoff,
		logger:   logger,
	}, nil
}

// Name returns the manifest's model name and version
func (c *RemoteClassifier) Name() string {
	if c.manifest.Version == "" {
		return c.manifest.Name
	}
	return c.manifest.Name + "@" + c.manifest.Version
}

// Detect uploads the image and interprets the returned scores. Transport
// failures and 5xx answers surface as MODEL_UNAVAILABLE.
func (c *RemoteClassifier) Detect(ctx context.Context, image []byte, contentType string) (detection.Result, error) {
	var out predictResponse
	resp, err := c.client.R().
		SetContext(ctx).
		SetMultipartField("image", "image", contentType, bytes.NewReader(image)).
		SetResult(&out).
		Post("/predict")
	if err != nil {
		c.logger.Warn("Classifier request failed", zap.Error(err))
		return detection.Result{}, detection.ErrModelUnavailable
	}
	if resp.StatusCode() >= http.StatusInternalServerError {
		c.logger.Warn("Classifier returned server error", zap.Int("status", resp.StatusCode()))
		return detection.Result{}, detection.ErrModelUnavailable
	}
	if resp.IsError() {
		return detection.Result{}, fmt.Errorf("classifier rejected image: status %d: %s",
			resp.StatusCode(), strings.TrimSpace(resp.String()))
	}

	result, err := c.manifest.Interpret(out.Scores, c.cutoff)
	if err != nil {
		c.logger.Error("Classifier output does not match manifest",
			zap.Int("scores", len(out.Scores)),
			zap.Int("classes", len(c.manifest.Classes)),
		)
		return detection.Result{}, err
	}
	c.logger.Debug("Image classified",
		zap.String("class", result.Class),
		zap.Float64("confidence", result.Confidence),
		zap.Bool("has_defect", result.HasDefect),
	)
	return result, nil
}

// Status calls GET /health
func (c *RemoteClassifier) Status(ctx context.Context) detection.ModelStatus {
	var out healthResponse
	resp, err := c.client.R().
		SetContext(ctx).
		SetResult(&out).
		Get("/health")
	if err != nil || resp.IsError() {
		msg := "AI model endpoint is not reachable"
		if err == nil {
			msg = fmt.Sprintf("AI model endpoint returned status %d", resp.StatusCode())
		}
		return detection.ModelStatus{Loaded: false, Status: "unavailable", Message: msg, Model: c.Name()}
	}

	status := out.Status
	if status == "" {
		status = "ready"
	}
	model := c.Name()
	if out.Model != "" {
		model = out.Model
	}
	return detection.ModelStatus{
		Loaded:  true,
		Status:  status,
		Message: fmt.Sprintf("Classifier with %d classes is ready", len(c.manifest.Classes)),
		Model:   model,
	}
}

var _ detection.Detector = (*RemoteClassifier)(nil)

// New returns a RemoteClassifier when a model URL is configured, otherwise an
// UnavailableDetector explaining why.
func New(cfg config.DetectionConfig, logger *zap.Logger) (detection.Detector, error) {
	if cfg.ModelURL == "" {
		logger.Info("No AI model configured, detection endpoints will report unavailable")
		return detection.UnavailableDetector{Reason: "No AI model endpoint configured"}, nil
	}
	manifest, err := LoadManifest(cfg.ManifestPath)
	if err != nil {
		return nil, err
	}
	c, err := NewRemoteClassifier(cfg, manifest, logger)
	if err != nil {
		return nil, err
	}
	logger.Info("AI classifier configured",
		zap.String("model", c.Name()),
		zap.Strings("classes", manifest.Classes),
	)
	return c, nil
}
