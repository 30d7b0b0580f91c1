package s3

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path"
	"strings"
	"time"
)

// ManifestName is the object written next to the node list.
const ManifestName = "manifest.json"

// Manifest describes a published run.
type Manifest struct {
	Label       string    `json:"label"`
	Site        string    `json:"site"`
	JobID       int64     `json:"jobId"`
	Coordinator string    `json:"coordinator"`
	Subnet      string    `json:"subnet"`
	Requested   int       `json:"requested"`
	Running     int       `json:"running"`
	PublishedAt time.Time `json:"publishedAt"`
}

// ObjectStore is the subset of Client a Publisher needs.
type ObjectStore interface {
	EnsureBucket(ctx context.Context, bucket string) error
	PutObject(ctx context.Context, bucket, key, contentType string, data []byte) error
}

// Publisher uploads node lists to one bucket.
type Publisher struct {
	store       ObjectStore
	bucket      string
	keyTemplate string
}

// NewPublisher returns a publisher writing to bucket. keyTemplate may contain
// the {{label}} placeholder, replaced by the run label.
func NewPublisher(store ObjectStore, bucket, keyTemplate string) *Publisher {
	return &Publisher{store: store, bucket: bucket, keyTemplate: keyTemplate}
}

// RenderKey expands the {{label}} placeholder in tmpl.
func RenderKey(tmpl, label string) string {
	return strings.ReplaceAll(tmpl, "{{label}}", label)
}

// Publish uploads the artifact at artifactPath and its manifest.
// It returns the URI of the uploaded node list.
func (p *Publisher) Publish(ctx context.Context, artifactPath string, m Manifest) (string, error) {
	// #nosec G304
	data, err := os.ReadFile(artifactPath)
	if err != nil {
		return "", fmt.Errorf("failed to read artifact: %w", err)
	}

	if err := p.store.EnsureBucket(ctx, p.bucket); err != nil {
		return "", err
	}

	key := RenderKey(p.keyTemplate, m.Label)
	if err := p.store.PutObject(ctx, p.bucket, key, "text/plain", data); err != nil {
		return "", err
	}

	if m.PublishedAt.IsZero() {
		m.PublishedAt = time.Now().UTC()
	}
	manifest, err := json.MarshalIndent(m, "", "  ")
	if err != nil {
		return "", fmt.Errorf("failed to marshal manifest: %w", err)
	}
	manifestKey := path.Join(path.Dir(key), ManifestName)
	if err := p.store.PutObject(ctx, p.bucket, manifestKey, "application/json", manifest); err != nil {
		return "", err
	}

	return fmt.Sprintf("s3://%s/%s", p.bucket, key), nil
}
