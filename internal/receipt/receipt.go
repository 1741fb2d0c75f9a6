// Package receipt records the outcome of a bootstrap run as a small YAML
// document under the bootstrap home. The receipt is the machine-readable
// counterpart to the single completion line on stdout: it names which steps
// ran, which one failed, and the digests of every staged file.
package receipt

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/google/uuid"
	"gopkg.in/yaml.v3"
)

// Dir is the directory under the bootstrap home that holds run receipts.
const Dir = ".detstrap"

// FileName is the receipt file written after every run.
const FileName = "receipt.yaml"

// Step statuses recorded in the receipt.
const (
	StatusOK      = "ok"
	StatusFailed  = "failed"
	StatusSkipped = "skipped"
)

// Artifact records one file placed (or deliberately left alone) in the home.
type Artifact struct {
	Path    string `yaml:"path"`
	SHA256  string `yaml:"sha256,omitempty"`
	Skipped bool   `yaml:"skipped,omitempty"`
}

// StepRecord is one step's outcome.
type StepRecord struct {
	Name      string     `yaml:"name"`
	Kind      string     `yaml:"kind"`
	Status    string     `yaml:"status"`
	Duration  string     `yaml:"duration"`
	Error     string     `yaml:"error,omitempty"`
	Artifacts []Artifact `yaml:"artifacts,omitempty"`
}

// Receipt is the full record of a single bootstrap run.
type Receipt struct {
	RunID      string       `yaml:"run_id"`
	Plan       string       `yaml:"plan"`
	StartedAt  time.Time    `yaml:"started_at"`
	FinishedAt time.Time    `yaml:"finished_at"`
	Status     string       `yaml:"status"`
	Steps      []StepRecord `yaml:"steps"`
}

// New creates a receipt for a run starting now, with a fresh run ID.
func New(planPath string) *Receipt {
	return &Receipt{
		RunID:     uuid.NewString(),
		Plan:      planPath,
		StartedAt: time.Now().UTC(),
	}
}

// Record appends one step outcome.
func (r *Receipt) Record(rec StepRecord) {
	r.Steps = append(r.Steps, rec)
}

// Finish stamps the end time and overall status.
func (r *Receipt) Finish(status string) {
	r.FinishedAt = time.Now().UTC()
	r.Status = status
}

// Write serializes the receipt to <home>/.detstrap/receipt.yaml, creating
// the directory if needed.
func (r *Receipt) Write(home string) error {
	dir := filepath.Join(home, Dir)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("failed to create receipt directory %s: %w", dir, err)
	}

	data, err := yaml.Marshal(r)
	if err != nil {
		return fmt.Errorf("failed to serialize receipt: %w", err)
	}

	path := filepath.Join(dir, FileName)
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("failed to write receipt %s: %w", path, err)
	}
	return nil
}
