// Package actions contains the actions run by gensvc.
package actions

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"

	"gopkg.in/yaml.v3"
)

// Job is an import job loaded from a YAML file.
type Job struct {
	Name        string    `yaml:"name"`
	WriteAnyway *bool     `yaml:"write_even_if_warning"`
	Items       []JobItem `yaml:"items"`

	defaultWrite bool
}

// JobItem is one item row of a job. a missing quantity is an error, not zero.
type JobItem struct {
	SKU      string `yaml:"sku"`
	Name     string `yaml:"name"`
	Quantity *int   `yaml:"quantity"`
}

// LoadJob reads and parses a job file.
func LoadJob(path string) (Job, error) {
	data, err := os.ReadFile(path) //nolint:gosec // path comes from the command line
	if err != nil {
		return Job{}, fmt.Errorf("read job: %w", err)
	}
	return ParseJob(data)
}

// ParseJob parses YAML job content. unknown fields are rejected.
func ParseJob(data []byte) (Job, error) {
	var job Job
	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)
	if err := dec.Decode(&job); err != nil && !errors.Is(err, io.EOF) {
		return Job{}, fmt.Errorf("parse job: %w", err)
	}
	return job, nil
}

// WithDefaultWrite sets the warning policy used when the job file does not set one.
func (j Job) WithDefaultWrite(writeAnyway bool) Job {
	j.defaultWrite = writeAnyway
	return j
}

// WriteEvenIfWarning tells the service whether warnings block saving the imported items.
func (j Job) WriteEvenIfWarning() bool {
	if j.WriteAnyway != nil {
		return *j.WriteAnyway
	}
	return j.defaultWrite
}
