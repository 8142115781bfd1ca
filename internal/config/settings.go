package config

import (
	"fmt"
	"maps"
	"slices"
	"time"
)

// Stage names, in the order the pipeline runs them.
const (
	StageProcess  = "process"
	StageTrain    = "train"
	StageEvaluate = "evaluate"
)

// Settings is the typed view of a resolved configuration.
// Field tags mirror the #Config schema in schema.cue.
type Settings struct {
	TestVar  string           `json:"testvar,omitempty"`
	Run      RunSettings      `json:"run"`
	Data     DataSettings     `json:"data"`
	Model    ModelSettings    `json:"model"`
	Tracking TrackingSettings `json:"tracking"`
	Stages   StageSettings    `json:"stages"`
}

// RunSettings names a run and where its artifacts go.
type RunSettings struct {
	Name      string `json:"name"`
	OutputDir string `json:"output_dir"`
	Seed      int64  `json:"seed"`
}

// DataSettings locates raw and processed data.
type DataSettings struct {
	Raw       string  `json:"raw"`
	Processed string  `json:"processed"`
	TestSize  float64 `json:"test_size"`
}

// ModelSettings identifies the model and carries its free-form parameters.
type ModelSettings struct {
	Name   string         `json:"name"`
	Dir    string         `json:"dir"`
	Params map[string]any `json:"params"`
}

// TrackingSettings configures the experiment tracking collaborator.
// UsernameEnv and PasswordEnv name the environment variables the
// collaborator reads credentials from; the values never live in config.
type TrackingSettings struct {
	Enabled     bool   `json:"enabled"`
	URI         string `json:"uri"`
	Experiment  string `json:"experiment"`
	UsernameEnv string `json:"username_env"`
	PasswordEnv string `json:"password_env"`
}

// StageSettings holds one StageSpec per pipeline stage.
type StageSettings struct {
	Process  StageSpec `json:"process"`
	Train    StageSpec `json:"train"`
	Evaluate StageSpec `json:"evaluate"`
}

// StageSpec describes how to launch an external stage.
type StageSpec struct {
	Command []string          `json:"command"`
	Dir     string            `json:"dir"`
	Timeout string            `json:"timeout"`
	Env     map[string]string `json:"env"`
}

// Get returns the StageSpec for a stage name.
func (s StageSettings) Get(name string) (StageSpec, bool) {
	switch name {
	case StageProcess:
		return s.Process, true
	case StageTrain:
		return s.Train, true
	case StageEvaluate:
		return s.Evaluate, true
	}
	return StageSpec{}, false
}

// TimeoutDuration parses Timeout. Zero means no timeout.
func (s StageSpec) TimeoutDuration() (time.Duration, error) {
	if s.Timeout == "" {
		return 0, nil
	}
	d, err := time.ParseDuration(s.Timeout)
	if err != nil {
		return 0, err
	}
	if d < 0 {
		return 0, fmt.Errorf("negative timeout %q", s.Timeout)
	}
	return d, nil
}

// Validate checks constraints the schema cannot express on its own.
func (s Settings) Validate() error {
	if s.Tracking.Enabled && s.Tracking.URI == "" {
		return &LoadError{Code: ErrCodeInvalid, Path: "tracking.uri", Message: "required when tracking.enabled is true"}
	}
	if s.Tracking.UsernameEnv == "" {
		return &LoadError{Code: ErrCodeInvalid, Path: "tracking.username_env", Message: "must not be empty"}
	}
	if s.Tracking.PasswordEnv == "" {
		return &LoadError{Code: ErrCodeInvalid, Path: "tracking.password_env", Message: "must not be empty"}
	}
	if s.Tracking.UsernameEnv == s.Tracking.PasswordEnv {
		return &LoadError{Code: ErrCodeInvalid, Path: "tracking.password_env", Message: "must differ from tracking.username_env"}
	}
	for _, name := range []string{StageProcess, StageTrain, StageEvaluate} {
		spec, _ := s.Stages.Get(name)
		if _, err := spec.TimeoutDuration(); err != nil {
			return &LoadError{Code: ErrCodeInvalid, Path: "stages." + name + ".timeout", Message: err.Error(), Err: err}
		}
	}
	return nil
}

// clone returns a copy that shares no maps or slices with s.
func (s Settings) clone() Settings {
	out := s
	out.Model.Params = cloneMap(s.Model.Params)
	out.Stages.Process = s.Stages.Process.clone()
	out.Stages.Train = s.Stages.Train.clone()
	out.Stages.Evaluate = s.Stages.Evaluate.clone()
	return out
}

func (s StageSpec) clone() StageSpec {
	out := s
	out.Command = slices.Clone(s.Command)
	out.Env = maps.Clone(s.Env)
	return out
}
