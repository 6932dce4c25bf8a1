package demo

import (
	"fmt"
	"os"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/christian-helms/nine-linked-rings/pkg/timeutil"
)

// DefaultDir is where recordings go when Options.Dir is empty.
const DefaultDir = "demonstrations"

// Options configures a Recorder.
type Options struct {
	Dir    string
	Format Format
	// Clock stamps steps and names files. Defaults to the wall clock.
	Clock  timeutil.Clock
	Logger *zap.Logger
}

// Recorder captures one demonstration at a time.
//
// A Recorder is owned by a single goroutine. Buffers grow with every step
// until StopRecording, so very long recordings hold everything in memory.
type Recorder struct {
	dir    string
	format Format
	clock  timeutil.Clock
	logger *zap.Logger

	session *session
}

// NewRecorder creates the output directory and returns an idle Recorder.
func NewRecorder(opts Options) (*Recorder, error) {
	if opts.Dir == "" {
		opts.Dir = DefaultDir
	}
	if opts.Format == "" {
		opts.Format = FormatNative
	}
	format, err := ParseFormat(string(opts.Format))
	if err != nil {
		return nil, err
	}
	if opts.Clock == nil {
		opts.Clock = timeutil.RealClock{}
	}
	if opts.Logger == nil {
		opts.Logger = zap.NewNop()
	}
	if err := os.MkdirAll(opts.Dir, 0o755); err != nil {
		return nil, fmt.Errorf("create recording dir: %w", err)
	}
	return &Recorder{
		dir:    opts.Dir,
		format: format,
		clock:  opts.Clock,
		logger: opts.Logger,
	}, nil
}

// Dir returns the output directory.
func (r *Recorder) Dir() string {
	return r.dir
}

// Format returns the output format.
func (r *Recorder) Format() Format {
	return r.format
}

// IsRecording reports whether a recording is in progress.
func (r *Recorder) IsRecording() bool {
	return r.session != nil
}

// StartRecording begins a new recording. A recording already in progress is
// discarded without being saved.
func (r *Recorder) StartRecording() {
	if r.session != nil {
		r.logger.Warn("recording restarted, discarding unsaved steps",
			zap.String("session_id", r.session.id),
			zap.Int("steps", r.session.steps()))
	}
	r.session = newSession(uuid.NewString(), r.clock.Now())
	r.logger.Info("recording started",
		zap.String("session_id", r.session.id),
		zap.Time("start_time", r.session.start))
}

// AddStep appends one step. The inputs are copied. Without an active
// recording it does nothing.
func (r *Recorder) AddStep(obs, action []float64, robotState, handPose map[string][]float64) {
	s := r.session
	if s == nil {
		return
	}
	ts := r.clock.Now().Sub(s.start).Seconds()
	s.add(obs, action, robotState, handPose, ts)
}

// StopRecording ends the recording and writes it to disk, returning the file
// path. Without an active recording it returns "" and a nil error.
//
// The recorder is idle afterwards even when saving fails.
func (r *Recorder) StopRecording() (string, error) {
	s := r.session
	if s == nil {
		r.logger.Info("no active recording to stop")
		return "", nil
	}
	r.session = nil

	rec := s.record(r.clock.Now())
	base := "demo_" + s.start.Format("20060102_150405")
	path, err := Save(rec, r.dir, base, r.format)
	if err != nil {
		r.logger.Error("failed to save demonstration",
			zap.String("session_id", s.id),
			zap.Int("steps", rec.Metadata.NumSteps),
			zap.Error(err))
		return "", err
	}

	r.logger.Info("saved demonstration",
		zap.String("path", path),
		zap.String("session_id", s.id),
		zap.Float64("duration_seconds", rec.Metadata.DurationSeconds),
		zap.Int("steps", rec.Metadata.NumSteps))
	return path, nil
}

// Stats describes the recording in progress.
func (r *Recorder) Stats() Stats {
	s := r.session
	if s == nil {
		return Stats{}
	}
	return Stats{
		Recording:       true,
		DurationSeconds: r.clock.Now().Sub(s.start).Seconds(),
		NumSteps:        s.steps(),
		StartTime:       s.start,
	}
}
