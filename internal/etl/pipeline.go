package etl

import (
	"context"
	"fmt"
	"io"
	"os"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/justestif/sparkify-etl/internal/discover"
)

const tracerName = "github.com/justestif/sparkify-etl/internal/etl"

// FileError records a file that failed under the Skip policy.
type FileError struct {
	Path string
	Err  error
}

// PassResult summarizes one pass over a data root.
type PassResult struct {
	Root   string
	Files  int // files discovered
	Loaded int // files committed
	Failed []FileError
	Stats  FileStats
}

// RunResult summarizes a song pass followed by a log pass.
type RunResult struct {
	RunID     uuid.UUID
	StartedAt time.Time
	Duration  time.Duration
	Songs     *PassResult
	Logs      *PassResult
}

// FinderFunc lists the data files under root.
type FinderFunc func(root string) (discover.Files, error)

// Pipeline discovers files and loads them one at a time, committing after each file.
type Pipeline struct {
	tx       Transactor
	find     FinderFunc
	policy   ErrorPolicy
	log      logrus.FieldLogger
	progress io.Writer
	tracer   trace.Tracer
}

// Option configures a Pipeline.
type Option func(*Pipeline)

// WithPolicy sets the error policy. The default is FailFast.
func WithPolicy(policy ErrorPolicy) Option {
	return func(p *Pipeline) {
		p.policy = policy
	}
}

// WithLogger sets the logger used for diagnostics.
func WithLogger(log logrus.FieldLogger) Option {
	return func(p *Pipeline) {
		if log != nil {
			p.log = log
		}
	}
}

// WithProgress sets where "<done>/<total> files processed." lines are written.
func WithProgress(w io.Writer) Option {
	return func(p *Pipeline) {
		if w != nil {
			p.progress = w
		}
	}
}

// WithFinder replaces file discovery.
func WithFinder(find FinderFunc) Option {
	return func(p *Pipeline) {
		if find != nil {
			p.find = find
		}
	}
}

// WithTracer sets the tracer used for pass and file spans.
func WithTracer(tracer trace.Tracer) Option {
	return func(p *Pipeline) {
		if tracer != nil {
			p.tracer = tracer
		}
	}
}

// New creates a Pipeline that writes through tx.
func New(tx Transactor, opts ...Option) *Pipeline {
	p := &Pipeline{
		tx: tx,
		find: func(root string) (discover.Files, error) {
			return discover.Find(root, discover.JSONExt)
		},
		policy:   FailFast,
		log:      logrus.StandardLogger(),
		progress: os.Stdout,
		tracer:   otel.Tracer(tracerName),
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// Loaders returns the song and log loaders configured with the pipeline's
// policy and logger.
func (p *Pipeline) Loaders() *Loaders {
	return &Loaders{Policy: p.policy, Log: p.log}
}

// Run loads every song-metadata file under songRoot, then every event-log
// file under logRoot. The log pass starts only after the song pass succeeds,
// because songplays are resolved against the loaded catalog.
func (p *Pipeline) Run(ctx context.Context, songRoot, logRoot string) (*RunResult, error) {
	result := &RunResult{
		RunID:     uuid.New(),
		StartedAt: time.Now(),
	}
	log := p.log.WithField("run_id", result.RunID.String())
	ctx, span := p.tracer.Start(ctx, "etl.run", trace.WithAttributes(
		attribute.String("etl.run_id", result.RunID.String()),
	))
	defer span.End()

	loaders := &Loaders{Policy: p.policy, Log: log}

	log.WithField("root", songRoot).Info("loading song metadata")
	songs, err := p.process(ctx, log.WithField("pass", "songs"), songRoot, loaders.SongFile)
	result.Songs = songs
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "song pass failed")
		return result, fmt.Errorf("song pass: %w", err)
	}

	log.WithField("root", logRoot).Info("loading event logs")
	logs, err := p.process(ctx, log.WithField("pass", "logs"), logRoot, loaders.LogFile)
	result.Logs = logs
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "log pass failed")
		return result, fmt.Errorf("log pass: %w", err)
	}

	result.Duration = time.Since(result.StartedAt)
	log.WithFields(logrus.Fields{
		"songs":     songs.Stats.Songs,
		"songplays": logs.Stats.Songplays,
		"resolved":  logs.Stats.Resolved,
		"duration":  result.Duration.String(),
	}).Info("load complete")
	return result, nil
}

// Process discovers the files under root and runs load once per file in
// discovery order, each inside its own transaction. A file that fails is
// rolled back; files committed before it stay committed.
func (p *Pipeline) Process(ctx context.Context, root string, load LoaderFunc) (*PassResult, error) {
	return p.process(ctx, p.log, root, load)
}

func (p *Pipeline) process(ctx context.Context, log logrus.FieldLogger, root string, load LoaderFunc) (*PassResult, error) {
	ctx, span := p.tracer.Start(ctx, "etl.pass", trace.WithAttributes(
		attribute.String("etl.root", root),
	))
	defer span.End()

	files, err := p.find(root)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "discovery failed")
		return nil, fmt.Errorf("discovering files: %w", err)
	}

	result := &PassResult{Root: root, Files: len(files)}
	fmt.Fprintf(p.progress, "%d files found in %s\n", len(files), root)
	span.SetAttributes(attribute.Int("etl.files", len(files)))

	for i, path := range files.All() {
		if err := ctx.Err(); err != nil {
			return result, err
		}

		stats, err := p.processFile(ctx, path, load)
		if err != nil {
			if p.policy != Skip {
				span.RecordError(err)
				span.SetStatus(codes.Error, "file failed")
				log.WithField("file", path).WithError(err).Error("load failed")
				return result, fmt.Errorf("loading %s: %w", path, err)
			}
			log.WithField("file", path).WithError(err).Warn("skipping file")
			result.Failed = append(result.Failed, FileError{Path: path, Err: err})
		} else {
			result.Loaded++
			result.Stats.Add(stats)
		}

		fmt.Fprintf(p.progress, "%d/%d files processed.\n", i, len(files))
	}

	return result, nil
}

// processFile runs load for one file as a single committed unit of work.
func (p *Pipeline) processFile(ctx context.Context, path string, load LoaderFunc) (FileStats, error) {
	ctx, span := p.tracer.Start(ctx, "etl.file", trace.WithAttributes(
		attribute.String("etl.file", path),
	))
	defer span.End()

	var stats FileStats
	err := p.tx.InTx(ctx, func(store Store) error {
		var err error
		stats, err = load(ctx, store, path)
		return err
	})
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "load failed")
		return FileStats{}, err
	}

	span.SetAttributes(
		attribute.Int("etl.songplays", stats.Songplays),
		attribute.Int("etl.skipped", stats.Skipped),
	)
	return stats, nil
}
