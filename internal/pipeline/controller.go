package pipeline

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/gofrs/flock"
	"github.com/google/uuid"

	"parallax/internal/config"
	"parallax/internal/depthbackend"
	"parallax/internal/ledger"
	"parallax/internal/logging"
	"parallax/internal/media/ffmpeg"
	"parallax/internal/metadata"
	"parallax/internal/scenesplit"
	"parallax/internal/stitch"
	"parallax/internal/verify"
)

// statusChecker is satisfied by remote backends that expose a health probe.
type statusChecker interface {
	Status(ctx context.Context) error
}

// Options carry per-invocation toggles and injectable collaborators. Nil
// collaborators are built from the config.
type Options struct {
	SkipDepth  bool
	SkipExport bool

	Logger   *slog.Logger
	Ledger   *ledger.Store
	FFmpeg   *ffmpeg.Client
	Prober   verify.Prober
	Counter  stitch.Counter
	Splitter *scenesplit.Splitter
	Backend  depthbackend.Client
}

// Controller drives one run through the stage sequence.
type Controller struct {
	cfg      *config.Config
	opts     Options
	logger   *slog.Logger
	ffmpeg   *ffmpeg.Client
	prober   verify.Prober
	counter  stitch.Counter
	splitter *scenesplit.Splitter
	backend  depthbackend.Client
	ledger   *ledger.Store
}

// New wires a controller from config, filling in any collaborator the
// options left nil.
func New(cfg *config.Config, opts Options) (*Controller, error) {
	if cfg == nil {
		return nil, Wrap(ErrConfiguration, "controller", "new", "config required", nil)
	}

	logger := opts.Logger
	if logger == nil {
		logger = logging.NewNop()
	}

	c := &Controller{
		cfg:      cfg,
		opts:     opts,
		logger:   logging.NewComponentLogger(logger, "pipeline"),
		ffmpeg:   opts.FFmpeg,
		prober:   opts.Prober,
		counter:  opts.Counter,
		splitter: opts.Splitter,
		backend:  opts.Backend,
		ledger:   opts.Ledger,
	}

	if c.ffmpeg == nil {
		client, err := ffmpeg.New(cfg.Tools.FFmpeg)
		if err != nil {
			return nil, Wrap(ErrConfiguration, "controller", "new", "ffmpeg client", err)
		}
		c.ffmpeg = client
	}
	if c.prober == nil {
		c.prober = verify.FFprobeProber{Binary: cfg.Tools.FFprobe}
	}
	if c.counter == nil {
		c.counter = stitch.FFprobeCounter{Binary: cfg.Tools.FFprobe}
	}
	if c.splitter == nil {
		splitter, err := scenesplit.New(cfg.Tools.SceneSplit)
		if err != nil {
			return nil, Wrap(ErrConfiguration, "controller", "new", "scene splitter", err)
		}
		c.splitter = splitter
	}
	if c.backend == nil && !opts.SkipDepth {
		backend, err := buildBackend(cfg)
		if err != nil {
			return nil, err
		}
		c.backend = backend
	}
	return c, nil
}

func buildBackend(cfg *config.Config) (depthbackend.Client, error) {
	if cfg.RemoteBackend() {
		client, err := depthbackend.NewHTTPClient(cfg.DepthBackend.URL, cfg.DepthBackend.TimeoutSeconds)
		if err != nil {
			return nil, Wrap(ErrConfiguration, "controller", "new", "remote depth backend", err)
		}
		return client, nil
	}
	client, err := depthbackend.NewCommandClient(cfg.DepthBackend.Command, cfg.DepthBackend.TimeoutSeconds)
	if err != nil {
		return nil, Wrap(ErrConfiguration, "controller", "new", "depth backend", err)
	}
	return client, nil
}

// Result summarizes a completed or resumed run.
type Result struct {
	RunID    string
	RunDir   string
	State    State
	Document *metadata.Document
}

// runState carries one run's mutable context through the stages.
type runState struct {
	dir   string
	store *metadata.Store
	doc   *metadata.Document
}

// Run executes the stage sequence against target, which is either a source
// video (fresh run) or an existing run directory (resume). Stages whose
// artifacts already exist are skipped; everything else runs in order.
func (c *Controller) Run(ctx context.Context, target string) (*Result, error) {
	rs, err := c.resolveRun(target)
	if err != nil {
		return nil, err
	}

	ctx = logging.WithRunID(ctx, rs.doc.RunID)
	logger := logging.WithContext(ctx, c.logger)
	logger.Info("run starting",
		logging.String("run_dir", rs.dir),
		logging.String("source", rs.doc.SourceMP4),
		logging.String("state", string(DetermineState(rs.dir, rs.doc))))

	lock := flock.New(filepath.Join(rs.dir, LockFile))
	locked, err := lock.TryLock()
	if err != nil {
		return nil, Wrap(ErrValidation, "controller", "lock", rs.dir, err)
	}
	if !locked {
		return nil, Wrap(ErrValidation, "controller", "lock",
			fmt.Sprintf("run directory %s is already being processed", rs.dir), nil)
	}
	defer func() {
		_ = lock.Unlock()
	}()

	if err := c.preflight(ctx); err != nil {
		return nil, err
	}
	c.registerRun(ctx, rs, logger)

	runErr := c.execute(ctx, rs, logger)
	c.recordOutcome(ctx, rs, runErr, logger)
	if runErr != nil {
		return nil, runErr
	}

	result := &Result{
		RunID:    rs.doc.RunID,
		RunDir:   rs.dir,
		State:    DetermineState(rs.dir, rs.doc),
		Document: rs.doc,
	}
	logger.Info("run finished", logging.String("state", string(result.State)))
	return result, nil
}

type stageFunc func(ctx context.Context, rs *runState, logger *slog.Logger) (bool, error)

func (c *Controller) execute(ctx context.Context, rs *runState, logger *slog.Logger) error {
	stages := []struct {
		name string
		fn   stageFunc
	}{
		{"plan", c.stagePlan},
		{"scenes", c.stageScenes},
		{"rgb", c.stageRGB},
		{"depth", c.stageDepth},
		{"finalize", c.stageFinalize},
		{"export", c.stageExport},
	}

	for _, stage := range stages {
		stageCtx := logging.WithStage(ctx, stage.name)
		stageLogger := logging.WithContext(stageCtx, logger)

		skipped, err := stage.fn(stageCtx, rs, stageLogger)
		switch {
		case err != nil:
			stageLogger.Error("stage failed", logging.Error(err))
			c.journal(ctx, rs.doc.RunID, stage.name, "failed", err.Error())
			return err
		case skipped:
			stageLogger.Debug("stage skipped, artifact present")
			c.journal(ctx, rs.doc.RunID, stage.name, "skipped", "")
		default:
			stageLogger.Info("stage completed")
			c.journal(ctx, rs.doc.RunID, stage.name, "completed", "")
		}
	}
	return nil
}

// resolveRun distinguishes a fresh run (target is a video file) from a
// resume (target is a run directory carrying a metadata document).
func (c *Controller) resolveRun(target string) (*runState, error) {
	target = strings.TrimSpace(target)
	if target == "" {
		return nil, Wrap(ErrValidation, "controller", "resolve", "target required", nil)
	}
	info, err := os.Stat(target)
	if err != nil {
		return nil, Wrap(ErrNotFound, "controller", "resolve", target, err)
	}
	if info.IsDir() {
		return c.resumeRun(target)
	}
	return c.freshRun(target)
}

func (c *Controller) freshRun(source string) (*runState, error) {
	abs, err := filepath.Abs(source)
	if err != nil {
		return nil, Wrap(ErrValidation, "controller", "resolve", source, err)
	}
	if err := c.cfg.EnsureDirectories(); err != nil {
		return nil, Wrap(ErrConfiguration, "controller", "resolve", "ensure directories", err)
	}

	base := strings.TrimSuffix(filepath.Base(abs), filepath.Ext(abs))
	dir := filepath.Join(c.cfg.Paths.OutputRoot,
		fmt.Sprintf("%s-%s", base, strconv.FormatInt(time.Now().Unix(), 10)))
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, Wrap(ErrConfiguration, "controller", "resolve", "create run dir", err)
	}

	doc := &metadata.Document{
		RunID:             uuid.NewString(),
		SourceMP4:         abs,
		CreatedAt:         time.Now().UTC(),
		ResolutionCeiling: c.cfg.Pipeline.ResolutionCeiling,
		FPSCeiling:        c.cfg.Pipeline.FPSCeiling,
		DurationCeiling:   c.cfg.Pipeline.DurationCeiling,
		MaxSceneSeconds:   c.cfg.Pipeline.MaxSceneSeconds,
		BackendURL:        c.cfg.DepthBackend.URL,
	}
	store := metadata.NewStore(dir)
	if err := store.Save(doc); err != nil {
		return nil, Wrap(ErrConfiguration, "controller", "resolve", "write initial metadata", err)
	}
	return &runState{dir: dir, store: store, doc: doc}, nil
}

func (c *Controller) resumeRun(dir string) (*runState, error) {
	abs, err := filepath.Abs(dir)
	if err != nil {
		return nil, Wrap(ErrValidation, "controller", "resolve", dir, err)
	}
	store := metadata.NewStore(abs)
	doc, err := store.Load()
	if err != nil {
		return nil, Wrap(ErrNotFound, "controller", "resume",
			"directory has no run metadata, expected a source video or run directory", err)
	}
	if doc.SourceMP4 == "" {
		return nil, Wrap(ErrValidation, "controller", "resume", "metadata names no source", nil)
	}
	// Documents written before run IDs were recorded get one on resume.
	if doc.RunID == "" {
		doc.RunID = uuid.NewString()
		if err := store.Save(doc); err != nil {
			return nil, Wrap(ErrConfiguration, "controller", "resume", "assign run id", err)
		}
	}
	return &runState{dir: abs, store: store, doc: doc}, nil
}

func (c *Controller) registerRun(ctx context.Context, rs *runState, logger *slog.Logger) {
	if c.ledger == nil {
		return
	}
	state := string(DetermineState(rs.dir, rs.doc))
	if err := c.ledger.RegisterRun(ctx, rs.doc.RunID, rs.doc.SourceMP4, rs.dir, state); err != nil {
		logger.Warn("ledger registration failed", logging.Error(err))
	}
}

func (c *Controller) recordOutcome(ctx context.Context, rs *runState, runErr error, logger *slog.Logger) {
	if c.ledger == nil {
		return
	}
	state := string(DetermineState(rs.dir, rs.doc))
	detail := ""
	if runErr != nil {
		detail = runErr.Error()
	}
	if err := c.ledger.SetState(ctx, rs.doc.RunID, state, detail); err != nil {
		logger.Warn("ledger state update failed", logging.Error(err))
	}
}

func (c *Controller) journal(ctx context.Context, runID, stage, outcome, detail string) {
	if c.ledger == nil {
		return
	}
	if err := c.ledger.AppendStage(ctx, runID, stage, outcome, detail); err != nil {
		c.logger.Warn("ledger journal failed",
			logging.String(logging.FieldStage, stage),
			logging.Error(err))
	}
}
