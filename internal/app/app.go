// Package app wires the projection loader, the preprocessing panels and the
// renderers together from a configuration.
package app

import (
	"fmt"
	"log/slog"

	"tomoprep/pkg/center"
	"tomoprep/pkg/config"
	"tomoprep/pkg/projection"
	"tomoprep/pkg/rotation"
	"tomoprep/pkg/session"
	"tomoprep/pkg/tilt"
	"tomoprep/pkg/visualization"
)

// App holds one projection directory and the panels working on it
type App struct {
	Config *config.Config
	Log    *slog.Logger

	Loader *projection.DirLoader

	Center        *center.Resolver
	CenterPreview *visualization.Renderer

	Tilt        *tilt.Handler
	TiltPreview *visualization.Renderer
}

// New opens the projections in dir and builds the panels. Nothing is
// computed until Initialize or Restore.
func New(cfg *config.Config, log *slog.Logger, dir string, minimizer tilt.Minimizer) (*App, error) {
	strategy, err := center.ParseStrategy(cfg.Center.Strategy)
	if err != nil {
		return nil, err
	}
	selection, err := center.ParseSelection(cfg.Center.Selection)
	if err != nil {
		return nil, err
	}

	loader, err := projection.OpenDir(dir, cfg.Projections.Extensions)
	if err != nil {
		return nil, err
	}

	a := &App{
		Config:        cfg,
		Log:           log,
		Loader:        loader,
		CenterPreview: visualization.NewRenderer(),
		TiltPreview:   visualization.NewRenderer(),
	}

	a.Center = center.NewResolver(loader,
		rotation.NewPhaseCorrelation(cfg.Center.Tolerance),
		center.WithPresenter(a.CenterPreview),
		center.WithLogger(log.With("panel", "center of rotation")),
		center.WithSelection(selection),
		center.WithStrategy(strategy),
		center.WithMarkerWidth(cfg.Preview.MarkerWidth))

	a.Tilt = tilt.NewHandler(loader, a.TiltPreview, minimizer, log.With("panel", "tilt correction"))

	log.Info("opened projections", "dir", dir, "files", loader.Len())
	return a, nil
}

// Initialize sets both panels up with their defaults
func (a *App) Initialize() error {
	if err := a.Center.Initialize(a.Loader.Files()); err != nil {
		return fmt.Errorf("failed to initialize center of rotation: %w", err)
	}
	if err := a.Tilt.Initialize(); err != nil {
		return fmt.Errorf("failed to initialize tilt correction: %w", err)
	}
	return nil
}

// Restore sets both panels up from a saved session
func (a *App) Restore(doc session.Document) error {
	if err := a.Center.Bind(a.Loader.Files()); err != nil {
		return fmt.Errorf("failed to initialize center of rotation: %w", err)
	}
	if err := a.Center.Restore(doc.CenterRotation); err != nil {
		return fmt.Errorf("failed to restore center of rotation: %w", err)
	}
	if err := a.Tilt.Initialize(); err != nil {
		return fmt.Errorf("failed to initialize tilt correction: %w", err)
	}
	if err := a.Tilt.Restore(doc.TiltCorrection); err != nil {
		return fmt.Errorf("failed to restore tilt correction: %w", err)
	}
	return nil
}

// Document captures the state of both panels
func (a *App) Document() session.Document {
	return session.Document{
		Projections:    a.Loader.Dir(),
		CenterRotation: a.Center.Session(),
		TiltCorrection: a.Tilt.Session(),
	}
}
