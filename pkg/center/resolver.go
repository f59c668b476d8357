// Package center resolves the center of rotation of a tomography scan from a
// pair of opposing projections, either by registering the two images or from
// a value entered by the user.
package center

import (
	"errors"
	"fmt"
	"image/color"
	"log/slog"
	"math"

	"gonum.org/v1/gonum/mat"

	"tomoprep/internal/models"
)

var (
	// ErrNotInitialized is returned by operations that need a bound projection set
	ErrNotInitialized = errors.New("resolver has no projections")

	// ErrManualOutOfRange is returned for a manual value outside [0, width]
	ErrManualOutOfRange = errors.New("manual center of rotation out of range")

	// ErrShapeMismatch is returned when the reference projections differ in size
	ErrShapeMismatch = errors.New("reference projections differ in size")
)

// DefaultMarkerWidth is the width in pixels of the overlay marker
const DefaultMarkerWidth = 10

// ImageLoader maps a file index to its pixel data
type ImageLoader interface {
	Fetch(index int) (*mat.Dense, error)
}

// Estimator computes the center of rotation from the 0 and 180 degree projections
type Estimator interface {
	FindCenter(image0, image180 mat.Matrix) (float64, error)
}

// EstimatorFunc adapts a function to the Estimator interface
type EstimatorFunc func(image0, image180 mat.Matrix) (float64, error)

// FindCenter calls f
func (f EstimatorFunc) FindCenter(image0, image180 mat.Matrix) (float64, error) {
	return f(image0, image180)
}

// Marker is the vertical line drawn over the preview at the resolved column
type Marker struct {
	Column int
	Color  color.RGBA
	Width  int
}

// Presenter displays what the resolver produces. ShowMarker replaces any
// marker shown before.
type Presenter interface {
	ShowPreview(img mat.Matrix)
	ShowStrategy(s Strategy)
	ShowMarker(m Marker)
	ClearMarker()
}

type nopPresenter struct{}

func (nopPresenter) ShowPreview(mat.Matrix) {}
func (nopPresenter) ShowStrategy(Strategy)  {}
func (nopPresenter) ShowMarker(Marker)      {}
func (nopPresenter) ClearMarker()           {}

// Option configures a Resolver
type Option func(*Resolver)

// WithPresenter sets where previews and markers are shown
func WithPresenter(p Presenter) Option {
	return func(r *Resolver) {
		if p != nil {
			r.presenter = p
		}
	}
}

// WithLogger sets the logger
func WithLogger(log *slog.Logger) Option {
	return func(r *Resolver) {
		if log != nil {
			r.log = log
		}
	}
}

// WithSelection sets how Initialize picks the 180 degree projection
func WithSelection(policy SelectionPolicy) Option {
	return func(r *Resolver) {
		if policy != nil {
			r.selection = policy
		}
	}
}

// WithStrategy sets the strategy used until SetStrategy or Restore changes it
func WithStrategy(s Strategy) Option {
	return func(r *Resolver) {
		if s.Valid() {
			r.strategy = s
		}
	}
}

// WithMarkerWidth sets the width of the overlay marker
func WithMarkerWidth(width int) Option {
	return func(r *Resolver) {
		if width > 0 {
			r.markerWidth = width
		}
	}
}

// Resolver keeps the center of rotation consistent with the reference pair,
// the strategy, the manual value and the enabled flag. Every mutation
// recomputes the center and replaces the overlay marker.
//
// A Resolver is not safe for concurrent use.
type Resolver struct {
	loader      ImageLoader
	estimator   Estimator
	presenter   Presenter
	log         *slog.Logger
	selection   SelectionPolicy
	markerWidth int

	files       []string
	upper       int
	enabled     bool
	pair        Pair
	strategy    Strategy
	manualValue int

	marker *Marker
}

// NewResolver creates a resolver reading projections from loader. The
// resolver starts enabled with the Automatic strategy.
func NewResolver(loader ImageLoader, estimator Estimator, opts ...Option) *Resolver {
	r := &Resolver{
		loader:      loader,
		estimator:   estimator,
		presenter:   nopPresenter{},
		log:         slog.New(slog.DiscardHandler),
		selection:   SelectByAngle,
		markerWidth: DefaultMarkerWidth,
		enabled:     true,
		strategy:    Automatic,
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Bind attaches the resolver to a projection set without computing anything.
// The manual upper bound becomes the width of the first projection and a
// manual value above it is clamped.
func (r *Resolver) Bind(files []string) error {
	if len(files) == 0 {
		return models.ErrNoProjections
	}

	first, err := r.loader.Fetch(0)
	if err != nil {
		return fmt.Errorf("failed to read first projection: %w", err)
	}
	_, width := first.Dims()

	r.files = append([]string(nil), files...)
	r.upper = width
	if r.manualValue > r.upper {
		r.manualValue = r.upper
	}
	if r.pair.Index0 >= len(files) || r.pair.Index180 >= len(files) {
		r.pair = Pair{}
	}
	return nil
}

// Initialize binds the projection set, selects file 0 as the 0 degree
// projection and the file chosen by the selection policy as the 180 degree
// one, then refreshes the preview and the center.
func (r *Resolver) Initialize(files []string) error {
	if err := r.Bind(files); err != nil {
		return err
	}

	r.pair = Pair{Index0: 0, Index180: r.selection(r.files)}
	r.log.Info("initialized center of rotation",
		"files", len(r.files),
		"image_0", r.files[r.pair.Index0],
		"image_180", r.files[r.pair.Index180],
		"max_manual_value", r.upper)

	return r.refresh()
}

// Restore applies a saved session verbatim and refreshes. The 180 degree
// projection is taken from the session, never re-derived.
func (r *Resolver) Restore(s Session) error {
	if r.files == nil {
		return ErrNotInitialized
	}
	if !s.Strategy.Valid() {
		return fmt.Errorf("%w: %d", ErrUnknownStrategy, uint8(s.Strategy))
	}
	if err := r.checkPair(s.Pair()); err != nil {
		return err
	}
	if err := r.checkManual(s.ManualValue); err != nil {
		return err
	}

	r.enabled = s.Enabled
	r.pair = s.Pair()
	r.strategy = s.Strategy
	r.manualValue = s.ManualValue
	r.log.Info("restored center of rotation session",
		"enabled", s.Enabled,
		"image_0", s.Index0,
		"image_180", s.Index180,
		"strategy", s.Strategy)

	return r.refresh()
}

// Session returns a snapshot of the configuration for persistence
func (r *Resolver) Session() Session {
	return Session{
		Enabled:     r.enabled,
		Index0:      r.pair.Index0,
		Index180:    r.pair.Index180,
		Strategy:    r.strategy,
		ManualValue: r.manualValue,
	}
}

// SetEnabled turns the resolver on or off. Disabling removes the marker and
// skips computation until it is enabled again.
func (r *Resolver) SetEnabled(enabled bool) error {
	r.enabled = enabled
	if !enabled {
		r.log.Info("center of rotation mode: OFF")
		r.clearMarker()
		return nil
	}

	r.log.Info("center of rotation mode: ON")
	if r.files == nil {
		return nil
	}
	return r.refresh()
}

// SetStrategy switches between the automatic and the manual value
func (r *Resolver) SetStrategy(s Strategy) error {
	if !s.Valid() {
		return fmt.Errorf("%w: %d", ErrUnknownStrategy, uint8(s))
	}
	r.strategy = s
	r.presenter.ShowStrategy(s)
	if r.files == nil {
		return nil
	}
	return r.updateMarker()
}

// SetManualValue stores the user supplied center. Values outside
// [0, width of the projections] are rejected and leave the old value in place.
func (r *Resolver) SetManualValue(v int) error {
	if r.files == nil {
		return ErrNotInitialized
	}
	if err := r.checkManual(v); err != nil {
		return err
	}
	r.manualValue = v
	if r.strategy != Manual {
		return nil
	}
	return r.updateMarker()
}

// SetPair selects new reference projections and refreshes
func (r *Resolver) SetPair(p Pair) error {
	if r.files == nil {
		return ErrNotInitialized
	}
	if err := r.checkPair(p); err != nil {
		return err
	}
	r.pair = p
	return r.refresh()
}

// Resolve returns the center of rotation for the current configuration.
// ok is false, and nothing is computed, while the resolver is disabled.
func (r *Resolver) Resolve() (value int, ok bool, err error) {
	if r.files == nil {
		return 0, false, ErrNotInitialized
	}
	if !r.enabled {
		return 0, false, nil
	}

	if r.strategy == Manual {
		r.log.Info("center of rotation defined by user", "value", r.manualValue)
		return r.manualValue, true, nil
	}

	image0, image180, err := r.fetchPair()
	if err != nil {
		return 0, false, err
	}
	center, err := r.estimator.FindCenter(image0, image180)
	if err != nil {
		return 0, false, fmt.Errorf("failed to estimate center of rotation: %w", err)
	}
	value = int(math.Round(center))
	r.log.Info("center of rotation calculated", "estimate", center, "value", value)
	return value, true, nil
}

// CompositePreview returns the equal-weight average of the two reference
// projections, transposed so that image columns run along the display's
// vertical axis.
func (r *Resolver) CompositePreview() (*mat.Dense, error) {
	if r.files == nil {
		return nil, ErrNotInitialized
	}
	image0, image180, err := r.fetchPair()
	if err != nil {
		return nil, err
	}
	return Composite(image0, image180)
}

// Composite returns transpose(0.5*a + 0.5*b)
func Composite(a, b mat.Matrix) (*mat.Dense, error) {
	ra, ca := a.Dims()
	rb, cb := b.Dims()
	if ra != rb || ca != cb {
		return nil, fmt.Errorf("%w: %dx%d vs %dx%d", ErrShapeMismatch, ra, ca, rb, cb)
	}

	var sum, half mat.Dense
	sum.Scale(0.5, a)
	half.Scale(0.5, b)
	sum.Add(&sum, &half)
	return mat.DenseCopyOf(sum.T()), nil
}

// Marker returns the marker currently shown, if any
func (r *Resolver) Marker() (Marker, bool) {
	if r.marker == nil {
		return Marker{}, false
	}
	return *r.marker, true
}

// Enabled reports whether the resolver is active
func (r *Resolver) Enabled() bool { return r.enabled }

// Strategy returns the active strategy
func (r *Resolver) Strategy() Strategy { return r.strategy }

// Pair returns the selected reference projections
func (r *Resolver) Pair() Pair { return r.pair }

// ManualValue returns the stored user value
func (r *Resolver) ManualValue() int { return r.manualValue }

// UpperBound returns the largest accepted manual value
func (r *Resolver) UpperBound() int { return r.upper }

// Files returns the names of the bound projections
func (r *Resolver) Files() []string { return append([]string(nil), r.files...) }

// refresh redraws the composite preview and then the marker
func (r *Resolver) refresh() error {
	preview, err := r.CompositePreview()
	if err != nil {
		return err
	}
	r.presenter.ShowPreview(preview)
	r.presenter.ShowStrategy(r.strategy)
	return r.updateMarker()
}

// updateMarker recomputes the center and replaces the marker. A disabled
// resolver only removes it.
func (r *Resolver) updateMarker() error {
	if !r.enabled {
		r.clearMarker()
		return nil
	}

	value, ok, err := r.Resolve()
	if err != nil {
		return err
	}
	if !ok {
		r.clearMarker()
		return nil
	}

	r.marker = &Marker{
		Column: value,
		Color:  color.RGBA{R: 255, A: 255},
		Width:  r.markerWidth,
	}
	r.presenter.ShowMarker(*r.marker)
	return nil
}

func (r *Resolver) clearMarker() {
	if r.marker == nil {
		return
	}
	r.marker = nil
	r.presenter.ClearMarker()
}

func (r *Resolver) fetchPair() (*mat.Dense, *mat.Dense, error) {
	image0, err := r.loader.Fetch(r.pair.Index0)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to load 0 degree projection: %w", err)
	}
	image180, err := r.loader.Fetch(r.pair.Index180)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to load 180 degree projection: %w", err)
	}
	return image0, image180, nil
}

func (r *Resolver) checkPair(p Pair) error {
	n := len(r.files)
	if p.Index0 < 0 || p.Index0 >= n {
		return fmt.Errorf("%w: 0 degree index %d not in [0, %d)", models.ErrIndexOutOfRange, p.Index0, n)
	}
	if p.Index180 < 0 || p.Index180 >= n {
		return fmt.Errorf("%w: 180 degree index %d not in [0, %d)", models.ErrIndexOutOfRange, p.Index180, n)
	}
	if p.Index0 == p.Index180 {
		r.log.Warn("0 and 180 degree projections are the same file", "index", p.Index0)
	}
	return nil
}

func (r *Resolver) checkManual(v int) error {
	if v < 0 || v > r.upper {
		return fmt.Errorf("%w: %d not in [0, %d]", ErrManualOutOfRange, v, r.upper)
	}
	return nil
}
