// Package tilt drives the tilt correction panel: it browses the projections
// and dispatches to the selected tilt estimation algorithm.
package tilt

import (
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"gonum.org/v1/gonum/mat"

	"tomoprep/internal/models"
)

var (
	// ErrAlgorithmUnavailable is returned for a tilt algorithm with no implementation wired in
	ErrAlgorithmUnavailable = errors.New("tilt algorithm not available")

	// ErrUnknownAlgorithm is returned when decoding an unsupported algorithm name
	ErrUnknownAlgorithm = errors.New("unknown tilt algorithm")

	// ErrDisabled is returned when running while tilt correction is switched off
	ErrDisabled = errors.New("tilt correction is disabled")
)

// Algorithm selects how the tilt is estimated
type Algorithm uint8

const (
	DirectMinimization Algorithm = iota
	PhaseCorrelation
	UseCenter
)

func (a Algorithm) String() string {
	switch a {
	case DirectMinimization:
		return "direct minimization"
	case PhaseCorrelation:
		return "phase correlation"
	case UseCenter:
		return "use center"
	default:
		return fmt.Sprintf("Algorithm(%d)", uint8(a))
	}
}

// ParseAlgorithm maps a name to an Algorithm
func ParseAlgorithm(text string) (Algorithm, error) {
	switch strings.ToLower(strings.TrimSpace(text)) {
	case "direct minimization", "direct", "minimization":
		return DirectMinimization, nil
	case "phase correlation", "phase":
		return PhaseCorrelation, nil
	case "use center", "center":
		return UseCenter, nil
	default:
		return 0, fmt.Errorf("%w: %q", ErrUnknownAlgorithm, text)
	}
}

// MarshalText implements encoding.TextMarshaler
func (a Algorithm) MarshalText() ([]byte, error) {
	if a > UseCenter {
		return nil, fmt.Errorf("%w: %d", ErrUnknownAlgorithm, uint8(a))
	}
	return []byte(a.String()), nil
}

// UnmarshalText implements encoding.TextUnmarshaler
func (a *Algorithm) UnmarshalText(text []byte) error {
	parsed, err := ParseAlgorithm(string(text))
	if err != nil {
		return err
	}
	*a = parsed
	return nil
}

// ImageLoader serves the projections browsed by the panel
type ImageLoader interface {
	Len() int
	Fetch(index int) (*mat.Dense, error)
}

// Minimizer estimates the tilt, in degrees, of a projection by direct minimization
type Minimizer interface {
	Minimize(projection mat.Matrix) (float64, error)
}

// Presenter shows the projection being inspected
type Presenter interface {
	ShowImage(img mat.Matrix)
}

// Session is the persisted state of the tilt correction panel
type Session struct {
	Enabled   bool      `yaml:"state" json:"state"`
	FileIndex int       `yaml:"file index" json:"file_index"`
	Algorithm Algorithm `yaml:"algorithm selected" json:"algorithm_selected"`
}

// Handler holds the state of the tilt correction panel
type Handler struct {
	loader    ImageLoader
	presenter Presenter
	minimizer Minimizer
	log       *slog.Logger

	enabled   bool
	algorithm Algorithm
	fileIndex int
	maxIndex  int
	dims      models.Dimensions
}

// NewHandler creates a tilt handler. minimizer may be nil, in which case
// DirectMinimization reports ErrAlgorithmUnavailable.
func NewHandler(loader ImageLoader, presenter Presenter, minimizer Minimizer, log *slog.Logger) *Handler {
	if log == nil {
		log = slog.New(slog.DiscardHandler)
	}
	return &Handler{
		loader:    loader,
		presenter: presenter,
		minimizer: minimizer,
		log:       log,
		maxIndex:  -1,
	}
}

// Initialize records the projection size and shows the selected file
func (h *Handler) Initialize() error {
	n := h.loader.Len()
	if n == 0 {
		return models.ErrNoProjections
	}

	first, err := h.loader.Fetch(0)
	if err != nil {
		return fmt.Errorf("failed to read first projection: %w", err)
	}
	rows, cols := first.Dims()
	h.dims = models.Dimensions{Width: cols, Height: rows}
	h.maxIndex = n - 1
	if h.fileIndex > h.maxIndex {
		h.fileIndex = 0
	}

	h.log.Info("initialized tilt correction", "files", n, "width", cols, "height", rows)
	return h.SelectFile(h.fileIndex)
}

// SelectFile shows the projection at index, transposed for display
func (h *Handler) SelectFile(index int) error {
	if index < 0 || index > h.maxIndex {
		return fmt.Errorf("%w: %d not in [0, %d]", models.ErrIndexOutOfRange, index, h.maxIndex)
	}
	img, err := h.loader.Fetch(index)
	if err != nil {
		return err
	}
	h.fileIndex = index
	if h.presenter != nil {
		h.presenter.ShowImage(img.T())
	}
	return nil
}

// SetEnabled switches tilt correction on or off
func (h *Handler) SetEnabled(enabled bool) {
	h.enabled = enabled
}

// SetAlgorithm selects the algorithm and, when enabled, runs it on the
// current projection
func (h *Handler) SetAlgorithm(a Algorithm) (float64, error) {
	if a > UseCenter {
		return 0, fmt.Errorf("%w: %d", ErrUnknownAlgorithm, uint8(a))
	}
	h.algorithm = a
	if !h.enabled {
		return 0, nil
	}
	return h.Run()
}

// Run estimates the tilt of the current projection with the selected algorithm
func (h *Handler) Run() (float64, error) {
	if !h.enabled {
		return 0, ErrDisabled
	}
	if h.maxIndex < 0 {
		return 0, models.ErrNoProjections
	}

	switch h.algorithm {
	case DirectMinimization:
		if h.minimizer == nil {
			return 0, fmt.Errorf("%w: %s", ErrAlgorithmUnavailable, h.algorithm)
		}
		img, err := h.loader.Fetch(h.fileIndex)
		if err != nil {
			return 0, err
		}
		tilt, err := h.minimizer.Minimize(img)
		if err != nil {
			return 0, fmt.Errorf("direct minimization failed: %w", err)
		}
		h.log.Info("tilt calculated", "algorithm", h.algorithm, "file_index", h.fileIndex, "tilt", tilt)
		return tilt, nil
	default:
		return 0, fmt.Errorf("%w: %s", ErrAlgorithmUnavailable, h.algorithm)
	}
}

// Session returns the panel state for persistence
func (h *Handler) Session() Session {
	return Session{Enabled: h.enabled, FileIndex: h.fileIndex, Algorithm: h.algorithm}
}

// Restore applies a saved panel state. The handler must be initialized.
func (h *Handler) Restore(s Session) error {
	if s.Algorithm > UseCenter {
		return fmt.Errorf("%w: %d", ErrUnknownAlgorithm, uint8(s.Algorithm))
	}
	if err := h.SelectFile(s.FileIndex); err != nil {
		return err
	}
	h.enabled = s.Enabled
	h.algorithm = s.Algorithm
	return nil
}

// Dimensions returns the size of the projections
func (h *Handler) Dimensions() models.Dimensions { return h.dims }

// MaxIndex returns the largest selectable file index, -1 before Initialize
func (h *Handler) MaxIndex() int { return h.maxIndex }

// FileIndex returns the selected file index
func (h *Handler) FileIndex() int { return h.fileIndex }

// Algorithm returns the selected algorithm
func (h *Handler) Algorithm() Algorithm { return h.algorithm }

// Enabled reports whether tilt correction is on
func (h *Handler) Enabled() bool { return h.enabled }
