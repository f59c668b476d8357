// Package session persists the state of the preprocessing panels so that a
// later run reproduces the same center of rotation.
package session

import (
	"errors"
	"fmt"
	"sort"
	"strings"
	"time"

	"tomoprep/pkg/center"
	"tomoprep/pkg/config"
	"tomoprep/pkg/tilt"
)

// ErrNoSession is returned by Load when nothing was saved yet
var ErrNoSession = errors.New("no saved session")

// Document is one saved session
type Document struct {
	// Projections is the directory the projections were loaded from
	Projections string `yaml:"projections folder" json:"projections_folder"`

	CenterRotation center.Session `yaml:"center rotation" json:"center_rotation"`
	TiltCorrection tilt.Session   `yaml:"tilt correction" json:"tilt_correction"`
}

// Record is a Document as kept by the database backends
type Record struct {
	ID       string    `json:"id"`
	Name     string    `json:"name"`
	SavedAt  time.Time `json:"saved_at"`
	Document Document  `json:"document"`
}

// Store saves and loads session documents
type Store interface {
	Save(doc Document) error
	Load() (Document, error)
	Close() error
}

// Open returns the store selected by cfg.Backend
func Open(cfg config.SessionConfig) (Store, error) {
	switch strings.ToLower(cfg.Backend) {
	case "", "yaml":
		return NewFileStore(cfg.Path), nil
	case "bolt":
		return OpenBolt(cfg.Path, cfg.Name)
	case "sqlite":
		return OpenSQLite(cfg.Path, cfg.Name)
	default:
		return nil, fmt.Errorf("unknown session backend %q", cfg.Backend)
	}
}

func sortRecords(recs []Record) {
	sort.SliceStable(recs, func(i, j int) bool {
		return recs[i].SavedAt.Before(recs[j].SavedAt)
	})
}
