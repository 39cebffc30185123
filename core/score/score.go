// Package score turns detector findings into prioritized findings.
package score

import (
	"strings"
	"time"

	"github.com/huangsam/smellscan/internal/contract"
	"github.com/huangsam/smellscan/schema"
	"go.uber.org/zap"
)

// RecurrenceCounter reports how often a smell type was recorded in an area since a point in time.
type RecurrenceCounter interface {
	CountRecurrences(smell schema.SmellType, area string, since time.Time) (int, error)
}

// Scorer assigns impact, risk and velocity to findings. It is used by a single goroutine.
type Scorer struct {
	criticality contract.Criticality
	window      time.Duration
	history     RecurrenceCounter
	fileLayers  map[string]schema.Layer
	now         func() time.Time
}

// New creates a scorer. A nil history means every smell is treated as new.
func New(rules contract.Rules, history RecurrenceCounter, files []schema.ClassifiedFile) *Scorer {
	layers := make(map[string]schema.Layer, len(files))
	for _, f := range files {
		layers[f.Path] = f.Layer
	}
	window := rules.HistoryWindow
	if window <= 0 {
		window = contract.DefaultHistoryWindow
	}
	return &Scorer{
		criticality: rules.Criticality,
		window:      window,
		history:     history,
		fileLayers:  layers,
		now:         time.Now,
	}
}

// WithClock replaces the time source used for the history window.
func (s *Scorer) WithClock(now func() time.Time) *Scorer {
	s.now = now
	return s
}

// Score fills the severity of every finding in place.
func (s *Scorer) Score(findings []schema.Finding) {
	for i := range findings {
		s.ScoreOne(&findings[i])
	}
}

// ScoreOne fills the severity of one finding.
func (s *Scorer) ScoreOne(f *schema.Finding) {
	if f.Area == "" {
		f.Area = schema.CommonDir(f.Files)
	}
	f.Severity = schema.NewSeverity(
		Impact(len(f.Files), len(f.Layers)),
		max(s.Risk(f), f.RiskFloor),
		Velocity(s.recurrences(f)),
	)
}

// Impact maps the file and layer span of a finding onto 1-5.
func Impact(files, layers int) int {
	switch {
	case files > 10 || layers >= 3:
		return 5
	case files >= 7:
		return 4
	case files >= 4:
		return 3
	case files >= 2:
		return 2
	default:
		return 1
	}
}

// Velocity maps the number of earlier occurrences onto 1-5.
func Velocity(recurrences int) int {
	switch {
	case recurrences >= 7:
		return 5
	case recurrences >= 4:
		return 4
	case recurrences >= 2:
		return 3
	case recurrences == 1:
		return 2
	default:
		return 1
	}
}

// Risk is the highest criticality among the files of a finding.
// A path prefix beats the layer default; the longest prefix wins.
func (s *Scorer) Risk(f *schema.Finding) int {
	risk := 0
	for _, p := range f.Files {
		risk = max(risk, s.pathRisk(p))
	}
	if risk == 0 {
		for _, l := range f.Layers {
			risk = max(risk, s.layerRisk(l))
		}
	}
	if risk == 0 {
		risk = s.layerRisk(schema.UnknownLayer)
	}
	return schema.ClampSubScore(risk)
}

func (s *Scorer) pathRisk(p string) int {
	best, bestLen := 0, -1
	for _, pc := range s.criticality.Paths {
		if strings.HasPrefix(p, pc.Prefix) && len(pc.Prefix) > bestLen {
			best, bestLen = pc.Risk, len(pc.Prefix)
		}
	}
	if bestLen >= 0 {
		return best
	}
	layer, ok := s.fileLayers[p]
	if !ok {
		layer = schema.UnknownLayer
	}
	return s.layerRisk(layer)
}

func (s *Scorer) layerRisk(l schema.Layer) int {
	if r, ok := s.criticality.Layers[l]; ok {
		return r
	}
	return contract.DefaultLayerRisk[schema.UnknownLayer]
}

func (s *Scorer) recurrences(f *schema.Finding) int {
	if s.history == nil {
		return 0
	}
	n, err := s.history.CountRecurrences(f.SmellType, f.Area, s.now().Add(-s.window))
	if err != nil {
		contract.Logger().Warn("cannot read smell history",
			zap.String("smell", string(f.SmellType)),
			zap.String("area", f.Area),
			zap.Error(err))
		return 0
	}
	return n
}
