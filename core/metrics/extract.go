package metrics

import (
	"context"
	"errors"
	"fmt"
	"slices"

	"github.com/huangsam/smellscan/internal/contract"
	"github.com/huangsam/smellscan/schema"
	"go.uber.org/zap"
)

// Extract turns one file change into units.
//
// A unit summary always wins over the content snapshot. Content in a supported
// language is parsed; content that cannot be parsed yields a single unit flagged
// with ParseError and a warning. Deleted files yield no units.
// The returned error is non-nil only when ctx ends first.
func Extract(ctx context.Context, fc schema.FileChange) ([]schema.Unit, []schema.AnalysisWarning, error) {
	if err := ctx.Err(); err != nil {
		return nil, nil, err
	}
	if fc.Kind == schema.Deleted {
		return nil, nil, nil
	}

	if len(fc.Units) > 0 {
		units := make([]schema.Unit, 0, len(fc.Units))
		for _, u := range fc.Units {
			u.Path = fc.Path
			if len(u.Imports) == 0 {
				u.Imports = slices.Clone(fc.Imports)
			}
			units = append(units, u)
		}
		return units, nil, nil
	}

	if fc.Content == "" {
		return []schema.Unit{placeholder(fc)}, nil, nil
	}

	fe, ok := frontendFor(fc.Path)
	if !ok {
		err := fmt.Errorf("%w: no frontend for %s", schema.ErrParse, fc.Path)
		return parseFailure(fc, err)
	}

	units, err := fe.Parse(ctx, fc.Path, []byte(fc.Content))
	if ctxErr := ctx.Err(); ctxErr != nil {
		return nil, nil, ctxErr
	}
	if err != nil {
		if !errors.Is(err, schema.ErrParse) {
			err = fmt.Errorf("%w: %v", schema.ErrParse, err)
		}
		return parseFailure(fc, err)
	}
	if len(units) == 0 {
		return []schema.Unit{placeholder(fc)}, nil, nil
	}
	for i := range units {
		units[i].Imports = appendMissing(units[i].Imports, fc.Imports)
	}
	contract.Logger().Debug("extracted units",
		zap.String("path", fc.Path),
		zap.String("language", fe.Language()),
		zap.Int("units", len(units)))
	return units, nil, nil
}

// placeholder stands in for a file that carries neither content nor summary.
func placeholder(fc schema.FileChange) schema.Unit {
	return schema.Unit{
		Name:    fileStem(fc.Path),
		Path:    fc.Path,
		Lines:   fc.LineCount,
		Imports: slices.Clone(fc.Imports),
	}
}

func parseFailure(fc schema.FileChange, err error) ([]schema.Unit, []schema.AnalysisWarning, error) {
	u := placeholder(fc)
	u.ParseError = true
	u.ParseErrorMessage = err.Error()
	contract.Logger().Debug("parse failed", zap.String("path", fc.Path), zap.Error(err))
	return []schema.Unit{u}, []schema.AnalysisWarning{schema.NewWarning(fc.Path, err)}, nil
}

// Inconclusive returns the placeholder left for a file whose analysis timed out.
func Inconclusive(fc schema.FileChange) schema.Unit {
	u := placeholder(fc)
	u.Inconclusive = true
	return u
}

func appendMissing(dst, src []string) []string {
	for _, s := range src {
		dst = addUnique(dst, s)
	}
	return dst
}
