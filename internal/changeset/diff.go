package changeset

import (
	"context"
	"fmt"
	"io"
	"strings"

	"github.com/bluekeyes/go-gitdiff/gitdiff"
	"github.com/huangsam/smellscan/internal/contract"
	"github.com/huangsam/smellscan/schema"
	"go.uber.org/zap"
)

// LoadDiff reads a unified diff file ("-" for stdin) and turns it into a ChangeSet.
func LoadDiff(path string, withContent bool) (schema.ChangeSet, error) {
	data, err := readSource(path)
	if err != nil {
		return schema.ChangeSet{}, err
	}
	cs, err := FromDiff(strings.NewReader(string(data)), withContent)
	if err != nil {
		return cs, fmt.Errorf("%s: %w", path, err)
	}
	cs.ID = idFromPath(path)
	return cs, nil
}

// FromDiff parses a unified diff. Each non-binary file becomes one FileChange.
// When withContent is set, the new side of every hunk is kept as the content snapshot.
func FromDiff(r io.Reader, withContent bool) (schema.ChangeSet, error) {
	files, _, err := gitdiff.Parse(r)
	if err != nil {
		return schema.ChangeSet{}, fmt.Errorf("%w: parsing diff: %v", schema.ErrConfig, err)
	}

	var cs schema.ChangeSet
	for _, f := range files {
		if f.IsBinary {
			contract.Logger().Debug("skipping binary file", zap.String("path", diffPath(f)))
			continue
		}
		fc := schema.FileChange{
			Path:      diffPath(f),
			Kind:      diffKind(f),
			LineCount: newSideLines(f),
		}
		if withContent && !f.IsDelete {
			fc.Content = newSideContent(f)
		}
		cs.Files = append(cs.Files, fc)
	}
	return cs, nil
}

// FromRefs builds a ChangeSet from the diff between two refs. Content snapshots
// come from the target ref so that every file is complete.
func FromRefs(ctx context.Context, client contract.GitClient, repo, baseRef, targetRef string) (schema.ChangeSet, error) {
	if targetRef == "" {
		targetRef = "HEAD"
	}
	raw, err := client.GetDiffBetweenRefs(ctx, repo, baseRef, targetRef)
	if err != nil {
		return schema.ChangeSet{}, fmt.Errorf("diffing %s..%s: %w", baseRef, targetRef, err)
	}
	cs, err := FromDiff(strings.NewReader(string(raw)), false)
	if err != nil {
		return cs, err
	}
	cs.ID = baseRef + ".." + targetRef

	for i := range cs.Files {
		fc := &cs.Files[i]
		if fc.Kind == schema.Deleted {
			continue
		}
		content, err := client.ShowFileAtRef(ctx, repo, targetRef, fc.Path)
		if err != nil {
			// Keep the diff-only view of the file
			contract.Logger().Warn("cannot read file at ref",
				zap.String("path", fc.Path), zap.String("ref", targetRef), zap.Error(err))
			continue
		}
		fc.Content = string(content)
		fc.LineCount = countLines(fc.Content)
	}
	return cs, nil
}

func diffPath(f *gitdiff.File) string {
	if f.IsDelete || f.NewName == "" {
		return f.OldName
	}
	return f.NewName
}

func diffKind(f *gitdiff.File) schema.ChangeKind {
	switch {
	case f.IsNew:
		return schema.Added
	case f.IsDelete:
		return schema.Deleted
	default:
		return schema.Modified
	}
}

// newSideLines is the last new-side line any hunk reaches. For added files it is the file length.
func newSideLines(f *gitdiff.File) int {
	if f.IsDelete {
		return 0
	}
	n := 0
	for _, frag := range f.TextFragments {
		end := frag.NewPosition + frag.NewLines - 1
		if frag.NewLines == 0 {
			end = frag.NewPosition
		}
		n = max(n, int(end))
	}
	return n
}

// newSideContent joins the context and added lines of every hunk.
func newSideContent(f *gitdiff.File) string {
	var b strings.Builder
	for _, frag := range f.TextFragments {
		for _, line := range frag.Lines {
			if line.Op == gitdiff.OpAdd || line.Op == gitdiff.OpContext {
				b.WriteString(line.Line)
			}
		}
	}
	return b.String()
}

func countLines(s string) int {
	if s == "" {
		return 0
	}
	n := strings.Count(s, "\n")
	if !strings.HasSuffix(s, "\n") {
		n++
	}
	return n
}
