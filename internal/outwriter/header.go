package outwriter

import (
	"fmt"
	"io"
	"path/filepath"

	"github.com/huangsam/smellscan/internal/contract"
	"github.com/huangsam/smellscan/schema"
)

// LogScanHeader prints a concise, 2-line header for a scan.
func LogScanHeader(w io.Writer, cfg *contract.Config, cs schema.ChangeSet) {
	source := "descriptor"
	switch {
	case cfg.DiffPath != "":
		source = "diff"
	case cfg.BaseRef != "":
		repoName := filepath.Base(cfg.RepoPath)
		if repoName == "" || repoName == "." {
			repoName = "current"
		}
		source = fmt.Sprintf("%s %s..%s", repoName, cfg.BaseRef, cfg.TargetRef)
	}

	// Line 1: what is scanned
	_, _ = fmt.Fprintf(w, "🔎 ChangeSet: %s (%s)\n", cs.ID, source)

	// Line 2: how much of it
	declared := string(cs.DeclaredLayer)
	if declared == "" {
		declared = "none"
	}
	_, _ = fmt.Fprintf(w, "🧱 Files: %d, declared layer: %s, workers: %d\n", len(cs.Files), declared, cfg.Workers)
}
