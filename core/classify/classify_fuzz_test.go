package classify

import (
	"testing"

	"github.com/huangsam/smellscan/internal/contract"
	"github.com/huangsam/smellscan/schema"
)

// FuzzClassify checks that classification is total and deterministic for arbitrary paths.
func FuzzClassify(f *testing.F) {
	seeds := []string{
		"lib/presentation/widgets/a.dart",
		"lib/domain/entities/user.dart",
		"lib/domain/repositories/user_repository.dart",
		"",
		"////",
		"domain/" + string(make([]byte, 64)),
	}
	for _, s := range seeds {
		f.Add(s)
	}

	c := New(contract.DefaultRules())
	f.Fuzz(func(t *testing.T, path string) {
		first := c.Classify(path)
		if _, ok := schema.ValidLayers[first]; !ok {
			t.Fatalf("Classify(%q) returned invalid layer %q", path, first)
		}
		if second := c.Classify(path); second != first {
			t.Fatalf("Classify(%q) not deterministic: %q then %q", path, first, second)
		}
	})
}
