package agents

import "testing"

func TestBuiltinCatalog(t *testing.T) {
	r := NewRegistry()

	for _, id := range []string{"keyword-scout", "content-optimizer", "technical-seo", "backlink-monitor", "serp-watcher"} {
		def, ok := r.Lookup(id)
		if !ok {
			t.Errorf("agent %s missing from builtin catalog", id)
			continue
		}
		if def.Name == "" || len(def.Steps) == 0 {
			t.Errorf("agent %s has incomplete definition: %+v", id, def)
		}
	}

	if _, ok := r.Lookup("rank-tracker"); ok {
		t.Error("rank-tracker should not resolve")
	}
	if got := len(r.All()); got != 5 {
		t.Errorf("catalog size = %d, want 5", got)
	}
}

func TestCustomDefinitionsReplaceBuiltin(t *testing.T) {
	r := NewRegistry(Definition{ID: "custom", Name: "Custom", Steps: []string{"one"}})

	if _, ok := r.Lookup("keyword-scout"); ok {
		t.Error("builtin catalog leaked into custom registry")
	}
	def, ok := r.Lookup("custom")
	if !ok || def.Name != "Custom" {
		t.Errorf("custom definition not resolved: %+v ok=%v", def, ok)
	}
}
