// Package agents holds the catalog of automation agent definitions that runs
// may be submitted against.
package agents

// Definition describes one named automation agent. Steps is the ordered work
// plan the executor walks when a run is picked up.
type Definition struct {
	ID          string   `json:"id"`
	Name        string   `json:"name"`
	Description string   `json:"description"`
	Steps       []string `json:"steps"`
}

// Registry resolves agent ids to definitions.
type Registry struct {
	defs map[string]Definition
}

// NewRegistry builds a registry from the given definitions. With none given
// the built-in catalog is used.
func NewRegistry(defs ...Definition) *Registry {
	if len(defs) == 0 {
		defs = builtin
	}
	m := make(map[string]Definition, len(defs))
	for _, d := range defs {
		m[d.ID] = d
	}
	return &Registry{defs: m}
}

// Lookup resolves an agent id.
func (r *Registry) Lookup(agentID string) (Definition, bool) {
	d, ok := r.defs[agentID]
	return d, ok
}

// All returns every known definition.
func (r *Registry) All() []Definition {
	out := make([]Definition, 0, len(r.defs))
	for _, d := range r.defs {
		out = append(out, d)
	}
	return out
}

var builtin = []Definition{
	{
		ID:          "keyword-scout",
		Name:        "Keyword Scout",
		Description: "Expands the client's seed keywords and scores search intent.",
		Steps:       []string{"load seed keywords", "expand variants", "score intent", "write keyword report"},
	},
	{
		ID:          "content-optimizer",
		Name:        "Content Optimizer",
		Description: "Reviews published pages for on-page optimization gaps.",
		Steps:       []string{"fetch page inventory", "score readability", "check keyword coverage", "emit recommendations"},
	},
	{
		ID:          "technical-seo",
		Name:        "Technical SEO",
		Description: "Checks crawlability, sitemaps and structured data.",
		Steps:       []string{"fetch robots.txt", "validate sitemap", "sample structured data", "summarize findings"},
	},
	{
		ID:          "backlink-monitor",
		Name:        "Backlink Monitor",
		Description: "Tracks new and lost backlinks for the client domain.",
		Steps:       []string{"pull backlink snapshot", "diff against previous", "flag toxic links"},
	},
	{
		ID:          "serp-watcher",
		Name:        "SERP Watcher",
		Description: "Samples result pages for tracked queries and records movement.",
		Steps:       []string{"load tracked queries", "sample result pages", "record position deltas"},
	},
}
