package litmap

// SearchOptions tune a search. Zero values take the configured defaults.
type SearchOptions struct {
	Articles     int
	Source       string // "semantic-scholar" or "pub-med"
	ExcludeEmpty bool
}

// ClusterOptions tune label generation.
type ClusterOptions struct {
	Prettify bool
	APIToken string // overrides the key given to WithCompletion
}

// SearchSummary describes a finished search.
type SearchSummary struct {
	Query      string
	Source     string
	Generation uint64
	Documents  int
}

// Document is one fetched article with its projected position.
type Document struct {
	Title         string
	Abstract      string
	Year          int
	CitationCount int
	URL           string
	X, Y          float64
	Cluster       int // -1 before clustering
}

// Cluster is one labelled group of documents.
type Cluster struct {
	ID        int
	Label     string
	Keywords  []string
	Documents []int // indexes into Documents()
	X, Y      float64
}

// HealthStatus represents the aggregated system health.
type HealthStatus struct {
	Status string            // "ok", "degraded"
	Checks map[string]string // component → "ok"/"error"
}
