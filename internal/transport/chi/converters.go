package chi

import (
	"github.com/kailas-cloud/litmap/internal/domain/pipeline"
)

func documentToView(search *pipeline.SearchResult, i int, assignment []int) DocumentView {
	doc := &search.Documents[i]
	v := DocumentView{
		Index:         i,
		Title:         doc.Title(),
		Abstract:      doc.Abstract(),
		Year:          doc.Year(),
		CitationCount: doc.CitationCount(),
		URL:           doc.URL(),
	}
	if i < len(search.Projection) {
		v.X, v.Y = search.Projection[i].X, search.Projection[i].Y
	}
	if i < len(assignment) {
		c := assignment[i]
		v.Cluster = &c
	}
	return v
}

func clustersToView(res *pipeline.ClusterizeResult) ClusterListResponse {
	k := res.K()
	members := res.Assignment.Members(k)
	items := make([]ClusterView, k)
	for id := range items {
		items[id] = ClusterView{
			ID:       id,
			Label:    res.Labels[id],
			Keywords: res.Keywords[id],
			Size:     len(members[id]),
		}
		if id < len(res.Centroids) {
			items[id].Centroid = res.Centroids[id]
		}
	}
	return ClusterListResponse{Items: items, Refined: res.Refined}
}
