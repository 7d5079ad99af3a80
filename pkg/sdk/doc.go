// Package litmap embeds the litmap analysis pipeline in a Go program.
//
// A Client fetches articles for a query, projects them to 2D and cuts them
// into labelled clusters, the same way the litmap service does, without an
// HTTP hop:
//
//	client, err := litmap.New(ctx, litmap.WithVectors("./data/w2v.json"))
//	if err != nil { ... }
//	defer client.Close()
//
//	clusters, err := client.Analyze(ctx, "graph neural networks", litmap.SearchOptions{Articles: 200}, 8)
//
// Changing the cluster count afterwards reuses the fetched articles:
//
//	clusters, err = client.Cluster(ctx, 12, litmap.ClusterOptions{})
//
// Errors wrap the sentinels of this package; check them with errors.Is.
package litmap
