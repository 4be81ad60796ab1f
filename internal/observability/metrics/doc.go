// Package metrics provides Prometheus metrics registry and recording utilities.
//
// This package centralizes all application metrics including:
//   - HTTP request metrics (duration, count, size)
//   - Business metrics (articles, sources, summaries)
//   - Database query metrics
//   - Application performance metrics
//
// All metrics are automatically registered with the Prometheus default registry
// and exposed via the /metrics endpoint.
//
// Example usage:
//
//	import "newsgraph/internal/observability/metrics"
//
//	func processArticles(source string, sourceID int64) {
//	    start := time.Now()
//	    // ... process articles ...
//	    count := 10
//
//	    metrics.RecordArticlesFetched(source, sourceID, count)
//	    metrics.RecordOperationDuration("process_articles", time.Since(start))
//	}
package metrics
