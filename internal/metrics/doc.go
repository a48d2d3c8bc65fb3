// Package metrics provides the build metrics hooks.
//
// Components receive a Recorder and default to NoopRecorder, so metrics stay optional and
// need no nil checks at call sites:
//
//	p := transform.New(root, m, o, transform.WithRecorder(metrics.NoopRecorder{}))
//
// PrometheusRecorder backs the interface with client_golang collectors. A build run has no
// scrape endpoint, so the registry is exported once per run with WriteTextfile for the
// node_exporter textfile collector.
package metrics
