// Package ingest holds the batch pipelines built on the linkage engine:
// cleaning of the concours registry export and linking of corps to the
// statutory text that defines them.
package ingest
