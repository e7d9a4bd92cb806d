// Package metrics hosts the event-ingestion and aggregation service: an
// append-only event log behind POST /events and the conversion rollups
// served by GET /stats.
package metrics
