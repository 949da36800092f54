// Package http is the thin HTTP adapter over the job orchestrator.
//
// Handlers bind path, query and JSON input, call one orchestrator operation
// and translate *fault.Error kinds to status codes:
//
//	validation_failed  400
//	not_found          404
//	conflict           409
//	peer_unavailable   503
//	timeout            504
//	internal           500
//
// Error bodies are {"error": <kind>, "message": <text>, "trace_id": <id>}.
package http
