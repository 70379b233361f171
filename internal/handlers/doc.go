// Package handlers implements the HTTP API of the report server.
//
// Handlers read the results journal and format it as JSON. They implement
// v1.ServerInterface and are registered with:
//
//	v1.RegisterHandlers(router, handler)
//
// # API Endpoints
//
//	┌────────┬───────────┬──────────────────────────────────────────────┐
//	│ Method │ Endpoint  │ Description                                  │
//	├────────┼───────────┼──────────────────────────────────────────────┤
//	│ GET    │ /attempts │ Recorded attempts, newest first, paginated   │
//	│ GET    │ /health   │ Results store reachability                   │
//	└────────┴───────────┴──────────────────────────────────────────────┘
//
// /attempts accepts scenario (repeatable or comma separated), passed,
// page and pageSize. pageSize is capped at 100.
//
// # Error Mapping
//
//	┌───────────────────────────┬──────────────┐
//	│ Condition                 │ HTTP Status  │
//	├───────────────────────────┼──────────────┤
//	│ Malformed query parameter │ 400          │
//	│ Store failure             │ 500          │
//	│ Store unreachable         │ 503 (health) │
//	└───────────────────────────┴──────────────┘
package handlers
