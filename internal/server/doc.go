// Package server provides the HTTP server of the report command.
//
// The server uses the Gin web framework and serves the results journal
// read-only under /api/v1.
//
//	┌───────────────────────────────────────────────┐
//	│                  HTTP Server                  │
//	├───────────────────────────────────────────────┤
//	│               Middleware Stack                │
//	│  ginzap.Ginzap          (request logging)     │
//	│  ginzap.RecoveryWithZap (panic recovery)      │
//	├───────────────────────────────────────────────┤
//	│               Router (/api/v1)                │
//	│  Handlers (registered via callback)           │
//	└───────────────────────────────────────────────┘
//
// ServerMode "prod" runs Gin in release mode, "dev" in debug mode.
// Unknown routes answer a JSON 404.
//
// # Server Lifecycle
//
//	srv, err := server.NewServer(cfg, func(router *gin.RouterGroup) {
//	    v1.RegisterHandlers(router, handler)
//	})
//	go srv.Start(ctx)
//	...
//	srv.Stop(shutdownCtx)
package server
