// Package ws implements the WebSocket hub for sentinel-server.
//
// Hub manages a set of connected dashboard clients and broadcasts the current
// alert picture to all of them on a configurable interval (default 5s in
// production).
//
// New(source, interval) creates a Hub.
// Hub.Run(ctx) starts the broadcast ticker; it blocks until ctx is cancelled,
// then closes all active connections.
// Hub.ServeHTTP upgrades an HTTP connection to WebSocket, sends the current
// state immediately on connect, then streams updates on each tick.
//
// Message format sent to clients:
//
//	{
//	  "event": "alerts",
//	  "data":  {
//	    "stats":  { /* same schema as GET /api/v1/alerts/stats */ },
//	    "active": [ /* same schema as GET /api/v1/alerts/active */ ],
//	    "generated_at": "RFC3339"
//	  }
//	}
//
// The upgrader accepts all origins. Apply CORS restrictions at the reverse
// proxy level. The endpoint is mounted at /ws/alerts by the server.
package ws
