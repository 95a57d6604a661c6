// Package timeouts defines shared timeout constants for the HTTP surface.
// Centralizing these values prevents drift between server setup and
// shutdown handling and makes the durations discoverable.
package timeouts

import "time"

// HTTPRead limits how long the ops server waits for a full request.
const HTTPRead = 5 * time.Second

// HTTPWrite limits how long the ops server may take to write a response.
const HTTPWrite = 10 * time.Second

// HTTPIdle caps how long keep-alive connections stay open.
const HTTPIdle = 120 * time.Second

// Shutdown limits how long the ops server waits for in-flight requests
// during graceful shutdown.
const Shutdown = 10 * time.Second
