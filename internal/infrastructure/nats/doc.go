// Package nats provides a NATS transport for the device hub with the same
// surface as the mqtt package: Connect, Publish, Subscribe and connection
// callbacks.
//
// Like the MQTT client it never reconnects on its own; the connection
// supervisor calls Connect again after a loss and re-subscribes. The hub
// subject carries both commands and events, and online/offline status goes
// to <subject>.status.
package nats
