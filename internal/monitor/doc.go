// Package monitor runs the hub's background sensor loops.
//
// A Manager owns every running loop, one per Key (component plus logical
// device). Starting a loop for a key that is already running stops the old
// loop and waits for it to exit before the new one begins, so two loops
// never drive the same pin. Stopping is cooperative: loops observe context
// cancellation between iterations and an in-flight hardware read is never
// interrupted.
//
// Loop bodies are built by Sensors, one factory per sensor kind. They poll
// through the hardware abstraction, filter through a Debounce or Threshold
// gate where the sensor calls for it, and publish events on the hub topic.
//
// Failures stay inside the loop that produced them: transient hardware and
// publish errors are logged and the loop carries on, permanent hardware
// errors end the loop, and panics are recovered by the Manager.
package monitor
