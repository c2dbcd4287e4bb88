// Package hub turns inbound messages into device actions.
//
// A Router decodes each payload, looks its component up in a Registry and
// calls the handler. Devices supplies the handlers: one-shot outputs
// (digital, PWM, stepper, LCD) actuate the hardware directly, while sensor
// components start a loop in the monitor.Manager and return at once.
//
// Commands and events share one topic, so the hub hears its own events.
// An EchoFilter wraps the publisher and lets the Router drop payloads the
// hub itself published.
//
// Nothing a message does can take the router down: decode, schema, unknown
// component and handler errors are logged and the message is dropped.
package hub
