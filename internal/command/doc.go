// Package command decodes the JSON messages that arrive on the hub topic.
//
// Every message has the same envelope:
//
//	{"component": "led", "data": {"pin": 17, "state": "ON"}}
//
// Decode turns a raw payload into a Command. Malformed payloads produce a
// *DecodeError and payloads without a usable component produce a
// *SchemaError; both are meant to be logged and dropped by the caller.
//
// Command also offers typed accessors for the data map (Int, IntOr,
// String, IntSlice) so handlers do not repeat json.Number juggling.
// Numbers are kept as json.Number so that Encode reproduces them exactly.
//
// The package also builds the outbound event payloads monitors publish.
// Most sensors use the envelope form (Event); DHT11 readings use the flat
// ClimateReading form.
package command
