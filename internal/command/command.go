package command

import (
	"bytes"
	"encoding/json"
	"errors"
	"io"
)

// Command is a decoded inbound instruction.
// Treat it as immutable once decoded.
type Command struct {
	Component string
	Data      map[string]any
}

// envelope is the wire shape shared by commands and wrapped events.
type envelope struct {
	Component string         `json:"component"`
	Data      map[string]any `json:"data"`
}

// Decode parses payload into a Command.
//
// Surrounding whitespace is ignored. A missing "data" member decodes to an
// empty map; a "data" member that is not an object is a schema error.
func Decode(payload []byte) (Command, error) {
	payload = bytes.TrimSpace(payload)

	dec := json.NewDecoder(bytes.NewReader(payload))
	dec.UseNumber()

	var raw any
	if err := dec.Decode(&raw); err != nil {
		if errors.Is(err, io.EOF) {
			err = io.ErrUnexpectedEOF
		}
		return Command{}, &DecodeError{Err: err}
	}
	if _, err := dec.Token(); !errors.Is(err, io.EOF) {
		return Command{}, &DecodeError{Err: errors.New("trailing data after JSON value")}
	}

	obj, ok := raw.(map[string]any)
	if !ok {
		return Command{}, &SchemaError{Reason: "payload must be a JSON object"}
	}

	compAny, ok := obj["component"]
	if !ok {
		return Command{}, &SchemaError{Field: "component", Reason: "is missing"}
	}
	component, ok := compAny.(string)
	if !ok {
		return Command{}, &SchemaError{Field: "component", Reason: "must be a string"}
	}
	if component == "" {
		return Command{}, &SchemaError{Field: "component", Reason: "must not be empty"}
	}

	data := map[string]any{}
	if d, ok := obj["data"]; ok && d != nil {
		m, ok := d.(map[string]any)
		if !ok {
			return Command{}, &SchemaError{Component: component, Field: "data", Reason: "must be an object"}
		}
		data = m
	}

	return Command{Component: component, Data: data}, nil
}

// Encode renders the command in its wire form.
func (c Command) Encode() ([]byte, error) {
	data := c.Data
	if data == nil {
		data = map[string]any{}
	}
	return json.Marshal(envelope{Component: c.Component, Data: data})
}

// New builds a command, mostly for tests and for re-publishing.
func New(component string, data map[string]any) Command {
	if data == nil {
		data = map[string]any{}
	}
	return Command{Component: component, Data: data}
}
