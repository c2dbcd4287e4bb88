// Package mqtt is the hub's MQTT transport, built on paho.mqtt.golang.
//
// Commands and events share one topic. The client publishes a retained
// presence message on <topic>/status when it connects and when it closes,
// and registers a will on the same topic so a crashed hub shows as offline.
//
// paho's own reconnect logic is switched off. Connect makes exactly one
// attempt; a lost connection is reported through SetOnDisconnect, and
// connection.Supervisor decides when to try again and re-subscribes.
//
// Handlers run on paho's goroutines and are wrapped so a panic is logged
// instead of tearing down delivery.
//
//	client := mqtt.New(cfg.MQTT)
//	client.SetLogger(log.Component("mqtt"))
//	client.SetOnDisconnect(sup.NotifyDisconnected)
//	defer client.Close()
//
// Use TLS (broker.tls) for any broker that is not on the local host.
package mqtt
