// Package connection keeps the hub attached to its message broker.
//
// A Supervisor performs the initial connect and subscription, then waits
// for the transport to report a lost connection. Each loss starts a retry
// loop with a fixed delay between attempts; a successful attempt always
// re-subscribes to the command topic, since brokers drop subscriptions
// with the session.
//
// The supervisor runs in its own goroutine. Message routing and monitors
// never wait on it; while it is reconnecting they simply see publishes fail.
//
// Usage:
//
//	sup := connection.NewSupervisor(client, connection.Config{
//	    Topic:   cfg.Topic(),
//	    Handler: func(topic string, payload []byte) { router.HandleMessage(ctx, topic, payload) },
//	}, logger)
//	client.SetOnDisconnect(sup.NotifyDisconnected)
//	go sup.Run(ctx)
package connection
