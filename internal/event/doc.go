/*
Package event provides a pub/sub event system for the config service.

Components that change configuration state publish events; the HTTP server
streams them to clients over SSE and tests use them to observe background
activity without polling the filesystem.

# Architecture

Subscribers registered with Subscribe or SubscribeAll are called directly, so
they receive the typed Data values below. Every published event is also
marshaled to JSON and forwarded to a watermill GoChannel on Topic; Messages
returns a subscription to that stream.

# Event Types

  - config.updated: a key was changed through SetValue (ConfigUpdatedData)
  - client.connected: a client identified itself (ClientConnectedData)
  - config.saved: the config file was written (ConfigSavedData)
  - config.save_failed: a background save failed (ConfigSaveFailedData)

# Usage

	bus := event.NewBus()
	unsub := bus.Subscribe(event.ConfigUpdated, func(e event.Event) {
		data := e.Data.(event.ConfigUpdatedData)
		fmt.Println(data.Key, data.Value)
	})
	defer unsub()

Publish delivers asynchronously, one goroutine per subscriber. There is no
process-wide bus: the command that wires the service creates one Bus and
hands it to every component.
*/
package event
