// Package fleetmq implements a client for a minimal MQTT 3.1.1 subset
// used as the coordination fabric for a camera fleet and a drone fleet
// (see the broker, camera, and drone packages).
//
// The wire codec supports exactly seven packet kinds — CONNECT,
// CONNACK, PUBLISH, PUBACK, SUBSCRIBE, SUBACK, DISCONNECT — with a
// single-byte remaining-length field and no retained messages, QoS 2,
// keep-alive ping, or wildcard topic filters.
//
// # Quick start
//
//	client, err := fleetmq.Dial(context.Background(), "localhost:1883",
//	    fleetmq.WithClientID("camera-1"),
//	    fleetmq.WithCredentials("sistema-monitoreo", "rustx123"))
//	if err != nil {
//	    log.Fatal(err)
//	}
//	defer client.Disconnect(context.Background())
//
//	token := client.Publish("cam", []byte("hello"), fleetmq.AtLeastOnce)
//	if err := token.Wait(context.Background()); err != nil {
//	    log.Printf("publish failed: %v", err)
//	}
//
// Publish and Subscribe return a Token; QoS 1 operations retry up to 5
// times at a 1 second interval before failing with
// ErrMaxRetriesExceeded. Receive delivers PUBLISH messages arriving on
// subscribed topics until the connection closes.
package fleetmq
