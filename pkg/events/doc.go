/*
Package events is an in-memory, non-blocking pub/sub broker. The
Notification Dispatcher's push channel publishes here on every state
transition; anything holding a Subscriber gets it fanned out without
coupling the two sides together. Nothing in this repository subscribes
to the broker, and the API server exposes no live stream.

Publish never blocks on a slow subscriber — a subscriber whose buffer
is full silently misses the event rather than stalling the broker.
*/
package events
