/*
Package notify implements the Notification Dispatcher (spec component
4.G): given a site's enabled NotificationSetting rows, look up the
Notifier for each configured channel and send the message. Per-channel
failures are logged and swallowed — dispatch never propagates a single
notifier's failure back to the Coordinator Scheduler.

Adapters: email (gopkg.in/gomail.v2), chat-a (slack-go/slack), chat-b
and chat-c (a generic outbound HTTP POST, since both are specified only
by their wire shape), and push (this process's in-memory events.Broker,
delivered to whatever in-process Subscribers the broker has).
*/
package notify
