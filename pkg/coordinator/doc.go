/*
Package coordinator runs the Coordinator Scheduler (spec component
4.E) and Registry Sync (4.F): a one-minute tick per active site that
invokes the Consensus Engine, persists durable status rows, and fires
the Notification Dispatcher on a state change, plus the startup and
per-CRUD bridge between the durable store and the shared store.

This replaces the container orchestration scheduler and manager this
codebase used to carry: same ticker-per-unit shape, same idempotent
add/update/removeSchedule hooks, now aimed at sites instead of
services and nodes.
*/
package coordinator
