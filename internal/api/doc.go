// Package api exposes the TaskDeck REST interface: login, task CRUD with
// manual ordering, and template management including applying a template to
// create tasks. Routing uses gorilla/mux; every request is tagged with a
// request id, access-logged and recorded in Prometheus metrics.
package api
