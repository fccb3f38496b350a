// Package events publishes best-effort change notifications for task and
// template mutations. Publishers exist for an in-process buffer, Redis lists
// and RabbitMQ queues; failures are logged and never surface to callers.
package events
