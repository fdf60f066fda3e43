// Package observability records schedule mutations in a JSON Lines event
// log and derives activity metrics and schedule health alerts from it.
package observability
