// Package services contains the application layer between the HTTP
// handlers and the processing packages. DataService answers analytics
// queries from a cached copy of the clean dataset, OperationsService
// validates and forwards operation requests to the manager, and
// HealthService backs the liveness and readiness probes.
package services
