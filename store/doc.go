// Package store is the gateway's embedded persistence layer: request
// logs, tenants, routing feedback, and model health, held in a single
// SQLite file opened in WAL mode. It implements the storage seams
// declared by tenant, bandit, benchmark, and queue so those packages
// stay storage-agnostic.
package store
