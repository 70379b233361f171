/*
Package main runs the built-in ingestion scenarios against a live LocalEGA
deployment.

# Package Structure

	test/e2e/
	├── main.go   Entry point: flags, config, Ginkgo runner
	├── tests.go  One spec per built-in scenario
	└── doc.go    This file

# Collaborators

Every spec shares one scenario.Runner built by harness.Harness, the same
wiring the lega-e2e commands use:

	┌────────────┐  publish   ┌─────────────┐
	│  Runner    │───────────▶│  CEGA MQ    │
	│            │            └──────┬──────┘
	│            │                   ▼
	│            │  poll      ┌─────────────┐
	│            │───────────▶│  LEGA DB    │
	│            │            └─────────────┘
	│            │  count,    ┌─────────────┐
	│            │  download  │             │
	│            │───────────▶│  S3 archive │ (only with -s3-endpoint)
	└────────────┘            └─────────────┘

Broker credentials come from the trace file when -broker-url has none and
the vhost defaults to -instance. Archive keys fall back to the trace too.
Attempts are journaled to an in-memory DuckDB unless -keep-results is set.

# Infrastructure

The keyserver and restart scenarios stop and start containers through
infra.Manager, selected with -infra-mode:
  - container: Podman, reached through -podman-socket (default).
  - external: the deployment is managed elsewhere. Scenarios that stop or
    restart components are skipped with the reason.

# Running

	go run ./test/e2e -file dummy/sample.c4ga -raw-checksum <md5> -enc-checksum <md5>
	go run ./test/e2e -file ... --ginkgo.label-filter=ingest-missing-file
*/
package main
