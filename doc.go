/*
Package fetcher provides a URL fetching service that resolves HTTP(S)
redirect chains and captures response bodies into spillable temp-file
sinks before persisting them to object storage.

The fetcher worker is responsible for:
  - Issuing HTTP(S) requests and following redirect chains manually
  - Detecting circular redirects and enforcing a redirect ceiling
  - Enforcing a size limit on captured bodies via Content-Length
  - Streaming captured bodies into temp-file sinks and rewinding them
    for the caller
  - Persisting captures to object storage (filesystem or S3) with a
    SHA-256 checksum
  - Exposing the worker over HTTP, AWS Lambda (SQS), or RabbitMQ

# Architecture

The repository separates the fetching core from the service shell:

	├── cmd/fetcher/           # Application entry point
	├── internal/
	│   ├── domain/            # Options, results, errors, ports
	│   ├── service/           # Redirect resolver and body capturer
	│   ├── sink/              # Temp-file and in-memory sinks
	│   ├── worker/            # Platform-agnostic fetch worker
	│   └── adapters/
	│       └── http/          # HTTP client adapter
	├── handler/               # Request envelope, middleware, platforms
	├── storage/               # Object storage port, fs and s3 adapters
	├── config/                # Environment configuration
	└── observability/         # Logging and metrics contracts

# Redirect resolution

Redirects are never delegated to net/http. Each response is inspected:
3xx responses with a Location header extend the chain, subject to a
loop check against the visited history and a ceiling on chain length.
Relative Location values are resolved against the scheme and host of
the redirecting URL.

# Usage

The HTTP platform accepts fetch jobs:

	POST /fetch
	Content-Type: application/json

	{
	    "url": "https://provider.com/report.pdf",
	    "max_size_bytes": 10485760,
	    "storage_key": "reports/audit-123.pdf"
	}

The response carries the final URL, status code, checksum, size, and
the storage location of the captured body.
*/
package fetcher
