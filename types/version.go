package types

// Version is the canonical project version.
// The CLI, the ingestion pipeline, and the alert payload contract share it.
const Version = "0.3.0"

// AlertContractVersion is the version of the alert payload published by adapters.
const AlertContractVersion = "0.1.0"
