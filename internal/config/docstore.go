package config

import "github.com/ottohq/otto-gateway/pkg/docstore"

// DocstoreConfig is an alias for the document store's own env-backed
// configuration, kept as a named field on Config so callers never need to
// import pkg/docstore just to read gateway configuration.
type DocstoreConfig = docstore.Config

// LoadDocstoreConfigFromEnv loads the Postgres document-store configuration,
// used when any *_BACKEND is set to "postgres".
func LoadDocstoreConfigFromEnv() (DocstoreConfig, error) {
	return docstore.LoadConfigFromEnv()
}
