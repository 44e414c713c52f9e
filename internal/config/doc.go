// Package config loads, normalizes, and validates catalogscan's TOML
// configuration.
//
// All runtime knobs live in one explicit Config value that callers pass into
// the pipeline at construction: source and output paths, the inference
// provider and its decoding options, retry and enum policies, the vocabulary
// and normalizer tables, and logging. Use Load to resolve the config path,
// apply defaults and environment fallbacks, expand paths, and validate in one
// step.
package config
