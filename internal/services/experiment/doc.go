// Package experiment hosts the variant-assignment service: deterministic
// visitor bucketing, the one-assignment-per-visitor persistence contract,
// and the experiment flag store behind the /config and /assign HTTP APIs.
package experiment
