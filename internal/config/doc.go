// Package config loads declarative pipeline definitions into a raw,
// format-agnostic document and performs structural validation on it.
//
// The document is deliberately loosely typed (a nested map). Decoding it
// into the strict pipeline model, including default filling, is the job of
// the pipeline package; semantic checks over stage dependencies live in the
// graph package. This package only answers two questions: "could the file
// be decoded at all?" and "does the document have the right shape?".
package config
