// Package codec encodes the frames exchanged between control nodes.
//
// Frames are CBOR with Core Deterministic Encoding: sorted map keys and
// shortest integer forms, so the same snapshot always produces the same
// bytes. Struct fields use `cbor` tags.
package codec
