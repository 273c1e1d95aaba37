// SPDX-License-Identifier: MPL-2.0

// Package cueutil validates and decodes documents against embedded CUE
// schemas.
//
// Both CUE sources (configuration files) and JSON documents (package
// manifests) go through the same three steps:
//
//  1. Compile the embedded schema and look up its root definition
//  2. Compile or extract the user document and unify it with the schema
//  3. Validate and decode into a Go value
//
// # Usage
//
//	//go:embed manifest_schema.cue
//	var schema []byte
//
//	res, err := cueutil.DecodeJSON[rawManifest](schema, data, "#Manifest",
//	    cueutil.WithFilename("/pkg/package.json"))
//	if err != nil {
//	    return nil, err // includes the JSON path of the offending field
//	}
package cueutil
