// Package libraw binds the LibRaw C library as a raw.Engine. The binding is
// compiled only with the libraw build tag and needs LibRaw's pkg-config file:
//
//	go build -tags libraw ./...
//
// Importing the package registers every known RAW container format in the
// default codec registry.
package libraw
