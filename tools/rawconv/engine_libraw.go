//go:build libraw

package main

import (
	"github.com/cocosip/go-raw-codec/raw"
	"github.com/cocosip/go-raw-codec/raw/libraw"
)

func newEngine() (raw.Engine, error) {
	return libraw.New(), nil
}
