//go:build !libraw

package main

import (
	"errors"

	"github.com/cocosip/go-raw-codec/raw"
)

var errNoEngine = errors.New("built without a RAW engine, rebuild with -tags libraw")

func newEngine() (raw.Engine, error) {
	return nil, errNoEngine
}
