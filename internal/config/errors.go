package config

import "errors"

var (
	errFPSTooLow = errors.New("config: fps must be >= 0.1")
	errNoDataDir = errors.New("config: data_dir must not be empty")
)
