package server

import "time"

type HttpConfig struct {
	Host string `conf:"host"`
	Port int    `conf:"port" validate:"gte=0,lte=65535"`
	H2c  bool   `conf:"h2c"`

	// ReadTimeout bounds reading a full request, including the body
	ReadTimeout time.Duration `conf:"read_timeout"`

	// WriteTimeout bounds writing the response, which includes the
	// time spent removing the background
	WriteTimeout time.Duration `conf:"write_timeout"`
}
