package main

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"gavel/api"
)

func TestArgsValidate(t *testing.T) {
	valid := Args{
		ServerURL: "0.0.0.0:8080",
		ServerConfig: api.ServerConfig{
			Redis:   api.RedisConfig{Addr: "localhost:6379"},
			Payment: api.PaymentConfig{GatewayURL: "http://localhost:8081"},
		},
	}

	tests := []struct {
		name   string
		mutate func(a *Args)
		want   bool
	}{
		{
			name:   "complete",
			mutate: func(a *Args) {},
			want:   true,
		},
		{
			name:   "missing server url",
			mutate: func(a *Args) { a.ServerURL = "" },
			want:   false,
		},
		{
			name:   "missing redis addr",
			mutate: func(a *Args) { a.ServerConfig.Redis.Addr = "" },
			want:   false,
		},
		{
			name:   "missing gateway url",
			mutate: func(a *Args) { a.ServerConfig.Payment.GatewayURL = "" },
			want:   false,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			args := valid
			tt.mutate(&args)
			assert.Equal(t, tt.want, args.Validate())
		})
	}
}
