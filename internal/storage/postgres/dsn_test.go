package postgres

import (
	"testing"

	"github.com/roomcraft/roomcraft-backend/config"
	"github.com/stretchr/testify/assert"
)

func TestDSN(t *testing.T) {
	tests := []struct {
		name string
		cfg  config.DatabaseConfig
		want string
	}{
		{
			name: "plain",
			cfg:  config.DatabaseConfig{Host: "db", Port: 5432, User: "postgres", Password: "secret", Name: "roomcraft"},
			want: "host=db port=5432 user=postgres password=secret dbname=roomcraft sslmode=disable",
		},
		{
			name: "empty password",
			cfg:  config.DatabaseConfig{Host: "db", Port: 5433, User: "app", Name: "roomcraft"},
			want: "host=db port=5433 user=app password='' dbname=roomcraft sslmode=disable",
		},
		{
			name: "password with spaces and quotes",
			cfg:  config.DatabaseConfig{Host: "db", Port: 5432, User: "app", Password: `it's a \secret`, Name: "roomcraft"},
			want: `host=db port=5432 user=app password='it\'s a \\secret' dbname=roomcraft sslmode=disable`,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, DSN(&tt.cfg))
		})
	}
}
