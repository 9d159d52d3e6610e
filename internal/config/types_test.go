package config

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestDatabaseConfigDSN(t *testing.T) {
	tests := []struct {
		name     string
		config   DatabaseConfig
		expected string
	}{
		{
			name: "plain values",
			config: DatabaseConfig{
				Host: "localhost", Port: 5432, User: "postgres",
				Password: "secret", Name: "assessgate", SSLMode: "disable",
			},
			expected: "host='localhost' user='postgres' password='secret' dbname='assessgate' port=5432 sslmode='disable'",
		},
		{
			name: "empty password",
			config: DatabaseConfig{
				Host: "db", Port: 5433, User: "app", Name: "exam", SSLMode: "require",
			},
			expected: "host='db' user='app' password='' dbname='exam' port=5433 sslmode='require'",
		},
		{
			name: "quotes and spaces are escaped",
			config: DatabaseConfig{
				Host: "db", Port: 5432, User: "app",
				Password: `it's a \pass`, Name: "exam", SSLMode: "disable",
			},
			expected: `host='db' user='app' password='it\'s a \\pass' dbname='exam' port=5432 sslmode='disable'`,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, tt.config.DSN())
		})
	}
}
