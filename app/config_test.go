package netchat

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func validTestConfig() *Config {
	config := &Config{}
	config.Server = "http://localhost:8080"
	config.Username = "alice"
	config.SQLite.File = "./netchat.db"
	config.Credentials.File = "./credentials.json"
	return config
}

func TestConfigValidate(t *testing.T) {
	require.NoError(t, validTestConfig().Validate())

	missing := validTestConfig()
	missing.Username = ""
	err := missing.Validate()
	require.Error(t, err)
	assert.Contains(t, FormatValidationErrors(err), "username")

	badURL := validTestConfig()
	badURL.Server = "localhost:8080"
	assert.Error(t, badURL.Validate())
}

func TestConfigWSURL(t *testing.T) {
	tests := []struct {
		server string
		want   string
	}{
		{server: "http://localhost:8080", want: "ws://localhost:8080/ws"},
		{server: "http://localhost:8080/", want: "ws://localhost:8080/ws"},
		{server: "https://chat.example.com", want: "wss://chat.example.com/ws"},
	}
	for _, tc := range tests {
		config := &Config{Server: tc.server}
		assert.Equal(t, tc.want, config.WSURL())
	}
}
