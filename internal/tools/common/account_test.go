package common

import "testing"

func TestGetAccountFromArgs(t *testing.T) {
	tests := []struct {
		name     string
		args     map[string]interface{}
		expected string
	}{
		{
			name:     "no account specified returns fallback",
			args:     map[string]interface{}{},
			expected: "default",
		},
		{
			name:     "account specified returns account",
			args:     map[string]interface{}{"account": "work"},
			expected: "work",
		},
		{
			name:     "empty account returns fallback",
			args:     map[string]interface{}{"account": ""},
			expected: "default",
		},
		{
			name:     "nil args returns fallback",
			args:     nil,
			expected: "default",
		},
		{
			name:     "non-string account type returns fallback",
			args:     map[string]interface{}{"account": 123},
			expected: "default",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			result := GetAccountFromArgs(tt.args, "default")
			if result != tt.expected {
				t.Errorf("GetAccountFromArgs() = %v, expected %v", result, tt.expected)
			}
		})
	}
}
