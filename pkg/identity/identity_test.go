package identity

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestNormalize(t *testing.T) {
	cases := map[string]string{
		"user_2abc":                              "user_2abc",
		"https://clerk.example.dev|user_2abc":    "user_2abc",
		"a|b|user_2abc":                          "user_2abc",
		"  user_2abc  ":                          "user_2abc",
		"":                                       "",
		"https://clerk.example.dev|":             "",
	}
	for in, want := range cases {
		t.Run(in, func(t *testing.T) {
			assert.Equal(t, want, Normalize(in))
		})
	}
}
