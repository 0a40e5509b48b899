package sanitize

import (
	"regexp"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestClean(t *testing.T) {
	tests := []struct {
		name string
		in   string
		want string
	}{
		{"already safe", "id111_user_John_Doe_1700000000000", "id111_user_John_Doe_1700000000000"},
		{"spaces and dots", "john doe.ovpn", "john_doe_ovpn"},
		{"shell metacharacters", "a;rm -rf /$HOME`x`", "a_rm_-rf___HOME_x_"},
		{"path traversal", "../../etc/passwd", "______etc_passwd"},
		{"cyrillic", "Иван", "____"},
		{"empty", "", ""},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, Clean(tt.in))
		})
	}
}

func TestCleanOutputCharset(t *testing.T) {
	safe := regexp.MustCompile(`^[0-9A-Za-z_-]*$`)
	inputs := []string{
		"plain", "with space", "newline\nhere", "semi;colon", "quote\"'", "tab\tchar",
		"юникод", "mixed id42_Ж", "--flag", "dollar$var",
	}
	for _, in := range inputs {
		out := Clean(in)
		assert.Regexp(t, safe, out, "input %q", in)
		assert.Equal(t, len([]rune(in)), len([]rune(out)), "length must be preserved for %q", in)
	}
}
