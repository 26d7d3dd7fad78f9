package document_repo

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"sigfarma/internal/core/apperror"
)

func TestParseOrderBy(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{"", "date DESC"},
		{"date", "date ASC"},
		{"-date", "date DESC"},
		{"+number", "number ASC"},
		{"-created_at", "created_at DESC"},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got, err := parseOrderBy(tt.in)
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}

	for _, bad := range []string{"total; DROP TABLE sales", "-", "payment_method"} {
		_, err := parseOrderBy(bad)
		assert.True(t, apperror.HasCode(err, apperror.CodeValidation), bad)
	}
}
