package db

import (
	"errors"
	"fmt"
	"testing"

	"github.com/go-sql-driver/mysql"
	"github.com/stretchr/testify/assert"
	"gorm.io/gorm"
)

func TestIsUniqueViolation(t *testing.T) {
	cases := []struct {
		name string
		err  error
		want bool
	}{
		{"nil", nil, false},
		{"translated", fmt.Errorf("insert: %w", gorm.ErrDuplicatedKey), true},
		{"mysql duplicate", &mysql.MySQLError{Number: 1062, Message: "Duplicate entry"}, true},
		{"mysql other", &mysql.MySQLError{Number: 1452, Message: "foreign key"}, false},
		{"sqlite", errors.New("UNIQUE constraint failed: user_matches.user_id1, user_matches.user_id2"), true},
		{"sqlite check", errors.New("CHECK constraint failed: chk_user_matches_order"), false},
		{"not found", gorm.ErrRecordNotFound, false},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.want, IsUniqueViolation(tc.err))
		})
	}
}
