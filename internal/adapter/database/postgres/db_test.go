package postgres

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestOpenRequiresURL(t *testing.T) {
	db, err := Open(context.Background(), "")

	assert.Nil(t, db)
	assert.ErrorIs(t, err, ErrNoURL)
}
