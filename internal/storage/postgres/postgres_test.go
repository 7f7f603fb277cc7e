package postgres

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestSQLOperation(t *testing.T) {
	assert.Equal(t, "select", sqlOperation(`
		SELECT id FROM articles
	`))
	assert.Equal(t, "insert", sqlOperation("INSERT INTO articles (id) VALUES ($1)"))
	assert.Equal(t, "update", sqlOperation("update articles set title = $1"))
	assert.Equal(t, "unknown", sqlOperation("   "))
}
