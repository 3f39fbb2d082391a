package schemafile

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/surrealdb/surreal-sync-go/internal/types"
)

const exampleSchema = `
version: 1
tables:
  - name: users
    id:   { name: id, type: uuid }
    columns:
      - { name: email, type: { type: var_char, length: 255 } }
      - { name: age,   type: int }
      - { name: balance, type: { type: decimal, precision: 10, scale: 2 } }
      - { name: roles, type: { type: set, values: [admin, member, guest] } }
      - { name: tags, type: { type: array, element: text } }
      - { name: active, type: bool }
`

func TestParseExampleSchema(t *testing.T) {
	schema, err := Parse([]byte(exampleSchema))
	require.NoError(t, err)
	assert.Equal(t, 1, schema.Version)

	users, ok := schema.Table("users")
	require.True(t, ok)
	assert.Equal(t, types.Uuid, users.ID.Type)

	email, ok := users.ColumnType("email")
	require.True(t, ok)
	assert.Equal(t, types.TagVarChar, email.Tag)
	assert.EqualValues(t, 255, email.Length)

	age, ok := users.ColumnType("age")
	require.True(t, ok)
	assert.Equal(t, types.Int32, age)

	balance, ok := users.ColumnType("balance")
	require.True(t, ok)
	assert.Equal(t, types.TagDecimal, balance.Tag)
	assert.EqualValues(t, 10, balance.Precision)
	assert.EqualValues(t, 2, balance.Scale)

	roles, ok := users.ColumnType("roles")
	require.True(t, ok)
	assert.Equal(t, []string{"admin", "member", "guest"}, roles.Values)

	tags, ok := users.ColumnType("tags")
	require.True(t, ok)
	require.NotNil(t, tags.Elem)
	assert.Equal(t, types.Text, *tags.Elem)

	active, ok := users.ColumnType("active")
	require.True(t, ok)
	assert.Equal(t, types.Bool, active)
}

func TestParseRejectsUnparameterizedVarChar(t *testing.T) {
	_, err := Parse([]byte(`
version: 1
tables:
  - name: t
    id: { name: id, type: uuid }
    columns:
      - { name: x, type: var_char }
`))
	require.Error(t, err)
}

func TestParseRejectsMissingTypeKey(t *testing.T) {
	_, err := Parse([]byte(`
version: 1
tables:
  - name: t
    id: { name: id, type: uuid }
    columns:
      - { name: x, type: { length: 10 } }
`))
	require.Error(t, err)
}
