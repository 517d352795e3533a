package models

import (
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
)

func TestDisplayName(t *testing.T) {
	assert.Equal(t, "Ana Ruiz", (&User{FirstName: "Ana", LastName: "Ruiz"}).DisplayName())
	assert.Equal(t, "Ana", (&User{FirstName: "Ana"}).DisplayName())
	assert.Equal(t, "ana@example.com", (&User{Email: "ana@example.com"}).DisplayName())
}

func TestActorCanManage(t *testing.T) {
	owner := uuid.New()

	assert.True(t, Actor{UserID: owner, Role: RoleUser}.CanManage(owner))
	assert.False(t, Actor{UserID: uuid.New(), Role: RoleUser}.CanManage(owner))
	assert.True(t, Actor{UserID: uuid.New(), Role: RoleAdmin}.CanManage(owner))
}
