package dify2o

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestModels_DefaultWhenEmpty(t *testing.T) {
	models := Models(nil)
	require.Len(t, models, 1)
	require.Equal(t, DefaultModelID, models[0].ID)
	require.Equal(t, "dify", models[0].OwnedBy)
}

func TestModels_TrimAndDedup(t *testing.T) {
	models := Models([]string{" gpt-4o ", "", "gpt-4o", "dify-app"})
	require.Len(t, models, 2)
	require.Equal(t, "gpt-4o", models[0].ID)
	require.Equal(t, "dify-app", models[1].ID)
}
