package cmd

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/3leaps/nimbusfs/pkg/adapter"
)

func TestWriteFlagsOptions(t *testing.T) {
	t.Run("empty", func(t *testing.T) {
		var wf writeFlags
		opts, err := wf.options()
		require.NoError(t, err)
		assert.Empty(t, opts)
	})

	t.Run("all set", func(t *testing.T) {
		wf := writeFlags{
			visibility:   "public",
			acl:          "bucket-owner-full-control",
			contentType:  "text/csv",
			storageClass: "GLACIER",
			metadata:     map[string]string{"owner": "finance"},
			sse:          "aws:kms",
			kmsKeyID:     "key-1",
		}
		opts, err := wf.options()
		require.NoError(t, err)
		assert.Len(t, opts, 6)
	})

	t.Run("bad visibility", func(t *testing.T) {
		wf := writeFlags{visibility: "hidden"}
		_, err := wf.options()
		assert.ErrorIs(t, err, adapter.ErrInvalidArgument)
	})

	t.Run("kms key requires sse", func(t *testing.T) {
		wf := writeFlags{kmsKeyID: "key-1"}
		_, err := wf.options()
		assert.ErrorIs(t, err, adapter.ErrInvalidArgument)
	})
}
