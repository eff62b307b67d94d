package filestore

import (
	"context"
	"io"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/erasmushub/erasmushub/core"
)

func TestStorages(t *testing.T) {
	disk, err := NewDisk(t.TempDir())
	require.NoError(t, err)

	for name, store := range map[string]core.FileStorage{"disk": disk, "memory": NewMemory()} {
		t.Run(name, func(t *testing.T) {
			ctx := context.Background()

			ref, err := store.Save(ctx, "20240502_093000_abcd1234_cv.pdf", strings.NewReader("%PDF-1.4"))
			require.NoError(t, err)
			assert.Equal(t, "20240502_093000_abcd1234_cv.pdf", ref)

			_, err = store.Save(ctx, ref, strings.NewReader("other"))
			assert.Equal(t, ErrExists, err)

			rc, err := store.Open(ctx, ref)
			require.NoError(t, err)
			data, err := io.ReadAll(rc)
			require.NoError(t, err)
			require.NoError(t, rc.Close())
			assert.Equal(t, "%PDF-1.4", string(data))

			require.NoError(t, store.Delete(ctx, ref))
			require.NoError(t, store.Delete(ctx, ref)) // missing is fine

			_, err = store.Open(ctx, ref)
			assert.Equal(t, core.ErrNotFound, err)
		})
	}
}

func TestDisk_rejectsTraversal(t *testing.T) {
	disk, err := NewDisk(t.TempDir())
	require.NoError(t, err)
	ctx := context.Background()

	for _, name := range []string{"", "../escape.pdf", "a/b.pdf", ".hidden"} {
		_, err = disk.Save(ctx, name, strings.NewReader("x"))
		assert.Error(t, err, name)
		_, err = disk.Open(ctx, name)
		assert.Equal(t, core.ErrNotFound, err, name)
	}
}
