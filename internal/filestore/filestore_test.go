package filestore

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDiskService_RoundTrip(t *testing.T) {
	svc := NewDiskService(t.TempDir())
	ctx := context.Background()

	require.NoError(t, svc.Save(ctx, "obj-1", "avatar.png", []byte("image-bytes")))

	data, err := svc.Fetch(ctx, "obj-1", "avatar.png")
	require.NoError(t, err)
	assert.Equal(t, []byte("image-bytes"), data)

	require.NoError(t, svc.Delete(ctx, "obj-1", "avatar.png"))
	_, err = svc.Fetch(ctx, "obj-1", "avatar.png")
	assert.Error(t, err)
}

func TestDiskService_OverwriteKeepsLatest(t *testing.T) {
	svc := NewDiskService(t.TempDir())
	ctx := context.Background()

	require.NoError(t, svc.Save(ctx, "obj-1", "export.json", []byte("v1")))
	require.NoError(t, svc.Save(ctx, "obj-1", "export.json", []byte("v2")))

	data, err := svc.Fetch(ctx, "obj-1", "export.json")
	require.NoError(t, err)
	assert.Equal(t, []byte("v2"), data)
}

func TestDiskService_ObjectsAreIsolated(t *testing.T) {
	svc := NewDiskService(t.TempDir())
	ctx := context.Background()

	require.NoError(t, svc.Save(ctx, "obj-1", "doc.txt", []byte("one")))
	require.NoError(t, svc.Save(ctx, "obj-2", "doc.txt", []byte("two")))

	data, err := svc.Fetch(ctx, "obj-2", "doc.txt")
	require.NoError(t, err)
	assert.Equal(t, []byte("two"), data)
}

func TestDiskService_RejectsTraversal(t *testing.T) {
	svc := NewDiskService(t.TempDir())
	ctx := context.Background()

	// Names are flattened to their base; a traversing object id must not
	// escape the base dir
	err := svc.Save(ctx, "..", "secrets.txt", []byte("nope"))
	assert.Error(t, err)

	// A traversing name is reduced to its base and stays inside
	require.NoError(t, svc.Save(ctx, "obj-1", "../../passwd", []byte("flattened")))
	data, err := svc.Fetch(ctx, "obj-1", "passwd")
	require.NoError(t, err)
	assert.Equal(t, []byte("flattened"), data)
}
