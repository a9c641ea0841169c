package store

import (
	"context"
	"io"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newFileBlob(t *testing.T) (*GocloudBlob, string) {
	t.Helper()

	dir := t.TempDir()
	b, err := NewGocloudBlob(context.Background(), "file://"+dir)
	require.NoError(t, err)
	t.Cleanup(func() { _ = b.Close() })

	return b, dir
}

func TestGocloudBlob_LocalFile(t *testing.T) {
	ctx := context.Background()
	b, dir := newFileBlob(t)

	content := []byte("Hello, gocloud.dev!")

	info, err := b.Upload(ctx, "mycontainer", "dir/a.txt", content, false)
	require.NoError(t, err)
	assert.Equal(t, int64(len(content)), info.BytesTransferred)

	// containers are top-level directories of the bucket
	_, err = os.Stat(filepath.Join(dir, "mycontainer", "dir", "a.txt"))
	require.NoError(t, err)

	r, err := b.Download(ctx, "mycontainer", "dir/a.txt")
	require.NoError(t, err)
	got, err := io.ReadAll(r)
	require.NoError(t, err)
	require.NoError(t, r.Close())
	assert.Equal(t, content, got)

	props, err := b.Properties(ctx, "mycontainer", "dir/a.txt")
	require.NoError(t, err)
	assert.Equal(t, "mycontainer", props.Container)
	assert.Equal(t, "dir/a.txt", props.Name)
	assert.Equal(t, int64(len(content)), props.Size)

	_, err = b.Delete(ctx, "mycontainer", "dir/a.txt")
	require.NoError(t, err)

	_, err = b.Properties(ctx, "mycontainer", "dir/a.txt")
	require.Error(t, err)
	assert.True(t, NotFound(err))
}

func TestGocloudBlob_Overwrite(t *testing.T) {
	ctx := context.Background()
	b, _ := newFileBlob(t)

	_, err := b.Upload(ctx, "c1", "a.txt", []byte("one"), false)
	require.NoError(t, err)

	_, err = b.Upload(ctx, "c1", "a.txt", []byte("two"), false)
	require.ErrorIs(t, err, ErrBlobExists)
	assert.True(t, Exists(err))

	_, err = b.Upload(ctx, "c1", "a.txt", []byte("three"), true)
	require.NoError(t, err)

	r, err := b.Download(ctx, "c1", "a.txt")
	require.NoError(t, err)
	defer r.Close()
	got, err := io.ReadAll(r)
	require.NoError(t, err)
	assert.Equal(t, "three", string(got))
}

func TestGocloudBlob_List(t *testing.T) {
	ctx := context.Background()

	b, err := NewGocloudBlob(ctx, "mem://")
	require.NoError(t, err)
	defer b.Close()

	for _, key := range []string{"logs/2024/a.log", "logs/2024/b.log", "logs/2025/c.log", "other.txt"} {
		_, err := b.Upload(ctx, "c1", key, []byte(key), true)
		require.NoError(t, err)
	}
	_, err = b.Upload(ctx, "c2", "logs/2024/z.log", []byte("z"), true)
	require.NoError(t, err)

	names := func(prefix string) []string {
		var out []string
		for info, err := range b.List(ctx, "c1", prefix) {
			require.NoError(t, err)
			assert.Equal(t, "c1", info.Container)
			out = append(out, info.Name)
		}
		return out
	}

	assert.Equal(t, []string{"logs/2024/a.log", "logs/2024/b.log"}, names("logs/2024/"))
	assert.Equal(t, []string{"logs/2024/a.log", "logs/2024/b.log", "logs/2025/c.log", "other.txt"}, names(""))
	assert.Empty(t, names("missing/"))

	// the sequence can be stopped early and listed again
	for range b.List(ctx, "c1", "") {
		break
	}
	assert.Equal(t, names("logs/"), names("logs/"))
}

func TestGocloudBlob_DownloadMissing(t *testing.T) {
	b, _ := newFileBlob(t)

	_, err := b.Download(context.Background(), "c1", "missing.txt")
	require.Error(t, err)
	assert.True(t, NotFound(err))
}

func TestGocloudBlob_Interface(t *testing.T) {
	// This test ensures that GocloudBlob properly implements the Blob interface
	var _ Blob = (*GocloudBlob)(nil)
}

func TestOpen(t *testing.T) {
	ctx := context.Background()

	b, err := Open(ctx, Config{BucketURL: "mem://"})
	require.NoError(t, err)
	require.IsType(t, (*GocloudBlob)(nil), b)
	require.NoError(t, b.Close())

	_, err = Open(ctx, Config{BucketURL: "nope://bucket"})
	require.Error(t, err)

	_, err = Open(ctx, Config{})
	require.ErrorIs(t, err, ErrMissingAccountName)
}
