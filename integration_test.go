//go:build integration

package azstore

import (
	"context"
	"net/url"
	"os"
	"path/filepath"
	"testing"

	"github.com/Azure/azure-sdk-for-go/sdk/storage/azblob"
	"github.com/stretchr/testify/require"
	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/modules/azure/azurite"
)

// startAzurite runs a blob-only Azurite emulator with the given containers
// created and returns its service URL.
func startAzurite(t *testing.T, containers ...string) string {
	t.Helper()

	ctx := context.Background()
	is := require.New(t)

	ctr, err := azurite.Run(ctx, "mcr.microsoft.com/azure-storage/azurite:latest",
		azurite.WithEnabledServices(azurite.BlobService),
	)
	testcontainers.CleanupContainer(t, ctr)
	is.NoError(err)

	ep, err := ctr.BlobServiceURL(ctx)
	is.NoError(err)

	serviceURL, err := url.JoinPath(ep, azurite.AccountName)
	is.NoError(err)

	cred, err := azblob.NewSharedKeyCredential(azurite.AccountName, azurite.AccountKey)
	is.NoError(err)

	client, err := azblob.NewClientWithSharedKeyCredential(serviceURL, cred, nil)
	is.NoError(err)

	for _, name := range containers {
		_, err = client.CreateContainer(ctx, name, nil)
		is.NoError(err)
	}

	return serviceURL
}

func TestAzuriteRoundTrip(t *testing.T) {
	assert := require.New(t)
	ctx := context.Background()

	serviceURL := startAzurite(t, "mycontainer")

	gw, err := NewGateway(Config{
		AccountName: azurite.AccountName,
		AccountKey:  azurite.AccountKey,
		ServiceURL:  serviceURL,
		Env:         map[string]string{},
	})
	assert.NoError(err)

	dir := t.TempDir()
	local := filepath.Join(dir, "a b.txt")
	assert.NoError(os.WriteFile(local, []byte("hello azurite"), 0o600))

	outcomes, err := gw.UploadFiles(ctx, []UploadItem{{LocalPath: local, UploadPath: "mycontainer/dir/a b.txt"}}, false)
	assert.NoError(err)
	assert.NoError(BatchError(outcomes))
	assert.NotEmpty(outcomes[0].Result.ETag)
	assert.NotEmpty(outcomes[0].Result.Transfer.RequestID)

	_, err = gw.UploadFile(ctx, local, "mycontainer/dir/a b.txt", false)
	assert.True(IsBlobExists(err))

	info, err := gw.GetFileInfo(ctx, "mycontainer:dir/a b.txt")
	assert.NoError(err)
	assert.Equal(int64(len("hello azurite")), info.Size)

	var names []string
	for blob, err := range gw.List(ctx, "mycontainer/dir/") {
		assert.NoError(err)
		names = append(names, blob.Name)
	}
	assert.Equal([]string{"dir/a b.txt"}, names)

	folder := t.TempDir()
	downloads, err := gw.DownloadFiles(ctx, []string{"mycontainer/dir/a b.txt"}, folder, true)
	assert.NoError(err)
	assert.NoError(BatchError(downloads))

	content, err := os.ReadFile(filepath.Join(folder, "mycontainer", "dir", "a-b.txt"))
	assert.NoError(err)
	assert.Equal("hello azurite", string(content))

	_, err = gw.DeleteFile(ctx, "mycontainer/dir/a b.txt")
	assert.NoError(err)

	_, err = gw.GetFileInfo(ctx, "mycontainer/dir/a b.txt")
	assert.True(IsNotFound(err))
}
