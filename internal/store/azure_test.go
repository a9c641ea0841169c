package store

import (
	"context"
	"encoding/base64"
	"errors"
	"testing"
	"time"

	"github.com/Azure/azure-sdk-for-go/sdk/azcore"
	"github.com/Azure/azure-sdk-for-go/sdk/azcore/policy"
	"github.com/Azure/azure-sdk-for-go/sdk/storage/azblob/bloberror"
	"github.com/buildkite/azstore/internal/credentials"
	"github.com/stretchr/testify/require"
)

type staticCredential struct{}

func (staticCredential) GetToken(context.Context, policy.TokenRequestOptions) (azcore.AccessToken, error) {
	return azcore.AccessToken{Token: "token", ExpiresOn: time.Now().Add(time.Hour)}, nil
}

func TestServiceURL(t *testing.T) {
	require.Equal(t, "https://myaccount.blob.core.windows.net/", ServiceURL("myaccount"))
}

func TestNewAzureBlob(t *testing.T) {
	t.Run("missing account name", func(t *testing.T) {
		_, err := NewAzureBlob(Config{})
		require.ErrorIs(t, err, ErrMissingAccountName)
	})

	t.Run("token credential from resolved service principal", func(t *testing.T) {
		assert := require.New(t)

		var got credentials.Credentials
		b, err := NewAzureBlob(Config{
			AccountName: "myaccount",
			Credentials: credentials.Credentials{TenantID: "t", ClientID: "c", ClientSecret: "s"},
			TokenCredentialFactory: func(creds credentials.Credentials) (azcore.TokenCredential, error) {
				got = creds
				return staticCredential{}, nil
			},
		})
		assert.NoError(err)
		assert.Equal("https://myaccount.blob.core.windows.net/", b.URL())
		assert.Equal(credentials.Credentials{TenantID: "t", ClientID: "c", ClientSecret: "s"}, got)
		assert.NoError(b.Close())
	})

	t.Run("credential factory failure is returned", func(t *testing.T) {
		boom := errors.New("boom")
		_, err := NewAzureBlob(Config{
			AccountName: "myaccount",
			TokenCredentialFactory: func(credentials.Credentials) (azcore.TokenCredential, error) {
				return nil, boom
			},
		})
		require.ErrorIs(t, err, boom)
		require.ErrorIs(t, err, ErrCredential)
	})

	t.Run("shared key", func(t *testing.T) {
		assert := require.New(t)

		b, err := NewAzureBlob(Config{
			AccountName: "devstoreaccount1",
			AccountKey:  base64.StdEncoding.EncodeToString([]byte("key")),
			ServiceURL:  "http://127.0.0.1:10000/devstoreaccount1",
		})
		assert.NoError(err)
		assert.Equal("http://127.0.0.1:10000/devstoreaccount1", b.URL())
	})

	t.Run("invalid shared key", func(t *testing.T) {
		_, err := NewAzureBlob(Config{
			AccountName: "myaccount",
			AccountKey:  "not base64!",
		})
		require.ErrorIs(t, err, ErrCredential)
		require.Contains(t, err.Error(), "shared key")
	})
}

func TestNotFound(t *testing.T) {
	require.False(t, NotFound(nil))
	require.False(t, NotFound(errors.New("other")))
	require.True(t, NotFound(&azcore.ResponseError{ErrorCode: string(bloberror.BlobNotFound), StatusCode: 404}))
	require.True(t, NotFound(&azcore.ResponseError{ErrorCode: string(bloberror.ContainerNotFound), StatusCode: 404}))
}

func TestExists(t *testing.T) {
	require.True(t, Exists(ErrBlobExists))
	require.True(t, Exists(&azcore.ResponseError{ErrorCode: string(bloberror.BlobAlreadyExists), StatusCode: 409}))
	require.False(t, Exists(errors.New("other")))
}
