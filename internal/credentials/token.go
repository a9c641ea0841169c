package credentials

import (
	"fmt"

	"github.com/Azure/azure-sdk-for-go/sdk/azcore"
	"github.com/Azure/azure-sdk-for-go/sdk/azidentity"
)

// TokenCredentialFactory builds the azcore.TokenCredential handed to the blob client.
type TokenCredentialFactory func(creds Credentials) (azcore.TokenCredential, error)

// DefaultTokenCredentialFactory uses a client secret credential when the
// service principal is complete, otherwise Azure's default credential chain
// (environment, workload identity, managed identity, Azure CLI) scoped to the
// resolved tenant if there is one.
func DefaultTokenCredentialFactory(creds Credentials) (azcore.TokenCredential, error) {
	if creds.Complete() {
		cred, err := azidentity.NewClientSecretCredential(creds.TenantID, creds.ClientID, creds.ClientSecret, nil)
		if err != nil {
			return nil, fmt.Errorf("failed to create client secret credential: %w", err)
		}
		return cred, nil
	}

	cred, err := azidentity.NewDefaultAzureCredential(&azidentity.DefaultAzureCredentialOptions{
		TenantID: creds.TenantID,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create default azure credential: %w", err)
	}

	return cred, nil
}
