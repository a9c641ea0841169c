package azstore

import (
	"errors"
	"fmt"
	"net"
	"net/url"

	"github.com/Azure/azure-sdk-for-go/sdk/azidentity"
	"github.com/buildkite/azstore/internal/store"
)

// ClientError is returned when the storage client for a call could not be
// built. Kind is one of ErrConfiguration, ErrAuthentication or ErrNetwork and
// Err is the original cause; both match with errors.Is and errors.As.
type ClientError struct {
	Kind        error
	Op          string
	AccountName string
	Err         error
}

func (e *ClientError) Error() string {
	account := e.AccountName
	if account == "" {
		account = "<unset>"
	}
	return fmt.Sprintf("%s: unable to get storage account client for %s: %v: %v", e.Op, account, e.Kind, e.Err)
}

func (e *ClientError) Unwrap() []error {
	return []error{e.Kind, e.Err}
}

// classify picks the ClientError kind for a client construction failure.
func classify(err error) error {
	var authErr *azidentity.AuthenticationFailedError
	if errors.As(err, &authErr) || errors.Is(err, store.ErrCredential) {
		return ErrAuthentication
	}

	var (
		netErr net.Error
		urlErr *url.Error
		opErr  *net.OpError
		dnsErr *net.DNSError
	)
	switch {
	// *url.Error satisfies net.Error, parse failures are still configuration
	case errors.As(err, &urlErr) && urlErr.Op == "parse":
		return ErrConfiguration
	case errors.As(err, &dnsErr), errors.As(err, &opErr), errors.As(err, &netErr):
		return ErrNetwork
	}

	return ErrConfiguration
}
