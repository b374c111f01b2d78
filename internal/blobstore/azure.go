package blobstore

import (
	"context"
	"fmt"
	"net/url"
	"strings"

	"github.com/Azure/azure-sdk-for-go/sdk/storage/azblob"
)

// AzureStore uploads blobs to an Azure Storage container authorized by a SAS token.
type AzureStore struct {
	client     *azblob.Client
	serviceURL string
	container  string
	token      string
}

// NewAzureStore creates a store for serviceURL (https://<account>.blob.core.windows.net).
// token is the SAS query string, with or without a leading '?'.
func NewAzureStore(serviceURL, container, token string) (*AzureStore, error) {
	if container == "" {
		return nil, fmt.Errorf("container name is required")
	}
	serviceURL = strings.TrimRight(serviceURL, "/")
	if _, err := url.ParseRequestURI(serviceURL); err != nil {
		return nil, fmt.Errorf("invalid blob service URL: %w", err)
	}
	token = strings.TrimPrefix(token, "?")

	client, err := azblob.NewClientWithNoCredential(serviceURL+"/?"+token, nil)
	if err != nil {
		return nil, fmt.Errorf("create blob client: %w", err)
	}

	return &AzureStore{
		client:     client,
		serviceURL: serviceURL,
		container:  container,
		token:      token,
	}, nil
}

// Put uploads data and returns <service>/<container>/<name>?<token>.
func (s *AzureStore) Put(ctx context.Context, name string, data []byte) (string, error) {
	if name == "" {
		return "", fmt.Errorf("blob name is required")
	}
	if _, err := s.client.UploadBuffer(ctx, s.container, name, data, nil); err != nil {
		return "", fmt.Errorf("upload blob %s: %w", name, err)
	}
	return s.blobURL(name), nil
}

func (s *AzureStore) blobURL(name string) string {
	u := fmt.Sprintf("%s/%s/%s", s.serviceURL, s.container, url.PathEscape(name))
	if s.token != "" {
		u += "?" + s.token
	}
	return u
}

var _ Store = (*AzureStore)(nil)
