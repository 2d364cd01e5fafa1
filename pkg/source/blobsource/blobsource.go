// Package blobsource lists and reads pipeline inputs stored in Azure Blob
// Storage. Inputs are addressed as azblob://container/prefix.
package blobsource

import (
	"context"
	"fmt"
	"io"
	"net/url"
	"strings"

	"github.com/Azure/azure-sdk-for-go/sdk/azcore"
	"github.com/Azure/azure-sdk-for-go/sdk/azcore/to"
	"github.com/Azure/azure-sdk-for-go/sdk/storage/azblob"
	"go.uber.org/zap"
)

// Scheme prefixes blob input locations.
const Scheme = "azblob://"

// Azurite well-known development account, used for UseDevelopmentStorage=true.
const (
	devAccountName = "devstoreaccount1"
	devAccountKey  = "Eby8vdM02xNOcqFlqUwJPLlmEtlCDXJ1OUzFT50uSRZ6IFsuFq2UVErCz4I6tq/K1SZFPTOtr/KBHBeksoGMGw=="
	devEndpoint    = "http://127.0.0.1:10000/devstoreaccount1"
)

// Location is a container and a blob name prefix.
type Location struct {
	Container string
	Prefix    string
}

func (l Location) String() string {
	return Scheme + l.Container + "/" + l.Prefix
}

// IsLocation reports whether raw uses the blob scheme.
func IsLocation(raw string) bool {
	return strings.HasPrefix(raw, Scheme)
}

// ParseLocation parses azblob://container[/prefix].
func ParseLocation(raw string) (Location, error) {
	if !IsLocation(raw) {
		return Location{}, fmt.Errorf("blob location must start with %s: %q", Scheme, raw)
	}
	rest := strings.TrimPrefix(raw, Scheme)
	container, prefix, _ := strings.Cut(rest, "/")
	if container == "" {
		return Location{}, fmt.Errorf("blob location has no container: %q", raw)
	}
	prefix, err := url.PathUnescape(prefix)
	if err != nil {
		return Location{}, fmt.Errorf("blob location %q: %w", raw, err)
	}
	return Location{Container: container, Prefix: prefix}, nil
}

// Client reads blobs with a shared-key credential. Plain HTTP endpoints are
// allowed so local Azurite instances work.
type Client struct {
	client     *azblob.Client
	serviceURL string
	logger     *zap.Logger
}

// NewClient creates a client from a standard storage connection string.
func NewClient(connectionString string, logger *zap.Logger) (*Client, error) {
	if connectionString == "" {
		return nil, fmt.Errorf("connection string is required")
	}
	if logger == nil {
		logger = zap.NewNop()
	}

	params := parseConnectionString(connectionString)
	if strings.EqualFold(params["UseDevelopmentStorage"], "true") {
		params["AccountName"] = devAccountName
		params["AccountKey"] = devAccountKey
		params["BlobEndpoint"] = devEndpoint
	}
	accountName := params["AccountName"]
	accountKey := params["AccountKey"]
	serviceURL := params["BlobEndpoint"]
	if accountName == "" || accountKey == "" {
		return nil, fmt.Errorf("account name and key are required in the connection string")
	}
	if serviceURL == "" {
		suffix := params["EndpointSuffix"]
		if suffix == "" {
			suffix = "core.windows.net"
		}
		serviceURL = fmt.Sprintf("https://%s.blob.%s", accountName, suffix)
	}

	credential, err := azblob.NewSharedKeyCredential(accountName, accountKey)
	if err != nil {
		return nil, fmt.Errorf("failed to create shared key credential: %w", err)
	}

	var opts *azblob.ClientOptions
	if strings.HasPrefix(strings.ToLower(serviceURL), "http://") {
		opts = &azblob.ClientOptions{
			ClientOptions: azcore.ClientOptions{InsecureAllowCredentialWithHTTP: true},
		}
	}
	client, err := azblob.NewClientWithSharedKeyCredential(serviceURL, credential, opts)
	if err != nil {
		return nil, fmt.Errorf("failed to create blob client: %w", err)
	}

	return &Client{
		client:     client,
		serviceURL: strings.TrimRight(serviceURL, "/"),
		logger:     logger,
	}, nil
}

// ServiceURL returns the blob endpoint the client talks to.
func (c *Client) ServiceURL() string {
	return c.serviceURL
}

// List returns the names of the blobs under loc, in service order.
func (c *Client) List(ctx context.Context, loc Location) ([]string, error) {
	var opts *azblob.ListBlobsFlatOptions
	if loc.Prefix != "" {
		opts = &azblob.ListBlobsFlatOptions{Prefix: to.Ptr(loc.Prefix)}
	}

	var names []string
	pager := c.client.NewListBlobsFlatPager(loc.Container, opts)
	for pager.More() {
		page, err := pager.NextPage(ctx)
		if err != nil {
			return nil, fmt.Errorf("list %s: %w", loc, err)
		}
		for _, item := range page.Segment.BlobItems {
			if item.Name != nil {
				names = append(names, *item.Name)
			}
		}
	}
	c.logger.Debug("listed blobs", zap.Stringer("location", loc), zap.Int("count", len(names)))
	return names, nil
}

// Open streams the content of one blob. The caller closes the reader.
func (c *Client) Open(ctx context.Context, container, name string) (io.ReadCloser, error) {
	resp, err := c.client.DownloadStream(ctx, container, name, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to download blob %s/%s: %w", container, name, err)
	}
	return resp.Body, nil
}

func parseConnectionString(connectionString string) map[string]string {
	parts := strings.Split(connectionString, ";")
	params := make(map[string]string, len(parts))
	for _, part := range parts {
		key, value, ok := strings.Cut(strings.TrimSpace(part), "=")
		if !ok || key == "" {
			continue
		}
		params[key] = value
	}
	return params
}
