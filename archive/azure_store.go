// Copyright 2025 AxonFlow
// SPDX-License-Identifier: BUSL-1.1
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

package archive

import (
	"context"
	"fmt"
	"io"
	"sort"

	"github.com/Azure/azure-sdk-for-go/sdk/azidentity"
	"github.com/Azure/azure-sdk-for-go/sdk/storage/azblob"
	"github.com/Azure/azure-sdk-for-go/sdk/storage/azblob/blob"
	"github.com/Azure/azure-sdk-for-go/sdk/storage/azblob/bloberror"

	"github.com/springborland/egeria/config"
)

// AzureBlobStore archives documents in an Azure Blob Storage container.
// The archive bucket names the container.
type AzureBlobStore struct {
	client    *azblob.Client
	container string
}

// NewAzureBlobStore authenticates, in order of preference, with a
// connection string, an account key, or the default Azure credential.
func NewAzureBlobStore(cfg config.ArchiveSection) (*AzureBlobStore, error) {
	var client *azblob.Client
	var err error

	switch {
	case cfg.ConnectionString != "":
		client, err = azblob.NewClientFromConnectionString(cfg.ConnectionString, nil)
	case cfg.AccountName != "" && cfg.AccountKey != "":
		var cred *azblob.SharedKeyCredential
		cred, err = azblob.NewSharedKeyCredential(cfg.AccountName, cfg.AccountKey)
		if err == nil {
			client, err = azblob.NewClientWithSharedKeyCredential(azureServiceURL(cfg), cred, nil)
		}
	case cfg.AccountName != "":
		var cred *azidentity.DefaultAzureCredential
		cred, err = azidentity.NewDefaultAzureCredential(nil)
		if err == nil {
			client, err = azblob.NewClient(azureServiceURL(cfg), cred, nil)
		}
	default:
		err = fmt.Errorf("connection_string or account_name is required")
	}
	if err != nil {
		return nil, newStoreError("azure", "connect", cfg.Bucket, err)
	}

	return &AzureBlobStore{client: client, container: cfg.Bucket}, nil
}

func azureServiceURL(cfg config.ArchiveSection) string {
	if cfg.Endpoint != "" {
		return cfg.Endpoint
	}
	return fmt.Sprintf("https://%s.blob.core.windows.net/", cfg.AccountName)
}

func (s *AzureBlobStore) Backend() string { return "azure" }

func (s *AzureBlobStore) Put(ctx context.Context, key string, data []byte) error {
	contentType := "application/json"
	_, err := s.client.UploadBuffer(ctx, s.container, key, data, &azblob.UploadBufferOptions{
		HTTPHeaders: &blob.HTTPHeaders{
			BlobContentType: &contentType,
		},
	})
	if err != nil {
		return newStoreError("azure", "put", key, err)
	}
	return nil
}

func (s *AzureBlobStore) Get(ctx context.Context, key string) ([]byte, error) {
	resp, err := s.client.DownloadStream(ctx, s.container, key, nil)
	if err != nil {
		if bloberror.HasCode(err, bloberror.BlobNotFound, bloberror.ContainerNotFound) {
			return nil, newStoreError("azure", "get", key, ErrObjectNotFound)
		}
		return nil, newStoreError("azure", "get", key, err)
	}
	defer func() { _ = resp.Body.Close() }()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, newStoreError("azure", "get", key, err)
	}
	return data, nil
}

func (s *AzureBlobStore) List(ctx context.Context, prefix string) ([]string, error) {
	keys := make([]string, 0)
	pager := s.client.NewListBlobsFlatPager(s.container, &azblob.ListBlobsFlatOptions{
		Prefix: &prefix,
	})
	for pager.More() {
		page, err := pager.NextPage(ctx)
		if err != nil {
			return nil, newStoreError("azure", "list", prefix, err)
		}
		if page.Segment == nil {
			continue
		}
		for _, item := range page.Segment.BlobItems {
			if item.Name != nil {
				keys = append(keys, *item.Name)
			}
		}
	}
	sort.Strings(keys)
	return keys, nil
}
