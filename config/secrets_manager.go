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

package config

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"os"
	"strings"
	"sync"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/secretsmanager"
)

// SecretsManager resolves a secret reference to its key/value fields
type SecretsManager interface {
	GetSecret(ctx context.Context, ref string) (map[string]string, error)
}

// NewSecretsManager builds the provider named in the secrets section
func NewSecretsManager(ctx context.Context, s SecretsSection) (SecretsManager, error) {
	switch s.Provider {
	case "", "env":
		return NewEnvSecretsManager(nil), nil
	case "local":
		return NewLocalSecretsManager(nil), nil
	case "aws":
		return NewAWSSecretsManager(ctx, AWSSecretsManagerOptions{
			Region:   s.Region,
			CacheTTL: time.Duration(s.CacheTTLSeconds) * time.Second,
		})
	}
	return nil, fmt.Errorf("%w: secrets provider '%s' is not supported", ErrInvalidConfig, s.Provider)
}

// ResolveSecretRef returns one field of a secret. A reference has the form
// "<secret>" or "<secret>#<field>"; without a field the "value" field is
// used, or the only field when the secret has exactly one.
func ResolveSecretRef(ctx context.Context, sm SecretsManager, ref string) (string, error) {
	name, field, _ := strings.Cut(ref, "#")
	secret, err := sm.GetSecret(ctx, name)
	if err != nil {
		return "", err
	}

	if field != "" {
		v, ok := secret[field]
		if !ok {
			return "", fmt.Errorf("secret %s has no field %s", maskRef(name), field)
		}
		return v, nil
	}
	if v, ok := secret["value"]; ok {
		return v, nil
	}
	if len(secret) == 1 {
		for _, v := range secret {
			return v, nil
		}
	}
	return "", fmt.Errorf("secret %s has %d fields; name one with #field", maskRef(name), len(secret))
}

// AWSSecretsManager resolves references through AWS Secrets Manager with a TTL cache
type AWSSecretsManager struct {
	client secretsAPI
	cache  map[string]*secretCacheEntry
	mu     sync.RWMutex
	ttl    time.Duration
	logger *log.Logger
}

type secretsAPI interface {
	GetSecretValue(ctx context.Context, params *secretsmanager.GetSecretValueInput, optFns ...func(*secretsmanager.Options)) (*secretsmanager.GetSecretValueOutput, error)
}

type secretCacheEntry struct {
	value     map[string]string
	expiresAt time.Time
}

type AWSSecretsManagerOptions struct {
	Region   string
	CacheTTL time.Duration
	Logger   *log.Logger
}

// NewAWSSecretsManager loads the default AWS credential chain
func NewAWSSecretsManager(ctx context.Context, opts AWSSecretsManagerOptions) (*AWSSecretsManager, error) {
	cfgOpts := []func(*awsconfig.LoadOptions) error{}
	if opts.Region != "" {
		cfgOpts = append(cfgOpts, awsconfig.WithRegion(opts.Region))
	}

	cfg, err := awsconfig.LoadDefaultConfig(ctx, cfgOpts...)
	if err != nil {
		return nil, fmt.Errorf("failed to load AWS config: %w", err)
	}

	return newAWSSecretsManager(secretsmanager.NewFromConfig(cfg), opts), nil
}

func newAWSSecretsManager(client secretsAPI, opts AWSSecretsManagerOptions) *AWSSecretsManager {
	logger := opts.Logger
	if logger == nil {
		logger = log.New(os.Stdout, "[SECRETS_MANAGER] ", log.LstdFlags)
	}
	ttl := opts.CacheTTL
	if ttl <= 0 {
		ttl = 5 * time.Minute
	}
	return &AWSSecretsManager{
		client: client,
		cache:  make(map[string]*secretCacheEntry),
		ttl:    ttl,
		logger: logger,
	}
}

// GetSecret fetches a secret. JSON object secrets are returned field by
// field; any other string is returned under the "value" key.
func (s *AWSSecretsManager) GetSecret(ctx context.Context, ref string) (map[string]string, error) {
	s.mu.RLock()
	entry, exists := s.cache[ref]
	s.mu.RUnlock()

	if exists && time.Now().Before(entry.expiresAt) {
		return entry.value, nil
	}

	result, err := s.client.GetSecretValue(ctx, &secretsmanager.GetSecretValueInput{
		SecretId: aws.String(ref),
	})
	if err != nil {
		return nil, fmt.Errorf("failed to get secret %s: %w", maskRef(ref), err)
	}
	if result.SecretString == nil {
		return nil, fmt.Errorf("secret %s has no string value", maskRef(ref))
	}

	var fields map[string]string
	if err := json.Unmarshal([]byte(*result.SecretString), &fields); err != nil {
		fields = map[string]string{"value": *result.SecretString}
	}

	s.mu.Lock()
	s.cache[ref] = &secretCacheEntry{value: fields, expiresAt: time.Now().Add(s.ttl)}
	s.mu.Unlock()

	s.logger.Printf("Retrieved and cached secret %s", maskRef(ref))
	return fields, nil
}

// InvalidateSecret removes a secret from the cache
func (s *AWSSecretsManager) InvalidateSecret(ref string) {
	s.mu.Lock()
	delete(s.cache, ref)
	s.mu.Unlock()
}

// maskRef shows only the last 8 characters of a secret reference
func maskRef(ref string) string {
	if len(ref) <= 12 {
		return "***"
	}
	return "..." + ref[len(ref)-8:]
}

// LocalSecretsManager holds secrets in memory, for development and tests
type LocalSecretsManager struct {
	secrets map[string]map[string]string
	mu      sync.RWMutex
	logger  *log.Logger
}

func NewLocalSecretsManager(logger *log.Logger) *LocalSecretsManager {
	if logger == nil {
		logger = log.New(os.Stdout, "[LOCAL_SECRETS] ", log.LstdFlags)
	}
	return &LocalSecretsManager{
		secrets: make(map[string]map[string]string),
		logger:  logger,
	}
}

func (s *LocalSecretsManager) GetSecret(_ context.Context, ref string) (map[string]string, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if secret, exists := s.secrets[ref]; exists {
		return secret, nil
	}
	return nil, fmt.Errorf("secret %s not found in local secrets manager", ref)
}

func (s *LocalSecretsManager) SetSecret(ref string, value map[string]string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.secrets[ref] = value
}

// EnvSecretsManager treats a reference as an environment variable prefix:
// "ADMIN" reads ADMIN_TOKEN, ADMIN_JWT_SECRET and the other known fields.
type EnvSecretsManager struct {
	logger *log.Logger
}

func NewEnvSecretsManager(logger *log.Logger) *EnvSecretsManager {
	if logger == nil {
		logger = log.New(os.Stdout, "[ENV_SECRETS] ", log.LstdFlags)
	}
	return &EnvSecretsManager{logger: logger}
}

var envSecretFields = []string{
	"VALUE", "TOKEN", "JWT_SECRET", "USERNAME", "PASSWORD",
	"ACCESS_KEY", "SECRET_KEY", "ACCOUNT_KEY", "CONNECTION_STRING",
}

func (s *EnvSecretsManager) GetSecret(_ context.Context, ref string) (map[string]string, error) {
	fields := make(map[string]string)
	for _, field := range envSecretFields {
		if value := os.Getenv(ref + "_" + field); value != "" {
			fields[strings.ToLower(field)] = value
		}
	}

	if len(fields) == 0 {
		return nil, fmt.Errorf("no secret fields found for prefix %s", ref)
	}

	s.logger.Printf("Loaded %d secret field(s) from environment for %s", len(fields), ref)
	return fields, nil
}
