package config

import (
	"fmt"
	"strings"
	"time"

	"k8s.io/apimachinery/pkg/util/validation/field"

	"github.com/Layr-Labs/eigenx-txproof-go/pkg/crypto"
	"github.com/Layr-Labs/eigenx-txproof-go/pkg/digest"
)

// Environment variable names for the txproof CLI and notary
const (
	EnvTxProofDigestAlgorithm  = "TXPROOF_DIGEST_ALGORITHM"
	EnvTxProofSignatureScheme  = "TXPROOF_SIGNATURE_SCHEME"
	EnvTxProofPlatformVersion  = "TXPROOF_PLATFORM_VERSION"
	EnvTxProofSignerType       = "TXPROOF_SIGNER_TYPE"
	EnvTxProofPrivateKey       = "TXPROOF_PRIVATE_KEY"
	EnvTxProofAWSRegion        = "TXPROOF_AWS_REGION"
	EnvTxProofAWSKMSKeyID      = "TXPROOF_AWS_KMS_KEY_ID"
	EnvTxProofPersistenceType  = "TXPROOF_PERSISTENCE_TYPE"
	EnvTxProofBadgerPath       = "TXPROOF_BADGER_PATH"
	EnvTxProofRedisAddress     = "TXPROOF_REDIS_ADDRESS"
	EnvTxProofRedisPassword    = "TXPROOF_REDIS_PASSWORD"
	EnvTxProofRedisDB          = "TXPROOF_REDIS_DB"
	EnvTxProofRedisKeyPrefix   = "TXPROOF_REDIS_KEY_PREFIX"
	EnvTxProofMaxBatchSize     = "TXPROOF_MAX_BATCH_SIZE"
	EnvTxProofBatchTimeout     = "TXPROOF_BATCH_TIMEOUT"
	EnvTxProofSigningRate      = "TXPROOF_SIGNING_RATE"
	EnvTxProofFormat           = "TXPROOF_FORMAT"
	EnvTxProofVerbose          = "TXPROOF_VERBOSE"
	DefaultBadgerPath          = "./txproof-data"
	DefaultPlatformVersion     = 1
	DefaultMaxBatchSize        = 256
	DefaultBatchTimeout        = 200 * time.Millisecond
	maxRedisDB                 = 15
	defaultRedisAddressExample = "localhost:6379"
)

type SignerType string

func (s SignerType) String() string {
	return string(s)
}

const (
	SignerTypeInMemory SignerType = "inMemory"
	SignerTypeAWSKMS   SignerType = "awsKms"
)

var supportedSignerTypes = []SignerType{SignerTypeInMemory, SignerTypeAWSKMS}

// ParseSignerType is case-insensitive.
func ParseSignerType(s string) (SignerType, error) {
	for _, t := range supportedSignerTypes {
		if strings.EqualFold(s, string(t)) {
			return t, nil
		}
	}
	return "", fmt.Errorf("unsupported signer type %q (supported: %s)", s, joinStrings(supportedSignerTypes))
}

type PersistenceType string

func (p PersistenceType) String() string {
	return string(p)
}

const (
	PersistenceTypeMemory PersistenceType = "memory"
	PersistenceTypeBadger PersistenceType = "badger"
	PersistenceTypeRedis  PersistenceType = "redis"
)

var supportedPersistenceTypes = []PersistenceType{PersistenceTypeMemory, PersistenceTypeBadger, PersistenceTypeRedis}

func ParsePersistenceType(s string) (PersistenceType, error) {
	for _, t := range supportedPersistenceTypes {
		if strings.EqualFold(s, string(t)) {
			return t, nil
		}
	}
	return "", fmt.Errorf("unsupported persistence type %q (supported: %s)", s, joinStrings(supportedPersistenceTypes))
}

func joinStrings[T ~string](values []T) string {
	parts := make([]string, len(values))
	for i, v := range values {
		parts[i] = string(v)
	}
	return strings.Join(parts, ", ")
}

// SignerConfig selects where batch signatures come from.
type SignerConfig struct {
	Type SignerType `json:"type"`
	// PrivateKey is hex. Empty generates an ephemeral key (inMemory only).
	PrivateKey  string `json:"private_key,omitempty"`
	AWSRegion   string `json:"aws_region,omitempty"`
	AWSKMSKeyID string `json:"aws_kms_key_id,omitempty"`
}

type RedisSettings struct {
	Address   string `json:"address"`
	Password  string `json:"password,omitempty"`
	DB        int    `json:"db"`
	KeyPrefix string `json:"key_prefix,omitempty"`
}

// PersistenceConfig selects the batch store backend.
type PersistenceConfig struct {
	Type       PersistenceType `json:"type"`
	BadgerPath string          `json:"badger_path,omitempty"`
	Redis      RedisSettings   `json:"redis"`
}

type BatchingConfig struct {
	MaxBatchSize int           `json:"max_batch_size"`
	BatchTimeout time.Duration `json:"batch_timeout"`
	// SigningRate is batch signatures per second; 0 is unlimited.
	SigningRate float64 `json:"signing_rate"`
}

// TxProofConfig is the complete configuration of a notary.
type TxProofConfig struct {
	DigestAlgorithm string `json:"digest_algorithm"`
	SignatureScheme string `json:"signature_scheme"`
	PlatformVersion int    `json:"platform_version"`

	Signer      SignerConfig      `json:"signer"`
	Persistence PersistenceConfig `json:"persistence"`
	Batching    BatchingConfig    `json:"batching"`

	Debug bool `json:"debug"`
}

func NewDefaultTxProofConfig() *TxProofConfig {
	return &TxProofConfig{
		DigestAlgorithm: string(digest.DefaultAlgorithm),
		SignatureScheme: crypto.DefaultSignatureScheme.String(),
		PlatformVersion: DefaultPlatformVersion,
		Signer: SignerConfig{
			Type: SignerTypeInMemory,
		},
		Persistence: PersistenceConfig{
			Type:       PersistenceTypeMemory,
			BadgerPath: DefaultBadgerPath,
		},
		Batching: BatchingConfig{
			MaxBatchSize: DefaultMaxBatchSize,
			BatchTimeout: DefaultBatchTimeout,
		},
	}
}

// Scheme parses SignatureScheme.
func (c *TxProofConfig) Scheme() (crypto.SignatureScheme, error) {
	return crypto.ParseSignatureScheme(c.SignatureScheme)
}

// DigestService builds the service named by DigestAlgorithm.
func (c *TxProofConfig) DigestService() (*digest.DigestService, error) {
	return digest.NewDigestService(digest.Algorithm(c.DigestAlgorithm))
}

// Validate reports every problem at once as an aggregate error.
func (c *TxProofConfig) Validate() error {
	var allErrors field.ErrorList

	if !digest.IsSupported(digest.Algorithm(c.DigestAlgorithm)) {
		supported := make([]string, 0)
		for _, alg := range digest.SupportedAlgorithms() {
			supported = append(supported, string(alg))
		}
		allErrors = append(allErrors, field.NotSupported(field.NewPath("digestAlgorithm"), c.DigestAlgorithm, supported))
	}

	scheme, err := c.Scheme()
	if err != nil {
		allErrors = append(allErrors, field.Invalid(field.NewPath("signatureScheme"), c.SignatureScheme, err.Error()))
	}

	if c.PlatformVersion < 0 {
		allErrors = append(allErrors, field.Invalid(field.NewPath("platformVersion"), c.PlatformVersion, "must not be negative"))
	}

	allErrors = append(allErrors, c.Signer.validate(field.NewPath("signer"), scheme)...)
	allErrors = append(allErrors, c.Persistence.validate(field.NewPath("persistence"))...)
	allErrors = append(allErrors, c.Batching.validate(field.NewPath("batching"))...)

	if len(allErrors) > 0 {
		return allErrors.ToAggregate()
	}
	return nil
}

func (s *SignerConfig) validate(path *field.Path, scheme crypto.SignatureScheme) field.ErrorList {
	var allErrors field.ErrorList

	switch s.Type {
	case SignerTypeInMemory:
		if s.AWSKMSKeyID != "" {
			allErrors = append(allErrors, field.Forbidden(path.Child("awsKmsKeyId"), "only valid with the awsKms signer"))
		}
	case SignerTypeAWSKMS:
		if s.AWSKMSKeyID == "" {
			allErrors = append(allErrors, field.Required(path.Child("awsKmsKeyId"), "awsKmsKeyId is required for the awsKms signer"))
		}
		if s.PrivateKey != "" {
			allErrors = append(allErrors, field.Forbidden(path.Child("privateKey"), "private keys stay in KMS"))
		}
		if scheme != crypto.SchemeUnknown && scheme != crypto.ECDSA_SECP256K1_KECCAK256 {
			allErrors = append(allErrors, field.Invalid(path.Child("type"), s.Type, "awsKms signs with "+crypto.ECDSA_SECP256K1_KECCAK256.String()+" only"))
		}
	default:
		allErrors = append(allErrors, field.NotSupported(path.Child("type"), s.Type, []string{string(SignerTypeInMemory), string(SignerTypeAWSKMS)}))
	}

	return allErrors
}

func (p *PersistenceConfig) validate(path *field.Path) field.ErrorList {
	var allErrors field.ErrorList

	switch p.Type {
	case PersistenceTypeMemory:
	case PersistenceTypeBadger:
		if p.BadgerPath == "" {
			allErrors = append(allErrors, field.Required(path.Child("badgerPath"), "badgerPath is required for badger persistence"))
		}
	case PersistenceTypeRedis:
		if p.Redis.Address == "" {
			allErrors = append(allErrors, field.Required(path.Child("redis", "address"), "address is required for redis persistence, e.g. "+defaultRedisAddressExample))
		}
		if p.Redis.DB < 0 || p.Redis.DB > maxRedisDB {
			allErrors = append(allErrors, field.Invalid(path.Child("redis", "db"), p.Redis.DB, fmt.Sprintf("must be between 0-%d", maxRedisDB)))
		}
	default:
		allErrors = append(allErrors, field.NotSupported(path.Child("type"), p.Type, []string{
			string(PersistenceTypeMemory), string(PersistenceTypeBadger), string(PersistenceTypeRedis),
		}))
	}

	return allErrors
}

func (b *BatchingConfig) validate(path *field.Path) field.ErrorList {
	var allErrors field.ErrorList
	if b.MaxBatchSize < 1 {
		allErrors = append(allErrors, field.Invalid(path.Child("maxBatchSize"), b.MaxBatchSize, "must be at least 1"))
	}
	if b.BatchTimeout <= 0 {
		allErrors = append(allErrors, field.Invalid(path.Child("batchTimeout"), b.BatchTimeout.String(), "must be positive"))
	}
	if b.SigningRate < 0 {
		allErrors = append(allErrors, field.Invalid(path.Child("signingRate"), b.SigningRate, "must not be negative"))
	}
	return allErrors
}
