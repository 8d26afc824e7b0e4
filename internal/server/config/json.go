package config

import (
	"encoding/json"
	"os"

	"github.com/dmitrijs2005/gophauth/internal/flagx"
	"github.com/dmitrijs2005/gophauth/internal/timex"
)

// JsonConfig mirrors Config for JSON files. Pointer fields distinguish
// "absent" from zero values so that a partial file only overrides what it names.
type JsonConfig struct {
	EndpointAddrGRPC    *string `json:"endpoint_addr_grpc"`
	EndpointAddrMetrics *string `json:"endpoint_addr_metrics"`
	DatabaseDSN         *string `json:"database_dsn"`
	LogLevel            *string `json:"log_level"`

	SecretKey                  *string         `json:"secret_key"`
	TokenIssuer                *string         `json:"token_issuer"`
	TokenAudience              *string         `json:"token_audience"`
	LoginTokenValidityDuration *timex.Duration `json:"login_token_validity_duration"`
	EmailTokenValidityDuration *timex.Duration `json:"email_token_validity_duration"`
	AccessCodeValidityDuration *timex.Duration `json:"access_code_validity_duration"`

	KeySource *string `json:"key_source"`
	KeyBits   *int    `json:"key_bits"`
	KeyPath   *string `json:"key_path"`

	S3RootUser     *string `json:"s3_root_user"`
	S3RootPassword *string `json:"s3_root_password"`
	S3Bucket       *string `json:"s3_bucket"`
	S3Region       *string `json:"s3_region"`
	S3BaseEndpoint *string `json:"s3_base_endpoint"`

	RedisAddr     *string         `json:"redis_addr"`
	RedisPassword *string         `json:"redis_password"`
	NonceTTL      *timex.Duration `json:"nonce_ttl"`

	SMTPHost             *string `json:"smtp_host"`
	SMTPPort             *int    `json:"smtp_port"`
	SMTPUser             *string `json:"smtp_user"`
	SMTPPassword         *string `json:"smtp_password"`
	MailSenderName       *string `json:"mail_sender_name"`
	MailSenderEmail      *string `json:"mail_sender_email"`
	VerificationLinkBase *string `json:"verification_link_base"`
	MailOutboxDir        *string `json:"mail_outbox_dir"`
}

// parseJson overlays values from the file named by -c/-config, if any.
// An unreadable or malformed file panics: the server must not start on a
// half-applied configuration.
func parseJson(config *Config) {

	jsonConfigFile := flagx.JsonConfigFlags()

	// nothing to load
	if jsonConfigFile == "" {
		return
	}

	file, err := os.ReadFile(jsonConfigFile)
	if err != nil {
		panic(err)
	}

	c := &JsonConfig{}
	if err := json.Unmarshal(file, c); err != nil {
		panic(err)
	}

	c.apply(config)
}

func (c *JsonConfig) apply(config *Config) {
	setString(&config.EndpointAddrGRPC, c.EndpointAddrGRPC)
	setString(&config.EndpointAddrMetrics, c.EndpointAddrMetrics)
	setString(&config.DatabaseDSN, c.DatabaseDSN)
	setString(&config.LogLevel, c.LogLevel)

	setString(&config.SecretKey, c.SecretKey)
	setString(&config.TokenIssuer, c.TokenIssuer)
	setString(&config.TokenAudience, c.TokenAudience)
	if c.LoginTokenValidityDuration != nil {
		config.LoginTokenValidityDuration = c.LoginTokenValidityDuration.Duration
	}
	if c.EmailTokenValidityDuration != nil {
		config.EmailTokenValidityDuration = c.EmailTokenValidityDuration.Duration
	}
	if c.AccessCodeValidityDuration != nil {
		config.AccessCodeValidityDuration = c.AccessCodeValidityDuration.Duration
	}

	setString(&config.KeySource, c.KeySource)
	setInt(&config.KeyBits, c.KeyBits)
	setString(&config.KeyPath, c.KeyPath)

	setString(&config.S3RootUser, c.S3RootUser)
	setString(&config.S3RootPassword, c.S3RootPassword)
	setString(&config.S3Bucket, c.S3Bucket)
	setString(&config.S3Region, c.S3Region)
	setString(&config.S3BaseEndpoint, c.S3BaseEndpoint)

	setString(&config.RedisAddr, c.RedisAddr)
	setString(&config.RedisPassword, c.RedisPassword)
	if c.NonceTTL != nil {
		config.NonceTTL = c.NonceTTL.Duration
	}

	setString(&config.SMTPHost, c.SMTPHost)
	setInt(&config.SMTPPort, c.SMTPPort)
	setString(&config.SMTPUser, c.SMTPUser)
	setString(&config.SMTPPassword, c.SMTPPassword)
	setString(&config.MailSenderName, c.MailSenderName)
	setString(&config.MailSenderEmail, c.MailSenderEmail)
	setString(&config.VerificationLinkBase, c.VerificationLinkBase)
	setString(&config.MailOutboxDir, c.MailOutboxDir)
}

func setString(dst *string, v *string) {
	if v != nil {
		*dst = *v
	}
}

func setInt(dst *int, v *int) {
	if v != nil {
		*dst = *v
	}
}
