package config

import (
	"flag"
	"os"
	"time"

	"github.com/dmitrijs2005/gophauth/internal/flagx"
)

// parseFlags populates selected Config fields from command-line flags.
//
// Supported flags (short forms):
//
//	-a string   gRPC bind address (e.g., ":50051")
//	-m string   metrics/health HTTP bind address
//	-d string   PostgreSQL DSN
//	-s string   token signing key
//	-i string   token issuer
//	-u string   token audience
//	-t int      login token validity, minutes
//	-v int      email verification token validity, minutes
//	-r int      access code validity, minutes
//	-k string   key source: generate, file or s3
//	-p string   key path (file path or S3 object key)
//	-n string   redis address for the nonce guard
//
// Duration flags are integers in minutes.
func parseFlags(config *Config) {
	args := flagx.FilterArgs(os.Args[1:], []string{"-a", "-m", "-d", "-s", "-i", "-u", "-t", "-v", "-r", "-k", "-p", "-n"})

	fs := flag.NewFlagSet("main", flag.ContinueOnError)

	fs.StringVar(&config.EndpointAddrGRPC, "a", config.EndpointAddrGRPC, "address and port to run gRPC server")
	fs.StringVar(&config.EndpointAddrMetrics, "m", config.EndpointAddrMetrics, "address and port for metrics and health")
	fs.StringVar(&config.DatabaseDSN, "d", config.DatabaseDSN, "database DSN")
	fs.StringVar(&config.SecretKey, "s", config.SecretKey, "token signing key")
	fs.StringVar(&config.TokenIssuer, "i", config.TokenIssuer, "token issuer")
	fs.StringVar(&config.TokenAudience, "u", config.TokenAudience, "token audience")

	loginTokenValidity := fs.Int("t", int(config.LoginTokenValidityDuration.Minutes()), "login token validity (in minutes)")
	emailTokenValidity := fs.Int("v", int(config.EmailTokenValidityDuration.Minutes()), "email verification token validity (in minutes)")
	accessCodeValidity := fs.Int("r", int(config.AccessCodeValidityDuration.Minutes()), "access code validity (in minutes)")

	fs.StringVar(&config.KeySource, "k", config.KeySource, "key source: generate, file or s3")
	fs.StringVar(&config.KeyPath, "p", config.KeyPath, "private key path or S3 object key")
	fs.StringVar(&config.RedisAddr, "n", config.RedisAddr, "redis address for nonce replay guard")

	if err := fs.Parse(args); err != nil {
		panic(err)
	}

	config.LoginTokenValidityDuration = time.Duration(*loginTokenValidity) * time.Minute
	config.EmailTokenValidityDuration = time.Duration(*emailTokenValidity) * time.Minute
	config.AccessCodeValidityDuration = time.Duration(*accessCodeValidity) * time.Minute
}
