package server

import (
	"bytes"
	"context"
	"crypto/rand"
	"crypto/rsa"
	"database/sql"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/alicebob/miniredis/v2"
	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/dmitrijs2005/gophauth/internal/dbx"
	"github.com/dmitrijs2005/gophauth/internal/logging"
	"github.com/dmitrijs2005/gophauth/internal/server/config"
	"github.com/dmitrijs2005/gophauth/internal/server/keyexchange"
	"github.com/dmitrijs2005/gophauth/internal/server/mail"
	"github.com/dmitrijs2005/gophauth/internal/server/repositories/emailverifications"
	"github.com/dmitrijs2005/gophauth/internal/server/repositories/passwordrecovers"
	"github.com/dmitrijs2005/gophauth/internal/server/repositories/repomanager"
	"github.com/dmitrijs2005/gophauth/internal/server/repositories/users"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeRepoManager struct {
	migrateErr error
	migrated   bool
}

func (f *fakeRepoManager) RunMigrations(context.Context, *sql.DB) error {
	f.migrated = true
	return f.migrateErr
}
func (f *fakeRepoManager) Users(dbx.DBTX) users.Repository { return nil }
func (f *fakeRepoManager) EmailVerifications(dbx.DBTX) emailverifications.Repository {
	return nil
}
func (f *fakeRepoManager) PasswordRecovers(dbx.DBTX) passwordrecovers.Repository { return nil }

type fakeS3 struct {
	pem []byte
}

func (f fakeS3) GetObject(ctx context.Context, in *s3.GetObjectInput, _ ...func(*s3.Options)) (*s3.GetObjectOutput, error) {
	if aws.ToString(in.Bucket) != "keys" || aws.ToString(in.Key) != "server.pem" {
		return nil, errors.New("no such key")
	}
	return &s3.GetObjectOutput{Body: readCloser{bytes.NewReader(f.pem)}}, nil
}

type readCloser struct{ *bytes.Reader }

func (readCloser) Close() error { return nil }

func keyPEM(t *testing.T) []byte {
	t.Helper()
	k, err := rsa.GenerateKey(rand.Reader, 2048)
	require.NoError(t, err)
	return keyexchange.EncodePrivateKeyPEM(k)
}

func testConfig(t *testing.T, pem []byte) *config.Config {
	t.Helper()
	path := filepath.Join(t.TempDir(), "server.pem")
	require.NoError(t, os.WriteFile(path, pem, 0o600))

	c := &config.Config{}
	c.LoadDefaults()
	c.SecretKey = "app-test-signing-key-0123456789abcdef"
	c.KeySource = config.KeySourceFile
	c.KeyPath = path
	c.EndpointAddrGRPC = "127.0.0.1:0"
	c.EndpointAddrMetrics = "127.0.0.1:0"
	c.LogLevel = "error"
	return c
}

// stubStorage replaces the database and migration seams.
func stubStorage(t *testing.T, rm *fakeRepoManager, openErr error) sqlmock.Sqlmock {
	t.Helper()
	db, mock, err := sqlmock.New()
	require.NoError(t, err)

	origOpen, origRM, origOutbox := openDB, newRepoManager, stderrOutbox
	openDB = func(context.Context, string) (*sql.DB, error) {
		if openErr != nil {
			return nil, openErr
		}
		return db, nil
	}
	newRepoManager = func() repomanager.RepositoryManager { return rm }
	stderrOutbox = &bytes.Buffer{}

	t.Cleanup(func() {
		openDB, newRepoManager, stderrOutbox = origOpen, origRM, origOutbox
	})
	return mock
}

func TestNewApp_InvalidConfig(t *testing.T) {
	c := testConfig(t, keyPEM(t))
	c.SecretKey = ""

	_, err := NewApp(context.Background(), c)
	assert.ErrorContains(t, err, "invalid config")
}

func TestNewApp_DBError(t *testing.T) {
	stubStorage(t, &fakeRepoManager{}, errors.New("refused"))

	_, err := NewApp(context.Background(), testConfig(t, keyPEM(t)))
	assert.ErrorContains(t, err, "db init error")
}

func TestNewApp_MigrationErrorClosesDB(t *testing.T) {
	rm := &fakeRepoManager{migrateErr: errors.New("dirty")}
	mock := stubStorage(t, rm, nil)
	mock.ExpectClose()

	_, err := NewApp(context.Background(), testConfig(t, keyPEM(t)))
	assert.ErrorContains(t, err, "migrations error")
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestNewApp_BadKeyFile(t *testing.T) {
	mock := stubStorage(t, &fakeRepoManager{}, nil)
	mock.ExpectClose()

	_, err := NewApp(context.Background(), testConfig(t, []byte("not a key")))
	assert.ErrorContains(t, err, "key exchange init error")
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestNewApp_WiresEverything(t *testing.T) {
	rm := &fakeRepoManager{}
	mock := stubStorage(t, rm, nil)

	mr := miniredis.RunT(t)
	c := testConfig(t, keyPEM(t))
	c.RedisAddr = mr.Addr()

	app, err := NewApp(context.Background(), c)
	require.NoError(t, err)

	assert.True(t, rm.migrated)
	assert.NotNil(t, app.grpcServer)
	assert.NotNil(t, app.metrics)
	assert.NotNil(t, app.redis)
	assert.IsType(t, &mail.OutboxSender{}, app.mailer())

	mock.ExpectClose()
	app.Close()
	assert.Nil(t, app.db)
	assert.Nil(t, app.redis)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestNewApp_RunStopsOnCancel(t *testing.T) {
	mock := stubStorage(t, &fakeRepoManager{}, nil)

	app, err := NewApp(context.Background(), testConfig(t, keyPEM(t)))
	require.NoError(t, err)

	mock.ExpectClose()
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	app.Run(ctx)

	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestKeySource_S3(t *testing.T) {
	pem := keyPEM(t)
	orig := newS3Client
	t.Cleanup(func() { newS3Client = orig })

	var got keyexchange.S3Settings
	newS3Client = func(_ context.Context, st keyexchange.S3Settings) (keyexchange.S3GetObjectAPI, error) {
		got = st
		return fakeS3{pem: pem}, nil
	}

	c := &config.Config{}
	c.LoadDefaults()
	c.KeySource = config.KeySourceS3
	c.KeyPath = "server.pem"

	app := &App{config: c}
	src, err := app.keySource(context.Background())
	require.NoError(t, err)

	_, err = src.PrivateKey(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "admin", got.User)
	assert.Equal(t, "us-east-1", got.Region)
}

func TestMailer_SMTPWhenConfigured(t *testing.T) {
	c := &config.Config{}
	c.LoadDefaults()
	c.SMTPHost = "smtp.example"

	app := &App{config: c, logger: logging.NewNopLogger()}
	assert.IsType(t, &mail.SMTPSender{}, app.mailer())
}

func TestMailer_OutboxDir(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "mail")
	c := &config.Config{}
	c.LoadDefaults()
	c.MailOutboxDir = dir

	app := &App{config: c, logger: logging.NewNopLogger()}
	sender := app.mailer()
	require.NotNil(t, app.outbox)

	require.NoError(t, sender.Send(context.Background(), mail.Message{RecipientName: "alice", RecipientEmail: "alice@x.com", Subject: "hi", Body: "<p>hi</p>"}))
	app.Close()

	b, err := os.ReadFile(filepath.Join(dir, outboxFile))
	require.NoError(t, err)
	assert.Contains(t, string(b), "Subject: hi")
}
