package credentials

import (
	"bytes"
	"crypto"
	"crypto/tls"
	"crypto/x509"
	"encoding/pem"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"strings"

	"github.com/pavlo-v-chernykh/keystore-go/v4"
	"golang.org/x/crypto/pkcs12"

	"github.com/lwm2m-bridge/lwm2m-go/pkg/config"
)

// Keystore errors.
var (
	ErrUnsupportedType = errors.New("unsupported keystore type")
	ErrMissing         = errors.New("keystore not found")
	ErrCorrupt         = errors.New("keystore unreadable")
	ErrAliasNotFound   = errors.New("alias not found")
)

// Store is the loaded credential material.
type Store struct {
	// Enabled is false when no usable keystore was loaded.
	Enabled bool
	// Reason explains why security is disabled.
	Reason string

	Path       string
	RootCA     *x509.Certificate
	ServerCert *x509.Certificate
	ServerKey  crypto.PrivateKey
}

// Disabled returns a store with security disabled for err.
func Disabled(err error) *Store {
	return &Store{Reason: err.Error()}
}

// Load reads the keystore at path. It never fails: problems are logged and
// produce a disabled store.
func Load(cfg config.KeystoreConfig, path string, logger *slog.Logger) *Store {
	if logger == nil {
		logger = slog.Default()
	}
	s, err := load(cfg, path)
	if err != nil {
		logger.Warn("keystore not loaded, security disabled", "path", path, "type", cfg.Type, "error", err)
		return Disabled(err)
	}
	logger.Info("keystore loaded", "path", path, "server", s.ServerCert.Subject.CommonName, "root", rootName(s))
	return s
}

func load(cfg config.KeystoreConfig, path string) (*Store, error) {
	var decode func(data []byte, password string) ([]*pem.Block, error)
	switch {
	case strings.EqualFold(cfg.Type, config.KeystorePKCS12):
		decode = pkcs12.ToPEM
	case strings.EqualFold(cfg.Type, config.KeystoreJKS):
		decode = jksToPEM
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnsupportedType, cfg.Type)
	}
	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, fmt.Errorf("%w: %s", ErrMissing, path)
		}
		return nil, fmt.Errorf("%w: %v", ErrCorrupt, err)
	}
	blocks, err := decode(data, cfg.Password)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrCorrupt, err)
	}
	s, err := fromBlocks(blocks, cfg.RootAlias, cfg.ServerAlias)
	if err != nil {
		return nil, err
	}
	s.Path = path
	return s, nil
}

// jksToPEM flattens a Java keystore into the block layout pkcs12.ToPEM
// produces. Key entries use the store password and carry their alias as
// both friendlyName and localKeyId, so the key pairs with its certificate.
func jksToPEM(data []byte, password string) ([]*pem.Block, error) {
	ks := keystore.New()
	if err := ks.Load(bytes.NewReader(data), []byte(password)); err != nil {
		return nil, err
	}
	var blocks []*pem.Block
	for _, alias := range ks.Aliases() {
		headers := map[string]string{"friendlyName": alias}
		switch {
		case ks.IsPrivateKeyEntry(alias):
			entry, err := ks.GetPrivateKeyEntry(alias, []byte(password))
			if err != nil {
				return nil, fmt.Errorf("key %q: %w", alias, err)
			}
			headers["localKeyId"] = alias
			blocks = append(blocks, &pem.Block{Type: "PRIVATE KEY", Headers: headers, Bytes: entry.PrivateKey})
			if len(entry.CertificateChain) > 0 {
				blocks = append(blocks, &pem.Block{Type: "CERTIFICATE", Headers: headers, Bytes: entry.CertificateChain[0].Content})
			}
		case ks.IsTrustedCertificateEntry(alias):
			entry, err := ks.GetTrustedCertificateEntry(alias)
			if err != nil {
				return nil, fmt.Errorf("certificate %q: %w", alias, err)
			}
			blocks = append(blocks, &pem.Block{Type: "CERTIFICATE", Headers: headers, Bytes: entry.Certificate.Content})
		}
	}
	return blocks, nil
}

// fromBlocks picks the root certificate and the server certificate and key
// by alias. The server key is matched to its certificate by local key ID.
// With no alias match, a keystore holding a single key entry is still used.
func fromBlocks(blocks []*pem.Block, rootAlias, serverAlias string) (*Store, error) {
	s := &Store{Enabled: true}
	keys := make(map[string]crypto.PrivateKey)
	var serverKeyID string
	var anyKey crypto.PrivateKey
	var anyCert *x509.Certificate

	for _, b := range blocks {
		alias := b.Headers["friendlyName"]
		switch b.Type {
		case "CERTIFICATE":
			cert, err := x509.ParseCertificate(b.Bytes)
			if err != nil {
				return nil, fmt.Errorf("%w: certificate %q: %v", ErrCorrupt, alias, err)
			}
			switch {
			case alias != "" && strings.EqualFold(alias, rootAlias):
				s.RootCA = cert
			case alias != "" && strings.EqualFold(alias, serverAlias):
				s.ServerCert = cert
				serverKeyID = b.Headers["localKeyId"]
			case anyCert == nil && b.Headers["localKeyId"] != "":
				anyCert = cert
			}
		case "PRIVATE KEY":
			key, err := parseKey(b.Bytes)
			if err != nil {
				return nil, fmt.Errorf("%w: key %q: %v", ErrCorrupt, alias, err)
			}
			keys[b.Headers["localKeyId"]] = key
			if anyKey == nil {
				anyKey = key
			}
		}
	}

	if s.ServerCert == nil && anyCert != nil && len(keys) == 1 {
		s.ServerCert, s.ServerKey = anyCert, anyKey
	}
	if s.ServerCert == nil {
		return nil, fmt.Errorf("%w: server certificate %q", ErrAliasNotFound, serverAlias)
	}
	if s.ServerKey == nil {
		s.ServerKey = keys[serverKeyID]
	}
	if s.ServerKey == nil && len(keys) == 1 {
		s.ServerKey = anyKey
	}
	if s.ServerKey == nil {
		return nil, fmt.Errorf("%w: server key %q", ErrAliasNotFound, serverAlias)
	}
	return s, nil
}

func parseKey(der []byte) (crypto.PrivateKey, error) {
	if key, err := x509.ParsePKCS8PrivateKey(der); err == nil {
		return key, nil
	}
	if key, err := x509.ParsePKCS1PrivateKey(der); err == nil {
		return key, nil
	}
	return x509.ParseECPrivateKey(der)
}

func rootName(s *Store) string {
	if s.RootCA == nil {
		return ""
	}
	return s.RootCA.Subject.CommonName
}

// TLSConfig returns a server TLS configuration using the loaded material,
// or nil when security is disabled. Clients are verified against RootCA
// when one was loaded.
func (s *Store) TLSConfig() *tls.Config {
	if s == nil || !s.Enabled {
		return nil
	}
	cfg := &tls.Config{
		MinVersion: tls.VersionTLS12,
		Certificates: []tls.Certificate{{
			Certificate: [][]byte{s.ServerCert.Raw},
			PrivateKey:  s.ServerKey,
			Leaf:        s.ServerCert,
		}},
	}
	if s.RootCA != nil {
		pool := x509.NewCertPool()
		pool.AddCert(s.RootCA)
		cfg.ClientCAs = pool
		cfg.ClientAuth = tls.VerifyClientCertIfGiven
	}
	return cfg
}
