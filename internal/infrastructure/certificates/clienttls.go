package certificates

import (
	"crypto/tls"
	"crypto/x509"
	"fmt"
	"os"
	"strings"

	"github.com/janmbaco/go-webcontainer/internal/domain"
)

// Init params read by ClientTLSFromParams.
const (
	ParamCAFiles  = "ca_files"
	ParamCertFile = "cert_file"
	ParamKeyFile  = "key_file"
)

// ClientTLS holds the key pair and the certificate authorities used
// to establish secure communication between a servlet and its backend.
type ClientTLS struct {
	CAFiles  []string `json:"ca_files"`
	CertFile string   `json:"cert_file"`
	KeyFile  string   `json:"key_file"`
}

// ClientTLSFromParams reads a ClientTLS from init params; ca_files is a comma separated list.
// Returns nil when no TLS material is configured.
func ClientTLSFromParams(params domain.InitParams) *ClientTLS {
	clientTLS := &ClientTLS{
		CertFile: params.Value(ParamCertFile),
		KeyFile:  params.Value(ParamKeyFile),
	}
	for _, caFile := range strings.Split(params.Value(ParamCAFiles), ",") {
		if caFile = strings.TrimSpace(caFile); caFile != "" {
			clientTLS.CAFiles = append(clientTLS.CAFiles, caFile)
		}
	}
	if len(clientTLS.CAFiles) == 0 && clientTLS.CertFile == "" && clientTLS.KeyFile == "" {
		return nil
	}
	return clientTLS
}

// GetCertificate loads the client key pair.
func (c *ClientTLS) GetCertificate() (*tls.Certificate, error) {
	if c == nil {
		return nil, fmt.Errorf("client tls is nil")
	}
	if c.CertFile == "" || c.KeyFile == "" {
		return nil, fmt.Errorf("client certificate or key file is empty")
	}
	result, err := tls.LoadX509KeyPair(c.CertFile, c.KeyFile)
	if err != nil {
		return nil, err
	}
	return &result, nil
}

// GetTLSConfig gets the config structure to configure a TLS client.
func (c *ClientTLS) GetTLSConfig() (*tls.Config, error) {
	tlsConfig := &tls.Config{MinVersion: tls.VersionTLS12}
	if len(c.CAFiles) > 0 {
		rootCAs, err := systemPoolWith(c.CAFiles...)
		if err != nil {
			return nil, err
		}
		tlsConfig.RootCAs = rootCAs
	}
	if c.CertFile != "" || c.KeyFile != "" {
		cert, err := c.GetCertificate()
		if err != nil {
			return nil, err
		}
		tlsConfig.Certificates = []tls.Certificate{*cert}
	}
	return tlsConfig, nil
}

func systemPoolWith(caFiles ...string) (*x509.CertPool, error) {
	pool, err := x509.SystemCertPool()
	if err != nil {
		return nil, err
	}
	return appendPEMFiles(pool, caFiles...)
}

func appendPEMFiles(pool *x509.CertPool, caFiles ...string) (*x509.CertPool, error) {
	for _, caFile := range caFiles {
		pem, err := os.ReadFile(caFile)
		if err != nil {
			return nil, err
		}
		if !pool.AppendCertsFromPEM(pem) {
			return nil, fmt.Errorf("no certificates found in %v", caFile)
		}
	}
	return pool, nil
}
