package certificates

import (
	"crypto/tls"
	"crypto/x509"
	"fmt"
	"net/http"

	"github.com/janmbaco/go-webcontainer/internal/domain"
	"golang.org/x/crypto/acme"
	"golang.org/x/crypto/acme/autocert"
)

// DefaultAutocertDir is the cache directory of ACME certificates.
const DefaultAutocertDir = "./certs"

// CertManager is the object responsible for serving the
// certificates of a TLS connector
type CertManager struct {
	manager            *autocert.Manager
	autoCertList       []string
	clientCAs          []string
	certificates       map[string]*tls.Certificate
	defaultCertificate *tls.Certificate
}

// NewCertManager returns a new object of CertManager type
func NewCertManager(manager *autocert.Manager) *CertManager {
	return &CertManager{manager: manager, autoCertList: make([]string, 0), clientCAs: make([]string, 0), certificates: make(map[string]*tls.Certificate)}
}

// NewConnectorCertManager creates the CertManager of a connector from its key pair,
// client CAs and autocert hosts.
func NewConnectorCertManager(spec domain.ConnectorSpec) (*CertManager, error) {
	dir := spec.AutocertDir
	if dir == "" {
		dir = DefaultAutocertDir
	}
	certManager := NewCertManager(&autocert.Manager{
		Prompt: autocert.AcceptTOS,
		Cache:  autocert.DirCache(dir),
	})
	if spec.CertFile != "" || spec.KeyFile != "" {
		cert, err := tls.LoadX509KeyPair(spec.CertFile, spec.KeyFile)
		if err != nil {
			return nil, fmt.Errorf("failed to load key pair of connector %v: %w", domain.HostPort(spec.Host, spec.Port), err)
		}
		certManager.SetDefaultCertificate(&cert)
		if !domain.IsWildcardHost(spec.Host) {
			certManager.AddCertificate(spec.Host, &cert)
		}
	}
	for _, host := range spec.AutocertHosts {
		certManager.AddAutoCertificate(host)
	}
	certManager.AddClientCA(spec.ClientCAFiles)
	return certManager, nil
}

// AddCertificate adds a certificate to use for a server name
func (certManager *CertManager) AddCertificate(serverName string, certificate *tls.Certificate) {
	certManager.certificates[serverName] = certificate
}

// SetDefaultCertificate sets the certificate used when no server name matches
func (certManager *CertManager) SetDefaultCertificate(certificate *tls.Certificate) {
	certManager.defaultCertificate = certificate
}

// HasCertificateFor indicates if already exists a certificate for the server name
func (certManager *CertManager) HasCertificateFor(serverName string) bool {
	_, isContained := certManager.certificates[serverName]
	return isContained
}

// AddAutoCertificate registers a host to obtain an automatic Let's encrypt certificate
func (certManager *CertManager) AddAutoCertificate(host string) {
	certManager.autoCertList = append(certManager.autoCertList, host)
	certManager.manager.HostPolicy = autocert.HostWhitelist(certManager.autoCertList...)
}

// AddClientCA registers certificate authorities whose client certificates are verified
func (certManager *CertManager) AddClientCA(authorizedCA []string) {
	certManager.clientCAs = append(certManager.clientCAs, authorizedCA...)
}

// GetTLSConfig gets the config structure to configure a TLS connector
func (certManager *CertManager) GetTLSConfig() (*tls.Config, error) {
	ret := &tls.Config{
		MinVersion:     tls.VersionTLS12,
		GetCertificate: certManager.certificateGetter,
		NextProtos: []string{
			"h2", "http/1.1", // enable HTTP/2
		},
	}
	if len(certManager.autoCertList) > 0 {
		ret.NextProtos = append(ret.NextProtos, acme.ALPNProto) // enable tls-alpn ACME challenges
	}
	if len(certManager.clientCAs) > 0 {
		pool, err := appendPEMFiles(x509.NewCertPool(), certManager.clientCAs...)
		if err != nil {
			return nil, err
		}
		ret.ClientAuth = tls.VerifyClientCertIfGiven
		ret.ClientCAs = pool
	}
	return ret, nil
}

// HTTPHandler answers ACME http-01 challenges and delegates everything else to fallback
func (certManager *CertManager) HTTPHandler(fallback http.Handler) http.Handler {
	if len(certManager.autoCertList) == 0 {
		return fallback
	}
	return certManager.manager.HTTPHandler(fallback)
}

func (certManager *CertManager) certificateGetter(hello *tls.ClientHelloInfo) (*tls.Certificate, error) {
	if certManager.certificates[hello.ServerName] != nil {
		return certManager.certificates[hello.ServerName], nil
	}

	if len(certManager.autoCertList) > 0 {
		for _, host := range certManager.autoCertList {
			if host == hello.ServerName {
				return certManager.manager.GetCertificate(hello)
			}
		}
	}

	if certManager.defaultCertificate != nil {
		return certManager.defaultCertificate, nil
	}

	return nil, fmt.Errorf("no certificate configured for server name: %s", hello.ServerName)
}
