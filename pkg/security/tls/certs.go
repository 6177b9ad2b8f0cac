package tls

import (
	"crypto/tls"
	"crypto/x509"
	"fmt"
	"time"
)

// expiryWarningDays is the remaining lifetime below which a loaded
// certificate is logged as a warning.
const expiryWarningDays = 30

// ValidateCertificate parses the leaf of cert and rejects it when it is
// outside its validity window.
func ValidateCertificate(cert *tls.Certificate) (*x509.Certificate, error) {
	if cert == nil || len(cert.Certificate) == 0 {
		return nil, fmt.Errorf("certificate chain is empty")
	}

	leaf, err := x509.ParseCertificate(cert.Certificate[0])
	if err != nil {
		return nil, fmt.Errorf("failed to parse certificate: %w", err)
	}

	now := time.Now()
	if now.Before(leaf.NotBefore) {
		return nil, fmt.Errorf("certificate is not yet valid (valid from %s)", leaf.NotBefore.Format(time.RFC3339))
	}
	if now.After(leaf.NotAfter) {
		return nil, fmt.Errorf("certificate expired on %s", leaf.NotAfter.Format(time.RFC3339))
	}
	return leaf, nil
}

// CheckCertificateExpiration returns the whole days left on cert and
// whether that is inside the warning window.
func CheckCertificateExpiration(cert *x509.Certificate) (daysUntilExpiry int, expiringSoon bool) {
	daysUntilExpiry = int(time.Until(cert.NotAfter).Hours() / 24)
	return daysUntilExpiry, daysUntilExpiry < expiryWarningDays
}
